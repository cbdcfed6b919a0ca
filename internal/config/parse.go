package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hbollon/go-edlib"

	ccserrors "github.com/standardbeagle/ccsearch/internal/errors"
	"github.com/standardbeagle/ccsearch/internal/problem"
)

// minSuggestionSimilarity is the Levenshtein similarity a misspelled
// constraint kind needs before a suggestion is offered
const minSuggestionSimilarity = 0.5

// ParseDelimiter resolves a delimiter flag: a single character other than
// ':' or '#', or the word "tab"
func ParseDelimiter(s string) (byte, error) {
	if s == TabKeyword {
		return '\t', nil
	}
	switch {
	case s == "":
		return 0, ccserrors.NewConfigError("delimiter", s, errors.New("cannot be empty"))
	case len(s) != 1:
		return 0, ccserrors.NewConfigError("delimiter", s, errors.New("must be a single character (or \"tab\")"))
	case s == ":" || s == "#":
		return 0, ccserrors.NewConfigError("delimiter", s, errors.New("':' and '#' are reserved"))
	}
	return s[0], nil
}

// ParseGroupSpec parses the primary group quotas "n1:n2:...". Each count
// must be >= 0 and their sum, the collection size, must be > 0.
func ParseGroupSpec(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, ccserrors.NewConfigError("group spec", s, errors.New("cannot be empty"))
	}
	parts := strings.Split(s, ":")
	out := make([]int, 0, len(parts))
	total := 0
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, ccserrors.NewConfigError("group spec", s, fmt.Errorf("group %d count %q is not an integer", i+1, p))
		}
		if n < 0 {
			return nil, ccserrors.NewConfigError("group spec", s, fmt.Errorf("group %d count must be >= 0", i+1))
		}
		total += n
		out = append(out, n)
	}
	if total <= 0 {
		return nil, ccserrors.NewConfigError("group spec", s, errors.New("total collection size (sum of counts) must be > 0"))
	}
	return out, nil
}

// FormatGroupSpec is the inverse of ParseGroupSpec
func FormatGroupSpec(spec []int) string {
	parts := make([]string, len(spec))
	for i, n := range spec {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ":")
}

// ParseConstraint parses "t:n:m" where t is mingrp or maxitem, n is a 1-based
// feature number and m the threshold
func ParseConstraint(s string) (problem.Constraint, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return problem.Constraint{}, ccserrors.NewConfigError("constraint", s, errors.New("must be of the form t:n:m"))
	}

	name := strings.ToLower(strings.TrimSpace(parts[0]))
	kind, ok := problem.ConstraintKindNames[name]
	if !ok {
		msg := "type must be mingrp or maxitem"
		if suggestion := suggestKind(name); suggestion != "" {
			msg += fmt.Sprintf(" (did you mean %q?)", suggestion)
		}
		return problem.Constraint{}, ccserrors.NewConfigError("constraint", s, errors.New(msg))
	}

	feature, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || feature < 1 {
		return problem.Constraint{}, ccserrors.NewConfigError("constraint", s, errors.New("feature number n must be an integer >= 1"))
	}
	threshold, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil || threshold < 0 {
		return problem.Constraint{}, ccserrors.NewConfigError("constraint", s, errors.New("count m must be an integer >= 0"))
	}

	return problem.Constraint{Kind: kind, Feature: feature, Threshold: threshold}, nil
}

// ParseConstraints parses every constraint, collecting all failures
func ParseConstraints(specs []string) ([]problem.Constraint, error) {
	out := make([]problem.Constraint, 0, len(specs))
	var errs []error
	for _, s := range specs {
		c, err := ParseConstraint(s)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, c)
	}
	if err := ccserrors.NewMultiError(errs).ErrorOrNil(); err != nil {
		return nil, err
	}
	return out, nil
}

// ParsePartitions parses --ispart values: 1-based feature numbers
func ParsePartitions(specs []string) ([]int, error) {
	out := make([]int, 0, len(specs))
	for _, s := range specs {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || n < 1 {
			return nil, ccserrors.NewConfigError("partition feature", s, errors.New("must be a feature number >= 1"))
		}
		out = append(out, n)
	}
	return out, nil
}

// suggestKind returns the known constraint kind closest to name, or ""
func suggestKind(name string) string {
	best, bestScore := "", float32(0)
	for known := range problem.ConstraintKindNames {
		score, err := edlib.StringsSimilarity(name, known, edlib.Levenshtein)
		if err != nil {
			continue
		}
		if score > bestScore {
			best, bestScore = known, score
		}
	}
	if bestScore < minSuggestionSimilarity {
		return ""
	}
	return best
}
