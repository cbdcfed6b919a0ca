package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"

	ccserrors "github.com/standardbeagle/ccsearch/internal/errors"
)

// Load reads a parameter file on top of the defaults. Files ending in .toml
// are read as TOML, everything else as KDL. Command-line flags that are set
// explicitly override what the file provides.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, ccserrors.NewFileError("read", path, err)
	}

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = parseTOML(content, cfg)
	} else {
		err = parseKDL(string(content), cfg)
	}
	if err != nil {
		return nil, ccserrors.NewConfigError("config file", path, err)
	}

	// Relative input and output paths are relative to the parameter file
	dir := filepath.Dir(path)
	cfg.Input.Path = resolveRelative(dir, cfg.Input.Path)
	if cfg.Output.Path != StdoutPath {
		cfg.Output.Path = resolveRelative(dir, cfg.Output.Path)
	}
	return cfg, nil
}

func resolveRelative(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(dir, p))
}

// parseKDL applies a KDL parameter file:
//
//	input { path "items.csv"; header true; delimiter "tab" }
//	problem { primary 1; groups 2 1; partition 1 3; constraint "mingrp:2:3" }
//	search { max_cost 50000; ctol 0.2; mode 1 }
//	output { path "stdout"; page_size 100000; verbosity 1 }
func parseKDL(content string, cfg *Config) error {
	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return fmt.Errorf("failed to parse KDL config: %w", err)
	}

	var constraintSpecs, partitionSpecs []string
	var errs []error
	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "input":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "path":
					assignString(cn, &cfg.Input.Path)
				case "header":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Input.HasHeader = b
					}
				case "delimiter":
					assignString(cn, &cfg.Input.Delimiter)
				}
			}
		case "problem":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "primary":
					errs = append(errs, assignInt(cn, &cfg.Problem.Primary))
				case "groups":
					if spec, ok := intArgs(cn); ok {
						cfg.Problem.GroupSpec = spec
					} else if s, ok := firstStringArg(cn); ok {
						spec, err := ParseGroupSpec(s)
						if err != nil {
							return err
						}
						cfg.Problem.GroupSpec = spec
					} else if len(cn.Arguments) > 0 {
						errs = append(errs, fmt.Errorf("groups: expected integers or an n1:n2 string, got %v", argStrings(cn)))
					}
				case "partition":
					partitionSpecs = append(partitionSpecs, argStrings(cn)...)
				case "constraint":
					constraintSpecs = append(constraintSpecs, argStrings(cn)...)
				}
			}
		case "search":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "max_cost":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Search.MaxCost = Float64(v)
					}
				case "max_cost_tol":
					assignFloat(cn, &cfg.Search.MaxCostTolerance)
				case "ctol":
					assignFloat(cn, &cfg.Search.CollectionTolerance)
				case "itol":
					assignFloat(cn, &cfg.Search.ItemCullTolerance)
				case "ntol":
					errs = append(errs, assignInt(cn, &cfg.Search.GroupCullMargin))
				case "result_block_size":
					errs = append(errs, assignInt(cn, &cfg.Search.ResultBlockSize))
				case "max_results":
					v, ok, err := firstIntArg(cn)
					errs = append(errs, err)
					if ok {
						cfg.Search.MaxResults = int64(v)
					}
				case "mode":
					errs = append(errs, assignInt(cn, &cfg.Search.SearchMode))
				}
			}
		case "output":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "path":
					assignString(cn, &cfg.Output.Path)
				case "page_size":
					errs = append(errs, assignInt(cn, &cfg.Output.PageSize))
				case "verbosity":
					errs = append(errs, assignInt(cn, &cfg.Output.Verbosity))
				case "log_json":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Output.LogJSON = b
					}
				}
			}
		}
	}

	if err := ccserrors.NewMultiError(errs).ErrorOrNil(); err != nil {
		return err
	}

	if len(partitionSpecs) > 0 {
		parts, err := ParsePartitions(partitionSpecs)
		if err != nil {
			return err
		}
		cfg.Problem.Partitions = parts
	}
	if len(constraintSpecs) > 0 {
		cs, err := ParseConstraints(constraintSpecs)
		if err != nil {
			return err
		}
		cfg.Problem.Constraints = cs
	}
	return nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

// firstIntArg accepts integers and whole-number floats; any other value is
// an error rather than being truncated or ignored
func firstIntArg(n *document.Node) (int, bool, error) {
	if len(n.Arguments) == 0 {
		return 0, false, nil
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true, nil
	case float64:
		if v == math.Trunc(v) {
			return int(v), true, nil
		}
	}
	return 0, false, fmt.Errorf("%s: %v is not an integer", nodeName(n), n.Arguments[0].Value)
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func firstFloatArg(n *document.Node) (float64, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// intArgs collects every argument when all of them are integers
func intArgs(n *document.Node) ([]int, bool) {
	if len(n.Arguments) == 0 {
		return nil, false
	}
	out := make([]int, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		v, ok := a.Value.(int64)
		if !ok {
			return nil, false
		}
		out = append(out, int(v))
	}
	return out, true
}

// argStrings renders every argument as text, so `partition 1 3` and
// `constraint "mingrp:2:3"` can share the flag parsers
func argStrings(n *document.Node) []string {
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		out = append(out, fmt.Sprint(a.Value))
	}
	return out
}

func assignString(n *document.Node, target *string) {
	if s, ok := firstStringArg(n); ok {
		*target = s
	}
}

func assignInt(n *document.Node, target *int) error {
	v, ok, err := firstIntArg(n)
	if ok {
		*target = v
	}
	return err
}

func assignFloat(n *document.Node, target *float64) {
	if v, ok := firstFloatArg(n); ok {
		*target = v
	}
}
