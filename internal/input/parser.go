// Package input reads the delimited item table that describes a problem
// instance: one item per line with id, value, cost and one membership cell
// per feature.
package input

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	ccserrors "github.com/standardbeagle/ccsearch/internal/errors"
)

const (
	// NoGroups is the cell marker for an item that belongs to no group
	NoGroups = "-"

	// GroupSeparator splits the group numbers within one feature cell
	GroupSeparator = ':'

	// CommentMarker starts a comment that runs to the end of the line
	CommentMarker = '#'

	// MandatoryColumns is the id, value and cost prefix of every line
	MandatoryColumns = 3

	maxLineBytes = 4 * 1024 * 1024
)

// Column positions of the mandatory fields
const (
	ColumnID = iota
	ColumnValue
	ColumnCost
)

// GroupList is the set of 1-based group numbers an item belongs to for one
// feature. An empty list means no membership.
type GroupList []int

// BadCell records a cell that could not be parsed. The validator reports
// these alongside every other semantic problem.
type BadCell struct {
	Line   int    // physical line number (1-based)
	Item   int    // 0-based item index
	Column int    // 0-based column index
	Raw    string // cell text as read
	Reason string
}

func (b BadCell) String() string {
	return fmt.Sprintf("line %d column %d: %s (%q)", b.Line, b.Column+1, b.Reason, b.Raw)
}

// Table is the parsed input: parallel columns indexed by item order
type Table struct {
	Source   string
	Columns  int
	IDs      []string
	Values   []float64
	Costs    []float64
	Features [][]GroupList // [feature][item]
	Lines    []int         // physical line of each item
	BadCells []BadCell
}

// NumItems returns the number of data lines read
func (t *Table) NumItems() int {
	return len(t.IDs)
}

// NumFeatures returns the number of feature columns
func (t *Table) NumFeatures() int {
	return len(t.Features)
}

// Options controls how the table is split
type Options struct {
	Delimiter byte
	HasHeader bool
	// Path is only used to label errors
	Path string
}

// LoadFile opens path and parses it with Parse
func LoadFile(path string, opts Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ccserrors.NewFileError("open", path, err)
	}
	defer f.Close()

	if opts.Path == "" {
		opts.Path = path
	}
	return Parse(f, opts)
}

// Parse reads the item table. The first non-blank, non-comment line fixes the
// column count; every later line must match it. All mismatched lines are
// reported together.
func Parse(r io.Reader, opts Options) (*Table, error) {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	if opts.Delimiter == GroupSeparator || opts.Delimiter == CommentMarker {
		return nil, ccserrors.NewConfigError("delimiter", string(opts.Delimiter), errors.New("':' and '#' are reserved"))
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	t := &Table{Source: opts.Path}
	delim := string(opts.Delimiter)
	skipHeader := opts.HasHeader

	var (
		lineNo  int
		lineErr []error
	)

	for sc.Scan() {
		lineNo++
		line := stripComment(sc.Text())
		if line == "" {
			continue
		}

		fields := strings.Split(line, delim)
		if t.Columns == 0 {
			if len(fields) < MandatoryColumns {
				return nil, ccserrors.NewParseError(opts.Path, lineNo,
					fmt.Errorf("first data line has %d columns, need at least %d (id, value, cost, features...)", len(fields), MandatoryColumns))
			}
			t.Columns = len(fields)
			t.Features = make([][]GroupList, t.Columns-MandatoryColumns)
		} else if len(fields) != t.Columns {
			lineErr = append(lineErr, ccserrors.NewColumnCountError(opts.Path, lineNo, t.Columns, len(fields)))
			continue
		}

		if skipHeader {
			skipHeader = false
			continue
		}

		t.addRow(lineNo, fields)
	}

	if err := sc.Err(); err != nil {
		return nil, ccserrors.NewParseError(opts.Path, lineNo+1, err)
	}
	if t.Columns == 0 {
		return nil, ccserrors.NewParseError(opts.Path, lineNo, errors.New("no data lines found"))
	}
	if len(lineErr) > 0 {
		return nil, ccserrors.NewMultiError(lineErr)
	}
	return t, nil
}

func (t *Table) addRow(lineNo int, fields []string) {
	item := len(t.IDs)
	t.IDs = append(t.IDs, fields[ColumnID])
	t.Lines = append(t.Lines, lineNo)
	t.Values = append(t.Values, t.parseNumber(lineNo, item, ColumnValue, fields[ColumnValue]))
	t.Costs = append(t.Costs, t.parseNumber(lineNo, item, ColumnCost, fields[ColumnCost]))

	for j := range t.Features {
		col := MandatoryColumns + j
		groups, err := ParseCell(fields[col])
		if err != nil {
			t.BadCells = append(t.BadCells, BadCell{
				Line:   lineNo,
				Item:   item,
				Column: col,
				Raw:    fields[col],
				Reason: err.Error(),
			})
			groups = GroupList{}
		}
		t.Features[j] = append(t.Features[j], groups)
	}
}

// parseNumber records unparsable numbers as bad cells and stores NaN
func (t *Table) parseNumber(lineNo, item, col int, raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		t.BadCells = append(t.BadCells, BadCell{
			Line:   lineNo,
			Item:   item,
			Column: col,
			Raw:    raw,
			Reason: "not a number",
		})
		return math.NaN()
	}
	return v
}

func stripComment(line string) string {
	line = strings.TrimSpace(line)
	if i := strings.IndexByte(line, CommentMarker); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

// ParseCell parses one feature cell: "-" for no groups, otherwise a
// ':'-separated list of integers. Range checks are left to the validator so
// that zero and negative group numbers are reported with everything else.
func ParseCell(raw string) (GroupList, error) {
	raw = strings.TrimSpace(raw)
	switch raw {
	case NoGroups:
		return GroupList{}, nil
	case "":
		return nil, errors.New("blank feature cell, use - for no groups")
	}

	tokens := strings.Split(raw, string(GroupSeparator))
	groups := make(GroupList, 0, len(tokens))
	for _, tok := range tokens {
		g, err := strconv.Atoi(strings.TrimSpace(tok))
		if err != nil {
			return nil, fmt.Errorf("group %q is not an integer", tok)
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// FormatCell is the inverse of ParseCell
func FormatCell(groups GroupList) string {
	if len(groups) == 0 {
		return NoGroups
	}
	var sb strings.Builder
	for i, g := range groups {
		if i > 0 {
			sb.WriteByte(GroupSeparator)
		}
		sb.WriteString(strconv.Itoa(g))
	}
	return sb.String()
}

// MaxGroup returns the largest group number in the list, 0 when empty
func (g GroupList) MaxGroup() int {
	m := 0
	for _, v := range g {
		if v > m {
			m = v
		}
	}
	return m
}
