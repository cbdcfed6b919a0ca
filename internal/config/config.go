package config

import (
	"github.com/standardbeagle/ccsearch/internal/problem"
)

// Defaults shared by the flag declarations and parameter files
const (
	DefaultDelimiter           = ","
	DefaultCollectionTolerance = 0.2
	DefaultItemCullTolerance   = 0.5
	DefaultGroupCullMargin     = 1
	DefaultResultBlockSize     = 10000
	DefaultMaxResults          = 10000
	DefaultSearchMode          = int(problem.FewestToMostByValue)
	DefaultMaxCostTolerance    = 0.01
	DefaultPageSize            = 100000

	// StdoutPath selects standard output as the result sink
	StdoutPath = "stdout"
	// TabKeyword selects a tab delimiter
	TabKeyword = "tab"
)

// Config is one fully resolved run of the search. The `flag` tags name the
// command-line flag each field comes from and label validation errors.
type Config struct {
	Input   Input
	Problem Problem
	Search  Search
	Output  Output
}

type Input struct {
	Path      string `flag:"f" validate:"required"`
	HasHeader bool   `flag:"H"`
	Delimiter string `flag:"d" validate:"required"` // single character, or "tab"
}

type Problem struct {
	Primary     int   `flag:"P" validate:"gte=1"`
	GroupSpec   []int `flag:"G" validate:"required,min=1,dive,gte=0"`
	Partitions  []int `flag:"ispart" validate:"dive,gte=1"`
	Constraints []problem.Constraint
}

type Search struct {
	MaxCost             *float64 `flag:"maxcost" validate:"required"`
	MaxCostTolerance    float64  `flag:"mctol" validate:"gte=0"`
	CollectionTolerance float64  `flag:"ctol" validate:"gte=0,lte=1"`
	ItemCullTolerance   float64  `flag:"itol" validate:"gte=0"`
	GroupCullMargin     int      `flag:"ntol" validate:"gte=0"`
	ResultBlockSize     int      `flag:"resnumb" validate:"gte=10"`
	MaxResults          int64    `flag:"maxres" validate:"gte=0"`
	SearchMode          int      `flag:"smode" validate:"oneof=1 2 3 4"`
	EstimateOnly        bool     `flag:"estimate"`
}

type Output struct {
	Path      string `flag:"o"` // empty means no output, StdoutPath means stdout
	PageSize  int    `flag:"page-size" validate:"gte=1"`
	Verbosity int    `flag:"V"`
	LogJSON   bool   `flag:"log-json"`
}

// Default returns a configuration with every optional value at its default
func Default() *Config {
	return &Config{
		Input: Input{
			Delimiter: DefaultDelimiter,
		},
		Search: Search{
			MaxCostTolerance:    DefaultMaxCostTolerance,
			CollectionTolerance: DefaultCollectionTolerance,
			ItemCullTolerance:   DefaultItemCullTolerance,
			GroupCullMargin:     DefaultGroupCullMargin,
			ResultBlockSize:     DefaultResultBlockSize,
			MaxResults:          DefaultMaxResults,
			SearchMode:          DefaultSearchMode,
		},
		Output: Output{
			PageSize: DefaultPageSize,
		},
	}
}

// Spec returns the structural part of the configuration used to validate
// the input table
func (c *Config) Spec() problem.Spec {
	return problem.Spec{
		Primary:     c.Problem.Primary,
		GroupSpec:   c.Problem.GroupSpec,
		Partitions:  c.Problem.Partitions,
		Constraints: c.Problem.Constraints,
	}
}

// Params returns the engine parameters. Call only after validation.
func (c *Config) Params() problem.Params {
	p := problem.Params{
		MaxCostTolerance:    c.Search.MaxCostTolerance,
		CollectionTolerance: c.Search.CollectionTolerance,
		ItemCullTolerance:   c.Search.ItemCullTolerance,
		GroupCullMargin:     c.Search.GroupCullMargin,
		ResultBlockSize:     c.Search.ResultBlockSize,
		MaxResults:          c.Search.MaxResults,
		SearchMode:          problem.SearchMode(c.Search.SearchMode),
	}
	if c.Search.MaxCost != nil {
		p.MaxCost = *c.Search.MaxCost
	}
	return p
}

// DelimiterByte resolves the configured delimiter. Call only after
// validation.
func (c *Config) DelimiterByte() byte {
	d, _ := ParseDelimiter(c.Input.Delimiter)
	return d
}

// WantsOutput reports whether result lines should be written anywhere
func (c *Config) WantsOutput() bool {
	return c.Output.Path != ""
}

// Float64 is a helper for setting the optional MaxCost field
func Float64(v float64) *float64 {
	return &v
}
