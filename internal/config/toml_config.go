package config

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

// tomlFile mirrors the KDL layout. Pointer fields distinguish "absent" from
// a zero value so only keys present in the file override the defaults.
type tomlFile struct {
	Input struct {
		Path      *string `toml:"path"`
		Header    *bool   `toml:"header"`
		Delimiter *string `toml:"delimiter"`
	} `toml:"input"`
	Problem struct {
		Primary     *int     `toml:"primary"`
		Groups      []int    `toml:"groups"`
		Partition   []int    `toml:"partition"`
		Constraints []string `toml:"constraints"`
	} `toml:"problem"`
	Search struct {
		MaxCost         *float64 `toml:"max_cost"`
		MaxCostTol      *float64 `toml:"max_cost_tol"`
		Ctol            *float64 `toml:"ctol"`
		Itol            *float64 `toml:"itol"`
		Ntol            *int     `toml:"ntol"`
		ResultBlockSize *int     `toml:"result_block_size"`
		MaxResults      *int64   `toml:"max_results"`
		Mode            *int     `toml:"mode"`
	} `toml:"search"`
	Output struct {
		Path      *string `toml:"path"`
		PageSize  *int    `toml:"page_size"`
		Verbosity *int    `toml:"verbosity"`
		LogJSON   *bool   `toml:"log_json"`
	} `toml:"output"`
}

func parseTOML(content []byte, cfg *Config) error {
	var f tomlFile
	if err := toml.Unmarshal(content, &f); err != nil {
		return fmt.Errorf("failed to parse TOML config: %w", err)
	}

	setIf(f.Input.Path, &cfg.Input.Path)
	setIf(f.Input.Header, &cfg.Input.HasHeader)
	setIf(f.Input.Delimiter, &cfg.Input.Delimiter)

	setIf(f.Problem.Primary, &cfg.Problem.Primary)
	if f.Problem.Groups != nil {
		cfg.Problem.GroupSpec = f.Problem.Groups
	}
	if f.Problem.Partition != nil {
		cfg.Problem.Partitions = f.Problem.Partition
	}
	if len(f.Problem.Constraints) > 0 {
		cs, err := ParseConstraints(f.Problem.Constraints)
		if err != nil {
			return err
		}
		cfg.Problem.Constraints = cs
	}

	if f.Search.MaxCost != nil {
		cfg.Search.MaxCost = Float64(*f.Search.MaxCost)
	}
	setIf(f.Search.MaxCostTol, &cfg.Search.MaxCostTolerance)
	setIf(f.Search.Ctol, &cfg.Search.CollectionTolerance)
	setIf(f.Search.Itol, &cfg.Search.ItemCullTolerance)
	setIf(f.Search.Ntol, &cfg.Search.GroupCullMargin)
	setIf(f.Search.ResultBlockSize, &cfg.Search.ResultBlockSize)
	setIf(f.Search.MaxResults, &cfg.Search.MaxResults)
	setIf(f.Search.Mode, &cfg.Search.SearchMode)

	setIf(f.Output.Path, &cfg.Output.Path)
	setIf(f.Output.PageSize, &cfg.Output.PageSize)
	setIf(f.Output.Verbosity, &cfg.Output.Verbosity)
	setIf(f.Output.LogJSON, &cfg.Output.LogJSON)
	return nil
}

func setIf[T any](src *T, dst *T) {
	if src != nil {
		*dst = *src
	}
}
