package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/standardbeagle/ccsearch/internal/config"
	"github.com/standardbeagle/ccsearch/internal/debug"
	"github.com/standardbeagle/ccsearch/internal/engine"
	ccserrors "github.com/standardbeagle/ccsearch/internal/errors"
	"github.com/standardbeagle/ccsearch/internal/pipeline"
	"github.com/standardbeagle/ccsearch/internal/version"
)

// engineOpener is swapped out in tests
type engineOpener func() (engine.Engine, error)

func main() {
	app := newApp(os.Stdout, os.Stderr, engine.Open)
	if err := app.Run(os.Args); err != nil {
		for _, msg := range ccserrors.Messages(err) {
			fmt.Fprintln(os.Stderr, "ccsearch:", msg)
		}
		os.Exit(1)
	}
}

func newApp(stdout, stderr io.Writer, open engineOpener) *cli.App {
	return &cli.App{
		Name:      "ccsearch",
		Usage:     "search for near-optimal item collections under group quotas and a cost budget",
		UsageText: "ccsearch -f items.csv -P 1 -G 2:1 --maxcost 50000 [options]",
		Version:   version.FullInfo(engine.Linked),
		Writer:    stdout,
		ErrWriter: stderr,
		Flags:     flags(),
		Action: func(c *cli.Context) error {
			cfg, err := buildConfig(c)
			if err != nil {
				return err
			}
			if err := config.ValidateConfig(cfg); err != nil {
				return err
			}

			logger := debug.NewLogger(cfg.Output.Verbosity, cfg.Output.LogJSON, stderr)
			defer func() { _ = logger.Sync() }()
			logger.Debug("starting", zap.String("version", version.Info()), zap.String("build", version.BuildID()))

			eng, err := open()
			if err != nil {
				return err
			}

			r := &pipeline.Runner{
				Engine: eng,
				Logger: logger,
				Stdout: stdout,
				// Nothing here calls signal.Notify, so SIGINT already
				// terminates the process; Reset keeps it that way even if a
				// handler gets registered before the native search blocks
				BeforeExecute: func() { signal.Reset(os.Interrupt) },
			}
			_, err = r.Run(c.Context, cfg)
			return err
		},
	}
}

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "f", Usage: "input `FILE` of id, value, cost, feature columns"},
		&cli.BoolFlag{Name: "H", Usage: "input file has a header line"},
		&cli.StringFlag{Name: "d", Usage: "column delimiter, a single character or \"tab\"", Value: config.DefaultDelimiter},
		&cli.IntFlag{Name: "P", Usage: "primary feature `NUMBER` (1-based)"},
		&cli.StringFlag{Name: "G", Usage: "items to select from each primary group, `n1:n2:...`"},
		&cli.StringSliceFlag{Name: "ispart", Usage: "feature `NUMBER` is a partition (repeatable)"},
		&cli.IntFlag{Name: "V", Usage: "verbosity and engine debug bit mask"},
		&cli.StringSliceFlag{Name: "C", Usage: "constraint `t:n:m`, t is mingrp or maxitem (repeatable)"},
		&cli.Float64Flag{Name: "maxcost", Usage: "maximum total collection cost"},
		&cli.Float64Flag{Name: "ctol", Usage: "collection tolerance in [0,1]", Value: config.DefaultCollectionTolerance},
		&cli.Float64Flag{Name: "itol", Usage: "item cull tolerance", Value: config.DefaultItemCullTolerance},
		&cli.IntFlag{Name: "ntol", Usage: "group cull margin", Value: config.DefaultGroupCullMargin},
		&cli.IntFlag{Name: "resnumb", Usage: "result block size (>= 10)", Value: config.DefaultResultBlockSize},
		&cli.Int64Flag{Name: "maxres", Usage: "maximum results kept, 0 for no limit", Value: config.DefaultMaxResults},
		&cli.IntFlag{Name: "smode", Usage: "search mode 1-4", Value: config.DefaultSearchMode},
		&cli.StringFlag{Name: "o", Usage: "output `FILE`, \"stdout\", or omit for no output (.zst and .gz are compressed)"},
		&cli.Float64Flag{Name: "mctol", Usage: "tolerance added to maxcost", Value: config.DefaultMaxCostTolerance},
		&cli.IntFlag{Name: "page-size", Usage: "collections fetched per engine call", Value: config.DefaultPageSize},
		&cli.BoolFlag{Name: "estimate", Usage: "print the search space estimate and exit without searching"},
		&cli.StringFlag{Name: "config", Usage: "parameter `FILE` (.kdl or .toml); flags override it"},
		&cli.BoolFlag{Name: "log-json", Usage: "write logs as JSON"},
	}
}

// buildConfig starts from the parameter file when one is given, otherwise
// from the defaults, and applies every flag set on the command line
func buildConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if c.IsSet("f") {
		cfg.Input.Path = c.String("f")
	}
	if c.IsSet("H") {
		cfg.Input.HasHeader = c.Bool("H")
	}
	if c.IsSet("d") {
		cfg.Input.Delimiter = c.String("d")
	}
	if c.IsSet("P") {
		cfg.Problem.Primary = c.Int("P")
	}

	var errs []error
	if c.IsSet("G") {
		spec, err := config.ParseGroupSpec(c.String("G"))
		errs = append(errs, err)
		cfg.Problem.GroupSpec = spec
	}
	if c.IsSet("ispart") {
		parts, err := config.ParsePartitions(c.StringSlice("ispart"))
		errs = append(errs, err)
		cfg.Problem.Partitions = parts
	}
	if c.IsSet("C") {
		cs, err := config.ParseConstraints(c.StringSlice("C"))
		errs = append(errs, err)
		cfg.Problem.Constraints = cs
	}
	if err := ccserrors.NewMultiError(errs).ErrorOrNil(); err != nil {
		return nil, err
	}

	if c.IsSet("maxcost") {
		cfg.Search.MaxCost = config.Float64(c.Float64("maxcost"))
	}
	if c.IsSet("mctol") {
		cfg.Search.MaxCostTolerance = c.Float64("mctol")
	}
	if c.IsSet("ctol") {
		cfg.Search.CollectionTolerance = c.Float64("ctol")
	}
	if c.IsSet("itol") {
		cfg.Search.ItemCullTolerance = c.Float64("itol")
	}
	if c.IsSet("ntol") {
		cfg.Search.GroupCullMargin = c.Int("ntol")
	}
	if c.IsSet("resnumb") {
		cfg.Search.ResultBlockSize = c.Int("resnumb")
	}
	if c.IsSet("maxres") {
		cfg.Search.MaxResults = c.Int64("maxres")
	}
	if c.IsSet("smode") {
		cfg.Search.SearchMode = c.Int("smode")
	}
	if c.IsSet("estimate") {
		cfg.Search.EstimateOnly = c.Bool("estimate")
	}

	if c.IsSet("o") {
		cfg.Output.Path = c.String("o")
	}
	if c.IsSet("page-size") {
		cfg.Output.PageSize = c.Int("page-size")
	}
	if c.IsSet("V") {
		cfg.Output.Verbosity = c.Int("V")
	}
	if c.IsSet("log-json") {
		cfg.Output.LogJSON = c.Bool("log-json")
	}
	return cfg, nil
}
