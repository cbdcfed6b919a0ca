// Package pipeline runs one search end to end: parse the item table,
// validate and build the instance, encode it, hand it to the engine and page
// the results out to the configured sink.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/standardbeagle/ccsearch/internal/config"
	"github.com/standardbeagle/ccsearch/internal/debug"
	"github.com/standardbeagle/ccsearch/internal/encoding"
	"github.com/standardbeagle/ccsearch/internal/engine"
	"github.com/standardbeagle/ccsearch/internal/input"
	"github.com/standardbeagle/ccsearch/internal/problem"
	"github.com/standardbeagle/ccsearch/internal/results"
)

// Runner holds what a run needs besides its configuration
type Runner struct {
	Engine engine.Engine
	Logger *zap.Logger
	// Stdout receives results for the "stdout" sink and the estimate line
	Stdout io.Writer
	// BeforeExecute, when set, runs immediately before the blocking search
	BeforeExecute func()
}

// Summary describes a finished run
type Summary struct {
	Items       int
	Fingerprint uint64
	Estimate    float64 // engine log10 state space estimate, estimate-only runs
	Collections int     // collections reported by the engine
	Written     int     // lines written to the sink
}

// Run executes the pipeline for a validated configuration. The engine is
// released on every path once the first call reached it.
func (r *Runner) Run(ctx context.Context, cfg *config.Config) (*Summary, error) {
	logger := debug.OrNop(r.Logger)
	log := debug.Component(logger, "pipeline")
	stdout := r.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	inst, err := r.buildInstance(cfg, log)
	if err != nil {
		return nil, err
	}
	sum := &Summary{Items: inst.NumItems(), Fingerprint: inst.Fingerprint()}

	enc, err := encoding.Encode(ctx, inst)
	if err != nil {
		return nil, fmt.Errorf("encoding instance: %w", err)
	}

	adapter := engine.NewAdapter(r.Engine, logger)
	defer adapter.Release()

	if err := adapter.Load(inst, enc); err != nil {
		return nil, err
	}

	if cfg.Search.EstimateOnly {
		est, err := adapter.Estimate()
		if err != nil {
			return nil, err
		}
		sum.Estimate = est
		if _, err := fmt.Fprintf(stdout, "log10 state space estimate: %g\n", est); err != nil {
			return nil, err
		}
		return sum, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.BeforeExecute != nil {
		r.BeforeExecute()
	}
	if err := adapter.Execute(engine.DebugFlags(cfg.Output.Verbosity)); err != nil {
		return nil, err
	}

	if !cfg.WantsOutput() {
		count, _, err := adapter.PrepareResults()
		if err != nil {
			return nil, err
		}
		sum.Collections = count
		log.Info("search finished, no output requested", zap.Int("collections", count))
		return sum, nil
	}

	sink, err := results.OpenSink(cfg.Output.Path, stdout)
	if err != nil {
		return nil, err
	}
	pager := results.NewPager(countingSource{adapter, &sum.Collections}, cfg.Output.PageSize, logger)
	written, err := pager.Run(sink)
	sum.Written = written
	if closeErr := sink.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return sum, err
	}
	log.Info("results written", zap.Int("collections", written), zap.String("output", cfg.Output.Path))
	return sum, nil
}

func (r *Runner) buildInstance(cfg *config.Config, logger *zap.Logger) (*problem.Instance, error) {
	table, err := input.LoadFile(cfg.Input.Path, input.Options{
		Delimiter: cfg.DelimiterByte(),
		HasHeader: cfg.Input.HasHeader,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("input parsed",
		zap.String("file", cfg.Input.Path),
		zap.Int("items", table.NumItems()),
		zap.Int("features", table.NumFeatures()))

	inst, err := problem.Build(table, cfg.Spec(), cfg.Params())
	if err != nil {
		return nil, err
	}

	warnings(inst, logger)
	logger.Info("instance built",
		zap.String("fingerprint", fmt.Sprintf("%016x", inst.Fingerprint())),
		zap.Int("collection_size", inst.CollectionSize()),
		zap.Float64("log10_state_space", inst.LogStateSpace()),
		zap.Float64("cost_limit", inst.CostLimit()))
	if logger.Core().Enabled(zap.DebugLevel) {
		for _, f := range inst.Features {
			logger.Debug("feature", zap.Stringer("groups", f))
		}
	}
	return inst, nil
}

// warnings logs conditions the engine will reject or that suggest a
// mistake in the flags
func warnings(inst *problem.Instance, logger *zap.Logger) {
	if inst.NumItems() > problem.MaxEngineItems {
		logger.Warn("item count exceeds engine limit, lock-and-load will fail",
			zap.Int("items", inst.NumItems()),
			zap.Int("limit", problem.MaxEngineItems))
	}
	for _, f := range inst.Features {
		if f.GroupCount == 0 {
			logger.Warn("feature has no group memberships", zap.Int("feature", f.Index+1))
		}
		if f.IsPartition && !f.LooksLikePartition() {
			logger.Warn("feature flagged as partition but items do not belong to exactly one group",
				zap.Int("feature", f.Index+1))
		}
	}
	if inst.LogStateSpace() < 0 {
		logger.Warn("a primary group has fewer items than its quota, no collection can exist")
	}
	if len(inst.Constraints) == 0 {
		logger.Info("no auxiliary constraints")
	}
}

// countingSource records the result count the pager sees
type countingSource struct {
	*engine.Adapter
	count *int
}

func (c countingSource) PrepareResults() (int, int, error) {
	n, width, err := c.Adapter.PrepareResults()
	*c.count = n
	return n, width, err
}
