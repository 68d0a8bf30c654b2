package engine

import (
	"context"

	"dmart/internal/analysis"
	"dmart/internal/frame"
)

// Memory is the default engine: every query hash-groups the frame in
// process. The frame is read-only, so queries run concurrently.
type Memory struct {
	opt Options
}

func init() {
	Register("memory", func(_ context.Context, opt Options) (Engine, error) {
		return &Memory{opt: opt}, nil
	})
}

func (m *Memory) Name() string { return "memory" }

// Run implements Engine.
func (m *Memory) Run(ctx context.Context, full *frame.Frame, queries []analysis.Query) (analysis.Result, error) {
	if err := analysis.Validate(full, queries); err != nil {
		return analysis.Result{}, err
	}
	return RunQueries(ctx, m.Name(), m.opt.Job, m.opt.Workers, queries,
		func(_ context.Context, q analysis.Query) (analysis.Report, error) {
			return analysis.Evaluate(full, q)
		})
}

func (m *Memory) Close() error { return nil }
