// Package engine runs the analysis catalogue over the enriched dataset. An
// Engine owns where the aggregation happens: "memory" groups the frame in
// process, while the SQL engines (dmart/internal/engine/sqlengine) load it
// into a scratch table and let the database aggregate.
//
// Every engine funnels its raw groups through analysis.Finalize, so ordering
// and tie-breaks agree regardless of backend.
package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"dmart/internal/analysis"
	"dmart/internal/frame"
)

// Engine executes queries against full_data.
type Engine interface {
	// Name is the registered kind, used in logs and metric labels.
	Name() string
	// Run executes queries and returns their reports in query order. A
	// failing query fails the run; no partial Result is returned.
	Run(ctx context.Context, full *frame.Frame, queries []analysis.Query) (analysis.Result, error)
	Close() error
}

// Options configure an engine.
type Options struct {
	Kind string
	// DSN and Table are used by SQL engines only.
	DSN   string
	Table string
	// Workers bounds how many queries run at once.
	Workers int
	// BatchSize is the number of rows per bulk copy for SQL engines.
	BatchSize int
	// Job labels query metrics.
	Job string
}

// Factory builds an Engine.
type Factory func(ctx context.Context, opt Options) (Engine, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) the Factory for kind.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New builds the engine registered for opt.Kind.
func New(ctx context.Context, opt Options) (Engine, error) {
	mu.RLock()
	f, ok := factories[opt.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported engine.kind=%s", opt.Kind)
	}
	if opt.Workers < 1 {
		opt.Workers = 1
	}
	return f(ctx, opt)
}

// ListKinds returns a sorted snapshot of the registered engine kinds.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
