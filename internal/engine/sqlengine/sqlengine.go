// Package sqlengine runs the analysis catalogue inside a SQL database. The
// enriched frame is copied into a uniquely named scratch table, each query
// becomes one GROUP BY statement, and the table is dropped when the run ends
// whether or not it succeeded.
//
// Ordering and Top selection are not pushed into SQL: raw groups are handed
// to analysis.Finalize so results match the memory engine exactly.
package sqlengine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dmart/internal/analysis"
	"dmart/internal/ddl"
	"dmart/internal/engine"
	"dmart/internal/frame"
	"dmart/internal/storage"

	"github.com/google/uuid"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("engine")

// Kinds are the storage backends this engine serves.
var Kinds = []string{"sqlite", "postgres", "mssql"}

// dropTimeout bounds scratch-table cleanup after the run context is gone.
const dropTimeout = 30 * time.Second

// newRepositoryFn is a test seam.
var newRepositoryFn = storage.New

func init() {
	for _, kind := range Kinds {
		engine.Register(kind, New)
	}
}

// Engine aggregates through a storage.Repository.
type Engine struct {
	repo storage.Repository
	opt  engine.Options
}

// New opens the repository for opt.Kind.
func New(ctx context.Context, opt engine.Options) (engine.Engine, error) {
	repo, err := newRepositoryFn(ctx, storage.Config{Kind: opt.Kind, DSN: opt.DSN})
	if err != nil {
		return nil, fmt.Errorf("%s engine: %w", opt.Kind, err)
	}
	if opt.Table == "" {
		opt.Table = "dmart_full_data"
	}
	return &Engine{repo: repo, opt: opt}, nil
}

// Name implements engine.Engine.
func (e *Engine) Name() string { return e.opt.Kind }

// Close releases the repository.
func (e *Engine) Close() error {
	e.repo.Close()
	return nil
}

// ScratchName returns prefix plus a random suffix so concurrent runs against
// one database never share a table.
func ScratchName(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "_" + id[:12]
}

// Run implements engine.Engine.
func (e *Engine) Run(ctx context.Context, full *frame.Frame, queries []analysis.Query) (analysis.Result, error) {
	if err := analysis.Validate(full, queries); err != nil {
		return analysis.Result{}, err
	}

	table := ScratchName(e.opt.Table)
	if err := storage.CreateTable(ctx, e.repo, table, full.Columns()); err != nil {
		return analysis.Result{}, err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dropTimeout)
		defer cancel()
		if err := storage.DropTable(dctx, e.repo, table); err != nil {
			log.Warningf("analyze: engine=%s scratch table %s not dropped: %v", e.Name(), table, err)
		}
	}()

	start := time.Now()
	n, err := storage.LoadFrame(ctx, e.repo, table, full, e.opt.BatchSize)
	if err != nil {
		return analysis.Result{}, fmt.Errorf("load %s: %w", table, err)
	}
	log.Infof("analyze: engine=%s table=%s rows=%d load=%s", e.Name(), table, n, time.Since(start).Truncate(time.Millisecond))

	return engine.RunQueries(ctx, e.Name(), e.opt.Job, e.opt.Workers, queries,
		func(ctx context.Context, q analysis.Query) (analysis.Report, error) {
			return e.query(ctx, full, table, q)
		})
}

func (e *Engine) query(ctx context.Context, full *frame.Frame, table string, q analysis.Query) (analysis.Report, error) {
	valCol, _ := full.Column(q.Column)
	sqlText := BuildQuery(e.repo.Dialect(), table, q, valCol.Kind)
	rows, err := e.repo.Query(ctx, sqlText)
	if err != nil {
		return analysis.Report{}, fmt.Errorf("query %d (%s): %w", q.Number, q.Name, err)
	}

	valKind := q.ValueKind(valCol.Kind)
	groups := make([]analysis.Group, 0, len(rows))
	if q.Select == analysis.Scalar {
		for _, r := range rows {
			groups = append(groups, analysis.Group{Value: frame.Coerce(r[0], valKind)})
		}
		return analysis.Finalize(q, groups), nil
	}

	keyCol, _ := full.Column(q.GroupBy)
	for _, r := range rows {
		groups = append(groups, analysis.Group{
			Key:   frame.Coerce(r[0], keyCol.Kind),
			Value: frame.Coerce(r[1], valKind),
		})
	}
	return analysis.Finalize(q, groups), nil
}

// BuildQuery renders q against table. Column kinds decide the casts:
// integer sums stay integers, float sums and averages are computed in the
// dialect's floating-point type.
func BuildQuery(d ddl.Dialect, table string, q analysis.Query, valKind frame.Kind) string {
	col := d.Quote(q.Column)
	if !valKind.Numeric() && (q.Func == analysis.Sum || q.Func == analysis.Avg) {
		// Only reachable for an all-null column; most databases refuse to
		// sum text.
		col = fmt.Sprintf("CAST(%s AS %s)", col, d.MapType(frame.Float))
	}
	var agg string
	switch q.Func {
	case analysis.Sum:
		agg = fmt.Sprintf("CAST(SUM(%s) AS %s)", col, d.MapType(q.ValueKind(valKind)))
	case analysis.Avg:
		agg = fmt.Sprintf("AVG(CAST(%s AS %s))", col, d.MapType(frame.Float))
	case analysis.CountDistinct:
		agg = fmt.Sprintf("COUNT(DISTINCT %s)", col)
	default:
		agg = fmt.Sprintf("COUNT(%s)", col)
	}

	from := ddl.QuoteFQN(table, d)
	if q.Select == analysis.Scalar {
		return fmt.Sprintf("SELECT %s FROM %s", agg, from)
	}
	key := d.Quote(q.GroupBy)
	return fmt.Sprintf("SELECT %s, %s FROM %s GROUP BY %s", key, agg, from, key)
}
