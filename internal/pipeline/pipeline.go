// Package pipeline runs one dmart batch: load the three datasets, clean them,
// join them into full_data, run the query catalogue on the configured engine
// and render the reports. Each stage is timed, logged and recorded through
// the metrics facade; the first failing stage ends the run.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"dmart/internal/analysis"
	"dmart/internal/cleaner"
	"dmart/internal/config"
	"dmart/internal/datasource/httpds"
	"dmart/internal/engine"
	"dmart/internal/etlerr"
	"dmart/internal/join"
	"dmart/internal/loader"
	"dmart/internal/metrics"
	csvparser "dmart/internal/parser/csv"
	"dmart/internal/report"

	"github.com/google/uuid"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("pipeline")

// Function variables used as test seams.
var (
	newEngineFn = engine.New
	newRunIDFn  = func() string { return uuid.NewString() }
)

// Outcome describes a successful run.
type Outcome struct {
	RunID     string
	Result    analysis.Result
	JoinStats []join.Stats
	Duration  time.Duration
}

// runner carries the per-run labels shared by every stage.
type runner struct {
	job   string
	runID string
}

// NewRunID returns a fresh run identifier.
func NewRunID() string { return newRunIDFn() }

// Run executes the pipeline for cfg and writes the reports to w. Nothing is
// written to w unless every earlier stage succeeded. An empty runID gets a
// fresh one.
func Run(ctx context.Context, cfg config.Config, runID string, w io.Writer) (Outcome, error) {
	out, err := Analyze(ctx, cfg, runID)
	if err != nil {
		return out, err
	}
	r := runner{job: cfg.Metrics.Job, runID: out.RunID}
	err = r.stage(ctx, etlerr.StageReport, func() error {
		return report.Render(w, cfg.Output.Format, out.Result, report.Options{})
	})
	return out, err
}

// Analyze runs every stage up to and including the queries and returns the
// reports without rendering them.
func Analyze(ctx context.Context, cfg config.Config, runID string) (Outcome, error) {
	start := time.Now()
	if runID == "" {
		runID = newRunIDFn()
	}
	r := runner{job: cfg.Metrics.Job, runID: runID}
	out := Outcome{RunID: r.runID}
	log.Infof("pipeline: run_id=%s data_path=%s engine=%s workers=%d",
		r.runID, cfg.DataPath, cfg.Engine.Kind, cfg.Runtime.QueryWorkers)

	var raw loader.Datasets
	err := r.stage(ctx, etlerr.StageLoad, func() error {
		p := csvparser.NewParser(csvparser.Options{
			Comma:         cfg.CSV.Comma(),
			TrimSpace:     cfg.CSV.TrimSpace,
			LazyQuotes:    cfg.CSV.LazyQuotes,
			StringColumns: cfg.CSV.StringColumns,
		})
		paths := loader.Resolve(cfg.DataPath, cfg.Files.Product, cfg.Files.Sales, cfg.Files.Customer)
		var err error
		client := httpds.NewClient(httpds.Config{Timeout: cfg.HTTP.Timeout, MaxRetries: cfg.HTTP.MaxRetries})
		raw, err = loader.New(paths, p).WithHTTP(client).Load(ctx)
		return err
	})
	if err != nil {
		return out, err
	}
	r.rows(loader.Product, "loaded", raw.Products.Len())
	r.rows(loader.Sales, "loaded", raw.Sales.Len())
	r.rows(loader.Customer, "loaded", raw.Customers.Len())

	var clean loader.Datasets
	err = r.stage(ctx, etlerr.StageClean, func() error {
		var err error
		clean, err = cleaner.New(cleaner.Options{StrictFill: cfg.Clean.StrictFill}).Clean(raw)
		return err
	})
	if err != nil {
		return out, err
	}

	var joined join.Result
	err = r.stage(ctx, etlerr.StageJoin, func() error {
		var err error
		joined, err = join.Join(clean)
		return err
	})
	if err != nil {
		return out, err
	}
	out.JoinStats = joined.Stats
	for _, st := range joined.Stats {
		r.rows(st.Name, "joined", st.Output)
		r.rows(st.Name, "dropped", st.UnmatchedLeft)
	}

	err = r.stage(ctx, etlerr.StageAnalyze, func() error {
		var err error
		out.Result, err = analyze(ctx, cfg, joined)
		return err
	})
	if err != nil {
		return out, err
	}

	out.Duration = time.Since(start)
	log.Infof("pipeline: run_id=%s reports=%d fingerprint=%016x dur=%s",
		r.runID, len(out.Result.Reports), out.Result.Fingerprint(), out.Duration.Truncate(time.Millisecond))
	return out, nil
}

func analyze(ctx context.Context, cfg config.Config, joined join.Result) (analysis.Result, error) {
	eng, err := newEngineFn(ctx, engine.Options{
		Kind:      cfg.Engine.Kind,
		DSN:       cfg.Engine.DSN,
		Table:     cfg.Engine.Table,
		Workers:   cfg.Runtime.QueryWorkers,
		BatchSize: cfg.Runtime.BatchSize,
		Job:       cfg.Metrics.Job,
	})
	if err != nil {
		return analysis.Result{}, err
	}
	defer func() {
		if cerr := eng.Close(); cerr != nil {
			log.Warningf("pipeline: engine=%s close: %v", eng.Name(), cerr)
		}
	}()

	queries := analysis.Catalogue(analysis.Options{DistinctProducts: cfg.Analysis.DistinctProducts})
	res, err := eng.Run(ctx, joined.Full, queries)
	if err != nil {
		return analysis.Result{}, fmt.Errorf("engine %s: %w", eng.Name(), err)
	}
	return res, nil
}

// stage times fn, records it and tags a failure with the stage name.
// A context cancelled before the stage starts fails it without running fn.
func (r runner) stage(ctx context.Context, name string, fn func() error) error {
	start := time.Now()
	err := ctx.Err()
	if err == nil {
		err = fn()
	}
	d := time.Since(start)
	metrics.RecordStage(r.job, name, err, d)
	if err != nil {
		log.Errorf("pipeline: run_id=%s stage=%s dur=%s err=%v", r.runID, name, d.Truncate(time.Millisecond), err)
		return etlerr.InStage(name, err)
	}
	log.Infof("pipeline: run_id=%s stage=%s dur=%s", r.runID, name, d.Truncate(time.Millisecond))
	return nil
}

func (r runner) rows(entity, kind string, n int) {
	metrics.RecordRows(r.job, entity, kind, int64(n))
}
