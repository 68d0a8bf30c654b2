package engine

import (
	"context"
	"time"

	"dmart/internal/analysis"
	"dmart/internal/metrics"

	"github.com/op/go-logging"
	"golang.org/x/sync/errgroup"
)

var log = logging.MustGetLogger("engine")

// QueryFn evaluates one query.
type QueryFn func(ctx context.Context, q analysis.Query) (analysis.Report, error)

// RunQueries evaluates queries on at most workers goroutines and returns the
// reports in query order. The first error cancels the remaining queries.
func RunQueries(ctx context.Context, engine, job string, workers int, queries []analysis.Query, fn QueryFn) (analysis.Result, error) {
	if workers < 1 {
		workers = 1
	}
	reports := make([]analysis.Report, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, q := range queries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			rep, err := fn(gctx, q)
			if err != nil {
				log.Errorf("analyze: engine=%s query=%d name=%s err=%v", engine, q.Number, q.Name, err)
				return err
			}
			d := time.Since(start)
			metrics.RecordQuery(job, engine, q.Name, d)
			log.Debugf("analyze: engine=%s query=%d name=%s rows=%d dur=%s",
				engine, q.Number, q.Name, len(rep.Rows), d.Truncate(time.Microsecond))
			reports[i] = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return analysis.Result{}, err
	}
	return analysis.Result{Reports: reports}, nil
}
