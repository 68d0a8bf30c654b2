package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"dmart/internal/analysis"
	"dmart/internal/config"
	"dmart/internal/engine"
	"dmart/internal/etlerr"
	"dmart/internal/frame"
	"dmart/internal/metrics"
	"dmart/internal/metrics/datadog"

	_ "dmart/internal/engine/sqlengine"
	_ "dmart/internal/storage/all"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	productCSV = "Product ID,Sub-Category,Product Name\n" +
		"P1,Chairs,Chair A\n" +
		"P2,,Desk B\n"
	salesCSV = "Order ID,Order Line,Order Date,Ship Date,Ship Mode,Customer ID,Product ID,Sales,Quantity,Discount,Profit,Region,State,City\n" +
		"O1,1,2017-11-08,2017-11-11,Second Class,C1,P1,100,2,0.1,20,West,California,Los Angeles\n" +
		"O2,2,2017-11-09,2017-11-12,Standard Class,C1,P9,50,1,0.2,5,East,New York,New York City\n"
	customerCSV = "Customer ID,Customer Name,Segment,Age,Postal Code\n" +
		"C1,Ann Example,Consumer,30,90036\n"
)

// writeInputs writes the three fixture files and returns a config pointing
// at them.
func writeInputs(t *testing.T, kind string) config.Config {
	t.Helper()
	dir := t.TempDir()
	for name, body := range map[string]string{
		"Product.csv":  productCSV,
		"Sales.csv":    salesCSV,
		"Customer.csv": customerCSV,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	cfg, err := config.Load(config.New(), "")
	require.NoError(t, err)
	cfg.DataPath = dir
	cfg.Engine.Kind = kind
	return *cfg
}

func value(t *testing.T, res analysis.Result, name string, key any) any {
	t.Helper()
	rep, ok := res.Get(name)
	require.True(t, ok, "missing report %s", name)
	for _, row := range rep.Rows {
		if len(row) == 1 {
			return row[0]
		}
		if frame.Compare(row[0], key) == 0 {
			return row[1]
		}
	}
	t.Fatalf("%s: no row for key %v in %v", name, key, rep.Rows)
	return nil
}

func asFloat(t *testing.T, v any) float64 {
	t.Helper()
	f, ok := frame.ToFloat(v)
	require.True(t, ok, "not numeric: %#v", v)
	return f
}

func TestAnalyze_EndToEnd(t *testing.T) {
	for _, kind := range []string{"memory", "sqlite"} {
		t.Run(kind, func(t *testing.T) {
			cfg := writeInputs(t, kind)

			out, err := Analyze(context.Background(), cfg, "")
			require.NoError(t, err)
			require.NotEmpty(t, out.RunID)
			res := out.Result
			require.Len(t, res.Reports, 10)

			assert.InDelta(t, 100, asFloat(t, value(t, res, "total_sales_by_category", "Chairs")), 1e-9)
			assert.InDelta(t, 0.1, asFloat(t, value(t, res, "average_discount", nil)), 1e-9)
			assert.InDelta(t, 30.0, asFloat(t, value(t, res, "average_age_by_segment", "Consumer")), 1e-9)

			// O2 references an unknown product and must not reach any report.
			regions, _ := res.Get("products_by_region")
			assert.Equal(t, [][]any{{"West", int64(1)}}, regions.Rows)
			cities, _ := res.Get("quantity_by_city")
			require.Len(t, cities.Rows, 1)
			assert.Equal(t, "Los Angeles", cities.Rows[0][0])

			// Q6 top equals the max of Q1.
			top, _ := res.Get("top_category_by_sales")
			require.Len(t, top.Rows, 1)
			assert.Equal(t, "Chairs", top.Rows[0][0])

			require.Len(t, out.JoinStats, 2)
			assert.Equal(t, 1, out.JoinStats[0].UnmatchedLeft)
			assert.Equal(t, 1, out.JoinStats[1].Output)
		})
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	cfg := writeInputs(t, "memory")

	a, err := Analyze(context.Background(), cfg, "run-a")
	require.NoError(t, err)
	b, err := Analyze(context.Background(), cfg, "run-b")
	require.NoError(t, err)

	assert.Equal(t, a.Result.Fingerprint(), b.Result.Fingerprint())
	assert.Equal(t, "run-a", a.RunID)
}

func TestRun_WritesReportsInOrder(t *testing.T) {
	cfg := writeInputs(t, "memory")

	var buf bytes.Buffer
	_, err := Run(context.Background(), cfg, "", &buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Customer with highest purchases: customer_id=C1, purchase_count=1")
	prev := -1
	for _, q := range analysis.Catalogue(analysis.Options{}) {
		i := bytes.Index(buf.Bytes(), []byte(q.Title))
		require.GreaterOrEqual(t, i, 0, "missing title %q", q.Title)
		assert.Greater(t, i, prev, "title %q out of order", q.Title)
		prev = i
	}
}

func TestRun_MissingFileFailsLoad(t *testing.T) {
	cfg := writeInputs(t, "memory")
	require.NoError(t, os.Remove(filepath.Join(cfg.DataPath, "Customer.csv")))

	var buf bytes.Buffer
	_, err := Run(context.Background(), cfg, "", &buf)
	require.Error(t, err)

	var dae *etlerr.DataAccessError
	require.ErrorAs(t, err, &dae)
	assert.Equal(t, "customer", dae.Entity)
	assert.Equal(t, etlerr.StageLoad, etlerr.StageOf(err))
	assert.Zero(t, buf.Len(), "no reports for a failed run")
}

type failingEngine struct{}

func (failingEngine) Name() string { return "failing" }
func (failingEngine) Run(context.Context, *frame.Frame, []analysis.Query) (analysis.Result, error) {
	return analysis.Result{}, errors.New("boom")
}
func (failingEngine) Close() error { return nil }

func TestRun_EngineFailureFailsAnalyze(t *testing.T) {
	orig := newEngineFn
	t.Cleanup(func() { newEngineFn = orig })
	var got engine.Options
	newEngineFn = func(_ context.Context, opt engine.Options) (engine.Engine, error) {
		got = opt
		return failingEngine{}, nil
	}

	cfg := writeInputs(t, "memory")
	cfg.Runtime.QueryWorkers = 3
	var buf bytes.Buffer
	_, err := Run(context.Background(), cfg, "", &buf)
	require.Error(t, err)
	assert.Equal(t, etlerr.StageAnalyze, etlerr.StageOf(err))
	assert.Contains(t, err.Error(), "engine failing: boom")
	assert.Zero(t, buf.Len())
	assert.Equal(t, 3, got.Workers)
	assert.Equal(t, cfg.Runtime.BatchSize, got.BatchSize)
	assert.Equal(t, "dmart", got.Job)
}

func TestAnalyze_CancelledContext(t *testing.T) {
	cfg := writeInputs(t, "memory")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Analyze(ctx, cfg, "")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, etlerr.StageLoad, etlerr.StageOf(err))
}

func TestAnalyze_UnknownEngine(t *testing.T) {
	cfg := writeInputs(t, "spark")

	_, err := Analyze(context.Background(), cfg, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported engine.kind=spark")
	assert.Equal(t, etlerr.StageAnalyze, etlerr.StageOf(err))
}

// recordingBackend captures metric calls.
type recordingBackend struct {
	mu       sync.Mutex
	counters map[string]float64
	flushed  int
}

func newRecordingBackend() *recordingBackend {
	return &recordingBackend{counters: map[string]float64{}}
}

func (r *recordingBackend) IncCounter(name string, delta float64, labels metrics.Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := name + "|" + labels["stage"] + labels["entity"] + "|" + labels["status"] + labels["kind"]
	r.counters[key] += delta
}

func (r *recordingBackend) ObserveHistogram(string, float64, metrics.Labels) {}

func (r *recordingBackend) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushed++
	return nil
}

func TestAnalyze_RecordsStagesAndRows(t *testing.T) {
	rec := newRecordingBackend()
	metrics.SetBackend(rec)
	t.Cleanup(metrics.Reset)

	cfg := writeInputs(t, "memory")
	_, err := Analyze(context.Background(), cfg, "")
	require.NoError(t, err)

	for _, st := range []string{etlerr.StageLoad, etlerr.StageClean, etlerr.StageJoin, etlerr.StageAnalyze} {
		assert.Equal(t, 1.0, rec.counters[metrics.StageTotal+"|"+st+"|success"], "stage %s", st)
	}
	assert.Equal(t, 2.0, rec.counters[metrics.RowsTotal+"|sales|loaded"])
	assert.Equal(t, 1.0, rec.counters[metrics.RowsTotal+"|sales_with_product|dropped"])
	assert.Equal(t, 1.0, rec.counters[metrics.RowsTotal+"|full_data|joined"])
}

func TestInitMetrics(t *testing.T) {
	origPush, origDD := newPushBackendFn, newDatadogBackendFn
	t.Cleanup(func() {
		newPushBackendFn, newDatadogBackendFn = origPush, origDD
		metrics.Reset()
	})

	rec := newRecordingBackend()
	var gotURL, gotRunID string
	newPushBackendFn = func(job, url, runID string) (metrics.Backend, error) {
		gotURL, gotRunID = url, runID
		return rec, nil
	}

	flush := InitMetrics(config.Metrics{Backend: "pushgateway", PushgatewayURL: "http://pgw:9091", Job: "dmart"}, "r1")
	metrics.RecordStage("dmart", "load", nil, 0)
	flush()
	assert.Equal(t, "http://pgw:9091", gotURL)
	assert.Equal(t, "r1", gotRunID)
	assert.Equal(t, 1, rec.flushed)
	assert.Equal(t, 1.0, rec.counters[metrics.StageTotal+"|load|success"])

	metrics.Reset()
	newDatadogBackendFn = func(datadog.Config) (metrics.Backend, error) {
		return nil, errors.New("no agent")
	}
	flush = InitMetrics(config.Metrics{Backend: "datadog", DatadogAddr: "x", Job: "dmart"}, "r2")
	flush()
	assert.Equal(t, 1, rec.flushed, "failed backend falls back to nop")

	flush = InitMetrics(config.Metrics{Backend: "none"}, "r3")
	flush()
}
