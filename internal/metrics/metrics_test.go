package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeBackend is a simple in-memory Backend implementation for tests.
type fakeBackend struct {
	mu sync.Mutex

	callsCounters   []counterCall
	callsHistograms []histCall
	flushCount      int
}

type counterCall struct {
	name   string
	delta  float64
	labels Labels
}

type histCall struct {
	name   string
	value  float64
	labels Labels
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callsCounters = append(f.callsCounters, counterCall{name, delta, labels})
}

func (f *fakeBackend) ObserveHistogram(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callsHistograms = append(f.callsHistograms, histCall{name, value, labels})
}

func (f *fakeBackend) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushCount++
	return nil
}

func TestRecordStage_SuccessAndFailure(t *testing.T) {
	defer Reset()

	fb := &fakeBackend{}
	SetBackend(fb)

	RecordStage("dmart", "load", nil, 2*time.Second)
	RecordStage("dmart", "join", errors.New("boom"), 1500*time.Millisecond)

	if len(fb.callsCounters) != 2 {
		t.Fatalf("expected 2 counter calls, got %d", len(fb.callsCounters))
	}
	if len(fb.callsHistograms) != 2 {
		t.Fatalf("expected 2 histogram calls, got %d", len(fb.callsHistograms))
	}

	cc0 := fb.callsCounters[0]
	if cc0.name != StageTotal || cc0.delta != 1 {
		t.Fatalf("counter[0] = %#v; want name=%s, delta=1", cc0, StageTotal)
	}
	if cc0.labels["job"] != "dmart" || cc0.labels["stage"] != "load" || cc0.labels["status"] != "success" {
		t.Fatalf("counter[0].labels=%v", cc0.labels)
	}

	h0 := fb.callsHistograms[0]
	if h0.name != StageDuration {
		t.Fatalf("hist[0].name=%q; want %s", h0.name, StageDuration)
	}
	if h0.value < 2.0-0.001 || h0.value > 2.0+0.001 {
		t.Fatalf("hist[0].value=%v; want ~2.0", h0.value)
	}

	cc1 := fb.callsCounters[1]
	if cc1.labels["stage"] != "join" || cc1.labels["status"] != "failure" {
		t.Fatalf("counter[1] labels = %v; want join/failure", cc1.labels)
	}
	if h1 := fb.callsHistograms[1]; h1.value < 1.5-0.001 || h1.value > 1.5+0.001 {
		t.Fatalf("hist[1].value=%v; want ~1.5", h1.value)
	}
}

func TestRecordRowsAndQuery(t *testing.T) {
	defer Reset()

	fb := &fakeBackend{}
	SetBackend(fb)

	RecordRows("dmart", "sales", "loaded", 3)
	RecordRows("dmart", "sales", "dropped", 0) // ignored
	RecordRows("dmart", "full_data", "joined", 5)
	RecordQuery("dmart", "sqlite", "average_discount", 250*time.Millisecond)

	if len(fb.callsCounters) != 2 {
		t.Fatalf("expected 2 counter calls, got %d", len(fb.callsCounters))
	}
	c0 := fb.callsCounters[0]
	if c0.name != RowsTotal || c0.delta != 3 || c0.labels["entity"] != "sales" || c0.labels["kind"] != "loaded" {
		t.Fatalf("counter[0] = %#v", c0)
	}
	c1 := fb.callsCounters[1]
	if c1.delta != 5 || c1.labels["entity"] != "full_data" || c1.labels["kind"] != "joined" {
		t.Fatalf("counter[1] = %#v", c1)
	}

	if len(fb.callsHistograms) != 1 {
		t.Fatalf("expected 1 histogram call, got %d", len(fb.callsHistograms))
	}
	h := fb.callsHistograms[0]
	if h.name != QueryDuration || h.labels["engine"] != "sqlite" || h.labels["query"] != "average_discount" {
		t.Fatalf("hist = %#v", h)
	}
}

func TestSetBackendAndFlush(t *testing.T) {
	defer Reset()

	fb := &fakeBackend{}
	SetBackend(fb)

	if current() != fb {
		t.Fatal("SetBackend did not replace global backend")
	}
	if err := Flush(); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if fb.flushCount != 1 {
		t.Fatalf("expected flushCount=1, got %d", fb.flushCount)
	}

	// SetBackend(nil) should not nil out the backend.
	SetBackend(nil)
	if current() != fb {
		t.Fatal("SetBackend(nil) should not change backend")
	}

	Reset()
	if err := Flush(); err != nil {
		t.Fatalf("nop Flush returned error: %v", err)
	}
}
