package datadog

import (
	"reflect"
	"testing"

	"dmart/internal/metrics"
)

func TestNewBackend_RequiresAddr(t *testing.T) {
	t.Parallel()

	if _, err := NewBackend(Config{}); err == nil {
		t.Fatalf("NewBackend() error = nil, want non-nil for empty Addr")
	}
}

func TestNewBackend_RunIDTag(t *testing.T) {
	t.Parallel()

	b, err := NewBackend(Config{Addr: "127.0.0.1:8125", Namespace: "dmart.", GlobalTags: []string{"env:test"}, RunID: "abc"})
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	defer b.Flush()

	if want := []string{"env:test", "run_id:abc"}; !reflect.DeepEqual(b.client.Tags, want) {
		t.Fatalf("tags = %v, want %v", b.client.Tags, want)
	}
	if b.client.Namespace != "dmart." {
		t.Fatalf("namespace = %q", b.client.Namespace)
	}

	// Emitting over UDP needs no listening agent.
	b.IncCounter(metrics.RowsTotal, 3, metrics.Labels{"entity": "sales", "kind": "loaded"})
	b.ObserveHistogram(metrics.StageDuration, 0.5, metrics.Labels{"stage": "load"})
}

func TestLabelsToTags(t *testing.T) {
	t.Parallel()

	if got := labelsToTags(nil); got != nil {
		t.Fatalf("labelsToTags(nil) = %v, want nil", got)
	}
	got := labelsToTags(metrics.Labels{"stage": "join", "job": "dmart", "status": "success"})
	want := []string{"job:dmart", "stage:join", "status:success"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("labelsToTags = %v, want %v", got, want)
	}
}

func TestNilClientIsNoop(t *testing.T) {
	t.Parallel()

	b := &Backend{}
	b.IncCounter("x", 1, nil)
	b.ObserveHistogram("x", 1, nil)
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() = %v", err)
	}
}
