package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.File(ResultFetched, 100)
	m.File(ResultFetched, 50)
	m.File(ResultFailed, 10)
	m.Node(SourceCache)
	m.Node(SourceRemote)
	m.Node(SourceRemote)
	m.SyncDuration(time.Second)

	if got := testutil.ToFloat64(m.files.WithLabelValues(ResultFetched)); got != 2 {
		t.Errorf("fetched files = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.fetchedBytes); got != 150 {
		t.Errorf("fetched bytes = %v, want 150", got)
	}
	if got := testutil.ToFloat64(m.nodes.WithLabelValues(SourceRemote)); got != 2 {
		t.Errorf("remote nodes = %v, want 2", got)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	if len(families) != 4 {
		t.Errorf("gathered %d metric families, want 4", len(families))
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.File(ResultFetched, 1)
	m.Node(SourceCache)
	m.SyncDuration(time.Millisecond)
}
