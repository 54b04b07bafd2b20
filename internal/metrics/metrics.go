// Package metrics instruments the sync and apply stages with Prometheus.
//
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "assetsync"

// File results.
const (
	ResultFetched = "fetched"
	ResultSkipped = "skipped"
	ResultFailed  = "failed"
)

// Node sources.
const (
	SourceCache   = "cache"
	SourceRemote  = "remote"
	SourceSkipped = "skipped"
)

type Metrics struct {
	files        *prometheus.CounterVec
	fetchedBytes prometheus.Counter
	syncDuration prometheus.Histogram
	nodes        *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		files: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_total",
			Help:      "Stale files processed by the synchronizer, by result",
		}, []string{"result"}),
		fetchedBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetched_bytes_total",
			Help:      "Verified bytes written to the blob store",
		}),
		syncDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Time to synchronize the stale set",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}),
		nodes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_total",
			Help:      "Nodes processed by the applier, by source",
		}, []string{"source"}),
	}
}

func (m *Metrics) File(result string, bytes int) {
	if m == nil {
		return
	}
	m.files.WithLabelValues(result).Inc()
	if result == ResultFetched {
		m.fetchedBytes.Add(float64(bytes))
	}
}

func (m *Metrics) SyncDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.syncDuration.Observe(d.Seconds())
}

func (m *Metrics) Node(source string) {
	if m == nil {
		return
	}
	m.nodes.WithLabelValues(source).Inc()
}
