package vecbucket

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/vecbucket/model"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordBuild is called after each train, add or build phase.
	RecordBuild(vectors int, duration time.Duration, err error)

	// RecordSearch is called after each index search.
	// computations may be model.Unmeasured.
	RecordSearch(queries, k int, duration time.Duration, computations model.Computations, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordBuild(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordSearch(int, int, time.Duration, model.Computations, error) {
}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	BuildCount         atomic.Int64
	BuildErrors        atomic.Int64
	BuildVectors       atomic.Int64
	BuildTotalNanos    atomic.Int64
	SearchCount        atomic.Int64
	SearchErrors       atomic.Int64
	SearchQueries      atomic.Int64
	SearchTotalNanos   atomic.Int64
	SearchComputations atomic.Int64

	// UnmeasuredSearches counts searches whose bucket could not report
	// distance computations.
	UnmeasuredSearches atomic.Int64
}

// RecordBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBuild(vectors int, duration time.Duration, err error) {
	b.BuildCount.Add(1)
	if err != nil {
		b.BuildErrors.Add(1)
		return
	}
	b.BuildVectors.Add(int64(vectors))
	b.BuildTotalNanos.Add(duration.Nanoseconds())
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(queries, _ int, duration time.Duration, computations model.Computations, err error) {
	b.SearchCount.Add(1)
	if err != nil {
		b.SearchErrors.Add(1)
		return
	}
	b.SearchQueries.Add(int64(queries))
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if computations.Measured() {
		b.SearchComputations.Add(int64(computations))
	} else {
		b.UnmeasuredSearches.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		BuildCount:         b.BuildCount.Load(),
		BuildErrors:        b.BuildErrors.Load(),
		BuildVectors:       b.BuildVectors.Load(),
		SearchCount:        b.SearchCount.Load(),
		SearchErrors:       b.SearchErrors.Load(),
		SearchQueries:      b.SearchQueries.Load(),
		SearchAvgNanos:     avg(b.SearchTotalNanos.Load(), b.SearchCount.Load()-b.SearchErrors.Load()),
		SearchComputations: b.SearchComputations.Load(),
		UnmeasuredSearches: b.UnmeasuredSearches.Load(),
	}
}

func avg(total, count int64) int64 {
	if count <= 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	BuildCount         int64
	BuildErrors        int64
	BuildVectors       int64
	SearchCount        int64
	SearchErrors       int64
	SearchQueries      int64
	SearchAvgNanos     int64
	SearchComputations int64
	UnmeasuredSearches int64
}
