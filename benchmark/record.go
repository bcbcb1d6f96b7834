package benchmark

import (
	"context"
	"time"
)

// MetricSample holds the raw measurements of one library run
type MetricSample struct {
	DataLoadTimeMs float64  `json:"dataLoadTimeMs"`
	RenderTimeMs   float64  `json:"renderTimeMs"`
	FPS            float64  `json:"fps"`
	MemoryUsedMB   *float64 `json:"memoryUsedMb"` // nil when the runtime exposes no counter
}

// ResultRecord is the outcome of one library run. Failed runs carry Error
// and ErrorKind and no metrics.
type ResultRecord struct {
	Library            string        `json:"library"`
	Metrics            *MetricSample `json:"metrics,omitempty"`
	OverallPerformance float64       `json:"overallPerformance"`
	Timestamp          time.Time     `json:"timestamp"`
	PointCount         int           `json:"pointCount"`

	SessionID     string `json:"sessionId,omitempty"`
	BenchmarkID   string `json:"benchmarkId,omitempty"`
	ScorePolicy   string `json:"scorePolicy,omitempty"`
	DatasetDigest string `json:"datasetDigest,omitempty"`
	Error         string `json:"error,omitempty"`
	ErrorKind     string `json:"errorKind,omitempty"`
}

// Failed reports whether the run did not produce metrics
func (r ResultRecord) Failed() bool {
	return r.Error != "" || r.Metrics == nil
}

// Store is an append-only collection of result records. Records are never
// updated or deleted through it.
type Store interface {
	Append(ctx context.Context, records []ResultRecord) error
	List(ctx context.Context) ([]ResultRecord, error)
}
