package store

import (
	"context"
	"sync"

	"github.com/tclemos/map-bench/benchmark"
)

// Memory keeps records in process. Used by the results server when no
// database path is configured, and by tests.
type Memory struct {
	mu      sync.Mutex
	records []benchmark.ResultRecord
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Append(ctx context.Context, records []benchmark.ResultRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, records...)
	return nil
}

func (m *Memory) List(ctx context.Context) ([]benchmark.ResultRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]benchmark.ResultRecord(nil), m.records...), nil
}

func (m *Memory) Close() error {
	return nil
}
