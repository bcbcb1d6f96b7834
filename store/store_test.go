package store

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tclemos/map-bench/benchmark"
	"github.com/tclemos/map-bench/server"
)

func sampleRecords() []benchmark.ResultRecord {
	mem := 12.5
	ts := time.Date(2024, 5, 1, 10, 30, 0, 123456789, time.UTC)
	return []benchmark.ResultRecord{
		{
			Library: "MapLibreGL",
			Metrics: &benchmark.MetricSample{
				DataLoadTimeMs: 42.5,
				RenderTimeMs:   1520.25,
				FPS:            59.8,
				MemoryUsedMB:   &mem,
			},
			OverallPerformance: 12.04,
			Timestamp:          ts,
			PointCount:         10000,
			SessionID:          "9a1c",
			BenchmarkID:        "nightly",
			ScorePolicy:        "reciprocal",
			DatasetDigest:      "0xabc",
		},
		{
			Library:     "Leaflet",
			Timestamp:   ts.Add(time.Second),
			PointCount:  10000,
			SessionID:   "9a1c",
			ScorePolicy: "reciprocal",
			Error:       "action 3 timed out",
			ErrorKind:   "ActionTimedOut",
		},
		{
			Library: "DeckGL",
			Metrics: &benchmark.MetricSample{
				DataLoadTimeMs: 10,
				RenderTimeMs:   900,
				FPS:            0,
			},
			OverallPerformance: 3.1,
			Timestamp:          ts.Add(2 * time.Second),
			PointCount:         10000,
		},
	}
}

func TestPebble_AppendListRoundTrip(t *testing.T) {
	ctx := context.Background()
	p, err := OpenPebble(t.TempDir(), 1<<20)
	require.NoError(t, err)
	defer p.Close()

	records := sampleRecords()
	require.NoError(t, p.Append(ctx, records[:1]))
	require.NoError(t, p.Append(ctx, records[1:]))

	got, err := p.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestPebble_ReopenKeepsOrder(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	records := sampleRecords()

	p, err := OpenPebble(dir, -1)
	require.NoError(t, err)
	require.NoError(t, p.Append(ctx, records[:2]))
	require.NoError(t, p.Close())

	p, err = OpenPebble(dir, -1)
	require.NoError(t, err)
	defer p.Close()
	require.NoError(t, p.Append(ctx, records[2:]))

	got, err := p.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"MapLibreGL", "Leaflet", "DeckGL"}, libraries(got))
}

func TestPebble_EmptyAndClosed(t *testing.T) {
	ctx := context.Background()
	p, err := OpenPebble(t.TempDir(), -1)
	require.NoError(t, err)

	got, err := p.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	err = p.Append(ctx, sampleRecords())
	assert.True(t, errors.Is(err, benchmark.ErrPersistenceUnavailable))
}

func TestMemory_ListIsACopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Append(ctx, sampleRecords()))

	got, err := m.List(ctx)
	require.NoError(t, err)
	got[0].Library = "changed"

	again, err := m.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "MapLibreGL", again[0].Library)
}

func TestRemote_AgainstResultsServer(t *testing.T) {
	ctx := context.Background()
	ts := httptest.NewServer(server.New("", NewMemory()).Handler())
	defer ts.Close()

	r := NewRemote(ts.URL+"/", time.Second)
	defer r.Close()

	records := sampleRecords()
	require.NoError(t, r.Append(ctx, records[:2]))
	require.NoError(t, r.Append(ctx, records[2:]))

	got, err := r.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestRemote_Unavailable(t *testing.T) {
	ctx := context.Background()
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	r := NewRemote(url, 200*time.Millisecond)
	err := r.Append(ctx, sampleRecords())
	require.Error(t, err)
	assert.True(t, errors.Is(err, benchmark.ErrPersistenceUnavailable))
	assert.Equal(t, "PersistenceUnavailable", benchmark.Kind(err))

	_, err = r.List(ctx)
	assert.True(t, errors.Is(err, benchmark.ErrPersistenceUnavailable))
}

func TestRemote_RejectedBatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":false,"error":"disk full"}`))
	}))
	defer ts.Close()

	err := NewRemote(ts.URL, time.Second).Append(context.Background(), sampleRecords())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.True(t, errors.Is(err, benchmark.ErrPersistenceUnavailable))
}

func TestNew_Backends(t *testing.T) {
	b, err := New(Config{Type: TypeMemory})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, b)

	b, err = New(Config{Path: t.TempDir(), BlockCacheSize: -1})
	require.NoError(t, err)
	assert.IsType(t, &Pebble{}, b)
	require.NoError(t, b.Close())

	_, err = New(Config{Type: "mongo"})
	assert.True(t, errors.Is(err, ErrBackendNotFound))
}

func libraries(records []benchmark.ResultRecord) []string {
	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.Library
	}
	return names
}
