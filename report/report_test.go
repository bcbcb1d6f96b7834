package report

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tclemos/map-bench/benchmark"
)

func records() []benchmark.ResultRecord {
	mem := 48.126
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return []benchmark.ResultRecord{
		{
			Library:            "OpenLayers",
			Metrics:            &benchmark.MetricSample{DataLoadTimeMs: 12.346, RenderTimeMs: 1500, FPS: 58.26},
			OverallPerformance: 5.5,
			Timestamp:          ts,
			PointCount:         1000,
		},
		{
			Library:   "Leaflet",
			Timestamp: ts,
			Error:     "timed out",
			ErrorKind: "ActionTimedOut",
		},
		{
			Library:            "MapLibreGL",
			Metrics:            &benchmark.MetricSample{DataLoadTimeMs: 8, RenderTimeMs: 900, FPS: 60, MemoryUsedMB: &mem},
			OverallPerformance: 9.25,
			Timestamp:          ts,
			PointCount:         1000,
		},
	}
}

func TestRow_MissingAndFailed(t *testing.T) {
	rs := records()

	assert.Equal(t,
		[]string{"OpenLayers", "12.35", "1500.00", "58.3", NotAvailable, "5.50", "1000", "2024-05-01T10:00:00Z", "ok"},
		Row(rs[0]))
	assert.Equal(t,
		[]string{"Leaflet", "error", "error", "error", "error", "error", "0", "2024-05-01T10:00:00Z", "ActionTimedOut"},
		Row(rs[1]))
	assert.Equal(t, "48.13", Row(rs[2])[4])
}

func TestRank_ByPolicy(t *testing.T) {
	rs := records()

	ranked := Rank(rs, benchmark.Reciprocal{})
	assert.Equal(t, []string{"MapLibreGL", "OpenLayers", "Leaflet"}, names(ranked))

	ranked = Rank(rs, benchmark.LinearPenalty{})
	assert.Equal(t, []string{"OpenLayers", "MapLibreGL", "Leaflet"}, names(ranked))

	// input untouched
	assert.Equal(t, []string{"OpenLayers", "Leaflet", "MapLibreGL"}, names(rs))
}

func TestTable_ShowsEveryRecord(t *testing.T) {
	out := Table(records())
	for _, s := range []string{"OpenLayers", "Leaflet", "MapLibreGL", NotAvailable, FailedMarker, "Overall performance"} {
		assert.Contains(t, out, s)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, records()))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, bom))

	lines, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(out, bom))).ReadAll()
	require.NoError(t, err)
	require.Len(t, lines, 4)
	assert.Equal(t, Header, lines[0])
	assert.Equal(t, "Leaflet", lines[2][0])
	assert.Equal(t, FailedMarker, lines[2][1])
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, nil)
	assert.True(t, errors.Is(err, ErrNoResults))
	assert.Zero(t, buf.Len())
}

func TestExportCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "benchmark_results.csv")
	require.NoError(t, ExportCSV(path, records()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}))

	err = ExportCSV(filepath.Join(t.TempDir(), "empty.csv"), nil)
	assert.True(t, errors.Is(err, ErrNoResults))
}

func names(rs []benchmark.ResultRecord) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Library
	}
	return out
}
