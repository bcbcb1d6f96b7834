package dataset

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Deterministic(t *testing.T) {
	a := Generate(42, 500)
	b := Generate(42, 500)
	c := Generate(7, 500)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	for _, p := range a {
		assert.True(t, p.Lon >= -180 && p.Lon <= 180, "lon out of range: %v", p)
		assert.True(t, p.Lat >= -85 && p.Lat <= 85, "lat out of range: %v", p)
	}
}

func TestWriteThenParse(t *testing.T) {
	points := Generate(1, 100)
	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, points))

	parsed, err := Parse(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, points, parsed)
}

func TestParse_SkipsNonPoints(t *testing.T) {
	doc := `{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"Point","coordinates":[10.5,20.25]}},
		{"type":"Feature","geometry":{"type":"LineString","coordinates":[[0,0],[1,1]]}},
		{"type":"Feature","geometry":{"type":"Point","coordinates":[-3,4]}}
	]}`

	points, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, []Point{{10.5, 20.25}, {-3, 4}}, points)
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"invalid json":      `{"type":`,
		"not a collection":  `{"type":"Feature"}`,
		"short coordinates": `{"type":"FeatureCollection","features":[{"geometry":{"type":"Point","coordinates":[1]}}]}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestSubsample(t *testing.T) {
	points := make([]Point, 10)
	for i := range points {
		points[i] = Point{Lon: float64(i)}
	}

	assert.Equal(t, points, Subsample(points, 10))
	assert.Equal(t, points, Subsample(points, 50))
	assert.Empty(t, Subsample(points, 0))

	got := Subsample(points, 4)
	require.Len(t, got, 4)
	// step 2.5: indexes 0, 2, 5, 7
	assert.Equal(t, []Point{{Lon: 0}, {Lon: 2}, {Lon: 5}, {Lon: 7}}, got)
}

func TestDigest(t *testing.T) {
	a := Generate(3, 50)
	assert.Len(t, Digest(a), 64)
	assert.Equal(t, Digest(a), Digest(Generate(3, 50)))
	assert.NotEqual(t, Digest(a), Digest(a[:49]))
}

func TestLoad_FileAndHTTP(t *testing.T) {
	points := Generate(9, 40)
	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, points))

	path := filepath.Join(t.TempDir(), "points.geojson")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	got, err := Load(context.Background(), path, 20)
	require.NoError(t, err)
	assert.Len(t, got, 20)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	got, err = Load(context.Background(), srv.URL, 100)
	require.NoError(t, err)
	assert.Equal(t, points, got)
}

func TestFetch_HTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := Fetch(context.Background(), srv.URL)
	assert.ErrorContains(t, err, "404")
}
