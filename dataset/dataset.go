// Package dataset provides the point dataset every map library renders
package dataset

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/tidwall/gjson"
)

// MaxPoints is the largest point count a benchmark accepts
const MaxPoints = 1_000_000

// Point is a WGS84 coordinate
type Point struct {
	Lon float64
	Lat float64
}

// Generate produces count deterministic points spread over the web mercator
// latitude range. A third of them are clustered around a few large cities
// so zoomed-in views still have points to draw.
func Generate(seed int64, count int) []Point {
	rng := rand.New(rand.NewSource(seed))
	cities := []Point{
		{37.6173, 55.7558},
		{-74.006, 40.7128},
		{139.6917, 35.6895},
		{2.3522, 48.8566},
		{151.2093, -33.8688},
	}

	points := make([]Point, count)
	for i := range points {
		if i%3 == 0 {
			c := cities[rng.Intn(len(cities))]
			points[i] = Point{
				Lon: clamp(c.Lon+rng.NormFloat64()*2, -180, 180),
				Lat: clamp(c.Lat+rng.NormFloat64()*2, -85, 85),
			}
			continue
		}
		points[i] = Point{
			Lon: rng.Float64()*360 - 180,
			Lat: rng.Float64()*170 - 85,
		}
	}
	return points
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string         `json:"type"`
	Geometry   geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type geometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// WriteGeoJSON writes points as a GeoJSON FeatureCollection of Point features
func WriteGeoJSON(w io.Writer, points []Point) error {
	fc := featureCollection{
		Type:     "FeatureCollection",
		Features: make([]feature, len(points)),
	}
	for i, p := range points {
		fc.Features[i] = feature{
			Type:       "Feature",
			Geometry:   geometry{Type: "Point", Coordinates: [2]float64{p.Lon, p.Lat}},
			Properties: map[string]any{"id": i},
		}
	}
	return json.NewEncoder(w).Encode(fc)
}

// Parse extracts Point features from GeoJSON. Non-point features are skipped.
func Parse(data []byte) ([]Point, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid GeoJSON document")
	}
	doc := gjson.ParseBytes(data)
	if t := doc.Get("type").String(); t != "FeatureCollection" {
		return nil, fmt.Errorf("expected FeatureCollection, got %q", t)
	}

	features := doc.Get("features")
	points := make([]Point, 0, features.Get("#").Int())
	var parseErr error
	features.ForEach(func(_, f gjson.Result) bool {
		geom := f.Get("geometry")
		if geom.Get("type").String() != "Point" {
			return true
		}
		coords := geom.Get("coordinates").Array()
		if len(coords) < 2 {
			parseErr = fmt.Errorf("point feature %d has %d coordinates", len(points), len(coords))
			return false
		}
		points = append(points, Point{Lon: coords[0].Float(), Lat: coords[1].Float()})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return points, nil
}

// Fetch reads a dataset from an http(s) URL or a local file
func Fetch(ctx context.Context, src string) ([]byte, error) {
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		data, err := os.ReadFile(src)
		if err != nil {
			return nil, fmt.Errorf("reading dataset: %w", err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching dataset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching dataset: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Load fetches and parses src, then keeps count points of it
func Load(ctx context.Context, src string, count int) ([]Point, error) {
	data, err := Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	points, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", src, err)
	}
	return Subsample(points, count), nil
}

// Subsample keeps count points taken at an even stride. The full set is
// returned when count is not smaller than it.
func Subsample(points []Point, count int) []Point {
	if count < 0 {
		count = 0
	}
	if count >= len(points) {
		return points
	}
	step := float64(len(points)) / float64(count)
	out := make([]Point, count)
	for i := range out {
		out[i] = points[int(math.Floor(float64(i)*step))]
	}
	return out
}

// encodedPoint is the canonical form of a point in a digest: the IEEE 754
// bits of each coordinate
type encodedPoint struct {
	Lon uint64
	Lat uint64
}

// Digest returns the hex Keccak-256 of the RLP encoded coordinates, in order
func Digest(points []Point) string {
	enc := make([]encodedPoint, len(points))
	for i, p := range points {
		enc[i] = encodedPoint{Lon: math.Float64bits(p.Lon), Lat: math.Float64bits(p.Lat)}
	}
	data, err := rlp.EncodeToBytes(enc)
	if err != nil {
		return ""
	}
	return hex.EncodeToString(crypto.Keccak256(data))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
