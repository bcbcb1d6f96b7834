package engine

import "math"

const (
	earthRadius = 6378137.0
	tileSize    = 256.0
	maxLat      = 85.05112878
	minZoom     = 0.0
	maxZoom     = 22.0
)

// FromLonLat projects a WGS84 coordinate to EPSG:3857 meters
func FromLonLat(lon, lat float64) [2]float64 {
	lat = math.Max(-maxLat, math.Min(maxLat, lat))
	x := earthRadius * lon * math.Pi / 180
	y := earthRadius * math.Log(math.Tan(math.Pi/4+lat*math.Pi/360))
	return [2]float64{x, y}
}

// ToLonLat is the inverse of FromLonLat
func ToLonLat(xy [2]float64) (lon, lat float64) {
	lon = xy[0] / earthRadius * 180 / math.Pi
	lat = (2*math.Atan(math.Exp(xy[1]/earthRadius)) - math.Pi/2) * 180 / math.Pi
	return lon, lat
}

// worldXY maps a coordinate to the unit square, origin top-left
func worldXY(lon, lat float64) (float64, float64) {
	lat = math.Max(-maxLat, math.Min(maxLat, lat))
	x := (lon + 180) / 360
	s := math.Sin(lat * math.Pi / 180)
	y := 0.5 - math.Log((1+s)/(1-s))/(4*math.Pi)
	return x, y
}

func clampZoom(z float64) float64 {
	return math.Max(minZoom, math.Min(maxZoom, z))
}
