package engine

import (
	"math"

	"github.com/tclemos/map-bench/dataset"
)

// View is the visible viewport: center in degrees and a zoom level
type View struct {
	Lon  float64
	Lat  float64
	Zoom float64
}

// renderer draws the point layer for a view and returns how many points
// ended up on screen. Each library gets a strategy with its own cost model.
type renderer interface {
	load(points []dataset.Point)
	draw(v View, width, height int) int
}

type viewport struct {
	cx, cy float64 // world coordinates of the center
	scale  float64 // pixels per world unit
	halfW  float64
	halfH  float64
}

func newViewport(v View, width, height int) viewport {
	cx, cy := worldXY(v.Lon, v.Lat)
	return viewport{
		cx:    cx,
		cy:    cy,
		scale: tileSize * math.Exp2(v.Zoom),
		halfW: float64(width) / 2,
		halfH: float64(height) / 2,
	}
}

func (vp viewport) screen(wx, wy float64) (float64, float64, bool) {
	px := (wx-vp.cx)*vp.scale + vp.halfW
	py := (wy-vp.cy)*vp.scale + vp.halfH
	visible := px >= 0 && py >= 0 && px < 2*vp.halfW && py < 2*vp.halfH
	return px, py, visible
}

// vectorRenderer reprojects every feature on every frame, like a canvas
// vector layer.
type vectorRenderer struct {
	points []dataset.Point
}

func (r *vectorRenderer) load(points []dataset.Point) {
	r.points = append(r.points[:0], points...)
}

func (r *vectorRenderer) draw(v View, width, height int) int {
	vp := newViewport(v, width, height)
	visible := 0
	for _, p := range r.points {
		wx, wy := worldXY(p.Lon, p.Lat)
		if _, _, ok := vp.screen(wx, wy); ok {
			visible++
		}
	}
	return visible
}

// bufferRenderer projects once at load into a flat buffer and only applies
// the view transform per frame, like a GPU vertex buffer.
type bufferRenderer struct {
	buf []float64
}

func (r *bufferRenderer) load(points []dataset.Point) {
	r.buf = make([]float64, 0, 2*len(points))
	for _, p := range points {
		wx, wy := worldXY(p.Lon, p.Lat)
		r.buf = append(r.buf, wx, wy)
	}
}

func (r *bufferRenderer) draw(v View, width, height int) int {
	vp := newViewport(v, width, height)
	visible := 0
	for i := 0; i+1 < len(r.buf); i += 2 {
		if _, _, ok := vp.screen(r.buf[i], r.buf[i+1]); ok {
			visible++
		}
	}
	return visible
}

type marker struct {
	lat, lon float64
	wx, wy   float64
	px, py   float64
	onScreen bool
}

// markerRenderer keeps one object per point and updates each of them on
// every frame, like a DOM/SVG marker layer.
type markerRenderer struct {
	markers []*marker
}

func (r *markerRenderer) load(points []dataset.Point) {
	r.markers = make([]*marker, len(points))
	for i, p := range points {
		wx, wy := worldXY(p.Lon, p.Lat)
		r.markers[i] = &marker{lat: p.Lat, lon: p.Lon, wx: wx, wy: wy}
	}
}

func (r *markerRenderer) draw(v View, width, height int) int {
	vp := newViewport(v, width, height)
	visible := 0
	for _, m := range r.markers {
		m.px, m.py, m.onScreen = vp.screen(m.wx, m.wy)
		if m.onScreen {
			visible++
		}
	}
	return visible
}
