package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tclemos/map-bench/benchmark"
	"github.com/tclemos/map-bench/dataset"
)

// Supported libraries
const (
	OpenLayers = "OpenLayers"
	MapLibreGL = "MapLibreGL"
	DeckGL     = "DeckGL"
	Leaflet    = "Leaflet"
)

// DefaultAnimationDuration is the duration of every scripted transition
const DefaultAnimationDuration = 100 * time.Millisecond

var dialects = map[string]dialect{
	// view.animate() calls back when the animation ends, the frame showing
	// it is only guaranteed after the following rendercomplete.
	OpenLayers: {
		library:     OpenLayers,
		renderEvent: EventPostRender,
		idleEvent:   EventRenderComplete,
		zoomEnd:     EventAnimationEnd,
		moveEnd:     EventAnimationEnd,
		newRenderer: func() renderer { return &vectorRenderer{} },
	},
	// zoomend/moveend fire when the camera stops, the next render commits it.
	MapLibreGL: {
		library:     MapLibreGL,
		renderEvent: EventRender,
		idleEvent:   EventIdle,
		zoomEnd:     EventZoomEnd,
		moveEnd:     EventMoveEnd,
		newRenderer: func() renderer { return &bufferRenderer{} },
	},
	DeckGL: {
		library:     DeckGL,
		renderEvent: EventAfterRender,
		zoomEnd:     EventTransitionEnd,
		moveEnd:     EventTransitionEnd,
		newRenderer: func() renderer { return &bufferRenderer{} },
	},
	Leaflet: {
		library:     Leaflet,
		renderEvent: EventRender,
		zoomEnd:     EventZoomEnd,
		moveEnd:     EventMoveEnd,
		newRenderer: func() renderer { return &markerRenderer{} },
	},
}

// QueryKeys maps the selection keys of the benchmark page to library names
var QueryKeys = map[string]string{
	"ol":   OpenLayers,
	"ml":   MapLibreGL,
	"deck": DeckGL,
	"lf":   Leaflet,
}

// Names returns the supported libraries in their default run order
func Names() []string {
	return []string{MapLibreGL, OpenLayers, DeckGL, Leaflet}
}

// Adapter returns the capability record used to drive a map of library
func Adapter(library string, d time.Duration) (benchmark.Adapter[*Map], error) {
	var ad benchmark.Adapter[*Map]
	switch library {
	case OpenLayers:
		done := benchmark.AfterEvents[*Map](EventAnimationEnd, EventRenderComplete)
		ad = benchmark.Adapter[*Map]{
			Zoom: done,
			Pan:  done,
			Apply: func(m *Map, a benchmark.Action) error {
				if a.Kind == benchmark.ActionZoom {
					return m.AnimateZoom(a.Level, d)
				}
				return m.AnimateCenter(FromLonLat(a.Lon, a.Lat), d)
			},
		}
	case MapLibreGL:
		ad = benchmark.Adapter[*Map]{
			Zoom: benchmark.AfterEvents[*Map](EventZoomEnd, EventRender),
			Pan:  benchmark.AfterEvents[*Map](EventMoveEnd, EventRender),
			Apply: func(m *Map, a benchmark.Action) error {
				if a.Kind == benchmark.ActionZoom {
					return m.ZoomTo(a.Level, d)
				}
				return m.EaseTo(a.Lon, a.Lat, d)
			},
		}
	case DeckGL:
		done := benchmark.OnEvent[*Map](EventTransitionEnd)
		ad = benchmark.Adapter[*Map]{
			Zoom: done,
			Pan:  done,
			Apply: func(m *Map, a benchmark.Action) error {
				vs := m.View()
				if a.Kind == benchmark.ActionZoom {
					vs.Zoom = a.Level
				} else {
					vs.Lon, vs.Lat = a.Lon, a.Lat
				}
				return m.SetViewState(vs, d)
			},
		}
	case Leaflet:
		ad = benchmark.Adapter[*Map]{
			Zoom: benchmark.OnEvent[*Map](EventZoomEnd),
			Pan:  benchmark.OnEvent[*Map](EventMoveEnd),
			Apply: func(m *Map, a benchmark.Action) error {
				if a.Kind == benchmark.ActionZoom {
					return m.SetZoom(a.Level, d)
				}
				return m.PanTo(a.Lat, a.Lon, d)
			},
		}
	default:
		return ad, fmt.Errorf("%w: %q", benchmark.ErrUnknownLibrary, library)
	}
	ad.Library = library
	return ad, nil
}

// PointsFunc supplies the dataset a map loads during initialization
type PointsFunc func(ctx context.Context) ([]dataset.Point, error)

// Options configures the simulated libraries
type Options struct {
	Scheduler         *Scheduler
	Points            PointsFunc
	AnimationDuration time.Duration
	Width             int
	Height            int
}

// Libraries returns an initializer for each named library, or for every
// supported library when names is empty.
func Libraries(opts Options, names ...string) ([]benchmark.Library, error) {
	if len(names) == 0 {
		names = Names()
	}
	libs := make([]benchmark.Library, 0, len(names))
	for _, name := range names {
		lib, err := NewLibrary(name, opts)
		if err != nil {
			return nil, err
		}
		libs = append(libs, lib)
	}
	return libs, nil
}

// NewLibrary returns the initializer of one library
func NewLibrary(name string, opts Options) (benchmark.Library, error) {
	d, ok := dialects[name]
	if !ok {
		return benchmark.Library{}, fmt.Errorf("%w: %q", benchmark.ErrUnknownLibrary, name)
	}
	if opts.AnimationDuration <= 0 {
		opts.AnimationDuration = DefaultAnimationDuration
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = 1280, 720
	}
	adapter, err := Adapter(name, opts.AnimationDuration)
	if err != nil {
		return benchmark.Library{}, err
	}

	return benchmark.Library{
		Name: name,
		Init: func(ctx context.Context, target string) (benchmark.Bound, error) {
			m, err := initMap(ctx, d, opts)
			if err != nil {
				return nil, err
			}
			log.Debug().Str("library", name).Str("target", target).Msg("Map ready")
			return benchmark.Bind(m, adapter, (*Map).Remove), nil
		},
	}, nil
}

// initMap resolves once the base layer has been drawn with the dataset
func initMap(ctx context.Context, d dialect, opts Options) (*Map, error) {
	if opts.Scheduler == nil {
		return nil, fmt.Errorf("%s: no frame scheduler", d.library)
	}
	if opts.Points == nil {
		return nil, fmt.Errorf("%s: no dataset", d.library)
	}

	m := newMap(d, opts.Scheduler, opts.Width, opts.Height, View{Zoom: 1})
	loaded := make(chan struct{})
	cancelLoad := m.Once(EventLoad, func() { close(loaded) })
	defer cancelLoad()
	m.start()

	points, err := opts.Points(ctx)
	if err != nil {
		m.Remove()
		return nil, fmt.Errorf("%s: loading dataset: %w", d.library, err)
	}
	m.addData(points)

	select {
	case <-loaded:
		return m, nil
	case <-ctx.Done():
		m.Remove()
		return nil, ctx.Err()
	}
}
