package engine

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/tclemos/map-bench/dataset"
)

// Events published by simulated maps. Which ones a map emits depends on the
// library dialect it simulates.
const (
	EventLoad           = "load"
	EventRender         = "render"
	EventPostRender     = "postrender"
	EventAfterRender    = "afterrender"
	EventRenderComplete = "rendercomplete"
	EventIdle           = "idle"
	EventAnimationEnd   = "animationend"
	EventZoomEnd        = "zoomend"
	EventMoveEnd        = "moveend"
	EventTransitionEnd  = "transitionend"
)

// ErrRemoved is returned when a removed map is driven
var ErrRemoved = errors.New("map has been removed")

// dialect describes the event model of one library
type dialect struct {
	library     string
	renderEvent string // emitted after every drawn frame
	idleEvent   string // emitted after a drawn frame with no animation pending, may be empty
	zoomEnd     string // emitted when a zoom animation has been drawn at its final state
	moveEnd     string // same, for center changes
	newRenderer func() renderer
}

type animation struct {
	from, to View
	start    time.Time
	duration time.Duration
	endEvent string
}

// Map is a simulated map engine. It redraws its point layer on scheduler
// frames whenever the view changed and publishes the events of its dialect.
type Map struct {
	dialect  dialect
	sched    *Scheduler
	width    int
	height   int
	renderMu sync.Mutex
	renderer renderer

	mu          sync.Mutex
	view        View
	anim        *animation
	dirty       bool
	hasData     bool
	loaded      bool
	removed     bool
	frameCancel func()
	listeners   map[string]map[uint64]func()
	nextID      uint64
	drawn       uint64
	visible     int
}

func newMap(d dialect, sched *Scheduler, width, height int, initial View) *Map {
	return &Map{
		dialect:   d,
		sched:     sched,
		width:     width,
		height:    height,
		renderer:  d.newRenderer(),
		view:      initial,
		dirty:     true,
		listeners: make(map[string]map[uint64]func()),
	}
}

// Library returns the name of the simulated library
func (m *Map) Library() string {
	return m.dialect.library
}

// Once implements benchmark.Emitter
func (m *Map) Once(event string, fn func()) (cancel func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	if m.listeners[event] == nil {
		m.listeners[event] = make(map[uint64]func())
	}
	m.listeners[event][id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners[event], id)
	}
}

// View returns the current viewport
func (m *Map) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view
}

// Stats returns the number of drawn frames and the points visible on the last one
func (m *Map) Stats() (drawn uint64, visible int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drawn, m.visible
}

// Remove stops rendering and drops every listener. Safe to call repeatedly.
func (m *Map) Remove() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return
	}
	m.removed = true
	if m.frameCancel != nil {
		m.frameCancel()
		m.frameCancel = nil
	}
	m.listeners = make(map[string]map[uint64]func())
	m.anim = nil
}

func (m *Map) start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frameCancel = m.sched.RequestFrame(m.frame)
}

// addData hands the points to the renderer. The map emits EventLoad after the
// first frame drawn with them.
func (m *Map) addData(points []dataset.Point) {
	m.renderMu.Lock()
	m.renderer.load(points)
	m.renderMu.Unlock()

	m.mu.Lock()
	m.hasData = true
	m.dirty = true
	m.mu.Unlock()
}

func (m *Map) animate(to View, d time.Duration, endEvent string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return ErrRemoved
	}
	to.Zoom = clampZoom(to.Zoom)
	to.Lat = math.Max(-maxLat, math.Min(maxLat, to.Lat))
	m.anim = &animation{
		from:     m.view,
		to:       to,
		duration: d,
		endEvent: endEvent,
	}
	return nil
}

func (m *Map) frame(ts time.Time) {
	m.mu.Lock()
	if m.removed {
		m.mu.Unlock()
		return
	}

	var finished *animation
	if a := m.anim; a != nil {
		if a.start.IsZero() {
			a.start = ts
		}
		p := 1.0
		if a.duration > 0 {
			p = math.Min(1, float64(ts.Sub(a.start))/float64(a.duration))
		}
		m.view = interpolate(a.from, a.to, easeInOut(p))
		m.dirty = true
		if p >= 1 {
			finished = a
			m.anim = nil
		}
	}

	draw := m.dirty
	m.dirty = false
	view := m.view
	firstLoad := draw && m.hasData && !m.loaded
	m.mu.Unlock()

	var events []string
	if draw {
		m.renderMu.Lock()
		visible := m.renderer.draw(view, m.width, m.height)
		m.renderMu.Unlock()

		m.mu.Lock()
		m.drawn++
		m.visible = visible
		if firstLoad {
			m.loaded = true
		}
		m.mu.Unlock()

		events = append(events, m.dialect.renderEvent)
		if firstLoad {
			events = append(events, EventLoad)
		}
	}

	switch {
	case finished != nil:
		events = append(events, finished.endEvent)
		// libraries repaint once more after a transition settles
		m.mu.Lock()
		m.dirty = true
		m.mu.Unlock()
	case draw && m.idle() && m.dialect.idleEvent != "":
		events = append(events, m.dialect.idleEvent)
	}

	for _, e := range events {
		m.emit(e)
	}

	m.mu.Lock()
	if !m.removed {
		m.frameCancel = m.sched.RequestFrame(m.frame)
	}
	m.mu.Unlock()
}

func (m *Map) idle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.anim == nil
}

// emit calls and drops the listeners registered for event
func (m *Map) emit(event string) {
	if event == "" {
		return
	}
	m.mu.Lock()
	registered := m.listeners[event]
	delete(m.listeners, event)
	m.mu.Unlock()

	for _, fn := range registered {
		fn()
	}
}

func interpolate(from, to View, t float64) View {
	return View{
		Lon:  from.Lon + (to.Lon-from.Lon)*t,
		Lat:  from.Lat + (to.Lat-from.Lat)*t,
		Zoom: from.Zoom + (to.Zoom-from.Zoom)*t,
	}
}

func easeInOut(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	return 1 - math.Pow(-2*t+2, 2)/2
}
