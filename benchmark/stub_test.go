package benchmark

import (
	"context"
	"sync"
	"time"
)

// stubMap is an event-emitting map that reports completion of each applied
// action after a fixed delay.
type stubMap struct {
	mu          sync.Mutex
	listeners   map[string]map[int]func()
	nextID      int
	applies     []Action
	inFlight    int
	maxInFlight int

	delay   time.Duration
	stages  []string // events emitted, in order, once the delay elapsed
	stallAt int      // index of the action that never completes, -1 for none
}

func newStubMap(delay time.Duration, stages ...string) *stubMap {
	if len(stages) == 0 {
		stages = []string{"done"}
	}
	return &stubMap{
		listeners: make(map[string]map[int]func()),
		delay:     delay,
		stages:    stages,
		stallAt:   -1,
	}
}

func (m *stubMap) Once(event string, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	if m.listeners[event] == nil {
		m.listeners[event] = make(map[int]func())
	}
	m.listeners[event][id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners[event], id)
	}
}

func (m *stubMap) emit(event string) {
	m.mu.Lock()
	fns := make([]func(), 0, len(m.listeners[event]))
	for _, fn := range m.listeners[event] {
		fns = append(fns, fn)
	}
	delete(m.listeners, event)
	m.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (m *stubMap) listenerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.listeners {
		n += len(l)
	}
	return n
}

func (m *stubMap) appliedActions() []Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Action(nil), m.applies...)
}

func applyStub(m *stubMap, a Action) error {
	m.mu.Lock()
	index := len(m.applies)
	m.applies = append(m.applies, a)
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	m.mu.Unlock()

	if index == m.stallAt {
		return nil
	}
	time.AfterFunc(m.delay, func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
		for _, stage := range m.stages {
			m.emit(stage)
		}
	})
	return nil
}

func stubAdapter(stages ...string) Adapter[*stubMap] {
	var c Completion[*stubMap]
	if len(stages) == 2 {
		c = AfterEvents[*stubMap](stages[0], stages[1])
	} else {
		c = OnEvent[*stubMap]("done")
	}
	return Adapter[*stubMap]{
		Library: "Stub",
		Zoom:    c,
		Pan:     c,
		Apply:   applyStub,
	}
}

// stubLibrary returns a Library whose handle completes actions after delay.
// events receives "init <name>" and "release <name>" entries.
func stubLibrary(name string, m *stubMap, events *eventLog) Library {
	return Library{
		Name: name,
		Init: func(ctx context.Context, target string) (Bound, error) {
			events.add("init " + name)
			ad := stubAdapter()
			ad.Library = name
			return Bind(m, ad, func(*stubMap) { events.add("release " + name) }), nil
		},
	}
}

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// syntheticFrames calls back immediately with timestamps spaced by step
type syntheticFrames struct {
	mu    sync.Mutex
	now   time.Time
	step  time.Duration
	limit int // frames delivered before going silent, 0 for unlimited
	count int
}

func (f *syntheticFrames) RequestFrame(fn func(time.Time)) func() {
	f.mu.Lock()
	if f.limit > 0 && f.count >= f.limit {
		f.mu.Unlock()
		return func() {}
	}
	f.count++
	if f.now.IsZero() {
		f.now = time.Unix(0, 0)
	} else {
		f.now = f.now.Add(f.step)
	}
	ts := f.now
	f.mu.Unlock()

	fn(ts)
	return func() {}
}

type noFrames struct{}

func (noFrames) RequestFrame(func(time.Time)) func() { return func() {} }
