package benchmark

import (
	"context"
	"fmt"
	"sync"
)

// Completion registers a one-shot completion listener on a map. The returned
// channel is closed at most once, when the library reports the change as
// committed. cancel deregisters the listener and may be called repeatedly.
type Completion[M any] func(m M) (done <-chan struct{}, cancel func())

// Adapter is the capability record for one map library: how an action is
// applied to its map and how completion is detected per action kind.
type Adapter[M any] struct {
	Library string
	Zoom    Completion[M]
	Pan     Completion[M]
	Apply   func(m M, a Action) error
}

func (ad Adapter[M]) completion(kind ActionKind) (Completion[M], error) {
	var c Completion[M]
	switch kind {
	case ActionZoom:
		c = ad.Zoom
	case ActionPan:
		c = ad.Pan
	}
	if c == nil {
		return nil, fmt.Errorf("%s: no completion strategy for %q actions", ad.Library, kind)
	}
	return c, nil
}

// Emitter is implemented by maps that publish named events
type Emitter interface {
	// Once registers fn for the next emission of event only
	Once(event string, fn func()) (cancel func())
}

// OnEvent completes on the first emission of event
func OnEvent[M Emitter](event string) Completion[M] {
	return func(m M) (<-chan struct{}, func()) {
		done := make(chan struct{})
		var once sync.Once
		cancel := m.Once(event, func() {
			once.Do(func() { close(done) })
		})
		return done, cancel
	}
}

// AfterEvents completes on the first emission of then that follows an
// emission of first. Libraries which report a transition end before the
// frame showing it has been drawn need this two-stage wait.
func AfterEvents[M Emitter](first, then string) Completion[M] {
	return func(m M) (<-chan struct{}, func()) {
		done := make(chan struct{})
		var (
			once       sync.Once
			mu         sync.Mutex
			stopped    bool
			cancelThen func()
		)
		cancelFirst := m.Once(first, func() {
			mu.Lock()
			if stopped {
				mu.Unlock()
				return
			}
			mu.Unlock()

			c := m.Once(then, func() {
				once.Do(func() { close(done) })
			})

			mu.Lock()
			defer mu.Unlock()
			if stopped {
				c()
				return
			}
			cancelThen = c
		})
		cancel := func() {
			mu.Lock()
			stopped = true
			c := cancelThen
			cancelThen = nil
			mu.Unlock()

			cancelFirst()
			if c != nil {
				c()
			}
		}
		return done, cancel
	}
}

// Bound is a ready map handle as seen by the Session. It hides the concrete
// map type so the session never inspects it.
type Bound interface {
	Library() string
	Interact(ctx context.Context, script Script, opts SequenceOptions) error
	// Release runs the library cleanup. Safe to call more than once.
	Release()
}

// Handle pairs a library-owned map with the adapter that drives it
type Handle[M any] struct {
	Kind string
	Map  M

	adapter Adapter[M]
	cleanup func(M)
	release sync.Once
}

// Bind wraps a ready map into a Handle. cleanup may be nil.
func Bind[M any](m M, adapter Adapter[M], cleanup func(M)) *Handle[M] {
	return &Handle[M]{
		Kind:    adapter.Library,
		Map:     m,
		adapter: adapter,
		cleanup: cleanup,
	}
}

func (h *Handle[M]) Library() string {
	return h.Kind
}

// Interact runs the action script against the bound map
func (h *Handle[M]) Interact(ctx context.Context, script Script, opts SequenceOptions) error {
	return Sequence(ctx, h.Map, h.adapter, script, opts)
}

func (h *Handle[M]) Release() {
	h.release.Do(func() {
		if h.cleanup != nil {
			h.cleanup(h.Map)
		}
	})
}
