// Package engine provides simulated map engines with the asynchronous event
// models of the benchmarked libraries, driven by a shared frame scheduler.
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRefreshRate is the frame rate of the scheduler, in Hz
const DefaultRefreshRate = 60

type frameRequest struct {
	id uint64
	fn func(time.Time)
}

// Scheduler runs frame callbacks at most refresh-rate times per second.
// A callback requested during a frame runs on the next one. Slow callbacks
// delay the following frame, the same way a busy main thread does.
type Scheduler struct {
	limiter *rate.Limiter

	mu      sync.Mutex
	pending []frameRequest
	nextID  uint64

	frames  atomic.Uint64
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewScheduler creates a scheduler paced at hz frames per second
func NewScheduler(hz int) *Scheduler {
	if hz <= 0 {
		hz = DefaultRefreshRate
	}
	return &Scheduler{
		limiter: rate.NewLimiter(rate.Limit(hz), 1),
	}
}

// Start runs the frame loop until ctx is done or Stop is called
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.stopped = make(chan struct{})
	s.mu.Unlock()

	go s.loop(ctx)
}

// Stop ends the frame loop and waits for the current frame to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, stopped := s.cancel, s.stopped
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-stopped

	s.mu.Lock()
	s.cancel = nil
	s.mu.Unlock()
}

// RequestFrame implements benchmark.FrameSource
func (s *Scheduler) RequestFrame(fn func(ts time.Time)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.pending = append(s.pending, frameRequest{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, r := range s.pending {
			if r.id == id {
				s.pending = append(s.pending[:i], s.pending[i+1:]...)
				return
			}
		}
	}
}

// Frames returns the number of frames run so far
func (s *Scheduler) Frames() uint64 {
	return s.frames.Load()
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.stopped)
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}

		ts := time.Now()
		s.mu.Lock()
		batch := s.pending
		s.pending = nil
		s.mu.Unlock()

		for _, r := range batch {
			r.fn(ts)
		}
		s.frames.Add(1)
	}
}
