package benchmark

import (
	"context"
	"runtime"
	"time"

	"github.com/cockroachdb/errors"
)

// DefaultFPSWindow is the throughput sampling window
const DefaultFPSWindow = time.Second

// NoFPS is reported when the sampling window saw fewer than two frames
const NoFPS = 0.0

// LoadFunc performs one fetch-and-parse cycle of the benchmark dataset
type LoadFunc func(ctx context.Context) error

// FrameSource schedules callbacks on rendered frames, the way an animation
// frame request does in a browser.
type FrameSource interface {
	// RequestFrame calls fn once, on the next frame, with the frame time
	RequestFrame(fn func(ts time.Time)) (cancel func())
}

// MemoryProbe reads a runtime heap usage counter, if one is exposed
type MemoryProbe interface {
	HeapUsedMB() (mb float64, ok bool)
}

// MeasureLoad runs fetch repeats times and returns the mean elapsed time in
// milliseconds. Nothing is cached between repeats.
func MeasureLoad(ctx context.Context, fetch LoadFunc, repeats int) (float64, error) {
	if fetch == nil {
		return 0, errors.New("no load function")
	}
	if repeats < 1 {
		repeats = 1
	}

	var total time.Duration
	for i := 0; i < repeats; i++ {
		start := time.Now()
		if err := fetch(ctx); err != nil {
			return 0, errors.Wrapf(err, "load cycle %d", i)
		}
		total += time.Since(start)
	}
	return durationMs(total) / float64(repeats), nil
}

// MeasureFPS samples frames for window and returns 1000 / mean inter-frame
// delta in milliseconds, or NoFPS when no delta could be recorded.
func MeasureFPS(ctx context.Context, frames FrameSource, window time.Duration) (float64, error) {
	if window <= 0 {
		window = DefaultFPSWindow
	}

	deadline := time.NewTimer(window)
	defer deadline.Stop()

	var (
		first, last time.Time
		sum         time.Duration
		deltas      int
	)
	result := func() float64 {
		if deltas == 0 || sum <= 0 {
			return NoFPS
		}
		return 1000 / (durationMs(sum) / float64(deltas))
	}

	for {
		tick := make(chan time.Time, 1)
		cancel := frames.RequestFrame(func(ts time.Time) {
			select {
			case tick <- ts:
			default:
			}
		})

		select {
		case ts := <-tick:
			if first.IsZero() {
				first = ts
			} else {
				sum += ts.Sub(last)
				deltas++
			}
			last = ts
			if ts.Sub(first) >= window {
				return result(), nil
			}
		case <-deadline.C:
			cancel()
			return result(), nil
		case <-ctx.Done():
			cancel()
			return NoFPS, ctx.Err()
		}
	}
}

// MeasureMemory returns the heap usage in MB, or nil when unavailable
func MeasureMemory(probe MemoryProbe) *float64 {
	if probe == nil {
		return nil
	}
	mb, ok := probe.HeapUsedMB()
	if !ok {
		return nil
	}
	return &mb
}

// RuntimeMemory reports the Go heap in use
type RuntimeMemory struct{}

func (RuntimeMemory) HeapUsedMB() (float64, bool) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return float64(ms.HeapAlloc) / 1024 / 1024, true
}

// NoMemory is used where no heap counter is exposed
type NoMemory struct{}

func (NoMemory) HeapUsedMB() (float64, bool) {
	return 0, false
}

func durationMs(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}
