package benchmark

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Defaults for the session options
const (
	DefaultRunTimeout  = 2 * time.Minute
	DefaultSettleDelay = 500 * time.Millisecond
	DefaultTarget      = "map"
)

// Library is the initializer of one map library. Init returns only once the
// map has drawn its base layer and added the benchmark dataset.
type Library struct {
	Name string
	Init func(ctx context.Context, target string) (Bound, error)
}

// Options controls timing of a session
type Options struct {
	Target        string        // render target passed to library initializers
	ActionTimeout time.Duration // per-action completion deadline
	RunTimeout    time.Duration // ceiling for one library run, init included
	FPSWindow     time.Duration // throughput sampling window
	SettleDelay   time.Duration // pause between init and measurement
	LoadRepeats   int           // data load cycles averaged per run
}

// DefaultOptions returns the options used when none are given
func DefaultOptions() Options {
	return Options{
		Target:        DefaultTarget,
		ActionTimeout: DefaultActionTimeout,
		RunTimeout:    DefaultRunTimeout,
		FPSWindow:     DefaultFPSWindow,
		SettleDelay:   DefaultSettleDelay,
		LoadRepeats:   1,
	}
}

// Session runs the benchmark for a set of libraries, strictly one at a time.
// It owns the reference to the active map handle for the duration of a run.
type Session struct {
	ID            string
	BenchmarkID   string
	Script        Script
	Weights       Weights
	Policy        Policy
	Frames        FrameSource
	Memory        MemoryProbe
	Load          LoadFunc
	PointCount    int
	DatasetDigest string
	Options       Options

	libraries map[string]Library

	mu     sync.Mutex
	active Bound
}

// NewSession creates a session with the default script, weights and policy
func NewSession(libs ...Library) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		Script:    DefaultScript,
		Weights:   DefaultWeights,
		Policy:    Reciprocal{},
		Memory:    RuntimeMemory{},
		Options:   DefaultOptions(),
		libraries: make(map[string]Library, len(libs)),
	}
	for _, lib := range libs {
		s.Register(lib)
	}
	return s
}

// Register adds or replaces a library initializer
func (s *Session) Register(lib Library) {
	s.libraries[lib.Name] = lib
}

// Libraries returns the registered library names, sorted
func (s *Session) Libraries() []string {
	names := make([]string, 0, len(s.libraries))
	for name := range s.libraries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Active returns the handle of the run in progress, if any
func (s *Session) Active() Bound {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// RunAll benchmarks each named library in order. A failing library yields a
// failed record and the session moves on to the next one.
func (s *Session) RunAll(ctx context.Context, names []string) []ResultRecord {
	records := make([]ResultRecord, 0, len(names))
	for _, name := range names {
		log.Info().Str("library", name).Str("session", s.ID).Msg("Starting library run")

		record, err := s.runLibrary(ctx, name)
		if err != nil {
			record = s.failedRecord(name, err)
			log.Error().
				Err(err).
				Str("library", name).
				Str("kind", record.ErrorKind).
				Msg("Library run failed")
		} else {
			log.Info().
				Str("library", name).
				Float64("data_load_ms", record.Metrics.DataLoadTimeMs).
				Float64("render_ms", record.Metrics.RenderTimeMs).
				Float64("fps", record.Metrics.FPS).
				Float64("overall_performance", record.OverallPerformance).
				Msg("Library run complete")
		}
		records = append(records, record)
	}
	return records
}

func (s *Session) runLibrary(ctx context.Context, name string) (ResultRecord, error) {
	lib, ok := s.libraries[name]
	if !ok || lib.Init == nil {
		return ResultRecord{}, errors.Wrapf(ErrUnknownLibrary, "%q", name)
	}

	runCtx := ctx
	if s.Options.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.Options.RunTimeout)
		defer cancel()
	}

	// a library the caller never got to is cancelled, not broken
	if err := ctx.Err(); err != nil {
		return ResultRecord{}, errors.Wrapf(err, "%s not started", name)
	}

	b, err := lib.Init(runCtx, s.target())
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return ResultRecord{}, errors.Wrapf(cerr, "initializing %s", name)
		}
		return ResultRecord{}, InitializationError(name, err)
	}
	if err := s.acquire(b); err != nil {
		b.Release()
		return ResultRecord{}, err
	}
	defer s.release(b)

	if err := sleepContext(runCtx, s.Options.SettleDelay); err != nil {
		return ResultRecord{}, runError(ctx, err)
	}

	record, err := s.RunOne(runCtx, b)
	if err != nil {
		return ResultRecord{}, runError(ctx, err)
	}
	return record, nil
}

// RunOne measures a single ready map handle. The caller releases the handle
// and persists the record.
func (s *Session) RunOne(ctx context.Context, b Bound) (ResultRecord, error) {
	record := s.newRecord(b.Library())

	loadMs, err := MeasureLoad(ctx, s.Load, s.Options.LoadRepeats)
	if err != nil {
		return record, errors.Wrap(err, "measuring data load")
	}

	start := time.Now()
	err = b.Interact(ctx, s.Script, SequenceOptions{ActionTimeout: s.Options.ActionTimeout})
	if err != nil {
		return record, errors.Wrap(err, "interaction phase")
	}
	renderMs := durationMs(time.Since(start))

	fps := NoFPS
	if s.Frames != nil {
		fps, err = MeasureFPS(ctx, s.Frames, s.Options.FPSWindow)
		if err != nil {
			return record, errors.Wrap(err, "measuring fps")
		}
	} else {
		log.Warn().Str("library", b.Library()).Msg("No frame source, fps not sampled")
	}

	metrics := MetricSample{
		DataLoadTimeMs: loadMs,
		RenderTimeMs:   renderMs,
		FPS:            fps,
		MemoryUsedMB:   MeasureMemory(s.Memory),
	}
	record.Metrics = &metrics
	record.OverallPerformance = Score(metrics, s.Weights, s.policy())
	return record, nil
}

func (s *Session) acquire(b Bound) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return errors.Wrapf(ErrSessionBusy, "%s is still active", s.active.Library())
	}
	s.active = b
	return nil
}

func (s *Session) release(b Bound) {
	b.Release()
	s.mu.Lock()
	if s.active == b {
		s.active = nil
	}
	s.mu.Unlock()
}

func (s *Session) newRecord(library string) ResultRecord {
	return ResultRecord{
		Library:       library,
		Timestamp:     time.Now().UTC(),
		PointCount:    s.PointCount,
		SessionID:     s.ID,
		BenchmarkID:   s.BenchmarkID,
		ScorePolicy:   s.policy().Name(),
		DatasetDigest: s.DatasetDigest,
	}
}

func (s *Session) failedRecord(library string, err error) ResultRecord {
	record := s.newRecord(library)
	record.Error = err.Error()
	record.ErrorKind = Kind(err)
	return record
}

func (s *Session) policy() Policy {
	if s.Policy == nil {
		return Reciprocal{}
	}
	return s.Policy
}

func (s *Session) target() string {
	if s.Options.Target == "" {
		return DefaultTarget
	}
	return s.Options.Target
}

// runError tags errors caused by the per-run ceiling rather than by the
// caller's context.
func runError(parent context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
		return errors.Mark(err, ErrRunTimedOut)
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
