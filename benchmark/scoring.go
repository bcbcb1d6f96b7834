package benchmark

import (
	"fmt"
	"strings"
)

// MinMeasurable is the smallest time or memory value the reciprocal policy
// divides by. Zero readings are clamped to it so the score stays finite.
const MinMeasurable = 0.001

// Weights holds the per-metric weights. They are non-negative and need not
// sum to one.
type Weights struct {
	DataLoadTime float64 `yaml:"dataLoadTime" json:"dataLoadTime"`
	RenderTime   float64 `yaml:"renderTime" json:"renderTime"`
	FPS          float64 `yaml:"fps" json:"fps"`
	MemoryUsed   float64 `yaml:"memoryUsed" json:"memoryUsed"`
}

// DefaultWeights favours the two timing metrics
var DefaultWeights = Weights{
	DataLoadTime: 0.3,
	RenderTime:   0.3,
	FPS:          0.2,
	MemoryUsed:   0.2,
}

// Validate rejects negative weights
func (w Weights) Validate() error {
	if w.DataLoadTime < 0 || w.RenderTime < 0 || w.FPS < 0 || w.MemoryUsed < 0 {
		return fmt.Errorf("%w: weights must be non-negative: %+v", ErrInvalidConfig, w)
	}
	return nil
}

// Policy reduces a metric sample to a single score
type Policy interface {
	Name() string
	Score(m MetricSample, w Weights) float64
	// Better reports whether score a ranks ahead of score b
	Better(a, b float64) bool
}

// PolicyType names a scoring policy
type PolicyType string

const (
	PolicyReciprocal    PolicyType = "reciprocal"
	PolicyLinearPenalty PolicyType = "linear-penalty"
)

// NewPolicy returns the policy for the given name. The empty name selects
// the reciprocal policy.
func NewPolicy(name PolicyType) (Policy, error) {
	switch PolicyType(strings.ToLower(string(name))) {
	case PolicyReciprocal, "":
		return Reciprocal{}, nil
	case PolicyLinearPenalty:
		return LinearPenalty{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown score policy %q", ErrInvalidConfig, name)
	}
}

// Reciprocal scores w/value for load time, render time and memory and w*fps
// for throughput. Higher is better.
type Reciprocal struct{}

func (Reciprocal) Name() string { return string(PolicyReciprocal) }

func (Reciprocal) Score(m MetricSample, w Weights) float64 {
	score := w.DataLoadTime*reciprocal(m.DataLoadTimeMs) +
		w.RenderTime*reciprocal(m.RenderTimeMs) +
		w.FPS*m.FPS
	if m.MemoryUsedMB != nil {
		score += w.MemoryUsed * reciprocal(*m.MemoryUsedMB)
	}
	return score
}

func (Reciprocal) Better(a, b float64) bool { return a > b }

// LinearPenalty adds weighted times and memory and subtracts weighted fps.
// Lower is better.
type LinearPenalty struct{}

func (LinearPenalty) Name() string { return string(PolicyLinearPenalty) }

func (LinearPenalty) Score(m MetricSample, w Weights) float64 {
	score := w.DataLoadTime*m.DataLoadTimeMs +
		w.RenderTime*m.RenderTimeMs -
		w.FPS*m.FPS
	if m.MemoryUsedMB != nil {
		score += w.MemoryUsed * *m.MemoryUsedMB
	}
	return score
}

func (LinearPenalty) Better(a, b float64) bool { return a < b }

// Score applies policy, defaulting to Reciprocal when policy is nil
func Score(m MetricSample, w Weights, policy Policy) float64 {
	if policy == nil {
		policy = Reciprocal{}
	}
	return policy.Score(m, w)
}

func reciprocal(v float64) float64 {
	if !(v >= MinMeasurable) {
		v = MinMeasurable
	}
	return 1 / v
}
