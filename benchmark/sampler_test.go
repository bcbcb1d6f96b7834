package benchmark

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeasureFPS_SteadyFrames(t *testing.T) {
	frames := &syntheticFrames{step: 16 * time.Millisecond}

	fps, err := MeasureFPS(context.Background(), frames, time.Second)
	require.NoError(t, err)
	assert.InDelta(t, 62.5, fps, 0.001)
}

func TestMeasureFPS_NoFrames(t *testing.T) {
	fps, err := MeasureFPS(context.Background(), noFrames{}, 20*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, NoFPS, fps)
	assert.False(t, math.IsNaN(fps) || math.IsInf(fps, 0))
}

func TestMeasureFPS_SingleFrame(t *testing.T) {
	frames := &syntheticFrames{step: 16 * time.Millisecond, limit: 1}

	fps, err := MeasureFPS(context.Background(), frames, 20*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, NoFPS, fps)
}

func TestMeasureFPS_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := MeasureFPS(ctx, noFrames{}, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMeasureLoad_AveragesRepeats(t *testing.T) {
	calls := 0
	fetch := func(ctx context.Context) error {
		calls++
		time.Sleep(5 * time.Millisecond)
		return nil
	}

	ms, err := MeasureLoad(context.Background(), fetch, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.GreaterOrEqual(t, ms, 5.0)
}

func TestMeasureLoad_ZeroRepeatsRunsOnce(t *testing.T) {
	calls := 0
	_, err := MeasureLoad(context.Background(), func(context.Context) error {
		calls++
		return nil
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestMeasureLoad_PropagatesFailure(t *testing.T) {
	boom := errors.New("fetch failed")
	_, err := MeasureLoad(context.Background(), func(context.Context) error { return boom }, 2)
	assert.ErrorIs(t, err, boom)
}

func TestMeasureMemory(t *testing.T) {
	assert.Nil(t, MeasureMemory(NoMemory{}))
	assert.Nil(t, MeasureMemory(nil))

	mb := MeasureMemory(RuntimeMemory{})
	require.NotNil(t, mb)
	assert.Greater(t, *mb, 0.0)
}
