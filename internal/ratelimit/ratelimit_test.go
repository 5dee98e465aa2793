package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJitterPacerFirstWaitIsImmediate(t *testing.T) {
	p := NewJitterPacer(time.Hour, time.Hour)

	start := time.Now()
	require.NoError(t, p.Wait(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
}

func TestJitterPacerWaitsBetweenActions(t *testing.T) {
	p := NewJitterPacer(30*time.Millisecond, 30*time.Millisecond)

	require.NoError(t, p.Wait(context.Background()))
	start := time.Now()
	require.NoError(t, p.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
}

func TestJitterPacerHonoursCancellation(t *testing.T) {
	p := NewJitterPacer(time.Hour, time.Hour)
	require.NoError(t, p.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJitterPacerDelayWithinBounds(t *testing.T) {
	p := NewJitterPacer(time.Second, 2*time.Second)

	for i := 0; i < 50; i++ {
		d := p.nextDelay()
		assert.GreaterOrEqual(t, d, time.Second)
		assert.Less(t, d, 2*time.Second)
	}
}

func TestJitterPacerClampsInvertedRange(t *testing.T) {
	p := NewJitterPacer(3*time.Second, time.Second)

	min, max := p.delays()
	assert.Equal(t, 3*time.Second, min)
	assert.Equal(t, 3*time.Second, max)
}

func TestAdaptivePacerBacksOffAfterErrors(t *testing.T) {
	a := NewAdaptivePacer(time.Second, 2*time.Second)

	a.RecordError()
	a.RecordError()
	min, _ := a.delays()
	assert.Equal(t, time.Second, min)

	a.RecordError()
	min, max := a.delays()
	assert.Equal(t, 1500*time.Millisecond, min)
	assert.Equal(t, 3*time.Second, max)
}

func TestAdaptivePacerRecoversTowardsBase(t *testing.T) {
	a := NewAdaptivePacer(time.Second, 2*time.Second)
	for i := 0; i < 3; i++ {
		a.RecordError()
	}

	for i := 0; i < 6; i++ {
		a.RecordSuccess()
	}
	min, max := a.delays()
	assert.Equal(t, 1350*time.Millisecond, min)
	assert.Equal(t, 2700*time.Millisecond, max)

	for i := 0; i < 60; i++ {
		a.RecordSuccess()
	}
	min, max = a.delays()
	assert.Equal(t, time.Second, min)
	assert.Equal(t, 2*time.Second, max)
}

func TestAdaptivePacerCeiling(t *testing.T) {
	a := NewAdaptivePacer(20*time.Second, 25*time.Second)
	for i := 0; i < 9; i++ {
		a.RecordError()
	}

	min, max := a.delays()
	assert.Equal(t, 30*time.Second, min)
	assert.Equal(t, 30*time.Second, max)
}
