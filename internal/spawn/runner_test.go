package spawn

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerStepAndStop(t *testing.T) {
	w := newFakeWorld()
	engine, _ := newTestEngine(w)

	var steps atomic.Int32
	runner := NewRunner(engine, func() { steps.Add(1) })

	done := make(chan error, 1)
	go func() {
		done <- runner.Start(context.Background(), time.Millisecond)
	}()

	require.Eventually(t, func() bool {
		return steps.Load() >= 3
	}, time.Second, time.Millisecond, "step callback drives the tick loop")

	runner.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}
}

func TestRunnerContextCancel(t *testing.T) {
	w := newFakeWorld()
	engine, _ := newTestEngine(w)
	runner := NewRunner(engine, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runner.Start(ctx, time.Millisecond)
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("runner did not stop on context cancel")
	}
}
