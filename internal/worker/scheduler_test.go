package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applog "rateio/internal/log"
)

func TestSchedulerRejectsBadSchedule(t *testing.T) {
	s := NewScheduler(applog.Discard(), 0)
	err := s.Add("broken", "every now and then", func(context.Context) error { return nil })
	assert.Error(t, err)
}

func TestSchedulerRunsJob(t *testing.T) {
	s := NewScheduler(applog.Discard(), time.Second)
	var runs atomic.Int32
	require.NoError(t, s.Add("tick", "@every 1s", func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}))
	s.Start()

	assert.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

func TestSchedulerStopCancelsJobContext(t *testing.T) {
	s := NewScheduler(applog.Discard(), 0)
	started := make(chan struct{})
	cancelled := make(chan struct{})
	require.NoError(t, s.Add("slow", "@every 1s", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	}))
	s.Start()

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job never started")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("job context was not cancelled")
	}
}
