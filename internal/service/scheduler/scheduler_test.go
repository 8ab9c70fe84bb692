package scheduler

import (
	"context"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/help-alert/internal/config"
)

// fakeResetter counts the calls made by the scheduler.
type fakeResetter struct {
	mu      sync.Mutex
	resets  int
	sweeps  []time.Duration
	isStale bool
}

func (f *fakeResetter) Reset(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.resets++
}

func (f *fakeResetter) ResetIfOpenLongerThan(_ context.Context, maxOpen time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sweeps = append(f.sweeps, maxOpen)

	return f.isStale
}

func (f *fakeResetter) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.resets, len(f.sweeps)
}

// TestScheduler_Sweep passes the maximum age through and is disabled at zero.
func TestScheduler_Sweep(t *testing.T) {
	t.Parallel()

	resetter := &fakeResetter{isStale: true}

	require.True(t, New(resetter, config.Alert{MaxOpen: time.Hour}).Sweep(context.Background()))
	require.Equal(t, []time.Duration{time.Hour}, resetter.sweeps)

	require.False(t, New(resetter, config.Alert{}).Sweep(context.Background()))
	require.Len(t, resetter.sweeps, 1)
}

// TestScheduler_InvalidSchedule fails before starting.
func TestScheduler_InvalidSchedule(t *testing.T) {
	t.Parallel()

	s := New(new(fakeResetter), config.Alert{ResetSchedule: "every tuesday"})

	err := s.Run(context.Background())
	require.Error(t, err)
}

// TestScheduler_RunsJobs fires the sweep every minute and the reset on schedule.
func TestScheduler_RunsJobs(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		resetter := new(fakeResetter)
		s := New(resetter, config.Alert{
			ResetSchedule: "@every 5m",
			MaxOpen:       30 * time.Minute,
		})

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)

		go func() {
			done <- s.Run(ctx)
		}()

		time.Sleep(5*time.Minute + time.Second)
		synctest.Wait()

		resets, sweeps := resetter.counts()
		require.Equal(t, 1, resets)
		require.Equal(t, 5, sweeps)

		cancel()
		require.NoError(t, <-done)
	})
}

// TestScheduler_NoJobs blocks until cancelled.
func TestScheduler_NoJobs(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)

		go func() {
			done <- New(new(fakeResetter), config.Alert{}).Run(ctx)
		}()

		synctest.Wait()
		cancel()

		require.NoError(t, <-done)
	})
}
