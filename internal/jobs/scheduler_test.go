package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSweeper struct {
	mu         sync.Mutex
	calls      []string
	grace      time.Duration
	expiredErr error
	block      chan struct{}
}

func (f *fakeSweeper) SweepExpired(context.Context) (int, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "expired")
	return 2, f.expiredErr
}

func (f *fakeSweeper) SweepOrphans(_ context.Context, grace time.Duration) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "orphans")
	f.grace = grace
	return 1, nil
}

func (f *fakeSweeper) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func TestRunOnceOrder(t *testing.T) {
	f := &fakeSweeper{}
	s := NewScheduler(f, "@every 1h", 30*time.Minute, nil)

	s.RunOnce(context.Background())
	assert.Equal(t, []string{"expired", "orphans"}, f.snapshot())
	assert.Equal(t, 30*time.Minute, f.grace)
}

func TestRunOnceContinuesAfterExpiryFailure(t *testing.T) {
	f := &fakeSweeper{expiredErr: errors.New("db down")}
	NewScheduler(f, "@every 1h", time.Hour, nil).RunOnce(context.Background())
	assert.Equal(t, []string{"expired", "orphans"}, f.snapshot())
}

func TestRunOnceSkipsOverlap(t *testing.T) {
	f := &fakeSweeper{block: make(chan struct{})}
	s := NewScheduler(f, "@every 1h", time.Hour, nil)

	done := make(chan struct{})
	go func() {
		s.RunOnce(context.Background())
		close(done)
	}()
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.running
	}, time.Second, 5*time.Millisecond)

	s.RunOnce(context.Background()) // returns at once
	close(f.block)
	<-done

	assert.Equal(t, []string{"expired", "orphans"}, f.snapshot())
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := NewScheduler(&fakeSweeper{}, "not a cron line", time.Hour, nil)
	assert.Error(t, s.Start(context.Background()))
}

func TestStartDisabled(t *testing.T) {
	s := NewScheduler(&fakeSweeper{}, "", time.Hour, nil)
	require.NoError(t, s.Start(context.Background()))
	s.Stop()
}

func TestScheduledRun(t *testing.T) {
	f := &fakeSweeper{}
	s := NewScheduler(f, "@every 1s", time.Hour, nil)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool { return len(f.snapshot()) >= 2 }, 3*time.Second, 50*time.Millisecond)
}
