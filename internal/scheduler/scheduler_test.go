package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalJobRunsRepeatedly(t *testing.T) {
	sc, err := New()
	require.NoError(t, err)

	var runs atomic.Int32
	require.NoError(t, sc.Add(Job{
		Name:  "tick",
		Every: 20 * time.Millisecond,
		Run:   func(context.Context) { runs.Add(1) },
	}))
	sc.Start()

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, sc.Stop())
}

func TestStopCancelsJobContext(t *testing.T) {
	sc, err := New()
	require.NoError(t, err)

	started := make(chan struct{})
	var once atomic.Bool
	require.NoError(t, sc.Add(Job{
		Name:  "slow",
		Every: 10 * time.Millisecond,
		Run: func(ctx context.Context) {
			if once.CompareAndSwap(false, true) {
				close(started)
			}
			<-ctx.Done()
		},
	}))
	sc.Start()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("job never started")
	}
	require.NoError(t, sc.Stop())
}

func TestAddRejectsBadJobs(t *testing.T) {
	sc, err := New()
	require.NoError(t, err)
	defer sc.Stop()

	noop := func(context.Context) {}
	assert.Error(t, sc.Add(Job{Name: "none", Run: noop}))
	assert.Error(t, sc.Add(Job{Name: "both", Every: time.Second, Cron: "0 * * * *", Run: noop}))
	assert.Error(t, sc.Add(Job{Name: "norun", Every: time.Second}))
	assert.Error(t, sc.Add(Job{Name: "badcron", Cron: "not a cron", Run: noop}))
	assert.NoError(t, sc.Add(Job{Name: "hourly", Cron: "0 * * * *", Run: noop}))
}
