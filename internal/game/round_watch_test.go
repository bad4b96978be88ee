package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuroforge/backend/internal/models"
)

func TestRoundWatchReportsEachOverdueRoundOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := NewRoundWatch(f.duels)
	m, p1, p2 := f.startDuel(t, models.CategoryTranslation)

	f.clock.Advance(30 * time.Second)
	assert.Equal(t, 0, w.Run(ctx))

	f.clock.Advance(31 * time.Second)
	assert.Equal(t, 1, w.Run(ctx))
	assert.Equal(t, 0, w.Run(ctx))
	assert.Equal(t, 1, f.events.playerEvents(p1, EventRoundOverdue))
	assert.Equal(t, 1, f.events.playerEvents(p2, EventRoundOverdue))

	// state is untouched
	_, st, err := f.duels.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRoundInProgress, st.Status)
	assert.Equal(t, 1, st.CurrentRound)

	_, err = f.duels.Submit(ctx, m.ID, p1, 1, "x")
	require.NoError(t, err)
	_, err = f.duels.Submit(ctx, m.ID, p2, 1, "x")
	require.NoError(t, err)

	assert.Equal(t, 0, w.Run(ctx))
	f.clock.Advance(61 * time.Second)
	assert.Equal(t, 1, w.Run(ctx))
	assert.Equal(t, 2, f.events.playerEvents(p1, EventRoundOverdue))
}

func TestRoundWatchIgnoresUnstartedAndFinished(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := NewRoundWatch(f.duels)

	p1, m1 := f.addPlayer(t, "ana", 1000)
	p2, m2 := f.addPlayer(t, "ben", 1000)
	_, err := f.duels.CreateMatch(ctx,
		models.QueueEntry{PlayerID: p1, ModelID: m1, Category: models.CategoryTranslation},
		models.QueueEntry{PlayerID: p2, ModelID: m2, Category: models.CategoryTranslation})
	require.NoError(t, err)

	done, _, _ := f.startDuel(t, models.CategoryOptimization)
	_, err = f.duels.Finish(ctx, done.ID, 0, 0, 0)
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)
	assert.Equal(t, 0, w.Run(ctx))
}
