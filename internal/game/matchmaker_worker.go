package game

import (
	"context"

	"go.uber.org/zap"

	"github.com/neuroforge/backend/internal/models"
)

// Tick runs one matchmaking pass and returns the number of matches created.
// Entries are visited oldest first; each is evicted if it has waited past
// the timeout, otherwise paired with the first compatible entry.
func (mm *Matchmaker) Tick(ctx context.Context) int {
	entries, err := mm.queue.ListSearching(ctx)
	if err != nil {
		mm.log.Error("list queue", zap.Error(err))
		return 0
	}
	if len(entries) == 0 {
		return 0
	}

	now := mm.opts.Now()
	taken := make(map[int64]bool, len(entries))
	paired := 0

	for i := range entries {
		if ctx.Err() != nil {
			break
		}
		e := entries[i]
		if taken[e.PlayerID] {
			continue
		}

		wait := now.Sub(e.EnqueuedAt)
		if wait > mm.opts.Timeout {
			taken[e.PlayerID] = true
			mm.evict(ctx, e)
			continue
		}

		partner, ok := mm.findPartner(e, entries, taken, mm.SearchRange(wait))
		if !ok {
			continue
		}

		claimed, err := mm.queue.ClaimPair(ctx, e, partner)
		if err != nil {
			mm.log.Error("claim pair", zap.Int64("player_id", e.PlayerID), zap.Int64("partner_id", partner.PlayerID), zap.Error(err))
			continue
		}
		if !claimed {
			mm.log.Debug("pair already claimed", zap.Int64("player_id", e.PlayerID), zap.Int64("partner_id", partner.PlayerID))
			continue
		}
		taken[e.PlayerID] = true
		taken[partner.PlayerID] = true

		match, err := mm.creator.CreateMatch(ctx, e, partner)
		if err != nil {
			mm.log.Error("create match, requeueing pair",
				zap.Int64("player1", e.PlayerID), zap.Int64("player2", partner.PlayerID), zap.Error(err))
			mm.requeue(ctx, e, partner)
			continue
		}

		paired++
		mm.log.Info("match made",
			zap.String("match_id", match.ID), zap.String("category", e.Category),
			zap.Int64("player1", e.PlayerID), zap.Int("rating1", e.SkillRating),
			zap.Int64("player2", partner.PlayerID), zap.Int("rating2", partner.SkillRating))

		found := NewEvent(EventMatchFound, match.ID, NewMatchView(match, nil))
		mm.events.PublishPlayer(e.PlayerID, found)
		mm.events.PublishPlayer(partner.PlayerID, found)
	}

	return paired
}

// findPartner returns the oldest untaken entry of the same category within
// rng of e's rating. entries must be sorted oldest first.
func (mm *Matchmaker) findPartner(e models.QueueEntry, entries []models.QueueEntry, taken map[int64]bool, rng int) (models.QueueEntry, bool) {
	now := mm.opts.Now()
	for _, c := range entries {
		if c.PlayerID == e.PlayerID || taken[c.PlayerID] || c.Category != e.Category {
			continue
		}
		if now.Sub(c.EnqueuedAt) > mm.opts.Timeout {
			continue
		}
		diff := c.SkillRating - e.SkillRating
		if diff < 0 {
			diff = -diff
		}
		if diff <= rng {
			return c, true
		}
	}
	return models.QueueEntry{}, false
}

func (mm *Matchmaker) evict(ctx context.Context, e models.QueueEntry) {
	removed, err := mm.queue.DeleteIf(ctx, e)
	if err != nil {
		mm.log.Error("evict timed out entry", zap.Int64("player_id", e.PlayerID), zap.Error(err))
		return
	}
	if !removed {
		mm.log.Debug("timed out entry already replaced", zap.Int64("player_id", e.PlayerID))
		return
	}
	mm.log.Info("queue entry timed out", zap.Int64("player_id", e.PlayerID), zap.Time("enqueued_at", e.EnqueuedAt))
	mm.events.PublishPlayer(e.PlayerID, NewEvent(EventQueueTimeout, "", map[string]any{"category": e.Category}))
}

func (mm *Matchmaker) requeue(ctx context.Context, entries ...models.QueueEntry) {
	for i := range entries {
		if err := mm.queue.Upsert(ctx, &entries[i]); err != nil {
			mm.log.Error("requeue entry", zap.Int64("player_id", entries[i].PlayerID), zap.Error(err))
		}
	}
}

// CleanupStale deletes entries older than the timeout plus a margin. It is
// a backstop for entries the tick never reached.
func (mm *Matchmaker) CleanupStale(ctx context.Context) int64 {
	cutoff := mm.opts.Now().Add(-(mm.opts.Timeout + mm.opts.CleanupMargin))
	n, err := mm.queue.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		mm.log.Error("cleanup stale queue entries", zap.Error(err))
		return 0
	}
	if n > 0 {
		mm.log.Info("stale queue entries removed", zap.Int64("count", n))
	}
	return n
}
