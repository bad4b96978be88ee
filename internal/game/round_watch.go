package game

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/neuroforge/backend/internal/logging"
)

// RoundWatch tells both players when a round has run past its advisory time
// limit. It never changes match state; each overdue round is reported once.
type RoundWatch struct {
	duels *Duels
	log   *zap.Logger

	mu       sync.Mutex
	notified map[string]int // match id -> last reported round
}

func NewRoundWatch(duels *Duels) *RoundWatch {
	return &RoundWatch{
		duels:    duels,
		log:      logging.Named("rounds"),
		notified: make(map[string]int),
	}
}

// Run scans active matches once and returns how many notices it sent.
func (w *RoundWatch) Run(ctx context.Context) int {
	active, err := w.duels.matches.ListActive(ctx)
	if err != nil {
		w.log.Error("list active matches", zap.Error(err))
		return 0
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.duels.now()
	seen := make(map[string]bool, len(active))
	sent := 0
	for i := range active {
		m := &active[i]
		seen[m.ID] = true

		st, err := decodeState(m.GameState)
		if err != nil {
			w.log.Warn("skip undecodable state", zap.String("match_id", m.ID), zap.Error(err))
			continue
		}
		deadline, ok := st.RoundDeadline()
		if !ok || now.Before(deadline) || w.notified[m.ID] == st.CurrentRound {
			continue
		}
		w.notified[m.ID] = st.CurrentRound

		ev := NewEvent(EventRoundOverdue, m.ID, map[string]any{
			"round":       st.CurrentRound,
			"status":      st.Status,
			"deadline":    deadline,
			"overdue_sec": int(now.Sub(deadline).Seconds()),
		})
		w.duels.events.PublishPlayer(m.Player1ID, ev)
		w.duels.events.PublishPlayer(m.Player2ID, ev)
		sent++

		w.log.Info("round overdue",
			zap.String("match_id", m.ID), zap.Int("round", st.CurrentRound), zap.String("status", string(st.Status)))
	}

	for id := range w.notified {
		if !seen[id] {
			delete(w.notified, id)
		}
	}
	return sent
}
