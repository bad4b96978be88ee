package game

import (
	"context"

	"go.uber.org/zap"

	"github.com/neuroforge/backend/internal/apperr"
	"github.com/neuroforge/backend/internal/models"
	"github.com/neuroforge/backend/internal/retry"
)

type transition struct {
	match    *models.Match
	state    *DuelState
	changed  bool
	finished bool
}

// Ready marks a participant ready. The first ready player moves the duel to
// WAITING_FOR_PLAYERS, the second starts round 1.
func (d *Duels) Ready(ctx context.Context, matchID string, playerID int64) (*DuelState, error) {
	t, err := retry.OnConflict(ctx, d.policy, func(ctx context.Context) (transition, error) {
		m, st, err := d.load(ctx, matchID)
		if err != nil {
			return transition{}, err
		}
		seat := st.seat(playerID)
		if seat == 0 {
			return transition{}, apperr.InvalidOwnership("player %d is not in match %s", playerID, matchID)
		}
		unchanged := transition{match: m, state: st}
		if m.Ended() {
			return unchanged, nil
		}
		if st.Status != StatusNotStarted && st.Status != StatusWaitingForPlayers {
			return unchanged, nil
		}
		if (seat == 1 && st.Player1Ready) || (seat == 2 && st.Player2Ready) {
			return unchanged, nil
		}

		if seat == 1 {
			st.Player1Ready = true
		} else {
			st.Player2Ready = true
		}
		if st.Player1Ready && st.Player2Ready {
			now := d.now()
			st.Status = StatusRoundInProgress
			st.CurrentRound = 1
			st.RoundStartedAt = &now
		} else {
			st.Status = StatusWaitingForPlayers
		}

		if err := d.save(ctx, m, st); err != nil {
			return transition{}, err
		}
		return transition{match: m, state: st, changed: true}, nil
	})
	if err != nil {
		return nil, err
	}

	if t.changed {
		d.log.Info("player ready",
			zap.String("match_id", matchID), zap.Int64("player_id", playerID), zap.String("status", string(t.state.Status)))
		d.publishState(t.match, t.state)
	}
	return t.state.Public(), nil
}

// Submit scores a player's answer for round. Submissions for a finished
// duel, for any round but the current one, or repeated for a round the
// player already answered return the current state unchanged.
func (d *Duels) Submit(ctx context.Context, matchID string, playerID int64, round int, payload string) (*DuelState, error) {
	t, err := retry.OnConflict(ctx, d.policy, func(ctx context.Context) (transition, error) {
		m, st, err := d.load(ctx, matchID)
		if err != nil {
			return transition{}, err
		}
		seat := st.seat(playerID)
		if seat == 0 {
			return transition{}, apperr.InvalidOwnership("player %d is not in match %s", playerID, matchID)
		}

		unchanged := transition{match: m, state: st}
		switch {
		case m.Ended() || st.Status == StatusGameOver:
			return unchanged, nil
		case !st.Status.InRound() || round != st.CurrentRound:
			d.log.Debug("stale submission dropped",
				zap.String("match_id", matchID), zap.Int64("player_id", playerID),
				zap.Int("round", round), zap.Int("current_round", st.CurrentRound))
			return unchanged, nil
		case len(st.rounds(seat)) >= st.CurrentRound:
			d.log.Debug("duplicate submission dropped",
				zap.String("match_id", matchID), zap.Int64("player_id", playerID), zap.Int("round", round))
			return unchanged, nil
		}

		rules, ok := rulesets[st.Category]
		if !ok {
			return transition{}, apperr.Validation("unsupported category %q", st.Category)
		}
		now := d.now()
		score, metrics := rules.score(st, payload, d.jitter)
		st.record(seat, Submission{
			Round:       st.CurrentRound,
			Payload:     payload,
			Score:       score,
			Metrics:     metrics,
			SubmittedAt: now,
		})

		finished := false
		p1Done := len(st.Player1Rounds) >= st.CurrentRound
		p2Done := len(st.Player2Rounds) >= st.CurrentRound
		switch {
		case p1Done && p2Done && st.CurrentRound < st.TotalRounds:
			st.CurrentRound++
			st.Status = StatusRoundInProgress
			st.RoundStartedAt = &now
		case p1Done && p2Done:
			st.Status = StatusGameOver
			st.RoundStartedAt = nil
			d.finalize(m, st, now)
			finished = true
		case p1Done:
			st.Status = StatusAwaitingPlayer2
		default:
			st.Status = StatusAwaitingPlayer1
		}

		if err := d.save(ctx, m, st); err != nil {
			return transition{}, err
		}
		return transition{match: m, state: st, changed: true, finished: finished}, nil
	})
	if err != nil {
		return nil, err
	}

	if t.changed {
		d.publishState(t.match, t.state)
	}
	if t.finished {
		d.concluded(ctx, t.match)
	}
	return t.state.Public(), nil
}

func (d *Duels) publishState(m *models.Match, st *DuelState) {
	d.events.PublishMatch(m.ID, StateEvent(m, st))
}
