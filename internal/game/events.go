package game

import (
	"time"

	"github.com/google/uuid"

	"github.com/neuroforge/backend/internal/models"
)

// Event types pushed to clients
const (
	EventDuelState    = "duel_state"
	EventMatchFound   = "match_found"
	EventMatchEnded   = "match_ended"
	EventRoundOverdue = "round_overdue"
	EventQueueTimeout = "queue_timeout"
)

// Event is one message on the realtime bus. Version is the match version a
// duel_state was read at; clients drop a duel_state older than the one they
// already show.
type Event struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	MatchID string    `json:"match_id,omitempty"`
	Version int64     `json:"version,omitempty"`
	Data    any       `json:"data,omitempty"`
	SentAt  time.Time `json:"sent_at"`
}

func NewEvent(eventType, matchID string, data any) Event {
	return Event{
		ID:      uuid.NewString(),
		Type:    eventType,
		MatchID: matchID,
		Data:    data,
		SentAt:  time.Now().UTC(),
	}
}

// StateEvent is the duel_state event for m at its current version.
func StateEvent(m *models.Match, st *DuelState) Event {
	ev := NewEvent(EventDuelState, m.ID, st.Public())
	ev.Version = m.Version
	return ev
}

// Broadcaster delivers events to the match topic or to one player. Calls
// must not block and delivery is best effort; clients resync through the
// full-state fetch.
type Broadcaster interface {
	PublishMatch(matchID string, ev Event)
	PublishPlayer(playerID int64, ev Event)
}

type NopBroadcaster struct{}

func (NopBroadcaster) PublishMatch(string, Event) {}
func (NopBroadcaster) PublishPlayer(int64, Event) {}
