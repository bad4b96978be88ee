package game

import (
	"encoding/json"
	"fmt"
	"time"
)

// DuelStatus is the phase of a duel session
type DuelStatus string

const (
	StatusNotStarted        DuelStatus = "NOT_STARTED"
	StatusWaitingForPlayers DuelStatus = "WAITING_FOR_PLAYERS"
	StatusRoundInProgress   DuelStatus = "ROUND_IN_PROGRESS"
	StatusAwaitingPlayer1   DuelStatus = "AWAITING_PLAYER_1_SUBMISSION"
	StatusAwaitingPlayer2   DuelStatus = "AWAITING_PLAYER_2_SUBMISSION"
	StatusGameOver          DuelStatus = "GAME_OVER"
)

// InRound reports whether submissions for CurrentRound are being accepted
func (s DuelStatus) InRound() bool {
	switch s {
	case StatusRoundInProgress, StatusAwaitingPlayer1, StatusAwaitingPlayer2:
		return true
	}
	return false
}

// DefaultRoundTimeLimit is advisory; nothing ends a round when it passes.
const DefaultRoundTimeLimit = 60 * time.Second

// Submission is one scored answer for one round
type Submission struct {
	Round       int            `json:"round"`
	Payload     string         `json:"payload"`
	Score       int            `json:"score"`
	Metrics     map[string]any `json:"metrics,omitempty"`
	SubmittedAt time.Time      `json:"submitted_at"`
}

// Phrase is one translation prompt
type Phrase struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
	Answer     string `json:"answer,omitempty"`
}

// TranslationContent is the category payload for TRANSLATION duels
type TranslationContent struct {
	Phrases []Phrase `json:"phrases"`
}

// OptimizationContent is the category payload for OPTIMIZATION duels
type OptimizationContent struct {
	Problem      string `json:"problem"`
	OriginalCode string `json:"original_code"`
}

// DuelState is the persisted session state of one match. Exactly one of the
// category payloads is set, matching Category.
type DuelState struct {
	Category       string       `json:"category"`
	Status         DuelStatus   `json:"status"`
	CurrentRound   int          `json:"current_round"`
	TotalRounds    int          `json:"total_rounds"`
	Player1ID      int64        `json:"player1_id"`
	Player2ID      int64        `json:"player2_id"`
	Player1Ready   bool         `json:"player1_ready"`
	Player2Ready   bool         `json:"player2_ready"`
	Player1Score   int          `json:"player1_score"`
	Player2Score   int          `json:"player2_score"`
	Player1Rounds  []Submission `json:"player1_rounds"`
	Player2Rounds  []Submission `json:"player2_rounds"`
	RoundStartedAt *time.Time   `json:"round_started_at,omitempty"`
	RoundLimitSecs int          `json:"round_time_limit_seconds"`
	WinnerID       int64        `json:"winner_id,omitempty"`

	Translation  *TranslationContent  `json:"translation,omitempty"`
	Optimization *OptimizationContent `json:"optimization,omitempty"`
}

// seat returns 1 or 2 for a participant, 0 otherwise
func (s *DuelState) seat(playerID int64) int {
	switch playerID {
	case s.Player1ID:
		return 1
	case s.Player2ID:
		return 2
	}
	return 0
}

func (s *DuelState) rounds(seat int) []Submission {
	if seat == 1 {
		return s.Player1Rounds
	}
	return s.Player2Rounds
}

func (s *DuelState) record(seat int, sub Submission) {
	if seat == 1 {
		s.Player1Rounds = append(s.Player1Rounds, sub)
		s.Player1Score += sub.Score
		return
	}
	s.Player2Rounds = append(s.Player2Rounds, sub)
	s.Player2Score += sub.Score
}

// RoundDeadline returns when the current round's advisory limit passes
func (s *DuelState) RoundDeadline() (time.Time, bool) {
	if !s.Status.InRound() || s.RoundStartedAt == nil || s.RoundLimitSecs <= 0 {
		return time.Time{}, false
	}
	return s.RoundStartedAt.Add(time.Duration(s.RoundLimitSecs) * time.Second), true
}

func encodeState(s *DuelState) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode duel state: %w", err)
	}
	return b, nil
}

func decodeState(b []byte) (*DuelState, error) {
	var s DuelState
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode duel state: %w", err)
	}
	return &s, nil
}

// Public returns a copy with the translation answers removed
func (s *DuelState) Public() *DuelState {
	out := *s
	if s.Translation != nil {
		phrases := make([]Phrase, len(s.Translation.Phrases))
		for i, p := range s.Translation.Phrases {
			p.Answer = ""
			phrases[i] = p
		}
		out.Translation = &TranslationContent{Phrases: phrases}
	}
	return &out
}
