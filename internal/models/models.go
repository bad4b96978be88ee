package models

import (
	"database/sql"
	"time"
)

// Match categories
const (
	CategoryTranslation  = "TRANSLATION"
	CategoryOptimization = "OPTIMIZATION"
)

// Upgrade categories
const (
	UpgradeDataCenter = "DATA_CENTER"
	UpgradeDatasets   = "DATASETS"
	UpgradeTalent     = "TALENT"
)

// Queue entry statuses
const (
	QueueStatusSearching = "SEARCHING"
)

// Upgrade record statuses
const (
	UpgradeStatusIdle      = "IDLE"
	UpgradeStatusUpgrading = "UPGRADING"
)

// StartingRating is the skill rating assigned to new players
const StartingRating = 1000

// Player represents a user in the system
type Player struct {
	ID          int64     `db:"id" json:"id"`
	Username    string    `db:"username" json:"username"`
	SkillRating int       `db:"skill_rating" json:"skill_rating"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// AIModel is a player-owned model that competes in duels and earns passive income when deployed
type AIModel struct {
	ID               int64     `db:"id" json:"id"`
	OwnerID          int64     `db:"owner_id" json:"owner_id"`
	Name             string    `db:"name" json:"name"`
	Accuracy         float64   `db:"accuracy" json:"accuracy"`
	SpeedScore       int       `db:"speed_score" json:"speed_score"`
	PopularityScore  int       `db:"popularity_score" json:"popularity_score"`
	CreditsPerMinute int       `db:"credits_per_minute" json:"credits_per_minute"`
	Deployed         bool      `db:"deployed" json:"deployed"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// Wallet holds a player's two balances. Version increments on every write.
type Wallet struct {
	PlayerID       int64     `db:"player_id" json:"player_id"`
	Credits        int64     `db:"credits" json:"credits"`
	ResearchPoints int64     `db:"research_points" json:"research_points"`
	Version        int64     `db:"version" json:"version"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// UpgradeRecord tracks one upgrade category for one player
type UpgradeRecord struct {
	ID        int64        `db:"id" json:"id"`
	PlayerID  int64        `db:"player_id" json:"player_id"`
	Category  string       `db:"category" json:"category"`
	Level     int          `db:"level" json:"level"`
	Status    string       `db:"status" json:"status"`
	StartedAt sql.NullTime `db:"started_at" json:"-"`
	FinishAt  sql.NullTime `db:"finish_at" json:"-"`
	Version   int64        `db:"version" json:"version"`
}

// Upgrading reports whether a timed upgrade is running
func (u *UpgradeRecord) Upgrading() bool {
	return u.Status == UpgradeStatusUpgrading
}

// QueueEntry represents a player waiting for a match
type QueueEntry struct {
	PlayerID    int64     `db:"player_id" json:"player_id"`
	ModelID     int64     `db:"model_id" json:"model_id"`
	Category    string    `db:"category" json:"category"`
	SkillRating int       `db:"skill_rating" json:"skill_rating"`
	Status      string    `db:"status" json:"status"`
	EnqueuedAt  time.Time `db:"enqueued_at" json:"enqueued_at"`
}

// Match is a duel between two players. GameState holds the serialized session state.
type Match struct {
	ID             string        `db:"id" json:"id"`
	Category       string        `db:"category" json:"category"`
	Player1ID      int64         `db:"player1_id" json:"player1_id"`
	Player2ID      int64         `db:"player2_id" json:"player2_id"`
	Player1ModelID int64         `db:"player1_model_id" json:"player1_model_id"`
	Player2ModelID int64         `db:"player2_model_id" json:"player2_model_id"`
	Player1Score   int           `db:"player1_score" json:"player1_score"`
	Player2Score   int           `db:"player2_score" json:"player2_score"`
	WinnerID       sql.NullInt64 `db:"winner_id" json:"-"`
	StartedAt      time.Time     `db:"started_at" json:"started_at"`
	EndedAt        sql.NullTime  `db:"ended_at" json:"-"`
	GameState      []byte        `db:"game_state" json:"-"`
	Version        int64         `db:"version" json:"version"`
}

// Ended reports whether the match has a final result
func (m *Match) Ended() bool {
	return m.EndedAt.Valid
}

// HasPlayer reports whether playerID is one of the two participants
func (m *Match) HasPlayer(playerID int64) bool {
	return m.Player1ID == playerID || m.Player2ID == playerID
}

// Opponent returns the other participant
func (m *Match) Opponent(playerID int64) int64 {
	if m.Player1ID == playerID {
		return m.Player2ID
	}
	return m.Player1ID
}
