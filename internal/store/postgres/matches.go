package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/neuroforge/backend/internal/models"
	"github.com/neuroforge/backend/internal/store"
)

const matchColumns = `id, category, player1_id, player2_id, player1_model_id, player2_model_id,
	player1_score, player2_score, winner_id, started_at, ended_at, game_state, version`

type MatchStore struct {
	db *sqlx.DB
}

func (s *MatchStore) Create(ctx context.Context, m *models.Match) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO matches (id, category, player1_id, player2_id, player1_model_id, player2_model_id,
		   player1_score, player2_score, started_at, game_state, version)
		 VALUES ($1, $2, $3, $4, $5, $6, 0, 0, $7, $8, 0)`,
		m.ID, m.Category, m.Player1ID, m.Player2ID, m.Player1ModelID, m.Player2ModelID, m.StartedAt, string(m.GameState))
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	if err == nil {
		m.Version = 0
	}
	return err
}

func (s *MatchStore) FindByID(ctx context.Context, id string) (*models.Match, error) {
	var m models.Match
	if err := s.db.GetContext(ctx, &m, `SELECT `+matchColumns+` FROM matches WHERE id=$1`, id); err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (s *MatchStore) Update(ctx context.Context, m *models.Match, expectedVersion int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE matches SET player1_score=$1, player2_score=$2, winner_id=$3, ended_at=$4, game_state=$5, version=version+1
		 WHERE id=$6 AND version=$7`,
		m.Player1Score, m.Player2Score, m.WinnerID, m.EndedAt, string(m.GameState), m.ID, expectedVersion)
	if err != nil {
		return err
	}
	if err := expectOne(res, store.ErrVersionConflict); err != nil {
		return err
	}
	m.Version = expectedVersion + 1
	return nil
}

func (s *MatchStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM matches WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return expectOne(res, store.ErrNotFound)
}

func (s *MatchStore) ListByPlayer(ctx context.Context, playerID int64, limit int) ([]models.Match, error) {
	list := []models.Match{}
	err := s.db.SelectContext(ctx, &list,
		`SELECT `+matchColumns+` FROM matches WHERE player1_id=$1 OR player2_id=$1
		 ORDER BY started_at DESC LIMIT $2`, playerID, limit)
	return list, err
}

func (s *MatchStore) ListActiveByPlayer(ctx context.Context, playerID int64) ([]models.Match, error) {
	list := []models.Match{}
	err := s.db.SelectContext(ctx, &list,
		`SELECT `+matchColumns+` FROM matches WHERE (player1_id=$1 OR player2_id=$1) AND ended_at IS NULL
		 ORDER BY started_at DESC`, playerID)
	return list, err
}

func (s *MatchStore) ListActive(ctx context.Context) ([]models.Match, error) {
	list := []models.Match{}
	err := s.db.SelectContext(ctx, &list,
		`SELECT `+matchColumns+` FROM matches WHERE ended_at IS NULL ORDER BY started_at`)
	return list, err
}

func (s *MatchStore) CountPlayed(ctx context.Context, playerID int64) (int64, error) {
	var n int64
	err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM matches WHERE (player1_id=$1 OR player2_id=$1) AND ended_at IS NOT NULL`, playerID)
	return n, err
}

func (s *MatchStore) CountWins(ctx context.Context, playerID int64) (int64, error) {
	var n int64
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM matches WHERE winner_id=$1`, playerID)
	return n, err
}
