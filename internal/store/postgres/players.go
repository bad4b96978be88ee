package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/neuroforge/backend/internal/models"
	"github.com/neuroforge/backend/internal/store"
)

type PlayerStore struct {
	db *sqlx.DB
}

func (s *PlayerStore) FindByID(ctx context.Context, id int64) (*models.Player, error) {
	var p models.Player
	err := s.db.GetContext(ctx, &p, `SELECT id, username, skill_rating, created_at FROM players WHERE id=$1`, id)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *PlayerStore) Create(ctx context.Context, p *models.Player) error {
	if p.SkillRating == 0 {
		p.SkillRating = models.StartingRating
	}
	err := s.db.QueryRowxContext(ctx,
		`INSERT INTO players (username, skill_rating, created_at) VALUES ($1, $2, NOW()) RETURNING id, created_at`,
		p.Username, p.SkillRating).Scan(&p.ID, &p.CreatedAt)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (s *PlayerStore) AdjustRating(ctx context.Context, id int64, delta int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE players SET skill_rating = skill_rating + $1 WHERE id=$2`, delta, id)
	if err != nil {
		return err
	}
	return expectOne(res, store.ErrNotFound)
}

func (s *PlayerStore) TopByRating(ctx context.Context, limit int) ([]models.Player, error) {
	players := []models.Player{}
	err := s.db.SelectContext(ctx, &players,
		`SELECT id, username, skill_rating, created_at FROM players ORDER BY skill_rating DESC, id ASC LIMIT $1`, limit)
	return players, err
}
