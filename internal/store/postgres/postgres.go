// Package postgres implements the store contracts on PostgreSQL via sqlx.
package postgres

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/neuroforge/backend/internal/store"
)

const uniqueViolation = "23505"

// New returns every store backed by db.
func New(db *sqlx.DB) store.Stores {
	return store.Stores{
		Players:  &PlayerStore{db: db},
		Models:   &ModelStore{db: db},
		Wallets:  &WalletStore{db: db},
		Upgrades: &UpgradeStore{db: db},
		Queue:    &QueueStore{db: db},
		Matches:  &MatchStore{db: db},
	}
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}

// expectOne maps a zero-row conditional update to the given error.
func expectOne(res sql.Result, none error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return none
	}
	return nil
}
