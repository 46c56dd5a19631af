package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/whitebite/isolate-core/internal/domain"
	"github.com/whitebite/isolate-core/internal/errkit"
)

type learnedRow struct {
	Domain     string         `db:"domain"`
	StrategyID string         `db:"strategy_id"`
	Successes  int            `db:"successes"`
	Failures   int            `db:"failures"`
	LockedAt   sql.NullString `db:"locked_at"`
	UpdatedAt  string         `db:"updated_at"`
}

// UpsertLearnedStrategy writes the current best-known strategy for domain.
func (s *Store) UpsertLearnedStrategy(ctx context.Context, ls domain.LearnedStrategy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lockedAt sql.NullString
	if ls.LockedAt != nil {
		lockedAt = sql.NullString{String: ls.LockedAt.UTC().Format(time.RFC3339), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO learned_strategies (domain, strategy_id, successes, failures, locked_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(domain) DO UPDATE SET
			strategy_id = excluded.strategy_id, successes = excluded.successes,
			failures = excluded.failures, locked_at = excluded.locked_at,
			updated_at = excluded.updated_at
	`, ls.Domain, ls.StrategyID, ls.Successes, ls.Failures, lockedAt, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return errkit.Wrap(errkit.KindStorage, "upsert learned strategy", err)
	}
	return nil
}

// GetLearnedStrategy reads the learned strategy for domain, or not-found.
func (s *Store) GetLearnedStrategy(ctx context.Context, domainName string) (domain.LearnedStrategy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var row learnedRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM learned_strategies WHERE domain = ?`, domainName)
	if err == sql.ErrNoRows {
		return domain.LearnedStrategy{}, errkit.NotFound("learned_strategy", domainName)
	}
	if err != nil {
		return domain.LearnedStrategy{}, errkit.Wrap(errkit.KindStorage, "get learned strategy", err)
	}
	return rowToLearned(row), nil
}

func rowToLearned(row learnedRow) domain.LearnedStrategy {
	ls := domain.LearnedStrategy{
		Domain: row.Domain, StrategyID: row.StrategyID,
		Successes: row.Successes, Failures: row.Failures,
	}
	if row.LockedAt.Valid {
		if t, err := time.Parse(time.RFC3339, row.LockedAt.String); err == nil {
			ls.LockedAt = &t
		}
	}
	if t, err := time.Parse(time.RFC3339, row.UpdatedAt); err == nil {
		ls.UpdatedAt = t
	}
	return ls
}
