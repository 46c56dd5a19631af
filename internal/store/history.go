package store

import (
	"context"
	"time"

	"github.com/whitebite/isolate-core/internal/errkit"
)

// HistoryRow mirrors one strategy_history_v2 row.
type HistoryRow struct {
	Domain      string `db:"domain"`
	StrategyID  string `db:"strategy_id"`
	Successes   int    `db:"successes"`
	Failures    int    `db:"failures"`
	LastSuccess string `db:"last_success"`
	LastFailure string `db:"last_failure"`
}

// RecordHistorySuccess UPSERTs (domain, strategyID), incrementing successes
// and setting last_success to now.
func (s *Store) RecordHistorySuccess(ctx context.Context, domainName, strategyID string) error {
	return s.bumpHistory(ctx, domainName, strategyID, true)
}

// RecordHistoryFailure UPSERTs (domain, strategyID), incrementing failures
// and setting last_failure to now.
func (s *Store) RecordHistoryFailure(ctx context.Context, domainName, strategyID string) error {
	return s.bumpHistory(ctx, domainName, strategyID, false)
}

func (s *Store) bumpHistory(ctx context.Context, domainName, strategyID string, success bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	var err error
	if success {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO strategy_history_v2 (domain, strategy_id, successes, failures, last_success)
			VALUES (?, ?, 1, 0, ?)
			ON CONFLICT(domain, strategy_id) DO UPDATE SET
				successes = successes + 1, last_success = excluded.last_success
		`, domainName, strategyID, now)
	} else {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO strategy_history_v2 (domain, strategy_id, successes, failures, last_failure)
			VALUES (?, ?, 0, 1, ?)
			ON CONFLICT(domain, strategy_id) DO UPDATE SET
				failures = failures + 1, last_failure = excluded.last_failure
		`, domainName, strategyID, now)
	}
	if err != nil {
		return errkit.Wrap(errkit.KindStorage, "record strategy history", err)
	}
	return nil
}

// LoadAllHistory reads every strategy_history_v2 row, used for the
// learner's full reload at startup.
func (s *Store) LoadAllHistory(ctx context.Context) ([]HistoryRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []HistoryRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT domain, strategy_id, successes, failures,
		COALESCE(last_success, '') AS last_success, COALESCE(last_failure, '') AS last_failure
		FROM strategy_history_v2`); err != nil {
		return nil, errkit.Wrap(errkit.KindStorage, "load strategy history", err)
	}
	return rows, nil
}

// ClearHistoryDomain deletes every row for one domain.
func (s *Store) ClearHistoryDomain(ctx context.Context, domainName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM strategy_history_v2 WHERE domain = ?`, domainName); err != nil {
		return errkit.Wrap(errkit.KindStorage, "clear strategy history domain", err)
	}
	return nil
}

// ClearAllHistory truncates the whole table.
func (s *Store) ClearAllHistory(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM strategy_history_v2`); err != nil {
		return errkit.Wrap(errkit.KindStorage, "clear strategy history", err)
	}
	return nil
}
