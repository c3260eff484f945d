package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	upsertRunSQL = `INSERT INTO collection_runs (
        ledger_date,
        ran_at,
        status,
        detail,
        selected,
        fresh,
        repeated,
        failures,
        elapsed_ms
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9
    )
    ON CONFLICT (ledger_date) DO UPDATE
    SET
        ran_at     = EXCLUDED.ran_at,
        status     = EXCLUDED.status,
        detail     = EXCLUDED.detail,
        selected   = EXCLUDED.selected,
        fresh      = EXCLUDED.fresh,
        repeated   = EXCLUDED.repeated,
        failures   = EXCLUDED.failures,
        elapsed_ms = EXCLUDED.elapsed_ms;`

	listRecentRunsSQL = `SELECT
        ledger_date,
        ran_at,
        status,
        detail,
        selected,
        fresh,
        repeated,
        failures,
        elapsed_ms,
        created_at
    FROM collection_runs
    ORDER BY ledger_date DESC
    LIMIT $1;`

	countRunsSQL = `SELECT COUNT(*) FROM collection_runs;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// RunHistoryStore defines operations for run-history persistence.
type RunHistoryStore interface {
	UpsertRun(ctx context.Context, record RunRecord) error
	ListRecentRuns(ctx context.Context, limit int) ([]RunRecord, error)
	CountRuns(ctx context.Context) (int64, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store persists collection runs in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a
// release func. Two concurrent runs against the same shared workbook race on
// the final save; the lock serialises them.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctxUnlock, advisoryUnlockSQL, key); err != nil {
			// unlock best effort; log omitted in storage package
		}
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// UpsertRun persists or replaces the run record for a ledger date.
func (s *Store) UpsertRun(ctx context.Context, record RunRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	var detail interface{}
	if record.Detail != nil {
		detail = *record.Detail
	}

	failures := record.Failures
	if len(failures) == 0 {
		failures = json.RawMessage("{}")
	}

	_, execErr := pool.Exec(ctx, upsertRunSQL,
		record.LedgerDate,
		record.RanAt,
		record.Status,
		detail,
		record.Selected,
		record.Fresh,
		record.Repeated,
		[]byte(failures),
		record.ElapsedMS,
	)
	if execErr != nil {
		return fmt.Errorf("upsert run: %w", execErr)
	}
	return nil
}

// ListRecentRuns lists the most recent runs ordered by descending date.
func (s *Store) ListRecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentRunsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent runs: %w", queryErr)
	}
	defer rows.Close()

	records := make([]RunRecord, 0, limit)
	for rows.Next() {
		record, scanErr := scanRunRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, record)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// CountRuns counts stored runs.
func (s *Store) CountRuns(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countRunsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count runs: %w", scanErr)
	}
	return count, nil
}

func scanRunRecord(rows pgx.Rows) (RunRecord, error) {
	var (
		record   RunRecord
		detail   sql.NullString
		failures json.RawMessage
	)

	if err := rows.Scan(
		&record.LedgerDate,
		&record.RanAt,
		&record.Status,
		&detail,
		&record.Selected,
		&record.Fresh,
		&record.Repeated,
		&failures,
		&record.ElapsedMS,
		&record.CreatedAt,
	); err != nil {
		return RunRecord{}, err
	}

	if detail.Valid {
		text := detail.String
		record.Detail = &text
	}
	record.Failures = failures

	return record, nil
}
