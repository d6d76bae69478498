package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store against a relational table, for deployments
// where the ledger lives outside the bot host. The DSN may point at a local
// file or a network-mounted database; the Store contract is identical to the
// file backend either way.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("ledger: sqlite dsn is required")
	}
	if !strings.Contains(dsn, "?") {
		dsn += "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("ledger: open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Ensure(ctx context.Context) error {
	if err := ensureNotCanceled(ctx); err != nil {
		return err
	}
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ledger: ping database: %w", err)
	}
	query := `
	CREATE TABLE IF NOT EXISTS correspondents (
		id TEXT PRIMARY KEY,
		engaged_at INTEGER NOT NULL,
		follow_up_sent INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_correspondents_due
		ON correspondents(engaged_at) WHERE follow_up_sent = 0;
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ledger: create schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Upsert(ctx context.Context, record Record) (Record, error) {
	record, err := normalizeRecord(record, time.Now().UTC())
	if err != nil {
		return Record{}, err
	}
	// ON CONFLICT DO NOTHING keeps the original engagement untouched; a
	// repeated quote request never resets engaged_at or follow_up_sent.
	query := `
	INSERT INTO correspondents (id, engaged_at, follow_up_sent)
	VALUES (?, ?, 0)
	ON CONFLICT(id) DO NOTHING`
	if _, err := s.db.ExecContext(ctx, query, record.ID, record.EngagedAt.Unix()); err != nil {
		return Record{}, fmt.Errorf("ledger: upsert %s: %w", record.ID, err)
	}
	stored, ok, err := s.Get(ctx, record.ID)
	if err != nil {
		return Record{}, err
	}
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, record.ID)
	}
	return stored, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Record, bool, error) {
	id = strings.TrimSpace(id)
	row := s.db.QueryRowContext(ctx,
		`SELECT id, engaged_at, follow_up_sent FROM correspondents WHERE id = ?`, id)
	record, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("ledger: get %s: %w", id, err)
	}
	return record, true, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, engaged_at, follow_up_sent FROM correspondents ORDER BY engaged_at, id`)
	if err != nil {
		return nil, fmt.Errorf("ledger: list: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

func (s *SQLiteStore) FindDue(ctx context.Context, now time.Time, thresholdDays int) ([]Record, error) {
	// engaged_at <= now - threshold*86400 is exactly the whole-day floor
	// check: floor(elapsed/86400) >= threshold for integral thresholds.
	cutoff := now.UTC().Unix() - int64(thresholdDays)*86400
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, engaged_at, follow_up_sent FROM correspondents
	WHERE follow_up_sent = 0 AND engaged_at <= ?
	ORDER BY engaged_at, id`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("ledger: find due: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

func (s *SQLiteStore) MarkSent(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("ledger: record id is required")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE correspondents SET follow_up_sent = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("ledger: mark sent %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ledger: mark sent %s: %w", id, err)
	}
	if affected == 0 {
		// Either absent or already sent; only the former is an error.
		_, ok, getErr := s.Get(ctx, id)
		if getErr != nil {
			return getErr
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
	}
	return nil
}

func scanRecord(scan func(dest ...any) error) (Record, error) {
	var record Record
	var engagedAt int64
	var sent int
	if err := scan(&record.ID, &engagedAt, &sent); err != nil {
		return Record{}, err
	}
	record.EngagedAt = time.Unix(engagedAt, 0).UTC()
	record.FollowUpSent = sent != 0
	return record, nil
}

func collectRecords(rows *sql.Rows) ([]Record, error) {
	out := make([]Record, 0, 16)
	for rows.Next() {
		record, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("ledger: scan row: %w", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: iterate rows: %w", err)
	}
	return out, nil
}
