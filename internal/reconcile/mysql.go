package reconcile

import (
	"context"
	"database/sql"
	"fmt"

	// MySQL driver, registered for database/sql.
	_ "github.com/go-sql-driver/mysql"

	"github.com/steffonell/dockyard/internal/types"
)

// MySQLStore is an IssueStore backed by a MySQL-compatible database.
// The composite (tracker_id, external_key) unique key makes the upsert
// atomic, so concurrent reconciliation runs cannot race on creation.
type MySQLStore struct {
	db *sql.DB
}

// OpenMySQL opens a connection pool for the given DSN and ensures the
// schema exists. The DSN must include parseTime=true so DATETIME columns
// scan into time.Time.
func OpenMySQL(ctx context.Context, dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	s := &MySQLStore{db: db}
	if err := s.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewMySQLStore wraps an existing connection pool (tests use this).
func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

// EnsureSchema creates the issues table when it does not exist.
func (s *MySQLStore) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS tracker_issues (
    tracker_id   VARCHAR(64)  NOT NULL,
    external_key VARCHAR(255) NOT NULL,
    title        TEXT         NOT NULL,
    description  MEDIUMTEXT,
    status       VARCHAR(32)  NOT NULL,
    priority     VARCHAR(64),
    url          VARCHAR(1024),
    created_at   DATETIME,
    updated_at   DATETIME,
    raw          MEDIUMBLOB,
    PRIMARY KEY (tracker_id, external_key)
)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Upsert inserts or updates in one statement. MySQL reports RowsAffected 1
// for an insert and 2 for an update of an existing row.
func (s *MySQLStore) Upsert(ctx context.Context, rec *StoredIssue) (bool, error) {
	const stmt = `
INSERT INTO tracker_issues
    (tracker_id, external_key, title, description, status, priority, url, created_at, updated_at, raw)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    title = VALUES(title),
    description = VALUES(description),
    status = VALUES(status),
    priority = VALUES(priority),
    url = VALUES(url),
    updated_at = VALUES(updated_at),
    raw = VALUES(raw)`

	res, err := s.db.ExecContext(ctx, stmt,
		rec.TrackerID, rec.ExternalKey, rec.Title, rec.Description,
		string(rec.Status), rec.Priority, rec.URL,
		rec.CreatedAt, rec.UpdatedAt, rec.Raw)
	if err != nil {
		return false, fmt.Errorf("upsert issue %s/%s: %w", rec.TrackerID, rec.ExternalKey, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected == 1, nil
}

func (s *MySQLStore) Get(ctx context.Context, trackerID, externalKey string) (*StoredIssue, error) {
	const query = `
SELECT tracker_id, external_key, title, COALESCE(description, ''), status,
       COALESCE(priority, ''), COALESCE(url, ''), created_at, updated_at, raw
FROM tracker_issues
WHERE tracker_id = ? AND external_key = ?`

	rec := &StoredIssue{}
	var status string
	err := s.db.QueryRowContext(ctx, query, trackerID, externalKey).Scan(
		&rec.TrackerID, &rec.ExternalKey, &rec.Title, &rec.Description, &status,
		&rec.Priority, &rec.URL, &rec.CreatedAt, &rec.UpdatedAt, &rec.Raw)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get issue %s/%s: %w", trackerID, externalKey, err)
	}
	rec.Status = types.ParseStatus(status)
	return rec, nil
}

func (s *MySQLStore) Create(ctx context.Context, rec *StoredIssue) error {
	const stmt = `
INSERT INTO tracker_issues
    (tracker_id, external_key, title, description, status, priority, url, created_at, updated_at, raw)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, stmt,
		rec.TrackerID, rec.ExternalKey, rec.Title, rec.Description,
		string(rec.Status), rec.Priority, rec.URL,
		rec.CreatedAt, rec.UpdatedAt, rec.Raw)
	if err != nil {
		return fmt.Errorf("create issue %s/%s: %w", rec.TrackerID, rec.ExternalKey, err)
	}
	return nil
}

func (s *MySQLStore) Update(ctx context.Context, rec *StoredIssue) error {
	const stmt = `
UPDATE tracker_issues
SET title = ?, description = ?, status = ?, priority = ?, url = ?, updated_at = ?, raw = ?
WHERE tracker_id = ? AND external_key = ?`
	res, err := s.db.ExecContext(ctx, stmt,
		rec.Title, rec.Description, string(rec.Status), rec.Priority, rec.URL,
		rec.UpdatedAt, rec.Raw, rec.TrackerID, rec.ExternalKey)
	if err != nil {
		return fmt.Errorf("update issue %s/%s: %w", rec.TrackerID, rec.ExternalKey, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// MySQL also reports 0 when the row exists but nothing changed;
		// verify existence before treating it as missing.
		if _, getErr := s.Get(ctx, rec.TrackerID, rec.ExternalKey); getErr != nil {
			return getErr
		}
	}
	return nil
}

func (s *MySQLStore) Count(ctx context.Context, trackerID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tracker_issues WHERE tracker_id = ?`, trackerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count issues for %s: %w", trackerID, err)
	}
	return n, nil
}

// Close releases the connection pool.
func (s *MySQLStore) Close() error {
	return s.db.Close()
}
