package ratelimit

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteLedger stores hits in a SQLite database so limits survive restarts.
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLiteLedger opens (or creates) the database at path, ensures the data
// directory exists and creates the hits table.
func NewSQLiteLedger(path string) (*SQLiteLedger, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets readers proceed during a write; writers wait up to five
	// seconds instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(1)
	l := &SQLiteLedger{db: db}
	if err := l.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// Close closes the underlying database connection.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

func (l *SQLiteLedger) ensureSchema() error {
	_, err := l.db.Exec(`
CREATE TABLE IF NOT EXISTS rate_hits (
    key TEXT NOT NULL,
    at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS rate_hits_key ON rate_hits(key, at);
`)
	return err
}

// Load implements Ledger.
func (l *SQLiteLedger) Load(ctx context.Context, key string) ([]time.Time, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT at FROM rate_hits WHERE key = ? ORDER BY at`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var hits []time.Time
	for rows.Next() {
		var at int64
		if err := rows.Scan(&at); err != nil {
			return nil, err
		}
		hits = append(hits, time.UnixMilli(at))
	}
	return hits, rows.Err()
}

// Save implements Ledger. Rows older than ttl for any key are purged in the
// same transaction.
func (l *SQLiteLedger) Save(ctx context.Context, key string, hits []time.Time, ttl time.Duration) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM rate_hits WHERE key = ?`, key); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO rate_hits (key, at) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	var newest time.Time
	for _, t := range hits {
		if _, err := stmt.ExecContext(ctx, key, t.UnixMilli()); err != nil {
			return err
		}
		if t.After(newest) {
			newest = t
		}
	}
	if ttl > 0 && !newest.IsZero() {
		if _, err := tx.ExecContext(ctx, `DELETE FROM rate_hits WHERE at < ?`, newest.Add(-ttl).UnixMilli()); err != nil {
			return err
		}
	}
	return tx.Commit()
}
