package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists history rows in a local sqlite database. Save
// replaces the whole mapping inside one transaction, which keeps the
// Store contract of Load never seeing a half-written state.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("sqlite dsn is required")
	}
	if err := ensureSQLiteDir(dsn); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	store := &SQLiteStore{db: db}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (History, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT channel, item_id FROM delivered_items")
	if err != nil {
		return nil, fmt.Errorf("query delivered items: %w", err)
	}
	defer rows.Close()

	h := History{}
	for rows.Next() {
		var channel, itemID string
		if err := rows.Scan(&channel, &itemID); err != nil {
			return nil, fmt.Errorf("scan delivered item: %w", err)
		}
		h[channel] = append(h[channel], itemID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate delivered items: %w", err)
	}
	return h, nil
}

func (s *SQLiteStore) Save(ctx context.Context, h History) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM delivered_items"); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear delivered items: %w", err)
	}
	stmt, err := tx.PrepareContext(
		ctx,
		"INSERT INTO delivered_items (channel, item_id, delivered_at) VALUES (?, ?, ?)",
	)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	now := time.Now().UTC()
	for channel, ids := range h {
		for _, id := range ids {
			if id == "" {
				continue
			}
			if _, err := stmt.ExecContext(ctx, channel, id, now); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("insert delivered item: %w", err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit history tx: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) ensureSchema(ctx context.Context) error {
	ddl := `CREATE TABLE IF NOT EXISTS delivered_items (
		channel TEXT NOT NULL,
		item_id TEXT NOT NULL,
		delivered_at TIMESTAMP NOT NULL,
		PRIMARY KEY (channel, item_id)
	)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create delivered_items table: %w", err)
	}
	return nil
}

func ensureSQLiteDir(dsn string) error {
	if strings.HasPrefix(dsn, "file:") {
		dsn = strings.TrimPrefix(dsn, "file:")
		if idx := strings.IndexRune(dsn, '?'); idx >= 0 {
			dsn = dsn[:idx]
		}
	}
	if dsn == "" || dsn == ":memory:" {
		return nil
	}
	dir := filepath.Dir(dsn)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
