package observe

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps observations in the seen_ips table.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS seen_ips (
			ip_address TEXT PRIMARY KEY,
			last_seen INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Record(ctx context.Context, ip string, seenAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO seen_ips (ip_address, last_seen) VALUES (?, ?)
		ON CONFLICT(ip_address) DO UPDATE SET last_seen = MAX(last_seen, excluded.last_seen)
	`, ip, seenAt.Unix())
	if err != nil {
		return fmt.Errorf("record %s: %w", ip, err)
	}
	return nil
}

func (s *SQLiteStore) RecentlySeen(ctx context.Context, ip string, window time.Duration) (bool, error) {
	var lastSeen int64
	err := s.db.QueryRowContext(ctx, `
		SELECT last_seen FROM seen_ips WHERE ip_address = ?
	`, ip).Scan(&lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup %s: %w", ip, err)
	}
	return within(time.Unix(lastSeen, 0), s.now(), window), nil
}

// Prune drops observations older than before.
func (s *SQLiteStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM seen_ips WHERE last_seen < ?
	`, before.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune observations: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		log.Warn("Failed to get rows affected during prune", "error", err)
		return 0, nil
	}
	log.Debug("Pruned observations", "count", n)
	return n, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
