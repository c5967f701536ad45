package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ashureev/japa-advisor/internal/domain"
	"github.com/ashureev/japa-advisor/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	writeMu sync.Mutex // serializes writers to keep SQLITE_BUSY rare
	now     func() time.Time
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	return newSQLiteStore(dbPath)
}

func newSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL keeps readers unblocked while the scraper refreshes entries.
	dsn := "file:" + dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db, now: time.Now}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS visa_requirements (
		country TEXT PRIMARY KEY,
		payload_json TEXT NOT NULL,
		used_fallback INTEGER NOT NULL DEFAULT 0,
		fetched_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_visa_requirements_fetched ON visa_requirements(fetched_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetRequirements retrieves the cached requirements for a country key.
func (s *SQLiteStore) GetRequirements(ctx context.Context, country string) (*domain.CachedRequirements, error) {
	query := `
		SELECT country, payload_json, used_fallback, fetched_at
		FROM visa_requirements WHERE country = ?`

	var (
		entry        domain.CachedRequirements
		payload      string
		usedFallback int
		fetchedAt    int64
	)
	err := s.db.QueryRowContext(ctx, query, country).Scan(&entry.Country, &payload, &usedFallback, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan requirements row: %w", err)
	}

	if err := json.Unmarshal([]byte(payload), &entry.Requirements); err != nil {
		return nil, fmt.Errorf("decode requirements payload for %s: %w", country, err)
	}
	entry.UsedFallback = usedFallback != 0
	entry.FetchedAt = time.Unix(fetchedAt, 0)

	return &entry, nil
}

// UpsertRequirements creates or replaces a cached entry, retrying on
// SQLite lock contention with exponential backoff.
func (s *SQLiteStore) UpsertRequirements(ctx context.Context, entry *domain.CachedRequirements) error {
	if entry == nil || entry.Country == "" {
		return fmt.Errorf("upsert requirements: country is required")
	}

	payload, err := json.Marshal(entry.Requirements)
	if err != nil {
		return fmt.Errorf("encode requirements payload: %w", err)
	}

	query := `
	INSERT INTO visa_requirements (country, payload_json, used_fallback, fetched_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(country) DO UPDATE SET
		payload_json = excluded.payload_json,
		used_fallback = excluded.used_fallback,
		fetched_at = excluded.fetched_at,
		updated_at = excluded.updated_at`

	fallback := 0
	if entry.UsedFallback {
		fallback = 1
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	const maxRetries = 3
	baseDelay := 50 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		_, err = s.db.ExecContext(ctx, query,
			entry.Country, string(payload), fallback,
			entry.FetchedAt.Unix(), s.now().Unix(),
		)
		if err == nil {
			return nil
		}
		if !shared.IsSQLiteConflictError(err) || i == maxRetries-1 {
			break
		}

		delay := baseDelay * time.Duration(1<<i) // 50ms, 100ms
		slog.Debug("Requirements upsert hit a locked database, retrying",
			"country", entry.Country,
			"attempt", i+1,
			"delay", delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("upsert requirements for %s: %w", entry.Country, ctx.Err())
		}
	}

	return fmt.Errorf("upsert requirements for %s: %w", entry.Country, err)
}

// DeleteExpiredRequirements removes entries older than ttl.
func (s *SQLiteStore) DeleteExpiredRequirements(ctx context.Context, ttl time.Duration) (int64, error) {
	cutoff := s.now().Add(-ttl).Unix()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM visa_requirements WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired requirements: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
