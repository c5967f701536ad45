// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ashureev/japa-advisor/internal/domain"
)

// Repository persists cached visa requirement lookups.
// Only public, scraped data is stored; user profiles never are.
type Repository interface {
	// GetRequirements returns the cached entry for a country key, or nil if absent.
	GetRequirements(ctx context.Context, country string) (*domain.CachedRequirements, error)

	// UpsertRequirements creates or replaces the cached entry for entry.Country.
	UpsertRequirements(ctx context.Context, entry *domain.CachedRequirements) error

	// DeleteExpiredRequirements removes entries fetched more than ttl ago.
	DeleteExpiredRequirements(ctx context.Context, ttl time.Duration) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
