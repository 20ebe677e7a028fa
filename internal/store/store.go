// Package store provides storage backends for the FutureMe bot.
//
// It defines the Store interface over sessions, profiles, bursary
// applications, and suggestions, with PostgreSQL, SQLite, and in-memory
// implementations selected by DSN.
package store

import (
	"errors"
	"strings"
	"time"

	"github.com/futureme-za/futureme/internal/models"
)

// Sentinel errors callers branch on.
var (
	// ErrVersionConflict indicates an optimistic-concurrency check failed:
	// the row was modified by a concurrent turn since it was read.
	ErrVersionConflict = errors.New("application version conflict")
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("record not found")
)

// Store is the persistence interface used by the agents and API layer.
type Store interface {
	// GetSession returns the session for a waId, or nil if none exists.
	GetSession(waID string) (*models.Session, error)
	// SaveSession inserts or replaces the session row for its waId.
	SaveSession(s models.Session) error

	// GetProfile returns the profile for a waId, or nil if none exists.
	GetProfile(waID string) (*models.Profile, error)
	// SaveProfile inserts or replaces the profile row for its waId.
	SaveProfile(p models.Profile) error
	// ListIdleProfiles returns profiles with the given status whose
	// lastNotifiedAt is null or at/before the cutoff.
	ListIdleProfiles(status models.ProfileStatus, cutoff time.Time) ([]models.Profile, error)
	// MarkProfileNotified stamps lastNotifiedAt for a waId.
	MarkProfileNotified(waID string, at time.Time) error

	// GetDraftApplication returns the single draft application for a waId,
	// or nil if none exists.
	GetDraftApplication(waID string) (*models.Application, error)
	// GetLatestApplication returns the most recently updated application for
	// a waId in any status, or nil if none exists.
	GetLatestApplication(waID string) (*models.Application, error)
	// CreateApplication inserts a new application row.
	CreateApplication(a models.Application) error
	// UpdateApplication writes an application back, checking its Version
	// column and bumping it. Returns ErrVersionConflict if the stored
	// version no longer matches.
	UpdateApplication(a models.Application) (*models.Application, error)

	// AddSuggestion appends a suggestion row.
	AddSuggestion(s models.Suggestion) error
	// GetSuggestions lists all suggestions, oldest first.
	GetSuggestions() ([]models.Suggestion, error)

	// Ping verifies the backend is reachable.
	Ping() error
	// Close releases the underlying connection, if any.
	Close() error
}

// Opts holds configuration options for store construction.
type Opts struct {
	DSN string
}

// Option defines a configuration option for a store backend.
type Option func(*Opts)

// WithPostgresDSN sets a PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithSQLiteDSN sets a SQLite file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType classifies a DSN as "postgres" or "sqlite". PostgreSQL DSNs
// use a URL scheme or key=value form; everything else is treated as a SQLite
// file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}
