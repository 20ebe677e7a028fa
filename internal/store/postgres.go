// Package store provides storage backends for the FutureMe bot.
//
// This file implements a PostgreSQL-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/futureme-za/futureme/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	// Apply options
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	// Determine DSN (required)
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	slog.Debug("Opening Postgres database connection")
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	// Configure connection pool for better performance
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}
	// Run migrations to ensure tables exist
	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) GetSession(waID string) (*models.Session, error) {
	row := s.db.QueryRow(`SELECT wa_id, history, state, created_at, updated_at FROM sessions WHERE wa_id = $1`, waID)
	sess, err := scanSessionFrom(row.Scan)
	if err != nil {
		if errIsNoRows(err) {
			return nil, nil
		}
		slog.Error("PostgresStore GetSession failed", "error", err, "waID", waID)
		return nil, fmt.Errorf("failed to query session for %s: %w", waID, err)
	}
	return &sess, nil
}

func (s *PostgresStore) SaveSession(sess models.Session) error {
	historyJSON, stateJSON, err := encodeSessionColumns(sess)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO sessions (wa_id, history, state, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (wa_id) DO UPDATE SET history = EXCLUDED.history, state = EXCLUDED.state, updated_at = EXCLUDED.updated_at`,
		sess.WaID, historyJSON, stateJSON, sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveSession failed", "error", err, "waID", sess.WaID)
		return fmt.Errorf("failed to save session for %s: %w", sess.WaID, err)
	}
	slog.Debug("PostgresStore SaveSession succeeded", "waID", sess.WaID, "historyLen", len(sess.History))
	return nil
}

func (s *PostgresStore) GetProfile(waID string) (*models.Profile, error) {
	row := s.db.QueryRow(`SELECT wa_id, status, profile_data, last_notified_at, completed_at, deleted_at, created_at, updated_at FROM profiles WHERE wa_id = $1`, waID)
	p, err := scanProfileRow(row)
	if err != nil {
		if errIsNoRows(err) {
			return nil, nil
		}
		slog.Error("PostgresStore GetProfile failed", "error", err, "waID", waID)
		return nil, fmt.Errorf("failed to query profile for %s: %w", waID, err)
	}
	return &p, nil
}

func (s *PostgresStore) SaveProfile(p models.Profile) error {
	dataJSON, err := encodeProfileData(p)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO profiles (wa_id, status, profile_data, last_notified_at, completed_at, deleted_at, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (wa_id) DO UPDATE SET status = EXCLUDED.status, profile_data = EXCLUDED.profile_data, last_notified_at = EXCLUDED.last_notified_at, completed_at = EXCLUDED.completed_at, deleted_at = EXCLUDED.deleted_at, updated_at = EXCLUDED.updated_at`,
		p.WaID, p.Status, dataJSON, p.LastNotifiedAt, p.CompletedAt, p.DeletedAt, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveProfile failed", "error", err, "waID", p.WaID)
		return fmt.Errorf("failed to save profile for %s: %w", p.WaID, err)
	}
	slog.Debug("PostgresStore SaveProfile succeeded", "waID", p.WaID, "status", p.Status)
	return nil
}

func (s *PostgresStore) ListIdleProfiles(status models.ProfileStatus, cutoff time.Time) ([]models.Profile, error) {
	rows, err := s.db.Query(`SELECT wa_id, status, profile_data, last_notified_at, completed_at, deleted_at, created_at, updated_at FROM profiles
		WHERE status = $1 AND (last_notified_at IS NULL OR last_notified_at <= $2)`, status, cutoff)
	if err != nil {
		slog.Error("PostgresStore ListIdleProfiles query failed", "error", err, "status", status)
		return nil, fmt.Errorf("failed to query idle profiles: %w", err)
	}
	defer rows.Close()

	var profiles []models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			slog.Error("PostgresStore ListIdleProfiles scan failed", "error", err)
			return nil, err
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore ListIdleProfiles rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate profile rows: %w", err)
	}
	slog.Debug("PostgresStore ListIdleProfiles succeeded", "status", status, "count", len(profiles))
	return profiles, nil
}

func (s *PostgresStore) MarkProfileNotified(waID string, at time.Time) error {
	res, err := s.db.Exec(`UPDATE profiles SET last_notified_at = $1, updated_at = $2 WHERE wa_id = $3`, at, at, waID)
	if err != nil {
		slog.Error("PostgresStore MarkProfileNotified failed", "error", err, "waID", waID)
		return fmt.Errorf("failed to mark profile notified for %s: %w", waID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("mark profile notified for %s: %w", waID, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) GetDraftApplication(waID string) (*models.Application, error) {
	row := s.db.QueryRow(`SELECT `+applicationColumns+` FROM applications WHERE wa_id = $1 AND status = $2 ORDER BY created_at DESC LIMIT 1`,
		waID, models.ApplicationStatusDraft)
	a, err := scanApplicationRow(row)
	if err != nil {
		if errIsNoRows(err) {
			return nil, nil
		}
		slog.Error("PostgresStore GetDraftApplication failed", "error", err, "waID", waID)
		return nil, fmt.Errorf("failed to query draft application for %s: %w", waID, err)
	}
	return &a, nil
}

func (s *PostgresStore) GetLatestApplication(waID string) (*models.Application, error) {
	row := s.db.QueryRow(`SELECT `+applicationColumns+` FROM applications WHERE wa_id = $1 ORDER BY updated_at DESC LIMIT 1`, waID)
	a, err := scanApplicationRow(row)
	if err != nil {
		if errIsNoRows(err) {
			return nil, nil
		}
		slog.Error("PostgresStore GetLatestApplication failed", "error", err, "waID", waID)
		return nil, fmt.Errorf("failed to query latest application for %s: %w", waID, err)
	}
	return &a, nil
}

func (s *PostgresStore) CreateApplication(a models.Application) error {
	matchedJSON, err := encodeMatchedBursaries(a)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO applications (`+applicationColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		a.ID, a.WaID, a.Status, a.CurrentStep, a.Version,
		nilIfEmpty(a.FullName), nilIfEmpty(a.Email), nilIfEmpty(a.Province), a.IsSACitizen,
		nilIfEmpty(a.AcademicLevel), nilIfEmpty(a.FieldOfStudy), a.AcademicAverage, a.HouseholdIncome,
		nilIfEmpty(a.Motivation), a.EligibilityScore, nilIfEmpty(a.ApplicationRef), matchedJSON,
		a.SubmittedAt, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore CreateApplication failed", "error", err, "waID", a.WaID, "id", a.ID)
		return fmt.Errorf("failed to insert application for %s: %w", a.WaID, err)
	}
	slog.Debug("PostgresStore CreateApplication succeeded", "waID", a.WaID, "id", a.ID)
	return nil
}

func (s *PostgresStore) UpdateApplication(a models.Application) (*models.Application, error) {
	matchedJSON, err := encodeMatchedBursaries(a)
	if err != nil {
		return nil, err
	}
	res, err := s.db.Exec(`UPDATE applications SET status = $1, current_step = $2, version = version + 1,
		full_name = $3, email = $4, province = $5, is_sa_citizen = $6, academic_level = $7, field_of_study = $8,
		academic_average = $9, household_income = $10, motivation = $11, eligibility_score = $12, application_ref = $13,
		matched_bursaries = $14, submitted_at = $15, updated_at = $16
		WHERE id = $17 AND version = $18`,
		a.Status, a.CurrentStep,
		nilIfEmpty(a.FullName), nilIfEmpty(a.Email), nilIfEmpty(a.Province), a.IsSACitizen,
		nilIfEmpty(a.AcademicLevel), nilIfEmpty(a.FieldOfStudy), a.AcademicAverage, a.HouseholdIncome,
		nilIfEmpty(a.Motivation), a.EligibilityScore, nilIfEmpty(a.ApplicationRef), matchedJSON,
		a.SubmittedAt, a.UpdatedAt, a.ID, a.Version)
	if err != nil {
		slog.Error("PostgresStore UpdateApplication failed", "error", err, "id", a.ID)
		return nil, fmt.Errorf("failed to update application %s: %w", a.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read update result for application %s: %w", a.ID, err)
	}
	if n == 0 {
		slog.Warn("PostgresStore UpdateApplication version conflict", "id", a.ID, "version", a.Version)
		return nil, fmt.Errorf("update application %s at version %d: %w", a.ID, a.Version, ErrVersionConflict)
	}
	a.Version++
	slog.Debug("PostgresStore UpdateApplication succeeded", "id", a.ID, "version", a.Version)
	return &a, nil
}

func (s *PostgresStore) AddSuggestion(sg models.Suggestion) error {
	_, err := s.db.Exec(`INSERT INTO suggestions (id, user_wa_id, suggestion_text, created_at) VALUES ($1, $2, $3, $4)`,
		sg.ID, sg.UserWaID, sg.SuggestionText, sg.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore AddSuggestion failed", "error", err, "waID", sg.UserWaID)
		return fmt.Errorf("failed to insert suggestion for %s: %w", sg.UserWaID, err)
	}
	return nil
}

func (s *PostgresStore) GetSuggestions() ([]models.Suggestion, error) {
	rows, err := s.db.Query(`SELECT id, user_wa_id, suggestion_text, created_at FROM suggestions ORDER BY created_at ASC`)
	if err != nil {
		slog.Error("PostgresStore GetSuggestions query failed", "error", err)
		return nil, fmt.Errorf("failed to query suggestions: %w", err)
	}
	defer rows.Close()

	var suggestions []models.Suggestion
	for rows.Next() {
		var sg models.Suggestion
		if err := rows.Scan(&sg.ID, &sg.UserWaID, &sg.SuggestionText, &sg.CreatedAt); err != nil {
			slog.Error("PostgresStore GetSuggestions scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan suggestion row: %w", err)
		}
		suggestions = append(suggestions, sg)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore GetSuggestions rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate suggestion rows: %w", err)
	}
	return suggestions, nil
}

// Ping verifies the database connection.
func (s *PostgresStore) Ping() error {
	return s.db.Ping()
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres store")
	return s.db.Close()
}
