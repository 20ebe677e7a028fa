// Package store provides storage backends for the FutureMe bot.
//
// This file implements an SQLite-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/futureme-za/futureme/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	// Apply options
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	// Determine DSN (required)
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	// Ensure the directory exists
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	slog.Debug("Opening SQLite database connection")
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	// Run migrations to ensure tables exist
	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) GetSession(waID string) (*models.Session, error) {
	row := s.db.QueryRow(`SELECT wa_id, history, state, created_at, updated_at FROM sessions WHERE wa_id = ?`, waID)
	sess, err := scanSessionFrom(row.Scan)
	if err != nil {
		if errIsNoRows(err) {
			return nil, nil
		}
		slog.Error("SQLiteStore GetSession failed", "error", err, "waID", waID)
		return nil, fmt.Errorf("failed to query session for %s: %w", waID, err)
	}
	return &sess, nil
}

func (s *SQLiteStore) SaveSession(sess models.Session) error {
	historyJSON, stateJSON, err := encodeSessionColumns(sess)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO sessions (wa_id, history, state, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(wa_id) DO UPDATE SET history = excluded.history, state = excluded.state, updated_at = excluded.updated_at`,
		sess.WaID, historyJSON, stateJSON, sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveSession failed", "error", err, "waID", sess.WaID)
		return fmt.Errorf("failed to save session for %s: %w", sess.WaID, err)
	}
	slog.Debug("SQLiteStore SaveSession succeeded", "waID", sess.WaID, "historyLen", len(sess.History))
	return nil
}

func (s *SQLiteStore) GetProfile(waID string) (*models.Profile, error) {
	row := s.db.QueryRow(`SELECT wa_id, status, profile_data, last_notified_at, completed_at, deleted_at, created_at, updated_at FROM profiles WHERE wa_id = ?`, waID)
	p, err := scanProfileRow(row)
	if err != nil {
		if errIsNoRows(err) {
			return nil, nil
		}
		slog.Error("SQLiteStore GetProfile failed", "error", err, "waID", waID)
		return nil, fmt.Errorf("failed to query profile for %s: %w", waID, err)
	}
	return &p, nil
}

func (s *SQLiteStore) SaveProfile(p models.Profile) error {
	dataJSON, err := encodeProfileData(p)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO profiles (wa_id, status, profile_data, last_notified_at, completed_at, deleted_at, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(wa_id) DO UPDATE SET status = excluded.status, profile_data = excluded.profile_data, last_notified_at = excluded.last_notified_at, completed_at = excluded.completed_at, deleted_at = excluded.deleted_at, updated_at = excluded.updated_at`,
		p.WaID, p.Status, dataJSON, p.LastNotifiedAt, p.CompletedAt, p.DeletedAt, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveProfile failed", "error", err, "waID", p.WaID)
		return fmt.Errorf("failed to save profile for %s: %w", p.WaID, err)
	}
	slog.Debug("SQLiteStore SaveProfile succeeded", "waID", p.WaID, "status", p.Status)
	return nil
}

func (s *SQLiteStore) ListIdleProfiles(status models.ProfileStatus, cutoff time.Time) ([]models.Profile, error) {
	rows, err := s.db.Query(`SELECT wa_id, status, profile_data, last_notified_at, completed_at, deleted_at, created_at, updated_at FROM profiles
		WHERE status = ? AND (last_notified_at IS NULL OR last_notified_at <= ?)`, status, cutoff)
	if err != nil {
		slog.Error("SQLiteStore ListIdleProfiles query failed", "error", err, "status", status)
		return nil, fmt.Errorf("failed to query idle profiles: %w", err)
	}
	defer rows.Close()

	var profiles []models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			slog.Error("SQLiteStore ListIdleProfiles scan failed", "error", err)
			return nil, err
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore ListIdleProfiles rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate profile rows: %w", err)
	}
	slog.Debug("SQLiteStore ListIdleProfiles succeeded", "status", status, "count", len(profiles))
	return profiles, nil
}

func (s *SQLiteStore) MarkProfileNotified(waID string, at time.Time) error {
	res, err := s.db.Exec(`UPDATE profiles SET last_notified_at = ?, updated_at = ? WHERE wa_id = ?`, at, at, waID)
	if err != nil {
		slog.Error("SQLiteStore MarkProfileNotified failed", "error", err, "waID", waID)
		return fmt.Errorf("failed to mark profile notified for %s: %w", waID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("mark profile notified for %s: %w", waID, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) GetDraftApplication(waID string) (*models.Application, error) {
	row := s.db.QueryRow(`SELECT `+applicationColumns+` FROM applications WHERE wa_id = ? AND status = ? ORDER BY created_at DESC LIMIT 1`,
		waID, models.ApplicationStatusDraft)
	a, err := scanApplicationRow(row)
	if err != nil {
		if errIsNoRows(err) {
			return nil, nil
		}
		slog.Error("SQLiteStore GetDraftApplication failed", "error", err, "waID", waID)
		return nil, fmt.Errorf("failed to query draft application for %s: %w", waID, err)
	}
	return &a, nil
}

func (s *SQLiteStore) GetLatestApplication(waID string) (*models.Application, error) {
	row := s.db.QueryRow(`SELECT `+applicationColumns+` FROM applications WHERE wa_id = ? ORDER BY updated_at DESC LIMIT 1`, waID)
	a, err := scanApplicationRow(row)
	if err != nil {
		if errIsNoRows(err) {
			return nil, nil
		}
		slog.Error("SQLiteStore GetLatestApplication failed", "error", err, "waID", waID)
		return nil, fmt.Errorf("failed to query latest application for %s: %w", waID, err)
	}
	return &a, nil
}

func (s *SQLiteStore) CreateApplication(a models.Application) error {
	matchedJSON, err := encodeMatchedBursaries(a)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO applications (`+applicationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.WaID, a.Status, a.CurrentStep, a.Version,
		nilIfEmpty(a.FullName), nilIfEmpty(a.Email), nilIfEmpty(a.Province), a.IsSACitizen,
		nilIfEmpty(a.AcademicLevel), nilIfEmpty(a.FieldOfStudy), a.AcademicAverage, a.HouseholdIncome,
		nilIfEmpty(a.Motivation), a.EligibilityScore, nilIfEmpty(a.ApplicationRef), matchedJSON,
		a.SubmittedAt, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore CreateApplication failed", "error", err, "waID", a.WaID, "id", a.ID)
		return fmt.Errorf("failed to insert application for %s: %w", a.WaID, err)
	}
	slog.Debug("SQLiteStore CreateApplication succeeded", "waID", a.WaID, "id", a.ID)
	return nil
}

func (s *SQLiteStore) UpdateApplication(a models.Application) (*models.Application, error) {
	matchedJSON, err := encodeMatchedBursaries(a)
	if err != nil {
		return nil, err
	}
	res, err := s.db.Exec(`UPDATE applications SET status = ?, current_step = ?, version = version + 1,
		full_name = ?, email = ?, province = ?, is_sa_citizen = ?, academic_level = ?, field_of_study = ?,
		academic_average = ?, household_income = ?, motivation = ?, eligibility_score = ?, application_ref = ?,
		matched_bursaries = ?, submitted_at = ?, updated_at = ?
		WHERE id = ? AND version = ?`,
		a.Status, a.CurrentStep,
		nilIfEmpty(a.FullName), nilIfEmpty(a.Email), nilIfEmpty(a.Province), a.IsSACitizen,
		nilIfEmpty(a.AcademicLevel), nilIfEmpty(a.FieldOfStudy), a.AcademicAverage, a.HouseholdIncome,
		nilIfEmpty(a.Motivation), a.EligibilityScore, nilIfEmpty(a.ApplicationRef), matchedJSON,
		a.SubmittedAt, a.UpdatedAt, a.ID, a.Version)
	if err != nil {
		slog.Error("SQLiteStore UpdateApplication failed", "error", err, "id", a.ID)
		return nil, fmt.Errorf("failed to update application %s: %w", a.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read update result for application %s: %w", a.ID, err)
	}
	if n == 0 {
		slog.Warn("SQLiteStore UpdateApplication version conflict", "id", a.ID, "version", a.Version)
		return nil, fmt.Errorf("update application %s at version %d: %w", a.ID, a.Version, ErrVersionConflict)
	}
	a.Version++
	slog.Debug("SQLiteStore UpdateApplication succeeded", "id", a.ID, "version", a.Version)
	return &a, nil
}

func (s *SQLiteStore) AddSuggestion(sg models.Suggestion) error {
	_, err := s.db.Exec(`INSERT INTO suggestions (id, user_wa_id, suggestion_text, created_at) VALUES (?, ?, ?, ?)`,
		sg.ID, sg.UserWaID, sg.SuggestionText, sg.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore AddSuggestion failed", "error", err, "waID", sg.UserWaID)
		return fmt.Errorf("failed to insert suggestion for %s: %w", sg.UserWaID, err)
	}
	return nil
}

func (s *SQLiteStore) GetSuggestions() ([]models.Suggestion, error) {
	rows, err := s.db.Query(`SELECT id, user_wa_id, suggestion_text, created_at FROM suggestions ORDER BY created_at ASC`)
	if err != nil {
		slog.Error("SQLiteStore GetSuggestions query failed", "error", err)
		return nil, fmt.Errorf("failed to query suggestions: %w", err)
	}
	defer rows.Close()

	var suggestions []models.Suggestion
	for rows.Next() {
		var sg models.Suggestion
		if err := rows.Scan(&sg.ID, &sg.UserWaID, &sg.SuggestionText, &sg.CreatedAt); err != nil {
			slog.Error("SQLiteStore GetSuggestions scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan suggestion row: %w", err)
		}
		suggestions = append(suggestions, sg)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore GetSuggestions rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate suggestion rows: %w", err)
	}
	return suggestions, nil
}

// Ping verifies the database connection.
func (s *SQLiteStore) Ping() error {
	return s.db.Ping()
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite store")
	return s.db.Close()
}
