package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/futureme-za/futureme/internal/models"
)

// errIsNoRows reports whether err wraps sql.ErrNoRows. Absent rows are
// returned to callers as nil values, not errors.
func errIsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// applicationColumns is the fixed column order used by every application
// query. Scan helpers below depend on it.
const applicationColumns = `id, wa_id, status, current_step, version, full_name, email, province, is_sa_citizen, academic_level, field_of_study, academic_average, household_income, motivation, eligibility_score, application_ref, matched_bursaries, submitted_at, created_at, updated_at`

// scanApplication scans an Application from sql.Rows.
func scanApplication(rows *sql.Rows) (models.Application, error) {
	return scanApplicationFrom(rows.Scan)
}

// scanApplicationRow scans an Application from a single sql.Row.
func scanApplicationRow(row *sql.Row) (models.Application, error) {
	return scanApplicationFrom(row.Scan)
}

func scanApplicationFrom(scan func(...interface{}) error) (models.Application, error) {
	var a models.Application
	var fullName, email, province, level, field, motivation, ref sql.NullString
	var matchedJSON string
	var submittedAt sql.NullTime
	err := scan(
		&a.ID, &a.WaID, &a.Status, &a.CurrentStep, &a.Version,
		&fullName, &email, &province, &a.IsSACitizen, &level, &field,
		&a.AcademicAverage, &a.HouseholdIncome, &motivation,
		&a.EligibilityScore, &ref, &matchedJSON, &submittedAt,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return a, fmt.Errorf("scan application failed: %w", err)
	}
	a.FullName = fullName.String
	a.Email = email.String
	a.Province = province.String
	a.AcademicLevel = level.String
	a.FieldOfStudy = field.String
	a.Motivation = motivation.String
	a.ApplicationRef = ref.String
	if submittedAt.Valid {
		a.SubmittedAt = &submittedAt.Time
	}
	if matchedJSON != "" {
		if err := json.Unmarshal([]byte(matchedJSON), &a.MatchedBursaries); err != nil {
			return a, fmt.Errorf("failed to decode matched bursaries for %s: %w", a.ID, err)
		}
	}
	return a, nil
}

// scanProfile scans a Profile from sql.Rows.
func scanProfile(rows *sql.Rows) (models.Profile, error) {
	return scanProfileFrom(rows.Scan)
}

// scanProfileRow scans a Profile from a single sql.Row.
func scanProfileRow(row *sql.Row) (models.Profile, error) {
	return scanProfileFrom(row.Scan)
}

func scanProfileFrom(scan func(...interface{}) error) (models.Profile, error) {
	var p models.Profile
	var dataJSON string
	var lastNotified, completed, deleted sql.NullTime
	err := scan(
		&p.WaID, &p.Status, &dataJSON, &lastNotified, &completed, &deleted,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return p, fmt.Errorf("scan profile failed: %w", err)
	}
	if dataJSON != "" {
		if err := json.Unmarshal([]byte(dataJSON), &p.ProfileData); err != nil {
			return p, fmt.Errorf("failed to decode profile data for %s: %w", p.WaID, err)
		}
	}
	if lastNotified.Valid {
		p.LastNotifiedAt = &lastNotified.Time
	}
	if completed.Valid {
		p.CompletedAt = &completed.Time
	}
	if deleted.Valid {
		p.DeletedAt = &deleted.Time
	}
	return p, nil
}

// scanSessionFrom decodes a session row's JSON columns.
func scanSessionFrom(scan func(...interface{}) error) (models.Session, error) {
	var s models.Session
	var historyJSON, stateJSON string
	err := scan(&s.WaID, &historyJSON, &stateJSON, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return s, fmt.Errorf("scan session failed: %w", err)
	}
	if historyJSON != "" {
		if err := json.Unmarshal([]byte(historyJSON), &s.History); err != nil {
			return s, fmt.Errorf("failed to decode session history for %s: %w", s.WaID, err)
		}
	}
	if stateJSON != "" {
		if err := json.Unmarshal([]byte(stateJSON), &s.State); err != nil {
			return s, fmt.Errorf("failed to decode session state for %s: %w", s.WaID, err)
		}
	}
	return s, nil
}

// encodeSessionColumns marshals the session's JSON columns for storage.
func encodeSessionColumns(s models.Session) (historyJSON, stateJSON string, err error) {
	history := s.History
	if history == nil {
		history = []models.ChatMessage{}
	}
	hb, err := json.Marshal(history)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode session history for %s: %w", s.WaID, err)
	}
	sb, err := json.Marshal(s.State)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode session state for %s: %w", s.WaID, err)
	}
	return string(hb), string(sb), nil
}

// encodeProfileData marshals the profile's answer set for storage.
func encodeProfileData(p models.Profile) (string, error) {
	b, err := json.Marshal(p.ProfileData)
	if err != nil {
		return "", fmt.Errorf("failed to encode profile data for %s: %w", p.WaID, err)
	}
	return string(b), nil
}

// encodeMatchedBursaries marshals an application's match list for storage.
func encodeMatchedBursaries(a models.Application) (string, error) {
	matched := a.MatchedBursaries
	if matched == nil {
		matched = []models.BursaryMatch{}
	}
	b, err := json.Marshal(matched)
	if err != nil {
		return "", fmt.Errorf("failed to encode matched bursaries for %s: %w", a.ID, err)
	}
	return string(b), nil
}
