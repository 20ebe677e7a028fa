// Package store provides storage backends for the FutureMe bot.
//
// This file implements an in-memory store used by tests and local development.
package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/futureme-za/futureme/internal/models"
)

// InMemoryStore keeps all rows in process memory. It implements the same
// interface as the SQL backends, including the version check on
// UpdateApplication.
type InMemoryStore struct {
	mu           sync.RWMutex
	sessions     map[string]models.Session
	profiles     map[string]models.Profile
	applications map[string]models.Application
	suggestions  []models.Suggestion
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions:     make(map[string]models.Session),
		profiles:     make(map[string]models.Profile),
		applications: make(map[string]models.Application),
	}
}

func (s *InMemoryStore) GetSession(waID string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[waID]
	if !ok {
		return nil, nil
	}
	sess.History = append([]models.ChatMessage(nil), sess.History...)
	return &sess, nil
}

func (s *InMemoryStore) SaveSession(sess models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.History = append([]models.ChatMessage(nil), sess.History...)
	s.sessions[sess.WaID] = sess
	return nil
}

func (s *InMemoryStore) GetProfile(waID string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[waID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *InMemoryStore) SaveProfile(p models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.WaID] = p
	return nil
}

func (s *InMemoryStore) ListIdleProfiles(status models.ProfileStatus, cutoff time.Time) ([]models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Profile
	for _, p := range s.profiles {
		if p.Status != status {
			continue
		}
		if p.LastNotifiedAt != nil && p.LastNotifiedAt.After(cutoff) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *InMemoryStore) MarkProfileNotified(waID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[waID]
	if !ok {
		return fmt.Errorf("mark profile notified for %s: %w", waID, ErrNotFound)
	}
	notified := at
	p.LastNotifiedAt = &notified
	p.UpdatedAt = at
	s.profiles[waID] = p
	return nil
}

func (s *InMemoryStore) GetDraftApplication(waID string) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.Application
	for id := range s.applications {
		a := s.applications[id]
		if a.WaID != waID || a.Status != models.ApplicationStatusDraft {
			continue
		}
		if latest == nil || a.CreatedAt.After(latest.CreatedAt) {
			copied := a
			copied.MatchedBursaries = append([]models.BursaryMatch(nil), a.MatchedBursaries...)
			latest = &copied
		}
	}
	return latest, nil
}

func (s *InMemoryStore) GetLatestApplication(waID string) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.Application
	for id := range s.applications {
		a := s.applications[id]
		if a.WaID != waID {
			continue
		}
		if latest == nil || a.UpdatedAt.After(latest.UpdatedAt) {
			copied := a
			copied.MatchedBursaries = append([]models.BursaryMatch(nil), a.MatchedBursaries...)
			latest = &copied
		}
	}
	return latest, nil
}

func (s *InMemoryStore) CreateApplication(a models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.applications[a.ID]; exists {
		return fmt.Errorf("application %s already exists", a.ID)
	}
	a.MatchedBursaries = append([]models.BursaryMatch(nil), a.MatchedBursaries...)
	s.applications[a.ID] = a
	return nil
}

func (s *InMemoryStore) UpdateApplication(a models.Application) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.applications[a.ID]
	if !ok {
		return nil, fmt.Errorf("update application %s: %w", a.ID, ErrNotFound)
	}
	if stored.Version != a.Version {
		return nil, fmt.Errorf("update application %s at version %d: %w", a.ID, a.Version, ErrVersionConflict)
	}
	a.Version++
	a.MatchedBursaries = append([]models.BursaryMatch(nil), a.MatchedBursaries...)
	s.applications[a.ID] = a
	return &a, nil
}

func (s *InMemoryStore) AddSuggestion(sg models.Suggestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suggestions = append(s.suggestions, sg)
	return nil
}

func (s *InMemoryStore) GetSuggestions() ([]models.Suggestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Suggestion(nil), s.suggestions...), nil
}

func (s *InMemoryStore) Ping() error {
	return nil
}

func (s *InMemoryStore) Close() error {
	return nil
}
