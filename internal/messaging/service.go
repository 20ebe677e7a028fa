// Package messaging abstracts outbound WhatsApp delivery for the FutureMe bot.
//
// Webhook turns reply synchronously in the HTTP response; this package
// carries server-initiated sends, primarily the idle-user notification job.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
)

// ErrServiceStopped is returned when a send is attempted after Stop.
var ErrServiceStopped = errors.New("messaging service is stopped")

// phoneNumberRegex matches everything that is not a digit.
var phoneNumberRegex = regexp.MustCompile(`[^0-9]`)

// minPhoneDigits is the minimum digit count for a canonical recipient.
const minPhoneDigits = 6

// Service defines a pluggable message delivery abstraction.
type Service interface {
	// ValidateAndCanonicalizeRecipient validates and canonicalizes a recipient
	// identifier. Each backend applies its own rules.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendMessage sends a message to a recipient.
	SendMessage(ctx context.Context, to string, body string) error

	// Stop stops background processing and cleans up resources.
	Stop() error
}

// canonicalizePhone strips non-digits and validates the remaining number.
// Shared by backends that address recipients by phone number.
func canonicalizePhone(recipient string) (string, error) {
	if recipient == "" {
		return "", fmt.Errorf("recipient cannot be empty")
	}
	canonical := phoneNumberRegex.ReplaceAllString(recipient, "")
	if canonical == "" {
		return "", fmt.Errorf("invalid phone number: no digits found in recipient %q", recipient)
	}
	if len(canonical) < minPhoneDigits {
		return "", fmt.Errorf("invalid phone number: %q is too short (minimum %d digits required)", canonical, minPhoneDigits)
	}
	if recipient != canonical {
		slog.Debug("messaging canonicalized recipient", "original", recipient, "canonical", canonical)
	}
	return canonical, nil
}

// MockService records sends for tests.
type MockService struct {
	mu      sync.Mutex
	Sent    []MockMessage
	SendErr error
}

// MockMessage is one recorded send.
type MockMessage struct {
	To   string
	Body string
}

var _ Service = (*MockService)(nil)

func NewMockService() *MockService {
	return &MockService{}
}

func (m *MockService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhone(recipient)
}

func (m *MockService) SendMessage(_ context.Context, to string, body string) error {
	if m.SendErr != nil {
		return m.SendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, MockMessage{To: to, Body: body})
	return nil
}

func (m *MockService) Stop() error { return nil }

// Messages returns a copy of the recorded sends.
func (m *MockService) Messages() []MockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockMessage(nil), m.Sent...)
}
