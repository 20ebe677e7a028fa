package messaging

import (
	"context"
	"log/slog"
	"sync"

	"github.com/futureme-za/futureme/internal/whatsapp"
)

// WhatsAppService implements the Service interface using a linked whatsmeow
// device.
type WhatsAppService struct {
	client  whatsapp.WhatsAppSender
	mu      sync.RWMutex
	stopped bool
}

var _ Service = (*WhatsAppService)(nil)

// NewWhatsAppService creates a WhatsAppService around a whatsmeow client.
func NewWhatsAppService(client whatsapp.WhatsAppSender) *WhatsAppService {
	return &WhatsAppService{client: client}
}

// ValidateAndCanonicalizeRecipient validates and canonicalizes a WhatsApp
// phone number by stripping non-digits. The JID suffix is applied at send
// time by the underlying client.
func (s *WhatsAppService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhone(recipient)
}

// SendMessage sends a message via the linked device.
func (s *WhatsAppService) SendMessage(ctx context.Context, to string, body string) error {
	s.mu.RLock()
	if s.stopped {
		s.mu.RUnlock()
		return ErrServiceStopped
	}
	s.mu.RUnlock()

	canonicalTo, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("WhatsAppService SendMessage validation error", "error", err, "to", to)
		return err
	}

	return s.client.SendMessage(ctx, canonicalTo, body)
}

// Stop disconnects the device if the client supports it.
func (s *WhatsAppService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true
	if c, ok := s.client.(*whatsapp.Client); ok {
		c.Disconnect()
	}
	return nil
}
