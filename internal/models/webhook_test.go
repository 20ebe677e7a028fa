package models

import (
	"errors"
	"testing"
)

func TestParseWebhookPayloadManyChat(t *testing.T) {
	body := []byte(`{"subscriber_id":"27821234567","text":"Hi there","first_name":"Thandi","last_name":"Mokoena"}`)

	in, err := ParseWebhookPayload(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.Source != SourceManyChat {
		t.Errorf("expected manychat source, got %s", in.Source)
	}
	if in.WaID != "27821234567" || in.Text != "Hi there" || in.FirstName != "Thandi" {
		t.Errorf("unexpected normalization: %+v", in)
	}
}

func TestParseWebhookPayloadWhatsAppCloud(t *testing.T) {
	body := []byte(`{
		"contact": {"wa_id": "27829876543", "name": "Sipho Dlamini"},
		"messages": [{"id": "wamid.1", "type": "text", "text": {"body": "I need a bursary"}}]
	}`)

	in, err := ParseWebhookPayload(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.Source != SourceWhatsAppCloud {
		t.Errorf("expected whatsapp_cloud source, got %s", in.Source)
	}
	if in.WaID != "27829876543" || in.Text != "I need a bursary" {
		t.Errorf("unexpected normalization: %+v", in)
	}
	if in.MessageID != "wamid.1" {
		t.Errorf("expected message id carried over, got %q", in.MessageID)
	}
	if in.FirstName != "Sipho" {
		t.Errorf("expected first name from contact name, got %q", in.FirstName)
	}
}

func TestParseWebhookPayloadImagePlaceholder(t *testing.T) {
	body := []byte(`{
		"contact": {"wa_id": "27829876543"},
		"messages": [{"id": "wamid.2", "type": "image", "image": {"id": "media-1"}}]
	}`)

	in, err := ParseWebhookPayload(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.Text != ImagePlaceholder {
		t.Errorf("expected image placeholder, got %q", in.Text)
	}
}

func TestParseWebhookPayloadUnrecognized(t *testing.T) {
	for _, body := range []string{
		`not json at all`,
		`{}`,
		`{"somebody":"else"}`,
		`{"contact": {"name": "no wa_id"}}`,
	} {
		_, err := ParseWebhookPayload([]byte(body))
		if !errors.Is(err, ErrUnrecognizedPayload) {
			t.Errorf("ParseWebhookPayload(%q) error = %v, want ErrUnrecognizedPayload", body, err)
		}
	}
}

func TestReplyEnvelopes(t *testing.T) {
	mc := NewManyChatReply("hello")
	if mc.Version != "v2" {
		t.Errorf("expected v2 envelope, got %s", mc.Version)
	}
	if len(mc.Content.Messages) != 1 || mc.Content.Messages[0].Text != "hello" {
		t.Errorf("unexpected manychat content: %+v", mc.Content)
	}
	if mc.Content.QuickReplies == nil {
		t.Error("quick_replies must encode as an empty array, not null")
	}

	wa := NewWhatsAppReply("27821234567", "hello")
	if wa.MessagingProduct != "whatsapp" || wa.To != "27821234567" || wa.Text.Body != "hello" {
		t.Errorf("unexpected whatsapp reply: %+v", wa)
	}
}
