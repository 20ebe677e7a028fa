// Package models defines the inbound webhook payload shapes and the reply
// encodings for both supported chat platforms.
package models

import (
	"encoding/json"
	"errors"
	"strings"
)

// WebhookSource identifies which platform shape an inbound payload matched.
type WebhookSource string

const (
	SourceManyChat      WebhookSource = "manychat"
	SourceWhatsAppCloud WebhookSource = "whatsapp_cloud"
)

// Message type placeholders used when the inbound message carries no text.
const (
	ImagePlaceholder             = "[IMAGE_UPLOAD]"
	UnknownAttachmentPlaceholder = "[UNKNOWN_ATTACHMENT]"
)

// ErrUnrecognizedPayload is returned when a webhook body matches neither
// platform shape.
var ErrUnrecognizedPayload = errors.New("unrecognized webhook payload shape")

// ManyChatPayload is the inbound shape posted by ManyChat.
type ManyChatPayload struct {
	SubscriberID string `json:"subscriber_id"`
	Text         string `json:"text"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
}

// CloudContact identifies the sender in a WhatsApp Cloud API payload.
type CloudContact struct {
	WaID string `json:"wa_id"`
	Name string `json:"name,omitempty"`
}

// CloudText carries the body of a text-type Cloud API message.
type CloudText struct {
	Body string `json:"body"`
}

// CloudImage carries the media id of an image-type Cloud API message.
type CloudImage struct {
	ID string `json:"id"`
}

// CloudMessage is one message in a WhatsApp Cloud API payload.
type CloudMessage struct {
	ID    string      `json:"id"`
	Type  string      `json:"type"`
	Text  *CloudText  `json:"text,omitempty"`
	Image *CloudImage `json:"image,omitempty"`
}

// WhatsAppCloudPayload is the inbound shape posted by the WhatsApp Cloud API.
type WhatsAppCloudPayload struct {
	Contact  *CloudContact  `json:"contact"`
	Messages []CloudMessage `json:"messages"`
}

// InboundMessage is the normalized form both payload shapes reduce to.
type InboundMessage struct {
	Source    WebhookSource
	WaID      string
	Text      string
	MessageID string
	FirstName string
}

// ParseWebhookPayload detects the platform shape of a webhook body and
// normalizes it. ManyChat is tried first; a payload matching neither shape
// returns ErrUnrecognizedPayload.
func ParseWebhookPayload(body []byte) (InboundMessage, error) {
	var mc ManyChatPayload
	if err := json.Unmarshal(body, &mc); err == nil && mc.SubscriberID != "" {
		return InboundMessage{
			Source:    SourceManyChat,
			WaID:      mc.SubscriberID,
			Text:      mc.Text,
			FirstName: mc.FirstName,
		}, nil
	}

	var wa WhatsAppCloudPayload
	if err := json.Unmarshal(body, &wa); err != nil {
		return InboundMessage{}, ErrUnrecognizedPayload
	}
	if wa.Contact == nil || wa.Contact.WaID == "" {
		return InboundMessage{}, ErrUnrecognizedPayload
	}

	in := InboundMessage{
		Source: SourceWhatsAppCloud,
		WaID:   wa.Contact.WaID,
	}
	if wa.Contact.Name != "" {
		in.FirstName = strings.Fields(wa.Contact.Name)[0]
	}
	if len(wa.Messages) > 0 {
		msg := wa.Messages[0]
		in.MessageID = msg.ID
		switch msg.Type {
		case "text":
			if msg.Text != nil {
				in.Text = msg.Text.Body
			}
		case "image":
			in.Text = ImagePlaceholder
		default:
			in.Text = UnknownAttachmentPlaceholder
		}
	}
	return in, nil
}

// ManyChatMessage is one outbound message in a ManyChat v2 reply.
type ManyChatMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ManyChatContent wraps the outbound messages and quick replies.
type ManyChatContent struct {
	Messages     []ManyChatMessage `json:"messages"`
	QuickReplies []interface{}     `json:"quick_replies"`
}

// ManyChatDebugInfo surfaces the routed intent and agent in the v2
// envelope, where the ManyChat tester console shows it.
type ManyChatDebugInfo struct {
	Intent string `json:"intent,omitempty"`
	Agent  string `json:"agent,omitempty"`
}

// ManyChatReply is the ManyChat v2 response envelope.
type ManyChatReply struct {
	Version   string             `json:"version"`
	Content   ManyChatContent    `json:"content"`
	DebugInfo *ManyChatDebugInfo `json:"debug_info,omitempty"`
}

// NewManyChatReply builds a v2 text reply.
func NewManyChatReply(text string) ManyChatReply {
	return ManyChatReply{
		Version: "v2",
		Content: ManyChatContent{
			Messages:     []ManyChatMessage{{Type: "text", Text: text}},
			QuickReplies: []interface{}{},
		},
	}
}

// WhatsAppReplyText carries the reply body for the Cloud API shape.
type WhatsAppReplyText struct {
	Body string `json:"body"`
}

// WhatsAppReply is the WhatsApp-shape response envelope.
type WhatsAppReply struct {
	MessagingProduct string            `json:"messaging_product"`
	To               string            `json:"to"`
	Text             WhatsAppReplyText `json:"text"`
}

// NewWhatsAppReply builds a Cloud-API-shaped text reply.
func NewWhatsAppReply(to, text string) WhatsAppReply {
	return WhatsAppReply{
		MessagingProduct: "whatsapp",
		To:               to,
		Text:             WhatsAppReplyText{Body: text},
	}
}
