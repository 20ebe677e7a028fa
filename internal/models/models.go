// Package models defines the core data structures for the FutureMe bot.
//
// It includes the per-user conversation session, community profile, bursary
// application, and the API response envelope shared across modules.
package models

import (
	"errors"
	"time"
)

// Intent is the LLM-classified purpose of a user message, used to pick an agent.
type Intent string

const (
	IntentBursaryApplication Intent = "bursary_application"
	IntentViewProfile        Intent = "view_profile"
	IntentCareerGuidance     Intent = "career_guidance"
	IntentGreeting           Intent = "greeting"
	IntentShareIdea          Intent = "share_idea"
	IntentDeleteProfile      Intent = "delete_profile"
	IntentCheckStatus        Intent = "check_status"
	IntentUnknown            Intent = "unknown"
)

// AllIntents lists every intent tag the classifier may emit, in schema order.
var AllIntents = []Intent{
	IntentBursaryApplication,
	IntentViewProfile,
	IntentCareerGuidance,
	IntentGreeting,
	IntentShareIdea,
	IntentDeleteProfile,
	IntentCheckStatus,
	IntentUnknown,
}

// IsValidIntent checks if the given intent tag is one the router understands.
func IsValidIntent(i Intent) bool {
	for _, known := range AllIntents {
		if i == known {
			return true
		}
	}
	return false
}

// ChatMessage is a single entry in a session's conversation history.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// MenuStage tracks the menu agent's position within its own small FSM.
type MenuStage string

const (
	MenuStageMenu          MenuStage = "MENU"
	MenuStageSuggestion    MenuStage = "AWAIT_SUGGESTION"
	MenuStageDeleteConfirm MenuStage = "AWAIT_DELETE_CONFIRM"
)

// SessionState holds routing state carried between turns.
type SessionState struct {
	Intent    Intent    `json:"intent,omitempty"`
	LastAgent string    `json:"last_agent,omitempty"`
	MenuStage MenuStage `json:"menu_stage,omitempty"`
}

// Session is the per-user conversation record, created on the first inbound
// message for a waId and mutated every turn.
type Session struct {
	WaID      string        `json:"wa_id"`
	History   []ChatMessage `json:"history"`
	State     SessionState  `json:"state"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// MaxHistoryMessages caps how much conversation history a session retains.
const MaxHistoryMessages = 20

// AppendHistory adds a message to the session history, trimming the oldest
// entries beyond MaxHistoryMessages.
func (s *Session) AppendHistory(role, content string) {
	s.History = append(s.History, ChatMessage{Role: role, Content: content})
	if len(s.History) > MaxHistoryMessages {
		s.History = s.History[len(s.History)-MaxHistoryMessages:]
	}
}

// Suggestion is a user-submitted idea captured by the menu agent, append-only.
type Suggestion struct {
	ID             string    `json:"id"`
	UserWaID       string    `json:"user_wa_id"`
	SuggestionText string    `json:"suggestion_text"`
	CreatedAt      time.Time `json:"created_at"`
}

// Sentinel errors shared across agents and the API layer.
var (
	ErrEmptyWaID    = errors.New("waId cannot be empty")
	ErrEmptyMessage = errors.New("message text cannot be empty")
)

// APIStatus represents the status of an API response.
type APIStatus string

const (
	APIStatusOK    APIStatus = "ok"
	APIStatusError APIStatus = "error"
)

// APIResponse is the standard JSON envelope for non-webhook endpoints.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// SuccessWithMessage creates a successful API response with a message.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Message: message, Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}
