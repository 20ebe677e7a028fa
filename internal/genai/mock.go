package genai

import (
	"context"

	"github.com/openai/openai-go"

	"github.com/futureme-za/futureme/internal/models"
)

// MockClient is a test double for ClientInterface. It records inputs and
// returns canned values.
type MockClient struct {
	// GenerateResponse is returned by GenerateWithMessages and GeneratePrompt.
	GenerateResponse string
	// GenerateErr, when set, is returned by the generate methods.
	GenerateErr error
	// Intent is returned by ClassifyIntent.
	Intent models.Intent
	// ClassifyErr, when set, is returned by ClassifyIntent.
	ClassifyErr error

	// Classified records the messages passed to ClassifyIntent.
	Classified []string
	// Prompts records the user prompts passed to GeneratePrompt.
	Prompts []string
	// MessagesLen records the message-list length of each GenerateWithMessages call.
	MessagesLen []int
}

var _ ClientInterface = (*MockClient)(nil)

// NewMockClient creates a mock that classifies everything as unknown.
func NewMockClient() *MockClient {
	return &MockClient{Intent: models.IntentUnknown}
}

func (m *MockClient) GenerateWithMessages(_ context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	m.MessagesLen = append(m.MessagesLen, len(messages))
	if m.GenerateErr != nil {
		return "", m.GenerateErr
	}
	return m.GenerateResponse, nil
}

func (m *MockClient) GeneratePrompt(_ context.Context, _, userPrompt string) (string, error) {
	m.Prompts = append(m.Prompts, userPrompt)
	if m.GenerateErr != nil {
		return "", m.GenerateErr
	}
	return m.GenerateResponse, nil
}

func (m *MockClient) ClassifyIntent(_ context.Context, message string) (models.Intent, error) {
	m.Classified = append(m.Classified, message)
	if m.ClassifyErr != nil {
		return models.IntentUnknown, m.ClassifyErr
	}
	return m.Intent, nil
}
