// Package genai provides GenAI-enhanced operations using OpenAI API.
//
// It wraps chat completion for the conversational agents and a JSON-schema
// constrained classifier that maps free-form user messages to intent tags.
package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/futureme-za/futureme/internal/models"
)

// ClientInterface defines the operations agents need from the GenAI layer.
// Tests substitute a mock implementation.
type ClientInterface interface {
	// GenerateWithMessages produces a completion from a full message list.
	GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error)
	// GeneratePrompt produces a completion from a system and user prompt pair.
	GeneratePrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	// ClassifyIntent maps a user message to one of the known intent tags.
	ClassifyIntent(ctx context.Context, message string) (models.Intent, error)
}

// Opts holds configuration options for the GenAI client.
type Opts struct {
	APIKey string
	Model  openai.ChatModel
}

// Option defines a configuration option for the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel overrides the default chat model.
func WithModel(model openai.ChatModel) Option {
	return func(o *Opts) { o.Model = model }
}

// Client wraps the OpenAI chat completion service.
type Client struct {
	client openai.Client
	model  openai.ChatModel
}

// Ensure Client satisfies the interface.
var _ ClientInterface = (*Client)(nil)

// NewClient initializes a GenAI client. The API key comes from options or the
// OPENAI_API_KEY environment variable.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	if cfg.Model == "" {
		cfg.Model = openai.ChatModelGPT4oMini
	}
	cli := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	slog.Debug("genai.NewClient: client initialized", "model", cfg.Model)
	return &Client{client: cli, model: cfg.Model}, nil
}

// GenerateWithMessages produces a completion from a full message list.
func (c *Client) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		slog.Error("genai.GenerateWithMessages: completion failed", "error", err)
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// GeneratePrompt produces a completion from a system and user prompt pair.
func (c *Client) GeneratePrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.GenerateWithMessages(ctx, []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt),
		openai.UserMessage(userPrompt),
	})
}

// intentClassification is the JSON shape the classifier is constrained to.
type intentClassification struct {
	Intent string `json:"intent"`
}

// classifierSystemPrompt instructs the model to tag the message. The response
// format schema below constrains the output to the known tags, so this prompt
// only needs to describe what each tag means.
const classifierSystemPrompt = `You classify WhatsApp messages from South African youth using the FutureMe assistant. Pick the single best intent tag for the user's latest message:
- bursary_application: wants funding, a bursary, scholarship, or to apply for one
- view_profile: wants to see or update their saved profile
- career_guidance: asks about careers, studies, subjects, or job advice
- greeting: greeting or small talk with no other request
- share_idea: wants to suggest a feature or give feedback about the service
- delete_profile: wants their data or profile removed
- check_status: asks about the state of an application already started
- unknown: none of the above fit`

// ClassifyIntent maps a user message to one of the known intent tags using a
// schema-constrained completion. Unparseable or unlisted output degrades to
// IntentUnknown rather than failing the turn.
func (c *Client) ClassifyIntent(ctx context.Context, message string) (models.Intent, error) {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"intent": map[string]interface{}{
				"type": "string",
				"enum": intentEnum(),
			},
		},
		"required":             []string{"intent"},
		"additionalProperties": false,
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(classifierSystemPrompt),
			openai.UserMessage(message),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "intent_classification",
					Description: openai.String("Intent tag for a user message"),
					Schema:      schema,
					Strict:      openai.Bool(true),
				},
			},
		},
	})
	if err != nil {
		slog.Error("genai.ClassifyIntent: completion failed", "error", err)
		return models.IntentUnknown, fmt.Errorf("intent classification failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return models.IntentUnknown, fmt.Errorf("no choices returned")
	}

	var parsed intentClassification
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		slog.Warn("genai.ClassifyIntent: unparseable classifier output", "content", content)
		return models.IntentUnknown, nil
	}
	intent := models.Intent(parsed.Intent)
	if !models.IsValidIntent(intent) {
		slog.Warn("genai.ClassifyIntent: classifier returned unknown tag", "tag", parsed.Intent)
		return models.IntentUnknown, nil
	}
	slog.Debug("genai.ClassifyIntent: classified", "intent", intent)
	return intent, nil
}

func intentEnum() []string {
	tags := make([]string, 0, len(models.AllIntents))
	for _, i := range models.AllIntents {
		tags = append(tags, string(i))
	}
	return tags
}
