package agents

import (
	"context"
	"log/slog"

	"github.com/openai/openai-go"

	"github.com/futureme-za/futureme/internal/genai"
	"github.com/futureme-za/futureme/internal/models"
)

// smallTalkHistoryWindow bounds how much history the small-talk prompt carries.
const smallTalkHistoryWindow = 6

const conversationSystemPrompt = `You are a friendly and helpful AI assistant for "FutureMe", a WhatsApp chatbot that helps South African youth with bursaries, career guidance, and profile management.
- Your role is for small talk and greetings.
- Be brief, friendly, and use emojis.
- If the user asks for help, or something you don't understand, guide them back to the main topics: "I can help you with Bursary Applications, Career Guidance, or managing your Profile. What would you like to do?"
- Do not answer educational questions about school subjects.`

// welcomeMenu is the hardcoded greeting; no model call needed.
const welcomeMenu = "Hey there! 👋 Welcome to FutureMe. I can help with:\n\n1. Bursary Applications\n2. Career Guidance\n3. My Profile\n\nWhat would you like to do?"

// smallTalkFallback covers model failures without aborting the turn.
const smallTalkFallback = "Sorry, I'm having a little trouble thinking right now. Could you try asking that again?"

// ConversationAgent handles greetings and small talk, and is the fallback
// when no other agent claims the message.
type ConversationAgent struct {
	genai genai.ClientInterface
}

// NewConversationAgent creates the conversation agent.
func NewConversationAgent(client genai.ClientInterface) *ConversationAgent {
	return &ConversationAgent{genai: client}
}

// Name identifies the agent in session routing state.
func (c *ConversationAgent) Name() string { return "conversation" }

// Handle replies with the hardcoded welcome for greetings and fresh sessions,
// and model-backed small talk otherwise.
func (c *ConversationAgent) Handle(ctx context.Context, sess *models.Session, text string) (string, error) {
	if sess.State.Intent == models.IntentGreeting || len(sess.History) == 0 {
		return welcomeMenu, nil
	}
	return c.smallTalk(ctx, sess, text), nil
}

func (c *ConversationAgent) smallTalk(ctx context.Context, sess *models.Session, text string) string {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(conversationSystemPrompt),
	}
	history := sess.History
	if len(history) > smallTalkHistoryWindow {
		history = history[len(history)-smallTalkHistoryWindow:]
	}
	for _, msg := range history {
		if msg.Role == "assistant" {
			messages = append(messages, openai.AssistantMessage(msg.Content))
		} else {
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}
	messages = append(messages, openai.UserMessage(text))

	reply, err := c.genai.GenerateWithMessages(ctx, messages)
	if err != nil {
		slog.Warn("ConversationAgent.smallTalk: completion failed", "error", err, "waID", sess.WaID)
		return smallTalkFallback
	}
	return reply
}
