package agents

import (
	"context"
	"log/slog"

	"github.com/futureme-za/futureme/internal/genai"
)

const careerSystemPrompt = `You are a career guidance counsellor for "FutureMe", helping South African youth choose study paths and careers.
- Give practical, encouraging advice grounded in the South African context (NSFAS, TVET colleges, universities, learnerships, matric subject choices).
- Keep answers short enough for WhatsApp: a few sentences or a short list.
- If the user asks about funding their studies, remind them you can also start a bursary application for them.`

const careerFallback = "Sorry, I couldn't fetch career advice right now. 😔 Try again in a moment, or type \"menu\" for other options."

// CareerAgent answers career and study questions with a fixed counselling
// prompt. Model failure degrades to a canned reply, never an error.
type CareerAgent struct {
	genai genai.ClientInterface
}

// NewCareerAgent creates the career guidance agent.
func NewCareerAgent(client genai.ClientInterface) *CareerAgent {
	return &CareerAgent{genai: client}
}

// Name identifies the agent in session routing state.
func (c *CareerAgent) Name() string { return "career" }

// Handle answers one career question.
func (c *CareerAgent) Handle(ctx context.Context, waID, text string) (string, error) {
	reply, err := c.genai.GeneratePrompt(ctx, careerSystemPrompt, text)
	if err != nil {
		slog.Warn("CareerAgent.Handle: completion failed", "error", err, "waID", waID)
		return careerFallback, nil
	}
	return reply, nil
}
