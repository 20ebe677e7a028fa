package agents

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/futureme-za/futureme/internal/email"
	"github.com/futureme-za/futureme/internal/genai"
	"github.com/futureme-za/futureme/internal/models"
	"github.com/futureme-za/futureme/internal/store"
)

// Brain routes each inbound message to the right agent and owns the session
// for the duration of the turn. Turns for the same waId are serialized with a
// per-user mutex so two rapid messages cannot race each other's saves.
type Brain struct {
	store store.Store
	genai genai.ClientInterface
	now   func() time.Time

	onboarding   *OnboardingAgent
	application  *ApplicationAgent
	menu         *MenuAgent
	conversation *ConversationAgent
	career       *CareerAgent
	profile      *ProfileAgent

	userLocks sync.Map // waID -> *sync.Mutex
}

// NewBrain wires the agents together.
func NewBrain(st store.Store, client genai.ClientInterface, sender email.Sender) *Brain {
	return &Brain{
		store:        st,
		genai:        client,
		now:          time.Now,
		onboarding:   NewOnboardingAgent(st),
		application:  NewApplicationAgent(st, sender),
		menu:         NewMenuAgent(st),
		conversation: NewConversationAgent(client),
		career:       NewCareerAgent(client),
		profile:      NewProfileAgent(st),
	}
}

// HandleMessage processes one full turn: route, run the agent, append history,
// and persist the session. A session save failure fails the whole turn.
func (b *Brain) HandleMessage(ctx context.Context, waID, text string) (string, error) {
	if waID == "" {
		return "", models.ErrEmptyWaID
	}
	if text == "" {
		return "", models.ErrEmptyMessage
	}

	mu := b.lockFor(waID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := b.getOrCreateSession(waID)
	if err != nil {
		return "", fmt.Errorf("brain: %w", err)
	}

	reply, agentName, err := b.route(ctx, sess, text)
	if err != nil {
		return "", err
	}

	sess.State.LastAgent = agentName
	sess.AppendHistory("user", text)
	sess.AppendHistory("assistant", reply)
	sess.UpdatedAt = b.now()
	if err := b.store.SaveSession(*sess); err != nil {
		// The reply is not returned: the user must not see a response whose
		// state was never recorded.
		return "", fmt.Errorf("brain: session save for %s: %w", waID, err)
	}

	slog.Debug("Brain.HandleMessage: turn complete", "waID", waID, "agent", agentName, "intent", sess.State.Intent)
	return reply, nil
}

// route picks and runs the agent for this turn.
func (b *Brain) route(ctx context.Context, sess *models.Session, text string) (string, string, error) {
	waID := sess.WaID

	profile, err := b.store.GetProfile(waID)
	if err != nil {
		return "", "", fmt.Errorf("brain: %w", err)
	}

	// New users and unfinished onboarding always land on the questionnaire.
	if profile == nil || profile.OnboardingInProgress() {
		reply, err := b.onboarding.Handle(ctx, waID, text)
		return reply, b.onboarding.Name(), err
	}

	// An open application draft pins the user to the wizard regardless of
	// whatever else they type. "cancel" is handled inside.
	draft, err := b.store.GetDraftApplication(waID)
	if err != nil {
		return "", "", fmt.Errorf("brain: %w", err)
	}
	if draft != nil && draft.InProgress() {
		reply, err := b.application.Handle(ctx, waID, text)
		return reply, b.application.Name(), err
	}

	// Mid-flow menu stages and pending drip questions go to the menu agent.
	if sess.State.MenuStage == models.MenuStageSuggestion ||
		sess.State.MenuStage == models.MenuStageDeleteConfirm ||
		profile.ProgressiveInProgress() {
		reply, err := b.menu.Handle(ctx, sess, text)
		return reply, b.menu.Name(), err
	}

	// Otherwise classify and dispatch. Classification failures degrade to the
	// conversation fallback instead of aborting the turn.
	intent, err := b.genai.ClassifyIntent(ctx, text)
	if err != nil {
		slog.Warn("Brain.route: intent classification failed", "error", err, "waID", waID)
		intent = models.IntentUnknown
	}
	sess.State.Intent = intent

	switch intent {
	case models.IntentBursaryApplication:
		reply, err := b.application.Handle(ctx, waID, text)
		return reply, b.application.Name(), err
	case models.IntentCheckStatus:
		reply, err := b.application.CheckStatus(ctx, waID)
		return reply, b.application.Name(), err
	case models.IntentViewProfile:
		reply, err := b.profile.Handle(ctx, waID, text)
		return reply, b.profile.Name(), err
	case models.IntentCareerGuidance:
		reply, err := b.career.Handle(ctx, waID, text)
		return reply, b.career.Name(), err
	case models.IntentShareIdea, models.IntentDeleteProfile:
		reply, err := b.menu.Handle(ctx, sess, text)
		return reply, b.menu.Name(), err
	default:
		reply, err := b.conversation.Handle(ctx, sess, text)
		return reply, b.conversation.Name(), err
	}
}

// getOrCreateSession loads the session row or starts a fresh one.
func (b *Brain) getOrCreateSession(waID string) (*models.Session, error) {
	sess, err := b.store.GetSession(waID)
	if err != nil {
		return nil, err
	}
	if sess != nil {
		return sess, nil
	}
	now := b.now()
	fresh := &models.Session{
		WaID:      waID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	slog.Info("Brain: session started", "waID", waID)
	return fresh, nil
}

func (b *Brain) lockFor(waID string) *sync.Mutex {
	mu, _ := b.userLocks.LoadOrStore(waID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
