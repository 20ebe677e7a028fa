package agents

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/futureme-za/futureme/internal/email"
	"github.com/futureme-za/futureme/internal/genai"
	"github.com/futureme-za/futureme/internal/models"
	"github.com/futureme-za/futureme/internal/store"
)

func newTestBrain() (*Brain, *store.InMemoryStore, *genai.MockClient, *email.MockSender) {
	st := store.NewInMemoryStore()
	client := genai.NewMockClient()
	sender := &email.MockSender{}
	return NewBrain(st, client, sender), st, client, sender
}

func TestBrainRejectsEmptyInput(t *testing.T) {
	b, _, _, _ := newTestBrain()
	ctx := context.Background()

	if _, err := b.HandleMessage(ctx, "", "hi"); !errors.Is(err, models.ErrEmptyWaID) {
		t.Errorf("expected ErrEmptyWaID, got %v", err)
	}
	if _, err := b.HandleMessage(ctx, testWaID, ""); !errors.Is(err, models.ErrEmptyMessage) {
		t.Errorf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestBrainNewUserLandsOnOnboarding(t *testing.T) {
	b, st, client, _ := newTestBrain()
	ctx := context.Background()

	reply, err := b.HandleMessage(ctx, testWaID, "Hi")
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if !strings.Contains(reply, "Welcome to FutureMe Connect") {
		t.Fatalf("new users start onboarding, got: %s", reply)
	}
	if len(client.Classified) != 0 {
		t.Error("onboarding must not consult the classifier")
	}

	profile, err := st.GetProfile(testWaID)
	if err != nil || profile == nil {
		t.Fatalf("expected profile created, err=%v", err)
	}
	if profile.Status != models.ProfileStatusOnboarding {
		t.Errorf("expected onboarding status, got %s", profile.Status)
	}

	sess, err := st.GetSession(testWaID)
	if err != nil || sess == nil {
		t.Fatalf("expected session persisted, err=%v", err)
	}
	if len(sess.History) != 2 {
		t.Fatalf("expected user+assistant history, got %d entries", len(sess.History))
	}
	if sess.History[0].Role != "user" || sess.History[1].Role != "assistant" {
		t.Errorf("unexpected history roles: %+v", sess.History)
	}
	if sess.State.LastAgent != "onboarding" {
		t.Errorf("expected onboarding agent recorded, got %s", sess.State.LastAgent)
	}
}

// completeOnboarding walks a user through the questionnaire so routing tests
// start from a waitlisted profile.
func completeOnboarding(t *testing.T, b *Brain) {
	t.Helper()
	ctx := context.Background()
	for _, msg := range []string{"Hi", "Thandi", "24", "2", "3"} {
		if _, err := b.HandleMessage(ctx, testWaID, msg); err != nil {
			t.Fatalf("onboarding turn %q failed: %v", msg, err)
		}
	}
}

func TestBrainRoutesByIntent(t *testing.T) {
	b, _, client, _ := newTestBrain()
	ctx := context.Background()
	completeOnboarding(t, b)

	client.Intent = models.IntentCareerGuidance
	client.GenerateResponse = "Consider a TVET college for practical training."

	reply, err := b.HandleMessage(ctx, testWaID, "what should I study?")
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if !strings.Contains(reply, "TVET") {
		t.Errorf("expected career agent reply, got: %s", reply)
	}
	if len(client.Classified) != 1 {
		t.Fatalf("expected one classification, got %d", len(client.Classified))
	}
}

func TestBrainOpenDraftPinsToApplication(t *testing.T) {
	b, _, client, _ := newTestBrain()
	ctx := context.Background()
	completeOnboarding(t, b)

	client.Intent = models.IntentBursaryApplication
	reply, err := b.HandleMessage(ctx, testWaID, "I need a bursary")
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if !strings.Contains(reply, "full name") {
		t.Fatalf("expected questionnaire start, got: %s", reply)
	}

	// The draft now short-circuits routing: no classification happens and the
	// answer goes to the wizard even though it looks like small talk.
	client.Classified = nil
	client.Intent = models.IntentGreeting
	reply, err = b.HandleMessage(ctx, testWaID, "Thandi Mokoena")
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if !strings.Contains(reply, "email address") {
		t.Errorf("expected next question, got: %s", reply)
	}
	if len(client.Classified) != 0 {
		t.Error("open drafts must bypass the classifier")
	}
}

func TestBrainClassifierFailureFallsBackToConversation(t *testing.T) {
	b, _, client, _ := newTestBrain()
	ctx := context.Background()
	completeOnboarding(t, b)

	client.ClassifyErr = errors.New("api down")
	client.GenerateErr = errors.New("api down")

	reply, err := b.HandleMessage(ctx, testWaID, "random text")
	if err != nil {
		t.Fatalf("classification failure must not fail the turn: %v", err)
	}
	if reply == "" {
		t.Error("expected a fallback reply")
	}
}

func TestBrainGreetingShowsWelcomeMenu(t *testing.T) {
	b, _, client, _ := newTestBrain()
	ctx := context.Background()
	completeOnboarding(t, b)

	client.Intent = models.IntentGreeting
	reply, err := b.HandleMessage(ctx, testWaID, "hello")
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if !strings.Contains(reply, "Bursary") {
		t.Errorf("expected the welcome menu, got: %s", reply)
	}
}

func TestBrainMenuStageShortCircuits(t *testing.T) {
	b, st, client, _ := newTestBrain()
	ctx := context.Background()
	completeOnboarding(t, b)

	client.Intent = models.IntentShareIdea
	if _, err := b.HandleMessage(ctx, testWaID, "I have an idea"); err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}

	// The next message is the suggestion body, not a new intent.
	client.Classified = nil
	reply, err := b.HandleMessage(ctx, testWaID, "Add peer mentorship")
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if !strings.Contains(reply, "saved it for the team") {
		t.Errorf("expected suggestion capture, got: %s", reply)
	}
	if len(client.Classified) != 0 {
		t.Error("mid-flow menu stages must bypass the classifier")
	}

	suggestions, err := st.GetSuggestions()
	if err != nil || len(suggestions) != 1 {
		t.Fatalf("expected one suggestion, err=%v n=%d", err, len(suggestions))
	}
}
