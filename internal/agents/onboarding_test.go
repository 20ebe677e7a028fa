package agents

import (
	"context"
	"strings"
	"testing"

	"github.com/futureme-za/futureme/internal/models"
	"github.com/futureme-za/futureme/internal/store"
)

func TestOnboardingFullFlow(t *testing.T) {
	st := store.NewInMemoryStore()
	o := NewOnboardingAgent(st)
	ctx := context.Background()

	reply, err := o.Handle(ctx, testWaID, "Hi")
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !strings.Contains(reply, "Welcome to FutureMe Connect") {
		t.Fatalf("expected welcome message, got: %s", reply)
	}
	if !strings.Contains(reply, "first name") {
		t.Errorf("welcome must ask the first question, got: %s", reply)
	}

	reply, err = o.Handle(ctx, testWaID, "Thandi")
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !strings.Contains(reply, "Thandi") || !strings.Contains(reply, "How old are you") {
		t.Errorf("expected age question addressed by name, got: %s", reply)
	}

	// Under-age and non-numeric answers reprompt without advancing.
	for _, bad := range []string{"17", "abc", "150"} {
		reply, err = o.Handle(ctx, testWaID, bad)
		if err != nil {
			t.Fatalf("Handle(%q) failed: %v", bad, err)
		}
		if !strings.Contains(reply, "valid age") {
			t.Errorf("expected age reprompt for %q, got: %s", bad, reply)
		}
	}

	reply, err = o.Handle(ctx, testWaID, "24")
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !strings.Contains(reply, "gender") {
		t.Errorf("expected gender question, got: %s", reply)
	}

	// Free-text gender answers reprompt; only 1-3 advance.
	reply, err = o.Handle(ctx, testWaID, "female")
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !strings.Contains(reply, "1, 2, or 3") {
		t.Errorf("expected numeric choice reprompt, got: %s", reply)
	}

	reply, err = o.Handle(ctx, testWaID, "2")
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !strings.Contains(reply, "connection") {
		t.Errorf("expected connection intent question, got: %s", reply)
	}

	reply, err = o.Handle(ctx, testWaID, "1")
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !strings.Contains(reply, "Congratulations, Thandi") {
		t.Fatalf("expected completion message, got: %s", reply)
	}

	profile, err := st.GetProfile(testWaID)
	if err != nil || profile == nil {
		t.Fatalf("expected persisted profile, err=%v", err)
	}
	if profile.Status != models.ProfileStatusWaitlisted {
		t.Errorf("expected waitlisted status, got %s", profile.Status)
	}
	if profile.CompletedAt == nil {
		t.Error("expected CompletedAt to be set")
	}
	if profile.OnboardingInProgress() {
		t.Error("completed profile must not report onboarding in progress")
	}
	data := profile.ProfileData
	if data.Name != "Thandi" || data.Age != 24 || data.Gender != "Female" {
		t.Errorf("unexpected profile data: %+v", data)
	}
	if data.ConnectionIntent != "Study Buddy" {
		t.Errorf("expected Study Buddy intent, got %s", data.ConnectionIntent)
	}
	if data.ProgressiveStage != models.ProgressiveAwaitVision {
		t.Errorf("expected awaiting_vision progressive stage, got %s", data.ProgressiveStage)
	}
	if profile.ProgressiveInProgress() {
		t.Error("awaiting_vision must not count as progressive in progress")
	}
}

func TestOnboardingInProgressThroughFinalAnswer(t *testing.T) {
	st := store.NewInMemoryStore()
	o := NewOnboardingAgent(st)
	ctx := context.Background()

	for _, msg := range []string{"Hi", "Sipho", "30", "1"} {
		if _, err := o.Handle(ctx, testWaID, msg); err != nil {
			t.Fatalf("Handle(%q) failed: %v", msg, err)
		}
	}

	// The intent question is out but unanswered; routing must keep the user
	// on the questionnaire.
	profile, err := st.GetProfile(testWaID)
	if err != nil || profile == nil {
		t.Fatalf("expected profile, err=%v", err)
	}
	if profile.ProfileData.CurrentStage != models.OnboardingComplete {
		t.Fatalf("expected stage COMPLETE, got %s", profile.ProfileData.CurrentStage)
	}
	if !profile.OnboardingInProgress() {
		t.Error("profile awaiting the final answer must still be onboarding")
	}
}
