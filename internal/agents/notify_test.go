package agents

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/futureme-za/futureme/internal/messaging"
	"github.com/futureme-za/futureme/internal/models"
	"github.com/futureme-za/futureme/internal/store"
)

func saveProfileForNotify(t *testing.T, st *store.InMemoryStore, waID string, stage models.ProgressiveStage, lastNotified *time.Time) {
	t.Helper()
	now := time.Now()
	p := models.Profile{
		WaID:   waID,
		Status: models.ProfileStatusWaitlisted,
		ProfileData: models.ProfileData{
			CurrentStage:     models.OnboardingComplete,
			ProgressiveStage: stage,
			Name:             "Thandi",
		},
		LastNotifiedAt: lastNotified,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := st.SaveProfile(p); err != nil {
		t.Fatal(err)
	}
}

func TestNotifierSendsVisionAndAdvances(t *testing.T) {
	st := store.NewInMemoryStore()
	msg := messaging.NewMockService()
	n := NewNotifier(st, msg)

	saveProfileForNotify(t, st, "27820000001", models.ProgressiveAwaitVision, nil)

	result, err := n.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Sent != 1 || result.Failed != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	sent := msg.Messages()
	if len(sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sent))
	}
	if sent[0].To != "27820000001" {
		t.Errorf("unexpected recipient: %s", sent[0].To)
	}
	if !strings.Contains(sent[0].Body, "Thandi") {
		t.Errorf("message should be personalized, got: %s", sent[0].Body)
	}

	profile, _ := st.GetProfile("27820000001")
	if profile.ProfileData.ProgressiveStage != models.ProgressiveAwaitDenomination {
		t.Errorf("vision send must advance the stage, got %s", profile.ProfileData.ProgressiveStage)
	}
	if profile.LastNotifiedAt == nil {
		t.Error("expected last_notified_at stamp after a successful send")
	}
}

func TestNotifierSkipsRecentlyNotified(t *testing.T) {
	st := store.NewInMemoryStore()
	msg := messaging.NewMockService()
	n := NewNotifier(st, msg)

	recent := time.Now().Add(-time.Hour)
	old := time.Now().Add(-8 * 24 * time.Hour)
	saveProfileForNotify(t, st, "27820000001", models.ProgressiveAwaitVision, &recent)
	saveProfileForNotify(t, st, "27820000002", models.ProgressiveAwaitVision, &old)

	result, err := n.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Sent != 1 {
		t.Fatalf("only the idle profile should be notified, got %+v", result)
	}
	sent := msg.Messages()
	if len(sent) != 1 || sent[0].To != "27820000002" {
		t.Errorf("unexpected sends: %+v", sent)
	}
}

func TestNotifierSkipsNonWaitlisted(t *testing.T) {
	st := store.NewInMemoryStore()
	msg := messaging.NewMockService()
	n := NewNotifier(st, msg)

	now := time.Now()
	if err := st.SaveProfile(models.Profile{
		WaID:      "27820000003",
		Status:    models.ProfileStatusOnboarding,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatal(err)
	}

	result, err := n.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Sent != 0 || len(msg.Messages()) != 0 {
		t.Errorf("onboarding profiles must not be notified: %+v", result)
	}
}

func TestNotifierSendFailureLeavesProfileUntouched(t *testing.T) {
	st := store.NewInMemoryStore()
	msg := messaging.NewMockService()
	msg.SendErr = errors.New("network down")
	n := NewNotifier(st, msg)

	saveProfileForNotify(t, st, "27820000004", models.ProgressiveAwaitVision, nil)

	result, err := n.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Failed != 1 || result.Sent != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	// No stamp and no stage movement on failure, so the next sweep retries.
	profile, _ := st.GetProfile("27820000004")
	if profile.LastNotifiedAt != nil {
		t.Error("failed send must not stamp last_notified_at")
	}
	if profile.ProfileData.ProgressiveStage != models.ProgressiveAwaitVision {
		t.Errorf("failed send must not advance the stage, got %s", profile.ProfileData.ProgressiveStage)
	}
}

func TestNotifierCompleteProfileGetsCheckIn(t *testing.T) {
	st := store.NewInMemoryStore()
	msg := messaging.NewMockService()
	n := NewNotifier(st, msg)

	saveProfileForNotify(t, st, "27820000005", models.ProgressiveComplete, nil)

	if _, err := n.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	sent := msg.Messages()
	if len(sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sent))
	}
	if !strings.Contains(sent[0].Body, "profile is complete") {
		t.Errorf("expected check-in message, got: %s", sent[0].Body)
	}

	profile, _ := st.GetProfile("27820000005")
	if profile.ProfileData.ProgressiveStage != models.ProgressiveComplete {
		t.Errorf("complete profiles must stay complete, got %s", profile.ProfileData.ProgressiveStage)
	}
}
