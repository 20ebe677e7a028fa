package agents

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/futureme-za/futureme/internal/models"
	"github.com/futureme-za/futureme/internal/store"
)

func TestProfileAgentWithoutProfile(t *testing.T) {
	p := NewProfileAgent(store.NewInMemoryStore())
	reply, err := p.Handle(context.Background(), testWaID, "show my profile")
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !strings.Contains(reply, "don't have a profile yet") {
		t.Errorf("expected no-profile reply, got: %s", reply)
	}
}

func TestProfileAgentRendersProfileAndApplication(t *testing.T) {
	st := store.NewInMemoryStore()
	p := NewProfileAgent(st)
	now := time.Now()

	profile := newWaitlistedProfile("Study Buddy", models.ProgressiveAwaitRhythm)
	profile.ProfileData.Age = 24
	profile.ProfileData.Gender = "Female"
	if err := st.SaveProfile(profile); err != nil {
		t.Fatal(err)
	}
	if err := st.CreateApplication(models.Application{
		ID: "app_1", WaID: testWaID,
		Status: models.ApplicationStatusSubmitted, CurrentStep: models.StepComplete,
		ApplicationRef: "FME-TM-MDDQ3K1A", Version: 1,
		CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatal(err)
	}

	reply, err := p.Handle(context.Background(), testWaID, "profile")
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	for _, want := range []string{"Thandi", "Age: 24", "Study Buddy", "profile complete", "match questions still coming", "FME-TM-MDDQ3K1A"} {
		if !strings.Contains(reply, want) {
			t.Errorf("profile summary missing %q:\n%s", want, reply)
		}
	}
}

func TestProfileAgentDeletedProfileHidden(t *testing.T) {
	st := store.NewInMemoryStore()
	p := NewProfileAgent(st)

	profile := newWaitlistedProfile("", models.ProgressiveComplete)
	profile.Status = models.ProfileStatusDeleted
	if err := st.SaveProfile(profile); err != nil {
		t.Fatal(err)
	}

	reply, err := p.Handle(context.Background(), testWaID, "profile")
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if strings.Contains(reply, "Thandi") {
		t.Error("deleted profiles must not be rendered")
	}
}
