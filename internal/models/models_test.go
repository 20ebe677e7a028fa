package models

import (
	"fmt"
	"testing"
)

func TestIsValidIntent(t *testing.T) {
	for _, intent := range AllIntents {
		if !IsValidIntent(intent) {
			t.Errorf("listed intent %q should be valid", intent)
		}
	}
	if IsValidIntent(Intent("make_coffee")) {
		t.Error("unlisted intent should be invalid")
	}
	if IsValidIntent(Intent("")) {
		t.Error("empty intent should be invalid")
	}
}

func TestAppendHistoryTrimsOldest(t *testing.T) {
	var s Session
	for i := 0; i < MaxHistoryMessages+6; i++ {
		s.AppendHistory("user", fmt.Sprintf("message %d", i))
	}
	if len(s.History) != MaxHistoryMessages {
		t.Fatalf("expected history capped at %d, got %d", MaxHistoryMessages, len(s.History))
	}
	if s.History[0].Content != "message 6" {
		t.Errorf("oldest entries should be dropped, got %q first", s.History[0].Content)
	}
	if s.History[len(s.History)-1].Content != fmt.Sprintf("message %d", MaxHistoryMessages+5) {
		t.Errorf("newest entry missing, got %q last", s.History[len(s.History)-1].Content)
	}
}

func TestApplicationInProgress(t *testing.T) {
	tests := []struct {
		status ApplicationStatus
		step   ApplicationStep
		want   bool
	}{
		{ApplicationStatusDraft, StepAwaitEmail, true},
		{ApplicationStatusDraft, StepStart, true},
		{ApplicationStatusSubmitted, StepComplete, false},
		{ApplicationStatusCancelled, StepAwaitEmail, false},
		{ApplicationStatusIneligible, StepStart, false},
	}
	for _, tt := range tests {
		a := Application{Status: tt.status, CurrentStep: tt.step}
		if got := a.InProgress(); got != tt.want {
			t.Errorf("InProgress() with status=%s step=%s = %v, want %v", tt.status, tt.step, got, tt.want)
		}
	}
}

func TestStepIndexFollowsOrder(t *testing.T) {
	for i, step := range ApplicationStepOrder {
		if got := StepIndex(step); got != i {
			t.Errorf("StepIndex(%s) = %d, want %d", step, got, i)
		}
	}
	if got := StepIndex(ApplicationStep("NO_SUCH_STEP")); got != -1 {
		t.Errorf("unknown step should index -1, got %d", got)
	}
}
