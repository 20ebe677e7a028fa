package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/futureme-za/futureme/internal/models"
	"github.com/futureme-za/futureme/internal/store"
)

// ProfileAgent renders the stored profile and latest application status as a
// plain summary. No model call involved.
type ProfileAgent struct {
	store store.Store
}

// NewProfileAgent creates the profile view agent.
func NewProfileAgent(st store.Store) *ProfileAgent {
	return &ProfileAgent{store: st}
}

// Name identifies the agent in session routing state.
func (p *ProfileAgent) Name() string { return "profile" }

// Handle renders the user's profile summary.
func (p *ProfileAgent) Handle(_ context.Context, waID, _ string) (string, error) {
	profile, err := p.store.GetProfile(waID)
	if err != nil {
		return "", fmt.Errorf("profile agent: %w", err)
	}
	if profile == nil || profile.Status == models.ProfileStatusDeleted {
		return "You don't have a profile yet. Say \"hi\" and we'll set one up together!", nil
	}

	data := profile.ProfileData
	var b strings.Builder
	b.WriteString("👤 Your FutureMe Profile\n━━━━━━━━━━━━━━━━━━━━━\n")
	writeLine(&b, "Name", data.Name)
	if data.Age > 0 {
		fmt.Fprintf(&b, "Age: %d\n", data.Age)
	}
	writeLine(&b, "Gender", data.Gender)
	writeLine(&b, "Looking for", data.ConnectionIntent)
	writeLine(&b, "Background", data.Denomination)
	writeLine(&b, "Rhythm", data.Rhythm)
	writeLine(&b, "Study style", data.PrayerStyle)
	writeLine(&b, "Hangout", data.FellowshipInterest)
	writeLine(&b, "Match gender pref", data.MatchGenderPref)
	writeLine(&b, "Match age pref", data.MatchAgePref)

	switch profile.Status {
	case models.ProfileStatusWaitlisted:
		b.WriteString("\n✅ Founding Member profile complete")
		if data.ProgressiveStage != "" && data.ProgressiveStage != models.ProgressiveComplete {
			b.WriteString(" (a few match questions still coming)")
		}
	case models.ProfileStatusOnboarding:
		b.WriteString("\n⏳ Profile setup in progress")
	}
	b.WriteString("\n")

	app, err := p.store.GetLatestApplication(waID)
	if err != nil {
		return "", fmt.Errorf("profile agent: %w", err)
	}
	if app != nil {
		b.WriteString("\n🎓 Bursary application: ")
		switch app.Status {
		case models.ApplicationStatusSubmitted:
			fmt.Fprintf(&b, "submitted (Ref: %s)", app.ApplicationRef)
		case models.ApplicationStatusDraft:
			b.WriteString("in progress")
		case models.ApplicationStatusCancelled:
			b.WriteString("cancelled")
		case models.ApplicationStatusIneligible:
			b.WriteString("not eligible")
		}
		b.WriteString("\n")
	}

	b.WriteString("\nType \"menu\" for options, or ask me about bursaries and careers any time!")
	return b.String(), nil
}

func writeLine(b *strings.Builder, label, value string) {
	if value != "" {
		fmt.Fprintf(b, "%s: %s\n", label, value)
	}
}
