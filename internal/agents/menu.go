package agents

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/futureme-za/futureme/internal/models"
	"github.com/futureme-za/futureme/internal/store"
	"github.com/futureme-za/futureme/internal/util"
)

// deleteConfirmation is the exact reply required to wipe a profile.
const deleteConfirmation = "yes delete"

// menuCommandRegex matches bare menu keywords that override the progressive
// profile flow.
var menuCommandRegex = regexp.MustCompile(`(?i)^(menu|idea|delete|help)$`)

// MenuAgent owns the suggestion box, profile deletion, and the progressive
// profile drip replies. Its stage lives in the session routing state; profile
// answers land on the profile row.
type MenuAgent struct {
	store store.Store
	now   func() time.Time
}

// NewMenuAgent creates the menu agent.
func NewMenuAgent(st store.Store) *MenuAgent {
	return &MenuAgent{store: st, now: time.Now}
}

// Name identifies the agent in session routing state.
func (m *MenuAgent) Name() string { return "menu" }

// IsMenuCommand reports whether the message is a bare menu keyword, or the
// menu FSM is already mid-flow. Either overrides the progressive drip.
func (m *MenuAgent) IsMenuCommand(sess *models.Session, text string) bool {
	if menuCommandRegex.MatchString(strings.TrimSpace(text)) {
		return true
	}
	return sess.State.MenuStage != "" && sess.State.MenuStage != models.MenuStageMenu
}

// Handle processes one menu or progressive-drip turn. The caller persists the
// session after the turn; profile writes happen here.
func (m *MenuAgent) Handle(ctx context.Context, sess *models.Session, text string) (string, error) {
	waID := sess.WaID
	profile, err := m.store.GetProfile(waID)
	if err != nil {
		return "", fmt.Errorf("menu agent: %w", err)
	}
	if profile == nil {
		// Routing guarantees a profile exists before the menu is reachable.
		return "", fmt.Errorf("menu agent: no profile for %s", waID)
	}

	// Drip replies take precedence unless a menu command interrupts them.
	if profile.ProgressiveInProgress() && !m.IsMenuCommand(sess, text) {
		return m.handleProgressive(profile, sess, text)
	}

	msg := strings.TrimSpace(text)

	switch sess.State.MenuStage {
	case models.MenuStageSuggestion:
		suggestion := models.Suggestion{
			ID:             util.GenerateSuggestionID(),
			UserWaID:       waID,
			SuggestionText: msg,
			CreatedAt:      m.now(),
		}
		if err := m.store.AddSuggestion(suggestion); err != nil {
			return "", fmt.Errorf("menu agent: %w", err)
		}
		sess.State.MenuStage = models.MenuStageMenu
		slog.Info("MenuAgent: suggestion recorded", "waID", waID)
		return "Thank you, that's a fantastic idea. We've saved it for the team to review.", nil

	case models.MenuStageDeleteConfirm:
		sess.State.MenuStage = models.MenuStageMenu
		if strings.ToLower(msg) != deleteConfirmation {
			return "Deletion cancelled. Phew! Your profile is safe.", nil
		}
		now := m.now()
		profile.Status = models.ProfileStatusDeleted
		profile.DeletedAt = &now
		profile.UpdatedAt = now
		if err := m.store.SaveProfile(*profile); err != nil {
			return "", fmt.Errorf("menu agent: %w", err)
		}
		slog.Info("MenuAgent: profile deleted", "waID", waID)
		return "Your profile and data have been permanently deleted. We're sad to see you go.", nil

	default:
		switch sess.State.Intent {
		case models.IntentShareIdea:
			sess.State.MenuStage = models.MenuStageSuggestion
			return "We're building this *for you*, and your feedback is a gift!\n\nPlease type your suggestion below and send it as a single message.", nil
		case models.IntentDeleteProfile:
			sess.State.MenuStage = models.MenuStageDeleteConfirm
			return "We'd be sad to see you go, but we understand. Are you sure you want to permanently delete your profile?\n\nThis cannot be undone. To confirm, please reply with the exact words: `yes delete`", nil
		default:
			sess.State.MenuStage = models.MenuStageMenu
			return mainMenuResponse(), nil
		}
	}
}

// handleProgressive advances the drip questionnaire one answer at a time.
// Questions are pushed by the notification job; this handles the replies.
func (m *MenuAgent) handleProgressive(profile *models.Profile, sess *models.Session, text string) (string, error) {
	data := &profile.ProfileData
	msg := strings.TrimSpace(text)
	var reply string

	switch data.ProgressiveStage {
	case models.ProgressiveAwaitDenomination:
		data.Denomination = msg
		data.ProgressiveStage = models.ProgressiveAwaitRhythm
		reply = "Got it! And what's your weekly rhythm like?\n\n1️⃣ Studying full-time\n2️⃣ Working\n3️⃣ Finding my feet\n4️⃣ It's complicated"

	case models.ProgressiveAwaitRhythm:
		data.Rhythm = msg
		switch data.ConnectionIntent {
		case "Study Buddy":
			data.ProgressiveStage = models.ProgressiveAwaitPrayerStyle
			reply = "What's your preferred study style?\n\n1️⃣ Structured\n2️⃣ Conversational\n3️⃣ Independent check-ins\n4️⃣ Open to all"
		case "Fellowship & Friends":
			data.ProgressiveStage = models.ProgressiveAwaitFellowship
			reply = "What's your ideal hangout?\n\n1️⃣ Study group\n2️⃣ Coffee & chat\n3️⃣ Outdoor activities\n4️⃣ Volunteering"
		default:
			data.ProgressiveStage = models.ProgressiveAwaitMatchGenderPref
			reply = "Great. Now for your preferences. Which gender?\n1️⃣ Men only\n2️⃣ Women only\n3️⃣ No preference"
		}

	case models.ProgressiveAwaitPrayerStyle:
		data.PrayerStyle = msg
		data.ProgressiveStage = models.ProgressiveAwaitMatchGenderPref
		reply = "Great. Now for your preferences. Which gender?\n1️⃣ Men only\n2️⃣ Women only\n3️⃣ No preference"

	case models.ProgressiveAwaitFellowship:
		data.FellowshipInterest = msg
		data.ProgressiveStage = models.ProgressiveAwaitMatchGenderPref
		reply = "Great. Now for your preferences. Which gender?\n1️⃣ Men only\n2️⃣ Women only\n3️⃣ No preference"

	case models.ProgressiveAwaitMatchGenderPref:
		data.MatchGenderPref = msg
		data.ProgressiveStage = models.ProgressiveAwaitMatchAgePref
		reply = "And what age range for connections?\n\n1️⃣ 18-25\n2️⃣ 26-35\n3️⃣ 36-45\n4️⃣ 46+\n5️⃣ Open to all ages"

	case models.ProgressiveAwaitMatchAgePref:
		data.MatchAgePref = msg
		data.ProgressiveStage = models.ProgressiveComplete
		reply = "Perfect! ✨ Your matching profile is now 100% complete. We have everything we need to find you the most aligned connections at launch!"

	default:
		// awaiting_vision needs no reply; show the menu instead.
		sess.State.MenuStage = models.MenuStageMenu
		return mainMenuResponse(), nil
	}

	profile.UpdatedAt = m.now()
	if err := m.store.SaveProfile(*profile); err != nil {
		return "", fmt.Errorf("menu agent: %w", err)
	}
	return reply, nil
}

func mainMenuResponse() string {
	return "Welcome back! 🙏\n\nWe're hard at work preparing for launch. Matching opens soon!\n\n1️⃣ Share an Idea 💡\n2️⃣ Delete My Profile 🗑️"
}
