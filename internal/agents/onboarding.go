package agents

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/futureme-za/futureme/internal/models"
	"github.com/futureme-za/futureme/internal/store"
)

// Member age bounds for the community.
const (
	minMemberAge = 18
	maxMemberAge = 99
)

var choiceOneToThree = regexp.MustCompile(`^[1-3]$`)

// welcomeMessage opens the founding-member questionnaire and asks the first
// question in the same turn.
const welcomeMessage = "Welcome to FutureMe Connect! 🙏✨\n\n" +
	"We're building a safe, supportive community for South African youth. We're so excited you're here! 🚀\n\n" +
	"This week, we are onboarding our Founding Members.\n\n" +
	"At launch you'll get all our features, including:\n\n" +
	"🕊️ Connect Now: (Get your matches!)\n" +
	"🎓 Bursary Help: (Find funding for your studies)\n" +
	"💡 Suggestion Box: (Help shape our app!)\n" +
	"👤 My Profile: (Manage your connections)\n\n" +
	"To get you ready for launch, let's start your Founding Member profile.\n\n" +
	"First, what's your first name? 🌿"

// OnboardingAgent walks new users through the founding-member profile
// questionnaire. The stage tag names the answer we are waiting for, so each
// handler stores the previous question's answer before asking the next.
type OnboardingAgent struct {
	store store.Store
	now   func() time.Time
}

// NewOnboardingAgent creates the onboarding agent.
func NewOnboardingAgent(st store.Store) *OnboardingAgent {
	return &OnboardingAgent{store: st, now: time.Now}
}

// Name identifies the agent in session routing state.
func (o *OnboardingAgent) Name() string { return "onboarding" }

// Handle processes one onboarding turn. Validation failures reprompt without
// advancing the stage; store failures fail the turn.
func (o *OnboardingAgent) Handle(_ context.Context, waID, text string) (string, error) {
	profile, err := o.getOrCreateProfile(waID)
	if err != nil {
		return "", fmt.Errorf("onboarding agent: %w", err)
	}

	data := &profile.ProfileData
	var reply string

	switch data.CurrentStage {
	case models.OnboardingStart:
		reply = welcomeMessage
		data.CurrentStage = models.OnboardingAwaitAge

	case models.OnboardingAwaitAge:
		data.Name = strings.TrimSpace(text)
		reply = fmt.Sprintf("Awesome, %s! 👋\n\nHow old are you? (Enter the number, e.g., 24) 🎂", data.Name)
		data.CurrentStage = models.OnboardingAwaitGender

	case models.OnboardingAwaitGender:
		age, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil || age < minMemberAge || age > maxMemberAge {
			return "Please enter a valid age as a number (e.g., 24). We require members to be 18 or older.", nil
		}
		data.Age = age
		reply = "Got it! 💫\n\nWhat is your gender?\n1️⃣ Male\n2️⃣ Female\n3️⃣ Prefer not to say"
		data.CurrentStage = models.OnboardingAwaitIntent

	case models.OnboardingAwaitIntent:
		choice := strings.TrimSpace(text)
		if !choiceOneToThree.MatchString(choice) {
			return "Please reply with just the number: 1, 2, or 3.", nil
		}
		data.Gender = map[string]string{
			"1": "Male",
			"2": "Female",
			"3": "Prefer not to say",
		}[choice]
		reply = "Perfect! What kind of connection are you most excited about? 🌱\n\n1️⃣ Study Buddy 📚\n2️⃣ Fellowship & Friends 🤝\n3️⃣ Open to Deeper Connections 💛"
		data.CurrentStage = models.OnboardingComplete

	case models.OnboardingComplete:
		choice := strings.TrimSpace(text)
		if !choiceOneToThree.MatchString(choice) {
			return "Please reply with just the number: 1, 2, or 3.", nil
		}
		data.ConnectionIntent = map[string]string{
			"1": "Study Buddy",
			"2": "Fellowship & Friends",
			"3": "Deeper Connections",
		}[choice]
		data.ProgressiveStage = models.ProgressiveAwaitVision

		now := o.now()
		profile.Status = models.ProfileStatusWaitlisted
		profile.CompletedAt = &now
		profile.UpdatedAt = now
		if err := o.store.SaveProfile(*profile); err != nil {
			return "", fmt.Errorf("onboarding agent: %w", err)
		}
		slog.Info("OnboardingAgent: profile completed", "waID", waID)
		return fmt.Sprintf("🎉 Congratulations, %s! Your FutureMe profile is officially saved.\n\n"+
			"You're now part of our Founding Members Circle. 🏆\n\n"+
			"To find you the best matches before launch, we'll send a few more profile questions over the next few days. Keep an eye out! 👀\n\n"+
			"---\nHelp us build this community! 🕊️\n\n"+
			"This platform grows through trusted invitations. If you know 1-2 friends who would value this, please forward this chat to them now!", data.Name), nil

	default:
		slog.Warn("OnboardingAgent.Handle: unknown stage, restarting", "waID", waID, "stage", data.CurrentStage)
		data.CurrentStage = models.OnboardingAwaitAge
		reply = welcomeMessage
	}

	profile.UpdatedAt = o.now()
	if err := o.store.SaveProfile(*profile); err != nil {
		return "", fmt.Errorf("onboarding agent: %w", err)
	}
	return reply, nil
}

// getOrCreateProfile finds the user's profile row or opens a fresh one in
// onboarding state.
func (o *OnboardingAgent) getOrCreateProfile(waID string) (*models.Profile, error) {
	profile, err := o.store.GetProfile(waID)
	if err != nil {
		return nil, err
	}
	if profile != nil {
		return profile, nil
	}

	now := o.now()
	fresh := models.Profile{
		WaID:   waID,
		Status: models.ProfileStatusOnboarding,
		ProfileData: models.ProfileData{
			CurrentStage:     models.OnboardingStart,
			ProgressiveStage: models.ProgressiveAwaitVision,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.store.SaveProfile(fresh); err != nil {
		return nil, err
	}
	slog.Info("OnboardingAgent: profile created", "waID", waID)
	return &fresh, nil
}
