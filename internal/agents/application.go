package agents

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/futureme-za/futureme/internal/email"
	"github.com/futureme-za/futureme/internal/models"
	"github.com/futureme-za/futureme/internal/store"
	"github.com/futureme-za/futureme/internal/util"
)

// emailRegex is deliberately loose: one @, no whitespace, a dot in the domain.
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// stepHandler advances an application one turn. Handlers mutate the
// application in place; the caller persists it.
type stepHandler func(ctx context.Context, text string, app *models.Application) (string, error)

// ApplicationAgent walks users through the bursary questionnaire one question
// per turn, persisting progress after every answer.
type ApplicationAgent struct {
	store store.Store
	email email.Sender
	now   func() time.Time

	handlers map[models.ApplicationStep]stepHandler
}

// NewApplicationAgent creates the bursary application agent.
func NewApplicationAgent(st store.Store, sender email.Sender) *ApplicationAgent {
	a := &ApplicationAgent{
		store: st,
		email: sender,
		now:   time.Now,
	}
	a.handlers = map[models.ApplicationStep]stepHandler{
		models.StepStart:            a.handleStart,
		models.StepAwaitFullName:    a.handleFullName,
		models.StepAwaitEmail:       a.handleEmail,
		models.StepAwaitProvince:    a.handleProvince,
		models.StepAwaitCitizenship: a.handleCitizenship,
		models.StepAwaitLevel:       a.handleAcademicLevel,
		models.StepAwaitField:       a.handleFieldOfStudy,
		models.StepAwaitAverage:     a.handleAcademicAverage,
		models.StepAwaitIncome:      a.handleHouseholdIncome,
		models.StepAwaitMotivation:  a.handleMotivation,
		models.StepAwaitReview:      a.handleReview,
		models.StepComplete:         a.handleComplete,
	}
	return a
}

// Name identifies the agent in session routing state.
func (a *ApplicationAgent) Name() string { return "application" }

// Handle processes one turn of the questionnaire. Store failures fail the
// turn; progress is never silently lost.
func (a *ApplicationAgent) Handle(ctx context.Context, waID, text string) (string, error) {
	app, err := a.getOrCreateApplication(waID)
	if err != nil {
		return "", fmt.Errorf("application agent: %w", err)
	}

	// A submitted application is terminal: repeat messages acknowledge it
	// without reopening anything or touching the matches and reference.
	if app.Status == models.ApplicationStatusSubmitted {
		return a.handleComplete(ctx, text, app)
	}

	if app.InProgress() && isStatusCommand(text) {
		return a.CheckStatus(ctx, waID)
	}

	if app.InProgress() && isCancelCommand(text) {
		app.Status = models.ApplicationStatusCancelled
		if err := a.save(app); err != nil {
			return "", err
		}
		return "Your application has been cancelled. You can start a new one any time by asking about bursaries.", nil
	}

	handler, ok := a.handlers[app.CurrentStep]
	if !ok {
		// Unknown persisted step; restart the questionnaire rather than strand the user.
		slog.Warn("ApplicationAgent.Handle: unknown application step, resetting", "waID", waID, "step", app.CurrentStep)
		app.CurrentStep = models.StepStart
		handler = a.handleStart
	}

	reply, err := handler(ctx, text, app)
	if err != nil {
		return "", err
	}
	if err := a.save(app); err != nil {
		return "", err
	}
	return reply, nil
}

// CheckStatus reports the state of the user's most recent application.
func (a *ApplicationAgent) CheckStatus(_ context.Context, waID string) (string, error) {
	app, err := a.store.GetLatestApplication(waID)
	if err != nil {
		return "", fmt.Errorf("application agent: %w", err)
	}
	if app == nil {
		return "You haven't started a bursary application yet. Just say \"I want to apply for a bursary\" and we'll begin!", nil
	}
	switch app.Status {
	case models.ApplicationStatusSubmitted:
		return fmt.Sprintf("Your application (Ref: %s) is submitted! ✅\n\nMatched bursaries:\n%s\n\nYou'll hear back in 2-3 weeks.",
			app.ApplicationRef, FormatMatches(app.MatchedBursaries)), nil
	case models.ApplicationStatusCancelled:
		return "Your last application was cancelled. Say \"apply for a bursary\" to start a fresh one.", nil
	case models.ApplicationStatusIneligible:
		return "Your last application couldn't proceed because most SA bursaries require citizenship. I can still help with career guidance!", nil
	default:
		idx := models.StepIndex(app.CurrentStep)
		total := len(models.ApplicationStepOrder) - 1
		return fmt.Sprintf("Your application is in progress (step %d of %d). Send your next answer to continue, or say \"cancel\" to stop.", idx, total), nil
	}
}

// getOrCreateApplication finds the user's draft, or their submitted
// application if that is what the latest one is, or opens a new draft.
// Cancelled and ineligible applications do not block a fresh start.
func (a *ApplicationAgent) getOrCreateApplication(waID string) (*models.Application, error) {
	app, err := a.store.GetDraftApplication(waID)
	if err != nil {
		return nil, err
	}
	if app != nil {
		return app, nil
	}

	latest, err := a.store.GetLatestApplication(waID)
	if err != nil {
		return nil, err
	}
	if latest != nil && latest.Status == models.ApplicationStatusSubmitted {
		return latest, nil
	}

	now := a.now()
	fresh := models.Application{
		ID:          util.GenerateApplicationID(),
		WaID:        waID,
		Status:      models.ApplicationStatusDraft,
		CurrentStep: models.StepStart,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.store.CreateApplication(fresh); err != nil {
		return nil, err
	}
	slog.Info("ApplicationAgent: draft opened", "waID", waID, "id", fresh.ID)
	return &fresh, nil
}

// save persists the application with its version check and refreshes the
// in-memory copy so later saves in the same turn carry the new version.
func (a *ApplicationAgent) save(app *models.Application) error {
	app.UpdatedAt = a.now()
	updated, err := a.store.UpdateApplication(*app)
	if err != nil {
		slog.Error("ApplicationAgent.save failed", "error", err, "id", app.ID)
		return fmt.Errorf("application agent: %w", err)
	}
	*app = *updated
	return nil
}

func (a *ApplicationAgent) handleStart(_ context.Context, _ string, app *models.Application) (string, error) {
	app.CurrentStep = models.StepAwaitFullName
	return "Let's start your bursary application! 🎯\n\nFirst, what's your full name?", nil
}

func (a *ApplicationAgent) handleFullName(_ context.Context, text string, app *models.Application) (string, error) {
	app.FullName = strings.TrimSpace(text)
	app.CurrentStep = models.StepAwaitEmail
	first := app.FullName
	if i := strings.IndexByte(first, ' '); i > 0 {
		first = first[:i]
	}
	return fmt.Sprintf("Thanks %s! ✅\n\nWhat's your email address?", first), nil
}

func (a *ApplicationAgent) handleEmail(_ context.Context, text string, app *models.Application) (string, error) {
	addr := strings.ToLower(strings.TrimSpace(text))
	if !emailRegex.MatchString(addr) {
		return "That doesn't look like a valid email. Please try again (e.g., student@gmail.com)", nil
	}
	app.Email = addr
	app.CurrentStep = models.StepAwaitProvince
	return "Perfect! ✅\n\nWhich province do you live in?\n\n1️⃣ Gauteng\n2️⃣ Western Cape\n3️⃣ KwaZulu-Natal\n4️⃣ Eastern Cape\n5️⃣ Other", nil
}

func (a *ApplicationAgent) handleProvince(_ context.Context, text string, app *models.Application) (string, error) {
	provinceMap := map[string]string{
		"1": "Gauteng",
		"2": "Western Cape",
		"3": "KwaZulu-Natal",
		"4": "Eastern Cape",
		"5": "Other",
	}
	province, ok := provinceMap[strings.TrimSpace(text)]
	if !ok {
		province = "Other"
	}
	app.Province = province
	app.CurrentStep = models.StepAwaitCitizenship
	return "Got it. ✅\n\nAre you a South African citizen or permanent resident?\n\n1️⃣ Yes\n2️⃣ No", nil
}

func (a *ApplicationAgent) handleCitizenship(_ context.Context, text string, app *models.Application) (string, error) {
	lower := strings.ToLower(text)
	app.IsSACitizen = strings.Contains(lower, "yes") || strings.Contains(lower, "1")
	if !app.IsSACitizen {
		app.Status = models.ApplicationStatusIneligible
		app.CurrentStep = models.StepStart
		return "😔 Most SA bursaries require citizenship.\n\nTry:\n• International scholarships\n• Study loans\n• Part-time work\n\nIf you'd like, we can explore career guidance instead?", nil
	}
	app.CurrentStep = models.StepAwaitLevel
	return "Great! ✅\n\nWhat's your current academic level?\n\n1️⃣ High school\n2️⃣ University\n3️⃣ Postgrad", nil
}

func (a *ApplicationAgent) handleAcademicLevel(_ context.Context, text string, app *models.Application) (string, error) {
	levelMap := map[string]string{
		"1": "high_school",
		"2": "university",
		"3": "postgrad",
	}
	level, ok := levelMap[strings.TrimSpace(text)]
	if !ok {
		level = "high_school"
	}
	app.AcademicLevel = level
	app.CurrentStep = models.StepAwaitField
	return "Okay. ✅\n\nWhat is your intended field of study?\n\n1️⃣ STEM\n2️⃣ Commerce/Business\n3️⃣ Health Sciences\n4️⃣ Humanities\n5️⃣ Other", nil
}

func (a *ApplicationAgent) handleFieldOfStudy(_ context.Context, text string, app *models.Application) (string, error) {
	fieldMap := map[string]string{
		"1": FieldSTEM,
		"2": FieldCommerce,
		"3": FieldHealthSciences,
		"4": FieldHumanities,
		"5": FieldOther,
	}
	field, ok := fieldMap[strings.TrimSpace(text)]
	if !ok {
		field = FieldOther
	}
	app.FieldOfStudy = field
	app.CurrentStep = models.StepAwaitAverage
	return "Understood. ✅\n\nWhat is your academic average?\n(Please enter a percentage, e.g., 75)", nil
}

func (a *ApplicationAgent) handleAcademicAverage(_ context.Context, text string, app *models.Application) (string, error) {
	average, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || average < 0 || average > 100 {
		return "Please enter a valid percentage number (e.g., 75)", nil
	}
	app.AcademicAverage = average
	app.CurrentStep = models.StepAwaitIncome
	return "Great. ✅\n\nWhat is your total household annual income?\n\n1️⃣ R0 - R350k\n2️⃣ R350k - R600k\n3️⃣ Above R600k", nil
}

func (a *ApplicationAgent) handleHouseholdIncome(_ context.Context, text string, app *models.Application) (string, error) {
	incomeMap := map[string]float64{
		"1": 200000,
		"2": 475000,
		"3": 700000,
	}
	income, ok := incomeMap[strings.TrimSpace(text)]
	if !ok {
		income = 200000
	}
	app.HouseholdIncome = income
	app.CurrentStep = models.StepAwaitMotivation
	return "Almost done! ✅\n\nLastly, why do you need this bursary?\n(1-2 sentences is fine!)", nil
}

func (a *ApplicationAgent) handleMotivation(_ context.Context, text string, app *models.Application) (string, error) {
	app.Motivation = strings.TrimSpace(text)

	// All answers are in: score, reference and matches are computed once here
	// and frozen into the draft for the review screen.
	app.EligibilityScore = EligibilityScore(*app)
	app.ApplicationRef = GenerateRef(*app, a.now())
	app.MatchedBursaries = MatchBursaries(*app)
	app.CurrentStep = models.StepAwaitReview
	return reviewSummary(*app), nil
}

func (a *ApplicationAgent) handleReview(ctx context.Context, text string, app *models.Application) (string, error) {
	response := strings.ToLower(strings.TrimSpace(text))

	if strings.Contains(response, "submit") || response == "1" {
		now := a.now()
		app.Status = models.ApplicationStatusSubmitted
		app.SubmittedAt = &now
		app.CurrentStep = models.StepComplete

		// The submission must be durable before any email goes out.
		if err := a.save(app); err != nil {
			return "", err
		}

		if err := a.email.SendApplicationConfirmation(ctx, *app); err != nil {
			slog.Warn("ApplicationAgent.handleReview: confirmation email failed", "error", err, "ref", app.ApplicationRef)
			return fmt.Sprintf("🎉 Application submitted!\n\nReference: %s\n\n⚠️ Email delivery pending - we'll send it shortly.", app.ApplicationRef), nil
		}
		return fmt.Sprintf("🎉 Application submitted successfully!\n\nReference: %s\n📧 Email sent to funders\n📬 Copy sent to: %s\n\nMatched Bursaries:\n%s\n\n📧 Check your email for confirmation!",
			app.ApplicationRef, app.Email, FormatMatches(app.MatchedBursaries)), nil
	}

	if strings.Contains(response, "edit") || response == "2" {
		app.CurrentStep = models.StepAwaitFullName
		return "No problem, let's edit your details. What's your full name?", nil
	}

	return "Please choose:\n\n1️⃣ Submit ✅\n2️⃣ Edit ✏️", nil
}

func (a *ApplicationAgent) handleComplete(_ context.Context, _ string, app *models.Application) (string, error) {
	return fmt.Sprintf("✅ Your application (Ref: %s) is already complete!\n\nYou'll hear back in 2-3 weeks.\n\nNeed anything else? I can also help with Career Guidance.", app.ApplicationRef), nil
}

// cancelCommandRegex matches a bare cancel request. Anchored so free-text
// answers that merely contain the word do not destroy the draft.
var cancelCommandRegex = regexp.MustCompile(`(?i)^cancel( application)?$`)

// isCancelCommand detects an explicit cancel request.
func isCancelCommand(text string) bool {
	return cancelCommandRegex.MatchString(strings.TrimSpace(text))
}

// statusCommandRegex matches a bare status request. Kept narrow so answers
// that merely mention the word are not swallowed.
var statusCommandRegex = regexp.MustCompile(`(?i)^(check\s+)?status$`)

func isStatusCommand(text string) bool {
	return statusCommandRegex.MatchString(strings.TrimSpace(text))
}

// reviewSummary renders the pre-submission recap.
func reviewSummary(app models.Application) string {
	motivation := app.Motivation
	if runes := []rune(motivation); len(runes) > 80 {
		motivation = string(runes[:80])
	}
	return fmt.Sprintf("━━━━━━━━━━━━━━━━━━━━━\n📋 REVIEW YOUR APPLICATION\n━━━━━━━━━━━━━━━━━━━━━\n\n"+
		"👤 %s\n📧 %s\n🗺️ %s\n🎓 %s\n📊 %.0f%% average\n💰 R%.0f/year\n\n"+
		"✍️ Motivation:\n\"%s...\"\n\n🎯 Match Score: %d/100\n\n🎁 Matched Bursaries:\n%s\n\n"+
		"━━━━━━━━━━━━━━━━━━━━━\n\nReady to submit?\n\n1️⃣ Submit Application ✅\n2️⃣ Edit Details ✏️",
		app.FullName, app.Email, app.Province, app.FieldOfStudy,
		app.AcademicAverage, app.HouseholdIncome,
		motivation, app.EligibilityScore, FormatMatches(app.MatchedBursaries))
}
