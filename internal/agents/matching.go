// Package agents implements the conversational agents behind the FutureMe
// webhook: onboarding, bursary applications, career guidance, profile views,
// the menu, and free-form conversation, routed per turn by the Brain.
package agents

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/futureme-za/futureme/internal/models"
)

// Field-of-study labels used by the questionnaire and the matching rules.
const (
	FieldSTEM           = "STEM"
	FieldCommerce       = "Commerce"
	FieldHealthSciences = "Health Sciences"
	FieldHumanities     = "Humanities"
	FieldOther          = "Other"
)

// incomeThreshold is the annual household income (rand) under which
// need-based support applies.
const incomeThreshold = 350000

// maxMatches caps the bursary list shown to an applicant.
const maxMatches = 3

// EligibilityScore computes an application's score on a fixed rubric:
// a base of 50, plus citizenship, academics, financial need, and priority
// field bonuses, capped at 100.
func EligibilityScore(app models.Application) int {
	score := 50
	if app.IsSACitizen {
		score += 10
	}
	if app.AcademicAverage >= 75 {
		score += 20
	} else if app.AcademicAverage >= 60 {
		score += 15
	}
	if app.HouseholdIncome < incomeThreshold {
		score += 15
	}
	if app.FieldOfStudy == FieldSTEM {
		score += 5
	}
	if score > 100 {
		score = 100
	}
	return score
}

// MatchBursaries runs the rule table against a completed application and
// returns at most maxMatches candidates. When no rule fires but the
// household income qualifies, the need-based fallback applies.
func MatchBursaries(app models.Application) []models.BursaryMatch {
	var matches []models.BursaryMatch

	if app.FieldOfStudy == FieldSTEM && app.AcademicAverage >= 60 {
		matches = append(matches, models.BursaryMatch{
			Name:         "Siemens Bursary",
			Funder:       "Siemens South Africa",
			MatchScore:   0.92,
			Reason:       "STEM field + strong academics",
			Amount:       "R80,000/year + internship",
			Deadline:     "31 December 2025",
			ContactEmail: "bursaries@siemens.co.za",
		})
	}
	if app.FieldOfStudy == FieldCommerce {
		matches = append(matches, models.BursaryMatch{
			Name:         "Momentum Bursary",
			Funder:       "Momentum Metropolitan",
			MatchScore:   0.85,
			Reason:       "Commerce/Business student",
			Amount:       "Full tuition",
			Deadline:     "15 December 2025",
			ContactEmail: "bursaries@momentum.co.za",
		})
	}
	if app.FieldOfStudy == FieldHealthSciences && app.AcademicAverage >= 65 {
		matches = append(matches, models.BursaryMatch{
			Name:         "Metropolitan Health Bursary",
			Funder:       "Metropolitan Health Group",
			MatchScore:   0.88,
			Reason:       "Health Sciences + good performance",
			Amount:       "R60,000/year",
			Deadline:     "30 November 2025",
			ContactEmail: "bursaries@metropolitanhealth.co.za",
		})
	}
	if len(matches) == 0 && app.HouseholdIncome < incomeThreshold {
		matches = append(matches, models.BursaryMatch{
			Name:         "General Financial Aid",
			Funder:       "FutureMe Fund",
			MatchScore:   0.70,
			Reason:       "Financial need-based",
			Amount:       "Varies",
			Deadline:     "Ongoing",
			ContactEmail: "support@futureme.co.za",
		})
	}

	if len(matches) > maxMatches {
		matches = matches[:maxMatches]
	}
	return matches
}

// GenerateRef builds a human-quotable application reference from the
// applicant's initials and a base-36 timestamp, e.g. "FME-TM-MDDQ3K1A".
func GenerateRef(app models.Application, now time.Time) string {
	name := app.FullName
	if strings.TrimSpace(name) == "" {
		name = "USER"
	}
	var initials strings.Builder
	for _, part := range strings.Fields(name) {
		initials.WriteString(strings.ToUpper(part[:1]))
	}
	timestamp := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	return fmt.Sprintf("FME-%s-%s", initials.String(), timestamp)
}

// FormatMatches renders a numbered match list for WhatsApp replies.
func FormatMatches(matches []models.BursaryMatch) string {
	if len(matches) == 0 {
		return "• We're still analyzing your profile for the best matches."
	}
	var b strings.Builder
	for i, m := range matches {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. %s (%d%% match)", i+1, m.Name, int(m.MatchScore*100+0.5))
	}
	return b.String()
}
