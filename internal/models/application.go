// Package models defines the bursary application types.
package models

import "time"

// ApplicationStatus is the lifecycle status of a bursary application.
type ApplicationStatus string

const (
	ApplicationStatusDraft      ApplicationStatus = "draft"
	ApplicationStatusSubmitted  ApplicationStatus = "submitted"
	ApplicationStatusIneligible ApplicationStatus = "ineligible"
	ApplicationStatusCancelled  ApplicationStatus = "cancelled"
)

// ApplicationStep is the persisted position within the bursary questionnaire.
type ApplicationStep string

const (
	StepStart            ApplicationStep = "START"
	StepAwaitFullName    ApplicationStep = "AWAIT_FULL_NAME"
	StepAwaitEmail       ApplicationStep = "AWAIT_EMAIL"
	StepAwaitProvince    ApplicationStep = "AWAIT_PROVINCE"
	StepAwaitCitizenship ApplicationStep = "AWAIT_CITIZENSHIP"
	StepAwaitLevel       ApplicationStep = "AWAIT_ACADEMIC_LEVEL"
	StepAwaitField       ApplicationStep = "AWAIT_FIELD_OF_STUDY"
	StepAwaitAverage     ApplicationStep = "AWAIT_ACADEMIC_AVERAGE"
	StepAwaitIncome      ApplicationStep = "AWAIT_HOUSEHOLD_INCOME"
	StepAwaitMotivation  ApplicationStep = "AWAIT_MOTIVATION"
	StepAwaitReview      ApplicationStep = "AWAIT_REVIEW"
	StepComplete         ApplicationStep = "COMPLETE"
)

// ApplicationStepOrder is the fixed linear order of the questionnaire. Only
// the ineligible early exit and the review edit rewind move against it.
var ApplicationStepOrder = []ApplicationStep{
	StepStart,
	StepAwaitFullName,
	StepAwaitEmail,
	StepAwaitProvince,
	StepAwaitCitizenship,
	StepAwaitLevel,
	StepAwaitField,
	StepAwaitAverage,
	StepAwaitIncome,
	StepAwaitMotivation,
	StepAwaitReview,
	StepComplete,
}

// StepIndex returns the position of a step in the fixed order, or -1.
func StepIndex(step ApplicationStep) int {
	for i, s := range ApplicationStepOrder {
		if s == step {
			return i
		}
	}
	return -1
}

// BursaryMatch is a candidate bursary produced by the matching rule table.
type BursaryMatch struct {
	Name         string  `json:"name"`
	Funder       string  `json:"funder"`
	MatchScore   float64 `json:"match_score"`
	Reason       string  `json:"reason"`
	Amount       string  `json:"amount"`
	Deadline     string  `json:"deadline"`
	ContactEmail string  `json:"contact_email"`
}

// Application is a bursary application row, keyed by id with at most one
// draft per waId. Version backs optimistic concurrency on writes.
type Application struct {
	ID               string            `json:"id"`
	WaID             string            `json:"wa_id"`
	Status           ApplicationStatus `json:"status"`
	CurrentStep      ApplicationStep   `json:"current_step"`
	Version          int64             `json:"version"`
	FullName         string            `json:"full_name,omitempty"`
	Email            string            `json:"email,omitempty"`
	Province         string            `json:"province,omitempty"`
	IsSACitizen      bool              `json:"is_sa_citizen"`
	AcademicLevel    string            `json:"academic_level,omitempty"`
	FieldOfStudy     string            `json:"field_of_study,omitempty"`
	AcademicAverage  float64           `json:"academic_average,omitempty"`
	HouseholdIncome  float64           `json:"household_income,omitempty"`
	Motivation       string            `json:"motivation,omitempty"`
	EligibilityScore int               `json:"eligibility_score,omitempty"`
	ApplicationRef   string            `json:"application_ref,omitempty"`
	MatchedBursaries []BursaryMatch    `json:"matched_bursaries,omitempty"`
	SubmittedAt      *time.Time        `json:"submitted_at,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// InProgress reports whether the draft wizard should keep the user pinned to
// the application agent regardless of classified intent.
func (a *Application) InProgress() bool {
	return a.Status == ApplicationStatusDraft && a.CurrentStep != StepComplete
}
