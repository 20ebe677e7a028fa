// Package models defines profile types for the FutureMe community onboarding flow.
package models

import "time"

// ProfileStatus is the lifecycle status of a community profile.
type ProfileStatus string

const (
	ProfileStatusOnboarding ProfileStatus = "onboarding_started"
	ProfileStatusWaitlisted ProfileStatus = "waitlist_completed"
	ProfileStatusDeleted    ProfileStatus = "deleted"
)

// OnboardingStage is the persisted position within the onboarding questionnaire.
type OnboardingStage string

const (
	OnboardingStart       OnboardingStage = "START"
	OnboardingAwaitAge    OnboardingStage = "AWAIT_AGE"
	OnboardingAwaitGender OnboardingStage = "AWAIT_GENDER"
	OnboardingAwaitIntent OnboardingStage = "AWAIT_INTENT"
	OnboardingComplete    OnboardingStage = "COMPLETE"
)

// ProgressiveStage is the position within the post-onboarding profile drip.
// These questions are pushed by the notification job and answered in chat.
type ProgressiveStage string

const (
	ProgressiveAwaitVision          ProgressiveStage = "awaiting_vision"
	ProgressiveAwaitDenomination    ProgressiveStage = "awaiting_denomination"
	ProgressiveAwaitRhythm          ProgressiveStage = "awaiting_rhythm"
	ProgressiveAwaitPrayerStyle     ProgressiveStage = "awaiting_prayer_style"
	ProgressiveAwaitFellowship      ProgressiveStage = "awaiting_fellowship_interest"
	ProgressiveAwaitMatchGenderPref ProgressiveStage = "awaiting_match_gender_pref"
	ProgressiveAwaitMatchAgePref    ProgressiveStage = "awaiting_match_age_pref"
	ProgressiveComplete             ProgressiveStage = "progressive_complete"
)

// ProfileData is the accumulated answer set for a community profile. The
// original system kept this as a schema-less JSON bag; fields are explicit
// here so required-field checks happen before terminal transitions.
type ProfileData struct {
	CurrentStage       OnboardingStage  `json:"current_stage"`
	ProgressiveStage   ProgressiveStage `json:"progressive_stage,omitempty"`
	Name               string           `json:"name,omitempty"`
	Age                int              `json:"age,omitempty"`
	Gender             string           `json:"gender,omitempty"`
	ConnectionIntent   string           `json:"intent,omitempty"`
	Denomination       string           `json:"denomination,omitempty"`
	Rhythm             string           `json:"rhythm,omitempty"`
	PrayerStyle        string           `json:"prayer_style,omitempty"`
	FellowshipInterest string           `json:"fellowship_interest,omitempty"`
	MatchGenderPref    string           `json:"match_gender_pref,omitempty"`
	MatchAgePref       string           `json:"match_age_pref,omitempty"`
}

// Profile is the per-user community profile row, keyed by waId.
type Profile struct {
	WaID           string        `json:"wa_id"`
	Status         ProfileStatus `json:"status"`
	ProfileData    ProfileData   `json:"profile_data"`
	LastNotifiedAt *time.Time    `json:"last_notified_at,omitempty"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
	DeletedAt      *time.Time    `json:"deleted_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// OnboardingInProgress reports whether the user is still answering the
// founding-member questionnaire. The stage tag names the answer being waited
// for, so even at stage COMPLETE the final answer is owed until the status
// flips to waitlisted.
func (p *Profile) OnboardingInProgress() bool {
	return p.Status == ProfileStatusOnboarding
}

// ProgressiveInProgress reports whether the user has drip questions pending.
func (p *Profile) ProgressiveInProgress() bool {
	ps := p.ProfileData.ProgressiveStage
	return ps != "" && ps != ProgressiveComplete && ps != ProgressiveAwaitVision
}
