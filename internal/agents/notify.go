package agents

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/futureme-za/futureme/internal/messaging"
	"github.com/futureme-za/futureme/internal/models"
	"github.com/futureme-za/futureme/internal/store"
)

// IdleWindow is how long a waitlisted member can go untouched before the
// notification job nudges them again.
const IdleWindow = 7 * 24 * time.Hour

// dripVisionMessage opens the progressive questionnaire; the follow-up
// question in the same send moves the member to the first answerable stage.
const dripVisionMessage = "Hi %s! 🌿 While we get ready for launch, we'd love to complete your matching profile.\n\n" +
	"First up: what's your background or community? (e.g., your church, school, or area — whatever you'd like to share)"

// dripCompleteMessage is the check-in for members whose profile is done.
const dripCompleteMessage = "Hi %s! 🙌 Your profile is complete and you're all set for launch. Watch this space — matching opens soon!"

// NotifyResult summarizes one notification sweep.
type NotifyResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Notifier sends the periodic drip messages to idle waitlisted members. Each
// successful send stamps last_notified_at so members are not spammed.
type Notifier struct {
	store store.Store
	msg   messaging.Service
	now   func() time.Time
}

// NewNotifier creates the notification job.
func NewNotifier(st store.Store, msg messaging.Service) *Notifier {
	return &Notifier{store: st, msg: msg, now: time.Now}
}

// Run performs one sweep: find idle waitlisted profiles, send each the next
// drip message, stamp the successes. Send failures are counted, not fatal.
func (n *Notifier) Run(ctx context.Context) (NotifyResult, error) {
	var result NotifyResult

	cutoff := n.now().Add(-IdleWindow)
	profiles, err := n.store.ListIdleProfiles(models.ProfileStatusWaitlisted, cutoff)
	if err != nil {
		return result, fmt.Errorf("notifier: %w", err)
	}
	if len(profiles) == 0 {
		slog.Info("Notifier.Run: no users eligible for notification")
		return result, nil
	}

	for i := range profiles {
		profile := profiles[i]
		body, advance := n.dripMessage(&profile)

		if err := n.msg.SendMessage(ctx, profile.WaID, body); err != nil {
			slog.Warn("Notifier.Run: send failed", "error", err, "waID", profile.WaID)
			result.Failed++
			continue
		}

		if advance {
			profile.UpdatedAt = n.now()
			if err := n.store.SaveProfile(profile); err != nil {
				slog.Error("Notifier.Run: stage advance save failed", "error", err, "waID", profile.WaID)
				result.Failed++
				continue
			}
		}
		if err := n.store.MarkProfileNotified(profile.WaID, n.now()); err != nil {
			slog.Error("Notifier.Run: notified stamp failed", "error", err, "waID", profile.WaID)
			result.Failed++
			continue
		}
		result.Sent++
	}

	slog.Info("Notifier.Run: sweep complete", "sent", result.Sent, "failed", result.Failed)
	return result, nil
}

// dripMessage picks the message for a member's current progressive stage and
// reports whether the stage should advance after a successful send.
func (n *Notifier) dripMessage(profile *models.Profile) (string, bool) {
	name := profile.ProfileData.Name
	if name == "" {
		name = "Friend"
	}

	switch profile.ProfileData.ProgressiveStage {
	case models.ProgressiveAwaitVision, "":
		profile.ProfileData.ProgressiveStage = models.ProgressiveAwaitDenomination
		return fmt.Sprintf(dripVisionMessage, name), true
	case models.ProgressiveComplete:
		return fmt.Sprintf(dripCompleteMessage, name), false
	default:
		// Mid-questionnaire: remind them to answer the open question in chat.
		return fmt.Sprintf("Hi %s! 👋 You have a profile question waiting — just reply here to pick up where you left off.", name), false
	}
}
