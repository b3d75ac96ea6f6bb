package evaluator

import (
	"time"

	"github.com/medtrack/flagging-engine/internal/model"
)

// Decision is the evaluator's verdict for one appointment.
type Decision struct {
	ShouldFlag bool
	Reason     model.FlagReason
}

// Evaluate decides whether an appointment currently qualifies for flagging.
// It is pure: no I/O, no clock reads, safe to re-run any number of times.
// hasActiveFlag is the caller-supplied answer to the existing-flag check; the
// lifecycle manager re-verifies it transactionally at insert time because
// evaluation and creation are not atomic across a batch.
//
// The rules run in order and the first miss wins:
//  1. confirmed appointments (or received confirmations) are never flagged
//  2. opted-out patients are never tracked
//  3. at least one reminder must have been sent
//  4. the owner must have auto-flagging enabled
//  5. the last reminder must carry a timestamp
//  6. the response timeout must have fully elapsed
//  7. the appointment time itself must have passed
//  8. no active flag may already exist for the pair
func Evaluate(apt *model.Appointment, cfg *model.FlaggingConfiguration, hasActiveFlag bool, now time.Time) Decision {
	notFlagged := Decision{}

	if apt.Notifications.ConfirmationReceived || apt.Status == model.AppointmentStatusConfirmed {
		return notFlagged
	}

	if apt.Notifications.OptedOut {
		return notFlagged
	}

	if !apt.Notifications.FirstNotification.Sent && !apt.Notifications.SecondNotification.Sent {
		return notFlagged
	}

	if !cfg.EnableAutoFlagging {
		return notFlagged
	}

	lastNotification := apt.Notifications.LastNotificationTime()
	if lastNotification == nil {
		return notFlagged
	}

	elapsed := now.Sub(*lastNotification)
	if elapsed < time.Duration(cfg.ResponseTimeoutHours)*time.Hour {
		return notFlagged
	}

	if apt.DateTime.After(now) {
		return notFlagged
	}

	if hasActiveFlag {
		return notFlagged
	}

	return Decision{ShouldFlag: true, Reason: model.FlagReasonNoResponse}
}
