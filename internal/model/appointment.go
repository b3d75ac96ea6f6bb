package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusNoShow    AppointmentStatus = "no_show"
)

// NotificationAttempt is one reminder send attempt from the external
// notification mechanism.
type NotificationAttempt struct {
	Sent   bool       `db:"sent" json:"sent"`
	SentAt *time.Time `db:"sent_at" json:"sent_at,omitempty"`
}

// NotificationState is the reminder sub-record embedded in an appointment.
type NotificationState struct {
	FirstNotification    NotificationAttempt `json:"first_notification"`
	SecondNotification   NotificationAttempt `json:"second_notification"`
	ConfirmationReceived bool                `db:"confirmation_received" json:"confirmation_received"`
	OptedOut             bool                `db:"opted_out" json:"opted_out"`
}

// LastNotificationTime returns the timestamp of the most recent reminder:
// the second notification if it was sent, else the first. A sent reminder
// with no timestamp yields nil; the earlier attempt is never substituted.
func (n NotificationState) LastNotificationTime() *time.Time {
	if n.SecondNotification.Sent {
		return n.SecondNotification.SentAt
	}
	if n.FirstNotification.Sent {
		return n.FirstNotification.SentAt
	}
	return nil
}

// SentCount returns how many reminders were sent.
func (n NotificationState) SentCount() int {
	count := 0
	if n.FirstNotification.Sent {
		count++
	}
	if n.SecondNotification.Sent {
		count++
	}
	return count
}

// Appointment is the read model the engine consumes from the external
// appointment store. The engine never writes appointments.
type Appointment struct {
	ID            uuid.UUID         `db:"id" json:"id"`
	DoctorID      uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	PatientID     uuid.UUID         `db:"patient_id" json:"patient_id"`
	PatientName   string            `db:"patient_name" json:"patient_name"`
	PatientEmail  *string           `db:"patient_email" json:"patient_email,omitempty"`
	DateTime      time.Time         `db:"date_time" json:"date_time"`
	Status        AppointmentStatus `db:"status" json:"status"`
	Notifications NotificationState `json:"notifications"`
}
