package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/medtrack/flagging-engine/internal/model"
	"github.com/medtrack/flagging-engine/internal/repository"
	apperrors "github.com/medtrack/flagging-engine/pkg/errors"
)

// appointmentSource reads from the external appointment store's schema. Every
// failure here is surfaced as a store-unavailable error: the store is a
// dependency this engine does not own, and the scan orchestrator aborts the
// whole pass when the candidate query fails.
type appointmentSource struct {
	BaseRepository
}

func NewAppointmentSource(base BaseRepository) repository.AppointmentSource {
	return &appointmentSource{base}
}

type appointmentRow struct {
	ID                   uuid.UUID  `db:"id"`
	DoctorID             uuid.UUID  `db:"doctor_id"`
	PatientID            uuid.UUID  `db:"patient_id"`
	PatientName          string     `db:"patient_name"`
	PatientEmail         *string    `db:"patient_email"`
	DateTime             time.Time  `db:"date_time"`
	Status               string     `db:"status"`
	FirstSent            bool       `db:"first_notification_sent"`
	FirstSentAt          *time.Time `db:"first_notification_sent_at"`
	SecondSent           bool       `db:"second_notification_sent"`
	SecondSentAt         *time.Time `db:"second_notification_sent_at"`
	ConfirmationReceived bool       `db:"confirmation_received"`
	OptedOut             bool       `db:"opted_out"`
}

func (row *appointmentRow) toModel() *model.Appointment {
	return &model.Appointment{
		ID:           row.ID,
		DoctorID:     row.DoctorID,
		PatientID:    row.PatientID,
		PatientName:  row.PatientName,
		PatientEmail: row.PatientEmail,
		DateTime:     row.DateTime.UTC(),
		Status:       model.AppointmentStatus(row.Status),
		Notifications: model.NotificationState{
			FirstNotification:    model.NotificationAttempt{Sent: row.FirstSent, SentAt: utcOrNil(row.FirstSentAt)},
			SecondNotification:   model.NotificationAttempt{Sent: row.SecondSent, SentAt: utcOrNil(row.SecondSentAt)},
			ConfirmationReceived: row.ConfirmationReceived,
			OptedOut:             row.OptedOut,
		},
	}
}

func utcOrNil(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

const appointmentColumns = `
	id, doctor_id, patient_id, patient_name, patient_email, date_time, status,
	first_notification_sent, first_notification_sent_at,
	second_notification_sent, second_notification_sent_at,
	confirmation_received, opted_out
`

func (r *appointmentSource) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var row appointmentRow
	err := r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("appointment", err)
	}
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return row.toModel(), nil
}

func (r *appointmentSource) ListCandidates(ctx context.Context, status model.AppointmentStatus, before time.Time) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE status = $1 AND date_time <= $2
		ORDER BY date_time ASC
	`
	var rows []*appointmentRow
	err := r.db.SelectContext(ctx, &rows, query, status, before)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}

	appointments := make([]*model.Appointment, 0, len(rows))
	for _, row := range rows {
		appointments = append(appointments, row.toModel())
	}
	return appointments, nil
}
