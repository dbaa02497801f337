package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/clinic-encounter-engine/internal/db"
)

const appointmentColumns = `id, patient_id, practitioner_id, start_time, duration_minutes, status,
		       cancel_reason, subject, notes, created_at, updated_at`

type PgRepository struct {
	db db.DBTX
}

func NewPgRepository(conn db.DBTX) *PgRepository {
	return &PgRepository{db: conn}
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var reason, subject, notes *string

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.PractitionerID,
		&a.StartTime,
		&a.DurationMinutes,
		&a.Status,
		&reason,
		&subject,
		&notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.CancelReason = reason
	if subject != nil {
		a.Subject = *subject
	}
	if notes != nil {
		a.Notes = *notes
	}
	return &a, nil
}

func (r *PgRepository) FetchAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) SetAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status, reason *string) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    cancel_reason = COALESCE($4, cancel_reason),
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, to, from, reason)

	appt, err := scanAppointment(row)
	if !errors.Is(err, ErrAppointmentNotFound) {
		return appt, err
	}

	// No row matched: either the appointment is gone or someone else moved it first.
	var current Status
	err = r.db.QueryRow(ctx, `SELECT status FROM appointments WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("recheck appointment status: %w", err)
	}
	return nil, fmt.Errorf("%w: expected %s, found %s", ErrStatusConflict, from, current)
}

func (r *PgRepository) ListBetween(ctx context.Context, practitionerID *uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE start_time >= $1
		  AND start_time < $2
		  AND ($3::uuid IS NULL OR practitioner_id = $3)
		ORDER BY start_time, id
	`, from, to, practitionerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
