package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var appointmentRowColumns = []string{
	"id", "patient_id", "practitioner_id", "start_time", "duration_minutes", "status",
	"cancel_reason", "subject", "notes", "created_at", "updated_at",
}

func appointmentRow(a Appointment) *pgxmock.Rows {
	subject := a.Subject
	return pgxmock.NewRows(appointmentRowColumns).AddRow(
		a.ID, a.PatientID, a.PractitionerID, a.StartTime, a.DurationMinutes, a.Status,
		a.CancelReason, &subject, (*string)(nil), a.CreatedAt, a.UpdatedAt,
	)
}

func TestPgRepositoryFetchAppointment(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	appt := newAppointment(StatusScheduled)
	appt.Subject = "Follow-up"
	appt.CreatedAt = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	appt.UpdatedAt = appt.CreatedAt

	mock.ExpectQuery("FROM appointments").WithArgs(appt.ID).WillReturnRows(appointmentRow(appt))

	repo := NewPgRepository(mock)
	got, err := repo.FetchAppointment(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, appt.ID, got.ID)
	assert.Equal(t, StatusScheduled, got.Status)
	assert.Equal(t, "Follow-up", got.Subject)
	assert.Empty(t, got.Notes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepositoryFetchAppointmentNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery("FROM appointments").WithArgs(id).WillReturnError(pgx.ErrNoRows)

	_, err = NewPgRepository(mock).FetchAppointment(context.Background(), id)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepositorySetStatusConflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery("UPDATE appointments").
		WithArgs(id, StatusInProgress, StatusScheduled, pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT status FROM appointments").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow(StatusCancelled))

	_, err = NewPgRepository(mock).SetAppointmentStatus(context.Background(), id, StatusScheduled, StatusInProgress, nil)
	assert.ErrorIs(t, err, ErrStatusConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepositorySetStatusMissingRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery("UPDATE appointments").
		WithArgs(id, StatusCompleted, StatusInProgress, pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT status FROM appointments").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err = NewPgRepository(mock).SetAppointmentStatus(context.Background(), id, StatusInProgress, StatusCompleted, nil)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepositoryInsertEvent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectExec("INSERT INTO event_logs").
		WithArgs(EventAppointmentStarted, &id, []byte(`{}`), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = NewPgRepository(mock).InsertEvent(context.Background(), EventLog{
		EventType:     EventAppointmentStarted,
		AppointmentID: &id,
		Payload:       []byte(`{}`),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
