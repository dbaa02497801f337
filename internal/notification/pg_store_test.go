package notification

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var notificationColumns = []string{
	"id", "viewer_id", "kind", "severity", "category", "title", "message", "read", "archived",
	"target_id", "metadata", "created_at",
}

func TestPgStoreFetchNotifications(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	viewer := uuid.New()
	id := uuid.New()
	target := uuid.NewString()
	created := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM notifications").
		WithArgs(viewer, []string{"appointment", "clinical"}, 100).
		WillReturnRows(pgxmock.NewRows(notificationColumns).AddRow(
			id, viewer, "appointment_reminder", SeverityInfo, CategoryAppointment, "Upcoming appointment",
			"Follow-up at 10:00", false, false, &target, []byte(`{"room":"3"}`), created,
		))

	store := NewPgStore(mock)
	got, err := store.FetchNotifications(context.Background(), Filter{
		ViewerID:   viewer,
		Categories: []Category{CategoryAppointment, CategoryClinical},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, id.String(), got[0].ID)
	assert.Equal(t, CategoryAppointment, got[0].Category)
	assert.Equal(t, map[string]string{"room": "3"}, got[0].Metadata)
	require.NotNil(t, got[0].TargetID)
	assert.Equal(t, target, *got[0].TargetID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStoreMarkReadNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	viewer := uuid.New()
	id := uuid.New()
	mock.ExpectExec("UPDATE notifications").
		WithArgs(id, viewer).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = NewPgStore(mock).MarkRead(context.Background(), viewer, id.String())
	assert.ErrorIs(t, err, ErrNotificationNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStoreMarkReadRejectsForeignIDs(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	err = NewPgStore(mock).MarkRead(context.Background(), uuid.New(), "allergy-alert-123")
	assert.ErrorIs(t, err, ErrNotificationNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStoreArchiveAndMarkAllRead(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	viewer := uuid.New()
	id := uuid.New()
	mock.ExpectExec("SET archived = true").
		WithArgs(id, viewer).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE notifications").
		WithArgs(viewer).
		WillReturnResult(pgxmock.NewResult("UPDATE", 4))

	store := NewPgStore(mock)
	require.NoError(t, store.Archive(context.Background(), viewer, id.String()))

	n, err := store.MarkAllRead(context.Background(), viewer)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStoreInsertDeduplicates(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("ON CONFLICT").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("ON CONFLICT").WillReturnResult(pgxmock.NewResult("INSERT", 0))

	store := NewPgStore(mock)
	n := Notification{ViewerID: uuid.New(), Kind: "appointment_reminder", Severity: SeverityInfo, Category: CategoryAppointment}

	inserted, err := store.Insert(context.Background(), n)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = store.Insert(context.Background(), n)
	require.NoError(t, err)
	assert.False(t, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}
