package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-encounter-engine/internal/clinical"
)

type fakeStore struct {
	notifications []Notification
	fetchErr      error
	mutateErr     error
	readCalls     []string
	archiveCalls  []string
	readAllCalls  int
}

func (s *fakeStore) FetchNotifications(ctx context.Context, f Filter) ([]Notification, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	out := make([]Notification, len(s.notifications))
	copy(out, s.notifications)
	return out, nil
}

func (s *fakeStore) MarkRead(ctx context.Context, viewerID uuid.UUID, id string) error {
	if s.mutateErr != nil {
		return s.mutateErr
	}
	s.readCalls = append(s.readCalls, id)
	return nil
}

func (s *fakeStore) MarkAllRead(ctx context.Context, viewerID uuid.UUID) (int64, error) {
	if s.mutateErr != nil {
		return 0, s.mutateErr
	}
	s.readAllCalls++
	return int64(len(s.notifications)), nil
}

func (s *fakeStore) Archive(ctx context.Context, viewerID uuid.UUID, id string) error {
	if s.mutateErr != nil {
		return s.mutateErr
	}
	s.archiveCalls = append(s.archiveCalls, id)
	return nil
}

func (s *fakeStore) Insert(ctx context.Context, n Notification) (bool, error) {
	s.notifications = append(s.notifications, n)
	return true, nil
}

var now = time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)

func serverNotification(id string, created time.Time, read bool) Notification {
	return Notification{
		ID:        id,
		Severity:  SeverityInfo,
		Category:  CategoryAppointment,
		Title:     "Appointment update",
		Message:   "Moved to room 3",
		Read:      read,
		CreatedAt: created,
	}
}

func allergyAlerts(t *testing.T) []clinical.Alert {
	t.Helper()
	alerts := clinical.Derive(clinical.PatientSnapshot{ID: uuid.New(), Allergies: `["Peanuts","Penicillin"]`})
	require.Len(t, alerts, 1)
	return alerts
}

func TestBuildMergesAndCountsUnread(t *testing.T) {
	server := []Notification{
		serverNotification("n-today", now.Add(-time.Hour), false),
		serverNotification("n-yesterday", now.Add(-11*time.Hour), true),
		serverNotification("n-week", time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC), false),
	}
	alerts := allergyAlerts(t)

	feed := Build(server, alerts, now)

	assert.Equal(t, 4, feed.Total)
	// the alert always counts, plus the two unread server notifications
	assert.Equal(t, 3, feed.Unread)

	require.Len(t, feed.Groups, 3)
	assert.Equal(t, BucketToday, feed.Groups[0].Bucket)
	require.Len(t, feed.Groups[0].Items, 2)
	assert.Equal(t, alerts[0].ID, feed.Groups[0].Items[0].ID)
	assert.Equal(t, SourceClinical, feed.Groups[0].Items[0].Source)
	assert.False(t, feed.Groups[0].Items[0].Archivable)
	assert.Equal(t, SeverityCritical, feed.Groups[0].Items[0].Severity)
	assert.Equal(t, "n-today", feed.Groups[0].Items[1].ID)
	assert.True(t, feed.Groups[0].Items[1].Archivable)
	assert.Equal(t, "1h ago", feed.Groups[0].Items[1].RelativeTime)

	assert.Equal(t, BucketYesterday, feed.Groups[1].Bucket)
	assert.Equal(t, BucketThisWeek, feed.Groups[2].Bucket)
}

func TestBuildOmitsEmptyBucketsAndArchived(t *testing.T) {
	archived := serverNotification("n-archived", now.Add(-time.Hour), false)
	archived.Archived = true
	old := serverNotification("n-old", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), true)

	feed := Build([]Notification{archived, old}, nil, now)

	require.Len(t, feed.Groups, 1)
	assert.Equal(t, BucketOlder, feed.Groups[0].Bucket)
	assert.Equal(t, 1, feed.Total)
	assert.Zero(t, feed.Unread)
}

func TestBuildAlertsRecomputedDoNotDuplicate(t *testing.T) {
	snapshot := clinical.PatientSnapshot{ID: uuid.New(), Allergies: "Latex", MedicalHistory: "asthma"}
	alerts := append(clinical.Derive(snapshot), clinical.Derive(snapshot)...)

	feed := Build(nil, alerts, now)

	assert.Equal(t, 2, feed.Total)
	assert.Equal(t, 2, feed.Unread)
}

func TestBuildNormalizesDisplayMessage(t *testing.T) {
	n := serverNotification("n-1", now.Add(-time.Minute), false)
	n.Message = `Patient has allergies: ["Peanuts"]`

	feed := Build([]Notification{n}, nil, now)

	item := feed.Groups[0].Items[0]
	assert.Equal(t, "Patient has allergies: Peanuts", item.DisplayMessage)
	assert.Equal(t, `Patient has allergies: ["Peanuts"]`, item.Message)
}

func TestAggregatorFeedFiltersCategoriesAndAppliesOverlay(t *testing.T) {
	viewer := uuid.New()
	pharmacy := serverNotification("n-pharmacy", now.Add(-time.Hour), false)
	pharmacy.Category = CategoryPharmacy
	store := &fakeStore{notifications: []Notification{
		serverNotification("n-1", now.Add(-time.Hour), false),
		serverNotification("n-2", now.Add(-2*time.Hour), false),
		pharmacy,
	}}
	agg := NewAggregator(store, nil, zerolog.Nop(), nil)
	ctx := context.Background()

	require.NoError(t, agg.MarkRead(ctx, viewer, "n-1"))
	require.NoError(t, agg.Archive(ctx, viewer, "n-2"))

	feed, err := agg.Feed(ctx, Filter{ViewerID: viewer, Categories: CategoriesForRole("nurse")}, nil, now)
	require.NoError(t, err)

	require.Equal(t, 1, feed.Total)
	item := feed.Groups[0].Items[0]
	assert.Equal(t, "n-1", item.ID)
	assert.True(t, item.Read)
	assert.Zero(t, feed.Unread)
}

func TestAggregatorFeedFetchError(t *testing.T) {
	agg := NewAggregator(&fakeStore{fetchErr: errors.New("timeout")}, nil, zerolog.Nop(), nil)

	_, err := agg.Feed(context.Background(), Filter{ViewerID: uuid.New()}, nil, now)
	assert.Error(t, err)
}

func TestAggregatorFeedMergesAlertSource(t *testing.T) {
	store := &fakeStore{notifications: []Notification{serverNotification("n-1", now.Add(-time.Hour), true)}}
	agg := NewAggregator(store, nil, zerolog.Nop(), nil)
	alerts := allergyAlerts(t)

	feed, err := agg.Feed(context.Background(), Filter{ViewerID: uuid.New()}, func(context.Context) ([]clinical.Alert, error) {
		return alerts, nil
	}, now)
	require.NoError(t, err)

	assert.Equal(t, 2, feed.Total)
	assert.Equal(t, 1, feed.Unread)
}

func TestAggregatorFeedAlertSourceError(t *testing.T) {
	agg := NewAggregator(&fakeStore{}, nil, zerolog.Nop(), nil)
	lookupErr := errors.New("patient lookup failed")

	_, err := agg.Feed(context.Background(), Filter{ViewerID: uuid.New()}, func(context.Context) ([]clinical.Alert, error) {
		return nil, lookupErr
	}, now)
	assert.ErrorIs(t, err, lookupErr)
}

func TestAggregatorMarkReadIgnoresAlerts(t *testing.T) {
	store := &fakeStore{}
	agg := NewAggregator(store, nil, zerolog.Nop(), nil)
	alerts := allergyAlerts(t)

	require.NoError(t, agg.MarkRead(context.Background(), uuid.New(), alerts[0].ID))
	assert.Empty(t, store.readCalls)

	feed := Build(nil, alerts, now)
	assert.Equal(t, 1, feed.Unread)
}

func TestAggregatorArchiveRejectsAlerts(t *testing.T) {
	store := &fakeStore{}
	agg := NewAggregator(store, nil, zerolog.Nop(), nil)
	alerts := allergyAlerts(t)

	err := agg.Archive(context.Background(), uuid.New(), alerts[0].ID)
	assert.ErrorIs(t, err, ErrNotArchivable)
	assert.Empty(t, store.archiveCalls)
}

func TestAggregatorMarkAllReadOnlyServer(t *testing.T) {
	viewer := uuid.New()
	store := &fakeStore{notifications: []Notification{
		serverNotification("n-1", now.Add(-time.Hour), false),
		serverNotification("n-2", now.Add(-2*time.Hour), false),
	}}
	agg := NewAggregator(store, nil, zerolog.Nop(), nil)
	ctx := context.Background()

	n, err := agg.MarkAllRead(ctx, viewer, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 1, store.readAllCalls)

	server, err := agg.Fetch(ctx, Filter{ViewerID: viewer})
	require.NoError(t, err)
	feed := Build(server, allergyAlerts(t), now)
	assert.Equal(t, 1, feed.Unread, "only the clinical alert stays unread")
}

func TestAggregatorMutationFailures(t *testing.T) {
	store := &fakeStore{mutateErr: errors.New("503 from notification service")}
	agg := NewAggregator(store, nil, zerolog.Nop(), nil)
	ctx := context.Background()
	viewer := uuid.New()

	assert.ErrorIs(t, agg.MarkRead(ctx, viewer, "n-1"), ErrRemoteMutationFailed)
	assert.ErrorIs(t, agg.Archive(ctx, viewer, "n-1"), ErrRemoteMutationFailed)
	_, err := agg.MarkAllRead(ctx, viewer, now)
	assert.ErrorIs(t, err, ErrRemoteMutationFailed)

	store.mutateErr = ErrNotificationNotFound
	assert.ErrorIs(t, agg.MarkRead(ctx, viewer, "n-404"), ErrNotificationNotFound)
}

func TestCategoriesForRole(t *testing.T) {
	assert.Contains(t, CategoriesForRole("Pharmacist"), CategoryPharmacy)
	assert.NotContains(t, CategoriesForRole("receptionist"), CategoryClinical)
	assert.Nil(t, CategoriesForRole("admin"))
	assert.True(t, Filter{}.Allows(CategoryDocument))
}
