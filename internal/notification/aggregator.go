package notification

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hackgods/clinic-encounter-engine/internal/clinical"
	"github.com/hackgods/clinic-encounter-engine/internal/metrics"
)

// Aggregator merges server notifications with derived clinical alerts and owns the viewer's
// read/archive mutations.
type Aggregator struct {
	store   Store
	overlay Overlay
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

func NewAggregator(store Store, overlay Overlay, logger zerolog.Logger, m *metrics.Metrics) *Aggregator {
	if overlay == nil {
		overlay = NewMemoryOverlay()
	}
	return &Aggregator{
		store:   store,
		overlay: overlay,
		logger:  logger.With().Str("component", "notification").Logger(),
		metrics: m,
	}
}

// Fetch returns the viewer's live server notifications with local read/archive flags applied.
func (a *Aggregator) Fetch(ctx context.Context, f Filter) ([]Notification, error) {
	fetched, err := a.store.FetchNotifications(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("fetch notifications: %w", err)
	}

	visible := make([]Notification, 0, len(fetched))
	for _, n := range fetched {
		if n.Archived || !f.Allows(n.Category) {
			continue
		}
		visible = append(visible, n)
	}

	applied, err := a.overlay.Apply(ctx, f.ViewerID, visible)
	if err != nil {
		a.logger.Warn().Err(err).Str("viewer_id", f.ViewerID.String()).Msg("read state unavailable, serving server flags")
		return visible, nil
	}
	return applied, nil
}

// AlertSource yields the clinical alerts to merge into a feed, usually derived from the open
// patient's record.
type AlertSource func(ctx context.Context) ([]clinical.Alert, error)

// Feed fetches the server notifications and the alerts concurrently and builds the viewer's feed.
// A nil source means no patient is open.
func (a *Aggregator) Feed(ctx context.Context, f Filter, alerts AlertSource, now time.Time) (*Feed, error) {
	var (
		server  []Notification
		derived []clinical.Alert
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fetched, err := a.Fetch(gctx, f)
		server = fetched
		return err
	})
	if alerts != nil {
		g.Go(func() error {
			got, err := alerts(gctx)
			derived = got
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	feed := Build(server, derived, now)
	a.metrics.ObserveFeedUnread(feed.Unread)
	return feed, nil
}

// Build is the pure half of Feed.
func Build(server []Notification, alerts []clinical.Alert, now time.Time) *Feed {
	items := Merge(server, alerts, now)
	return &Feed{
		Groups: GroupByBucket(items),
		Unread: UnreadCount(items),
		Total:  len(items),
	}
}

// Merge concatenates server notifications (archivable) with clinical alerts (ephemeral), dropping
// archived notifications and repeated ids, newest first.
func Merge(server []Notification, alerts []clinical.Alert, now time.Time) []Item {
	seen := make(map[string]bool, len(server)+len(alerts))
	items := make([]Item, 0, len(server)+len(alerts))

	add := func(n Notification, src Source) {
		if seen[n.ID] {
			return
		}
		seen[n.ID] = true
		items = append(items, Item{
			Notification:   n,
			Source:         src,
			Archivable:     src == SourceServer,
			DisplayMessage: NormalizeMessage(n.Message),
			RelativeTime:   RelativeTime(n.CreatedAt, now),
			Bucket:         BucketFor(n.CreatedAt, now),
		})
	}

	for _, n := range server {
		if n.Archived {
			continue
		}
		add(n, SourceServer)
	}
	for _, alert := range alerts {
		add(FromAlert(alert, now), SourceClinical)
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		if severityRank[a.Severity] != severityRank[b.Severity] {
			return severityRank[a.Severity] > severityRank[b.Severity]
		}
		return a.ID < b.ID
	})
	return items
}

// FromAlert renders a derived alert as an unread critical clinical notification stamped at now.
func FromAlert(alert clinical.Alert, now time.Time) Notification {
	target := alert.PatientID.String()
	return Notification{
		ID:        alert.ID,
		Kind:      "clinical_" + string(alert.Kind),
		Severity:  SeverityCritical,
		Category:  CategoryClinical,
		Title:     alert.Title,
		Message:   alert.Message,
		CreatedAt: now,
		TargetID:  &target,
		Metadata:  map[string]string{"values": alert.DisplayText()},
	}
}

// UnreadCount counts every clinical alert plus every unread server notification.
func UnreadCount(items []Item) int {
	n := 0
	for _, it := range items {
		if it.Source == SourceClinical || !it.Read {
			n++
		}
	}
	return n
}

// GroupByBucket keeps item order inside each bucket and omits empty buckets.
func GroupByBucket(items []Item) []Group {
	byBucket := make(map[Bucket][]Item, len(bucketOrder))
	for _, it := range items {
		byBucket[it.Bucket] = append(byBucket[it.Bucket], it)
	}

	groups := make([]Group, 0, len(bucketOrder))
	for _, b := range bucketOrder {
		if len(byBucket[b]) == 0 {
			continue
		}
		groups = append(groups, Group{Bucket: b, Items: byBucket[b]})
	}
	return groups
}

// MarkRead is a no-op for clinical alerts.
func (a *Aggregator) MarkRead(ctx context.Context, viewerID uuid.UUID, id string) error {
	if clinical.IsAlertID(id) {
		a.metrics.ObserveNotificationMutation("read", "noop")
		return nil
	}
	if err := a.store.MarkRead(ctx, viewerID, id); err != nil {
		return a.mutationFailed("read", id, err)
	}
	a.metrics.ObserveNotificationMutation("read", "ok")
	a.remember(a.overlay.MarkRead(ctx, viewerID, id), viewerID)
	return nil
}

// MarkAllRead only touches server notifications.
func (a *Aggregator) MarkAllRead(ctx context.Context, viewerID uuid.UUID, now time.Time) (int64, error) {
	n, err := a.store.MarkAllRead(ctx, viewerID)
	if err != nil {
		return 0, a.mutationFailed("read_all", "", err)
	}
	a.metrics.ObserveNotificationMutation("read_all", "ok")
	a.remember(a.overlay.MarkAllRead(ctx, viewerID, now), viewerID)
	return n, nil
}

// Archive rejects clinical alerts with ErrNotArchivable.
func (a *Aggregator) Archive(ctx context.Context, viewerID uuid.UUID, id string) error {
	if clinical.IsAlertID(id) {
		a.metrics.ObserveNotificationMutation("archive", "rejected")
		return fmt.Errorf("%w: %s is a derived clinical alert", ErrNotArchivable, id)
	}
	if err := a.store.Archive(ctx, viewerID, id); err != nil {
		return a.mutationFailed("archive", id, err)
	}
	a.metrics.ObserveNotificationMutation("archive", "ok")
	a.remember(a.overlay.Archive(ctx, viewerID, id), viewerID)
	return nil
}

func (a *Aggregator) mutationFailed(op, id string, err error) error {
	if errors.Is(err, ErrNotificationNotFound) {
		a.metrics.ObserveNotificationMutation(op, "not_found")
		return err
	}
	a.metrics.ObserveNotificationMutation(op, "failed")
	a.logger.Warn().Err(err).Str("op", op).Str("notification_id", id).Msg("notification mutation failed")
	return fmt.Errorf("%w: %s: %w", ErrRemoteMutationFailed, op, err)
}

// remember logs overlay write failures; the server already holds the flag.
func (a *Aggregator) remember(err error, viewerID uuid.UUID) {
	if err != nil {
		a.logger.Warn().Err(err).Str("viewer_id", viewerID.String()).Msg("failed to cache read state")
	}
}
