package notification

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Overlay holds the viewer's local read/archive flags so a mutation shows up in the next feed
// even before the notification service reflects it. Last write wins.
type Overlay interface {
	MarkRead(ctx context.Context, viewerID uuid.UUID, id string) error
	MarkAllRead(ctx context.Context, viewerID uuid.UUID, at time.Time) error
	Archive(ctx context.Context, viewerID uuid.UUID, id string) error
	Apply(ctx context.Context, viewerID uuid.UUID, ns []Notification) ([]Notification, error)
}

type overlayState struct {
	read      map[string]bool
	archived  map[string]bool
	readAllAt time.Time
}

func newOverlayState() *overlayState {
	return &overlayState{read: make(map[string]bool), archived: make(map[string]bool)}
}

func (st *overlayState) apply(ns []Notification) []Notification {
	out := make([]Notification, 0, len(ns))
	for _, n := range ns {
		if st.archived[n.ID] {
			continue
		}
		if st.read[n.ID] || (!st.readAllAt.IsZero() && !n.CreatedAt.After(st.readAllAt)) {
			n.Read = true
		}
		out = append(out, n)
	}
	return out
}

type MemoryOverlay struct {
	mu      sync.Mutex
	viewers map[uuid.UUID]*overlayState
}

func NewMemoryOverlay() *MemoryOverlay {
	return &MemoryOverlay{viewers: make(map[uuid.UUID]*overlayState)}
}

func (o *MemoryOverlay) state(viewerID uuid.UUID) *overlayState {
	st, ok := o.viewers[viewerID]
	if !ok {
		st = newOverlayState()
		o.viewers[viewerID] = st
	}
	return st
}

func (o *MemoryOverlay) MarkRead(_ context.Context, viewerID uuid.UUID, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state(viewerID).read[id] = true
	return nil
}

func (o *MemoryOverlay) MarkAllRead(_ context.Context, viewerID uuid.UUID, at time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state(viewerID).readAllAt = at
	return nil
}

func (o *MemoryOverlay) Archive(_ context.Context, viewerID uuid.UUID, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state(viewerID).archived[id] = true
	return nil
}

func (o *MemoryOverlay) Apply(_ context.Context, viewerID uuid.UUID, ns []Notification) ([]Notification, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	st, ok := o.viewers[viewerID]
	if !ok {
		return ns, nil
	}
	return st.apply(ns), nil
}

const (
	fieldReadPrefix     = "r:"
	fieldArchivedPrefix = "a:"
	fieldReadAll        = "all"
)

// RedisOverlay keeps one hash per viewer, refreshed to ttl on every write.
type RedisOverlay struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisOverlay(client *redis.Client, ttl time.Duration) *RedisOverlay {
	return &RedisOverlay{client: client, ttl: ttl}
}

func overlayKey(viewerID uuid.UUID) string {
	return fmt.Sprintf("notif:state:%s", viewerID)
}

func (o *RedisOverlay) set(ctx context.Context, viewerID uuid.UUID, field, value string) error {
	key := overlayKey(viewerID)
	_, err := o.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, field, value)
		if o.ttl > 0 {
			pipe.Expire(ctx, key, o.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write read state: %w", err)
	}
	return nil
}

func (o *RedisOverlay) MarkRead(ctx context.Context, viewerID uuid.UUID, id string) error {
	return o.set(ctx, viewerID, fieldReadPrefix+id, "1")
}

func (o *RedisOverlay) MarkAllRead(ctx context.Context, viewerID uuid.UUID, at time.Time) error {
	return o.set(ctx, viewerID, fieldReadAll, strconv.FormatInt(at.UnixNano(), 10))
}

func (o *RedisOverlay) Archive(ctx context.Context, viewerID uuid.UUID, id string) error {
	return o.set(ctx, viewerID, fieldArchivedPrefix+id, "1")
}

func (o *RedisOverlay) Apply(ctx context.Context, viewerID uuid.UUID, ns []Notification) ([]Notification, error) {
	fields, err := o.client.HGetAll(ctx, overlayKey(viewerID)).Result()
	if err != nil {
		return ns, fmt.Errorf("read state: %w", err)
	}
	if len(fields) == 0 {
		return ns, nil
	}

	st := newOverlayState()
	for field, value := range fields {
		if field == fieldReadAll {
			if nanos, err := strconv.ParseInt(value, 10, 64); err == nil {
				st.readAllAt = time.Unix(0, nanos)
			}
			continue
		}
		if id, ok := strings.CutPrefix(field, fieldReadPrefix); ok {
			st.read[id] = true
		} else if id, ok := strings.CutPrefix(field, fieldArchivedPrefix); ok {
			st.archived[id] = true
		}
	}
	return st.apply(ns), nil
}
