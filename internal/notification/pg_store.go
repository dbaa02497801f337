package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/clinic-encounter-engine/internal/db"
)

const defaultFetchLimit = 100

type PgStore struct {
	db db.DBTX
}

func NewPgStore(conn db.DBTX) *PgStore {
	return &PgStore{db: conn}
}

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	var id uuid.UUID
	var metadata []byte

	err := row.Scan(
		&id,
		&n.ViewerID,
		&n.Kind,
		&n.Severity,
		&n.Category,
		&n.Title,
		&n.Message,
		&n.Read,
		&n.Archived,
		&n.TargetID,
		&metadata,
		&n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	n.ID = id.String()
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &n.Metadata); err != nil {
			n.Metadata = nil
		}
	}
	return &n, nil
}

func (s *PgStore) FetchNotifications(ctx context.Context, f Filter) ([]Notification, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultFetchLimit
	}
	categories := make([]string, 0, len(f.Categories))
	for _, c := range f.Categories {
		categories = append(categories, string(c))
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, viewer_id, kind, severity, category, title, message, read, archived,
		       target_id, metadata, created_at
		FROM notifications
		WHERE viewer_id = $1
		  AND archived = false
		  AND (cardinality($2::text[]) = 0 OR category = ANY($2::text[]))
		ORDER BY created_at DESC
		LIMIT $3
	`, f.ViewerID, categories, limit)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var result []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *n)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *PgStore) MarkRead(ctx context.Context, viewerID uuid.UUID, id string) error {
	return s.updateOne(ctx, `
		UPDATE notifications
		SET read = true
		WHERE id = $1 AND viewer_id = $2
	`, viewerID, id)
}

func (s *PgStore) Archive(ctx context.Context, viewerID uuid.UUID, id string) error {
	return s.updateOne(ctx, `
		UPDATE notifications
		SET archived = true, read = true
		WHERE id = $1 AND viewer_id = $2
	`, viewerID, id)
}

func (s *PgStore) updateOne(ctx context.Context, sql string, viewerID uuid.UUID, id string) error {
	nid, err := uuid.Parse(id)
	if err != nil {
		return ErrNotificationNotFound
	}

	tag, err := s.db.Exec(ctx, sql, nid, viewerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *PgStore) MarkAllRead(ctx context.Context, viewerID uuid.UUID) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE notifications
		SET read = true
		WHERE viewer_id = $1 AND read = false AND archived = false
	`, viewerID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PgStore) Insert(ctx context.Context, n Notification) (bool, error) {
	id := uuid.New()
	if n.ID != "" {
		parsed, err := uuid.Parse(n.ID)
		if err != nil {
			return false, fmt.Errorf("notification id %q: %w", n.ID, err)
		}
		id = parsed
	}

	var metadata []byte
	if len(n.Metadata) > 0 {
		data, err := json.Marshal(n.Metadata)
		if err != nil {
			return false, fmt.Errorf("marshal notification metadata: %w", err)
		}
		metadata = data
	}

	created := n.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	tag, err := s.db.Exec(ctx, `
		INSERT INTO notifications (id, viewer_id, kind, severity, category, title, message,
		                           read, archived, target_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, false, $8, $9, $10)
		ON CONFLICT (viewer_id, kind, target_id) DO NOTHING
	`, id, n.ViewerID, n.Kind, n.Severity, n.Category, n.Title, n.Message, n.TargetID, metadata, created)
	if err != nil {
		return false, fmt.Errorf("insert notification: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
