package notification

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
	// ErrNotArchivable is returned for derived clinical alerts, which have no server-side record.
	ErrNotArchivable = errors.New("notification cannot be archived")
	// ErrRemoteMutationFailed means the notification service rejected or never answered a mutation.
	ErrRemoteMutationFailed = errors.New("notification mutation failed")
)

// Filter scopes a fetch to one viewer and the categories their role may see.
type Filter struct {
	ViewerID   uuid.UUID
	Categories []Category
	Limit      int
}

func (f Filter) Allows(c Category) bool {
	if len(f.Categories) == 0 {
		return true
	}
	for _, allowed := range f.Categories {
		if allowed == c {
			return true
		}
	}
	return false
}

var roleCategories = map[string][]Category{
	"doctor":       {CategoryAppointment, CategoryClinical, CategoryPatient, CategoryDocument, CategorySystem},
	"nurse":        {CategoryAppointment, CategoryClinical, CategoryPatient, CategorySystem},
	"pharmacist":   {CategoryPharmacy, CategoryClinical, CategorySystem},
	"receptionist": {CategoryAppointment, CategoryPatient, CategoryDocument, CategorySystem},
}

// CategoriesForRole returns the categories a role sees. Unknown roles and admins see everything (nil).
func CategoriesForRole(role string) []Category {
	return roleCategories[strings.ToLower(strings.TrimSpace(role))]
}

// Store is the notification service.
type Store interface {
	FetchNotifications(ctx context.Context, f Filter) ([]Notification, error)
	MarkRead(ctx context.Context, viewerID uuid.UUID, id string) error
	MarkAllRead(ctx context.Context, viewerID uuid.UUID) (int64, error)
	Archive(ctx context.Context, viewerID uuid.UUID, id string) error
	// Insert adds n unless the viewer already has one of the same kind for the same target.
	Insert(ctx context.Context, n Notification) (bool, error)
}
