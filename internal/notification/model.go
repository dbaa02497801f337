package notification

import (
	"time"

	"github.com/google/uuid"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeveritySuccess  Severity = "success"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityInfo:     0,
	SeveritySuccess:  1,
	SeverityWarning:  2,
	SeverityError:    3,
	SeverityCritical: 4,
}

type Category string

const (
	CategoryAppointment Category = "appointment"
	CategoryClinical    Category = "clinical"
	CategoryPatient     Category = "patient"
	CategoryDocument    Category = "document"
	CategoryPharmacy    Category = "pharmacy"
	CategorySystem      Category = "system"
)

// Source tells whether an item came from the notification service or was derived locally.
type Source string

const (
	SourceServer   Source = "server"
	SourceClinical Source = "clinical"
)

// Notification is a server-delivered notification addressed to one viewer.
type Notification struct {
	ID        string
	ViewerID  uuid.UUID
	Kind      string
	Severity  Severity
	Category  Category
	Title     string
	Message   string
	Read      bool
	Archived  bool
	CreatedAt time.Time
	TargetID  *string
	Metadata  map[string]string
}

// Item is a feed entry ready for rendering.
type Item struct {
	Notification
	Source         Source
	Archivable     bool
	DisplayMessage string
	RelativeTime   string
	Bucket         Bucket
}

type Group struct {
	Bucket Bucket
	Items  []Item
}

type Feed struct {
	Groups []Group
	Unread int
	Total  int
}
