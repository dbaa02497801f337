package notification

import (
	"fmt"
	"time"
)

type Bucket string

const (
	BucketToday     Bucket = "Today"
	BucketYesterday Bucket = "Yesterday"
	BucketThisWeek  Bucket = "This Week"
	BucketOlder     Bucket = "Older"
)

// bucketOrder is the rendering order of groups.
var bucketOrder = []Bucket{BucketToday, BucketYesterday, BucketThisWeek, BucketOlder}

// BucketFor assigns created to exactly one recency bucket using the calendar days of now's location.
// "This Week" covers the five days before yesterday.
func BucketFor(created, now time.Time) Bucket {
	loc := now.Location()
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)
	c := created.In(loc)

	switch {
	case !c.Before(today):
		return BucketToday
	case !c.Before(today.AddDate(0, 0, -1)):
		return BucketYesterday
	case !c.Before(today.AddDate(0, 0, -6)):
		return BucketThisWeek
	default:
		return BucketOlder
	}
}

// RelativeTime renders ts relative to now. Timestamps in the future read as "now".
func RelativeTime(ts, now time.Time) string {
	elapsed := now.Sub(ts)
	if elapsed < 0 {
		elapsed = 0
	}

	switch {
	case elapsed < time.Minute:
		return "now"
	case elapsed < time.Hour:
		return fmt.Sprintf("%dm ago", int(elapsed/time.Minute))
	case elapsed < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(elapsed/time.Hour))
	}

	days := int(elapsed / (24 * time.Hour))
	switch {
	case days == 1:
		return "yesterday"
	case days < 7:
		return fmt.Sprintf("%dd ago", days)
	default:
		return ts.In(now.Location()).Format("Jan 2, 2006")
	}
}
