package tasks

import (
	"time"

	"github.com/taskdeck/taskdeck/internal/models"
)

// Bucket is a display section in a categorized task listing
type Bucket string

const (
	BucketOverdue    Bucket = "Overdue"
	BucketDueToday   Bucket = "Due today"
	BucketUpcoming   Bucket = "Upcoming"
	BucketLater      Bucket = "Later"
	BucketCompleted  Bucket = "Completed"
	BucketInProgress Bucket = "In progress"
)

// BucketOrder is the section display order
var BucketOrder = []Bucket{
	BucketOverdue,
	BucketDueToday,
	BucketUpcoming,
	BucketLater,
	BucketCompleted,
	BucketInProgress,
}

// BucketFor assigns a task to exactly one bucket. Status wins over due
// date: a DONE task due yesterday is Completed, never Overdue. Due-date
// comparison is date-only in now's location.
func BucketFor(t models.Task, now time.Time) Bucket {
	switch {
	case t.Status == models.TaskStatusDone:
		return BucketCompleted
	case t.Status == models.TaskStatusInProgress:
		return BucketInProgress
	case t.DueDate == nil:
		return BucketLater
	}

	today := truncateToDay(now)
	due := truncateToDay(t.DueDate.In(now.Location()))
	switch {
	case due.Before(today):
		return BucketOverdue
	case due.Equal(today):
		return BucketDueToday
	default:
		return BucketUpcoming
	}
}

// Categorize partitions tasks into buckets preserving input order within
// each bucket. Every task lands in exactly one bucket.
func Categorize(ts []models.Task, now time.Time) map[Bucket][]models.Task {
	out := make(map[Bucket][]models.Task, len(BucketOrder))
	for _, b := range BucketOrder {
		out[b] = []models.Task{}
	}
	for _, t := range ts {
		b := BucketFor(t, now)
		out[b] = append(out[b], t)
	}
	return out
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
