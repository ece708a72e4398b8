package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
)

// RequestPurger deletes delivered book requests past retention.
type RequestPurger interface {
	PurgeDelivered(ctx context.Context, retention time.Duration) (int64, error)
}

// PurgeBookRequestsTask removes delivered book requests older than the retention period.
type PurgeBookRequestsTask struct {
	RetentionHours int `json:"retention_hours"`
}

// Config returns the queue configuration for request purge tasks.
func (t PurgeBookRequestsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "purge_book_requests",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// PurgeBookRequestsProcessor creates a processor function for PurgeBookRequestsTask.
func PurgeBookRequestsProcessor(purger RequestPurger) backlite.QueueProcessor[PurgeBookRequestsTask] {
	return func(ctx context.Context, task PurgeBookRequestsTask) error {
		if purger == nil {
			return fmt.Errorf("request purger not configured")
		}

		hours := task.RetentionHours
		if hours <= 0 {
			hours = 30 * 24
		}

		deleted, err := purger.PurgeDelivered(ctx, time.Duration(hours)*time.Hour)
		if err != nil {
			return fmt.Errorf("purge book requests: %w", err)
		}

		log.WithField("deleted", deleted).WithField("retention_hours", hours).Info("Purged delivered book requests")
		return nil
	}
}

// NewPurgeBookRequestsQueue creates a backlite queue for request purge tasks.
func NewPurgeBookRequestsQueue(purger RequestPurger) backlite.Queue {
	return backlite.NewQueue(PurgeBookRequestsProcessor(purger))
}
