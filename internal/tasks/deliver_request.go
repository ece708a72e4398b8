package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
)

// RequestDeliverer sends a stored book request to the library maintainers.
type RequestDeliverer interface {
	Deliver(ctx context.Context, requestID string) error
}

// DeliverBookRequestTask delivers one book request.
type DeliverBookRequestTask struct {
	RequestID string `json:"request_id"`
}

// Config returns the queue configuration for book request delivery.
func (t DeliverBookRequestTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "deliver_book_request",
		MaxAttempts: 3,
		Backoff:     time.Minute,
		Timeout:     30 * time.Second,
		Retention: &backlite.Retention{
			Duration:   72 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// DeliverBookRequestProcessor creates a processor function for DeliverBookRequestTask.
func DeliverBookRequestProcessor(deliverer RequestDeliverer) backlite.QueueProcessor[DeliverBookRequestTask] {
	return func(ctx context.Context, task DeliverBookRequestTask) error {
		if deliverer == nil {
			return fmt.Errorf("request deliverer not configured")
		}
		if task.RequestID == "" {
			return fmt.Errorf("request ID is required")
		}
		return deliverer.Deliver(ctx, task.RequestID)
	}
}

// NewDeliverBookRequestQueue creates a backlite queue for book request delivery.
func NewDeliverBookRequestQueue(deliverer RequestDeliverer) backlite.Queue {
	return backlite.NewQueue(DeliverBookRequestProcessor(deliverer))
}
