// Package requests handles requests for books missing from the catalog:
// validation, storage, and delivery to the maintainers by email.
package requests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/shelf/internal/auth"
	"github.com/mrlokans/shelf/internal/config"
	dbrequests "github.com/mrlokans/shelf/internal/database/requests"
	"github.com/mrlokans/shelf/internal/entities"
	applog "github.com/mrlokans/shelf/internal/logger"
	"github.com/mrlokans/shelf/internal/utils"
)

// StaleAfter is how long an undelivered request sits untouched before the
// sweep picks it up again.
const StaleAfter = 10 * time.Minute

var ErrIdentityRequired = errors.New("identity required")

// Store persists book requests.
type Store interface {
	Create(ctx context.Context, req *entities.BookRequest) error
	Get(ctx context.Context, id string) (*entities.BookRequest, error)
	ListForUser(ctx context.Context, userID string) ([]entities.BookRequest, error)
	MarkSent(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, reason string) error
	ListRetryable(ctx context.Context, maxAttempts int, staleBefore time.Time) ([]entities.BookRequest, error)
	DeleteSentBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Sender delivers a rendered request.
type Sender interface {
	Send(ctx context.Context, params map[string]string) error
}

// Enqueuer schedules background delivery.
type Enqueuer interface {
	EnqueueBookRequest(ctx context.Context, requestID string) (taskID string, err error)
}

// Request is the submitted form.
type Request struct {
	Name      string `json:"name" validate:"required,max=200"`
	Email     string `json:"email" validate:"required,email,max=255"`
	BookTitle string `json:"bookTitle" validate:"required,max=512"`
	Reason    string `json:"reason" validate:"required,max=4000"`
}

type Service struct {
	store       Store
	sender      Sender
	queue       Enqueuer
	maxAttempts int
	validate    *validator.Validate
	log         *logrus.Entry
	now         func() time.Time
}

func NewService(store Store, sender Sender, cfg config.Requests) *Service {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Service{
		store:       store,
		sender:      sender,
		maxAttempts: maxAttempts,
		validate:    newValidator(),
		log:         applog.WithComponent("requests"),
		now:         time.Now,
	}
}

// UseQueue hands delivery to a background queue. Without one, requests are
// delivered inline.
func (s *Service) UseQueue(q Enqueuer) {
	s.queue = q
}

// Submit validates and stores the request, then schedules delivery. A
// delivery failure does not fail the submission; the request stays on
// record for the sweep.
func (s *Service) Submit(ctx context.Context, identity auth.Identity, in Request) (*entities.BookRequest, error) {
	if identity.IsZero() {
		return nil, ErrIdentityRequired
	}
	in.Name = utils.NormalizeWhitespace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.BookTitle = utils.NormalizeWhitespace(in.BookTitle)
	in.Reason = strings.TrimSpace(in.Reason)
	if err := validate(s.validate, in); err != nil {
		return nil, err
	}

	req := &entities.BookRequest{
		UserID:    identity.UserID,
		Name:      in.Name,
		Email:     in.Email,
		BookTitle: in.BookTitle,
		Reason:    in.Reason,
		Status:    entities.BookRequestPending,
	}
	if err := s.store.Create(ctx, req); err != nil {
		return nil, err
	}
	log := s.log.WithFields(logrus.Fields{"request_id": req.ID, "user_id": req.UserID})
	log.Info("Book request submitted")

	if s.queue != nil {
		taskID, err := s.queue.EnqueueBookRequest(ctx, req.ID)
		if err != nil {
			log.WithError(err).Warn("Failed to enqueue book request, leaving it for the sweep")
		}
		req.DeliveryTaskID = taskID
		return req, nil
	}

	if err := s.Deliver(ctx, req.ID); err != nil {
		log.WithError(err).Warn("Inline delivery failed")
	}
	return s.store.Get(ctx, req.ID)
}

func (s *Service) ListForUser(ctx context.Context, identity auth.Identity) ([]entities.BookRequest, error) {
	if identity.IsZero() {
		return nil, ErrIdentityRequired
	}
	return s.store.ListForUser(ctx, identity.UserID)
}

// Deliver sends one stored request and records the outcome. Delivered and
// deleted requests are skipped. A send failure is returned so a task queue
// can retry it.
func (s *Service) Deliver(ctx context.Context, id string) error {
	req, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, dbrequests.ErrNotFound) {
			s.log.WithField("request_id", id).Warn("Book request vanished before delivery")
			return nil
		}
		return err
	}
	if req.Status == entities.BookRequestSent {
		return nil
	}

	sendErr := s.sender.Send(ctx, map[string]string{
		"name":      req.Name,
		"email":     req.Email,
		"bookTitle": req.BookTitle,
		"reason":    req.Reason,
	})
	// The outcome is recorded even when the task deadline has passed.
	recordCtx := context.WithoutCancel(ctx)
	if sendErr != nil {
		if err := s.store.MarkFailed(recordCtx, id, sendErr.Error()); err != nil {
			s.log.WithError(err).WithField("request_id", id).Error("Failed to record delivery failure")
		}
		return fmt.Errorf("deliver book request %s: %w", id, sendErr)
	}
	if err := s.store.MarkSent(recordCtx, id, s.now()); err != nil {
		return fmt.Errorf("record delivery of %s: %w", id, err)
	}
	s.log.WithField("request_id", id).Info("Book request delivered")
	return nil
}

// Sweep reschedules undelivered requests that have been idle for StaleAfter
// and still have attempts left. It returns how many were picked up.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	due, err := s.store.ListRetryable(ctx, s.maxAttempts, s.now().Add(-StaleAfter))
	if err != nil {
		return 0, err
	}
	for _, req := range due {
		if s.queue != nil {
			_, err = s.queue.EnqueueBookRequest(ctx, req.ID)
		} else {
			err = s.Deliver(ctx, req.ID)
		}
		if err != nil {
			s.log.WithError(err).WithField("request_id", req.ID).Warn("Sweep could not redeliver book request")
		}
	}
	if len(due) > 0 {
		s.log.WithField("count", len(due)).Info("Swept undelivered book requests")
	}
	return len(due), nil
}

// PurgeDelivered deletes requests delivered more than retention ago.
func (s *Service) PurgeDelivered(ctx context.Context, retention time.Duration) (int64, error) {
	return s.store.DeleteSentBefore(ctx, s.now().Add(-retention))
}
