package service

import (
	"context"
	"time"

	"github.com/procureops/requisition-engine/internal/application/port"
	"github.com/procureops/requisition-engine/internal/domain/entity"
)

// NotificationService fans status and step outcomes out to the configured
// notifier. Delivery is best-effort: failures are logged, never propagated,
// so a broken channel can not block or roll back an approval.
type NotificationService interface {
	StatusChanged(ctx context.Context, requisitionID int64, from, to entity.Status, reason string)
	StepApproved(ctx context.Context, requisitionID int64, step *entity.ApprovalStep)
	StepRejected(ctx context.Context, requisitionID int64, step *entity.ApprovalStep)
}

type notificationServiceImpl struct {
	notifier port.Notifier
	timeout  time.Duration
	logger   Logger
}

// NewNotificationService creates a new NotificationService. A nil notifier
// disables delivery entirely.
func NewNotificationService(notifier port.Notifier, timeout time.Duration, logger Logger) NotificationService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &notificationServiceImpl{
		notifier: notifier,
		timeout:  timeout,
		logger:   logger,
	}
}

func (s *notificationServiceImpl) StatusChanged(ctx context.Context, requisitionID int64, from, to entity.Status, reason string) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.notifier.NotifyStatusChanged(ctx, requisitionID, from, to, reason); err != nil {
		s.logger.Error("Failed to deliver status notification",
			"error", err,
			"requisition_id", requisitionID,
			"from", from,
			"to", to,
		)
	}
}

func (s *notificationServiceImpl) StepApproved(ctx context.Context, requisitionID int64, step *entity.ApprovalStep) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.notifier.NotifyStepApproved(ctx, requisitionID, step); err != nil {
		s.logger.Error("Failed to deliver step approval notification",
			"error", err,
			"requisition_id", requisitionID,
			"step_id", step.ID,
		)
	}
}

func (s *notificationServiceImpl) StepRejected(ctx context.Context, requisitionID int64, step *entity.ApprovalStep) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.notifier.NotifyStepRejected(ctx, requisitionID, step); err != nil {
		s.logger.Error("Failed to deliver step rejection notification",
			"error", err,
			"requisition_id", requisitionID,
			"step_id", step.ID,
		)
	}
}
