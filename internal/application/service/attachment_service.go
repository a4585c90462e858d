package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/procureops/requisition-engine/internal/application/dispatcher"
	"github.com/procureops/requisition-engine/internal/application/port"
	"github.com/procureops/requisition-engine/internal/domain/entity"
	"github.com/procureops/requisition-engine/internal/domain/event"
)

// maxAttachmentsPerRequisition caps how many attachments one requisition
// may carry. The cap is enforced here, on the caller side of the storage
// collaborator.
const maxAttachmentsPerRequisition = 5

// AttachmentInput describes a file the storage layer has already accepted
type AttachmentInput struct {
	FileName    string
	SizeBytes   int64
	ContentType string
	// LocalPath is a readable path to the stored bytes, used only for
	// content probing. Empty when the bytes are not locally reachable.
	LocalPath string
}

// AttachmentService manages attachment metadata and its audit lifecycle.
// Actual byte storage belongs to the storage collaborator; this service
// records what was attached, probes PDFs for a page count and appends the
// matching audit events.
type AttachmentService interface {
	Attach(ctx context.Context, requisitionID int64, actor entity.Actor, input AttachmentInput) (*entity.Attachment, error)
	ListFor(ctx context.Context, requisitionID int64) ([]*entity.Attachment, error)
	Remove(ctx context.Context, attachmentID int64, actor entity.Actor) (*entity.Attachment, error)
	RecordDownload(ctx context.Context, attachmentID int64, actor entity.Actor) (*entity.Attachment, error)
}

type attachmentServiceImpl struct {
	attachmentRepo  port.AttachmentRepository
	requisitionRepo port.RequisitionRepository
	prober          port.AttachmentProber
	hooks           dispatcher.Dispatcher
	logger          Logger
}

// NewAttachmentService creates a new AttachmentService. The prober may be nil
// when content inspection is disabled.
func NewAttachmentService(
	attachmentRepo port.AttachmentRepository,
	requisitionRepo port.RequisitionRepository,
	prober port.AttachmentProber,
	hooks dispatcher.Dispatcher,
	logger Logger,
) AttachmentService {
	return &attachmentServiceImpl{
		attachmentRepo:  attachmentRepo,
		requisitionRepo: requisitionRepo,
		prober:          prober,
		hooks:           hooks,
		logger:          logger,
	}
}

// Attach records new attachment metadata. Attaching is only legal while the
// requisition is still mutable, before it reaches a terminal state.
func (s *attachmentServiceImpl) Attach(ctx context.Context, requisitionID int64, actor entity.Actor, input AttachmentInput) (*entity.Attachment, error) {
	if input.FileName == "" {
		return nil, fmt.Errorf("%w: file name is required", entity.ErrValidation)
	}
	if input.SizeBytes <= 0 {
		return nil, fmt.Errorf("%w: file size must be positive", entity.ErrValidation)
	}

	req, err := s.requisitionRepo.GetByID(ctx, requisitionID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("%w: requisition %d", entity.ErrNotFound, requisitionID)
	}
	if req.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: requisition %d is %s", entity.ErrNotPending, requisitionID, req.Status)
	}

	existing, err := s.attachmentRepo.GetByRequisitionID(ctx, requisitionID)
	if err != nil {
		return nil, err
	}
	if len(existing) >= maxAttachmentsPerRequisition {
		return nil, fmt.Errorf("%w: requisition %d already has %d attachments", entity.ErrValidation, requisitionID, len(existing))
	}

	att := &entity.Attachment{
		RequisitionID: requisitionID,
		FileName:      input.FileName,
		SizeBytes:     input.SizeBytes,
		ContentType:   input.ContentType,
		CreatedAt:     time.Now(),
	}
	if pages := s.probePages(input); pages > 0 {
		att.PageCount = pages
	}

	if err := s.attachmentRepo.Create(ctx, att); err != nil {
		s.logger.Error("Failed to record attachment", "error", err, "requisition_id", requisitionID)
		return nil, err
	}

	s.hooks.Dispatch(ctx, event.New(event.TypeAttachmentUploaded, requisitionID, actor.ID, map[string]interface{}{
		"attachment": att,
	}))

	return att, nil
}

func (s *attachmentServiceImpl) ListFor(ctx context.Context, requisitionID int64) ([]*entity.Attachment, error) {
	return s.attachmentRepo.GetByRequisitionID(ctx, requisitionID)
}

// Remove deletes attachment metadata and returns the removed record. The
// audit entry keeps the file name so the trail still tells what was removed.
func (s *attachmentServiceImpl) Remove(ctx context.Context, attachmentID int64, actor entity.Actor) (*entity.Attachment, error) {
	att, err := s.mustGet(ctx, attachmentID)
	if err != nil {
		return nil, err
	}

	if err := s.attachmentRepo.Delete(ctx, attachmentID); err != nil {
		s.logger.Error("Failed to delete attachment", "error", err, "attachment_id", attachmentID)
		return nil, err
	}

	s.hooks.Dispatch(ctx, event.New(event.TypeAttachmentDeleted, att.RequisitionID, actor.ID, map[string]interface{}{
		"attachment": att,
	}))

	return att, nil
}

// RecordDownload appends a download event and returns the metadata so the
// caller can serve the bytes.
func (s *attachmentServiceImpl) RecordDownload(ctx context.Context, attachmentID int64, actor entity.Actor) (*entity.Attachment, error) {
	att, err := s.mustGet(ctx, attachmentID)
	if err != nil {
		return nil, err
	}

	s.hooks.Dispatch(ctx, event.New(event.TypeAttachmentDownloaded, att.RequisitionID, actor.ID, map[string]interface{}{
		"attachment": att,
	}))

	return att, nil
}

func (s *attachmentServiceImpl) mustGet(ctx context.Context, id int64) (*entity.Attachment, error) {
	att, err := s.attachmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if att == nil {
		return nil, fmt.Errorf("%w: attachment %d", entity.ErrNotFound, id)
	}
	return att, nil
}

func (s *attachmentServiceImpl) probePages(input AttachmentInput) int {
	if s.prober == nil || input.LocalPath == "" {
		return 0
	}
	if !strings.EqualFold(input.ContentType, "application/pdf") {
		return 0
	}
	pages, err := s.prober.PageCount(input.LocalPath)
	if err != nil {
		s.logger.Error("Failed to probe attachment pages", "error", err, "file", input.FileName)
		return 0
	}
	return pages
}
