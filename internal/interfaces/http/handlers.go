package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/procureops/requisition-engine/internal/application/service"
	"github.com/procureops/requisition-engine/internal/domain/entity"
	"github.com/procureops/requisition-engine/internal/domain/rules"
	"github.com/procureops/requisition-engine/internal/infrastructure/attachment"
	"github.com/procureops/requisition-engine/internal/infrastructure/export"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	requisitions service.RequisitionService
	ledger       service.StepLedger
	audit        service.AuditService
	rules        service.RuleService
	attachments  service.AttachmentService
	store        *attachment.Store
	exporter     *export.Exporter
	maxUpload    int64
	logger       Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	requisitions service.RequisitionService,
	ledger service.StepLedger,
	audit service.AuditService,
	rulesSvc service.RuleService,
	attachments service.AttachmentService,
	store *attachment.Store,
	exporter *export.Exporter,
	maxUpload int64,
	logger Logger,
) *Handlers {
	return &Handlers{
		requisitions: requisitions,
		ledger:       ledger,
		audit:        audit,
		rules:        rulesSvc,
		attachments:  attachments,
		store:        store,
		exporter:     exporter,
		maxUpload:    maxUpload,
		logger:       logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// actor builds the acting identity from the trusted gateway headers. The
// gateway upstream authenticates the caller; this service only consumes the
// forwarded identity.
func actor(c *gin.Context) (entity.Actor, bool) {
	a := entity.Actor{
		ID:         c.GetHeader("X-Actor-Id"),
		Role:       entity.Role(c.GetHeader("X-Actor-Role")),
		Department: c.GetHeader("X-Actor-Department"),
	}
	if a.ID == "" || !a.Role.IsValid() {
		return entity.Actor{}, false
	}
	return a, true
}

func (h *Handlers) requireActor(c *gin.Context) (entity.Actor, bool) {
	a, ok := actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, Response{
			Success: false,
			Error:   "missing or invalid actor identity headers",
		})
	}
	return a, ok
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid " + name + " parameter",
		})
		return 0, false
	}
	return id, true
}

// fail maps domain errors onto HTTP status codes
func (h *Handlers) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, entity.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, entity.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, entity.ErrNotAuthorized):
		status = http.StatusForbidden
	case errors.Is(err, entity.ErrNotPending),
		errors.Is(err, entity.ErrStepOutOfOrder),
		errors.Is(err, entity.ErrStepsExist),
		errors.Is(err, entity.ErrVersionConflict):
		status = http.StatusConflict
	case errors.Is(err, rules.ErrNoMatchingRule),
		errors.Is(err, rules.ErrConflictingRule),
		errors.Is(err, rules.ErrEmptyStepSequence):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "error", err)
	}
	c.JSON(status, Response{Success: false, Error: err.Error()})
}

func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// CreateRequisitionRequest is the body of POST /api/requisitions
type CreateRequisitionRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents" binding:"required"`
	Currency    string `json:"currency" binding:"required"`
	Category    string `json:"category"`
}

// CreateRequisition handles POST /api/requisitions
func (h *Handlers) CreateRequisition(c *gin.Context) {
	a, okActor := h.requireActor(c)
	if !okActor {
		return
	}

	var req CreateRequisitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	created, err := h.requisitions.CreateDraft(c.Request.Context(), a, service.CreateDraftInput{
		Title:       req.Title,
		Description: req.Description,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		Category:    req.Category,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, created)
}

// ListRequisitions handles GET /api/requisitions
func (h *Handlers) ListRequisitions(c *gin.Context) {
	if _, okActor := h.requireActor(c); !okActor {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	list, err := h.requisitions.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, list)
}

// GetRequisition handles GET /api/requisitions/:id
func (h *Handlers) GetRequisition(c *gin.Context) {
	if _, okActor := h.requireActor(c); !okActor {
		return
	}
	id, okID := pathID(c, "id")
	if !okID {
		return
	}

	req, err := h.requisitions.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, req)
}

// SubmitRequisition handles POST /api/requisitions/:id/submit
func (h *Handlers) SubmitRequisition(c *gin.Context) {
	a, okActor := h.requireActor(c)
	if !okActor {
		return
	}
	id, okID := pathID(c, "id")
	if !okID {
		return
	}

	req, err := h.requisitions.Submit(c.Request.Context(), id, a)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, req)
}

// CancelRequisition handles POST /api/requisitions/:id/cancel
func (h *Handlers) CancelRequisition(c *gin.Context) {
	a, okActor := h.requireActor(c)
	if !okActor {
		return
	}
	id, okID := pathID(c, "id")
	if !okID {
		return
	}

	req, err := h.requisitions.Cancel(c.Request.Context(), id, a)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, req)
}

// MarkRequisitionPaid handles POST /api/requisitions/:id/paid
func (h *Handlers) MarkRequisitionPaid(c *gin.Context) {
	a, okActor := h.requireActor(c)
	if !okActor {
		return
	}
	id, okID := pathID(c, "id")
	if !okID {
		return
	}

	req, err := h.requisitions.MarkPaid(c.Request.Context(), id, a)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, req)
}

// DecideStepRequest carries the optional approver comment
type DecideStepRequest struct {
	Comment string `json:"comment"`
}

// ApproveStep handles POST /api/requisitions/:id/steps/:stepID/approve
func (h *Handlers) ApproveStep(c *gin.Context) {
	h.decideStep(c, true)
}

// RejectStep handles POST /api/requisitions/:id/steps/:stepID/reject
func (h *Handlers) RejectStep(c *gin.Context) {
	h.decideStep(c, false)
}

func (h *Handlers) decideStep(c *gin.Context, approve bool) {
	a, okActor := h.requireActor(c)
	if !okActor {
		return
	}
	id, okID := pathID(c, "id")
	if !okID {
		return
	}
	stepID, okStep := pathID(c, "stepID")
	if !okStep {
		return
	}

	var body DecideStepRequest
	// The body is optional for approvals.
	_ = c.ShouldBindJSON(&body)

	var (
		req *entity.Requisition
		err error
	)
	if approve {
		req, err = h.requisitions.ApproveStep(c.Request.Context(), id, stepID, a, body.Comment)
	} else {
		req, err = h.requisitions.RejectStep(c.Request.Context(), id, stepID, a, body.Comment)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, req)
}

// RejectAllSteps handles POST /api/requisitions/:id/reject-all
func (h *Handlers) RejectAllSteps(c *gin.Context) {
	a, okActor := h.requireActor(c)
	if !okActor {
		return
	}
	id, okID := pathID(c, "id")
	if !okID {
		return
	}

	var body DecideStepRequest
	_ = c.ShouldBindJSON(&body)

	req, err := h.requisitions.RejectAll(c.Request.Context(), id, a, body.Comment)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, req)
}

// ListSteps handles GET /api/requisitions/:id/steps
func (h *Handlers) ListSteps(c *gin.Context) {
	if _, okActor := h.requireActor(c); !okActor {
		return
	}
	id, okID := pathID(c, "id")
	if !okID {
		return
	}

	steps, err := h.ledger.StepsFor(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, steps)
}

// GetAuditTrail handles GET /api/requisitions/:id/audit
func (h *Handlers) GetAuditTrail(c *gin.Context) {
	if _, okActor := h.requireActor(c); !okActor {
		return
	}
	id, okID := pathID(c, "id")
	if !okID {
		return
	}

	trail, err := h.audit.ForRequisition(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, trail)
}

// ListAuditTrail handles GET /api/audit
func (h *Handlers) ListAuditTrail(c *gin.Context) {
	a, okActor := h.requireActor(c)
	if !okActor {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	trail, err := h.audit.All(c.Request.Context(), a, limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, trail)
}

// RuleRequest is the body of rule create and update calls
type RuleRequest struct {
	Name           string           `json:"name" binding:"required"`
	Active         bool             `json:"active"`
	MinAmountCents *int64           `json:"min_amount_cents"`
	MaxAmountCents *int64           `json:"max_amount_cents"`
	Category       *string          `json:"category"`
	Department     *string          `json:"department"`
	Priority       int              `json:"priority"`
	Steps          []entity.StepDef `json:"steps" binding:"required"`
}

func (r RuleRequest) toInput() service.RuleInput {
	return service.RuleInput{
		Name:           r.Name,
		Active:         r.Active,
		MinAmountCents: r.MinAmountCents,
		MaxAmountCents: r.MaxAmountCents,
		Category:       r.Category,
		Department:     r.Department,
		Priority:       r.Priority,
		Steps:          r.Steps,
	}
}

// CreateRule handles POST /api/rules
func (h *Handlers) CreateRule(c *gin.Context) {
	a, okActor := h.requireActor(c)
	if !okActor {
		return
	}

	var body RuleRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	rule, err := h.rules.Create(c.Request.Context(), a, body.toInput())
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, rule)
}

// UpdateRule handles PUT /api/rules/:id
func (h *Handlers) UpdateRule(c *gin.Context) {
	a, okActor := h.requireActor(c)
	if !okActor {
		return
	}
	id, okID := pathID(c, "id")
	if !okID {
		return
	}

	var body RuleRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	rule, err := h.rules.Update(c.Request.Context(), a, id, body.toInput())
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, rule)
}

// GetRule handles GET /api/rules/:id
func (h *Handlers) GetRule(c *gin.Context) {
	if _, okActor := h.requireActor(c); !okActor {
		return
	}
	id, okID := pathID(c, "id")
	if !okID {
		return
	}

	rule, err := h.rules.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, rule)
}

// ListRules handles GET /api/rules
func (h *Handlers) ListRules(c *gin.Context) {
	if _, okActor := h.requireActor(c); !okActor {
		return
	}

	list, err := h.rules.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, list)
}

// DeactivateRule handles POST /api/rules/:id/deactivate
func (h *Handlers) DeactivateRule(c *gin.Context) {
	a, okActor := h.requireActor(c)
	if !okActor {
		return
	}
	id, okID := pathID(c, "id")
	if !okID {
		return
	}

	rule, err := h.rules.Deactivate(c.Request.Context(), a, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, rule)
}

// UploadAttachment handles POST /api/requisitions/:id/attachments
func (h *Handlers) UploadAttachment(c *gin.Context) {
	a, okActor := h.requireActor(c)
	if !okActor {
		return
	}
	id, okID := pathID(c, "id")
	if !okID {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "missing file field"})
		return
	}
	if h.maxUpload > 0 && file.Size > h.maxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, Response{
			Success: false,
			Error:   fmt.Sprintf("file exceeds the %d byte upload limit", h.maxUpload),
		})
		return
	}

	src, err := file.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		h.fail(c, err)
		return
	}

	path, err := h.store.Save(id, file.Filename, content)
	if err != nil {
		h.fail(c, err)
		return
	}

	att, err := h.attachments.Attach(c.Request.Context(), id, a, service.AttachmentInput{
		FileName:    file.Filename,
		SizeBytes:   int64(len(content)),
		ContentType: file.Header.Get("Content-Type"),
		LocalPath:   path,
	})
	if err != nil {
		// Metadata intake failed: remove the orphaned bytes.
		_ = h.store.Remove(id, file.Filename)
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, att)
}

// ListAttachments handles GET /api/requisitions/:id/attachments
func (h *Handlers) ListAttachments(c *gin.Context) {
	if _, okActor := h.requireActor(c); !okActor {
		return
	}
	id, okID := pathID(c, "id")
	if !okID {
		return
	}

	list, err := h.attachments.ListFor(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, list)
}

// DownloadAttachment handles GET /api/attachments/:id
func (h *Handlers) DownloadAttachment(c *gin.Context) {
	a, okActor := h.requireActor(c)
	if !okActor {
		return
	}
	id, okID := pathID(c, "id")
	if !okID {
		return
	}

	att, err := h.attachments.RecordDownload(c.Request.Context(), id, a)
	if err != nil {
		h.fail(c, err)
		return
	}

	path, err := h.store.Path(att.RequisitionID, att.FileName)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.FileAttachment(path, att.FileName)
}

// DeleteAttachment handles DELETE /api/attachments/:id
func (h *Handlers) DeleteAttachment(c *gin.Context) {
	a, okActor := h.requireActor(c)
	if !okActor {
		return
	}
	id, okID := pathID(c, "id")
	if !okID {
		return
	}

	att, err := h.attachments.Remove(c.Request.Context(), id, a)
	if err != nil {
		h.fail(c, err)
		return
	}
	_ = h.store.Remove(att.RequisitionID, att.FileName)
	ok(c, http.StatusOK, gin.H{"deleted": id})
}

// ExportRequisitions handles GET /api/export/requisitions
func (h *Handlers) ExportRequisitions(c *gin.Context) {
	a, okActor := h.requireActor(c)
	if !okActor {
		return
	}
	if a.Role != entity.RoleFinance && a.Role != entity.RoleAdmin {
		c.JSON(http.StatusForbidden, Response{
			Success: false,
			Error:   "export requires the FINANCE or ADMIN role",
		})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "500"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 5000 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}

	path, err := h.exporter.ExportRequisitions(c.Request.Context(), limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.FileAttachment(path, "requisitions.xlsx")
}
