// Package export renders requisitions and their audit trails to spreadsheets.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/procureops/requisition-engine/internal/application/port"
	"github.com/procureops/requisition-engine/internal/domain/entity"
)

// Exporter writes requisition workbooks with excelize
type Exporter struct {
	outputDir       string
	requisitionRepo port.RequisitionRepository
	stepRepo        port.StepRepository
	auditRepo       port.AuditRepository
	logger          *zap.Logger
}

// NewExporter creates a new Exporter
func NewExporter(
	outputDir string,
	requisitionRepo port.RequisitionRepository,
	stepRepo port.StepRepository,
	auditRepo port.AuditRepository,
	logger *zap.Logger,
) *Exporter {
	return &Exporter{
		outputDir:       outputDir,
		requisitionRepo: requisitionRepo,
		stepRepo:        stepRepo,
		auditRepo:       auditRepo,
		logger:          logger,
	}
}

// ExportRequisitions writes a workbook listing requisitions with their steps
// and audit trails, one sheet per concern, and returns the file path.
func (e *Exporter) ExportRequisitions(ctx context.Context, limit, offset int) (string, error) {
	requisitions, err := e.requisitionRepo.List(ctx, limit, offset)
	if err != nil {
		return "", fmt.Errorf("list requisitions: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const reqSheet = "Requisitions"
	f.SetSheetName("Sheet1", reqSheet)

	reqHeaders := []string{"ID", "Title", "Submitter", "Department", "Amount", "Currency", "Category", "Status", "Created"}
	for i, h := range reqHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(reqSheet, cell, h)
	}

	for row, req := range requisitions {
		values := []interface{}{
			req.ID, req.Title, req.SubmitterID, req.Department,
			float64(req.AmountCents) / 100, req.Currency, req.Category,
			req.Status.String(), req.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(reqSheet, cell, v)
		}
	}

	if err := e.addStepsSheet(ctx, f, requisitions); err != nil {
		return "", err
	}
	if err := e.addAuditSheet(ctx, f, requisitions); err != nil {
		return "", err
	}

	if err := os.MkdirAll(e.outputDir, 0755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	path := filepath.Join(e.outputDir, fmt.Sprintf("requisitions_%s.xlsx", time.Now().Format("20060102_150405")))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}

	e.logger.Info("Requisition export written",
		zap.String("path", path),
		zap.Int("requisitions", len(requisitions)),
	)
	return path, nil
}

func (e *Exporter) addStepsSheet(ctx context.Context, f *excelize.File, requisitions []*entity.Requisition) error {
	const sheet = "Steps"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create steps sheet: %w", err)
	}

	headers := []string{"Requisition", "Position", "Role", "Assignee", "Status", "Decided By", "Decided At", "Comment"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, req := range requisitions {
		steps, err := e.stepRepo.GetByRequisitionID(ctx, req.ID)
		if err != nil {
			return fmt.Errorf("load steps for requisition %d: %w", req.ID, err)
		}
		for _, step := range steps {
			decidedAt := ""
			if step.DecidedAt != nil {
				decidedAt = step.DecidedAt.Format("2006-01-02 15:04:05")
			}
			values := []interface{}{
				req.ID, step.Position + 1, step.Role.String(), step.AssigneeID,
				step.Status.String(), step.DecidedBy, decidedAt, step.Comment,
			}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row)
				f.SetCellValue(sheet, cell, v)
			}
			row++
		}
	}
	return nil
}

func (e *Exporter) addAuditSheet(ctx context.Context, f *excelize.File, requisitions []*entity.Requisition) error {
	const sheet = "Audit"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create audit sheet: %w", err)
	}

	headers := []string{"Requisition", "Kind", "Actor", "Note", "At"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, req := range requisitions {
		trail, err := e.auditRepo.GetByRequisitionID(ctx, req.ID)
		if err != nil {
			return fmt.Errorf("load audit trail for requisition %d: %w", req.ID, err)
		}
		for _, entry := range trail {
			values := []interface{}{
				req.ID, entry.Kind.String(), entry.ActorID, entry.Note,
				entry.CreatedAt.Format("2006-01-02 15:04:05"),
			}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row)
				f.SetCellValue(sheet, cell, v)
			}
			row++
		}
	}
	return nil
}
