package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/erp-gateway/internal/models"
	"github.com/sirupsen/logrus"
)

// alertTimeout bounds a single operator alert
const alertTimeout = 10 * time.Second

// CreateInvoices runs the create, upload, patch sequence for every request.
// A failed item is recorded in its own result and never stops the batch.
// Once ctx is done, remaining items fail at creation without any remote call.
func (s *Service) CreateInvoices(ctx context.Context, reqs []models.InvoiceRequest) models.BatchResult {
	batch := models.BatchResult{Results: make([]models.InvoiceResult, 0, len(reqs))}
	for i, req := range reqs {
		res := s.createInvoice(ctx, i, req)
		if res.Succeeded() {
			batch.Succeeded++
			s.metrics.SagaOutcome(models.ResultSuccess)
		} else {
			batch.Failed++
			s.metrics.SagaOutcome(string(res.Stage))
			s.reportFailure(ctx, req, res)
		}
		batch.Results = append(batch.Results, res)
	}

	s.log.WithFields(logrus.Fields{
		"items":     len(reqs),
		"succeeded": batch.Succeeded,
		"failed":    batch.Failed,
	}).Info("Invoice batch processed")
	return batch
}

func (s *Service) createInvoice(ctx context.Context, index int, req models.InvoiceRequest) models.InvoiceResult {
	res := models.InvoiceResult{Index: index, UploadedFileURLs: []string{}}
	if err := ctx.Err(); err != nil {
		return failed(res, models.StageCreation, fmt.Errorf("batch cancelled: %w", err))
	}

	doc, err := s.erp.CreateDocument(ctx, InvoiceDocType, req.Document())
	if err != nil {
		return failed(res, models.StageCreation, err)
	}
	res.RequestID = doc.Name

	for _, ref := range req.FileURLs {
		uploaded, err := s.erp.UploadFile(ctx, ref, InvoiceDocType, doc.Name)
		if err != nil {
			return failed(res, models.StageUpload, fmt.Errorf("upload %s: %w", ref, err))
		}
		res.UploadedFileURLs = append(res.UploadedFileURLs, uploaded)
	}

	if len(res.UploadedFileURLs) > 0 {
		patch := map[string]interface{}{"file_urls": res.UploadedFileURLs}
		if _, err := s.erp.UpdateDocument(ctx, InvoiceDocType, doc.Name, patch); err != nil {
			return failed(res, models.StagePatch, err)
		}
	}

	res.Status = models.ResultSuccess
	return res
}

func failed(res models.InvoiceResult, stage models.FailureStage, err error) models.InvoiceResult {
	res.Status = models.ResultFailed
	res.Stage = stage
	res.Err = err
	res.Error = err.Error()
	return res
}

func (s *Service) reportFailure(ctx context.Context, req models.InvoiceRequest, res models.InvoiceResult) {
	s.log.WithFields(logrus.Fields{
		"index":      res.Index,
		"invoice_id": req.InvoiceID,
		"stage":      res.Stage,
		"request_id": res.RequestID,
		"uploaded":   len(res.UploadedFileURLs),
	}).WithError(res.Err).Warn("Invoice request failed")

	// Creation failures leave nothing behind in the ERP
	if s.notifier == nil || res.Stage == models.StageCreation {
		return
	}
	alertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), alertTimeout)
	defer cancel()
	if err := s.notifier.NotifySagaFailure(alertCtx, req, res); err != nil {
		s.log.WithError(err).Error("Failed to send saga failure alert")
	}
}

// GetInvoiceInfo reads the workflow state and repayments of a remote document
func (s *Service) GetInvoiceInfo(ctx context.Context, doctype, name string) (*models.InvoiceInfo, error) {
	fields, err := s.erp.ReadDocument(ctx, doctype, name)
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", doctype, name, err)
	}

	info := &models.InvoiceInfo{WorkflowState: "Pending", Repayments: []map[string]interface{}{}}
	if state, ok := fields["workflow_state"].(string); ok && state != "" {
		info.WorkflowState = state
	}
	if rows, ok := fields["repayments"].([]interface{}); ok {
		for _, row := range rows {
			if m, ok := row.(map[string]interface{}); ok {
				info.Repayments = append(info.Repayments, m)
			}
		}
	}
	return info, nil
}
