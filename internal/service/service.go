package service

import (
	"context"

	"github.com/Dan9191/erp-gateway/internal/metrics"
	"github.com/Dan9191/erp-gateway/internal/models"
	"github.com/sirupsen/logrus"
)

// ERP doctypes the gateway writes to
const (
	InvoiceDocType = "Online Invoice Financing"
	PaymentDocType = "Loan Payment"
)

// ERPClient is the subset of the ERP integration used by the service
type ERPClient interface {
	CreateDocument(ctx context.Context, doctype string, payload interface{}) (*models.RemoteDocument, error)
	ReadDocument(ctx context.Context, doctype, name string) (map[string]interface{}, error)
	UpdateDocument(ctx context.Context, doctype, name string, patch interface{}) (*models.RemoteDocument, error)
	UploadFile(ctx context.Context, fileURL, doctype, docname string) (string, error)
	ValidatePayment(ctx context.Context, payload interface{}) (*models.PaymentValidation, error)
}

// Notifier alerts operators about invoices left half-done in the ERP
type Notifier interface {
	NotifySagaFailure(ctx context.Context, req models.InvoiceRequest, res models.InvoiceResult) error
}

// Service coordinates invoice and payment flows against the ERP
type Service struct {
	erp      ERPClient
	log      *logrus.Logger
	notifier Notifier
	metrics  *metrics.Metrics
}

// NewService initializes a new service. notifier and m may be nil.
func NewService(erp ERPClient, log *logrus.Logger, notifier Notifier, m *metrics.Metrics) *Service {
	return &Service{erp: erp, log: log, notifier: notifier, metrics: m}
}
