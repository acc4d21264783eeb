package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Dan9191/erp-gateway/internal/models"
	"github.com/sirupsen/logrus"
)

// Loan ID prefixes in precedence order; the first match wins
var loanTypePrefixes = []struct {
	prefix   string
	loanType string
}{
	{"ME-", "MSME"},
	{"RM-", "Raw Material"},
	{"IF-", "Invoice Financing"},
	{"MU-", "Murabaha"},
}

// PaymentRejectedError is returned when the ERP does not accept a payment
type PaymentRejectedError struct {
	Status  string
	Message string
}

func (e *PaymentRejectedError) Error() string {
	status := e.Status
	if status == "" {
		status = "missing status"
	}
	if e.Message == "" {
		return fmt.Sprintf("payment validation failed: %s", status)
	}
	return fmt.Sprintf("payment validation failed: %s: %s", status, e.Message)
}

// DeriveLoanType returns the loan type encoded in the loan ID prefix,
// or current when no known prefix matches.
func DeriveLoanType(loanID, current string) string {
	for _, p := range loanTypePrefixes {
		if strings.HasPrefix(loanID, p.prefix) {
			return p.loanType
		}
	}
	return current
}

// CreatePayment validates a payment with the ERP and creates it only if accepted
func (s *Service) CreatePayment(ctx context.Context, req models.PaymentRequest) (*models.RemoteDocument, error) {
	req.LoanType = DeriveLoanType(req.LoanID, req.LoanType)
	log := s.log.WithFields(logrus.Fields{"loan_id": req.LoanID, "loan_type": req.LoanType})

	verdict, err := s.erp.ValidatePayment(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("validate payment: %w", err)
	}
	if !verdict.Accepted() {
		log.WithField("status", verdict.Status).Warn("Payment rejected by ERP validation")
		return nil, &PaymentRejectedError{Status: verdict.Status, Message: verdict.Message}
	}

	doc, err := s.erp.CreateDocument(ctx, PaymentDocType, req)
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	log.WithField("name", doc.Name).Info("Loan payment created")
	return doc, nil
}
