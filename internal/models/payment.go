package models

import "strings"

// PaymentRequest represents a loan repayment submitted by a caller.
// LoanType is overwritten from the LoanID prefix before validation.
type PaymentRequest struct {
	LoanType        string  `json:"loan_type"`
	LoanID          string  `json:"loan_id"`
	RepaymentMethod string  `json:"repayment_method"`
	PaymentDate     string  `json:"payment_date"`
	PaymentAmount   float64 `json:"payment_amount"`
	Source          string  `json:"source"`
	TransactionID   *string `json:"transaction_id,omitempty"`
	TransactionFee  float64 `json:"transaction_fee"`
}

// PaymentValidation is the remote pre-check verdict for a payment
type PaymentValidation struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// PaymentValidationSuccess is the only status accepted as a passed validation
const PaymentValidationSuccess = "success"

// Accepted reports whether the remote validation passed
func (v PaymentValidation) Accepted() bool {
	return v.Status == PaymentValidationSuccess
}

// Validate checks required fields of a payment request
func (p PaymentRequest) Validate() error {
	if strings.TrimSpace(p.LoanID) == "" {
		return NewValidationError("loan_id is required")
	}
	if strings.TrimSpace(p.RepaymentMethod) == "" {
		return NewValidationError("repayment_method is required")
	}
	if strings.TrimSpace(p.PaymentDate) == "" {
		return NewValidationError("payment_date is required")
	}
	if strings.TrimSpace(p.Source) == "" {
		return NewValidationError("source is required")
	}
	if p.PaymentAmount <= 0 {
		return NewValidationError("payment_amount must be positive")
	}
	if p.TransactionFee < 0 {
		return NewValidationError("transaction_fee must not be negative")
	}
	return nil
}
