package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// InvoiceItem represents a single line of an invoice
type InvoiceItem struct {
	ItemName   string  `json:"item_name"`
	ItemPrice  float64 `json:"item_price"`
	Quantity   int     `json:"quantity"`
	TotalPrice float64 `json:"total_price"`
}

// InvoiceRequest represents an invoice financing request submitted by a caller
type InvoiceRequest struct {
	LoanProduct        string        `json:"loan_product"`
	ApplicantType      string        `json:"applicant_type"`
	Applicant          string        `json:"applicant"`
	RequestedBy        string        `json:"requested_by"`
	RequestorName      string        `json:"requestor_name"`
	ReferenceRequestID string        `json:"reference_request_id"`
	InvoiceID          string        `json:"invoice_id"`
	InvoiceNumber      string        `json:"invoice_number"`
	InvoiceDate        string        `json:"invoice_date"`
	InvoiceStatus      string        `json:"invoice_status"`
	ClientID           string        `json:"client_id"`
	ClientName         string        `json:"client_name"`
	LoanAmount         float64       `json:"loan_amount"`
	RepresentativeName string        `json:"representative_name"`
	RepresentativeID   string        `json:"representative_id"`
	TotalInvoiceAmount float64       `json:"total_invoice_amount"`
	PaidAmount         float64       `json:"paid_amount"`
	OutstandingAmount  float64       `json:"outstanding_amount"`
	InvoiceItems       []InvoiceItem `json:"invoice_items"`
	FileURLs           []string      `json:"file_urls,omitempty"` // Source files to attach
}

// Document returns the creation payload sent to the ERP.
// Source file references are left out; only uploaded URLs are ever attached.
func (r InvoiceRequest) Document() InvoiceRequest {
	doc := r
	doc.InvoiceItems = append([]InvoiceItem(nil), r.InvoiceItems...)
	doc.FileURLs = nil
	return doc
}

// Validate checks required fields and monetary reconciliation
func (r InvoiceRequest) Validate() error {
	required := map[string]string{
		"loan_product":         r.LoanProduct,
		"applicant_type":       r.ApplicantType,
		"applicant":            r.Applicant,
		"reference_request_id": r.ReferenceRequestID,
		"invoice_id":           r.InvoiceID,
		"invoice_number":       r.InvoiceNumber,
		"invoice_date":         r.InvoiceDate,
		"client_id":            r.ClientID,
	}
	for _, field := range sortedKeys(required) {
		if strings.TrimSpace(required[field]) == "" {
			return NewValidationError("%s is required", field)
		}
	}

	amounts := []struct {
		field string
		value float64
	}{
		{"loan_amount", r.LoanAmount},
		{"total_invoice_amount", r.TotalInvoiceAmount},
		{"paid_amount", r.PaidAmount},
		{"outstanding_amount", r.OutstandingAmount},
	}
	for _, a := range amounts {
		if a.value < 0 {
			return NewValidationError("%s must not be negative", a.field)
		}
	}

	if len(r.InvoiceItems) == 0 {
		return NewValidationError("invoice_items must not be empty")
	}
	for i, item := range r.InvoiceItems {
		if err := item.Validate(); err != nil {
			return NewValidationError("invoice_items[%d]: %s", i, err.Error())
		}
	}

	paid := money(r.PaidAmount).Add(money(r.OutstandingAmount))
	if !paid.Equal(money(r.TotalInvoiceAmount)) {
		return NewValidationError("paid_amount + outstanding_amount (%s) does not match total_invoice_amount (%s)",
			paid.StringFixed(2), money(r.TotalInvoiceAmount).StringFixed(2))
	}

	for i, ref := range r.FileURLs {
		if strings.TrimSpace(ref) == "" {
			return NewValidationError("file_urls[%d] is empty", i)
		}
	}
	return nil
}

// Validate checks that the item total equals price times quantity
func (i InvoiceItem) Validate() error {
	if strings.TrimSpace(i.ItemName) == "" {
		return NewValidationError("item_name is required")
	}
	if i.ItemPrice < 0 || i.Quantity < 0 || i.TotalPrice < 0 {
		return NewValidationError("item_price, quantity and total_price must not be negative")
	}
	// Only the product is rounded; unit prices may carry sub-cent precision
	expected := decimal.NewFromFloat(i.ItemPrice).Mul(decimal.NewFromInt(int64(i.Quantity))).Round(2)
	if !expected.Equal(money(i.TotalPrice)) {
		return NewValidationError("total_price %s does not equal item_price x quantity %s",
			money(i.TotalPrice).StringFixed(2), expected.StringFixed(2))
	}
	return nil
}

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
