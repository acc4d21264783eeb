package models

// RemoteDocument is a record owned by the ERP, referenced by its remote-assigned name
type RemoteDocument struct {
	Name   string                 `json:"name"`
	Fields map[string]interface{} `json:"fields"`
}

// InvoiceInfo summarizes the remote state of an invoice request
type InvoiceInfo struct {
	WorkflowState string                   `json:"workflow_state"`
	Repayments    []map[string]interface{} `json:"repayments"`
}

// DocumentUpdate is a caller-submitted update for a remote document
type DocumentUpdate struct {
	ID      string                 `json:"id"`
	DocType string                 `json:"doctype"`
	Data    map[string]interface{} `json:"data"`
}
