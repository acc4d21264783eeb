package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Dan9191/erp-gateway/internal/apikey"
	"github.com/Dan9191/erp-gateway/internal/middleware"
	"github.com/Dan9191/erp-gateway/internal/models"
	"github.com/Dan9191/erp-gateway/internal/scheduler"
	"github.com/Dan9191/erp-gateway/internal/service"
	"github.com/sirupsen/logrus"
)

const maxRequestBytes = 8 << 20

// HealthReporter exposes the last ERP probe result
type HealthReporter interface {
	Status() scheduler.Status
}

type Handler struct {
	svc    *service.Service
	keys   apikey.Store
	health HealthReporter
	log    *logrus.Logger
}

func NewHandler(svc *service.Service, keys apikey.Store, health HealthReporter, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, keys: keys, health: health, log: log}
}

// Health reports whether the ERP answered the last probe.
// Only a failed check is unhealthy; before the first one completes the state is unknown.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"message": "ERP Gateway"})
		return
	}
	st := h.health.Status()
	status := http.StatusOK
	if st.State == scheduler.StateDown {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, st)
}

// GenerateAPIKey issues a new API key and secret
func (h *Handler) GenerateAPIKey(w http.ResponseWriter, r *http.Request) {
	cred, err := h.keys.Issue(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.log.WithField("request_id", middleware.RequestID(r.Context())).Info("API key issued")
	writeJSON(w, http.StatusOK, cred)
}

// CreateInvoiceRequests creates a batch of invoice requests in the ERP
func (h *Handler) CreateInvoiceRequests(w http.ResponseWriter, r *http.Request) {
	var reqs []models.InvoiceRequest
	if err := decodeJSON(w, r, &reqs); err != nil {
		h.writeError(w, r, err)
		return
	}
	if len(reqs) == 0 {
		h.writeError(w, r, models.NewValidationError("at least one invoice request is required"))
		return
	}
	for i, req := range reqs {
		if err := req.Validate(); err != nil {
			h.writeError(w, r, models.NewValidationError("[%d]: %s", i, err.Error()))
			return
		}
	}

	writeJSON(w, http.StatusOK, h.svc.CreateInvoices(r.Context(), reqs))
}

// GetInvoiceRequestInfo returns workflow state and repayments of a document
func (h *Handler) GetInvoiceRequestInfo(w http.ResponseWriter, r *http.Request) {
	doctype := strings.TrimSpace(r.URL.Query().Get("doctype"))
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if doctype == "" || name == "" {
		h.writeError(w, r, models.NewValidationError("doctype and name query parameters are required"))
		return
	}

	info, err := h.svc.GetInvoiceInfo(r.Context(), doctype, name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// UpdateInvoiceInfo accepts document updates; they are echoed back unchanged
func (h *Handler) UpdateInvoiceInfo(w http.ResponseWriter, r *http.Request) {
	var updates []models.DocumentUpdate
	if err := decodeJSON(w, r, &updates); err != nil {
		h.writeError(w, r, err)
		return
	}
	for i, u := range updates {
		if u.ID == "" || u.DocType == "" {
			h.writeError(w, r, models.NewValidationError("[%d]: id and doctype are required", i))
			return
		}
	}
	writeJSON(w, http.StatusOK, updates)
}

// CreateLoanPayment validates a payment with the ERP and creates it
func (h *Handler) CreateLoanPayment(w http.ResponseWriter, r *http.Request) {
	var req models.PaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}

	doc, err := h.svc.CreatePayment(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"result": doc.Fields})
}

// ApprovedRequest receives the ERP approval webhook and echoes it
func (h *Handler) ApprovedRequest(w http.ResponseWriter, r *http.Request) {
	var payload map[string]interface{}
	if err := decodeJSON(w, r, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.log.WithFields(logrus.Fields{
		"request_id": middleware.RequestID(r.Context()),
		"name":       payload["name"],
	}).Info("Approval webhook received")
	writeJSON(w, http.StatusOK, payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(out); err != nil {
		return models.NewValidationError("invalid JSON body: %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
