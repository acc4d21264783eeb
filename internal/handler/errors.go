package handler

import (
	"errors"
	"net/http"

	"github.com/Dan9191/erp-gateway/internal/integrations/erp"
	"github.com/Dan9191/erp-gateway/internal/middleware"
	"github.com/Dan9191/erp-gateway/internal/models"
	"github.com/Dan9191/erp-gateway/internal/service"
	"github.com/sirupsen/logrus"
)

// writeError maps an error to its HTTP status and writes {"detail": ...}.
// Payment rejections (400) stay distinct from ERP failures (500).
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *models.ValidationError
		rejectedErr   *service.PaymentRejectedError
	)

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &validationErr):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &rejectedErr):
		status = http.StatusBadRequest
	}

	entry := h.log.WithFields(logrus.Fields{
		"request_id": middleware.RequestID(r.Context()),
		"status":     status,
		"kind":       erp.Kind(err),
	}).WithError(err)
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}

	writeJSON(w, status, map[string]string{"detail": err.Error()})
}
