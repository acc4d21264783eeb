package handler

import (
	"net/http"

	"github.com/Dan9191/erp-gateway/internal/apikey"
	"github.com/Dan9191/erp-gateway/internal/metrics"
	"github.com/Dan9191/erp-gateway/internal/middleware"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// NewRouter registers all routes behind the logging and API key middleware.
// metricsHandler may be nil.
func NewRouter(h *Handler, keys apikey.Store, openPaths []string, metricsHandler http.Handler, log *logrus.Logger, m *metrics.Metrics) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.LoggingMiddleware(log, m))
	r.Use(middleware.AuthMiddleware(keys, openPaths, log))

	r.HandleFunc("/", h.Health).Methods("GET")
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler).Methods("GET")
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/generate-api-key", h.GenerateAPIKey).Methods("POST")
	api.HandleFunc("/invoice-request", h.CreateInvoiceRequests).Methods("POST")
	api.HandleFunc("/new-invoice-request", h.CreateInvoiceRequests).Methods("POST")
	api.HandleFunc("/invoice-request-info", h.GetInvoiceRequestInfo).Methods("GET")
	api.HandleFunc("/update-invoice-info", h.UpdateInvoiceInfo).Methods("PUT")
	api.HandleFunc("/loan-payment", h.CreateLoanPayment).Methods("POST")
	api.HandleFunc("/approved-request", h.ApprovedRequest).Methods("POST")

	return r
}
