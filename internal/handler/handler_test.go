package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dan9191/erp-gateway/internal/apikey"
	"github.com/Dan9191/erp-gateway/internal/config"
	"github.com/Dan9191/erp-gateway/internal/integrations/erp"
	"github.com/Dan9191/erp-gateway/internal/middleware"
	"github.com/Dan9191/erp-gateway/internal/models"
	"github.com/Dan9191/erp-gateway/internal/scheduler"
	"github.com/Dan9191/erp-gateway/internal/service"
	"github.com/Dan9191/erp-gateway/internal/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticHealth scheduler.Status

func (s staticHealth) Status() scheduler.Status { return scheduler.Status(s) }

type testEnv struct {
	router http.Handler
	fake   *testutil.FakeERP
	keys   *apikey.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	fake := &testutil.FakeERP{}
	keys := apikey.NewMemoryStore()
	svc := service.NewService(fake, log, nil, nil)
	health := staticHealth{State: scheduler.StateUp, Reachable: true, CheckedAt: time.Now()}
	h := NewHandler(svc, keys, health, log)

	return &testEnv{
		router: NewRouter(h, keys, config.DefaultOpenPaths, nil, log, nil),
		fake:   fake,
		keys:   keys,
	}
}

func (e *testEnv) issueKey(t *testing.T) string {
	t.Helper()
	cred, err := e.keys.Issue(context.Background())
	require.NoError(t, err)
	return cred.Key
}

func (e *testEnv) do(method, path, key string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if key != "" {
		req.Header.Set(middleware.APIKeyHeader, key)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
}

func validInvoice(id string, files ...string) models.InvoiceRequest {
	return models.InvoiceRequest{
		LoanProduct:        "Invoice Financing",
		ApplicantType:      "Customer",
		Applicant:          "CUST-1",
		ReferenceRequestID: "REF-" + id,
		InvoiceID:          id,
		InvoiceNumber:      "0001",
		InvoiceDate:        "2026-10-01",
		ClientID:           "CL-1",
		TotalInvoiceAmount: 100,
		PaidAmount:         40,
		OutstandingAmount:  60,
		InvoiceItems:       []models.InvoiceItem{{ItemName: "Widget", ItemPrice: 25, Quantity: 4, TotalPrice: 100}},
		FileURLs:           files,
	}
}

func validPayment(loanID string) models.PaymentRequest {
	return models.PaymentRequest{
		LoanID:          loanID,
		RepaymentMethod: "Bank Transfer",
		PaymentDate:     "2026-10-01",
		PaymentAmount:   100,
		Source:          "portal",
	}
}

func TestGatedEndpoints_RejectBeforeRemoteCalls(t *testing.T) {
	env := newTestEnv(t)

	requests := []struct {
		method string
		path   string
		body   interface{}
	}{
		{http.MethodGet, "/api/v1/invoice-request-info?doctype=Online%20Invoice%20Financing&name=OIF-1", nil},
		{http.MethodPut, "/api/v1/update-invoice-info", []models.DocumentUpdate{{ID: "1", DocType: "X"}}},
		{http.MethodPost, "/api/v1/approved-request", map[string]string{"name": "OIF-1"}},
	}
	for _, req := range requests {
		for _, key := range []string{"", "unknown-key"} {
			rec := env.do(req.method, req.path, key, req.body)
			assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s key=%q", req.method, req.path, key)
			assert.JSONEq(t, `{"detail":"Unauthorized"}`, rec.Body.String())
		}
	}
	assert.Empty(t, env.fake.Calls())
}

func TestGenerateAPIKey_ThenAccessGatedEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/generate-api-key", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cred models.APIKeyCredential
	decode(t, rec, &cred)
	assert.Len(t, cred.Key, 32)
	assert.Len(t, cred.Secret, 32)

	env.fake.ReadFunc = func(doctype, name string) (map[string]interface{}, error) {
		return map[string]interface{}{"workflow_state": "Approved", "repayments": []interface{}{}}, nil
	}
	rec = env.do(http.MethodGet, "/api/v1/invoice-request-info?doctype=Online%20Invoice%20Financing&name=OIF-1", cred.Key, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var info models.InvoiceInfo
	decode(t, rec, &info)
	assert.Equal(t, "Approved", info.WorkflowState)

	reads := env.fake.Calls("read")
	require.Len(t, reads, 1)
	assert.Equal(t, "Online Invoice Financing", reads[0].DocType)
	assert.Equal(t, "OIF-1", reads[0].Name)
}

func TestInvoiceRequestInfo_MissingParams(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/v1/invoice-request-info?name=OIF-1", env.issueKey(t), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, env.fake.Calls())
}

func TestInvoiceRequestInfo_RemoteNotFound(t *testing.T) {
	env := newTestEnv(t)
	env.fake.ReadFunc = func(doctype, name string) (map[string]interface{}, error) {
		return nil, &erp.RemoteError{Op: "read_document", StatusCode: 404, Body: "DoesNotExistError"}
	}

	rec := env.do(http.MethodGet, "/api/v1/invoice-request-info?doctype=X&name=missing", env.issueKey(t), nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "DoesNotExistError")
}

func TestCreateInvoiceRequests_PartialResults(t *testing.T) {
	env := newTestEnv(t)
	env.fake.CreateFunc = func(doctype string, payload interface{}) (*models.RemoteDocument, error) {
		doc := payload.(models.InvoiceRequest)
		if doc.InvoiceID == "INV-2" {
			return nil, &erp.RemoteError{Op: "create_document", StatusCode: 417, Body: "MandatoryError"}
		}
		return &models.RemoteDocument{Name: "OIF-" + doc.InvoiceID}, nil
	}

	body := []models.InvoiceRequest{validInvoice("INV-1", "a.pdf"), validInvoice("INV-2"), validInvoice("INV-3")}
	rec := env.do(http.MethodPost, "/api/v1/invoice-request", "", body)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var batch models.BatchResult
	decode(t, rec, &batch)
	require.Len(t, batch.Results, 3)
	assert.Equal(t, 2, batch.Succeeded)
	assert.Equal(t, 1, batch.Failed)

	assert.Equal(t, "OIF-INV-1", batch.Results[0].RequestID)
	assert.Equal(t, []string{"/private/files/a.pdf"}, batch.Results[0].UploadedFileURLs)
	assert.Equal(t, models.ResultFailed, batch.Results[1].Status)
	assert.Equal(t, models.StageCreation, batch.Results[1].Stage)
	assert.Contains(t, batch.Results[1].Error, "MandatoryError")
	assert.Equal(t, "OIF-INV-3", batch.Results[2].RequestID)
}

func TestCreateInvoiceRequests_LegacyPath(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/new-invoice-request", "", []models.InvoiceRequest{validInvoice("INV-1")})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, env.fake.Calls("create"), 1)
}

func TestCreateInvoiceRequests_InvalidPayload(t *testing.T) {
	env := newTestEnv(t)
	bad := validInvoice("INV-2")
	bad.InvoiceItems[0].TotalPrice = 99

	tests := []struct {
		name string
		body interface{}
	}{
		{"empty batch", []models.InvoiceRequest{}},
		{"not an array", map[string]string{"invoice_id": "INV-1"}},
		{"bad item total", []models.InvoiceRequest{validInvoice("INV-1"), bad}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/api/v1/invoice-request", "", tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		})
	}
	assert.Empty(t, env.fake.Calls())
}

func TestCreateLoanPayment(t *testing.T) {
	env := newTestEnv(t)
	env.fake.CreateFunc = func(doctype string, payload interface{}) (*models.RemoteDocument, error) {
		return &models.RemoteDocument{Name: "LP-0001", Fields: map[string]interface{}{"name": "LP-0001", "loan_type": payload.(models.PaymentRequest).LoanType}}, nil
	}

	rec := env.do(http.MethodPost, "/api/v1/loan-payment", "", validPayment("IF-9"))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Result map[string]interface{} `json:"result"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, "LP-0001", resp.Result["name"])
	assert.Equal(t, "Invoice Financing", resp.Result["loan_type"])
}

func TestCreateLoanPayment_Rejected(t *testing.T) {
	env := newTestEnv(t)
	env.fake.ValidateFunc = func(payload interface{}) (*models.PaymentValidation, error) {
		return &models.PaymentValidation{Status: "error", Message: "Loan is closed"}, nil
	}

	rec := env.do(http.MethodPost, "/api/v1/loan-payment", "", validPayment("ME-1"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Loan is closed")
	assert.Empty(t, env.fake.Calls("create"))
}

func TestCreateLoanPayment_CreationFailsIs500(t *testing.T) {
	env := newTestEnv(t)
	env.fake.CreateFunc = func(doctype string, payload interface{}) (*models.RemoteDocument, error) {
		return nil, &erp.RemoteError{Op: "create_document", StatusCode: 417, Body: "LinkValidationError"}
	}

	rec := env.do(http.MethodPost, "/api/v1/loan-payment", "", validPayment("ME-1"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "417")
	assert.Contains(t, rec.Body.String(), "LinkValidationError")
}

func TestCreateLoanPayment_InvalidPayload(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/loan-payment", "", models.PaymentRequest{LoanID: "ME-1"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, env.fake.Calls())
}

func TestUpdateInvoiceInfo_Echo(t *testing.T) {
	env := newTestEnv(t)
	updates := []models.DocumentUpdate{{ID: "OIF-1", DocType: "Online Invoice Financing", Data: map[string]interface{}{"invoice_status": "Paid"}}}

	rec := env.do(http.MethodPut, "/api/v1/update-invoice-info", env.issueKey(t), updates)

	require.Equal(t, http.StatusOK, rec.Code)
	var got []models.DocumentUpdate
	decode(t, rec, &got)
	assert.Equal(t, updates, got)
	assert.Empty(t, env.fake.Calls())
}

func TestApprovedRequest_Echo(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/approved-request", env.issueKey(t), map[string]interface{}{"name": "OIF-1", "workflow_state": "Approved"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"name":"OIF-1","workflow_state":"Approved"}`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var st scheduler.Status
	decode(t, rec, &st)
	assert.True(t, st.Reachable)
}

func TestHealth_States(t *testing.T) {
	tests := []struct {
		name   string
		status scheduler.Status
		code   int
	}{
		{"not yet checked", scheduler.Status{State: scheduler.StateUnknown}, http.StatusOK},
		{"up", scheduler.Status{State: scheduler.StateUp, Reachable: true, CheckedAt: time.Now()}, http.StatusOK},
		{"down", scheduler.Status{State: scheduler.StateDown, CheckedAt: time.Now(), Error: "connection refused"}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := logrus.New()
			log.SetOutput(io.Discard)
			h := NewHandler(nil, nil, staticHealth(tt.status), log)

			rec := httptest.NewRecorder()
			h.Health(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tt.code, rec.Code)
			var st scheduler.Status
			decode(t, rec, &st)
			assert.Equal(t, tt.status.State, st.State)
		})
	}
}
