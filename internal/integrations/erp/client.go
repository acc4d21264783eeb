package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Dan9191/erp-gateway/internal/config"
	"github.com/Dan9191/erp-gateway/internal/metrics"
	"github.com/Dan9191/erp-gateway/internal/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	uploadFolder = "Home/Attachments"
	maxBodyBytes = 4 << 20
)

// Client talks to the ERP resource and method API
type Client struct {
	baseURL        string
	authorization  string
	validateMethod string
	timeout        time.Duration
	client         *http.Client
	log            *logrus.Logger
	metrics        *metrics.Metrics
}

// NewClient initializes a new ERP client
func NewClient(cfg *config.Config, log *logrus.Logger, m *metrics.Metrics) *Client {
	return &Client{
		baseURL:        cfg.ERPBaseURL,
		authorization:  fmt.Sprintf("token %s:%s", cfg.ERPAPIKey, cfg.ERPAPISecret),
		validateMethod: cfg.ERPValidatePaymentMethod,
		timeout:        cfg.ERPTimeout,
		client:         &http.Client{},
		log:            log,
		metrics:        m,
	}
}

// CreateDocument creates a document of the given doctype.
// The returned document always carries the remote-assigned name.
func (c *Client) CreateDocument(ctx context.Context, doctype string, payload interface{}) (*models.RemoteDocument, error) {
	const op = "create_document"
	body, err := c.do(ctx, op, http.MethodPost, resourcePath(doctype), payload)
	if err != nil {
		return nil, err
	}
	doc, err := parseDocument(op, body)
	if err == nil && doc.Name == "" {
		err = &MalformedResponseError{Op: op, Body: string(body), Err: errors.New("missing document name")}
	}
	c.observe(op, err)
	if err != nil {
		return nil, err
	}
	c.log.WithFields(logrus.Fields{"doctype": doctype, "name": doc.Name}).Debug("ERP document created")
	return doc, nil
}

// ReadDocument fetches the current fields of a document
func (c *Client) ReadDocument(ctx context.Context, doctype, name string) (map[string]interface{}, error) {
	const op = "read_document"
	body, err := c.do(ctx, op, http.MethodGet, resourcePath(doctype, name), nil)
	if err != nil {
		return nil, err
	}
	doc, err := parseDocument(op, body)
	c.observe(op, err)
	if err != nil {
		return nil, err
	}
	return doc.Fields, nil
}

// UpdateDocument merges the given fields into an existing document
func (c *Client) UpdateDocument(ctx context.Context, doctype, name string, patch interface{}) (*models.RemoteDocument, error) {
	const op = "update_document"
	body, err := c.do(ctx, op, http.MethodPut, resourcePath(doctype, name), patch)
	if err != nil {
		return nil, err
	}
	doc, err := parseDocument(op, body)
	c.observe(op, err)
	if err != nil {
		return nil, err
	}
	if doc.Name == "" {
		doc.Name = name
	}
	return doc, nil
}

// UploadFile asks the ERP to fetch fileURL and attach it to the document.
// It returns the URL under which the ERP stored the file.
func (c *Client) UploadFile(ctx context.Context, fileURL, doctype, docname string) (string, error) {
	const op = "upload_file"
	req := map[string]interface{}{
		"is_private": 1,
		"folder":     uploadFolder,
		"file_url":   fileURL,
		"doctype":    doctype,
		"docname":    docname,
	}
	body, err := c.do(ctx, op, http.MethodPost, "/api/method/upload_file", req)
	if err != nil {
		return "", err
	}

	var resp struct {
		Message struct {
			FileURL string `json:"file_url"`
		} `json:"message"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.Message.FileURL == "" {
		uploadErr := &UploadError{Reason: "malformed response, missing file_url", Body: string(body)}
		c.observe(op, uploadErr)
		return "", uploadErr
	}
	c.observe(op, nil)
	c.log.WithFields(logrus.Fields{"doctype": doctype, "name": docname}).Debug("ERP file uploaded")
	return resp.Message.FileURL, nil
}

// ValidatePayment runs the remote payment pre-check. It has no side effects.
// A missing or non-string status yields a zero-status verdict, which is not accepted.
func (c *Client) ValidatePayment(ctx context.Context, payload interface{}) (*models.PaymentValidation, error) {
	const op = "validate_payment"
	body, err := c.do(ctx, op, http.MethodPost, "/api/method/"+c.validateMethod, payload)
	if err != nil {
		return nil, err
	}
	c.observe(op, nil)
	return parseValidation(body), nil
}

// Ping checks that the ERP is reachable and accepts the configured credentials
func (c *Client) Ping(ctx context.Context) error {
	const op = "ping"
	body, err := c.do(ctx, op, http.MethodGet, "/api/method/ping", nil)
	if err != nil {
		return err
	}
	var resp struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.Message != "pong" {
		malformed := &MalformedResponseError{Op: op, Body: string(body), Err: err}
		c.observe(op, malformed)
		return malformed
	}
	c.observe(op, nil)
	return nil
}

// do sends a JSON request and returns the body of a 2xx response.
// Transport failures become NetworkError, non-2xx statuses become RemoteError.
func (c *Client) do(ctx context.Context, op, method, path string, in interface{}) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			err = errors.Wrapf(err, "erp %s: failed marshal", op)
			c.observe(op, err)
			return nil, err
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		err = errors.Wrapf(err, "erp %s: failed new request", op)
		c.observe(op, err)
		return nil, err
	}
	req.Header.Set("Authorization", c.authorization)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		netErr := &NetworkError{Op: op, Err: errors.Wrap(err, "failed do request")}
		c.observe(op, netErr)
		return nil, netErr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		netErr := &NetworkError{Op: op, Err: errors.Wrap(err, "failed read body")}
		c.observe(op, netErr)
		return nil, netErr
	}

	c.log.WithFields(logrus.Fields{
		"op":       op,
		"method":   method,
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	}).Debug("ERP call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		remoteErr := &RemoteError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
		c.observe(op, remoteErr)
		return nil, remoteErr
	}
	return body, nil
}

func (c *Client) observe(op string, err error) {
	c.metrics.ERPCall(op, Kind(err))
}

func resourcePath(doctype string, name ...string) string {
	p := "/api/resource/" + url.PathEscape(doctype)
	for _, n := range name {
		p += "/" + url.PathEscape(n)
	}
	return p
}

func parseDocument(op string, body []byte) (*models.RemoteDocument, error) {
	var resp struct {
		Data map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &MalformedResponseError{Op: op, Body: string(body), Err: err}
	}
	if resp.Data == nil {
		return nil, &MalformedResponseError{Op: op, Body: string(body), Err: errors.New("missing data")}
	}
	name, _ := resp.Data["name"].(string)
	return &models.RemoteDocument{Name: name, Fields: resp.Data}, nil
}

func parseValidation(body []byte) *models.PaymentValidation {
	var resp struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || len(resp.Message) == 0 {
		return &models.PaymentValidation{Message: "malformed validation response"}
	}

	var verdict struct {
		Status  interface{} `json:"status"`
		Message interface{} `json:"message"`
	}
	if err := json.Unmarshal(resp.Message, &verdict); err != nil {
		// The remote answered with a bare message instead of a verdict object
		var text string
		if json.Unmarshal(resp.Message, &text) == nil {
			return &models.PaymentValidation{Message: text}
		}
		return &models.PaymentValidation{Message: string(resp.Message)}
	}

	v := &models.PaymentValidation{}
	v.Status, _ = verdict.Status.(string)
	switch m := verdict.Message.(type) {
	case nil:
	case string:
		v.Message = m
	default:
		v.Message = fmt.Sprint(m)
	}
	return v
}
