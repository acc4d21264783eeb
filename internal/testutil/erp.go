// Package testutil provides fakes shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/Dan9191/erp-gateway/internal/models"
)

// Call is one recorded invocation of FakeERP
type Call struct {
	Op      string
	DocType string
	Name    string
	FileURL string
	Payload interface{}
}

// FakeERP records calls and delegates to optional function fields.
// Without a function set, creates return sequential names and uploads echo
// the source URL under /private/files/.
type FakeERP struct {
	CreateFunc   func(doctype string, payload interface{}) (*models.RemoteDocument, error)
	ReadFunc     func(doctype, name string) (map[string]interface{}, error)
	UpdateFunc   func(doctype, name string, patch interface{}) (*models.RemoteDocument, error)
	UploadFunc   func(fileURL, doctype, docname string) (string, error)
	ValidateFunc func(payload interface{}) (*models.PaymentValidation, error)

	mu      sync.Mutex
	calls   []Call
	created int
}

func (f *FakeERP) record(c Call) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
}

// Calls returns the recorded calls, optionally filtered by op
func (f *FakeERP) Calls(op ...string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(op) == 0 {
		return append([]Call(nil), f.calls...)
	}
	var out []Call
	for _, c := range f.calls {
		if c.Op == op[0] {
			out = append(out, c)
		}
	}
	return out
}

func (f *FakeERP) CreateDocument(ctx context.Context, doctype string, payload interface{}) (*models.RemoteDocument, error) {
	f.record(Call{Op: "create", DocType: doctype, Payload: payload})
	if f.CreateFunc != nil {
		return f.CreateFunc(doctype, payload)
	}
	f.mu.Lock()
	f.created++
	name := fmt.Sprintf("DOC-%04d", f.created)
	f.mu.Unlock()
	return &models.RemoteDocument{Name: name, Fields: map[string]interface{}{"name": name}}, nil
}

func (f *FakeERP) ReadDocument(ctx context.Context, doctype, name string) (map[string]interface{}, error) {
	f.record(Call{Op: "read", DocType: doctype, Name: name})
	if f.ReadFunc != nil {
		return f.ReadFunc(doctype, name)
	}
	return map[string]interface{}{"name": name}, nil
}

func (f *FakeERP) UpdateDocument(ctx context.Context, doctype, name string, patch interface{}) (*models.RemoteDocument, error) {
	f.record(Call{Op: "update", DocType: doctype, Name: name, Payload: patch})
	if f.UpdateFunc != nil {
		return f.UpdateFunc(doctype, name, patch)
	}
	return &models.RemoteDocument{Name: name}, nil
}

func (f *FakeERP) UploadFile(ctx context.Context, fileURL, doctype, docname string) (string, error) {
	f.record(Call{Op: "upload", DocType: doctype, Name: docname, FileURL: fileURL})
	if f.UploadFunc != nil {
		return f.UploadFunc(fileURL, doctype, docname)
	}
	return "/private/files/" + fileURL, nil
}

func (f *FakeERP) ValidatePayment(ctx context.Context, payload interface{}) (*models.PaymentValidation, error) {
	f.record(Call{Op: "validate", Payload: payload})
	if f.ValidateFunc != nil {
		return f.ValidateFunc(payload)
	}
	return &models.PaymentValidation{Status: models.PaymentValidationSuccess}, nil
}
