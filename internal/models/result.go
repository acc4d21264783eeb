package models

// FailureStage tells an operator how far an invoice saga got before failing
type FailureStage string

const (
	// StageCreation: no remote document exists
	StageCreation FailureStage = "creation_failed"
	// StageUpload: the document exists, files are partially or not attached
	StageUpload FailureStage = "upload_failed"
	// StagePatch: document and files exist remotely but are not linked
	StagePatch FailureStage = "patch_failed"
)

const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
)

// InvoiceResult is the outcome of one invoice request in a batch
type InvoiceResult struct {
	Index            int          `json:"index"`
	Status           string       `json:"status"`
	RequestID        string       `json:"request_id,omitempty"`
	UploadedFileURLs []string     `json:"uploaded_file_urls"`
	Stage            FailureStage `json:"stage,omitempty"`
	Error            string       `json:"error,omitempty"`
	Err              error        `json:"-"`
}

// Succeeded reports whether every saga step completed
func (r InvoiceResult) Succeeded() bool {
	return r.Status == ResultSuccess
}

// BatchResult aggregates per-item invoice results in input order
type BatchResult struct {
	Results   []InvoiceResult `json:"results"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
}
