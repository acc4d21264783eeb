package erp

import (
	"errors"
	"fmt"
	"net/http"
)

// RemoteError is returned when the ERP answers with a non-2xx status.
// Status and body are kept verbatim.
type RemoteError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("erp %s: remote returned %d: %s", e.Op, e.StatusCode, e.Body)
}

// NotFound reports whether the remote document does not exist
func (e *RemoteError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// NetworkError is returned when the ERP could not be reached at all
// (timeout, refused connection, DNS, cancelled context).
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("erp %s: network failure: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// UploadError is returned when an upload was acknowledged without a file URL
type UploadError struct {
	Reason string
	Body   string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("erp upload_file: %s: %s", e.Reason, e.Body)
}

// MalformedResponseError is returned when a 2xx response cannot be interpreted
type MalformedResponseError struct {
	Op   string
	Body string
	Err  error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("erp %s: malformed response: %v: %s", e.Op, e.Err, e.Body)
	}
	return fmt.Sprintf("erp %s: malformed response: %s", e.Op, e.Body)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// Kind classifies an error returned by the client for logs and metrics
func Kind(err error) string {
	var (
		remoteErr    *RemoteError
		networkErr   *NetworkError
		uploadErr    *UploadError
		malformedErr *MalformedResponseError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &remoteErr):
		return "remote_error"
	case errors.As(err, &networkErr):
		return "network_error"
	case errors.As(err, &uploadErr):
		return "upload_error"
	case errors.As(err, &malformedErr):
		return "malformed_response"
	default:
		return "internal_error"
	}
}
