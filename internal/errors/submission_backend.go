package errors

import "net/http"

// ErrSubmissionBackend means the submission failed after validation passed.
// The task stays assigned so the worker can retry without losing the
// reservation; it is never retried automatically.
var ErrSubmissionBackend = &Exception{
	Message:    "submission failed, your reservation is still held",
	StatusCode: http.StatusBadGateway,
}
