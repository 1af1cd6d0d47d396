package errors

import "net/http"

// ErrNoWorkAvailable is a normal terminal state of selection, not a failure.
// Handlers translate it into an explicit empty-state payload.
var ErrNoWorkAvailable = &Exception{
	Message:    "no work available",
	StatusCode: http.StatusOK,
}
