package errors

import "net/http"

var ErrClaimBackend = &Exception{
	Message:    "claim failed due to a backend error",
	StatusCode: http.StatusBadGateway,
}
