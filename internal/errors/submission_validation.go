package errors

import "net/http"

var ErrSkipReasonRequired = &Exception{
	Message:    "a skip reason is required for this project",
	StatusCode: http.StatusBadRequest,
}

var ErrSkipDisabled = &Exception{
	Message:    "skipping is disabled for this project",
	StatusCode: http.StatusBadRequest,
}

var ErrInvalidRating = &Exception{
	Message:    "rating must be at least 1",
	StatusCode: http.StatusBadRequest,
}

var ErrInvalidSkipReason = &Exception{
	Message:    "skip reason is not in the project's configured list",
	StatusCode: http.StatusBadRequest,
}
