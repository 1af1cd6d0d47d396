package errors

import "net/http"

var ErrClaimConflict = &Exception{
	Message:    "lost claim race, re-select a project and try again",
	StatusCode: http.StatusConflict,
}
