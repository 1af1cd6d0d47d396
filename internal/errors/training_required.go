package errors

import "net/http"

var ErrTrainingRequired = &Exception{
	Message:    "training must be completed before claiming work",
	StatusCode: http.StatusForbidden,
}
