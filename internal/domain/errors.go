package domain

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is returned when the upstream answers 401. Only the
// transport status decides; a body claiming 401 on another status does not.
var ErrUnauthorized = errors.New("upstream: unauthorized")

// APIError is the structured error body returned by the upstream API.
type APIError struct {
	HTTPStatusCode int     `json:"httpStatusCode"`
	Code           string  `json:"code"`
	Message        string  `json:"message"`
	Fingerprint    string  `json:"fingerprint"`
	Details        *string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s (fingerprint %s)", e.Code, e.Message, e.Fingerprint)
}

// HTTPError is a non-2xx upstream response whose body was not a recognised
// APIError. Message may be empty.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("upstream returned status %d", e.Status)
}
