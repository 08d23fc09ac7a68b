package medcopy

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNoItems is returned by Orchestrator.Run when the item list is empty.
// It is a warning for the operator rather than a processing failure.
var ErrNoItems = errors.New("no conditions found")

// ErrorKind classifies upstream failures. The set is closed: every error maps
// to exactly one kind via KindOf.
type ErrorKind string

const (
	KindUnclassified      ErrorKind = "unclassified"
	KindQuotaExceeded     ErrorKind = "quota_exceeded"
	KindInvalidCredential ErrorKind = "invalid_credential"
)

// HTTPStatus maps the kind to the status the relay answers with.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindQuotaExceeded:
		return http.StatusPaymentRequired
	case KindInvalidCredential:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// KindFromStatus is the inverse of HTTPStatus for statuses received from the relay.
func KindFromStatus(status int) ErrorKind {
	switch status {
	case http.StatusPaymentRequired:
		return KindQuotaExceeded
	case http.StatusUnauthorized:
		return KindInvalidCredential
	default:
		return KindUnclassified
	}
}

// KindOf classifies err. An *ErrHTTP is classified by its status; other
// errors that carry no kind are unclassified.
func KindOf(err error) ErrorKind {
	var e *ErrLLM
	if errors.As(err, &e) && e.Kind != "" {
		return e.Kind
	}
	var h *ErrHTTP
	if errors.As(err, &h) {
		return KindFromStatus(h.Status)
	}
	return KindUnclassified
}

// ErrLLM is a provider-reported failure. Code is the provider's raw error code
// (e.g. "insufficient_quota") and Kind its classification. Status is the HTTP
// status the provider answered with, or 0 when the failure was local.
type ErrLLM struct {
	Provider string
	Kind     ErrorKind
	Code     string
	Message  string
	Status   int
}

func (e *ErrLLM) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Provider, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// ErrHTTP is a non-2xx upstream response whose body was not a provider error.
type ErrHTTP struct {
	Status int
	Body   string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}
