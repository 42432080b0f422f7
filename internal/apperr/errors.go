package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrAuthenticationMissing = errors.New("authentication missing")
	ErrAuthorizationDenied   = errors.New("authorization denied")
	ErrNotFound              = errors.New("not found")
	ErrValidation            = errors.New("validation failed")
	ErrConflict              = errors.New("conflict")
	ErrExternalService       = errors.New("external service failure")
	ErrDataIntegrityRisk     = errors.New("data integrity risk")
)

// Error is a failure that knows how it is rendered to a client.
type Error struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Status  int               `json:"-"`
	Err     error             `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Unauthenticated(message string) *Error {
	return &Error{Code: "AUTHENTICATION_MISSING", Message: message, Status: http.StatusUnauthorized, Err: ErrAuthenticationMissing}
}

func Forbidden(message string) *Error {
	return &Error{Code: "AUTHORIZATION_DENIED", Message: message, Status: http.StatusForbidden, Err: ErrAuthorizationDenied}
}

func NotFound(resource string) *Error {
	return &Error{Code: "NOT_FOUND", Message: resource + " not found", Status: http.StatusNotFound, Err: ErrNotFound}
}

func Invalid(message string) *Error {
	return &Error{Code: "VALIDATION_FAILED", Message: message, Status: http.StatusBadRequest, Err: ErrValidation}
}

// InvalidCode is Invalid with a caller-chosen code, for validation failures
// the client renders differently (e.g. the shipping address prompt).
func InvalidCode(code, message string) *Error {
	return &Error{Code: code, Message: message, Status: http.StatusBadRequest, Err: ErrValidation}
}

func Conflict(message string) *Error {
	return &Error{Code: "CONFLICT", Message: message, Status: http.StatusConflict, Err: ErrConflict}
}

func External(service string, err error) *Error {
	return &Error{
		Code:    "EXTERNAL_SERVICE_FAILURE",
		Message: service + " is unavailable, please retry",
		Status:  http.StatusBadGateway,
		Err:     errors.Join(ErrExternalService, err),
	}
}

func IntegrityRisk(message string, err error) *Error {
	return &Error{
		Code:    "DATA_INTEGRITY_RISK",
		Message: message,
		Status:  http.StatusAccepted,
		Err:     errors.Join(ErrDataIntegrityRisk, err),
	}
}

func Internal(code string, err error) *Error {
	return &Error{Code: code, Message: "an internal error occurred", Status: http.StatusInternalServerError, Err: err}
}

// HTTPStatus maps any error to a status, preferring an embedded *Error.
func HTTPStatus(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	switch {
	case errors.Is(err, ErrAuthenticationMissing):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAuthorizationDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrExternalService):
		return http.StatusBadGateway
	case errors.Is(err, ErrDataIntegrityRisk):
		return http.StatusAccepted
	default:
		return http.StatusInternalServerError
	}
}

// As returns the *Error inside err, or a generic internal one.
func As(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return &Error{Code: "INTERNAL_ERROR", Message: "an internal error occurred", Status: HTTPStatus(err), Err: err}
}
