package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

const (
	CodeNotFound           = "NOT_FOUND"
	CodeBadRequest         = "BAD_REQUEST"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeConflict           = "CONFLICT"
	CodeInternal           = "INTERNAL_ERROR"
	CodeTooManyRequests    = "TOO_MANY_REQUESTS"
	CodePreconditionFailed = "PRECONDITION_FAILED"
	CodeFeatureUnavailable = "FEATURE_UNAVAILABLE"
	CodeSchemaIncompatible = "SCHEMA_INCOMPATIBLE"
	CodeUpstream           = "UPSTREAM_ERROR"
)

func New(code string, message string, status int, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
		Err:     err,
	}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    CodeBadRequest,
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     err,
	}
}

func Unauthorized(message string, err error) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     err,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

func Forbidden(message string, err error) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
		Status:  http.StatusForbidden,
		Err:     err,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:    CodeConflict,
		Message: message,
		Status:  http.StatusConflict,
		Err:     nil,
	}
}

func TooManyRequests(message string) *AppError {
	return &AppError{
		Code:    CodeTooManyRequests,
		Message: message,
		Status:  http.StatusTooManyRequests,
		Err:     nil,
	}
}

// PreconditionFailed rejects an operation whose target is in the wrong state.
// It is raised before any backend call is made.
func PreconditionFailed(message string) *AppError {
	return &AppError{
		Code:    CodePreconditionFailed,
		Message: message,
		Status:  http.StatusUnprocessableEntity,
		Err:     nil,
	}
}

func FeatureUnavailable(feature string) *AppError {
	return &AppError{
		Code:    CodeFeatureUnavailable,
		Message: fmt.Sprintf("%s is not supported by the current backend", feature),
		Status:  http.StatusNotImplemented,
		Err:     nil,
	}
}

func SchemaIncompatible(message string, err error) *AppError {
	return &AppError{
		Code:    CodeSchemaIncompatible,
		Message: message,
		Status:  http.StatusBadGateway,
		Err:     err,
	}
}

func Upstream(message string, err error) *AppError {
	return &AppError{
		Code:    CodeUpstream,
		Message: message,
		Status:  http.StatusBadGateway,
		Err:     err,
	}
}
