// Package errors provides the coded ServiceError taxonomy shared by every
// ACP core component.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies one of the error kinds the core surfaces to callers.
type Code string

const (
	CodeNotFound       Code = "NOT_FOUND"
	CodeConflict       Code = "CONFLICT"
	CodeUnauthorized   Code = "UNAUTHORIZED"
	CodeInvalidState   Code = "INVALID_STATE"
	CodeValidation     Code = "VALIDATION_ERROR"
	CodeIntegrity      Code = "INTEGRITY_ERROR"
	CodeStore          Code = "STORE_ERROR"
	CodeExternal       Code = "EXTERNAL_ERROR"
	CodeTimeout        Code = "TIMEOUT"
	CodeConfig         Code = "CONFIG_ERROR"
	CodeInternal       Code = "INTERNAL_ERROR"
)

var httpStatus = map[Code]int{
	CodeNotFound:     http.StatusNotFound,
	CodeConflict:     http.StatusConflict,
	CodeUnauthorized: http.StatusUnauthorized,
	CodeInvalidState: http.StatusConflict,
	CodeValidation:   http.StatusBadRequest,
	CodeIntegrity:    http.StatusUnprocessableEntity,
	CodeStore:        http.StatusInternalServerError,
	CodeExternal:     http.StatusBadGateway,
	CodeTimeout:      http.StatusGatewayTimeout,
	CodeConfig:       http.StatusInternalServerError,
	CodeInternal:     http.StatusInternalServerError,
}

// ServiceError is a structured error carrying a Code, a human message, an
// optional cause, and optional structured details.
type ServiceError struct {
	Code    Code
	Message string
	Details map[string]interface{}
	Cause   error
}

func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Cause }

// WithDetails attaches a structured detail key/value and returns the error
// for chaining.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// HTTPStatus returns the status code conventionally associated with this
// error's Code.
func (e *ServiceError) HTTPStatus() int {
	if s, ok := httpStatus[e.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New creates a ServiceError with no cause.
func New(code Code, message string) *ServiceError {
	return &ServiceError{Code: code, Message: message}
}

// Wrap creates a ServiceError around an existing cause.
func Wrap(code Code, message string, cause error) *ServiceError {
	return &ServiceError{Code: code, Message: message, Cause: cause}
}

func NotFound(resource, id string) *ServiceError {
	return New(CodeNotFound, resource+" not found").WithDetails("id", id)
}

func Conflict(message string) *ServiceError {
	return New(CodeConflict, message)
}

func Unauthorized(message string) *ServiceError {
	return New(CodeUnauthorized, message)
}

func InvalidState(message string) *ServiceError {
	return New(CodeInvalidState, message)
}

func Validation(field, reason string) *ServiceError {
	return New(CodeValidation, reason).WithDetails("field", field)
}

func Integrity(message string, cause error) *ServiceError {
	return Wrap(CodeIntegrity, message, cause)
}

func Store(operation string, cause error) *ServiceError {
	return Wrap(CodeStore, "persistence operation failed", cause).WithDetails("operation", operation)
}

func External(source string, cause error) *ServiceError {
	return Wrap(CodeExternal, "external call failed", cause).WithDetails("source", source)
}

func Timeout(operation string) *ServiceError {
	return New(CodeTimeout, "operation timed out").WithDetails("operation", operation)
}

func Config(message string) *ServiceError {
	return New(CodeConfig, message)
}

// As extracts a *ServiceError from an error chain.
func As(err error) (*ServiceError, bool) {
	var se *ServiceError
	ok := errors.As(err, &se)
	return se, ok
}

func codeIs(err error, c Code) bool {
	se, ok := As(err)
	return ok && se.Code == c
}

func IsNotFound(err error) bool     { return codeIs(err, CodeNotFound) }
func IsConflict(err error) bool     { return codeIs(err, CodeConflict) }
func IsUnauthorized(err error) bool { return codeIs(err, CodeUnauthorized) }
func IsInvalidState(err error) bool { return codeIs(err, CodeInvalidState) }
func IsValidation(err error) bool   { return codeIs(err, CodeValidation) }
func IsIntegrity(err error) bool    { return codeIs(err, CodeIntegrity) }
func IsStore(err error) bool        { return codeIs(err, CodeStore) }
func IsExternal(err error) bool     { return codeIs(err, CodeExternal) }
func IsTimeout(err error) bool      { return codeIs(err, CodeTimeout) }
