package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeGone         ErrorType = "GONE"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidID        ErrorCode = "INVALID_ID"

	ErrCodeDuplicateServiceNumber ErrorCode = "DUPLICATE_SERVICE_NUMBER"
	ErrCodeUnknownService         ErrorCode = "UNKNOWN_SERVICE"
	ErrCodeMembershipNotFound     ErrorCode = "MEMBERSHIP_NOT_FOUND"

	ErrCodeDuplicateApplication ErrorCode = "DUPLICATE_APPLICATION"
	ErrCodeQueueEntryNotFound   ErrorCode = "QUEUE_ENTRY_NOT_FOUND"
	ErrCodeQueueEntryExpired    ErrorCode = "QUEUE_ENTRY_EXPIRED"
	ErrCodeAlreadyProcessed     ErrorCode = "ALREADY_PROCESSED"
	ErrCodeQrExpired            ErrorCode = "QR_EXPIRED"
	ErrCodeQrInvalid            ErrorCode = "QR_INVALID"
	ErrCodeSelfHireRejected     ErrorCode = "SELF_HIRE_REJECTED"

	ErrCodePermissionDenied ErrorCode = "PERMISSION_DENIED"
	ErrCodeUserNotFound     ErrorCode = "USER_NOT_FOUND"
	ErrCodeOrderNotFound    ErrorCode = "ORDER_NOT_FOUND"
	ErrCodeInvalidInitData  ErrorCode = "INVALID_INIT_DATA"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			if len(validationErrors.Errors) == 1 {
				return validationErrors.Errors[0].Message
			} else if len(validationErrors.Errors) > 1 {
				messages := make([]string, len(validationErrors.Errors))
				for i, err := range validationErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewGoneError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeGone,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusGone,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

var (
	ErrDuplicateServiceNumber = NewConflictError("service number is already in use", ErrCodeDuplicateServiceNumber)
	ErrUnknownService         = NewNotFoundError("service not found", ErrCodeUnknownService)
	ErrMembershipNotFound     = NewNotFoundError("employee membership not found", ErrCodeMembershipNotFound)

	ErrDuplicateApplication = NewConflictError("candidate already has an outstanding application", ErrCodeDuplicateApplication)
	ErrQueueEntryNotFound   = NewNotFoundError("hiring queue entry not found", ErrCodeQueueEntryNotFound)
	ErrQueueEntryExpired    = NewGoneError("hiring queue entry has expired", ErrCodeQueueEntryExpired)
	ErrAlreadyProcessed     = NewConflictError("hiring queue entry was already processed", ErrCodeAlreadyProcessed)
	ErrQrExpired            = NewGoneError("QR code has expired", ErrCodeQrExpired)
	ErrSelfHireRejected     = NewValidationError("you cannot hire yourself", ErrCodeSelfHireRejected)

	// The denial is deliberately identical for "no access" and "service does
	// not exist" so callers cannot enumerate tenants.
	ErrPermissionDenied = NewForbiddenError("insufficient permissions for this service", ErrCodePermissionDenied)

	ErrUserNotFound  = NewNotFoundError("user not found", ErrCodeUserNotFound)
	ErrOrderNotFound = NewNotFoundError("order not found", ErrCodeOrderNotFound)
)

func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
