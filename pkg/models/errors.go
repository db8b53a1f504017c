package models

import "errors"

// ErrorCode classifies failures across the HTTP boundary and the SSE stream.
type ErrorCode string

const (
	ErrCodeValidation           ErrorCode = "VALIDATION_ERROR"
	ErrCodeUnauthorized         ErrorCode = "UNAUTHORIZED"
	ErrCodeRateLimitExceeded    ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrCodeModelNotFound        ErrorCode = "MODEL_NOT_FOUND"
	ErrCodeManusAPIError        ErrorCode = "MANUS_API_ERROR"
	ErrCodeConversationNotFound ErrorCode = "CONVERSATION_NOT_FOUND"
	ErrCodeInternal             ErrorCode = "INTERNAL_ERROR"
)

// APIError is a classified error. Code travels over the wire; Err keeps the
// underlying cause for logs and never leaves the process.
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *APIError) Error() string {
	return string(e.Code) + ": " + e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func NewAPIError(code ErrorCode, message string, err error) *APIError {
	return &APIError{Code: code, Message: message, Err: err}
}

// CodeOf extracts the classification of err, defaulting to INTERNAL_ERROR
// for unclassified errors.
func CodeOf(err error) ErrorCode {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ErrCodeInternal
}

// MessageOf extracts the client-safe message of err.
func MessageOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return "An unexpected error occurred"
}
