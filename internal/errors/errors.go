package errors

import (
	"errors"
	"fmt"
)

// Domain-specific error types
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrDuplicateEntry indicates a unique constraint violation
	ErrDuplicateEntry = errors.New("duplicate entry")

	// ErrInvalidInput indicates invalid input data
	ErrInvalidInput = errors.New("invalid input")

	// ErrLeadNotFound indicates the lead was not found
	ErrLeadNotFound = errors.New("lead not found")

	// ErrConversationNotFound indicates the conversation was not found
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrEmptyConversation indicates the conversation holds no messages yet
	ErrEmptyConversation = errors.New("No messages in conversation")

	// ErrDraftNotFound indicates the AI draft was not found
	ErrDraftNotFound = errors.New("draft not found")

	// ErrDraftNotProposed indicates the draft is no longer in the proposed state
	ErrDraftNotProposed = errors.New("draft is not in proposed state")

	// ErrInvalidSignature indicates webhook signature verification failed
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrEmptyAIResponse indicates the generation service returned no content
	ErrEmptyAIResponse = errors.New("empty AI response")

	// ErrUnauthorized indicates unauthorized access
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates forbidden access
	ErrForbidden = errors.New("forbidden")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal server error")
)

// Error codes for API responses
const (
	CodeNotFound         = "NOT_FOUND"
	CodeDuplicateEntry   = "DUPLICATE_ENTRY"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeInvalidSignature = "INVALID_SIGNATURE"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeInternalError    = "INTERNAL_ERROR"
	CodeAIFailure        = "AI_FAILURE"
)

// AppError represents an application error with context
type AppError struct {
	Err     error
	Message string
	Code    string
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(err error, message string, code string) *AppError {
	return &AppError{
		Err:     err,
		Message: message,
		Code:    code,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrLeadNotFound) ||
		errors.Is(err, ErrConversationNotFound) ||
		errors.Is(err, ErrDraftNotFound)
}

// IsDuplicateEntry checks if the error is a duplicate entry error
func IsDuplicateEntry(err error) bool {
	return errors.Is(err, ErrDuplicateEntry)
}

// IsInvalidInput checks if the error is an invalid input error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// GetErrorCode returns the appropriate error code for an error
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != "" {
		return appErr.Code
	}

	switch {
	case IsNotFound(err):
		return CodeNotFound
	case IsDuplicateEntry(err):
		return CodeDuplicateEntry
	case IsInvalidInput(err),
		errors.Is(err, ErrDraftNotProposed),
		errors.Is(err, ErrEmptyConversation):
		return CodeInvalidInput
	case errors.Is(err, ErrInvalidSignature):
		return CodeInvalidSignature
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	default:
		return CodeInternalError
	}
}
