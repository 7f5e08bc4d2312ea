// Package errors provides standardized error handling for the turn
// resolution pipeline and its external collaborators.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeCatalogLoadFailed    ErrorCode = "CATALOG_LOAD_FAILED"
	ErrCodeCatalogSchemaInvalid ErrorCode = "CATALOG_SCHEMA_INVALID"

	ErrCodeIntentModelUnavailable ErrorCode = "INTENT_MODEL_UNAVAILABLE"
	ErrCodeIntentLLMFailed        ErrorCode = "INTENT_LLM_FAILED"

	ErrCodeRetrievalFailed   ErrorCode = "RETRIEVAL_FAILED"
	ErrCodeGenerationFailed  ErrorCode = "GENERATION_FAILED"
	ErrCodeGenerationTimeout ErrorCode = "GENERATION_TIMEOUT"

	ErrCodeOrderLogWriteFailed    ErrorCode = "ORDER_LOG_WRITE_FAILED"
	ErrCodeNotifySendFailed       ErrorCode = "NOTIFY_SEND_FAILED"
	ErrCodeReservationUnavailable ErrorCode = "RESERVATION_UNAVAILABLE"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// Error Constructors
// ==========================

// NewCatalogLoadFailedError creates a non-retryable catalog read error.
// Downstream parsing degrades to an empty index rather than failing turns.
func NewCatalogLoadFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCatalogLoadFailed,
		Message:   "Business catalog could not be read",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCatalogSchemaInvalidError creates a non-retryable schema validation error.
func NewCatalogSchemaInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCatalogSchemaInvalid,
		Message:   "Business catalog failed schema validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewIntentModelUnavailableError creates a non-retryable trained-model error.
// The cascade treats this as "tier unavailable" and falls through.
func NewIntentModelUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeIntentModelUnavailable,
		Message:   "Trained intent model unavailable",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewIntentLLMFailedError creates a retryable LLM classification error.
func NewIntentLLMFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeIntentLLMFailed,
		Message:   "LLM intent classification error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRetrievalFailedError creates a retryable retrieval error.
func NewRetrievalFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRetrievalFailed,
		Message:   "Knowledge retrieval error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewGenerationFailedError creates a retryable generation API error.
func NewGenerationFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeGenerationFailed,
		Message:   "Response generation API error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewGenerationTimeoutError creates a retryable generation timeout error.
func NewGenerationTimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeGenerationTimeout,
		Message:   "Response generation timeout",
		Details:   "API call exceeded timeout threshold",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewOrderLogWriteFailedError creates a retryable persistence error.
func NewOrderLogWriteFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeOrderLogWriteFailed,
		Message:   "Order log append failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotifySendFailedError creates a retryable notification error.
func NewNotifySendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotifySendFailed,
		Message:   "Order confirmation delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewReservationUnavailableError creates a non-retryable availability error.
func NewReservationUnavailableError(slot string) *StandardError {
	return &StandardError{
		Code:      ErrCodeReservationUnavailable,
		Message:   "Requested reservation slot is fully booked",
		Details:   fmt.Sprintf("slot: %s", slot),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "EXTERNAL_SERVICE_ERROR",
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// Utility Functions
// ==========================

// GetRetryCount returns the recommended retry count per error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeRetrievalFailed,
		ErrCodeGenerationFailed,
		ErrCodeOrderLogWriteFailed,
		ErrCodeNotifySendFailed,
		ErrCodeIntentLLMFailed:
		return 3

	case ErrCodeGenerationTimeout:
		return 1

	default:
		return 0
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "CATALOG"):
		return "CATALOG"
	case strings.Contains(codeStr, "INTENT"):
		return "INTENT"
	case strings.Contains(codeStr, "GENERATION") || strings.Contains(codeStr, "RETRIEVAL"):
		return "AI"
	case strings.Contains(codeStr, "ORDER_LOG"):
		return "PERSISTENCE"
	case strings.Contains(codeStr, "NOTIFY"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "RESERVATION"):
		return "RESERVATION"
	default:
		return "OTHER"
	}
}
