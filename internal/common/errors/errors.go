// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeMenteeNotFound          ErrorCode = "MENTEE_NOT_FOUND"
	ErrCodeMenteeProfileIncomplete ErrorCode = "MENTEE_PROFILE_INCOMPLETE"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeMentorQueryFailed        ErrorCode = "MENTOR_QUERY_FAILED"
	ErrCodeMentorQueryTimeout       ErrorCode = "MENTOR_QUERY_TIMEOUT"
	ErrCodeRelationshipQueryFailed  ErrorCode = "RELATIONSHIP_QUERY_FAILED"

	ErrCodeSearchQueryFailed ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeSearchTimeout     ErrorCode = "SEARCH_TIMEOUT"

	ErrCodePreferenceDerivationFailed ErrorCode = "PREFERENCE_DERIVATION_FAILED"
	ErrCodeInvalidPreferencePayload   ErrorCode = "INVALID_PREFERENCE_PAYLOAD"
	ErrCodeOracleTimeout              ErrorCode = "ORACLE_TIMEOUT"

	ErrCodeScoringFailed ErrorCode = "SCORING_FAILED"
	ErrCodeRankingFailed ErrorCode = "RANKING_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
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
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	if e.ErrorVariables != nil {
		for k, v := range e.ErrorVariables {
			vars[k] = v
		}
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewMenteeNotFoundError creates a non-retryable missing mentee error.
func NewMenteeNotFoundError(menteeID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMenteeNotFound,
		Message:   "Mentee profile not found",
		Details:   fmt.Sprintf("menteeId: %s", menteeID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMenteeProfileIncompleteError creates a non-retryable precondition error.
func NewMenteeProfileIncompleteError(menteeID, missingField string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMenteeProfileIncomplete,
		Message:   "Mentee profile is missing required location information",
		Details:   fmt.Sprintf("menteeId: %s, missing: %s", menteeID, missingField),
		Retryable: false,
		Metadata:  map[string]interface{}{"missingField": missingField},
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewMentorQueryFailedError creates a retryable mentor pool query error.
func NewMentorQueryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeMentorQueryFailed,
		Message:   "Mentor pool query failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewMentorQueryTimeoutError creates a retryable mentor pool query timeout error.
func NewMentorQueryTimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeMentorQueryTimeout,
		Message:   "Mentor pool query timeout",
		Details:   "query exceeded timeout threshold",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRelationshipQueryFailedError creates a retryable relationship lookup error.
func NewRelationshipQueryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRelationshipQueryFailed,
		Message:   "Mentorship relationship lookup failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchQueryFailedError creates a retryable search query error.
func NewSearchQueryFailedError(indexName string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchQueryFailed,
		Message:   "Search index query failed",
		Details:   fmt.Sprintf("indexName: %s, error: %s", indexName, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchTimeoutError creates a retryable search timeout error.
func NewSearchTimeoutError(indexName string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchTimeout,
		Message:   "Search index query timeout",
		Details:   fmt.Sprintf("indexName: %s", indexName),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPreferenceDerivationFailedError creates a non-retryable oracle derivation error.
// Callers fall back to default preferences, so this never fails a job on its own.
func NewPreferenceDerivationFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePreferenceDerivationFailed,
		Message:   "Preference oracle call failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidPreferencePayloadError creates a non-retryable payload validation error.
func NewInvalidPreferencePayloadError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidPreferencePayload,
		Message:   "Preference payload failed schema validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewOracleTimeoutError creates a non-retryable oracle timeout error.
// Oracle calls are attempted exactly once.
func NewOracleTimeoutError(operation string) *StandardError {
	return &StandardError{
		Code:      ErrCodeOracleTimeout,
		Message:   "AI oracle call timeout",
		Details:   fmt.Sprintf("operation: %s", operation),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewScoringFailedError creates a non-retryable scoring error.
func NewScoringFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeScoringFailed,
		Message:   "Candidate scoring failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRankingFailedError creates a non-retryable ranking error.
func NewRankingFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRankingFailed,
		Message:   "Candidate ranking failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// Generic constructors

func NewBusinessRuleError(message, details string) *StandardError {
	return &StandardError{
		Code:      "BUSINESS_RULE_VIOLATION",
		Message:   message,
		Details:   details,
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

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "TIMEOUT_ERROR",
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return &StandardError{
		Code:      "RESOURCE_NOT_FOUND",
		Message:   fmt.Sprintf("Resource not found in %s", service),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
// The process models use the internal codes directly, so the mapping is identity.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeMenteeNotFound:             "MENTEE_NOT_FOUND",
	ErrCodeMenteeProfileIncomplete:    "MENTEE_PROFILE_INCOMPLETE",
	ErrCodeDatabaseConnectionFailed:   "DATABASE_CONNECTION_FAILED",
	ErrCodeMentorQueryFailed:          "MENTOR_QUERY_FAILED",
	ErrCodeMentorQueryTimeout:         "MENTOR_QUERY_TIMEOUT",
	ErrCodeRelationshipQueryFailed:    "RELATIONSHIP_QUERY_FAILED",
	ErrCodeSearchQueryFailed:          "SEARCH_QUERY_FAILED",
	ErrCodeSearchTimeout:              "SEARCH_TIMEOUT",
	ErrCodePreferenceDerivationFailed: "PREFERENCE_DERIVATION_FAILED",
	ErrCodeInvalidPreferencePayload:   "INVALID_PREFERENCE_PAYLOAD",
	ErrCodeOracleTimeout:              "ORACLE_TIMEOUT",
	ErrCodeScoringFailed:              "SCORING_FAILED",
	ErrCodeRankingFailed:              "RANKING_FAILED",
	ErrCodeNotificationSendFailed:     "NOTIFICATION_SEND_FAILED",
}

// GetRetryCount returns the recommended job retry count per error code.
// Store and notification failures are retried by the engine; oracle calls
// and business preconditions are not.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeMentorQueryFailed,
		ErrCodeRelationshipQueryFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeNotificationSendFailed:
		return 3

	case ErrCodeMentorQueryTimeout,
		ErrCodeSearchTimeout:
		return 2

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code) // Fallback
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "MENTEE"):
		return "PROFILE"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "ORACLE") || strings.Contains(codeStr, "PREFERENCE"):
		return "ORACLE"
	case strings.Contains(codeStr, "SCORING") || strings.Contains(codeStr, "RANKING"):
		return "MATCHING"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
