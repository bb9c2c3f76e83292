// Package errors provides standardized error handling for harvest runs and
// their BPMN workflow integration.
package errors

import (
	stderrors "errors"
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
	ErrCodeRegistryUnavailable  ErrorCode = "REGISTRY_UNAVAILABLE"
	ErrCodeCatalogueParseFailed ErrorCode = "CATALOGUE_PARSE_FAILED"
	ErrCodeStructureLoadFailed  ErrorCode = "STRUCTURE_LOAD_FAILED"

	ErrCodeInvariantViolation ErrorCode = "INVARIANT_VIOLATION"
	ErrCodeConfigInvalid      ErrorCode = "CONFIG_INVALID"
	ErrCodeNoRecords          ErrorCode = "NO_RECORDS"

	ErrCodeRecordValidationFailed ErrorCode = "RECORD_VALIDATION_FAILED"
	ErrCodeSinkWriteFailed        ErrorCode = "SINK_WRITE_FAILED"
	ErrCodeStateStoreFailed       ErrorCode = "STATE_STORE_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout         ErrorCode = "TIMEOUT_ERROR"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
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

// WithMetadata returns e with key set in its metadata.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// AsStandardError unwraps err to the first StandardError in its chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
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

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewRegistryUnavailableError creates a retryable error for an unreachable registry.
func NewRegistryUnavailableError(url string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRegistryUnavailable,
		Message:   "Registry is unavailable",
		Details:   fmt.Sprintf("url: %s, error: %s", url, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCatalogueParseFailedError creates a non-retryable error for an unreadable catalogue.
func NewCatalogueParseFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCatalogueParseFailed,
		Message:   "Dataflow catalogue could not be parsed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStructureLoadFailedError creates a retryable per-dataflow structure error.
func NewStructureLoadFailedError(dataflowID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStructureLoadFailed,
		Message:   "Data structure could not be loaded",
		Details:   fmt.Sprintf("dataflowId: %s, error: %s", dataflowID, err.Error()),
		Retryable: true,
		Metadata:  map[string]interface{}{"dataflowId": dataflowID},
		Timestamp: time.Now().UTC(),
	}
}

// NewInvariantViolationError creates a non-retryable fatal harvest error.
func NewInvariantViolationError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvariantViolation,
		Message:   "Combination invariant violated",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewConfigInvalidError creates a non-retryable configuration error.
func NewConfigInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfigInvalid,
		Message:   "Invalid configuration",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoRecordsError creates a non-retryable error for a harvest without output.
func NewNoRecordsError(source string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNoRecords,
		Message:   "Harvest did not yield any harvestable records",
		Details:   fmt.Sprintf("source: %s", source),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRecordValidationFailedError creates a non-retryable record validation error.
func NewRecordValidationFailedError(identifier, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecordValidationFailed,
		Message:   "Record failed schema validation",
		Details:   fmt.Sprintf("identifier: %s, %s", identifier, details),
		Retryable: false,
		Metadata:  map[string]interface{}{"identifier": identifier},
		Timestamp: time.Now().UTC(),
	}
}

// NewSinkWriteFailedError creates a retryable sink error.
func NewSinkWriteFailedError(sink string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSinkWriteFailed,
		Message:   "Writing records to sink failed",
		Details:   fmt.Sprintf("sink: %s, error: %s", sink, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStateStoreFailedError creates a retryable state store error.
func NewStateStoreFailedError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStateStoreFailed,
		Message:   "Harvest state store error",
		Details:   fmt.Sprintf("op: %s, error: %s", op, err.Error()),
		Retryable: true,
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

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExternalService,
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTimeout,
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeRegistryUnavailable:    "REGISTRY_UNAVAILABLE",
	ErrCodeCatalogueParseFailed:   "CATALOGUE_PARSE_FAILED",
	ErrCodeStructureLoadFailed:    "STRUCTURE_LOAD_FAILED",
	ErrCodeInvariantViolation:     "HARVEST_ABORTED",
	ErrCodeConfigInvalid:          "CONFIG_INVALID",
	ErrCodeNoRecords:              "NO_RECORDS",
	ErrCodeRecordValidationFailed: "RECORD_VALIDATION_FAILED",
	ErrCodeSinkWriteFailed:        "SINK_WRITE_FAILED",
	ErrCodeStateStoreFailed:       "STATE_STORE_FAILED",
	ErrCodeNotificationSendFailed: "NOTIFICATION_SEND_FAILED",
}

// GetRetryCount returns the recommended job retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeRegistryUnavailable,
		ErrCodeSinkWriteFailed,
		ErrCodeStateStoreFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeExternalService:
		return 3

	case ErrCodeTimeout,
		ErrCodeStructureLoadFailed:
		return 2

	default:
		return 0 // Data and contract errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
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
	case strings.Contains(codeStr, "REGISTRY") || strings.Contains(codeStr, "CATALOGUE") || strings.Contains(codeStr, "STRUCTURE"):
		return "REGISTRY"
	case strings.Contains(codeStr, "INVARIANT") || strings.Contains(codeStr, "NO_RECORDS"):
		return "HARVEST"
	case strings.Contains(codeStr, "SINK") || strings.Contains(codeStr, "STATE"):
		return "STORAGE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "CONFIG") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
