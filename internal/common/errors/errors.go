// Package errors provides the error taxonomy shared by the meme pipeline and
// its conversion to BPMN errors for the Camunda workers.
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
	ErrCodeSchema             ErrorCode = "SCHEMA_ERROR"
	ErrCodeTemplateNotFound   ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeLineCountMismatch  ErrorCode = "LINE_COUNT_MISMATCH"
	ErrCodeUpstream           ErrorCode = "UPSTREAM_ERROR"
	ErrCodeGuardrailRejection ErrorCode = "GUARDRAIL_REJECTION"
	ErrCodePersistenceFailed  ErrorCode = "PERSISTENCE_FAILED"
	ErrCodeCatalogLoadFailed  ErrorCode = "CATALOG_LOAD_FAILED"
	ErrCodeInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
)

// Upstream steps reported in StandardError.Metadata["step"].
const (
	StepImageSearch       = "image_search"
	StepRenderTemplate    = "render_template"
	StepRenderCustom      = "render_custom"
	StepStickerConversion = "sticker_conversion"
	StepDownload          = "download"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the collaborator error, if any.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// Step returns the upstream step recorded on the error, or "".
func (e *StandardError) Step() string {
	if step, ok := e.Metadata["step"].(string); ok {
		return step
	}
	return ""
}

// Fields returns the offending fields recorded on a schema error.
func (e *StandardError) Fields() []string {
	if fields, ok := e.Metadata["fields"].([]string); ok {
		return fields
	}
	return nil
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

// NewSchemaError reports a structurally invalid decision record.
func NewSchemaError(details string, fields ...string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSchema,
		Message:   "Decision record is structurally invalid",
		Details:   details,
		Retryable: false,
		Metadata:  map[string]interface{}{"fields": fields},
		Timestamp: time.Now().UTC(),
	}
}

// NewTemplateNotFoundError reports a template key absent from the catalog.
func NewTemplateNotFoundError(key string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTemplateNotFound,
		Message:   "Template not found in catalog",
		Details:   fmt.Sprintf("template_key: %s", key),
		Retryable: false,
		Metadata:  map[string]interface{}{"template_key": key},
		Timestamp: time.Now().UTC(),
	}
}

// NewLineCountMismatchError describes a recoverable text cardinality mismatch.
func NewLineCountMismatchError(key string, expected, got int) *StandardError {
	return &StandardError{
		Code:      ErrCodeLineCountMismatch,
		Message:   "Text line count does not match template",
		Details:   fmt.Sprintf("template_key: %s, expected: %d, got: %d", key, expected, got),
		Retryable: false,
		Metadata: map[string]interface{}{
			"template_key": key,
			"expected":     expected,
			"got":          got,
		},
		Timestamp: time.Now().UTC(),
	}
}

// NewUpstreamError wraps a failed collaborator call, naming the step.
func NewUpstreamError(step string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstream,
		Message:   fmt.Sprintf("Upstream step '%s' failed", step),
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"step": step},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewGuardrailRejectionError records a content-policy refusal.
func NewGuardrailRejectionError(category string) *StandardError {
	return &StandardError{
		Code:      ErrCodeGuardrailRejection,
		Message:   "Request rejected by content policy",
		Details:   fmt.Sprintf("category: %s", category),
		Retryable: false,
		Metadata:  map[string]interface{}{"category": category},
		Timestamp: time.Now().UTC(),
	}
}

// NewPersistenceFailedError wraps a failed local save. Never fatal.
func NewPersistenceFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePersistenceFailed,
		Message:   "Saving the meme locally failed",
		Details:   err.Error(),
		Retryable: false,
		Metadata:  map[string]interface{}{"step": StepDownload},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewCatalogLoadFailedError(source string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCatalogLoadFailed,
		Message:   fmt.Sprintf("Loading template catalog from %s failed", source),
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"source": source},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewInvalidInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidInput,
		Message:   "Invalid tool input",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeSchema:             "MEME_SCHEMA_ERROR",
	ErrCodeTemplateNotFound:   "MEME_TEMPLATE_NOT_FOUND",
	ErrCodeUpstream:           "MEME_UPSTREAM_ERROR",
	ErrCodeGuardrailRejection: "MEME_GUARDRAIL_REJECTION",
	ErrCodeCatalogLoadFailed:  "MEME_CATALOG_LOAD_FAILED",
	ErrCodeInvalidInput:       "MEME_INVALID_INPUT",
}

// GetRetryCount returns the engine-side retry count for a code. The pipeline
// fails fast, so nothing is retried by the workers themselves.
func GetRetryCount(code ErrorCode) int {
	return 0
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	if step := stdErr.Step(); step != "" {
		vars["errorStep"] = step
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        GetRetryCount(stdErr.Code),
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandard returns the StandardError in err's chain, if any.
func AsStandard(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandard(err)
	return ok && stdErr.Code == code
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	if stdErr, ok := AsStandard(err); ok {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "SCHEMA") || strings.Contains(codeStr, "INPUT") || strings.Contains(codeStr, "LINE_COUNT"):
		return "VALIDATION"
	case strings.Contains(codeStr, "TEMPLATE") || strings.Contains(codeStr, "CATALOG"):
		return "CATALOG"
	case strings.Contains(codeStr, "UPSTREAM") || strings.Contains(codeStr, "PERSISTENCE"):
		return "EXTERNAL"
	case strings.Contains(codeStr, "GUARDRAIL"):
		return "POLICY"
	default:
		return "OTHER"
	}
}
