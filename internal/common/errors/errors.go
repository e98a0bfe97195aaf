// Package errors provides the error taxonomy shared by the lifecycle core, the job
// workers and the HTTP surface, plus BPMN conversion for Camunda.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeRemarksRequired ErrorCode = "REMARKS_REQUIRED"

	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrCodePermissionDenied  ErrorCode = "PERMISSION_DENIED"

	ErrCodeDuplicateApplication  ErrorCode = "DUPLICATE_APPLICATION"
	ErrCodeDuplicateNotification ErrorCode = "DUPLICATE_NOTIFICATION"
	ErrCodeDuplicateScheme       ErrorCode = "DUPLICATE_SCHEME"

	ErrCodeStorage                ErrorCode = "STORAGE_ERROR"
	ErrCodeSearchFailed           ErrorCode = "SEARCH_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeInternal               ErrorCode = "INTERNAL_ERROR"
)

// Kind separates bad input from internal faults.
type Kind string

const (
	KindClient Kind = "client"
	KindServer Kind = "server"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Kind      Kind                   `json:"kind"`
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

// Is matches on code so sentinels below work with errors.Is.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// Sentinels for errors.Is comparisons. Never returned directly.
var (
	ErrValidation            = &StandardError{Code: ErrCodeValidation}
	ErrRemarksRequired       = &StandardError{Code: ErrCodeRemarksRequired}
	ErrNotFound              = &StandardError{Code: ErrCodeNotFound}
	ErrInvalidTransition     = &StandardError{Code: ErrCodeInvalidTransition}
	ErrPermissionDenied      = &StandardError{Code: ErrCodePermissionDenied}
	ErrDuplicateApplication  = &StandardError{Code: ErrCodeDuplicateApplication}
	ErrDuplicateNotification = &StandardError{Code: ErrCodeDuplicateNotification}
	ErrDuplicateScheme       = &StandardError{Code: ErrCodeDuplicateScheme}
	ErrStorage               = &StandardError{Code: ErrCodeStorage}
)

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

func newError(code ErrorCode, kind Kind, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Kind:      kind,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationError reports malformed or missing input.
func NewValidationError(details string) *StandardError {
	return newError(ErrCodeValidation, KindClient, "Invalid input", details, false)
}

// NewRemarksRequiredError reports a rejection without a stated reason.
func NewRemarksRequiredError() *StandardError {
	return newError(ErrCodeRemarksRequired, KindClient, "Remarks are required when rejecting an application", "", false)
}

// NewNotFoundError reports a missing application, scheme or notification.
func NewNotFoundError(resource, id string) *StandardError {
	e := newError(ErrCodeNotFound, KindClient, fmt.Sprintf("%s not found", resource), fmt.Sprintf("id: %s", id), false)
	e.Metadata = map[string]interface{}{"resource": resource, "id": id}
	return e
}

// NewInvalidTransitionError carries the current state and the legal destinations.
func NewInvalidTransitionError(current, requested string, allowed []string) *StandardError {
	msg := fmt.Sprintf("Cannot move application from %s to %s", current, requested)
	if len(allowed) == 0 {
		msg = fmt.Sprintf("Application is %s and cannot change status", current)
	}
	e := newError(ErrCodeInvalidTransition, KindClient, msg,
		fmt.Sprintf("allowed: [%s]", strings.Join(allowed, ", ")), false)
	if allowed == nil {
		allowed = []string{}
	}
	e.Metadata = map[string]interface{}{
		"currentStatus":   current,
		"requestedStatus": requested,
		"allowedStatuses": allowed,
	}
	return e
}

// NewPermissionDeniedError reports a role lacking the action.
func NewPermissionDeniedError(role, action string) *StandardError {
	e := newError(ErrCodePermissionDenied, KindClient, "Permission denied",
		fmt.Sprintf("role %s may not %s", role, action), false)
	e.Metadata = map[string]interface{}{"role": role, "action": action}
	return e
}

// NewDuplicateApplicationError reports an active application for the same user and scheme.
func NewDuplicateApplicationError(userID, schemeID string) *StandardError {
	return newError(ErrCodeDuplicateApplication, KindClient, "You have already applied for this scheme",
		fmt.Sprintf("userId: %s, schemeId: %s", userID, schemeID), false)
}

// NewDuplicateNotificationError reports a suppressed notification inside the dedup window.
func NewDuplicateNotificationError(userID, title string) *StandardError {
	return newError(ErrCodeDuplicateNotification, KindClient, "Duplicate notification suppressed",
		fmt.Sprintf("userId: %s, title: %s", userID, title), false)
}

// NewDuplicateSchemeError reports a scheme name collision.
func NewDuplicateSchemeError(name string) *StandardError {
	return newError(ErrCodeDuplicateScheme, KindClient, "A scheme with this name already exists",
		fmt.Sprintf("name: %s", name), false)
}

// NewStorageError wraps a persistence failure.
func NewStorageError(op string, err error) *StandardError {
	e := newError(ErrCodeStorage, KindServer, "Storage unavailable", fmt.Sprintf("%s: %v", op, err), true)
	e.cause = err
	return e
}

// NewSearchFailedError wraps a search backend failure.
func NewSearchFailedError(err error) *StandardError {
	e := newError(ErrCodeSearchFailed, KindServer, "Search backend error", err.Error(), true)
	e.cause = err
	return e
}

// NewNotificationSendFailedError wraps an email or SMS delivery failure.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	e := newError(ErrCodeNotificationSendFailed, KindServer, "Notification delivery failed",
		fmt.Sprintf("channel: %s, error: %v", channel, err), true)
	e.cause = err
	return e
}

// NewInternalError wraps anything unexpected.
func NewInternalError(err error) *StandardError {
	e := newError(ErrCodeInternal, KindServer, "Unexpected error", err.Error(), false)
	e.cause = err
	return e
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeStorage, ErrCodeNotificationSendFailed:
		return 3
	case ErrCodeSearchFailed:
		return 2
	default:
		return 0 // business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"errorKind":         string(stdErr.Kind),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// As extracts a StandardError from an error chain.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// Normalize always yields a StandardError, wrapping unknown errors as internal.
func Normalize(err error) *StandardError {
	if stdErr, ok := As(err); ok {
		return stdErr
	}
	return NewInternalError(err)
}

// CodeOf returns the code of err, or INTERNAL_ERROR for foreign errors.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	return Normalize(err).Code
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	stdErr, ok := As(err)
	return ok && stdErr.Code == code
}

// IsClientError reports whether err was caused by the caller's input.
func IsClientError(err error) bool {
	stdErr, ok := As(err)
	return ok && stdErr.Kind == KindClient
}

// IsDuplicate covers every duplicate code.
func IsDuplicate(err error) bool {
	return GetErrorCategory(CodeOf(err)) == "DUPLICATE"
}

// GetErrorCategory returns the taxonomy bucket of the error code.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeValidation, ErrCodeRemarksRequired:
		return "VALIDATION"
	case ErrCodeNotFound:
		return "NOT_FOUND"
	case ErrCodeInvalidTransition:
		return "TRANSITION"
	case ErrCodePermissionDenied:
		return "AUTHORIZATION"
	case ErrCodeDuplicateApplication, ErrCodeDuplicateNotification, ErrCodeDuplicateScheme:
		return "DUPLICATE"
	case ErrCodeStorage, ErrCodeSearchFailed:
		return "STORAGE"
	case ErrCodeNotificationSendFailed:
		return "NOTIFICATION"
	default:
		return "OTHER"
	}
}

// HTTPStatus maps an error onto a response status for the HTTP layer.
func HTTPStatus(err error) int {
	switch GetErrorCategory(CodeOf(err)) {
	case "VALIDATION":
		return http.StatusBadRequest
	case "NOT_FOUND":
		return http.StatusNotFound
	case "TRANSITION", "DUPLICATE":
		return http.StatusConflict
	case "AUTHORIZATION":
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// TransitionDetails returns the state context of an INVALID_TRANSITION error.
func TransitionDetails(err error) (current string, allowed []string, ok bool) {
	stdErr, found := As(err)
	if !found || stdErr.Code != ErrCodeInvalidTransition {
		return "", nil, false
	}
	current, _ = stdErr.Metadata["currentStatus"].(string)
	allowed, _ = stdErr.Metadata["allowedStatuses"].([]string)
	return current, allowed, true
}
