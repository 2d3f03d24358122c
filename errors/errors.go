package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the unified error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// ExitCode returns the CLI exit status for this error.
func (e *AppError) ExitCode() int { return ExitCodeFor(e.Code) }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// --- Common Error Constructors ---

// ToolNotFound creates an AppError for an executable missing from PATH.
func ToolNotFound(tool string) *AppError {
	return &AppError{
		Code: ErrCodeToolNotFound, Message: fmt.Sprintf("%s not found in PATH", tool),
		Details: map[string]any{"tool": tool},
	}
}

// ToolFailed creates an AppError for a tool that exited with a non-zero status.
func ToolFailed(tool string, exitCode int) *AppError {
	return &AppError{
		Code: ErrCodeToolFailed, Message: fmt.Sprintf("%s exited with status %d", tool, exitCode),
		Details: map[string]any{"tool": tool, "exit_code": exitCode},
	}
}

// Canceled creates an AppError for an operation stopped by its context.
func Canceled(operation string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeCanceled, Message: fmt.Sprintf("%s canceled", operation),
		Details: map[string]any{"operation": operation}, Cause: cause,
	}
}

// Filesystem creates an AppError for a failed filesystem operation.
func Filesystem(op, path string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeFilesystem, Message: fmt.Sprintf("%s %s failed", op, path),
		Details: map[string]any{"operation": op, "path": path}, Cause: cause,
	}
}

// NotFound creates an AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	msg := fmt.Sprintf("%s not found", resource)
	if id != "" {
		msg = fmt.Sprintf("%s %q not found", resource, id)
	}
	return &AppError{Code: ErrCodeNotFound, Message: msg, Details: details}
}

// InvalidInput creates an AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("invalid input: %s", reason),
		Details: details,
	}
}

// Validation creates an AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidInput, Message: message}
}

// MissingField creates an AppError for a missing required field.
func MissingField(field string) *AppError {
	return &AppError{
		Code: ErrCodeMissingField, Message: fmt.Sprintf("missing required field: %s", field),
		Details: map[string]any{"field": field},
	}
}

// Plan creates an AppError for a project that cannot be planned into a graph.
func Plan(reason string) *AppError {
	return &AppError{Code: ErrCodePlan, Message: reason}
}

// Internal creates an AppError for an unexpected internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "an unexpected error occurred",
		Cause: cause,
	}
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is an AppError carrying code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// Wrap converts any error to an AppError. AppErrors pass through unchanged,
// other errors become internal errors. Returns nil for nil.
func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return Internal(err)
}
