package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Toolchain errors
const (
	// ErrCodeToolNotFound indicates the external binary is not on the search path.
	ErrCodeToolNotFound ErrorCode = "TOOL_NOT_FOUND"
	// ErrCodeToolFailed indicates the external binary ran but exited non-zero.
	ErrCodeToolFailed ErrorCode = "TOOL_FAILED"
	// ErrCodeCanceled indicates the invocation was stopped by its context.
	ErrCodeCanceled ErrorCode = "CANCELED"
)

// Filesystem errors
const (
	// ErrCodeFilesystem indicates a create, copy or remove operation failed.
	ErrCodeFilesystem ErrorCode = "FILESYSTEM_ERROR"
	// ErrCodeNotFound indicates a declared file or target does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// Validation errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
	// ErrCodePlan indicates the project cannot be turned into a build graph.
	ErrCodePlan ErrorCode = "PLAN_ERROR"
)

// Internal errors
const (
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// exitCodes maps error codes to process exit statuses for the CLI.
var exitCodes = map[ErrorCode]int{
	ErrCodeToolFailed:   1,
	ErrCodeToolNotFound: 3,
	ErrCodeFilesystem:   4,
	ErrCodeNotFound:     4,
	ErrCodeInvalidInput: 2,
	ErrCodeMissingField: 2,
	ErrCodePlan:         2,
	ErrCodeCanceled:     130,
	ErrCodeInternal:     70,
}

// ExitCodeFor returns the process exit status for an error code.
func ExitCodeFor(code ErrorCode) int {
	if c, ok := exitCodes[code]; ok {
		return c
	}
	return 1
}
