package mcp

import "fmt"

// ErrorCategory classifies tool errors so that MCP clients can make
// programmatic decisions (retry, fix input, escalate) without parsing
// error message text.
type ErrorCategory string

const (
	// CategoryValidation indicates the caller provided invalid input:
	// a missing file key, a blank download directory, a negative
	// depth. The caller should fix the arguments and retry.
	CategoryValidation ErrorCategory = "validation"

	// CategoryNotFound indicates a referenced document or node does
	// not exist upstream. Retrying with the same identifiers will not
	// help.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryForbidden indicates the configured access token is
	// missing, invalid, or lacks access to the requested file.
	CategoryForbidden ErrorCategory = "forbidden"

	// CategoryTransient indicates a temporary upstream failure:
	// network error, timeout, rate limit, server trouble. The caller
	// should back off and retry.
	CategoryTransient ErrorCategory = "transient"

	// CategoryInternal indicates an unexpected failure: bugs, I/O
	// errors, unparseable upstream data. The caller should report the
	// error rather than retry.
	CategoryInternal ErrorCategory = "internal"
)

// ToolError is a categorized error returned by tool handlers. The
// server inspects the Category to produce structured error metadata
// alongside the human-readable error text in the tool result.
//
// ToolError wraps an inner error, preserving the full chain for
// debugging. Use the category constructors (Validation, NotFound, ...)
// rather than constructing ToolError directly.
type ToolError struct {
	Category ErrorCategory
	Err      error
}

// Error returns the underlying error message. The category is not part
// of the text; it travels separately in the errorInfo field.
func (e *ToolError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error so errors.Is and errors.As can
// walk the chain through the ToolError wrapper.
func (e *ToolError) Unwrap() error { return e.Err }

// Validation creates a validation error: the caller provided bad input.
func Validation(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound creates a not-found error: a referenced document or node
// does not exist.
func NotFound(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

// Forbidden creates a forbidden error: the access token was rejected.
func Forbidden(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryForbidden, Err: fmt.Errorf(format, args...)}
}

// Transient creates a transient error: a temporary failure that may
// succeed on retry.
func Transient(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryTransient, Err: fmt.Errorf(format, args...)}
}

// Internal creates an internal error: an unexpected failure or bug.
func Internal(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}
