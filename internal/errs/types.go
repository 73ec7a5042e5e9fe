package errs

import "strings"

// FieldError represents a field-level validation error.
// Example:
//
//	{ "field": "iban_number", "error": "is required" }
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// HTTPError is the main custom error type for API responses.
//
// Fields:
//   - Code: machine-friendly error code (e.g. "IBAN_NOT_FOUND").
//   - Message: human-friendly message, safe to show to clients.
//   - Status: HTTP status code.
//   - Override: the message was written for end users. Without it a 5xx
//     message is replaced by the status text before it reaches clients.
//   - Errors: list of per-field errors (validation).
type HTTPError struct {
	Code     string       `json:"code"`
	Message  string       `json:"message"`
	Status   int          `json:"status"`
	Override bool         `json:"override"`
	Errors   []FieldError `json:"errors"`

	// cause is the underlying error. It is logged, never sent to clients.
	cause error
}

// Error makes *HTTPError satisfy the built-in `error` interface.
func (e *HTTPError) Error() string {
	return e.Message
}

// Unwrap exposes the cause to errors.Is / errors.As.
func (e *HTTPError) Unwrap() error {
	return e.cause
}

// Is reports whether target is also an *HTTPError, so
// errors.Is(err, &HTTPError{}) tells typed errors apart from raw ones.
func (e *HTTPError) Is(target error) bool {
	_, ok := target.(*HTTPError)
	return ok
}

// WithCause returns a copy of this HTTPError carrying err as its cause.
func (e *HTTPError) WithCause(err error) *HTTPError {
	clone := *e
	clone.cause = err
	return &clone
}

// MakeUpperCaseWithUnderscores converts a string into UPPER_CASE_WITH_UNDERSCORES.
//
//	"Bad Request" -> "BAD_REQUEST"
func MakeUpperCaseWithUnderscores(str string) string {
	return strings.ToUpper(strings.ReplaceAll(str, " ", "_"))
}
