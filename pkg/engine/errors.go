package engine

import "fmt"

// Error codes surfaced to callers.
const (
	CodeDataSourceUnavailable = "DATA_SOURCE_UNAVAILABLE"
	CodeInsufficientData      = "INSUFFICIENT_DATA"
	CodeValidationFailed      = "VALIDATION_FAILED"
	CodeInvalidDistribution   = "INVALID_DISTRIBUTION"
	CodeNumericalError        = "NUMERICAL_ERROR"
	CodeCancelled             = "CANCELLED"
	CodeToolError             = "TOOL_ERROR"
)

// Error is the structured error every failed Run reports through its
// Result, never as a bare Go error.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func dataSourceUnavailable(err error) *Error {
	return &Error{Code: CodeDataSourceUnavailable, Message: err.Error()}
}

func insufficientData(message string) *Error {
	return &Error{Code: CodeInsufficientData, Message: message}
}

func validationFailed(message string, issues any) *Error {
	return &Error{Code: CodeValidationFailed, Message: message, Details: issues}
}

func invalidDistribution(err error) *Error {
	return &Error{Code: CodeInvalidDistribution, Message: err.Error()}
}

func numericalError(err error) *Error {
	return &Error{Code: CodeNumericalError, Message: err.Error()}
}

func cancelled() *Error {
	return &Error{Code: CodeCancelled, Message: "run cancelled"}
}

func toolError(err error) *Error {
	return &Error{Code: CodeToolError, Message: err.Error()}
}
