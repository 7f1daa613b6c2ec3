// Package tools defines the Genkit tools the support agent can call:
// structured directory lookups, knowledge base search, web search, and
// ticket operations.
//
// Design principles:
//   - Dependency injection: stores passed as parameters, captured in closures
//   - Tool handlers return structured Results, never raw errors, so the
//     model can read failures and correct its next call
package tools

// Status indicates whether a tool call succeeded.
type Status string

const (
	// StatusSuccess indicates the tool completed normally.
	StatusSuccess Status = "success"
	// StatusError indicates the tool failed; Error holds details.
	StatusError Status = "error"
)

// Error codes for tool failures.
const (
	// ErrCodeValidation indicates bad input from the model.
	ErrCodeValidation = "ValidationError"
	// ErrCodeExecution indicates the operation itself failed.
	ErrCodeExecution = "ExecutionError"
	// ErrCodeNetwork indicates an outbound request failed.
	ErrCodeNetwork = "NetworkError"
	// ErrCodeNotFound indicates the requested entity does not exist.
	ErrCodeNotFound = "NotFound"
)

// Error is a structured failure the model can understand and correct.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Result is the uniform output envelope for all tools.
type Result struct {
	Status  Status         `json:"status"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Error   *Error         `json:"error,omitempty"`
}

// errorResult builds a failed Result.
func errorResult(code, message string) Result {
	return Result{
		Status: StatusError,
		Error:  &Error{Code: code, Message: message},
	}
}
