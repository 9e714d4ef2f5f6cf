// Package models defines the shared API response envelope for Concierge.
package models

// APIStatus values for the response envelope.
const (
	APIStatusOK    = "ok"
	APIStatusError = "error"
)

// APIResponse is the standard envelope for HTTP endpoints.
type APIResponse struct {
	Status    string      `json:"status"`               // status of the API response
	Message   string      `json:"message,omitempty"`    // optional message for error responses or additional info
	Result    interface{} `json:"result,omitempty"`     // optional result data for successful responses
	RequestID string      `json:"request_id,omitempty"` // correlation id, set on 5xx responses
	Timestamp string      `json:"timestamp,omitempty"`  // RFC3339 timestamp, set on 5xx responses
}

// Success creates a successful API response with result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: APIStatusOK, Result: result}
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: APIStatusOK, Message: message, Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: APIStatusError, Message: message}
}

// ErrorWithExample creates an error API response carrying a machine-readable
// example payload showing the expected request shape.
func ErrorWithExample(message string, example interface{}) APIResponse {
	return APIResponse{Status: APIStatusError, Message: message, Result: example}
}
