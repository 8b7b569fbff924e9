package core

// Error is a coded runtime error. Code is stable and machine readable,
// Message is meant for logs and API clients.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Errors
var (
	ErrNoReplyAddress = &Error{Code: "NO_REPLY_ADDRESS", Message: "No reply address available"}
	ErrTimeout        = &Error{Code: "TIMEOUT", Message: "Request timeout"}
	ErrClosed         = &Error{Code: "CLOSED", Message: "event bus is closed"}
)

// NewError creates a coded error
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}
