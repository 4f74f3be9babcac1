package email

import "fmt"

// EmailError represents an email-specific error with a code and message.
// Codes mirror the domain error codes so the handler layer can map them.
type EmailError struct {
	Code    string
	Message string
	Err     error
}

func (e *EmailError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *EmailError) Unwrap() error {
	return e.Err
}

func (e *EmailError) Is(target error) bool {
	t, ok := target.(*EmailError)
	return ok && t.Code == e.Code && t.Message == e.Message
}

var (
	// ErrInvalidFromAddress is returned when the from address is invalid.
	ErrInvalidFromAddress = &EmailError{Code: "invalid", Message: "Invalid from email address"}

	// ErrInvalidToAddress is returned when the to address is invalid.
	ErrInvalidToAddress = &EmailError{Code: "invalid", Message: "Invalid to email address"}
)

func invalidAddress(base *EmailError, err error) error {
	return &EmailError{Code: base.Code, Message: base.Message, Err: err}
}
