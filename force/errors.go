package force

import (
	"errors"
	"fmt"
)

// Kind identifies one variant of the closed error taxonomy returned by the
// fetch pipeline.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidURL
	KindAuthenticationNeeded
	KindFunctionalityNotEnabled
	KindResponseUnsuccessful
	KindRequestFailed
	KindDecodingFailed
)

// String returns the name of the kind
func (k Kind) String() string {
	switch k {
	case KindInvalidURL:
		return "InvalidURL"
	case KindAuthenticationNeeded:
		return "AuthenticationNeeded"
	case KindFunctionalityNotEnabled:
		return "FunctionalityNotEnabled"
	case KindResponseUnsuccessful:
		return "ResponseUnsuccessful"
	case KindRequestFailed:
		return "RequestFailed"
	case KindDecodingFailed:
		return "DecodingFailed"
	default:
		return "Unknown"
	}
}

// Sentinels for errors.Is checks. They match any *Error of the same Kind.
var (
	ErrInvalidURL              = &Error{Kind: KindInvalidURL}
	ErrAuthenticationNeeded    = &Error{Kind: KindAuthenticationNeeded}
	ErrFunctionalityNotEnabled = &Error{Kind: KindFunctionalityNotEnabled}
	ErrResponseUnsuccessful    = &Error{Kind: KindResponseUnsuccessful}
	ErrRequestFailed           = &Error{Kind: KindRequestFailed}
	ErrDecodingFailed          = &Error{Kind: KindDecodingFailed}
)

// Error is the single error type surfaced by the fetch pipeline.
type Error struct {
	Kind Kind
	// StatusCode is set for errors derived from an HTTP response.
	StatusCode int
	// Message is the technical description.
	Message string
	// DisplayMessage is the API-provided text suitable for end users, if any.
	DisplayMessage string
	Err            error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Description()
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Description returns a human-readable description of the error without the
// wrapped cause.
func (e *Error) Description() string {
	switch e.Kind {
	case KindInvalidURL:
		if e.Message != "" {
			return "invalid URL: " + e.Message
		}
		return "invalid URL"
	case KindAuthenticationNeeded:
		return "authentication needed"
	case KindFunctionalityNotEnabled:
		return "functionality is not enabled"
	case KindResponseUnsuccessful:
		if e.DisplayMessage != "" {
			return fmt.Sprintf("response unsuccessful: %s (%s)", e.Message, e.DisplayMessage)
		}
		return "response unsuccessful: " + e.Message
	case KindRequestFailed:
		return "request failed: " + e.Message
	case KindDecodingFailed:
		if e.Message != "" {
			return "decoding failed: " + e.Message
		}
		return "decoding failed"
	default:
		return "unknown error"
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

func invalidURL(message string, err error) *Error {
	return &Error{Kind: KindInvalidURL, Message: message, Err: err}
}

func decodingFailed(message string, err error) *Error {
	return &Error{Kind: KindDecodingFailed, Message: message, Err: err}
}

func requestFailed(err error) *Error {
	msg := "transport error"
	if err != nil {
		msg = err.Error()
	}
	return &Error{Kind: KindRequestFailed, Message: msg, Err: err}
}
