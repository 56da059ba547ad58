package force

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// Classify maps an outcome to nil (2xx) or an *Error. It performs no I/O and
// returns the same result for the same outcome.
func Classify(out *Outcome) error {
	if out == nil || out.StatusCode == 0 {
		return &Error{
			Kind:    KindResponseUnsuccessful,
			Message: "invalid response",
		}
	}

	switch code := out.StatusCode; {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized:
		return &Error{Kind: KindAuthenticationNeeded, StatusCode: code}
	case code == http.StatusForbidden:
		return &Error{Kind: KindFunctionalityNotEnabled, StatusCode: code}
	default:
		return &Error{
			Kind:           KindResponseUnsuccessful,
			StatusCode:     code,
			Message:        fmt.Sprintf("HTTP response status code %d", code),
			DisplayMessage: displayMessage(out.Body),
		}
	}
}

// ClassifyTransportError maps a dispatch error to the taxonomy. Errors that
// are already classified pass through, so a transport can report an
// authentication failure directly.
func ClassifyTransportError(err error) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}
	return requestFailed(err)
}

// displayMessage extracts the API's error text. The API answers with either
// [{"errorCode": "...", "message": "..."}] or {"message": "..."}.
func displayMessage(body []byte) string {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return ""
	}
	parsed := gjson.ParseBytes(body)
	if parsed.IsArray() {
		return parsed.Get("0.message").String()
	}
	if msg := parsed.Get("message"); msg.Exists() {
		return msg.String()
	}
	return parsed.Get("error_description").String()
}
