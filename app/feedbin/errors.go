package feedbin

import (
	"fmt"
	"strings"
)

// AuthError indicates the API rejected the configured credentials.
type AuthError struct{}

func (e *AuthError) Error() string {
	return "feedbin authentication failed"
}

// APIError is a non-200 response from the Feedbin API, decoded from
// the error body when one is present.
type APIError struct {
	Message    string
	StatusCode int
	Errors     []string
	Method     string
	URL        string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" && len(e.Errors) > 0 {
		msg = strings.Join(e.Errors, "; ")
	}
	if msg == "" {
		msg = "request failed"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Feedbin API Error: %s\n", msg)
	fmt.Fprintf(&b, "HTTP %s: %s\n", orUnknown(e.Method, "[unknown method]"), orUnknown(e.URL, "[URL unknown]"))
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, "HTTP Status: %d", e.StatusCode)
	} else {
		b.WriteString("HTTP Status: [unknown]")
	}
	if len(e.Errors) > 0 {
		fmt.Fprintf(&b, "\nError Detail:\n  %s", strings.Join(e.Errors, "\n  "))
	}
	return b.String()
}

func orUnknown(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
