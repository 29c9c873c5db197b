package platform

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies upstream failures so callers never have to inspect messages.
type Kind string

const (
	KindUnknown     Kind = "unknown"
	KindAuth        Kind = "auth"
	KindPermission  Kind = "permission"
	KindNotFound    Kind = "not_found"
	KindRateLimited Kind = "rate_limited"
	KindInvalid     Kind = "invalid"
	KindUpstream    Kind = "upstream"
)

// Error is returned by every adapter for upstream failures.
type Error struct {
	Kind   Kind
	Op     string
	Status int
	Code   int
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("platform")
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the structured kind when err carries one. Unstructured
// errors fall back to message inspection: "token" means auth and
// "permission" means permission.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var pe *Error
	if errors.As(err, &pe) && pe.Kind != "" && pe.Kind != KindUnknown {
		return pe.Kind
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "token"):
		return KindAuth
	case strings.Contains(msg, "permission"):
		return KindPermission
	default:
		return KindUnknown
	}
}

// kindForStatus maps an upstream HTTP status to a Kind.
func kindForStatus(status int) Kind {
	switch {
	case status == 401:
		return KindAuth
	case status == 403:
		return KindPermission
	case status == 404:
		return KindNotFound
	case status == 429:
		return KindRateLimited
	case status == 400 || status == 422:
		return KindInvalid
	case status >= 500:
		return KindUpstream
	default:
		return KindUnknown
	}
}
