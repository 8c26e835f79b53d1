package cloudflare

import (
	"errors"
	"strconv"
	"strings"
)

// Each error returned by [Client.FetchSnapshot] wraps exactly one of these.
var (
	ErrAuth      = errors.New("authentication failed")
	ErrNotFound  = errors.New("zone not found")
	ErrRateLimit = errors.New("rate limited")
	ErrTransient = errors.New("temporarily unavailable")
	ErrSchema    = errors.New("unexpected response")
)

// Error describes a failed analytics request for a zone.
type Error struct {
	Zone     string
	Status   int      // HTTP status, or 0 if no response was received
	Err      error    // one of the sentinel errors above
	Messages []string // errors[].message of the response body, if any
	Cause    error    // underlying transport or decode error, if any
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString("cloudflare")
	if e.Zone != "" {
		sb.WriteString(" zone ")
		sb.WriteString(e.Zone)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Err.Error())
	if e.Status != 0 {
		sb.WriteString(" (status ")
		sb.WriteString(strconv.Itoa(e.Status))
		sb.WriteByte(')')
	}
	if len(e.Messages) > 0 {
		sb.WriteString(": ")
		sb.WriteString(strings.Join(e.Messages, "; "))
	} else if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// statusErr returns the sentinel error for an unsuccessful HTTP status.
func statusErr(code int) error {
	switch {
	case code == 401, code == 403:
		return ErrAuth
	case code == 404, code == 400:
		return ErrNotFound
	case code == 429:
		return ErrRateLimit
	}
	return ErrTransient
}
