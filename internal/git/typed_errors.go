package git

import (
	"fmt"
	"strings"
)

// Base typed git errors enabling structured classification without string parsing upstream.
type AuthError struct {
	Op, URL string
	Err     error
}

func (e *AuthError) Error() string { return fmt.Sprintf("%s auth error for %s: %v", e.Op, e.URL, e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

type NotFoundError struct {
	Op, URL string
	Err     error
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s not found %s: %v", e.Op, e.URL, e.Err) }
func (e *NotFoundError) Unwrap() error { return e.Err }

type UnsupportedProtocolError struct {
	Op, URL string
	Err     error
}

func (e *UnsupportedProtocolError) Error() string {
	return fmt.Sprintf("%s unsupported protocol %s: %v", e.Op, e.URL, e.Err)
}
func (e *UnsupportedProtocolError) Unwrap() error { return e.Err }

// NonFastForwardError marks a push rejected because the remote moved; it is
// the retryable case the publisher rebases around.
type NonFastForwardError struct {
	Op, URL string
	Err     error
}

func (e *NonFastForwardError) Error() string {
	return fmt.Sprintf("%s rejected (non-fast-forward) %s: %v", e.Op, e.URL, e.Err)
}
func (e *NonFastForwardError) Unwrap() error { return e.Err }

// classifyFetchError wraps fetch failures into typed variants when possible.
func classifyFetchError(url string, err error) error {
	if err == nil {
		return nil
	}
	l := strings.ToLower(err.Error())
	switch {
	case strings.Contains(l, "auth"):
		return &AuthError{Op: "fetch", URL: url, Err: err}
	case strings.Contains(l, "not found") || strings.Contains(l, "repository does not exist"):
		return &NotFoundError{Op: "fetch", URL: url, Err: err}
	case strings.Contains(l, "unsupported protocol"):
		return &UnsupportedProtocolError{Op: "fetch", URL: url, Err: err}
	default:
		return fmt.Errorf("fetch %s: %w", url, err)
	}
}

// classifyPushError wraps push failures into typed variants when possible.
func classifyPushError(url string, err error) error {
	if err == nil {
		return nil
	}
	l := strings.ToLower(err.Error())
	switch {
	case strings.Contains(l, "auth") || strings.Contains(l, "denied") || strings.Contains(l, "permission"):
		return &AuthError{Op: "push", URL: url, Err: err}
	case strings.Contains(l, "non-fast-forward") || strings.Contains(l, "rejected") || strings.Contains(l, "fetch first"):
		return &NonFastForwardError{Op: "push", URL: url, Err: err}
	case strings.Contains(l, "not found") || strings.Contains(l, "repository does not exist"):
		return &NotFoundError{Op: "push", URL: url, Err: err}
	default:
		return fmt.Errorf("push %s: %w", url, err)
	}
}
