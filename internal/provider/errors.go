package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorClass partitions provider failures into the classes the job
// processor cares about. The class is assigned here, at the client
// boundary, so callers never pattern-match error message strings.
type ErrorClass int

const (
	// ClassUnknown is an unclassified failure. Treated as terminal.
	ClassUnknown ErrorClass = iota
	// ClassRateLimit is a 429/quota failure. The only retriable class.
	ClassRateLimit
	// ClassAuth is a 401/403 credential failure.
	ClassAuth
	// ClassInvalid is a 4xx request problem that will not succeed on retry.
	ClassInvalid
	// ClassServer is a 5xx backend failure.
	ClassServer
	// ClassTransport is a network-level failure (refused, reset, DNS).
	ClassTransport
)

func (c ErrorClass) String() string {
	switch c {
	case ClassRateLimit:
		return "rate_limit"
	case ClassAuth:
		return "auth"
	case ClassInvalid:
		return "invalid_request"
	case ClassServer:
		return "server"
	case ClassTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Error wraps a backend failure with its class and the operation that
// produced it.
type Error struct {
	Class ErrorClass
	Op    string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider %s failed (%s): %v", e.Op, e.Class, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ClassOf extracts the error class from err, or ClassUnknown when err is
// not a provider error.
func ClassOf(err error) ErrorClass {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Class
	}
	return ClassUnknown
}

// IsRateLimit reports whether err is a rate-limit-class provider error,
// the only class the job processor retries.
func IsRateLimit(err error) bool {
	return ClassOf(err) == ClassRateLimit
}

// classifyStatus maps an HTTP status code to an error class.
func classifyStatus(code int) ErrorClass {
	switch {
	case code == 429:
		return ClassRateLimit
	case code == 401 || code == 403:
		return ClassAuth
	case code >= 400 && code < 500:
		return ClassInvalid
	case code >= 500:
		return ClassServer
	default:
		return ClassUnknown
	}
}

// classifyMessage classifies failures that never reached HTTP status
// handling: SDK transport errors surface as plain errors, so a bounded
// amount of message inspection remains at this boundary (and only here).
func classifyMessage(err error) ErrorClass {
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTransport
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "429") || strings.Contains(msg, "quota"):
		return ClassRateLimit
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "temporary failure"):
		return ClassTransport
	default:
		return ClassUnknown
	}
}
