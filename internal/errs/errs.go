// Package errs defines the error taxonomy shared by every layer of the
// automation bridge. Each error type carries a semantic Code so callers on
// the far side of the tool boundary can branch without parsing messages.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Code is a semantic error code.
type Code string

const (
	CodeValidation      Code = "VALIDATION_ERROR"
	CodeSafetyViolation Code = "SAFETY_VIOLATION"
	CodeNotFound        Code = "NOT_FOUND"
	CodeTransport       Code = "TRANSPORT_ERROR"
	CodeDecode          Code = "DECODE_ERROR"
	CodeInternal        Code = "INTERNAL_ERROR"
)

// maxRawLength bounds the raw output a DecodeError keeps for diagnosis.
const maxRawLength = 512

// ValidationError reports malformed or contradictory parameters. It is raised
// before any external call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Reason)
}

// Validation builds a ValidationError.
func Validation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// SafetyViolationError reports a mutation attempted against a data store that
// the safety guard could not verify.
type SafetyViolationError struct {
	Expected string
	Actual   string
	Reason   string
}

func (e *SafetyViolationError) Error() string {
	if e.Actual != "" {
		return fmt.Sprintf("safety violation: %s (expected database %q, found %q)", e.Reason, e.Expected, e.Actual)
	}
	return "safety violation: " + e.Reason
}

// NotFoundError reports an identifier that does not resolve in OmniFocus.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	kind := e.Kind
	if kind == "" {
		kind = "item"
	}
	return fmt.Sprintf("%s not found: %s", kind, e.ID)
}

// NotFound builds a NotFoundError.
func NotFound(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// TransportError reports a subprocess failure or timeout. Stderr is kept
// verbatim.
type TransportError struct {
	Message  string
	Stderr   string
	ExitCode int
	TimedOut bool
}

func (e *TransportError) Error() string {
	if e.Stderr == "" {
		return "osascript: " + e.Message
	}
	return fmt.Sprintf("osascript: %s: %s", e.Message, strings.TrimRight(e.Stderr, "\n"))
}

// DecodeError reports output that could not be parsed. Raw holds the
// truncated output.
type DecodeError struct {
	Raw string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode script output: %v (raw: %q)", e.Err, e.Raw)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode builds a DecodeError, truncating raw.
func Decode(raw string, err error) *DecodeError {
	return &DecodeError{Raw: Truncate(raw, maxRawLength), Err: err}
}

// Truncate shortens s to at most limit bytes without splitting a rune.
func Truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// CodeOf returns the semantic code for err.
func CodeOf(err error) Code {
	var validationErr *ValidationError
	var safetyErr *SafetyViolationError
	var notFoundErr *NotFoundError
	var transportErr *TransportError
	var decodeErr *DecodeError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &validationErr):
		return CodeValidation
	case errors.As(err, &safetyErr):
		return CodeSafetyViolation
	case errors.As(err, &notFoundErr):
		return CodeNotFound
	case errors.As(err, &transportErr):
		return CodeTransport
	case errors.As(err, &decodeErr):
		return CodeDecode
	default:
		return CodeInternal
	}
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr)
}
