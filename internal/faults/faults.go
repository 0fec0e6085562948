// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package faults defines the error taxonomy shared across ingestion and
// retrieval. Each layer boundary converts internal errors to the narrowest
// relevant kind so callers can choose between fail-fast and retry.
package faults

import (
	"errors"
	"fmt"
	"regexp"
)

// Kind classifies an error for retry and reporting decisions.
type Kind int

const (
	// KindValidation marks malformed input (bad DOI, out-of-range
	// parameter). Never retried.
	KindValidation Kind = iota

	// KindTransient marks recoverable service failures (5xx, timeout,
	// storage lock contention). Retried with bounded backoff.
	KindTransient

	// KindPermanent marks non-recoverable service failures (4xx,
	// malformed response body). Never retried.
	KindPermanent

	// KindEmbedding marks a missing, empty, or short embedding vector.
	// Never silently tolerated.
	KindEmbedding
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	case KindEmbedding:
		return "embedding"
	default:
		return "unknown"
	}
}

// Error is a typed error carrying its taxonomy kind. Messages are sanitized
// at construction so credentials never reach logs or callers.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches two faults by kind, so errors.Is(err, &Error{Kind: KindTransient})
// works without comparing messages.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// Validation builds a validation fault.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: Sanitize(fmt.Sprintf(format, args...))}
}

// Transient wraps err as a transient fault.
func Transient(err error, format string, args ...any) *Error {
	return &Error{Kind: KindTransient, Msg: Sanitize(fmt.Sprintf(format, args...)), Err: err}
}

// Permanent wraps err as a permanent fault.
func Permanent(err error, format string, args ...any) *Error {
	return &Error{Kind: KindPermanent, Msg: Sanitize(fmt.Sprintf(format, args...)), Err: err}
}

// Embedding builds an embedding-validation fault.
func Embedding(format string, args ...any) *Error {
	return &Error{Kind: KindEmbedding, Msg: Sanitize(fmt.Sprintf(format, args...))}
}

// IsTransient reports whether err is a transient fault.
func IsTransient(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindTransient
}

// IsEmbedding reports whether err is an embedding-validation fault.
func IsEmbedding(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindEmbedding
}

// credentialRe matches query-string credential parameters so error messages
// containing request URLs never leak keys or tokens.
var credentialRe = regexp.MustCompile(`(?i)([?&](?:api[_-]?key|apikey|token|key|secret|password)=)[^&\s"']+`)

// Sanitize redacts credential-bearing query parameters from msg.
func Sanitize(msg string) string {
	return credentialRe.ReplaceAllString(msg, "${1}REDACTED")
}
