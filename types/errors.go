package types

import (
	"errors"
	"fmt"
	"time"
)

// Machine-readable error codes. Every error produced by a data service
// carries exactly one of these.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeNotFound   = "DATA_NOT_FOUND"
	CodeRateLimit  = "RATE_LIMIT"
	CodeNetwork    = "NETWORK_ERROR"
	CodeAPI        = "API_ERROR"
)

// Error is the single error type of the SDK. The Code field distinguishes
// the five kinds; the remaining fields are optional context and are only
// set where they apply.
type Error struct {
	Code       string
	Message    string
	Field      string        // offending input field (validation)
	Symbol     string        // offending symbol (not-found)
	RetryAfter time.Duration // upstream hint (rate-limit)
	Err        error         // original transport failure (network)
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports rejected input. Raised before any network I/O.
func Validation(message, field string) *Error {
	return &Error{Code: CodeValidation, Message: message, Field: field}
}

// NotFound reports a structurally absent record after a successful fetch.
func NotFound(message, symbol string) *Error {
	return &Error{Code: CodeNotFound, Message: message, Symbol: symbol}
}

// RateLimit reports an upstream 429. retryAfter is zero when the upstream
// gave no hint.
func RateLimit(message string, retryAfter time.Duration) *Error {
	return &Error{Code: CodeRateLimit, Message: message, RetryAfter: retryAfter}
}

// Network reports a transport-level failure, wrapping the original error.
func Network(message string, err error) *Error {
	return &Error{Code: CodeNetwork, Message: message, Err: err}
}

// API reports a malformed or unexpected upstream response shape.
func API(message string) *Error {
	return &Error{Code: CodeAPI, Message: message}
}

func codeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func IsValidation(err error) bool { return codeOf(err) == CodeValidation }
func IsNotFound(err error) bool   { return codeOf(err) == CodeNotFound }
func IsRateLimit(err error) bool  { return codeOf(err) == CodeRateLimit }
func IsNetwork(err error) bool    { return codeOf(err) == CodeNetwork }
func IsAPI(err error) bool        { return codeOf(err) == CodeAPI }
