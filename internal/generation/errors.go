package generation

import (
	"errors"
	"fmt"
)

// Common errors returned by the generation layer.
var (
	// ErrAllKeysExhausted is returned when every orchestration attempt has
	// failed with every selected credential. Feature adapters must catch
	// this and fall back to local computation rather than surfacing it.
	ErrAllKeysExhausted = errors.New("all credentials failed to produce a response")

	// ErrInvalidConfig is returned when a generator is constructed with
	// invalid configuration.
	ErrInvalidConfig = errors.New("invalid generator configuration")

	// ErrEmptyPrompt is returned when GenerateText is called with an empty
	// prompt.
	ErrEmptyPrompt = errors.New("prompt cannot be empty")
)

// FailureKind is the closed classification of a failed remote call. It is
// produced exactly once, at the HTTP boundary, from the response status code
// (plus quota wording in the error body), and consumed everywhere else.
// No other layer inspects status codes or error strings.
type FailureKind int

const (
	// FailureNone marks a successful call.
	FailureNone FailureKind = iota

	// FailureQuota is HTTP 429 or a quota signal in the error body. The
	// credential is suspended for the quota window.
	FailureQuota

	// FailureUnavailable is HTTP 503: a transient server condition that is
	// retried in place and never disables a credential.
	FailureUnavailable

	// FailureServer is HTTP 500: treated like FailureUnavailable for retry
	// and credential-health purposes.
	FailureServer

	// FailureNetwork means no response was received (DNS, timeout,
	// connection reset). Retried like a transient server error, but counts
	// toward the credential disable threshold.
	FailureNetwork

	// FailureBadFormat is a 2xx response whose body does not match the
	// provider's documented shape. A generic health penalty only; the
	// feature adapter treats it as a parse failure and falls back locally.
	FailureBadFormat

	// FailureOther covers every remaining non-2xx status.
	FailureOther
)

// String returns the snake_case name of the failure kind, used in logs.
func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureQuota:
		return "quota_exceeded"
	case FailureUnavailable:
		return "service_unavailable"
	case FailureServer:
		return "server_error"
	case FailureNetwork:
		return "network"
	case FailureBadFormat:
		return "invalid_response_format"
	default:
		return "other"
	}
}

// Transient reports whether the failure is expected to resolve without any
// client-side state change, i.e. whether the scheduler may retry the same
// credential in place.
func (k FailureKind) Transient() bool {
	return k == FailureUnavailable || k == FailureServer || k == FailureNetwork
}

// Retryable reports whether the orchestration facade should rotate to
// another credential and try again, rather than failing the request.
func (k FailureKind) Retryable() bool {
	return k == FailureQuota || k.Transient()
}

// RequestError is the typed error carried out of a failed remote call. It
// wraps the FailureKind classification and, when a response was received,
// the HTTP status code.
type RequestError struct {
	Kind       FailureKind
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("remote call failed (%s, status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("remote call failed (%s): %s", e.Kind, e.Message)
}

// KindOf extracts the FailureKind from err. Errors that are not a
// *RequestError classify as FailureOther; a nil error is FailureNone.
func KindOf(err error) FailureKind {
	if err == nil {
		return FailureNone
	}
	var re *RequestError
	if errors.As(err, &re) {
		return re.Kind
	}
	return FailureOther
}
