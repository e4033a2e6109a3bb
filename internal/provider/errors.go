package provider

import "fmt"

// ErrorKind classifies provider failures for uniform upstream handling.
type ErrorKind string

const (
	KindUnauthorized     ErrorKind = "unauthorized"
	KindNetwork          ErrorKind = "network"
	KindRateLimited      ErrorKind = "rate_limited"
	KindUnsupportedModel ErrorKind = "unsupported_model"
	KindUnknownProvider  ErrorKind = "unknown_provider"
	KindSetupFailed      ErrorKind = "setup_failed"
)

// Error is the uniform failure type surfaced by every provider operation.
type Error struct {
	Provider string
	Kind     ErrorKind
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a provider error with a formatted message.
func NewError(providerID string, kind ErrorKind, format string, args ...any) *Error {
	return &Error{Provider: providerID, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError builds a provider error around an underlying cause.
func WrapError(providerID string, kind ErrorKind, err error) *Error {
	return &Error{Provider: providerID, Kind: kind, Err: err}
}

// errUnconfigured is the fail-fast error for providers missing their key.
func errUnconfigured(providerID string) *Error {
	return NewError(providerID, KindUnauthorized, "API key not configured")
}
