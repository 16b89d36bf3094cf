package domain

import "fmt"

// ConfigurationError reports a missing or invalid setting. It is fatal at startup.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s %s", e.Field, e.Reason)
}

// ProviderError wraps any failure of an external speech or text provider.
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// PlatformDispatchError wraps a failure while handling an inbound event that
// is not attributable to a provider.
type PlatformDispatchError struct {
	Kind   EventKind
	ChatID int64
	Err    error
}

func (e *PlatformDispatchError) Error() string {
	return fmt.Sprintf("handling %s event in chat %d: %v", e.Kind, e.ChatID, e.Err)
}

func (e *PlatformDispatchError) Unwrap() error {
	return e.Err
}
