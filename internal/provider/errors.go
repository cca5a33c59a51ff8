package provider

import "fmt"

// ConnectionError reports a socket open or setup failure. Fatal to the
// current session; the caller decides whether to start again.
type ConnectionError struct {
	Provider string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s connection failed: %v", e.Provider, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ProtocolError reports a malformed or unexpected inbound frame. The receive
// loop logs it and skips the frame.
type ProtocolError struct {
	Provider string
	Detail   string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s protocol error: %s", e.Provider, e.Detail)
}

// ConfigurationError reports settings mismatched to the provider, detected
// before any I/O.
type ConfigurationError struct {
	Provider string
	Detail   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s configuration error: %s", e.Provider, e.Detail)
}

// NewConnectionError wraps err as a ConnectionError for the named provider
func NewConnectionError(providerName string, err error) error {
	return &ConnectionError{Provider: providerName, Err: err}
}

// NewProtocolError builds a ProtocolError for the named provider
func NewProtocolError(providerName, format string, args ...any) error {
	return &ProtocolError{Provider: providerName, Detail: fmt.Sprintf(format, args...)}
}

// NewConfigurationError builds a ConfigurationError for the named provider
func NewConfigurationError(providerName, format string, args ...any) error {
	return &ConfigurationError{Provider: providerName, Detail: fmt.Sprintf(format, args...)}
}
