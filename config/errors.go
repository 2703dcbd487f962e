package config

import "errors"

// Errors returned by Manager and Writer. Callers test them with errors.Is;
// most are wrapped with the offending id or reason.
var (
	// ErrBuiltInProvider rejects deleting (or retyping) the built-in provider
	ErrBuiltInProvider = errors.New("operation not allowed on the built-in provider")
	// ErrLastProvider rejects deleting the only remaining provider
	ErrLastProvider = errors.New("cannot remove the last provider")
	// ErrProviderNotFound is returned for operations on an unknown id
	ErrProviderNotFound = errors.New("provider not found")
	// ErrDuplicateProvider is returned when adding an id that already exists
	ErrDuplicateProvider = errors.New("provider already exists")
	// ErrInvalidProvider wraps field validation failures
	ErrInvalidProvider = errors.New("invalid provider")
	// ErrWriteFailed is returned when neither backend accepted a write
	ErrWriteFailed = errors.New("failed to write providers to any store")
	// ErrEmptyConfig rejects persisting a config without providers
	ErrEmptyConfig = errors.New("refusing to persist a config with no providers")
)
