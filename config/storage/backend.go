package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
)

var (
	// ErrInvalidDSN is returned when a backend DSN cannot be interpreted
	ErrInvalidDSN = errors.New("invalid backend DSN")
	// ErrUnsupportedScheme is returned for DSN schemes with no backend
	ErrUnsupportedScheme = errors.New("unsupported backend scheme")
)

// Backend is an opaque key/value store holding one string value per key.
// Every implementation fails independently; callers never assume that a
// write to one backend implies anything about another.
type Backend interface {
	// Name identifies the backend in logs and status output
	Name() string
	// Get returns the value stored under key. found is false when the key
	// has never been written.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set replaces the value stored under key
	Set(ctx context.Context, key, value string) error
}

// BackendFactory builds a backend from a DSN
type BackendFactory func(dsn string) (Backend, error)

var factoryRegistry = struct {
	mu        sync.RWMutex
	factories map[string]BackendFactory
}{
	factories: map[string]BackendFactory{},
}

// RegisterBackendFactory makes a custom DSN scheme available to Open.
// Registered factories take precedence over the built-in schemes.
func RegisterBackendFactory(scheme string, factory BackendFactory) {
	scheme = normalizeScheme(scheme)
	if scheme == "" || factory == nil {
		return
	}
	factoryRegistry.mu.Lock()
	defer factoryRegistry.mu.Unlock()
	factoryRegistry.factories[scheme] = factory
}

func lookupBackendFactory(scheme string) (BackendFactory, bool) {
	factoryRegistry.mu.RLock()
	defer factoryRegistry.mu.RUnlock()
	factory, ok := factoryRegistry.factories[normalizeScheme(scheme)]
	return factory, ok
}

// Open builds the backend described by dsn:
//
//	file:///path/extension-storage.json  JSON key/value file
//	prefs:///path/Preferences            Chromium-style preferences file
//	memory://name                        process-local store shared by name
//	postgres://user@host/db              key/value table
//	keyring://service                    OS keychain
//
// A DSN without a scheme is treated as a file path.
func Open(dsn string) (Backend, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidDSN)
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDSN, err)
	}

	scheme := normalizeScheme(parsed.Scheme)
	if factory, ok := lookupBackendFactory(scheme); ok {
		return factory(dsn)
	}

	switch scheme {
	case "", "file":
		path, err := dsnPath(parsed, dsn)
		if err != nil {
			return nil, err
		}
		return NewFileBackend(path), nil
	case "prefs":
		path, err := dsnPath(parsed, dsn)
		if err != nil {
			return nil, err
		}
		return NewPrefsBackend(path), nil
	case "memory", "mem":
		return SharedMemoryBackend(parsed.Host), nil
	case "postgres", "postgresql":
		backend, err := NewPostgresBackend(dsn)
		if err != nil {
			return nil, err
		}
		return backend, nil
	case "keyring":
		backend, err := NewKeyringBackend(parsed.Host)
		if err != nil {
			return nil, err
		}
		return backend, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, scheme)
	}
}

func normalizeScheme(scheme string) string {
	return strings.ToLower(strings.TrimSpace(scheme))
}

func dsnPath(parsed *url.URL, raw string) (string, error) {
	if strings.TrimSpace(parsed.Scheme) == "" {
		return raw, nil
	}
	path := strings.TrimSpace(parsed.Path)
	if path == "" {
		path = strings.TrimSpace(parsed.Opaque)
	}
	if path == "" {
		path = strings.TrimSpace(parsed.Host)
	}
	if path == "" {
		return "", fmt.Errorf("%w: missing path in %s", ErrInvalidDSN, raw)
	}
	return path, nil
}
