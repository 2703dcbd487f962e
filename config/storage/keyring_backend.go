package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringBackend stores values in the OS keychain: one secret per key under
// a single service name. Useful when the provider list carries API keys.
type KeyringBackend struct {
	service string
}

// NewKeyringBackend returns a backend for the given keychain service
func NewKeyringBackend(service string) (*KeyringBackend, error) {
	service = strings.TrimSpace(service)
	if service == "" {
		return nil, fmt.Errorf("%w: keyring service is required", ErrInvalidDSN)
	}
	return &KeyringBackend{service: service}, nil
}

// Name implements Backend
func (b *KeyringBackend) Name() string {
	return "keyring://" + b.service
}

// Get implements Backend
func (b *KeyringBackend) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	value, err := keyring.Get(b.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("keyring get %q: %w", key, err)
	}
	return value, true, nil
}

// Set implements Backend
func (b *KeyringBackend) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := keyring.Set(b.service, key, value); err != nil {
		return fmt.Errorf("keyring set %q: %w", key, err)
	}
	return nil
}
