package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"provsync/config/models"
	"provsync/config/storage"
	syncpkg "provsync/config/sync"
	"provsync/config/validation"
	"provsync/internal/providers"
)

// Manager is the in-memory view one surface (CLI, settings page, daemon)
// holds of the providers config. Mutations are applied to the cache first
// and rolled back when neither store accepts the write. Managers never
// coordinate with each other; stale caches are corrected on the next Load.
type Manager struct {
	reader    *Reader
	writer    *Writer
	backends  []storage.Backend
	validator *validation.Validator
	now       func() time.Time

	mutateMu sync.Mutex // serializes Load and mutations

	mu  sync.RWMutex // guards cfg
	cfg *models.ProvidersConfig
}

// NewManager creates a Manager over the two stores. The providers blob is
// stored under key in both.
func NewManager(native, extension storage.Backend, key string) *Manager {
	writer := NewWriter(native, extension, key)
	return &Manager{
		reader:    NewReader(native, extension, key, writer),
		writer:    writer,
		backends:  []storage.Backend{native, extension},
		validator: validation.NewValidator(),
		now:       time.Now,
	}
}

// NewManagerFromSettings opens the configured stores and creates a Manager
func NewManagerFromSettings(s Settings) (*Manager, error) {
	native, extension, err := s.OpenBackends()
	if err != nil {
		return nil, err
	}
	return NewManager(native, extension, s.ProvidersKey()), nil
}

// Reader exposes the underlying reader, mainly for status reporting
func (m *Manager) Reader() *Reader {
	return m.reader
}

// Backends returns the native and extension stores
func (m *Manager) Backends() (native, extension storage.Backend) {
	return m.backends[0], m.backends[1]
}

// Load reads and reconciles both stores into the cache. It never fails.
func (m *Manager) Load(ctx context.Context) *models.ProvidersConfig {
	m.mutateMu.Lock()
	defer m.mutateMu.Unlock()

	cfg := m.reader.ReadAll(ctx)
	m.swap(cfg)
	return cfg.Clone()
}

// Config returns a copy of the cached config, loading it first if needed
func (m *Manager) Config(ctx context.Context) *models.ProvidersConfig {
	m.mu.RLock()
	cfg := m.cfg
	m.mu.RUnlock()
	if cfg == nil {
		return m.Load(ctx)
	}
	return cfg.Clone()
}

// Providers returns a copy of the cached provider list
func (m *Manager) Providers(ctx context.Context) []models.Provider {
	return m.Config(ctx).Providers
}

// Provider returns the cached provider with the given id
func (m *Manager) Provider(ctx context.Context, id string) (models.Provider, error) {
	cfg := m.Config(ctx)
	i := cfg.Find(id)
	if i < 0 {
		return models.Provider{}, fmt.Errorf("%w: %s", ErrProviderNotFound, id)
	}
	return cfg.Providers[i], nil
}

// DefaultProvider returns the cached default provider
func (m *Manager) DefaultProvider(ctx context.Context) (models.Provider, bool) {
	cfg := m.Config(ctx)
	i := cfg.Find(cfg.DefaultProviderID)
	if i < 0 {
		return models.Provider{}, false
	}
	return cfg.Providers[i], true
}

// SetDefaultProvider makes id the default provider
func (m *Manager) SetDefaultProvider(ctx context.Context, id string) error {
	return m.mutate(ctx, func(cfg *models.ProvidersConfig, ts string) error {
		i := cfg.Find(id)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrProviderNotFound, id)
		}
		if cfg.DefaultProviderID == id {
			return errNoChange
		}
		if prev := cfg.Find(cfg.DefaultProviderID); prev >= 0 {
			cfg.Providers[prev].UpdatedAt = ts
		}
		cfg.Providers[i].UpdatedAt = ts
		cfg.DefaultProviderID = id
		return nil
	})
}

// AddProvider stores a new provider and returns it as stored. An empty id
// is replaced by a random UUID.
func (m *Manager) AddProvider(ctx context.Context, p models.Provider) (models.Provider, error) {
	var added models.Provider
	err := m.mutate(ctx, func(cfg *models.ProvidersConfig, ts string) error {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if cfg.Has(p.ID) {
			return fmt.Errorf("%w: %s", ErrDuplicateProvider, p.ID)
		}
		if p.Type == models.ProviderTypeNative {
			return fmt.Errorf("%w: type %s is reserved for the built-in provider", ErrInvalidProvider, p.Type)
		}
		p.BaseURL = normalizeBaseURL(p)
		if err := m.validator.ValidateProviderInput(p); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidProvider, err)
		}

		p.IsDefault = false
		p.IsBuiltIn = false
		p.CreatedAt = ts
		p.UpdatedAt = ts
		cfg.Providers = append(cfg.Providers, p)
		added = p.Clone()
		return nil
	})
	return added, err
}

// UpdateProvider replaces the provider with p.ID. The id, creation time
// and built-in flag of the stored provider are preserved.
func (m *Manager) UpdateProvider(ctx context.Context, p models.Provider) (models.Provider, error) {
	var updated models.Provider
	err := m.mutate(ctx, func(cfg *models.ProvidersConfig, ts string) error {
		i := cfg.Find(p.ID)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrProviderNotFound, p.ID)
		}
		stored := cfg.Providers[i]
		if stored.IsBuiltIn && p.Type != stored.Type {
			return fmt.Errorf("%w: its type cannot change", ErrBuiltInProvider)
		}
		if !stored.IsBuiltIn && p.Type == models.ProviderTypeNative {
			return fmt.Errorf("%w: type %s is reserved for the built-in provider", ErrInvalidProvider, p.Type)
		}
		p.BaseURL = normalizeBaseURL(p)
		if err := m.validator.ValidateProviderInput(p); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidProvider, err)
		}

		p.IsBuiltIn = stored.IsBuiltIn
		p.CreatedAt = stored.CreatedAt
		p.UpdatedAt = ts
		cfg.Providers[i] = p
		updated = p.Clone()
		return nil
	})
	if err == nil {
		updated.IsDefault = updated.ID == m.Config(ctx).DefaultProviderID
	}
	return updated, err
}

// DeleteProvider removes the provider with the given id. The built-in
// provider and the last remaining provider cannot be deleted. Deleting the
// default moves the default to the first remaining provider.
func (m *Manager) DeleteProvider(ctx context.Context, id string) error {
	return m.mutate(ctx, func(cfg *models.ProvidersConfig, ts string) error {
		i := cfg.Find(id)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrProviderNotFound, id)
		}
		if cfg.Providers[i].IsBuiltIn {
			return ErrBuiltInProvider
		}
		if cfg.Len() <= 1 {
			return ErrLastProvider
		}

		cfg.Providers = lo.Filter(cfg.Providers, func(p models.Provider, _ int) bool {
			return p.ID != id
		})
		if cfg.DefaultProviderID == id {
			cfg.DefaultProviderID = cfg.Providers[0].ID
			cfg.Providers[0].UpdatedAt = ts
		}
		return nil
	})
}

// Wait blocks until background write-backs have finished
func (m *Manager) Wait() {
	m.reader.Wait()
}

// Close waits for background write-backs and releases backends that hold
// resources
func (m *Manager) Close() error {
	m.Wait()
	var errs []error
	for _, b := range m.backends {
		if closer, ok := b.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", b.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// errNoChange lets a mutation finish without writing
var errNoChange = errors.New("no change")

// mutate applies fn to a copy of the cache, publishes the result
// optimistically and persists it. The previous cache is restored when the
// write fails. Errors returned by fn leave everything untouched.
func (m *Manager) mutate(ctx context.Context, fn func(cfg *models.ProvidersConfig, ts string) error) error {
	m.mutateMu.Lock()
	defer m.mutateMu.Unlock()

	m.mu.RLock()
	prev := m.cfg
	m.mu.RUnlock()
	if prev == nil {
		prev = m.reader.ReadAll(ctx)
		m.swap(prev)
	}

	now := m.now()
	next := prev.Clone()
	if err := fn(next, models.FormatTimestamp(now)); err != nil {
		if errors.Is(err, errNoChange) {
			return nil
		}
		return err
	}
	next = syncpkg.Normalize(next, now)

	m.swap(next)
	// a pending write-back carries an older snapshot and must land first
	m.reader.Wait()
	if _, err := m.writer.Write(ctx, next); err != nil {
		m.swap(prev)
		return fmt.Errorf("failed to save providers: %w", err)
	}
	return nil
}

func (m *Manager) swap(cfg *models.ProvidersConfig) {
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
}

// normalizeBaseURL applies the provider type's URL normalization
func normalizeBaseURL(p models.Provider) string {
	catalog, err := providers.Get(p.Type)
	if err != nil {
		return p.BaseURL
	}
	return catalog.NormalizeConfig(p.BaseURL)
}

// ProviderIDs lists the ids of the cached providers
func (m *Manager) ProviderIDs(ctx context.Context) []string {
	return lo.Map(m.Providers(ctx), func(p models.Provider, _ int) string {
		return p.ID
	})
}

// HasCustomProviders reports whether anything besides the built-in
// provider is configured
func (m *Manager) HasCustomProviders(ctx context.Context) bool {
	return lo.ContainsBy(m.Providers(ctx), func(p models.Provider) bool {
		return !p.IsBuiltIn
	})
}
