package config

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"provsync/config/models"
	"provsync/config/storage"
)

const testKey = "analos.providers"

var testNow = time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

// setupTestStores creates two fresh memory stores named after the test
func setupTestStores(t *testing.T) (native, extension *storage.MemoryBackend) {
	t.Helper()
	return storage.NewMemoryBackend(t.Name() + "-native"), storage.NewMemoryBackend(t.Name() + "-extension")
}

// setupTestManager creates a Manager over fresh memory stores with a fixed clock
func setupTestManager(t *testing.T) (*Manager, *storage.MemoryBackend, *storage.MemoryBackend) {
	t.Helper()
	native, extension := setupTestStores(t)
	m := NewManager(native, extension, testKey)
	fixClock(m, testNow)
	return m, native, extension
}

func fixClock(m *Manager, now time.Time) {
	clock := func() time.Time { return now }
	m.now = clock
	m.writer.now = clock
	m.reader.now = clock
}

func seedStore(t *testing.T, b storage.Backend, cfg *models.ProvidersConfig) {
	t.Helper()
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("failed to marshal config: %v", err)
	}
	if err := b.Set(context.Background(), testKey, string(data)); err != nil {
		t.Fatalf("failed to seed %s: %v", b.Name(), err)
	}
}

func readStore(t *testing.T, b storage.Backend) *models.ProvidersConfig {
	t.Helper()
	raw, found, err := b.Get(context.Background(), testKey)
	if err != nil {
		t.Fatalf("failed to read %s: %v", b.Name(), err)
	}
	if !found {
		return nil
	}
	cfg, err := Decode(raw)
	if err != nil {
		t.Fatalf("%s holds an invalid blob: %v", b.Name(), err)
	}
	return cfg
}

func testProvider(id, updatedAt string) models.Provider {
	return models.Provider{
		ID:        id,
		Name:      "Provider " + id,
		Type:      models.ProviderTypeOllama,
		BaseURL:   "http://localhost:11434/",
		CreatedAt: "2024-01-01T00:00:00Z",
		UpdatedAt: updatedAt,
	}
}

func testConfig(defaultID string, providers ...models.Provider) *models.ProvidersConfig {
	cfg := &models.ProvidersConfig{DefaultProviderID: defaultID, Providers: providers}
	for i := range cfg.Providers {
		cfg.Providers[i].IsDefault = cfg.Providers[i].ID == defaultID
	}
	return cfg
}

func builtIn() models.Provider {
	p := models.NewBuiltInProvider(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	p.IsDefault = false
	return p
}

func nativeOf(m *Manager) *storage.MemoryBackend {
	return m.backends[0].(*storage.MemoryBackend)
}

func extensionOf(m *Manager) *storage.MemoryBackend {
	return m.backends[1].(*storage.MemoryBackend)
}
