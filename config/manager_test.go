package config

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"provsync/config/models"
	"provsync/config/storage"
)

var ctx = context.Background()

func loadedManager(t *testing.T, cfg *models.ProvidersConfig) *Manager {
	t.Helper()
	m, native, extension := setupTestManager(t)
	seedStore(t, native, cfg)
	seedStore(t, extension, cfg)
	m.Load(ctx)
	m.Wait()
	return m
}

func TestLoad(t *testing.T) {
	cfg := testConfig("p1", builtIn(), testProvider("p1", "2024-01-01T00:00:00Z"))
	m := loadedManager(t, cfg)

	if got := m.Config(ctx); !reflect.DeepEqual(got, cfg) {
		t.Errorf("Config() = %+v, want %+v", got, cfg)
	}
	def, ok := m.DefaultProvider(ctx)
	if !ok || def.ID != "p1" {
		t.Errorf("DefaultProvider() = %+v, %v", def, ok)
	}
	if got := m.ProviderIDs(ctx); !reflect.DeepEqual(got, []string{models.BuiltInProviderID, "p1"}) {
		t.Errorf("ProviderIDs() = %v", got)
	}
	if !m.HasCustomProviders(ctx) {
		t.Error("HasCustomProviders() = false")
	}
}

func TestConfigReturnsCopies(t *testing.T) {
	m := loadedManager(t, testConfig("p1", testProvider("p1", "")))

	m.Config(ctx).Providers[0].Name = "changed"
	m.Providers(ctx)[0].Name = "changed"

	if m.Providers(ctx)[0].Name == "changed" {
		t.Error("callers must not be able to mutate the cache")
	}
}

func TestConfigLoadsLazily(t *testing.T) {
	m, _, _ := setupTestManager(t)

	if got := m.Config(ctx); got.DefaultProviderID != models.BuiltInProviderID {
		t.Errorf("lazy load returned %+v", got)
	}
	m.Wait()
}

func TestAddProvider(t *testing.T) {
	m := loadedManager(t, testConfig(models.BuiltInProviderID, builtIn()))

	added, err := m.AddProvider(ctx, models.Provider{
		Name:      "Cloud",
		Type:      models.ProviderTypeOpenAI,
		APIKey:    "sk-test",
		BaseURL:   "https://api.openai.com/v1",
		IsDefault: true,
		IsBuiltIn: true,
	})
	if err != nil {
		t.Fatalf("AddProvider() error = %v", err)
	}

	if _, err := uuid.Parse(added.ID); err != nil {
		t.Errorf("expected a generated UUID, got %q", added.ID)
	}
	if added.IsDefault || added.IsBuiltIn {
		t.Errorf("flags must be forced off: %+v", added)
	}
	want := models.FormatTimestamp(testNow)
	if added.CreatedAt != want || added.UpdatedAt != want {
		t.Errorf("timestamps = %s/%s, want %s", added.CreatedAt, added.UpdatedAt, want)
	}
	if added.BaseURL != "https://api.openai.com/v1/" {
		t.Errorf("base URL not normalized: %s", added.BaseURL)
	}

	stored := readStore(t, nativeOf(m))
	if !stored.Has(added.ID) || stored.DefaultProviderID != models.BuiltInProviderID {
		t.Errorf("store not updated: %+v", stored)
	}
}

func TestAddProviderGuards(t *testing.T) {
	tests := []struct {
		name     string
		provider models.Provider
		wantErr  error
	}{
		{"duplicate id", testProvider("p1", ""), ErrDuplicateProvider},
		{"missing api key", models.Provider{ID: "p2", Name: "Cloud", Type: models.ProviderTypeAnthropic}, ErrInvalidProvider},
		{"empty name", models.Provider{ID: "p2", Type: models.ProviderTypeOllama}, ErrInvalidProvider},
		{"unknown type", models.Provider{ID: "p2", Name: "X", Type: "mistral"}, ErrInvalidProvider},
		{"native type", models.Provider{ID: "p2", Name: "Fake", Type: models.ProviderTypeNative}, ErrInvalidProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := loadedManager(t, testConfig("p1", testProvider("p1", "")))
			sets := nativeOf(m).SetCount()

			if _, err := m.AddProvider(ctx, tt.provider); !errors.Is(err, tt.wantErr) {
				t.Errorf("AddProvider() error = %v, want %v", err, tt.wantErr)
			}
			if nativeOf(m).SetCount() != sets || m.Config(ctx).Len() != 1 {
				t.Error("rejected add must not change state or write")
			}
		})
	}
}

func TestUpdateProvider(t *testing.T) {
	m := loadedManager(t, testConfig("p1", testProvider("p1", "2024-01-01T00:00:00Z"), testProvider("p2", "2024-01-01T00:00:00Z")))

	edit := testProvider("p2", "")
	edit.Name = "Renamed"
	edit.CreatedAt = "1999-01-01T00:00:00Z"
	edit.IsBuiltIn = true
	edit.IsDefault = true

	updated, err := m.UpdateProvider(ctx, edit)
	if err != nil {
		t.Fatalf("UpdateProvider() error = %v", err)
	}
	if updated.Name != "Renamed" {
		t.Errorf("name not updated: %+v", updated)
	}
	if updated.CreatedAt != "2024-01-01T00:00:00Z" || updated.IsBuiltIn || updated.IsDefault {
		t.Errorf("preserved fields changed: %+v", updated)
	}
	if updated.UpdatedAt != models.FormatTimestamp(testNow) {
		t.Errorf("updatedAt = %s", updated.UpdatedAt)
	}
	if m.Config(ctx).DefaultProviderID != "p1" {
		t.Error("update must not change the default")
	}

	if _, err := m.UpdateProvider(ctx, testProvider("nope", "")); !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("expected ErrProviderNotFound, got %v", err)
	}
}

func TestUpdateBuiltInProvider(t *testing.T) {
	m := loadedManager(t, testConfig(models.BuiltInProviderID, builtIn()))

	renamed := builtIn()
	renamed.Name = "Browser model"
	if _, err := m.UpdateProvider(ctx, renamed); err != nil {
		t.Fatalf("renaming the built-in provider failed: %v", err)
	}

	retyped := builtIn()
	retyped.Type = models.ProviderTypeOllama
	if _, err := m.UpdateProvider(ctx, retyped); !errors.Is(err, ErrBuiltInProvider) {
		t.Errorf("expected ErrBuiltInProvider, got %v", err)
	}
}

func TestSetDefaultProvider(t *testing.T) {
	m := loadedManager(t, testConfig("p1", testProvider("p1", "2024-01-01T00:00:00Z"), testProvider("p2", "2024-01-01T00:00:00Z"), testProvider("p3", "2024-01-01T00:00:00Z")))

	if err := m.SetDefaultProvider(ctx, "p2"); err != nil {
		t.Fatalf("SetDefaultProvider() error = %v", err)
	}

	cfg := m.Config(ctx)
	if cfg.DefaultProviderID != "p2" || !cfg.Providers[1].IsDefault || cfg.Providers[0].IsDefault {
		t.Errorf("default not moved: %+v", cfg)
	}
	now := models.FormatTimestamp(testNow)
	if cfg.Providers[0].UpdatedAt != now || cfg.Providers[1].UpdatedAt != now {
		t.Error("old and new default must both be touched")
	}
	if cfg.Providers[2].UpdatedAt == now {
		t.Error("unrelated provider must not be touched")
	}
	if stored := readStore(t, extensionOf(m)); stored.DefaultProviderID != "p2" {
		t.Errorf("store default = %q", stored.DefaultProviderID)
	}

	if err := m.SetDefaultProvider(ctx, "ghost"); !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("expected ErrProviderNotFound, got %v", err)
	}
}

func TestSetDefaultProviderNoop(t *testing.T) {
	m := loadedManager(t, testConfig("p1", testProvider("p1", "")))
	sets := nativeOf(m).SetCount()

	if err := m.SetDefaultProvider(ctx, "p1"); err != nil {
		t.Fatalf("SetDefaultProvider() error = %v", err)
	}
	if nativeOf(m).SetCount() != sets {
		t.Error("setting the current default must not write")
	}
}

func TestDeleteProviderGuards(t *testing.T) {
	t.Run("sole built-in provider", func(t *testing.T) {
		m := loadedManager(t, testConfig(models.BuiltInProviderID, builtIn()))
		sets := nativeOf(m).SetCount() + extensionOf(m).SetCount()

		if err := m.DeleteProvider(ctx, models.BuiltInProviderID); !errors.Is(err, ErrBuiltInProvider) {
			t.Errorf("expected ErrBuiltInProvider, got %v", err)
		}
		if nativeOf(m).SetCount()+extensionOf(m).SetCount() != sets {
			t.Error("guarded delete must not write")
		}
	})

	t.Run("last provider", func(t *testing.T) {
		m := loadedManager(t, testConfig("p1", testProvider("p1", "")))
		if err := m.DeleteProvider(ctx, "p1"); !errors.Is(err, ErrLastProvider) {
			t.Errorf("expected ErrLastProvider, got %v", err)
		}
		if m.Config(ctx).Len() != 1 {
			t.Error("state changed after a guarded delete")
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		m := loadedManager(t, testConfig("p1", testProvider("p1", "")))
		if err := m.DeleteProvider(ctx, "ghost"); !errors.Is(err, ErrProviderNotFound) {
			t.Errorf("expected ErrProviderNotFound, got %v", err)
		}
	})
}

func TestDeleteDefaultProvider(t *testing.T) {
	m := loadedManager(t, testConfig("p2", testProvider("p1", ""), testProvider("p2", "")))

	if err := m.DeleteProvider(ctx, "p2"); err != nil {
		t.Fatalf("DeleteProvider() error = %v", err)
	}

	cfg := m.Config(ctx)
	if got := cfg.IDs(); !reflect.DeepEqual(got, []string{"p1"}) {
		t.Errorf("ids = %v", got)
	}
	if cfg.DefaultProviderID != "p1" || !cfg.Providers[0].IsDefault {
		t.Errorf("default not reassigned: %+v", cfg)
	}
	if stored := readStore(t, nativeOf(m)); stored.Has("p2") {
		t.Error("deleted provider still stored")
	}
}

func TestMutationRollback(t *testing.T) {
	cfg := testConfig("p1", testProvider("p1", "2024-01-01T00:00:00Z"), testProvider("p2", "2024-01-01T00:00:00Z"))
	m := loadedManager(t, cfg)
	before := m.Config(ctx)

	nativeOf(m).FailSet(errors.New("offline"))
	extensionOf(m).FailSet(errors.New("offline"))

	mutations := map[string]func() error{
		"set default": func() error { return m.SetDefaultProvider(ctx, "p2") },
		"add": func() error {
			_, err := m.AddProvider(ctx, models.Provider{Name: "New", Type: models.ProviderTypeOllama})
			return err
		},
		"update": func() error {
			_, err := m.UpdateProvider(ctx, testProvider("p1", ""))
			return err
		},
		"delete": func() error { return m.DeleteProvider(ctx, "p1") },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			if err := mutate(); !errors.Is(err, ErrWriteFailed) {
				t.Fatalf("expected ErrWriteFailed, got %v", err)
			}
			if got := m.Config(ctx); !reflect.DeepEqual(got, before) {
				t.Errorf("cache not restored:\ngot  %+v\nwant %+v", got, before)
			}
		})
	}
}

func TestMutationPartialFailureKeepsChange(t *testing.T) {
	m := loadedManager(t, testConfig("p1", testProvider("p1", ""), testProvider("p2", "")))
	nativeOf(m).FailSet(errors.New("offline"))

	if err := m.SetDefaultProvider(ctx, "p2"); err != nil {
		t.Fatalf("partial failure must succeed, got %v", err)
	}
	if m.Config(ctx).DefaultProviderID != "p2" {
		t.Error("change should be kept")
	}
	if stored := readStore(t, extensionOf(m)); stored.DefaultProviderID != "p2" {
		t.Errorf("extension store default = %q, want p2", stored.DefaultProviderID)
	}
}

// heldBackend holds every Set whose payload does not contain pass until
// release is closed
type heldBackend struct {
	storage.Backend
	pass    string
	release chan struct{}
}

func (h *heldBackend) Set(ctx context.Context, key, value string) error {
	if !strings.Contains(value, h.pass) {
		<-h.release
	}
	return h.Backend.Set(ctx, key, value)
}

func TestMutationAfterSlowWriteBack(t *testing.T) {
	native, extension := setupTestStores(t)
	seedStore(t, native, testConfig("p1", testProvider("p1", "2024-01-01T00:00:00Z")))
	seedStore(t, extension, testConfig("p1",
		testProvider("p1", "2024-01-01T00:00:00Z"),
		testProvider("p2", "2024-01-01T00:00:00Z"),
	))

	release := make(chan struct{})
	m := NewManager(
		&heldBackend{Backend: native, pass: `"p3"`, release: release},
		&heldBackend{Backend: extension, pass: `"p3"`, release: release},
		testKey,
	)
	fixClock(m, testNow)

	// recovery write-back of {p1,p2} is now held
	m.Load(ctx)
	timer := time.AfterFunc(50*time.Millisecond, func() { close(release) })
	defer timer.Stop()

	if _, err := m.AddProvider(ctx, testProvider("p3", "")); err != nil {
		t.Fatalf("AddProvider() error = %v", err)
	}
	m.Wait()

	want := []string{"p1", "p2", "p3"}
	for _, b := range []*storage.MemoryBackend{native, extension} {
		if got := readStore(t, b).IDs(); !reflect.DeepEqual(got, want) {
			t.Errorf("%s holds %v, want %v", b.Name(), got, want)
		}
	}
	fresh := NewManager(native, extension, testKey)
	if got := fresh.Load(ctx).IDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("fresh load = %v, want %v", got, want)
	}
	fresh.Wait()
}

func TestConcurrentAdds(t *testing.T) {
	m := loadedManager(t, testConfig(models.BuiltInProviderID, builtIn()))

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := m.AddProvider(ctx, models.Provider{
				ID:   fmt.Sprintf("p%02d", i),
				Name: fmt.Sprintf("Provider %d", i),
				Type: models.ProviderTypeOllama,
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("AddProvider() error = %v", err)
		}
	}
	if got := m.Config(ctx).Len(); got != n+1 {
		t.Errorf("expected %d providers, got %d", n+1, got)
	}
	if got := readStore(t, nativeOf(m)).Len(); got != n+1 {
		t.Errorf("store holds %d providers, want %d", got, n+1)
	}
}

func TestClose(t *testing.T) {
	m, _, _ := setupTestManager(t)
	m.Load(ctx)
	if err := m.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
