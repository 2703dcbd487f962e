package config

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"provsync/config/models"
	"provsync/config/storage"
	syncpkg "provsync/config/sync"
	"provsync/config/validation"
)

// SourceStatus describes what a single store held on the last read
type SourceStatus struct {
	Backend   string
	Found     bool
	Providers int
	Config    *models.ProvidersConfig
	Err       error
}

// Usable reports whether the source contributed to the merge
func (s SourceStatus) Usable() bool {
	return s.Config != nil
}

// Unreadable reports whether the backend itself failed. Its content is
// unknown, so it must not be overwritten with what the other store holds.
// An absent or invalid blob is readable and gets healed.
func (s SourceStatus) Unreadable() bool {
	return s.Err != nil && !s.Found
}

// lacks reports whether the store is readable and misses providers that
// merged has
func (s SourceStatus) lacks(merged *models.ProvidersConfig) bool {
	return !s.Unreadable() && merged.Len() > s.Config.Len()
}

// Reader loads the providers config from both stores and reconciles them
type Reader struct {
	native    storage.Backend
	extension storage.Backend
	key       string
	writer    *Writer
	now       func() time.Time

	pending sync.WaitGroup
}

// NewReader creates a Reader. Recovered or seeded configs are persisted
// through writer.
func NewReader(native, extension storage.Backend, key string, writer *Writer) *Reader {
	return &Reader{
		native:    native,
		extension: extension,
		key:       key,
		writer:    writer,
		now:       time.Now,
	}
}

// Decode migrates, schema-validates and parses a raw providers blob
func Decode(raw string) (*models.ProvidersConfig, error) {
	migrated, err := syncpkg.Migrate(raw)
	if err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	schema, err := validation.DefaultSchemaValidator()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(migrated); err != nil {
		return nil, err
	}

	var cfg models.ProvidersConfig
	if err := json.Unmarshal([]byte(migrated), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse providers: %w", err)
	}
	if err := validation.NewValidator().ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ReadAll returns the reconciled config. It never fails: an unreadable or
// invalid store counts as absent, and when neither store yields providers
// a fresh default config is returned and persisted. When the merge
// recovered providers one store was missing, the result is written back
// in the background. A store whose backend failed to read is never
// written.
func (r *Reader) ReadAll(ctx context.Context) *models.ProvidersConfig {
	native, extension := r.Sources(ctx)
	a, b := native.Config, extension.Config

	now := r.now()
	merged := syncpkg.Normalize(syncpkg.Merge(a, b), now)

	switch {
	case merged.Len() == 0:
		merged = models.NewDefaultConfig(now)
		logger().Info("no providers in either store, seeding default config")
		r.writeBack(ctx, merged, "seed", native, extension)
	case native.lacks(merged) || extension.lacks(merged):
		logger().WithFields(log.Fields{
			"native":    a.Len(),
			"extension": b.Len(),
			"merged":    merged.Len(),
		}).Info("stores diverged, writing merged config back")
		r.writeBack(ctx, merged, "recovery", native, extension)
	}
	return merged
}

// Sources reads both stores concurrently and reports each one's state
func (r *Reader) Sources(ctx context.Context) (native, extension SourceStatus) {
	var g errgroup.Group
	g.Go(func() error {
		native = r.readSource(ctx, r.native)
		return nil
	})
	g.Go(func() error {
		extension = r.readSource(ctx, r.extension)
		return nil
	})
	_ = g.Wait()
	return native, extension
}

func (r *Reader) readSource(ctx context.Context, backend storage.Backend) SourceStatus {
	status := SourceStatus{Backend: backend.Name()}
	entry := logger().WithField("backend", backend.Name())

	raw, found, err := backend.Get(ctx, r.key)
	if err != nil {
		status.Err = err
		entry.WithError(err).Warn("failed to read store")
		return status
	}
	if !found {
		entry.Debug("store holds no providers")
		return status
	}
	status.Found = true

	cfg, err := Decode(raw)
	if err != nil {
		status.Err = err
		entry.WithError(err).Warn("discarding invalid providers blob")
		return status
	}
	status.Config = cfg
	status.Providers = cfg.Len()
	return status
}

func (r *Reader) writeBack(ctx context.Context, cfg *models.ProvidersConfig, reason string, native, extension SourceStatus) {
	if r.writer == nil {
		return
	}
	toNative, toExtension := !native.Unreadable(), !extension.Unreadable()
	if !toNative && !toExtension {
		logger().WithField("reason", reason).Warn("both stores unreadable, skipping write-back")
		return
	}
	ctx = context.WithoutCancel(ctx)
	snapshot := cfg.Clone()

	r.pending.Add(1)
	go func() {
		defer r.pending.Done()
		if _, err := r.writer.write(ctx, snapshot, toNative, toExtension); err != nil {
			logger().WithError(err).WithField("reason", reason).Warn("write-back failed")
		}
	}()
}

// Wait blocks until every background write-back has finished
func (r *Reader) Wait() {
	r.pending.Wait()
}
