package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"provsync/config/models"
	"provsync/config/storage"
	syncpkg "provsync/config/sync"
	"provsync/config/validation"
)

// WriteResult reports the outcome of each backend write
type WriteResult struct {
	Native    error
	Extension error
}

// OK reports whether at least one backend accepted the write
func (r WriteResult) OK() bool {
	return r.Native == nil || r.Extension == nil
}

// errStoreSkipped marks a store left out of a write
var errStoreSkipped = errors.New("store skipped")

// Writer persists a config to both stores
type Writer struct {
	native    storage.Backend
	extension storage.Backend
	key       string
	validator *validation.Validator
	now       func() time.Time

	mu sync.Mutex // writes land in the order they were issued
}

// NewWriter creates a Writer storing the config under key in both backends
func NewWriter(native, extension storage.Backend, key string) *Writer {
	return &Writer{
		native:    native,
		extension: extension,
		key:       key,
		validator: validation.NewValidator(),
		now:       time.Now,
	}
}

// Write normalizes cfg, serializes it once and writes the identical string
// to both stores concurrently. The write succeeds when either store accepts
// it; a partial failure is only logged since the next read heals it.
func (w *Writer) Write(ctx context.Context, cfg *models.ProvidersConfig) (WriteResult, error) {
	return w.write(ctx, cfg, true, true)
}

// write persists cfg to the selected stores. A store that is not selected
// reports errStoreSkipped and is left untouched.
func (w *Writer) write(ctx context.Context, cfg *models.ProvidersConfig, toNative, toExtension bool) (WriteResult, error) {
	normalized := syncpkg.Normalize(cfg, w.now())
	if normalized.Len() == 0 {
		return WriteResult{}, ErrEmptyConfig
	}
	if err := w.validator.ValidateConfig(normalized); err != nil {
		return WriteResult{}, fmt.Errorf("%w: %v", ErrInvalidProvider, err)
	}

	data, err := json.Marshal(normalized)
	if err != nil {
		return WriteResult{}, fmt.Errorf("failed to serialize providers: %w", err)
	}
	payload := string(data)

	w.mu.Lock()
	defer w.mu.Unlock()

	// Both writes are issued before either is awaited; neither cancels the other.
	result := WriteResult{Native: errStoreSkipped, Extension: errStoreSkipped}
	var g errgroup.Group
	if toNative {
		g.Go(func() error {
			result.Native = w.native.Set(ctx, w.key, payload)
			return nil
		})
	}
	if toExtension {
		g.Go(func() error {
			result.Extension = w.extension.Set(ctx, w.key, payload)
			return nil
		})
	}
	_ = g.Wait()

	switch {
	case !result.OK():
		return result, fmt.Errorf("%w: %w", ErrWriteFailed, errors.Join(
			fmt.Errorf("%s: %w", w.native.Name(), result.Native),
			fmt.Errorf("%s: %w", w.extension.Name(), result.Extension),
		))
	case errors.Is(result.Native, errStoreSkipped), errors.Is(result.Extension, errStoreSkipped):
		logger().WithField("providers", normalized.Len()).Debug("providers written to the readable store")
	case result.Native != nil:
		logger().WithError(result.Native).WithField("backend", w.native.Name()).Warn("partial write: native store failed")
	case result.Extension != nil:
		logger().WithError(result.Extension).WithField("backend", w.extension.Name()).Warn("partial write: extension store failed")
	default:
		logger().WithField("providers", normalized.Len()).Debug("providers written to both stores")
	}
	return result, nil
}
