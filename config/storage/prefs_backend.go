package storage

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// PrefsBackend stores string values inside a Chromium-style Preferences
// file. Keys are dotted pref paths ("analos.providers" lives at
// {"analos":{"providers":"..."}}). Only the targeted path is rewritten;
// every other preference is preserved byte for byte.
type PrefsBackend struct {
	path string
}

// NewPrefsBackend returns a backend over the Preferences file at path
func NewPrefsBackend(path string) *PrefsBackend {
	return &PrefsBackend{path: path}
}

// Name implements Backend
func (b *PrefsBackend) Name() string {
	return "prefs://" + b.path
}

// Path returns the Preferences file
func (b *PrefsBackend) Path() string {
	return b.path
}

// Get implements Backend
func (b *PrefsBackend) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	content, exists, err := readFileLocked(b.path)
	if err != nil {
		return "", false, err
	}
	if !exists || strings.TrimSpace(content) == "" {
		return "", false, nil
	}
	if !gjson.Valid(content) {
		return "", false, fmt.Errorf("%s: invalid JSON content", b.Name())
	}

	pref := gjson.Get(content, key)
	if !pref.Exists() {
		return "", false, nil
	}
	if pref.Type != gjson.String {
		return "", false, fmt.Errorf("%s: pref %s is not a string", b.Name(), key)
	}
	return pref.String(), true, nil
}

// Set implements Backend
func (b *PrefsBackend) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return withFileLock(b.path, true, func() error {
		content := "{}"
		data, err := os.ReadFile(b.path)
		exists := err == nil
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to read %s: %w", b.path, err)
		}
		if exists && strings.TrimSpace(string(data)) != "" {
			content = string(data)
		}
		if !gjson.Valid(content) {
			return fmt.Errorf("%s: invalid JSON content", b.Name())
		}

		updated, err := sjson.Set(content, key, value)
		if err != nil {
			return fmt.Errorf("failed to set pref %s: %w", key, err)
		}
		if err := verifyPrefsUpdate(content, updated, key, value); err != nil {
			return fmt.Errorf("%s: %w", b.Name(), err)
		}
		return AtomicFileUpdate(b.path, updated, exists)
	})
}

// verifyPrefsUpdate checks that the update wrote value at path and left
// every sibling along the path untouched
func verifyPrefsUpdate(before, after, path, value string) error {
	if !gjson.Valid(after) {
		return fmt.Errorf("update produced invalid JSON")
	}
	if got := gjson.Get(after, path); got.Type != gjson.String || got.String() != value {
		return fmt.Errorf("pref %s was not written", path)
	}

	segments := strings.Split(path, ".")
	for i, segment := range segments {
		parent := strings.Join(segments[:i], ".")
		oldParent, newParent := gjson.Parse(before), gjson.Parse(after)
		if parent != "" {
			oldParent, newParent = gjson.Get(before, parent), gjson.Get(after, parent)
		}
		if !oldParent.IsObject() {
			// the path was created from here down
			return nil
		}

		var err error
		oldParent.ForEach(func(k, v gjson.Result) bool {
			if k.String() == segment {
				return true
			}
			if newParent.Get(gjson.Escape(k.String())).Raw != v.Raw {
				err = fmt.Errorf("unrelated pref %q changed", strings.TrimPrefix(parent+"."+k.String(), "."))
				return false
			}
			return true
		})
		if err != nil {
			return err
		}
	}
	return nil
}
