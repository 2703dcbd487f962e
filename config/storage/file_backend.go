package storage

import (
	"context"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// FileBackend stores string values in a flat JSON object, one top-level
// member per key, the way an extension storage area is laid out on disk
type FileBackend struct {
	path   string
	backup *BackupManager
}

// NewFileBackend returns a backend over the JSON file at path. The file is
// created on first write.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path, backup: NewBackupManager(DefaultBackupRetention)}
}

// Name implements Backend
func (b *FileBackend) Name() string {
	return "file://" + b.path
}

// Path returns the file backing the store
func (b *FileBackend) Path() string {
	return b.path
}

// Get implements Backend
func (b *FileBackend) Get(ctx context.Context, key string) (string, bool, error) {
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
		if content, err = b.restore(); err != nil {
			return "", false, err
		}
	}

	value := gjson.Get(content, gjson.Escape(key))
	if !value.Exists() {
		return "", false, nil
	}
	if value.Type != gjson.String {
		return "", false, fmt.Errorf("%s: value of %q is not a string", b.Name(), key)
	}
	return value.String(), true, nil
}

// Set implements Backend
func (b *FileBackend) Set(ctx context.Context, key, value string) error {
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
			return fmt.Errorf("%s: refusing to overwrite corrupt store", b.Name())
		}

		updated, err := sjson.Set(content, gjson.Escape(key), value)
		if err != nil {
			return fmt.Errorf("failed to set %q: %w", key, err)
		}
		return AtomicFileUpdate(b.path, updated, exists)
	})
}

// restore rolls a corrupt store back to its newest backup
func (b *FileBackend) restore() (string, error) {
	var content string
	err := withFileLock(b.path, true, func() error {
		data, err := os.ReadFile(b.path)
		if err == nil && gjson.Valid(string(data)) {
			// another writer already repaired it
			content = string(data)
			return nil
		}
		used, err := b.backup.RestoreFromLatestBackup(b.path)
		if err != nil {
			return fmt.Errorf("%s is corrupt and cannot be restored: %w", b.path, err)
		}
		data, err = os.ReadFile(b.path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", b.path, err)
		}
		if !gjson.Valid(string(data)) {
			return fmt.Errorf("%s: backup %s is corrupt too", b.path, used)
		}
		log.Warnf("%s was corrupt, restored from %s", b.path, used)
		content = string(data)
		return nil
	})
	return content, err
}
