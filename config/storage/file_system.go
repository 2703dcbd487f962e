package storage

import (
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// withFileLock runs fn while holding an advisory lock on the sidecar
// "<path>.lock" file. The data file itself is replaced by rename on write,
// so the lock cannot live on it.
func withFileLock(path string, exclusive bool, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	lockFile, err := os.OpenFile(path+".lock", os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}
	defer lockFile.Close()

	if err := acquireLock(lockFile, exclusive); err != nil {
		return fmt.Errorf("failed to lock %s: %w", path, err)
	}
	defer func() {
		if err := releaseLock(lockFile); err != nil {
			log.Warnf("failed to unlock %s: %v", path, err)
		}
	}()

	return fn()
}

// readFileLocked reads path under a shared lock. A missing file reads as
// empty content with exists=false.
func readFileLocked(path string) (content string, exists bool, err error) {
	if !FileExists(path) {
		return "", false, nil
	}
	err = withFileLock(path, false, func() error {
		data, readErr := os.ReadFile(path)
		if os.IsNotExist(readErr) {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("failed to read %s: %w", path, readErr)
		}
		content, exists = string(data), true
		return nil
	})
	return content, exists, err
}

// AtomicFileUpdate replaces filePath with newContent through a temporary
// file and rename, optionally keeping a timestamped backup of the previous
// content.
func AtomicFileUpdate(filePath string, newContent string, createBackup bool) error {
	mode := os.FileMode(0600)
	if info, err := os.Stat(filePath); err == nil {
		mode = info.Mode().Perm()
	} else {
		createBackup = false
	}

	bm := NewBackupManager(DefaultBackupRetention)
	if createBackup {
		if _, err := bm.CreateBackup(filePath); err != nil {
			return fmt.Errorf("failed to create backup file: %w", err)
		}
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(filePath), filepath.Base(filePath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.WriteString(newContent); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write to temporary file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}
	tmpFile.Close()

	if err := os.Chmod(tmpFile.Name(), mode); err != nil {
		return fmt.Errorf("failed to set permissions on temporary file: %w", err)
	}

	// rename is atomic on POSIX systems
	if err := os.Rename(tmpFile.Name(), filePath); err != nil {
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	if createBackup {
		if err := bm.CleanupOldBackups(filePath); err != nil {
			log.Warnf("failed to cleanup old backups of %s: %v", filePath, err)
		}
	}
	return nil
}
