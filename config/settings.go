package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"provsync/config/storage"
)

// Environment overrides, applied on top of the settings file
const (
	EnvSettingsPath   = "PROVSYNC_SETTINGS"
	EnvNativeStore    = "PROVSYNC_NATIVE_STORE"
	EnvExtensionStore = "PROVSYNC_EXTENSION_STORE"
	EnvNamespace      = "PROVSYNC_NAMESPACE"
	EnvLogLevel       = "PROVSYNC_LOG_LEVEL"
)

const (
	// DefaultNamespace prefixes the storage key: "<namespace>.providers"
	DefaultNamespace = "analos"
	defaultLogLevel  = "info"
	defaultDebounce  = 250 * time.Millisecond
)

// DaemonSettings configures the long-running side-panel daemon
type DaemonSettings struct {
	Socket   string        `yaml:"socket"`
	Debounce time.Duration `yaml:"debounce"`
}

// Settings holds the application settings: where the two stores live and
// how to talk about them
type Settings struct {
	NativeStore    string         `yaml:"native-store"`
	ExtensionStore string         `yaml:"extension-store"`
	Namespace      string         `yaml:"namespace"`
	LogLevel       string         `yaml:"log-level"`
	Daemon         DaemonSettings `yaml:"daemon"`

	// Path is the file the settings were loaded from
	Path string `yaml:"-"`
}

// SettingsDir returns $XDG_CONFIG_HOME/provsync, falling back to
// ~/.config/provsync
func SettingsDir() (string, error) {
	xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfigHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		xdgConfigHome = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(xdgConfigHome, "provsync"), nil
}

// DefaultSettings returns the settings used when nothing is configured,
// with both stores and the daemon socket under dir
func DefaultSettings(dir string) Settings {
	return Settings{
		NativeStore:    "prefs://" + filepath.Join(dir, "Preferences"),
		ExtensionStore: "file://" + filepath.Join(dir, "extension-storage.json"),
		Namespace:      DefaultNamespace,
		LogLevel:       defaultLogLevel,
		Daemon: DaemonSettings{
			Socket:   filepath.Join(dir, "daemon.sock"),
			Debounce: defaultDebounce,
		},
		Path: filepath.Join(dir, "settings.yaml"),
	}
}

// LoadSettings resolves settings from, in increasing precedence: defaults,
// the YAML file at path (or $PROVSYNC_SETTINGS, or the default location),
// and environment overrides. A missing file is not an error.
func LoadSettings(path string) (Settings, error) {
	dir, err := SettingsDir()
	if err != nil {
		return Settings{}, err
	}
	settings := DefaultSettings(dir)

	if path = strings.TrimSpace(path); path == "" {
		path = strings.TrimSpace(os.Getenv(EnvSettingsPath))
	}
	if path == "" {
		path = settings.Path
	}
	if abs, errAbs := filepath.Abs(path); errAbs == nil {
		path = abs
	}
	settings.Path = path

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fromFile Settings
		if errUnmarshal := yaml.Unmarshal(data, &fromFile); errUnmarshal != nil {
			return Settings{}, fmt.Errorf("parse settings file %s: %w", path, errUnmarshal)
		}
		settings.merge(fromFile)
	case errors.Is(err, os.ErrNotExist):
	default:
		return Settings{}, fmt.Errorf("read settings file: %w", err)
	}

	settings.merge(Settings{
		NativeStore:    os.Getenv(EnvNativeStore),
		ExtensionStore: os.Getenv(EnvExtensionStore),
		Namespace:      os.Getenv(EnvNamespace),
		LogLevel:       os.Getenv(EnvLogLevel),
	})

	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// merge copies every non-empty field of other over s
func (s *Settings) merge(other Settings) {
	if v := strings.TrimSpace(other.NativeStore); v != "" {
		s.NativeStore = v
	}
	if v := strings.TrimSpace(other.ExtensionStore); v != "" {
		s.ExtensionStore = v
	}
	if v := strings.TrimSpace(other.Namespace); v != "" {
		s.Namespace = v
	}
	if v := strings.TrimSpace(other.LogLevel); v != "" {
		s.LogLevel = v
	}
	if v := strings.TrimSpace(other.Daemon.Socket); v != "" {
		s.Daemon.Socket = v
	}
	if other.Daemon.Debounce > 0 {
		s.Daemon.Debounce = other.Daemon.Debounce
	}
}

// Override applies command line values; empty values are ignored
func (s *Settings) Override(native, extension, logLevel string) error {
	s.merge(Settings{NativeStore: native, ExtensionStore: extension, LogLevel: logLevel})
	return s.Validate()
}

// Validate checks the resolved settings
func (s Settings) Validate() error {
	if s.NativeStore == s.ExtensionStore {
		return fmt.Errorf("native and extension stores must differ (both %s)", s.NativeStore)
	}
	if strings.ContainsAny(s.Namespace, " \t.") {
		return fmt.Errorf("invalid namespace %q", s.Namespace)
	}
	if _, err := log.ParseLevel(s.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	return nil
}

// ProvidersKey returns the storage key of the providers blob
func (s Settings) ProvidersKey() string {
	return s.Namespace + ".providers"
}

// Level returns the parsed log level
func (s Settings) Level() log.Level {
	level, err := log.ParseLevel(s.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// OpenBackends opens the native and extension stores
func (s Settings) OpenBackends() (native, extension storage.Backend, err error) {
	native, err = storage.Open(s.NativeStore)
	if err != nil {
		return nil, nil, fmt.Errorf("open native store: %w", err)
	}
	extension, err = storage.Open(s.ExtensionStore)
	if err != nil {
		return nil, nil, fmt.Errorf("open extension store: %w", err)
	}
	return native, extension, nil
}
