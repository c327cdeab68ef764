package codelet

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BurntSushi/toml"
	defaults "github.com/Paranoid-AF/codelet/default"
)

// Config represents the user's codelet configuration.
type Config struct {
	Version     int               `toml:"version"`
	Completion  CompletionConfig  `toml:"completion"`
	Editor      EditorConfig      `toml:"editor"`
	Interaction InteractionConfig `toml:"interaction"`
	Transport   TransportConfig   `toml:"transport"`
}

// CompletionConfig holds retrieval scheduling settings.
type CompletionConfig struct {
	DebounceDelay   Duration `toml:"debounce_delay"`
	PrefixLines     int      `toml:"prefix_lines"`
	SuffixLines     int      `toml:"suffix_lines"`
	RecentFileCount int      `toml:"recent_file_count"`
}

// EditorConfig holds settings applied to the host editor.
type EditorConfig struct {
	AutoSaveInterval Duration `toml:"auto_save_interval"`
}

// InteractionConfig holds input classification settings.
type InteractionConfig struct {
	UnlockDelay              Duration `toml:"unlock_delay"`
	CommitShortcut           string   `toml:"commit_shortcut"`
	ManualCompletionShortcut string   `toml:"manual_completion_shortcut"`
}

// TransportConfig holds backend connection settings.
type TransportConfig struct {
	BackendURL string `toml:"backend_url"`
}

// Duration is a time.Duration written as a Go duration string ("150ms").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// ConfigUpdate is a partial configuration. Nil fields are left untouched.
type ConfigUpdate struct {
	Completion  CompletionUpdate  `toml:"completion"`
	Editor      EditorUpdate      `toml:"editor"`
	Interaction InteractionUpdate `toml:"interaction"`
	Transport   TransportUpdate   `toml:"transport"`
}

// CompletionUpdate is the partial form of CompletionConfig.
type CompletionUpdate struct {
	DebounceDelay   *Duration `toml:"debounce_delay"`
	PrefixLines     *int      `toml:"prefix_lines"`
	SuffixLines     *int      `toml:"suffix_lines"`
	RecentFileCount *int      `toml:"recent_file_count"`
}

// EditorUpdate is the partial form of EditorConfig.
type EditorUpdate struct {
	AutoSaveInterval *Duration `toml:"auto_save_interval"`
}

// InteractionUpdate is the partial form of InteractionConfig.
type InteractionUpdate struct {
	UnlockDelay              *Duration `toml:"unlock_delay"`
	CommitShortcut           *string   `toml:"commit_shortcut"`
	ManualCompletionShortcut *string   `toml:"manual_completion_shortcut"`
}

// TransportUpdate is the partial form of TransportConfig.
type TransportUpdate struct {
	BackendURL *string `toml:"backend_url"`
}

// Apply copies every present field of u into c and returns the keys that changed.
func (c *Config) Apply(u *ConfigUpdate) []string {
	if u == nil {
		return nil
	}
	var changed []string
	set := func(key string, ok bool) {
		if ok {
			changed = append(changed, key)
		}
	}
	set("completion.debounce_delay", apply(&c.Completion.DebounceDelay, u.Completion.DebounceDelay))
	set("completion.prefix_lines", apply(&c.Completion.PrefixLines, u.Completion.PrefixLines))
	set("completion.suffix_lines", apply(&c.Completion.SuffixLines, u.Completion.SuffixLines))
	set("completion.recent_file_count", apply(&c.Completion.RecentFileCount, u.Completion.RecentFileCount))
	set("editor.auto_save_interval", apply(&c.Editor.AutoSaveInterval, u.Editor.AutoSaveInterval))
	set("interaction.unlock_delay", apply(&c.Interaction.UnlockDelay, u.Interaction.UnlockDelay))
	set("interaction.commit_shortcut", apply(&c.Interaction.CommitShortcut, u.Interaction.CommitShortcut))
	set("interaction.manual_completion_shortcut", apply(&c.Interaction.ManualCompletionShortcut, u.Interaction.ManualCompletionShortcut))
	set("transport.backend_url", apply(&c.Transport.BackendURL, u.Transport.BackendURL))
	return changed
}

func apply[T comparable](dst *T, src *T) bool {
	if src == nil || *dst == *src {
		return false
	}
	*dst = *src
	return true
}

// ParseConfigUpdate decodes a TOML document into a partial update.
// Keys that match no setting are returned as warnings.
func ParseConfigUpdate(data string) (*ConfigUpdate, []string, error) {
	var u ConfigUpdate
	md, err := toml.Decode(data, &u)
	if err != nil {
		return nil, nil, fmt.Errorf("parse config: %w", err)
	}
	var warnings []string
	for _, key := range md.Undecoded() {
		warnings = append(warnings, "unknown config key: "+key.String())
	}
	return &u, warnings, nil
}

// ConfigDir returns the config directory path.
// Resolution order: $CODELET_CONFIG_DIR > $XDG_CONFIG_HOME/codelet > ~/.config/codelet
func ConfigDir() string {
	if dir := os.Getenv("CODELET_CONFIG_DIR"); dir != "" {
		return dir
	}
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "codelet")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("/tmp", "codelet-config")
	}
	return filepath.Join(home, ".config", "codelet")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DefaultConfig returns the default configuration from the embedded default_config.toml.
func DefaultConfig() *Config {
	var cfg Config
	if _, err := toml.Decode(defaults.DefaultConfigTOML, &cfg); err != nil {
		panic("codelet: invalid embedded default_config.toml: " + err.Error())
	}
	return &cfg
}

// WriteDefaultConfig writes the embedded default configuration to path,
// creating its directory.
func WriteDefaultConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, []byte(defaults.DefaultConfigTOML), 0o644)
}

// LoadConfig loads config from disk or returns defaults if not found.
func LoadConfig() (*Config, []string, error) {
	return LoadConfigFrom(ConfigPath())
}

// LoadConfigFrom layers the file at path over the defaults, then applies
// environment overrides. A missing file is not an error.
func LoadConfigFrom(path string) (*Config, []string, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, nil, err
	}

	var warnings []string
	if err == nil {
		u, w, err := ParseConfigUpdate(string(data))
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		warnings = w
		cfg.Apply(u)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, nil, err
	}
	return cfg, append(warnings, ValidateConfig(cfg)...), nil
}

// applyEnv applies $CODELET_BACKEND_URL and $CODELET_DEBOUNCE_DELAY.
func applyEnv(cfg *Config) error {
	if url := os.Getenv("CODELET_BACKEND_URL"); url != "" {
		cfg.Transport.BackendURL = url
	}
	if v := os.Getenv("CODELET_DEBOUNCE_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CODELET_DEBOUNCE_DELAY: %w", err)
		}
		cfg.Completion.DebounceDelay = Duration{d}
	}
	return nil
}

// ValidateConfig checks configuration for potential issues and returns warnings.
func ValidateConfig(cfg *Config) []string {
	var warnings []string
	if cfg == nil {
		return warnings
	}
	if cfg.Completion.DebounceDelay.Duration < 10*time.Millisecond {
		warnings = append(warnings, "completion.debounce_delay is below the 10ms scheduler tick; requests follow every keystroke")
	}
	if cfg.Completion.PrefixLines < 0 || cfg.Completion.SuffixLines < 0 {
		warnings = append(warnings, "completion prefix/suffix line counts must not be negative")
	}
	if cfg.Completion.RecentFileCount < 0 {
		warnings = append(warnings, "completion.recent_file_count must not be negative")
	}
	if cfg.Interaction.UnlockDelay.Duration <= 0 {
		warnings = append(warnings, "interaction.unlock_delay should be positive; input bursts settle immediately")
	}
	if cfg.Transport.BackendURL == "" {
		warnings = append(warnings, "transport.backend_url is empty; suggestions are disabled")
	}
	return warnings
}

// Settings holds the live configuration. Readers get an immutable snapshot;
// updates replace it atomically.
type Settings struct {
	mu        sync.Mutex
	cur       atomic.Pointer[Config]
	listeners []func(cfg *Config, changed []string)
}

// NewSettings wraps cfg. A nil cfg uses the defaults.
func NewSettings(cfg *Config) *Settings {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	s := &Settings{}
	s.cur.Store(cfg)
	return s
}

// Load returns the current snapshot. Callers must not modify it.
func (s *Settings) Load() *Config {
	return s.cur.Load()
}

// OnChange registers fn to run after every Update that changes a key.
// fn runs on the updating goroutine.
func (s *Settings) OnChange(fn func(cfg *Config, changed []string)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Update applies u on top of the current snapshot and returns the changed keys.
func (s *Settings) Update(u *ConfigUpdate) []string {
	s.mu.Lock()
	next := *s.cur.Load()
	changed := next.Apply(u)
	if len(changed) > 0 {
		s.cur.Store(&next)
	}
	listeners := s.listeners
	s.mu.Unlock()

	if len(changed) > 0 {
		for _, fn := range listeners {
			fn(&next, changed)
		}
	}
	return changed
}
