package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed config.toml.sample
var configTemplate string

// Defaults applied when a field is missing from the config file.
const (
	DefaultDebounceWindow  = 300 * time.Millisecond
	DefaultRemoteTimeout   = 5 * time.Second
	DefaultRemoteLimit     = 50
	DefaultCacheCapacity   = 100
	DefaultHistoryCapacity = 20
	DefaultSuggestLimit    = 8
	DefaultMemoTTL         = 30 * time.Second
	DefaultListenAddr      = ":8787"
)

type Config struct {
	StorageDir string        `toml:"storage_dir"`
	Listen     string        `toml:"listen"`
	Remote     RemoteConfig  `toml:"remote"`
	Search     SearchConfig  `toml:"search"`
	Suggest    SuggestConfig `toml:"suggest"`
}

// RemoteConfig describes the remote search service.
type RemoteConfig struct {
	// Endpoint is the base URL of the remote search service. Empty
	// means no remote is configured and every query is served offline.
	Endpoint string `toml:"endpoint"`
	// Timeout bounds a single remote query attempt before the offline
	// fallback triggers.
	Timeout Duration `toml:"timeout"`
	Limit   int      `toml:"limit"`
	Fuzzy   bool     `toml:"fuzzy"`
}

type SearchConfig struct {
	DebounceWindow  Duration `toml:"debounce_window"`
	CacheCapacity   int      `toml:"cache_capacity"`
	HistoryCapacity int      `toml:"history_capacity"`
	// MemoTTL is how long an identical (query, filters) pair is served
	// from the in-memory memo without a remote round trip.
	MemoTTL Duration `toml:"memo_ttl"`
}

type SuggestConfig struct {
	Limit int `toml:"limit"`
	// Trending is the externally supplied popular-query list.
	Trending []string `toml:"trending"`
}

type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func GetDefaultConfig() (*Config, error) {
	storageDir, err := GetDefaultStorageDir()
	if err != nil {
		return nil, fmt.Errorf("getting default storage directory: %w", err)
	}
	cfg := &Config{StorageDir: storageDir}
	cfg.applyDefaults()
	return cfg, nil
}

func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return GetDefaultConfig()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if config.StorageDir == "" {
		storageDir, err := GetDefaultStorageDir()
		if err != nil {
			return nil, fmt.Errorf("getting default storage directory: %w", err)
		}
		config.StorageDir = storageDir
	}
	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = DefaultListenAddr
	}
	if c.Remote.Timeout.Duration == 0 {
		c.Remote.Timeout = Duration{DefaultRemoteTimeout}
	}
	if c.Remote.Limit == 0 {
		c.Remote.Limit = DefaultRemoteLimit
	}
	if c.Search.DebounceWindow.Duration == 0 {
		c.Search.DebounceWindow = Duration{DefaultDebounceWindow}
	}
	if c.Search.CacheCapacity == 0 {
		c.Search.CacheCapacity = DefaultCacheCapacity
	}
	if c.Search.HistoryCapacity == 0 {
		c.Search.HistoryCapacity = DefaultHistoryCapacity
	}
	if c.Search.MemoTTL.Duration == 0 {
		c.Search.MemoTTL = Duration{DefaultMemoTTL}
	}
	if c.Suggest.Limit == 0 {
		c.Suggest.Limit = DefaultSuggestLimit
	}
}

func (c *Config) SaveConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

// SaveTemplateConfig writes the commented sample config, used by init.
func (c *Config) SaveTemplateConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return os.WriteFile(configPath, []byte(configTemplate), 0644)
}

// GetDefaultStorageDir returns the default directory for the local store.
func GetDefaultStorageDir() (string, error) {
	// Use XDG_DATA_HOME if set, otherwise use ~/.local/share
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	dir := filepath.Join(dataDir, "fieldsearch")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating storage directory %s: %w", dir, err)
	}

	return dir, nil
}

// GetConfigDir returns the configuration directory for fieldsearch.
func GetConfigDir() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	dir := filepath.Join(configDir, "fieldsearch")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	return dir, nil
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}
