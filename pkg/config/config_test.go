package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Search.DebounceWindow.Duration != DefaultDebounceWindow {
		t.Errorf("expected default debounce window, got %v", cfg.Search.DebounceWindow)
	}
	if cfg.Remote.Timeout.Duration != DefaultRemoteTimeout {
		t.Errorf("expected default remote timeout, got %v", cfg.Remote.Timeout)
	}
	if cfg.Search.CacheCapacity != DefaultCacheCapacity {
		t.Errorf("expected default cache capacity, got %d", cfg.Search.CacheCapacity)
	}
	if cfg.Search.HistoryCapacity != DefaultHistoryCapacity {
		t.Errorf("expected default history capacity, got %d", cfg.Search.HistoryCapacity)
	}
	if cfg.Suggest.Limit != DefaultSuggestLimit {
		t.Errorf("expected default suggest limit, got %d", cfg.Suggest.Limit)
	}
	if cfg.StorageDir == "" {
		t.Error("expected a default storage dir")
	}
}

func TestLoadConfigParsesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
storage_dir = "` + dir + `"
listen = ":9900"

[remote]
endpoint = "https://search.example.com"
timeout = "2s"
limit = 25

[search]
debounce_window = "150ms"
cache_capacity = 10

[suggest]
limit = 5
trending = ["nearby projects"]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Listen != ":9900" {
		t.Errorf("expected listen :9900, got %q", cfg.Listen)
	}
	if cfg.Remote.Endpoint != "https://search.example.com" {
		t.Errorf("unexpected endpoint %q", cfg.Remote.Endpoint)
	}
	if cfg.Remote.Timeout.Duration != 2*time.Second {
		t.Errorf("expected 2s timeout, got %v", cfg.Remote.Timeout)
	}
	if cfg.Search.DebounceWindow.Duration != 150*time.Millisecond {
		t.Errorf("expected 150ms debounce, got %v", cfg.Search.DebounceWindow)
	}
	if cfg.Search.CacheCapacity != 10 {
		t.Errorf("expected cache capacity 10, got %d", cfg.Search.CacheCapacity)
	}
	// Unset fields still pick up defaults.
	if cfg.Search.HistoryCapacity != DefaultHistoryCapacity {
		t.Errorf("expected default history capacity, got %d", cfg.Search.HistoryCapacity)
	}
	if len(cfg.Suggest.Trending) != 1 || cfg.Suggest.Trending[0] != "nearby projects" {
		t.Errorf("unexpected trending list %v", cfg.Suggest.Trending)
	}
}

func TestSaveAndReloadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := &Config{StorageDir: dir}
	cfg.applyDefaults()
	cfg.Remote.Endpoint = "https://search.example.com"

	if err := cfg.SaveConfig(path); err != nil {
		t.Fatalf("saving config: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("reloading config: %v", err)
	}
	if loaded.Remote.Endpoint != cfg.Remote.Endpoint {
		t.Errorf("endpoint lost in round trip: %q", loaded.Remote.Endpoint)
	}
	if loaded.Search.DebounceWindow.Duration != DefaultDebounceWindow {
		t.Errorf("debounce lost in round trip: %v", loaded.Search.DebounceWindow)
	}
}

func TestSaveTemplateConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := &Config{}
	if err := cfg.SaveTemplateConfig(path); err != nil {
		t.Fatalf("saving template: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("template must parse: %v", err)
	}
	if len(loaded.Suggest.Trending) == 0 {
		t.Error("template should ship a trending list")
	}
}
