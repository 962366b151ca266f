package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tnicklin/birthday_countdown/timesync"
)

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.yaml")

	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{
			name: "valid config",
			content: `
logger:
  level: debug
  output_paths:
    - stdout
timesync:
  primary_url: https://time.example/api
  fallback_urls:
    - https://fallback.example/now
  sync_attempts: 5
  resync_interval: 30m
  max_offset: 2m
store:
  path: "test.db"
countdown:
  target: "2030-01-01"
`,
			wantErr: false,
		},
		{
			name:    "empty config",
			content: "",
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := os.WriteFile(configPath, []byte(tt.content), 0644); err != nil {
				t.Fatalf("Failed to write config file: %v", err)
			}

			cfg, err := Load(configPath)
			if (err != nil) != tt.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && cfg == nil {
				t.Error("Load() returned nil config without error")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Error("Load() should return error for missing file")
	}
}

func TestLoad_TimeSyncValues(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
timesync:
  primary_url: https://time.example/api
  fallback_urls:
    - https://a.example
    - https://b.example
  ntp_server: ntp.example
  sync_attempts: 5
  resync_interval: 30m
  max_offset: 2m
  request_timeout: 3s
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	ts := cfg.TimeSync
	if ts.PrimaryURL != "https://time.example/api" {
		t.Errorf("PrimaryURL = %q", ts.PrimaryURL)
	}
	if len(ts.FallbackURLs) != 2 || ts.FallbackURLs[1] != "https://b.example" {
		t.Errorf("FallbackURLs = %v", ts.FallbackURLs)
	}
	if ts.NTPServer != "ntp.example" {
		t.Errorf("NTPServer = %q", ts.NTPServer)
	}
	if ts.SyncAttempts != 5 {
		t.Errorf("SyncAttempts = %d, want 5", ts.SyncAttempts)
	}
	if ts.ResyncInterval != 30*time.Minute {
		t.Errorf("ResyncInterval = %v, want 30m", ts.ResyncInterval)
	}
	if ts.MaxOffset != 2*time.Minute {
		t.Errorf("MaxOffset = %v, want 2m", ts.MaxOffset)
	}
	if ts.RequestTimeout != 3*time.Second {
		t.Errorf("RequestTimeout = %v, want 3s", ts.RequestTimeout)
	}
}

func TestLoad_LaterFilesOverride(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "config.yaml")
	local := filepath.Join(dir, "local.yaml")

	if err := os.WriteFile(base, []byte("countdown:\n  target: \"2030-01-01\"\n  title: base\n"), 0644); err != nil {
		t.Fatalf("write base: %v", err)
	}
	if err := os.WriteFile(local, []byte("countdown:\n  target: \"2031-06-15\"\n"), 0644); err != nil {
		t.Fatalf("write local: %v", err)
	}

	cfg, err := Load(base, local, filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Countdown.Target != "2031-06-15" {
		t.Errorf("Countdown.Target = %q, want override", cfg.Countdown.Target)
	}
	if cfg.Countdown.Title != "base" {
		t.Errorf("Countdown.Title = %q, want base value kept", cfg.Countdown.Title)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.yaml")

	tests := []struct {
		name           string
		content        string
		wantLogLevel   string
		wantPrimaryURL string
		wantStorePath  string
	}{
		{
			name:           "applies defaults when values missing",
			content:        "logger:\n  level: \"\"\n",
			wantLogLevel:   "info",
			wantPrimaryURL: timesync.DefaultPrimaryURL,
			wantStorePath:  "data/countdown.db",
		},
		{
			name:           "respects provided values",
			content:        "logger:\n  level: debug\nstore:\n  path: custom.db\ntimesync:\n  primary_url: https://time.example\n",
			wantLogLevel:   "debug",
			wantPrimaryURL: "https://time.example",
			wantStorePath:  "custom.db",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := os.WriteFile(configPath, []byte(tt.content), 0644); err != nil {
				t.Fatalf("Failed to write config file: %v", err)
			}

			cfg, err := LoadWithDefaults(configPath)
			if err != nil {
				t.Fatalf("LoadWithDefaults() error = %v", err)
			}

			if cfg.Logger.Level != tt.wantLogLevel {
				t.Errorf("Logger.Level = %q, want %q", cfg.Logger.Level, tt.wantLogLevel)
			}
			if cfg.TimeSync.PrimaryURL != tt.wantPrimaryURL {
				t.Errorf("TimeSync.PrimaryURL = %q, want %q", cfg.TimeSync.PrimaryURL, tt.wantPrimaryURL)
			}
			if cfg.Store.Path != tt.wantStorePath {
				t.Errorf("Store.Path = %q, want %q", cfg.Store.Path, tt.wantStorePath)
			}
			if cfg.TimeSync.SyncAttempts != 3 {
				t.Errorf("TimeSync.SyncAttempts = %d, want 3", cfg.TimeSync.SyncAttempts)
			}
			if cfg.Countdown.Target == "" {
				t.Error("Countdown.Target not defaulted")
			}
		})
	}
}

func TestLoad_ShippedConfig(t *testing.T) {
	cfg, err := LoadWithDefaults("config.yaml")
	if err != nil {
		t.Fatalf("LoadWithDefaults(config.yaml) error = %v", err)
	}
	if cfg.TimeSync.NTPServer != "pool.ntp.org" {
		t.Errorf("NTPServer = %q", cfg.TimeSync.NTPServer)
	}
	if got := len(timesync.BuildSources(cfg.TimeSync)); got != 4 {
		t.Errorf("shipped config builds %d sources, want 4", got)
	}
}
