package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t, `
backend:
  base_url: "http://backend.local:3000"
storage:
  path: "data/test.db"
sync:
  drain_interval_ms: 250
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Backend.BaseURL != "http://backend.local:3000" {
		t.Errorf("expected backend base url, got %s", cfg.Backend.BaseURL)
	}
	if cfg.Sync.DrainIntervalMS != 250 {
		t.Errorf("expected drain interval 250, got %d", cfg.Sync.DrainIntervalMS)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeTempConfig(t, `
backend:
  base_url: "http://backend.local:3000"
storage:
  path: "data/test.db"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.DrainInterval() != time.Second {
		t.Errorf("expected default drain interval 1s, got %v", cfg.DrainInterval())
	}
	if cfg.PollInterval() != 500*time.Millisecond {
		t.Errorf("expected default poll interval 500ms, got %v", cfg.PollInterval())
	}
	if cfg.FeedInterval() != 2*time.Second {
		t.Errorf("expected default feed interval 2s, got %v", cfg.FeedInterval())
	}
	if cfg.API.Port != 8080 {
		t.Errorf("expected default api port 8080, got %d", cfg.API.Port)
	}
	if cfg.API.Auth.HeaderAPIKey != "x-api-key" {
		t.Errorf("expected default api key header, got %s", cfg.API.Auth.HeaderAPIKey)
	}
	if cfg.BackendTimeout() != 10*time.Second {
		t.Errorf("expected default backend timeout 10s, got %v", cfg.BackendTimeout())
	}
}

func TestLoadConfigExpandsEnv(t *testing.T) {
	t.Setenv("TEST_BACKEND_URL", "http://from-env:3000")

	path := writeTempConfig(t, `
backend:
  base_url: "${TEST_BACKEND_URL}"
storage:
  path: "data/test.db"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Backend.BaseURL != "http://from-env:3000" {
		t.Errorf("expected env-expanded base url, got %s", cfg.Backend.BaseURL)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Config{
				Backend: BackendConfig{BaseURL: "http://backend:3000"},
				Storage: StorageConfig{Path: "data/test.db"},
			},
			wantErr: false,
		},
		{
			name: "missing backend url",
			cfg: Config{
				Storage: StorageConfig{Path: "data/test.db"},
			},
			wantErr: true,
		},
		{
			name: "missing storage path",
			cfg: Config{
				Backend: BackendConfig{BaseURL: "http://backend:3000"},
			},
			wantErr: true,
		},
		{
			name: "telegram token without chat id",
			cfg: Config{
				Backend:  BackendConfig{BaseURL: "http://backend:3000"},
				Storage:  StorageConfig{Path: "data/test.db"},
				Telegram: TelegramConfig{BotToken: "token"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
