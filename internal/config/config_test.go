// config_test.go - Tests for YAML configuration
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_CreatesDefaultWhenMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docgen.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("default config file was not written: %v", err)
	}
	if cfg.ServerURL != "http://localhost:8000" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.ParseDelay() != time.Second {
		t.Errorf("ParseDelay = %v, want 1s", cfg.ParseDelay())
	}
	if cfg.ReconnectDelay() != 3*time.Second {
		t.Errorf("ReconnectDelay = %v, want 3s", cfg.ReconnectDelay())
	}
}

func TestLoad_ReadsExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docgen.yaml")

	content := []byte("server_url: http://example.test:9000\nparse_delay_millis: 250\ndownload_dir: out\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServerURL != "http://example.test:9000" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.ParseDelayMillis != 250 {
		t.Errorf("ParseDelayMillis = %d", cfg.ParseDelayMillis)
	}
	// Unset fields keep defaults.
	if cfg.ReconnectDelayMillis != 3000 {
		t.Errorf("ReconnectDelayMillis = %d, want default 3000", cfg.ReconnectDelayMillis)
	}
	// Relative paths resolve against the config directory.
	if want := filepath.Join(dir, "out"); cfg.DownloadDir != want {
		t.Errorf("DownloadDir = %q, want %q", cfg.DownloadDir, want)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("DOCGEN_SERVER_URL", "http://override.test:1234")
	t.Setenv("DOCGEN_DOWNLOAD_DIR", "/tmp/docgen-out")

	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "docgen.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServerURL != "http://override.test:1234" {
		t.Errorf("ServerURL = %q, override not applied", cfg.ServerURL)
	}
	if cfg.DownloadDir != "/tmp/docgen-out" {
		t.Errorf("DownloadDir = %q, override not applied", cfg.DownloadDir)
	}
}

func TestWebSocketURL(t *testing.T) {
	tests := []struct {
		name      string
		serverURL string
		wsPath    string
		want      string
		wantErr   bool
	}{
		{
			name:      "http becomes ws",
			serverURL: "http://localhost:8000",
			wsPath:    "/ws/progress",
			want:      "ws://localhost:8000/ws/progress",
		},
		{
			name:      "https becomes wss",
			serverURL: "https://docgen.example.test",
			wsPath:    "/ws/progress",
			want:      "wss://docgen.example.test/ws/progress",
		},
		{
			name:      "base path is preserved",
			serverURL: "http://host:8000/api-root/",
			wsPath:    "/ws/progress",
			want:      "ws://host:8000/api-root/ws/progress",
		},
		{
			name:      "missing scheme",
			serverURL: "localhost:8000",
			wsPath:    "/ws/progress",
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.ServerURL = tt.serverURL
			cfg.WebSocketPath = tt.wsPath

			got, err := cfg.WebSocketURL()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("WebSocketURL() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("WebSocketURL() = %q, want %q", got, tt.want)
			}
		})
	}
}
