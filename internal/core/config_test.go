package core

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}
	return configPath
}

func TestLoadConfig_Success(t *testing.T) {
	configPath := writeConfig(t, `port: 9090
logLevel: debug
capture:
  quota: 3
  intervalSeconds: 2
  width: 320
  height: 240
camera:
  name: testpattern
  width: 800
  height: 600
detector:
  name: remote
  modelURI: http://models.local/manifest.json
  endpoint: http://detector.local/detect
  minConfidence: 0.7
auth:
  endpoint: http://auth.local/login
  timeoutSeconds: 3
tokenStore:
  type: sqlite
  connectionString: ":memory:"
roster:
  students:
    - id: 7
      name: Ada
    - id: 8
      name: Grace
`)

	config, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Port != 9090 {
		t.Errorf("Expected port to be 9090, got %d", config.Port)
	}
	if config.SlogLevel() != slog.LevelDebug {
		t.Errorf("Expected debug log level, got %v", config.SlogLevel())
	}
	settings := config.CaptureSettings()
	if settings.Quota != 3 || settings.Interval != 2*time.Second || settings.Width != 320 || settings.Height != 240 {
		t.Errorf("Unexpected capture settings %+v", settings)
	}
	if settings.ModelURI != "http://models.local/manifest.json" {
		t.Errorf("Expected model uri to be passed to the capture session, got %q", settings.ModelURI)
	}
	if config.Camera.Name != "testpattern" || config.Camera.Params["width"] != 800 {
		t.Errorf("Unexpected camera config %+v", config.Camera)
	}
	if config.Detector.Params["endpoint"] != "http://detector.local/detect" {
		t.Errorf("Expected detector endpoint as inline param, got %+v", config.Detector.Params)
	}
	if _, ok := config.Detector.Params["modelURI"]; ok {
		t.Error("modelURI must not be passed as detector param")
	}
	if config.Auth.Endpoint != "http://auth.local/login" || config.Auth.TimeoutSeconds != 3 {
		t.Errorf("Unexpected auth config %+v", config.Auth)
	}
	if config.TokenStore.Type != "sqlite" || config.TokenStore.ConnectionString != ":memory:" {
		t.Errorf("Unexpected token store config %+v", config.TokenStore)
	}
	if len(config.Roster.Students) != 2 || config.Roster.Students[1].Name != "Grace" {
		t.Errorf("Unexpected roster %+v", config.Roster.Students)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	configPath := writeConfig(t, `camera:
  name: testpattern
detector:
  name: remote
  endpoint: http://detector.local/detect
`)

	config, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", config.Port)
	}
	settings := config.CaptureSettings()
	if settings.Quota != 5 || settings.Interval != 12*time.Second || settings.Width != 640 || settings.Height != 480 {
		t.Errorf("Unexpected default capture settings %+v", settings)
	}
	if config.Auth.Endpoint != "http://localhost:3000/login" {
		t.Errorf("Unexpected default auth endpoint %q", config.Auth.Endpoint)
	}
	if config.TokenStore.Type != "memory" {
		t.Errorf("Expected in-memory token store by default, got %q", config.TokenStore.Type)
	}
	if len(config.Roster.Students) != 3 || config.Roster.Students[0].Name != "Sabari" {
		t.Errorf("Expected the default roster, got %+v", config.Roster.Students)
	}
	if config.SlogLevel() != slog.LevelInfo {
		t.Errorf("Expected info log level, got %v", config.SlogLevel())
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantError string
	}{
		{
			name:      "missing camera",
			content:   "detector:\n  name: remote\n",
			wantError: "camera has empty name",
		},
		{
			name:      "unknown camera",
			content:   "camera:\n  name: webcam9000\ndetector:\n  name: remote\n",
			wantError: "unknown camera",
		},
		{
			name:      "missing detector",
			content:   "camera:\n  name: testpattern\n",
			wantError: "detector has empty name",
		},
		{
			name:      "unknown detector",
			content:   "camera:\n  name: testpattern\ndetector:\n  name: magic\n",
			wantError: "unknown detector",
		},
		{
			name:      "negative quota",
			content:   "capture:\n  quota: -1\ncamera:\n  name: testpattern\ndetector:\n  name: remote\n",
			wantError: "must be positive",
		},
		{
			name:      "bad log level",
			content:   "logLevel: loud\ncamera:\n  name: testpattern\ndetector:\n  name: remote\n",
			wantError: "unknown log level",
		},
		{
			name: "duplicate student",
			content: `camera:
  name: testpattern
detector:
  name: remote
roster:
  students:
    - id: 1
      name: A
    - id: 1
      name: B
`,
			wantError: "duplicate student id",
		},
		{
			name:      "malformed yaml",
			content:   "port: [",
			wantError: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Expected an error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantError) {
				t.Errorf("Expected error containing %q, got %v", tt.wantError, err)
			}
			if config != nil {
				t.Error("Expected config to be nil on error")
			}
		})
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	config, err := LoadConfig("/path/that/does/not/exist/config.yaml")
	if err == nil {
		t.Fatal("Expected error for non-existent file, got nil")
	}
	if config != nil {
		t.Error("Expected config to be nil when file doesn't exist")
	}
}
