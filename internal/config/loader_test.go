package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

// TestLoad_Defaults tests that a missing file yields the defaults.
func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.Engrams.AutoPromote {
		t.Error("Engrams.AutoPromote = true, want false")
	}
	if cfg.Engrams.MaxTokens != 8000 {
		t.Errorf("Engrams.MaxTokens = %d, want 8000", cfg.Engrams.MaxTokens)
	}
	if cfg.Engrams.MinRelevance != 0.3 {
		t.Errorf("Engrams.MinRelevance = %v, want 0.3", cfg.Engrams.MinRelevance)
	}
	if cfg.Search.MaxResults != 20 || cfg.Search.SnippetLength != 500 {
		t.Errorf("Search = %+v, want 20/500", cfg.Search)
	}
	if !cfg.Hints.Enabled {
		t.Error("Hints.Enabled = false, want true")
	}
	if cfg.Server.ShutdownTimeout.Duration() != 10*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want 10s", cfg.Server.ShutdownTimeout.Duration())
	}
}

// TestLoad_ValidYAML tests loading values from the file.
func TestLoad_ValidYAML(t *testing.T) {
	path := writeConfig(t, `version: 2
engrams:
  auto_promote: true
  max_tokens: 400
packs:
  trusted_publishers: [fyrsmith, datacore]
  registry:
    - id: go-practices
      name: Go Practices
      version: 1.0.0
      source: https://example.com/go-practices.git
search:
  max_results: 5
hints:
  enabled: false
server:
  shutdown_timeout: 3s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if !cfg.Engrams.AutoPromote {
		t.Error("Engrams.AutoPromote = false, want true")
	}
	if cfg.Engrams.MaxTokens != 400 {
		t.Errorf("Engrams.MaxTokens = %d, want 400", cfg.Engrams.MaxTokens)
	}
	if cfg.Engrams.MinRelevance != 0.3 {
		t.Errorf("Engrams.MinRelevance = %v, want default 0.3", cfg.Engrams.MinRelevance)
	}
	if len(cfg.Packs.TrustedPublishers) != 2 {
		t.Errorf("Packs.TrustedPublishers = %v, want 2 entries", cfg.Packs.TrustedPublishers)
	}
	if !cfg.IsTrustedPublisher("datacore") || cfg.IsTrustedPublisher("stranger") || cfg.IsTrustedPublisher("") {
		t.Error("IsTrustedPublisher() mismatch")
	}
	if len(cfg.Packs.Registry) != 1 || cfg.Packs.Registry[0].ID != "go-practices" {
		t.Errorf("Packs.Registry = %+v", cfg.Packs.Registry)
	}
	if cfg.Search.MaxResults != 5 {
		t.Errorf("Search.MaxResults = %d, want 5", cfg.Search.MaxResults)
	}
	if cfg.Search.SnippetLength != 500 {
		t.Errorf("Search.SnippetLength = %d, want default 500", cfg.Search.SnippetLength)
	}
	if cfg.Hints.Enabled {
		t.Error("Hints.Enabled = true, want false")
	}
	if cfg.Server.ShutdownTimeout.Duration() != 3*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want 3s", cfg.Server.ShutdownTimeout.Duration())
	}

	eng := cfg.EngineConfig()
	if !eng.AutoPromote || eng.MaxTokens != 400 {
		t.Errorf("EngineConfig() = %+v", eng)
	}
}

// TestLoad_EnvOverride tests that environment variables win over the file.
func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "engrams:\n  max_tokens: 400\n")
	t.Setenv("ENGRAMD_ENGRAMS_MAX_TOKENS", "1200")
	t.Setenv("ENGRAMD_ENGRAMS_AUTO_PROMOTE", "true")
	t.Setenv("ENGRAMD_SERVER_HTTP_PORT", "9300")
	t.Setenv("ENGRAMD_LOGGING_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if cfg.Engrams.MaxTokens != 1200 {
		t.Errorf("Engrams.MaxTokens = %d, want 1200", cfg.Engrams.MaxTokens)
	}
	if !cfg.Engrams.AutoPromote {
		t.Error("Engrams.AutoPromote = false, want true")
	}
	if cfg.Server.Port != 9300 {
		t.Errorf("Server.Port = %d, want 9300", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

// TestLoad_InvalidYAML tests that a malformed file is reported.
func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "engrams: [unclosed\n")
	if _, err := Load(path); err == nil {
		t.Fatal("Load() error = nil, want parse error")
	}
}

// TestLoad_ValidationErrors tests that every invalid field is listed.
func TestLoad_ValidationErrors(t *testing.T) {
	path := writeConfig(t, `engrams:
  max_tokens: 10
search:
  max_results: 0
logging:
  level: loud
`)

	_, err := Load(path)
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("Load() error = %v, want ValidationErrors", err)
	}
	if len(verrs) != 3 {
		t.Errorf("len(ValidationErrors) = %d, want 3: %v", len(verrs), err)
	}
	msg := err.Error()
	for _, want := range []string{"Config.Engrams.MaxTokens", "Config.Search.MaxResults", "must be one of"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing %q", msg, want)
		}
	}
}

// TestLoad_TooLarge tests the file size limit.
func TestLoad_TooLarge(t *testing.T) {
	path := writeConfig(t, "# "+strings.Repeat("x", maxConfigFileSize)+"\n")
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Fatalf("Load() error = %v, want size error", err)
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"ENGRAMD_ENGRAMS_AUTO_PROMOTE":  "engrams.auto_promote",
		"ENGRAMD_SEARCH_SNIPPET_LENGTH": "search.snippet_length",
		"ENGRAMD_VERSION":               "version",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}
