package internal

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/noted/internal/apperr"
	pkgconfig "github.com/starford/noted/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
	if cfg.DefaultUser != "local" {
		t.Errorf("default user = %q, want local", cfg.DefaultUser)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Tokens: map[string]string{"secret": "alice"}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with tokens should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeWithFileOnly(t *testing.T) {
	cfg := AuthConfig{Mode: "token", TokensFile: "tokens.yaml"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with tokens_file should pass: %v", err)
	}
}

func TestAuthConfig_TokenModeNoTokens(t *testing.T) {
	cfg := AuthConfig{Mode: "token"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode without tokens should fail")
	}
	if !strings.Contains(err.Error(), "no tokens") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_EmptyTokenEntry(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Tokens: map[string]string{"secret": ""}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty user should fail validation")
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestClientConfig(t *testing.T) {
	remote := ClientConfig{ServerURL: "http://localhost:8080"}
	if err := remote.Validate(); err != nil {
		t.Fatalf("remote config should not need a local path: %v", err)
	}
	if !remote.Remote() {
		t.Error("server url set, Remote() = false")
	}

	local := ClientConfig{}
	if err := local.Validate(); err == nil {
		t.Fatal("local mode without local_path should fail")
	}
}

func TestAutosaveConfig(t *testing.T) {
	cfg := NewDefaultConfig().Autosave
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default autosave config should pass: %v", err)
	}

	cfg.SwitchPolicy = "later"
	if err := cfg.Validate(); !errors.Is(err, apperr.ErrValidationFailed) {
		t.Errorf("bad switch policy err = %v", err)
	}

	cfg = NewDefaultConfig().Autosave
	cfg.QuietPeriod = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero quiet period should fail")
	}
	if got := len(NewDefaultConfig().Autosave.EditorOptions()); got != 4 {
		t.Errorf("editor options = %d, want 4", got)
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	t.Setenv("NOTED_TEST_TOKEN", "s3cret")
	data := `
app:
  http:
    port: 9090
sqlite:
  path: ` + filepath.Join(dir, "noted.db") + `
auth:
  mode: token
  tokens:
    ${NOTED_TEST_TOKEN}: alice
autosave:
  quiet_period: 500ms
  switch_policy: cancel
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.App.HTTP.Port)
	}
	if cfg.Auth.Tokens["s3cret"] != "alice" {
		t.Errorf("tokens = %v", cfg.Auth.Tokens)
	}
	if cfg.Autosave.QuietPeriod != 500*time.Millisecond {
		t.Errorf("quiet period = %v", cfg.Autosave.QuietPeriod)
	}
	if cfg.Autosave.MaxRetries != 3 {
		t.Errorf("max retries = %d, defaults should survive", cfg.Autosave.MaxRetries)
	}
	if cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("cache ttl = %v", cfg.Cache.TTL)
	}
}
