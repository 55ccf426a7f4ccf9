package bootstrap

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/byOdysea/laserfocus-host/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	home := filepath.Join(t.TempDir(), ".laserfocus")
	cfg := &config.Config{HomeDir: home}
	cfg.Host.ProvidersFile = filepath.Join(home, "mcp.json")
	return cfg
}

func TestInitialize_CreatesHomeTree(t *testing.T) {
	cfg := testConfig(t)

	if err := Initialize(cfg); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	configBody, err := os.ReadFile(filepath.Join(cfg.HomeDir, "config.toml"))
	if err != nil {
		t.Fatalf("read config.toml: %v", err)
	}
	if !strings.Contains(string(configBody), "api_key") {
		t.Fatalf("expected starter config with api_key field, got %s", configBody)
	}

	providersBody, err := os.ReadFile(cfg.Host.ProvidersFile)
	if err != nil {
		t.Fatalf("read providers file: %v", err)
	}
	if !strings.Contains(string(providersBody), `"servers"`) {
		t.Fatalf("expected starter providers file, got %s", providersBody)
	}
}

func TestInitialize_DoesNotOverwriteExistingFiles(t *testing.T) {
	cfg := testConfig(t)
	if err := os.MkdirAll(cfg.HomeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	existing := `{"servers": {"calc": {"transport": "stdio", "command": "calc-server"}}}`
	if err := os.WriteFile(cfg.Host.ProvidersFile, []byte(existing), 0o644); err != nil {
		t.Fatalf("write providers file: %v", err)
	}

	if err := Initialize(cfg); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	body, err := os.ReadFile(cfg.Host.ProvidersFile)
	if err != nil {
		t.Fatalf("read providers file: %v", err)
	}
	if string(body) != existing {
		t.Fatalf("expected existing providers file untouched, got %s", body)
	}
}

func TestInitialize_Idempotent(t *testing.T) {
	cfg := testConfig(t)
	if err := Initialize(cfg); err != nil {
		t.Fatalf("first initialize: %v", err)
	}
	if err := Initialize(cfg); err != nil {
		t.Fatalf("second initialize: %v", err)
	}
}
