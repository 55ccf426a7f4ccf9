package coordinator

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadProviderConfigs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcp.json")
	body := `{
  "servers": {
    "calc": {
      "description": "Calculator tools",
      "type": "local",
      "transport": "stdio",
      "command": "npx -y calc-server",
      "env": {"CALC_MODE": "strict"},
      "timeout_ms": 5000
    },
    "notes": {
      "transport": "stdio",
      "command": "notes-server",
      "args": ["--db", "notes.db"]
    }
  }
}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write providers file: %v", err)
	}

	configs, err := LoadProviderConfigs(path)
	if err != nil {
		t.Fatalf("load provider configs: %v", err)
	}
	if len(configs) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(configs))
	}

	calc := configs["calc"]
	if calc.ID != "calc" {
		t.Fatalf("expected id from map key, got %q", calc.ID)
	}
	if calc.Transport != TransportStdio {
		t.Fatalf("expected stdio transport, got %q", calc.Transport)
	}
	if calc.Env["CALC_MODE"] != "strict" {
		t.Fatalf("expected env carried, got %v", calc.Env)
	}
	if calc.SetupTimeout() != 5*time.Second {
		t.Fatalf("expected 5s setup timeout, got %v", calc.SetupTimeout())
	}

	notes := configs["notes"]
	if notes.SetupTimeout() != 10*time.Second {
		t.Fatalf("expected default setup timeout, got %v", notes.SetupTimeout())
	}
}

func TestLoadProviderConfigs_MissingFileIsFatal(t *testing.T) {
	if _, err := LoadProviderConfigs(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatalf("expected error for missing providers file")
	}
}

func TestProviderConfig_CommandLine(t *testing.T) {
	cfg := ProviderConfig{ID: "calc", Command: "npx -y calc-server", Args: []string{"--fast"}}
	argv, err := cfg.CommandLine()
	if err != nil {
		t.Fatalf("command line: %v", err)
	}
	want := []string{"npx", "-y", "calc-server", "--fast"}
	if len(argv) != len(want) {
		t.Fatalf("expected %v, got %v", want, argv)
	}
	for i := range want {
		if argv[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, argv)
		}
	}
}

func TestProviderConfig_CommandLineEmpty(t *testing.T) {
	cfg := ProviderConfig{ID: "calc"}
	if _, err := cfg.CommandLine(); err == nil {
		t.Fatalf("expected error for empty command")
	}
}
