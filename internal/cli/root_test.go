package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// primeHome points LASERFOCUS_HOME at a temp dir with a config file already
// present, so commands do not take the first-run onboarding path.
func primeHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("LASERFOCUS_HOME", home)
	if err := os.WriteFile(filepath.Join(home, "config.toml"), []byte("[llm.default]\napi_key = \"k\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return home
}

func TestRootCmd_RegistersSubcommands(t *testing.T) {
	root := NewRootCmd()

	for _, name := range []string{"console", "serve", "config", "version"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Fatalf("expected %q subcommand, got %v (err: %v)", name, cmd, err)
		}
	}
}

func TestVersionCmd_PrintsVersion(t *testing.T) {
	primeHome(t)

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"version"})

	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("execute version: %v", err)
	}
	if !strings.Contains(out.String(), "laserfocus") {
		t.Fatalf("expected version output, got %q", out.String())
	}
}

func TestConfigCmd_PrintsMergedTOML(t *testing.T) {
	primeHome(t)

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"config"})

	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("execute config: %v", err)
	}
	rendered := out.String()
	if !strings.Contains(rendered, "max_history") || !strings.Contains(rendered, "api_key") {
		t.Fatalf("expected merged config output, got %q", rendered)
	}
}

func TestRootCmd_BootstrapCreatesProvidersFile(t *testing.T) {
	home := primeHome(t)

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"version"})

	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, "mcp.json")); err != nil {
		t.Fatalf("expected providers file created by bootstrap: %v", err)
	}
}
