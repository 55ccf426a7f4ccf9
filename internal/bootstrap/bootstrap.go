// Package bootstrap creates the host home tree on first run.
package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/byOdysea/laserfocus-host/internal/config"
)

// starterProviders is the providers file written on first run: an empty
// server map the operator fills in.
const starterProviders = `{
  "servers": {}
}
`

// Initialize creates the home directory, a starter config.toml, and a
// starter providers file if they do not exist yet. Existing files are never
// touched.
func Initialize(cfg *config.Config) error {
	if err := os.MkdirAll(cfg.HomeDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", cfg.HomeDir, err)
	}

	userConfig, err := config.DefaultUserConfigTOML()
	if err != nil {
		return err
	}

	files := []struct {
		path    string
		content string
	}{
		{path: filepath.Join(cfg.HomeDir, "config.toml"), content: userConfig},
		{path: cfg.Host.ProvidersFile, content: starterProviders},
	}

	for _, file := range files {
		if err := writeFileIfMissing(file.path, file.content); err != nil {
			return err
		}
	}
	return nil
}

func writeFileIfMissing(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %q: %w", path, err)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write file %q: %w", path, err)
	}
	return nil
}
