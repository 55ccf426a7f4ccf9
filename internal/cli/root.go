// Package cli wires Cobra subcommands to application dependencies; it is a
// thin controller with no business logic.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/byOdysea/laserfocus-host/internal/bootstrap"
	"github.com/byOdysea/laserfocus-host/internal/config"
	"github.com/byOdysea/laserfocus-host/internal/logging"
)

// NewRootCmd creates the root command and registers all subcommands.
func NewRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "laserfocus",
		Short: "Laserfocus conversational agent host",
		// Let main handle fatal error rendering through structured logs.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if verbose {
				logging.SetLevel(slog.LevelInfo)
			} else {
				logging.SetLevel(slog.LevelWarn)
			}

			// The config command only reads and prints merged config and should
			// not trigger bootstrap/first-run onboarding behavior.
			if cmd.Name() == "config" {
				return nil
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			configPath := filepath.Join(cfg.HomeDir, "config.toml")
			firstRun := false
			if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
				firstRun = true
			} else if err != nil {
				return fmt.Errorf("stat config file %q: %w", configPath, err)
			}

			if err := bootstrap.Initialize(cfg); err != nil {
				return err
			}

			if firstRun {
				// First-run bootstrap is an onboarding path, not a fatal error.
				// Print guidance and exit cleanly so logs do not report failures.
				if _, err := fmt.Fprintf(
					cmd.ErrOrStderr(),
					"First run setup complete.\nEdit config file: %s\nConfigure tool providers: %s\nRestart laserfocus.\n",
					configPath,
					cfg.Host.ProvidersFile,
				); err != nil {
					return err
				}
				os.Exit(0)
			}

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Default to `laserfocus console` when no subcommand is provided.
			consoleCmd, _, err := cmd.Find([]string{"console"})
			if err != nil {
				return err
			}
			consoleCmd.SetContext(cmd.Context())
			return consoleCmd.RunE(consoleCmd, args)
		},
	}

	root.AddCommand(newConsoleCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging (info level)")

	return root
}
