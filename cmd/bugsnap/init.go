package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yukino-dev/bugsnap/internal/config"
)

//go:embed templates/bugsnap.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new bugsnap configuration file",
		Long: `Init creates a new ` + config.DefaultConfigFile + ` configuration file in the
current directory.

The generated file includes:
- A working local-storage setup pointed at the development backend
- Commented examples for the proxy and presigned storage modes
- Documentation for privacy masking and capture limits

Examples:
  # Create ` + config.DefaultConfigFile + ` in current directory
  bugsnap init

  # Create config file at a specific path
  bugsnap init -o myconfig.yaml

  # Force overwrite existing file
  bugsnap init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/bugsnap.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(cmd.OutOrStdout(), "\nEdit this file to configure:")
	fmt.Fprintln(cmd.OutOrStdout(), "  - The report endpoint and storage mode")
	fmt.Fprintln(cmd.OutOrStdout(), "  - Privacy masking selectors and redaction patterns")
	fmt.Fprintln(cmd.OutOrStdout(), "  - Capture limits and feature toggles")

	return nil
}
