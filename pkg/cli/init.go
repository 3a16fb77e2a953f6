package cli

import (
	"fmt"
	"os"

	"github.com/ethpandaops/xcli/pkg/ui"
	"github.com/ethpandaops/xcli/pkg/version"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewInitCommand creates the "init" command, which interactively scaffolds
// a new stack definition file with a single process-backed service.
func NewInitCommand(log logrus.FieldLogger, configPath string) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Scaffold a new stack definition file",
		Long:  `Interactively creates a harness stack definition with one process-backed service to get started.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(log, configPath)
		},
	}
}

func runInit(log logrus.FieldLogger, configPath string) error {
	ui.PrintCompactBanner(version.GetVersion())

	if _, err := os.Stat(configPath); err == nil {
		overwrite, err := ui.ConfirmWithDefault(fmt.Sprintf("%s already exists, overwrite?", configPath), false)
		if err != nil {
			return err
		}

		if !overwrite {
			ui.Info("Initialization cancelled")

			return nil
		}
	}

	name, err := ui.TextInputRequired("Service name")
	if err != nil {
		return err
	}

	binary, err := ui.TextInputRequired("Binary to run")
	if err != nil {
		return err
	}

	kind, err := ui.Select("Health check kind", []ui.SelectOption{
		{Label: "none", Value: "none"},
		{Label: "command", Value: "command", Description: "run a command, check its exit code"},
		{Label: "tcp", Value: "tcp", Description: "dial a host:port"},
	})
	if err != nil {
		return err
	}

	spec := ServiceSpec{
		Name: name,
		Kind: "process",
		Process: &ProcessSpec{
			Binary: binary,
		},
	}

	if kind == "tcp" {
		spec.Health = &HealthSpec{Kind: "tcp", Host: "127.0.0.1", Port: 8080, Interval: "5s", Timeout: "2s", Retries: 2}
	} else if kind == "command" {
		spec.Health = &HealthSpec{Kind: "command", Argv: []string{"true"}, Interval: "5s", Timeout: "2s", Retries: 2}
	}

	cfg := Config{Services: []ServiceSpec{spec}}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal stack definition: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}

	log.WithField("file", configPath).Info("stack definition created")
	ui.Success(fmt.Sprintf("Created %s", configPath))
	ui.Header("Next steps")
	fmt.Printf("  1. Review and edit %s\n", configPath)
	fmt.Printf("  2. Run 'harness start' to bring the stack up\n\n")

	return nil
}
