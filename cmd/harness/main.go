package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethpandaops/xcli/pkg/cli"
	"github.com/ethpandaops/xcli/pkg/ui"
	"github.com/ethpandaops/xcli/pkg/version"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Build-time variables set via ldflags.
var (
	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

func init() {
	version.Version = buildVersion
	version.Commit = buildCommit
	version.Date = buildDate
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		cancel()
	}()

	logWriter := ui.NewConditionalWriter(os.Stdout, true)
	log := logrus.New()
	log.SetOutput(logWriter)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	rootCmd := &cobra.Command{
		Use:     "harness",
		Short:   "Runs and supervises a heterogeneous stack of processes, containers and remote services",
		Long:    `harness starts, stops, and health-monitors a dependency-ordered set of services described in a stack definition file.`,
		Version: version.GetFullVersion(),
	}

	var (
		configPath string
		logLevel   string
		quiet      bool
	)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "harness.yaml", "Path to the stack definition file")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress log output (command results still print)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return err
		}

		log.SetLevel(level)
		logWriter.SetEnabled(!quiet)

		return nil
	}

	rootCmd.AddCommand(cli.NewInitCommand(log, configPath))
	rootCmd.AddCommand(cli.NewStartCommand(log, configPath))
	rootCmd.AddCommand(cli.NewStopCommand(log, configPath))
	rootCmd.AddCommand(cli.NewStatusCommand(log, configPath))
	rootCmd.AddCommand(cli.NewLogsCommand(log, configPath))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.WithError(err).Error("command failed")
		os.Exit(1)
	}
}
