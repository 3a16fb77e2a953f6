package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	execpkg "github.com/ethpandaops/xcli/pkg/exec"
	"github.com/ethpandaops/xcli/pkg/service"
	"github.com/ethpandaops/xcli/pkg/ui"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewStartCommand creates the "start" command. With no service name, every
// service is started in dependency order; with one, only that service and
// its transitive dependencies are.
func NewStartCommand(log logrus.FieldLogger, configPath string) *cobra.Command {
	return &cobra.Command{
		Use:   "start [service]",
		Short: "Start one or all stack services",
		Long:  `Start a named service (and its dependencies) or, with no argument, every service in dependency order.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := BuildManager(configPath, log)
			if err != nil {
				return err
			}

			if len(args) == 0 {
				return ui.WithSpinner("Starting stack", func() error {
					return mgr.StartAll(cmd.Context())
				})
			}

			return ui.WithSpinner(fmt.Sprintf("Starting %s", args[0]), func() error {
				return mgr.Start(cmd.Context(), args[0])
			})
		},
	}
}

// NewStopCommand creates the "stop" command.
func NewStopCommand(log logrus.FieldLogger, configPath string) *cobra.Command {
	return &cobra.Command{
		Use:   "stop [service]",
		Short: "Stop one or all stack services",
		Long:  `Stop a named service or, with no argument, every running service in reverse dependency order.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := BuildManager(configPath, log)
			if err != nil {
				return err
			}

			if len(args) == 0 {
				return ui.WithSpinner("Stopping stack", func() error {
					return mgr.StopAll(cmd.Context())
				})
			}

			return ui.WithSpinner(fmt.Sprintf("Stopping %s", args[0]), func() error {
				return mgr.Stop(cmd.Context(), args[0])
			})
		},
	}
}

// NewStatusCommand creates the "status" command, rendering a pterm table
// of every configured service's process status and health state.
func NewStatusCommand(log logrus.FieldLogger, configPath string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show status and health of stack services",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := BuildManager(configPath, log)
			if err != nil {
				return err
			}

			rows := make([]ui.Service, 0, len(mgr.Configs()))

			for _, cfg := range mgr.Configs() {
				status := mgr.Status(cfg.Name)
				health := mgr.Health(cfg.Name)

				rows = append(rows, ui.Service{
					Name:   cfg.Name,
					Kind:   string(cfg.Kind),
					Status: statusLabel(status),
					Health: healthLabel(health),
				})
			}

			ui.ServiceTable(rows)

			return nil
		},
	}
}

// NewLogsCommand creates the "logs" command, streaming a service's event
// fan-out as either human-readable lines or the spec §6 JSON envelope.
func NewLogsCommand(log logrus.FieldLogger, configPath string) *cobra.Command {
	var (
		asJSON bool
		follow bool
	)

	cmd := &cobra.Command{
		Use:   "logs <service>",
		Short: "Stream a running service's events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := BuildManager(configPath, log)
			if err != nil {
				return err
			}

			name := args[0]

			_, events, ok := mgr.Subscribe(name)
			if !ok {
				return fmt.Errorf("service %q is not running", name)
			}

			if follow {
				return runFollowViewer(cmd.Context(), name, events)
			}

			return streamEvents(cmd.Context(), cmd.OutOrStdout(), name, events, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print each event as a spec-shaped JSON envelope")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Open a live full-screen log viewer")

	return cmd
}

func streamEvents(ctx context.Context, out io.Writer, name string, events <-chan execpkg.Event, asJSON bool) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}

			line, err := formatEvent(name, ev, asJSON)
			if err != nil {
				continue
			}

			fmt.Fprintln(out, line)
		}
	}
}

func formatEvent(name string, ev execpkg.Event, asJSON bool) (string, error) {
	envelope := execpkg.NewEnvelope(name, ev)

	if asJSON {
		data, err := json.Marshal(envelope)
		if err != nil {
			return "", err
		}

		return string(data), nil
	}

	return fmt.Sprintf("%s [%s] %s: %s", envelope.Timestamp, name, envelope.Kind, envelope.Data), nil
}

func statusLabel(status execpkg.Status) string {
	switch status.Kind {
	case execpkg.StatusRunning:
		return "running"
	case execpkg.StatusExited:
		return "exited"
	case execpkg.StatusSignalled:
		return "signalled"
	default:
		return "unknown"
	}
}

func healthLabel(state service.HealthState) string {
	switch state {
	case service.HealthHealthy:
		return "healthy"
	case service.HealthUnhealthy:
		return "unhealthy"
	case service.HealthStarting:
		return "starting"
	case service.HealthStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
