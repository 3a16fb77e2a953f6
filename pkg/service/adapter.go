package service

import (
	"fmt"

	execpkg "github.com/ethpandaops/xcli/pkg/exec"
)

// Plan is a backend adapter's output: the layer stack to wrap the start
// command in, the start/stop/restart commands themselves, and the Target
// describing how the resulting process should be observed.
type Plan struct {
	Stack  execpkg.LayerStack
	Start  execpkg.Command
	Stop   execpkg.Command
	Target execpkg.Target

	// RemotePID marks a backend (SSH, Package) whose Start command was
	// wrapped with wrapWithPIDMarker: stopping it requires capturing the
	// remote pid from the event stream and issuing a kill through Stack,
	// rather than running a static Stop command or signalling a local
	// process group.
	RemotePID bool
}

func errMissingBackendConfig(kind string) error {
	return fmt.Errorf("missing %s backend configuration", kind)
}

// buildPlan dispatches to the per-backend adapter named by cfg.Kind.
func buildPlan(cfg *ServiceConfig) (Plan, error) {
	switch cfg.Kind {
	case BackendProcess:
		return planProcess(cfg)
	case BackendDocker:
		return planDocker(cfg)
	case BackendSSH:
		return planSSH(cfg)
	case BackendPackage:
		// Package services are not a static (LayerStack, Command, Target)
		// triple: planning one requires running the deploy pipeline, which
		// only the caller holding a PackageDeployer can do. See
		// PackageDeployer.Deploy.
		return Plan{}, fmt.Errorf("service %q: package backend must be planned via PackageDeployer.Deploy", cfg.Name)
	default:
		return Plan{}, fmt.Errorf("service %q: unknown backend kind %q", cfg.Name, cfg.Kind)
	}
}
