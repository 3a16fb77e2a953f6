package service

import (
	execpkg "github.com/ethpandaops/xcli/pkg/exec"
)

// planProcess builds the (LayerStack, Command, Target) triple for a
// directly-launched local binary. Stop/restart go through the handle
// returned by the launcher (process-group SIGTERM/SIGKILL), not through an
// external command, so the Target is ManagedProcess rather than
// ManagedService.
func planProcess(cfg *ServiceConfig) (Plan, error) {
	b := cfg.Process
	if b == nil {
		return Plan{}, &StartFailedError{Service: cfg.Name, Reason: errMissingBackendConfig("process")}
	}

	stack := execpkg.NewLayerStack(execpkg.LocalLayer{Env: b.Env, Dir: b.Dir})

	start := execpkg.NewCommand(b.Binary, b.Args...).WithEnv(b.Env).WithDir(b.Dir)

	return Plan{
		Stack:  stack,
		Start:  start,
		Target: execpkg.ManagedProcessTarget(),
	}, nil
}
