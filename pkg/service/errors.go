package service

import "fmt"

// CyclicDependencyError is returned when a dependency graph contains a
// cycle; detected before any service is spawned.
type CyclicDependencyError struct {
	Cycle []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic service dependency: %v", e.Cycle)
}

// UnknownDependencyError names a DependsOn entry with no matching service.
type UnknownDependencyError struct {
	Service    string
	Dependency string
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("service %q depends on unknown service %q", e.Service, e.Dependency)
}

// DependencyUnhealthyError means a service's dependency failed to reach a
// healthy state within its start deadline, so the dependent was never
// started.
type DependencyUnhealthyError struct {
	Service    string
	Dependency string
	Reason     error
}

func (e *DependencyUnhealthyError) Error() string {
	return fmt.Sprintf("service %q not started: dependency %q unhealthy: %v", e.Service, e.Dependency, e.Reason)
}

func (e *DependencyUnhealthyError) Unwrap() error { return e.Reason }

// StartFailedError wraps a backend-level failure to launch a service.
type StartFailedError struct {
	Service string
	Reason  error
}

func (e *StartFailedError) Error() string {
	return fmt.Sprintf("service %q failed to start: %v", e.Service, e.Reason)
}

func (e *StartFailedError) Unwrap() error { return e.Reason }

// StopFailedError wraps a backend-level failure to stop a service.
type StopFailedError struct {
	Service string
	Reason  error
}

func (e *StopFailedError) Error() string {
	return fmt.Sprintf("service %q failed to stop: %v", e.Service, e.Reason)
}

func (e *StopFailedError) Unwrap() error { return e.Reason }

// UnknownServiceError names a service the manager has no configuration for.
type UnknownServiceError struct {
	Service string
}

func (e *UnknownServiceError) Error() string {
	return fmt.Sprintf("unknown service %q", e.Service)
}

// PackageStepError names which step of a package deploy failed.
type PackageStepError struct {
	Step   string
	Reason error
}

func (e *PackageStepError) Error() string {
	return fmt.Sprintf("package deploy step %q failed: %v", e.Step, e.Reason)
}

func (e *PackageStepError) Unwrap() error { return e.Reason }
