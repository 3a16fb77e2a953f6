package exec

import (
	"context"
	"time"
)

// ProcessHandle is the caller's reference to a process launched by a
// Launcher. At most one StdinHandle may be taken from it.
type ProcessHandle interface {
	// StdinWriter returns the handle's stdin writer on the first call;
	// subsequent calls return (nil, false).
	StdinWriter() (*StdinHandle, bool)
	Status() Status
	// Stop sends the platform's graceful signal, waits up to grace, then
	// kills. Idempotent: calling it again after termination is a no-op.
	Stop(ctx context.Context, grace time.Duration) error
	// Kill terminates the child immediately. Idempotent.
	Kill() error
	// Wait blocks until the process reaches a terminal status or ctx is done.
	Wait(ctx context.Context) Status
}

// AttachedHandle is the caller's reference to an externally observed
// process. It offers no writes and no termination.
type AttachedHandle interface {
	Status() Status
	WaitForExit(ctx context.Context) Status
}

// Launcher spawns a child and returns its event stream and handle.
type Launcher interface {
	Launch(ctx context.Context, target Target, cmd Command) (<-chan Event, ProcessHandle, error)
}

// Attacher observes an existing target without creating a process.
type Attacher interface {
	Attach(ctx context.Context, target Target) (<-chan Event, AttachedHandle, error)
}
