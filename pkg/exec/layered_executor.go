package exec

import "context"

// LayeredExecutor is the composition root: it folds a LayerStack over a
// Command and delegates to the bottom backend. No layer post-processes
// events — they are pure command transforms, so the backend's stream and
// handle pass through unchanged.
type LayeredExecutor struct {
	Stack    LayerStack
	Launcher Launcher
	Attacher Attacher
}

// NewLayeredExecutor builds an executor over stack, delegating launches to
// launcher and attaches to attacher.
func NewLayeredExecutor(stack LayerStack, launcher Launcher, attacher Attacher) *LayeredExecutor {
	return &LayeredExecutor{Stack: stack, Launcher: launcher, Attacher: attacher}
}

// Render applies the layer stack to cmd without executing anything; it
// exists so callers (and tests, per spec §8 scenario E1) can inspect the
// rendered argv before a real launch.
func (e *LayeredExecutor) Render(cmd Command) (Command, error) {
	return e.Stack.Apply(cmd)
}

// Launch folds the stack over cmd and delegates to the backend launcher.
func (e *LayeredExecutor) Launch(ctx context.Context, target Target, cmd Command) (<-chan Event, ProcessHandle, error) {
	rendered, err := e.Stack.Apply(cmd)
	if err != nil {
		return nil, nil, err
	}

	return e.Launcher.Launch(ctx, target, rendered)
}

// Attach delegates directly to the backend attacher; layers never apply to
// attach (there is no Command to transform for an externally observed
// process).
func (e *LayeredExecutor) Attach(ctx context.Context, target Target) (<-chan Event, AttachedHandle, error) {
	return e.Attacher.Attach(ctx, target)
}
