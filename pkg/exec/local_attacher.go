package exec

import (
	"context"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

var _ Attacher = (*LocalAttacher)(nil)

// defaultPollInterval is how often LocalAttacher checks pid liveness,
// emitting a health ping each time the pid is still alive. When no pid was
// supplied nothing is polled and no pings are emitted.
const defaultPollInterval = 2 * time.Second

// LocalAttacher observes an existing process without spawning one. Stdout
// and stderr of a foreign process are not available to us, so its event
// stream carries only Started, periodic LayerInfo health pings, and the
// terminal Exited once the pid disappears.
type LocalAttacher struct {
	log          logrus.FieldLogger
	pollInterval time.Duration
}

// NewLocalAttacher builds a LocalAttacher polling at pollInterval (defaults
// to 2s when zero).
func NewLocalAttacher(log logrus.FieldLogger, pollInterval time.Duration) *LocalAttacher {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	return &LocalAttacher{log: log.WithField("component", "local-attacher"), pollInterval: pollInterval}
}

func (a *LocalAttacher) Attach(ctx context.Context, target Target) (<-chan Event, AttachedHandle, error) {
	if target.Kind != TargetAttachedService {
		return nil, nil, &AttachFailedErr{Reason: "target is not an AttachedService"}
	}

	if target.PID != nil && !pidAlive(*target.PID) {
		return nil, nil, &AttachFailedErr{Reason: "pid does not exist"}
	}

	h := &localAttachedHandle{pid: target.PID}

	events := make(chan Event, eventBufferSize)

	if target.PID != nil {
		events <- StartedEvent(*target.PID)
	} else {
		events <- LayerInfoEvent("health", "attached without a known pid; liveness cannot be observed")
		h.mu.Lock()
		h.status = UnknownStatus()
		h.mu.Unlock()
	}

	h.done = make(chan struct{})

	go a.poll(ctx, h, events)

	return events, h, nil
}

func (a *LocalAttacher) poll(ctx context.Context, h *localAttachedHandle, events chan Event) {
	defer close(events)

	if h.pid == nil {
		// No pid supplied: nothing to poll. The stream stays open with
		// Unknown status until the caller's context ends.
		<-ctx.Done()
		close(h.done)

		return
	}

	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			close(h.done)

			return
		case <-ticker.C:
			if pidAlive(*h.pid) {
				events <- LayerInfoEvent("health", "pid alive")

				continue
			}

			h.mu.Lock()
			h.status = ExitedStatus(nil)
			h.mu.Unlock()
			close(h.done)
			events <- ExitedEvent(nil)

			return
		}
	}
}

func pidAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	return proc.Signal(syscall.Signal(0)) == nil
}

// localAttachedHandle implements AttachedHandle. status() must never lie:
// an unknown pid maps to Unknown, never Running.
type localAttachedHandle struct {
	mu     sync.Mutex
	pid    *int
	status Status
	done   chan struct{}
}

func (h *localAttachedHandle) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.status.Kind != "" {
		return h.status
	}

	if h.pid == nil || !pidAlive(*h.pid) {
		return UnknownStatus()
	}

	return RunningStatus()
}

func (h *localAttachedHandle) WaitForExit(ctx context.Context) Status {
	select {
	case <-h.done:
	case <-ctx.Done():
	}

	return h.Status()
}
