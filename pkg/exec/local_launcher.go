package exec

import (
	"bufio"
	"context"
	"io"
	"os"
	goexec "os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

// shutdownPollInterval is how often Stop polls for graceful termination.
const shutdownPollInterval = 100 * time.Millisecond

// eventBufferSize bounds the per-process event channel; the local backend
// is a single-consumer pipe so this only needs to absorb bursts between
// reader goroutines and whatever drains the channel (typically a
// pkg/fanout.Broadcaster).
const eventBufferSize = 256

var _ Launcher = (*LocalLauncher)(nil)

// LocalLauncher spawns children directly on the local host. It is the
// bottom backend every LayerStack eventually delegates to.
type LocalLauncher struct {
	log logrus.FieldLogger
}

// NewLocalLauncher builds a LocalLauncher.
func NewLocalLauncher(log logrus.FieldLogger) *LocalLauncher {
	return &LocalLauncher{log: log.WithField("component", "local-launcher")}
}

// Launch spawns cmd and returns its event stream and a ProcessHandle.
// Stdin is always configured as a pipe, independent of whether cmd carries
// a Stdin channel, so a StdinHandle is always available.
func (l *LocalLauncher) Launch(ctx context.Context, target Target, cmd Command) (<-chan Event, ProcessHandle, error) {
	c := goexec.Command(cmd.Program, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = buildEnviron(cmd.Env)
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdinPipe, err := c.StdinPipe()
	if err != nil {
		return nil, nil, &SpawnFailedError{Program: cmd.Program, Reason: err}
	}

	stdoutPipe, err := c.StdoutPipe()
	if err != nil {
		return nil, nil, &SpawnFailedError{Program: cmd.Program, Reason: err}
	}

	stderrPipe, err := c.StderrPipe()
	if err != nil {
		return nil, nil, &SpawnFailedError{Program: cmd.Program, Reason: err}
	}

	if err := c.Start(); err != nil {
		return nil, nil, &SpawnFailedError{Program: cmd.Program, Reason: err}
	}

	events := make(chan Event, eventBufferSize)
	stdin := newStdinHandle(stdinPipe, cmd.Stdin)

	h := &localProcessHandle{
		cmd:   c,
		stdin: stdin,
		done:  make(chan struct{}),
		log:   l.log.WithField("pid", c.Process.Pid),
	}
	h.mu.Lock()
	h.status = RunningStatus()
	h.mu.Unlock()

	events <- StartedEvent(c.Process.Pid)

	var wg sync.WaitGroup

	wg.Add(2)

	go drainLines(stdoutPipe, StdoutEvent, events, &wg)
	go drainLines(stderrPipe, StderrEvent, events, &wg)

	go h.reap(&wg, events)

	return events, h, nil
}

// drainLines reads newline-delimited, UTF-8-replaced text from r and
// publishes one event per line via build, preserving emission order for
// this stream. It closes its end of the pipe on EOF or error.
func drainLines(r io.ReadCloser, build func(string) Event, events chan<- Event, wg *sync.WaitGroup) {
	defer wg.Done()
	defer r.Close()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		events <- build(scanner.Text())
	}
}

// localProcessHandle implements ProcessHandle for a child spawned by
// LocalLauncher.
type localProcessHandle struct {
	mu         sync.Mutex
	cmd        *goexec.Cmd
	stdin      *StdinHandle
	stdinTaken bool
	status     Status
	done       chan struct{}
	log        logrus.FieldLogger
}

// reap waits for both pipe readers to finish, reaps the child, computes its
// terminal status, publishes the terminal event, and closes the stream. No
// event is emitted after the terminal event.
func (h *localProcessHandle) reap(wg *sync.WaitGroup, events chan Event) {
	wg.Wait()

	waitErr := h.cmd.Wait()

	status := statusFromWaitError(waitErr, h.cmd)

	h.mu.Lock()
	h.status = status
	h.mu.Unlock()
	close(h.done)

	if status.Kind == StatusSignalled {
		events <- SignalledEvent(status.Signal)
	} else {
		events <- ExitedEvent(status.ExitCode)
	}

	close(events)
}

func statusFromWaitError(waitErr error, c *goexec.Cmd) Status {
	state := c.ProcessState
	if state == nil {
		code := -1

		return ExitedStatus(&code)
	}

	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return SignalledStatus(ws.Signal().String())
	}

	code := state.ExitCode()

	return ExitedStatus(&code)
}

func (h *localProcessHandle) StdinWriter() (*StdinHandle, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stdinTaken {
		return nil, false
	}

	h.stdinTaken = true

	return h.stdin, true
}

func (h *localProcessHandle) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.status
}

func (h *localProcessHandle) Wait(ctx context.Context) Status {
	select {
	case <-h.done:
	case <-ctx.Done():
	}

	return h.Status()
}

// Stop sends SIGTERM to the child's process group, waits up to grace, then
// sends SIGKILL. Idempotent: once terminal, it performs no further signal.
func (h *localProcessHandle) Stop(ctx context.Context, grace time.Duration) error {
	if h.Status().Terminal() {
		return nil
	}

	pid := h.cmd.Process.Pid
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil {
		_ = h.cmd.Process.Signal(syscall.SIGTERM)
	}

	ticker := time.NewTicker(shutdownPollInterval)
	defer ticker.Stop()

	timeout := time.NewTimer(grace)
	defer timeout.Stop()

	for {
		select {
		case <-h.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout.C:
			h.log.Warn("process did not stop gracefully, sending SIGKILL")

			return h.Kill()
		case <-ticker.C:
		}
	}
}

// Kill terminates the child immediately. Idempotent.
func (h *localProcessHandle) Kill() error {
	if h.Status().Terminal() {
		return nil
	}

	pid := h.cmd.Process.Pid
	_ = syscall.Kill(-pid, syscall.SIGKILL)
	_ = h.cmd.Process.Kill()

	return nil
}

// buildEnviron overlays env on top of the parent's environment, keyed so
// the overlay always wins on collision rather than relying on duplicate
// entries and platform-specific lookup order.
func buildEnviron(env map[string]string) []string {
	merged := map[string]string{}

	for _, kv := range os.Environ() {
		if idx := strings.IndexByte(kv, '='); idx >= 0 {
			merged[kv[:idx]] = kv[idx+1:]
		}
	}

	for k, v := range env {
		merged[k] = v
	}

	out := make([]string, 0, len(merged))
	for k, v := range merged {
		out = append(out, k+"="+v)
	}

	return out
}
