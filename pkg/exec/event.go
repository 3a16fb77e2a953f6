package exec

import "time"

// EventKind discriminates the kind of thing an Event reports.
type EventKind string

const (
	EventStdout    EventKind = "stdout"
	EventStderr    EventKind = "stderr"
	EventExited    EventKind = "exited"
	EventSignalled EventKind = "signalled"
	EventStarted   EventKind = "started"
	EventLayerInfo EventKind = "layer_info"
	// EventDropped marks that one or more events were dropped by a slow
	// fan-out subscriber (see pkg/fanout); it never originates here.
	EventDropped EventKind = "dropped"
)

// Event is a single timestamped, typed occurrence in a target's lifetime.
// Per spec, per-stream order is preserved (stdout line N before N+1) but
// stdout/stderr are not interleaved against each other.
type Event struct {
	Timestamp time.Time
	Kind      EventKind

	// Payload carries the UTF-8 line for Stdout/Stderr/LayerInfo, or a
	// human-readable description for other kinds.
	Payload string

	// PID is set on Started.
	PID int

	// ExitCode is set on Exited; nil means unknown (e.g. an attached
	// process that was never reaped by us).
	ExitCode *int

	// Signal is set on Signalled, using syscall.Signal's String form (e.g.
	// "killed" for SIGKILL).
	Signal string

	// Layer names the originating layer for LayerInfo events (e.g. "health").
	Layer string

	// Dropped is set on Dropped events: the number of events lost.
	Dropped int
}

func newEvent(kind EventKind) Event {
	return Event{Timestamp: time.Now(), Kind: kind}
}

// StartedEvent builds a Started event for pid.
func StartedEvent(pid int) Event {
	e := newEvent(EventStarted)
	e.PID = pid

	return e
}

// StdoutEvent builds a Stdout event carrying line.
func StdoutEvent(line string) Event {
	e := newEvent(EventStdout)
	e.Payload = line

	return e
}

// StderrEvent builds a Stderr event carrying line.
func StderrEvent(line string) Event {
	e := newEvent(EventStderr)
	e.Payload = line

	return e
}

// ExitedEvent builds a terminal Exited event for the given exit code. A nil
// code means the code could not be determined (e.g. an attached pid that
// disappeared without being reaped).
func ExitedEvent(code *int) Event {
	e := newEvent(EventExited)
	e.ExitCode = code

	return e
}

// SignalledEvent builds a terminal Signalled event naming the signal.
func SignalledEvent(signal string) Event {
	e := newEvent(EventSignalled)
	e.Signal = signal

	return e
}

// LayerInfoEvent builds an informational event attributed to layer.
func LayerInfoEvent(layer, msg string) Event {
	e := newEvent(EventLayerInfo)
	e.Layer = layer
	e.Payload = msg

	return e
}

// DroppedEvent builds a marker recording that n events were dropped.
func DroppedEvent(n int) Event {
	e := newEvent(EventDropped)
	e.Dropped = n

	return e
}

// Terminal reports whether kind ends an event stream.
func (k EventKind) Terminal() bool {
	return k == EventExited || k == EventSignalled
}
