package exec

import (
	"context"
	"strings"
)

// Result is what a Target=Command one-shot run hands back to its caller:
// aggregated output plus exit status, per spec §3.
type Result struct {
	Stdout   string
	Stderr   string
	Status   Status
	Duration string
}

// Run executes cmd to completion through launcher as a one-shot Command
// target, aggregating its stdout/stderr events and returning the terminal
// status. It blocks until the launcher closes the event stream; ctx is only
// handed to the launcher, and Run itself does not return early when ctx is
// done.
func Run(ctx context.Context, launcher Launcher, cmd Command) (Result, error) {
	events, handle, err := launcher.Launch(ctx, CommandTarget(), cmd)
	if err != nil {
		return Result{}, err
	}

	var stdout, stderr strings.Builder

	var res Result

	for ev := range events {
		switch ev.Kind {
		case EventStdout:
			stdout.WriteString(ev.Payload)
			stdout.WriteByte('\n')
		case EventStderr:
			stderr.WriteString(ev.Payload)
			stderr.WriteByte('\n')
		case EventExited, EventSignalled:
			res.Status = handle.Status()
		}
	}

	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	return res, nil
}
