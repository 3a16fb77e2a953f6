package exec

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	return log
}

func collectEvents(t *testing.T, events <-chan Event, timeout time.Duration) []Event {
	t.Helper()

	var out []Event

	deadline := time.After(timeout)

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}

			out = append(out, ev)
		case <-deadline:
			t.Fatal("timed out waiting for events")

			return out
		}
	}
}

// TestStdinAlwaysAvailable covers spec §8 property 4.
func TestStdinAlwaysAvailable(t *testing.T) {
	l := NewLocalLauncher(testLogger())

	events, handle, err := l.Launch(context.Background(), ManagedProcessTarget(), NewCommand("cat"))
	require.NoError(t, err)

	stdin, ok := handle.StdinWriter()
	require.True(t, ok)
	require.NotNil(t, stdin)

	_, ok = handle.StdinWriter()
	assert.False(t, ok, "second take must fail")

	require.NoError(t, stdin.Close())

	collectEvents(t, events, 2*time.Second)
}

// TestEventOrdering covers spec §8 property 5/6: Started precedes stdio,
// terminal event is last, nothing follows it.
func TestEventOrdering(t *testing.T) {
	l := NewLocalLauncher(testLogger())

	events, handle, err := l.Launch(context.Background(), ManagedProcessTarget(), NewCommand("sh", "-c", "echo a; echo b >&2; echo c"))
	require.NoError(t, err)

	all := collectEvents(t, events, 2*time.Second)
	require.NotEmpty(t, all)

	require.Equal(t, EventStarted, all[0].Kind)

	last := all[len(all)-1]
	assert.True(t, last.Kind.Terminal())

	status := handle.Status()
	assert.True(t, status.Terminal())
	assert.Equal(t, StatusExited, status.Kind)
	require.NotNil(t, status.ExitCode)
	assert.Equal(t, 0, *status.ExitCode)
}

func TestStdinRoundTrip(t *testing.T) {
	l := NewLocalLauncher(testLogger())

	ch := make(chan string, 2)
	cmd := NewCommand("cat").WithStdin(ch)

	events, handle, err := l.Launch(context.Background(), ManagedProcessTarget(), cmd)
	require.NoError(t, err)

	stdin, ok := handle.StdinWriter()
	require.True(t, ok)

	ch <- "a\n"
	ch <- "b\n"
	close(ch)

	go func() {
		_ = stdin.ForwardChannel(context.Background())
	}()

	all := collectEvents(t, events, 2*time.Second)

	var lines []string
	for _, ev := range all {
		if ev.Kind == EventStdout {
			lines = append(lines, ev.Payload)
		}
	}

	assert.Equal(t, []string{"a", "b"}, lines)
}

func TestStopIsIdempotent(t *testing.T) {
	l := NewLocalLauncher(testLogger())

	events, handle, err := l.Launch(context.Background(), ManagedProcessTarget(), NewCommand("sleep", "5"))
	require.NoError(t, err)

	require.NoError(t, handle.Stop(context.Background(), 200*time.Millisecond))
	require.NoError(t, handle.Stop(context.Background(), 200*time.Millisecond))

	collectEvents(t, events, 2*time.Second)

	assert.True(t, handle.Status().Terminal())
}

func TestSpawnFailed(t *testing.T) {
	l := NewLocalLauncher(testLogger())

	_, _, err := l.Launch(context.Background(), ManagedProcessTarget(), NewCommand("this-binary-does-not-exist-xyz"))
	require.Error(t, err)

	var spawnErr *SpawnFailedError
	require.ErrorAs(t, err, &spawnErr)
}
