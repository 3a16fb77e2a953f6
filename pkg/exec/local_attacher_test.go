package exec

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAttacherSeesExit is spec §8 scenario E5.
func TestAttacherSeesExit(t *testing.T) {
	cmd := exec.Command("sleep", "1")
	require.NoError(t, cmd.Start())

	pid := cmd.Process.Pid

	a := NewLocalAttacher(testLogger(), 100*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	events, handle, err := a.Attach(ctx, AttachedServiceTarget("sleeper", &pid))
	require.NoError(t, err)

	first := <-events
	require.Equal(t, EventStarted, first.Kind)
	assert.Equal(t, pid, first.PID)

	_ = cmd.Wait()

	status := handle.WaitForExit(ctx)
	assert.Equal(t, StatusExited, status.Kind)
	assert.Nil(t, status.ExitCode, "we never reaped it, so the code is unknown")
}

func TestAttacherUnknownPidNeverLiesAboutRunning(t *testing.T) {
	a := NewLocalAttacher(testLogger(), 50*time.Millisecond)

	bogus := 999999

	_, _, err := a.Attach(context.Background(), AttachedServiceTarget("ghost", &bogus))
	require.Error(t, err)

	var attachErr *AttachFailedErr
	require.ErrorAs(t, err, &attachErr)
}

func TestAttacherNoPidStaysUnknown(t *testing.T) {
	a := NewLocalAttacher(testLogger(), 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, handle, err := a.Attach(ctx, AttachedServiceTarget("unknown-pid", nil))
	require.NoError(t, err)

	assert.Equal(t, StatusUnknown, handle.Status().Kind)
}
