package exec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandEnvOverlay(t *testing.T) {
	base := NewCommand("echo", "hi").WithEnv(map[string]string{"A": "1", "B": "2"})
	overlaid := base.WithEnv(map[string]string{"B": "3", "C": "4"})

	assert.Equal(t, "1", overlaid.Env["A"])
	assert.Equal(t, "3", overlaid.Env["B"], "later overlay wins on collision")
	assert.Equal(t, "4", overlaid.Env["C"])

	// base must be unaffected by the overlay (Command is immutable).
	assert.Equal(t, "2", base.Env["B"])
}

func TestCommandCloneIsIndependent(t *testing.T) {
	cmd := NewCommand("echo", "hi").WithEnv(map[string]string{"A": "1"})
	clone := cmd.Clone()
	clone.Env["A"] = "mutated"

	require.Equal(t, "1", cmd.Env["A"])
}

func TestCommandArgv(t *testing.T) {
	cmd := NewCommand("echo", "hi", "there")
	assert.Equal(t, []string{"echo", "hi", "there"}, cmd.Argv())
}

func TestCommandWithDirUnsetInherits(t *testing.T) {
	cmd := NewCommand("echo")
	assert.Empty(t, cmd.Dir)

	withDir := cmd.WithDir("/tmp")
	assert.Equal(t, "/tmp", withDir.Dir)
	assert.Empty(t, cmd.Dir)
}
