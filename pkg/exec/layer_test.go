package exec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLayerIdentity covers spec §8 property 1: an empty stack leaves every
// Command unchanged.
func TestLayerIdentity(t *testing.T) {
	cmd := NewCommand("echo", "hi", "there").
		WithEnv(map[string]string{"A": "1"}).
		WithDir("/srv")

	stack := NewLayerStack()

	out, err := stack.Apply(cmd)
	require.NoError(t, err)

	assert.Equal(t, cmd.Program, out.Program)
	assert.Equal(t, cmd.Args, out.Args)
	assert.Equal(t, cmd.Env, out.Env)
	assert.Equal(t, cmd.Dir, out.Dir)
}

// TestE1SshDockerComposition is spec §8 scenario E1: rendered argv for a
// two-layer stack.
func TestE1SshDockerComposition(t *testing.T) {
	stack := NewLayerStack(
		SshLayer{Host: "h"},
		DockerLayer{Container: "c"},
	)

	cmd := NewCommand("echo", "hi")

	out, err := stack.Apply(cmd)
	require.NoError(t, err)

	require.Equal(t, "ssh", out.Program)
	require.Equal(t, []string{
		"-o", "StrictHostKeyChecking=accept-new",
		"h", "--", "docker exec -i c echo hi",
	}, out.Args)
}

// TestLayerCompositionOrdering covers spec §8 property 2: for layers A then
// B in stack order, A's wrapper is outermost and B's is innermost.
func TestLayerCompositionOrdering(t *testing.T) {
	stack := NewLayerStack(SudoLayer{User: "root"}, SystemdRunLayer{Unit: "svc"})

	out, err := stack.Apply(NewCommand("myapp", "--flag"))
	require.NoError(t, err)

	require.Equal(t, "sudo", out.Program)
	require.Equal(t, []string{
		"-n", "-u", "root", "--",
		"systemd-run", "--pipe", "--collect", "--unit", "svc", "--", "myapp", "--flag",
	}, out.Args)
}

func TestDockerLayerRequiresContainer(t *testing.T) {
	_, err := DockerLayer{}.Transform(NewCommand("echo"))
	require.Error(t, err)

	var layerErr *LayerErr
	require.ErrorAs(t, err, &layerErr)
	assert.Equal(t, "docker", layerErr.Layer)
}

func TestSshLayerRequiresHost(t *testing.T) {
	_, err := SshLayer{}.Transform(NewCommand("echo"))
	require.Error(t, err)
}

func TestSshLayerEnvPrefix(t *testing.T) {
	cmd := NewCommand("myapp").WithEnv(map[string]string{"PORT": "8080"})

	out, err := SshLayer{Host: "h", User: "u"}.Transform(cmd)
	require.NoError(t, err)

	last := out.Args[len(out.Args)-1]
	assert.Equal(t, "PORT=8080 myapp", last)
}
