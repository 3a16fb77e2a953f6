package service

import (
	"testing"

	execpkg "github.com/ethpandaops/xcli/pkg/exec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanProcessUsesLocalLayerAndManagedProcessTarget(t *testing.T) {
	c := &ServiceConfig{
		Name:    "api",
		Kind:    BackendProcess,
		Process: &ProcessBackend{Binary: "api-server", Args: []string{"--port", "8080"}, Dir: "/srv/api"},
	}

	plan, err := buildPlan(c)
	require.NoError(t, err)

	assert.Equal(t, execpkg.TargetManagedProcess, plan.Target.Kind)
	assert.Equal(t, "api-server", plan.Start.Program)
	assert.Equal(t, "/srv/api", plan.Start.Dir)
	assert.False(t, plan.RemotePID)
}

func TestPlanDockerBuildsRunAndStopCommands(t *testing.T) {
	c := &ServiceConfig{
		Name: "cache",
		Kind: BackendDocker,
		Docker: &DockerBackend{
			Image:     "redis:7",
			Container: "cache-1",
			Ports:     []string{"6379:6379"},
		},
	}

	plan, err := buildPlan(c)
	require.NoError(t, err)

	assert.Equal(t, "docker", plan.Start.Program)
	assert.Contains(t, plan.Start.Args, "cache-1")
	assert.Equal(t, []string{"stop", "cache-1"}, plan.Stop.Args)
	assert.Equal(t, execpkg.TargetManagedService, plan.Target.Kind)
}

func TestPlanSSHWrapsStartWithPIDMarkerAndSetsRemotePID(t *testing.T) {
	c := &ServiceConfig{
		Name: "worker",
		Kind: BackendSSH,
		SSH:  &SSHBackend{Host: "10.0.0.5", User: "deploy", Binary: "worker", Args: []string{"--id", "1"}},
	}

	plan, err := buildPlan(c)
	require.NoError(t, err)

	assert.True(t, plan.RemotePID)
	assert.Equal(t, "sh", plan.Start.Program)
	assert.Contains(t, plan.Start.Args, "worker")

	rendered, err := plan.Stack.Apply(plan.Start)
	require.NoError(t, err)
	assert.Equal(t, "ssh", rendered.Program)
}

func TestPlanMissingBackendConfigErrors(t *testing.T) {
	c := &ServiceConfig{Name: "broken", Kind: BackendProcess}

	_, err := buildPlan(c)
	require.Error(t, err)
}

func TestFilterSSHPIDMarkerCapturesAndStripsMarkerLine(t *testing.T) {
	in := make(chan execpkg.Event, 4)
	in <- execpkg.StderrEvent(sshPIDMarkerPrefix + "4242")
	in <- execpkg.StdoutEvent("hello")
	close(in)

	out, pidFn := filterSSHPIDMarker(in)

	var seen []execpkg.Event
	for ev := range out {
		seen = append(seen, ev)
	}

	require.Len(t, seen, 1)
	assert.Equal(t, "hello", seen[0].Payload)
	assert.Equal(t, 4242, pidFn())
}
