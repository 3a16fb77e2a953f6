package cli

import (
	"testing"

	execpkg "github.com/ethpandaops/xcli/pkg/exec"
	"github.com/ethpandaops/xcli/pkg/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatEventHumanReadable(t *testing.T) {
	line, err := formatEvent("api", execpkg.StdoutEvent("listening on :8080"), false)
	require.NoError(t, err)
	assert.Contains(t, line, "[api]")
	assert.Contains(t, line, "stdout")
	assert.Contains(t, line, "listening on :8080")
}

func TestFormatEventJSONEnvelope(t *testing.T) {
	line, err := formatEvent("api", execpkg.StartedEvent(4242), true)
	require.NoError(t, err)
	assert.Contains(t, line, `"service":"api"`)
	assert.Contains(t, line, `"kind":"started"`)
	assert.Contains(t, line, `"data":"4242"`)
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "running", statusLabel(execpkg.RunningStatus()))
	assert.Equal(t, "unknown", statusLabel(execpkg.UnknownStatus()))
}

func TestHealthLabel(t *testing.T) {
	assert.Equal(t, "healthy", healthLabel(service.HealthHealthy))
	assert.Equal(t, "unhealthy", healthLabel(service.HealthUnhealthy))
	assert.Equal(t, "starting", healthLabel(service.HealthStarting))
	assert.Equal(t, "stopped", healthLabel(service.HealthStopped))
	assert.Equal(t, "unknown", healthLabel(service.HealthUnknown))
}
