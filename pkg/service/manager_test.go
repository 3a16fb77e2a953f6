package service

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	execpkg "github.com/ethpandaops/xcli/pkg/exec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, configs []*ServiceConfig) *Manager {
	t.Helper()

	launcher := execpkg.NewLocalLauncher(testLogger())
	attacher := execpkg.NewLocalAttacher(testLogger(), time.Second)

	mgr, err := NewManager(configs, launcher, attacher, nil, nil, testLogger())
	require.NoError(t, err)

	return mgr
}

func TestStartAllStartsSimpleProcessService(t *testing.T) {
	mgr := newTestManager(t, []*ServiceConfig{
		{Name: "sleeper", Kind: BackendProcess, Process: &ProcessBackend{Binary: "sleep", Args: []string{"5"}}},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, mgr.StartAll(ctx))

	status := mgr.Status("sleeper")
	assert.Equal(t, execpkg.StatusRunning, status.Kind)

	require.NoError(t, mgr.Stop(context.Background(), "sleeper"))
}

// TestDependencyOrderingBlocksUntilHealthy covers spec §8 scenario E4: a
// dependent service is not started until its dependency reports healthy.
func TestDependencyOrderingBlocksUntilHealthy(t *testing.T) {
	mgr := newTestManager(t, []*ServiceConfig{
		{
			Name:    "db",
			Kind:    BackendProcess,
			Process: &ProcessBackend{Binary: "sleep", Args: []string{"5"}},
			Health: &HealthCheck{
				Kind:     HealthCommand,
				Argv:     []string{"true"},
				Interval: 50 * time.Millisecond,
				Timeout:  time.Second,
			},
		},
		{
			Name:      "api",
			Kind:      BackendProcess,
			Process:   &ProcessBackend{Binary: "sleep", Args: []string{"5"}},
			DependsOn: []string{"db"},
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, mgr.Start(ctx, "api"))

	assert.Equal(t, HealthHealthy, mgr.Health("db"))
	assert.Equal(t, execpkg.StatusRunning, mgr.Status("api").Kind)

	require.NoError(t, mgr.Stop(context.Background(), "api"))
	require.NoError(t, mgr.Stop(context.Background(), "db"))
}

func TestStartRejectsCyclicDependencies(t *testing.T) {
	launcher := execpkg.NewLocalLauncher(testLogger())
	attacher := execpkg.NewLocalAttacher(testLogger(), time.Second)

	_, err := NewManager([]*ServiceConfig{
		{Name: "a", Kind: BackendProcess, Process: &ProcessBackend{Binary: "true"}, DependsOn: []string{"b"}},
		{Name: "b", Kind: BackendProcess, Process: &ProcessBackend{Binary: "true"}, DependsOn: []string{"a"}},
	}, launcher, attacher, nil, nil, testLogger())

	require.Error(t, err)

	var cycleErr *CyclicDependencyError
	require.ErrorAs(t, err, &cycleErr)
}

func TestSubscribeReturnsFalseForUnstartedService(t *testing.T) {
	mgr := newTestManager(t, []*ServiceConfig{
		{Name: "idle", Kind: BackendProcess, Process: &ProcessBackend{Binary: "true"}},
	})

	_, _, ok := mgr.Subscribe("idle")
	assert.False(t, ok)
}

// TestStartRollsBackChainOnDependencyFailure covers spec §4.8 point 4 /
// scenario E4: a←b←c, starting "c" fails because "b" never reports
// healthy, so every service this call started transitively ("a" and "b")
// must be stopped, not just reported as an error.
func TestStartRollsBackChainOnDependencyFailure(t *testing.T) {
	mgr := newTestManager(t, []*ServiceConfig{
		{Name: "a", Kind: BackendProcess, Process: &ProcessBackend{Binary: "sleep", Args: []string{"5"}}},
		{
			Name:      "b",
			Kind:      BackendProcess,
			Process:   &ProcessBackend{Binary: "sleep", Args: []string{"5"}},
			DependsOn: []string{"a"},
			Health: &HealthCheck{
				Kind:     HealthCommand,
				Argv:     []string{"false"},
				Interval: 50 * time.Millisecond,
				Timeout:  time.Second,
				Retries:  1,
			},
		},
		{Name: "c", Kind: BackendProcess, Process: &ProcessBackend{Binary: "sleep", Args: []string{"5"}}, DependsOn: []string{"b"}},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := mgr.Start(ctx, "c")
	require.Error(t, err)

	assert.Equal(t, execpkg.StatusUnknown, mgr.Status("a").Kind, "a must be stopped after the chain rolls back")
	assert.Equal(t, execpkg.StatusUnknown, mgr.Status("b").Kind, "b must be stopped after the chain rolls back")
	assert.Equal(t, execpkg.StatusUnknown, mgr.Status("c").Kind, "c was never started")
}

func TestReconcileSnapshotReattachesAliveProcess(t *testing.T) {
	stateDir := t.TempDir()
	snapshotPath := filepath.Join(stateDir, "running.json")

	store := NewSnapshotStore(snapshotPath, testLogger())
	require.NoError(t, store.Save(RunningSnapshot{
		Services: []RunningServiceEntry{
			{Name: "survivor", Kind: "process", PID: os.Getpid(), StartedAt: time.Now()},
			{Name: "ghost", Kind: "process", PID: 999999, StartedAt: time.Now()},
		},
	}))

	launcher := execpkg.NewLocalLauncher(testLogger())
	attacher := execpkg.NewLocalAttacher(testLogger(), time.Second)

	configs := []*ServiceConfig{
		{Name: "survivor", Kind: BackendProcess, Process: &ProcessBackend{Binary: "sleep", Args: []string{"5"}}},
	}

	mgr, err := NewManager(configs, launcher, attacher, nil, store, testLogger())
	require.NoError(t, err)

	_, _, ok := mgr.Subscribe("survivor")
	assert.True(t, ok, "a reconciled entry should be registered as running")

	reloaded, err := store.Load()
	require.NoError(t, err)

	names := make([]string, 0, len(reloaded.Services))
	for _, entry := range reloaded.Services {
		names = append(names, entry.Name+":"+strconv.Itoa(entry.PID))
	}

	assert.NotContains(t, names, "ghost:999999", "the stale entry must be pruned from the persisted snapshot")
}
