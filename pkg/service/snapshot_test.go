package service

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "running.json")
	store := NewSnapshotStore(path, testLogger())

	snap := RunningSnapshot{
		Services: []RunningServiceEntry{
			{Name: "api", Kind: "process", PID: 4242, StartedAt: time.Now()},
		},
	}

	require.NoError(t, store.Save(snap))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded.Services, 1)
	assert.Equal(t, "api", loaded.Services[0].Name)
	assert.Equal(t, 4242, loaded.Services[0].PID)
}

func TestSnapshotLoadMissingFileReturnsEmpty(t *testing.T) {
	store := NewSnapshotStore(filepath.Join(t.TempDir(), "missing.json"), testLogger())

	snap, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, snap.Services)
}

func TestReconcileOrphansDropsDeadLocalPIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "running.json")
	store := NewSnapshotStore(path, testLogger())

	require.NoError(t, store.Save(RunningSnapshot{
		Services: []RunningServiceEntry{
			{Name: "dead", Kind: "process", PID: 999999},
			{Name: "remote", Kind: "ssh"},
		},
	}))

	alive, stale, err := store.ReconcileOrphans()
	require.NoError(t, err)

	assert.Len(t, stale, 1)
	assert.Equal(t, "dead", stale[0].Name)
	require.Len(t, alive, 1)
	assert.Equal(t, "remote", alive[0].Name)
}
