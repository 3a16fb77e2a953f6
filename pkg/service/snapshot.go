package service

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

const runningSnapshotVersion = 1

// RunningServiceEntry is one service's entry in a persisted running.json
// snapshot.
type RunningServiceEntry struct {
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	PID       int       `json:"pid,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// RunningSnapshot is the versioned JSON document recording every currently
// running service, modeled on the teacher's PIDFileData so a crashed
// harness process can recover its running set on the next boot.
type RunningSnapshot struct {
	Version  int                   `json:"version"`
	Services []RunningServiceEntry `json:"services"`
}

// SnapshotStore persists and reloads RunningSnapshot to a single file.
type SnapshotStore struct {
	path string
	log  logrus.FieldLogger
}

// NewSnapshotStore builds a store writing to path.
func NewSnapshotStore(path string, log logrus.FieldLogger) *SnapshotStore {
	return &SnapshotStore{path: path, log: log.WithField("component", "running-snapshot")}
}

// Save overwrites the snapshot file with snap.
func (s *SnapshotStore) Save(snap RunningSnapshot) error {
	snap.Version = runningSnapshotVersion

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal running snapshot: %w", err)
	}

	//nolint:gosec // readable by design, no secrets live in this file
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write running snapshot: %w", err)
	}

	return nil
}

// Load reads the snapshot file, returning an empty snapshot if it does not
// exist.
func (s *SnapshotStore) Load() (RunningSnapshot, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return RunningSnapshot{Version: runningSnapshotVersion}, nil
	} else if err != nil {
		return RunningSnapshot{}, fmt.Errorf("read running snapshot: %w", err)
	}

	var snap RunningSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.log.WithError(err).Warn("failed to parse running snapshot, discarding")

		return RunningSnapshot{Version: runningSnapshotVersion}, nil
	}

	return snap, nil
}

// ReconcileOrphans loads the last snapshot and reports which entries still
// correspond to a live local pid and which are stale, so a caller can
// re-attach to survivors and drop the rest. Remote-backed entries (SSH,
// Docker, Package) are always treated as candidates for re-attachment since
// their liveness isn't a local pid lookup.
func (s *SnapshotStore) ReconcileOrphans() (alive, stale []RunningServiceEntry, err error) {
	snap, err := s.Load()
	if err != nil {
		return nil, nil, err
	}

	for _, entry := range snap.Services {
		if entry.Kind != string(BackendProcess) || entry.PID == 0 {
			alive = append(alive, entry)

			continue
		}

		if pidAliveLocal(entry.PID) {
			alive = append(alive, entry)
		} else {
			stale = append(stale, entry)
		}
	}

	return alive, stale, nil
}

func pidAliveLocal(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	return process.Signal(syscall.Signal(0)) == nil
}
