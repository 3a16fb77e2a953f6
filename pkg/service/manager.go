package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethpandaops/xcli/pkg/fanout"

	execpkg "github.com/ethpandaops/xcli/pkg/exec"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const defaultDependencyStartTimeout = 30 * time.Second

// runningService is a Manager's bookkeeping for one started service.
type runningService struct {
	cfg    *ServiceConfig
	plan   Plan
	events *fanout.Broadcaster
	cancel context.CancelFunc

	processHandle execpkg.ProcessHandle
	sshPID        func() int
	pid           atomic.Int64
}

// Manager starts, stops, and health-monitors a set of ServiceConfigs,
// resolving DependsOn into a start/stop order and never starting a service
// whose dependency failed to become healthy, per spec §4.8.
type Manager struct {
	log      logrus.FieldLogger
	launcher execpkg.Launcher
	attacher execpkg.Attacher
	deployer *PackageDeployer
	docker   *DockerEnsurer
	monitor  *Monitor
	snapshot *SnapshotStore

	configs map[string]*ServiceConfig
	order   []string

	mu       sync.Mutex
	running  map[string]*runningService
	locks    map[string]*sync.Mutex
	startSF  singleflight.Group
}

// NewManager validates configs' dependency graph and returns a Manager
// ready to Start/Stop services. launcher/attacher back every non-attached
// service; deployer may be nil unless a Package backend is configured.
func NewManager(
	configs []*ServiceConfig,
	launcher execpkg.Launcher,
	attacher execpkg.Attacher,
	deployer *PackageDeployer,
	snapshot *SnapshotStore,
	log logrus.FieldLogger,
) (*Manager, error) {
	return newManager(configs, launcher, attacher, deployer, nil, snapshot, log)
}

// NewManagerWithDocker is NewManager plus a DockerEnsurer used to pull
// images and validate port specs before a Docker-backed service starts.
func NewManagerWithDocker(
	configs []*ServiceConfig,
	launcher execpkg.Launcher,
	attacher execpkg.Attacher,
	deployer *PackageDeployer,
	docker *DockerEnsurer,
	snapshot *SnapshotStore,
	log logrus.FieldLogger,
) (*Manager, error) {
	return newManager(configs, launcher, attacher, deployer, docker, snapshot, log)
}

func newManager(
	configs []*ServiceConfig,
	launcher execpkg.Launcher,
	attacher execpkg.Attacher,
	deployer *PackageDeployer,
	docker *DockerEnsurer,
	snapshot *SnapshotStore,
	log logrus.FieldLogger,
) (*Manager, error) {
	byName := make(map[string]*ServiceConfig, len(configs))
	for _, c := range configs {
		byName[c.Name] = c
	}

	order, err := topoOrder(byName)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		log:      log.WithField("component", "service-manager"),
		launcher: launcher,
		attacher: attacher,
		deployer: deployer,
		docker:   docker,
		snapshot: snapshot,
		configs:  byName,
		order:    order,
		running:  map[string]*runningService{},
		locks:    map[string]*sync.Mutex{},
	}

	m.monitor = NewMonitor(log, m.onHealthChange)

	for name := range byName {
		m.locks[name] = &sync.Mutex{}
	}

	if snapshot != nil {
		m.reconcileSnapshot()
	}

	return m, nil
}

// reconcileSnapshot re-attaches to services the last persisted running.json
// still lists as running and whose process is still alive, and drops
// entries that are stale. Adapted from the teacher's loadPIDsLocked, which
// re-registers a PID-loaded process "without Cmd since we can't reconstruct
// it perfectly" — a reattached entry here likewise carries only its pid,
// not a live ProcessHandle, so Status() reports it as execpkg.StatusUnknown
// until the service is explicitly restarted.
func (m *Manager) reconcileSnapshot() {
	alive, stale, err := m.snapshot.ReconcileOrphans()
	if err != nil {
		m.log.WithError(err).Warn("failed to reconcile running snapshot")

		return
	}

	for _, entry := range stale {
		m.log.WithField("service", entry.Name).Info("dropping stale snapshot entry, process no longer alive")
	}

	reattached := 0

	for _, entry := range alive {
		cfg, ok := m.configs[entry.Name]
		if !ok {
			continue
		}

		launchCtx, cancel := context.WithCancel(context.Background())

		rs := &runningService{cfg: cfg, cancel: cancel, events: fanout.New(fanout.DefaultBufferSize)}
		rs.pid.Store(int64(entry.PID))

		go rs.events.Run(launchCtx, nil)

		m.running[entry.Name] = rs
		reattached++

		if cfg.Health != nil {
			if err := m.monitor.Watch(cfg); err != nil {
				m.log.WithError(err).WithField("service", entry.Name).Warn("failed to start health monitor for reattached service")
			}
		}
	}

	if reattached > 0 {
		m.log.WithField("count", reattached).Info("reattached to services from previous run")
	}

	if len(stale) > 0 {
		if err := m.snapshot.Save(m.runningSnapshot()); err != nil {
			m.log.WithError(err).Warn("failed to persist reconciled running snapshot")
		}
	}
}

func (m *Manager) onHealthChange(name string, state HealthState) {
	m.log.WithFields(logrus.Fields{"service": name, "health": state}).Info("health state changed")
}

func (m *Manager) lockFor(name string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.locks[name]
}

// StartAll starts every configured service in dependency order, running
// each dependency layer's services concurrently via errgroup. Started
// names accumulate across the whole call, so a layer that fails after
// earlier layers already succeeded rolls back every service started by
// this call, not just its own layer's siblings, per §4.8.4.
func (m *Manager) StartAll(ctx context.Context) error {
	started := make([]string, 0, len(m.order))
	var startedMu sync.Mutex

	for _, layer := range layers(m.configs, m.order) {
		g, gctx := errgroup.WithContext(ctx)

		for _, name := range layer {
			name := name

			g.Go(func() error {
				wasRunning := m.isRunning(name)

				if err := m.Start(gctx, name); err != nil {
					return err
				}

				if wasRunning {
					return nil
				}

				startedMu.Lock()
				started = append(started, name)
				startedMu.Unlock()

				return nil
			})
		}

		if err := g.Wait(); err != nil {
			m.rollbackStarted(started)

			return err
		}
	}

	return nil
}

// startTracker accumulates the names actually launched by one Start call
// tree, in start order, so a failure partway through dependency resolution
// can roll back exactly what that call started.
type startTracker struct {
	mu    sync.Mutex
	names []string
}

func (t *startTracker) add(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.names = append(t.names, name)
}

func (t *startTracker) reversed() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]string, len(t.names))
	for i, name := range t.names {
		out[len(t.names)-1-i] = name
	}

	return out
}

// Start starts name and, transitively, every dependency not already
// running. Concurrent calls to Start for the same name are deduplicated via
// singleflight. If any dependency fails to start or become healthy, every
// service newly started by this call (including transitively-started
// dependencies) is stopped, in reverse start order, before the error is
// returned, per §4.8 point 4 / scenario E4.
func (m *Manager) Start(ctx context.Context, name string) error {
	tracker := &startTracker{}

	err := m.doStart(ctx, name, tracker)
	if err != nil {
		m.rollbackStarted(tracker.reversed())
	}

	return err
}

func (m *Manager) doStart(ctx context.Context, name string, tracker *startTracker) error {
	_, err, _ := m.startSF.Do(name, func() (interface{}, error) {
		return nil, m.startOne(ctx, name, tracker)
	})

	return err
}

// rollbackStarted stops every named service, in the order given, logging
// (not returning) any individual stop failure so rollback always attempts
// every entry.
func (m *Manager) rollbackStarted(names []string) {
	for _, name := range names {
		if stopErr := m.Stop(context.Background(), name); stopErr != nil {
			m.log.WithError(stopErr).WithField("service", name).Warn("rollback stop failed")
		}
	}
}

func (m *Manager) startOne(ctx context.Context, name string, tracker *startTracker) error {
	cfg, ok := m.configs[name]
	if !ok {
		return &UnknownServiceError{Service: name}
	}

	if m.isRunning(name) {
		return nil
	}

	for _, dep := range cfg.DependsOn {
		if err := m.doStart(ctx, dep, tracker); err != nil {
			return &DependencyUnhealthyError{Service: name, Dependency: dep, Reason: err}
		}

		if err := m.awaitHealthy(ctx, dep); err != nil {
			return &DependencyUnhealthyError{Service: name, Dependency: dep, Reason: err}
		}
	}

	lock := m.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	if m.isRunning(name) {
		return nil
	}

	rs, err := m.launch(ctx, cfg)
	if err != nil {
		return &StartFailedError{Service: name, Reason: err}
	}

	m.mu.Lock()
	m.running[name] = rs
	m.mu.Unlock()

	tracker.add(name)

	if cfg.Health != nil {
		if err := m.monitor.Watch(cfg); err != nil {
			m.log.WithError(err).WithField("service", name).Warn("failed to start health monitor")
		}
	}

	if m.snapshot != nil {
		if err := m.snapshot.Save(m.runningSnapshot()); err != nil {
			m.log.WithError(err).Warn("failed to persist running snapshot")
		}
	}

	return nil
}

func (m *Manager) launch(ctx context.Context, cfg *ServiceConfig) (*runningService, error) {
	var plan Plan

	var err error

	switch {
	case cfg.Kind == BackendPackage:
		if m.deployer == nil {
			return nil, fmt.Errorf("package backend configured but no deployer available")
		}

		plan, err = m.deployer.Deploy(ctx, cfg, m.launcher)
	case cfg.Kind == BackendDocker && m.docker != nil:
		if err := m.docker.ValidatePortSpecs(cfg.Docker.Ports); err != nil {
			return nil, err
		}

		if err := m.docker.EnsureImage(ctx, cfg.Docker.Image); err != nil {
			return nil, err
		}

		plan, err = buildPlan(cfg)
	default:
		plan, err = buildPlan(cfg)
	}

	if err != nil {
		return nil, err
	}

	stack := plan.Stack
	if cfg.Kind == BackendDocker {
		// Start is the `docker run` that creates the container, so it runs
		// locally rather than through the plan's DockerLayer.
		stack = execpkg.NewLayerStack()
	}

	executor := execpkg.NewLayeredExecutor(stack, m.launcher, m.attacher)

	launchCtx, cancel := context.WithCancel(context.Background())

	events, handle, err := executor.Launch(launchCtx, plan.Target, plan.Start)
	if err != nil {
		cancel()

		return nil, err
	}

	rs := &runningService{cfg: cfg, plan: plan, cancel: cancel, processHandle: handle}

	if plan.RemotePID {
		filtered, pidFn := filterSSHPIDMarker(events)
		events = filtered
		rs.sshPID = pidFn
	}

	events = capturePID(events, &rs.pid)

	rs.events = fanout.New(fanout.DefaultBufferSize)
	go rs.events.Run(launchCtx, events)

	return rs, nil
}

// capturePID tees a Started event's pid into dest without removing it from
// the stream.
func capturePID(events <-chan execpkg.Event, dest *atomic.Int64) <-chan execpkg.Event {
	out := make(chan execpkg.Event)

	go func() {
		defer close(out)

		for ev := range events {
			if ev.Kind == execpkg.EventStarted {
				dest.Store(int64(ev.PID))
			}

			out <- ev
		}
	}()

	return out
}

func (m *Manager) awaitHealthy(ctx context.Context, name string) error {
	cfg := m.configs[name]
	if cfg.Health == nil {
		return nil
	}

	deadline := time.Now().Add(defaultDependencyStartTimeout)

	for time.Now().Before(deadline) {
		state := m.monitor.State(name)

		switch state {
		case HealthHealthy:
			return nil
		case HealthUnhealthy:
			return fmt.Errorf("service %q reported unhealthy", name)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(250 * time.Millisecond):
		}
	}

	return fmt.Errorf("service %q did not become healthy within %s", name, defaultDependencyStartTimeout)
}

func (m *Manager) isRunning(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.running[name]

	return ok
}

// StopAll stops every running service in reverse dependency order.
func (m *Manager) StopAll(ctx context.Context) error {
	var firstErr error

	for i := len(m.order) - 1; i >= 0; i-- {
		name := m.order[i]
		if !m.isRunning(name) {
			continue
		}

		if err := m.Stop(ctx, name); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// Stop stops name, using the backend's stop semantics: a ManagedProcess is
// signalled (SIGTERM then SIGKILL after grace), a ManagedService's StopCmd
// (or, for SSH, a dynamically-built remote kill by captured pid) is run.
func (m *Manager) Stop(ctx context.Context, name string) error {
	lock := m.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	rs, ok := m.running[name]
	m.mu.Unlock()

	if !ok {
		return nil
	}

	m.monitor.Unwatch(name)

	var stopErr error

	switch {
	case rs.plan.RemotePID:
		pid := 0
		if rs.sshPID != nil {
			pid = rs.sshPID()
		}

		if pid != 0 {
			rendered, err := rs.plan.Stack.Apply(remoteKillCommand(pid))
			if err == nil {
				_, stopErr = execpkg.Run(ctx, m.launcher, rendered)
			} else {
				stopErr = err
			}
		}
	case rs.plan.Target.Kind == execpkg.TargetManagedService:
		_, stopErr = execpkg.Run(ctx, m.launcher, rs.plan.Stop)
	case rs.processHandle != nil:
		stopErr = rs.processHandle.Stop(ctx, 10*time.Second)
	}

	rs.cancel()

	m.mu.Lock()
	delete(m.running, name)
	m.mu.Unlock()

	if m.snapshot != nil {
		if err := m.snapshot.Save(m.runningSnapshot()); err != nil {
			m.log.WithError(err).Warn("failed to persist running snapshot")
		}
	}

	if stopErr != nil {
		return &StopFailedError{Service: name, Reason: stopErr}
	}

	return nil
}

// Subscribe returns a fan-out subscription to name's event stream, or false
// if name is not currently running.
func (m *Manager) Subscribe(name string) (int, <-chan execpkg.Event, bool) {
	m.mu.Lock()
	rs, ok := m.running[name]
	m.mu.Unlock()

	if !ok {
		return 0, nil, false
	}

	id, ch := rs.events.Subscribe()

	return id, ch, true
}

// Health returns the last observed HealthState for name.
func (m *Manager) Health(name string) HealthState {
	return m.monitor.State(name)
}

// Status returns the current process Status for a running ManagedProcess
// service. Other backend kinds report StatusUnknown here since their
// liveness is not exposed through a ProcessHandle.
func (m *Manager) Status(name string) execpkg.Status {
	m.mu.Lock()
	rs, ok := m.running[name]
	m.mu.Unlock()

	if !ok || rs.processHandle == nil || rs.plan.Target.Kind != execpkg.TargetManagedProcess {
		return execpkg.UnknownStatus()
	}

	return rs.processHandle.Status()
}

func (m *Manager) runningSnapshot() RunningSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := RunningSnapshot{Services: make([]RunningServiceEntry, 0, len(m.running))}

	for name, rs := range m.running {
		snap.Services = append(snap.Services, RunningServiceEntry{
			Name: name,
			Kind: string(rs.cfg.Kind),
			PID:  int(rs.pid.Load()),
		})
	}

	return snap
}
