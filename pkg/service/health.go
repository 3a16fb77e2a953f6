package service

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"sync"
	"time"

	execpkg "github.com/ethpandaops/xcli/pkg/exec"
	"github.com/acarl005/stripansi"
	"github.com/sirupsen/logrus"
)

// HealthState is the externally-observed health of a managed service,
// separate from its process Status: a process can be StatusRunning and
// still Unhealthy.
type HealthState string

const (
	// HealthUnknown means no health check has ever been registered for
	// this service (no HealthCheck configured, or never started).
	HealthUnknown HealthState = "unknown"
	// HealthStarting means a health check is registered and probing, but
	// has neither succeeded nor crossed the failure threshold yet. It
	// does not count as Unhealthy for dependency gating, but does not
	// satisfy a wait-for-healthy either.
	HealthStarting  HealthState = "starting"
	HealthHealthy   HealthState = "healthy"
	HealthUnhealthy HealthState = "unhealthy"
	// HealthStopped means the service was deliberately stopped; its last
	// probed state is discarded rather than reported as Unknown.
	HealthStopped HealthState = "stopped"
)

// Prober runs one health probe attempt and reports success or failure.
// Implementations must not block past ctx's deadline.
type Prober interface {
	Probe(ctx context.Context) error
}

// CommandProber runs argv and treats a matching exit code as success.
type CommandProber struct {
	Argv         []string
	ExpectedExit int
}

func (p *CommandProber) Probe(ctx context.Context) error {
	if len(p.Argv) == 0 {
		return fmt.Errorf("command probe: empty argv")
	}

	cmd := exec.CommandContext(ctx, p.Argv[0], p.Argv[1:]...)

	var out bytes.Buffer

	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()

	exitCode := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	} else if err != nil {
		return fmt.Errorf("command probe: %w", err)
	}

	if exitCode != p.ExpectedExit {
		return fmt.Errorf("command probe: exit %d, want %d: %s", exitCode, p.ExpectedExit, stripansi.Strip(out.String()))
	}

	return nil
}

// ScriptProber runs an external script path, same exit-code contract as
// CommandProber.
type ScriptProber struct {
	Path         string
	ExpectedExit int
}

func (p *ScriptProber) Probe(ctx context.Context) error {
	cp := &CommandProber{Argv: []string{p.Path}, ExpectedExit: p.ExpectedExit}

	return cp.Probe(ctx)
}

// TCPProber succeeds if a TCP connection to Host:Port can be established.
type TCPProber struct {
	Host string
	Port int
}

func (p *TCPProber) Probe(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", p.Host, p.Port)

	var d net.Dialer

	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("tcp probe %s: %w", addr, err)
	}

	return conn.Close()
}

// HTTPProber succeeds if a GET to URL returns ExpectedStatus (defaults to
// 200 when zero).
type HTTPProber struct {
	URL            string
	ExpectedStatus int
}

func (p *HTTPProber) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return fmt.Errorf("http probe: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("http probe %s: %w", p.URL, err)
	}
	defer resp.Body.Close()

	want := p.ExpectedStatus
	if want == 0 {
		want = http.StatusOK
	}

	if resp.StatusCode != want {
		return fmt.Errorf("http probe %s: status %d, want %d", p.URL, resp.StatusCode, want)
	}

	return nil
}

// buildProber translates a HealthCheck config into its Prober.
func buildProber(hc *HealthCheck) (Prober, error) {
	switch hc.Kind {
	case HealthCommand:
		return &CommandProber{Argv: hc.Argv, ExpectedExit: hc.ExpectedExit}, nil
	case HealthScript:
		return &ScriptProber{Path: hc.ScriptPath, ExpectedExit: hc.ExpectedExit}, nil
	case HealthTCP:
		return &TCPProber{Host: hc.Host, Port: hc.Port}, nil
	case HealthHTTP:
		return &HTTPProber{URL: hc.URL, ExpectedStatus: hc.ExpectedStatus}, nil
	default:
		return nil, fmt.Errorf("unknown health check kind %q", hc.Kind)
	}
}

const (
	defaultProbeInterval = 5 * time.Second
	defaultProbeTimeout  = 3 * time.Second
	defaultRetries       = 2
)

// monitoredService is one Monitor entry's mutable state.
type monitoredService struct {
	name            string
	prober          Prober
	interval        time.Duration
	timeout         time.Duration
	retries         int
	state           HealthState
	consecutiveFail int
	stop            chan struct{}
}

// Monitor runs one serialized probe loop per service and publishes
// HealthState transitions. Hysteresis: retries+1 consecutive failures
// before a service is declared Unhealthy; a single success restores
// Healthy immediately, per spec §5.
type Monitor struct {
	log      logrus.FieldLogger
	onChange func(service string, state HealthState)

	mu       sync.Mutex
	services map[string]*monitoredService
	stopped  map[string]bool
}

// NewMonitor builds a Monitor that calls onChange whenever a service's
// HealthState changes.
func NewMonitor(log logrus.FieldLogger, onChange func(service string, state HealthState)) *Monitor {
	return &Monitor{
		log:      log.WithField("component", "health-monitor"),
		onChange: onChange,
		services: map[string]*monitoredService{},
		stopped:  map[string]bool{},
	}
}

// Watch starts probing cfg on its configured interval. Calling Watch again
// for an already-watched service replaces its prober and restarts the loop.
func (m *Monitor) Watch(cfg *ServiceConfig) error {
	if cfg.Health == nil {
		return nil
	}

	prober, err := buildProber(cfg.Health)
	if err != nil {
		return fmt.Errorf("service %q: %w", cfg.Name, err)
	}

	m.Unwatch(cfg.Name)

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.stopped, cfg.Name)

	interval := cfg.Health.Interval
	if interval <= 0 {
		interval = defaultProbeInterval
	}

	timeout := cfg.Health.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}

	retries := cfg.Health.Retries
	if retries <= 0 {
		retries = defaultRetries
	}

	ms := &monitoredService{
		name:     cfg.Name,
		prober:   prober,
		interval: interval,
		timeout:  timeout,
		retries:  retries,
		state:    HealthStarting,
		stop:     make(chan struct{}),
	}

	m.services[cfg.Name] = ms

	go m.loop(ms)

	return nil
}

// Unwatch stops probing a service and marks it Stopped, distinguishing a
// deliberate stop from a service that was never watched at all.
func (m *Monitor) Unwatch(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ms, ok := m.services[name]; ok {
		close(ms.stop)
		delete(m.services, name)
		m.stopped[name] = true
	}
}

// State returns the last observed HealthState: HealthStopped if name was
// deliberately stopped, HealthUnknown if it was never watched at all.
func (m *Monitor) State(name string) HealthState {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ms, ok := m.services[name]; ok {
		return ms.state
	}

	if m.stopped[name] {
		return HealthStopped
	}

	return HealthUnknown
}

func (m *Monitor) loop(ms *monitoredService) {
	m.probeOnce(ms)

	ticker := time.NewTicker(ms.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ms.stop:
			return
		case <-ticker.C:
			m.probeOnce(ms)
		}
	}
}

func (m *Monitor) probeOnce(ms *monitoredService) {
	ctx, cancel := context.WithTimeout(context.Background(), ms.timeout)
	defer cancel()

	err := ms.prober.Probe(ctx)

	m.mu.Lock()

	prev := ms.state

	if err == nil {
		ms.consecutiveFail = 0
		ms.state = HealthHealthy
	} else {
		ms.consecutiveFail++

		if ms.consecutiveFail >= ms.retries+1 {
			ms.state = HealthUnhealthy
		}
	}

	newState := ms.state

	m.mu.Unlock()

	if err != nil {
		m.log.WithError(err).WithField("service", ms.name).Debug("health probe failed")
	}

	if newState != prev && m.onChange != nil {
		m.onChange(ms.name, newState)
	}
}

// StaticHealthFromTarget reports HealthState purely from process liveness,
// used for services with no HealthCheck configured: running means healthy.
func StaticHealthFromTarget(status execpkg.Status) HealthState {
	switch status.Kind {
	case execpkg.StatusRunning:
		return HealthHealthy
	case execpkg.StatusUnknown:
		return HealthUnknown
	default:
		return HealthUnhealthy
	}
}
