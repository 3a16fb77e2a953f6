// Package cli is the YAML-configuration and process-orchestration boundary
// for the harness CLI. Per spec §6, the execution core and the service
// orchestrator never read files themselves; this package is the external
// collaborator that parses a stack definition into []*service.ServiceConfig
// and hands it to a pkg/service.Manager.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/ethpandaops/xcli/pkg/service"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root of a harness stack definition file.
type Config struct {
	// StateDir holds the running.json snapshot used for attach-on-restart.
	// Defaults to ".harness" relative to the config file when empty.
	StateDir string `yaml:"stateDir,omitempty"`

	// EnvFile is an optional dotenv file whose values seed every service's
	// Env map (explicit per-service keys win over these defaults).
	EnvFile string `yaml:"envFile,omitempty"`

	Services []ServiceSpec `yaml:"services"`
}

// ServiceSpec is one service entry in a stack definition file.
type ServiceSpec struct {
	Name      string   `yaml:"name"`
	Kind      string   `yaml:"kind"`
	DependsOn []string `yaml:"dependsOn,omitempty"`

	Process *ProcessSpec `yaml:"process,omitempty"`
	Docker  *DockerSpec  `yaml:"docker,omitempty"`
	SSH     *SSHSpec     `yaml:"ssh,omitempty"`
	Package *PackageSpec `yaml:"package,omitempty"`

	Health *HealthSpec `yaml:"health,omitempty"`
}

// ProcessSpec mirrors service.ProcessBackend with YAML tags.
type ProcessSpec struct {
	Binary string            `yaml:"binary"`
	Args   []string          `yaml:"args,omitempty"`
	Env    map[string]string `yaml:"env,omitempty"`
	Dir    string            `yaml:"dir,omitempty"`
}

// DockerSpec mirrors service.DockerBackend with YAML tags.
type DockerSpec struct {
	Image     string            `yaml:"image"`
	Container string            `yaml:"container,omitempty"`
	Ports     []string          `yaml:"ports,omitempty"`
	Volumes   []string          `yaml:"volumes,omitempty"`
	Env       map[string]string `yaml:"env,omitempty"`
}

// SSHSpec mirrors service.SSHBackend with YAML tags.
type SSHSpec struct {
	Host   string            `yaml:"host"`
	User   string            `yaml:"user"`
	Port   int               `yaml:"port,omitempty"`
	Key    string            `yaml:"key,omitempty"`
	Binary string            `yaml:"binary"`
	Args   []string          `yaml:"args,omitempty"`
	Env    map[string]string `yaml:"env,omitempty"`
}

// PackageSpec mirrors service.PackageBackend with YAML tags.
type PackageSpec struct {
	Host        string            `yaml:"host"`
	User        string            `yaml:"user"`
	Key         string            `yaml:"key,omitempty"`
	Tarball     string            `yaml:"tarball,omitempty"`
	S3Bucket    string            `yaml:"s3Bucket,omitempty"`
	S3Key       string            `yaml:"s3Key,omitempty"`
	InstallPath string            `yaml:"installPath"`
	Binary      string            `yaml:"binary"`
	Args        []string          `yaml:"args,omitempty"`
	Env         map[string]string `yaml:"env,omitempty"`
	Pre         []string          `yaml:"pre,omitempty"`
	Post        []string          `yaml:"post,omitempty"`
}

// HealthSpec mirrors service.HealthCheck with YAML tags and string durations.
type HealthSpec struct {
	Kind string `yaml:"kind"`

	Argv         []string `yaml:"argv,omitempty"`
	ExpectedExit int      `yaml:"expectedExit,omitempty"`
	ScriptPath   string   `yaml:"scriptPath,omitempty"`

	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`

	URL            string `yaml:"url,omitempty"`
	ExpectedStatus int    `yaml:"expectedStatus,omitempty"`

	Interval string `yaml:"interval,omitempty"`
	Timeout  string `yaml:"timeout,omitempty"`
	Retries  int    `yaml:"retries,omitempty"`
}

// Load reads and parses a stack definition file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read harness config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse harness config file: %w", err)
	}

	return &cfg, nil
}

// LoadEnvDefaults reads a dotenv file into a plain map. An empty path
// returns an empty map rather than an error, since EnvFile is optional.
func LoadEnvDefaults(path string) (map[string]string, error) {
	if path == "" {
		return map[string]string{}, nil
	}

	env, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
	}

	return env, nil
}

// ServiceConfigs converts every ServiceSpec into a *service.ServiceConfig,
// overlaying defaults under each backend's own Env map (per-service keys
// win on conflict).
func (c *Config) ServiceConfigs(defaults map[string]string) ([]*service.ServiceConfig, error) {
	out := make([]*service.ServiceConfig, 0, len(c.Services))

	for _, spec := range c.Services {
		sc, err := spec.toServiceConfig(defaults)
		if err != nil {
			return nil, fmt.Errorf("service %q: %w", spec.Name, err)
		}

		out = append(out, sc)
	}

	return out, nil
}

func mergeEnv(defaults, overrides map[string]string) map[string]string {
	merged := make(map[string]string, len(defaults)+len(overrides))

	for k, v := range defaults {
		merged[k] = v
	}

	for k, v := range overrides {
		merged[k] = v
	}

	return merged
}

func (s *ServiceSpec) toServiceConfig(defaults map[string]string) (*service.ServiceConfig, error) {
	sc := &service.ServiceConfig{
		Name:      s.Name,
		Kind:      service.BackendKind(s.Kind),
		DependsOn: s.DependsOn,
	}

	switch sc.Kind {
	case service.BackendProcess:
		if s.Process == nil {
			return nil, fmt.Errorf("kind process requires a process block")
		}

		sc.Process = &service.ProcessBackend{
			Binary: s.Process.Binary,
			Args:   s.Process.Args,
			Env:    mergeEnv(defaults, s.Process.Env),
			Dir:    s.Process.Dir,
		}
	case service.BackendDocker:
		if s.Docker == nil {
			return nil, fmt.Errorf("kind docker requires a docker block")
		}

		sc.Docker = &service.DockerBackend{
			Image:     s.Docker.Image,
			Container: s.Docker.Container,
			Ports:     s.Docker.Ports,
			Volumes:   s.Docker.Volumes,
			Env:       mergeEnv(defaults, s.Docker.Env),
		}
	case service.BackendSSH:
		if s.SSH == nil {
			return nil, fmt.Errorf("kind ssh requires an ssh block")
		}

		sc.SSH = &service.SSHBackend{
			Host:   s.SSH.Host,
			User:   s.SSH.User,
			Port:   s.SSH.Port,
			Key:    s.SSH.Key,
			Binary: s.SSH.Binary,
			Args:   s.SSH.Args,
			Env:    mergeEnv(defaults, s.SSH.Env),
		}
	case service.BackendPackage:
		if s.Package == nil {
			return nil, fmt.Errorf("kind package requires a package block")
		}

		sc.Package = &service.PackageBackend{
			Host:        s.Package.Host,
			User:        s.Package.User,
			Key:         s.Package.Key,
			Tarball:     s.Package.Tarball,
			S3Bucket:    s.Package.S3Bucket,
			S3Key:       s.Package.S3Key,
			InstallPath: s.Package.InstallPath,
			Binary:      s.Package.Binary,
			Args:        s.Package.Args,
			Env:         mergeEnv(defaults, s.Package.Env),
			Pre:         s.Package.Pre,
			Post:        s.Package.Post,
		}
	default:
		return nil, fmt.Errorf("unknown kind %q", s.Kind)
	}

	if s.Health != nil {
		hc, err := s.Health.toHealthCheck()
		if err != nil {
			return nil, fmt.Errorf("health: %w", err)
		}

		sc.Health = hc
	}

	return sc, nil
}

func (h *HealthSpec) toHealthCheck() (*service.HealthCheck, error) {
	hc := &service.HealthCheck{
		Kind:           service.HealthCheckKind(h.Kind),
		Argv:           h.Argv,
		ExpectedExit:   h.ExpectedExit,
		ScriptPath:     h.ScriptPath,
		Host:           h.Host,
		Port:           h.Port,
		URL:            h.URL,
		ExpectedStatus: h.ExpectedStatus,
		Retries:        h.Retries,
	}

	if h.Interval != "" {
		d, err := time.ParseDuration(h.Interval)
		if err != nil {
			return nil, fmt.Errorf("invalid interval %q: %w", h.Interval, err)
		}

		hc.Interval = d
	}

	if h.Timeout != "" {
		d, err := time.ParseDuration(h.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", h.Timeout, err)
		}

		hc.Timeout = d
	}

	return hc, nil
}
