package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	execpkg "github.com/ethpandaops/xcli/pkg/exec"
	"github.com/ethpandaops/xcli/pkg/service"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/docker/docker/client"
	"github.com/sirupsen/logrus"
)

const attachPollInterval = 500 * time.Millisecond

// BuildManager parses a stack definition and wires up a service.Manager
// ready to Start/Stop. It is the CLI boundary referenced throughout
// pkg/service's doc comments: the only place ServiceConfig values are
// produced from a file on disk.
func BuildManager(configPath string, log logrus.FieldLogger) (*Manager, error) {
	cfg, err := Load(configPath)
	if err != nil {
		return nil, err
	}

	envDefaults, err := LoadEnvDefaults(resolveEnvFile(configPath, cfg.EnvFile))
	if err != nil {
		return nil, err
	}

	configs, err := cfg.ServiceConfigs(envDefaults)
	if err != nil {
		return nil, fmt.Errorf("invalid harness config: %w", err)
	}

	stateDir := cfg.StateDir
	if stateDir == "" {
		stateDir = filepath.Join(filepath.Dir(configPath), ".harness")
	}

	launcher := execpkg.NewLocalLauncher(log)
	attacher := execpkg.NewLocalAttacher(log, attachPollInterval)
	snapshot := service.NewSnapshotStore(filepath.Join(stateDir, "running.json"), log)

	var deployer *service.PackageDeployer
	if needsS3Fetch(configs) {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to load aws config: %w", err)
		}

		deployer = service.NewPackageDeployer(service.NewS3Fetcher(s3.NewFromConfig(awsCfg)))
	} else if hasPackageBackend(configs) {
		deployer = service.NewPackageDeployer(nil)
	}

	var mgr *service.Manager

	if hasDockerBackend(configs) {
		dockerClient, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
		if err != nil {
			return nil, fmt.Errorf("failed to create docker client: %w", err)
		}

		docker := service.NewDockerEnsurer(dockerClient, log)

		mgr, err = service.NewManagerWithDocker(configs, launcher, attacher, deployer, docker, snapshot, log)
		if err != nil {
			return nil, err
		}
	} else {
		mgr, err = service.NewManager(configs, launcher, attacher, deployer, snapshot, log)
		if err != nil {
			return nil, err
		}
	}

	return &Manager{Manager: mgr, configs: configs}, nil
}

// Manager wraps *service.Manager with the bits the CLI needs (the ordered
// config list, for status/logs commands) without widening pkg/service's
// own API surface.
type Manager struct {
	*service.Manager
	configs []*service.ServiceConfig
}

// Configs returns the stack's services in dependency-resolved config form.
func (m *Manager) Configs() []*service.ServiceConfig {
	return m.configs
}

func resolveEnvFile(configPath, envFile string) string {
	if envFile == "" {
		return ""
	}

	if filepath.IsAbs(envFile) {
		return envFile
	}

	return filepath.Join(filepath.Dir(configPath), envFile)
}

func hasDockerBackend(configs []*service.ServiceConfig) bool {
	for _, c := range configs {
		if c.Kind == service.BackendDocker {
			return true
		}
	}

	return false
}

func hasPackageBackend(configs []*service.ServiceConfig) bool {
	for _, c := range configs {
		if c.Kind == service.BackendPackage {
			return true
		}
	}

	return false
}

func needsS3Fetch(configs []*service.ServiceConfig) bool {
	for _, c := range configs {
		if c.Kind == service.BackendPackage && c.Package != nil && c.Package.Tarball == "" {
			return true
		}
	}

	return false
}
