package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"

	execpkg "github.com/ethpandaops/xcli/pkg/exec"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/ethpandaops/xcli/pkg/portutil"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// planDocker builds the (LayerStack, Command, Target) triple for a
// container-backed service. The start command is a raw `docker run`, not
// routed through DockerLayer: DockerLayer wraps exec into an *existing*
// container, while bringing the container up in the first place is its own
// command. The returned Stack holds that DockerLayer for commands run inside
// the container; Manager.launch runs Start without it.
func planDocker(cfg *ServiceConfig) (Plan, error) {
	b := cfg.Docker
	if b == nil {
		return Plan{}, &StartFailedError{Service: cfg.Name, Reason: errMissingBackendConfig("docker")}
	}

	containerName := b.Container
	if containerName == "" {
		containerName = fmt.Sprintf("%s-%s", cfg.Name, uuid.NewString()[:8])
	}

	args := []string{"run", "-d", "--name", containerName}

	for _, p := range b.Ports {
		args = append(args, "-p", p)
	}

	for _, v := range b.Volumes {
		args = append(args, "-v", v)
	}

	for _, k := range sortedEnvKeys(b.Env) {
		args = append(args, "-e", k+"="+b.Env[k])
	}

	args = append(args, b.Image)

	start := execpkg.NewCommand("docker", args...)
	stop := execpkg.NewCommand("docker", "stop", containerName)

	stack := execpkg.NewLayerStack(execpkg.DockerLayer{Container: containerName})

	return Plan{
		Stack:  stack,
		Start:  start,
		Stop:   stop,
		Target: execpkg.ManagedServiceTarget(cfg.Name, start, stop, nil),
	}, nil
}

func sortedEnvKeys(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// DockerEnsurer performs the pre-launch steps a raw `docker run` cannot do
// itself: pulling an image that is not already present locally, and
// translating a service's configured port list into the nat.PortSet shape
// Docker's API expects for pre-flight validation.
type DockerEnsurer struct {
	cli *client.Client
	log logrus.FieldLogger
}

// NewDockerEnsurer wraps an existing docker client.Client.
func NewDockerEnsurer(cli *client.Client, log logrus.FieldLogger) *DockerEnsurer {
	return &DockerEnsurer{cli: cli, log: log.WithField("component", "docker-ensurer")}
}

// EnsureImage pulls ref if the engine does not already have it cached.
func (e *DockerEnsurer) EnsureImage(ctx context.Context, ref string) error {
	_, _, err := e.cli.ImageInspectWithRaw(ctx, ref)
	if err == nil {
		return nil
	}

	e.log.WithField("image", ref).Info("pulling image")

	rc, err := e.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", ref, err)
	}
	defer rc.Close()

	if _, err := io.Copy(io.Discard, rc); err != nil {
		return fmt.Errorf("pull image %s: %w", ref, err)
	}

	return nil
}

// ContainerHealthy reports whether a running container's docker-native
// healthcheck (if any) currently reports healthy. Containers with no
// configured healthcheck are treated as healthy once running.
func (e *DockerEnsurer) ContainerHealthy(ctx context.Context, containerName string) (bool, error) {
	info, err := e.cli.ContainerInspect(ctx, containerName)
	if err != nil {
		return false, fmt.Errorf("inspect container %s: %w", containerName, err)
	}

	if !info.State.Running {
		return false, nil
	}

	if info.State.Health == nil {
		return true, nil
	}

	return info.State.Health.Status == "healthy", nil
}

// ValidatePortSpecs rejects a Docker backend's port list early, before a
// `docker run` is ever issued: it runs the list through the same
// nat.PortSet parsing Docker's own API uses, then checks the host side of
// each mapping isn't already bound by another process on this machine.
func (e *DockerEnsurer) ValidatePortSpecs(ports []string) error {
	if _, err := parsePortSet(ports); err != nil {
		return err
	}

	var hostPorts []int

	for _, p := range ports {
		host, _, err := splitHostContainerPort(p)
		if err != nil || host == "" {
			continue
		}

		if n, err := strconv.Atoi(host); err == nil {
			hostPorts = append(hostPorts, n)
		}
	}

	if conflicts := portutil.CheckPorts(hostPorts); len(conflicts) > 0 {
		return fmt.Errorf("%s", portutil.FormatConflicts(conflicts))
	}

	return nil
}

// parsePortSet translates "host:container[/proto]" strings into the
// nat.PortSet shape used by the Docker API for exposed-port bookkeeping.
func parsePortSet(ports []string) (nat.PortSet, error) {
	set := nat.PortSet{}

	for _, p := range ports {
		_, containerPort, err := splitHostContainerPort(p)
		if err != nil {
			return nil, err
		}

		proto, portNum := nat.SplitProtoPort(containerPort)

		port, err := nat.NewPort(proto, portNum)
		if err != nil {
			return nil, fmt.Errorf("parse port %q: %w", p, err)
		}

		set[port] = struct{}{}
	}

	return set, nil
}

func splitHostContainerPort(spec string) (host, containerPort string, err error) {
	for i := len(spec) - 1; i >= 0; i-- {
		if spec[i] == ':' {
			return spec[:i], spec[i+1:], nil
		}
	}

	return "", spec, nil
}
