package service

import (
	"context"
	"fmt"
	"path"
	"path/filepath"

	execpkg "github.com/ethpandaops/xcli/pkg/exec"
)

// PackageDeployer runs a Package backend's multi-step deploy: fetch,
// transfer, pre-install, unpack, post-install, then hands back the Plan for
// the launch, which the caller performs. Unlike the other
// three backends, this is not a single static (LayerStack, Command, Target)
// triple — it is a sequenced, fallible pipeline, so it gets its own
// orchestration function rather than living in buildPlan.
type PackageDeployer struct {
	fetcher PackageFetcher
}

// PackageFetcher retrieves a tarball to a local path before it is shipped
// to the remote host. The S3-backed implementation lives in
// adapter_package_s3.go.
type PackageFetcher interface {
	Fetch(ctx context.Context, bucket, key, destPath string) error
}

// NewPackageDeployer builds a deployer using fetcher to resolve S3-sourced
// tarballs; fetcher may be nil when every PackageBackend uses a local
// Tarball path.
func NewPackageDeployer(fetcher PackageFetcher) *PackageDeployer {
	return &PackageDeployer{fetcher: fetcher}
}

// Deploy runs cfg.Package's full pipeline using launcher to execute every
// step's Command, and returns the Plan the caller launches to start the
// service; Deploy itself does not launch it.
func (d *PackageDeployer) Deploy(ctx context.Context, cfg *ServiceConfig, launcher execpkg.Launcher) (Plan, error) {
	b := cfg.Package
	if b == nil {
		return Plan{}, &StartFailedError{Service: cfg.Name, Reason: errMissingBackendConfig("package")}
	}

	tarball := b.Tarball

	if tarball == "" {
		if d.fetcher == nil {
			return Plan{}, &PackageStepError{Step: "fetch", Reason: fmt.Errorf("no local tarball and no fetcher configured")}
		}

		tarball = filepath.Join("/tmp", path.Base(b.S3Key))

		if err := d.fetcher.Fetch(ctx, b.S3Bucket, b.S3Key, tarball); err != nil {
			return Plan{}, &PackageStepError{Step: "fetch", Reason: err}
		}
	}

	remoteLayer := execpkg.SshLayer{Host: b.Host, User: b.User, Key: b.Key}
	stack := execpkg.NewLayerStack(remoteLayer)

	transfer := execpkg.NewCommand("scp", tarball, fmt.Sprintf("%s@%s:%s", b.User, b.Host, b.InstallPath))
	if err := runStep(ctx, launcher, transfer, "transfer"); err != nil {
		return Plan{}, err
	}

	remote := func(shellCmd string) (execpkg.Command, error) {
		return stack.Apply(execpkg.NewCommand("sh", "-c", shellCmd))
	}

	for _, step := range b.Pre {
		cmd, err := remote(step)
		if err != nil {
			return Plan{}, &PackageStepError{Step: "pre-install", Reason: err}
		}

		if err := runStep(ctx, launcher, cmd, "pre-install"); err != nil {
			return Plan{}, err
		}
	}

	unpackShell := fmt.Sprintf("tar -xzf %s -C %s", path.Base(tarball), b.InstallPath)

	unpack, err := remote(unpackShell)
	if err != nil {
		return Plan{}, &PackageStepError{Step: "unpack", Reason: err}
	}

	if err := runStep(ctx, launcher, unpack, "unpack"); err != nil {
		return Plan{}, err
	}

	for _, step := range b.Post {
		cmd, err := remote(step)
		if err != nil {
			return Plan{}, &PackageStepError{Step: "post-install", Reason: err}
		}

		if err := runStep(ctx, launcher, cmd, "post-install"); err != nil {
			return Plan{}, err
		}
	}

	start := wrapWithPIDMarker(execpkg.NewCommand(b.Binary, b.Args...).WithEnv(b.Env).WithDir(b.InstallPath))

	return Plan{
		Stack:     stack,
		Start:     start,
		Target:    execpkg.ManagedServiceTarget(cfg.Name, start, execpkg.Command{}, nil),
		RemotePID: true,
	}, nil
}

func runStep(ctx context.Context, launcher execpkg.Launcher, cmd execpkg.Command, step string) error {
	result, err := execpkg.Run(ctx, launcher, cmd)
	if err != nil {
		return &PackageStepError{Step: step, Reason: err}
	}

	if result.Status.Kind != execpkg.StatusExited || result.Status.ExitCode == nil || *result.Status.ExitCode != 0 {
		return &PackageStepError{Step: step, Reason: fmt.Errorf("non-zero exit: %s", result.Stderr)}
	}

	return nil
}
