// Package engine wraps the container engine CLI used to build and publish images.
package engine

import (
	"context"
	"strings"

	"github.com/umapps/aci-deploy/internal/runner"
)

// Engine defines the image operations the pipeline needs from a container engine.
type Engine interface {
	// Name returns the engine binary name
	Name() string
	// Version returns the client version
	Version(ctx context.Context) (string, error)
	// ServerVersion returns the daemon version, failing when the daemon is not running
	ServerVersion(ctx context.Context) (string, error)
	// ImageExists checks the local image cache for name:tag
	ImageExists(ctx context.Context, image string) (bool, error)
	// Build builds image from contextDir
	Build(ctx context.Context, image, contextDir string) (string, error)
	// Tag adds target as a new reference to source
	Tag(ctx context.Context, source, target string) error
	// Push uploads image to its registry
	Push(ctx context.Context, image string) (string, error)
}

type DockerEngine struct {
	runner runner.CommandRunner
}

var _ Engine = &DockerEngine{}

func NewDockerEngine(r runner.CommandRunner) *DockerEngine {
	return &DockerEngine{runner: r}
}

func (d *DockerEngine) Name() string {
	return "docker"
}

func (d *DockerEngine) docker(ctx context.Context, args ...string) (string, error) {
	result, err := d.runner.Run(ctx, append([]string{"docker"}, args...)...)
	return result.Stdout, err
}

func (d *DockerEngine) Version(ctx context.Context) (string, error) {
	out, err := d.docker(ctx, "version", "--format", "{{.Client.Version}}")
	return strings.TrimSpace(out), err
}

func (d *DockerEngine) ServerVersion(ctx context.Context) (string, error) {
	out, err := d.docker(ctx, "info", "--format", "{{.ServerVersion}}")
	return strings.TrimSpace(out), err
}

func (d *DockerEngine) ImageExists(ctx context.Context, image string) (bool, error) {
	out, err := d.docker(ctx, "images", "--format", "{{.Repository}}:{{.Tag}}", "--filter", "reference="+image)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

func (d *DockerEngine) Build(ctx context.Context, image, contextDir string) (string, error) {
	return d.docker(ctx, "build", "-t", image, contextDir)
}

func (d *DockerEngine) Tag(ctx context.Context, source, target string) error {
	_, err := d.docker(ctx, "tag", source, target)
	return err
}

func (d *DockerEngine) Push(ctx context.Context, image string) (string, error) {
	return d.docker(ctx, "push", image)
}
