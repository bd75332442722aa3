// Package preflight verifies the external tools the pipeline drives are installed and recent
// enough before anything is provisioned.
package preflight

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-version"
)

var (
	ErrToolTooOld      = errors.New("tool version below minimum")
	ErrDaemonDown      = errors.New("container engine daemon is not running")
	ErrPreflightFailed = errors.New("preflight checks failed")
)

// Tool is anything that can report the version of the binary behind it.
type Tool interface {
	Name() string
	Version(ctx context.Context) (string, error)
}

// Daemon is a tool with a server component that must be reachable.
type Daemon interface {
	ServerVersion(ctx context.Context) (string, error)
}

type Requirement struct {
	Tool    Tool
	Minimum string
}

type Check struct {
	Name    string
	Version string
	Minimum string
	Err     error
}

func (c Check) Passed() bool {
	return c.Err == nil
}

// Run evaluates every requirement, never stopping at the first failure, and checks the
// daemon when one is given. The returned error wraps ErrPreflightFailed when any check failed.
func Run(ctx context.Context, requirements []Requirement, daemon Daemon) ([]Check, error) {
	var checks []Check
	failed := 0

	for _, req := range requirements {
		check := checkTool(ctx, req)
		if !check.Passed() {
			failed++
		}
		checks = append(checks, check)
	}

	if daemon != nil {
		check := Check{Name: "docker daemon"}
		serverVersion, err := daemon.ServerVersion(ctx)
		switch {
		case err != nil:
			check.Err = fmt.Errorf("%w: %v", ErrDaemonDown, err)
		case serverVersion == "":
			check.Err = ErrDaemonDown
		default:
			check.Version = serverVersion
		}
		if !check.Passed() {
			failed++
		}
		checks = append(checks, check)
	}

	if failed > 0 {
		return checks, fmt.Errorf("%w: %d of %d", ErrPreflightFailed, failed, len(checks))
	}
	return checks, nil
}

func checkTool(ctx context.Context, req Requirement) Check {
	check := Check{Name: req.Tool.Name(), Minimum: req.Minimum}

	raw, err := req.Tool.Version(ctx)
	if err != nil {
		check.Err = err
		return check
	}
	check.Version = raw

	if req.Minimum == "" {
		return check
	}
	if err := AtLeast(raw, req.Minimum); err != nil {
		check.Err = err
	}
	return check
}

// AtLeast reports whether current satisfies >= minimum.
func AtLeast(current, minimum string) error {
	constraint, err := version.NewConstraint(">= " + minimum)
	if err != nil {
		return fmt.Errorf("invalid minimum version '%s': %w", minimum, err)
	}
	v, err := version.NewVersion(current)
	if err != nil {
		return fmt.Errorf("failed to parse version '%s': %w", current, err)
	}
	if !constraint.Check(v.Core()) {
		return fmt.Errorf("%w: %s < %s", ErrToolTooOld, v.String(), minimum)
	}
	return nil
}
