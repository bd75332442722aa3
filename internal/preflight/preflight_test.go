package preflight

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umapps/aci-deploy/internal/engine"
	"github.com/umapps/aci-deploy/internal/runner"
)

type fakeTool struct {
	name    string
	version string
	err     error
}

func (f fakeTool) Name() string { return f.name }

func (f fakeTool) Version(context.Context) (string, error) { return f.version, f.err }

func TestAtLeast(t *testing.T) {
	var tests = []struct {
		current string
		minimum string
		wantErr error
	}{
		{current: "2.61.0", minimum: "2.50.0"},
		{current: "2.50.0", minimum: "2.50.0"},
		{current: "v0.74.7", minimum: "0.70.0"},
		{current: "24.0.7-rc.1", minimum: "20.10.0"},
		{current: "2.49.1", minimum: "2.50.0", wantErr: ErrToolTooOld},
	}

	for _, tc := range tests {
		t.Run(tc.current, func(t *testing.T) {
			err := AtLeast(tc.current, tc.minimum)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}

	assert.Error(t, AtLeast("not-a-version", "1.0.0"))
}

func TestRun(t *testing.T) {
	fake := runner.NewFakeCommandRunner()
	fake.On("docker", "info").Return("24.0.7\n")
	docker := engine.NewDockerEngine(fake)

	checks, err := Run(context.Background(), []Requirement{
		{Tool: fakeTool{name: "az", version: "2.61.0"}, Minimum: "2.50.0"},
		{Tool: fakeTool{name: "grype", version: "0.74.7"}, Minimum: "0.70.0"},
	}, docker)
	require.NoError(t, err)
	require.Len(t, checks, 3)
	assert.Equal(t, "docker daemon", checks[2].Name)
	assert.Equal(t, "24.0.7", checks[2].Version)
}

func TestRunReportsEveryFailure(t *testing.T) {
	fake := runner.NewFakeCommandRunner()
	fake.On("docker", "info").Fail(1, "Cannot connect to the Docker daemon at unix:///var/run/docker.sock.")
	docker := engine.NewDockerEngine(fake)

	checks, err := Run(context.Background(), []Requirement{
		{Tool: fakeTool{name: "az", err: errors.New("az: executable not found")}, Minimum: "2.50.0"},
		{Tool: fakeTool{name: "grype", version: "0.60.0"}, Minimum: "0.70.0"},
		{Tool: fakeTool{name: "docker", version: "24.0.7"}, Minimum: "20.10.0"},
	}, docker)
	assert.ErrorIs(t, err, ErrPreflightFailed)
	require.Len(t, checks, 4)

	assert.False(t, checks[0].Passed())
	assert.ErrorIs(t, checks[1].Err, ErrToolTooOld)
	assert.True(t, checks[2].Passed())
	assert.ErrorIs(t, checks[3].Err, ErrDaemonDown)
}
