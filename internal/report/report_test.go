package report

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	"github.com/umapps/aci-deploy/internal/pipeline"
)

func sampleReport() *pipeline.Report {
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return &pipeline.Report{
		RunId:      "6f1c1f2e-0000-4000-8000-000000000000",
		StartedAt:  started,
		FinishedAt: started.Add(90 * time.Second),
		Steps: []pipeline.StepResult{
			{Name: "ensure-group", Status: pipeline.StatusSatisfied, Message: "resource group 'rg-myapp' already exists", Identifier: "rg-myapp", Duration: 1500 * time.Millisecond},
			{Name: "scan-image", Status: pipeline.StatusFailed, Informational: true, Message: "grype: executable not found", Err: errors.New("grype: executable not found")},
			{Name: "create-container", Status: pipeline.StatusFailed, Message: "failed", Err: errors.New("command 'az container create --registry-password s3cr3t' exited with code 1")},
		},
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "run.yaml")

	err := Save(path, sampleReport(), map[string]string{"IMAGE_NAME": "myapp"})
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "s3cr3t")

	var doc Document
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Equal(t, "6f1c1f2e-0000-4000-8000-000000000000", doc.RunId)
	assert.Equal(t, "1m30s", doc.Duration)
	assert.False(t, doc.Succeeded)
	assert.Equal(t, "myapp", doc.Settings["IMAGE_NAME"])
	require.Len(t, doc.Steps, 3)
	assert.Equal(t, "satisfied", doc.Steps[0].Status)
	assert.Equal(t, "1.5s", doc.Steps[0].Duration)
	assert.True(t, doc.Steps[1].Informational)
	assert.Contains(t, doc.Steps[2].Error, "--registry-password ******")
}
