package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "batch.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func execute(args ...string) (string, error) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestValidate_OK(t *testing.T) {
	p := writeConfig(t, `
raw_path: s3://raw-bucket/youtube/raw_statistics/
cleansed_path: s3://cleansed-bucket/youtube/raw_statistics
`)
	out, err := execute("validate", "--config", p)
	require.NoError(t, err)
	assert.Contains(t, out, "configuration is valid")
}

func TestValidate_ReportsIssues(t *testing.T) {
	p := writeConfig(t, `
raw_path: raw-bucket/youtube
cleansed_path: s3://cleansed-bucket/x/
catalog: hive
`)
	out, err := execute("validate", "--config", p)
	require.Error(t, err)
	assert.Contains(t, out, "error: raw_path")
	assert.Contains(t, out, "error: catalog")
}

func TestRun_RequiresJobName(t *testing.T) {
	_, err := execute("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JOB_NAME")
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "b", "c"))
	assert.Equal(t, "", firstNonEmpty())
}
