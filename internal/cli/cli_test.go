package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/gradebook/student"
)

// runCLI executes the root command against a sqlite file in dir.
func runCLI(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	base := []string{
		"--backend", "sqlite",
		"--dsn", filepath.Join(dir, "gradebook.db"),
		"--env-file", filepath.Join(dir, "missing.env"),
	}
	cmd.SetArgs(append(base, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func TestStudentLifecycle(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, dir, "student", "add", "Chad", "Darby", "chad.darby@luv2code_school.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Created student 1")

	out, err = runCLI(t, dir, "student", "exists", "1")
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)

	out, err = runCLI(t, dir, "student", "exists", "2")
	require.NoError(t, err)
	assert.Equal(t, "false\n", out)

	out, err = runCLI(t, dir, "--format", "json", "student", "list")
	require.NoError(t, err)
	var resp struct {
		Status string             `json:"status"`
		Data   []*student.Student `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "chad.darby@luv2code_school.com", resp.Data[0].EmailAddress)

	_, err = runCLI(t, dir, "student", "delete", "1")
	require.NoError(t, err)

	_, err = runCLI(t, dir, "student", "delete", "1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestDuplicateEmailFails(t *testing.T) {
	dir := t.TempDir()

	_, err := runCLI(t, dir, "student", "add", "Eric", "Roby", "eric@example.com")
	require.NoError(t, err)

	out, err := runCLI(t, dir, "student", "add", "Eric", "Again", "eric@example.com")
	require.Error(t, err)
	assert.Contains(t, out, "already in use")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGradeCommands(t *testing.T) {
	dir := t.TempDir()

	_, err := runCLI(t, dir, "student", "add", "Eric", "Roby", "eric@example.com")
	require.NoError(t, err)

	out, err := runCLI(t, dir, "grade", "add", "math", "1", "85.5")
	require.NoError(t, err)
	assert.Contains(t, out, "Recorded math grade 85.50 for student 1")

	tests := []struct {
		name string
		args []string
	}{
		{"out of range", []string{"grade", "add", "math", "1", "180.50"}},
		{"missing student", []string{"grade", "add", "math", "2", "50"}},
		{"unknown subject", []string{"grade", "add", "literature", "1", "50"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, dir, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
		})
	}

	out, err = runCLI(t, dir, "student", "show", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "#1=85.50")

	out, err = runCLI(t, dir, "grade", "delete", "math", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "of student 1")

	_, err = runCLI(t, dir, "grade", "delete", "math", "1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestAuditList(t *testing.T) {
	dir := t.TempDir()

	_, err := runCLI(t, dir, "student", "add", "Eric", "Roby", "eric@example.com")
	require.NoError(t, err)
	_, _ = runCLI(t, dir, "grade", "add", "math", "1", "-5")

	out, err := runCLI(t, dir, "audit", "list", "--outcome", "rejected")
	require.NoError(t, err)
	assert.Contains(t, out, "create_grade")
	assert.Contains(t, out, "reason=grade_out_of_range")
	assert.Contains(t, out, "cli")
	assert.NotContains(t, out, "create_student")

	out, err = runCLI(t, dir, "audit", "purge", "--older-than", time.Hour.String())
	require.NoError(t, err)
	assert.Contains(t, out, "Purged 0 audit entries")
}

func TestInvalidFormat(t *testing.T) {
	_, err := runCLI(t, t.TempDir(), "--format", "xml", "student", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gradebook.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend: bolt
dsn: /var/lib/gradebook.bolt
addr: ":9090"
service:
  enable_audit: false
  operation_timeout: 5s
`), 0o600))

	cfg, err := LoadConfig(path, "")
	require.NoError(t, err)
	assert.Equal(t, BackendBolt, cfg.Backend)
	assert.Equal(t, "/var/lib/gradebook.bolt", cfg.DSN)
	assert.Equal(t, ":9090", cfg.Addr)
	require.NotNil(t, cfg.Service.EnableAudit)
	assert.False(t, *cfg.Service.EnableAudit)
	assert.Equal(t, 5*time.Second, cfg.Service.OperationTimeout)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("GRADEBOOK_DSN=from-dotenv.db\n"), 0o600))

	t.Setenv(EnvBackend, BackendMemory)
	// godotenv does not override variables that are already set.
	t.Setenv(EnvDSN, "")
	require.NoError(t, os.Unsetenv(EnvDSN))

	cfg, err := LoadConfig("", envFile)
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Backend)
	assert.Equal(t, "from-dotenv.db", cfg.DSN)
}

func TestLoadConfig_InvalidBackend(t *testing.T) {
	t.Setenv(EnvBackend, "oracle")
	_, err := LoadConfig("", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid backend")
}
