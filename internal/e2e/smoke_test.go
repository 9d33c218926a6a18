package e2e

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmokeFlow(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)
	env := []string{
		"HOME=" + home,
		"TOKENPOOL_TOKENS=primary:ghp_primary00001,backup:ghp_backup000002",
		"TOKENPOOL_LOG_FORMAT=json",
	}

	stdout, stderr, err := runTokenpool(t, binaryPath, env, "pool", "rotate")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Equal(t, "Rotated to account backup\n", stdout)
	assert.Contains(t, stderr, `"event":"rotation_succeeded"`)

	stdout, stderr, err = runTokenpool(t, binaryPath, env, "run", "--", "sh", "-c", `printf %s "$TOKENPOOL_ACCOUNT"`)
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Equal(t, "backup", stdout)

	stdout, stderr, err = runTokenpool(t, binaryPath, env, "pool", "status", "--json")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, `"current_account": "backup"`)
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "tokenpool-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/tokenpool")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build tokenpool binary: %s", string(output))
	return binaryPath
}

func runTokenpool(t *testing.T, binaryPath string, env []string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(), env...)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func repoRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}
