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

	_, stderr, err := runPP(t, binaryPath, home,
		"persona", "create",
		"--name", "smoke",
		"--android-id", "0123456789abcdef",
		"--tag", "naver",
	)
	require.NoError(t, err, "stderr: %s", stderr)

	stdout, stderr, err := runPP(t, binaryPath, home, "status")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "personas: 1")
	assert.Contains(t, stdout, "smoke")

	stdout, stderr, err = runPP(t, binaryPath, home, "persona", "list", "--status", "idle")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "smoke")
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "pp-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/pp")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build pp binary: %s", string(output))
	return binaryPath
}

func runPP(t *testing.T, binaryPath, home string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(), "HOME="+home)

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
