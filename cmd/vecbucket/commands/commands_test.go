package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(t.Context())
	return stdout.String(), stderr.String(), err
}

func TestVersion(t *testing.T) {
	stdout, _, err := runCmd(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "vecbucket dev")
}

func TestGenerateRequiresOut(t *testing.T) {
	genOut = ""
	_, _, err := runCmd(t, "generate")
	assert.ErrorContains(t, err, "--out")
}

func TestGenerateAndBench(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "synth")
	stdout, _, err := runCmd(t, "generate", "--out", dir,
		"--n", "200", "--queries", "5", "--dim", "8", "--clusters", "4", "--k", "5", "--compression", "zstd")
	require.NoError(t, err)
	assert.Contains(t, stdout, "wrote 200 vectors and 5 queries")

	_, err = os.Stat(filepath.Join(dir, "base.fvecs.zst"))
	require.NoError(t, err)

	cfg := fmt.Sprintf(`
dataset:
  dir: %s
  compression: zstd
index:
  kind: ivf
  nlist: 4
search:
  k: 5
  routing: [1, 4]
  modes: [search]
`, dir)
	path := filepath.Join(t.TempDir(), "bench.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))

	stdout, stderr, err := runCmd(t, "bench", "-f", path, "--log-level", "warn")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[1], `"recall":1`)
	assert.Empty(t, stderr)
}

func TestBenchRequiresFile(t *testing.T) {
	benchFile = ""
	_, _, err := runCmd(t, "bench")
	assert.ErrorContains(t, err, "-f")
}
