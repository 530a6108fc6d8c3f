package procexec

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireSh(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestRunReportsExitStatus(t *testing.T) {
	requireSh(t)
	var out bytes.Buffer
	e := &Exec{Stdout: &out, Stderr: &out}

	code, err := e.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "echo hi; exit 7"}})
	require.NoError(t, err)
	assert.Equal(t, 7, code)
	assert.Equal(t, "hi\n", out.String())
}

func TestRunUsesDir(t *testing.T) {
	requireSh(t)
	dir := t.TempDir()
	var out bytes.Buffer
	e := &Exec{Stdout: &out}

	code, err := e.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "pwd"}, Dir: dir})
	require.NoError(t, err)
	require.Equal(t, 0, code)

	got, err := filepath.EvalSymlinks(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRunMissingBinary(t *testing.T) {
	e := &Exec{}
	code, err := e.Run(context.Background(), Command{Name: "definitely-not-a-real-binary-for-buildctl"})
	require.Error(t, err)
	assert.Equal(t, 1, code)
}

func TestOutputCapturesStdout(t *testing.T) {
	requireSh(t)
	e := &Exec{Stderr: &bytes.Buffer{}}
	out, code, err := e.Output(context.Background(), Command{Name: "sh", Args: []string{"-c", "printf 'a:1\\nb:2\\n'; echo noise >&2"}})
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, "a:1\nb:2\n", out)
}

func TestDryRunDoesNotExecute(t *testing.T) {
	var out bytes.Buffer
	e := &Exec{Stdout: &out, DryRun: true}

	code, err := e.Run(context.Background(), Command{Name: "rm", Args: []string{"-rf", "/tmp/x y"}, Dir: "/proj"})
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, "[DRY RUN in /proj] rm -rf '/tmp/x y'\n", out.String())
}

func TestQuoteArgs(t *testing.T) {
	assert.Equal(t, "a 'b c' '' 'it'\\''s'", QuoteArgs([]string{"a", "b c", "", "it's"}))
	assert.Equal(t, "gcc", Command{Name: "gcc"}.String())
}
