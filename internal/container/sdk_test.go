package container

import (
	"archive/tar"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tarNames(t *testing.T, rc io.ReadCloser) map[string]bool {
	t.Helper()
	defer rc.Close()
	names := map[string]bool{}
	tr := tar.NewReader(rc)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return names
		}
		require.NoError(t, err)
		names[filepath.ToSlash(filepath.Clean(hdr.Name))] = true
	}
}

func seedContext(t *testing.T, files ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, f := range files {
		path := filepath.Join(dir, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(f), 0o644))
	}
	return dir
}

func TestBuildContextHonoursDockerignore(t *testing.T) {
	dir := seedContext(t, ".dockerfile", "build.c", "build.bin", ".env", "build/mediantazy_dev_server")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".dockerignore"),
		[]byte("# outputs\nbuild.bin\nbuild\n.env\n.dockerfile\n.dockerignore\n"), 0o644))

	rc, err := BuildContext(dir, "./.dockerfile")
	require.NoError(t, err)
	names := tarNames(t, rc)

	assert.True(t, names["build.c"])
	assert.True(t, names[".dockerfile"], "dockerfile is always sent")
	assert.True(t, names[".dockerignore"])
	assert.False(t, names["build.bin"])
	assert.False(t, names[".env"])
	assert.False(t, names["build/mediantazy_dev_server"])
}

func TestBuildContextWithoutDockerignore(t *testing.T) {
	dir := seedContext(t, ".dockerfile", "build.bin")

	rc, err := BuildContext(dir, "./.dockerfile")
	require.NoError(t, err)
	names := tarNames(t, rc)
	assert.True(t, names["build.bin"])
	assert.True(t, names[".dockerfile"])
}
