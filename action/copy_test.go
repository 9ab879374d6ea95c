package action

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestCopyTreeIsAdditive(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	writeFile(t, filepath.Join(src, "index.html"), "new index")
	writeFile(t, filepath.Join(src, "chapter", "one.html"), "chapter one")

	writeFile(t, filepath.Join(dst, "index.html"), "old index")
	writeFile(t, filepath.Join(dst, "v1", "index.html"), "old release")

	require.NoError(t, CopyTree(src, dst))

	require.Equal(t, "new index", readFile(t, filepath.Join(dst, "index.html")), "colliding paths take the copied content")
	require.Equal(t, "chapter one", readFile(t, filepath.Join(dst, "chapter", "one.html")))
	require.Equal(t, "old release", readFile(t, filepath.Join(dst, "v1", "index.html")), "unrelated existing files survive the copy")
}

func TestCopyTreeMissingSource(t *testing.T) {
	require.Error(t, CopyTree(filepath.Join(t.TempDir(), "absent"), t.TempDir()))
}
