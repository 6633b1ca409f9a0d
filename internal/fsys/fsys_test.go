package fsys

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestListerMatchesPattern(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"main.go":            "package main",
		"src/app.ts":         "export class App {}",
		"src/deep/widget.ts": "export class Widget {}",
		"README.md":          "# readme",
	})

	lister := Lister(root)

	ts, err := lister("**/*.ts")
	require.NoError(t, err)
	assert.Equal(t, []string{"src/app.ts", "src/deep/widget.ts"}, ts)

	goFiles, err := lister("**/*.go")
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go"}, goFiles)
}

func TestListerSkipsWellKnownDirs(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/app.ts":              "ok",
		"node_modules/x/index.ts": "skip",
		"dist/bundle.ts":          "skip",
	})

	matches, err := Lister(root)("**/*.ts")
	require.NoError(t, err)
	assert.Equal(t, []string{"src/app.ts"}, matches)
}

func TestListerHonorsGitignore(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".gitignore":       "generated/\n*.gen.ts\n",
		"src/app.ts":       "ok",
		"src/api.gen.ts":   "skip",
		"generated/out.ts": "skip",
	})

	matches, err := Lister(root)("**/*.ts")
	require.NoError(t, err)
	assert.Equal(t, []string{"src/app.ts"}, matches)
}

func TestListerBadPattern(t *testing.T) {
	t.Parallel()

	_, err := Lister(t.TempDir())("[")
	assert.Error(t, err)
}

func TestReader(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTree(t, root, map[string]string{"src/app.ts": "export class App {}"})

	reader := Reader(root)

	content, err := reader("src/app.ts")
	require.NoError(t, err)
	assert.Equal(t, "export class App {}", content)

	_, err = reader("src/missing.ts")
	assert.Error(t, err)
}
