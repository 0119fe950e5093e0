package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	run(t, dir, "init", "-q", "-b", "main")
	write(t, filepath.Join(dir, "jobs", "app", "config.xml"), "<project/>")
	write(t, filepath.Join(dir, "jobs", "old", "config.xml"), "<project/>")
	run(t, dir, "add", ".")
	run(t, dir, "commit", "-q", "-m", "initial")
	return dir
}

func TestChangedFiles(t *testing.T) {
	dir := newRepo(t)

	run(t, dir, "checkout", "-q", "-b", "feature")
	write(t, filepath.Join(dir, "jobs", "deploy", "config.xml"), "<project/>")
	run(t, dir, "add", ".")
	run(t, dir, "commit", "-q", "-m", "add deploy")

	write(t, filepath.Join(dir, "jobs", "app", "config.xml"), "<project><description/></project>")
	write(t, filepath.Join(dir, "jobs", "new", "config.xml"), "<project/>")
	require.NoError(t, os.Remove(filepath.Join(dir, "jobs", "old", "config.xml")))

	files, err := NewChangeDetector(dir, "main").ChangedFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "jobs", "app", "config.xml"),
		filepath.Join(dir, "jobs", "deploy", "config.xml"),
		filepath.Join(dir, "jobs", "new", "config.xml"),
	}, files)
}

func TestChangedFilesUnder(t *testing.T) {
	dir := newRepo(t)
	write(t, filepath.Join(dir, "jobs", "app", "config.xml"), "<project><description/></project>")
	write(t, filepath.Join(dir, "views", "team.xml"), "<hudson.model.ListView/>")

	files, err := NewChangeDetector(dir, "").ChangedFilesUnder(context.Background(), filepath.Join(dir, "views"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "views", "team.xml")}, files)
}

func TestChangedFilesMissingBase(t *testing.T) {
	dir := newRepo(t)
	_, err := NewChangeDetector(dir, "nope").ChangedFiles(context.Background())
	assert.ErrorContains(t, err, "base ref nope not found")
}

func TestChangedFilesOutsideRepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	_, err := NewChangeDetector(t.TempDir(), "main").ChangedFiles(context.Background())
	assert.ErrorContains(t, err, "not a git working tree")
}
