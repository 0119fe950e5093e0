package render

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sourceplane/jobwrecker/internal/model"
	"github.com/sourceplane/jobwrecker/internal/registry"
)

func TestMarshalKeepsOrderAndTypes(t *testing.T) {
	job := model.NewMapping().
		Set("name", "app").
		Set("project-type", "freestyle").
		Set("disabled", false).
		Set("quiet-period", 5).
		Set("description", nil).
		Set("builders", []any{model.NewMapping().Set("shell", "make")})
	doc := []any{model.NewMapping().Set("job", job)}

	out, err := Marshal(doc)
	require.NoError(t, err)

	want := `- job:
    name: app
    project-type: freestyle
    disabled: false
    quiet-period: 5
    description: null
    builders:
      - shell: make
`
	assert.Equal(t, want, string(out))
}

func TestMarshalQuotesAmbiguousStrings(t *testing.T) {
	out, err := Marshal(model.NewMapping().
		Set("a", "true").
		Set("b", "123").
		Set("c", "").
		Set("d", "null").
		Set("e", "plain"))
	require.NoError(t, err)

	var back map[string]any
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, map[string]any{"a": "true", "b": "123", "c": "", "d": "null", "e": "plain"}, back)
	assert.Contains(t, string(out), "e: plain\n")
}

func TestMarshalLiteralBlocks(t *testing.T) {
	script := "#!/bin/bash\nset -e\nmake test\n"
	out, err := Marshal(model.NewMapping().Set("shell", script))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(out), "shell: |"), string(out))

	var back map[string]any
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, script, back["shell"])
}

func TestMarshalKeepsMultilineWhitespace(t *testing.T) {
	script := "#!/bin/bash  \r\nset -e\t\r\nmake test\n"
	out, err := Marshal(model.NewMapping().Set("shell", script))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(out), `shell: "`), string(out))

	var back map[string]any
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, script, back["shell"])
}

func TestMarshalRawEntry(t *testing.T) {
	out, err := Marshal([]any{model.Raw{XML: "<a/>"}})
	require.NoError(t, err)
	assert.Equal(t, "- raw:\n    xml: <a/>\n", string(out))
}

func TestMarshalRawEntryIsExact(t *testing.T) {
	tests := []string{
		"a   \r\nb\t\n",
		"<some.unknown.Builder><script>line one   \r\nline two\t\n</script></some.unknown.Builder>",
		"<x>\n\tindented\n</x>",
		"<x>\n  spaced\n</x>",
	}
	for _, xml := range tests {
		t.Run(xml, func(t *testing.T) {
			out, err := Marshal([]any{model.Raw{XML: xml}})
			require.NoError(t, err)

			var back []map[string]map[string]string
			require.NoError(t, yaml.Unmarshal(out, &back))
			require.Len(t, back, 1)
			assert.Equal(t, xml, back[0]["raw"]["xml"])
		})
	}
}

func TestMarshalRejectsUnknownTypes(t *testing.T) {
	_, err := Marshal(model.NewMapping().Set("bad", struct{}{}))
	assert.ErrorContains(t, err, "bad")
}

func TestLiteralSafe(t *testing.T) {
	assert.True(t, LiteralSafe("a\nb\n"))
	assert.True(t, LiteralSafe("  indented\nb"))
	assert.False(t, LiteralSafe("a  \nb"))
	assert.False(t, LiteralSafe("a\r\nb"))
	assert.False(t, LiteralSafe("a\nb\t"))
	assert.False(t, LiteralSafe("a\n\tb"))
}

func TestRendererPath(t *testing.T) {
	r := NewRenderer("out")
	assert.Equal(t, filepath.Join("out", "app.yml"), r.Path("app"))
	assert.Equal(t, filepath.Join("out", "team", "app.yml"), r.Path("team/app"))
	assert.Equal(t, filepath.Join("out", "team", "app.yml"), r.Path("/team/app/"))
}

func TestRendererWrite(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer(dir)

	path, err := r.Write("team/app", []any{model.NewMapping().Set("job", model.NewMapping().Set("name", "team/app"))})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "team", "app.yml"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "- job:\n    name: team/app\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())

	leftovers, err := filepath.Glob(filepath.Join(dir, "team", ".jobwrecker-tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestAtomicWriteRejectsInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.yml")

	err := AtomicWrite(path, []byte("key: [unclosed\n"))
	require.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestReportViewer(t *testing.T) {
	rv := NewReportViewer([]Outcome{
		{Name: "b", Kind: model.KindFreestyle, Path: "out/b.yml"},
		{Name: "a", Kind: model.KindFreestyle, Path: "out/a.yml", Escapes: []registry.Escape{
			{Component: "builders", Tag: "org.example.Mystery", Reason: "no handler registered"},
		}},
		{Name: "c", Err: errors.New("boom")},
	})

	tree := rv.ViewTree()
	assert.Contains(t, tree, "freestyle (2)")
	assert.Contains(t, tree, "failed (1)")
	assert.Contains(t, tree, "(raw) builders/org.example.Mystery: no handler registered")
	assert.Contains(t, tree, "error: boom")
	assert.Contains(t, tree, "Summary: 3 configurations, 1 failed, 1 kept as raw XML")
	assert.Less(t, strings.Index(tree, "a → out/a.yml"), strings.Index(tree, "b → out/b.yml"))

	assert.Contains(t, rv.ViewByComponent(), "└─ org.example.Mystery (1)")
	assert.Equal(t, "Nothing converted", NewReportViewer(nil).ViewTree())
}
