package translate

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourceplane/jobwrecker/internal/model"
	"github.com/sourceplane/jobwrecker/internal/modules"
	"github.com/sourceplane/jobwrecker/internal/registry"
	"github.com/sourceplane/jobwrecker/internal/xmltree"
)

func newTranslator(t *testing.T, opts Options) *Translator {
	t.Helper()
	reg, err := modules.NewRegistry()
	require.NoError(t, err)
	return NewTranslator(reg, ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}), opts)
}

func fixture(t *testing.T, name string) *etree.Element {
	t.Helper()
	root, err := xmltree.ParseFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return root
}

func parse(t *testing.T, s string) *etree.Element {
	t.Helper()
	root, err := xmltree.ParseString(s)
	require.NoError(t, err)
	return root
}

func entry(t *testing.T, r *Result) map[string]any {
	t.Helper()
	require.NotNil(t, r.Entry())
	return model.Plain(r.Entry()).(map[string]any)
}

func TestTranslateFreestyle(t *testing.T) {
	tr := newTranslator(t, Options{})

	result, err := tr.Translate(context.Background(), fixture(t, "freestyle.xml"), "app")
	require.NoError(t, err)
	assert.Equal(t, model.KindFreestyle, result.Kind)

	job := entry(t, result)
	assert.Equal(t, "app", job["name"])
	assert.Equal(t, "freestyle", job["project-type"])
	assert.Equal(t, "Builds and archives the app", job["description"])
	assert.Equal(t, false, job["disabled"])
	assert.Equal(t, false, job["concurrent"])
	assert.Equal(t, false, job["block-downstream"])
	assert.NotContains(t, job, "scm")
	assert.Equal(t, []any{map[string]any{"timed": "H 4 * * *"}}, job["triggers"])
	assert.Equal(t, []any{}, job["wrappers"])
	assert.Equal(t, []any{}, job["parameters"])
	assert.Equal(t, []any{
		map[string]any{"build-discarder": map[string]any{
			"days-to-keep":          7,
			"num-to-keep":           20,
			"artifact-days-to-keep": -1,
			"artifact-num-to-keep":  -1,
		}},
	}, job["properties"])
	assert.Equal(t, []any{
		map[string]any{"archive": map[string]any{"artifacts": "dist/**", "allow-empty": false}},
	}, job["publishers"])

	builders := job["builders"].([]any)
	require.Len(t, builders, 2)
	assert.Equal(t, map[string]any{"shell": "make build\nmake test"}, builders[0])
	raw := builders[1].(map[string]any)["raw"].(map[string]any)["xml"].(string)
	assert.Contains(t, raw, `<org.example.plugins.MysteryBuilder plugin="mystery@1.0">`)
	assert.Contains(t, raw, `<level>3</level>`)

	require.Len(t, result.Escapes, 1)
	assert.Equal(t, registry.Escape{
		Component: modules.Builders,
		Tag:       "org.example.plugins.MysteryBuilder",
		Reason:    "no handler registered",
	}, result.Escapes[0])

	keys := result.Entry().Keys()
	assert.Equal(t, []string{"name", "project-type", "description"}, keys[:3])
}

func TestTranslateConcatenatesSiblingProperties(t *testing.T) {
	tr := newTranslator(t, Options{})
	root := parse(t, `
		<project>
			<properties>
				<com.coravy.hudson.plugins.github.GithubProjectProperty>
					<projectUrl>https://github.com/example/app/</projectUrl>
				</com.coravy.hudson.plugins.github.GithubProjectProperty>
				<hudson.model.ParametersDefinitionProperty>
					<parameterDefinitions>
						<hudson.model.StringParameterDefinition><name>FIRST</name></hudson.model.StringParameterDefinition>
					</parameterDefinitions>
				</hudson.model.ParametersDefinitionProperty>
			</properties>
			<description>two clusters</description>
			<properties>
				<jenkins.model.BuildDiscarderProperty>
					<strategy class="hudson.tasks.LogRotator">
						<daysToKeep>3</daysToKeep>
						<numToKeep>5</numToKeep>
						<artifactDaysToKeep>-1</artifactDaysToKeep>
						<artifactNumToKeep>-1</artifactNumToKeep>
					</strategy>
				</jenkins.model.BuildDiscarderProperty>
				<org.example.CustomProperty/>
				<hudson.model.ParametersDefinitionProperty>
					<parameterDefinitions>
						<hudson.model.StringParameterDefinition><name>SECOND</name></hudson.model.StringParameterDefinition>
					</parameterDefinitions>
				</hudson.model.ParametersDefinitionProperty>
			</properties>
		</project>`)

	result, err := tr.Translate(context.Background(), root, "app")
	require.NoError(t, err)

	job := entry(t, result)
	assert.Equal(t, []any{
		map[string]any{"github": map[string]any{"url": "https://github.com/example/app/"}},
		map[string]any{"build-discarder": map[string]any{
			"days-to-keep":          3,
			"num-to-keep":           5,
			"artifact-days-to-keep": -1,
			"artifact-num-to-keep":  -1,
		}},
		map[string]any{"raw": map[string]any{"xml": "<org.example.CustomProperty/>"}},
	}, job["properties"])
	assert.Equal(t, []any{
		map[string]any{"string": map[string]any{"name": "FIRST"}},
		map[string]any{"string": map[string]any{"name": "SECOND"}},
	}, job["parameters"])
	assert.Equal(t, "two clusters", job["description"])
	require.Len(t, result.Escapes, 1)
	assert.Equal(t, modules.Properties, result.Escapes[0].Component)
}

func TestTranslatePipelineInjectsConcurrency(t *testing.T) {
	tr := newTranslator(t, Options{})
	root := fixture(t, "pipeline.xml")

	result, err := tr.Translate(context.Background(), root, "deploy")
	require.NoError(t, err)
	assert.Equal(t, model.KindPipeline, result.Kind)

	job := entry(t, result)
	assert.Equal(t, "pipeline", job["project-type"])
	assert.Equal(t, true, job["concurrent"])
	assert.Equal(t, true, job["sandbox"])
	assert.Equal(t, "node {\n  sh 'make'\n}", job["script"])

	assert.Nil(t, xmltree.Child(root, "concurrentBuild"), "caller's tree must not change")
}

func TestTranslatePipelineKeepsDeclaredConcurrency(t *testing.T) {
	tr := newTranslator(t, Options{})
	root := parse(t, `
		<flow-definition>
			<properties>
				<org.jenkinsci.plugins.workflow.job.properties.DisableConcurrentBuildsJobProperty/>
			</properties>
			<definition class="org.jenkinsci.plugins.workflow.cps.CpsScmFlowDefinition">
				<scriptPath>Jenkinsfile</scriptPath>
				<lightweight>true</lightweight>
			</definition>
		</flow-definition>`)

	result, err := tr.Translate(context.Background(), root, "deploy")
	require.NoError(t, err)

	job := entry(t, result)
	assert.Equal(t, false, job["concurrent"])
	assert.Equal(t, "Jenkinsfile", job["script-path"])
	assert.Equal(t, true, job["lightweight-checkout"])
}

func TestTranslateExplicitConcurrentBuild(t *testing.T) {
	tr := newTranslator(t, Options{})
	root := parse(t, `<flow-definition><concurrentBuild>false</concurrentBuild></flow-definition>`)

	result, err := tr.Translate(context.Background(), root, "deploy")
	require.NoError(t, err)
	assert.Equal(t, false, entry(t, result)["concurrent"])
}

func TestTranslateMavenFallsBackToRaw(t *testing.T) {
	tr := newTranslator(t, Options{})
	root := fixture(t, "maven.xml")

	result, err := tr.Translate(context.Background(), root, "legacy")
	require.NoError(t, err)
	assert.Equal(t, model.KindMaven, result.Kind)

	job := entry(t, result)
	assert.Equal(t, "maven", job["project-type"])
	want, err := xmltree.Serialize(root)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"raw": map[string]any{"xml": want}}, job["xml"])
	require.Len(t, result.Escapes, 1)
}

func TestTranslateUnknownRootFallsBackToRaw(t *testing.T) {
	tr := newTranslator(t, Options{})

	result, err := tr.Translate(context.Background(), parse(t, `<org.example.Weird/>`), "weird")
	require.NoError(t, err)
	assert.Equal(t, model.KindUnsupported, result.Kind)
	assert.Equal(t, map[string]any{
		"name": "weird",
		"xml":  map[string]any{"raw": map[string]any{"xml": "<org.example.Weird/>"}},
	}, entry(t, result))
}

func TestTranslateFolder(t *testing.T) {
	tr := newTranslator(t, Options{})
	root := parse(t, `
		<com.cloudbees.hudson.plugins.folder.Folder plugin="cloudbees-folder@6.15">
			<actions/>
			<properties/>
			<folderViews class="com.cloudbees.hudson.plugins.folder.views.DefaultFolderViewHolder"/>
		</com.cloudbees.hudson.plugins.folder.Folder>`)

	result, err := tr.Translate(context.Background(), root, "team")
	require.NoError(t, err)
	assert.Equal(t, []any{
		map[string]any{"job": map[string]any{"name": "team", "project-type": "folder"}},
	}, model.Plain(result.Document))
}

func TestTranslateListView(t *testing.T) {
	tr := newTranslator(t, Options{})
	root := parse(t, `
		<hudson.model.ListView>
			<name>Team</name>
			<description>Team jobs</description>
			<includeRegex>team-.*</includeRegex>
		</hudson.model.ListView>`)

	result, err := tr.Translate(context.Background(), root, "Team")
	require.NoError(t, err)
	assert.Equal(t, model.KindListView, result.Kind)
	assert.Equal(t, []any{
		map[string]any{"view": map[string]any{
			"name":        "Team",
			"view-type":   "list",
			"description": "Team jobs",
			"regex":       "team-.*",
		}},
	}, model.Plain(result.Document))
}

func TestTranslateMatrix(t *testing.T) {
	tr := newTranslator(t, Options{})
	root := parse(t, `
		<matrix-project>
			<axes>
				<hudson.matrix.LabelAxis>
					<name>node</name>
					<values><string>linux</string></values>
				</hudson.matrix.LabelAxis>
			</axes>
			<combinationFilter>node == "linux"</combinationFilter>
		</matrix-project>`)

	result, err := tr.Translate(context.Background(), root, "grid")
	require.NoError(t, err)

	job := entry(t, result)
	assert.Equal(t, "matrix", job["project-type"])
	assert.Equal(t, `node == "linux"`, job["combination-filter"])
	assert.Equal(t, []any{
		map[string]any{"axis": map[string]any{"type": "slave", "name": "node", "values": []any{"linux"}}},
	}, job["axes"])
}

func TestTranslateUnknownTopLevelTagFails(t *testing.T) {
	tr := newTranslator(t, Options{})

	result, err := tr.Translate(context.Background(), parse(t, `<project><somethingNew/></project>`), "app")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "failed to translate job app")

	var unsupported *registry.UnsupportedTagError
	assert.ErrorAs(t, err, &unsupported)
}

func TestTranslateSkipTags(t *testing.T) {
	root := `<project><actions><hudson.model.ParametersAction/></actions><description>x</description></project>`

	_, err := newTranslator(t, Options{}).Translate(context.Background(), parse(t, root), "app")
	require.Error(t, err)

	result, err := newTranslator(t, Options{IgnoreActions: true}).Translate(context.Background(), parse(t, root), "app")
	require.NoError(t, err)
	assert.Equal(t, "x", entry(t, result)["description"])
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "actions", result.Skipped[0].Tag)

	result, err = newTranslator(t, Options{SkipTags: []string{"actions"}}).Translate(context.Background(), parse(t, root), "app")
	require.NoError(t, err)
	assert.Len(t, result.Skipped, 1)
}

func TestTranslateNilRoot(t *testing.T) {
	_, err := newTranslator(t, Options{}).Translate(context.Background(), nil, "app")
	assert.Error(t, err)
}
