package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDocument(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{
			name: "freestyle job",
			doc: `
- job:
    name: app
    project-type: freestyle
    concurrent: true
    builders:
      - shell: make
`,
		},
		{
			name: "raw job",
			doc: `
- job:
    name: legacy
    project-type: maven
    xml:
      raw:
        xml: <maven2-moduleset/>
`,
		},
		{
			name: "list view",
			doc: `
- view:
    name: Team
    view-type: list
    job-name: [app]
`,
		},
		{
			name:    "job without name",
			doc:     "- job:\n    project-type: freestyle\n",
			wantErr: true,
		},
		{
			name:    "unknown project type",
			doc:     "- job:\n    name: x\n    project-type: multibranch\n",
			wantErr: true,
		},
		{
			name:    "job and view in one entry",
			doc:     "- job: {name: a}\n  view: {name: b, view-type: list}\n",
			wantErr: true,
		},
		{
			name:    "quoted boolean",
			doc:     "- job:\n    name: x\n    disabled: \"true\"\n",
			wantErr: true,
		},
		{
			name:    "not a list",
			doc:     "job:\n  name: x\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateDocument([]byte(tt.doc))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateExtension(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	valid := `
name: gradle
handlers:
  - component: builders
    tag: hudson.plugins.gradle.Gradle
    key: gradle
    fields:
      tasks: {name: tasks}
      useWrapper: {name: use-wrapper, type: bool}
project-kinds:
  - tag: com.example.Custom
    kind: freestyle
`
	assert.NoError(t, v.ValidateExtension([]byte(valid)))

	badShape := `
name: gradle
handlers:
  - component: builders
    tag: hudson.plugins.gradle.Gradle
    key: gradle
    shape: tuple
`
	assert.Error(t, v.ValidateExtension([]byte(badShape)))
	assert.Error(t, v.ValidateExtension([]byte("handlers: []\n")))
}

func TestValidateRejectsInvalidYAML(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)
	assert.Error(t, v.ValidateDocument([]byte("- job: [unclosed\n")))
}
