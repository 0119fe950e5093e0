package extension_test

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourceplane/jobwrecker/internal/extension"
	"github.com/sourceplane/jobwrecker/internal/model"
	"github.com/sourceplane/jobwrecker/internal/modules"
	"github.com/sourceplane/jobwrecker/internal/registry"
	"github.com/sourceplane/jobwrecker/internal/xmltree"
)

func gradleExtension() *model.Extension {
	return &model.Extension{
		Name: "gradle",
		Handlers: []model.ExtensionHandler{
			{
				Component: modules.Builders,
				Tag:       "hudson.plugins.gradle.Gradle",
				Key:       "gradle",
				Fields: map[string]model.ExtensionField{
					"tasks":         {Name: "tasks"},
					"useWrapper":    {Name: "use-wrapper", Type: "bool"},
					"wrapperScript": {Name: "wrapper-location"},
				},
				Ignore: []string{"passAllAsSystemProperties"},
			},
			{
				Component: modules.Wrappers,
				Tag:       "com.example.ColorWrapper",
				Key:       "color",
				Shape:     extension.ShapeMarker,
			},
			{
				Component: modules.Handlers,
				Tag:       "ownerEmail",
				Key:       "owner-email",
				Shape:     extension.ShapePair,
			},
		},
		ProjectKinds: []model.ExtensionKind{
			{Tag: "com.example.FreestyleLike", Kind: model.KindFreestyle},
		},
	}
}

func dispatch(t *testing.T, reg *registry.Registry, component, xml string) ([]any, *registry.Dispatcher) {
	t.Helper()
	el, err := xmltree.ParseString(xml)
	require.NoError(t, err)

	d := registry.NewDispatcher(context.Background(), reg, ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
	out := &model.Seq{}
	require.NoError(t, d.Dispatch(component, el, out))
	return out.Items(), d
}

func TestExtensionItemHandler(t *testing.T) {
	reg, err := modules.NewRegistry(extension.Plugin(gradleExtension()))
	require.NoError(t, err)
	assert.Equal(t, "gradle", reg.Source(modules.Builders, "gradle"))

	items, d := dispatch(t, reg, modules.Builders, `
		<hudson.plugins.gradle.Gradle>
			<tasks>clean build</tasks>
			<useWrapper>true</useWrapper>
			<passAllAsSystemProperties>false</passAllAsSystemProperties>
		</hudson.plugins.gradle.Gradle>`)

	assert.Empty(t, d.Escapes())
	require.Len(t, items, 1)
	assert.Equal(t, map[string]any{
		"gradle": map[string]any{"tasks": "clean build", "use-wrapper": true},
	}, model.Plain(items[0]))
}

func TestExtensionUnknownFieldDegrades(t *testing.T) {
	reg, err := modules.NewRegistry(extension.Plugin(gradleExtension()))
	require.NoError(t, err)

	items, d := dispatch(t, reg, modules.Builders, `<hudson.plugins.gradle.Gradle><switches>-q</switches></hudson.plugins.gradle.Gradle>`)

	require.Len(t, items, 1)
	assert.IsType(t, model.Raw{}, items[0])
	require.Len(t, d.Escapes(), 1)
	assert.Equal(t, "cannot handle XML switches", d.Escapes()[0].Reason)
}

func TestExtensionMarkerAndPair(t *testing.T) {
	reg, err := modules.NewRegistry(extension.Plugin(gradleExtension()))
	require.NoError(t, err)

	items, _ := dispatch(t, reg, modules.Wrappers, `<com.example.ColorWrapper><theme>dark</theme></com.example.ColorWrapper>`)
	assert.Equal(t, []any{"color"}, items)

	items, _ = dispatch(t, reg, modules.Handlers, `<ownerEmail>team@example.com</ownerEmail>`)
	assert.Equal(t, []any{model.Pair{Key: "owner-email", Value: "team@example.com"}}, items)
}

func TestExtensionProjectKinds(t *testing.T) {
	reg, err := modules.NewRegistry(extension.Plugin(gradleExtension()))
	require.NoError(t, err)

	assert.Equal(t, model.KindFreestyle, reg.ProjectKinds()["com.example.FreestyleLike"])
	assert.Equal(t, "gradle", reg.KindSource("com.example.FreestyleLike"))
}

func TestExtensionCollidingWithBuiltin(t *testing.T) {
	ext := &model.Extension{
		Name: "shadow",
		Handlers: []model.ExtensionHandler{
			{Component: modules.Builders, Tag: "hudson.tasks.Shell", Key: "shell"},
		},
	}

	_, err := modules.NewRegistry(extension.Plugins([]*model.Extension{ext})...)
	require.Error(t, err)
	assert.True(t, registry.IsCollision(err))
}

func TestExtensionUnknownShape(t *testing.T) {
	ext := &model.Extension{
		Name: "odd",
		Handlers: []model.ExtensionHandler{
			{Component: modules.Builders, Tag: "com.example.Odd", Key: "odd", Shape: "tuple"},
		},
	}

	_, err := modules.NewRegistry(extension.Plugin(ext))
	assert.ErrorContains(t, err, `unknown shape "tuple"`)
}
