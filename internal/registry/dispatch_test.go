package registry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourceplane/jobwrecker/internal/model"
	"github.com/sourceplane/jobwrecker/internal/registry"
	"github.com/sourceplane/jobwrecker/internal/xmltree"
)

func partial() registry.HandlerFunc {
	return func(_ *etree.Element, out *model.Seq) registry.Outcome {
		out.Append("half-written")
		return registry.Unsupported("gave up halfway")
	}
}

func dispatcher(t *testing.T, opts ...registry.Option) *registry.Dispatcher {
	t.Helper()
	b := newBuilder(t)
	require.NoError(t, b.Register("steps", "shell", emit("shell")))
	require.NoError(t, b.Register("steps", "half", partial()))
	require.NoError(t, b.Register("top", "description", emit("description")))
	require.NoError(t, b.Register("top", "actions", partial()))
	require.NoError(t, b.Register("top", "broken", registry.HandlerFunc(func(_ *etree.Element, _ *model.Seq) registry.Outcome {
		return registry.Malformed("expected one child")
	})))
	require.NoError(t, b.Register("steps", "scm", emit("generic")))
	require.NoError(t, b.Register("steps", "gitscm", emit("git")))
	reg, err := b.Build()
	require.NoError(t, err)
	return registry.NewDispatcher(context.Background(), reg, quietLogger(), opts...)
}

func TestDispatchConverted(t *testing.T) {
	d := dispatcher(t)
	out := &model.Seq{}

	require.NoError(t, d.Dispatch("steps", parse(t, `<hudson.tasks.Shell/>`), out))
	assert.Equal(t, []any{"shell"}, out.Items())
	assert.Empty(t, d.Escapes())
}

func TestDispatchUnknownTagDegradesToRaw(t *testing.T) {
	d := dispatcher(t)
	out := &model.Seq{}
	el := parse(t, `<some.unknown.Builder><x a="1">y</x></some.unknown.Builder>`)

	require.NoError(t, d.Dispatch("steps", el, out))
	require.Equal(t, 1, out.Len())

	raw, ok := out.Items()[0].(model.Raw)
	require.True(t, ok)
	want, err := xmltree.Serialize(el)
	require.NoError(t, err)
	assert.Equal(t, want, raw.XML)

	reparsed := parse(t, raw.XML)
	again, err := xmltree.Serialize(reparsed)
	require.NoError(t, err)
	assert.Equal(t, raw.XML, again)

	require.Len(t, d.Escapes(), 1)
	assert.Equal(t, registry.Escape{Component: "steps", Tag: "some.unknown.Builder", Reason: "no handler registered"}, d.Escapes()[0])
}

func TestDispatchDiscardsPartialOutput(t *testing.T) {
	d := dispatcher(t)
	out := &model.Seq{}

	require.NoError(t, d.Dispatch("steps", parse(t, `<half/>`), out))
	require.Equal(t, 1, out.Len())
	assert.Equal(t, model.Raw{XML: "<half/>"}, out.Items()[0])
	assert.Equal(t, "gave up halfway", d.Escapes()[0].Reason)
}

func TestDispatchTopLevelUnknownIsFatal(t *testing.T) {
	d := dispatcher(t)
	out := &model.Seq{}

	err := d.Dispatch("top", parse(t, `<mystery/>`), out)
	var unsupported *registry.UnsupportedTagError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "top", unsupported.Component)
	assert.Equal(t, "mystery", unsupported.Tag)
	assert.Zero(t, out.Len())
	assert.True(t, registry.IsConversionError(err))
}

func TestDispatchTopLevelUnsupportedLeavesNoOutput(t *testing.T) {
	d := dispatcher(t)
	out := &model.Seq{}

	err := d.Dispatch("top", parse(t, `<actions><a/></actions>`), out)
	var unsupported *registry.UnsupportedTagError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "gave up halfway", unsupported.Reason)
	assert.Zero(t, out.Len())
}

func TestDispatchTopLevelMalformed(t *testing.T) {
	d := dispatcher(t)

	err := d.Dispatch("top", parse(t, `<broken/>`), &model.Seq{})
	var malformed *registry.MalformedConstructError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "expected one child", malformed.Reason)
}

func TestDispatchSkipTags(t *testing.T) {
	d := dispatcher(t, registry.WithSkipTags("actions", "Mystery"))
	out := &model.Seq{}

	require.NoError(t, d.Dispatch("top", parse(t, `<actions><a/></actions>`), out))
	require.NoError(t, d.Dispatch("top", parse(t, `<mystery/>`), out))
	assert.Zero(t, out.Len())
	assert.Len(t, d.Skipped(), 2)

	err := d.Dispatch("top", parse(t, `<other/>`), out)
	assert.Error(t, err)
}

func TestDispatchAmbiguityDegradesOutsideTopLevel(t *testing.T) {
	d := dispatcher(t)
	out := &model.Seq{}

	require.NoError(t, d.Dispatch("steps", parse(t, `<scm class="hudson.plugins.git.GitSCM"/>`), out))
	require.Equal(t, 1, out.Len())
	_, isRaw := out.Items()[0].(model.Raw)
	assert.True(t, isRaw)
	assert.Contains(t, d.Escapes()[0].Reason, "ambiguous")
}

func TestDispatchKey(t *testing.T) {
	d := dispatcher(t)
	out := &model.Seq{}

	require.NoError(t, d.DispatchKey("steps", "shell", parse(t, `<whatever/>`), out))
	assert.Equal(t, []any{"shell"}, out.Items())

	err := d.DispatchKey("top", "nothing", parse(t, `<whatever/>`), out)
	assert.Error(t, err)
}

func TestDispatchUnknownComponent(t *testing.T) {
	d := dispatcher(t)
	assert.Error(t, d.Dispatch("nope", parse(t, `<x/>`), &model.Seq{}))
}

func TestNestedFatalErrorPropagates(t *testing.T) {
	b := newBuilder(t)
	require.NoError(t, b.Register("top", "wrapper", registry.TranslatorFunc(func(d *registry.Dispatcher, el *etree.Element, out *model.Seq) registry.Outcome {
		for _, child := range el.ChildElements() {
			if err := d.Dispatch("top", child, out); err != nil {
				return registry.Propagate(err)
			}
		}
		return registry.Converted()
	})))
	reg, err := b.Build()
	require.NoError(t, err)

	d := registry.NewDispatcher(context.Background(), reg, quietLogger())
	err = d.Dispatch("top", parse(t, `<wrapper><inner/></wrapper>`), &model.Seq{})

	var unsupported *registry.UnsupportedTagError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "inner", unsupported.Tag)
}
