package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourceplane/jobwrecker/internal/model"
)

func TestMappingKeepsInsertionOrder(t *testing.T) {
	m := model.NewMapping().
		Set("name", "job").
		Set("project-type", "freestyle").
		Set("description", "hello")
	m.Set("name", "renamed")

	assert.Equal(t, []string{"name", "project-type", "description"}, m.Keys())
	v, ok := m.Get("name")
	require.True(t, ok)
	assert.Equal(t, "renamed", v)
}

func TestMergePairConcatenatesLists(t *testing.T) {
	m := model.NewMapping()
	m.MergePair("properties", []any{"a"})
	m.MergePair("properties", []any{"b", "c"})

	v, _ := m.Get("properties")
	assert.Equal(t, []any{"a", "b", "c"}, v)
}

func TestMergePairOverwritesScalars(t *testing.T) {
	m := model.NewMapping()
	m.MergePair("concurrent", false)
	m.MergePair("concurrent", true)

	v, _ := m.Get("concurrent")
	assert.Equal(t, true, v)
	assert.Equal(t, 1, m.Len())
}

func TestAbsorbCollectsRawEntries(t *testing.T) {
	m := model.NewMapping()
	err := m.Absorb([]any{
		model.Pair{Key: "run-sequentially", Value: true},
		model.Raw{XML: "<odd/>"},
		model.Raw{XML: "<odder/>"},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"run-sequentially": true,
		"raw": []any{
			map[string]any{"xml": "<odd/>"},
			map[string]any{"xml": "<odder/>"},
		},
	}, model.Plain(m))
}

func TestAbsorbRejectsBareItems(t *testing.T) {
	err := model.NewMapping().Absorb([]any{"timestamps"})
	assert.Error(t, err)
}

func TestSeqItemsNeverNil(t *testing.T) {
	var s model.Seq
	assert.NotNil(t, s.Items())
	assert.Empty(t, s.Items())
}

func TestConfigViewsDirDefaultsUnderOutput(t *testing.T) {
	cfg := model.DefaultConfig()
	assert.Equal(t, "output/views", cfg.ViewsOutputDir())

	cfg.ViewsDir = "views"
	assert.Equal(t, "views", cfg.ViewsOutputDir())
}
