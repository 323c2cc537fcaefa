package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateID(t *testing.T) {
	assert.True(t, ValidateID("agent-1"))
	assert.True(t, ValidateID("Agent_Name_2"))
	assert.False(t, ValidateID(""))
	assert.False(t, ValidateID("bad id"))
	assert.False(t, ValidateID("bad/id"))
}

func TestLoadAllRejectsDuplicateID(t *testing.T) {
	r := New()
	err := r.LoadAll([]*Agent{
		{ID: "a"},
		{ID: "a"},
	})
	assert.Error(t, err)
}

func TestLoadAllRejectsDuplicateWebhookName(t *testing.T) {
	r := New()
	err := r.LoadAll([]*Agent{
		{ID: "a", WebhookName: "hook"},
		{ID: "b", WebhookName: "hook"},
	})
	assert.Error(t, err)
}

func TestLoadAllThenGet(t *testing.T) {
	r := New()
	require.NoError(t, r.LoadAll([]*Agent{
		{ID: "a", WebhookName: "hook-a"},
		{ID: "b"},
	}))

	a, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a", a.ID)

	byHook, ok := r.GetByWebhookName("hook-a")
	require.True(t, ok)
	assert.Equal(t, "a", byHook.ID)

	_, ok = r.GetByWebhookName("nonexistent")
	assert.False(t, ok)
}

func TestSavePreservesOtherAgents(t *testing.T) {
	r := New()
	require.NoError(t, r.LoadAll([]*Agent{{ID: "a"}}))

	require.NoError(t, r.Save(&Agent{ID: "b", WebhookName: "hook-b"}))

	_, ok := r.Get("a")
	assert.True(t, ok, "saving b must not evict a")
	_, ok = r.Get("b")
	assert.True(t, ok)
}

func TestSaveRejectsWebhookNameCollisionWithOtherAgent(t *testing.T) {
	r := New()
	require.NoError(t, r.LoadAll([]*Agent{{ID: "a", WebhookName: "hook"}}))

	err := r.Save(&Agent{ID: "b", WebhookName: "hook"})
	assert.Error(t, err)
}

func TestSaveAllowsReassigningSameAgentsWebhookName(t *testing.T) {
	r := New()
	require.NoError(t, r.LoadAll([]*Agent{{ID: "a", WebhookName: "hook-old"}}))

	require.NoError(t, r.Save(&Agent{ID: "a", WebhookName: "hook-new"}))

	_, ok := r.GetByWebhookName("hook-old")
	assert.False(t, ok)
	a, ok := r.GetByWebhookName("hook-new")
	require.True(t, ok)
	assert.Equal(t, "a", a.ID)
}

func TestDeleteRemovesAgentAndWebhookMapping(t *testing.T) {
	r := New()
	require.NoError(t, r.LoadAll([]*Agent{{ID: "a", WebhookName: "hook"}}))

	r.Delete("a")

	_, ok := r.Get("a")
	assert.False(t, ok)
	_, ok = r.GetByWebhookName("hook")
	assert.False(t, ok)
}

func TestDecryptTreeReplacesTaggedLeavesAtAnyDepth(t *testing.T) {
	decrypt := func(blob string) (string, error) { return "plain-" + blob, nil }

	tree := map[string]any{
		"top": "enc:abc",
		"nested": map[string]any{
			"inner": "enc:def",
			"list":  []any{"enc:ghi", "untouched"},
		},
	}

	out, err := decryptTree(tree, decrypt)
	require.NoError(t, err)
	m := out.(map[string]any)
	assert.Equal(t, "plain-abc", m["top"])
	nested := m["nested"].(map[string]any)
	assert.Equal(t, "plain-def", nested["inner"])
	list := nested["list"].([]any)
	assert.Equal(t, "plain-ghi", list[0])
	assert.Equal(t, "untouched", list[1])
}
