package rules

import (
	"testing"

	"opsflow/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRule(id string, trigger model.TriggerType, active bool) WorkflowRule {
	return WorkflowRule{
		ID:      id,
		Trigger: trigger,
		Actions: []model.WorkflowAction{
			{Type: model.ActionNotify, Target: "ops"},
		},
		Active: active,
	}
}

func TestNewRegistry_RejectsDuplicateIDs(t *testing.T) {
	_, err := NewRegistry([]WorkflowRule{
		testRule("r1", model.TriggerRequestCreated, true),
		testRule("r1", model.TriggerSLABreach, true),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate rule id")
}

func TestNewRegistry_RejectsEmptyID(t *testing.T) {
	_, err := NewRegistry([]WorkflowRule{
		testRule("", model.TriggerRequestCreated, true),
	})
	require.Error(t, err)
}

func TestRulesFor_PreservesDefinitionOrder(t *testing.T) {
	registry, err := NewRegistry([]WorkflowRule{
		testRule("first", model.TriggerRequestCreated, true),
		testRule("second", model.TriggerRequestCreated, true),
		testRule("third", model.TriggerRequestCreated, true),
	})
	require.NoError(t, err)

	matched := registry.RulesFor(model.TriggerRequestCreated)
	require.Len(t, matched, 3)
	assert.Equal(t, "first", matched[0].ID)
	assert.Equal(t, "second", matched[1].ID)
	assert.Equal(t, "third", matched[2].ID)
}

func TestRulesFor_SkipsInactiveRules(t *testing.T) {
	registry, err := NewRegistry([]WorkflowRule{
		testRule("active", model.TriggerRequestCreated, true),
		testRule("disabled", model.TriggerRequestCreated, false),
	})
	require.NoError(t, err)

	matched := registry.RulesFor(model.TriggerRequestCreated)
	require.Len(t, matched, 1)
	assert.Equal(t, "active", matched[0].ID)
}

func TestRulesFor_UnknownTriggerIsEmpty(t *testing.T) {
	registry, err := NewRegistry([]WorkflowRule{
		testRule("r1", model.TriggerRequestCreated, true),
	})
	require.NoError(t, err)

	assert.Empty(t, registry.RulesFor(model.TriggerType("meteor_strike")))
}

func TestRule_Lookup(t *testing.T) {
	registry, err := NewRegistry([]WorkflowRule{
		testRule("r1", model.TriggerRequestCreated, true),
	})
	require.NoError(t, err)

	rule, ok := registry.Rule("r1")
	require.True(t, ok)
	assert.Equal(t, "r1", rule.ID)

	_, ok = registry.Rule("nope")
	assert.False(t, ok)
}
