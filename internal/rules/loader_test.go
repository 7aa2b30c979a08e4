package rules

import (
	"testing"

	"opsflow/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validRulesJSON = `{
	"rules": [
		{
			"id": "critical-escalation",
			"trigger": "maintenance_request",
			"conditions": [
				{"key": "priority", "comparator": "equals", "value": "critical"}
			],
			"actions": [
				{"type": "escalate", "target": "ops"}
			]
		},
		{
			"id": "disabled-rule",
			"trigger": "sla_breach",
			"active": false,
			"actions": [
				{"type": "notify", "target": "ops"}
			]
		}
	]
}`

func TestLoader_Load(t *testing.T) {
	loader, err := NewLoaderWithCache(8)
	require.NoError(t, err)

	ruleList, err := loader.Load([]byte(validRulesJSON))
	require.NoError(t, err)
	require.Len(t, ruleList, 2)

	first := ruleList[0]
	assert.Equal(t, "critical-escalation", first.ID)
	assert.Equal(t, model.TriggerRequestCreated, first.Trigger)
	assert.True(t, first.Active, "active defaults to true when omitted")
	require.Len(t, first.Conditions, 1)
	assert.Equal(t, CompEquals, first.Conditions[0].Comparator)
	assert.Equal(t, model.String("critical"), first.Conditions[0].Value)

	assert.False(t, ruleList[1].Active)
}

func TestLoader_LoadedRulesFeedRegistry(t *testing.T) {
	loader, err := NewLoaderWithCache(8)
	require.NoError(t, err)

	ruleList, err := loader.Load([]byte(validRulesJSON))
	require.NoError(t, err)

	registry, err := NewRegistry(ruleList)
	require.NoError(t, err)

	assert.Len(t, registry.RulesFor(model.TriggerRequestCreated), 1)
	assert.Empty(t, registry.RulesFor(model.TriggerSLABreach), "inactive rule filtered out")
}

func TestLoader_RejectsUnknownComparator(t *testing.T) {
	loader, err := NewLoaderWithCache(8)
	require.NoError(t, err)

	_, err = loader.Load([]byte(`{
		"rules": [{
			"id": "bad",
			"trigger": "maintenance_request",
			"conditions": [{"key": "x", "comparator": "fuzzy", "value": 1}],
			"actions": [{"type": "notify", "target": "ops"}]
		}]
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoader_RejectsUnknownActionType(t *testing.T) {
	loader, err := NewLoaderWithCache(8)
	require.NoError(t, err)

	_, err = loader.Load([]byte(`{
		"rules": [{
			"id": "bad",
			"trigger": "maintenance_request",
			"actions": [{"type": "launch_rocket", "target": "pad-39a"}]
		}]
	}`))
	require.Error(t, err)
}

func TestLoader_RejectsEmptyActions(t *testing.T) {
	loader, err := NewLoaderWithCache(8)
	require.NoError(t, err)

	_, err = loader.Load([]byte(`{
		"rules": [{
			"id": "bad",
			"trigger": "maintenance_request",
			"actions": []
		}]
	}`))
	require.Error(t, err)
}

func TestLoader_RejectsMalformedJSON(t *testing.T) {
	loader, err := NewLoaderWithCache(8)
	require.NoError(t, err)

	_, err = loader.Load([]byte(`{"rules": [`))
	require.Error(t, err)
}

func TestLoader_CachesByContent(t *testing.T) {
	loader, err := NewLoaderWithCache(8)
	require.NoError(t, err)

	first, err := loader.Load([]byte(validRulesJSON))
	require.NoError(t, err)
	second, err := loader.Load([]byte(validRulesJSON))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
