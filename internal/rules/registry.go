package rules

import (
	"fmt"

	"opsflow/internal/model"
)

// Registry holds the configured workflow rules, indexed by trigger type.
// It is built once at load time and injected where needed; lookups are
// read-only and safe for concurrent use.
type Registry struct {
	byTrigger map[model.TriggerType][]WorkflowRule
}

// NewRegistry builds a registry from the configured rule list. Rule IDs
// must be unique; definition order is preserved per trigger type.
func NewRegistry(ruleList []WorkflowRule) (*Registry, error) {
	seen := make(map[string]bool, len(ruleList))
	byTrigger := make(map[model.TriggerType][]WorkflowRule)

	for _, rule := range ruleList {
		if rule.ID == "" {
			return nil, fmt.Errorf("rule with empty id")
		}
		if seen[rule.ID] {
			return nil, fmt.Errorf("duplicate rule id: %s", rule.ID)
		}
		seen[rule.ID] = true
		byTrigger[rule.Trigger] = append(byTrigger[rule.Trigger], rule)
	}

	return &Registry{byTrigger: byTrigger}, nil
}

// RulesFor returns the active rules bound to the trigger type, in
// definition order. An unknown trigger type returns an empty slice;
// unmatched events are a normal, silent outcome, not an error.
func (r *Registry) RulesFor(trigger model.TriggerType) []WorkflowRule {
	candidates := r.byTrigger[trigger]
	if len(candidates) == 0 {
		return nil
	}

	active := make([]WorkflowRule, 0, len(candidates))
	for _, rule := range candidates {
		if rule.Active {
			active = append(active, rule)
		}
	}
	return active
}

// Rule returns the rule with the given id, false when unknown.
func (r *Registry) Rule(id string) (WorkflowRule, bool) {
	for _, ruleList := range r.byTrigger {
		for _, rule := range ruleList {
			if rule.ID == id {
				return rule, true
			}
		}
	}
	return WorkflowRule{}, false
}
