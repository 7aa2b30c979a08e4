package rules

import (
	"opsflow/internal/model"
)

// Comparator selects how a condition compares the context value against
// the condition value
type Comparator string

const (
	CompEquals         Comparator = "equals"
	CompInSet          Comparator = "in_set"
	CompGreaterOrEqual Comparator = "gte"
)

// Condition is one (key, comparator, value) predicate over event context
type Condition struct {
	Key        string      `json:"key"`
	Comparator Comparator  `json:"comparator"`
	Value      model.Value `json:"value"`
}

// WorkflowRule binds a trigger type to a condition set and an ordered
// action list. Rules are configuration; the engine never mutates them.
type WorkflowRule struct {
	ID         string                 `json:"id"`
	Trigger    model.TriggerType      `json:"trigger"`
	Conditions []Condition            `json:"conditions,omitempty"`
	Actions    []model.WorkflowAction `json:"actions"`
	Active     bool                   `json:"active"`
}

// Matches reports whether every condition holds against the event
// context. Evaluation fails closed: a missing key, a kind mismatch on a
// numeric comparison, or an unknown comparator all count as non-match,
// never an error. A malformed event must not fire high-impact actions.
func Matches(conditions []Condition, context map[string]model.Value) bool {
	for _, c := range conditions {
		if !evaluate(c, context) {
			return false
		}
	}
	return true
}

func evaluate(c Condition, context map[string]model.Value) bool {
	got, ok := context[c.Key]
	if !ok {
		return false
	}

	switch c.Comparator {
	case CompEquals:
		return got.Equal(c.Value)

	case CompInSet:
		if c.Value.Kind != model.KindList {
			return false
		}
		for _, member := range c.Value.List {
			if got.Equal(member) {
				return true
			}
		}
		return false

	case CompGreaterOrEqual:
		gotNum, ok := got.Numeric()
		if !ok {
			return false
		}
		wantNum, ok := c.Value.Numeric()
		if !ok {
			return false
		}
		return gotNum >= wantNum
	}

	return false
}
