package model

import (
	"encoding/json"
	"fmt"
)

// ValueKind tags a Value variant
type ValueKind int

const (
	KindString ValueKind = iota
	KindNumber
	KindBool
	KindList
)

// Value is a typed union over the context value shapes rule conditions
// understand: string, number, bool or list. Keeping the union closed lets
// the condition evaluator be exhaustive instead of reflecting over
// arbitrary JSON.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Bool bool
	List []Value
}

func String(s string) Value    { return Value{Kind: KindString, Str: s} }
func Number(n float64) Value   { return Value{Kind: KindNumber, Num: n} }
func Boolean(b bool) Value     { return Value{Kind: KindBool, Bool: b} }
func ListOf(vs ...Value) Value { return Value{Kind: KindList, List: vs} }

// Equal reports type-sensitive equality: values of different kinds are
// never equal.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindString:
		return v.Str == o.Str
	case KindNumber:
		return v.Num == o.Num
	case KindBool:
		return v.Bool == o.Bool
	case KindList:
		if len(v.List) != len(o.List) {
			return false
		}
		for i := range v.List {
			if !v.List[i].Equal(o.List[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Numeric returns the numeric payload, false when v is not a number.
func (v Value) Numeric() (float64, bool) {
	if v.Kind != KindNumber {
		return 0, false
	}
	return v.Num, true
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindString:
		return json.Marshal(v.Str)
	case KindNumber:
		return json.Marshal(v.Num)
	case KindBool:
		return json.Marshal(v.Bool)
	case KindList:
		if v.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.List)
	}
	return nil, fmt.Errorf("unknown value kind %d", v.Kind)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ValueOf converts a decoded JSON value into a typed Value. Objects and
// nulls have no condition semantics and are rejected.
func ValueOf(raw interface{}) (Value, error) {
	switch t := raw.(type) {
	case string:
		return String(t), nil
	case float64:
		return Number(t), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case bool:
		return Boolean(t), nil
	case []interface{}:
		list := make([]Value, 0, len(t))
		for _, item := range t {
			v, err := ValueOf(item)
			if err != nil {
				return Value{}, err
			}
			list = append(list, v)
		}
		return Value{Kind: KindList, List: list}, nil
	}
	return Value{}, fmt.Errorf("unsupported context value type %T", raw)
}

// String renders the value for logs and error messages.
func (v Value) AsString() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return ""
	}
	return string(b)
}
