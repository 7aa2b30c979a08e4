package rules

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	js "github.com/santhosh-tekuri/jsonschema/v5"
)

// ruleFileSchema constrains the shape of on-disk rule files before they
// are decoded. Comparator and action enums are enforced here so a typo in
// configuration fails at load time, not silently at dispatch time.
const ruleFileSchema = `{
	"type": "object",
	"required": ["rules"],
	"properties": {
		"rules": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "trigger", "actions"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"trigger": {"type": "string", "minLength": 1},
					"active": {"type": "boolean"},
					"conditions": {
						"type": "array",
						"items": {
							"type": "object",
							"required": ["key", "comparator", "value"],
							"properties": {
								"key": {"type": "string", "minLength": 1},
								"comparator": {"enum": ["equals", "in_set", "gte"]}
							}
						}
					},
					"actions": {
						"type": "array",
						"minItems": 1,
						"items": {
							"type": "object",
							"required": ["type", "target"],
							"properties": {
								"type": {"enum": ["notify", "escalate", "create_derived_request", "allocate_resource", "auto_schedule"]},
								"target": {"type": "string", "minLength": 1}
							}
						}
					}
				}
			}
		}
	}
}`

type ruleFile struct {
	Rules []ruleEntry `json:"rules"`
}

type ruleEntry struct {
	WorkflowRule
	// Active defaults to true when omitted in the file.
	Active *bool `json:"active"`
}

// Loader parses and validates rule configuration files. Parsed rule sets
// are cached by content hash so repeated loads of an unchanged file are
// free.
type Loader struct {
	schema *js.Schema
	cache  *expirable.LRU[string, []WorkflowRule]
}

// NewLoaderWithCache creates a loader caching up to maxSize parsed files
func NewLoaderWithCache(maxSize int) (*Loader, error) {
	c := js.NewCompiler()
	if err := c.AddResource("mem://rules.schema.json", bytes.NewReader([]byte(ruleFileSchema))); err != nil {
		return nil, fmt.Errorf("failed to add rule schema resource: %w", err)
	}
	compiled, err := c.Compile("mem://rules.schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile rule schema: %w", err)
	}

	return &Loader{
		schema: compiled,
		cache:  expirable.NewLRU[string, []WorkflowRule](maxSize, nil, time.Hour),
	}, nil
}

// LoadFile reads, validates and decodes one rule file.
func (l *Loader) LoadFile(path string) ([]WorkflowRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	return l.Load(data)
}

// Load validates and decodes rule file contents.
func (l *Loader) Load(data []byte) ([]WorkflowRule, error) {
	key := contentKey(data)
	if cached, ok := l.cache.Get(key); ok {
		return cached, nil
	}

	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid rules file: %w", err)
	}
	if err := l.schema.Validate(raw); err != nil {
		return nil, fmt.Errorf("rules file validation failed: %w", err)
	}

	var file ruleFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode rules file: %w", err)
	}

	ruleList := make([]WorkflowRule, 0, len(file.Rules))
	for _, entry := range file.Rules {
		rule := entry.WorkflowRule
		rule.Active = entry.Active == nil || *entry.Active
		ruleList = append(ruleList, rule)
	}

	l.cache.Add(key, ruleList)
	return ruleList, nil
}

func contentKey(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
