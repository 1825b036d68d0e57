package forms

import (
	_ "embed"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed definitions.yaml
var definitionsYAML []byte

// Definition describes one step form: which navigation step renders it and
// which fields must be filled before it can leave draft.
type Definition struct {
	Key      FormKey  `yaml:"key" json:"key"`
	Title    string   `yaml:"title" json:"title"`
	StepID   string   `yaml:"step" json:"stepId,omitempty"`
	Required []string `yaml:"required" json:"required"`
}

// FieldError names a field that failed validation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var (
	definitionsOnce sync.Once
	definitions     []Definition
	definitionsByID map[FormKey]Definition
	aliases         map[string]FormKey
)

func loadDefinitions() {
	defs, err := decodeDefinitions(definitionsYAML)
	if err != nil {
		panic(err)
	}
	definitions = defs
	definitionsByID = make(map[FormKey]Definition, len(defs))
	aliases = make(map[string]FormKey, len(defs)*2)
	for _, def := range defs {
		definitionsByID[def.Key] = def
		aliases[string(def.Key)] = def.Key
		if def.StepID != "" {
			aliases[def.StepID] = def.Key
		}
	}
}

func decodeDefinitions(raw []byte) ([]Definition, error) {
	var defs []Definition
	if err := yaml.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("decode form definitions: %w", err)
	}
	if len(defs) != len(formKeys) {
		return nil, fmt.Errorf("form definitions: expected %d entries, got %d", len(formKeys), len(defs))
	}
	for i, def := range defs {
		if def.Key != formKeys[i] {
			return nil, fmt.Errorf("form definitions: entry %d is %q, expected %q", i, def.Key, formKeys[i])
		}
		if def.StepID != "" {
			if _, ok := StepByID(def.StepID); !ok {
				return nil, fmt.Errorf("form definitions: %q links unknown step %q", def.Key, def.StepID)
			}
		}
	}
	return defs, nil
}

// Definitions returns every form definition in canonical key order.
func Definitions() []Definition {
	definitionsOnce.Do(loadDefinitions)
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// Lookup returns the definition for key.
func Lookup(key FormKey) (Definition, bool) {
	definitionsOnce.Do(loadDefinitions)
	def, ok := definitionsByID[key]
	return def, ok
}

// ParseFormKey resolves a canonical key or the id of the step that renders
// it ("service-delivery-policies" resolves to serviceDeliveryPolicy).
func ParseFormKey(raw string) (FormKey, bool) {
	definitionsOnce.Do(loadDefinitions)
	key, ok := aliases[strings.TrimSpace(raw)]
	return key, ok
}

// StepPath returns the path of the step that renders the form, or "".
func (d Definition) StepPath() string {
	if d.StepID == "" {
		return ""
	}
	step, ok := StepByID(d.StepID)
	if !ok {
		return ""
	}
	return step.Path
}

// Validate checks that every required field is present and non-empty.
func (d Definition) Validate(data map[string]any) []FieldError {
	var errs []FieldError
	for _, field := range d.Required {
		if isBlank(data[field]) {
			errs = append(errs, FieldError{Field: field, Message: "is required"})
		}
	}
	return errs
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
