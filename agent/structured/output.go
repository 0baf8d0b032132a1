package structured

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// OutputSchema is the type-erased view of a Coercer, used by tasks whose
// output type is chosen by name from configuration.
type OutputSchema interface {
	// Name 返回注册名，如 "travel_itinerary"
	Name() string
	// Instruction 返回追加到任务提示词末尾的格式说明
	Instruction() string
	// Coerce 把模型回复规整为经过校验的 JSON
	Coerce(raw string) (json.RawMessage, error)
}

// ParseResult代表了解析结构化输出的结果.
type ParseResult[T any] struct {
	Value  *T           `json:"value,omitempty"`
	Raw    string       `json:"raw"`
	Errors []ParseError `json:"errors,omitempty"`
}

// IsValid 如果解析成功且没有出错, 则返回为真 。
func (r *ParseResult[T]) IsValid() bool {
	return r.Value != nil && len(r.Errors) == 0
}

// Coercer turns free-form model replies into validated values of type T.
type Coercer[T any] struct {
	name      string
	schema    *JSONSchema
	validator SchemaValidator
}

// NewCoercer builds a Coercer for T, generating the schema from T's tags.
func NewCoercer[T any](name string) (*Coercer[T], error) {
	var zero T
	schema, err := NewSchemaGenerator().GenerateSchema(reflect.TypeOf(zero))
	if err != nil {
		return nil, fmt.Errorf("failed to generate schema for type %T: %w", zero, err)
	}
	return NewCoercerWithSchema[T](name, schema)
}

// NewCoercerWithSchema builds a Coercer for T with a custom schema.
func NewCoercerWithSchema[T any](name string, schema *JSONSchema) (*Coercer[T], error) {
	if schema == nil {
		return nil, fmt.Errorf("schema cannot be nil")
	}
	return &Coercer[T]{
		name:      name,
		schema:    schema,
		validator: NewValidator(),
	}, nil
}

// MustCoercer is NewCoercer that panics on error, for package-level vars.
func MustCoercer[T any](name string) *Coercer[T] {
	c, err := NewCoercer[T](name)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Coercer[T]) Name() string        { return c.name }
func (c *Coercer[T]) Schema() *JSONSchema { return c.schema }

// Instruction renders the schema as a prompt block.
func (c *Coercer[T]) Instruction() string {
	schemaJSON, err := c.schema.ToJSONIndent()
	if err != nil {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("IMPORTANT OUTPUT FORMAT:\n")
	sb.WriteString("1. Respond with a single JSON object that conforms to the schema below.\n")
	sb.WriteString("2. Do NOT include any text before or after the JSON.\n")
	sb.WriteString("3. Ensure all required fields are present and have valid values.\n\n")
	sb.WriteString("JSON Schema:\n```json\n")
	sb.Write(schemaJSON)
	sb.WriteString("\n```")
	return sb.String()
}

// Parse extracts, validates and decodes a value from raw.
func (c *Coercer[T]) Parse(raw string) (*T, error) {
	result := c.ParseWithResult(raw)
	if len(result.Errors) > 0 {
		return nil, &ValidationErrors{Errors: result.Errors}
	}
	return result.Value, nil
}

// ParseWithResult 解析并返回详细结果；Value 仅在 JSON 可解码时非空。
func (c *Coercer[T]) ParseWithResult(raw string) *ParseResult[T] {
	jsonStr := ExtractJSON(raw)
	result := &ParseResult[T]{Raw: raw}

	if err := c.validator.Validate([]byte(jsonStr), c.schema); err != nil {
		if ve, ok := err.(*ValidationErrors); ok {
			result.Errors = append(result.Errors, ve.Errors...)
		} else {
			result.Errors = append(result.Errors, ParseError{Message: err.Error()})
		}
	}

	var value T
	if err := json.Unmarshal([]byte(jsonStr), &value); err != nil {
		result.Errors = append(result.Errors, ParseError{Message: fmt.Sprintf("JSON parse error: %v", err)})
		return result
	}
	result.Value = &value
	return result
}

// Coerce implements OutputSchema.
func (c *Coercer[T]) Coerce(raw string) (json.RawMessage, error) {
	value, err := c.Parse(raw)
	if err != nil {
		return nil, err
	}
	return json.Marshal(value)
}

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// ExtractJSON 从可能包含 markdown 或说明文字的回复中取出 JSON 片段。
func ExtractJSON(response string) string {
	response = strings.TrimSpace(response)

	if strings.Contains(response, "```") {
		if m := fencedJSON.FindStringSubmatch(response); len(m) > 1 {
			return strings.TrimSpace(m[1])
		}
	}

	if start, end := strings.Index(response, "{"), strings.LastIndex(response, "}"); start >= 0 && end > start {
		return response[start : end+1]
	}
	if start, end := strings.Index(response, "["), strings.LastIndex(response, "]"); start >= 0 && end > start {
		return response[start : end+1]
	}
	return response
}

// ====== Registry ======

// Registry maps schema names to OutputSchema implementations.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]OutputSchema
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]OutputSchema)}
}

// DefaultRegistry is the process-wide registry that domain packages register into.
var DefaultRegistry = NewRegistry()

// Register adds s under s.Name(), replacing any previous entry.
func (r *Registry) Register(s OutputSchema) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[s.Name()] = s
}

// Lookup returns the schema registered under name.
func (r *Registry) Lookup(name string) (OutputSchema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[name]
	if !ok {
		return nil, fmt.Errorf("output schema %q not registered", name)
	}
	return s, nil
}

// Names lists registered schema names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
