package structured

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// SchemaGenerator利用反射从Go类型生成了JSON Schema.
type SchemaGenerator struct {
	// 正在处理的类型，用于递归类型
	visited map[reflect.Type]bool
}

// NewSchemaGenerator创建了一个新的SchemaGenerator实例.
func NewSchemaGenerator() *SchemaGenerator {
	return &SchemaGenerator{visited: make(map[reflect.Type]bool)}
}

// GenerateSchema 从 Go 类型生成 JSON Schema。
// 字段名取自 json 标签，约束取自 jsonschema 标签：
//
//	required, description=..., enum=a|b|c, minimum=0, maximum=9,
//	minLength=1, maxLength=80, pattern=^x$, minItems=1, maxItems=10
func (g *SchemaGenerator) GenerateSchema(t reflect.Type) (*JSONSchema, error) {
	g.visited = make(map[reflect.Type]bool)
	return g.generateSchema(t)
}

func (g *SchemaGenerator) generateSchema(t reflect.Type) (*JSONSchema, error) {
	if t == nil {
		return nil, fmt.Errorf("cannot generate schema for nil type")
	}
	if t.Kind() == reflect.Ptr {
		return g.generateSchema(t.Elem())
	}
	if g.visited[t] {
		return &JSONSchema{Type: TypeObject}, nil
	}

	switch t.Kind() {
	case reflect.String:
		return NewStringSchema(), nil
	case reflect.Bool:
		return NewBooleanSchema(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return NewIntegerSchema(), nil
	case reflect.Float32, reflect.Float64:
		return NewNumberSchema(), nil
	case reflect.Slice, reflect.Array:
		elem, err := g.generateSchema(t.Elem())
		if err != nil {
			return nil, fmt.Errorf("failed to generate schema for array element: %w", err)
		}
		return NewArraySchema(elem), nil
	case reflect.Map:
		value, err := g.generateSchema(t.Elem())
		if err != nil {
			return nil, fmt.Errorf("failed to generate schema for map value: %w", err)
		}
		schema := NewObjectSchema()
		schema.AdditionalProperties = &AdditionalProperties{Allowed: true, Schema: value}
		return schema, nil
	case reflect.Struct:
		return g.generateStructSchema(t)
	case reflect.Interface:
		return &JSONSchema{}, nil
	default:
		return nil, fmt.Errorf("unsupported type: %s", t.Kind())
	}
}

func (g *SchemaGenerator) generateStructSchema(t reflect.Type) (*JSONSchema, error) {
	g.visited[t] = true
	defer func() { g.visited[t] = false }()

	schema := NewObjectSchema()
	schema.Title = t.Name()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name := jsonFieldName(field)
		if name == "-" {
			continue
		}

		fieldSchema, err := g.generateSchema(field.Type)
		if err != nil {
			return nil, fmt.Errorf("failed to generate schema for field %s: %w", field.Name, err)
		}

		options := parseTagOptions(field.Tag.Get("jsonschema"))
		applyTagOptions(fieldSchema, options, field.Type)
		if _, ok := options["required"]; ok {
			schema.Required = append(schema.Required, name)
		}

		schema.Properties[name] = fieldSchema
	}

	return schema, nil
}

func jsonFieldName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" {
		return field.Name
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return field.Name
	}
	return name
}

func applyTagOptions(schema *JSONSchema, options map[string]string, t reflect.Type) {
	if desc, ok := options["description"]; ok {
		schema.Description = desc
	}
	if def, ok := options["default"]; ok {
		schema.Default = parseDefaultValue(def, t)
	}
	if enumStr, ok := options["enum"]; ok {
		for _, v := range strings.Split(enumStr, "|") {
			schema.Enum = append(schema.Enum, strings.TrimSpace(v))
		}
	}
	if v, ok := intOption(options, "minLength"); ok {
		schema.MinLength = &v
	}
	if v, ok := intOption(options, "maxLength"); ok {
		schema.MaxLength = &v
	}
	if pattern, ok := options["pattern"]; ok {
		schema.Pattern = pattern
	}
	if v, ok := floatOption(options, "minimum"); ok {
		schema.Minimum = &v
	}
	if v, ok := floatOption(options, "maximum"); ok {
		schema.Maximum = &v
	}
	if v, ok := intOption(options, "minItems"); ok {
		schema.MinItems = &v
	}
	if v, ok := intOption(options, "maxItems"); ok {
		schema.MaxItems = &v
	}
}

func intOption(options map[string]string, key string) (int, bool) {
	raw, ok := options[key]
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	return v, err == nil
}

func floatOption(options map[string]string, key string) (float64, bool) {
	raw, ok := options[key]
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	return v, err == nil
}

// parseTagOptions 把 "required,description=...,minimum=1" 解析为选项表。
// description 可以包含逗号：逗号后若不是新的 key 或已知布尔选项，则归入当前值。
func parseTagOptions(tag string) map[string]string {
	options := make(map[string]string)
	if tag == "" {
		return options
	}

	var parts []string
	for _, seg := range strings.Split(tag, ",") {
		if len(parts) > 0 && !looksLikeOption(seg) {
			parts[len(parts)-1] += "," + seg
			continue
		}
		parts = append(parts, seg)
	}

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if key, value, ok := strings.Cut(part, "="); ok && key != "" {
			options[key] = value
		} else {
			options[part] = ""
		}
	}
	return options
}

func looksLikeOption(seg string) bool {
	seg = strings.TrimSpace(seg)
	if seg == "required" {
		return true
	}
	key, _, ok := strings.Cut(seg, "=")
	if !ok || key == "" {
		return false
	}
	for _, c := range key {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			return false
		}
	}
	return true
}

func parseDefaultValue(value string, t reflect.Type) any {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Bool:
		return value == "true"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			return v
		}
	case reflect.Float32, reflect.Float64:
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			return v
		}
	}
	return value
}
