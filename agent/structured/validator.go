package structured

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
)

// SchemaValidator validates JSON data against a JSONSchema.
type SchemaValidator interface {
	Validate(data []byte, schema *JSONSchema) error
}

// ParseError represents a validation error with field path.
type ParseError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors represents multiple validation errors.
type ValidationErrors struct {
	Errors []ParseError `json:"errors"`
}

// Error implements the error interface.
func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed with %d errors: %s", len(e.Errors), strings.Join(msgs, "; "))
}

// DefaultValidator is the default implementation of SchemaValidator.
// Optional properties that are present but null are accepted.
type DefaultValidator struct{}

// NewValidator creates a new DefaultValidator.
func NewValidator() *DefaultValidator {
	return &DefaultValidator{}
}

// Validate validates JSON data against a schema.
func (v *DefaultValidator) Validate(data []byte, schema *JSONSchema) error {
	if schema == nil {
		return nil
	}

	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return &ValidationErrors{
			Errors: []ParseError{{Path: "", Message: fmt.Sprintf("invalid JSON: %v", err)}},
		}
	}

	var errs []ParseError
	v.validateValue(value, schema, "", &errs)
	if len(errs) > 0 {
		return &ValidationErrors{Errors: errs}
	}
	return nil
}

func (v *DefaultValidator) validateValue(value any, schema *JSONSchema, path string, errs *[]ParseError) {
	if schema == nil {
		return
	}

	if len(schema.Enum) > 0 {
		found := false
		for _, enumVal := range schema.Enum {
			if fmt.Sprint(enumVal) == fmt.Sprint(value) {
				found = true
				break
			}
		}
		if !found {
			*errs = append(*errs, ParseError{Path: path, Message: fmt.Sprintf("value must be one of: %v", schema.Enum)})
		}
	}

	switch schema.Type {
	case TypeString:
		v.validateString(value, schema, path, errs)
	case TypeNumber, TypeInteger:
		v.validateNumber(value, schema, path, errs)
	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			*errs = append(*errs, ParseError{Path: path, Message: fmt.Sprintf("expected boolean, got %s", jsonType(value))})
		}
	case TypeNull:
		if value != nil {
			*errs = append(*errs, ParseError{Path: path, Message: fmt.Sprintf("expected null, got %s", jsonType(value))})
		}
	case TypeObject:
		v.validateObject(value, schema, path, errs)
	case TypeArray:
		v.validateArray(value, schema, path, errs)
	}
}

func (v *DefaultValidator) validateString(value any, schema *JSONSchema, path string, errs *[]ParseError) {
	str, ok := value.(string)
	if !ok {
		*errs = append(*errs, ParseError{Path: path, Message: fmt.Sprintf("expected string, got %s", jsonType(value))})
		return
	}

	length := len([]rune(str))
	if schema.MinLength != nil && length < *schema.MinLength {
		*errs = append(*errs, ParseError{Path: path, Message: fmt.Sprintf("string length %d is less than minimum %d", length, *schema.MinLength)})
	}
	if schema.MaxLength != nil && length > *schema.MaxLength {
		*errs = append(*errs, ParseError{Path: path, Message: fmt.Sprintf("string length %d exceeds maximum %d", length, *schema.MaxLength)})
	}
	if schema.Pattern != "" {
		re, err := regexp.Compile(schema.Pattern)
		if err != nil {
			*errs = append(*errs, ParseError{Path: path, Message: fmt.Sprintf("invalid pattern %q: %v", schema.Pattern, err)})
		} else if !re.MatchString(str) {
			*errs = append(*errs, ParseError{Path: path, Message: fmt.Sprintf("string does not match pattern %q", schema.Pattern)})
		}
	}
}

func (v *DefaultValidator) validateNumber(value any, schema *JSONSchema, path string, errs *[]ParseError) {
	num, ok := value.(float64)
	if !ok {
		*errs = append(*errs, ParseError{Path: path, Message: fmt.Sprintf("expected %s, got %s", schema.Type, jsonType(value))})
		return
	}
	if schema.Type == TypeInteger && num != math.Trunc(num) {
		*errs = append(*errs, ParseError{Path: path, Message: fmt.Sprintf("expected integer, got %v", num)})
		return
	}
	if schema.Minimum != nil && num < *schema.Minimum {
		*errs = append(*errs, ParseError{Path: path, Message: fmt.Sprintf("value %v is less than minimum %v", num, *schema.Minimum)})
	}
	if schema.Maximum != nil && num > *schema.Maximum {
		*errs = append(*errs, ParseError{Path: path, Message: fmt.Sprintf("value %v exceeds maximum %v", num, *schema.Maximum)})
	}
}

func (v *DefaultValidator) validateObject(value any, schema *JSONSchema, path string, errs *[]ParseError) {
	obj, ok := value.(map[string]any)
	if !ok {
		*errs = append(*errs, ParseError{Path: path, Message: fmt.Sprintf("expected object, got %s", jsonType(value))})
		return
	}

	for _, req := range schema.Required {
		val, exists := obj[req]
		if !exists {
			*errs = append(*errs, ParseError{Path: joinPath(path, req), Message: "required field is missing"})
		} else if val == nil {
			*errs = append(*errs, ParseError{Path: joinPath(path, req), Message: "required field must not be null"})
		}
	}

	for name, propValue := range obj {
		propPath := joinPath(path, name)
		if propSchema, ok := schema.Properties[name]; ok {
			if propValue == nil {
				// 可选字段允许显式 null；必填字段已在上面报告
				continue
			}
			v.validateValue(propValue, propSchema, propPath, errs)
			continue
		}
		if ap := schema.AdditionalProperties; ap != nil {
			if ap.Schema != nil {
				v.validateValue(propValue, ap.Schema, propPath, errs)
			} else if !ap.Allowed {
				*errs = append(*errs, ParseError{Path: propPath, Message: "additional property not allowed"})
			}
		}
	}
}

func (v *DefaultValidator) validateArray(value any, schema *JSONSchema, path string, errs *[]ParseError) {
	arr, ok := value.([]any)
	if !ok {
		*errs = append(*errs, ParseError{Path: path, Message: fmt.Sprintf("expected array, got %s", jsonType(value))})
		return
	}

	if schema.MinItems != nil && len(arr) < *schema.MinItems {
		*errs = append(*errs, ParseError{Path: path, Message: fmt.Sprintf("array has %d items, minimum is %d", len(arr), *schema.MinItems)})
	}
	if schema.MaxItems != nil && len(arr) > *schema.MaxItems {
		*errs = append(*errs, ParseError{Path: path, Message: fmt.Sprintf("array has %d items, maximum is %d", len(arr), *schema.MaxItems)})
	}
	if schema.Items != nil {
		for i, item := range arr {
			v.validateValue(item, schema.Items, fmt.Sprintf("%s[%d]", path, i), errs)
		}
	}
}

func joinPath(base, segment string) string {
	if base == "" {
		return segment
	}
	return base + "." + segment
}

func jsonType(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", value)
	}
}
