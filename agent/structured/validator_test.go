package structured

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func planSchema() *JSONSchema {
	stop := NewObjectSchema().
		AddProperty("name", NewStringSchema()).
		AddProperty("address", NewStringSchema()).
		AddRequired("name")
	return NewObjectSchema().
		AddProperty("day", NewIntegerSchema()).
		AddProperty("stops", NewArraySchema(stop)).
		AddRequired("day", "stops")
}

func TestDefaultValidator_Validate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantErr  bool
		wantPath string
	}{
		{name: "valid", input: `{"day":1,"stops":[{"name":"Naqsh-e Jahan"}]}`},
		{name: "optional null accepted", input: `{"day":1,"stops":[{"name":"Bridge","address":null}]}`},
		{name: "empty array accepted", input: `{"day":1,"stops":[]}`},
		{name: "missing required", input: `{"day":1}`, wantErr: true, wantPath: "stops"},
		{name: "required null", input: `{"day":1,"stops":null}`, wantErr: true, wantPath: "stops"},
		{name: "nested missing", input: `{"day":1,"stops":[{"address":"x"}]}`, wantErr: true, wantPath: "stops[0].name"},
		{name: "float for integer", input: `{"day":1.5,"stops":[]}`, wantErr: true, wantPath: "day"},
		{name: "string for integer", input: `{"day":"1","stops":[]}`, wantErr: true, wantPath: "day"},
		{name: "invalid json", input: `{"day":`, wantErr: true},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate([]byte(tt.input), planSchema())
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			ve, ok := err.(*ValidationErrors)
			require.True(t, ok)
			if tt.wantPath != "" {
				paths := make([]string, 0, len(ve.Errors))
				for _, e := range ve.Errors {
					paths = append(paths, e.Path)
				}
				assert.Contains(t, paths, tt.wantPath)
			}
		})
	}
}

func TestDefaultValidator_Constraints(t *testing.T) {
	min, max := 1.0, 10.0
	minLen := 2
	schema := NewObjectSchema().
		AddProperty("n", &JSONSchema{Type: TypeInteger, Minimum: &min, Maximum: &max}).
		AddProperty("s", &JSONSchema{Type: TypeString, MinLength: &minLen, Pattern: "^[a-z]+$"}).
		AddProperty("e", &JSONSchema{Type: TypeString, Enum: []any{"a", "b"}})
	strict := NewObjectSchema().AddProperty("x", NewStringSchema())
	strict.AdditionalProperties = &AdditionalProperties{Allowed: false}

	v := NewValidator()
	assert.NoError(t, v.Validate([]byte(`{"n":5,"s":"ab","e":"a"}`), schema))
	assert.Error(t, v.Validate([]byte(`{"n":0}`), schema))
	assert.Error(t, v.Validate([]byte(`{"n":11}`), schema))
	assert.Error(t, v.Validate([]byte(`{"s":"a"}`), schema))
	assert.Error(t, v.Validate([]byte(`{"s":"AB"}`), schema))
	assert.Error(t, v.Validate([]byte(`{"e":"c"}`), schema))
	assert.NoError(t, v.Validate([]byte(`{"x":"ok"}`), strict))
	assert.Error(t, v.Validate([]byte(`{"x":"ok","y":1}`), strict))
	assert.NoError(t, v.Validate([]byte(`{}`), nil))
}

func TestValidationErrors_Error(t *testing.T) {
	assert.Equal(t, "validation failed", (&ValidationErrors{}).Error())
	one := &ValidationErrors{Errors: []ParseError{{Path: "a", Message: "bad"}}}
	assert.Equal(t, "a: bad", one.Error())
	two := &ValidationErrors{Errors: []ParseError{{Path: "a", Message: "bad"}, {Message: "worse"}}}
	assert.True(t, strings.HasPrefix(two.Error(), "validation failed with 2 errors"))
}

func TestProperty_MissingRequiredFieldIsLocated(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		field := rapid.StringMatching(`[a-z]{3,10}`).Draw(rt, "field")
		schema := NewObjectSchema().AddProperty(field, NewStringSchema()).AddRequired(field)

		err := NewValidator().Validate([]byte(`{}`), schema)
		require.Error(rt, err)
		ve := err.(*ValidationErrors)
		require.Len(rt, ve.Errors, 1)
		assert.Equal(rt, field, ve.Errors[0].Path)
	})
}
