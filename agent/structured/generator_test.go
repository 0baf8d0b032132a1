package structured

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type genStop struct {
	Name     string   `json:"name" jsonschema:"required,description=Stop name, as shown on maps"`
	Minutes  int      `json:"minutes" jsonschema:"required,minimum=0,maximum=600"`
	Kind     string   `json:"kind" jsonschema:"enum=museum|park|market"`
	Notes    *string  `json:"notes,omitempty"`
	Tags     []string `json:"tags,omitempty" jsonschema:"minItems=1,maxItems=5"`
	internal string
	Skipped  string `json:"-"`
}

type genRoute struct {
	Title string            `json:"title" jsonschema:"required"`
	Stops []genStop         `json:"stops" jsonschema:"required"`
	Meta  map[string]string `json:"meta,omitempty"`
	Score float64           `json:"score"`
	Open  bool              `json:"open"`
}

func TestSchemaGenerator_Struct(t *testing.T) {
	schema, err := NewSchemaGenerator().GenerateSchema(reflect.TypeOf(genRoute{}))
	require.NoError(t, err)

	assert.Equal(t, TypeObject, schema.Type)
	assert.Equal(t, "genRoute", schema.Title)
	assert.ElementsMatch(t, []string{"title", "stops"}, schema.Required)
	assert.Equal(t, TypeNumber, schema.Properties["score"].Type)
	assert.Equal(t, TypeBoolean, schema.Properties["open"].Type)

	meta := schema.Properties["meta"]
	require.NotNil(t, meta.AdditionalProperties)
	assert.Equal(t, TypeString, meta.AdditionalProperties.Schema.Type)

	stops := schema.Properties["stops"]
	require.Equal(t, TypeArray, stops.Type)
	stop := stops.Items
	require.NotNil(t, stop)
	assert.ElementsMatch(t, []string{"name", "minutes"}, stop.Required)
	assert.Equal(t, "Stop name, as shown on maps", stop.Properties["name"].Description)
	assert.Equal(t, []any{"museum", "park", "market"}, stop.Properties["kind"].Enum)
	assert.Equal(t, TypeString, stop.Properties["notes"].Type)
	require.NotNil(t, stop.Properties["minutes"].Maximum)
	assert.Equal(t, 600.0, *stop.Properties["minutes"].Maximum)
	require.NotNil(t, stop.Properties["tags"].MaxItems)
	assert.Equal(t, 5, *stop.Properties["tags"].MaxItems)
	assert.NotContains(t, stop.Properties, "internal")
	assert.NotContains(t, stop.Properties, "Skipped")
	assert.NotContains(t, stop.Properties, "-")
}

func TestSchemaGenerator_Errors(t *testing.T) {
	_, err := NewSchemaGenerator().GenerateSchema(nil)
	assert.Error(t, err)

	_, err = NewSchemaGenerator().GenerateSchema(reflect.TypeOf(make(chan int)))
	assert.Error(t, err)
}

type recursiveNode struct {
	Value    string           `json:"value"`
	Children []*recursiveNode `json:"children"`
}

func TestSchemaGenerator_Recursive(t *testing.T) {
	schema, err := NewSchemaGenerator().GenerateSchema(reflect.TypeOf(recursiveNode{}))
	require.NoError(t, err)
	assert.Equal(t, TypeObject, schema.Properties["children"].Items.Type)
}

func TestParseTagOptions(t *testing.T) {
	tests := []struct {
		name string
		tag  string
		want map[string]string
	}{
		{"empty", "", map[string]string{}},
		{"required only", "required", map[string]string{"required": ""}},
		{
			name: "description with comma",
			tag:  "required,description=Like 'Museum', 'Park',minimum=1",
			want: map[string]string{"required": "", "description": "Like 'Museum', 'Park'", "minimum": "1"},
		},
		{
			name: "trailing required",
			tag:  "description=a, b,required",
			want: map[string]string{"description": "a, b", "required": ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseTagOptions(tt.tag))
		})
	}
}
