package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleArgs struct {
	Path     string  `json:"path" description:"file path"`
	Count    int     `json:"count,omitempty"`
	Verbose  bool    `json:"verbose,omitempty"`
	Pattern  string  `json:"pattern,omitempty" default:"*"`
	Optional *string `json:"optional"`
	hidden   string  `json:"hidden"`
	Skipped  string  `json:"-"`
}

func TestCreateSchema(t *testing.T) {
	schema := CreateSchema(sampleArgs{})

	assert.Equal(t, "object", schema["type"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, props, 5)

	path := props["path"].(map[string]any)
	assert.Equal(t, "string", path["type"])
	assert.Equal(t, "file path", path["description"])

	assert.Equal(t, "integer", props["count"].(map[string]any)["type"])
	assert.Equal(t, "boolean", props["verbose"].(map[string]any)["type"])
	assert.Equal(t, "*", props["pattern"].(map[string]any)["default"])

	// Only non-omitempty, non-pointer fields are required.
	assert.Equal(t, []string{"path"}, schema["required"])
}

func TestCreateSchema_NonStruct(t *testing.T) {
	schema := CreateSchema("not a struct")
	assert.Equal(t, "object", schema["type"])
	assert.Empty(t, schema["properties"])
	assert.Nil(t, schema["required"])
}

func TestValidateParameters(t *testing.T) {
	schema := CreateSchema(sampleArgs{})

	t.Run("valid", func(t *testing.T) {
		err := ValidateParameters(map[string]any{"path": "a.txt", "count": float64(3)}, schema)
		assert.NoError(t, err)
	})

	t.Run("missing required", func(t *testing.T) {
		err := ValidateParameters(map[string]any{"count": float64(3)}, schema)
		require.Error(t, err)
		ve, ok := err.(*ValidationError)
		require.True(t, ok)
		assert.Equal(t, "path", ve.Field)
	})

	t.Run("wrong type", func(t *testing.T) {
		err := ValidateParameters(map[string]any{"path": 42}, schema)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "path")
	})

	t.Run("json number as integer", func(t *testing.T) {
		assert.NoError(t, ValidateParameters(map[string]any{"path": "a", "count": float64(7)}, schema))
		assert.Error(t, ValidateParameters(map[string]any{"path": "a", "count": float64(7.5)}, schema))
	})

	t.Run("extra keys allowed", func(t *testing.T) {
		assert.NoError(t, ValidateParameters(map[string]any{"path": "a", "unknown": true}, schema))
	})

	t.Run("required from json decoded schema", func(t *testing.T) {
		jsonSchema := map[string]any{
			"type":       "object",
			"properties": map[string]any{"q": map[string]any{"type": "string"}},
			"required":   []any{"q"},
		}
		assert.Error(t, ValidateParameters(map[string]any{}, jsonSchema))
		assert.NoError(t, ValidateParameters(map[string]any{"q": "x"}, jsonSchema))
	})
}
