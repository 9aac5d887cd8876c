package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func claimSchema() *Schema {
	return &Schema{
		Type: TypeObject,
		Properties: map[string]*Schema{
			"status":  {Type: TypeString, Enum: []string{"correct", "incorrect"}},
			"issues":  {Type: TypeArray, Items: &Schema{Type: TypeString}},
			"details": {Type: TypeString},
		},
		Order:    []string{"status", "issues", "details"},
		Required: []string{"status", "issues", "details"},
	}
}

func TestJSONSchemaClosesObjects(t *testing.T) {
	doc := claimSchema().JSONSchema()

	assert.Equal(t, "object", doc["type"])
	assert.Equal(t, false, doc["additionalProperties"])
	assert.Equal(t, []any{"status", "issues", "details"}, doc["required"])

	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok)
	status := props["status"].(map[string]any)
	assert.Equal(t, []any{"correct", "incorrect"}, status["enum"])
	issues := props["issues"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "string"}, issues["items"])
}

func TestPropertyNamesFollowsOrder(t *testing.T) {
	assert.Equal(t, []string{"status", "issues", "details"}, claimSchema().PropertyNames())

	var nilSchema *Schema
	assert.Nil(t, nilSchema.PropertyNames())
	assert.Nil(t, nilSchema.JSONSchema())
}

func TestProviderErrorMatchesSentinel(t *testing.T) {
	base := errors.New("connection reset")
	err := &ProviderError{Provider: "gemini", StatusCode: 503, Err: base}

	assert.ErrorIs(t, err, ErrProvider)
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "status 503")
}

func TestPlaceholderGenerator(t *testing.T) {
	_, err := PlaceholderGenerator{}.Generate(context.Background(), GenerateRequest{})
	assert.ErrorIs(t, err, ErrNotImplemented)
}
