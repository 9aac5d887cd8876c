package analysis

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-backend/internal/projects"
)

func TestDecodeResultAcceptsEachVariant(t *testing.T) {
	res, err := decodeResult(projects.ModeContradict, `{"uploaded":["a"],"external":[]}`)
	require.NoError(t, err)
	assert.Equal(t, projects.ModeContradict, res.Mode())
	assert.Equal(t, []string{"a"}, res.Contradictions.Uploaded)
	assert.NotNil(t, res.Contradictions.External)

	res, err = decodeResult(projects.ModeClaim, "\n {\"status\":\"incorrect\",\"issues\":[\"uncited claim\"],\"details\":\"see p.3\"} \n")
	require.NoError(t, err)
	assert.Equal(t, projects.ClaimIncorrect, res.Claims.Status)
	assert.Nil(t, res.Contradictions)
	assert.Nil(t, res.Hypothesis)

	res, err = decodeResult(projects.ModeHypothesis, `{"gaps":[],"hypotheses":["h1"],"novelIdea":"idea"}`)
	require.NoError(t, err)
	assert.Equal(t, "idea", res.Hypothesis.NovelIdea)
}

func TestDecodeResultRejectsMismatches(t *testing.T) {
	tests := []struct {
		name  string
		mode  projects.Mode
		text  string
		field string
	}{
		{name: "empty text", mode: projects.ModeContradict, text: "", field: "uploaded"},
		{name: "missing field", mode: projects.ModeHypothesis, text: `{"gaps":[],"hypotheses":[]}`, field: "novelIdea"},
		{name: "null field", mode: projects.ModeClaim, text: `{"status":"correct","issues":null,"details":""}`, field: "issues"},
		{name: "unknown field", mode: projects.ModeContradict, text: `{"uploaded":[],"external":[],"extra":1}`},
		{name: "bad status", mode: projects.ModeClaim, text: `{"status":"partly","issues":[],"details":""}`, field: "status"},
		{name: "wrong type", mode: projects.ModeHypothesis, text: `{"gaps":"none","hypotheses":[],"novelIdea":""}`},
		{name: "not json", mode: projects.ModeClaim, text: "Sure! Here is the analysis."},
		{name: "array", mode: projects.ModeClaim, text: `[]`},
		{name: "unknown mode", mode: projects.Mode("summary"), text: `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeResult(tt.mode, tt.text)
			require.ErrorIs(t, err, ErrDecode)
			var decodeErr *DecodeError
			require.True(t, errors.As(err, &decodeErr))
			assert.Equal(t, tt.mode, decodeErr.Mode)
			if tt.field != "" {
				assert.Equal(t, tt.field, decodeErr.Field)
			}
		})
	}
}

func TestSchemasRequireEveryField(t *testing.T) {
	for _, mode := range []projects.Mode{projects.ModeContradict, projects.ModeClaim, projects.ModeHypothesis} {
		schema := SchemaFor(mode)
		require.NotNil(t, schema, mode)
		assert.ElementsMatch(t, schema.PropertyNames(), schema.Required, mode)
	}
	assert.Equal(t, []string{"correct", "incorrect"}, SchemaFor(projects.ModeClaim).Properties["status"].Enum)
	assert.Nil(t, SchemaFor("summary"))
}
