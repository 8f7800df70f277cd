package schemas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	assert.Equal(t, []string{
		Compatibility, Draft, Help, Onboarding, Recommendations, Safety, Summary,
	}, Names())
}

func TestEmbeddedSchemasCompile(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			_, err := load(name)
			require.NoError(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		schema  string
		payload string
		wantErr bool
	}{
		{
			name:    "compatibility ok",
			schema:  Compatibility,
			payload: `{"why_compatible":"both code","conversation_starter":"hi","compatibility_score":72.5}`,
		},
		{
			name:    "compatibility missing starter",
			schema:  Compatibility,
			payload: `{"why_compatible":"both code","compatibility_score":72}`,
			wantErr: true,
		},
		{
			name:    "compatibility score as string",
			schema:  Compatibility,
			payload: `{"why_compatible":"x","conversation_starter":"y","compatibility_score":"high"}`,
			wantErr: true,
		},
		{
			name:    "safety ok",
			schema:  Safety,
			payload: `{"is_safe":false,"flags":["spam"],"confidence":0.6,"action":"review"}`,
		},
		{
			name:    "safety unknown action",
			schema:  Safety,
			payload: `{"is_safe":true,"flags":[],"confidence":0.1,"action":"delete"}`,
			wantErr: true,
		},
		{
			name:    "recommendation reasons must be strings",
			schema:  Recommendations,
			payload: `{"reasons":{"e1":3}}`,
			wantErr: true,
		},
		{
			name:    "recommendation empty reasons",
			schema:  Recommendations,
			payload: `{"reasons":{}}`,
		},
		{
			name:    "empty summary",
			schema:  Summary,
			payload: `{"summary":""}`,
			wantErr: true,
		},
		{
			name:    "help without sources",
			schema:  Help,
			payload: `{"response":"Go to settings."}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.schema, tt.payload)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.schema, vErr.Schema)
			assert.NotEmpty(t, vErr.Errors)
		})
	}
}

func TestValidate_UnknownSchema(t *testing.T) {
	err := Validate("nope", `{}`)
	var loadErr *SchemaLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "nope", loadErr.Name)
}

func TestValidate_MalformedDocument(t *testing.T) {
	err := Validate(Draft, `{"draft_reply":`)
	require.Error(t, err)
	var vErr *ValidationError
	assert.False(t, errors.As(err, &vErr))
}

func TestValidateJSONString(t *testing.T) {
	schema := `{"type":"object","required":["a"],"properties":{"a":{"type":"integer"}}}`

	require.NoError(t, ValidateJSONString(schema, `{"a":1}`))

	err := ValidateJSONString(schema, `{}`)
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "(root)", vErr.Errors[0].Field)
}
