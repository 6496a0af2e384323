package score

import (
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xeipuuv/gojsonschema"
)

func loadFixture(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/score.json")
	require.NoError(t, err)
	return data
}

func TestParseValidDocument(t *testing.T) {
	s, err := Parse(loadFixture(t))
	require.NoError(t, err)

	assert.Equal(t, 72, s.Score)
	require.Len(t, s.KeywordAnalysis.StrongMatches, 2)
	assert.Equal(t, "Go", s.KeywordAnalysis.StrongMatches[0].Keyword)
	require.Len(t, s.Suggestions, 2)
	assert.Equal(t, SuggestionEnhance, s.Suggestions[0].Type)
	assert.Empty(t, s.Suggestions[1].Current)
	assert.Equal(t, 12, s.Analysis.Compatibility.Gain())
}

func TestParseFillsPlaceholders(t *testing.T) {
	doc := `{
		"score": 40,
		"keywordAnalysis": {"strongMatches": [], "underRepresented": [], "notFound": []},
		"suggestions": [],
		"analysis": {"topPriorities": [], "currentStrengths": [""], "opportunities": ["x"], "compatibility": {"current": 40, "potential": 55}},
		"optimizations": []
	}`

	s, err := Parse([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, []string{Placeholder}, s.Analysis.TopPriorities)
	assert.Equal(t, []string{Placeholder}, s.Analysis.CurrentStrengths)
	assert.Equal(t, []string{"x"}, s.Analysis.Opportunities)
	assert.Equal(t, []string{Placeholder}, s.Optimizations)
	assert.NotNil(t, s.KeywordAnalysis.NotFound)
	assert.Empty(t, s.KeywordAnalysis.NotFound)
}

func TestParseRejectsSchemaViolations(t *testing.T) {
	tests := []struct {
		name  string
		patch func(m map[string]any)
		field string
	}{
		{
			name:  "score above range",
			patch: func(m map[string]any) { m["score"] = 140 },
			field: "score",
		},
		{
			name: "unknown suggestion type",
			patch: func(m map[string]any) {
				m["suggestions"].([]any)[0].(map[string]any)["type"] = "delete"
			},
			field: "suggestions.0.type",
		},
		{
			name: "missing compatibility",
			patch: func(m map[string]any) {
				delete(m["analysis"].(map[string]any), "compatibility")
			},
			field: "analysis",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m map[string]any
			require.NoError(t, json.Unmarshal(loadFixture(t), &m))
			tt.patch(m)
			doc, err := json.Marshal(m)
			require.NoError(t, err)

			_, err = Parse(doc)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
			require.NotEmpty(t, ve.Errors)
			assert.Equal(t, tt.field, ve.Errors[0].Field)
		})
	}
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	_, err := Parse([]byte(`{"score": `))
	assert.ErrorContains(t, err, "decode score")
}

func TestDecodePartial(t *testing.T) {
	s, err := DecodePartial([]byte(`{"score": 55, "keywordAnalysis": {"strongMatches": [{"keyword": "Go"}]}}`))
	require.NoError(t, err)
	assert.Equal(t, 55, s.Score)
	require.Len(t, s.KeywordAnalysis.StrongMatches, 1)
	assert.Nil(t, s.Suggestions)
}

func TestSchemaIsValidJSON(t *testing.T) {
	assert.True(t, json.Valid(Schema()))
}

func TestValidateBytes(t *testing.T) {
	require.NoError(t, validate(gojsonschema.NewBytesLoader(loadFixture(t))))
	assert.Error(t, validate(gojsonschema.NewBytesLoader([]byte(`{"score": 10}`))))
}

func TestNormalizeKeepsKeywordBucketsEmpty(t *testing.T) {
	s := &Score{}
	s.Normalize()

	assert.Equal(t, []KeywordMatch{}, s.KeywordAnalysis.StrongMatches)
	assert.Equal(t, []KeywordGap{}, s.KeywordAnalysis.UnderRepresented)
	assert.Equal(t, []Suggestion{}, s.Suggestions)
	assert.Equal(t, []string{Placeholder}, s.Analysis.Opportunities)
}
