// Package score holds the structured result of an ATS analysis.
package score

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Placeholder fills string lists the model left empty.
const Placeholder = "None identified"

const (
	SuggestionAdd     = "add"
	SuggestionEnhance = "enhance"
	SuggestionRewrite = "rewrite"
)

type Score struct {
	Score           int             `json:"score"`
	KeywordAnalysis KeywordAnalysis `json:"keywordAnalysis"`
	Suggestions     []Suggestion    `json:"suggestions"`
	Analysis        Analysis        `json:"analysis"`
	Optimizations   []string        `json:"optimizations"`
}

type KeywordAnalysis struct {
	StrongMatches    []KeywordMatch `json:"strongMatches"`
	UnderRepresented []KeywordGap   `json:"underRepresented"`
	NotFound         []KeywordGap   `json:"notFound"`
}

// KeywordMatch is a keyword the resume already covers well.
type KeywordMatch struct {
	Keyword         string `json:"keyword" xml:"keyword"`
	JobFrequency    int    `json:"jobFrequency" xml:"jobFrequency"`
	ResumeFrequency int    `json:"resumeFrequency" xml:"resumeFrequency"`
}

// KeywordGap is a keyword that is missing or appears too rarely.
type KeywordGap struct {
	Keyword         string `json:"keyword" xml:"keyword"`
	JobFrequency    int    `json:"jobFrequency" xml:"jobFrequency"`
	ResumeFrequency int    `json:"resumeFrequency" xml:"resumeFrequency"`
	Suggestion      string `json:"suggestion" xml:"suggestion"`
}

type Suggestion struct {
	Type      string `json:"type" xml:"type"`
	Location  string `json:"location" xml:"location"`
	Current   string `json:"current,omitempty" xml:"current,omitempty"`
	Suggested string `json:"suggested" xml:"suggested"`
	Impact    int    `json:"impact" xml:"impact"`
	Rationale string `json:"rationale" xml:"rationale"`
}

type Analysis struct {
	TopPriorities    []string      `json:"topPriorities"`
	CurrentStrengths []string      `json:"currentStrengths"`
	Opportunities    []string      `json:"opportunities"`
	Compatibility    Compatibility `json:"compatibility"`
}

// Compatibility holds percentages before and after applying the suggestions.
type Compatibility struct {
	Current   int `json:"current" xml:"current"`
	Potential int `json:"potential" xml:"potential"`
}

// Gain is the improvement the suggestions are expected to bring.
func (c Compatibility) Gain() int {
	return c.Potential - c.Current
}

// Normalize replaces nil lists with empty ones and fills empty string lists
// with Placeholder. Keyword buckets and suggestions may stay empty.
func (s *Score) Normalize() {
	if s.KeywordAnalysis.StrongMatches == nil {
		s.KeywordAnalysis.StrongMatches = []KeywordMatch{}
	}
	if s.KeywordAnalysis.UnderRepresented == nil {
		s.KeywordAnalysis.UnderRepresented = []KeywordGap{}
	}
	if s.KeywordAnalysis.NotFound == nil {
		s.KeywordAnalysis.NotFound = []KeywordGap{}
	}
	if s.Suggestions == nil {
		s.Suggestions = []Suggestion{}
	}

	s.Analysis.TopPriorities = fillPlaceholder(s.Analysis.TopPriorities)
	s.Analysis.CurrentStrengths = fillPlaceholder(s.Analysis.CurrentStrengths)
	s.Analysis.Opportunities = fillPlaceholder(s.Analysis.Opportunities)
	s.Optimizations = fillPlaceholder(s.Optimizations)
}

func fillPlaceholder(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return []string{Placeholder}
	}
	return out
}

// Parse decodes, normalizes and validates a complete score document. Empty
// string lists are filled before validation; missing fields are errors.
func Parse(data []byte) (*Score, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode score: %w", err)
	}

	if analysis, ok := doc["analysis"].(map[string]any); ok {
		for _, key := range []string{"topPriorities", "currentStrengths", "opportunities"} {
			fillDocPlaceholder(analysis, key)
		}
	}
	fillDocPlaceholder(doc, "optimizations")

	if err := validate(gojsonschema.NewGoLoader(doc)); err != nil {
		return nil, err
	}

	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode score: %w", err)
	}

	var s Score
	if err := json.Unmarshal(normalized, &s); err != nil {
		return nil, fmt.Errorf("decode score: %w", err)
	}
	s.Normalize()

	return &s, nil
}

func fillDocPlaceholder(doc map[string]any, key string) {
	items, ok := doc[key].([]any)
	if !ok {
		return
	}

	kept := make([]any, 0, len(items))
	for _, item := range items {
		if str, isString := item.(string); isString && str == "" {
			continue
		}
		kept = append(kept, item)
	}
	if len(kept) == 0 {
		kept = append(kept, Placeholder)
	}
	doc[key] = kept
}

// DecodePartial decodes a snapshot of a score that is still being generated.
// Nothing is validated and missing fields keep their zero values.
func DecodePartial(data []byte) (*Score, error) {
	var s Score
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode partial score: %w", err)
	}
	return &s, nil
}
