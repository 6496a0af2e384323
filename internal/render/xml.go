package render

import (
	"encoding/xml"
	"fmt"

	"github.com/spigell/ats-analyzer/internal/score"
)

// The XML view wraps every list in a container element so empty lists still
// produce their element and the document carries every JSON field.
type xmlEvaluation struct {
	XMLName         xml.Name           `xml:"evaluation"`
	Score           int                `xml:"score"`
	KeywordAnalysis xmlKeywordAnalysis `xml:"keywordAnalysis"`
	Suggestions     xmlSuggestions     `xml:"suggestions"`
	Analysis        xmlAnalysis        `xml:"analysis"`
	Optimizations   xmlItems           `xml:"optimizations"`
}

type xmlKeywordAnalysis struct {
	StrongMatches    xmlMatches `xml:"strongMatches"`
	UnderRepresented xmlGaps    `xml:"underRepresented"`
	NotFound         xmlGaps    `xml:"notFound"`
}

type xmlMatches struct {
	Items []score.KeywordMatch `xml:"match"`
}

type xmlGaps struct {
	Items []score.KeywordGap `xml:"gap"`
}

type xmlSuggestions struct {
	Items []score.Suggestion `xml:"suggestion"`
}

type xmlAnalysis struct {
	TopPriorities    xmlItems            `xml:"topPriorities"`
	CurrentStrengths xmlItems            `xml:"currentStrengths"`
	Opportunities    xmlItems            `xml:"opportunities"`
	Compatibility    score.Compatibility `xml:"compatibility"`
}

type xmlItems struct {
	Items []string `xml:"item"`
}

// XML renders the score under an evaluation root element.
func XML(s *score.Score) (string, error) {
	doc := xmlEvaluation{
		Score: s.Score,
		KeywordAnalysis: xmlKeywordAnalysis{
			StrongMatches:    xmlMatches{Items: s.KeywordAnalysis.StrongMatches},
			UnderRepresented: xmlGaps{Items: s.KeywordAnalysis.UnderRepresented},
			NotFound:         xmlGaps{Items: s.KeywordAnalysis.NotFound},
		},
		Suggestions: xmlSuggestions{Items: s.Suggestions},
		Analysis: xmlAnalysis{
			TopPriorities:    xmlItems{Items: s.Analysis.TopPriorities},
			CurrentStrengths: xmlItems{Items: s.Analysis.CurrentStrengths},
			Opportunities:    xmlItems{Items: s.Analysis.Opportunities},
			Compatibility:    s.Analysis.Compatibility,
		},
		Optimizations: xmlItems{Items: s.Optimizations},
	}

	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal score: %w", err)
	}
	return xml.Header + string(data), nil
}
