package render

import (
	"fmt"
	"strings"

	"github.com/spigell/ats-analyzer/internal/score"
)

// Sentences printed in place of empty sections.
const (
	NoStrongMatches    = "No strong keyword matches were found."
	NoUnderRepresented = "No under-represented keywords were identified."
	NoMissingKeywords  = "All key terms from the job description appear in your resume."
	NoSuggestions      = "No specific optimization suggestions at this time."
)

const (
	VerdictExcellent = "Excellent match. Your resume is well aligned with this role."
	VerdictGood      = "Good match. A few targeted changes will make your resume more competitive."
	VerdictModerate  = "Moderate match. Addressing the priorities above will noticeably improve your chances."
	VerdictLimited   = "Limited match. Significant changes are needed to pass ATS screening for this role."
)

// Verdict maps a score to its qualitative tier.
func Verdict(value int) string {
	switch {
	case value >= 80:
		return VerdictExcellent
	case value >= 65:
		return VerdictGood
	case value >= 50:
		return VerdictModerate
	default:
		return VerdictLimited
	}
}

// Markdown renders the human-readable report.
func Markdown(s *score.Score) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# ATS Compatibility Analysis: %d/100\n\n", s.Score)

	b.WriteString("## Keyword Analysis\n\n")

	b.WriteString("### Strong Matches\n\n")
	if len(s.KeywordAnalysis.StrongMatches) == 0 {
		b.WriteString(NoStrongMatches + "\n")
	}
	for _, m := range s.KeywordAnalysis.StrongMatches {
		fmt.Fprintf(&b, "- **%s**: %d in job description, %d in resume\n", m.Keyword, m.JobFrequency, m.ResumeFrequency)
	}
	b.WriteString("\n")

	b.WriteString("### Under-represented Keywords\n\n")
	writeGaps(&b, s.KeywordAnalysis.UnderRepresented, NoUnderRepresented)

	b.WriteString("### Keywords Not Found\n\n")
	writeGaps(&b, s.KeywordAnalysis.NotFound, NoMissingKeywords)

	b.WriteString("## Optimization Opportunities\n\n")
	if len(s.Suggestions) == 0 {
		b.WriteString(NoSuggestions + "\n\n")
	}
	for i, sg := range s.Suggestions {
		fmt.Fprintf(&b, "### %d. %s: %s (+%d points)\n\n", i+1, title(sg.Type), sg.Location, sg.Impact)
		if sg.Current != "" {
			fmt.Fprintf(&b, "- **Current:** %s\n", sg.Current)
		}
		fmt.Fprintf(&b, "- **Suggested:** %s\n", sg.Suggested)
		fmt.Fprintf(&b, "- **Why:** %s\n\n", sg.Rationale)
	}

	b.WriteString("## Role Analysis\n\n")
	writeList(&b, "Top Priorities", s.Analysis.TopPriorities)
	writeList(&b, "Current Strengths", s.Analysis.CurrentStrengths)
	writeList(&b, "Opportunities", s.Analysis.Opportunities)

	b.WriteString("## Quick Optimizations\n\n")
	writeBullets(&b, s.Optimizations)
	b.WriteString("\n")

	c := s.Analysis.Compatibility
	b.WriteString("## Compatibility Assessment\n\n")
	fmt.Fprintf(&b, "Current: %d%% | Potential: %d%% (%+d%%)\n\n", c.Current, c.Potential, c.Gain())
	b.WriteString(Verdict(s.Score) + "\n")

	return b.String()
}

func writeGaps(b *strings.Builder, gaps []score.KeywordGap, empty string) {
	if len(gaps) == 0 {
		b.WriteString(empty + "\n\n")
		return
	}
	for _, g := range gaps {
		fmt.Fprintf(b, "- **%s**: %d in job description, %d in resume", g.Keyword, g.JobFrequency, g.ResumeFrequency)
		if g.Suggestion != "" {
			fmt.Fprintf(b, ". %s", g.Suggestion)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func writeList(b *strings.Builder, heading string, items []string) {
	fmt.Fprintf(b, "### %s\n\n", heading)
	writeBullets(b, items)
	b.WriteString("\n")
}

func writeBullets(b *strings.Builder, items []string) {
	if len(items) == 0 {
		items = []string{score.Placeholder}
	}
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}

func title(kind string) string {
	switch kind {
	case score.SuggestionAdd:
		return "Add"
	case score.SuggestionEnhance:
		return "Enhance"
	case score.SuggestionRewrite:
		return "Rewrite"
	case "":
		return "Change"
	default:
		return strings.ToUpper(kind[:1]) + kind[1:]
	}
}
