// Package prompt builds the texts sent to the AI provider. Every builder is
// a pure function of its inputs.
package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/spigell/ats-analyzer/internal/job"
)

//go:embed reasoning.md
var reasoningTemplate string

//go:embed scoring.md
var scoringTemplate string

const (
	SystemReasoning = "You are an expert ATS (Applicant Tracking System) analyst and technical recruiter. You write precise, actionable resume reviews in Markdown."
	SystemScoring   = "You are an expert ATS (Applicant Tracking System) analyst. You return strictly valid JSON that follows the requested shape."

	placeholderJobContext = "{{JOB_CONTEXT}}"
	placeholderResume     = "{{RESUME}}"

	noneListed = "(none listed)"
)

// Reasoning builds the prompt for the narrative Markdown report.
func Reasoning(resumeText string, j *job.Job) string {
	return fill(reasoningTemplate, resumeText, j)
}

// Scoring builds the prompt for the structured score.
func Scoring(resumeText string, j *job.Job) string {
	return fill(scoringTemplate, resumeText, j)
}

// fill substitutes both placeholders in one pass so placeholder text inside
// the posting or the resume is left as is.
func fill(template, resumeText string, j *job.Job) string {
	return strings.NewReplacer(
		placeholderJobContext, JobContext(j),
		placeholderResume, strings.TrimSpace(resumeText),
	).Replace(template)
}

// JobContext formats the posting block shared by both prompts.
func JobContext(j *job.Job) string {
	if j == nil {
		j = job.New("", "")
	}

	var b strings.Builder
	b.WriteString("## Job Posting\n\n")
	fmt.Fprintf(&b, "- Title: %s\n", j.Title)
	fmt.Fprintf(&b, "- Company: %s\n", j.Company)
	if j.URL != "" {
		fmt.Fprintf(&b, "- URL: %s\n", j.URL)
	}
	if j.ExperienceYears != nil {
		fmt.Fprintf(&b, "- Required experience: %s years\n", formatYears(*j.ExperienceYears))
	}

	writeSection(&b, "Required skills", j.RequiredSkills)
	writeSection(&b, "Must-have requirements", j.MustHaveRequirements)
	writeSection(&b, "Nice to have", j.NiceToHave)
	writeSection(&b, "Key responsibilities", j.KeyResponsibilities)
	writeSection(&b, "Technologies", j.Technologies)
	writeSection(&b, "ATS keywords", j.Keywords)

	if text := strings.TrimSpace(j.Text); text != "" {
		b.WriteString("\n### Full description\n\n")
		b.WriteString(text)
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func writeSection(b *strings.Builder, heading string, items []string) {
	fmt.Fprintf(b, "\n### %s\n\n", heading)
	if len(items) == 0 {
		b.WriteString("- " + noneListed + "\n")
		return
	}
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}

func formatYears(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.1f", v)
}
