package prompt

import (
	"strings"
	"testing"

	"github.com/spigell/ats-analyzer/internal/job"

	"github.com/stretchr/testify/assert"
)

func sampleJob() *job.Job {
	years := 5.0
	return &job.Job{
		URL:             "https://jobs.example.com/1",
		Title:           "Senior Go Engineer",
		Company:         "Acme",
		Text:            "We build developer platforms.",
		RequiredSkills:  []string{"Go", "Kubernetes"},
		Technologies:    []string{"PostgreSQL"},
		Keywords:        []string{"Go", "gRPC"},
		ExperienceYears: &years,
	}
}

func TestJobContext(t *testing.T) {
	ctx := JobContext(sampleJob())

	assert.Contains(t, ctx, "- Title: Senior Go Engineer")
	assert.Contains(t, ctx, "- Company: Acme")
	assert.Contains(t, ctx, "- URL: https://jobs.example.com/1")
	assert.Contains(t, ctx, "- Required experience: 5 years")
	assert.Contains(t, ctx, "### Required skills\n\n- Go\n- Kubernetes\n")
	assert.Contains(t, ctx, "### Nice to have\n\n- (none listed)\n")
	assert.Contains(t, ctx, "### Full description\n\nWe build developer platforms.")
}

func TestJobContextDefaultsNilJob(t *testing.T) {
	ctx := JobContext(nil)
	assert.Contains(t, ctx, "- Title: "+job.UnknownTitle)
	assert.Contains(t, ctx, "- Company: "+job.UnknownCompany)
	assert.NotContains(t, ctx, "URL:")
}

func TestBuildersAreDeterministic(t *testing.T) {
	j := sampleJob()
	assert.Equal(t, Reasoning("resume", j), Reasoning("resume", j))
	assert.Equal(t, Scoring("resume", j), Scoring("resume", j))
}

func TestReasoningPrompt(t *testing.T) {
	p := Reasoning("  Jane Doe\nGo developer  ", sampleJob())

	assert.NotContains(t, p, placeholderJobContext)
	assert.NotContains(t, p, placeholderResume)
	assert.Contains(t, p, JobContext(sampleJob()))
	assert.Contains(t, p, "## Resume\n\nJane Doe\nGo developer\n")
	assert.Contains(t, p, "### Assessment")
	assert.Contains(t, p, "Do not offer further help")
}

func TestScoringPrompt(t *testing.T) {
	p := Scoring("resume text", sampleJob())

	assert.NotContains(t, p, placeholderJobContext)
	assert.Contains(t, p, JobContext(sampleJob()))
	for _, field := range []string{"keywordAnalysis", "strongMatches", "underRepresented", "notFound", "suggestions", "compatibility", "optimizations"} {
		assert.Contains(t, p, field)
	}
	assert.True(t, strings.Index(p, "## Job Posting") < strings.Index(p, "## Resume"))
}

func TestFormatYears(t *testing.T) {
	assert.Equal(t, "3", formatYears(3))
	assert.Equal(t, "2.5", formatYears(2.5))
}

func TestPlaceholdersInInputsAreKept(t *testing.T) {
	j := sampleJob()
	j.Text = "Paste your {{RESUME}} below."

	p := Reasoning("Jane Doe {{JOB_CONTEXT}}", j)

	assert.Equal(t, 1, strings.Count(p, "Jane Doe"))
	assert.Contains(t, p, "Paste your {{RESUME}} below.")
	assert.Contains(t, p, "Jane Doe {{JOB_CONTEXT}}")
	assert.Equal(t, 1, strings.Count(p, "## Job Posting"))
}
