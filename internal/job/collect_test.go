package job

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeScraper struct {
	page  *Page
	err   error
	calls []ScrapeOptions
}

func (f *fakeScraper) Scrape(_ context.Context, _ string, opts ScrapeOptions) (*Page, error) {
	f.calls = append(f.calls, opts)
	return f.page, f.err
}

func TestCollectFullExtraction(t *testing.T) {
	scraper := &fakeScraper{page: &Page{
		Markdown: "# Senior Go Engineer\nWe use Go and Kubernetes.",
		JSON: map[string]any{
			"title":                "Senior Go Engineer",
			"company":              "Acme",
			"requiredSkills":       []any{"Go", "Kubernetes"},
			"mustHaveRequirements": []any{"5+ years backend"},
			"niceToHave":           []any{},
			"keyResponsibilities":  []any{"Own services"},
			"technologies":         []any{"Go", "PostgreSQL"},
			"keywords":             []any{"Go", "Kubernetes", "PostgreSQL"},
			"experienceYears":      float64(5),
		},
	}}

	c := NewCollector(scraper, zap.NewNop())
	j, err := c.Collect(context.Background(), "https://jobs.example.com/1", CollectOptions{MaxAge: time.Hour})
	require.NoError(t, err)

	assert.Equal(t, "Senior Go Engineer", j.Title)
	assert.Equal(t, "Acme", j.Company)
	assert.Equal(t, "https://jobs.example.com/1", j.URL)
	assert.Equal(t, []string{"Go", "Kubernetes"}, j.RequiredSkills)
	assert.Equal(t, []string{}, j.NiceToHave)
	require.NotNil(t, j.ExperienceYears)
	assert.Equal(t, 5.0, *j.ExperienceYears)
	assert.Contains(t, j.Text, "We use Go")

	require.Len(t, scraper.calls, 1)
	assert.Equal(t, time.Hour, scraper.calls[0].MaxAge)
	assert.JSONEq(t, string(Schema()), string(scraper.calls[0].Schema))
}

func TestCollectPartialExtractionIsDefaulted(t *testing.T) {
	scraper := &fakeScraper{page: &Page{
		JSON: map[string]any{
			"requiredSkills":  "Go",
			"technologies":    []any{"Go", ""},
			"experienceYears": "3+ years",
		},
	}}

	c := NewCollector(scraper, nil)
	j, err := c.Collect(context.Background(), "https://jobs.example.com/2", CollectOptions{})
	require.NoError(t, err)

	assert.Equal(t, UnknownTitle, j.Title)
	assert.Equal(t, UnknownCompany, j.Company)
	assert.Equal(t, []string{"Go"}, j.RequiredSkills)
	assert.Equal(t, []string{"Go"}, j.Technologies)
	assert.NotNil(t, j.Keywords)
	assert.NotNil(t, j.MustHaveRequirements)
	require.NotNil(t, j.ExperienceYears)
	assert.Equal(t, 3.0, *j.ExperienceYears)

	// Without markdown the extraction itself becomes the text.
	var text map[string]any
	require.NoError(t, json.Unmarshal([]byte(j.Text), &text))
	assert.Equal(t, "Go", text["requiredSkills"])
}

func TestCollectMarkdownOnly(t *testing.T) {
	scraper := &fakeScraper{page: &Page{Markdown: "Some posting"}}

	j, err := NewCollector(scraper, nil).Collect(context.Background(), "https://jobs.example.com/3", CollectOptions{})
	require.NoError(t, err)

	assert.Equal(t, UnknownTitle, j.Title)
	assert.Equal(t, "Some posting", j.Text)
	assert.Nil(t, j.ExperienceYears)
	assert.Equal(t, []string{}, j.Keywords)
}

func TestCollectFailsWithoutContent(t *testing.T) {
	for name, page := range map[string]*Page{
		"nil page":   nil,
		"empty page": {},
		"blank text": {Markdown: "   "},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewCollector(&fakeScraper{page: page}, nil).Collect(context.Background(), "https://x", CollectOptions{})

			var ce *CollectionError
			require.True(t, errors.As(err, &ce), "expected CollectionError, got %v", err)
			assert.Equal(t, "https://x", ce.URL)
		})
	}
}

func TestCollectWrapsScraperErrors(t *testing.T) {
	_, err := NewCollector(&fakeScraper{err: context.Canceled}, nil).Collect(context.Background(), "https://x", CollectOptions{})

	var ce *CollectionError
	require.True(t, errors.As(err, &ce))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollectDropsInvalidOptionalFields(t *testing.T) {
	tests := []struct {
		name  string
		years any
	}{
		{name: "negative number", years: float64(-1)},
		{name: "negative string", years: "-1"},
		{name: "negative int", years: -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scraper := &fakeScraper{page: &Page{
				Markdown: "# Senior Go Engineer\nWe use Go.",
				JSON:     map[string]any{"title": "Go Engineer", "experienceYears": tt.years},
			}}

			j, err := NewCollector(scraper, nil).Collect(context.Background(), "https://x.test/job", CollectOptions{})
			require.NoError(t, err)

			assert.Equal(t, "Go Engineer", j.Title)
			assert.Nil(t, j.ExperienceYears)
			assert.Contains(t, j.Text, "We use Go")
		})
	}
}

func TestCollectUsesPageTitleWhenExtractionHasNone(t *testing.T) {
	scraper := &fakeScraper{page: &Page{
		Markdown: "Posting body",
		JSON:     map[string]any{"company": "Acme"},
		Metadata: map[string]any{"title": " Staff Engineer "},
	}}

	j, err := NewCollector(scraper, nil).Collect(context.Background(), "https://jobs.example.com/4", CollectOptions{})
	require.NoError(t, err)

	assert.Equal(t, "Staff Engineer", j.Title)
	assert.Equal(t, "Acme", j.Company)
}

func TestCoerceYears(t *testing.T) {
	assert.Equal(t, 4.0, coerceYears(float64(4)))
	assert.Equal(t, 2.0, coerceYears(2))
	assert.Equal(t, 7.5, coerceYears("7.5 years"))
	assert.Nil(t, coerceYears(float64(-1)))
	assert.Nil(t, coerceYears("-2 years"))
	assert.Nil(t, coerceYears("several"))
	assert.Nil(t, coerceYears(nil))
	assert.Nil(t, coerceYears([]any{1}))
}

func TestValidateRejectsMissingTitle(t *testing.T) {
	j := New("https://x", "text")
	require.NoError(t, Validate(j))

	j.Title = ""
	assert.Error(t, Validate(j))
}
