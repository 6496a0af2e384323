package job

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFirecrawlServer(t *testing.T, status int, response string, captured *map[string]any) *Firecrawl {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, scrapePath, r.URL.Path)
		assert.Equal(t, "Bearer fc-test", r.Header.Get("Authorization"))

		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		if captured != nil {
			assert.NoError(t, json.Unmarshal(raw, captured))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(server.Close)

	f := NewFirecrawl("fc-test", nil)
	f.APIURL = server.URL
	return f
}

func TestFirecrawlScrape(t *testing.T) {
	var body map[string]any
	f := newFirecrawlServer(t, http.StatusOK, `{
		"success": true,
		"data": {
			"markdown": "# Go Engineer",
			"json": {"title": "Go Engineer", "company": "Acme"},
			"metadata": {"sourceURL": "https://jobs.example.com/1", "statusCode": 200}
		}
	}`, &body)

	page, err := f.Scrape(context.Background(), "https://jobs.example.com/1", ScrapeOptions{MaxAge: 2 * time.Hour, Schema: Schema()})
	require.NoError(t, err)

	assert.Equal(t, "# Go Engineer", page.Markdown)
	assert.Equal(t, "Go Engineer", page.JSON["title"])
	assert.Equal(t, "https://jobs.example.com/1", page.Metadata["sourceURL"])

	assert.Equal(t, "https://jobs.example.com/1", body["url"])
	assert.Equal(t, []any{"markdown", "json"}, body["formats"])
	assert.Equal(t, float64(2*time.Hour/time.Millisecond), body["maxAge"])
	assert.Equal(t, true, body["onlyMainContent"])
	opts, ok := body["jsonOptions"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, opts, "schema")
}

func TestFirecrawlScrapeMaxAge(t *testing.T) {
	var body map[string]any
	f := newFirecrawlServer(t, http.StatusOK, `{"success": true, "data": {"markdown": "x"}}`, &body)

	_, err := f.Scrape(context.Background(), "https://x", ScrapeOptions{MaxAge: 0})
	require.NoError(t, err)
	assert.Equal(t, float64(0), body["maxAge"])
	assert.Equal(t, []any{"markdown"}, body["formats"])

	body = nil
	_, err = f.Scrape(context.Background(), "https://x", ScrapeOptions{MaxAge: -1})
	require.NoError(t, err)
	assert.NotContains(t, body, "maxAge")
}

func TestFirecrawlScrapeNullContent(t *testing.T) {
	f := newFirecrawlServer(t, http.StatusOK, `{"success": true, "data": {"markdown": null, "json": null}}`, nil)

	page, err := f.Scrape(context.Background(), "https://x", ScrapeOptions{})
	require.NoError(t, err)
	assert.Empty(t, page.Markdown)
	assert.Nil(t, page.JSON)

	_, err = NewCollector(f, nil).Collect(context.Background(), "https://x", CollectOptions{})
	var ce *CollectionError
	assert.ErrorAs(t, err, &ce)
}

func TestFirecrawlScrapeIgnoresMalformedExtraction(t *testing.T) {
	f := newFirecrawlServer(t, http.StatusOK, `{
		"success": true,
		"data": {"markdown": "# Go Engineer at Acme", "json": "could not extract", "metadata": ["unexpected"]}
	}`, nil)

	page, err := f.Scrape(context.Background(), "https://x", ScrapeOptions{Schema: Schema()})
	require.NoError(t, err)
	assert.Equal(t, "# Go Engineer at Acme", page.Markdown)
	assert.Nil(t, page.JSON)
	assert.Nil(t, page.Metadata)

	j, err := NewCollector(f, nil).Collect(context.Background(), "https://x", CollectOptions{})
	require.NoError(t, err)
	assert.Equal(t, UnknownTitle, j.Title)
	assert.Equal(t, "# Go Engineer at Acme", j.Text)
}

func TestFirecrawlScrapeErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		response string
		contains string
	}{
		{name: "api error message", status: http.StatusPaymentRequired, response: `{"success": false, "error": "Insufficient credits"}`, contains: "Insufficient credits"},
		{name: "unsuccessful 200", status: http.StatusOK, response: `{"success": false, "error": "blocked"}`, contains: "blocked"},
		{name: "non json error", status: http.StatusBadGateway, response: `<html>bad gateway</html>`, contains: "502"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFirecrawlServer(t, tt.status, tt.response, nil)
			_, err := f.Scrape(context.Background(), "https://x", ScrapeOptions{})
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.contains), "unexpected error %v", err)
		})
	}
}
