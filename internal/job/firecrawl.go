package job

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	firecrawlURL     = "https://api.firecrawl.dev"
	scrapePath       = "/v1/scrape"
	contentType      = "application/json"
	userAgent        = "spigell/ats-analyzer"
	extractionPrompt = "Extract the job posting details. Copy skills, technologies and keywords in the exact form the posting uses."
)

// Firecrawl is a Scraper backed by the Firecrawl scrape API.
type Firecrawl struct {
	apiKey     string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

type scrapeRequest struct {
	URL             string       `json:"url"`
	Formats         []string     `json:"formats"`
	OnlyMainContent bool         `json:"onlyMainContent"`
	JSONOptions     *jsonOptions `json:"jsonOptions,omitempty"`
	MaxAge          *int64       `json:"maxAge,omitempty"`
}

type jsonOptions struct {
	Schema json.RawMessage `json:"schema,omitempty"`
	Prompt string          `json:"prompt,omitempty"`
}

type scrapeResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    *struct {
		Markdown string          `json:"markdown"`
		JSON     json.RawMessage `json:"json"`
		Metadata json.RawMessage `json:"metadata"`
	} `json:"data"`
}

func NewFirecrawl(apiKey string, logger *zap.Logger) *Firecrawl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Firecrawl{
		apiKey: apiKey,
		logger: logger,
		HTTPClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
		UserAgent: userAgent,
		APIURL:    firecrawlURL,
	}
}

// Scrape renders url and extracts the posting with opts.Schema.
func (f *Firecrawl) Scrape(ctx context.Context, url string, opts ScrapeOptions) (*Page, error) {
	body := scrapeRequest{
		URL:             url,
		Formats:         []string{"markdown"},
		OnlyMainContent: true,
	}
	if len(opts.Schema) > 0 {
		body.Formats = append(body.Formats, "json")
		body.JSONOptions = &jsonOptions{Schema: opts.Schema, Prompt: extractionPrompt}
	}
	if opts.MaxAge >= 0 {
		ms := opts.MaxAge.Milliseconds()
		body.MaxAge = &ms
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(f.APIURL, "/")+scrapePath, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req = f.setHeaders(req)

	resp, err := f.request(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	var response scrapeResponse
	if err := json.Unmarshal(data, &response); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("bad status: %s", resp.Status)
		}
		return nil, fmt.Errorf("decode scrape response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || !response.Success {
		if response.Error != "" {
			return nil, fmt.Errorf("bad status: %s: %s", resp.Status, response.Error)
		}
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	if response.Data == nil {
		return &Page{}, nil
	}

	page := &Page{
		Markdown: response.Data.Markdown,
		JSON:     f.object(url, "json", response.Data.JSON),
		Metadata: f.object(url, "metadata", response.Data.Metadata),
	}

	f.logger.Debug("got response from firecrawl",
		zap.Int("markdown_length", len(page.Markdown)),
		zap.Bool("has_extraction", page.JSON != nil),
	)

	return page, nil
}

// object decodes an optional JSON object of the response. Anything that is
// not an object is dropped so the rest of the page stays usable.
func (f *Firecrawl) object(url, field string, raw json.RawMessage) map[string]any {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		f.logger.Warn("ignoring malformed field of scrape response",
			zap.String("url", url), zap.String("field", field), zap.Error(err))
		return nil
	}
	return obj
}

func (f *Firecrawl) request(req *http.Request) (*http.Response, error) {
	f.logger.Debug("make request", zap.String("url", req.URL.String()))
	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (f *Firecrawl) setHeaders(req *http.Request) *http.Request {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", f.apiKey))
	req.Header.Set("User-Agent", f.UserAgent)
	req.Header.Set("Content-Type", contentType)

	return req
}

func readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	return io.ReadAll(reader)
}
