package job

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spigell/ats-analyzer/internal/utils"

	"github.com/mitchellh/mapstructure"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
)

//go:embed schema.json
var schemaJSON []byte

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
})

var leadingNumber = regexp.MustCompile(`\d+(?:\.\d+)?`)

// Schema is the extraction schema sent to the scraper. Normalized jobs are
// validated against it as well.
func Schema() json.RawMessage {
	return json.RawMessage(schemaJSON)
}

// Page is what a scraper returns for one URL. JSON is nil when no structured
// extraction was produced.
type Page struct {
	Markdown string
	JSON     map[string]any
	Metadata map[string]any
}

// ScrapeOptions are passed through to the scraper.
type ScrapeOptions struct {
	// MaxAge lets the scraper reuse a cached capture younger than this. Zero
	// forces a live fetch, a negative value leaves the choice to the scraper.
	MaxAge time.Duration
	Schema json.RawMessage
}

// Scraper fetches a rendered page and a schema-driven extraction of it.
type Scraper interface {
	Scrape(ctx context.Context, url string, opts ScrapeOptions) (*Page, error)
}

// CollectOptions control a single collection.
type CollectOptions struct {
	MaxAge time.Duration
}

// Collector wraps a Scraper and normalizes its output.
type Collector struct {
	scraper Scraper
	logger  *zap.Logger
}

func NewCollector(scraper Scraper, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{scraper: scraper, logger: logger}
}

// Collect scrapes url and returns the normalized posting. A partial
// extraction is not an error; only a page with neither extraction nor
// markdown is.
func (c *Collector) Collect(ctx context.Context, url string, opts CollectOptions) (*Job, error) {
	c.logger.Debug("scraping job posting", zap.String("url", url), zap.Duration("max_age", opts.MaxAge))

	page, err := c.scraper.Scrape(ctx, url, ScrapeOptions{MaxAge: opts.MaxAge, Schema: Schema()})
	if err != nil {
		return nil, &CollectionError{URL: url, Message: "scrape failed", Cause: err}
	}

	if page == nil || (page.JSON == nil && strings.TrimSpace(page.Markdown) == "") {
		return nil, &CollectionError{URL: url, Message: "scraper returned neither a structured extraction nor markdown"}
	}

	j, err := c.normalize(url, page)
	if err != nil {
		return nil, &CollectionError{URL: url, Message: "normalize extraction", Cause: err}
	}

	if err := Validate(j); err != nil {
		c.logger.Warn("dropping optional fields that fail the job schema", zap.String("url", url), zap.Error(err))
		j.ExperienceYears = nil
		if err := Validate(j); err != nil {
			c.logger.Warn("discarding job extraction", zap.String("url", url), zap.Error(err))
			j = New(url, j.Text)
		}
	}

	c.logger.Debug("job posting collected",
		zap.String("title", j.Title),
		zap.String("company", j.Company),
		zap.Int("keywords", len(j.Keywords)),
		zap.Int("text_length", len(j.Text)),
	)

	return j, nil
}

func (c *Collector) normalize(url string, page *Page) (*Job, error) {
	j := &Job{}

	if page.JSON != nil {
		extraction := make(map[string]any, len(page.JSON))
		for k, v := range page.JSON {
			extraction[k] = v
		}
		extraction["experienceYears"] = coerceYears(extraction["experienceYears"])

		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           j,
			TagName:          "json",
			WeaklyTypedInput: true,
		})
		if err != nil {
			return nil, err
		}
		// Fields that decoded cleanly are kept; the rest fall back to defaults.
		if err := decoder.Decode(extraction); err != nil {
			c.logger.Warn("job extraction partially decoded", zap.String("url", url), zap.Error(err))
		}
	}

	j.URL = url
	j.Title = strings.TrimSpace(j.Title)
	if j.Title == "" {
		// The page title is a better guess than a placeholder.
		if title, ok := page.Metadata["title"].(string); ok {
			j.Title = strings.TrimSpace(title)
		}
	}
	j.Company = strings.TrimSpace(j.Company)
	j.Text = strings.TrimSpace(page.Markdown)
	if j.Text == "" && page.JSON != nil {
		pretty, err := json.MarshalIndent(page.JSON, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode extraction: %w", err)
		}
		j.Text = string(pretty)
	}

	j.applyDefaults()
	return j, nil
}

// coerceYears accepts non-negative numbers and strings such as "5+ years";
// anything else, including the -1 models use for "unknown", is dropped.
func coerceYears(v any) any {
	var years float64
	switch val := v.(type) {
	case float64:
		years = val
	case int:
		years = float64(val)
	case int64:
		years = float64(val)
	case string:
		val = strings.TrimSpace(val)
		if strings.HasPrefix(val, "-") {
			return nil
		}
		match := leadingNumber.FindString(val)
		if match == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(match, 64)
		if err != nil {
			return nil
		}
		years = parsed
	default:
		return nil
	}

	if years < 0 {
		return nil
	}
	return years
}

// Validate checks a normalized job against the required-field schema.
func Validate(j *Job) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("load job schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(j))
	if err != nil {
		return fmt.Errorf("validate job: %w", err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
	}
	return errors.New(utils.TruncateForLog(strings.Join(problems, "; "), 500))
}
