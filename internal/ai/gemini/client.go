// Package gemini implements ai.Completer with the Google GenAI SDK.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spigell/ats-analyzer/internal/ai"
	"github.com/spigell/ats-analyzer/internal/logger"
	"github.com/spigell/ats-analyzer/internal/utils"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	DefaultModel = "gemini-2.5-flash"

	defaultMaxLogLength = 200
	baseRetryDelay      = 2 * time.Second
	// Quota errors asking to come back later than this are returned as is.
	maxRetryDelay = 30 * time.Second
)

var wait = utils.WaitFor

var retryAfterPattern = regexp.MustCompile(`(?i)retry (?:after|in) (\d+(?:\.\d+)?)\s*(s|sec|secs|second|seconds)\b`)

type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

// Options configures a Generator.
type Options struct {
	APIKey       string
	Model        string
	MaxRetries   int
	MaxLogLength int
	Logger       *zap.Logger
}

// Generator wraps the Google GenAI client.
type Generator struct {
	models     modelsAPI
	model      string
	maxRetries int
	maxLogLen  int
	logger     *zap.Logger
}

// NewGenerator creates a new Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, opts Options) (*Generator, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}

	retries := opts.MaxRetries
	switch {
	case retries == 0:
		retries = ai.DefaultMaxRetries
	case retries < 0:
		retries = 0
	}

	maxLogLen := opts.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	return &Generator{
		models:     client.Models,
		model:      model,
		maxRetries: retries,
		maxLogLen:  maxLogLen,
		logger:     logger.WithCommonFields(opts.Logger, ai.ProviderGemini, model),
	}, nil
}

func (g *Generator) Provider() string {
	return ai.ProviderGemini
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

// GenerateText sends the prompt and returns the answer parts joined together.
func (g *Generator) GenerateText(ctx context.Context, req ai.Request) (string, error) {
	resp, err := g.generate(ctx, req, false)
	if err != nil {
		return "", err
	}

	_, text := splitParts(resp)
	if strings.TrimSpace(text) == "" {
		return "", errors.New("gemini api returned empty response")
	}
	return text, nil
}

// GenerateObject sends the prompt in JSON mode and returns the document.
func (g *Generator) GenerateObject(ctx context.Context, req ai.Request) (json.RawMessage, error) {
	resp, err := g.generate(ctx, req, true)
	if err != nil {
		return nil, err
	}

	_, text := splitParts(resp)
	cleaned := ai.CleanJSONBlock(text)
	if !json.Valid([]byte(cleaned)) {
		return nil, fmt.Errorf("gemini returned invalid json: %s", utils.TruncateForLog(text, g.maxLogLen))
	}
	return json.RawMessage(cleaned), nil
}

// StreamText yields thought parts as reasoning deltas and the rest as answer deltas.
func (g *Generator) StreamText(ctx context.Context, req ai.Request) iter.Seq2[ai.Delta, error] {
	return g.stream(ctx, req, false)
}

// StreamObject streams a JSON answer as progressively completed snapshots.
func (g *Generator) StreamObject(ctx context.Context, req ai.Request) iter.Seq2[ai.Partial, error] {
	deltas := g.stream(ctx, req, true)

	text := func(yield func(string, error) bool) {
		for d, err := range deltas {
			if err != nil {
				yield("", err)
				return
			}
			if d.Kind != ai.DeltaText {
				continue
			}
			if !yield(d.Text, nil) {
				return
			}
		}
	}

	return ai.ObjectStream(text)
}

func (g *Generator) generate(ctx context.Context, req ai.Request, object bool) (*genai.GenerateContentResponse, error) {
	if g == nil || g.models == nil {
		return nil, errors.New("gemini generator is not initialized")
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, errors.New("prompt must not be empty")
	}

	model := g.modelFor(req)
	cfg := g.config(req, object)
	log := g.logger.With(zap.String(logger.FieldModel, model))

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		log.Debug("sending generate content request",
			zap.Int("attempt", attempt+1),
			zap.String("prompt", utils.TruncateForLog(prompt, g.maxLogLen)),
		)

		resp, err := g.models.GenerateContent(ctx, model, genai.Text(prompt), cfg)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		delay, retry := g.retryDelay(err, attempt)
		if !retry {
			break
		}
		log.Warn("gemini request failed, retrying", zap.Error(err), zap.Duration("delay", delay))
		if err := wait(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("generate content: %w", lastErr)
}

func (g *Generator) stream(ctx context.Context, req ai.Request, object bool) iter.Seq2[ai.Delta, error] {
	return func(yield func(ai.Delta, error) bool) {
		if g == nil || g.models == nil {
			yield(ai.Delta{}, errors.New("gemini generator is not initialized"))
			return
		}

		model := g.modelFor(req)
		cfg := g.config(req, object)
		log := g.logger.With(zap.String(logger.FieldModel, model))

		for attempt := 0; ; attempt++ {
			log.Debug("opening generate content stream",
				zap.Int("attempt", attempt+1),
				zap.String("prompt", utils.TruncateForLog(req.Prompt, g.maxLogLen)),
			)

			delivered := false
			var streamErr error
			for resp, err := range g.models.GenerateContentStream(ctx, model, genai.Text(req.Prompt), cfg) {
				if err != nil {
					streamErr = err
					break
				}
				for _, d := range deltas(resp) {
					delivered = true
					if !yield(d, nil) {
						return
					}
				}
			}

			if streamErr == nil {
				return
			}

			// Replaying a stream after deltas reached the consumer would duplicate them.
			delay, retry := g.retryDelay(streamErr, attempt)
			if delivered || !retry {
				yield(ai.Delta{}, fmt.Errorf("generate content stream: %w", streamErr))
				return
			}

			log.Warn("gemini stream failed before first chunk, retrying", zap.Error(streamErr), zap.Duration("delay", delay))
			if err := wait(ctx, delay); err != nil {
				yield(ai.Delta{}, err)
				return
			}
		}
	}
}

func (g *Generator) modelFor(req ai.Request) string {
	if model := strings.TrimSpace(req.Model); model != "" {
		return model
	}
	return g.model
}

func (g *Generator) config(req ai.Request, object bool) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}

	if system := strings.TrimSpace(req.System); system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}

	if object {
		cfg.ResponseMIMEType = "application/json"
		if schema := g.responseSchema(req.Schema); schema != nil {
			cfg.ResponseJsonSchema = schema
		}
	}

	switch req.Reasoning {
	case "", "none":
		if strings.Contains(g.modelFor(req), "flash") {
			cfg.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](0)}
		}
	default:
		cfg.ThinkingConfig = &genai.ThinkingConfig{IncludeThoughts: true}
	}

	return cfg
}

// responseSchema decodes the object schema for the API. The meta-schema
// keyword is not accepted there and is removed.
func (g *Generator) responseSchema(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return nil
	}

	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		g.logger.Warn("ignoring invalid response schema", zap.Error(err))
		return nil
	}
	delete(schema, "$schema")

	return schema
}

// retryDelay reports whether err is worth another attempt and how long to
// wait before it.
func (g *Generator) retryDelay(err error, attempt int) (time.Duration, bool) {
	if attempt >= g.maxRetries {
		return 0, false
	}

	apiErr, ok := asAPIError(err)
	if !ok {
		return 0, false
	}

	delay := baseRetryDelay << attempt

	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		if requested, found := parseRetryAfter(apiErr.Message); found {
			if requested > maxRetryDelay {
				return 0, false
			}
			delay = requested
		}
	case apiErr.Code >= http.StatusInternalServerError:
	default:
		return 0, false
	}

	return delay, true
}

func asAPIError(err error) (genai.APIError, bool) {
	var value genai.APIError
	if errors.As(err, &value) {
		return value, true
	}
	var ptr *genai.APIError
	if errors.As(err, &ptr) && ptr != nil {
		return *ptr, true
	}
	return genai.APIError{}, false
}

func parseRetryAfter(message string) (time.Duration, bool) {
	match := retryAfterPattern.FindStringSubmatch(message)
	if match == nil {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(seconds * float64(time.Second)), true
}

// deltas converts the first candidate of a response into stream deltas.
func deltas(resp *genai.GenerateContentResponse) []ai.Delta {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}

	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return nil
	}

	var out []ai.Delta
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Text == "" {
			continue
		}
		kind := ai.DeltaText
		if part.Thought {
			kind = ai.DeltaReasoning
		}
		out = append(out, ai.Delta{Kind: kind, Text: part.Text})
	}
	return out
}

func splitParts(resp *genai.GenerateContentResponse) (thoughts, text string) {
	var tb, ab strings.Builder
	for _, d := range deltas(resp) {
		if d.Kind == ai.DeltaReasoning {
			tb.WriteString(d.Text)
			continue
		}
		ab.WriteString(d.Text)
	}
	return tb.String(), ab.String()
}
