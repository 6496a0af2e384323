// Package openai implements ai.Completer on top of the OpenAI chat
// completions API. Any OpenAI-compatible endpoint works through BaseURL.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"strings"

	"github.com/spigell/ats-analyzer/internal/ai"
	"github.com/spigell/ats-analyzer/internal/logger"
	"github.com/spigell/ats-analyzer/internal/utils"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
)

const (
	DefaultModel        = "gpt-5-mini"
	defaultMaxLogLength = 200
)

// Options configures a Client.
type Options struct {
	APIKey       string
	BaseURL      string
	Model        string
	MaxRetries   int
	MaxLogLength int
	HTTPClient   *http.Client
	Logger       *zap.Logger
}

// Client talks to the chat completions endpoint.
type Client struct {
	client    *oai.Client
	model     string
	logger    *zap.Logger
	maxLogLen int
}

// streamDelta mirrors the delta object of a chunk. Reasoning models served
// through compatible gateways put their thinking into reasoning_content or
// reasoning, which the typed SDK struct does not expose.
type streamDelta struct {
	Content          string `json:"content"`
	ReasoningContent string `json:"reasoning_content"`
	Reasoning        string `json:"reasoning"`
}

// New creates a Client. MaxRetries below zero disables transport retries,
// zero selects ai.DefaultMaxRetries.
func New(opts Options) (*Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	retries := opts.MaxRetries
	switch {
	case retries == 0:
		retries = ai.DefaultMaxRetries
	case retries < 0:
		retries = 0
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(retries),
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		reqOpts = append(reqOpts, option.WithBaseURL(base))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}

	maxLogLen := opts.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	return &Client{
		client:    oai.NewClient(reqOpts...),
		model:     model,
		logger:    logger.WithCommonFields(opts.Logger, ai.ProviderOpenAI, model),
		maxLogLen: maxLogLen,
	}, nil
}

func (c *Client) Provider() string {
	return ai.ProviderOpenAI
}

func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

// GenerateText performs a single-shot call and returns the answer text.
func (c *Client) GenerateText(ctx context.Context, req ai.Request) (string, error) {
	return c.complete(ctx, req, false)
}

// GenerateObject performs a single-shot call in JSON mode.
func (c *Client) GenerateObject(ctx context.Context, req ai.Request) (json.RawMessage, error) {
	text, err := c.complete(ctx, req, true)
	if err != nil {
		return nil, err
	}

	cleaned := ai.CleanJSONBlock(text)
	if !json.Valid([]byte(cleaned)) {
		return nil, fmt.Errorf("openai returned invalid json: %s", utils.TruncateForLog(text, c.maxLogLen))
	}
	return json.RawMessage(cleaned), nil
}

// StreamText streams reasoning and answer deltas.
func (c *Client) StreamText(ctx context.Context, req ai.Request) iter.Seq2[ai.Delta, error] {
	return c.stream(ctx, req, false)
}

// StreamObject streams a JSON answer as progressively completed snapshots.
func (c *Client) StreamObject(ctx context.Context, req ai.Request) iter.Seq2[ai.Partial, error] {
	deltas := c.stream(ctx, req, true)

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

func (c *Client) complete(ctx context.Context, req ai.Request, object bool) (string, error) {
	model := c.modelFor(req)
	c.logger.Debug("sending completion request",
		zap.String(logger.FieldModel, model),
		zap.Bool("json", object),
		zap.String("prompt", utils.TruncateForLog(req.Prompt, c.maxLogLen)),
	)

	resp, err := c.client.Chat.Completions.New(ctx, c.params(req), c.requestOptions(req, object)...)
	if err != nil {
		return "", wrapError("chat completion", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}

	output := resp.Choices[0].Message.Content
	if strings.TrimSpace(output) == "" {
		return "", errors.New("openai returned empty response")
	}

	c.logger.Debug("completion received", zap.String("response", utils.TruncateForLog(output, c.maxLogLen)))

	return output, nil
}

func (c *Client) stream(ctx context.Context, req ai.Request, object bool) iter.Seq2[ai.Delta, error] {
	return func(yield func(ai.Delta, error) bool) {
		c.logger.Debug("opening completion stream",
			zap.String(logger.FieldModel, c.modelFor(req)),
			zap.Bool("json", object),
			zap.String("prompt", utils.TruncateForLog(req.Prompt, c.maxLogLen)),
		)

		stream := c.client.Chat.Completions.NewStreaming(ctx, c.params(req), c.requestOptions(req, object)...)
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}

			var delta streamDelta
			if raw := chunk.Choices[0].Delta.JSON.RawJSON(); raw != "" {
				if err := json.Unmarshal([]byte(raw), &delta); err != nil {
					yield(ai.Delta{}, fmt.Errorf("decode stream delta: %w", err))
					return
				}
			}

			if reasoning := delta.ReasoningContent + delta.Reasoning; reasoning != "" {
				if !yield(ai.Delta{Kind: ai.DeltaReasoning, Text: reasoning}, nil) {
					return
				}
			}
			if delta.Content != "" {
				if !yield(ai.Delta{Kind: ai.DeltaText, Text: delta.Content}, nil) {
					return
				}
			}
		}

		if err := stream.Err(); err != nil {
			yield(ai.Delta{}, wrapError("chat completion stream", err))
		}
	}
}

func (c *Client) modelFor(req ai.Request) string {
	if model := strings.TrimSpace(req.Model); model != "" {
		return model
	}
	return c.model
}

func (c *Client) params(req ai.Request) oai.ChatCompletionNewParams {
	messages := make([]oai.ChatCompletionMessageParamUnion, 0, 2)
	if system := strings.TrimSpace(req.System); system != "" {
		messages = append(messages, oai.SystemMessage(system))
	}
	messages = append(messages, oai.UserMessage(req.Prompt))

	return oai.ChatCompletionNewParams{
		Messages: oai.F(messages),
		Model:    oai.F(oai.ChatModel(c.modelFor(req))),
	}
}

// requestOptions sets body fields that only some models accept.
func (c *Client) requestOptions(req ai.Request, object bool) []option.RequestOption {
	model := c.modelFor(req)
	var opts []option.RequestOption

	if supportsReasoningEffort(model) {
		if effort := reasoningEffort(req.Reasoning); effort != "" {
			opts = append(opts, option.WithJSONSet("reasoning_effort", effort))
		}
	}
	if supportsVerbosity(model) && req.Verbosity != "" {
		opts = append(opts, option.WithJSONSet("verbosity", req.Verbosity))
	}

	if object {
		if len(req.Schema) > 0 {
			name := req.SchemaName
			if name == "" {
				name = "result"
			}
			opts = append(opts, option.WithJSONSet("response_format", map[string]any{
				"type": "json_schema",
				"json_schema": map[string]any{
					"name":   name,
					"schema": req.Schema,
					"strict": false,
				},
			}))
		} else {
			opts = append(opts, option.WithJSONSet("response_format", map[string]any{"type": "json_object"}))
		}
	}

	return opts
}

func reasoningEffort(reasoning string) string {
	switch reasoning {
	case "none":
		return "minimal"
	case "detailed":
		return "high"
	default:
		return ""
	}
}

func supportsReasoningEffort(model string) bool {
	return strings.HasPrefix(model, "gpt-5") || strings.HasPrefix(model, "o1") ||
		strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4")
}

func supportsVerbosity(model string) bool {
	return strings.HasPrefix(model, "gpt-5")
}

func wrapError(op string, err error) error {
	var apiErr *oai.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: status %d: %w", op, apiErr.StatusCode, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
