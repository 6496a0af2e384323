// Package analysis runs the AI generation for one invocation and turns its
// stream into progress events.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/ats-analyzer/internal/ai"
	"github.com/spigell/ats-analyzer/internal/logger"
	"github.com/spigell/ats-analyzer/internal/progress"
	"github.com/spigell/ats-analyzer/internal/prompt"
	"github.com/spigell/ats-analyzer/internal/score"
	"github.com/spigell/ats-analyzer/internal/utils"

	"go.uber.org/zap"
)

const (
	modeNarrative  = "narrative"
	modeStructured = "structured"

	scoreSchemaName = "ats_score"
	maxLogLength    = 200
)

var errEmptyAnswer = errors.New("model returned an empty answer")

// Mode selects how the analysis is generated. It is either Narrative or
// Structured.
type Mode interface {
	mode() string
}

// Narrative streams a Markdown report.
type Narrative struct {
	Prompt string
	// Reasoning forwards reasoning deltas to the observer.
	Reasoning bool
}

// Structured streams a Score document.
type Structured struct {
	Prompt string
}

func (Narrative) mode() string  { return modeNarrative }
func (Structured) mode() string { return modeStructured }

// Result holds Text for Narrative runs and Score for Structured runs.
type Result struct {
	Text  string
	Score *score.Score
}

type Engine struct {
	completer ai.Completer
	config    Config
	logger    *zap.Logger
}

func New(completer ai.Completer, config Config, log *zap.Logger) *Engine {
	return &Engine{
		completer: completer,
		config:    config,
		logger:    logger.WithCommonFields(log, completer.Provider(), config.Model),
	}
}

// Run generates the analysis. It never emits the complete phase; that is
// left to the caller once the result is rendered.
func (e *Engine) Run(ctx context.Context, mode Mode, emitter *progress.Emitter) (*Result, error) {
	log := e.logger.With(zap.String(logger.FieldPhase, mode.mode()))

	switch m := mode.(type) {
	case Narrative:
		log.Debug("prompt", zap.String("text", utils.TruncateForLog(m.Prompt, maxLogLength)))
		return e.narrative(ctx, m, emitter, log)
	case Structured:
		log.Debug("prompt", zap.String("text", utils.TruncateForLog(m.Prompt, maxLogLength)))
		return e.structured(ctx, m, emitter, log)
	default:
		return nil, fmt.Errorf("unknown analysis mode %T", mode)
	}
}

func (e *Engine) request(system, text string) ai.Request {
	return ai.Request{
		System:    system,
		Prompt:    text,
		Model:     e.config.Model,
		Verbosity: e.config.Verbosity,
		Reasoning: e.config.Reasoning,
	}
}

func (e *Engine) narrative(ctx context.Context, m Narrative, emitter *progress.Emitter, log *zap.Logger) (*Result, error) {
	req := e.request(prompt.SystemReasoning, m.Prompt)

	var (
		text      strings.Builder
		answered  bool
		streamErr error
		deltas    int
	)
	for delta, err := range e.completer.StreamText(ctx, req) {
		if err != nil {
			streamErr = err
			break
		}
		if delta.Text == "" {
			continue
		}
		deltas++

		switch delta.Kind {
		case ai.DeltaReasoning:
			if !m.Reasoning {
				continue
			}
			if err := emitter.Emit(progress.Update{Phase: progress.Reasoning, Data: progress.Text{Text: delta.Text}}); err != nil {
				return nil, err
			}
		case ai.DeltaText:
			text.WriteString(delta.Text)
			answered = true
			if err := emitter.Emit(progress.Update{Phase: progress.Generating, Data: progress.Text{Text: delta.Text}}); err != nil {
				return nil, err
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s analysis cancelled: %w", modeNarrative, err)
	}

	if streamErr == nil && answered {
		log.Debug("stream finished", zap.Int("deltas", deltas), zap.Int("length", text.Len()))
		return &Result{Text: text.String()}, nil
	}
	if streamErr == nil {
		streamErr = errEmptyAnswer
	}
	if answered {
		return nil, &AnalysisError{Mode: modeNarrative, Message: "stream failed after answer text was delivered", Cause: streamErr}
	}

	log.Warn("text stream failed, falling back to a single request", zap.Error(streamErr))

	answer, err := e.completer.GenerateText(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s analysis cancelled: %w", modeNarrative, ctxErr)
		}
		return nil, &AnalysisError{Mode: modeNarrative, Message: "fallback request failed", Cause: err}
	}
	if answer == "" {
		return nil, &AnalysisError{Mode: modeNarrative, Message: "fallback request failed", Cause: errEmptyAnswer}
	}

	if err := emitter.Emit(progress.Update{Phase: progress.Generating, Data: progress.Text{Text: answer}}); err != nil {
		return nil, err
	}

	return &Result{Text: answer}, nil
}

func (e *Engine) structured(ctx context.Context, m Structured, emitter *progress.Emitter, log *zap.Logger) (*Result, error) {
	if err := emitter.Emit(progress.Update{Phase: progress.Analyzing}); err != nil {
		return nil, err
	}

	req := e.request(prompt.SystemScoring, m.Prompt)
	req.Schema = score.Schema()
	req.SchemaName = scoreSchemaName

	s, err := e.streamScore(ctx, req, emitter, log)
	if err == nil {
		return &Result{Score: s}, nil
	}
	if errors.Is(err, progress.ErrIllegalTransition) {
		return nil, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%s analysis cancelled: %w", modeStructured, ctxErr)
	}

	log.Warn("object stream failed, falling back to a single request", zap.Error(err))

	raw, err := e.completer.GenerateObject(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s analysis cancelled: %w", modeStructured, ctxErr)
		}
		return nil, &AnalysisError{Mode: modeStructured, Message: "fallback request failed", Cause: err}
	}
	log.Debug("fallback response", zap.String("text", utils.TruncateForLog(string(raw), maxLogLength)))

	s, err = score.Parse(raw)
	if err != nil {
		return nil, &AnalysisError{Mode: modeStructured, Message: "fallback returned an invalid score", Cause: err}
	}

	return &Result{Score: s}, nil
}

// streamScore emits every decodable partial and parses the final snapshot.
func (e *Engine) streamScore(ctx context.Context, req ai.Request, emitter *progress.Emitter, log *zap.Logger) (*score.Score, error) {
	partials := 0
	for partial, err := range e.completer.StreamObject(ctx, req) {
		if err != nil {
			return nil, err
		}

		if partial.Final {
			log.Debug("object stream finished", zap.Int("partials", partials))
			return score.Parse(partial.JSON)
		}

		s, err := score.DecodePartial(partial.JSON)
		if err != nil {
			log.Debug("skip undecodable partial", zap.Error(err))
			continue
		}
		partials++
		if err := emitter.Emit(progress.Update{Phase: progress.Scoring, Data: s}); err != nil {
			return nil, err
		}
	}

	return nil, ai.ErrIncompleteObject
}
