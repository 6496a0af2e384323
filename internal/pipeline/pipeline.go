// Package pipeline sequences one resume analysis: ingest the resume, collect
// the posting, run the engine and render the result.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/spigell/ats-analyzer/internal/ai"
	"github.com/spigell/ats-analyzer/internal/ai/gemini"
	"github.com/spigell/ats-analyzer/internal/ai/openai"
	"github.com/spigell/ats-analyzer/internal/analysis"
	"github.com/spigell/ats-analyzer/internal/job"
	"github.com/spigell/ats-analyzer/internal/logger"
	"github.com/spigell/ats-analyzer/internal/progress"
	"github.com/spigell/ats-analyzer/internal/prompt"
	"github.com/spigell/ats-analyzer/internal/render"
	"github.com/spigell/ats-analyzer/internal/resume"
	"github.com/spigell/ats-analyzer/internal/secrets"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvGeminiKey    = "GEMINI_API_KEY"
	EnvFirecrawlKey = "FIRECRAWL_API_KEY"
)

// Options configure one invocation. Injected collaborators (Converter,
// Scraper, Completer) replace the default ones and need no credentials.
type Options struct {
	FirecrawlKey     string
	FirecrawlKeyFile string
	AIKey            string
	AIKeyFile        string

	// Provider is openai (default) or gemini.
	Provider string
	// Format is markdown (default), json or xml.
	Format string
	// MaxAge lets the scraper reuse a capture younger than this. Zero
	// forces a live fetch.
	MaxAge time.Duration
	Config analysis.Config

	// OnProgress receives phase events. Only AnalyzeStream calls it.
	OnProgress progress.Callback

	// Env is the environment snapshot credentials are resolved from. The
	// process environment is used when nil.
	Env    secrets.Env
	Logger *zap.Logger

	MaxRetries    int
	OpenAIBaseURL string
	FirecrawlURL  string

	Converter resume.Converter
	Scraper   job.Scraper
	Completer ai.Completer
}

type input struct {
	ResumePath string `validate:"required"`
	JobURL     string `validate:"required,http_url"`
	Provider   string `validate:"oneof=openai gemini"`
}

var validate = validator.New()

// invocation is everything resolved before the first I/O.
type invocation struct {
	resumePath string
	jobURL     string
	format     render.Format
	config     analysis.Config
	maxAge     time.Duration
	converter  resume.Converter
	scraper    job.Scraper
	completer  ai.Completer
	logger     *zap.Logger
}

// Analyze runs the analysis without progress events.
func Analyze(ctx context.Context, resumePath, jobURL string, opts Options) (string, error) {
	opts.OnProgress = nil
	return run(ctx, resumePath, jobURL, opts)
}

// AnalyzeStream runs the analysis and reports every phase to opts.OnProgress.
func AnalyzeStream(ctx context.Context, resumePath, jobURL string, opts Options) (string, error) {
	return run(ctx, resumePath, jobURL, opts)
}

func run(ctx context.Context, resumePath, jobURL string, opts Options) (string, error) {
	inv, err := prepare(ctx, resumePath, jobURL, opts)
	if err != nil {
		return "", err
	}

	start := time.Now()
	emitter := progress.NewEmitter(opts.OnProgress)

	out, err := execute(ctx, inv, emitter)
	if err != nil {
		inv.logger.Warn("analysis failed", zap.String(logger.FieldPhase, string(emitter.Phase())), zap.Error(err))
		return "", err
	}
	inv.logger.Info("analysis finished", zap.Duration("took", time.Since(start)))

	return out, nil
}

// execute walks the phases in order. Every error leaves the emitter at the
// last phase that was reached.
func execute(ctx context.Context, inv *invocation, emitter *progress.Emitter) (string, error) {
	log := inv.logger

	if err := emitter.Emit(progress.Update{Phase: progress.Parsing}); err != nil {
		return "", err
	}
	res, err := resume.Ingest(ctx, inv.resumePath, inv.converter)
	if err != nil {
		return "", err
	}
	log.Info("resume parsed", zap.Int("length", len(res.Text)), zap.Bool("has_email", res.Email != ""))
	if err := emitter.Emit(progress.Update{Phase: progress.Parsed, Data: progress.Contact{Name: res.Name, Email: res.Email}}); err != nil {
		return "", err
	}

	if err := emitter.Emit(progress.Update{Phase: progress.Scraping}); err != nil {
		return "", err
	}
	posting, err := job.NewCollector(inv.scraper, log).Collect(ctx, inv.jobURL, job.CollectOptions{MaxAge: inv.maxAge})
	if err != nil {
		return "", err
	}
	log.Info("job posting collected", zap.String("title", posting.Title), zap.String("company", posting.Company))
	if err := emitter.Emit(progress.Update{Phase: progress.Scraped, Data: progress.Posting{Title: posting.Title, Company: posting.Company}}); err != nil {
		return "", err
	}

	var mode analysis.Mode
	if inv.format.Structured() {
		mode = analysis.Structured{Prompt: prompt.Scoring(res.Text, posting)}
	} else {
		mode = analysis.Narrative{Prompt: prompt.Reasoning(res.Text, posting), Reasoning: inv.config.ShowReasoning()}
	}

	result, err := analysis.New(inv.completer, inv.config, log).Run(ctx, mode, emitter)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("analysis cancelled: %w", err)
	}

	out := result.Text
	var final any
	if inv.format.Structured() {
		out, err = render.Render(result.Score, inv.format)
		if err != nil {
			return "", err
		}
		final = result.Score
	}

	if err := emitter.Emit(progress.Update{Phase: progress.Complete, Data: final}); err != nil {
		return "", err
	}

	return out, nil
}

// prepare checks every precondition and builds the collaborators. It does no
// network or file I/O apart from reading credential files.
func prepare(ctx context.Context, resumePath, jobURL string, opts Options) (*invocation, error) {
	provider := opts.Provider
	if provider == "" {
		provider = ai.ProviderOpenAI
	}

	if err := validate.Struct(input{ResumePath: resumePath, JobURL: jobURL, Provider: provider}); err != nil {
		return nil, &PreconditionError{Message: "invalid input", Cause: err}
	}

	format, err := render.ParseFormat(opts.Format)
	if err != nil {
		return nil, &PreconditionError{Message: "invalid format", Cause: err}
	}

	defaultModel := openai.DefaultModel
	if provider == ai.ProviderGemini {
		defaultModel = gemini.DefaultModel
	}
	cfg := opts.Config.WithDefaults(defaultModel)
	if err := cfg.Validate(); err != nil {
		return nil, &PreconditionError{Message: "invalid config", Cause: err}
	}

	env := opts.Env
	if env == nil {
		env = secrets.Environ()
	}

	log := logger.WithFields(opts.Logger, logger.InvocationFields(uuid.NewString(), string(format))...)

	inv := &invocation{
		resumePath: resumePath,
		jobURL:     jobURL,
		format:     format,
		config:     cfg,
		maxAge:     opts.MaxAge,
		converter:  opts.Converter,
		scraper:    opts.Scraper,
		completer:  opts.Completer,
		logger:     log,
	}

	if inv.completer == nil {
		completer, err := newCompleter(ctx, provider, cfg, opts, env, log)
		if err != nil {
			return nil, err
		}
		inv.completer = completer
	}

	if inv.scraper == nil {
		key, err := secrets.Resolve(secrets.Source{
			Name:    "firecrawl api key",
			Value:   opts.FirecrawlKey,
			File:    opts.FirecrawlKeyFile,
			EnvKeys: []string{EnvFirecrawlKey},
		}, env)
		if err != nil {
			return nil, &PreconditionError{Message: "missing scraping credential", Cause: err}
		}

		firecrawl := job.NewFirecrawl(key, log)
		if opts.FirecrawlURL != "" {
			firecrawl.APIURL = opts.FirecrawlURL
		}
		inv.scraper = firecrawl
	}

	return inv, nil
}

func newCompleter(ctx context.Context, provider string, cfg analysis.Config, opts Options, env secrets.Env, log *zap.Logger) (ai.Completer, error) {
	envKey := EnvOpenAIKey
	if provider == ai.ProviderGemini {
		envKey = EnvGeminiKey
	}

	key, err := secrets.Resolve(secrets.Source{
		Name:    provider + " api key",
		Value:   opts.AIKey,
		File:    opts.AIKeyFile,
		EnvKeys: []string{envKey},
	}, env)
	if err != nil {
		return nil, &PreconditionError{Message: "missing AI credential", Cause: err}
	}

	switch provider {
	case ai.ProviderGemini:
		generator, err := gemini.NewGenerator(ctx, gemini.Options{
			APIKey:     key,
			Model:      cfg.Model,
			MaxRetries: opts.MaxRetries,
			Logger:     log,
		})
		if err != nil {
			return nil, &PreconditionError{Message: "create gemini client", Cause: err}
		}
		return generator, nil
	default:
		client, err := openai.New(openai.Options{
			APIKey:     key,
			BaseURL:    opts.OpenAIBaseURL,
			Model:      cfg.Model,
			MaxRetries: opts.MaxRetries,
			Logger:     log,
		})
		if err != nil {
			return nil, &PreconditionError{Message: "create openai client", Cause: err}
		}
		return client, nil
	}
}
