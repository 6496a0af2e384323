package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spigell/ats-analyzer/internal/ai"
	"github.com/spigell/ats-analyzer/internal/logger"
	"github.com/spigell/ats-analyzer/internal/pipeline"
	"github.com/spigell/ats-analyzer/internal/render"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const defaultMaxAge = 48 * time.Hour

var analyzeCmd = &cobra.Command{
	Use:   "analyze <resume> <job-url>",
	Short: "Analyze a resume against a job posting",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		analyze(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringP("format", "f", string(render.FormatMarkdown), "output format: markdown, json or xml")
	analyzeCmd.Flags().Duration("max-age", defaultMaxAge, "reuse a cached capture of the posting younger than this, 0 forces a live fetch")
	analyzeCmd.Flags().String("model", "", "model name (default depends on the provider)")
	analyzeCmd.Flags().String("verbosity", "", "answer verbosity: low, medium or high")
	analyzeCmd.Flags().String("reasoning", "", "reasoning effort: none, auto or detailed")
	analyzeCmd.Flags().String("provider", ai.ProviderOpenAI, "AI provider: openai or gemini")
	analyzeCmd.Flags().Int("max-retries", 0, "transport retries per AI call (0 keeps the default)")
	analyzeCmd.Flags().Bool("no-stream", false, "print the result only when the analysis is complete")
	analyzeCmd.Flags().StringP("out", "o", "", "write the result to this file instead of stdout")
	analyzeCmd.Flags().BoolP("interactive", "i", false, "pick the output format interactively")

	viper.BindPFlag("format", analyzeCmd.Flags().Lookup("format"))
	viper.BindPFlag("max-age", analyzeCmd.Flags().Lookup("max-age"))
	viper.BindPFlag("max-retries", analyzeCmd.Flags().Lookup("max-retries"))
	viper.BindPFlag("provider", analyzeCmd.Flags().Lookup("provider"))
	viper.BindPFlag("analysis.model", analyzeCmd.Flags().Lookup("model"))
	viper.BindPFlag("analysis.verbosity", analyzeCmd.Flags().Lookup("verbosity"))
	viper.BindPFlag("analysis.reasoning", analyzeCmd.Flags().Lookup("reasoning"))
}

func analyze(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the ats-analyzer", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if interactive, _ := cmd.Flags().GetBool("interactive"); interactive && !cmd.Flags().Changed("format") {
		format, err := pickFormat()
		if err != nil {
			logger.Fatal("choosing a format", zap.Error(err))
		}
		config.Format = string(format)
	}

	format, err := render.ParseFormat(config.Format)
	if err != nil {
		logger.Fatal("parsing format", zap.Error(err))
	}

	outFile, _ := cmd.Flags().GetString("out")
	noStream, _ := cmd.Flags().GetBool("no-stream")
	// Narrative text goes to stdout while it is generated unless it is
	// written to a file or streaming is off.
	streamText := !noStream && outFile == "" && !format.Structured()

	opts := options(config, logger)

	var result string
	if noStream {
		result, err = pipeline.Analyze(ctx, args[0], args[1], opts)
	} else {
		printer := newPrinter(logger, cmd.OutOrStdout(), cmd.ErrOrStderr(), viper.GetBool("debug"), streamText)
		opts.OnProgress = printer.handle
		result, err = pipeline.AnalyzeStream(ctx, args[0], args[1], opts)
		printer.finish()
	}
	if err != nil {
		logger.Fatal("analysis failed", zap.Error(err))
	}

	if err := writeResult(cmd.OutOrStdout(), outFile, result, streamText); err != nil {
		logger.Fatal("writing the result", zap.Error(err))
	}

	if outFile != "" {
		logger.Info("result saved", zap.String("file", outFile))
	}
}

func options(config *Config, logger *zap.Logger) pipeline.Options {
	opts := pipeline.Options{
		Provider:   config.Provider,
		Format:     config.Format,
		MaxAge:     config.MaxAge,
		MaxRetries: config.MaxRetries,
		Config:     config.Analysis,
		Logger:     logger,
	}

	service := config.OpenAI
	if config.Provider == ai.ProviderGemini {
		service = config.Gemini
	}
	if service != nil {
		opts.AIKey = service.APIKey
		opts.AIKeyFile = service.APIKeyFile
	}
	if config.Provider != ai.ProviderGemini && config.OpenAI != nil {
		opts.OpenAIBaseURL = config.OpenAI.URL
	}

	if config.Firecrawl != nil {
		opts.FirecrawlKey = config.Firecrawl.APIKey
		opts.FirecrawlKeyFile = config.Firecrawl.APIKeyFile
		opts.FirecrawlURL = config.Firecrawl.URL
	}

	return opts
}

func writeResult(stdout io.Writer, outFile, result string, streamed bool) error {
	if outFile != "" {
		return os.WriteFile(outFile, []byte(result+"\n"), 0o644)
	}

	if streamed {
		_, err := fmt.Fprintln(stdout)
		return err
	}

	_, err := fmt.Fprintln(stdout, result)
	return err
}

func pickFormat() (render.Format, error) {
	selector := promptui.Select{
		Label: "Output format",
		Items: render.Formats,
	}

	idx, _, err := selector.Run()
	if err != nil {
		return "", err
	}

	return render.Formats[idx], nil
}

// redacted returns a copy of config that is safe to log.
func redacted(config *Config) *Config {
	out := *config
	for _, svc := range []**ServiceConfig{&out.OpenAI, &out.Gemini, &out.Firecrawl} {
		if *svc == nil || (*svc).APIKey == "" {
			continue
		}
		masked := **svc
		masked.APIKey = "***"
		*svc = &masked
	}
	return &out
}
