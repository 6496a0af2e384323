package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/spigell/ats-analyzer/internal/analysis"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "ats-analyzer"
)

type Config struct {
	Provider   string          `mapstructure:"provider"`
	Format     string          `mapstructure:"format"`
	MaxAge     time.Duration   `mapstructure:"max-age"`
	MaxRetries int             `mapstructure:"max-retries"`
	Analysis   analysis.Config `mapstructure:"analysis"`
	OpenAI     *ServiceConfig  `mapstructure:"openai"`
	Gemini     *ServiceConfig  `mapstructure:"gemini"`
	Firecrawl  *ServiceConfig  `mapstructure:"firecrawl"`
}

// ServiceConfig holds the credential and endpoint of one remote service.
type ServiceConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	URL        string `mapstructure:"url"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "ats-analyzer scores a resume against a job posting the way an applicant tracking system would",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is ats-analyzer.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	if analyzeCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The default config file is optional, an explicit one is not.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}

	return config, nil
}
