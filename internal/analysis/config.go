package analysis

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultVerbosity = "low"
	DefaultReasoning = "none"

	ReasoningNone = "none"
)

// Config tunes the AI request. It is merged over the defaults once per
// invocation and not changed afterwards.
type Config struct {
	Model     string `json:"model" mapstructure:"model" validate:"required"`
	Verbosity string `json:"verbosity" mapstructure:"verbosity" validate:"oneof=low medium high"`
	Reasoning string `json:"reasoning" mapstructure:"reasoning" validate:"oneof=none auto detailed"`
}

var validate = validator.New()

// WithDefaults fills every empty field. model is the provider default.
func (c Config) WithDefaults(model string) Config {
	if c.Model == "" {
		c.Model = model
	}
	if c.Verbosity == "" {
		c.Verbosity = DefaultVerbosity
	}
	if c.Reasoning == "" {
		c.Reasoning = DefaultReasoning
	}
	return c
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid analysis config: %w", err)
	}
	return nil
}

// ShowReasoning reports whether reasoning deltas reach the observer.
func (c Config) ShowReasoning() bool {
	return c.Reasoning != ReasoningNone
}
