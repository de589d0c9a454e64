// Package config collects server settings from viper and validates them.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds the settings of the serve command.
type Config struct {
	Addr    string `mapstructure:"addr" validate:"required"`
	DB      string `mapstructure:"db" validate:"required"`
	Lang    string `mapstructure:"lang" validate:"required,oneof=tr en"`
	Catalog string `mapstructure:"catalog"`

	Provider string `mapstructure:"provider" validate:"required,oneof=openai gemini anthropic mock"`
	LLMURL   string `mapstructure:"llm-url" validate:"omitempty,url"`
	LLMKey   string `mapstructure:"llm-key"`
	LLMModel string `mapstructure:"llm-model" validate:"required_unless=Provider mock"`

	BatchSize  int           `mapstructure:"batch-size" validate:"gt=0,lte=50"`
	Target     int           `mapstructure:"target" validate:"gte=0"`
	BatchPace  time.Duration `mapstructure:"batch-pace" validate:"gte=0"`
	MaxRetries int           `mapstructure:"max-retries" validate:"gte=0,lte=10"`
	RetryStep  time.Duration `mapstructure:"retry-step" validate:"gt=0"`
	MockDelay  time.Duration `mapstructure:"mock-delay" validate:"gte=0"`

	CORSOrigins []string `mapstructure:"cors-origins" validate:"dive,required"`

	LogLevel  string `mapstructure:"log-level" validate:"oneof=debug info warn error"`
	LogFormat string `mapstructure:"log-format" validate:"oneof=text json"`
}

// FromViper reads every setting from v.
func FromViper(v *viper.Viper) Config {
	return Config{
		Addr:        v.GetString("addr"),
		DB:          v.GetString("db"),
		Lang:        v.GetString("lang"),
		Catalog:     v.GetString("catalog"),
		Provider:    strings.ToLower(v.GetString("provider")),
		LLMURL:      v.GetString("llm-url"),
		LLMKey:      v.GetString("llm-key"),
		LLMModel:    v.GetString("llm-model"),
		BatchSize:   v.GetInt("batch-size"),
		Target:      v.GetInt("target"),
		BatchPace:   v.GetDuration("batch-pace"),
		MaxRetries:  v.GetInt("max-retries"),
		RetryStep:   v.GetDuration("retry-step"),
		MockDelay:   v.GetDuration("mock-delay"),
		CORSOrigins: v.GetStringSlice("cors-origins"),
		LogLevel:    v.GetString("log-level"),
		LogFormat:   v.GetString("log-format"),
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the rules that span fields.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Target > 0 && c.Target < c.BatchSize {
		return fmt.Errorf("invalid configuration: target %d is smaller than batch size %d", c.Target, c.BatchSize)
	}
	if (c.Provider == "gemini" || c.Provider == "anthropic") && c.LLMKey == "" {
		return fmt.Errorf("invalid configuration: provider %s needs an API key", c.Provider)
	}
	return nil
}
