package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Addr:       ":8080",
		DB:         "kpss.db",
		Lang:       "tr",
		Provider:   "openai",
		LLMURL:     "http://localhost:11434/v1",
		LLMKey:     "ollama",
		LLMModel:   "qwen2.5:14b",
		BatchSize:  20,
		BatchPace:  time.Second,
		MaxRetries: 3,
		RetryStep:  time.Second,
		LogLevel:   "info",
		LogFormat:  "text",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"mock needs no model", func(c *Config) { c.Provider = "mock"; c.LLMModel = "" }, ""},
		{"target equal to batch", func(c *Config) { c.Target = 20 }, ""},
		{"unknown provider", func(c *Config) { c.Provider = "cohere" }, "Provider"},
		{"missing model", func(c *Config) { c.LLMModel = "" }, "LLMModel"},
		{"bad url", func(c *Config) { c.LLMURL = "not a url" }, "LLMURL"},
		{"zero batch", func(c *Config) { c.BatchSize = 0 }, "BatchSize"},
		{"target below batch", func(c *Config) { c.Target = 10 }, "smaller than batch size"},
		{"too many retries", func(c *Config) { c.MaxRetries = 11 }, "MaxRetries"},
		{"unsupported language", func(c *Config) { c.Lang = "ru" }, "Lang"},
		{"gemini without key", func(c *Config) { c.Provider = "gemini"; c.LLMKey = "" }, "needs an API key"},
		{"empty cors origin", func(c *Config) { c.CORSOrigins = []string{""} }, "CORSOrigins"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "LogFormat"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFromViper(t *testing.T) {
	v := viper.New()
	v.Set("addr", ":9000")
	v.Set("provider", "Gemini")
	v.Set("batch-size", 10)
	v.Set("batch-pace", "250ms")
	v.Set("cors-origins", []string{"http://localhost:5173"})

	c := FromViper(v)
	assert.Equal(t, ":9000", c.Addr)
	assert.Equal(t, "gemini", c.Provider)
	assert.Equal(t, 10, c.BatchSize)
	assert.Equal(t, 250*time.Millisecond, c.BatchPace)
	assert.Equal(t, []string{"http://localhost:5173"}, c.CORSOrigins)
}
