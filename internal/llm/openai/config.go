package openai

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/joseph-ayodele/tradedocs/internal/common"
)

// Config for the chat-completions generator.
type Config struct {
	Azure       bool          // use Azure OpenAI routing (Endpoint + APIVersion, Model is the deployment)
	APIKey      string        // required
	Endpoint    string        // Azure resource endpoint
	APIVersion  string        // Azure api-version, default 2024-06-01
	BaseURL     string        // non-Azure override, default https://api.openai.com/v1/
	Model       string        // model or deployment name
	Seed        int64         // fixed sampling seed for reproducible output
	Timeout     time.Duration // per attempt
	MaxAttempts uint          // total attempts including the first, default 3
	RetryDelay  time.Duration // base backoff between attempts
	HTTPClient  *http.Client
}

// ConfigFrom maps application config onto the generator config.
func ConfigFrom(c common.LLMConfig) Config {
	return Config{
		Azure:       c.Provider == "azure",
		APIKey:      c.APIKey,
		Endpoint:    c.Endpoint,
		APIVersion:  c.APIVersion,
		BaseURL:     c.BaseURL,
		Model:       c.ModelName(),
		Seed:        c.Seed,
		Timeout:     c.Timeout,
		MaxAttempts: c.MaxAttempts,
		RetryDelay:  c.RetryDelay,
	}
}

func (cfg Config) withDefaults(logger *slog.Logger) (Config, *slog.Logger) {
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2024-06-01"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return cfg, logger
}
