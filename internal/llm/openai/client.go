package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	oai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/azure"
	"github.com/openai/openai-go/v3/option"

	"github.com/joseph-ayodele/tradedocs/internal/common"
)

var errNoChoices = errors.New("no choices in chat completion")

// Generator implements llm.Generator over chat completions at temperature 0.
type Generator struct {
	cfg    Config
	client oai.Client
	logger *slog.Logger
}

func NewGenerator(cfg Config, logger *slog.Logger) (*Generator, error) {
	cfg, logger = cfg.withDefaults(logger)
	if cfg.APIKey == "" {
		return nil, common.NewAppError(common.CodeConfig, "llm api key is required", common.ErrInvalidInput)
	}

	// retries are driven by retry-go so each attempt is logged
	opts := []option.RequestOption{
		option.WithHTTPClient(cfg.HTTPClient),
		option.WithMaxRetries(0),
	}
	if cfg.Azure {
		if cfg.Endpoint == "" {
			return nil, common.NewAppError(common.CodeConfig, "azure endpoint is required", common.ErrInvalidInput)
		}
		opts = append(opts,
			azure.WithEndpoint(cfg.Endpoint, cfg.APIVersion),
			azure.WithAPIKey(cfg.APIKey),
		)
	} else {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
		if cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		}
	}

	return &Generator{
		cfg:    cfg,
		client: oai.NewClient(opts...),
		logger: logger,
	}, nil
}

// Generate sends one system and one user message and returns the first
// choice's content verbatim.
func (g *Generator) Generate(ctx context.Context, system, user string) (string, error) {
	rid := uuid.New().String()
	start := time.Now()
	log := common.LoggerFrom(ctx, g.logger).With("req_id", rid, "model", g.cfg.Model)

	log.Debug("llm.generate.start",
		"system_len", len(system),
		"user_len", len(user),
	)

	params := oai.ChatCompletionNewParams{
		Model: oai.ChatModel(g.cfg.Model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(system),
			oai.UserMessage(user),
		},
		Temperature: oai.Float(0),
		Seed:        oai.Int(g.cfg.Seed),
	}

	var content string
	err := retry.Do(
		func() error {
			callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
			defer cancel()

			resp, err := g.client.Chat.Completions.New(callCtx, params)
			if err != nil {
				return err
			}
			if len(resp.Choices) == 0 {
				return retry.Unrecoverable(errNoChoices)
			}
			choice := resp.Choices[0]
			if choice.FinishReason == "length" {
				log.Warn("llm.generate.truncated", "completion_tokens", resp.Usage.CompletionTokens)
			}
			content = choice.Message.Content
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(g.cfg.MaxAttempts),
		retry.Delay(g.cfg.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(isRetryable),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warn("llm.generate.retry", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		log.Error("llm.generate.failed",
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", fmt.Errorf("chat completion: %w", err)
	}

	log.Info("llm.generate.ok",
		"content_len", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}

// isRetryable treats throttling, server errors and transport failures as
// transient. Other API errors are final.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *oai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return true
}
