// Package ollama adapts a local Ollama server to the pipeline's Oracle
// port. Calls are rate limited, retried on rate-limit rejections, and run
// through a circuit breaker so a dead oracle degrades the pipeline into
// its deterministic fallbacks instead of stalling it.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/prismintel/finpipe/internal/infrastructure/resilience"
)

type Config struct {
	BaseURL      string
	Model        string
	Timeout      time.Duration
	RateLimitRPS float64
}

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
	executor   *resilience.Executor
}

func New(cfg Config, executor *resilience.Executor) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 2
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		executor:   executor,
	}
}

// ClassifyOrMap sends one prompt and returns the raw model text. The
// prompt always demands JSON; parsing and schema validation stay with the
// caller so a malformed answer is a fallback signal, not a transport
// error.
func (c *Client) ClassifyOrMap(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("oracle rate limiter: %w", err)
	}

	var response string
	err := c.executor.Execute(ctx, "oracle_generate", func(ctx context.Context) error {
		text, err := c.generate(ctx, prompt)
		if err != nil {
			return err
		}
		response = text
		return nil
	}, classifyOracleError)
	if err != nil {
		return "", wrapOracleError("oracle generate", err)
	}
	return response, nil
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	request := map[string]any{
		"model":  c.model,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}
	var response struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/api/generate", request, &response, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}
