// Package llm talks to a local text-generation server (Ollama or an OpenAI-compatible
// endpoint such as LM Studio) on behalf of council members.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"

	"councilofbots.ai/internal/sim/event"
	"councilofbots.ai/internal/sim/galaxy"
	"councilofbots.ai/internal/sim/tuning"
)

var (
	ErrNoJSON          = errors.New("llm: no json object in response")
	ErrBadChoice       = errors.New("llm: malformed choice")
	ErrUnknownProvider = errors.New("llm: unknown provider")
	ErrRejected        = errors.New("llm: request rejected")
)

type Provider string

const (
	ProviderOllama   Provider = "ollama"
	ProviderLMStudio Provider = "lmstudio"
)

func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ollama":
		return ProviderOllama, nil
	case "lmstudio", "lm-studio", "lm_studio":
		return ProviderLMStudio, nil
	}
	return "", fmt.Errorf("%w %q (use ollama or lmstudio)", ErrUnknownProvider, s)
}

type Config struct {
	Provider Provider
	// Endpoint is host[:port] for Ollama and the API base URL for LM Studio.
	Endpoint string
	Model    string
	APIKey   string

	Timeout         time.Duration
	MaxAttempts     int
	RetryDelay      time.Duration
	BreakerFailures int
	BreakerCooldown time.Duration

	HTTPClient *http.Client
}

// ConfigFromTuning picks the endpoint and model for the configured provider. LM Studio
// falls back to the Ollama model name when no model is given.
func ConfigFromTuning(t tuning.LLM) (Config, error) {
	p, err := ParseProvider(t.Provider)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Provider:        p,
		Timeout:         time.Duration(t.TimeoutMs) * time.Millisecond,
		MaxAttempts:     t.MaxAttempts,
		BreakerFailures: t.BreakerFailures,
	}
	switch p {
	case ProviderOllama:
		cfg.Endpoint = t.OllamaHost
		cfg.Model = t.OllamaModel
	case ProviderLMStudio:
		cfg.Endpoint = t.BaseURL
		cfg.Model = strings.TrimSpace(t.Model)
		if cfg.Model == "" {
			cfg.Model = t.OllamaModel
		}
		cfg.APIKey = strings.TrimSpace(t.APIKey)
	}
	return cfg, nil
}

// Client is safe for concurrent use. All members share one client so the circuit
// breaker sees every failure against the endpoint.
type Client struct {
	cfg     Config
	base    string
	http    *http.Client
	retry   retry.Retry[string]
	breaker circuitbreaker.CircuitBreaker[string]
}

func New(cfg Config) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 250 * time.Millisecond
	}
	if cfg.BreakerFailures <= 0 {
		cfg.BreakerFailures = 3
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = 30 * time.Second
	}

	var base string
	switch cfg.Provider {
	case ProviderOllama:
		host, port, err := ParseHost(cfg.Endpoint)
		if err != nil {
			return nil, err
		}
		base = "http://" + net.JoinHostPort(host, strconv.Itoa(port))
	case ProviderLMStudio:
		base = strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
		if base == "" {
			return nil, errors.New("llm: missing base url")
		}
		if !strings.Contains(base, "://") {
			base = "http://" + base
		}
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownProvider, cfg.Provider)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	threshold := uint32(cfg.BreakerFailures)
	return &Client{
		cfg:  cfg,
		base: base,
		http: hc,
		retry: retry.New[string](retry.Config{
			MaxAttempts:        cfg.MaxAttempts,
			InitialDelay:       cfg.RetryDelay,
			BackoffPolicy:      retry.BackoffExponential,
			Multiplier:         2.0,
			NonRetryableErrors: []error{ErrRejected},
		}),
		breaker: circuitbreaker.New[string](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    cfg.BreakerCooldown,
			Timeout:     cfg.BreakerCooldown,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
		}),
	}, nil
}

func (c *Client) Provider() Provider { return c.cfg.Provider }
func (c *Client) Model() string      { return c.cfg.Model }
func (c *Client) BaseURL() string    { return c.base }

// BreakerState reports the circuit breaker state ("closed", "open", "half-open").
func (c *Client) BreakerState() string { return c.breaker.State().String() }

// Generate sends one prompt and returns the raw model text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	return c.breaker.Execute(ctx, func(ctx context.Context) (string, error) {
		return c.retry.Do(ctx, func(ctx context.Context) (string, error) {
			if c.cfg.Provider == ProviderLMStudio {
				return c.chatCompletion(ctx, prompt)
			}
			return c.ollamaGenerate(ctx, prompt)
		})
	})
}

// Choose asks the model to pick an option and returns the clamped index.
func (c *Client) Choose(ctx context.Context, personality string, ev *event.Event, g *galaxy.State) (int, error) {
	text, err := c.Generate(ctx, BuildPrompt(personality, ev, g))
	if err != nil {
		return 0, err
	}
	return ParseChoice(text, len(ev.Options))
}

// Deliberate asks for a preferred option and a short comment for the other members.
func (c *Client) Deliberate(ctx context.Context, personality string, ev *event.Event, g *galaxy.State) (int, string, error) {
	text, err := c.Generate(ctx, BuildDeliberationPrompt(personality, ev, g))
	if err != nil {
		return 0, "", err
	}
	return ParseComment(text, len(ev.Options))
}

// Ping checks the server answers at all. It bypasses retry and the breaker.
func (c *Client) Ping(ctx context.Context) error {
	path := "/api/tags"
	if c.cfg.Provider == ProviderLMStudio {
		path = "/models"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	c.authorize(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("llm: %s unreachable at %s: %w", c.cfg.Provider, c.base, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= 500 {
		return fmt.Errorf("llm: %s at %s: status %d", c.cfg.Provider, c.base, resp.StatusCode)
	}
	return nil
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response *string `json:"response"`
}

func (c *Client) ollamaGenerate(ctx context.Context, prompt string) (string, error) {
	var out ollamaResponse
	if err := c.post(ctx, "/api/generate", ollamaRequest{Model: c.cfg.Model, Prompt: prompt}, &out); err != nil {
		return "", err
	}
	if out.Response == nil {
		return "", errors.New("llm: missing response field")
	}
	return *out.Response, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *Client) chatCompletion(ctx context.Context, prompt string) (string, error) {
	req := chatRequest{
		Model:    c.cfg.Model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	}
	var out chatResponse
	if err := c.post(ctx, "/chat/completions", req, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", errors.New("llm: response has no choices")
	}
	return out.Choices[0].Message.Content, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("llm: server error %d: %s", resp.StatusCode, snippet(raw))
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, snippet(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("llm: decode response: %w", err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
}

func snippet(b []byte) string {
	if len(b) > 256 {
		b = b[:256]
	}
	return strings.TrimSpace(string(b))
}
