package llm

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"medrag/internal/domain"
)

// Provider configurations for OpenAI-compatible chat endpoints.
var providers = map[string]struct {
	baseURL   string
	keyEnvVar string
}{
	"groq":     {"https://api.groq.com/openai/v1", "GROQ_API_KEY"},
	"openai":   {"https://api.openai.com/v1", "OPENAI_API_KEY"},
	"deepseek": {"https://api.deepseek.com/v1", "DEEPSEEK_API_KEY"},
	"ollama":   {"http://localhost:11434/v1", ""},
}

// DefaultKeyEnv returns the API key variable conventionally used by provider.
func DefaultKeyEnv(provider string) string {
	return providers[provider].keyEnvVar
}

// Client is a single-turn chat completion client for OpenAI-compatible APIs.
type Client struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int
	stats       stats
}

type stats struct {
	calls       atomic.Int64
	failures    atomic.Int64
	inputChars  atomic.Int64
	outputChars atomic.Int64
}

// Stats is a snapshot of client usage.
type Stats struct {
	TotalCalls       int64
	Failures         int64
	TotalInputChars  int64
	TotalOutputChars int64
}

type clientOptions struct {
	temperature float64
	maxTokens   int
	maxRetries  int
	timeout     time.Duration
}

type ClientOption func(*clientOptions)

func WithTemperature(t float64) ClientOption {
	return func(o *clientOptions) { o.temperature = t }
}

func WithMaxTokens(n int) ClientOption {
	return func(o *clientOptions) { o.maxTokens = n }
}

// WithMaxRetries sets how often the SDK retries transient HTTP failures.
func WithMaxRetries(n int) ClientOption {
	return func(o *clientOptions) { o.maxRetries = n }
}

// WithHTTPTimeout bounds each HTTP attempt. Whole-call deadlines belong to
// the Timeout decorator.
func WithHTTPTimeout(d time.Duration) ClientOption {
	return func(o *clientOptions) { o.timeout = d }
}

// NewClient creates a client for provider. baseURL overrides the provider's
// endpoint; an unknown provider requires one.
func NewClient(provider, model, baseURL, apiKey string, opts ...ClientOption) (*Client, error) {
	p, ok := providers[provider]
	if !ok && baseURL == "" {
		return nil, domain.Configf("unknown LLM provider %q (set base_url for custom endpoints)", provider)
	}
	if baseURL == "" {
		baseURL = p.baseURL
	}
	if model == "" {
		return nil, domain.Configf("LLM model is required")
	}
	if apiKey == "" {
		if p.keyEnvVar != "" {
			return nil, domain.Configf("%s not found in environment", p.keyEnvVar)
		}
		apiKey = provider
	}

	o := clientOptions{maxTokens: 1024, maxRetries: 2, timeout: 60 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	return &Client{
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL(baseURL),
			option.WithRequestTimeout(o.timeout),
			option.WithMaxRetries(o.maxRetries),
		),
		model:       model,
		temperature: o.temperature,
		maxTokens:   o.maxTokens,
	}, nil
}

// Generate sends prompt as one user message and returns the reply text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	c.stats.calls.Add(1)
	c.stats.inputChars.Add(int64(len(prompt)))

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:       c.model,
		Temperature: openai.Float(c.temperature),
	}
	if c.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(c.maxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		c.stats.failures.Add(1)
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("chat completion: API returned status %d: %w", apiErr.StatusCode, err)
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		c.stats.failures.Add(1)
		return "", fmt.Errorf("chat completion: no choices in response")
	}

	output := resp.Choices[0].Message.Content
	c.stats.outputChars.Add(int64(len(output)))
	return output, nil
}

func (c *Client) ModelName() string {
	return c.model
}

// Stats returns the current usage counters.
func (c *Client) Stats() Stats {
	return Stats{
		TotalCalls:       c.stats.calls.Load(),
		Failures:         c.stats.failures.Load(),
		TotalInputChars:  c.stats.inputChars.Load(),
		TotalOutputChars: c.stats.outputChars.Load(),
	}
}
