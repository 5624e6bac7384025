package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/sync/semaphore"
)

// AnthropicConfig configures the Anthropic-backed client.
type AnthropicConfig struct {
	// APIKey is the Anthropic key. Empty falls back to ANTHROPIC_API_KEY.
	APIKey string

	// MaxConcurrentCalls caps in-flight API calls across all workers.
	// 0 means unlimited.
	MaxConcurrentCalls int

	// RequestTimeout bounds a single API call. Default 120s.
	RequestTimeout time.Duration
}

// AnthropicClient implements Client against the Anthropic Messages API.
type AnthropicClient struct {
	client  *anthropic.Client
	sem     *semaphore.Weighted
	timeout time.Duration
}

var _ Client = (*AnthropicClient)(nil)

// NewAnthropicClient creates an Anthropic-backed provider client.
func NewAnthropicClient(cfg AnthropicConfig) (*AnthropicClient, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
	}

	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	var sem *semaphore.Weighted
	if cfg.MaxConcurrentCalls > 0 {
		sem = semaphore.NewWeighted(int64(cfg.MaxConcurrentCalls))
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicClient{
		client:  &client,
		sem:     sem,
		timeout: timeout,
	}, nil
}

// Name implements Client.
func (c *AnthropicClient) Name() string {
	return "anthropic"
}

// Process implements Client. Failures come back as *Error with the class
// assigned from the SDK's HTTP status where available.
func (c *AnthropicClient) Process(ctx context.Context, req Request) (*Response, error) {
	if c.sem != nil {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return nil, &Error{Class: ClassTransport, Op: "acquire", Err: err}
		}
		defer c.sem.Release(1)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: maxTokens,
		Messages:  toAnthropicMessages(req.Messages),
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	resp, err := c.client.Messages.New(callCtx, params)
	if err != nil {
		return nil, c.wrapErr(err)
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	return &Response{
		Content: content,
		Usage: newUsage(
			resp.Usage.InputTokens,
			resp.Usage.OutputTokens,
			resp.ID,
		),
	}, nil
}

func toAnthropicMessages(msgs []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(block))
		} else {
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return out
}

// wrapErr classifies an SDK error into a typed provider error. API errors
// carry an HTTP status; everything else is classified from the transport
// failure shape.
func (c *AnthropicClient) wrapErr(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &Error{Class: classifyStatus(apiErr.StatusCode), Op: "messages.new", Err: err}
	}
	return &Error{Class: classifyMessage(err), Op: "messages.new", Err: err}
}
