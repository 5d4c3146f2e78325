// Package llmclient provides an interfaces.LLMClient implementation over
// the Anthropic Messages API, used as the last-resort extractor for
// career pages with no recognized structure.
package llmclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/atsforge/internal/common"
	"github.com/ternarybob/atsforge/internal/interfaces"
)

// DefaultModel is used when the caller's config leaves Model empty.
const DefaultModel = "claude-sonnet-4-20250514"

// DefaultMaxTokens bounds a single completion when the config leaves
// MaxTokens unset.
const DefaultMaxTokens = 4096

// DefaultTimeout bounds a single API call.
const DefaultTimeout = 30 * time.Second

// ClaudeClient implements interfaces.LLMClient over the Anthropic
// Messages API.
type ClaudeClient struct {
	client      *anthropic.Client
	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration
	logger      arbor.ILogger
}

// New builds a ClaudeClient from config. apiKey must be non-empty.
func New(cfg common.LLMConfig, logger arbor.ILogger) (*ClaudeClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required (set ATSFORGE_ANTHROPIC_API_KEY or llm.api_key in config)")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	client := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))

	return &ClaudeClient{
		client:      client,
		model:       model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		timeout:     DefaultTimeout,
		logger:      logger,
	}, nil
}

var _ interfaces.LLMClient = (*ClaudeClient)(nil)

// CompleteJSON sends systemPrompt as the system message and userPrompt as
// the sole user turn, returning the assistant's raw text (expected to be
// a JSON document per the caller's schema).
func (c *ClaudeClient) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}
	if c.temperature > 0 {
		params.Temperature = anthropic.Float(c.temperature)
	}

	resp, err := c.client.Messages.New(timeoutCtx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic completion failed: %w", err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("anthropic completion returned no text content")
	}

	if c.logger != nil {
		c.logger.Debug().Str("model", c.model).Int("response_length", out.Len()).Msg("anthropic completion succeeded")
	}

	return extractJSONBody(out.String()), nil
}

// extractJSONBody strips a ```json fenced code block if the model wrapped
// its answer in one, returning the raw text otherwise.
func extractJSONBody(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}
