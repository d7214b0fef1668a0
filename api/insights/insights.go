// Package insights generates narrative insights for dashboard panels via
// the Anthropic API. The model is asked for strict JSON so the frontend
// can render findings as structured lists rather than prose.
package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"github.com/manaskarra/pdash/api/metrics"
)

const (
	defaultModel     = "claude-sonnet-4-5"
	defaultMaxTokens = 1024
)

const systemPrompt = `You are an analytics assistant for a partner performance dashboard.
You receive a panel description and the JSON data behind it. Respond with a single JSON
object and nothing else, with these keys:
  "summary": one-paragraph string summarising the data,
  "key_findings": array of short strings,
  "recommendations": array of short strings,
  "trends": array of short strings.
All monetary values are USD. Do not invent numbers that are not in the data.`

// Insights is the structured answer returned to the frontend.
type Insights struct {
	Summary         string   `json:"summary"`
	KeyFindings     []string `json:"key_findings"`
	Recommendations []string `json:"recommendations"`
	Trends          []string `json:"trends"`
}

// Client wraps the Anthropic API for insight generation.
type Client struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
	log       *slog.Logger
}

// New creates a client using the ANTHROPIC_API_KEY from the environment.
// INSIGHTS_MODEL overrides the default model.
func New(log *slog.Logger) *Client {
	model := anthropic.Model(defaultModel)
	if v := os.Getenv("INSIGHTS_MODEL"); v != "" {
		model = anthropic.Model(v)
	}
	return &Client{
		client:    anthropic.NewClient(),
		model:     model,
		maxTokens: defaultMaxTokens,
		log:       log,
	}
}

// Generate asks the model for insights about one panel's data.
func (c *Client) Generate(ctx context.Context, panelContext string, data json.RawMessage) (*Insights, error) {
	requestID := uuid.NewString()

	span := sentry.StartSpan(ctx, "gen_ai.chat", sentry.WithDescription(fmt.Sprintf("chat %s", c.model)))
	span.SetData("gen_ai.operation.name", "chat")
	span.SetData("gen_ai.request.model", string(c.model))
	span.SetData("gen_ai.request.max_tokens", c.maxTokens)
	span.SetData("gen_ai.system", "anthropic")
	span.SetTag("request_id", requestID)
	ctx = span.Context()
	defer span.Finish()

	userPrompt := fmt.Sprintf("Panel: %s\n\nData:\n%s", panelContext, data)

	start := time.Now()
	c.log.Info("insights request starting",
		"requestID", requestID, "model", c.model, "dataLen", len(data))

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Type: "text", Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})

	duration := time.Since(start)
	metrics.RecordAnthropicRequest("insights", duration, err)
	if err != nil {
		c.log.Error("insights request failed", "requestID", requestID, "duration", duration, "error", err)
		span.Status = sentry.SpanStatusInternalError
		return nil, fmt.Errorf("anthropic API error: %w", err)
	}

	c.log.Info("insights request completed",
		"requestID", requestID,
		"duration", duration,
		"stopReason", msg.StopReason,
		"inputTokens", msg.Usage.InputTokens,
		"outputTokens", msg.Usage.OutputTokens,
	)
	metrics.RecordAnthropicTokens(msg.Usage.InputTokens, msg.Usage.OutputTokens)

	span.SetData("gen_ai.usage.input_tokens", msg.Usage.InputTokens)
	span.SetData("gen_ai.usage.output_tokens", msg.Usage.OutputTokens)
	span.Status = sentry.SpanStatusOK

	for _, block := range msg.Content {
		if block.Type == "text" {
			return parseInsights(block.Text)
		}
	}
	return nil, fmt.Errorf("no text content in response")
}

// parseInsights decodes the model's JSON answer, tolerating a fenced code
// block around it.
func parseInsights(text string) (*Insights, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if i := strings.LastIndex(text, "```"); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
	}

	var out Insights
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("parse insights response: %w", err)
	}
	return &out, nil
}
