package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"agentforge/internal/logging"
)

// Client wraps the OpenAI Go SDK for chat completions and embeddings.
type Client struct {
	sdk   sdk.Client
	model string
}

func New(apiKey, baseURL, model string, extra ...option.RequestOption) *Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	opts = append(opts, extra...)
	return &Client{sdk: sdk.NewClient(opts...), model: model}
}

func (c *Client) modelOrDefault(model string) string {
	if model != "" {
		return model
	}
	return c.model
}

// Embed returns the dense embedding vector for text.
func (c *Client) Embed(ctx context.Context, model, text string) ([]float32, error) {
	resp, err := c.sdk.Embeddings.New(ctx, sdk.EmbeddingNewParams{
		Model: sdk.EmbeddingModel(c.modelOrDefault(model)),
		Input: sdk.EmbeddingNewParamsInputUnion{OfString: sdk.String(text)},
	})
	if err != nil {
		return nil, fmt.Errorf("llm: embed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("llm: embed: empty response")
	}
	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// Chat performs a single buffered chat completion.
func (c *Client) Chat(ctx context.Context, msgs []Message, tools []ToolSchema, model string) (Message, Usage, error) {
	log := logging.From(ctx)
	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(c.modelOrDefault(model)),
		Messages: adaptMessages(msgs),
	}
	if len(tools) > 0 {
		params.Tools = adaptSchemas(tools)
	}

	start := time.Now()
	comp, err := c.sdk.Chat.Completions.New(ctx, params)
	dur := time.Since(start)
	if err != nil {
		log.Error().Err(err).Str("model", string(params.Model)).Dur("duration", dur).Msg("llm_chat_error")
		return Message{}, Usage{}, fmt.Errorf("llm: chat: %w", err)
	}
	if len(comp.Choices) == 0 {
		return Message{}, Usage{}, fmt.Errorf("llm: chat: no choices returned")
	}

	msg := comp.Choices[0].Message
	out := Message{Role: "assistant", Content: msg.Content}
	for _, tc := range msg.ToolCalls {
		switch v := tc.AsAny().(type) {
		case sdk.ChatCompletionMessageFunctionToolCall:
			if isEmptyArgs(v.Function.Arguments) {
				log.Warn().Str("tool", v.Function.Name).Str("id", v.ID).Msg("llm_skip_empty_tool_call")
				continue
			}
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:   v.ID,
				Name: v.Function.Name,
				Args: json.RawMessage(v.Function.Arguments),
			})
		}
	}

	usage := Usage{
		PromptTokens:     int(comp.Usage.PromptTokens),
		CompletionTokens: int(comp.Usage.CompletionTokens),
		TotalTokens:      int(comp.Usage.TotalTokens),
	}
	if usage.TotalTokens == 0 {
		usage.Estimated = true
		usage.PromptTokens = estimatePromptTokens(msgs)
		usage.CompletionTokens = EstimateTokens(out.Content)
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	log.Debug().Str("model", string(params.Model)).Dur("duration", dur).
		Int("prompt_tokens", usage.PromptTokens).Int("completion_tokens", usage.CompletionTokens).
		Msg("llm_chat_ok")
	return out, usage, nil
}

// ChatStream performs a streaming chat completion, accumulating tool-call
// argument deltas by index (not by arrival order) exactly as a production
// OpenAI streaming consumer must, and flushing the accumulated tool calls to
// h once per finish_reason chunk.
func (c *Client) ChatStream(ctx context.Context, msgs []Message, tools []ToolSchema, model string, h StreamHandler) (Usage, error) {
	log := logging.From(ctx)
	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(c.modelOrDefault(model)),
		Messages: adaptMessages(msgs),
	}
	if len(tools) > 0 {
		params.Tools = adaptSchemas(tools)
	}
	params.StreamOptions.IncludeUsage = sdk.Bool(true)

	start := time.Now()
	stream := c.sdk.Chat.Completions.NewStreaming(ctx, params)
	defer func() { _ = stream.Close() }()

	toolCalls := make(map[int]*ToolCall)
	toolCallsFlushed := false
	var usage Usage
	var assistantContent string

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			if chunk.JSON.Usage.Valid() {
				usage.PromptTokens = int(chunk.Usage.PromptTokens)
				usage.CompletionTokens = int(chunk.Usage.CompletionTokens)
				usage.TotalTokens = int(chunk.Usage.TotalTokens)
			}
			continue
		}

		delta := chunk.Choices[0].Delta
		if delta.Content != "" {
			h.OnDelta(delta.Content)
			assistantContent += delta.Content
		}

		for _, tc := range delta.ToolCalls {
			idx := int(tc.Index)
			if toolCalls[idx] == nil {
				toolCalls[idx] = &ToolCall{ID: tc.ID}
			}
			if tc.Function.Name != "" {
				toolCalls[idx].Name = tc.Function.Name
			}
			if tc.Function.Arguments != "" {
				toolCalls[idx].Args = json.RawMessage(string(toolCalls[idx].Args) + tc.Function.Arguments)
			}
		}

		if chunk.Choices[0].FinishReason != "" && !toolCallsFlushed {
			for _, tc := range toolCalls {
				if tc != nil && tc.Name != "" && !isEmptyArgsBytes(tc.Args) {
					h.OnToolCall(*tc)
				} else if tc != nil && tc.Name != "" {
					log.Warn().Str("tool", tc.Name).Str("id", tc.ID).Msg("llm_stream_skip_empty_tool_call")
				}
			}
			toolCallsFlushed = true
		}
	}

	if err := stream.Err(); err != nil {
		log.Error().Err(err).Dur("duration", time.Since(start)).Msg("llm_chat_stream_error")
		return Usage{}, fmt.Errorf("llm: chat stream: %w", err)
	}

	if usage.TotalTokens == 0 {
		usage.Estimated = true
		usage.PromptTokens = estimatePromptTokens(msgs)
		usage.CompletionTokens = EstimateTokens(assistantContent)
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	log.Debug().Dur("duration", time.Since(start)).Int("total_tokens", usage.TotalTokens).Msg("llm_chat_stream_ok")
	return usage, nil
}

func estimatePromptTokens(msgs []Message) int {
	total := 0
	for _, m := range msgs {
		total += EstimateTokens(m.Content)
	}
	return total
}

// HTTPClientOption lets callers plug a custom *http.Client, used in tests
// against a local fake server.
func HTTPClientOption(hc *http.Client) option.RequestOption {
	return option.WithHTTPClient(hc)
}
