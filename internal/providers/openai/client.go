// Package openai adapts the OpenAI Chat Completions API to model.Client.
// goa-ai's own openai adapter (features/model/openai) is written against
// github.com/sashabaranov/go-openai, but its go.mod pins
// github.com/openai/openai-go instead — that pinned dependency is what this
// adapter is grounded on, keeping the reference adapter's shape (ChatClient
// interface for mockability, Options struct, New/NewFromAPIKey constructors)
// while calling the SDK actually pinned in go.mod.
package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/openai/openai-go/shared"

	"github.com/jmouallem/claude-longevity-sub000/internal/model"
)

// ChatClient captures the subset of the openai-go client used by the
// adapter, satisfied by the SDK's ChatCompletionService or a test double.
type ChatClient interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
	NewStreaming(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) *ssestream.Stream[openai.ChatCompletionChunk]
}

// Options configures the adapter's model routing.
type Options struct {
	ReasoningModel string
	UtilityModel   string
	DeepModel      string
	MaxTokens      int
	Temperature    float64
}

// Client implements model.Client on top of OpenAI Chat Completions.
type Client struct {
	chat      ChatClient
	reasoning string
	utility   string
	deep      string
	maxTok    int
	temp      float64
}

// New builds an OpenAI-backed client from an existing chat completions
// client.
func New(chat ChatClient, opts Options) (*Client, error) {
	if chat == nil {
		return nil, errors.New("openai: chat client is required")
	}
	if opts.ReasoningModel == "" {
		return nil, errors.New("openai: reasoning model identifier is required")
	}
	return &Client{
		chat:      chat,
		reasoning: opts.ReasoningModel,
		utility:   opts.UtilityModel,
		deep:      opts.DeepModel,
		maxTok:    opts.MaxTokens,
		temp:      opts.Temperature,
	}, nil
}

// NewFromAPIKey builds a client using a user-scoped API key.
func NewFromAPIKey(apiKey string, opts Options) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai: api key is required")
	}
	c := openai.NewClient(option.WithAPIKey(apiKey))
	return New(&c.Chat.Completions, opts)
}

func (c *Client) ReasoningModel() string    { return c.reasoning }
func (c *Client) UtilityModel() string      { return c.utility }
func (c *Client) DeepThinkingModel() string { return c.deep }
func (c *Client) SupportsWebSearch() bool   { return false }

func (c *Client) ValidateKey(ctx context.Context) error {
	_, err := c.chat.New(ctx, openai.ChatCompletionNewParams{
		Model:     c.reasoning,
		Messages:  []openai.ChatCompletionMessageParamUnion{openai.UserMessage("ping")},
		MaxTokens: openai.Int(1),
	})
	if err != nil {
		return err
	}
	return nil
}

func (c *Client) Complete(ctx context.Context, req *model.Request) (*model.Response, error) {
	params, err := c.prepareRequest(req)
	if err != nil {
		return nil, err
	}
	resp, err := c.chat.New(ctx, *params)
	if err != nil {
		return nil, err
	}
	return translateResponse(resp), nil
}

func (c *Client) Stream(ctx context.Context, req *model.Request) (model.Streamer, error) {
	params, err := c.prepareRequest(req)
	if err != nil {
		return nil, err
	}
	stream := c.chat.NewStreaming(ctx, *params)
	if err := stream.Err(); err != nil {
		return nil, err
	}
	return newStreamer(ctx, stream), nil
}

// CompleteVision sends a single prompt plus an inline image via the
// multimodal content-part encoding Chat Completions expects.
func (c *Client) CompleteVision(ctx context.Context, prompt string, img model.ImagePart, modelID string) (*model.Response, error) {
	if modelID == "" {
		modelID = c.utility
	}
	if modelID == "" {
		modelID = c.reasoning
	}
	dataURL := "data:image/" + string(img.Format) + ";base64," + base64.StdEncoding.EncodeToString(img.Bytes)
	resp, err := c.chat.New(ctx, openai.ChatCompletionNewParams{
		Model: modelID,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
			}),
		},
		MaxTokens: openai.Int(int64(c.effectiveMaxTokens(0))),
	})
	if err != nil {
		return nil, err
	}
	return translateResponse(resp), nil
}

func (c *Client) prepareRequest(req *model.Request) (*openai.ChatCompletionNewParams, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("openai: messages are required")
	}
	messages, err := encodeMessages(req)
	if err != nil {
		return nil, err
	}
	tools, err := encodeTools(req.Tools)
	if err != nil {
		return nil, err
	}
	params := openai.ChatCompletionNewParams{
		Model:     c.resolveModelID(req),
		Messages:  messages,
		MaxTokens: openai.Int(int64(c.effectiveMaxTokens(req.MaxTokens))),
	}
	if len(tools) > 0 {
		params.Tools = tools
	}
	if t := c.effectiveTemperature(float64(req.Temperature)); t > 0 {
		params.Temperature = openai.Float(t)
	}
	return &params, nil
}

func (c *Client) resolveModelID(req *model.Request) string {
	if req.Model != "" {
		return req.Model
	}
	switch req.ModelClass {
	case model.ModelClassHighReasoning:
		if c.deep != "" {
			return c.deep
		}
	case model.ModelClassSmall:
		if c.utility != "" {
			return c.utility
		}
	}
	return c.reasoning
}

func (c *Client) effectiveMaxTokens(requested int) int {
	if requested > 0 {
		return requested
	}
	return c.maxTok
}

func (c *Client) effectiveTemperature(requested float64) float64 {
	if requested > 0 {
		return requested
	}
	return c.temp
}

func encodeMessages(req *model.Request) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		out = append(out, openai.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		if m == nil {
			continue
		}
		switch m.Role {
		case model.RoleSystem:
			for _, p := range m.Parts {
				if v, ok := p.(model.TextPart); ok && v.Text != "" {
					out = append(out, openai.SystemMessage(v.Text))
				}
			}
		case model.RoleUser:
			text := textOf(m.Parts)
			out = append(out, openai.UserMessage(text))
		case model.RoleAssistant:
			msg, err := encodeAssistantMessage(m)
			if err != nil {
				return nil, err
			}
			out = append(out, msg)
		default:
			return nil, errors.New("openai: unsupported message role")
		}
	}
	return out, nil
}

func encodeAssistantMessage(m *model.Message) (openai.ChatCompletionMessageParamUnion, error) {
	text := textOf(m.Parts)
	for _, p := range m.Parts {
		if tr, ok := p.(model.ToolResultPart); ok {
			var content string
			switch c := tr.Content.(type) {
			case string:
				content = c
			case []byte:
				content = string(c)
			default:
				if data, err := json.Marshal(c); err == nil {
					content = string(data)
				}
			}
			return openai.ToolMessage(content, tr.ToolUseID), nil
		}
	}
	return openai.AssistantMessage(text), nil
}

func textOf(parts []model.Part) string {
	var sb strings.Builder
	for _, p := range parts {
		if v, ok := p.(model.TextPart); ok {
			sb.WriteString(v.Text)
		}
	}
	return sb.String()
}

func encodeTools(defs []*model.ToolDefinition) ([]openai.ChatCompletionToolUnionParam, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(defs))
	for _, def := range defs {
		if def == nil {
			continue
		}
		var params shared.FunctionParameters
		if def.InputSchema != nil {
			data, err := json.Marshal(def.InputSchema)
			if err != nil {
				return nil, err
			}
			if err := json.Unmarshal(data, &params); err != nil {
				return nil, err
			}
		}
		out = append(out, openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        def.Name,
			Description: openai.String(def.Description),
			Parameters:  params,
		}))
	}
	return out, nil
}

func translateResponse(resp *openai.ChatCompletion) *model.Response {
	out := &model.Response{}
	for _, choice := range resp.Choices {
		if choice.Message.Content != "" {
			out.Content = append(out.Content, model.Message{
				Role:  model.RoleAssistant,
				Parts: []model.Part{model.TextPart{Text: choice.Message.Content}},
			})
		}
		for _, call := range choice.Message.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, model.ToolCall{
				Name:    call.Function.Name,
				Payload: []byte(call.Function.Arguments),
				ID:      call.ID,
			})
		}
		if out.StopReason == "" {
			out.StopReason = string(choice.FinishReason)
		}
	}
	out.Usage = model.TokenUsage{
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:  int(resp.Usage.TotalTokens),
	}
	return out
}
