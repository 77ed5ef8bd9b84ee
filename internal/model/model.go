// Package model defines the provider-agnostic message and streaming types
// used by the turn orchestrator and every LLM call site. It is a trimmed
// adaptation of goa-ai's runtime/agent/model package: messages are typed
// parts (text, image, thinking, tool use/result) rather than flattened
// strings, and every provider adapter speaks the same Client/Streamer
// contract regardless of vendor wire format.
package model

import (
	"context"
	"errors"
)

// ConversationRole is the role for a message in a conversation.
type ConversationRole string

const (
	RoleSystem    ConversationRole = "system"
	RoleUser      ConversationRole = "user"
	RoleAssistant ConversationRole = "assistant"
)

type (
	// Part is a marker interface implemented by every message content block.
	Part interface{ isPart() }

	// TextPart is a plain text content block.
	TextPart struct{ Text string }

	// ImageFormat identifies the on-wire encoding of an ImagePart.
	ImageFormat string

	// ImagePart carries image bytes attached to a user message, used for the
	// turn orchestrator's image pre-analysis step (turn pipeline step 3).
	ImagePart struct {
		Format ImageFormat
		Bytes  []byte
	}

	// ThinkingPart carries provider-issued reasoning content. Treated as
	// opaque metadata; never parsed for control flow.
	ThinkingPart struct {
		Text      string
		Signature string
	}

	// ToolUsePart declares a tool invocation requested by the assistant.
	ToolUsePart struct {
		ID    string
		Name  string
		Input any
	}

	// ToolResultPart carries a tool result attached to a subsequent user
	// message so the model can read it on the next turn.
	ToolResultPart struct {
		ToolUseID string
		Content   any
		IsError   bool
	}

	// Message is a single chat message: an ordered list of typed Parts.
	Message struct {
		Role  ConversationRole
		Parts []Part
	}

	// ToolDefinition describes a tool exposed to the model, derived from a
	// tools.ToolSpec.
	ToolDefinition struct {
		Name        string
		Description string
		InputSchema any
	}

	// ToolCall is a requested tool invocation from the model.
	ToolCall struct {
		Name    string
		Payload []byte // canonical JSON
		ID      string
	}

	// TokenUsage tracks token counts for one model call.
	TokenUsage struct {
		InputTokens      int
		OutputTokens     int
		TotalTokens      int
		CacheReadTokens  int
		CacheWriteTokens int
	}

	// ModelClass selects a model family when Request.Model is unset.
	ModelClass string

	// ThinkingOptions configures provider reasoning behavior.
	ThinkingOptions struct {
		Enable       bool
		BudgetTokens int
	}

	// Request captures inputs for one model invocation.
	Request struct {
		Model       string
		ModelClass  ModelClass
		Messages    []*Message
		System      string
		Temperature float32
		Tools       []*ToolDefinition
		MaxTokens   int
		Stream      bool
		Thinking    *ThinkingOptions
	}

	// Response is the result of a non-streaming invocation.
	Response struct {
		Content    []Message
		ToolCalls  []ToolCall
		Usage      TokenUsage
		StopReason string
	}

	// Chunk is one streaming event from the model.
	Chunk struct {
		Type       string
		Text       string
		ToolCall   *ToolCall
		UsageDelta *TokenUsage
		StopReason string
	}

	// Client is the provider-agnostic model client every vendor adapter
	// implements.
	Client interface {
		// Complete performs a non-streaming invocation.
		Complete(ctx context.Context, req *Request) (*Response, error)
		// Stream performs a streaming invocation.
		Stream(ctx context.Context, req *Request) (Streamer, error)
		// CompleteVision performs a single-turn multimodal invocation used by
		// the image pre-analysis step.
		CompleteVision(ctx context.Context, prompt string, img ImagePart, model string) (*Response, error)
		// ValidateKey confirms the configured credential is accepted by the
		// vendor. Implementations issue a minimal, cheap call.
		ValidateKey(ctx context.Context) error
		// ReasoningModel, UtilityModel, DeepThinkingModel return the three
		// configured model tiers for this client.
		ReasoningModel() string
		UtilityModel() string
		DeepThinkingModel() string
		// SupportsWebSearch is informational; it does not gate tool
		// availability on its own.
		SupportsWebSearch() bool
	}

	// Streamer delivers incremental model output. Callers must drain until
	// Recv returns ErrStreamDone or another terminal error, then Close.
	Streamer interface {
		Recv() (Chunk, error)
		Close() error
	}
)

const (
	ChunkTypeText     = "text"
	ChunkTypeToolCall = "tool_call"
	ChunkTypeThinking = "thinking"
	ChunkTypeUsage    = "usage"
	ChunkTypeStop     = "stop"
)

const (
	ImageFormatPNG  ImageFormat = "png"
	ImageFormatJPEG ImageFormat = "jpeg"
	ImageFormatWEBP ImageFormat = "webp"
)

const (
	ModelClassHighReasoning ModelClass = "high-reasoning"
	ModelClassDefault       ModelClass = "default"
	ModelClassSmall         ModelClass = "small"
)

// ErrStreamDone signals a cleanly terminated stream; callers treat it like
// io.EOF.
var ErrStreamDone = errors.New("model: stream done")

// ErrRateLimited indicates the vendor rejected the request due to rate
// limiting. Callers must not retry in a tight loop.
var ErrRateLimited = errors.New("model: rate limited")

func (TextPart) isPart()       {}
func (ImagePart) isPart()      {}
func (ThinkingPart) isPart()   {}
func (ToolUsePart) isPart()    {}
func (ToolResultPart) isPart() {}
