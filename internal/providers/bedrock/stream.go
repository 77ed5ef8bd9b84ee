package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/jmouallem/claude-longevity-sub000/internal/model"
)

// streamer adapts a Bedrock ConverseStream event stream to model.Streamer.
// Citation tracking and reasoning signature buffering are dropped: this
// core never surfaces citations and treats thinking text as opaque, so only
// the plain-text delta is forwarded.
type streamer struct {
	ctx    context.Context
	cancel context.CancelFunc
	stream *bedrockruntime.ConverseStreamEventStream

	chunks chan model.Chunk

	errMu    sync.Mutex
	errSet   bool
	finalErr error

	toolNameMap map[string]string
}

func newStreamer(ctx context.Context, stream *bedrockruntime.ConverseStreamEventStream, nameMap map[string]string) model.Streamer {
	cctx, cancel := context.WithCancel(ctx)
	s := &streamer{
		ctx:         cctx,
		cancel:      cancel,
		stream:      stream,
		chunks:      make(chan model.Chunk, 32),
		toolNameMap: nameMap,
	}
	go s.run()
	return s
}

func (s *streamer) Recv() (model.Chunk, error) {
	select {
	case chunk, ok := <-s.chunks:
		if ok {
			return chunk, nil
		}
		if err := s.err(); err != nil {
			return model.Chunk{}, err
		}
		return model.Chunk{}, model.ErrStreamDone
	case <-s.ctx.Done():
		err := s.ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		s.setErr(err)
		return model.Chunk{}, err
	}
}

func (s *streamer) Close() error {
	s.cancel()
	return s.stream.Close()
}

func (s *streamer) run() {
	defer close(s.chunks)
	defer func() {
		if err := s.stream.Close(); err != nil {
			s.setErr(err)
		}
	}()

	processor := newChunkProcessor(s.emit, s.toolNameMap)
	events := s.stream.Events()

	for {
		select {
		case <-s.ctx.Done():
			s.setErr(s.ctx.Err())
			return
		case event, ok := <-events:
			if !ok {
				if err := s.stream.Err(); err != nil {
					s.setErr(err)
				} else if err := s.ctx.Err(); err != nil {
					s.setErr(err)
				} else {
					s.setErr(nil)
				}
				return
			}
			if err := processor.Handle(event); err != nil {
				s.setErr(err)
				return
			}
		}
	}
}

func (s *streamer) emit(chunk model.Chunk) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	case s.chunks <- chunk:
		return nil
	}
}

func (s *streamer) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.errSet {
		return
	}
	s.errSet = true
	s.finalErr = err
}

func (s *streamer) err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.finalErr
}

// chunkProcessor converts Bedrock streaming events into model.Chunks.
type chunkProcessor struct {
	emit func(model.Chunk) error

	toolBlocks  map[int]*toolBuffer
	toolNameMap map[string]string
}

func newChunkProcessor(emit func(model.Chunk) error, nameMap map[string]string) *chunkProcessor {
	return &chunkProcessor{
		emit:        emit,
		toolBlocks:  make(map[int]*toolBuffer),
		toolNameMap: nameMap,
	}
}

func (p *chunkProcessor) Handle(event any) error {
	switch ev := event.(type) {
	case *brtypes.ConverseStreamOutputMemberMessageStart:
		p.toolBlocks = make(map[int]*toolBuffer)
		return nil
	case *brtypes.ConverseStreamOutputMemberContentBlockStart:
		idx := int(ev.Value.ContentBlockIndex)
		if start, ok := ev.Value.Start.(*brtypes.ContentBlockStartMemberToolUse); ok {
			if start.Value.ToolUseId == nil || *start.Value.ToolUseId == "" {
				return errors.New("bedrock stream: tool use block missing tool_use_id")
			}
			if start.Value.Name == nil || *start.Value.Name == "" {
				return fmt.Errorf("bedrock stream: tool use block %q missing name", *start.Value.ToolUseId)
			}
			raw := *start.Value.Name
			name := raw
			if canonical, ok := p.toolNameMap[raw]; ok {
				name = canonical
			}
			p.toolBlocks[idx] = &toolBuffer{id: *start.Value.ToolUseId, name: name}
		}
		return nil
	case *brtypes.ConverseStreamOutputMemberContentBlockDelta:
		idx := int(ev.Value.ContentBlockIndex)
		switch delta := ev.Value.Delta.(type) {
		case *brtypes.ContentBlockDeltaMemberText:
			if delta.Value == "" {
				return nil
			}
			return p.emit(model.Chunk{Type: model.ChunkTypeText, Text: delta.Value})
		case *brtypes.ContentBlockDeltaMemberReasoningContent:
			if v, ok := delta.Value.(*brtypes.ReasoningContentBlockDeltaMemberText); ok && v.Value != "" {
				return p.emit(model.Chunk{Type: model.ChunkTypeThinking, Text: v.Value})
			}
			return nil
		case *brtypes.ContentBlockDeltaMemberToolUse:
			if tb := p.toolBlocks[idx]; tb != nil && delta.Value.Input != nil {
				tb.fragments = append(tb.fragments, *delta.Value.Input)
			}
			return nil
		}
		return nil
	case *brtypes.ConverseStreamOutputMemberContentBlockStop:
		idx := int(ev.Value.ContentBlockIndex)
		if tb := p.toolBlocks[idx]; tb != nil {
			payload := decodeToolPayload(tb.finalInput())
			delete(p.toolBlocks, idx)
			return p.emit(model.Chunk{
				Type:     model.ChunkTypeToolCall,
				ToolCall: &model.ToolCall{Name: tb.name, Payload: payload, ID: tb.id},
			})
		}
		return nil
	case *brtypes.ConverseStreamOutputMemberMessageStop:
		chunk := model.Chunk{Type: model.ChunkTypeStop, StopReason: string(ev.Value.StopReason)}
		p.toolBlocks = make(map[int]*toolBuffer)
		return p.emit(chunk)
	case *brtypes.ConverseStreamOutputMemberMetadata:
		if ev.Value.Usage == nil {
			return nil
		}
		usage := model.TokenUsage{
			InputTokens:  intPtr(ev.Value.Usage.InputTokens),
			OutputTokens: intPtr(ev.Value.Usage.OutputTokens),
			TotalTokens:  intPtr(ev.Value.Usage.TotalTokens),
		}
		return p.emit(model.Chunk{Type: model.ChunkTypeUsage, UsageDelta: &usage})
	}
	return nil
}

func intPtr(p *int32) int {
	if p == nil {
		return 0
	}
	return int(*p)
}

type toolBuffer struct {
	id        string
	name      string
	fragments []string
}

func (tb *toolBuffer) finalInput() string {
	if len(tb.fragments) == 0 {
		return "{}"
	}
	joined := strings.Join(tb.fragments, "")
	if strings.TrimSpace(joined) == "" {
		return "{}"
	}
	return joined
}

func decodeToolPayload(raw string) []byte {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = "{}"
	}
	return json.RawMessage(trimmed)
}
