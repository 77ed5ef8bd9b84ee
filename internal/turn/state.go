package turn

import (
	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
	"github.com/jmouallem/claude-longevity-sub000/internal/intent"
	"github.com/jmouallem/claude-longevity-sub000/internal/model"
	"github.com/jmouallem/claude-longevity-sub000/internal/toolregistry/websearch"
)

// ChunkType identifies the kind of Chunk emitted to a turn's output
// channel, mirroring the provider-level model.Chunk type vocabulary one
// level up (text/error/done rather than text/tool_call/thinking/usage).
type ChunkType string

const (
	ChunkText  ChunkType = "text"
	ChunkError ChunkType = "error"
	ChunkDone  ChunkType = "done"
)

// Chunk is one unit of streamed turn output delivered to the caller.
type Chunk struct {
	Type ChunkType
	Text string
}

// Input is one inbound chat turn request.
type Input struct {
	UserID             int64
	Message            string
	Image              *model.ImagePart
	SpecialistOverride string
}

// turnState is the accumulator threaded through every ordered pipeline
// step on *Orchestrator, mirroring goa-ai's runLoopState pattern: one
// mutable struct passed by pointer instead of scattering turn-local values
// across goroutine-local state or long helper-function signatures.
type turnState struct {
	userID int64
	// runID is a per-turn correlation ID threaded through logs and the
	// tracer span, generated fresh for every RunTurn call.
	runID string

	user     *domain.User
	settings *domain.UserSettings
	client   model.Client

	rawMessage       string
	effectiveMessage string
	image            *model.ImagePart
	specialistOverride string

	scope *Scope

	// gate is set when step 4 consumed this message as a time-confirmation
	// reply; when true, step 9's log parse is skipped.
	gateConsumed bool
	gateNote     string

	intentResult intent.Result

	// pureMenuCommand is set by step 8 when the message is a standalone
	// save/update-menu command with no food description of its own, so step
	// 9's log parse is skipped for this turn.
	pureMenuCommand bool

	// terminated short-circuits the remaining pipeline steps (the
	// low-signal check-in path, step 6, and any pre-flight abort).
	terminated  bool
	terminalErr error

	// dynamic context blocks accumulated by steps 8-16, appended to the
	// assembled system prompt by step 17 but never part of the cached
	// stable block.
	menuActionNote      string
	menuFollowUpNote    string
	logWriteStatusNote  string
	timeInferenceHint   string
	pendingConfirmNote  string
	goalSyncNote        string
	webSearchNote       string
	timeContextNote     string

	logParsed           map[string]any
	logCategory         domain.LogCategory
	logRecordID         int64
	foodResolvedTemplate bool

	// profileMedicationNames/profileSupplementNames are populated by step 11
	// when it upserts new items, so step 12 can mark them taken on today's
	// checklist without re-deriving them from the raw message.
	profileMedicationNames []string
	profileSupplementNames []string

	webSearchResults []websearch.Result

	systemPrompt string

	userMessageID int64

	responseText       string
	responseStopReason string
	usage              model.TokenUsage

	ch chan Chunk
}

func (s *turnState) emit(c Chunk) {
	select {
	case s.ch <- c:
	default:
		// Channel has no reader left (client disconnected); drop rather
		// than block the pipeline goroutine forever.
	}
}

func (s *turnState) fail(step string, err error) {
	s.scope.RecordFailure(step, err.Error())
}
