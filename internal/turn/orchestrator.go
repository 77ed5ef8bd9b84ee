package turn

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jmouallem/claude-longevity-sub000/internal/analysis"
	"github.com/jmouallem/claude-longevity-sub000/internal/contextbuilder"
	"github.com/jmouallem/claude-longevity-sub000/internal/crypto"
	"github.com/jmouallem/claude-longevity-sub000/internal/intent"
	"github.com/jmouallem/claude-longevity-sub000/internal/model"
	"github.com/jmouallem/claude-longevity-sub000/internal/providers"
	"github.com/jmouallem/claude-longevity-sub000/internal/telemetry"
	"github.com/jmouallem/claude-longevity-sub000/internal/toolregistry"
	"github.com/jmouallem/claude-longevity-sub000/internal/toolregistry/websearch"
)

// ClientFactory builds a model.Client for a decrypted API key, overridable
// in tests. Defaults to providers.Get.
type ClientFactory func(providerID, apiKey string, opts providers.Options) (model.Client, error)

// Orchestrator is the chat turn entry point: one RunTurn call drives the
// twenty-step turn pipeline to completion, streaming the assistant's
// reply back over a Chunk channel. It holds no per-turn state itself —
// everything per-call lives in a fresh *turnState — so one Orchestrator is
// shared across every concurrent turn in the process, mirroring goa-ai's
// Runtime type (stateless dispatcher, per-run workflowLoop).
type Orchestrator struct {
	store   Store
	tools   *toolregistry.Registry
	ctxb    *contextbuilder.Builder
	enc     crypto.Encryptor
	engine  *analysis.Engine
	dispatch *analysis.Dispatcher
	search  *websearch.Client

	newClient ClientFactory

	log     telemetry.Logger
	metrics telemetry.Metrics
	tracer  telemetry.Tracer

	cfg Config
}

// Deps bundles Orchestrator's collaborators.
type Deps struct {
	Store        Store
	Tools        *toolregistry.Registry
	ContextBuilder *contextbuilder.Builder
	Encryptor    crypto.Encryptor
	Engine       *analysis.Engine
	Dispatcher   *analysis.Dispatcher
	WebSearch    *websearch.Client

	Logger  telemetry.Logger
	Metrics telemetry.Metrics
	Tracer  telemetry.Tracer

	Config Config
}

// New builds an Orchestrator from deps, defaulting unset telemetry
// collaborators to noop implementations the way toolregistry.New does.
func New(deps Deps) *Orchestrator {
	log := deps.Logger
	if log == nil {
		log = telemetry.NewNoopLogger()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = telemetry.NewNoopTracer()
	}
	return &Orchestrator{
		store:     deps.Store,
		tools:     deps.Tools,
		ctxb:      deps.ContextBuilder,
		enc:       deps.Encryptor,
		engine:    deps.Engine,
		dispatch:  deps.Dispatcher,
		search:    deps.WebSearch,
		newClient: providers.Get,
		log:       log,
		metrics:   metrics,
		tracer:    tracer,
		cfg:       deps.Config,
	}
}

// RunTurn drives one chat turn to completion and returns a channel the
// caller drains for streamed output; the channel is always closed with a
// terminal ChunkDone or ChunkError chunk, matching the turn pipeline's
// "emit the full text as one chunk plus done" / single "error" chunk
// contracts for the short-circuit paths.
func (o *Orchestrator) RunTurn(ctx context.Context, in Input) <-chan Chunk {
	ch := make(chan Chunk, 8)
	st := &turnState{
		userID:             in.UserID,
		runID:              fmt.Sprintf("turn-%d-%s", in.UserID, uuid.NewString()),
		rawMessage:         in.Message,
		effectiveMessage:   in.Message,
		image:              in.Image,
		specialistOverride: in.SpecialistOverride,
		ch:                 ch,
	}

	go func() {
		defer close(ch)
		o.run(ctx, st)
	}()
	return ch
}

// run sequences the twenty ordered steps, bailing out as soon as a step
// sets st.terminated.
func (o *Orchestrator) run(ctx context.Context, st *turnState) {
	ctx, span := o.tracer.Start(ctx, "turn.run")
	defer span.End()
	span.AddEvent("turn.started", "run_id", st.runID, "user_id", st.userID)

	steps := []func(context.Context, *turnState) (context.Context, error){
		o.stepPreFlight,                  // 1
		o.stepOpenScope,                  // 2
		o.stepImagePreAnalysis,           // 3
		o.stepTimeConfirmationGate,       // 4
		o.stepClassifyIntent,             // 5
		o.stepLowSignalCheckin,           // 6
		o.stepAutoFeedbackCapture,        // 7
		o.stepMenuCommandDetection,       // 8
		o.stepLogParseAndWrite,           // 9
		o.stepPostWriteMenuHints,         // 10
		o.stepProfileAutoSync,            // 11
		o.stepChecklistSync,              // 12
		o.stepGoalSync,                   // 13
		o.stepWebSearch,                  // 14
		o.stepTimeContextInjection,       // 15
		o.stepBackgroundAnalysisDispatch, // 16
		o.stepContextAssembly,            // 17
		o.stepStreamingGeneration,        // 18
		o.stepPostStreamAmendments,       // 19
		o.stepPersistence,                // 20
	}

	for _, step := range steps {
		if st.terminated {
			break
		}
		var err error
		ctx, err = step(ctx, st)
		if err != nil {
			st.terminated = true
			st.terminalErr = err
			break
		}
	}

	if st.terminalErr != nil {
		o.log.Error(ctx, "turn failed", "run_id", st.runID, "user_id", st.userID, "error", st.terminalErr)
		span.RecordError(st.terminalErr)
		st.emit(Chunk{Type: ChunkError, Text: st.terminalErr.Error()})
		return
	}
}
