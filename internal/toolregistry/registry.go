// Package toolregistry provides in-process tool registration and execution
// for the turn orchestrator. It is a trimmed descendant of goa-ai's
// runtime/toolregistry/executor package, whose executor routes tool calls
// through a registry gateway and awaits results on Pulse/Redis streams
// because goa-ai tools execute as out-of-process workflow activities. This
// core has no distributed workflow engine — its tools run as ordinary Go
// functions in the same process as the turn orchestrator — so CallTool here
// is a direct function call guarded by spec validation instead of a round
// trip through a message broker.
package toolregistry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/jmouallem/claude-longevity-sub000/internal/telemetry"
	"github.com/jmouallem/claude-longevity-sub000/internal/tools"
)

// Handler executes one tool call for a given user, returning a JSON-encodable
// result or a *tools.ToolExecutionError.
type Handler func(ctx context.Context, userID string, payload map[string]any) (any, error)

type entry struct {
	spec    tools.ToolSpec
	handler Handler
}

// Registry holds the tools available to a turn, keyed by identifier.
type Registry struct {
	entries map[tools.Ident]entry
	logger  telemetry.Logger
	tracer  telemetry.Tracer
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry's logger. Defaults to a noop logger.
func WithLogger(l telemetry.Logger) Option { return func(r *Registry) { r.logger = l } }

// WithTracer sets the registry's tracer. Defaults to a noop tracer.
func WithTracer(t telemetry.Tracer) Option { return func(r *Registry) { r.tracer = t } }

// New builds an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[tools.Ident]entry),
		logger:  telemetry.NewNoopLogger(),
		tracer:  telemetry.NewNoopTracer(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a tool spec and its handler. Registering the same name twice
// is a programmer error and panics, a fail-fast registration contract for
// statically known tool sets.
func (r *Registry) Register(spec tools.ToolSpec, handler Handler) {
	if spec.Name == "" {
		panic("toolregistry: tool spec missing name")
	}
	if _, exists := r.entries[spec.Name]; exists {
		panic(fmt.Sprintf("toolregistry: tool %q already registered", spec.Name))
	}
	r.entries[spec.Name] = entry{spec: spec, handler: handler}
}

// Spec returns the registered spec for name, implementing the executor's
// SpecLookup contract.
func (r *Registry) Spec(name tools.Ident) (*tools.ToolSpec, bool) {
	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	spec := e.spec
	return &spec, true
}

// Definitions returns the tool set visible to a given specialist, in the
// model.ToolDefinition-ready shape (name, description, schema), restricted
// to tools whose AllowedSpecialists permits either the specialist or is
// unrestricted, and whose AICallable flag is set.
func (r *Registry) Definitions(specialist string) []ToolDescriptor {
	out := make([]ToolDescriptor, 0, len(r.entries))
	for name, e := range r.entries {
		if !e.spec.AICallable {
			continue
		}
		if !specialistAllowed(e.spec, specialist) {
			continue
		}
		out = append(out, ToolDescriptor{
			Name:        name,
			Description: e.spec.Description,
			Schema:      e.spec.Payload.Schema,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ToolDescriptor is the minimal shape a caller needs to build a
// model.ToolDefinition without importing internal/tools directly.
type ToolDescriptor struct {
	Name        tools.Ident
	Description string
	Schema      []byte
}

func specialistAllowed(spec tools.ToolSpec, specialist string) bool {
	if len(spec.AllowedSpecialists) == 0 {
		return true
	}
	return spec.AllowedSpecialists[specialist]
}

// CallTool validates the payload against the tool's required fields, then
// invokes the registered handler in-process. It returns a
// *tools.ToolExecutionError on validation failure or handler failure; other
// errors indicate a registry misuse bug (unknown tool).
func (r *Registry) CallTool(ctx context.Context, name tools.Ident, userID string, rawPayload []byte) (result any, err error) {
	ctx, span := r.tracer.Start(ctx, "toolregistry.call_tool")
	defer span.End()

	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("toolregistry: unknown tool %q", name)
	}

	var payload map[string]any
	if len(rawPayload) > 0 {
		if err := json.Unmarshal(rawPayload, &payload); err != nil {
			return nil, tools.NewExecutionError(name, fmt.Sprintf("invalid JSON payload: %v", err))
		}
	}
	if payload == nil {
		payload = map[string]any{}
	}
	if issues := missingFields(e.spec.RequiredFields, payload); len(issues) > 0 {
		r.logger.Warn(ctx, "tool call missing required fields", "tool", string(name), "fields", issues)
		return nil, tools.NewMissingFieldError(name, issues...)
	}

	r.logger.Debug(ctx, "executing tool", "tool", string(name), "user_id", userID, "read_only", e.spec.ReadOnly)
	out, err := e.handler(ctx, userID, payload)
	if err != nil {
		span.RecordError(err)
		var execErr *tools.ToolExecutionError
		if isExecutionError(err, &execErr) {
			return nil, execErr
		}
		return nil, tools.NewExecutionError(name, err.Error())
	}
	return out, nil
}

func missingFields(required []string, payload map[string]any) []string {
	var missing []string
	for _, f := range required {
		if _, ok := payload[f]; !ok {
			missing = append(missing, f)
		}
	}
	return missing
}

func isExecutionError(err error, target **tools.ToolExecutionError) bool {
	if e, ok := err.(*tools.ToolExecutionError); ok {
		*target = e
		return true
	}
	return false
}
