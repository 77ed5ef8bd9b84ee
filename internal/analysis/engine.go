// Package analysis implements the longitudinal analysis engine: periodic
// deterministic metric rollups plus a three-tier LLM pipeline (utility
// signal extraction, reasoning synthesis, and monthly deep-thinking
// root-cause synthesis) that together produce an AnalysisRun and any
// adaptation proposals. Grounded throughout on
// original_source/backend/services/analysis_service.py.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jmouallem/claude-longevity-sub000/internal/crypto"
	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
	"github.com/jmouallem/claude-longevity-sub000/internal/model"
	"github.com/jmouallem/claude-longevity-sub000/internal/providers"
	"github.com/jmouallem/claude-longevity-sub000/internal/telemetry"
)

// Engine runs longitudinal analyses and manages their resulting proposals.
type Engine struct {
	store    Store
	enc      crypto.Encryptor
	log      telemetry.Logger
	metrics  telemetry.Metrics

	// AutoApplyProposals mirrors ANALYSIS_AUTO_APPLY_PROPOSALS: when true,
	// freshly inserted non-experiment proposals are approved immediately
	// after a run, and those targeting the framework layer are also applied.
	AutoApplyProposals bool
}

// New builds an Engine.
func New(store Store, enc crypto.Encryptor, log telemetry.Logger, metrics telemetry.Metrics) *Engine {
	return &Engine{store: store, enc: enc, log: log, metrics: metrics}
}

type reasoningSynthesis struct {
	Confidence      float64              `json:"confidence"`
	SummaryMarkdown string               `json:"summary_markdown"`
	RiskFlags       []domain.RiskFlag    `json:"risk_flags"`
	Recommendations []recommendation     `json:"recommendations"`
	Proposals       []proposalDraft      `json:"proposals"`
}

type recommendation struct {
	Title                    string `json:"title"`
	Detail                   string `json:"detail"`
	Priority                 string `json:"priority"`
	RequiresUserConfirmation bool   `json:"requires_user_confirmation"`
}

type proposalDraft struct {
	ProposalKind string          `json:"proposal_kind"`
	Title        string          `json:"title"`
	Rationale    string          `json:"rationale"`
	Confidence   float64         `json:"confidence"`
	Payload      json.RawMessage `json:"payload"`
	DiffMarkdown string          `json:"diff_markdown"`
}

type deepSynthesis struct {
	RootCauses                 []string        `json:"root_causes"`
	PromptAdjustmentProposals  []proposalDraft `json:"prompt_adjustment_proposals"`
	Confidence                 float64         `json:"confidence"`
}

// RunLongitudinalAnalysis executes one windowed analysis for userID ending
// on targetDay, matching run_longitudinal_analysis. If the run for this
// exact window already completed (or is in-flight) and force is false, the
// existing row is returned unchanged and alreadyDone reports true.
func (e *Engine) RunLongitudinalAnalysis(ctx context.Context, userID int64, runType domain.RunType, targetDay time.Time, trigger string, force bool) (run *domain.AnalysisRun, alreadyDone bool, err error) {
	window := windowFor(runType, targetDay)

	run, alreadyDone, err = e.store.BeginRun(ctx, userID, runType, window.PeriodStart, window.PeriodEnd, trigger, force)
	if err != nil {
		return nil, false, fmt.Errorf("analysis: begin run: %w", err)
	}
	if alreadyDone {
		return run, true, nil
	}

	if failErr := e.runWindow(ctx, run, userID, window); failErr != nil {
		e.log.Error(ctx, "analysis run failed", "user_id", userID, "run_type", runType, "error", failErr)
		if ferr := e.store.FailRun(ctx, run.ID, failErr.Error()); ferr != nil {
			return nil, false, fmt.Errorf("analysis: fail run after error %q: %w", failErr, ferr)
		}
		run.Status = domain.RunStatusFailed
		run.ErrorMessage = failErr.Error()
		return run, false, nil
	}

	return run, false, nil
}

func (e *Engine) runWindow(ctx context.Context, run *domain.AnalysisRun, userID int64, window Window) error {
	user, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	settings, err := e.store.GetSettings(ctx, userID)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if !settings.HasAPIKey() {
		return fmt.Errorf("no AI provider configured for user")
	}

	tzName := settings.Timezone
	if tzName == "" {
		tzName = "UTC"
	}

	metrics, missingDomains, riskFlags, err := collectPeriodMetrics(ctx, e.store, user, settings, window, tzName)
	if err != nil {
		return fmt.Errorf("collect metrics: %w", err)
	}

	baseline := 0.6
	if len(missingDomains) > 0 {
		baseline = 0.4
	}

	apiKey, err := e.enc.Decrypt(settings.EncryptedAPIKey)
	if err != nil {
		return fmt.Errorf("decrypt provider key: %w", err)
	}
	client, err := providers.Get(settings.AIProviderID, apiKey, providers.Options{
		ReasoningModel: settings.ReasoningModel,
		UtilityModel:   settings.UtilityModel,
		DeepModel:      settings.DeepThinkModel,
	})
	if err != nil {
		return fmt.Errorf("construct provider client: %w", err)
	}

	signals, err := extractSignalAnnotations(ctx, client, userID, window, tzName, e.store)
	if err != nil {
		return fmt.Errorf("extract signal annotations: %w", err)
	}

	reasoningPayload, err := json.Marshal(map[string]any{
		"window":          metrics.Window,
		"metrics":         metrics,
		"missing_domains": missingDomains,
		"deterministic_risk_flags": riskFlags,
		"signals":         signals,
	})
	if err != nil {
		return fmt.Errorf("marshal reasoning payload: %w", err)
	}

	synthesis, err := e.callReasoningSynthesis(ctx, client, reasoningPayload)
	if err != nil {
		return fmt.Errorf("reasoning synthesis: %w", err)
	}

	allRiskFlags := append(append([]domain.RiskFlag{}, riskFlags...), synthesis.RiskFlags...)

	drafts := append([]proposalDraft{}, synthesis.Proposals...)
	var rootCauses []string
	if run.RunType == domain.RunMonthly {
		deep, err := e.callDeepSynthesis(ctx, client, reasoningPayload, synthesis)
		if err != nil {
			e.log.Warn(ctx, "deep synthesis failed, continuing without root-cause pass", "user_id", userID, "error", err)
		} else {
			rootCauses = deep.RootCauses
			drafts = append(drafts, deep.PromptAdjustmentProposals...)
			if deep.Confidence > 0 && deep.Confidence < synthesis.Confidence {
				synthesis.Confidence = deep.Confidence
			}
		}
	}

	finalConfidence := clamp01(math.Min(baseline, nonZeroOr(synthesis.Confidence, baseline)))

	synthesisOut := map[string]any{
		"summary_markdown": synthesis.SummaryMarkdown,
		"recommendations":  synthesis.Recommendations,
		"signals":          signals,
	}
	if len(rootCauses) > 0 {
		synthesisOut["root_causes"] = rootCauses
	}
	synthesisJSON, err := json.Marshal(synthesisOut)
	if err != nil {
		return fmt.Errorf("marshal synthesis: %w", err)
	}
	metricsJSON, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}

	now := time.Now().UTC()
	run.Metrics = metricsJSON
	run.MissingData = missingDomains
	run.RiskFlags = allRiskFlags
	run.Synthesis = synthesisJSON
	run.MarkdownSummary = synthesis.SummaryMarkdown
	run.ReasoningModel = client.ReasoningModel()
	run.UtilityModel = client.UtilityModel()
	run.DeepModel = client.DeepThinkingModel()
	run.Confidence = finalConfidence
	run.Status = domain.RunStatusCompleted
	run.CompletedAt = &now
	run.UpdatedAt = now

	if err := e.store.CompleteRun(ctx, run); err != nil {
		return fmt.Errorf("persist completed run: %w", err)
	}

	proposalRows := prepareProposalRows(run, userID, drafts)
	if len(proposalRows) > 0 {
		if err := e.store.InsertProposals(ctx, proposalRows); err != nil {
			return fmt.Errorf("insert proposals: %w", err)
		}
	}

	if _, _, err := combineSimilarPendingProposals(ctx, e.store, userID); err != nil {
		e.log.Warn(ctx, "combine similar proposals failed", "user_id", userID, "error", err)
	}

	if e.AutoApplyProposals {
		e.autoApplyEligibleProposals(ctx, userID, proposalRows)
	}

	return nil
}

// prepareProposalRows turns model-proposed drafts into AnalysisProposal
// rows attached to run, matching _prepare_proposal_rows.
func prepareProposalRows(run *domain.AnalysisRun, userID int64, drafts []proposalDraft) []*domain.AnalysisProposal {
	rows := make([]*domain.AnalysisProposal, 0, len(drafts))
	now := time.Now().UTC()
	for _, d := range drafts {
		kind := domain.ProposalKind(strings.TrimSpace(d.ProposalKind))
		switch kind {
		case domain.ProposalGuidanceUpdate, domain.ProposalPromptAdjust, domain.ProposalExperiment:
		default:
			kind = domain.ProposalGuidanceUpdate
		}
		title := strings.TrimSpace(d.Title)
		if title == "" {
			continue
		}
		conf := d.Confidence
		row := &domain.AnalysisProposal{
			RunID:            run.ID,
			UserID:           userID,
			Kind:             kind,
			Status:           domain.ProposalPending,
			Title:            title,
			Rationale:        d.Rationale,
			Confidence:       &conf,
			Payload:          d.Payload,
			Target:           proposalTarget(d.Payload),
			DiffMarkdown:     d.DiffMarkdown,
			RequiresApproval: true,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		rows = append(rows, row)
	}
	return rows
}

// autoApplyEligibleProposals walks the freshly inserted proposals in
// insertion order, matching the ANALYSIS_AUTO_APPLY_PROPOSALS branch of
// run_longitudinal_analysis: experiments are skipped, every other proposal
// is approved, and only those whose payload targets the framework layer
// are then applied. Recommendation-level requires_user_confirmation flags
// are not consulted.
func (e *Engine) autoApplyEligibleProposals(ctx context.Context, userID int64, rows []*domain.AnalysisProposal) {
	for _, row := range rows {
		if row.Kind == domain.ProposalExperiment {
			continue
		}
		if _, err := e.ReviewProposal(ctx, userID, row.ID, "approve", nil, "auto-applied"); err != nil {
			e.log.Warn(ctx, "auto-approve proposal failed", "proposal_id", row.ID, "error", err)
			continue
		}
		if row.Target != "framework" {
			continue
		}
		if _, err := e.ReviewProposal(ctx, userID, row.ID, "apply", nil, "auto-applied"); err != nil {
			e.log.Warn(ctx, "auto-apply proposal failed", "proposal_id", row.ID, "error", err)
		}
	}
}

func (e *Engine) callReasoningSynthesis(ctx context.Context, client model.Client, payload json.RawMessage) (reasoningSynthesis, error) {
	req := &model.Request{
		Model:      client.ReasoningModel(),
		ModelClass: model.ModelClassHighReasoning,
		System:     strictJSONSystemPrompt,
		Messages: []*model.Message{
			{Role: model.RoleUser, Parts: []model.Part{model.TextPart{Text: fmt.Sprintf("%s\n\nData:\n%s", reasoningSynthesisPrompt, payload)}}},
		},
		MaxTokens: 4096,
	}
	resp, err := client.Complete(ctx, req)
	if err != nil {
		return reasoningSynthesis{}, err
	}
	var out reasoningSynthesis
	if err := json.Unmarshal([]byte(stripJSONFence(responseText(resp))), &out); err != nil {
		return reasoningSynthesis{}, fmt.Errorf("parse reasoning response: %w", err)
	}
	return out, nil
}

func (e *Engine) callDeepSynthesis(ctx context.Context, client model.Client, basePayload json.RawMessage, synthesis reasoningSynthesis) (deepSynthesis, error) {
	payload, err := json.Marshal(map[string]any{
		"base_data":           json.RawMessage(basePayload),
		"existing_synthesis":  synthesis,
	})
	if err != nil {
		return deepSynthesis{}, err
	}
	req := &model.Request{
		Model:      client.DeepThinkingModel(),
		ModelClass: model.ModelClassHighReasoning,
		System:     strictJSONSystemPrompt,
		Thinking:   &model.ThinkingOptions{Enable: true, BudgetTokens: 4096},
		Messages: []*model.Message{
			{Role: model.RoleUser, Parts: []model.Part{model.TextPart{Text: fmt.Sprintf("%s\n\nData:\n%s", deepSynthesisPrompt, payload)}}},
		},
		MaxTokens: 4096,
	}
	resp, err := client.Complete(ctx, req)
	if err != nil {
		return deepSynthesis{}, err
	}
	var out deepSynthesis
	if err := json.Unmarshal([]byte(stripJSONFence(responseText(resp))), &out); err != nil {
		return deepSynthesis{}, fmt.Errorf("parse deep synthesis response: %w", err)
	}
	return out, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func nonZeroOr(v, fallback float64) float64 {
	if v == 0 {
		return fallback
	}
	return v
}
