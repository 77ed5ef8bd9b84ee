package turn

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmouallem/claude-longevity-sub000/internal/model"
	"github.com/jmouallem/claude-longevity-sub000/internal/providers"
)

// stepPreFlight is turn pipeline step 1: abort the turn with ErrConfigMissing
// when the user has no encrypted provider key, otherwise decrypt it and
// instantiate a model.Client scoped to the user's three configured model
// tiers.
func (o *Orchestrator) stepPreFlight(ctx context.Context, st *turnState) (context.Context, error) {
	user, err := o.store.GetUser(ctx, st.userID)
	if err != nil {
		return ctx, fmt.Errorf("load user: %w", err)
	}
	settings, err := o.store.GetSettings(ctx, st.userID)
	if err != nil {
		return ctx, fmt.Errorf("load settings: %w", err)
	}
	if !settings.HasAPIKey() {
		return ctx, ErrConfigMissing
	}

	apiKey, err := o.enc.Decrypt(settings.EncryptedAPIKey)
	if err != nil {
		return ctx, fmt.Errorf("decrypt provider key: %w", err)
	}
	client, err := o.newClient(settings.AIProviderID, apiKey, providers.Options{
		ReasoningModel: settings.ReasoningModel,
		UtilityModel:   settings.UtilityModel,
		DeepModel:      settings.DeepThinkModel,
	})
	if err != nil {
		return ctx, fmt.Errorf("build provider client: %w", err)
	}

	st.user = user
	st.settings = settings
	st.client = client
	return ctx, nil
}

// stepOpenScope is turn pipeline step 2: open the turn scope and thread it
// through ctx so every downstream step and tool call can record against it
// without a goroutine-local.
func (o *Orchestrator) stepOpenScope(ctx context.Context, st *turnState) (context.Context, error) {
	st.scope = NewScope()
	return WithScope(ctx, st.scope), nil
}

const imagePreAnalysisPrompt = "Describe the salient, health-relevant details in this image in 2-3 sentences (food items, portions, packaging/labels, posture, equipment). Be concise and factual."

// stepImagePreAnalysis is turn pipeline step 3: when the turn carries an
// image, ask the vision model for a short factual description and fold it
// into the effective message as bracketed context. A vision failure is
// logged to the scope and never aborts the turn — the rest of the pipeline
// proceeds on text alone.
func (o *Orchestrator) stepImagePreAnalysis(ctx context.Context, st *turnState) (context.Context, error) {
	if st.image == nil {
		return ctx, nil
	}
	resp, err := st.client.CompleteVision(ctx, imagePreAnalysisPrompt, *st.image, st.client.ReasoningModel())
	if err != nil {
		o.log.Warn(ctx, "image pre-analysis failed, continuing on text only", "user_id", st.userID, "error", err)
		st.fail("image_pre_analysis", err)
		return ctx, nil
	}
	st.scope.RecordReasoning(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	desc := strings.TrimSpace(responseText(resp))
	if desc != "" {
		st.effectiveMessage = strings.TrimSpace(st.effectiveMessage + "\n\n[Image context: " + desc + "]")
	}
	return ctx, nil
}

func responseText(resp *model.Response) string {
	var b strings.Builder
	for _, msg := range resp.Content {
		for _, p := range msg.Parts {
			if tp, ok := p.(model.TextPart); ok {
				b.WriteString(tp.Text)
			}
		}
	}
	return b.String()
}
