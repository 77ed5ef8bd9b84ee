package turn

import (
	"context"

	"github.com/jmouallem/claude-longevity-sub000/internal/intent"
)

// stepClassifyIntent is turn pipeline step 5: route the effective message to
// a category and specialist, skipped only when step 4 already consumed the
// message as a time-confirmation reply.
func (o *Orchestrator) stepClassifyIntent(ctx context.Context, st *turnState) (context.Context, error) {
	if st.gateConsumed {
		return ctx, nil
	}

	result := intent.ClassifyIntent(ctx, st.client, st.effectiveMessage, intent.ClassifyOptions{
		UserOverride:       st.specialistOverride,
		AllowedSpecialists: intent.DefaultAllowedSpecialists,
		AllowModelCall:     st.scope.UnderBudget(o.budgetFor(st)),
	}, o.log)
	st.scope.RecordUtility(0, 0)

	st.intentResult = result
	return ctx, nil
}

// budgetFor returns the utility-call ceiling for this turn: a stricter
// budget for log_* categories, which lean on deterministic parsing rather
// than repeated model calls, and a looser one otherwise. Category isn't
// known yet on the very first utility call (classification itself), so the
// non-log ceiling governs classification; stepLogParseAndWrite re-checks
// against the log ceiling once the category is known.
func (o *Orchestrator) budgetFor(st *turnState) int {
	return o.cfg.UtilityCallBudgetNonLogTurn
}
