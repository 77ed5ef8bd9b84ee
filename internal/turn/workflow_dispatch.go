package turn

import "context"

// stepBackgroundAnalysisDispatch is turn pipeline step 16: fire the
// single-flight per-user analysis sweep and move on without waiting on it.
// analysis.Dispatcher.TriggerForUser already does its own claim/release
// bookkeeping so a turn can never queue the same user twice while a run is
// in flight; no time-based debounce is applied between turns.
func (o *Orchestrator) stepBackgroundAnalysisDispatch(ctx context.Context, st *turnState) (context.Context, error) {
	if o.dispatch == nil {
		return ctx, nil
	}
	o.dispatch.TriggerForUser(ctx, st.userID)
	return ctx, nil
}
