package turn

import (
	"context"
	"fmt"
	"strings"
)

// stepContextAssembly is turn pipeline step 17 : build the cached
// stable system prompt, then append whichever dynamic blocks this turn's
// earlier steps populated. Dynamic blocks are never part of the cached
// stable block itself, so they're appended here rather than threaded into
// contextbuilder.Builder.
func (o *Orchestrator) stepContextAssembly(ctx context.Context, st *turnState) (context.Context, error) {
	if st.terminated {
		return ctx, nil
	}

	stable, err := o.ctxb.BuildContext(ctx, st.userID, st.intentResult.Specialist, string(st.intentResult.Category))
	if err != nil {
		return ctx, fmt.Errorf("build system prompt: %w", err)
	}

	var dynamic []string
	for _, block := range []string{
		st.gateNote,
		st.menuActionNote,
		st.menuFollowUpNote,
		st.logWriteStatusNote,
		st.timeInferenceHint,
		st.pendingConfirmNote,
		st.goalSyncNote,
		st.webSearchNote,
		st.timeContextNote,
	} {
		if strings.TrimSpace(block) != "" {
			dynamic = append(dynamic, strings.TrimSpace(block))
		}
	}

	if len(dynamic) == 0 {
		st.systemPrompt = stable
		return ctx, nil
	}
	st.systemPrompt = stable + "\n\n## Turn Context\n" + strings.Join(dynamic, "\n\n")
	return ctx, nil
}
