package turn

import (
	"context"
	"strings"
)

// stepPostStreamAmendments is turn pipeline step 19: if a menu or goal
// follow-up line should be surfaced and the generated reply didn't already
// say it, tack it on as one extra chunk rather than re-running generation.
func (o *Orchestrator) stepPostStreamAmendments(ctx context.Context, st *turnState) (context.Context, error) {
	if st.terminated {
		return ctx, nil
	}

	lowerText := strings.ToLower(st.responseText)
	for _, note := range []string{st.menuFollowUpNote, st.goalSyncNote} {
		note = strings.TrimSpace(note)
		if note == "" {
			continue
		}
		if strings.Contains(lowerText, strings.ToLower(firstSentence(note))) {
			continue
		}
		st.responseText += "\n\n" + note
		st.emit(Chunk{Type: ChunkText, Text: "\n\n" + note})
	}
	return ctx, nil
}

func firstSentence(s string) string {
	if i := strings.IndexAny(s, ".!?"); i > 0 {
		return s[:i]
	}
	return s
}
