package analysis

import (
	"strings"

	"github.com/jmouallem/claude-longevity-sub000/internal/model"
)

// responseText concatenates every TextPart across a response's content
// messages, mirroring the same helper duplicated in internal/intent and
// internal/logparser — each package's model-call surface is narrow enough
// that sharing it isn't worth an extra import.
func responseText(resp *model.Response) string {
	var b strings.Builder
	for _, msg := range resp.Content {
		for _, part := range msg.Parts {
			if tp, ok := part.(model.TextPart); ok {
				b.WriteString(tp.Text)
			}
		}
	}
	return b.String()
}

// stripJSONFence removes a leading/trailing ``` or ```json code fence, if
// present, before JSON-decoding a model response.
func stripJSONFence(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	if idx := strings.IndexByte(t, '\n'); idx >= 0 {
		first := strings.ToLower(strings.TrimSpace(t[:idx]))
		if first == "json" || first == "" {
			t = t[idx+1:]
		}
	}
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return strings.TrimSpace(t)
}
