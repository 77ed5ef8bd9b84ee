package toolregistry

import (
	"context"

	"github.com/jmouallem/claude-longevity-sub000/internal/tools"
	"github.com/jmouallem/claude-longevity-sub000/internal/toolregistry/websearch"
)

// ToolWebSearch is the one AI-callable web search tool, spanning all three
// configured sources. Grounded on
// original_source/backend/tools/web_tools.py's health_search tool, which
// queries duckduckgo/wikipedia/pubmed and merges their results.
const ToolWebSearch tools.Ident = "web_search"

// RegisterWebSearchTool attaches the web_search tool to reg, backed by
// client.
func RegisterWebSearchTool(reg *Registry, client *websearch.Client) {
	reg.Register(tools.ToolSpec{
		Name:           ToolWebSearch,
		Description:    "Search the web (general, encyclopedic, and medical literature sources) for health and longevity information.",
		RequiredFields: []string{"query"},
		ReadOnly:       true,
		AICallable:     true,
	}, handleWebSearch(client))
}

func handleWebSearch(client *websearch.Client) Handler {
	return func(ctx context.Context, userID string, payload map[string]any) (any, error) {
		query := toStr(payload["query"])
		if query == "" {
			return nil, tools.NewExecutionError(ToolWebSearch, "`query` is required")
		}
		maxResults := 5
		if n, ok := toInt(payload["max_results"]); ok && n > 0 {
			maxResults = n
		}

		sources := []string{"duckduckgo", "wikipedia"}
		if medical, ok := payload["medical"].(bool); ok && medical {
			sources = []string{"pubmed", "duckduckgo"}
		}

		var merged []websearch.Result
		var lastErr error
		for _, source := range sources {
			results, err := client.Search(ctx, source, query, maxResults)
			if err != nil {
				lastErr = err
				continue
			}
			merged = append(merged, results...)
		}
		if len(merged) == 0 && lastErr != nil {
			return nil, tools.NewExecutionError(ToolWebSearch, "all search sources unavailable: "+lastErr.Error())
		}
		if len(merged) > maxResults {
			merged = merged[:maxResults]
		}
		return map[string]any{"query": query, "results": merged}, nil
	}
}
