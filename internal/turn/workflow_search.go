package turn

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jmouallem/claude-longevity-sub000/internal/toolregistry"
	"github.com/jmouallem/claude-longevity-sub000/internal/toolregistry/websearch"
)

func stringInList(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}

// stepWebSearch is turn pipeline step 14: for an allow-listed ask category
// and specialist, run the web_search tool and carry its results for step 17
// to fold into the assembled prompt. The tool itself fans out across DDG,
// Wikipedia, and PubMed with per-provider circuit breakers; this step is
// only the turn-level gate in front of it.
func (o *Orchestrator) stepWebSearch(ctx context.Context, st *turnState) (context.Context, error) {
	if st.gateConsumed || st.terminated || st.pureMenuCommand {
		return ctx, nil
	}
	if !o.cfg.EnableWebSearch {
		return ctx, nil
	}
	if len(o.cfg.WebSearchAllowedCategories) > 0 && !stringInList(o.cfg.WebSearchAllowedCategories, string(st.intentResult.Category)) {
		return ctx, nil
	}
	if len(o.cfg.WebSearchAllowedSpecialists) > 0 && !stringInList(o.cfg.WebSearchAllowedSpecialists, st.intentResult.Specialist) {
		return ctx, nil
	}
	if o.search == nil {
		return ctx, nil
	}

	searchCtx, cancel := context.WithTimeout(ctx, o.cfg.WebSearchTimeout)
	defer cancel()

	result, err := o.tools.CallTool(searchCtx, toolregistry.ToolWebSearch, fmt.Sprint(st.userID), mustJSON(map[string]any{
		"query":    st.effectiveMessage,
		"medical":  st.intentResult.Category == "ask_medical",
		"max_results": o.cfg.WebSearchMaxResults,
	}))
	if err != nil {
		o.log.Warn(ctx, "web search failed", "user_id", st.userID, "error", err)
		st.fail("web_search", err)
		return ctx, nil
	}
	resMap, _ := result.(map[string]any)
	results, _ := resMap["results"].([]websearch.Result)
	if len(results) == 0 {
		return ctx, nil
	}
	st.webSearchResults = results

	var b strings.Builder
	b.WriteString("Recent web search results (cite sparingly, prefer your own knowledge where it suffices):\n")
	for _, r := range results {
		fmt.Fprintf(&b, "- %s (%s): %s\n", r.Title, r.Source, r.Snippet)
	}
	st.webSearchNote = b.String()
	return ctx, nil
}

var timeQuestionRe = regexp.MustCompile(`(?i)\b(what('?s| is) the time|what time is it|what('?s| is) (today'?s )?date|what day is it)\b`)

// stepTimeContextInjection is turn pipeline step 15: when the message asks a
// "what time/date is it"-style question, call time_now and append an
// authoritative clock reading so the model doesn't guess from training data.
func (o *Orchestrator) stepTimeContextInjection(ctx context.Context, st *turnState) (context.Context, error) {
	if st.gateConsumed || st.terminated || st.pureMenuCommand {
		return ctx, nil
	}
	if !timeQuestionRe.MatchString(st.rawMessage) {
		return ctx, nil
	}

	result, err := o.tools.CallTool(ctx, toolregistry.ToolTimeNow, fmt.Sprint(st.userID), mustJSON(map[string]any{}))
	if err != nil {
		return ctx, nil
	}
	resMap, _ := result.(map[string]any)
	local, _ := resMap["local"].(string)
	tz, _ := resMap["timezone"].(string)
	if local == "" {
		return ctx, nil
	}
	st.timeContextNote = fmt.Sprintf("Authoritative current time for this user (%s): %s", tz, local)
	return ctx, nil
}
