package analysis

import (
	"context"
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
)

// proposalTitleSimilarityThreshold mirrors combine_similar_pending_proposals'
// 0.82 cutoff for treating two proposals as duplicates.
const proposalTitleSimilarityThreshold = 0.82

var titleTokenRe = regexp.MustCompile(`[a-z0-9]+`)

// normalizeTitleTokens lowercases, tokenizes, and strips stopwords and
// short tokens from a proposal title, matching _normalize_title_tokens.
func normalizeTitleTokens(title string) []string {
	raw := titleTokenRe.FindAllString(strings.ToLower(title), -1)
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		if len(t) >= 3 && !proposalTitleStopwords[t] {
			out = append(out, t)
		}
	}
	return out
}

// titleSimilarity scores two titles with the same ratio Python's
// difflib.SequenceMatcher produces, using go-difflib (already carried as a
// testify dependency) over the per-character runs of the stopword-stripped,
// space-joined token strings — matching SequenceMatcher(None, a_norm, b_norm)
// operating on character sequences rather than token sequences.
func titleSimilarity(a, b string) float64 {
	aTokens := normalizeTitleTokens(a)
	bTokens := normalizeTitleTokens(b)
	if len(aTokens) == 0 || len(bTokens) == 0 {
		return 0
	}
	aNorm := strings.Join(aTokens, " ")
	bNorm := strings.Join(bTokens, " ")
	matcher := difflib.NewMatcher(splitChars(aNorm), splitChars(bNorm))
	return matcher.Ratio()
}

func splitChars(s string) []string {
	runes := []rune(s)
	out := make([]string, len(runes))
	for i, r := range runes {
		out[i] = string(r)
	}
	return out
}

func proposalTarget(payload json.RawMessage) string {
	if len(payload) == 0 {
		return ""
	}
	var obj map[string]any
	if err := json.Unmarshal(payload, &obj); err != nil {
		return ""
	}
	if v, ok := obj["target"].(string); ok {
		return strings.ToLower(strings.TrimSpace(v))
	}
	return ""
}

// proposalsAreSimilar reports whether left and right should be treated as
// duplicates: same kind, compatible (or absent) target, and title
// similarity at or above the threshold, matching _proposals_are_similar.
func proposalsAreSimilar(left, right *domain.AnalysisProposal) bool {
	if left.Kind != right.Kind {
		return false
	}
	lTarget := proposalTarget(left.Payload)
	rTarget := proposalTarget(right.Payload)
	if lTarget != "" && rTarget != "" && lTarget != rTarget {
		return false
	}
	return titleSimilarity(left.Title, right.Title) >= proposalTitleSimilarityThreshold
}

type mergedProposalTrace struct {
	ProposalID    int64   `json:"proposal_id"`
	AnalysisRunID int64   `json:"analysis_run_id"`
	Title         string  `json:"title"`
	Confidence    *float64 `json:"confidence"`
	CreatedAt     string  `json:"created_at"`
}

// mergeProposalsIntoSurvivor folds duplicate's data into survivor's payload
// trace, confidence, rationale, and diff markdown, matching
// _merge_proposals_into_survivor. Mutates survivor in place; the caller is
// responsible for deleting duplicate afterward.
func mergeProposalsIntoSurvivor(survivor, duplicate *domain.AnalysisProposal) error {
	var payload map[string]any
	if len(survivor.Payload) > 0 {
		if err := json.Unmarshal(survivor.Payload, &payload); err != nil {
			payload = map[string]any{}
		}
	} else {
		payload = map[string]any{}
	}

	var merged []mergedProposalTrace
	if raw, ok := payload["_merged_proposals"]; ok {
		if b, err := json.Marshal(raw); err == nil {
			_ = json.Unmarshal(b, &merged)
		}
	}
	merged = append(merged, mergedProposalTrace{
		ProposalID:    duplicate.ID,
		AnalysisRunID: duplicate.RunID,
		Title:         duplicate.Title,
		Confidence:    duplicate.Confidence,
		CreatedAt:     duplicate.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	})
	if len(merged) > 40 {
		merged = merged[len(merged)-40:]
	}
	payload["_merged_proposals"] = merged

	mergeCount := 0
	if v, ok := payload["_merge_count"].(float64); ok {
		mergeCount = int(v)
	}
	payload["_merge_count"] = mergeCount + 1

	runIDSet := map[int64]bool{survivor.RunID: true}
	for _, m := range merged {
		runIDSet[m.AnalysisRunID] = true
	}
	runIDs := make([]int64, 0, len(runIDSet))
	for id := range runIDSet {
		runIDs = append(runIDs, id)
	}
	sort.Slice(runIDs, func(i, j int) bool { return runIDs[i] < runIDs[j] })
	payload["_merged_run_ids"] = runIDs

	newPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	survivor.Payload = newPayload
	survivor.MergedIDs = runIDs
	survivor.MergeCount = mergeCount + 1

	if duplicate.Confidence != nil {
		if survivor.Confidence == nil {
			survivor.Confidence = duplicate.Confidence
		} else if *duplicate.Confidence > *survivor.Confidence {
			survivor.Confidence = duplicate.Confidence
		}
	}

	dupRationale := strings.TrimSpace(duplicate.Rationale)
	if dupRationale != "" && !strings.Contains(survivor.Rationale, dupRationale) {
		survivor.Rationale = strings.Trim(strings.TrimSpace(survivor.Rationale)+" | "+dupRationale, " |")
	}
	if survivor.DiffMarkdown == "" && duplicate.DiffMarkdown != "" {
		survivor.DiffMarkdown = duplicate.DiffMarkdown
	}
	return nil
}

// combineSimilarPendingProposals scans every pending proposal for userID,
// newest first, and folds later-found (older) duplicates into the first
// matching proposal it has already kept, so the newest survives, matching
// combine_similar_pending_proposals. Deleted duplicates are removed via
// store.DeleteProposal after being merged.
func combineSimilarPendingProposals(ctx context.Context, store Store, userID int64) (merged int, remaining int, err error) {
	rows, err := store.PendingProposals(ctx, userID)
	if err != nil {
		return 0, 0, err
	}

	var survivors []*domain.AnalysisProposal
	for _, row := range rows {
		var match *domain.AnalysisProposal
		for _, s := range survivors {
			if proposalsAreSimilar(s, row) {
				match = s
				break
			}
		}
		if match == nil {
			survivors = append(survivors, row)
			continue
		}
		if err := mergeProposalsIntoSurvivor(match, row); err != nil {
			return merged, len(survivors), err
		}
		if err := store.UpdateProposal(ctx, match); err != nil {
			return merged, len(survivors), err
		}
		if err := store.DeleteProposal(ctx, row.ID); err != nil {
			return merged, len(survivors), err
		}
		merged++
	}
	return merged, len(survivors), nil
}
