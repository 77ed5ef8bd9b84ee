package analysis

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
)

var frameworkNameNonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// normalizeFrameworkName collapses a framework name to its comparison key,
// matching health_framework_service.normalize_framework_name.
func normalizeFrameworkName(name string) string {
	lower := frameworkNameNonAlnumRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), " ")
	return strings.Join(strings.Fields(lower), " ")
}

func clampScore(v float64) int {
	s := int(v + 0.5)
	if v < 0 {
		s = int(v - 0.5)
	}
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

func frameworkSnapshot(f *domain.HealthOptimizationFramework) map[string]any {
	return map[string]any{
		"framework_id":   f.ID,
		"framework_type": string(f.Type),
		"name":           f.Name,
		"priority_score": f.Priority,
		"is_active":      f.IsActive,
		"source":         f.Source,
		"rationale":      f.Rationale,
	}
}

type frameworkOp struct {
	Op            string  `json:"op"`
	FrameworkID   *int64  `json:"framework_id,omitempty"`
	FrameworkType string  `json:"framework_type,omitempty"`
	Name          string  `json:"name,omitempty"`
	PriorityScore *float64 `json:"priority_score,omitempty"`
	IsActive      *bool   `json:"is_active,omitempty"`
	Rationale     string  `json:"rationale,omitempty"`
}

type undoOp struct {
	Op          string         `json:"op"`
	FrameworkID int64          `json:"framework_id,omitempty"`
	Snapshot    map[string]any `json:"snapshot,omitempty"`
}

// applyFrameworkResult mirrors the Python dict returned by
// _apply_framework_proposal / _undo_framework_proposal.
type applyFrameworkResult struct {
	Applied int
	Errors  []string
	UndoOps []undoOp
}

// applyFrameworkProposal executes a proposal's {"target":"framework",
// "operations":[...]} payload: upsert/update only, never delete, matching
// _apply_framework_proposal. It snapshots whatever it touches so
// undoFrameworkProposal can restore prior state.
func applyFrameworkProposal(ctx context.Context, store Store, userID int64, operations []frameworkOp) applyFrameworkResult {
	var result applyFrameworkResult
	for idx, op := range operations {
		kind := strings.ToLower(strings.TrimSpace(op.Op))
		if kind == "" {
			kind = "upsert"
		}
		if kind == "delete" {
			result.Errors = append(result.Errors, fmt.Sprintf("Operation %d: delete is not allowed for adaptive framework updates", idx))
			continue
		}

		if kind == "update" {
			if op.FrameworkID == nil {
				result.Errors = append(result.Errors, fmt.Sprintf("Operation %d: framework_id is required for update", idx))
				continue
			}
			before, err := store.GetFramework(ctx, userID, *op.FrameworkID)
			if err != nil || before == nil {
				result.Errors = append(result.Errors, fmt.Sprintf("Operation %d: framework_id %d not found", idx, *op.FrameworkID))
				continue
			}
			result.UndoOps = append(result.UndoOps, undoOp{Op: "restore", Snapshot: frameworkSnapshot(before)})
			updated := *before
			if op.FrameworkType != "" {
				updated.Type = domain.FrameworkType(op.FrameworkType)
			}
			if op.Name != "" {
				updated.Name = op.Name
			}
			if op.PriorityScore != nil {
				updated.Priority = clampScore(*op.PriorityScore)
			}
			if op.IsActive != nil {
				updated.IsActive = *op.IsActive
			}
			updated.Source = "adaptive"
			if op.Rationale != "" {
				updated.Rationale = op.Rationale
			}
			if err := store.UpdateFramework(ctx, &updated); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("Operation %d: %s", idx, err))
				continue
			}
			result.Applied++
			continue
		}

		// upsert
		name := strings.TrimSpace(op.Name)
		var before *domain.HealthOptimizationFramework
		if name != "" {
			if norm := normalizeFrameworkName(name); norm != "" {
				before, _ = store.GetFrameworkByNormalizedName(ctx, userID, norm)
			}
		}
		if before != nil {
			result.UndoOps = append(result.UndoOps, undoOp{Op: "restore", Snapshot: frameworkSnapshot(before)})
		}
		row := &domain.HealthOptimizationFramework{
			UserID:    userID,
			Type:      domain.FrameworkType(op.FrameworkType),
			Name:      name,
			Priority:  50,
			Source:    "adaptive",
			Rationale: op.Rationale,
		}
		if op.PriorityScore != nil {
			row.Priority = clampScore(*op.PriorityScore)
		}
		if op.IsActive != nil {
			row.IsActive = *op.IsActive
		}
		saved, err := store.UpsertFramework(ctx, row)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Operation %d: %s", idx, err))
			continue
		}
		if before == nil {
			result.UndoOps = append(result.UndoOps, undoOp{Op: "delete", FrameworkID: saved.ID})
		}
		result.Applied++
	}
	return result
}

// undoFrameworkProposal reverses a previously applied proposal's operations
// in reverse order, matching _undo_framework_proposal.
func undoFrameworkProposal(ctx context.Context, store Store, userID int64, undoOps []undoOp) (applied int, errs []string) {
	if len(undoOps) == 0 {
		return 0, []string{"No undo operations available for this proposal"}
	}
	for i := len(undoOps) - 1; i >= 0; i-- {
		op := undoOps[i]
		switch strings.ToLower(op.Op) {
		case "delete":
			if err := store.DeleteFramework(ctx, userID, op.FrameworkID); err != nil {
				errs = append(errs, fmt.Sprintf("Undo operation %d: framework_id %d was not found", i, op.FrameworkID))
				continue
			}
			applied++
		case "restore":
			if op.Snapshot == nil {
				errs = append(errs, fmt.Sprintf("Undo operation %d: missing snapshot", i))
				continue
			}
			frameworkID, _ := toInt64(op.Snapshot["framework_id"])
			var existing *domain.HealthOptimizationFramework
			if frameworkID > 0 {
				existing, _ = store.GetFramework(ctx, userID, frameworkID)
			}
			restored := snapshotToFramework(userID, op.Snapshot)
			if existing != nil {
				restored.ID = existing.ID
				if err := store.UpdateFramework(ctx, restored); err != nil {
					errs = append(errs, fmt.Sprintf("Undo operation %d: %s", i, err))
					continue
				}
			} else {
				if _, err := store.UpsertFramework(ctx, restored); err != nil {
					errs = append(errs, fmt.Sprintf("Undo operation %d: %s", i, err))
					continue
				}
			}
			applied++
		default:
			errs = append(errs, fmt.Sprintf("Undo operation %d: unsupported op '%s'", i, op.Op))
		}
	}
	return applied, errs
}

func snapshotToFramework(userID int64, snap map[string]any) *domain.HealthOptimizationFramework {
	f := &domain.HealthOptimizationFramework{UserID: userID}
	if v, ok := snap["framework_type"].(string); ok {
		f.Type = domain.FrameworkType(v)
	}
	if v, ok := snap["name"].(string); ok {
		f.Name = v
	}
	if v, ok := toInt64(snap["priority_score"]); ok {
		f.Priority = int(v)
	}
	if v, ok := snap["is_active"].(bool); ok {
		f.IsActive = v
	}
	if v, ok := snap["source"].(string); ok {
		f.Source = v
	}
	if v, ok := snap["rationale"].(string); ok {
		f.Rationale = v
	}
	return f
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}
