package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
)

// ErrInvalidReviewAction is returned for an action outside
// approve/reject/apply/undo.
var ErrInvalidReviewAction = errors.New("analysis: invalid review action")

// ErrProposalNotApplied is returned when undo is requested on a proposal
// that was never applied.
var ErrProposalNotApplied = errors.New("analysis: proposal was not applied")

type frameworkProposalPayload struct {
	Target     string        `json:"target"`
	Operations []frameworkOp `json:"operations"`
}

// ReviewProposal drives the pending/approved/rejected/applied state
// machine, matching review_proposal. apply executes framework-target
// operations immediately (recording undo operations in the proposal's
// payload under "_undo_ops"); undo replays them in reverse.
func (e *Engine) ReviewProposal(ctx context.Context, userID, proposalID int64, action string, reviewerID *int64, note string) (*domain.AnalysisProposal, error) {
	proposal, err := e.store.GetProposal(ctx, userID, proposalID)
	if err != nil {
		return nil, fmt.Errorf("load proposal: %w", err)
	}
	if proposal == nil {
		return nil, fmt.Errorf("analysis: proposal %d not found", proposalID)
	}

	now := time.Now().UTC()
	action = strings.ToLower(strings.TrimSpace(action))

	switch action {
	case "approve":
		proposal.Status = domain.ProposalApproved
	case "reject":
		proposal.Status = domain.ProposalRejected
	case "apply":
		if err := e.applyProposal(ctx, userID, proposal); err != nil {
			return nil, err
		}
		proposal.Status = domain.ProposalApplied
		proposal.AppliedAt = &now
	case "undo":
		if proposal.Status != domain.ProposalApplied {
			return nil, ErrProposalNotApplied
		}
		if err := e.undoProposal(ctx, userID, proposal); err != nil {
			return nil, err
		}
		proposal.Status = domain.ProposalApproved
		proposal.AppliedAt = nil
	default:
		return nil, ErrInvalidReviewAction
	}

	proposal.ReviewerID = reviewerID
	proposal.ReviewedAt = &now
	if note != "" {
		if proposal.ReviewNote == "" {
			proposal.ReviewNote = note
		} else {
			proposal.ReviewNote = proposal.ReviewNote + " | " + note
		}
	}
	proposal.UpdatedAt = now

	if err := e.store.UpdateProposal(ctx, proposal); err != nil {
		return nil, fmt.Errorf("persist reviewed proposal: %w", err)
	}
	return proposal, nil
}

// applyProposal executes framework-target operations and snapshots undo
// state into the proposal payload. Non-framework proposals (guidance
// copy, prompt adjustments) have no mechanical side effect to apply; they
// are marked applied without mutating any other table, matching the
// Python service's "nothing to apply" no-op branches.
func (e *Engine) applyProposal(ctx context.Context, userID int64, proposal *domain.AnalysisProposal) error {
	payload, target, ok := decodeFrameworkPayload(proposal.Payload)
	if !ok || target != "framework" {
		return nil
	}

	result := applyFrameworkProposal(ctx, e.store, userID, payload.Operations)
	if len(result.Errors) > 0 && result.Applied == 0 {
		return fmt.Errorf("apply framework proposal: %s", strings.Join(result.Errors, "; "))
	}

	return e.storeUndoOps(proposal, result.UndoOps)
}

func (e *Engine) undoProposal(ctx context.Context, userID int64, proposal *domain.AnalysisProposal) error {
	undoOps, ok := loadUndoOps(proposal.Payload)
	if !ok || len(undoOps) == 0 {
		return ErrProposalNotApplied
	}
	_, errs := undoFrameworkProposal(ctx, e.store, userID, undoOps)
	if len(errs) > 0 {
		return fmt.Errorf("undo framework proposal: %s", strings.Join(errs, "; "))
	}
	return nil
}

func decodeFrameworkPayload(raw json.RawMessage) (frameworkProposalPayload, string, bool) {
	if len(raw) == 0 {
		return frameworkProposalPayload{}, "", false
	}
	var p frameworkProposalPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return frameworkProposalPayload{}, "", false
	}
	return p, strings.ToLower(strings.TrimSpace(p.Target)), true
}

// storeUndoOps merges undoOps into the proposal's payload under
// "_undo_ops" so a later "undo" review action can find them without a
// separate table.
func (e *Engine) storeUndoOps(proposal *domain.AnalysisProposal, undoOps []undoOp) error {
	var obj map[string]json.RawMessage
	if len(proposal.Payload) > 0 {
		if err := json.Unmarshal(proposal.Payload, &obj); err != nil {
			obj = map[string]json.RawMessage{}
		}
	} else {
		obj = map[string]json.RawMessage{}
	}
	encoded, err := json.Marshal(undoOps)
	if err != nil {
		return err
	}
	obj["_undo_ops"] = encoded
	merged, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	proposal.Payload = merged
	return nil
}

func loadUndoOps(raw json.RawMessage) ([]undoOp, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false
	}
	stored, ok := obj["_undo_ops"]
	if !ok {
		return nil, false
	}
	var ops []undoOp
	if err := json.Unmarshal(stored, &ops); err != nil {
		return nil, false
	}
	return ops, true
}
