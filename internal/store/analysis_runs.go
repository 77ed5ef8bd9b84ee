package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
)

func encodeRiskFlags(v []domain.RiskFlag) string {
	if v == nil {
		v = []domain.RiskFlag{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func decodeRiskFlags(s string) []domain.RiskFlag {
	var out []domain.RiskFlag
	if s == "" {
		return nil
	}
	_ = json.Unmarshal([]byte(s), &out)
	return out
}

func encodeInt64s(v []int64) string {
	if v == nil {
		v = []int64{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func decodeInt64s(s string) []int64 {
	var out []int64
	if s == "" {
		return nil
	}
	_ = json.Unmarshal([]byte(s), &out)
	return out
}

func rawOrEmptyObject(v json.RawMessage) string {
	if len(v) == 0 {
		return "{}"
	}
	return string(v)
}

const runColumns = `id, user_id, run_type, period_start, period_end, status,
	metrics, missing_data, risk_flags, synthesis, markdown_summary,
	reasoning_model, utility_model, deep_model, confidence,
	trigger, error_message, created_at, updated_at, completed_at`

func scanRun(row interface{ Scan(...any) error }) (domain.AnalysisRun, error) {
	var r domain.AnalysisRun
	var runType, status string
	var periodStart, periodEnd, createdAt, updatedAt int64
	var completedAt sql.NullInt64
	var metrics, missingData, riskFlags, synthesis string

	err := row.Scan(&r.ID, &r.UserID, &runType, &periodStart, &periodEnd, &status,
		&metrics, &missingData, &riskFlags, &synthesis, &r.MarkdownSummary,
		&r.ReasoningModel, &r.UtilityModel, &r.DeepModel, &r.Confidence,
		&r.Trigger, &r.ErrorMessage, &createdAt, &updatedAt, &completedAt)
	if err != nil {
		return r, err
	}
	r.RunType = domain.RunType(runType)
	r.Status = domain.RunStatus(status)
	r.PeriodStart = time.Unix(periodStart, 0).UTC()
	r.PeriodEnd = time.Unix(periodEnd, 0).UTC()
	r.Metrics = json.RawMessage(metrics)
	r.MissingData = decodeStrings(missingData)
	r.RiskFlags = decodeRiskFlags(riskFlags)
	r.Synthesis = json.RawMessage(synthesis)
	r.CreatedAt = time.Unix(createdAt, 0).UTC()
	r.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	r.CompletedAt = timePtrFromUnix(completedAt)
	return r, nil
}

// BeginRun creates, or resets to running, the unique
// (userID, runType, periodStart, periodEnd) run row in one statement. When
// an existing row is already running or completed and force is false, it is
// returned unchanged with alreadyDone=true.
func (db *DB) BeginRun(ctx context.Context, userID int64, runType domain.RunType, periodStart, periodEnd time.Time, trigger string, force bool) (*domain.AnalysisRun, bool, error) {
	now := time.Now().UTC()
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO analysis_runs (user_id, run_type, period_start, period_end, status, trigger, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, run_type, period_start, period_end) DO UPDATE SET
			status = excluded.status,
			trigger = excluded.trigger,
			error_message = '',
			updated_at = excluded.updated_at,
			completed_at = NULL
		WHERE ? = 1 OR analysis_runs.status = ?`,
		userID, string(runType), periodStart.UTC().Unix(), periodEnd.UTC().Unix(), string(domain.RunStatusRunning), trigger, now.Unix(), now.Unix(),
		boolToInt(force), string(domain.RunStatusFailed))
	if err != nil {
		return nil, false, err
	}
	changed, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}

	run, err := db.runByWindow(ctx, userID, runType, periodStart, periodEnd)
	if err != nil {
		return nil, false, err
	}
	return run, changed == 0, nil
}

func (db *DB) runByWindow(ctx context.Context, userID int64, runType domain.RunType, periodStart, periodEnd time.Time) (*domain.AnalysisRun, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+runColumns+` FROM analysis_runs WHERE user_id = ? AND run_type = ? AND period_start = ? AND period_end = ?`,
		userID, string(runType), periodStart.UTC().Unix(), periodEnd.UTC().Unix())
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CompleteRun writes every result column and marks the run completed.
func (db *DB) CompleteRun(ctx context.Context, run *domain.AnalysisRun) error {
	now := time.Now().UTC()
	run.Status = domain.RunStatusCompleted
	run.UpdatedAt = now
	run.CompletedAt = &now
	_, err := db.conn.ExecContext(ctx, `
		UPDATE analysis_runs SET
			status = ?, metrics = ?, missing_data = ?, risk_flags = ?, synthesis = ?,
			markdown_summary = ?, reasoning_model = ?, utility_model = ?, deep_model = ?,
			confidence = ?, error_message = '', updated_at = ?, completed_at = ?
		WHERE id = ?`,
		string(domain.RunStatusCompleted), rawOrEmptyObject(run.Metrics), encodeStrings(run.MissingData), encodeRiskFlags(run.RiskFlags), rawOrEmptyObject(run.Synthesis),
		run.MarkdownSummary, run.ReasoningModel, run.UtilityModel, run.DeepModel,
		run.Confidence, now.Unix(), now.Unix(), run.ID)
	return err
}

// FailRun marks a run failed with errMsg.
func (db *DB) FailRun(ctx context.Context, runID int64, errMsg string) error {
	_, err := db.conn.ExecContext(ctx, `UPDATE analysis_runs SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		string(domain.RunStatusFailed), errMsg, time.Now().UTC().Unix(), runID)
	return err
}

// LastCompletedPeriodEnd returns the latest PeriodEnd among completed runs
// of runType for userID, or nil if none have completed yet.
func (db *DB) LastCompletedPeriodEnd(ctx context.Context, userID int64, runType domain.RunType) (*time.Time, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT period_end FROM analysis_runs WHERE user_id = ? AND run_type = ? AND status = ? ORDER BY period_end DESC LIMIT 1`,
		userID, string(runType), string(domain.RunStatusCompleted))
	var periodEnd int64
	err := row.Scan(&periodEnd)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t := time.Unix(periodEnd, 0).UTC()
	return &t, nil
}

// LatestAnalysisRun returns the run of runType for userID with the latest
// period end, regardless of status, or nil if none exists.
func (db *DB) LatestAnalysisRun(ctx context.Context, userID int64, runType domain.RunType) (*domain.AnalysisRun, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+runColumns+` FROM analysis_runs WHERE user_id = ? AND run_type = ? ORDER BY period_end DESC LIMIT 1`,
		userID, string(runType))
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

const proposalColumns = `id, run_id, user_id, kind, status, title, rationale, confidence,
	payload, target, diff_markdown, requires_approval, merged_ids, merge_count,
	reviewer_id, review_note, reviewed_at, applied_at, created_at, updated_at`

func scanProposal(row interface{ Scan(...any) error }) (domain.AnalysisProposal, error) {
	var p domain.AnalysisProposal
	var kind, status string
	var confidence sql.NullFloat64
	var payload, mergedIDs string
	var requiresApproval int
	var reviewerID sql.NullInt64
	var reviewedAt, appliedAt sql.NullInt64
	var createdAt, updatedAt int64

	err := row.Scan(&p.ID, &p.RunID, &p.UserID, &kind, &status, &p.Title, &p.Rationale, &confidence,
		&payload, &p.Target, &p.DiffMarkdown, &requiresApproval, &mergedIDs, &p.MergeCount,
		&reviewerID, &p.ReviewNote, &reviewedAt, &appliedAt, &createdAt, &updatedAt)
	if err != nil {
		return p, err
	}
	p.Kind = domain.ProposalKind(kind)
	p.Status = domain.ProposalStatus(status)
	if confidence.Valid {
		v := confidence.Float64
		p.Confidence = &v
	}
	p.Payload = json.RawMessage(payload)
	p.RequiresApproval = requiresApproval != 0
	p.MergedIDs = decodeInt64s(mergedIDs)
	if reviewerID.Valid {
		v := reviewerID.Int64
		p.ReviewerID = &v
	}
	p.ReviewedAt = timePtrFromUnix(reviewedAt)
	p.AppliedAt = timePtrFromUnix(appliedAt)
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	p.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return p, nil
}

// InsertProposals bulk-inserts a run's freshly generated proposals.
func (db *DB) InsertProposals(ctx context.Context, proposals []*domain.AnalysisProposal) error {
	if len(proposals) == 0 {
		return nil
	}
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO analysis_proposals (run_id, user_id, kind, status, title, rationale, confidence,
			payload, target, diff_markdown, requires_approval, merged_ids, merge_count,
			reviewer_id, review_note, reviewed_at, applied_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range proposals {
		p.CreatedAt = now
		p.UpdatedAt = now
		res, err := stmt.ExecContext(ctx, p.RunID, p.UserID, string(p.Kind), string(p.Status), p.Title, p.Rationale, p.Confidence,
			rawOrEmptyObject(p.Payload), p.Target, p.DiffMarkdown, boolToInt(p.RequiresApproval), encodeInt64s(p.MergedIDs), p.MergeCount,
			p.ReviewerID, p.ReviewNote, unixOrNil(p.ReviewedAt), unixOrNil(p.AppliedAt), now.Unix(), now.Unix())
		if err != nil {
			return fmt.Errorf("store: insert proposal %q: %w", p.Title, err)
		}
		if id, err := res.LastInsertId(); err == nil {
			p.ID = id
		}
	}
	return tx.Commit()
}

// PendingProposals returns a user's pending proposals, newest first.
func (db *DB) PendingProposals(ctx context.Context, userID int64) ([]*domain.AnalysisProposal, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT `+proposalColumns+` FROM analysis_proposals WHERE user_id = ? AND status = ? ORDER BY created_at DESC`,
		userID, string(domain.ProposalPending))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.AnalysisProposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// UpdateProposal writes every mutable column of an existing proposal row.
func (db *DB) UpdateProposal(ctx context.Context, p *domain.AnalysisProposal) error {
	p.UpdatedAt = time.Now().UTC()
	_, err := db.conn.ExecContext(ctx, `
		UPDATE analysis_proposals SET
			status = ?, title = ?, rationale = ?, confidence = ?, payload = ?, target = ?,
			diff_markdown = ?, requires_approval = ?, merged_ids = ?, merge_count = ?,
			reviewer_id = ?, review_note = ?, reviewed_at = ?, applied_at = ?, updated_at = ?
		WHERE id = ?`,
		string(p.Status), p.Title, p.Rationale, p.Confidence, rawOrEmptyObject(p.Payload), p.Target,
		p.DiffMarkdown, boolToInt(p.RequiresApproval), encodeInt64s(p.MergedIDs), p.MergeCount,
		p.ReviewerID, p.ReviewNote, unixOrNil(p.ReviewedAt), unixOrNil(p.AppliedAt), p.UpdatedAt.Unix(), p.ID)
	return err
}

// DeleteProposal removes a proposal row outright, used when merging
// near-duplicate proposals into one survivor.
func (db *DB) DeleteProposal(ctx context.Context, id int64) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM analysis_proposals WHERE id = ?`, id)
	return err
}

// GetProposal loads a single proposal row scoped to userID.
func (db *DB) GetProposal(ctx context.Context, userID, proposalID int64) (*domain.AnalysisProposal, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+proposalColumns+` FROM analysis_proposals WHERE user_id = ? AND id = ?`, userID, proposalID)
	p, err := scanProposal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ApprovedGuidance returns a user's most recently applied guidance-update
// proposals, newest first, capped at limit, for inclusion in the context
// prompt's "approved guidance" section.
func (db *DB) ApprovedGuidance(ctx context.Context, userID int64, limit int) ([]domain.AnalysisProposal, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+proposalColumns+` FROM analysis_proposals
		WHERE user_id = ? AND kind = ? AND status = ?
		ORDER BY applied_at DESC LIMIT ?`,
		userID, string(domain.ProposalGuidanceUpdate), string(domain.ProposalApplied), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AnalysisProposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
