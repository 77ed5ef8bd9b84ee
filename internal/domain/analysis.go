package domain

import (
	"encoding/json"
	"time"
)

// RunType is the windowing granularity for a longitudinal analysis run.
type RunType string

const (
	RunDaily   RunType = "daily"
	RunWeekly  RunType = "weekly"
	RunMonthly RunType = "monthly"
)

// RunStatus is the AnalysisRun status machine.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// AnalysisRun is one windowed rollup + synthesis, uniquely keyed by
// (UserID, RunType, PeriodStart, PeriodEnd) per the analysis run key.
type AnalysisRun struct {
	ID          int64
	UserID      int64
	RunType     RunType
	PeriodStart time.Time
	PeriodEnd   time.Time
	Status      RunStatus

	Metrics         json.RawMessage
	MissingData     []string
	RiskFlags       []RiskFlag
	Synthesis       json.RawMessage
	MarkdownSummary string
	ReasoningModel  string
	UtilityModel    string
	DeepModel       string
	Confidence      float64

	Trigger      string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

// RiskFlag is a single detected-or-model-reported risk signal attached to
// an AnalysisRun, rendered into the run's RiskFlags column.
type RiskFlag struct {
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Title    string `json:"title"`
	Detail   string `json:"detail"`
}

// ProposalKind is the closed set of AnalysisProposal kinds.
type ProposalKind string

const (
	ProposalGuidanceUpdate  ProposalKind = "guidance_update"
	ProposalPromptAdjust    ProposalKind = "prompt_adjustment"
	ProposalExperiment      ProposalKind = "experiment"
)

// ProposalStatus is the review lifecycle state machine (the proposal review lifecycle).
type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "pending"
	ProposalApproved ProposalStatus = "approved"
	ProposalRejected ProposalStatus = "rejected"
	ProposalApplied  ProposalStatus = "applied"
	ProposalExpired  ProposalStatus = "expired"
)

// AnalysisProposal is a model-suggested adjustment attached to an
// AnalysisRun.
type AnalysisProposal struct {
	ID         int64
	RunID      int64
	UserID     int64
	Kind       ProposalKind
	Status     ProposalStatus
	Title      string
	Rationale  string
	Confidence *float64
	Payload    json.RawMessage
	Target     string
	DiffMarkdown string
	RequiresApproval bool
	MergedIDs  []int64
	MergeCount int
	ReviewerID *int64
	ReviewNote string
	ReviewedAt *time.Time
	AppliedAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
