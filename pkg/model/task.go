// Package model defines the core data structures used throughout the application.
package model

import (
	"encoding/json"
	"time"
)

// RunStatus represents the lifecycle status of an audit run.
type RunStatus int

const (
	RunStatusPending   RunStatus = 0 // Queued, not yet dispatched
	RunStatusRunning   RunStatus = 1 // Posterior batches in flight
	RunStatusCompleted RunStatus = 2 // All batches finished and aggregated
	RunStatusFailed    RunStatus = 3 // Aborted by an error or cancellation
)

// String returns the string representation of RunStatus.
func (s RunStatus) String() string {
	switch s {
	case RunStatusPending:
		return "pending"
	case RunStatusRunning:
		return "running"
	case RunStatusCompleted:
		return "completed"
	case RunStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ComplexityClass buckets a run by how expensive its underlying Dirichlet
// tree is to simulate, driven by the candidate count (n! grows the number
// of terminal ballot categories) rather than by batch count alone.
type ComplexityClass string

const (
	ComplexityLight ComplexityClass = "light"
	ComplexityHeavy ComplexityClass = "heavy"
)

// AuditRun represents one ballot-polling audit request: the parameters
// needed to construct a Dirichlet tree, observe a ballot corpus against
// it, and run the posterior batch driver.
type AuditRun struct {
	ID            int64       `json:"id" db:"id"`
	RunUUID       string      `json:"rid" db:"rid"`
	Status        RunStatus   `json:"status" db:"status"`
	StatusInfo    string      `json:"status_info" db:"status_info"`
	ResultFile    string      `json:"result_file" db:"result_file"`
	UserName      string      `json:"user_name" db:"user_name"`
	ParentRunUUID *string     `json:"parent_run_uuid" db:"parent_run_uuid"`
	StorageBucket string      `json:"storage_bucket" db:"storage_bucket"`
	RequestParams AuditParams `json:"request_params" db:"request_params"`
	CreateTime    time.Time   `json:"create_time" db:"create_time"`
	BeginTime     *time.Time  `json:"begin_time" db:"begin_time"`
	EndTime       *time.Time  `json:"end_time" db:"end_time"`
}

// AuditParams holds the parameters of one audit request: the Dirichlet
// tree's shape plus the posterior batch driver's workload.
type AuditParams struct {
	NCandidates int     `json:"n_candidates,omitempty"`
	MinDepth    int     `json:"min_depth,omitempty"`
	MaxDepth    int     `json:"max_depth,omitempty"`
	A0          float64 `json:"a0,omitempty"`
	Reducible   bool    `json:"reducible,omitempty"`
	NElections  int     `json:"n_elections,omitempty"`
	NBallots    int     `json:"n_ballots,omitempty"`
	NBatches    int     `json:"n_batches,omitempty"`
	Replace     bool    `json:"replace,omitempty"`
	NWinners    int     `json:"n_winners,omitempty"`
	Seed        string  `json:"seed,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler for AuditParams.
func (p *AuditParams) UnmarshalJSON(data []byte) error {
	type Alias AuditParams
	aux := &struct {
		*Alias
	}{
		Alias: (*Alias)(p),
	}
	return json.Unmarshal(data, aux)
}

// TotalDraws returns the total number of ballots scored across every
// simulated election (n_elections * n_ballots).
func (p AuditParams) TotalDraws() int {
	return p.NElections * p.NBallots
}

// IsHighPriority returns true if the run is cheap enough (few total
// simulated draws) to jump ahead of heavier runs in the dispatch queue.
func (t *AuditRun) IsHighPriority() bool {
	total := t.RequestParams.TotalDraws()
	return total > 0 && total <= 5000
}

// IsResumedRun returns true if the run continues a prior run's observed
// ballots and posterior state.
func (t *AuditRun) IsResumedRun() bool {
	return t.ParentRunUUID != nil && *t.ParentRunUUID != ""
}

// GetComplexityClass classifies the run by candidate count: beyond a
// handful of candidates, n! terminal ballot categories make every
// Dirichlet draw and full-ballot enumeration markedly more expensive.
func (t *AuditRun) GetComplexityClass() ComplexityClass {
	if t.RequestParams.NCandidates > 7 {
		return ComplexityHeavy
	}
	return ComplexityLight
}

// NewAuditRun creates a new AuditRun instance in pending status.
func NewAuditRun(id int64, runUUID string, params AuditParams) *AuditRun {
	return &AuditRun{
		ID:            id,
		RunUUID:       runUUID,
		Status:        RunStatusPending,
		RequestParams: params,
		CreateTime:    time.Now(),
	}
}
