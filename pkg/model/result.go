package model

import (
	"encoding/json"
	"time"
)

// AuditResult represents the aggregated output of an audit run: win
// probabilities and representative elimination orders produced by the
// posterior batch driver.
type AuditResult struct {
	RunUUID      string                    `json:"rid"`
	CandidateSet map[string]CandidateEntry `json:"candidate_set"`
	Batches      map[string]BatchResult    `json:"batches"`
	Version      string                    `json:"version"`
	TotalDraws   int64                     `json:"total_draws"`
	TotalBatches int64                     `json:"total_batches"`
	CompletedAt  time.Time                 `json:"completed_at"`
}

// CandidateEntry holds metadata about one candidate as carried through
// a run (its stable index in the host's candidate list).
type CandidateEntry struct {
	Index     int    `json:"index,omitempty"`
	ShortName string `json:"short_name,omitempty"`
}

// BatchResult holds the posterior output produced by one batch of the
// Monte Carlo driver.
type BatchResult struct {
	WinCounts         string          `json:"win_counts"`
	EliminationOrders json.RawMessage `json:"elimination_orders,omitempty"`
	BallotDrawsFile   string          `json:"ballot_draws_file"`
	SummaryFile       string          `json:"summary_file"`
	Recommendations   []Recommendation `json:"recommendations"`
	TotalDraws        int64           `json:"total_draws"`
}

// BatchProgress represents the posterior batch driver's running
// progress for a single worker slot.
type BatchProgress struct {
	WorkerID      int     `json:"worker_id"`
	BatchLabel    string  `json:"batch_label"`
	DrawsComplete int64   `json:"draws_complete"`
	Fraction      float64 `json:"fraction"`
}

// CandidateRanking represents a candidate with its win-probability
// statistics.
type CandidateRanking struct {
	Name        string  `json:"name"`
	Index       int     `json:"index,omitempty"`
	WinCount    int64   `json:"win_count"`
	WinPct      float64 `json:"win_pct"`
	TotalCount  int64   `json:"total_count,omitempty"`
	TotalPct    float64 `json:"total_pct,omitempty"`
}

// RankingMap maps a candidate name to its win-probability entry.
type RankingMap map[string]RankingValue

// RankingValue holds the value for a ranking entry.
type RankingValue struct {
	WinPct   float64 `json:"win_pct"`
	TotalPct float64 `json:"total_pct,omitempty"`
}

// EliminationPath holds the sequence of eliminations a candidate
// survived or was removed by, across the sampled elimination orders
// that share it.
type EliminationPath struct {
	Candidate  string   `json:"candidate"`
	Orders     []string `json:"orders"`
	Count      int      `json:"count"`
}

// BallotDraw represents one aggregated ballot drawn during a batch:
// a ranking and how many simulated ballots shared it.
type BallotDraw struct {
	BatchLabel string   `json:"batch_label"`
	BatchIndex int      `json:"batch_index,omitempty"`
	Ranking    []string `json:"ranking"`
	Count      int64    `json:"count"`
}

// AggregationResult holds the result of aggregating a batch's
// simulated ballot draws into win statistics.
type AggregationResult struct {
	Draws             []*BallotDraw              `json:"draws"`
	TotalDraws        int64                      `json:"total_draws"`
	BatchStats        map[string]*BatchProgress  `json:"batch_stats"`
	Rankings          RankingMap                 `json:"rankings"`
	EliminationPaths  map[string]*EliminationPath `json:"elimination_paths,omitempty"`
	Recommendations   []Recommendation           `json:"recommendations,omitempty"`
}

// AuditRequest represents a request to run a ballot-polling audit.
type AuditRequest struct {
	RunID         int64
	RunUUID       string
	InputFile     string
	OutputDir     string
	ResultFile    string
	UserName      string
	ParentRunUUID *string
	StorageBucket string
	RequestParams AuditParams
}

// AuditResponse represents the response from a completed audit run.
type AuditResponse struct {
	RunUUID         string               `json:"run_uuid"`
	TotalDraws      int                  `json:"total_draws"`
	OutputFiles     []OutputFile         `json:"output_files"`
	Data            AuditData            `json:"data"`
	Recommendations []RecommendationItem `json:"recommendations"`
	Error           string               `json:"error,omitempty"`
}

// OutputFile describes one artifact produced by a run.
type OutputFile struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Size int64  `json:"size,omitempty"`
}

// AuditData holds the primary numeric payload of an AuditResponse.
type AuditData struct {
	Rankings         []CandidateRanking `json:"rankings"`
	EliminationOrder []string           `json:"elimination_order,omitempty"`
}

// RecommendationItem represents a single recommendation surfaced by
// an audit response, flattened for API consumption.
type RecommendationItem struct {
	Recommendation string `json:"recommendation"`
	Candidate      string `json:"candidate,omitempty"`
	Severity       string `json:"severity,omitempty"`
	Detail         string `json:"detail,omitempty"`
}

// AuditContext holds the mutable context tracked while a run is being
// processed by the scheduler.
type AuditContext struct {
	BallotDrawsFile    string           `json:"ballot_draws_file"`
	SummaryFile        string           `json:"summary_file"`
	WinCountsFile      string           `json:"win_counts_file"`
	Recommendations    []Recommendation `json:"recommendations"`
	Rankings           string           `json:"rankings"`
	RankingsCompleted  string           `json:"rankings_completed"`
	TotalDraws         int64            `json:"total_draws"`
	TotalDrawsComplete int64            `json:"total_draws_complete"`
	RunUUID            string           `json:"rid"`
	Status             RunStatus        `json:"status"`
	StatusInfo         string           `json:"status_info"`
	CreateTime         int64            `json:"create_time"`
	BeginTime          int64            `json:"begin_time"`
	EndTime            int64            `json:"end_time"`
	CallbackConfig     map[string]interface{} `json:"callback_config"`
}

// NewAuditContext creates a new AuditContext with default values.
func NewAuditContext() *AuditContext {
	return &AuditContext{
		Recommendations: make([]Recommendation, 0),
		CallbackConfig:  make(map[string]interface{}),
		Status:          RunStatusPending,
	}
}

// SetFromAggregationResult updates the context from a batch's
// aggregation result.
func (ctx *AuditContext) SetFromAggregationResult(ar *AggregationResult) {
	ctx.TotalDraws = ar.TotalDraws
	ctx.TotalDrawsComplete = ar.TotalDraws
	ctx.Recommendations = ar.Recommendations
}
