// Package repository provides database abstraction for the ballot-audit service.
package repository

import (
	"context"

	"github.com/perf-analysis/pkg/model"
)

// RunRepository defines the interface for audit-run database operations.
type RunRepository interface {
	// GetPendingRuns retrieves runs that are queued but not yet dispatched.
	GetPendingRuns(ctx context.Context, limit int) ([]*model.AuditRun, error)

	// GetRunByID retrieves a run by its ID.
	GetRunByID(ctx context.Context, id int64) (*model.AuditRun, error)

	// GetRunByUUID retrieves a run by its UUID.
	GetRunByUUID(ctx context.Context, uuid string) (*model.AuditRun, error)

	// UpdateRunStatus updates the status of a run.
	UpdateRunStatus(ctx context.Context, id int64, status model.RunStatus) error

	// UpdateRunStatusWithInfo updates the status with additional info.
	UpdateRunStatusWithInfo(ctx context.Context, id int64, status model.RunStatus, info string) error

	// LockRunForProcessing attempts to lock a run for processing (prevents concurrent dispatch).
	LockRunForProcessing(ctx context.Context, id int64) (bool, error)
}

// ResultRepository defines the interface for audit-result operations.
type ResultRepository interface {
	// SaveResult saves an audit result to the database.
	SaveResult(ctx context.Context, result *model.AuditResult) error

	// GetResultByRunUUID retrieves the audit result for a run.
	GetResultByRunUUID(ctx context.Context, runUUID string) (*model.AuditResult, error)

	// UpdateResult updates an existing audit result.
	UpdateResult(ctx context.Context, result *model.AuditResult) error
}

// RecommendationRepository defines the interface for recommendation operations.
type RecommendationRepository interface {
	// SaveRecommendations saves multiple recommendations to the database.
	SaveRecommendations(ctx context.Context, recommendations []model.Recommendation) error

	// GetRecommendationsByRunUUID retrieves recommendations for a run.
	GetRecommendationsByRunUUID(ctx context.Context, runUUID string) ([]model.Recommendation, error)

	// GetRecommendationRules retrieves all active recommendation rules.
	GetRecommendationRules(ctx context.Context) ([]model.RecommendationRule, error)
}

// ParentRunRepository defines the interface for parent-run operations,
// for runs that fan out into several child runs (e.g. one per contest).
type ParentRunRepository interface {
	// GetParentRun retrieves a parent run by its UUID.
	GetParentRun(ctx context.Context, parentRunUUID string) (*ParentRun, error)

	// UpdateParentRunRecommendations updates the recommendations for a
	// parent run's complexity-class group.
	UpdateParentRunRecommendations(ctx context.Context, parentRunUUID string, class model.ComplexityClass, group model.RecommendationGroup) error

	// UpdateParentRunStatus updates the status of a parent run.
	UpdateParentRunStatus(ctx context.Context, parentRunUUID string, status model.RunStatus) error

	// GetIncompleteChildRunCount returns the count of incomplete child runs.
	GetIncompleteChildRunCount(ctx context.Context, parentRunUUID string) (int, error)

	// CheckAndCompleteIfReady checks if all child runs are done and updates status.
	CheckAndCompleteIfReady(ctx context.Context, parentRunUUID string) error
}

// ParentRun represents a parent run that fans out into several child runs.
type ParentRun struct {
	RunUUID         string                          `json:"rid" db:"rid"`
	ChildRunUUIDs   []string                        `json:"child_run_uuids" db:"child_run_uuids"`
	Recommendations *model.RunGroupRecommendations `json:"recommendations" db:"recommendations"`
	Status          model.RunStatus                `json:"status" db:"status"`
}
