package scheduler

import (
	"context"

	"github.com/perf-analysis/internal/repository"
	"github.com/perf-analysis/pkg/model"
)

// RepositoryTaskFetcher implements TaskFetcher using repository interfaces.
type RepositoryTaskFetcher struct {
	runRepo            repository.RunRepository
	recommendationRepo repository.RecommendationRepository
}

// NewRepositoryTaskFetcher creates a new RepositoryTaskFetcher.
func NewRepositoryTaskFetcher(runRepo repository.RunRepository, recommendationRepo repository.RecommendationRepository) *RepositoryTaskFetcher {
	return &RepositoryTaskFetcher{
		runRepo:            runRepo,
		recommendationRepo: recommendationRepo,
	}
}

// FetchPendingTasks returns pending runs to be processed.
func (f *RepositoryTaskFetcher) FetchPendingTasks(ctx context.Context, limit int) ([]*Task, error) {
	runs, err := f.runRepo.GetPendingRuns(ctx, limit)
	if err != nil {
		return nil, err
	}

	result := make([]*Task, len(runs))
	for i, r := range runs {
		result[i] = convertModelTask(r)
	}

	return result, nil
}

// LockTask attempts to lock a run for processing.
func (f *RepositoryTaskFetcher) LockTask(ctx context.Context, runID int64) (bool, error) {
	return f.runRepo.LockRunForProcessing(ctx, runID)
}

// UpdateTaskStatus updates the run status.
func (f *RepositoryTaskFetcher) UpdateTaskStatus(ctx context.Context, runID int64, status model.RunStatus, info string) error {
	if info != "" {
		return f.runRepo.UpdateRunStatusWithInfo(ctx, runID, status, info)
	}
	return f.runRepo.UpdateRunStatus(ctx, runID, status)
}

// FetchAnalysisRules returns the recommendation rules from the database.
func (f *RepositoryTaskFetcher) FetchAnalysisRules(ctx context.Context) ([]model.RecommendationRule, error) {
	return f.recommendationRepo.GetRecommendationRules(ctx)
}

// convertModelTask converts a model.AuditRun to a scheduler.Task.
func convertModelTask(r *model.AuditRun) *Task {
	task := &Task{
		ID:            r.ID,
		UUID:          r.RunUUID,
		ResultFile:    r.ResultFile,
		UserName:      r.UserName,
		ParentRunUUID: r.ParentRunUUID,
		StorageBucket: r.StorageBucket,
		RequestParams: r.RequestParams,
		Priority:      0, // Default priority
	}

	if r.IsHighPriority() {
		task.Priority = 1
	}

	return task
}
