package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/perf-analysis/internal/repository"
	"github.com/perf-analysis/pkg/model"
)

// MockRunRepository is a mock implementation of the RunRepository interface.
type MockRunRepository struct {
	mock.Mock
}

// GetPendingRuns mocks the GetPendingRuns method.
func (m *MockRunRepository) GetPendingRuns(ctx context.Context, limit int) ([]*model.AuditRun, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.AuditRun), args.Error(1)
}

// GetRunByID mocks the GetRunByID method.
func (m *MockRunRepository) GetRunByID(ctx context.Context, id int64) (*model.AuditRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AuditRun), args.Error(1)
}

// GetRunByUUID mocks the GetRunByUUID method.
func (m *MockRunRepository) GetRunByUUID(ctx context.Context, uuid string) (*model.AuditRun, error) {
	args := m.Called(ctx, uuid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AuditRun), args.Error(1)
}

// UpdateRunStatus mocks the UpdateRunStatus method.
func (m *MockRunRepository) UpdateRunStatus(ctx context.Context, id int64, status model.RunStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

// UpdateRunStatusWithInfo mocks the UpdateRunStatusWithInfo method.
func (m *MockRunRepository) UpdateRunStatusWithInfo(ctx context.Context, id int64, status model.RunStatus, info string) error {
	args := m.Called(ctx, id, status, info)
	return args.Error(0)
}

// LockRunForProcessing mocks the LockRunForProcessing method.
func (m *MockRunRepository) LockRunForProcessing(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// ExpectGetPendingRuns sets up an expectation for GetPendingRuns.
func (m *MockRunRepository) ExpectGetPendingRuns(limit int, runs []*model.AuditRun, err error) *mock.Call {
	return m.On("GetPendingRuns", mock.Anything, limit).Return(runs, err)
}

// ExpectUpdateRunStatus sets up an expectation for UpdateRunStatus.
func (m *MockRunRepository) ExpectUpdateRunStatus(id int64, status model.RunStatus, err error) *mock.Call {
	return m.On("UpdateRunStatus", mock.Anything, id, status).Return(err)
}

// ExpectLockRunForProcessing sets up an expectation for LockRunForProcessing.
func (m *MockRunRepository) ExpectLockRunForProcessing(id int64, success bool, err error) *mock.Call {
	return m.On("LockRunForProcessing", mock.Anything, id).Return(success, err)
}

// MockResultRepository is a mock implementation of the ResultRepository interface.
type MockResultRepository struct {
	mock.Mock
}

// SaveResult mocks the SaveResult method.
func (m *MockResultRepository) SaveResult(ctx context.Context, result *model.AuditResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

// GetResultByRunUUID mocks the GetResultByRunUUID method.
func (m *MockResultRepository) GetResultByRunUUID(ctx context.Context, runUUID string) (*model.AuditResult, error) {
	args := m.Called(ctx, runUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AuditResult), args.Error(1)
}

// UpdateResult mocks the UpdateResult method.
func (m *MockResultRepository) UpdateResult(ctx context.Context, result *model.AuditResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

// ExpectSaveResult sets up an expectation for SaveResult.
func (m *MockResultRepository) ExpectSaveResult(err error) *mock.Call {
	return m.On("SaveResult", mock.Anything, mock.Anything).Return(err)
}

// MockRecommendationRepository is a mock implementation of the
// RecommendationRepository interface.
type MockRecommendationRepository struct {
	mock.Mock
}

// SaveRecommendations mocks the SaveRecommendations method.
func (m *MockRecommendationRepository) SaveRecommendations(ctx context.Context, recommendations []model.Recommendation) error {
	args := m.Called(ctx, recommendations)
	return args.Error(0)
}

// GetRecommendationsByRunUUID mocks the GetRecommendationsByRunUUID method.
func (m *MockRecommendationRepository) GetRecommendationsByRunUUID(ctx context.Context, runUUID string) ([]model.Recommendation, error) {
	args := m.Called(ctx, runUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Recommendation), args.Error(1)
}

// GetRecommendationRules mocks the GetRecommendationRules method.
func (m *MockRecommendationRepository) GetRecommendationRules(ctx context.Context) ([]model.RecommendationRule, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.RecommendationRule), args.Error(1)
}

// ExpectSaveRecommendations sets up an expectation for SaveRecommendations.
func (m *MockRecommendationRepository) ExpectSaveRecommendations(err error) *mock.Call {
	return m.On("SaveRecommendations", mock.Anything, mock.Anything).Return(err)
}

// MockParentRunRepository is a mock implementation of the
// ParentRunRepository interface.
type MockParentRunRepository struct {
	mock.Mock
}

// GetParentRun mocks the GetParentRun method.
func (m *MockParentRunRepository) GetParentRun(ctx context.Context, parentRunUUID string) (*repository.ParentRun, error) {
	args := m.Called(ctx, parentRunUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.ParentRun), args.Error(1)
}

// UpdateParentRunRecommendations mocks the UpdateParentRunRecommendations method.
func (m *MockParentRunRepository) UpdateParentRunRecommendations(ctx context.Context, parentRunUUID string, class model.ComplexityClass, group model.RecommendationGroup) error {
	args := m.Called(ctx, parentRunUUID, class, group)
	return args.Error(0)
}

// UpdateParentRunStatus mocks the UpdateParentRunStatus method.
func (m *MockParentRunRepository) UpdateParentRunStatus(ctx context.Context, parentRunUUID string, status model.RunStatus) error {
	args := m.Called(ctx, parentRunUUID, status)
	return args.Error(0)
}

// GetIncompleteChildRunCount mocks the GetIncompleteChildRunCount method.
func (m *MockParentRunRepository) GetIncompleteChildRunCount(ctx context.Context, parentRunUUID string) (int, error) {
	args := m.Called(ctx, parentRunUUID)
	return args.Int(0), args.Error(1)
}

// CheckAndCompleteIfReady mocks the CheckAndCompleteIfReady method.
func (m *MockParentRunRepository) CheckAndCompleteIfReady(ctx context.Context, parentRunUUID string) error {
	args := m.Called(ctx, parentRunUUID)
	return args.Error(0)
}
