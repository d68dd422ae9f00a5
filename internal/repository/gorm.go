package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/perf-analysis/pkg/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRunRepository implements RunRepository using GORM.
type GormRunRepository struct {
	db *gorm.DB
}

// NewGormRunRepository creates a new GormRunRepository.
func NewGormRunRepository(db *gorm.DB) *GormRunRepository {
	return &GormRunRepository{db: db}
}

// GetPendingRuns retrieves runs that are queued but not yet dispatched.
func (r *GormRunRepository) GetPendingRuns(ctx context.Context, limit int) ([]*model.AuditRun, error) {
	var rows []AuditRunRow

	err := r.db.WithContext(ctx).
		Where("status = ?", model.RunStatusPending).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error

	if err != nil {
		return nil, fmt.Errorf("failed to query pending runs: %w", err)
	}

	result := make([]*model.AuditRun, len(rows))
	for i, row := range rows {
		result[i] = row.ToModel()
	}

	return result, nil
}

// GetRunByID retrieves a run by its ID.
func (r *GormRunRepository) GetRunByID(ctx context.Context, id int64) (*model.AuditRun, error) {
	var row AuditRunRow

	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("run not found: %d", id)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return row.ToModel(), nil
}

// GetRunByUUID retrieves a run by its UUID.
func (r *GormRunRepository) GetRunByUUID(ctx context.Context, uuid string) (*model.AuditRun, error) {
	var row AuditRunRow

	err := r.db.WithContext(ctx).Where("rid = ?", uuid).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("run not found: %s", uuid)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return row.ToModel(), nil
}

// UpdateRunStatus updates the status of a run.
func (r *GormRunRepository) UpdateRunStatus(ctx context.Context, id int64, status model.RunStatus) error {
	result := r.db.WithContext(ctx).
		Model(&AuditRunRow{}).
		Where("id = ?", id).
		Update("status", status)

	if result.Error != nil {
		return fmt.Errorf("failed to update run status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("run not found: %d", id)
	}

	return nil
}

// UpdateRunStatusWithInfo updates the status with additional info.
func (r *GormRunRepository) UpdateRunStatusWithInfo(ctx context.Context, id int64, status model.RunStatus, info string) error {
	result := r.db.WithContext(ctx).
		Model(&AuditRunRow{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      status,
			"status_info": info,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update run status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("run not found: %d", id)
	}

	return nil
}

// LockRunForProcessing attempts to lock a run for processing using FOR UPDATE.
func (r *GormRunRepository) LockRunForProcessing(ctx context.Context, id int64) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row AuditRunRow

		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND status = ?", id, model.RunStatusPending).
			First(&row).Error

		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return gorm.ErrRecordNotFound
			}
			return err
		}

		return tx.Model(&AuditRunRow{}).
			Where("id = ?", id).
			Update("status", model.RunStatusRunning).Error
	})

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to lock run: %w", err)
	}

	return true, nil
}

// GormResultRepository implements ResultRepository using GORM.
type GormResultRepository struct {
	db      *gorm.DB
	version string
}

// NewGormResultRepository creates a new GormResultRepository.
func NewGormResultRepository(db *gorm.DB, version string) *GormResultRepository {
	return &GormResultRepository{db: db, version: version}
}

// SaveResult saves an audit result to the database.
func (r *GormResultRepository) SaveResult(ctx context.Context, result *model.AuditResult) error {
	candidateSetJSON, err := json.Marshal(result.CandidateSet)
	if err != nil {
		return fmt.Errorf("failed to marshal candidate set: %w", err)
	}

	batchesJSON, err := json.Marshal(result.Batches)
	if err != nil {
		return fmt.Errorf("failed to marshal batches: %w", err)
	}

	record := &AuditResultRow{
		RID:          result.RunUUID,
		CandidateSet: candidateSetJSON,
		Batches:      batchesJSON,
		Version:      r.version,
	}

	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to save audit result: %w", err)
	}

	return nil
}

// GetResultByRunUUID retrieves the audit result for a run.
func (r *GormResultRepository) GetResultByRunUUID(ctx context.Context, runUUID string) (*model.AuditResult, error) {
	var record AuditResultRow

	err := r.db.WithContext(ctx).Where("rid = ?", runUUID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("result not found for run: %s", runUUID)
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	return record.ToModel()
}

// UpdateResult updates an existing audit result.
func (r *GormResultRepository) UpdateResult(ctx context.Context, result *model.AuditResult) error {
	candidateSetJSON, err := json.Marshal(result.CandidateSet)
	if err != nil {
		return fmt.Errorf("failed to marshal candidate set: %w", err)
	}

	batchesJSON, err := json.Marshal(result.Batches)
	if err != nil {
		return fmt.Errorf("failed to marshal batches: %w", err)
	}

	res := r.db.WithContext(ctx).
		Model(&AuditResultRow{}).
		Where("rid = ?", result.RunUUID).
		Updates(map[string]interface{}{
			"candidate_set": candidateSetJSON,
			"batches":       batchesJSON,
			"version":       r.version,
		})

	if res.Error != nil {
		return fmt.Errorf("failed to update result: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("result not found for run: %s", result.RunUUID)
	}

	return nil
}

// GormRecommendationRepository implements RecommendationRepository using GORM.
type GormRecommendationRepository struct {
	db *gorm.DB
}

// NewGormRecommendationRepository creates a new GormRecommendationRepository.
func NewGormRecommendationRepository(db *gorm.DB) *GormRecommendationRepository {
	return &GormRecommendationRepository{db: db}
}

// SaveRecommendations saves multiple recommendations to the database.
func (r *GormRecommendationRepository) SaveRecommendations(ctx context.Context, recommendations []model.Recommendation) error {
	if len(recommendations) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		for _, rec := range recommendations {
			if rec.Text == "" {
				continue
			}

			detail := JSONField("{}")
			if rec.Detail != nil {
				detail = JSONField(rec.Detail)
			}

			record := &RecommendationRow{
				RID:            rec.RunUUID,
				Candidate:      rec.Candidate,
				Severity:       rec.Severity,
				Text:           rec.Text,
				WinProbability: rec.WinProbability,
				Detail:         detail,
				CreatedAt:      now,
				UpdatedAt:      now,
			}

			if err := tx.Create(record).Error; err != nil {
				return fmt.Errorf("failed to insert recommendation: %w", err)
			}
		}

		return nil
	})
}

// GetRecommendationsByRunUUID retrieves recommendations for a run.
func (r *GormRecommendationRepository) GetRecommendationsByRunUUID(ctx context.Context, runUUID string) ([]model.Recommendation, error) {
	var records []RecommendationRow

	err := r.db.WithContext(ctx).Where("rid = ?", runUUID).Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
	}

	recommendations := make([]model.Recommendation, len(records))
	for i, rec := range records {
		recommendations[i] = rec.ToModel()
	}

	return recommendations, nil
}

// GetRecommendationRules retrieves all active recommendation rules.
func (r *GormRecommendationRepository) GetRecommendationRules(ctx context.Context) ([]model.RecommendationRule, error) {
	var records []RecommendationRuleRow

	err := r.db.WithContext(ctx).Where("deleted IS NULL").Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}

	rules := make([]model.RecommendationRule, len(records))
	for i, rec := range records {
		rules[i] = rec.ToModel()
	}

	return rules, nil
}

// GormParentRunRepository implements ParentRunRepository using GORM.
type GormParentRunRepository struct {
	db *gorm.DB
}

// NewGormParentRunRepository creates a new GormParentRunRepository.
func NewGormParentRunRepository(db *gorm.DB) *GormParentRunRepository {
	return &GormParentRunRepository{db: db}
}

// GetParentRun retrieves a parent run by its UUID.
func (r *GormParentRunRepository) GetParentRun(ctx context.Context, parentRunUUID string) (*ParentRun, error) {
	var record ParentRunRow

	err := r.db.WithContext(ctx).Where("rid = ?", parentRunUUID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("parent run not found: %s", parentRunUUID)
		}
		return nil, fmt.Errorf("failed to get parent run: %w", err)
	}

	return record.ToParentRun()
}

// UpdateParentRunRecommendations updates the recommendations for a parent run atomically.
func (r *GormParentRunRepository) UpdateParentRunRecommendations(ctx context.Context, parentRunUUID string, class model.ComplexityClass, group model.RecommendationGroup) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record ParentRunRow

		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("rid = ?", parentRunUUID).
			First(&record).Error
		if err != nil {
			return fmt.Errorf("failed to lock parent run: %w", err)
		}

		existing := model.NewRunGroupRecommendations()
		if record.Recommendations != nil {
			if err := json.Unmarshal(record.Recommendations, existing); err != nil {
				existing = model.NewRunGroupRecommendations()
			}
		}

		existing.AddRecommendationGroup(class, group)

		newJSON, err := json.Marshal(existing)
		if err != nil {
			return fmt.Errorf("failed to marshal recommendations: %w", err)
		}

		return tx.Model(&ParentRunRow{}).
			Where("rid = ?", parentRunUUID).
			Update("recommendations", newJSON).Error
	})
}

// UpdateParentRunStatus updates the status of a parent run.
func (r *GormParentRunRepository) UpdateParentRunStatus(ctx context.Context, parentRunUUID string, status model.RunStatus) error {
	updates := map[string]interface{}{
		"status": status,
	}

	if status == model.RunStatusCompleted {
		updates["end_time"] = time.Now()
	}

	return r.db.WithContext(ctx).
		Model(&ParentRunRow{}).
		Where("rid = ?", parentRunUUID).
		Updates(updates).Error
}

// GetIncompleteChildRunCount returns the count of incomplete child runs.
func (r *GormParentRunRepository) GetIncompleteChildRunCount(ctx context.Context, parentRunUUID string) (int, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Model(&AuditRunRow{}).
		Where("parent_run_uuid = ? AND status <= 1", parentRunUUID).
		Count(&count).Error

	if err != nil {
		return 0, fmt.Errorf("failed to count incomplete child runs: %w", err)
	}

	return int(count), nil
}

// CheckAndCompleteIfReady checks if all child runs are done and updates parent run status.
func (r *GormParentRunRepository) CheckAndCompleteIfReady(ctx context.Context, parentRunUUID string) error {
	count, err := r.GetIncompleteChildRunCount(ctx, parentRunUUID)
	if err != nil {
		return err
	}

	var newStatus model.RunStatus
	if count == 0 {
		newStatus = model.RunStatusCompleted
	} else {
		newStatus = model.RunStatusRunning
	}

	return r.UpdateParentRunStatus(ctx, parentRunUUID, newStatus)
}
