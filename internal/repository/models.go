// Package repository provides database abstraction for the ballot-audit service.
package repository

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/perf-analysis/pkg/model"
)

// AuditRunRow represents the audit_run table.
type AuditRunRow struct {
	ID            int64            `gorm:"column:id;primaryKey;autoIncrement"`
	RID           string           `gorm:"column:rid;type:varchar(64);uniqueIndex"`
	Status        model.RunStatus  `gorm:"column:status"`
	StatusInfo    string           `gorm:"column:status_info;type:text"`
	ResultFile    string           `gorm:"column:result_file;type:varchar(512)"`
	UserName      string           `gorm:"column:user_name;type:varchar(128)"`
	ParentRunUUID *string          `gorm:"column:parent_run_uuid;type:varchar(64)"`
	StorageBucket string           `gorm:"column:storage_bucket;type:varchar(128)"`
	RequestParams JSONField        `gorm:"column:request_params;type:json"`
	CreateTime    time.Time        `gorm:"column:create_time;autoCreateTime"`
	BeginTime     *time.Time       `gorm:"column:begin_time"`
	EndTime       *time.Time       `gorm:"column:end_time"`
}

// TableName returns the table name for AuditRunRow.
func (AuditRunRow) TableName() string {
	return "audit_run"
}

// ToModel converts AuditRunRow to model.AuditRun.
func (r *AuditRunRow) ToModel() *model.AuditRun {
	run := &model.AuditRun{
		ID:            r.ID,
		RunUUID:       r.RID,
		Status:        r.Status,
		StatusInfo:    r.StatusInfo,
		ResultFile:    r.ResultFile,
		UserName:      r.UserName,
		ParentRunUUID: r.ParentRunUUID,
		StorageBucket: r.StorageBucket,
		CreateTime:    r.CreateTime,
		BeginTime:     r.BeginTime,
		EndTime:       r.EndTime,
	}

	if r.RequestParams != nil {
		_ = json.Unmarshal(r.RequestParams, &run.RequestParams)
	}

	return run
}

// AuditResultRow represents the audit_results table.
type AuditResultRow struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	RID          string    `gorm:"column:rid;type:varchar(64);uniqueIndex"`
	CandidateSet JSONField `gorm:"column:candidate_set;type:json"`
	Batches      JSONField `gorm:"column:batches;type:json"`
	Version      string    `gorm:"column:version;type:varchar(32)"`
}

// TableName returns the table name for AuditResultRow.
func (AuditResultRow) TableName() string {
	return "audit_results"
}

// ToModel converts AuditResultRow to model.AuditResult.
func (r *AuditResultRow) ToModel() (*model.AuditResult, error) {
	result := &model.AuditResult{
		RunUUID: r.RID,
		Version: r.Version,
	}

	if r.CandidateSet != nil {
		if err := json.Unmarshal(r.CandidateSet, &result.CandidateSet); err != nil {
			return nil, err
		}
	}

	if r.Batches != nil {
		if err := json.Unmarshal(r.Batches, &result.Batches); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// RecommendationRow represents the recommendations table.
type RecommendationRow struct {
	ID             int64     `gorm:"column:id;primaryKey;autoIncrement"`
	RID            string    `gorm:"column:rid;type:varchar(64);index"`
	Candidate      string    `gorm:"column:candidate;type:varchar(256)"`
	Severity       string    `gorm:"column:severity;type:varchar(64)"`
	Text           string    `gorm:"column:text;type:text"`
	WinProbability float64   `gorm:"column:win_probability"`
	Detail         JSONField `gorm:"column:detail;type:json"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the table name for RecommendationRow.
func (RecommendationRow) TableName() string {
	return "recommendations"
}

// ToModel converts RecommendationRow to model.Recommendation.
func (r *RecommendationRow) ToModel() model.Recommendation {
	return model.Recommendation{
		ID:             r.ID,
		RunUUID:        r.RID,
		Candidate:      r.Candidate,
		Severity:       r.Severity,
		Text:           r.Text,
		WinProbability: r.WinProbability,
		Detail:         json.RawMessage(r.Detail),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

// RecommendationRuleRow represents the recommendation_rules table.
type RecommendationRuleRow struct {
	ID                     int64   `gorm:"column:id;primaryKey;autoIncrement"`
	Type                   string  `gorm:"column:type;type:varchar(64)"`
	Operation              string  `gorm:"column:operation;type:varchar(64)"`
	Target                 string  `gorm:"column:target;type:varchar(512)"`
	TargetType             string  `gorm:"column:target_type;type:varchar(64)"`
	Threshold              float64 `gorm:"column:threshold"`
	RecommendationContent  string  `gorm:"column:recommendation_content;type:text"`
	Deleted                *int64  `gorm:"column:deleted"`
}

// TableName returns the table name for RecommendationRuleRow.
func (RecommendationRuleRow) TableName() string {
	return "recommendation_rules"
}

// ToModel converts RecommendationRuleRow to model.RecommendationRule.
func (r *RecommendationRuleRow) ToModel() model.RecommendationRule {
	return model.RecommendationRule{
		ID:                     r.ID,
		Type:                   r.Type,
		Operation:              r.Operation,
		Target:                 r.Target,
		TargetType:             r.TargetType,
		Threshold:              r.Threshold,
		RecommendationContent:  r.RecommendationContent,
	}
}

// ParentRunRow represents the parent_run table, for runs that fan out
// into several child runs.
type ParentRunRow struct {
	RID             string    `gorm:"column:rid;type:varchar(64);primaryKey"`
	ChildRunUUIDs   JSONField `gorm:"column:child_run_uuids;type:json"`
	Recommendations JSONField `gorm:"column:recommendations;type:json"`
	Status          model.RunStatus `gorm:"column:status"`
	EndTime         *time.Time `gorm:"column:end_time"`
}

// TableName returns the table name for ParentRunRow.
func (ParentRunRow) TableName() string {
	return "parent_run"
}

// ToParentRun converts ParentRunRow to ParentRun.
func (r *ParentRunRow) ToParentRun() (*ParentRun, error) {
	run := &ParentRun{
		RunUUID: r.RID,
		Status:  r.Status,
	}

	if r.ChildRunUUIDs != nil {
		if err := json.Unmarshal(r.ChildRunUUIDs, &run.ChildRunUUIDs); err != nil {
			return nil, err
		}
	}

	if r.Recommendations != nil {
		run.Recommendations = model.NewRunGroupRecommendations()
		if err := json.Unmarshal(r.Recommendations, run.Recommendations); err != nil {
			run.Recommendations = model.NewRunGroupRecommendations()
		}
	}

	return run, nil
}

// JSONField is a custom type for handling JSON fields in GORM.
type JSONField []byte

// Value implements driver.Valuer interface.
func (j JSONField) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return []byte(j), nil
}

// Scan implements sql.Scanner interface.
func (j *JSONField) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		*j = append((*j)[0:0], v...)
		return nil
	case string:
		*j = []byte(v)
		return nil
	default:
		return errors.New("unsupported type for JSONField")
	}
}

// MarshalJSON implements json.Marshaler interface.
func (j JSONField) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON implements json.Unmarshaler interface.
func (j *JSONField) UnmarshalJSON(data []byte) error {
	if data == nil || string(data) == "null" {
		*j = nil
		return nil
	}
	*j = append((*j)[0:0], data...)
	return nil
}
