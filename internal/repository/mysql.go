package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/perf-analysis/pkg/model"
)

// MySQLRunRepository implements RunRepository for MySQL.
type MySQLRunRepository struct {
	db *sql.DB
}

// NewMySQLRunRepository creates a new MySQLRunRepository.
func NewMySQLRunRepository(db *sql.DB) *MySQLRunRepository {
	return &MySQLRunRepository{db: db}
}

// GetPendingRuns retrieves runs that are queued but not yet dispatched.
func (r *MySQLRunRepository) GetPendingRuns(ctx context.Context, limit int) ([]*model.AuditRun, error) {
	query := `
		SELECT id, rid, status, COALESCE(status_info, ''), COALESCE(result_file, ''),
			   COALESCE(user_name, ''), parent_run_uuid, COALESCE(storage_bucket, ''),
			   request_params, create_time, begin_time, end_time
		FROM audit_run
		WHERE status = ?
		ORDER BY id DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, model.RunStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending runs: %w", err)
	}
	defer rows.Close()

	return r.scanRuns(rows)
}

// GetRunByID retrieves a run by its ID.
func (r *MySQLRunRepository) GetRunByID(ctx context.Context, id int64) (*model.AuditRun, error) {
	query := `
		SELECT id, rid, status, COALESCE(status_info, ''), COALESCE(result_file, ''),
			   COALESCE(user_name, ''), parent_run_uuid, COALESCE(storage_bucket, ''),
			   request_params, create_time, begin_time, end_time
		FROM audit_run
		WHERE id = ?
	`

	run := &model.AuditRun{}
	var requestParamsJSON []byte
	var parentRunUUID sql.NullString
	var beginTime, endTime sql.NullTime

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID, &run.RunUUID, &run.Status, &run.StatusInfo, &run.ResultFile,
		&run.UserName, &parentRunUUID, &run.StorageBucket,
		&requestParamsJSON, &run.CreateTime, &beginTime, &endTime,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("run not found: %d", id)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if parentRunUUID.Valid {
		run.ParentRunUUID = &parentRunUUID.String
	}
	if beginTime.Valid {
		run.BeginTime = &beginTime.Time
	}
	if endTime.Valid {
		run.EndTime = &endTime.Time
	}

	if requestParamsJSON != nil {
		if err := json.Unmarshal(requestParamsJSON, &run.RequestParams); err != nil {
			return nil, fmt.Errorf("failed to parse request params: %w", err)
		}
	}

	return run, nil
}

// GetRunByUUID retrieves a run by its UUID.
func (r *MySQLRunRepository) GetRunByUUID(ctx context.Context, uuid string) (*model.AuditRun, error) {
	query := `
		SELECT id, rid, status, COALESCE(status_info, ''), COALESCE(result_file, ''),
			   COALESCE(user_name, ''), parent_run_uuid, COALESCE(storage_bucket, ''),
			   request_params, create_time, begin_time, end_time
		FROM audit_run
		WHERE rid = ?
	`

	run := &model.AuditRun{}
	var requestParamsJSON []byte
	var parentRunUUID sql.NullString
	var beginTime, endTime sql.NullTime

	err := r.db.QueryRowContext(ctx, query, uuid).Scan(
		&run.ID, &run.RunUUID, &run.Status, &run.StatusInfo, &run.ResultFile,
		&run.UserName, &parentRunUUID, &run.StorageBucket,
		&requestParamsJSON, &run.CreateTime, &beginTime, &endTime,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("run not found: %s", uuid)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if parentRunUUID.Valid {
		run.ParentRunUUID = &parentRunUUID.String
	}
	if beginTime.Valid {
		run.BeginTime = &beginTime.Time
	}
	if endTime.Valid {
		run.EndTime = &endTime.Time
	}

	if requestParamsJSON != nil {
		if err := json.Unmarshal(requestParamsJSON, &run.RequestParams); err != nil {
			return nil, fmt.Errorf("failed to parse request params: %w", err)
		}
	}

	return run, nil
}

// UpdateRunStatus updates the status of a run.
func (r *MySQLRunRepository) UpdateRunStatus(ctx context.Context, id int64, status model.RunStatus) error {
	query := `UPDATE audit_run SET status = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run not found: %d", id)
	}

	return nil
}

// UpdateRunStatusWithInfo updates the status with additional info.
func (r *MySQLRunRepository) UpdateRunStatusWithInfo(ctx context.Context, id int64, status model.RunStatus, info string) error {
	query := `UPDATE audit_run SET status = ?, status_info = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, status, info, id)
	if err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run not found: %d", id)
	}

	return nil
}

// LockRunForProcessing attempts to lock a run for processing using FOR UPDATE.
func (r *MySQLRunRepository) LockRunForProcessing(ctx context.Context, id int64) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var status model.RunStatus
	query := `SELECT status FROM audit_run WHERE id = ? AND status = ? FOR UPDATE`
	err = tx.QueryRowContext(ctx, query, id, model.RunStatusPending).Scan(&status)
	if err != nil {
		if err == sql.ErrNoRows || strings.Contains(err.Error(), "lock wait timeout") {
			return false, nil
		}
		return false, fmt.Errorf("failed to lock run: %w", err)
	}

	updateQuery := `UPDATE audit_run SET status = ? WHERE id = ?`
	_, err = tx.ExecContext(ctx, updateQuery, model.RunStatusRunning, id)
	if err != nil {
		return false, fmt.Errorf("failed to update status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return true, nil
}

// scanRuns scans multiple runs from rows.
func (r *MySQLRunRepository) scanRuns(rows *sql.Rows) ([]*model.AuditRun, error) {
	var runs []*model.AuditRun

	for rows.Next() {
		run := &model.AuditRun{}
		var requestParamsJSON []byte
		var parentRunUUID sql.NullString
		var beginTime, endTime sql.NullTime

		err := rows.Scan(
			&run.ID, &run.RunUUID, &run.Status, &run.StatusInfo, &run.ResultFile,
			&run.UserName, &parentRunUUID, &run.StorageBucket,
			&requestParamsJSON, &run.CreateTime, &beginTime, &endTime,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}

		if parentRunUUID.Valid {
			run.ParentRunUUID = &parentRunUUID.String
		}
		if beginTime.Valid {
			run.BeginTime = &beginTime.Time
		}
		if endTime.Valid {
			run.EndTime = &endTime.Time
		}

		if requestParamsJSON != nil {
			if err := json.Unmarshal(requestParamsJSON, &run.RequestParams); err != nil {
				return nil, fmt.Errorf("failed to parse request params: %w", err)
			}
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return runs, nil
}

// MySQLResultRepository implements ResultRepository for MySQL.
type MySQLResultRepository struct {
	db      *sql.DB
	version string
}

// NewMySQLResultRepository creates a new MySQLResultRepository.
func NewMySQLResultRepository(db *sql.DB, version string) *MySQLResultRepository {
	return &MySQLResultRepository{db: db, version: version}
}

// SaveResult saves an audit result to the database.
func (r *MySQLResultRepository) SaveResult(ctx context.Context, result *model.AuditResult) error {
	candidateSetJSON, err := json.Marshal(result.CandidateSet)
	if err != nil {
		return fmt.Errorf("failed to marshal candidate set: %w", err)
	}

	batchesJSON, err := json.Marshal(result.Batches)
	if err != nil {
		return fmt.Errorf("failed to marshal batches: %w", err)
	}

	query := `
		INSERT INTO audit_results (rid, candidate_set, batches, version)
		VALUES (?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query, result.RunUUID, candidateSetJSON, batchesJSON, r.version)
	if err != nil {
		return fmt.Errorf("failed to save audit result: %w", err)
	}

	return nil
}

// GetResultByRunUUID retrieves the audit result for a run.
func (r *MySQLResultRepository) GetResultByRunUUID(ctx context.Context, runUUID string) (*model.AuditResult, error) {
	query := `
		SELECT rid, candidate_set, batches, version
		FROM audit_results
		WHERE rid = ?
	`

	var candidateSetJSON, batchesJSON []byte
	result := &model.AuditResult{}

	err := r.db.QueryRowContext(ctx, query, runUUID).Scan(
		&result.RunUUID, &candidateSetJSON, &batchesJSON, &result.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("result not found for run: %s", runUUID)
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	if candidateSetJSON != nil {
		if err := json.Unmarshal(candidateSetJSON, &result.CandidateSet); err != nil {
			return nil, fmt.Errorf("failed to unmarshal candidate set: %w", err)
		}
	}

	if batchesJSON != nil {
		if err := json.Unmarshal(batchesJSON, &result.Batches); err != nil {
			return nil, fmt.Errorf("failed to unmarshal batches: %w", err)
		}
	}

	return result, nil
}

// UpdateResult updates an existing audit result.
func (r *MySQLResultRepository) UpdateResult(ctx context.Context, result *model.AuditResult) error {
	candidateSetJSON, err := json.Marshal(result.CandidateSet)
	if err != nil {
		return fmt.Errorf("failed to marshal candidate set: %w", err)
	}

	batchesJSON, err := json.Marshal(result.Batches)
	if err != nil {
		return fmt.Errorf("failed to marshal batches: %w", err)
	}

	query := `
		UPDATE audit_results
		SET candidate_set = ?, batches = ?, version = ?
		WHERE rid = ?
	`

	res, err := r.db.ExecContext(ctx, query, candidateSetJSON, batchesJSON, r.version, result.RunUUID)
	if err != nil {
		return fmt.Errorf("failed to update result: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("result not found for run: %s", result.RunUUID)
	}

	return nil
}

// MySQLRecommendationRepository implements RecommendationRepository for MySQL.
type MySQLRecommendationRepository struct {
	db *sql.DB
}

// NewMySQLRecommendationRepository creates a new MySQLRecommendationRepository.
func NewMySQLRecommendationRepository(db *sql.DB) *MySQLRecommendationRepository {
	return &MySQLRecommendationRepository{db: db}
}

// SaveRecommendations saves multiple recommendations to the database.
func (r *MySQLRecommendationRepository) SaveRecommendations(ctx context.Context, recommendations []model.Recommendation) error {
	if len(recommendations) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO recommendations (rid, candidate, text, win_probability, detail, created_at, updated_at, severity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now()
	for _, rec := range recommendations {
		if rec.Text == "" {
			continue
		}

		detailJSON := "{}"
		if rec.Detail != nil {
			detailJSON = string(rec.Detail)
		}

		_, err := tx.ExecContext(ctx, query,
			rec.RunUUID, rec.Candidate, rec.Text, rec.WinProbability,
			detailJSON, now, now, rec.Severity,
		)
		if err != nil {
			return fmt.Errorf("failed to insert recommendation: %w", err)
		}
	}

	return tx.Commit()
}

// GetRecommendationsByRunUUID retrieves recommendations for a run.
func (r *MySQLRecommendationRepository) GetRecommendationsByRunUUID(ctx context.Context, runUUID string) ([]model.Recommendation, error) {
	query := `
		SELECT id, rid, COALESCE(candidate, ''), text, COALESCE(win_probability, 0),
			   detail, COALESCE(severity, ''), created_at, updated_at
		FROM recommendations
		WHERE rid = ?
	`

	rows, err := r.db.QueryContext(ctx, query, runUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
	}
	defer rows.Close()

	var recommendations []model.Recommendation
	for rows.Next() {
		var rec model.Recommendation
		var detailJSON []byte

		err := rows.Scan(
			&rec.ID, &rec.RunUUID, &rec.Candidate, &rec.Text, &rec.WinProbability,
			&detailJSON, &rec.Severity, &rec.CreatedAt, &rec.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recommendation: %w", err)
		}

		rec.Detail = detailJSON
		recommendations = append(recommendations, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return recommendations, nil
}

// GetRecommendationRules retrieves all active recommendation rules.
func (r *MySQLRecommendationRepository) GetRecommendationRules(ctx context.Context) ([]model.RecommendationRule, error) {
	query := `
		SELECT id, type, operation, target, target_type, threshold, recommendation_content
		FROM recommendation_rules
		WHERE deleted IS NULL
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var rules []model.RecommendationRule
	for rows.Next() {
		var rule model.RecommendationRule
		err := rows.Scan(
			&rule.ID, &rule.Type, &rule.Operation, &rule.Target,
			&rule.TargetType, &rule.Threshold, &rule.RecommendationContent,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return rules, nil
}
