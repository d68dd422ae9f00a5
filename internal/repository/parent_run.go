package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/perf-analysis/pkg/model"
)

// PostgresParentRunRepository implements ParentRunRepository for PostgreSQL.
type PostgresParentRunRepository struct {
	db *sql.DB
}

// NewPostgresParentRunRepository creates a new PostgresParentRunRepository.
func NewPostgresParentRunRepository(db *sql.DB) *PostgresParentRunRepository {
	return &PostgresParentRunRepository{db: db}
}

// GetParentRun retrieves a parent run by its UUID.
func (r *PostgresParentRunRepository) GetParentRun(ctx context.Context, parentRunUUID string) (*ParentRun, error) {
	query := `
		SELECT rid, child_run_uuids, recommendations, status
		FROM parent_run
		WHERE rid = $1
	`

	var childrenJSON, recommendationsJSON []byte
	run := &ParentRun{}

	err := r.db.QueryRowContext(ctx, query, parentRunUUID).Scan(
		&run.RunUUID, &childrenJSON, &recommendationsJSON, &run.Status,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("parent run not found: %s", parentRunUUID)
		}
		return nil, fmt.Errorf("failed to get parent run: %w", err)
	}

	if childrenJSON != nil {
		if err := json.Unmarshal(childrenJSON, &run.ChildRunUUIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal child_run_uuids: %w", err)
		}
	}

	if recommendationsJSON != nil {
		run.Recommendations = model.NewRunGroupRecommendations()
		if err := json.Unmarshal(recommendationsJSON, run.Recommendations); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recommendations: %w", err)
		}
	}

	return run, nil
}

// UpdateParentRunRecommendations updates the recommendations for a parent run atomically.
func (r *PostgresParentRunRepository) UpdateParentRunRecommendations(ctx context.Context, parentRunUUID string, class model.ComplexityClass, group model.RecommendationGroup) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existingJSON []byte
	query := `SELECT recommendations FROM parent_run WHERE rid = $1 FOR UPDATE`
	err = tx.QueryRowContext(ctx, query, parentRunUUID).Scan(&existingJSON)
	if err != nil {
		return fmt.Errorf("failed to lock parent run: %w", err)
	}

	var existing *model.RunGroupRecommendations
	if existingJSON != nil {
		existing = model.NewRunGroupRecommendations()
		if err := json.Unmarshal(existingJSON, existing); err != nil {
			existing = model.NewRunGroupRecommendations()
		}
	} else {
		existing = model.NewRunGroupRecommendations()
	}

	existing.AddRecommendationGroup(class, group)

	newJSON, err := json.Marshal(existing)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendations: %w", err)
	}

	updateQuery := `UPDATE parent_run SET recommendations = $1 WHERE rid = $2`
	_, err = tx.ExecContext(ctx, updateQuery, newJSON, parentRunUUID)
	if err != nil {
		return fmt.Errorf("failed to update recommendations: %w", err)
	}

	return tx.Commit()
}

// UpdateParentRunStatus updates the status of a parent run.
func (r *PostgresParentRunRepository) UpdateParentRunStatus(ctx context.Context, parentRunUUID string, status model.RunStatus) error {
	query := `UPDATE parent_run SET status = $1 WHERE rid = $2`
	if status == model.RunStatusCompleted {
		query = `UPDATE parent_run SET status = $1, end_time = $2 WHERE rid = $3`
		_, err := r.db.ExecContext(ctx, query, status, time.Now(), parentRunUUID)
		return err
	}

	_, err := r.db.ExecContext(ctx, query, status, parentRunUUID)
	return err
}

// GetIncompleteChildRunCount returns the count of incomplete child runs.
func (r *PostgresParentRunRepository) GetIncompleteChildRunCount(ctx context.Context, parentRunUUID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM audit_run
		WHERE parent_run_uuid = $1 AND status <= 1
	`

	var count int
	err := r.db.QueryRowContext(ctx, query, parentRunUUID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count incomplete child runs: %w", err)
	}

	return count, nil
}

// CheckAndCompleteIfReady checks if all child runs are done and updates parent run status.
func (r *PostgresParentRunRepository) CheckAndCompleteIfReady(ctx context.Context, parentRunUUID string) error {
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

// MySQLParentRunRepository implements ParentRunRepository for MySQL.
type MySQLParentRunRepository struct {
	db *sql.DB
}

// NewMySQLParentRunRepository creates a new MySQLParentRunRepository.
func NewMySQLParentRunRepository(db *sql.DB) *MySQLParentRunRepository {
	return &MySQLParentRunRepository{db: db}
}

// GetParentRun retrieves a parent run by its UUID.
func (r *MySQLParentRunRepository) GetParentRun(ctx context.Context, parentRunUUID string) (*ParentRun, error) {
	query := `
		SELECT rid, child_run_uuids, recommendations, status
		FROM parent_run
		WHERE rid = ?
	`

	var childrenJSON, recommendationsJSON []byte
	run := &ParentRun{}

	err := r.db.QueryRowContext(ctx, query, parentRunUUID).Scan(
		&run.RunUUID, &childrenJSON, &recommendationsJSON, &run.Status,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("parent run not found: %s", parentRunUUID)
		}
		return nil, fmt.Errorf("failed to get parent run: %w", err)
	}

	if childrenJSON != nil {
		if err := json.Unmarshal(childrenJSON, &run.ChildRunUUIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal child_run_uuids: %w", err)
		}
	}

	if recommendationsJSON != nil {
		run.Recommendations = model.NewRunGroupRecommendations()
		if err := json.Unmarshal(recommendationsJSON, run.Recommendations); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recommendations: %w", err)
		}
	}

	return run, nil
}

// UpdateParentRunRecommendations updates the recommendations for a parent run atomically.
func (r *MySQLParentRunRepository) UpdateParentRunRecommendations(ctx context.Context, parentRunUUID string, class model.ComplexityClass, group model.RecommendationGroup) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existingJSON []byte
	query := `SELECT recommendations FROM parent_run WHERE rid = ? FOR UPDATE`
	err = tx.QueryRowContext(ctx, query, parentRunUUID).Scan(&existingJSON)
	if err != nil {
		return fmt.Errorf("failed to lock parent run: %w", err)
	}

	var existing *model.RunGroupRecommendations
	if existingJSON != nil {
		existing = model.NewRunGroupRecommendations()
		if err := json.Unmarshal(existingJSON, existing); err != nil {
			existing = model.NewRunGroupRecommendations()
		}
	} else {
		existing = model.NewRunGroupRecommendations()
	}

	existing.AddRecommendationGroup(class, group)

	newJSON, err := json.Marshal(existing)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendations: %w", err)
	}

	updateQuery := `UPDATE parent_run SET recommendations = ? WHERE rid = ?`
	_, err = tx.ExecContext(ctx, updateQuery, newJSON, parentRunUUID)
	if err != nil {
		return fmt.Errorf("failed to update recommendations: %w", err)
	}

	return tx.Commit()
}

// UpdateParentRunStatus updates the status of a parent run.
func (r *MySQLParentRunRepository) UpdateParentRunStatus(ctx context.Context, parentRunUUID string, status model.RunStatus) error {
	query := `UPDATE parent_run SET status = ? WHERE rid = ?`
	if status == model.RunStatusCompleted {
		query = `UPDATE parent_run SET status = ?, end_time = ? WHERE rid = ?`
		_, err := r.db.ExecContext(ctx, query, status, time.Now(), parentRunUUID)
		return err
	}

	_, err := r.db.ExecContext(ctx, query, status, parentRunUUID)
	return err
}

// GetIncompleteChildRunCount returns the count of incomplete child runs.
func (r *MySQLParentRunRepository) GetIncompleteChildRunCount(ctx context.Context, parentRunUUID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM audit_run
		WHERE parent_run_uuid = ? AND status <= 1
	`

	var count int
	err := r.db.QueryRowContext(ctx, query, parentRunUUID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count incomplete child runs: %w", err)
	}

	return count, nil
}

// CheckAndCompleteIfReady checks if all child runs are done and updates parent run status.
func (r *MySQLParentRunRepository) CheckAndCompleteIfReady(ctx context.Context, parentRunUUID string) error {
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
