package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perf-analysis/pkg/model"
)

func TestMySQLRunRepository_GetPendingRuns(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewMySQLRunRepository(db)

	t.Run("GetPendingRuns_Success", func(t *testing.T) {
		requestParams := model.AuditParams{A0: 0.1}
		paramsJSON, _ := json.Marshal(requestParams)

		rows := sqlmock.NewRows([]string{
			"id", "rid", "status", "status_info", "result_file", "user_name",
			"parent_run_uuid", "storage_bucket", "request_params", "create_time",
			"begin_time", "end_time",
		}).AddRow(
			int64(1), "uuid-1", model.RunStatusPending, "", "result.data",
			"testuser", nil, "bucket-1", paramsJSON, time.Now(), nil, nil,
		)

		mock.ExpectQuery("SELECT id, rid, status").WillReturnRows(rows)

		runs, err := repo.GetPendingRuns(context.Background(), 10)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, int64(1), runs[0].ID)
	})
}

func TestMySQLRunRepository_GetRunByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewMySQLRunRepository(db)

	t.Run("GetRunByID_NotFound", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, rid, status").WithArgs(int64(999)).WillReturnError(sql.ErrNoRows)

		run, err := repo.GetRunByID(context.Background(), 999)
		assert.Error(t, err)
		assert.Nil(t, run)
		assert.Contains(t, err.Error(), "run not found")
	})
}

func TestMySQLRunRepository_UpdateRunStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewMySQLRunRepository(db)

	t.Run("UpdateStatus_Success", func(t *testing.T) {
		mock.ExpectExec("UPDATE audit_run").
			WithArgs(model.RunStatusCompleted, int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateRunStatus(context.Background(), 1, model.RunStatusCompleted)
		require.NoError(t, err)
	})

	t.Run("UpdateStatus_NotFound", func(t *testing.T) {
		mock.ExpectExec("UPDATE audit_run").
			WithArgs(model.RunStatusCompleted, int64(999)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateRunStatus(context.Background(), 999, model.RunStatusCompleted)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "run not found")
	})
}

func TestMySQLResultRepository_SaveResult(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewMySQLResultRepository(db, "1.0.0")

	t.Run("SaveResult_Success", func(t *testing.T) {
		result := &model.AuditResult{
			RunUUID:      "uuid-1",
			CandidateSet: map[string]model.CandidateEntry{},
			Batches:      map[string]model.BatchResult{},
		}

		mock.ExpectExec("INSERT INTO audit_results").
			WithArgs(result.RunUUID, sqlmock.AnyArg(), sqlmock.AnyArg(), "1.0.0").
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := repo.SaveResult(context.Background(), result)
		require.NoError(t, err)
	})
}

func TestMySQLResultRepository_UpdateResult(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewMySQLResultRepository(db, "1.0.0")

	t.Run("UpdateResult_Success", func(t *testing.T) {
		result := &model.AuditResult{
			RunUUID:      "uuid-1",
			CandidateSet: map[string]model.CandidateEntry{},
			Batches:      map[string]model.BatchResult{},
		}

		mock.ExpectExec("UPDATE audit_results").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateResult(context.Background(), result)
		require.NoError(t, err)
	})

	t.Run("UpdateResult_NotFound", func(t *testing.T) {
		result := &model.AuditResult{
			RunUUID:      "nonexistent",
			CandidateSet: map[string]model.CandidateEntry{},
			Batches:      map[string]model.BatchResult{},
		}

		mock.ExpectExec("UPDATE audit_results").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateResult(context.Background(), result)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "result not found")
	})
}

func TestMySQLRecommendationRepository_SaveRecommendations(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewMySQLRecommendationRepository(db)

	t.Run("SaveRecommendations_Success", func(t *testing.T) {
		recommendations := []model.Recommendation{
			{RunUUID: "uuid-1", Text: "Draw additional ballots before certifying"},
		}

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO recommendations").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		err := repo.SaveRecommendations(context.Background(), recommendations)
		require.NoError(t, err)
	})

	t.Run("SaveRecommendations_Empty", func(t *testing.T) {
		err := repo.SaveRecommendations(context.Background(), nil)
		require.NoError(t, err)
	})
}

func TestMySQLRecommendationRepository_GetRecommendationRules(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewMySQLRecommendationRepository(db)

	rows := sqlmock.NewRows([]string{"id", "type", "operation", "target", "target_type", "threshold", "recommendation_content"}).
		AddRow(int64(1), "win_probability", "lt", "win_probability", "candidate", 0.95, "Draw more ballots")

	mock.ExpectQuery("SELECT id, type, operation").WillReturnRows(rows)

	rules, err := repo.GetRecommendationRules(context.Background())
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "win_probability", rules[0].Type)
}
