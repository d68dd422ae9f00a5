package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perf-analysis/pkg/model"
)

func TestPostgresParentRunRepository(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresParentRunRepository(db)

	t.Run("GetParentRun_Success", func(t *testing.T) {
		childUUIDs := []string{"child-1", "child-2"}
		childrenJSON, _ := json.Marshal(childUUIDs)
		recommendationsJSON, _ := json.Marshal(model.NewRunGroupRecommendations())

		rows := sqlmock.NewRows([]string{"rid", "child_run_uuids", "recommendations", "status"}).
			AddRow("parent-1", childrenJSON, recommendationsJSON, model.RunStatusRunning)

		mock.ExpectQuery("SELECT rid, child_run_uuids").WithArgs("parent-1").WillReturnRows(rows)

		run, err := repo.GetParentRun(context.Background(), "parent-1")
		require.NoError(t, err)
		assert.Equal(t, "parent-1", run.RunUUID)
		assert.Equal(t, 2, len(run.ChildRunUUIDs))
	})

	t.Run("GetParentRun_NotFound", func(t *testing.T) {
		mock.ExpectQuery("SELECT rid, child_run_uuids").WithArgs("nonexistent").WillReturnError(sql.ErrNoRows)

		run, err := repo.GetParentRun(context.Background(), "nonexistent")
		assert.Error(t, err)
		assert.Nil(t, run)
		assert.Contains(t, err.Error(), "parent run not found")
	})

	t.Run("GetIncompleteChildRunCount_Success", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"count"}).AddRow(2)
		mock.ExpectQuery("SELECT COUNT").WithArgs("parent-1").WillReturnRows(rows)

		count, err := repo.GetIncompleteChildRunCount(context.Background(), "parent-1")
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("UpdateParentRunStatus_Running", func(t *testing.T) {
		mock.ExpectExec("UPDATE parent_run SET status").
			WithArgs(model.RunStatusRunning, "parent-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateParentRunStatus(context.Background(), "parent-1", model.RunStatusRunning)
		require.NoError(t, err)
	})

	t.Run("UpdateParentRunStatus_Completed", func(t *testing.T) {
		mock.ExpectExec("UPDATE parent_run SET status").
			WithArgs(model.RunStatusCompleted, sqlmock.AnyArg(), "parent-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateParentRunStatus(context.Background(), "parent-1", model.RunStatusCompleted)
		require.NoError(t, err)
	})
}

func TestMySQLParentRunRepository(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewMySQLParentRunRepository(db)

	t.Run("GetParentRun_Success", func(t *testing.T) {
		childUUIDs := []string{"child-1"}
		childrenJSON, _ := json.Marshal(childUUIDs)

		rows := sqlmock.NewRows([]string{"rid", "child_run_uuids", "recommendations", "status"}).
			AddRow("parent-mysql-1", childrenJSON, nil, model.RunStatusPending)

		mock.ExpectQuery("SELECT rid, child_run_uuids").WithArgs("parent-mysql-1").WillReturnRows(rows)

		run, err := repo.GetParentRun(context.Background(), "parent-mysql-1")
		require.NoError(t, err)
		assert.Equal(t, "parent-mysql-1", run.RunUUID)
	})

	t.Run("GetIncompleteChildRunCount_Success", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"count"}).AddRow(0)
		mock.ExpectQuery("SELECT COUNT").WithArgs("parent-mysql-1").WillReturnRows(rows)

		count, err := repo.GetIncompleteChildRunCount(context.Background(), "parent-mysql-1")
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("CheckAndCompleteIfReady_AllComplete", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"count"}).AddRow(0)
		mock.ExpectQuery("SELECT COUNT").WithArgs("parent-mysql-1").WillReturnRows(rows)

		mock.ExpectExec("UPDATE parent_run SET status").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.CheckAndCompleteIfReady(context.Background(), "parent-mysql-1")
		require.NoError(t, err)
	})

	t.Run("UpdateParentRunRecommendations_Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT recommendations FROM parent_run").
			WithArgs("parent-mysql-1").
			WillReturnRows(sqlmock.NewRows([]string{"recommendations"}).AddRow(nil))
		mock.ExpectExec("UPDATE parent_run SET recommendations").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		group := model.RecommendationGroup{}
		err := repo.UpdateParentRunRecommendations(context.Background(), "parent-mysql-1", model.ComplexityLight, group)
		require.NoError(t, err)
	})
}
