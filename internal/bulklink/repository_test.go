package bulklink

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tildaslashalef/oplink/internal/loggy"
)

func newTestRepository(t *testing.T) (*SQLRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create mock database")
	t.Cleanup(func() { db.Close() })
	return NewSQLRepository(db, loggy.NewNoopLogger()), mock
}

func TestRepository_CreateJob(t *testing.T) {
	repo, mock := newTestRepository(t)
	now := time.Now().UTC()
	job := &Job{
		ID:            "job-01",
		Label:         "wispy-dust",
		WorkPackageID: "42",
		TotalSelected: 2,
		Status:        JobRunning,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO link_jobs").
		WithArgs("job-01", "wispy-dust", "42", 2, 0, 0, "running", "", now, now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO link_job_items").
		WithArgs(
			sqlmock.AnyArg(), "job-01", int64(1), "a.pdf", "pending", 0, "", now,
			sqlmock.AnyArg(), "job-01", int64(2), "b.pdf", "pending", 0, "", now,
		).
		WillReturnResult(sqlmock.NewResult(2, 2))
	mock.ExpectCommit()

	err := repo.CreateJob(context.Background(), job, []FileRef{{ID: 1, Name: "a.pdf"}, {ID: 2, Name: "b.pdf"}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_CreateJobRollsBack(t *testing.T) {
	repo, mock := newTestRepository(t)
	job := &Job{ID: "job-01", Status: JobRunning}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO link_jobs").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO link_job_items").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.CreateJob(context.Background(), job, []FileRef{{ID: 1, Name: "a.pdf"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdateJob(t *testing.T) {
	repo, mock := newTestRepository(t)
	job := &Job{ID: "job-01", Linked: 3, Failed: 1, Status: JobPartial, UpdatedAt: time.Now().UTC()}

	mock.ExpectExec("UPDATE link_jobs SET linked = \\?, failed = \\?, status = \\?, last_error = \\?, updated_at = \\? WHERE id = \\?").
		WithArgs(3, 1, "partial", "", job.UpdatedAt, "job-01").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateJob(context.Background(), job))

	mock.ExpectExec("UPDATE link_jobs").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.UpdateJob(context.Background(), job), ErrJobNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdateItem(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectExec("UPDATE link_job_items SET status = \\?, attempts = attempts \\+ 1, last_error = \\?, updated_at = \\? WHERE file_id = \\? AND job_id = \\?").
		WithArgs("failed", "403 forbidden", sqlmock.AnyArg(), int64(7), "job-01").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateItem(context.Background(), "job-01", 7, ItemFailed, "403 forbidden"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ResetItems(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectExec("UPDATE link_job_items SET status = \\?, updated_at = \\? WHERE file_id IN \\(\\?,\\?\\) AND job_id = \\?").
		WithArgs("pending", sqlmock.AnyArg(), int64(2), int64(4), "job-01").
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.ResetItems(context.Background(), "job-01", []int64{2, 4}))
	require.NoError(t, repo.ResetItems(context.Background(), "job-01", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetJob(t *testing.T) {
	repo, mock := newTestRepository(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT .* FROM link_jobs WHERE id = \\?").
		WithArgs("job-01").
		WillReturnRows(sqlmock.NewRows(jobColumns).
			AddRow("job-01", "wispy-dust", "42", 2, 1, 1, "partial", "", now, now))
	mock.ExpectQuery("SELECT .* FROM link_job_items WHERE job_id = \\? ORDER BY file_id").
		WithArgs("job-01").
		WillReturnRows(sqlmock.NewRows([]string{"id", "job_id", "file_id", "file_name", "status", "attempts", "last_error", "updated_at"}).
			AddRow("item-1", "job-01", int64(1), "a.pdf", "linked", 1, "", now).
			AddRow("item-2", "job-01", int64(2), "b.pdf", "failed", 2, "500", now))

	job, items, err := repo.GetJob(context.Background(), "job-01")
	require.NoError(t, err)
	assert.Equal(t, "wispy-dust", job.Label)
	assert.Equal(t, JobPartial, job.Status)
	require.Len(t, items, 2)
	assert.Equal(t, ItemFailed, items[1].Status)
	assert.Equal(t, 2, items[1].Attempts)
	assert.Equal(t, FileRef{ID: 2, Name: "b.pdf"}, items[1].File)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetJobNotFound(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectQuery("SELECT .* FROM link_jobs").
		WithArgs("job-x").
		WillReturnRows(sqlmock.NewRows(jobColumns))

	_, _, err := repo.GetJob(context.Background(), "job-x")
	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListJobs(t *testing.T) {
	repo, mock := newTestRepository(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT .* FROM link_jobs ORDER BY created_at DESC LIMIT 20").
		WillReturnRows(sqlmock.NewRows(jobColumns).
			AddRow("job-02", "calm-sea", "43", 1, 1, 0, "completed", "", now, now).
			AddRow("job-01", "wispy-dust", "42", 2, 1, 1, "partial", "", now, now))

	jobs, err := repo.ListJobs(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "job-02", jobs[0].ID)
	assert.Equal(t, JobCompleted, jobs[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
