package bulklink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/tildaslashalef/oplink/internal/database"
	"github.com/tildaslashalef/oplink/internal/loggy"
	"github.com/tildaslashalef/oplink/internal/ulid"
)

// Repository persists link jobs and their items
type Repository interface {
	CreateJob(ctx context.Context, job *Job, files []FileRef) error
	UpdateJob(ctx context.Context, job *Job) error
	UpdateItem(ctx context.Context, jobID string, fileID int64, status ItemStatus, lastError string) error
	ResetItems(ctx context.Context, jobID string, fileIDs []int64) error
	GetJob(ctx context.Context, jobID string) (*Job, []*Item, error)
	ListJobs(ctx context.Context, limit int) ([]*Job, error)
}

// SQLRepository implements Repository on the link_jobs and link_job_items tables
type SQLRepository struct {
	db      *sql.DB
	logger  *loggy.Logger
	builder sq.StatementBuilderType
}

// NewSQLRepository creates a new link job repository
func NewSQLRepository(db *sql.DB, logger *loggy.Logger) *SQLRepository {
	return &SQLRepository{
		db:      db,
		logger:  logger,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
}

var jobColumns = []string{
	"id",
	"label",
	"work_package_id",
	"total_selected",
	"linked",
	"failed",
	"status",
	"last_error",
	"created_at",
	"updated_at",
}

// CreateJob inserts the job with one pending item per file
func (r *SQLRepository) CreateJob(ctx context.Context, job *Job, files []FileRef) error {
	jobQuery, jobArgs, err := r.builder.
		Insert("link_jobs").
		Columns(jobColumns...).
		Values(
			job.ID,
			job.Label,
			job.WorkPackageID,
			job.TotalSelected,
			job.Linked,
			job.Failed,
			string(job.Status),
			job.LastError,
			job.CreatedAt,
			job.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("building insert job query: %w", err)
	}

	itemInsert := r.builder.
		Insert("link_job_items").
		Columns("id", "job_id", "file_id", "file_name", "status", "attempts", "last_error", "updated_at")
	for _, f := range files {
		itemInsert = itemInsert.Values(ulid.ItemID(), job.ID, f.ID, f.Name, string(ItemPending), 0, "", job.CreatedAt)
	}
	itemQuery, itemArgs, err := itemInsert.ToSql()
	if err != nil {
		return fmt.Errorf("building insert items query: %w", err)
	}

	err = database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, jobQuery, jobArgs...); err != nil {
			return fmt.Errorf("inserting link job: %w", err)
		}
		if _, err := tx.ExecContext(ctx, itemQuery, itemArgs...); err != nil {
			return fmt.Errorf("inserting link job items: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Debug("Created link job", "id", job.ID, "items", len(files))
	return nil
}

// UpdateJob stores the counters and status of a job
func (r *SQLRepository) UpdateJob(ctx context.Context, job *Job) error {
	query, args, err := r.builder.
		Update("link_jobs").
		Set("linked", job.Linked).
		Set("failed", job.Failed).
		Set("status", string(job.Status)).
		Set("last_error", job.LastError).
		Set("updated_at", job.UpdatedAt).
		Where(sq.Eq{"id": job.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building update job query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating link job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rows == 0 {
		return ErrJobNotFound
	}
	return nil
}

// UpdateItem records the outcome of one link attempt
func (r *SQLRepository) UpdateItem(ctx context.Context, jobID string, fileID int64, status ItemStatus, lastError string) error {
	query, args, err := r.builder.
		Update("link_job_items").
		Set("status", string(status)).
		Set("attempts", sq.Expr("attempts + 1")).
		Set("last_error", lastError).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"job_id": jobID, "file_id": fileID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building update item query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("updating link job item: %w", err)
	}
	return nil
}

// ResetItems puts items back to pending before a retry
func (r *SQLRepository) ResetItems(ctx context.Context, jobID string, fileIDs []int64) error {
	if len(fileIDs) == 0 {
		return nil
	}

	query, args, err := r.builder.
		Update("link_job_items").
		Set("status", string(ItemPending)).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"job_id": jobID, "file_id": fileIDs}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building reset items query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("resetting link job items: %w", err)
	}
	return nil
}

// GetJob loads a job and all of its items
func (r *SQLRepository) GetJob(ctx context.Context, jobID string) (*Job, []*Item, error) {
	query, args, err := r.builder.
		Select(jobColumns...).
		From("link_jobs").
		Where(sq.Eq{"id": jobID}).
		ToSql()
	if err != nil {
		return nil, nil, fmt.Errorf("building select job query: %w", err)
	}

	job, err := scanJob(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrJobNotFound
		}
		return nil, nil, fmt.Errorf("scanning link job: %w", err)
	}

	itemQuery, itemArgs, err := r.builder.
		Select("id", "job_id", "file_id", "file_name", "status", "attempts", "last_error", "updated_at").
		From("link_job_items").
		Where(sq.Eq{"job_id": jobID}).
		OrderBy("file_id").
		ToSql()
	if err != nil {
		return nil, nil, fmt.Errorf("building select items query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, itemQuery, itemArgs...)
	if err != nil {
		return nil, nil, fmt.Errorf("querying link job items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		var (
			item   Item
			status string
		)
		if err := rows.Scan(
			&item.ID,
			&item.JobID,
			&item.File.ID,
			&item.File.Name,
			&status,
			&item.Attempts,
			&item.LastError,
			&item.UpdatedAt,
		); err != nil {
			return nil, nil, fmt.Errorf("scanning link job item: %w", err)
		}
		item.Status = ItemStatus(status)
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterating link job items: %w", err)
	}

	return job, items, nil
}

// ListJobs returns the most recent jobs first
func (r *SQLRepository) ListJobs(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 20
	}

	query, args, err := r.builder.
		Select(jobColumns...).
		From("link_jobs").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building list jobs query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying link jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning link job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating link jobs: %w", err)
	}

	return jobs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*Job, error) {
	var (
		job    Job
		status string
	)
	if err := row.Scan(
		&job.ID,
		&job.Label,
		&job.WorkPackageID,
		&job.TotalSelected,
		&job.Linked,
		&job.Failed,
		&status,
		&job.LastError,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	job.Status = JobStatus(status)
	return &job, nil
}
