package bulklink

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tildaslashalef/oplink/internal/loggy"
	"github.com/tildaslashalef/oplink/internal/ulid"
	"github.com/tildaslashalef/oplink/internal/utils"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Linker links one file to a work package. Errors wrapping ErrUnreachable
// mean the request never reached the server.
type Linker interface {
	LinkFile(ctx context.Context, workPackageID string, file FileRef) error
}

// Options tune an Orchestrator
type Options struct {
	Concurrency       int
	RequestsPerMinute int
	BurstLimit        int
	// OnProgress is called after every resolved file, possibly from several goroutines
	OnProgress func(Progress)
}

// Orchestrator runs one bulk link job at a time
type Orchestrator struct {
	linker      Linker
	repo        Repository
	limiter     *rate.Limiter
	concurrency int
	onProgress  func(Progress)
	logger      *loggy.Logger

	mu      sync.Mutex
	state   *state
	running bool
}

// NewOrchestrator creates an orchestrator. repo may be nil, in which case jobs are not persisted.
func NewOrchestrator(linker Linker, repo Repository, opts Options, logger *loggy.Logger) *Orchestrator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.BurstLimit <= 0 {
		opts.BurstLimit = opts.Concurrency
	}

	limiter := rate.NewLimiter(rate.Inf, opts.BurstLimit)
	if opts.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(opts.RequestsPerMinute)/60.0), opts.BurstLimit)
	}

	return &Orchestrator{
		linker:      linker,
		repo:        repo,
		limiter:     limiter,
		concurrency: opts.Concurrency,
		onProgress:  opts.OnProgress,
		logger:      logger.With("component", "bulklink"),
	}
}

// Job returns a snapshot of the current job, nil before the first Start
func (o *Orchestrator) Job() *Job {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == nil {
		return nil
	}
	job := o.state.snapshot()
	return &job
}

// Running reports whether a pass is in flight
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// Start links files to the work package, one request per file. Individual
// failures are recorded on the job. The returned error is non-nil only when
// the job could not be run at all, including when no request reached the
// server (ErrUnreachable).
func (o *Orchestrator) Start(ctx context.Context, files []FileRef, workPackageID string) (*Job, error) {
	files = dedupe(files)
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	if workPackageID == "" {
		return nil, fmt.Errorf("work package id is required")
	}

	now := time.Now().UTC()
	job := Job{
		ID:            ulid.JobID(),
		Label:         utils.GenerateJobLabel(),
		WorkPackageID: workPackageID,
		TotalSelected: len(files),
		Status:        JobRunning,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, ErrRunInFlight
	}
	o.running = true
	o.state = newState(job, files)
	o.mu.Unlock()

	if o.repo != nil {
		if err := o.repo.CreateJob(ctx, &job, files); err != nil {
			o.mu.Lock()
			o.running = false
			o.state = nil
			o.mu.Unlock()
			return nil, fmt.Errorf("creating link job: %w", err)
		}
	}

	o.logger.Info("Starting link job", "job_id", job.ID, "work_package_id", workPackageID, "files", len(files))
	return o.run(ctx, files)
}

// RetryRemaining re-runs only the failed files of the current job. Linked
// counts accumulate and the total never changes. Only one pass runs at a time.
func (o *Orchestrator) RetryRemaining(ctx context.Context) (*Job, error) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, ErrRetryInFlight
	}
	if o.state == nil || len(o.state.failed) == 0 {
		o.mu.Unlock()
		return nil, ErrNothingToRetry
	}

	files := sortedRefs(o.state.failed)
	for _, f := range files {
		delete(o.state.failed, f.ID)
		o.state.remaining[f.ID] = f
	}
	o.state.job.Failed -= len(files)
	o.state.job.Status = JobRunning
	o.state.job.LastError = ""
	jobID := o.state.job.ID
	o.running = true
	o.mu.Unlock()

	if o.repo != nil {
		ids := make([]int64, len(files))
		for i, f := range files {
			ids[i] = f.ID
		}
		if err := o.repo.ResetItems(ctx, jobID, ids); err != nil {
			o.logger.WithError(err).Warn("Failed to reset items for retry", "job_id", jobID)
		}
	}

	o.logger.Info("Retrying failed files", "job_id", jobID, "files", len(files))
	return o.run(ctx, files)
}

// Resume loads a persisted job so that RetryRemaining can continue it.
// Files left pending by an interrupted process count as failed.
func (o *Orchestrator) Resume(ctx context.Context, jobID string) (*Job, error) {
	if o.repo == nil {
		return nil, fmt.Errorf("resuming job %s: no repository configured", jobID)
	}

	job, items, err := o.repo.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	s := newState(*job, nil)
	s.job.Linked, s.job.Failed = 0, 0
	for _, item := range items {
		switch item.Status {
		case ItemLinked:
			s.job.Linked++
		default:
			s.job.Failed++
			s.failed[item.File.ID] = item.File
		}
	}
	s.job.TotalSelected = len(items)
	s.job.Status = finalStatus(s.job, nil)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return nil, ErrRunInFlight
	}
	o.state = s
	snapshot := s.snapshot()
	return &snapshot, nil
}

// run fans out one request per file and waits for all of them
func (o *Orchestrator) run(ctx context.Context, files []FileRef) (*Job, error) {
	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	o.mu.Lock()
	jobID, workPackageID := o.state.job.ID, o.state.job.WorkPackageID
	o.mu.Unlock()

	var (
		countMu sync.Mutex
		reached int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	for _, file := range files {
		g.Go(func() error {
			var err error
			if waitErr := o.limiter.Wait(gctx); waitErr != nil {
				err = fmt.Errorf("waiting for rate limiter: %w", waitErr)
			} else {
				err = o.linker.LinkFile(gctx, workPackageID, file)
			}

			if err == nil || !errors.Is(err, ErrUnreachable) {
				countMu.Lock()
				reached++
				countMu.Unlock()
			}

			o.resolve(ctx, jobID, file, err)
			// failures stay local to the file
			return nil
		})
	}
	_ = g.Wait()

	var fatal error
	switch {
	case ctx.Err() != nil:
		fatal = ctx.Err()
	case reached == 0:
		fatal = ErrUnreachable
	}

	o.mu.Lock()
	o.state.job.Status = finalStatus(o.state.job, fatal)
	if fatal != nil {
		o.state.job.LastError = fatal.Error()
	}
	o.state.job.UpdatedAt = time.Now().UTC()
	snapshot := o.state.snapshot()
	o.mu.Unlock()

	if o.repo != nil {
		if err := o.repo.UpdateJob(context.WithoutCancel(ctx), &snapshot); err != nil {
			o.logger.WithError(err).Warn("Failed to persist link job", "job_id", jobID)
		}
	}

	o.logger.Info("Link pass finished",
		"job_id", jobID,
		"linked", snapshot.Linked,
		"failed", snapshot.Failed,
		"total", snapshot.TotalSelected,
		"status", snapshot.Status,
	)

	if fatal != nil {
		return &snapshot, fmt.Errorf("link job %s: %w", jobID, fatal)
	}
	return &snapshot, nil
}

// resolve records the outcome of one file by incrementing the counters
func (o *Orchestrator) resolve(ctx context.Context, jobID string, file FileRef, err error) {
	o.mu.Lock()
	delete(o.state.remaining, file.ID)
	if err == nil {
		o.state.job.Linked++
	} else {
		o.state.job.Failed++
		o.state.failed[file.ID] = file
	}
	p := o.state.progress(file, err)
	o.mu.Unlock()

	if err != nil {
		o.logger.Debug("File link failed", "job_id", jobID, "file_id", file.ID, "error", err)
	}

	if o.repo != nil {
		status, msg := ItemLinked, ""
		if err != nil {
			status, msg = ItemFailed, err.Error()
		}
		if perr := o.repo.UpdateItem(context.WithoutCancel(ctx), jobID, file.ID, status, msg); perr != nil {
			o.logger.WithError(perr).Warn("Failed to persist link item", "job_id", jobID, "file_id", file.ID)
		}
	}

	if o.onProgress != nil {
		o.onProgress(p)
	}
}

func finalStatus(job Job, fatal error) JobStatus {
	switch {
	case fatal != nil:
		return JobAborted
	case job.Failed > 0:
		return JobPartial
	default:
		return JobCompleted
	}
}
