// Package bulklink links many Nextcloud files to one OpenProject work package,
// reporting progress as requests resolve and retrying the ones that failed.
package bulklink

import (
	"errors"
	"math"
	"sort"
	"time"
)

var (
	// ErrUnreachable marks a link failure where the request never reached the server
	ErrUnreachable = errors.New("link endpoint unreachable")
	// ErrRunInFlight is returned when a link pass is already running
	ErrRunInFlight = errors.New("a link run is already in progress")
	// ErrRetryInFlight is returned when retry is triggered while a pass is running
	ErrRetryInFlight = errors.New("a retry is already in progress")
	// ErrNothingToRetry is returned when there are no failed files
	ErrNothingToRetry = errors.New("no failed files to retry")
	// ErrNoFiles is returned when linking is started without files
	ErrNoFiles = errors.New("no files selected")
	// ErrJobNotFound is returned when a persisted job does not exist
	ErrJobNotFound = errors.New("link job not found")
)

// FileRef identifies a Nextcloud file
type FileRef struct {
	ID   int64
	Name string
}

// ItemStatus is the state of one file in a job
type ItemStatus string

const (
	ItemPending ItemStatus = "pending"
	ItemLinked  ItemStatus = "linked"
	ItemFailed  ItemStatus = "failed"
)

// JobStatus summarizes a job
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobPartial   JobStatus = "partial"
	JobAborted   JobStatus = "aborted"
)

// Job is a snapshot of a bulk link job. Linked+Failed+len(Remaining) always
// equals TotalSelected.
type Job struct {
	ID            string
	Label         string
	WorkPackageID string
	TotalSelected int
	Linked        int
	Failed        int
	Remaining     []FileRef
	FailedRefs    []FileRef
	Status        JobStatus
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Percent is the share of linked files, rounded
func (j *Job) Percent() int {
	return percent(j.Linked, j.TotalSelected)
}

// Done reports whether no file is waiting for a response
func (j *Job) Done() bool {
	return len(j.Remaining) == 0
}

// Item is the persisted state of one file in a job
type Item struct {
	ID        string
	JobID     string
	File      FileRef
	Status    ItemStatus
	Attempts  int
	LastError string
	UpdatedAt time.Time
}

// Progress is emitted after every resolved file
type Progress struct {
	JobID     string
	File      FileRef
	Err       error
	Percent   int
	Linked    int
	Failed    int
	Remaining int
	Total     int
}

func percent(linked, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(linked) * 100 / float64(total)))
}

// state is the mutable job owned by the orchestrator
type state struct {
	job       Job
	remaining map[int64]FileRef
	failed    map[int64]FileRef
}

func newState(job Job, pending []FileRef) *state {
	s := &state{job: job, remaining: map[int64]FileRef{}, failed: map[int64]FileRef{}}
	for _, f := range pending {
		s.remaining[f.ID] = f
	}
	return s
}

func (s *state) snapshot() Job {
	job := s.job
	job.Remaining = sortedRefs(s.remaining)
	job.FailedRefs = sortedRefs(s.failed)
	return job
}

func (s *state) progress(file FileRef, err error) Progress {
	return Progress{
		JobID:     s.job.ID,
		File:      file,
		Err:       err,
		Percent:   percent(s.job.Linked, s.job.TotalSelected),
		Linked:    s.job.Linked,
		Failed:    s.job.Failed,
		Remaining: len(s.remaining),
		Total:     s.job.TotalSelected,
	}
}

func sortedRefs(m map[int64]FileRef) []FileRef {
	refs := make([]FileRef, 0, len(m))
	for _, f := range m {
		refs = append(refs, f)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs
}

// dedupe keeps the first occurrence of every file id
func dedupe(files []FileRef) []FileRef {
	seen := make(map[int64]bool, len(files))
	out := make([]FileRef, 0, len(files))
	for _, f := range files {
		if seen[f.ID] {
			continue
		}
		seen[f.ID] = true
		out = append(out, f)
	}
	return out
}
