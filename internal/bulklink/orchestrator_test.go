package bulklink

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tildaslashalef/oplink/internal/loggy"
)

// fakeLinker fails the files listed in failures until they are cleared
type fakeLinker struct {
	mu       sync.Mutex
	failures map[int64]error
	calls    map[int64]int
	block    chan struct{}
	started  chan struct{}
}

func newFakeLinker() *fakeLinker {
	return &fakeLinker{failures: map[int64]error{}, calls: map[int64]int{}}
}

func (l *fakeLinker) LinkFile(ctx context.Context, _ string, file FileRef) error {
	if l.started != nil {
		select {
		case l.started <- struct{}{}:
		default:
		}
	}
	if l.block != nil {
		select {
		case <-l.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls[file.ID]++
	return l.failures[file.ID]
}

func (l *fakeLinker) failWith(err error, ids ...int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range ids {
		l.failures[id] = err
	}
}

func (l *fakeLinker) heal() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures = map[int64]error{}
}

func (l *fakeLinker) callCount(id int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[id]
}

func makeFiles(n int) []FileRef {
	files := make([]FileRef, n)
	for i := range files {
		files[i] = FileRef{ID: int64(i + 1), Name: fmt.Sprintf("file-%d.pdf", i+1)}
	}
	return files
}

func newTestOrchestrator(linker Linker, repo Repository, onProgress func(Progress)) *Orchestrator {
	return NewOrchestrator(linker, repo, Options{Concurrency: 4, OnProgress: onProgress}, loggy.NewNoopLogger())
}

func assertCounters(t *testing.T, job *Job) {
	t.Helper()
	assert.Equal(t, job.TotalSelected, job.Linked+job.Failed+len(job.Remaining))
	assert.Len(t, job.FailedRefs, job.Failed)
}

func TestStartAllSucceed(t *testing.T) {
	linker := newFakeLinker()
	var (
		mu     sync.Mutex
		events []Progress
	)
	o := newTestOrchestrator(linker, nil, func(p Progress) {
		mu.Lock()
		events = append(events, p)
		mu.Unlock()
	})

	job, err := o.Start(context.Background(), makeFiles(5), "42")
	require.NoError(t, err)

	assert.Equal(t, 5, job.TotalSelected)
	assert.Equal(t, 5, job.Linked)
	assert.Equal(t, 0, job.Failed)
	assert.Equal(t, 100, job.Percent())
	assert.True(t, job.Done())
	assert.Equal(t, JobCompleted, job.Status)
	assert.NotEmpty(t, job.Label)
	assertCounters(t, job)

	require.Len(t, events, 5)
	prevLinked := 0
	for _, p := range events {
		assert.Equal(t, 5, p.Total)
		assert.Equal(t, p.Total, p.Linked+p.Failed+p.Remaining)
		assert.GreaterOrEqual(t, p.Linked, prevLinked)
		prevLinked = p.Linked
	}
}

func TestStartPartialThenRetry(t *testing.T) {
	linker := newFakeLinker()
	linker.failWith(errors.New("403 forbidden"), 2, 4)

	o := newTestOrchestrator(linker, nil, nil)

	job, err := o.Start(context.Background(), makeFiles(5), "42")
	require.NoError(t, err)
	assert.Equal(t, 3, job.Linked)
	assert.Equal(t, 2, job.Failed)
	assert.Equal(t, JobPartial, job.Status)
	assert.Equal(t, 60, job.Percent())
	assert.Equal(t, []FileRef{{ID: 2, Name: "file-2.pdf"}, {ID: 4, Name: "file-4.pdf"}}, job.FailedRefs)
	assertCounters(t, job)

	linker.heal()
	job, err = o.RetryRemaining(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, job.TotalSelected)
	assert.Equal(t, 5, job.Linked)
	assert.Equal(t, 0, job.Failed)
	assert.Equal(t, JobCompleted, job.Status)
	assertCounters(t, job)

	// linked files are never re-sent
	assert.Equal(t, 1, linker.callCount(1))
	assert.Equal(t, 2, linker.callCount(2))
	assert.Equal(t, 2, linker.callCount(4))

	_, err = o.RetryRemaining(context.Background())
	assert.ErrorIs(t, err, ErrNothingToRetry)
}

func TestRetryKeepsFailingFiles(t *testing.T) {
	linker := newFakeLinker()
	linker.failWith(errors.New("500"), 1, 2, 3)

	o := newTestOrchestrator(linker, nil, nil)
	_, err := o.Start(context.Background(), makeFiles(4), "7")
	require.NoError(t, err)

	linker.heal()
	linker.failWith(errors.New("500"), 3)

	job, err := o.RetryRemaining(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, job.Linked)
	assert.Equal(t, 1, job.Failed)
	assert.Equal(t, []FileRef{{ID: 3, Name: "file-3.pdf"}}, job.FailedRefs)
	assertCounters(t, job)
}

func TestStartUnreachable(t *testing.T) {
	linker := newFakeLinker()
	unreachable := fmt.Errorf("%w: dial tcp: connection refused", ErrUnreachable)
	linker.failWith(unreachable, 1, 2, 3)

	o := newTestOrchestrator(linker, nil, nil)
	job, err := o.Start(context.Background(), makeFiles(3), "42")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnreachable)
	require.NotNil(t, job)
	assert.Equal(t, JobAborted, job.Status)
	assert.Equal(t, 3, job.Failed)
	assertCounters(t, job)
}

func TestStartSomeUnreachableIsNotFatal(t *testing.T) {
	linker := newFakeLinker()
	linker.failWith(fmt.Errorf("%w: timeout", ErrUnreachable), 1)

	o := newTestOrchestrator(linker, nil, nil)
	job, err := o.Start(context.Background(), makeFiles(3), "42")

	require.NoError(t, err)
	assert.Equal(t, JobPartial, job.Status)
	assert.Equal(t, 2, job.Linked)
}

func TestStartValidation(t *testing.T) {
	o := newTestOrchestrator(newFakeLinker(), nil, nil)

	_, err := o.Start(context.Background(), nil, "42")
	assert.ErrorIs(t, err, ErrNoFiles)

	_, err = o.Start(context.Background(), makeFiles(1), "")
	assert.Error(t, err)

	_, err = o.RetryRemaining(context.Background())
	assert.ErrorIs(t, err, ErrNothingToRetry)
	assert.Nil(t, o.Job())
}

func TestStartDeduplicatesFiles(t *testing.T) {
	linker := newFakeLinker()
	o := newTestOrchestrator(linker, nil, nil)

	files := append(makeFiles(2), FileRef{ID: 1, Name: "file-1.pdf"})
	job, err := o.Start(context.Background(), files, "42")
	require.NoError(t, err)
	assert.Equal(t, 2, job.TotalSelected)
	assert.Equal(t, 1, linker.callCount(1))
}

func TestRetryIsSingleFlight(t *testing.T) {
	linker := newFakeLinker()
	linker.failWith(errors.New("boom"), 1, 2)

	o := newTestOrchestrator(linker, nil, nil)
	_, err := o.Start(context.Background(), makeFiles(2), "42")
	require.NoError(t, err)

	linker.heal()
	linker.block = make(chan struct{})
	linker.started = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() {
		_, err := o.RetryRemaining(context.Background())
		done <- err
	}()

	<-linker.started
	assert.True(t, o.Running())

	_, err = o.RetryRemaining(context.Background())
	assert.ErrorIs(t, err, ErrRetryInFlight)
	_, err = o.Start(context.Background(), makeFiles(1), "42")
	assert.ErrorIs(t, err, ErrRunInFlight)

	close(linker.block)
	require.NoError(t, <-done)

	job := o.Job()
	assert.Equal(t, 2, job.Linked)
	assert.Equal(t, 2, linker.callCount(1))
	assert.Equal(t, 2, linker.callCount(2))
}

func TestStartPersistsJob(t *testing.T) {
	linker := newFakeLinker()
	linker.failWith(errors.New("nope"), 2)

	repo := new(MockRepository)
	repo.On("CreateJob", mock.Anything, mock.AnythingOfType("*bulklink.Job"), mock.Anything).Return(nil)
	repo.On("UpdateItem", mock.Anything, mock.Anything, int64(1), ItemLinked, "").Return(nil)
	repo.On("UpdateItem", mock.Anything, mock.Anything, int64(2), ItemFailed, "nope").Return(nil)
	repo.On("UpdateJob", mock.Anything, mock.MatchedBy(func(j *Job) bool {
		return j.Linked == 1 && j.Failed == 1 && j.Status == JobPartial
	})).Return(nil)

	o := newTestOrchestrator(linker, repo, nil)
	_, err := o.Start(context.Background(), makeFiles(2), "42")
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestStartFailsWhenJobCannotBeStored(t *testing.T) {
	repo := new(MockRepository)
	repo.On("CreateJob", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("disk full"))

	o := newTestOrchestrator(newFakeLinker(), repo, nil)
	_, err := o.Start(context.Background(), makeFiles(2), "42")
	require.Error(t, err)
	assert.False(t, o.Running())
	assert.Nil(t, o.Job())
}

func TestResumeTreatsPendingAsFailed(t *testing.T) {
	repo := new(MockRepository)
	stored := &Job{ID: "job-1", WorkPackageID: "42", TotalSelected: 3, Status: JobRunning}
	items := []*Item{
		{JobID: "job-1", File: FileRef{ID: 1, Name: "a"}, Status: ItemLinked},
		{JobID: "job-1", File: FileRef{ID: 2, Name: "b"}, Status: ItemPending},
		{JobID: "job-1", File: FileRef{ID: 3, Name: "c"}, Status: ItemFailed},
	}
	repo.On("GetJob", mock.Anything, "job-1").Return(stored, items, nil)
	repo.On("ResetItems", mock.Anything, "job-1", []int64{2, 3}).Return(nil)
	repo.On("UpdateItem", mock.Anything, "job-1", mock.Anything, ItemLinked, "").Return(nil)
	repo.On("UpdateJob", mock.Anything, mock.Anything).Return(nil)

	linker := newFakeLinker()
	o := newTestOrchestrator(linker, repo, nil)

	job, err := o.Resume(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, 1, job.Linked)
	assert.Equal(t, 2, job.Failed)
	assert.Equal(t, JobPartial, job.Status)
	assertCounters(t, job)

	job, err = o.RetryRemaining(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, job.Linked)
	assert.Equal(t, 0, linker.callCount(1))
	repo.AssertExpectations(t)
}

func TestResumeUnknownJob(t *testing.T) {
	repo := new(MockRepository)
	repo.On("GetJob", mock.Anything, "job-x").Return(nil, nil, ErrJobNotFound)

	o := newTestOrchestrator(newFakeLinker(), repo, nil)
	_, err := o.Resume(context.Background(), "job-x")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestPercentRounding(t *testing.T) {
	assert.Equal(t, 0, percent(0, 0))
	assert.Equal(t, 33, percent(1, 3))
	assert.Equal(t, 67, percent(2, 3))
	assert.Equal(t, 100, percent(3, 3))
}
