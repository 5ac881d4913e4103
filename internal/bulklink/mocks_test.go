package bulklink

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateJob(ctx context.Context, job *Job, files []FileRef) error {
	args := m.Called(ctx, job, files)
	return args.Error(0)
}

func (m *MockRepository) UpdateJob(ctx context.Context, job *Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockRepository) UpdateItem(ctx context.Context, jobID string, fileID int64, status ItemStatus, lastError string) error {
	args := m.Called(ctx, jobID, fileID, status, lastError)
	return args.Error(0)
}

func (m *MockRepository) ResetItems(ctx context.Context, jobID string, fileIDs []int64) error {
	args := m.Called(ctx, jobID, fileIDs)
	return args.Error(0)
}

func (m *MockRepository) GetJob(ctx context.Context, jobID string) (*Job, []*Item, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*Job), args.Get(1).([]*Item), args.Error(2)
}

func (m *MockRepository) ListJobs(ctx context.Context, limit int) ([]*Job, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Job), args.Error(1)
}
