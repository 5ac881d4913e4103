package form

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
	"github.com/tildaslashalef/oplink/internal/loggy"
	"github.com/tildaslashalef/oplink/internal/nextcloud"
	"github.com/tildaslashalef/oplink/internal/wizard"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) SaveAdminConfig(ctx context.Context, values map[string]any) (*nextcloud.SaveResult, error) {
	args := m.Called(ctx, values)
	if r := args.Get(0); r != nil {
		return r.(*nextcloud.SaveResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGateway) ValidateOPInstance(ctx context.Context, url string) (*nextcloud.ValidationResult, error) {
	args := m.Called(ctx, url)
	if r := args.Get(0); r != nil {
		return r.(*nextcloud.ValidationResult), args.Error(1)
	}
	return nil, args.Error(1)
}

// countingController records MarkStepComplete calls on top of the real controller
type countingController struct {
	*wizard.Controller
	mu        sync.Mutex
	completed map[wizard.StepID]int
}

func newCountingController(complete ...wizard.StepID) *countingController {
	c := &countingController{
		Controller: wizard.NewController(wizard.DefaultSteps(), loggy.NewNoopLogger()),
		completed:  map[wizard.StepID]int{},
	}
	for _, id := range complete {
		if err := c.Controller.MarkStepComplete(id); err != nil {
			panic(err)
		}
	}
	return c
}

func (c *countingController) MarkStepComplete(id wizard.StepID) error {
	c.mu.Lock()
	c.completed[id]++
	c.mu.Unlock()
	return c.Controller.MarkStepComplete(id)
}

func (c *countingController) calls(id wizard.StepID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed[id]
}

var saveOK = &nextcloud.SaveResult{Status: true}
