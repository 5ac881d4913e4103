package wizard

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tildaslashalef/oplink/internal/loggy"
	"github.com/tildaslashalef/oplink/internal/nextcloud"
)

var (
	// ErrUnknownStep is returned for a step id the wizard does not know
	ErrUnknownStep = errors.New("unknown wizard step")
	// ErrStepDisabled is returned when a prerequisite step is incomplete
	ErrStepDisabled = errors.New("wizard step is disabled")
)

// AppDependency is the state of one app a step relies on
type AppDependency struct {
	App   string
	State nextcloud.AppState
}

// Gating is the read-only view of a step the UI renders from
type Gating struct {
	Enabled             bool
	Complete            bool
	ShowDependencyError bool
	Dependencies        []AppDependency
}

// Unhealthy returns the dependencies that are disabled or unsupported
func (g Gating) Unhealthy() []AppDependency {
	var out []AppDependency
	for _, d := range g.Dependencies {
		if !d.State.Healthy() {
			out = append(out, d)
		}
	}
	return out
}

// Controller owns the completion flags of the wizard steps. Step forms report
// success through MarkStepComplete and never touch each other's state.
type Controller struct {
	mu     sync.RWMutex
	steps  []Step
	index  map[StepID]int
	apps   map[string]nextcloud.AppState
	method string
	logger *loggy.Logger
}

// NewController creates a controller over steps, all initially incomplete
func NewController(steps []Step, logger *loggy.Logger) *Controller {
	c := &Controller{
		steps:  make([]Step, len(steps)),
		index:  make(map[StepID]int, len(steps)),
		apps:   map[string]nextcloud.AppState{},
		logger: logger.With("component", "wizard"),
	}
	copy(c.steps, steps)
	for i, s := range c.steps {
		c.index[s.ID] = i
	}
	return c
}

// Load seeds completion, app states and the chosen method from the server configuration.
// A step only counts as complete when its whole prerequisite chain is.
func (c *Controller) Load(cfg *nextcloud.AdminConfig) {
	done := InitialCompletion(cfg)

	c.mu.Lock()
	defer c.mu.Unlock()

	if cfg != nil {
		c.method = cfg.AuthorizationMethod
		for name, state := range cfg.Apps {
			c.apps[name] = state
		}
	}
	for i := range c.steps {
		c.steps[i].Complete = false
	}
	// steps are declared after their prerequisites
	for i, s := range c.steps {
		c.steps[i].Complete = done[s.ID] && (s.DependsOn == "" || c.completeLocked(s.DependsOn))
	}
}

// SetAppStates replaces the known dependency states
func (c *Controller) SetAppStates(apps map[string]nextcloud.AppState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apps = make(map[string]nextcloud.AppState, len(apps))
	for name, state := range apps {
		c.apps[name] = state
	}
}

// AppState returns the state of a dependency app
func (c *Controller) AppState(name string) nextcloud.AppState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	state, ok := c.apps[name]
	if !ok {
		return nextcloud.AppState{Name: name}
	}
	return state
}

// SetMethod records the saved authorization method, which decides the applicable steps
func (c *Controller) SetMethod(method string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.method = method
}

// Method returns the saved authorization method
func (c *Controller) Method() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.method
}

// IsStepEnabled is true iff every step on the DependsOn chain of id is complete
func (c *Controller) IsStepEnabled(id StepID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabledLocked(id)
}

// ShouldShowDependencyError is true iff the step is enabled and one of its app dependencies is unhealthy
func (c *Controller) ShouldShowDependencyError(id StepID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dependencyErrorLocked(id)
}

// MarkStepComplete marks id complete; it fails while a prerequisite is incomplete
func (c *Controller) MarkStepComplete(id StepID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStep, id)
	}
	if !c.enabledLocked(id) {
		return fmt.Errorf("%w: %s", ErrStepDisabled, id)
	}
	if !c.steps[i].Complete {
		c.steps[i].Complete = true
		c.logger.Info("Step complete", "step", id)
	}
	return nil
}

// StepGatingState returns what the UI needs to render step id
func (c *Controller) StepGatingState(id StepID) (Gating, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.index[id]
	if !ok {
		return Gating{}, fmt.Errorf("%w: %s", ErrUnknownStep, id)
	}

	s := c.steps[i]
	g := Gating{
		Enabled:             c.enabledLocked(id),
		Complete:            s.Complete,
		ShowDependencyError: c.dependencyErrorLocked(id),
	}
	for _, app := range s.Dependencies {
		g.Dependencies = append(g.Dependencies, AppDependency{App: app, State: c.appLocked(app)})
	}
	return g, nil
}

// Steps returns the steps that apply to the saved authorization method
func (c *Controller) Steps() []Step {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]Step, 0, len(c.steps))
	for _, s := range c.steps {
		if s.Method == "" || s.Method == c.method || c.method == "" {
			result = append(result, s)
		}
	}
	return result
}

// Done reports whether every applicable step is complete
func (c *Controller) Done() bool {
	if c.Method() == "" {
		return false
	}
	for _, s := range c.Steps() {
		if !s.Complete {
			return false
		}
	}
	return true
}

// Reset marks every step incomplete and forgets the method
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.steps {
		c.steps[i].Complete = false
	}
	c.method = ""
	c.logger.Info("Wizard reset")
}

func (c *Controller) completeLocked(id StepID) bool {
	i, ok := c.index[id]
	return ok && c.steps[i].Complete
}

func (c *Controller) enabledLocked(id StepID) bool {
	i, ok := c.index[id]
	if !ok {
		return false
	}
	// bounded by the step count so a malformed cycle cannot spin forever
	for n := 0; n <= len(c.steps); n++ {
		dep := c.steps[i].DependsOn
		if dep == "" {
			return true
		}
		j, ok := c.index[dep]
		if !ok || !c.steps[j].Complete {
			return false
		}
		i = j
	}
	return false
}

func (c *Controller) dependencyErrorLocked(id StepID) bool {
	i, ok := c.index[id]
	if !ok || !c.enabledLocked(id) {
		return false
	}
	for _, app := range c.steps[i].Dependencies {
		if !c.appLocked(app).Healthy() {
			return true
		}
	}
	return false
}

func (c *Controller) appLocked(name string) nextcloud.AppState {
	if state, ok := c.apps[name]; ok {
		return state
	}
	return nextcloud.AppState{Name: name}
}
