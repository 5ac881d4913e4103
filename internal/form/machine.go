// Package form implements the save/edit/cancel state machine shared by every
// wizard step, and the concrete step forms built on it.
package form

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tildaslashalef/oplink/internal/loggy"
	"github.com/tildaslashalef/oplink/internal/nextcloud"
	"github.com/tildaslashalef/oplink/internal/wizard"
)

// Mode is the display mode of a step form
type Mode int

const (
	ModeNew Mode = iota
	ModeView
	ModeEdit
)

func (m Mode) String() string {
	switch m {
	case ModeNew:
		return "new"
	case ModeView:
		return "view"
	case ModeEdit:
		return "edit"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

var (
	ErrSaveInFlight   = errors.New("a save is already in progress")
	ErrStepDisabled   = errors.New("step is disabled until the previous steps are complete")
	ErrNotEditing     = errors.New("form is not in edit mode")
	ErrNothingToSave  = errors.New("nothing to save")
	ErrInvalid        = errors.New("form values are not valid")
	ErrOptionDisabled = errors.New("option is not available")
	ErrNotConfirmed   = errors.New("change was not confirmed")
)

// Controller is the part of the wizard a step form talks to
type Controller interface {
	IsStepEnabled(id wizard.StepID) bool
	MarkStepComplete(id wizard.StepID) error
	AppState(name string) nextcloud.AppState
	SetMethod(method string)
}

// Gateway persists and validates admin settings on the server
type Gateway interface {
	SaveAdminConfig(ctx context.Context, values map[string]any) (*nextcloud.SaveResult, error)
	ValidateOPInstance(ctx context.Context, url string) (*nextcloud.ValidationResult, error)
}

// Machine holds the saved and edited values of one step and enforces the
// NEW -> VIEW <-> EDIT transitions. Saves are single-flight.
type Machine[V comparable] struct {
	mu sync.Mutex

	step    wizard.StepID
	mode    Mode
	saved   V
	current V

	errorMessage string
	errorDetails string
	saving       bool

	validate  func(V) bool
	persist   func(context.Context, V) error
	normalize func(V) V

	wizard Controller
	logger *loggy.Logger
}

// NewMachine creates a machine for step. It starts in NEW when saved is the
// zero value and in VIEW otherwise.
func NewMachine[V comparable](step wizard.StepID, saved V, validate func(V) bool, persist func(context.Context, V) error, wc Controller, logger *loggy.Logger) *Machine[V] {
	var zero V
	mode := ModeView
	if saved == zero {
		mode = ModeNew
	}
	return &Machine[V]{
		step:     step,
		mode:     mode,
		saved:    saved,
		current:  saved,
		validate: validate,
		persist:  persist,
		wizard:   wc,
		logger:   logger.With("step", string(step)),
	}
}

// Step returns the wizard step this machine belongs to
func (m *Machine[V]) Step() wizard.StepID { return m.step }

func (m *Machine[V]) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

func (m *Machine[V]) Saved() V {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved
}

func (m *Machine[V]) Current() V {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Failure returns the message and detail of the last failed save
func (m *Machine[V]) Failure() (message, details string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errorMessage, m.errorDetails
}

func (m *Machine[V]) Saving() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saving
}

// Enabled reports whether the wizard lets the user act on this step
func (m *Machine[V]) Enabled() bool {
	return m.wizard.IsStepEnabled(m.step)
}

// Edit moves VIEW to EDIT
func (m *Machine[V]) Edit() error {
	if !m.Enabled() {
		return ErrStepDisabled
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mode == ModeView {
		m.mode = ModeEdit
		m.current = m.saved
	}
	return nil
}

// Update changes the current values; only allowed in NEW and EDIT
func (m *Machine[V]) Update(fn func(*V)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saving {
		return ErrSaveInFlight
	}
	if m.mode == ModeView {
		return ErrNotEditing
	}
	fn(&m.current)
	return nil
}

// IsDirty reports whether the current values differ from the saved ones
func (m *Machine[V]) IsDirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != m.saved
}

// IsValid reports whether the current values pass validation
func (m *Machine[V]) IsValid() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.validate(m.current)
}

// CanSave is true when editing, dirty, valid and no save is running
func (m *Machine[V]) CanSave() bool {
	if !m.Enabled() {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.canSaveLocked() == nil
}

func (m *Machine[V]) canSaveLocked() error {
	switch {
	case m.saving:
		return ErrSaveInFlight
	case m.mode == ModeView:
		return ErrNotEditing
	case m.current == m.saved:
		return ErrNothingToSave
	case !m.validate(m.current):
		return ErrInvalid
	}
	return nil
}

// Cancel discards the current values. EDIT returns to VIEW, NEW stays NEW.
func (m *Machine[V]) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saving {
		return
	}
	m.current = m.saved
	m.errorMessage, m.errorDetails = "", ""
	if m.mode == ModeEdit {
		m.mode = ModeView
	}
}

// Save persists the current values. On success the values become the saved
// values, the form returns to VIEW and the wizard is told the step is complete.
// On failure mode and values are kept and Error describes what went wrong.
func (m *Machine[V]) Save(ctx context.Context) error {
	if !m.Enabled() {
		return ErrStepDisabled
	}

	values, err := m.begin()
	if err != nil {
		return err
	}

	err = m.persist(ctx, values)
	if err != nil {
		m.fail(err)
		return err
	}

	m.mu.Lock()
	m.saved = values
	m.current = values
	m.mode = ModeView
	m.saving = false
	m.errorMessage, m.errorDetails = "", ""
	m.mu.Unlock()

	m.logger.Info("Step saved")
	if err := m.wizard.MarkStepComplete(m.step); err != nil {
		return fmt.Errorf("marking step complete: %w", err)
	}
	return nil
}

// begin claims the single save slot and snapshots the values to persist.
// The snapshot is normalized so the stored form is also what becomes saved.
func (m *Machine[V]) begin() (V, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero V
	if err := m.canSaveLocked(); err != nil {
		return zero, err
	}
	values := m.current
	if m.normalize != nil {
		values = m.normalize(values)
		if !m.validate(values) {
			return zero, ErrInvalid
		}
	}
	m.saving = true
	m.errorMessage, m.errorDetails = "", ""
	return values, nil
}

func (m *Machine[V]) fail(err error) {
	message, details := describe(err)

	m.mu.Lock()
	m.saving = false
	m.errorMessage, m.errorDetails = message, details
	m.mu.Unlock()

	m.logger.WithError(err).Warn("Step save failed", "message", message)
}

// checkAvailable returns nil when a save could start now
func (m *Machine[V]) checkAvailable() error {
	if !m.Enabled() {
		return ErrStepDisabled
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.canSaveLocked()
}
