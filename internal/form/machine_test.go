package form

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tildaslashalef/oplink/internal/loggy"
	"github.com/tildaslashalef/oplink/internal/wizard"
)

type textValues struct {
	Text string
}

func newTextMachine(saved string, wc Controller, persist func(context.Context, textValues) error) *Machine[textValues] {
	valid := func(v textValues) bool { return v.Text != "" }
	return NewMachine(wizard.StepHost, textValues{Text: saved}, valid, persist, wc, loggy.NewNoopLogger())
}

func TestMachine_InitialMode(t *testing.T) {
	wc := newCountingController()
	noop := func(context.Context, textValues) error { return nil }

	assert.Equal(t, ModeNew, newTextMachine("", wc, noop).Mode())
	assert.Equal(t, ModeView, newTextMachine("saved", wc, noop).Mode())
}

func TestMachine_SaveSuccessFromNewAndEdit(t *testing.T) {
	for _, saved := range []string{"", "old"} {
		t.Run("saved="+saved, func(t *testing.T) {
			wc := newCountingController()
			var persisted []string
			m := newTextMachine(saved, wc, func(_ context.Context, v textValues) error {
				persisted = append(persisted, v.Text)
				return nil
			})

			require.NoError(t, m.Edit())
			require.NoError(t, m.Update(func(v *textValues) { v.Text = "new" }))
			require.True(t, m.CanSave())
			require.NoError(t, m.Save(context.Background()))

			assert.Equal(t, ModeView, m.Mode())
			assert.Equal(t, "new", m.Saved().Text)
			assert.Equal(t, []string{"new"}, persisted)
			assert.Equal(t, 1, wc.calls(wizard.StepHost), "completion reported exactly once")
		})
	}
}

func TestMachine_SaveFailureKeepsModeAndValues(t *testing.T) {
	tests := []struct {
		name  string
		saved string
		mode  Mode
	}{
		{"new", "", ModeNew},
		{"edit", "old", ModeEdit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wc := newCountingController()
			m := newTextMachine(tt.saved, wc, func(context.Context, textValues) error {
				return errors.New("boom")
			})

			require.NoError(t, m.Edit())
			require.NoError(t, m.Update(func(v *textValues) { v.Text = "typed" }))
			require.Error(t, m.Save(context.Background()))

			assert.Equal(t, tt.mode, m.Mode())
			assert.Equal(t, tt.saved, m.Saved().Text)
			assert.Equal(t, "typed", m.Current().Text, "entered values are kept")
			msg, details := m.Failure()
			assert.Equal(t, MsgSaveFailed, msg, "raw errors are never shown")
			assert.Empty(t, details)
			assert.Zero(t, wc.calls(wizard.StepHost))
			assert.False(t, m.Saving())
		})
	}
}

func TestMachine_SaveDisabledUnlessDirtyAndValid(t *testing.T) {
	m := newTextMachine("saved", newCountingController(), func(context.Context, textValues) error { return nil })

	assert.False(t, m.CanSave(), "view mode")
	require.NoError(t, m.Edit())
	assert.False(t, m.CanSave(), "nothing changed")

	require.NoError(t, m.Update(func(v *textValues) { v.Text = "changed" }))
	assert.True(t, m.CanSave())

	require.NoError(t, m.Update(func(v *textValues) { v.Text = "saved" }))
	assert.False(t, m.CanSave(), "reverting a field disables save again")
	assert.ErrorIs(t, m.Save(context.Background()), ErrNothingToSave)

	require.NoError(t, m.Update(func(v *textValues) { v.Text = "" }))
	assert.False(t, m.CanSave())
	assert.ErrorIs(t, m.Save(context.Background()), ErrInvalid)
}

func TestMachine_CancelRestoresSavedValues(t *testing.T) {
	m := newTextMachine("saved", newCountingController(), func(context.Context, textValues) error {
		return &StepError{Message: "nope", Details: "detail"}
	})

	require.NoError(t, m.Edit())
	require.NoError(t, m.Update(func(v *textValues) { v.Text = "changed" }))
	require.Error(t, m.Save(context.Background()))
	msg, _ := m.Failure()
	assert.Equal(t, "nope", msg)

	m.Cancel()
	assert.Equal(t, ModeView, m.Mode())
	assert.Equal(t, "saved", m.Current().Text)
	msg, details := m.Failure()
	assert.Empty(t, msg)
	assert.Empty(t, details)
}

func TestMachine_CancelWithoutChangesIsNoop(t *testing.T) {
	m := newTextMachine("saved", newCountingController(), func(context.Context, textValues) error { return nil })

	require.NoError(t, m.Edit())
	assert.Equal(t, ModeEdit, m.Mode())
	m.Cancel()

	assert.Equal(t, ModeView, m.Mode())
	assert.Equal(t, "saved", m.Saved().Text)
	assert.Equal(t, m.Saved(), m.Current())
}

func TestMachine_UpdateRequiresEditing(t *testing.T) {
	m := newTextMachine("saved", newCountingController(), func(context.Context, textValues) error { return nil })
	assert.ErrorIs(t, m.Update(func(v *textValues) { v.Text = "x" }), ErrNotEditing)
}

func TestMachine_SaveIsSingleFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	calls := 0
	m := newTextMachine("", newCountingController(), func(context.Context, textValues) error {
		calls++
		close(started)
		<-release
		return nil
	})
	require.NoError(t, m.Update(func(v *textValues) { v.Text = "value" }))

	done := make(chan error)
	go func() { done <- m.Save(context.Background()) }()
	<-started

	assert.True(t, m.Saving())
	assert.False(t, m.CanSave())
	assert.ErrorIs(t, m.Save(context.Background()), ErrSaveInFlight)
	assert.ErrorIs(t, m.Update(func(v *textValues) { v.Text = "other" }), ErrSaveInFlight)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, calls)
}

func TestMachine_DisabledStep(t *testing.T) {
	wc := newCountingController()
	valid := func(v textValues) bool { return v.Text != "" }
	m := NewMachine(wizard.StepAuthMethod, textValues{Text: "x"}, valid,
		func(context.Context, textValues) error { return nil }, wc, loggy.NewNoopLogger())

	assert.False(t, m.Enabled())
	assert.ErrorIs(t, m.Edit(), ErrStepDisabled)
	assert.ErrorIs(t, m.Save(context.Background()), ErrStepDisabled)
}
