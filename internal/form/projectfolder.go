package form

import (
	"context"
	"sync"

	"github.com/tildaslashalef/oplink/internal/loggy"
	"github.com/tildaslashalef/oplink/internal/nextcloud"
	"github.com/tildaslashalef/oplink/internal/wizard"
)

// FolderSetup is a tri-state so that "off" is a saved choice, distinct from never chosen
type FolderSetup string

const (
	FolderSetupUnset FolderSetup = ""
	FolderSetupOn    FolderSetup = "on"
	FolderSetupOff   FolderSetup = "off"
)

// FolderSetupFrom converts the server representation
func FolderSetupFrom(b *bool) FolderSetup {
	switch {
	case b == nil:
		return FolderSetupUnset
	case *b:
		return FolderSetupOn
	default:
		return FolderSetupOff
	}
}

// ProjectFolderValues is the managed project folder step
type ProjectFolderValues struct {
	Setup FolderSetup
}

// ProjectFolderForm turns the managed OpenProject group folder on or off.
// Turning it on makes the server create an app password for the OpenProject
// user, which is handed out exactly once.
type ProjectFolderForm struct {
	*Machine[ProjectFolderValues]
	gateway Gateway
	wizard  Controller

	mu          sync.Mutex
	appPassword string
}

func NewProjectFolderForm(saved FolderSetup, gw Gateway, wc Controller, logger *loggy.Logger) *ProjectFolderForm {
	f := &ProjectFolderForm{gateway: gw, wizard: wc}
	f.Machine = NewMachine(wizard.StepProjectFolder, ProjectFolderValues{Setup: saved}, f.valid, f.persist, wc, logger)
	return f
}

// GroupFoldersHealthy reports whether the group folders app can back the project folders
func (f *ProjectFolderForm) GroupFoldersHealthy() bool {
	return f.wizard.AppState(nextcloud.AppGroupFolders).Healthy()
}

func (f *ProjectFolderForm) valid(v ProjectFolderValues) bool {
	switch v.Setup {
	case FolderSetupOff:
		return true
	case FolderSetupOn:
		return f.GroupFoldersHealthy()
	}
	return false
}

func (f *ProjectFolderForm) SetSetup(setup FolderSetup) error {
	if setup == FolderSetupOn && !f.GroupFoldersHealthy() {
		return ErrOptionDisabled
	}
	return f.Update(func(v *ProjectFolderValues) { v.Setup = setup })
}

// TakeAppPassword returns the app password created by the last save and forgets it
func (f *ProjectFolderForm) TakeAppPassword() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	pw := f.appPassword
	f.appPassword = ""
	return pw
}

func (f *ProjectFolderForm) persist(ctx context.Context, v ProjectFolderValues) error {
	if v.Setup == FolderSetupOn && !f.GroupFoldersHealthy() {
		return &StepError{Message: MsgProjectFolderNeeded}
	}

	on := v.Setup == FolderSetupOn
	result, err := f.gateway.SaveAdminConfig(ctx, map[string]any{
		nextcloud.KeySetupProjectFolder: on,
		nextcloud.KeySetupAppPassword:   on,
	})
	if err != nil {
		return &StepError{Message: MsgSaveFailed, Err: err}
	}

	f.mu.Lock()
	f.appPassword = result.OPUserAppPassword
	f.mu.Unlock()
	return nil
}
