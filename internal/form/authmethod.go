package form

import (
	"context"

	"github.com/tildaslashalef/oplink/internal/loggy"
	"github.com/tildaslashalef/oplink/internal/nextcloud"
	"github.com/tildaslashalef/oplink/internal/wizard"
)

// Confirmer asks the user a yes/no question
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmerFunc adapts a function to Confirmer
type ConfirmerFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmerFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// Confirmed answers yes without asking, for callers that already showed the prompt
var Confirmed Confirmer = ConfirmerFunc(func(context.Context, string) (bool, error) { return true, nil })

// AuthMethodValues is the authentication method step
type AuthMethodValues struct {
	Method string
}

// AuthMethodForm chooses between OAuth2 and OIDC. Switching an already saved
// method needs confirmation because it invalidates every user's tokens.
type AuthMethodForm struct {
	*Machine[AuthMethodValues]
	gateway Gateway
	wizard  Controller
}

// NewAuthMethodForm creates the auth method step from the saved method
func NewAuthMethodForm(saved string, gw Gateway, wc Controller, logger *loggy.Logger) *AuthMethodForm {
	f := &AuthMethodForm{gateway: gw, wizard: wc}
	f.Machine = NewMachine(wizard.StepAuthMethod, AuthMethodValues{Method: saved}, validAuthMethod, f.persist, wc, logger)
	return f
}

func validAuthMethod(v AuthMethodValues) bool {
	return v.Method == wizard.MethodOAuth2 || v.Method == wizard.MethodOIDC
}

// OptionEnabled reports whether a method can be selected. OIDC needs a healthy user_oidc app.
func (f *AuthMethodForm) OptionEnabled(method string) bool {
	switch method {
	case wizard.MethodOAuth2:
		return true
	case wizard.MethodOIDC:
		return f.wizard.AppState(nextcloud.AppUserOIDC).Healthy()
	}
	return false
}

// SelectMethod changes the method being edited
func (f *AuthMethodForm) SelectMethod(method string) error {
	if !f.OptionEnabled(method) {
		return ErrOptionDisabled
	}
	return f.Update(func(v *AuthMethodValues) { v.Method = method })
}

// NeedsConfirmation is true when saving would replace a stored method
func (f *AuthMethodForm) NeedsConfirmation() bool {
	return f.Saved().Method != ""
}

// Save asks c before saving when a stored method would be replaced.
// A declined prompt aborts without any request.
func (f *AuthMethodForm) Save(ctx context.Context, c Confirmer) error {
	if err := f.checkAvailable(); err != nil {
		return err
	}

	if f.NeedsConfirmation() {
		ok, err := c.Confirm(ctx, MsgAuthMethodConfirm)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotConfirmed
		}
	}

	if err := f.Machine.Save(ctx); err != nil {
		return err
	}
	f.wizard.SetMethod(f.Saved().Method)
	return nil
}

func (f *AuthMethodForm) persist(ctx context.Context, v AuthMethodValues) error {
	if _, err := f.gateway.SaveAdminConfig(ctx, map[string]any{nextcloud.KeyAuthorizationMethod: v.Method}); err != nil {
		return &StepError{Message: MsgSaveFailed, Err: err}
	}
	return nil
}
