package form

import (
	"context"
	"strings"

	"github.com/tildaslashalef/oplink/internal/loggy"
	"github.com/tildaslashalef/oplink/internal/nextcloud"
	"github.com/tildaslashalef/oplink/internal/wizard"
)

// OAuthClientValues are the credentials of the OAuth application created in OpenProject
type OAuthClientValues struct {
	ClientID     string
	ClientSecret string
}

// OAuthClientForm stores the OpenProject OAuth client used with the oauth2 method
type OAuthClientForm struct {
	*Machine[OAuthClientValues]
	gateway Gateway
}

func NewOAuthClientForm(saved OAuthClientValues, gw Gateway, wc Controller, logger *loggy.Logger) *OAuthClientForm {
	f := &OAuthClientForm{gateway: gw}
	f.Machine = NewMachine(wizard.StepOAuthClient, saved, validOAuthClient, f.persist, wc, logger)
	return f
}

func validOAuthClient(v OAuthClientValues) bool {
	return strings.TrimSpace(v.ClientID) != "" && strings.TrimSpace(v.ClientSecret) != ""
}

func (f *OAuthClientForm) SetClientID(id string) error {
	return f.Update(func(v *OAuthClientValues) { v.ClientID = id })
}

func (f *OAuthClientForm) SetClientSecret(secret string) error {
	return f.Update(func(v *OAuthClientValues) { v.ClientSecret = secret })
}

func (f *OAuthClientForm) persist(ctx context.Context, v OAuthClientValues) error {
	_, err := f.gateway.SaveAdminConfig(ctx, map[string]any{
		nextcloud.KeyOpenProjectClientID:     strings.TrimSpace(v.ClientID),
		nextcloud.KeyOpenProjectClientSecret: strings.TrimSpace(v.ClientSecret),
	})
	if err != nil {
		return &StepError{Message: MsgSaveFailed, Err: err}
	}
	return nil
}
