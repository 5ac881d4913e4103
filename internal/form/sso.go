package form

import (
	"context"
	"strings"

	"github.com/tildaslashalef/oplink/internal/loggy"
	"github.com/tildaslashalef/oplink/internal/nextcloud"
	"github.com/tildaslashalef/oplink/internal/wizard"
)

// ProviderType is where OpenProject access tokens come from
type ProviderType string

const (
	ProviderNextcloudHub ProviderType = "nextcloud_hub"
	ProviderExternal     ProviderType = "external"
)

// TokenExchange is a tri-state: unset, enabled or disabled
type TokenExchange string

const (
	TokenExchangeUnset    TokenExchange = ""
	TokenExchangeEnabled  TokenExchange = "enabled"
	TokenExchangeDisabled TokenExchange = "disabled"
)

// TokenExchangeFrom converts the server representation
func TokenExchangeFrom(b *bool) TokenExchange {
	switch {
	case b == nil:
		return TokenExchangeUnset
	case *b:
		return TokenExchangeEnabled
	default:
		return TokenExchangeDisabled
	}
}

// SSOValues is the OIDC provider step
type SSOValues struct {
	ProviderType  ProviderType
	OIDCProvider  string
	ClientID      string
	TokenExchange TokenExchange
}

// SSOValuesFrom extracts the step values from the saved admin configuration
func SSOValuesFrom(cfg *nextcloud.AdminConfig) SSOValues {
	if cfg == nil {
		return SSOValues{}
	}
	return SSOValues{
		ProviderType:  ProviderType(cfg.SSOProviderType),
		OIDCProvider:  cfg.OIDCProvider,
		ClientID:      cfg.TargetedAudienceClientID,
		TokenExchange: TokenExchangeFrom(cfg.TokenExchange),
	}
}

// SSOForm configures the OIDC provider. Changing the provider type is saved
// without a confirmation prompt.
type SSOForm struct {
	*Machine[SSOValues]
	gateway Gateway
	wizard  Controller
}

// NewSSOForm creates the SSO step
func NewSSOForm(saved SSOValues, gw Gateway, wc Controller, logger *loggy.Logger) *SSOForm {
	f := &SSOForm{gateway: gw, wizard: wc}
	f.Machine = NewMachine(wizard.StepSSO, saved, validSSO, f.persist, wc, logger)
	return f
}

// validSSO: the hub needs a client id; an external provider needs the
// provider, plus a client id once token exchange is enabled
func validSSO(v SSOValues) bool {
	clientID := strings.TrimSpace(v.ClientID) != ""
	switch v.ProviderType {
	case ProviderNextcloudHub:
		return clientID
	case ProviderExternal:
		if strings.TrimSpace(v.OIDCProvider) == "" {
			return false
		}
		return v.TokenExchange != TokenExchangeEnabled || clientID
	}
	return false
}

// OptionEnabled reports whether a provider type can be selected. The hub needs a healthy oidc app.
func (f *SSOForm) OptionEnabled(p ProviderType) bool {
	switch p {
	case ProviderExternal:
		return true
	case ProviderNextcloudHub:
		return f.wizard.AppState(nextcloud.AppOIDC).Healthy()
	}
	return false
}

// SelectProvider changes the provider type being edited
func (f *SSOForm) SelectProvider(p ProviderType) error {
	if !f.OptionEnabled(p) {
		return ErrOptionDisabled
	}
	return f.Update(func(v *SSOValues) { v.ProviderType = p })
}

func (f *SSOForm) SetOIDCProvider(name string) error {
	return f.Update(func(v *SSOValues) { v.OIDCProvider = name })
}

func (f *SSOForm) SetClientID(id string) error {
	return f.Update(func(v *SSOValues) { v.ClientID = id })
}

func (f *SSOForm) SetTokenExchange(te TokenExchange) error {
	return f.Update(func(v *SSOValues) { v.TokenExchange = te })
}

func (f *SSOForm) persist(ctx context.Context, v SSOValues) error {
	values := map[string]any{
		nextcloud.KeySSOProviderType:          string(v.ProviderType),
		nextcloud.KeyTargetedAudienceClientID: strings.TrimSpace(v.ClientID),
	}

	switch v.ProviderType {
	case ProviderNextcloudHub:
		values[nextcloud.KeyOIDCProvider] = "Nextcloud Hub"
		values[nextcloud.KeyTokenExchange] = nil
	case ProviderExternal:
		values[nextcloud.KeyOIDCProvider] = strings.TrimSpace(v.OIDCProvider)
		values[nextcloud.KeyTokenExchange] = v.TokenExchange == TokenExchangeEnabled
		if v.TokenExchange != TokenExchangeEnabled {
			values[nextcloud.KeyTargetedAudienceClientID] = ""
		}
	}

	if _, err := f.gateway.SaveAdminConfig(ctx, values); err != nil {
		return &StepError{Message: MsgSaveFailed, Err: err}
	}
	return nil
}
