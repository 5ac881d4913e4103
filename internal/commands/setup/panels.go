package setup

import (
	"context"

	"github.com/tildaslashalef/oplink/internal/form"
	"github.com/tildaslashalef/oplink/internal/loggy"
	"github.com/tildaslashalef/oplink/internal/nextcloud"
	"github.com/tildaslashalef/oplink/internal/utils"
	"github.com/tildaslashalef/oplink/internal/wizard"
)

type fieldKind int

const (
	fieldText fieldKind = iota
	fieldSecret
	fieldChoice
)

type option struct {
	value   string
	label   string
	enabled func() bool
}

func (o option) available() bool {
	return o.enabled == nil || o.enabled()
}

// field is one editable value of a step
type field struct {
	label   string
	kind    fieldKind
	options []option
	get     func() string
	set     func(string) error
	visible func() bool
}

func (f field) shown() bool {
	return f.visible == nil || f.visible()
}

// stepForm is the part of a step machine the interface drives
type stepForm interface {
	Mode() form.Mode
	Enabled() bool
	Edit() error
	Cancel()
	CanSave() bool
	IsDirty() bool
	Saving() bool
	Failure() (message, details string)
}

// panel binds a wizard step to its form and fields
type panel struct {
	id           wizard.StepID
	form         stepForm
	fields       []field
	save         func(ctx context.Context) error
	needsConfirm func() bool
	summary      func() []string
	// afterSave returns a secret to show once, if any
	afterSave func() string
}

func (p *panel) visibleFields() []field {
	var out []field
	for _, f := range p.fields {
		if f.shown() {
			out = append(out, f)
		}
	}
	return out
}

// buildPanels creates a form for every step from the saved admin configuration
func buildPanels(gw form.Gateway, wc *wizard.Controller, cfg *nextcloud.AdminConfig, logger *loggy.Logger) map[wizard.StepID]*panel {
	if cfg == nil {
		cfg = &nextcloud.AdminConfig{}
	}

	panels := map[wizard.StepID]*panel{}

	host := form.NewHostForm(cfg.OpenProjectURL, gw, wc, logger)
	panels[wizard.StepHost] = &panel{
		id:   wizard.StepHost,
		form: host,
		fields: []field{{
			label: "OpenProject URL",
			kind:  fieldText,
			get:   func() string { return host.Current().URL },
			set:   host.SetURL,
		}},
		save:    host.Save,
		summary: func() []string { return []string{"URL: " + orUnset(host.Saved().URL)} },
	}

	auth := form.NewAuthMethodForm(cfg.AuthorizationMethod, gw, wc, logger)
	panels[wizard.StepAuthMethod] = &panel{
		id:   wizard.StepAuthMethod,
		form: auth,
		fields: []field{{
			label: "Method",
			kind:  fieldChoice,
			options: []option{
				{value: wizard.MethodOAuth2, label: "OpenProject OAuth2"},
				{value: wizard.MethodOIDC, label: "Single sign-on through OIDC", enabled: func() bool { return auth.OptionEnabled(wizard.MethodOIDC) }},
			},
			get: func() string { return auth.Current().Method },
			set: auth.SelectMethod,
		}},
		save:         func(ctx context.Context) error { return auth.Save(ctx, form.Confirmed) },
		needsConfirm: auth.NeedsConfirmation,
		summary:      func() []string { return []string{"Method: " + orUnset(auth.Saved().Method)} },
	}

	sso := form.NewSSOForm(form.SSOValuesFrom(cfg), gw, wc, logger)
	external := func() bool { return sso.Current().ProviderType == form.ProviderExternal }
	panels[wizard.StepSSO] = &panel{
		id:   wizard.StepSSO,
		form: sso,
		fields: []field{
			{
				label: "Provider type",
				kind:  fieldChoice,
				options: []option{
					{value: string(form.ProviderNextcloudHub), label: "Nextcloud Hub", enabled: func() bool { return sso.OptionEnabled(form.ProviderNextcloudHub) }},
					{value: string(form.ProviderExternal), label: "External provider"},
				},
				get: func() string { return string(sso.Current().ProviderType) },
				set: func(v string) error { return sso.SelectProvider(form.ProviderType(v)) },
			},
			{
				label:   "OIDC provider",
				kind:    fieldText,
				get:     func() string { return sso.Current().OIDCProvider },
				set:     sso.SetOIDCProvider,
				visible: external,
			},
			{
				label: "Token exchange",
				kind:  fieldChoice,
				options: []option{
					{value: string(form.TokenExchangeDisabled), label: "Disabled"},
					{value: string(form.TokenExchangeEnabled), label: "Enabled"},
				},
				get:     func() string { return string(sso.Current().TokenExchange) },
				set:     func(v string) error { return sso.SetTokenExchange(form.TokenExchange(v)) },
				visible: external,
			},
			{
				label: "OpenProject client ID",
				kind:  fieldText,
				get:   func() string { return sso.Current().ClientID },
				set:   sso.SetClientID,
				visible: func() bool {
					v := sso.Current()
					return v.ProviderType == form.ProviderNextcloudHub || v.TokenExchange == form.TokenExchangeEnabled
				},
			},
		},
		save: sso.Save,
		summary: func() []string {
			v := sso.Saved()
			lines := []string{"Provider type: " + orUnset(string(v.ProviderType))}
			if v.ProviderType == form.ProviderExternal {
				lines = append(lines, "Provider: "+orUnset(v.OIDCProvider), "Token exchange: "+orUnset(string(v.TokenExchange)))
			}
			if v.ClientID != "" {
				lines = append(lines, "Client ID: "+v.ClientID)
			}
			return lines
		},
	}

	oauth := form.NewOAuthClientForm(form.OAuthClientValues{
		ClientID:     cfg.OpenProjectClientID,
		ClientSecret: cfg.OpenProjectClientSecret,
	}, gw, wc, logger)
	panels[wizard.StepOAuthClient] = &panel{
		id:   wizard.StepOAuthClient,
		form: oauth,
		fields: []field{
			{label: "Client ID", kind: fieldText, get: func() string { return oauth.Current().ClientID }, set: oauth.SetClientID},
			{label: "Client secret", kind: fieldSecret, get: func() string { return oauth.Current().ClientSecret }, set: oauth.SetClientSecret},
		},
		save: oauth.Save,
		summary: func() []string {
			v := oauth.Saved()
			return []string{"Client ID: " + orUnset(v.ClientID), "Client secret: " + utils.MaskSecret(v.ClientSecret)}
		},
	}

	folder := form.NewProjectFolderForm(form.FolderSetupFrom(cfg.ProjectFolderEnabled), gw, wc, logger)
	panels[wizard.StepProjectFolder] = &panel{
		id:   wizard.StepProjectFolder,
		form: folder,
		fields: []field{{
			label: "Project folders",
			kind:  fieldChoice,
			options: []option{
				{value: string(form.FolderSetupOff), label: "Off"},
				{value: string(form.FolderSetupOn), label: "On", enabled: folder.GroupFoldersHealthy},
			},
			get: func() string { return string(folder.Current().Setup) },
			set: func(v string) error { return folder.SetSetup(form.FolderSetup(v)) },
		}},
		save:      folder.Save,
		summary:   func() []string { return []string{"Project folders: " + orUnset(string(folder.Saved().Setup))} },
		afterSave: folder.TakeAppPassword,
	}

	return panels
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
