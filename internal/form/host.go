package form

import (
	"context"
	"strings"

	"github.com/tildaslashalef/oplink/internal/loggy"
	"github.com/tildaslashalef/oplink/internal/nextcloud"
	"github.com/tildaslashalef/oplink/internal/wizard"
)

// HostValues is the OpenProject server step
type HostValues struct {
	URL string
}

// HostForm configures the OpenProject instance URL. The server checks the URL
// before it is stored; an unverified URL is never saved.
type HostForm struct {
	*Machine[HostValues]
	gateway Gateway
}

// NewHostForm creates the host step from the saved URL
func NewHostForm(saved string, gw Gateway, wc Controller, logger *loggy.Logger) *HostForm {
	f := &HostForm{gateway: gw}
	f.Machine = NewMachine(wizard.StepHost, HostValues{URL: saved}, validHost, f.persist, wc, logger)
	f.normalize = normalizeHost
	return f
}

// SetURL changes the URL being edited
func (f *HostForm) SetURL(url string) error {
	return f.Update(func(v *HostValues) { v.URL = url })
}

func validHost(v HostValues) bool {
	return strings.TrimSpace(v.URL) != ""
}

// normalizeHost trims whitespace and trailing slashes from the URL
func normalizeHost(v HostValues) HostValues {
	v.URL = strings.TrimRight(strings.TrimSpace(v.URL), "/")
	return v
}

func (f *HostForm) persist(ctx context.Context, v HostValues) error {
	url := v.URL

	result, err := f.gateway.ValidateOPInstance(ctx, url)
	if err != nil {
		return &StepError{Message: MsgCouldNotConnect, Err: err}
	}
	if !result.Valid {
		return validationError(result)
	}

	if _, err := f.gateway.SaveAdminConfig(ctx, map[string]any{nextcloud.KeyOpenProjectURL: url}); err != nil {
		return &StepError{Message: MsgSaveFailed, Err: err}
	}
	return nil
}
