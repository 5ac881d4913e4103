package nextcloud

import (
	"context"
	"fmt"
	"net/http"
)

// Admin config keys understood by the integration app
const (
	KeyOpenProjectURL           = "openproject_instance_url"
	KeyAuthorizationMethod      = "authorization_method"
	KeySSOProviderType          = "sso_provider_type"
	KeyOIDCProvider             = "oidc_provider"
	KeyTargetedAudienceClientID = "targeted_audience_client_id"
	KeyTokenExchange            = "token_exchange"
	KeyOpenProjectClientID      = "openproject_client_id"
	KeyOpenProjectClientSecret  = "openproject_client_secret"
	KeySetupProjectFolder       = "setup_project_folder"
	KeySetupAppPassword         = "setup_app_password"
)

// Apps the integration depends on
const (
	AppUserOIDC     = "user_oidc"
	AppOIDC         = "oidc"
	AppGroupFolders = "groupfolders"
)

// AppState describes an app the integration depends on
type AppState struct {
	Enabled        bool   `json:"enabled"`
	Supported      bool   `json:"supported"`
	MinimumVersion string `json:"minimum_version"`
	Name           string `json:"name"`
}

// Healthy reports whether the app is both enabled and a supported version
func (a AppState) Healthy() bool {
	return a.Enabled && a.Supported
}

// AdminConfig is the current admin configuration of the integration
type AdminConfig struct {
	OpenProjectURL           string              `json:"openproject_instance_url"`
	AuthorizationMethod      string              `json:"authorization_method"`
	SSOProviderType          string              `json:"sso_provider_type"`
	OIDCProvider             string              `json:"oidc_provider"`
	TargetedAudienceClientID string              `json:"targeted_audience_client_id"`
	TokenExchange            *bool               `json:"token_exchange"`
	OpenProjectClientID      string              `json:"openproject_client_id"`
	OpenProjectClientSecret  string              `json:"openproject_client_secret"`
	ProjectFolderEnabled     *bool               `json:"setup_project_folder"`
	AppPasswordSet           bool                `json:"app_password_set"`
	Apps                     map[string]AppState `json:"apps"`
}

// App returns the state of the named app, zero when unknown
func (c *AdminConfig) App(name string) AppState {
	if c == nil || c.Apps == nil {
		return AppState{Name: name}
	}
	return c.Apps[name]
}

// SaveResult is the response of a successful admin config save
type SaveResult struct {
	Status                   bool   `json:"status"`
	OPUserAppPassword        string `json:"oPUserAppPassword,omitempty"`
	OAuthTokenRevokeStatus   string `json:"oPOAuthTokenRevokeStatus,omitempty"`
	OIDCTokenExchangeEnabled *bool  `json:"token_exchange,omitempty"`
}

// Validation results returned by ValidateOPInstance other than success
const (
	ResultInvalid                      = "invalid"
	ResultNotValidBody                 = "not_valid_body"
	ResultClientException              = "client_exception"
	ResultServerException              = "server_exception"
	ResultLocalRemoteServersNotAllowed = "local_remote_servers_not_allowed"
	ResultRedirected                   = "redirected"
	ResultUnexpectedError              = "unexpected_error"
	ResultNetworkError                 = "network_error"
	ResultRequestException             = "request_exception"
)

// ValidationResult is the outcome of probing an OpenProject URL from the server side.
// Valid is set when the server answered result=true, otherwise Result carries the reason.
type ValidationResult struct {
	Valid   bool
	Result  string
	Details string
}

type validationResponse struct {
	Result  any    `json:"result"`
	Details string `json:"details"`
}

// GetAdminConfig fetches the current integration configuration and dependency states
func (c *Client) GetAdminConfig(ctx context.Context) (*AdminConfig, error) {
	var cfg AdminConfig
	if err := c.do(ctx, http.MethodGet, "/admin-config", nil, &cfg); err != nil {
		return nil, fmt.Errorf("getting admin config: %w", err)
	}
	if cfg.Apps == nil {
		cfg.Apps = map[string]AppState{}
	}
	return &cfg, nil
}

// SaveAdminConfig persists a partial admin configuration
func (c *Client) SaveAdminConfig(ctx context.Context, values map[string]any) (*SaveResult, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("saving admin config: no values")
	}

	var result SaveResult
	if err := c.do(ctx, http.MethodPut, "/admin-config", map[string]any{"values": values}, &result); err != nil {
		return nil, fmt.Errorf("saving admin config: %w", err)
	}

	c.logger.Info("Saved admin config", "keys", len(values))
	return &result, nil
}

// ValidateOPInstance asks the server whether url points at a reachable OpenProject instance
func (c *Client) ValidateOPInstance(ctx context.Context, url string) (*ValidationResult, error) {
	var resp validationResponse
	if err := c.do(ctx, http.MethodPost, "/is-valid-op-instance", map[string]string{"url": url}, &resp); err != nil {
		return nil, fmt.Errorf("validating openproject instance: %w", err)
	}

	switch r := resp.Result.(type) {
	case bool:
		if r {
			return &ValidationResult{Valid: true}, nil
		}
		return &ValidationResult{Result: ResultUnexpectedError, Details: resp.Details}, nil
	case string:
		return &ValidationResult{Result: r, Details: resp.Details}, nil
	default:
		return &ValidationResult{Result: ResultUnexpectedError, Details: resp.Details}, nil
	}
}

// ResetIntegration clears every admin setting of the integration
func (c *Client) ResetIntegration(ctx context.Context) error {
	values := map[string]any{}
	for _, key := range []string{
		KeyOpenProjectURL,
		KeyAuthorizationMethod,
		KeySSOProviderType,
		KeyOIDCProvider,
		KeyTargetedAudienceClientID,
		KeyTokenExchange,
		KeyOpenProjectClientID,
		KeyOpenProjectClientSecret,
		KeySetupProjectFolder,
		KeySetupAppPassword,
	} {
		values[key] = nil
	}

	if _, err := c.SaveAdminConfig(ctx, values); err != nil {
		return fmt.Errorf("resetting integration: %w", err)
	}
	return nil
}
