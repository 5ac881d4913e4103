// Package wizard models the ordered admin setup steps of the integration and
// decides which of them the user can act on.
package wizard

import "github.com/tildaslashalef/oplink/internal/nextcloud"

// StepID names a wizard step
type StepID string

const (
	StepHost          StepID = "openproject_host"
	StepAuthMethod    StepID = "auth_method"
	StepSSO           StepID = "sso_settings"
	StepOAuthClient   StepID = "openproject_oauth"
	StepProjectFolder StepID = "project_folder"
)

// Authorization methods
const (
	MethodOAuth2 = "oauth2"
	MethodOIDC   = "oidc"
)

// Step is one wizard step. DependsOn is the step that must be complete first,
// Dependencies the apps behind the step or its options, and Method restricts
// the step to one authorization method.
type Step struct {
	ID           StepID
	Title        string
	DependsOn    StepID
	Dependencies []string
	Method       string
	Complete     bool
}

// DefaultSteps returns the static step list, in display order
func DefaultSteps() []Step {
	return []Step{
		{ID: StepHost, Title: "OpenProject server"},
		// user_oidc backs the OIDC method option
		{ID: StepAuthMethod, Title: "Authentication method", DependsOn: StepHost, Dependencies: []string{nextcloud.AppUserOIDC}},
		// oidc backs the Nextcloud Hub provider option
		{ID: StepSSO, Title: "Authentication settings", DependsOn: StepAuthMethod, Dependencies: []string{nextcloud.AppUserOIDC, nextcloud.AppOIDC}, Method: MethodOIDC},
		{ID: StepOAuthClient, Title: "OpenProject OAuth client", DependsOn: StepAuthMethod, Method: MethodOAuth2},
		{ID: StepProjectFolder, Title: "Project folders", DependsOn: StepAuthMethod, Dependencies: []string{nextcloud.AppGroupFolders}},
	}
}

// InitialCompletion reports which steps the saved server configuration already satisfies
func InitialCompletion(cfg *nextcloud.AdminConfig) map[StepID]bool {
	done := map[StepID]bool{}
	if cfg == nil {
		return done
	}

	done[StepHost] = cfg.OpenProjectURL != ""
	done[StepAuthMethod] = cfg.AuthorizationMethod == MethodOAuth2 || cfg.AuthorizationMethod == MethodOIDC
	done[StepOAuthClient] = cfg.OpenProjectClientID != "" && cfg.OpenProjectClientSecret != ""
	done[StepProjectFolder] = cfg.ProjectFolderEnabled != nil

	switch cfg.SSOProviderType {
	case "nextcloud_hub":
		done[StepSSO] = cfg.TargetedAudienceClientID != ""
	case "external":
		tokenExchange := cfg.TokenExchange != nil && *cfg.TokenExchange
		done[StepSSO] = cfg.OIDCProvider != "" && (!tokenExchange || cfg.TargetedAudienceClientID != "")
	}

	return done
}
