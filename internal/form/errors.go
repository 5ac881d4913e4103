package form

import (
	"errors"
	"strings"

	"github.com/tildaslashalef/oplink/internal/nextcloud"
)

// User facing messages. Every failure a step reports maps to exactly one of these.
const (
	MsgURLInvalid          = "OpenProject URL is invalid"
	HintURLInvalid         = "Please introduce a valid OpenProject hostname"
	MsgNoValidInstance     = "There is no valid OpenProject instance listening at that URL, please check the Nextcloud logs"
	MsgServerError         = "Server replied with an error message, please check the Nextcloud logs"
	MsgLocalServers        = "Accessing OpenProject servers with local addresses is not allowed."
	DetailLocalServers     = "To be able to use an OpenProject server with a local address, enable the `allow_local_remote_servers` setting. For more information see https://docs.nextcloud.com/server/latest/admin_manual/configuration_server/config_sample_php_parameters.html#allow-local-remote-servers"
	MsgRedirected          = "The given URL redirects to '{location}'. Please do not use a URL that leads to a redirect."
	MsgCouldNotConnect     = "Could not connect to the given URL"
	MsgSaveFailed          = "Failed to save the settings"
	MsgDependencyDisabled  = "The {app} app is not enabled"
	MsgDependencyOutdated  = "The {app} app is outdated, version {version} or newer is required"
	MsgAuthMethodConfirm   = "Switching the authentication method will invalidate the access of every user to OpenProject. Do you want to continue?"
	MsgProjectFolderNeeded = "The Team folders app is required to set up project folders"
)

// StepError is a failure with a fixed message and an optional detail line
type StepError struct {
	Message string
	Details string
	Err     error
}

func (e *StepError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *StepError) Unwrap() error { return e.Err }

// describe turns any save error into the message and detail shown to the user
func describe(err error) (string, string) {
	var se *StepError
	if errors.As(err, &se) {
		return se.Message, se.Details
	}
	return MsgSaveFailed, ""
}

// validationError maps the server side check result of an OpenProject URL.
// Unknown results fall back to the generic connection message.
func validationError(result *nextcloud.ValidationResult) *StepError {
	switch result.Result {
	case nextcloud.ResultInvalid:
		return &StepError{Message: MsgURLInvalid, Details: HintURLInvalid}
	case nextcloud.ResultNotValidBody:
		return &StepError{Message: MsgNoValidInstance}
	case nextcloud.ResultClientException:
		return &StepError{Message: MsgNoValidInstance, Details: result.Details}
	case nextcloud.ResultServerException:
		return &StepError{Message: MsgServerError, Details: result.Details}
	case nextcloud.ResultLocalRemoteServersNotAllowed:
		return &StepError{Message: MsgLocalServers, Details: DetailLocalServers}
	case nextcloud.ResultRedirected:
		return &StepError{Message: strings.ReplaceAll(MsgRedirected, "{location}", result.Details)}
	default:
		return &StepError{Message: MsgCouldNotConnect}
	}
}

// DependencyMessage describes why an app dependency is unhealthy, "" when it is fine
func DependencyMessage(name string, state nextcloud.AppState) string {
	app := state.Name
	if app == "" {
		app = name
	}
	switch {
	case !state.Enabled:
		return strings.ReplaceAll(MsgDependencyDisabled, "{app}", app)
	case !state.Supported:
		msg := strings.ReplaceAll(MsgDependencyOutdated, "{app}", app)
		return strings.ReplaceAll(msg, "{version}", state.MinimumVersion)
	}
	return ""
}
