package commands

import (
	"fmt"
	"strings"

	"github.com/tildaslashalef/oplink/internal/app"
	"github.com/tildaslashalef/oplink/internal/form"
	"github.com/tildaslashalef/oplink/internal/nextcloud"
	"github.com/tildaslashalef/oplink/internal/utils"
	"github.com/tildaslashalef/oplink/internal/wizard"
	"github.com/urfave/cli/v2"
)

// StatusCommand returns the CLI command that shows the integration setup state
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:        "status",
		Usage:       "Show the integration setup state",
		Description: "Lists every setup step with whether it can be edited, whether it is complete and any app dependency problem.",
		Action:      statusAction,
	}
}

func statusAction(c *cli.Context) error {
	application, err := app.FromContext(c)
	if err != nil {
		return err
	}

	wc, adminConfig, err := application.LoadWizard(c.Context)
	if err != nil {
		utils.PrintError(err.Error())
		return err
	}

	utils.PrintHeading("OpenProject integration")
	utils.PrintKeyValue("Nextcloud", application.Config.Nextcloud.URL)
	utils.PrintKeyValue("OpenProject", valueOrUnset(adminConfig.OpenProjectURL))
	utils.PrintKeyValue("Authentication", valueOrUnset(adminConfig.AuthorizationMethod))
	fmt.Println()

	headers, rows, problems := statusRows(wc)
	opts := utils.DefaultTableOptions()
	opts.Title = "Setup steps"
	utils.PrintTable(headers, rows, opts)

	if len(problems) > 0 {
		fmt.Println()
		utils.PrintTreeList("Dependency problems", problems)
	}

	if wc.Done() {
		utils.PrintSuccess("Setup is complete")
	} else {
		utils.PrintInfo("Run 'oplink setup' to finish the remaining steps")
	}
	return nil
}

// statusRows renders the gating state of each step that applies to the saved method
func statusRows(wc *wizard.Controller) ([]string, [][]string, []string) {
	headers := []string{"Step", "Enabled", "Complete", "Dependency"}

	var (
		rows     [][]string
		problems []string
	)
	for _, step := range wc.Steps() {
		g, err := wc.StepGatingState(step.ID)
		if err != nil {
			continue
		}

		dep := "-"
		if len(g.Dependencies) > 0 {
			labels := make([]string, 0, len(g.Dependencies))
			for _, d := range g.Dependencies {
				labels = append(labels, dependencyLabel(d.App, d.State))
			}
			dep = strings.Join(labels, ", ")
		}
		if g.ShowDependencyError {
			for _, d := range g.Unhealthy() {
				problems = append(problems, fmt.Sprintf("%s: %s", step.Title, form.DependencyMessage(d.App, d.State)))
			}
		}

		rows = append(rows, []string{step.Title, yesNo(g.Enabled), yesNo(g.Complete), dep})
	}
	return headers, rows, problems
}

func dependencyLabel(name string, state nextcloud.AppState) string {
	switch {
	case state.Healthy():
		return name + " (ok)"
	case !state.Enabled:
		return name + " (disabled)"
	default:
		return name + " (unsupported)"
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func valueOrUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
