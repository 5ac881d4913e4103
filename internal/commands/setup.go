package commands

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/tildaslashalef/oplink/internal/app"
	"github.com/tildaslashalef/oplink/internal/commands/setup"
	"github.com/tildaslashalef/oplink/internal/tui"
	"github.com/tildaslashalef/oplink/internal/utils"
	"github.com/urfave/cli/v2"
)

// SetupCommand returns the CLI command that runs the interactive setup wizard
func SetupCommand() *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Configure the OpenProject integration interactively",
		Description: "Walks through the admin setup steps of the Nextcloud OpenProject integration. " +
			"Each step is saved on its own; steps unlock once the steps they depend on are complete.",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "reset",
				Usage: "Reset the integration on the server before starting",
			},
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "Do not ask before resetting",
			},
		},
		Action: setupAction,
	}
}

func setupAction(c *cli.Context) error {
	application, err := app.FromContext(c)
	if err != nil {
		return err
	}

	client, err := application.Nextcloud()
	if err != nil {
		utils.PrintError(err.Error())
		return err
	}

	if c.Bool("reset") {
		if !c.Bool("yes") && !confirmReset() {
			utils.PrintInfo("Reset cancelled")
			return nil
		}
		if err := client.ResetIntegration(c.Context); err != nil {
			utils.PrintError(fmt.Sprintf("Failed to reset the integration: %s", err))
			return fmt.Errorf("failed to reset integration: %w", err)
		}
		application.Logger.Info("Integration reset")
		utils.PrintSuccess("Integration settings were reset")
	}

	wc, adminConfig, err := application.LoadWizard(c.Context)
	if err != nil {
		utils.PrintError(err.Error())
		return err
	}

	model := setup.NewModel(c.Context, client, wc, adminConfig, application.Logger)
	final, err := tui.Run(c.Context, model, true)
	if err != nil {
		return err
	}

	if m, ok := final.(setup.Model); ok && m.Done() {
		utils.PrintSuccess("Setup is complete")
	} else {
		utils.PrintInfo("Setup is not finished yet. Run " + color.CyanString("oplink setup") + " again to continue")
	}
	return nil
}

func confirmReset() bool {
	utils.PrintWarning("Resetting removes every integration setting and disconnects all users from OpenProject.")
	fmt.Print(utils.Theme.Subtle.Sprint("Type 'yes' to continue: "))

	var answer string
	_, _ = fmt.Scanln(&answer)
	return strings.EqualFold(strings.TrimSpace(answer), "yes")
}
