package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/tildaslashalef/oplink/internal/app"
	"github.com/tildaslashalef/oplink/internal/utils"
	"github.com/urfave/cli/v2"
)

// ConnectCommand returns the CLI command for storing the Nextcloud admin connection
func ConnectCommand() *cli.Command {
	return &cli.Command{
		Name:  "connect",
		Usage: "Store the Nextcloud admin connection",
		Description: "Saves the Nextcloud URL, admin user and app password in the local database " +
			"and checks that the integration app answers. Values set through OPLINK_NEXTCLOUD_* " +
			"environment variables take precedence over stored ones.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "url",
				Usage:    "Nextcloud base URL, e.g. https://cloud.example.com",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "user",
				Usage:    "Nextcloud admin user",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "app-password",
				Usage:    "App password of the admin user",
				EnvVars:  []string{"OPLINK_CONNECT_APP_PASSWORD"},
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "no-verify",
				Usage: "Store the connection without contacting Nextcloud",
			},
		},
		Subcommands: []*cli.Command{
			{
				Name:   "clear",
				Usage:  "Remove the stored connection",
				Action: connectClearAction,
			},
		},
		Action: connectAction,
	}
}

func connectAction(c *cli.Context) error {
	application, err := app.FromContext(c)
	if err != nil {
		return err
	}

	ctx := c.Context
	url := c.String("url")

	if err := application.Settings.SaveConnection(ctx, url, c.String("user"), c.String("app-password")); err != nil {
		utils.PrintError(fmt.Sprintf("Failed to store connection: %s", err))
		return err
	}
	application.ResetClients()
	utils.PrintSuccess("Stored connection to " + color.YellowString("%s", url))

	if c.Bool("no-verify") {
		return nil
	}

	client, err := application.Nextcloud()
	if err != nil {
		return err
	}

	verifyCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := client.GetAdminConfig(verifyCtx); err != nil {
		utils.PrintWarning(fmt.Sprintf("Connection stored but the integration app did not answer: %s", err))
		return nil
	}

	utils.PrintSuccess("The OpenProject integration app is reachable")
	utils.PrintInfo("Run " + color.CyanString("oplink setup") + " to configure the integration.")
	return nil
}

func connectClearAction(c *cli.Context) error {
	application, err := app.FromContext(c)
	if err != nil {
		return err
	}

	if err := application.Settings.ClearConnection(c.Context); err != nil {
		utils.PrintError(fmt.Sprintf("Failed to clear connection: %s", err))
		return err
	}
	application.ResetClients()

	utils.PrintSuccess("Stored connection removed")
	return nil
}
