package commands

import (
	"fmt"
	"strconv"

	"github.com/tildaslashalef/oplink/internal/app"
	"github.com/tildaslashalef/oplink/internal/utils"
	"github.com/urfave/cli/v2"
)

// NotificationsCommand returns the CLI command listing OpenProject notifications
func NotificationsCommand() *cli.Command {
	return &cli.Command{
		Name:    "notifications",
		Aliases: []string{"notif"},
		Usage:   "List your OpenProject notifications",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Usage:   "Maximum number of notifications",
				Value:   50,
			},
			&cli.BoolFlag{
				Name:  "unread",
				Usage: "Only show unread notifications",
			},
		},
		Action: notificationsAction,
	}
}

func notificationsAction(c *cli.Context) error {
	application, err := app.FromContext(c)
	if err != nil {
		return err
	}

	client, err := application.OpenProject(c.Context)
	if err != nil {
		utils.PrintError(err.Error())
		return err
	}

	notifications, err := client.Notifications(c.Context, c.Int("limit"), c.Bool("unread"))
	if err != nil {
		utils.PrintError(fmt.Sprintf("Failed to load notifications: %s", err))
		return err
	}

	headers := []string{"ID", "Reason", "Resource", "Project", "Actor", "Created", "Read"}
	rows := make([][]string, 0, len(notifications))
	for _, n := range notifications {
		rows = append(rows, []string{
			strconv.Itoa(n.ID),
			n.Reason,
			utils.TruncateString(n.Resource, 40),
			n.Project,
			n.Actor,
			n.CreatedAt.Local().Format("2006-01-02 15:04"),
			yesNo(n.Read),
		})
	}

	utils.PrintPaginatedTable(headers, rows, 15, "Notifications")
	return nil
}

// SearchCommand returns the CLI command searching OpenProject work packages
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search OpenProject work packages by subject or id",
		ArgsUsage: "<term>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Usage:   "Maximum number of results",
				Value:   25,
			},
		},
		Action: searchAction,
	}
}

func searchAction(c *cli.Context) error {
	term := c.Args().First()
	if term == "" {
		return fmt.Errorf("a search term is required")
	}

	application, err := app.FromContext(c)
	if err != nil {
		return err
	}

	client, err := application.OpenProject(c.Context)
	if err != nil {
		utils.PrintError(err.Error())
		return err
	}

	packages, err := client.SearchWorkPackages(c.Context, term, c.Int("limit"))
	if err != nil {
		utils.PrintError(fmt.Sprintf("Search failed: %s", err))
		return err
	}

	if len(packages) == 0 {
		utils.PrintInfo(fmt.Sprintf("No work packages match %q", term))
		return nil
	}

	headers := []string{"ID", "Subject", "Type", "Status", "Project"}
	rows := make([][]string, 0, len(packages))
	for _, wp := range packages {
		rows = append(rows, []string{
			strconv.Itoa(wp.ID),
			utils.TruncateString(wp.Subject, 60),
			wp.Type,
			wp.Status,
			wp.Project,
		})
	}

	opts := utils.DefaultTableOptions()
	opts.Title = fmt.Sprintf("Work packages matching %q", term)
	utils.PrintTable(headers, rows, opts)
	return nil
}
