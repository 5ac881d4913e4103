package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/tildaslashalef/oplink/internal/app"
	"github.com/tildaslashalef/oplink/internal/bulklink"
	"github.com/tildaslashalef/oplink/internal/commands/link"
	"github.com/tildaslashalef/oplink/internal/tui"
	"github.com/tildaslashalef/oplink/internal/utils"
	"github.com/urfave/cli/v2"
)

// LinkCommand returns the CLI command that links Nextcloud files to a work package
func LinkCommand() *cli.Command {
	return &cli.Command{
		Name:      "link",
		Usage:     "Link Nextcloud files to an OpenProject work package",
		ArgsUsage: "<file-ids>",
		Description: "Links every file id to the work package, several requests at a time. " +
			"File ids are a comma separated list of ids and ranges, for example 12,15,20-24. " +
			"Failed files can be retried from the interface with 'r' or later with 'oplink link retry <job>'.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "work-package",
				Aliases: []string{"w"},
				Usage:   "Work package id (default: the last one used)",
			},
			&cli.StringSliceFlag{
				Name:  "name",
				Usage: "File name shown for an id, as id=name (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "plain",
				Usage: "Print plain progress instead of the interactive interface",
			},
			&cli.IntFlag{
				Name:  "retries",
				Usage: "Automatic retries of failed files in plain mode",
			},
		},
		Action: linkAction,
		Subcommands: []*cli.Command{
			{
				Name:      "retry",
				Usage:     "Retry the failed files of a previous job",
				ArgsUsage: "<job-id>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "plain",
						Usage: "Print plain progress instead of the interactive interface",
					},
				},
				Action: linkRetryAction,
			},
			{
				Name:  "jobs",
				Usage: "List recent link jobs",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"l"},
						Usage:   "Maximum number of jobs",
						Value:   20,
					},
				},
				Action: linkJobsAction,
			},
		},
	}
}

func linkAction(c *cli.Context) error {
	application, err := app.FromContext(c)
	if err != nil {
		return err
	}

	if c.NArg() < 1 {
		return fmt.Errorf("file ids are required, e.g. 'oplink link -w 42 12,15,20-24'")
	}
	ids, err := utils.ParseIDList(strings.Join(c.Args().Slice(), ","))
	if err != nil {
		utils.PrintError(err.Error())
		return err
	}

	names, err := parseNames(c.StringSlice("name"))
	if err != nil {
		utils.PrintError(err.Error())
		return err
	}
	files := make([]bulklink.FileRef, 0, len(ids))
	for _, id := range ids {
		files = append(files, bulklink.FileRef{ID: id, Name: names[id]})
	}

	wpID, err := resolveWorkPackage(c, application)
	if err != nil {
		utils.PrintError(err.Error())
		return err
	}

	title := fmt.Sprintf("Linking %d files to work package #%s", len(files), wpID)
	start := func(orch *bulklink.Orchestrator) func(ctx context.Context) (*bulklink.Job, error) {
		return func(ctx context.Context) (*bulklink.Job, error) {
			return orch.Start(ctx, files, wpID)
		}
	}

	if c.Bool("plain") {
		return runPlain(c.Context, application, title, len(files), c.Int("retries"), start)
	}
	return runInteractive(c.Context, application, title, start)
}

func linkRetryAction(c *cli.Context) error {
	application, err := app.FromContext(c)
	if err != nil {
		return err
	}

	jobID := c.Args().First()
	if jobID == "" {
		return fmt.Errorf("job id is required, see 'oplink link jobs'")
	}

	resume := func(orch *bulklink.Orchestrator) func(ctx context.Context) (*bulklink.Job, error) {
		return func(ctx context.Context) (*bulklink.Job, error) {
			if _, err := orch.Resume(ctx, jobID); err != nil {
				return nil, err
			}
			return orch.RetryRemaining(ctx)
		}
	}

	title := "Retrying job " + jobID
	if c.Bool("plain") {
		job, _, err := application.Jobs.GetJob(c.Context, jobID)
		if err != nil {
			utils.PrintError(err.Error())
			return err
		}
		return runPlain(c.Context, application, title, job.TotalSelected-job.Linked, 0, resume)
	}
	return runInteractive(c.Context, application, title, resume)
}

func linkJobsAction(c *cli.Context) error {
	application, err := app.FromContext(c)
	if err != nil {
		return err
	}

	jobs, err := application.Jobs.ListJobs(c.Context, c.Int("limit"))
	if err != nil {
		utils.PrintError(fmt.Sprintf("Failed to list jobs: %s", err))
		return err
	}
	if len(jobs) == 0 {
		utils.PrintInfo("No link jobs yet")
		return nil
	}

	headers := []string{"ID", "Label", "Work package", "Status", "Linked", "Failed", "Total", "Updated"}
	rows := make([][]string, 0, len(jobs))
	for _, j := range jobs {
		rows = append(rows, []string{
			j.ID,
			j.Label,
			"#" + j.WorkPackageID,
			string(j.Status),
			strconv.Itoa(j.Linked),
			strconv.Itoa(j.Failed),
			strconv.Itoa(j.TotalSelected),
			j.UpdatedAt.Local().Format(time.DateTime),
		})
	}

	opts := utils.DefaultTableOptions()
	opts.Title = "Link jobs"
	utils.PrintTable(headers, rows, opts)
	return nil
}

// resolveWorkPackage picks the work package from the flag or the last run,
// verifies it against OpenProject when that is configured and remembers it
func resolveWorkPackage(c *cli.Context, application *app.App) (string, error) {
	wpID := strings.TrimPrefix(strings.TrimSpace(c.String("work-package")), "#")
	if wpID == "" {
		last, err := application.Settings.LastWorkPackage(c.Context)
		if err != nil {
			return "", fmt.Errorf("loading last work package: %w", err)
		}
		wpID = last
	}
	if wpID == "" {
		return "", fmt.Errorf("a work package is required, pass --work-package")
	}
	if _, err := strconv.Atoi(wpID); err != nil {
		return "", fmt.Errorf("invalid work package id %q", wpID)
	}

	client, err := application.OpenProject(c.Context)
	switch {
	case errors.Is(err, app.ErrOpenProjectNotConfigured):
		application.Logger.Debug("OpenProject not configured, skipping work package check", "work_package", wpID)
	case err != nil:
		return "", err
	default:
		wp, err := client.GetWorkPackage(c.Context, wpID)
		if err != nil {
			return "", fmt.Errorf("work package #%s: %w", wpID, err)
		}
		utils.PrintInfo(fmt.Sprintf("Work package #%d %s (%s, %s)", wp.ID, color.CyanString("%s", wp.Subject), wp.Project, wp.Status))
	}

	if err := application.Settings.RememberWorkPackage(c.Context, wpID); err != nil {
		application.Logger.WithError(err).Warn("Failed to remember work package", "work_package", wpID)
	}
	return wpID, nil
}

// parseNames reads id=name pairs
func parseNames(pairs []string) (map[int64]string, error) {
	names := make(map[int64]string, len(pairs))
	for _, pair := range pairs {
		idPart, name, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid file name %q, expected id=name", pair)
		}
		id, err := strconv.ParseInt(strings.TrimSpace(idPart), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid file id in %q", pair)
		}
		names[id] = strings.TrimSpace(name)
	}
	return names, nil
}

func runInteractive(ctx context.Context, application *app.App, title string, start func(*bulklink.Orchestrator) func(context.Context) (*bulklink.Job, error)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan bulklink.Progress, 64)
	orch, err := application.NewOrchestrator(func(p bulklink.Progress) {
		select {
		case events <- p:
		case <-ctx.Done():
		}
	})
	if err != nil {
		utils.PrintError(err.Error())
		return err
	}

	model := link.NewModel(ctx, orch, start(orch), events, title, application.Logger)
	final, err := tui.Run(ctx, model, false)
	if err != nil {
		return err
	}

	m, ok := final.(link.Model)
	if !ok {
		return nil
	}
	printJobSummary(m.Job())
	return m.Err()
}

func runPlain(ctx context.Context, application *app.App, title string, total, retries int, start func(*bulklink.Orchestrator) func(context.Context) (*bulklink.Job, error)) error {
	pw := utils.CreateProgressWriter(os.Stdout)
	expected := int64(total)
	tracker := &progress.Tracker{Message: title, Total: expected, Units: progress.UnitsDefault}
	pw.AppendTracker(tracker)
	go pw.Render()

	orch, err := application.NewOrchestrator(func(p bulklink.Progress) {
		if p.Err != nil {
			tracker.IncrementWithError(1)
			return
		}
		tracker.Increment(1)
	})
	if err != nil {
		pw.Stop()
		utils.PrintError(err.Error())
		return err
	}

	job, runErr := start(orch)(ctx)
	for attempt := 1; runErr == nil && attempt <= retries && job != nil && job.Failed > 0; attempt++ {
		application.Logger.Info("Retrying failed files", "job_id", job.ID, "attempt", attempt, "failed", job.Failed)
		expected += int64(job.Failed)
		tracker.UpdateTotal(expected)
		job, runErr = orch.RetryRemaining(ctx)
	}

	tracker.MarkAsDone()
	pw.Stop()
	for pw.IsRenderInProgress() {
		time.Sleep(50 * time.Millisecond)
	}

	printJobSummary(job)
	if runErr != nil {
		utils.PrintError(runErr.Error())
	}
	return runErr
}

func printJobSummary(job *bulklink.Job) {
	if job == nil {
		return
	}

	fmt.Println()
	utils.PrintKeyValue("Job", fmt.Sprintf("%s (%s)", job.ID, job.Label))
	utils.PrintKeyValue("Linked", fmt.Sprintf("%d of %d (%d%%)", job.Linked, job.TotalSelected, job.Percent()))

	switch job.Status {
	case bulklink.JobCompleted:
		utils.PrintSuccess("All files linked")
	case bulklink.JobPartial, bulklink.JobAborted:
		items := make([]string, 0, len(job.FailedRefs))
		for _, f := range job.FailedRefs {
			if f.Name != "" {
				items = append(items, fmt.Sprintf("%s (#%d)", f.Name, f.ID))
			} else {
				items = append(items, fmt.Sprintf("#%d", f.ID))
			}
		}
		if len(items) > 0 {
			utils.PrintTreeList(fmt.Sprintf("%d failed files", len(items)), items)
		}
		utils.PrintInfo("Retry them with " + color.CyanString("oplink link retry %s", job.ID))
	}
}
