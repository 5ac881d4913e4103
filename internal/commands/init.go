package commands

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/tildaslashalef/oplink/internal/config"
	"github.com/tildaslashalef/oplink/internal/database"
	"github.com/tildaslashalef/oplink/internal/loggy"
	"github.com/tildaslashalef/oplink/internal/utils"
	"github.com/urfave/cli/v2"
)

// InitCommand returns the CLI command for initializing oplink
func InitCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Initialize or update the oplink environment",
		Description: "Sets up the oplink configuration directory, extracts a sample .env file " +
			"and creates the local database. Run it once before 'oplink connect', and again " +
			"after upgrading oplink to apply new migrations.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "dir",
				Usage: "Configuration directory (default: ~/.oplink)",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Replace an existing .env file, keeping a dated backup",
			},
		},
		Action: initAction,
	}
}

func initAction(c *cli.Context) error {
	utils.PrintHeading("Initializing oplink")

	configDir := c.String("dir")
	if configDir == "" {
		dir, err := config.DefaultConfigDir()
		if err != nil {
			utils.PrintError(err.Error())
			return err
		}
		configDir = dir
	}
	utils.PrintInfo("Configuration directory: " + color.YellowString("%s", configDir))

	// Output is user facing here, the log file does not exist yet
	logger := loggy.NewNoopLogger()

	utils.PrintInfo("Extracting default configuration file")
	if err := config.SetupConfigDirectory(configDir, c.Bool("force"), logger); err != nil {
		utils.PrintWarning(fmt.Sprintf("Failed to set up configuration files: %s", err))
	}

	configFilePath := filepath.Join(configDir, ".env")
	cfg, err := config.LoadFromEnv(configDir, configFilePath)
	if err != nil {
		utils.PrintError(fmt.Sprintf("Failed to load configuration: %s", err))
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	utils.PrintInfo("Initializing database...")
	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		utils.PrintError(fmt.Sprintf("Failed to initialize database: %s", err))
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	utils.PrintInfo("Applying database migrations...")
	if err := database.RunMigrations(db, logger); err != nil {
		utils.PrintError(fmt.Sprintf("Failed to apply migrations: %s", err))
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	utils.PrintSuccess("oplink initialized successfully!")
	utils.PrintInfo("Configuration file: " + color.YellowString("%s", configFilePath))
	utils.PrintInfo("Database location: " + color.YellowString("%s", cfg.Database.Path))
	utils.PrintInfo("Log file location: " + color.YellowString("%s", cfg.Logging.Output))
	fmt.Println("")
	utils.PrintInfo("Next, store your Nextcloud admin connection with " +
		color.CyanString("oplink connect --url <url> --user <admin> --app-password <password>"))

	return nil
}
