package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/verdantlabs/verdant/internal/config"
	"github.com/verdantlabs/verdant/internal/database"
	"github.com/verdantlabs/verdant/internal/utils"
)

// InitCommand returns the CLI command for initializing the Verdant environment
func InitCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Initialize or update the Verdant environment",
		Description: "Sets up the configuration directory and the local store with " +
			"all entity tables. Use this command for first-time setup or to update " +
			"the database schema after upgrading Verdant.",
		Action: func(c *cli.Context) error {
			utils.PrintHeading("Initializing Verdant")

			homeDir, err := os.UserHomeDir()
			if err != nil {
				utils.PrintError(fmt.Sprintf("Failed to get user home directory: %s", err))
				return fmt.Errorf("failed to get user home directory: %w", err)
			}

			configDir := filepath.Join(homeDir, ".verdant")
			utils.PrintInfo("Configuration directory: " + color.YellowString("%s", configDir))

			if err := os.MkdirAll(configDir, 0755); err != nil {
				utils.PrintError(fmt.Sprintf("Failed to create config directory: %s", err))
				return fmt.Errorf("failed to create config directory: %w", err)
			}

			cfg, err := config.LoadFromEnv(configDir, "")
			if err != nil {
				utils.PrintError(fmt.Sprintf("Failed to load configuration: %s", err))
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			config.Set(cfg)

			if err := database.InitDB(cfg); err != nil {
				utils.PrintError(fmt.Sprintf("Failed to initialize database: %s", err))
				return fmt.Errorf("failed to initialize database: %w", err)
			}

			utils.PrintInfo("Applying embedded migrations")
			applied, err := database.RunMigrations()
			if err != nil {
				utils.PrintError(fmt.Sprintf("Failed to apply migrations: %s", err))
				return fmt.Errorf("failed to apply migrations: %w", err)
			}
			if applied > 0 {
				utils.PrintSuccess(fmt.Sprintf("Applied %d migration(s)", applied))
			} else {
				utils.PrintSuccess("Local store schema is already up-to-date")
			}

			utils.PrintInfo("Database location: " + color.YellowString("%s", cfg.Database.Path))
			utils.PrintInfo("Log file location: " + color.YellowString("%s", cfg.Logging.Output))
			utils.PrintInfo("Link your account with " + color.CyanString("verdant sync account link --token <token>"))

			return nil
		},
	}
}
