package commands

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/verdantlabs/verdant/internal/app"
	"github.com/verdantlabs/verdant/internal/loggy"
	"github.com/verdantlabs/verdant/internal/remote"
	"github.com/verdantlabs/verdant/internal/store"
	"github.com/verdantlabs/verdant/internal/sweep"
	"github.com/verdantlabs/verdant/internal/utils"
)

// SyncCommand returns the CLI command for reconciling local data with
// the remote assessment service
func SyncCommand() *cli.Command {
	return &cli.Command{
		Name:        "sync",
		Usage:       "Reconcile local data with the assessment service",
		Description: "Pushes locally created and edited records to the assessment service and resolves temporary identifiers",
		Subcommands: []*cli.Command{
			{
				Name:        "account",
				Usage:       "Manage service account connection",
				Description: "Link or unlink this client with your Verdant account",
				Subcommands: []*cli.Command{
					{
						Name:  "link",
						Usage: "Link to a Verdant account",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:     "token",
								Usage:    "Personal access token issued by the service",
								Required: true,
							},
							&cli.StringFlag{
								Name:  "name",
								Usage: "A name for this client (e.g., 'Work Laptop')",
							},
						},
						Action: linkAccountAction,
					},
					{
						Name:   "unlink",
						Usage:  "Unlink from the Verdant account",
						Action: unlinkAccountAction,
					},
					{
						Name:   "status",
						Usage:  "Show account link status",
						Action: accountStatusAction,
					},
				},
			},
			{
				Name:   "status",
				Usage:  "Show reconciliation state per entity table",
				Action: syncStatusAction,
			},
			{
				Name:  "log",
				Usage: "Show recent reconciliation passes",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of passes to show",
						Value: 20,
					},
				},
				Action: syncLogAction,
			},
			{
				Name:   "daemon",
				Usage:  "Run the connectivity monitor and background reconciliation until interrupted",
				Action: syncDaemonAction,
			},
		},
		Action: syncAction,
	}
}

// syncAction runs one reconciliation pass in the foreground
func syncAction(c *cli.Context) error {
	application, err := app.FromContext(c)
	if err != nil {
		return err
	}

	if application.Config.Remote.Token == "" {
		return fmt.Errorf("sync is not configured. Use 'verdant sync account link --token <token>' to configure")
	}

	loggy.Info("Starting manual reconciliation pass")

	// A manual pass assumes reachability until a probe says otherwise
	if !application.Monitor.Online() {
		if err := application.Client.Health(c.Context); err != nil {
			utils.PrintError("Assessment service is unreachable; local changes stay queued")
			return nil
		}
		application.Monitor.SetOnline(true)
	}

	summary, err := application.Sweeper.RunOnce(c.Context, sweep.TriggerManual)
	if err != nil {
		return fmt.Errorf("running reconciliation pass: %w", err)
	}

	printSummary(summary)
	return nil
}

func printSummary(summary *sweep.Summary) {
	pushed, failed, skipped := summary.Totals()

	if pushed == 0 && failed == 0 && skipped == 0 {
		utils.PrintSuccess("Everything is up to date")
		return
	}

	headers := []string{"Table", "Pushed", "Failed", "Skipped"}
	rows := [][]string{}
	for _, tr := range summary.Results {
		if tr.Pushed == 0 && tr.Failed == 0 && tr.Skipped == 0 {
			continue
		}
		rows = append(rows, []string{
			string(tr.Table),
			strconv.Itoa(tr.Pushed),
			strconv.Itoa(tr.Failed),
			strconv.Itoa(tr.Skipped),
		})
	}

	opts := utils.DefaultTableOptions()
	opts.Title = "Reconciliation Pass"
	utils.PrintTable(headers, rows, opts)

	if failed > 0 {
		utils.PrintWarning(fmt.Sprintf("%d record(s) were rejected by the service", failed))
	}
	utils.PrintSuccess(fmt.Sprintf("Pushed %d record(s)", pushed))
}

// linkAccountAction handles linking to a service account
func linkAccountAction(c *cli.Context) error {
	application, err := app.FromContext(c)
	if err != nil {
		return err
	}

	token := c.String("token")
	if token == "" {
		return fmt.Errorf("token is required")
	}

	deviceName := c.String("name")
	if deviceName == "" {
		deviceName = utils.GenerateDeviceName()
	}

	ctx := c.Context
	if err := application.Settings.SetToken(ctx, token); err != nil {
		return fmt.Errorf("setting token: %w", err)
	}
	if err := application.Settings.SetDeviceName(ctx, deviceName); err != nil {
		loggy.Warn("Failed to save device name to settings", "error", err)
	}

	// The running client picks up the new token immediately
	application.Client.SetTokenSource(remote.StaticTokenSource(token))

	valid, err := application.Client.VerifyToken(ctx)
	if err != nil {
		return fmt.Errorf("verifying token: %w", err)
	}
	if !valid {
		return fmt.Errorf("invalid token")
	}

	utils.PrintSuccess("Successfully linked to Verdant as " + application.Config.Remote.DeviceName)
	return nil
}

// unlinkAccountAction handles unlinking from a service account
func unlinkAccountAction(c *cli.Context) error {
	application, err := app.FromContext(c)
	if err != nil {
		return err
	}

	if err := application.Settings.SetToken(c.Context, ""); err != nil {
		return fmt.Errorf("removing token: %w", err)
	}

	utils.PrintSuccess("Successfully unlinked from Verdant")
	return nil
}

// accountStatusAction handles checking account status
func accountStatusAction(c *cli.Context) error {
	application, err := app.FromContext(c)
	if err != nil {
		return err
	}

	if application.Config.Remote.Token == "" {
		utils.PrintError("Not linked to Verdant")
		return nil
	}

	valid, err := application.Client.VerifyToken(c.Context)
	if err != nil {
		loggy.Warn("Error verifying token", "error", err)
	}

	if valid {
		utils.PrintHeading("Account Linked")
		utils.PrintKeyValueWithColor("Service URL", application.Config.Remote.URL, utils.Theme.Info)
		utils.PrintKeyValueWithColor("Device Name", application.Config.Remote.DeviceName, utils.Theme.Info)
	} else {
		utils.PrintError("Token is invalid or expired")
	}

	return nil
}

// syncStatusAction shows per-table reconciliation counts
func syncStatusAction(c *cli.Context) error {
	application, err := app.FromContext(c)
	if err != nil {
		return err
	}

	headers := []string{"Table", "Pending", "Synced", "Failed"}
	rows := [][]string{}

	for _, table := range store.Tables {
		pending, err := application.Store.CountByStatus(c.Context, table, store.SyncStatusPending)
		if err != nil {
			return fmt.Errorf("counting pending records: %w", err)
		}
		synced, err := application.Store.CountByStatus(c.Context, table, store.SyncStatusSynced)
		if err != nil {
			return fmt.Errorf("counting synced records: %w", err)
		}
		failed, err := application.Store.CountByStatus(c.Context, table, store.SyncStatusFailed)
		if err != nil {
			return fmt.Errorf("counting failed records: %w", err)
		}

		rows = append(rows, []string{
			string(table),
			strconv.Itoa(pending),
			strconv.Itoa(synced),
			strconv.Itoa(failed),
		})
	}

	opts := utils.DefaultTableOptions()
	opts.Title = "Reconciliation Status"
	utils.PrintTable(headers, rows, opts)

	if application.Monitor.Online() {
		utils.PrintKeyValueWithColor("Connectivity", "online", utils.Theme.Success)
	} else {
		utils.PrintKeyValueWithColor("Connectivity", "offline", utils.Theme.Warning)
	}

	return nil
}

// syncLogAction lists recent reconciliation passes
func syncLogAction(c *cli.Context) error {
	application, err := app.FromContext(c)
	if err != nil {
		return err
	}

	logs, err := application.SweepLogs.RecentLogs(c.Context, c.Int("limit"))
	if err != nil {
		return fmt.Errorf("loading reconciliation log: %w", err)
	}

	if len(logs) == 0 {
		utils.PrintInfo("No reconciliation passes recorded yet")
		return nil
	}

	headers := []string{"Trigger", "Started", "Finished", "Pushed", "Failed", "Skipped", "Error"}
	rows := [][]string{}
	for _, l := range logs {
		finished := "-"
		if l.FinishedAt != nil {
			finished = utils.FormatTime(*l.FinishedAt)
		}
		rows = append(rows, []string{
			string(l.TriggerKind),
			utils.FormatTime(l.StartedAt),
			finished,
			strconv.Itoa(l.Pushed),
			strconv.Itoa(l.Failed),
			strconv.Itoa(l.Skipped),
			utils.Truncate(l.Error, 48),
		})
	}

	opts := utils.DefaultTableOptions()
	opts.Title = "Reconciliation Log"
	utils.PrintTable(headers, rows, opts)
	return nil
}

// syncDaemonAction runs the background engine until interrupted
func syncDaemonAction(c *cli.Context) error {
	application, err := app.FromContext(c)
	if err != nil {
		return err
	}

	if application.Config.Remote.Token == "" {
		return fmt.Errorf("sync is not configured. Use 'verdant sync account link --token <token>' to configure")
	}

	application.StartBackground(c.Context)
	utils.PrintInfo("Background reconciliation running; press Ctrl+C to stop")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	utils.PrintInfo("Stopping")
	return nil
}
