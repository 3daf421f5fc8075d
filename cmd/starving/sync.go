package main

import (
	"context"
	"fmt"

	"github.com/mdouchement/starving/internal/client"
	"github.com/mdouchement/starving/internal/model"
	"github.com/mdouchement/starving/internal/service"
	"github.com/spf13/cobra"
)

func printReport(report service.SyncReport, err error) error {
	if err != nil {
		return err
	}
	if report.Skipped {
		fmt.Println("Cloud sync is disabled")
		return nil
	}

	fmt.Printf("pushed: %d (failed: %d), inserted: %d, updated: %d, unchanged: %d (failed: %d)\n",
		report.Pushed, report.PushFailed, report.Inserted, report.Updated, report.Unchanged, report.PullFailed)
	return nil
}

func pass(use, short string, fn func(ctx context.Context, app *client.App) (service.SyncReport, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(func(ctx context.Context, app *client.App) error {
				err := printReport(fn(ctx, app))
				fmt.Println("status:", app.Manager.SyncStatus())
				return err
			})
		},
	}
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Manage cloud sync",
}

func init() {
	syncCmd.AddCommand(
		pass("enable", "Enable cloud sync and push local records", func(ctx context.Context, app *client.App) (service.SyncReport, error) {
			return app.Manager.EnableCloudSync(ctx)
		}),
		&cobra.Command{
			Use:   "disable",
			Short: "Disable cloud sync, remote records are kept",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				return run(func(ctx context.Context, app *client.App) error {
					return app.Manager.DisableCloudSync(ctx)
				})
			},
		},
		pass("push", "Push local records", func(ctx context.Context, app *client.App) (service.SyncReport, error) {
			return app.Manager.Push(ctx)
		}),
		pass("pull", "Pull remote records", func(ctx context.Context, app *client.App) (service.SyncReport, error) {
			return app.Manager.Pull(ctx)
		}),
		pass("now", "Push then pull", func(ctx context.Context, app *client.App) (service.SyncReport, error) {
			return app.Manager.Sync(ctx)
		}),
		&cobra.Command{
			Use:   "status",
			Short: "Show the sync preferences",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				return run(func(ctx context.Context, app *client.App) error {
					prefs, err := app.Manager.Preferences(ctx)
					if err != nil {
						return err
					}

					fmt.Println("enabled:  ", prefs.CloudSyncEnabled)
					fmt.Println("frequency:", prefs.SyncFrequency.DisplayName())
					if prefs.LastSyncDate != nil {
						fmt.Println("last sync:", prefs.LastSyncDate.Local().Format("2006-01-02 15:04:05"))
					}
					dump(prefs)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "frequency FREQUENCY",
			Short: "Set the sync frequency (realTime, hourly, daily, wifiOnly, manual)",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				return run(func(ctx context.Context, app *client.App) error {
					return app.Manager.SetSyncFrequency(ctx, model.SyncFrequency(args[0]))
				})
			},
		},
	)
}
