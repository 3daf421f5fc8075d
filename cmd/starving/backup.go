package main

import (
	"context"
	"fmt"
	"time"

	"github.com/mdouchement/starving/internal/client"
	"github.com/spf13/cobra"
)

var (
	backupCmd = &cobra.Command{
		Use:   "backup",
		Short: "Backup your items and days in the current directory",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(func(_ context.Context, app *client.App) error {
				filename := client.BackupFilename(time.Now())
				archive, err := client.Backup(app.DB, filename)
				if err != nil {
					return err
				}
				fmt.Printf("%d items and %d days saved in %s\n", len(archive.Items), len(archive.Days), filename)
				return nil
			})
		},
	}

	restoreCmd = &cobra.Command{
		Use:   "restore FILENAME",
		Short: "Restore a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return run(func(_ context.Context, app *client.App) error {
				archive, err := client.Restore(app.DB, args[0])
				if err != nil {
					return err
				}
				fmt.Printf("%d items and %d days restored\n", len(archive.Items), len(archive.Days))
				return nil
			})
		},
	}
)
