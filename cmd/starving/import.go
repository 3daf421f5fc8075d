package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mdouchement/starving/internal/client"
	"github.com/mdouchement/starving/internal/hybrid"
	"github.com/mdouchement/starving/internal/service"
	"github.com/mdouchement/starving/pkg/deeplink"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func printEvent(ev hybrid.Event) {
	switch ev := ev.(type) {
	case hybrid.ImportSucceeded:
		fmt.Println(ev.Message)
	case hybrid.ImportFailed:
		fmt.Println(ev.Message)
	case hybrid.SyncStatusChanged:
		fmt.Println("sync:", ev.Status)
	}
}

func drain(events <-chan hybrid.Event) {
	for {
		select {
		case ev := <-events:
			printEvent(ev)
		default:
			return
		}
	}
}

var (
	importCmd = &cobra.Command{
		Use:   "import LINK|FILENAME",
		Short: "Import a shared list from a link or an offline file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return run(func(ctx context.Context, app *client.App) error {
				events, unsubscribe := app.Manager.Subscribe()
				defer unsubscribe()

				var result *service.ImportResult
				var err error
				if deeplink.Supported(args[0]) {
					result, err = app.Manager.ImportFile(ctx, args[0])
				} else {
					result, err = app.Manager.JoinSharedList(ctx, args[0])
				}
				drain(events)

				if result != nil && !result.SharedAt.IsZero() {
					fmt.Println("Shared on", result.SharedAt.Local().Format("2006-01-02 15:04"))
				}

				if errors.Is(err, hybrid.ErrAuthenticationRequired) {
					fmt.Println("Login to import this list.")
					return nil
				}
				return err
			})
		},
	}

	watchCmd = &cobra.Command{
		Use:   "watch DIRECTORY",
		Short: "Import the shared list files dropped into a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return run(func(ctx context.Context, app *client.App) error {
				events, unsubscribe := app.Manager.Subscribe()
				defer unsubscribe()

				go func() {
					for ev := range events {
						printEvent(ev)
					}
				}()

				inbox := client.NewInbox(args[0], 0, nil, func(filename string) {
					if _, err := app.Manager.ImportFile(ctx, filename); err != nil {
						return
					}
					if err := os.Rename(filename, filename+".imported"); err != nil {
						fmt.Println(err)
					}
				})

				fmt.Printf("Watching %s\n", args[0])
				return inbox.Run(ctx)
			})
		},
	}
)
