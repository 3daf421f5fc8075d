package main

import (
	"context"
	"fmt"

	"github.com/araddon/dateparse"
	"github.com/mdouchement/starving/internal/client"
	"github.com/mdouchement/starving/internal/model"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func printDay(day *model.Day, items []*model.Item) {
	fmt.Printf("%s (%d items)\n", day.Date.Format("Monday, Jan 2 2006"), len(items))
	for _, item := range items {
		printItem(item)
	}
	dump(day)
}

var (
	todayCmd = &cobra.Command{
		Use:   "today",
		Short: "Manage the list of the day",
	}

	dayCmd = &cobra.Command{
		Use:   "day DATE",
		Short: "Show the list of a past day",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			t, err := dateparse.ParseLocal(args[0])
			if err != nil {
				return errors.Wrapf(err, "could not parse date %q", args[0])
			}

			return run(func(_ context.Context, app *client.App) error {
				day, err := app.DB.FindDayByDate(t)
				if err != nil {
					if app.DB.IsNotFound(err) {
						return errors.Errorf("no list on %s", t.Format("2006-01-02"))
					}
					return err
				}
				items, err := app.DB.FindItemsByIDs(day.ItemIDs)
				if err != nil {
					return err
				}
				printDay(day, items)
				return nil
			})
		},
	}
)

func init() {
	todayCmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the list of the day",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				return run(func(ctx context.Context, app *client.App) error {
					day, items, err := app.Manager.Today(ctx)
					if err != nil {
						return err
					}
					printDay(day, items)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "add ID...",
			Short: "Add items to the list of the day",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				return run(func(ctx context.Context, app *client.App) error {
					for _, id := range args {
						if _, err := app.Manager.AddToToday(ctx, id); err != nil {
							return err
						}
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "rm ID...",
			Short: "Remove items from the list of the day",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				return run(func(ctx context.Context, app *client.App) error {
					for _, id := range args {
						if _, err := app.Manager.RemoveFromToday(ctx, id); err != nil {
							return err
						}
					}
					return nil
				})
			},
		},
	)
}
