package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/mdouchement/starving/internal/client"
	"github.com/mdouchement/starving/internal/model"
	"github.com/spf13/cobra"
)

func printItem(item *model.Item) {
	flags := []string{}
	if item.Completed {
		flags = append(flags, "done")
	}
	if item.Hidden {
		flags = append(flags, "hidden")
	}
	if item.IsShared() {
		flags = append(flags, "from "+item.Provenance.SharerName)
	}

	line := fmt.Sprintf("%s  %s", item.ID, item.Title)
	if len(flags) > 0 {
		line += " [" + strings.Join(flags, ", ") + "]"
	}
	fmt.Println(line)
	dump(item)
}

var itemCmd = &cobra.Command{
	Use:   "item",
	Short: "Manage grocery items",
}

func init() {
	list := &cobra.Command{
		Use:   "list",
		Short: "List items",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			all, _ := c.Flags().GetBool("all")
			return run(func(_ context.Context, app *client.App) error {
				items, err := app.Manager.Items(all)
				if err != nil {
					return err
				}
				for _, item := range items {
					printItem(item)
				}
				return nil
			})
		},
	}
	list.Flags().BoolP("all", "a", false, "Include hidden items")

	itemCmd.AddCommand(
		&cobra.Command{
			Use:   "add TITLE...",
			Short: "Add items",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				return run(func(ctx context.Context, app *client.App) error {
					for _, title := range args {
						item, err := app.Manager.AddItem(ctx, title)
						if err != nil {
							return err
						}
						printItem(item)
					}
					return nil
				})
			},
		},
		list,
		&cobra.Command{
			Use:   "rename ID TITLE",
			Short: "Rename an item",
			Args:  cobra.ExactArgs(2),
			RunE: func(_ *cobra.Command, args []string) error {
				return run(func(ctx context.Context, app *client.App) error {
					item, err := app.Manager.UpdateItem(ctx, args[0], args[1])
					if err != nil {
						return err
					}
					printItem(item)
					return nil
				})
			},
		},
		toggle("hide", "Hide an item", func(ctx context.Context, app *client.App, id string) (*model.Item, error) {
			return app.Manager.SetHidden(ctx, id, true)
		}),
		toggle("unhide", "Restore a hidden item", func(ctx context.Context, app *client.App, id string) (*model.Item, error) {
			return app.Manager.SetHidden(ctx, id, false)
		}),
		toggle("done", "Mark an item as bought", func(ctx context.Context, app *client.App, id string) (*model.Item, error) {
			return app.Manager.SetCompleted(ctx, id, true)
		}),
		toggle("undone", "Mark an item as not bought", func(ctx context.Context, app *client.App, id string) (*model.Item, error) {
			return app.Manager.SetCompleted(ctx, id, false)
		}),
		&cobra.Command{
			Use:   "rm ID",
			Short: "Delete an item",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				return run(func(ctx context.Context, app *client.App) error {
					return app.Manager.DeleteItem(ctx, args[0])
				})
			},
		},
	)
}

func toggle(use, short string, fn func(ctx context.Context, app *client.App, id string) (*model.Item, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return run(func(ctx context.Context, app *client.App) error {
				item, err := fn(ctx, app, args[0])
				if err != nil {
					return err
				}
				printItem(item)
				return nil
			})
		},
	}
}
