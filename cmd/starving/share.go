package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mdouchement/starving/internal/client"
	"github.com/mdouchement/starving/internal/remote"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func printList(list *remote.SharedList) {
	fmt.Printf("%s  %s by %s (%d items, %d recipients)\n", list.ID, list.Name, list.OwnerName, len(list.ItemTitles), len(list.RecipientIDs))
	dump(list)
}

var shareCmd = &cobra.Command{
	Use:   "share",
	Short: "Manage shared lists",
}

func init() {
	create := &cobra.Command{
		Use:   "create ID...",
		Short: "Share items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			name, _ := c.Flags().GetString("name")
			description, _ := c.Flags().GetString("description")

			return run(func(ctx context.Context, app *client.App) error {
				list, err := app.Manager.CreateSharedList(ctx, name, description, args)
				if err != nil {
					return err
				}
				printList(list)
				fmt.Println(list.ShareLink)
				return nil
			})
		},
	}
	create.Flags().StringP("name", "n", "", "List name")
	create.Flags().StringP("description", "d", "", "List description")

	complete := &cobra.Command{
		Use:   "complete LIST_ID",
		Short: "Report your shopping progress on a received list",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			undo, _ := c.Flags().GetBool("undo")
			return run(func(ctx context.Context, app *client.App) error {
				return app.Manager.SetCompletion(ctx, args[0], !undo).Err
			})
		},
	}
	complete.Flags().Bool("undo", false, "Mark the list as not completed")

	list := &cobra.Command{
		Use:   "list",
		Short: "List owned and received lists",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			received, _ := c.Flags().GetBool("received")
			return run(func(ctx context.Context, app *client.App) error {
				load := app.Manager.LoadSharedLists
				if received {
					load = app.Manager.ReceivedSharedLists
				}

				lists, err := load(ctx)
				if err != nil {
					return err
				}
				for _, list := range lists {
					printList(list)
				}
				return nil
			})
		},
	}
	list.Flags().BoolP("received", "r", false, "Only the lists shared with you, most recent first")

	shareCmd.AddCommand(
		create,
		list,
		&cobra.Command{
			Use:   "show LIST_ID",
			Short: "Show the message to send to recipients",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				return run(func(ctx context.Context, app *client.App) error {
					list, err := app.Manager.SharedList(ctx, args[0])
					if err != nil {
						return err
					}
					fmt.Println(app.Manager.Sharing().ShareText(list))
					if list.Completed() {
						fmt.Println("\nEvery recipient completed the list.")
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "export LIST_ID [FILENAME]",
			Short: "Export a list for an offline transfer",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(_ *cobra.Command, args []string) error {
				return run(func(ctx context.Context, app *client.App) error {
					list, err := app.Manager.SharedList(ctx, args[0])
					if err != nil {
						return err
					}
					data, err := app.Manager.Sharing().ExportFile(list)
					if err != nil {
						return err
					}

					filename := list.ID + ".grocerylist"
					if len(args) == 2 {
						filename = args[1]
					}
					return errors.Wrap(os.WriteFile(filename, data, 0o644), "could not write export")
				})
			},
		},
		&cobra.Command{
			Use:   "recipient LIST_ID USER_ID",
			Short: "Add a recipient to a list",
			Args:  cobra.ExactArgs(2),
			RunE: func(_ *cobra.Command, args []string) error {
				return run(func(ctx context.Context, app *client.App) error {
					return app.Manager.Sharing().AddRecipient(ctx, args[0], args[1]).Err
				})
			},
		},
		complete,
		&cobra.Command{
			Use:   "items LIST_ID",
			Short: "List the local items imported from a list",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				return run(func(_ context.Context, app *client.App) error {
					items, err := app.DB.FindItemsBySharedList(strings.TrimSpace(args[0]))
					if err != nil {
						return err
					}
					for _, item := range items {
						printItem(item)
					}
					return nil
				})
			},
		},
	)
}
