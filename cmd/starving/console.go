package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mdouchement/starving/internal/client"
	"github.com/spf13/cobra"
)

// starving console "SELECT title FROM items WHERE hidden = true ORDER BY updated_at DESC LIMIT 5"
var consoleCmd = &cobra.Command{
	Use:   "console SQL",
	Short: "Query the local database with a SQL SELECT statement",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return run(func(_ context.Context, app *client.App) error {
			rows, err := app.DB.Select(strings.Join(args, " "))
			if err != nil {
				return err
			}
			return jsondump(rows)
		})
	},
}

func jsondump(v any) error {
	d, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(d))
	return nil
}
