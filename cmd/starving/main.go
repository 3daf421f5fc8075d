package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mdouchement/starving/internal/client"
	"github.com/sanity-io/litter"
	"github.com/spf13/cobra"
)

var (
	version  = "dev"
	revision = "none"
	date     = "unknown"

	cfg   string
	debug bool
)

func main() {
	c := &cobra.Command{
		Use:           "starving",
		Short:         "Grocery list with cloud sync and list sharing",
		Version:       fmt.Sprintf("%s - build %.7s @ %s", version, revision, date),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	c.PersistentFlags().StringVarP(&cfg, "config", "c", "starving.yml", "Configuration file")
	c.PersistentFlags().BoolVar(&debug, "debug", false, "Dump records and log debug messages")

	c.AddCommand(loginCmd)
	c.AddCommand(logoutCmd)
	c.AddCommand(itemCmd)
	c.AddCommand(todayCmd)
	c.AddCommand(dayCmd)
	c.AddCommand(syncCmd)
	c.AddCommand(shareCmd)
	c.AddCommand(importCmd)
	c.AddCommand(watchCmd)
	c.AddCommand(backupCmd)
	c.AddCommand(restoreCmd)
	c.AddCommand(consoleCmd)

	if err := c.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// run opens the app for the duration of fn.
func run(fn func(ctx context.Context, app *client.App) error) error {
	settings, err := client.LoadSettings(cfg)
	if err != nil {
		return err
	}

	app, err := client.Open(settings, client.NewLogger(settings.LogFile, debug))
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return fn(ctx, app)
}

func dump(v any) {
	if debug {
		fmt.Println(litter.Sdump(v))
	}
}

var (
	loginCmd = &cobra.Command{
		Use:   "login",
		Short: "Login to the document server",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			settings, err := client.LoadSettings(cfg)
			if err != nil {
				return err
			}

			endpoint, _ := c.Flags().GetString("endpoint")
			if endpoint == "" {
				endpoint = settings.Endpoint
			}
			token, _ := c.Flags().GetString("token")

			creds, err := client.Login(c.Context(), settings.Credentials, endpoint, token)
			if err != nil {
				return err
			}
			fmt.Printf("Logged in as %s, credentials stored in %s\n", creds.UserID, settings.Credentials)

			return run(func(ctx context.Context, app *client.App) error {
				result, err := app.Manager.Authenticated(ctx, creds.UserID)
				if err != nil {
					return err
				}
				if result != nil {
					fmt.Printf("Pending shared list %s imported (%d items)\n", result.ListID, result.Count)
				}
				return nil
			})
		},
	}

	logoutCmd = &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			settings, err := client.LoadSettings(cfg)
			if err != nil {
				return err
			}
			return client.Logout(settings.Credentials)
		},
	}
)

func init() {
	loginCmd.Flags().String("endpoint", "", "Document server endpoint")
	loginCmd.Flags().String("token", "", "Bearer token (prompted when empty)")
}
