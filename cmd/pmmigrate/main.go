// Command pmmigrate applies the embedded Postgres migrations.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"projectmanager/migrations"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load(".env")

	var dbURL string
	var timeout time.Duration

	rootCmd := &cobra.Command{
		Use:          "pmmigrate",
		Short:        "Apply or inspect projectmanager database migrations",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(dbURL) == "" {
				return errors.New("database URL required (--database-url or PM_DATABASE_URL)")
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&dbURL, "database-url", os.Getenv("PM_DATABASE_URL"), "Postgres connection URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", time.Minute, "Overall timeout")

	withTimeout := func(cmd *cobra.Command) (context.Context, context.CancelFunc) {
		return context.WithTimeout(cmd.Context(), timeout)
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			n, err := migrations.Up(ctx, dbURL)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", n)
			return nil
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			if err := migrations.Down(ctx, dbURL); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "rolled back 1 migration")
			return nil
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			versions, err := migrations.Status(ctx, dbURL)
			if err != nil {
				return err
			}
			for _, v := range versions {
				state := "pending"
				if v.Applied {
					state = "applied"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%05d  %-8s %s\n", v.Version, state, v.Path)
			}
			return nil
		},
	})

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
