package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Strob0t/PromptForge/internal/adapter/postgres"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the activation journal schema",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.load(cmd.ErrOrStderr()); err != nil {
				return err
			}
			if a.cfg.Postgres.DSN == "" {
				return errors.New("postgres is not configured, set DATABASE_URL")
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := postgres.RunMigrations(cmd.Context(), a.cfg.Postgres.DSN); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := postgres.RollbackMigrations(cmd.Context(), a.cfg.Postgres.DSN, steps); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", steps)
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := postgres.MigrationVersion(cmd.Context(), a.cfg.Postgres.DSN)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	})
	return cmd
}
