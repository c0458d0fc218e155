package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/homestead/homestead/migrations"
)

var migrateSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or revert the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply every pending migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if databaseURL == "" {
			return errNoDatabase
		}
		db, err := migrations.Open(databaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		done, err := migrations.Up(cmd.Context(), db)
		for _, m := range done {
			logger.Info("migration_applied", "version", m.Version, "name", m.Name)
		}
		if err != nil {
			return err
		}
		if len(done) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
		}
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert the latest migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if databaseURL == "" {
			return errNoDatabase
		}
		if migrateSteps < 1 {
			return fmt.Errorf("--steps must be at least 1")
		}
		db, err := migrations.Open(databaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		done, err := migrations.Down(cmd.Context(), db, migrateSteps)
		for _, m := range done {
			logger.Info("migration_reverted", "version", m.Version, "name", m.Name)
		}
		return err
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List migrations and whether they are applied",
	RunE: func(cmd *cobra.Command, args []string) error {
		if databaseURL == "" {
			return errNoDatabase
		}
		db, err := migrations.Open(databaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		all, err := migrations.Load()
		if err != nil {
			return err
		}
		applied, err := migrations.Applied(cmd.Context(), db)
		if err != nil {
			return err
		}
		sort.Slice(all, func(i, j int) bool { return all[i].Version < all[j].Version })

		out := cmd.OutOrStdout()
		for _, m := range all {
			state := "pending"
			if applied[m.Version] {
				state = "applied"
			}
			fmt.Fprintf(out, "%06d  %-8s %s\n", m.Version, state, m.Name)
		}
		return nil
	},
}

func init() {
	migrateDownCmd.Flags().IntVar(&migrateSteps, "steps", 1, "number of migrations to revert")

	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}
