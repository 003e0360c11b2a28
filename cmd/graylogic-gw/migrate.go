package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-gateway/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-gateway/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-gateway/migrations"
)

func init() {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Inspect or roll back the database schema",
	}
	migrateCmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "List applied and pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDatabase(getConfigPath(), func(db *database.DB) error {
					return printMigrationStatus(cmd.Context(), cmd.OutOrStdout(), db)
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDatabase(getConfigPath(), func(db *database.DB) error {
					if err := db.MigrateDown(cmd.Context(), migrations.FS); err != nil {
						return fmt.Errorf("rolling back: %w", err)
					}
					return printMigrationStatus(cmd.Context(), cmd.OutOrStdout(), db)
				})
			},
		},
	)
	rootCmd.AddCommand(migrateCmd)
}

// withDatabase opens the configured database for fn and closes it after.
func withDatabase(path string, fn func(db *database.DB) error) error {
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close() //nolint:errcheck // nothing left to flush
	return fn(db)
}

func printMigrationStatus(ctx context.Context, out io.Writer, db *database.DB) error {
	applied, pending, err := db.MigrationStatus(ctx, migrations.FS)
	if err != nil {
		return fmt.Errorf("reading migration status: %w", err)
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tSTATE\tDETAIL")
	for _, r := range applied {
		fmt.Fprintf(w, "%s\tapplied\t%s\n", r.Version, r.AppliedAt.UTC().Format(timeLayoutCLI))
	}
	for _, m := range pending {
		fmt.Fprintf(w, "%s\tpending\t%s\n", m.Version, m.Name)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	// The nodes table is gone once its migration is rolled back.
	if n, err := db.NodeCount(ctx); err == nil {
		fmt.Fprintf(out, "nodes: %d\n", n)
	}
	return nil
}

const timeLayoutCLI = "2006-01-02 15:04:05"
