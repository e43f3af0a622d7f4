package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/onnwee/spectacles-xix/db"
)

func newMigrateCmd(configPath *string) *cobra.Command {
	var down, status bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long: `Apply the versioned migrations, read from MIGRATIONS_DIR or db/migrations
when present and from the binary otherwise. If the versioned run fails the
idempotent schema statements are applied instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			switch {
			case status:
				v, dirty, err := db.MigrationVersion(a.db)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d dirty=%t\n", v, dirty)
				return nil
			case down:
				return db.MigrateDown(a.db)
			}

			if err := db.RunMigrations(a.db); err != nil {
				slog.Warn("versioned migrations failed, applying embedded schema",
					slog.Any("err", err), slog.String("component", "db_migrate"))
				if err := db.Migrate(cmd.Context(), a.db); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "roll back the last migration")
	cmd.Flags().BoolVar(&status, "status", false, "print the current migration version")
	cmd.MarkFlagsMutuallyExclusive("down", "status")
	return cmd
}
