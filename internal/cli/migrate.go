package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	Long: `Apply the taskdeck schema to the configured Postgres database.

All statements are idempotent, so migrate is safe to run on every deploy.`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if config.Database.URL == "" {
		return fmt.Errorf("no database URL configured (set database.url or DATABASE_URL)")
	}

	ctx := cmd.Context()
	db, err := store.Open(ctx, store.DefaultOptions(config.Database.URL))
	if err != nil {
		return err
	}
	defer db.Close()

	if err := store.Migrate(ctx, db); err != nil {
		return err
	}

	fmt.Println("Schema applied successfully")
	return nil
}
