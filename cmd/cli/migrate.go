package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/axellelanca/shortener/cmd"
	"github.com/axellelanca/shortener/internal/repository"
)

// MigrateCmd represents the 'migrate' command
// This command handles database schema creation and updates
var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Executes database migrations to create or update tables.",
	Long: `This command connects to the configured database (SQLite, PostgreSQL or MySQL)
and executes GORM automatic migrations to create the 'users' and 'links' tables.`,
	RunE: func(c *cobra.Command, args []string) error {
		// Open runs the migration before returning.
		db, err := repository.Open(databaseOptions(), cmd.Logger)
		if err != nil {
			return err
		}
		defer repository.Close(db)

		fmt.Fprintln(c.OutOrStdout(), "Database migrations executed successfully.")
		return nil
	},
}

func init() {
	cmd.RootCmd.AddCommand(MigrateCmd)
}

func databaseOptions() repository.Options {
	return repository.Options{
		Driver: cmd.Cfg.Database.Driver,
		Name:   cmd.Cfg.Database.Name,
		DSN:    cmd.Cfg.Database.DSN,
	}
}
