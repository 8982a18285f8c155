package cli

import (
	"fmt"

	"qtro-isp/config"
	"qtro-isp/database"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		dsn, err := config.DatabaseURL()
		if err != nil {
			return err
		}
		db, err := database.Open(dsn, debugSQL)
		if err != nil {
			return err
		}
		if err := database.Migrate(db); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Database migrated")
		return nil
	},
}
