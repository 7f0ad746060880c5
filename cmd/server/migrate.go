package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"commission-art-backend/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}

		if list, _ := cmd.Flags().GetBool("list"); list {
			names, err := database.Migrations()
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		}

		migrator, err := database.NewMigrator(cfg.DatabaseURL, logger)
		if err != nil {
			return err
		}
		defer migrator.Close()

		if err := migrator.Run(cmd.Context()); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		logger.Info("migrations completed successfully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().Bool("list", false, "List embedded migrations without applying them")
}
