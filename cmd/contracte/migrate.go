package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foxzi/contracte/internal/web/config"
	"github.com/foxzi/contracte/internal/web/db"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE:  runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath(cmd))
	if err != nil {
		return err
	}

	database, err := db.New(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		return err
	}

	s := styles(cmd.OutOrStdout())
	fmt.Fprintln(cmd.OutOrStdout(), s.ok.Render("Migrations completed successfully"))
	return nil
}
