package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/foxzi/contracte/internal/export"
	"github.com/foxzi/contracte/internal/web/config"
	"github.com/foxzi/contracte/internal/web/db"
	"github.com/foxzi/contracte/internal/web/models"
	"github.com/foxzi/contracte/internal/web/repository"
)

func newExportCmd() *cobra.Command {
	var (
		output string
		status string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the contract register as XLSX",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath(cmd))
			if err != nil {
				return err
			}

			database, err := db.New(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer database.Close()

			contracts, _, err := repository.NewContractRepository(database.DB).List(models.ContractListFilter{Status: status})
			if err != nil {
				return fmt.Errorf("failed to list contracts: %w", err)
			}
			rows, err := export.Rows(contracts, repository.NewPartnerRepository(database.DB).GetByID)
			if err != nil {
				return err
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}
			if err := export.WriteRegister(f, rows, cfg.Render.DateFormat); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, styles(out).ok.Render(fmt.Sprintf("%d contracts written to %s", len(rows), output)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "contracts.xlsx", "Output file")
	cmd.Flags().StringVar(&status, "status", "", "Only export contracts with this status")
	return cmd
}
