package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/foxzi/contracte/internal/web/config"
	"github.com/foxzi/contracte/internal/web/db"
	"github.com/foxzi/contracte/internal/web/repository"
)

func newCleanupCmd() *cobra.Command {
	var (
		auditDays    int
		versionsKeep int
		dryRun       bool
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Clean up old data (audit log, template versions)",
		Long: `Delete audit log entries older than --audit-days and keep only the
newest --versions-keep versions of every template.

Contracts and archived PDFs are never touched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if auditDays < 1 {
				return fmt.Errorf("--audit-days must be at least 1")
			}

			cfg, err := config.Load(configPath(cmd))
			if err != nil {
				return err
			}

			database, err := db.New(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer database.Close()

			out := cmd.OutOrStdout()
			s := styles(out)
			if dryRun {
				fmt.Fprintln(out, s.warn.Render("Dry run mode - no data will be deleted"))
			}

			cutoff := time.Now().AddDate(0, 0, -auditDays)
			audit, err := repository.NewSettingsRepository(database.DB).PruneAuditLog(cutoff, dryRun)
			if err != nil {
				return fmt.Errorf("failed to cleanup audit log: %w", err)
			}
			s.row(out, fmt.Sprintf("Audit entries older than %d days", auditDays), audit)

			versions, err := repository.NewTemplateRepository(database.DB).PruneVersions(versionsKeep, dryRun)
			if err != nil {
				return fmt.Errorf("failed to cleanup template versions: %w", err)
			}
			s.row(out, fmt.Sprintf("Template versions beyond newest %d", versionsKeep), versions)

			if !dryRun {
				fmt.Fprintln(out, s.ok.Render("Cleanup completed"))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&auditDays, "audit-days", 365, "Delete audit log entries older than N days")
	cmd.Flags().IntVar(&versionsKeep, "versions-keep", 50, "Keep only the last N versions per template")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be deleted without deleting")
	return cmd
}
