package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

const defaultConfigPath = "/etc/contracte/config.yaml"

func main() {
	if err := fang.Execute(context.Background(), newRootCmd(), fang.WithVersion(version)); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contracte",
		Short: "Contract templates, PDF rendering and signing",
		Long: `contracte manages contract templates, partners and the contract lifecycle.

It merges partner and company data into HTML templates, renders PDFs,
signs and archives them, and exports the contract register.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringP("config", "c", defaultConfigPath, "Path to configuration file")

	lipgloss.SetHasDarkBackground(true)

	cmd.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newConfigCmd(),
		newRenderCmd(),
		newExportCmd(),
		newArchiveCmd(),
		newCleanupCmd(),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "contracte %s (built %s)\n", version, buildTime)
		},
	}
}

func configPath(cmd *cobra.Command) string {
	if f := cmd.Flag("config"); f != nil && f.Value.String() != "" {
		return f.Value.String()
	}
	return defaultConfigPath
}
