package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/foxzi/contracte/internal/archive"
	"github.com/foxzi/contracte/internal/web/config"
)

func newArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Inspect signed documents",
		Long: `Inspect the signed document archive.

The archive file is locked while the server runs; stop it first.`,
	}
	cmd.AddCommand(newArchiveListCmd(), newArchiveGetCmd())
	return cmd
}

func openArchive(cmd *cobra.Command) (*archive.Storage, *config.Config, error) {
	cfg, err := config.Load(configPath(cmd))
	if err != nil {
		return nil, nil, err
	}
	store, err := archive.Open(cfg.Archive.Path)
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}

func newArchiveListCmd() *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := openArchive(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cliContext(cmd)
			docs, err := store.List(ctx, archive.ListFilter{Limit: limit, Offset: offset})
			if err != nil {
				return err
			}
			stats, err := store.Stats(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			s := styles(out)
			if len(docs) == 0 {
				fmt.Fprintln(out, s.dim.Render("No archived documents"))
				return nil
			}

			fmt.Fprintln(out, s.heading.Render(fmt.Sprintf("%-8s %-18s %-6s %-10s %s", "ORDER", "TOKEN", "PAGES", "SIZE", "ARCHIVED")))
			for _, d := range docs {
				fmt.Fprintf(out, "%-8d %-18s %-6d %-10d %s\n",
					d.OrderNumber, d.SignedToken, d.Pages, d.Size, d.ArchivedAt.Format(cfg.Render.DateFormat+" 15:04"))
			}
			fmt.Fprintln(out, s.dim.Render(fmt.Sprintf("\n%d documents, %d bytes", stats.Documents, stats.Bytes)))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum documents to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "Documents to skip")
	return cmd
}

func newArchiveGetCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "get ORDER_NUMBER",
		Short: "Write an archived PDF to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid order number %q", args[0])
			}

			store, _, err := openArchive(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			doc, pdf, err := store.GetByOrderNumber(cliContext(cmd), n)
			if err != nil {
				return err
			}

			if output == "" {
				output = doc.Filename
			}
			if err := os.WriteFile(output, pdf, 0644); err != nil {
				return fmt.Errorf("failed to write PDF: %w", err)
			}

			out := cmd.OutOrStdout()
			s := styles(out)
			fmt.Fprintln(out, s.ok.Render("PDF written to "+output))
			s.row(out, "Contract", doc.ContractID)
			s.row(out, "Checksum", doc.Checksum)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default archived file name)")
	return cmd
}
