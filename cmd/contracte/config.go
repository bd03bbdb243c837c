package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/foxzi/contracte/internal/ratelimit"
	"github.com/foxzi/contracte/internal/render"
	"github.com/foxzi/contracte/internal/web/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}
	cmd.AddCommand(newConfigValidateCmd(), newConfigInitCmd())
	return cmd
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE:  runConfigValidate,
	}
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath(cmd))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	s := styles(out)

	fmt.Fprintln(out, s.ok.Render("Configuration is valid"))
	s.row(out, "Listen address", cfg.Server.ListenAddr)
	s.row(out, "TLS", cfg.Server.TLS.Enabled)
	s.row(out, "Database", cfg.Database.Path)
	s.row(out, "Archive", cfg.Archive.Path)
	s.row(out, "Render workers", workersLabel(cfg.Render.Workers))
	s.row(out, "Render timeout", cfg.Render.Timeout)
	s.row(out, "Date format", cfg.Render.DateFormat)
	if cfg.Metrics.Enabled {
		s.row(out, "Metrics", cfg.Metrics.ListenAddr+cfg.Metrics.Path)
	} else {
		s.row(out, "Metrics", "disabled")
	}
	s.row(out, "Render limits", limitsLabel(cfg.RateLimit))

	fonts, err := render.LoadFontSet(cfg.PDF.FontRegular, cfg.PDF.FontBold)
	if err != nil {
		return err
	}
	missing, err := fonts.MissingRunes(render.RequiredRunes)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		fmt.Fprintln(out, s.warn.Render("Warning: PDF fonts lack glyphs for "+string(missing)))
	}
	return nil
}

func limitsLabel(rl ratelimit.Config) string {
	if !rl.Enabled() {
		return "disabled"
	}
	var parts []string
	if rl.Global != nil {
		parts = append(parts, fmt.Sprintf("global %d/h %d/day", rl.Global.RendersPerHour, rl.Global.RendersPerDay))
	}
	if rl.PerIP != nil {
		parts = append(parts, fmt.Sprintf("per IP %d/h %d/day", rl.PerIP.RendersPerHour, rl.PerIP.RendersPerDay))
	}
	return strings.Join(parts, ", ")
}

func workersLabel(n int) string {
	if n == 0 {
		return "one per CPU"
	}
	return fmt.Sprint(n)
}

func newConfigInitCmd() *cobra.Command {
	var (
		output  string
		dataDir string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long: `Write a configuration file with default values.

Examples:
  contracte config init -o /etc/contracte/config.yaml
  contracte config init --data-dir ./data -o dev.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(output); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", output)
			}
			if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
				return fmt.Errorf("failed to create config directory: %w", err)
			}
			if err := os.WriteFile(output, []byte(generateConfig(dataDir)), 0640); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), styles(cmd.OutOrStdout()).ok.Render("Configuration written to "+output))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "config.yaml", "Output configuration file path")
	cmd.Flags().StringVar(&dataDir, "data-dir", "/var/lib/contracte", "Directory for the database and archive")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config file")
	return cmd
}

func generateConfig(dataDir string) string {
	var b strings.Builder
	b.WriteString("server:\n")
	b.WriteString("  listen_addr: \":8088\"\n")
	b.WriteString("  tls:\n    enabled: false\n    cert_file: \"\"\n    key_file: \"\"\n\n")
	fmt.Fprintf(&b, "database:\n  path: %q\n\n", filepath.Join(dataDir, "app.db"))
	fmt.Fprintf(&b, "archive:\n  path: %q\n\n", filepath.Join(dataDir, "archive.db"))
	b.WriteString("render:\n  workers: 0\n  timeout: 30s\n  date_format: \"02.01.2006\"\n\n")
	b.WriteString("# TrueType files with Romanian diacritics, empty keeps the embedded fonts\n")
	b.WriteString("pdf:\n  font_regular: \"\"\n  font_bold: \"\"\n\n")
	b.WriteString("metrics:\n  enabled: true\n  listen_addr: \":9090\"\n  path: /metrics\n  allowed_ips: []\n\n")
	b.WriteString("# PDF and sign requests per client IP, remove to disable\n")
	b.WriteString("rate_limit:\n  per_ip:\n    renders_per_hour: 120\n    renders_per_day: 1000\n\n")
	b.WriteString("logging:\n  level: info\n  format: json\n")
	return b.String()
}
