package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/foxzi/contracte/internal/contract"
	"github.com/foxzi/contracte/internal/fields"
	"github.com/foxzi/contracte/internal/render"
	"github.com/foxzi/contracte/internal/template"
	"github.com/foxzi/contracte/internal/web/models"
)

type renderFlags struct {
	data        string
	output      string
	fields      string
	preview     bool
	inspect     bool
	orderNumber int
	token       string
	fontRegular string
	fontBold    string
}

func newRenderCmd() *cobra.Command {
	flags := &renderFlags{}

	cmd := &cobra.Command{
		Use:   "render TEMPLATE",
		Short: "Render a template file offline",
		Long: `Merge a JSON data bag into an HTML template and write a PDF or an HTML preview.

The data bag uses the token names: orderNumber, currentDate, beneficiary,
contract and provider. A namespace left out of the file keeps its tokens
literally in the output.

Examples:
  contracte render contract.html --data partner.json -o contract.pdf
  contracte render contract.html --data partner.json --preview
  contracte render contract.html --inspect`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.data, "data", "d", "", "JSON data bag file")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output file (default contract-N.pdf, stdout for --preview)")
	cmd.Flags().StringVar(&flags.fields, "fields", "", "JSON field descriptor file to check required fields")
	cmd.Flags().BoolVar(&flags.preview, "preview", false, "Write the populated HTML preview instead of a PDF")
	cmd.Flags().BoolVar(&flags.inspect, "inspect", false, "List template tokens and exit")
	cmd.Flags().IntVar(&flags.orderNumber, "order", 0, "Order number, overrides the data bag")
	cmd.Flags().StringVar(&flags.token, "token", "", "Signature token, stored in the PDF subject")
	cmd.Flags().StringVar(&flags.fontRegular, "font-regular", "", "TrueType font for body text")
	cmd.Flags().StringVar(&flags.fontBold, "font-bold", "", "TrueType font for bold text")
	return cmd
}

func runRender(cmd *cobra.Command, path string, flags *renderFlags) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read template: %w", err)
	}
	if strings.TrimSpace(string(content)) == "" {
		return contract.ErrMissingTemplateContent
	}

	engine := template.NewEngine()
	if flags.inspect {
		return printTokens(cmd, engine, string(content))
	}

	data := &template.PopulationData{}
	if flags.data != "" {
		raw, err := os.ReadFile(flags.data)
		if err != nil {
			return fmt.Errorf("failed to read data: %w", err)
		}
		if err := json.Unmarshal(raw, data); err != nil {
			return fmt.Errorf("failed to parse data: %w", err)
		}
	}
	if flags.orderNumber > 0 {
		data.OrderNumber = flags.orderNumber
	}

	out := cmd.OutOrStdout()
	s := styles(out)

	if flags.fields != "" {
		raw, err := os.ReadFile(flags.fields)
		if err != nil {
			return fmt.Errorf("failed to read fields: %w", err)
		}
		rules, err := fields.ParseRules(string(raw))
		if err != nil {
			return err
		}
		var missing *fields.MissingFieldsError
		if err := rules.Check(data); errors.As(err, &missing) {
			fmt.Fprintln(cmd.ErrOrStderr(), s.warn.Render(missing.Error()))
		} else if err != nil {
			return err
		}
	}

	populated, err := engine.Populate(string(content), data)
	if err != nil {
		return err
	}

	if flags.preview {
		html := render.RenderPreviewHTML(populated)
		if flags.output == "" {
			_, err := fmt.Fprintln(out, html)
			return err
		}
		return os.WriteFile(flags.output, []byte(html), 0644)
	}

	fonts, err := render.LoadFontSet(flags.fontRegular, flags.fontBold)
	if err != nil {
		return err
	}
	res, err := render.NewRenderer(fonts).RenderPDF(populated, render.PrintContext{
		OrderNumber: data.OrderNumber,
		SignedToken: flags.token,
	})
	if err != nil {
		return err
	}

	output := flags.output
	if output == "" {
		status := models.ContractDraft
		if flags.token != "" {
			status = models.ContractSigned
		}
		output = contract.Filename(status, data.OrderNumber, flags.token)
	}
	if err := os.WriteFile(output, res.PDF, 0644); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}

	fmt.Fprintln(out, s.ok.Render("PDF written to "+output))
	s.row(out, "Pages", res.Pages)
	s.row(out, "Size", fmt.Sprintf("%d bytes", len(res.PDF)))
	return nil
}

func printTokens(cmd *cobra.Command, engine *template.Engine, content string) error {
	out := cmd.OutOrStdout()
	s := styles(out)

	tokens := engine.Inspect(content)
	if len(tokens) == 0 {
		fmt.Fprintln(out, s.dim.Render("No tokens found"))
		return nil
	}

	fmt.Fprintln(out, s.heading.Render(fmt.Sprintf("%-8s %-12s %s", "OFFSET", "STATUS", "TOKEN")))
	unknown := 0
	for _, t := range tokens {
		status := s.ok.Render(fmt.Sprintf("%-12s", "recognized"))
		if !t.Recognized {
			status = s.warn.Render(fmt.Sprintf("%-12s", "passthrough"))
			unknown++
		}
		fmt.Fprintf(out, "%-8d %s %s\n", t.Pos, status, t.Token)
	}
	fmt.Fprintf(out, "\n%d tokens, %d left as written\n", len(tokens), unknown)

	if err := engine.Validate(content); err != nil {
		return err
	}
	return nil
}
