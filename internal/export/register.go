// Package export writes the contract register as an XLSX workbook.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/foxzi/contracte/internal/web/models"
)

// SheetName is the worksheet holding the register
const SheetName = "Contracts"

var columns = []struct {
	title string
	width float64
}{
	{"Order", 8},
	{"Status", 12},
	{"Beneficiary", 36},
	{"Start date", 12},
	{"End date", 12},
	{"Value", 14},
	{"Currency", 10},
	{"Signed at", 18},
	{"Token", 20},
}

// Row is one register line
type Row struct {
	OrderNumber int
	Status      string
	Beneficiary string
	StartDate   *time.Time
	EndDate     *time.Time
	Value       float64
	Currency    string
	SignedAt    *time.Time
	SignedToken string
}

// PartnerLookup resolves a partner by id, nil when it does not exist
type PartnerLookup func(id string) (*models.Partner, error)

// Rows converts contracts to register rows. Each partner is looked up once.
func Rows(contracts []models.Contract, lookup PartnerLookup) ([]Row, error) {
	names := make(map[string]string)
	rows := make([]Row, 0, len(contracts))

	for _, c := range contracts {
		name, ok := names[c.PartnerID]
		if !ok && c.PartnerID != "" {
			p, err := lookup(c.PartnerID)
			if err != nil {
				return nil, fmt.Errorf("failed to get partner %s: %w", c.PartnerID, err)
			}
			name = partnerName(p)
			names[c.PartnerID] = name
		}

		rows = append(rows, Row{
			OrderNumber: c.OrderNumber,
			Status:      c.Status,
			Beneficiary: name,
			StartDate:   c.StartDate,
			EndDate:     c.EndDate,
			Value:       c.Value,
			Currency:    c.Currency,
			SignedAt:    c.SignedAt,
			SignedToken: c.SignedToken,
		})
	}
	return rows, nil
}

func partnerName(p *models.Partner) string {
	if p == nil {
		return ""
	}
	if p.IsCompany && p.CompanyName != "" {
		return p.CompanyName
	}
	return p.Name
}

// WriteRegister writes rows as an XLSX workbook. Dates use dateFormat.
func WriteRegister(w io.Writer, rows []Row, dateFormat string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, col.title); err != nil {
			return err
		}
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(SheetName, name, name, col.width); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(columns), 1)
	if err := f.SetCellStyle(SheetName, "A1", last, header); err != nil {
		return err
	}

	for i, r := range rows {
		values := []any{
			r.OrderNumber,
			r.Status,
			r.Beneficiary,
			formatDate(r.StartDate, dateFormat),
			formatDate(r.EndDate, dateFormat),
			r.Value,
			r.Currency,
			formatDate(r.SignedAt, dateFormat+" 15:04"),
			r.SignedToken,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.AutoFilter(SheetName, "A1:"+last, nil); err != nil {
		return fmt.Errorf("failed to set filter: %w", err)
	}
	err = f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
	if err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	return f.Write(w)
}

func formatDate(t *time.Time, layout string) string {
	if t == nil {
		return ""
	}
	return t.Format(layout)
}
