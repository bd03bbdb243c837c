package contract

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/foxzi/contracte/internal/template"
	"github.com/foxzi/contracte/internal/web/models"
)

// DefaultDateFormat is used when no date format is configured
const DefaultDateFormat = "02.01.2006"

// BuildPopulationData assembles the data bag for a contract. A missing
// partner or empty company settings leave the matching namespace nil.
func BuildPopulationData(c *models.ContractWithRelations, company *models.CompanySettings, now time.Time, dateFormat string) *template.PopulationData {
	if dateFormat == "" {
		dateFormat = DefaultDateFormat
	}

	data := &template.PopulationData{
		OrderNumber: c.OrderNumber,
		CurrentDate: now.Format(dateFormat),
		Contract: &template.ContractTerms{
			StartDate: formatDate(c.StartDate, dateFormat),
			EndDate:   formatDate(c.EndDate, dateFormat),
			Value:     strconv.FormatFloat(c.Value, 'f', -1, 64),
			Currency:  c.Currency,
			Notes:     c.Notes,
		},
	}

	if p := c.Partner; p != nil {
		data.Beneficiary = &template.Beneficiary{
			Name:                       p.Name,
			Email:                      p.Email,
			Phone:                      p.Phone,
			Address:                    p.Address,
			CNP:                        p.CNP,
			CompanyName:                p.CompanyName,
			CompanyAddress:             p.CompanyAddress,
			CompanyCUI:                 p.CompanyCUI,
			CompanyRegistrationNumber:  p.CompanyRegistrationNumber,
			CompanyLegalRepresentative: p.CompanyLegalRepresentative,
			IsCompany:                  p.IsCompany,
		}
	}

	if company != nil && !company.IsEmpty() {
		data.Provider = &template.Provider{
			Name:                company.Name,
			Address:             company.Address,
			Phone:               company.Phone,
			Email:               company.Email,
			CUI:                 company.CUI,
			RegistrationNumber:  company.RegistrationNumber,
			LegalRepresentative: company.LegalRepresentative,
		}
	}

	return data
}

func formatDate(t *time.Time, layout string) string {
	if t == nil {
		return ""
	}
	return t.Format(layout)
}

// Filename returns the download name of a contract PDF
func Filename(status string, orderNumber int, signedToken string) string {
	if status == models.ContractSigned && signedToken != "" {
		return fmt.Sprintf("CTR_%d_%s.pdf", orderNumber, signedToken)
	}
	return fmt.Sprintf("contract-%d.pdf", orderNumber)
}

// SignToken derives the signature token of a contract from a secret key.
// The same inputs always produce the same token.
func SignToken(key []byte, contractID string, orderNumber int, at time.Time) (string, error) {
	h, err := blake2b.New(8, key)
	if err != nil {
		return "", fmt.Errorf("failed to create token hash: %w", err)
	}

	var buf [8]byte
	h.Write([]byte(contractID))
	binary.BigEndian.PutUint64(buf[:], uint64(orderNumber))
	h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], uint64(at.UnixNano()))
	h.Write(buf[:])

	return hex.EncodeToString(h.Sum(nil)), nil
}
