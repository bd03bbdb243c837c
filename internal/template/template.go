package template

import (
	"strconv"
	"strings"
)

// PopulationData is the data bag a template is merged with.
// A nil namespace means the related record is missing: its tokens are left
// untouched in the output.
type PopulationData struct {
	OrderNumber int            `json:"orderNumber"`
	CurrentDate string         `json:"currentDate"`
	Beneficiary *Beneficiary   `json:"beneficiary,omitempty"`
	Contract    *ContractTerms `json:"contract,omitempty"`
	Provider    *Provider      `json:"provider,omitempty"`
}

// Beneficiary is the contract counterparty, an individual or a company
type Beneficiary struct {
	Name                       string `json:"name"`
	Email                      string `json:"email"`
	Phone                      string `json:"phone"`
	Address                    string `json:"address"`
	CNP                        string `json:"cnp,omitempty"`
	CompanyName                string `json:"companyName,omitempty"`
	CompanyAddress             string `json:"companyAddress,omitempty"`
	CompanyCUI                 string `json:"companyCui,omitempty"`
	CompanyRegistrationNumber  string `json:"companyRegistrationNumber,omitempty"`
	CompanyLegalRepresentative string `json:"companyLegalRepresentative,omitempty"`
	IsCompany                  bool   `json:"isCompany"`
}

// ContractTerms holds the commercial terms. Dates and value arrive formatted.
type ContractTerms struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Value     string `json:"value"`
	Currency  string `json:"currency"`
	Notes     string `json:"notes"`
}

// Provider is the contract-issuing organization (company settings)
type Provider struct {
	Name                string `json:"name"`
	Address             string `json:"address"`
	Phone               string `json:"phone"`
	Email               string `json:"email"`
	CUI                 string `json:"cui"`
	RegistrationNumber  string `json:"registrationNumber"`
	LegalRepresentative string `json:"legalRepresentative"`
}

// Vocabulary lists every scalar placeholder the engine recognizes
var Vocabulary = []string{
	"orderNumber",
	"currentDate",
	"beneficiary.name",
	"beneficiary.email",
	"beneficiary.phone",
	"beneficiary.address",
	"beneficiary.cnp",
	"beneficiary.companyName",
	"beneficiary.companyAddress",
	"beneficiary.companyCui",
	"beneficiary.companyRegistrationNumber",
	"beneficiary.companyLegalRepresentative",
	"contract.value",
	"contract.currency",
	"contract.startDate",
	"contract.endDate",
	"contract.notes",
	"provider.name",
	"provider.address",
	"provider.cui",
	"provider.registrationNumber",
	"provider.legalRepresentative",
	"provider.phone",
	"provider.email",
}

// IsCompany reports whether the beneficiary is a company.
// A missing beneficiary counts as an individual.
func (d *PopulationData) IsCompany() bool {
	return d != nil && d.Beneficiary != nil && d.Beneficiary.IsCompany
}

// Lookup resolves a placeholder name to its value. The second result is false
// when the name is unknown or its namespace is absent.
func (d *PopulationData) Lookup(name string) (string, bool) {
	if d == nil {
		return "", false
	}

	switch name {
	case "orderNumber":
		return strconv.Itoa(d.OrderNumber), true
	case "currentDate":
		return d.CurrentDate, true
	}

	ns, field, ok := strings.Cut(name, ".")
	if !ok {
		return "", false
	}

	switch ns {
	case "beneficiary":
		if d.Beneficiary == nil {
			return "", false
		}
		return d.Beneficiary.field(field)
	case "contract":
		if d.Contract == nil {
			return "", false
		}
		return d.Contract.field(field)
	case "provider":
		if d.Provider == nil {
			return "", false
		}
		return d.Provider.field(field)
	}
	return "", false
}

func (b *Beneficiary) field(name string) (string, bool) {
	switch name {
	case "name":
		return b.Name, true
	case "email":
		return b.Email, true
	case "phone":
		return b.Phone, true
	case "address":
		return b.Address, true
	case "cnp":
		return b.CNP, true
	case "companyName":
		return b.CompanyName, true
	case "companyAddress":
		return b.CompanyAddress, true
	case "companyCui":
		return b.CompanyCUI, true
	case "companyRegistrationNumber":
		return b.CompanyRegistrationNumber, true
	case "companyLegalRepresentative":
		return b.CompanyLegalRepresentative, true
	}
	return "", false
}

func (c *ContractTerms) field(name string) (string, bool) {
	switch name {
	case "value":
		return c.Value, true
	case "currency":
		return c.Currency, true
	case "startDate":
		return c.StartDate, true
	case "endDate":
		return c.EndDate, true
	case "notes":
		return c.Notes, true
	}
	return "", false
}

func (p *Provider) field(name string) (string, bool) {
	switch name {
	case "name":
		return p.Name, true
	case "address":
		return p.Address, true
	case "cui":
		return p.CUI, true
	case "registrationNumber":
		return p.RegistrationNumber, true
	case "legalRepresentative":
		return p.LegalRepresentative, true
	case "phone":
		return p.Phone, true
	case "email":
		return p.Email, true
	}
	return "", false
}
