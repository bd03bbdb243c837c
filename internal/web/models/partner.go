package models

import "time"

// Partner is a contract beneficiary, either an individual or a company
type Partner struct {
	ID                         string    `json:"id"`
	Name                       string    `json:"name"`
	Email                      string    `json:"email"`
	Phone                      string    `json:"phone"`
	Address                    string    `json:"address"`
	CNP                        string    `json:"cnp,omitempty"`
	CompanyName                string    `json:"company_name,omitempty"`
	CompanyAddress             string    `json:"company_address,omitempty"`
	CompanyCUI                 string    `json:"company_cui,omitempty"`
	CompanyRegistrationNumber  string    `json:"company_registration_number,omitempty"`
	CompanyLegalRepresentative string    `json:"company_legal_representative,omitempty"`
	IsCompany                  bool      `json:"is_company"`
	CreatedAt                  time.Time `json:"created_at"`
	UpdatedAt                  time.Time `json:"updated_at"`
}

// PartnerListFilter for filtering partner list
type PartnerListFilter struct {
	Search string
	Limit  int
	Offset int
}
