package models

import "time"

// Contract statuses
const (
	ContractReserved = "reserved"
	ContractDraft    = "draft"
	ContractSent     = "sent"
	ContractSigned   = "signed"
	ContractArchived = "archived"
)

type Contract struct {
	ID          string     `json:"id"`
	OrderNumber int        `json:"order_number"`
	TemplateID  string     `json:"template_id,omitempty"`
	PartnerID   string     `json:"partner_id,omitempty"`
	Status      string     `json:"status"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Value       float64    `json:"value"`
	Currency    string     `json:"currency"`
	Notes       string     `json:"notes"`
	SignedToken string     `json:"signed_token,omitempty"`
	SignedAt    *time.Time `json:"signed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ContractWithRelations is a contract joined with the records needed to render it.
// Template and Partner are nil when the contract does not reference them or
// they no longer exist.
type ContractWithRelations struct {
	Contract
	Template *Template `json:"template,omitempty"`
	Partner  *Partner  `json:"partner,omitempty"`
}

// ContractListFilter for filtering contract list
type ContractListFilter struct {
	Status    string
	PartnerID string
	Limit     int
	Offset    int
}
