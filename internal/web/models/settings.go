package models

import "time"

// CompanySettings is the contract-issuing organization
type CompanySettings struct {
	Name                string `json:"name"`
	Address             string `json:"address"`
	Phone               string `json:"phone"`
	Email               string `json:"email"`
	CUI                 string `json:"cui"`
	RegistrationNumber  string `json:"registration_number"`
	LegalRepresentative string `json:"legal_representative"`
}

// IsEmpty reports whether no company field has been configured
func (c *CompanySettings) IsEmpty() bool {
	return *c == CompanySettings{}
}

// AuditLogEntry represents an audit log entry
type AuditLogEntry struct {
	ID         int64     `json:"id"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Details    string    `json:"details"` // JSON
	IPAddress  string    `json:"ip_address"`
	CreatedAt  time.Time `json:"created_at"`
}
