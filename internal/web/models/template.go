package models

import "time"

type Template struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Content        string    `json:"content"`
	Fields         string    `json:"fields"` // JSON descriptor list
	CurrentVersion int       `json:"current_version"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type TemplateVersion struct {
	ID         int64     `json:"id"`
	TemplateID string    `json:"template_id"`
	Version    int       `json:"version"`
	Content    string    `json:"content"`
	Fields     string    `json:"fields"`
	ChangeNote string    `json:"change_note"`
	CreatedAt  time.Time `json:"created_at"`
}

// TemplateWithUsage includes how many contracts reference the template
type TemplateWithUsage struct {
	Template
	ContractCount int `json:"contract_count"`
}

// TemplateListFilter for filtering template list
type TemplateListFilter struct {
	Search string
	Limit  int
	Offset int
}
