package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/foxzi/contracte/internal/web/models"
	"github.com/google/uuid"
)

type PartnerRepository struct {
	db *sql.DB
}

func NewPartnerRepository(db *sql.DB) *PartnerRepository {
	return &PartnerRepository{db: db}
}

const partnerColumns = `id, name, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(address, ''), COALESCE(cnp, ''),
	COALESCE(company_name, ''), COALESCE(company_address, ''), COALESCE(company_cui, ''),
	COALESCE(company_registration_number, ''), COALESCE(company_legal_representative, ''),
	is_company, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanPartner(s scanner) (*models.Partner, error) {
	p := &models.Partner{}
	err := s.Scan(
		&p.ID, &p.Name, &p.Email, &p.Phone, &p.Address, &p.CNP,
		&p.CompanyName, &p.CompanyAddress, &p.CompanyCUI,
		&p.CompanyRegistrationNumber, &p.CompanyLegalRepresentative,
		&p.IsCompany, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create creates a new partner
func (r *PartnerRepository) Create(p *models.Partner) error {
	p.ID = uuid.New().String()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt

	_, err := r.db.Exec(`
		INSERT INTO partners (id, name, email, phone, address, cnp, company_name, company_address, company_cui,
			company_registration_number, company_legal_representative, is_company, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Email, p.Phone, p.Address, p.CNP, p.CompanyName, p.CompanyAddress, p.CompanyCUI,
		p.CompanyRegistrationNumber, p.CompanyLegalRepresentative, p.IsCompany, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create partner: %w", err)
	}
	return nil
}

// GetByID returns a partner by ID
func (r *PartnerRepository) GetByID(id string) (*models.Partner, error) {
	p, err := scanPartner(r.db.QueryRow("SELECT "+partnerColumns+" FROM partners WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// List returns partners with optional filtering
func (r *PartnerRepository) List(filter models.PartnerListFilter) ([]models.Partner, int, error) {
	where := " WHERE 1=1"
	args := []any{}

	if filter.Search != "" {
		where += " AND (name LIKE ? OR company_name LIKE ? OR email LIKE ?)"
		s := "%" + filter.Search + "%"
		args = append(args, s, s, s)
	}

	var total int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM partners"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + partnerColumns + " FROM partners" + where + " ORDER BY name"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	partners := []models.Partner{}
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, 0, err
		}
		partners = append(partners, *p)
	}
	return partners, total, rows.Err()
}

// Update updates a partner
func (r *PartnerRepository) Update(p *models.Partner) error {
	p.UpdatedAt = time.Now()

	res, err := r.db.Exec(`
		UPDATE partners SET name = ?, email = ?, phone = ?, address = ?, cnp = ?, company_name = ?, company_address = ?,
			company_cui = ?, company_registration_number = ?, company_legal_representative = ?, is_company = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.Email, p.Phone, p.Address, p.CNP, p.CompanyName, p.CompanyAddress,
		p.CompanyCUI, p.CompanyRegistrationNumber, p.CompanyLegalRepresentative, p.IsCompany, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update partner: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("partner not found: %w", sql.ErrNoRows)
	}
	return nil
}
