package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/foxzi/contracte/internal/web/models"
	"github.com/google/uuid"
)

// ErrStatusConflict is returned when a contract is not in the expected status
var ErrStatusConflict = errors.New("contract status changed concurrently")

type ContractRepository struct {
	db *sql.DB
}

func NewContractRepository(db *sql.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

const contractColumns = `id, order_number, COALESCE(template_id, ''), COALESCE(partner_id, ''), status,
	start_date, end_date, value, currency, COALESCE(notes, ''), COALESCE(signed_token, ''), signed_at,
	created_at, updated_at`

func scanContract(s scanner) (*models.Contract, error) {
	c := &models.Contract{}
	var start, end, signed sql.NullTime
	err := s.Scan(
		&c.ID, &c.OrderNumber, &c.TemplateID, &c.PartnerID, &c.Status,
		&start, &end, &c.Value, &c.Currency, &c.Notes, &c.SignedToken, &signed,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.StartDate = timePtr(start)
	c.EndDate = timePtr(end)
	c.SignedAt = timePtr(signed)
	return c, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Create inserts a contract. A zero OrderNumber takes the next free number,
// an empty Status becomes draft.
func (r *ContractRepository) Create(c *models.Contract) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	c.ID = uuid.New().String()
	if c.Status == "" {
		c.Status = models.ContractDraft
	}
	if c.Currency == "" {
		c.Currency = "RON"
	}
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt

	if c.OrderNumber == 0 {
		if err := tx.QueryRow("SELECT COALESCE(MAX(order_number), 0) + 1 FROM contracts").Scan(&c.OrderNumber); err != nil {
			return fmt.Errorf("failed to allocate order number: %w", err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO contracts (id, order_number, template_id, partner_id, status, start_date, end_date, value, currency,
			notes, signed_token, signed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.OrderNumber, nullString(c.TemplateID), nullString(c.PartnerID), c.Status,
		nullTime(c.StartDate), nullTime(c.EndDate), c.Value, c.Currency,
		c.Notes, nullString(c.SignedToken), nullTime(c.SignedAt), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create contract: %w", err)
	}

	return tx.Commit()
}

// Reserve allocates the next order number without any contract data
func (r *ContractRepository) Reserve() (*models.Contract, error) {
	c := &models.Contract{Status: models.ContractReserved}
	if err := r.Create(c); err != nil {
		return nil, err
	}
	return c, nil
}

// GetByID returns a contract by ID
func (r *ContractRepository) GetByID(id string) (*models.Contract, error) {
	c, err := scanContract(r.db.QueryRow("SELECT "+contractColumns+" FROM contracts WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetWithRelations returns a contract with its template and partner
func (r *ContractRepository) GetWithRelations(id string) (*models.ContractWithRelations, error) {
	c, err := r.GetByID(id)
	if err != nil || c == nil {
		return nil, err
	}

	out := &models.ContractWithRelations{Contract: *c}
	if c.TemplateID != "" {
		out.Template, err = NewTemplateRepository(r.db).GetByID(c.TemplateID)
		if err != nil {
			return nil, fmt.Errorf("failed to load template: %w", err)
		}
	}
	if c.PartnerID != "" {
		out.Partner, err = NewPartnerRepository(r.db).GetByID(c.PartnerID)
		if err != nil {
			return nil, fmt.Errorf("failed to load partner: %w", err)
		}
	}
	return out, nil
}

// List returns contracts with optional filtering, newest order number first
func (r *ContractRepository) List(filter models.ContractListFilter) ([]models.Contract, int, error) {
	where := " WHERE 1=1"
	args := []any{}

	if filter.Status != "" {
		where += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.PartnerID != "" {
		where += " AND partner_id = ?"
		args = append(args, filter.PartnerID)
	}

	var total int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM contracts"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + contractColumns + " FROM contracts" + where + " ORDER BY order_number DESC"
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

	contracts := []models.Contract{}
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, 0, err
		}
		contracts = append(contracts, *c)
	}
	return contracts, total, rows.Err()
}

// Update stores the editable contract fields and status
func (r *ContractRepository) Update(c *models.Contract) error {
	c.UpdatedAt = time.Now()

	res, err := r.db.Exec(`
		UPDATE contracts SET template_id = ?, partner_id = ?, status = ?, start_date = ?, end_date = ?,
			value = ?, currency = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		nullString(c.TemplateID), nullString(c.PartnerID), c.Status, nullTime(c.StartDate), nullTime(c.EndDate),
		c.Value, c.Currency, c.Notes, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update contract: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("contract not found: %w", sql.ErrNoRows)
	}
	return nil
}

// TransitionStatus moves a contract from one status to another. It returns
// ErrStatusConflict when the contract is no longer in status from.
func (r *ContractRepository) TransitionStatus(id, from, to string) error {
	res, err := r.db.Exec(
		"UPDATE contracts SET status = ?, updated_at = ? WHERE id = ? AND status = ?",
		to, time.Now(), id, from,
	)
	if err != nil {
		return fmt.Errorf("failed to update contract status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStatusConflict
	}
	return nil
}

// MarkSigned moves a sent contract to signed and stores its token
func (r *ContractRepository) MarkSigned(id, token string, at time.Time) error {
	res, err := r.db.Exec(`
		UPDATE contracts SET status = ?, signed_token = ?, signed_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		models.ContractSigned, token, at, time.Now(), id, models.ContractSent,
	)
	if err != nil {
		return fmt.Errorf("failed to mark contract signed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStatusConflict
	}
	return nil
}
