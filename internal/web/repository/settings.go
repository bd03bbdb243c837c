package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/foxzi/contracte/internal/web/models"
)

type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetSetting returns a setting value, empty if unset
func (r *SettingsRepository) GetSetting(key string) (string, error) {
	var value string
	err := r.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetSetting sets a setting value
func (r *SettingsRepository) SetSetting(key, value string) error {
	_, err := r.db.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now(),
	)
	return err
}

// company settings are stored one row per field
func companyFields(c *models.CompanySettings) map[string]*string {
	return map[string]*string{
		"company.name":                 &c.Name,
		"company.address":              &c.Address,
		"company.phone":                &c.Phone,
		"company.email":                &c.Email,
		"company.cui":                  &c.CUI,
		"company.registration_number":  &c.RegistrationNumber,
		"company.legal_representative": &c.LegalRepresentative,
	}
}

// GetCompany returns the provider settings. It returns nil when none of the
// fields has been saved yet.
func (r *SettingsRepository) GetCompany() (*models.CompanySettings, error) {
	rows, err := r.db.Query("SELECT key, value FROM settings WHERE key LIKE 'company.%'")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	c := &models.CompanySettings{}
	fields := companyFields(c)
	found := false
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		if dst, ok := fields[key]; ok {
			*dst = value
			found = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !found {
		return nil, nil
	}
	return c, nil
}

// SetCompany stores all provider settings in one transaction
func (r *SettingsRepository) SetCompany(c *models.CompanySettings) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	for key, value := range companyFields(c) {
		_, err := tx.Exec(`
			INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			key, *value, now,
		)
		if err != nil {
			return fmt.Errorf("failed to save %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// AddAuditLog adds an audit log entry
func (r *SettingsRepository) AddAuditLog(entry *models.AuditLogEntry) error {
	entry.CreatedAt = time.Now()
	res, err := r.db.Exec(`
		INSERT INTO audit_log (action, entity_type, entity_id, details, ip_address, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.Action, entry.EntityType, entry.EntityID, nullString(entry.Details), entry.IPAddress, entry.CreatedAt,
	)
	if err != nil {
		return err
	}
	entry.ID, _ = res.LastInsertId()
	return nil
}

// ListAuditLog returns entries for one entity, oldest first
func (r *SettingsRepository) ListAuditLog(entityType, entityID string) ([]models.AuditLogEntry, error) {
	rows, err := r.db.Query(`
		SELECT id, action, COALESCE(entity_type, ''), COALESCE(entity_id, ''),
			COALESCE(details, ''), COALESCE(ip_address, ''), created_at
		FROM audit_log WHERE entity_type = ? AND entity_id = ? ORDER BY id`,
		entityType, entityID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.AuditLogEntry{}
	for rows.Next() {
		var e models.AuditLogEntry
		if err := rows.Scan(&e.ID, &e.Action, &e.EntityType, &e.EntityID, &e.Details, &e.IPAddress, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// PruneAuditLog deletes entries created before cutoff. With dryRun it only counts them.
func (r *SettingsRepository) PruneAuditLog(cutoff time.Time, dryRun bool) (int64, error) {
	if dryRun {
		var count int64
		err := r.db.QueryRow("SELECT COUNT(*) FROM audit_log WHERE created_at < ?", cutoff).Scan(&count)
		return count, err
	}

	res, err := r.db.Exec("DELETE FROM audit_log WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune audit log: %w", err)
	}
	return res.RowsAffected()
}
