package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/foxzi/contracte/internal/web/models"
)

var (
	// ErrTemplateInUse is returned when changing or deleting a template that a non-reserved contract references
	ErrTemplateInUse = errors.New("template is used by contracts")
	// ErrDuplicateName is returned when another template already has the name
	ErrDuplicateName = errors.New("template name already exists")
)

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

type TemplateRepository struct {
	db *sql.DB
}

func NewTemplateRepository(db *sql.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Create creates a new template and its first version
func (r *TemplateRepository) Create(t *models.Template) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	t.ID = uuid.New().String()
	t.CurrentVersion = 1
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt

	_, err = tx.Exec(`
		INSERT INTO templates (id, name, description, content, fields, current_version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Description, t.Content, t.Fields, t.CurrentVersion, t.CreatedAt, t.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateName
	}
	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO template_versions (template_id, version, content, fields, change_note, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, 1, t.Content, t.Fields, "Initial version", t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create template version: %w", err)
	}

	return tx.Commit()
}

// GetByID returns a template by ID
func (r *TemplateRepository) GetByID(id string) (*models.Template, error) {
	t := &models.Template{}
	err := r.db.QueryRow(`
		SELECT id, name, COALESCE(description, ''), content, COALESCE(fields, ''), current_version, created_at, updated_at
		FROM templates WHERE id = ?`, id,
	).Scan(&t.ID, &t.Name, &t.Description, &t.Content, &t.Fields, &t.CurrentVersion, &t.CreatedAt, &t.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// List returns templates with optional filtering
func (r *TemplateRepository) List(filter models.TemplateListFilter) ([]models.TemplateWithUsage, int, error) {
	countQuery := "SELECT COUNT(*) FROM templates WHERE 1=1"
	args := []any{}

	if filter.Search != "" {
		countQuery += " AND (name LIKE ? OR description LIKE ?)"
		args = append(args, "%"+filter.Search+"%", "%"+filter.Search+"%")
	}

	var total int
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT t.id, t.name, COALESCE(t.description, ''), t.content, COALESCE(t.fields, ''), t.current_version, t.created_at, t.updated_at,
			COALESCE(c.contract_count, 0) as contract_count
		FROM templates t
		LEFT JOIN (
			SELECT template_id, COUNT(*) as contract_count
			FROM contracts
			GROUP BY template_id
		) c ON t.id = c.template_id
		WHERE 1=1`

	args = []any{}
	if filter.Search != "" {
		query += " AND (t.name LIKE ? OR t.description LIKE ?)"
		args = append(args, "%"+filter.Search+"%", "%"+filter.Search+"%")
	}

	query += " ORDER BY t.updated_at DESC"

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

	templates := []models.TemplateWithUsage{}
	for rows.Next() {
		var t models.TemplateWithUsage
		err := rows.Scan(
			&t.ID, &t.Name, &t.Description, &t.Content, &t.Fields,
			&t.CurrentVersion, &t.CreatedAt, &t.UpdatedAt, &t.ContractCount,
		)
		if err != nil {
			return nil, 0, err
		}
		templates = append(templates, t)
	}

	return templates, total, rows.Err()
}

// Update updates a template and creates a new version. A template referenced
// by a contract past reservation is frozen.
func (r *TemplateRepository) Update(t *models.Template, changeNote string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var currentVersion int
	err = tx.QueryRow("SELECT current_version FROM templates WHERE id = ?", t.ID).Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("template not found: %w", err)
	}
	if err := checkInUse(tx, t.ID); err != nil {
		return err
	}

	newVersion := currentVersion + 1
	t.CurrentVersion = newVersion
	t.UpdatedAt = time.Now()

	_, err = tx.Exec(`
		UPDATE templates SET name = ?, description = ?, content = ?, fields = ?, current_version = ?, updated_at = ?
		WHERE id = ?`,
		t.Name, t.Description, t.Content, t.Fields, t.CurrentVersion, t.UpdatedAt, t.ID,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateName
	}
	if err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO template_versions (template_id, version, content, fields, change_note, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, newVersion, t.Content, t.Fields, changeNote, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create template version: %w", err)
	}

	return tx.Commit()
}

// Delete deletes a template. Contracts that only reserved an order number
// are detached from it; any other referencing contract blocks the delete.
func (r *TemplateRepository) Delete(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := checkInUse(tx, id); err != nil {
		return err
	}

	if _, err := tx.Exec("UPDATE contracts SET template_id = NULL WHERE template_id = ?", id); err != nil {
		return fmt.Errorf("failed to detach reserved contracts: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM templates WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}

	return tx.Commit()
}

func checkInUse(tx *sql.Tx, id string) error {
	var inUse int
	err := tx.QueryRow(
		"SELECT COUNT(*) FROM contracts WHERE template_id = ? AND status != ?",
		id, models.ContractReserved,
	).Scan(&inUse)
	if err != nil {
		return err
	}
	if inUse > 0 {
		return ErrTemplateInUse
	}
	return nil
}

// GetVersions returns all versions of a template
func (r *TemplateRepository) GetVersions(templateID string) ([]models.TemplateVersion, error) {
	rows, err := r.db.Query(`
		SELECT id, template_id, version, content, COALESCE(fields, ''), COALESCE(change_note, ''), created_at
		FROM template_versions WHERE template_id = ? ORDER BY version DESC`, templateID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	versions := []models.TemplateVersion{}
	for rows.Next() {
		var v models.TemplateVersion
		err := rows.Scan(&v.ID, &v.TemplateID, &v.Version, &v.Content, &v.Fields, &v.ChangeNote, &v.CreatedAt)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// GetVersion returns a specific version
func (r *TemplateRepository) GetVersion(templateID string, version int) (*models.TemplateVersion, error) {
	v := &models.TemplateVersion{}
	err := r.db.QueryRow(`
		SELECT id, template_id, version, content, COALESCE(fields, ''), COALESCE(change_note, ''), created_at
		FROM template_versions WHERE template_id = ? AND version = ?`, templateID, version,
	).Scan(&v.ID, &v.TemplateID, &v.Version, &v.Content, &v.Fields, &v.ChangeNote, &v.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// PruneVersions keeps the newest keep versions of every template and
// deletes the rest. With dryRun it only counts them.
func (r *TemplateRepository) PruneVersions(keep int, dryRun bool) (int64, error) {
	if keep < 1 {
		return 0, fmt.Errorf("keep must be at least 1, got %d", keep)
	}

	const stale = `
		FROM template_versions
		WHERE version <= (
			SELECT MAX(v.version) FROM template_versions v
			WHERE v.template_id = template_versions.template_id
		) - ?`

	if dryRun {
		var count int64
		err := r.db.QueryRow("SELECT COUNT(*)"+stale, keep).Scan(&count)
		return count, err
	}

	res, err := r.db.Exec("DELETE"+stale, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune template versions: %w", err)
	}
	return res.RowsAffected()
}
