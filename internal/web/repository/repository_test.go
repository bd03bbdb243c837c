package repository

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/foxzi/contracte/internal/web/db"
	"github.com/foxzi/contracte/internal/web/models"
)

// setupTestDB creates an in-memory SQLite database with all migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	// every connection to :memory: is a separate database
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return conn
}

func createTestTemplate(t *testing.T, conn *sql.DB, name string) *models.Template {
	t.Helper()
	tmpl := &models.Template{Name: name, Content: "<p>Nr. {{orderNumber}}</p>"}
	if err := NewTemplateRepository(conn).Create(tmpl); err != nil {
		t.Fatalf("failed to create template: %v", err)
	}
	return tmpl
}

func createTestPartner(t *testing.T, conn *sql.DB, name string, isCompany bool) *models.Partner {
	t.Helper()
	p := &models.Partner{Name: name, Email: "partner@example.ro", IsCompany: isCompany}
	if isCompany {
		p.CompanyName = name + " SRL"
		p.CompanyCUI = "RO123"
	}
	if err := NewPartnerRepository(conn).Create(p); err != nil {
		t.Fatalf("failed to create partner: %v", err)
	}
	return p
}
