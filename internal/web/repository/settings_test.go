package repository

import (
	"testing"
	"time"

	"github.com/foxzi/contracte/internal/web/models"
)

func TestSettingsRepository_Settings(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSettingsRepository(db)

	if err := repo.SetSetting("test_key", "test_value"); err != nil {
		t.Fatalf("SetSetting() error = %v", err)
	}

	got, err := repo.GetSetting("test_key")
	if err != nil {
		t.Fatalf("GetSetting() error = %v", err)
	}
	if got != "test_value" {
		t.Errorf("GetSetting() = %v, want %v", got, "test_value")
	}

	if err := repo.SetSetting("test_key", "updated_value"); err != nil {
		t.Fatalf("SetSetting() update error = %v", err)
	}
	got, _ = repo.GetSetting("test_key")
	if got != "updated_value" {
		t.Errorf("GetSetting() after update = %v, want %v", got, "updated_value")
	}

	got, err = repo.GetSetting("non_existent")
	if err != nil {
		t.Fatalf("GetSetting() error = %v", err)
	}
	if got != "" {
		t.Errorf("GetSetting() for non-existent = %v, want empty string", got)
	}
}

func TestSettingsRepository_Company(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSettingsRepository(db)

	got, err := repo.GetCompany()
	if err != nil {
		t.Fatalf("GetCompany() error = %v", err)
	}
	if got != nil {
		t.Errorf("GetCompany() on empty db = %+v, want nil", got)
	}

	company := &models.CompanySettings{
		Name:                "Furnizor SA",
		Address:             "Str. Mare 2, București",
		CUI:                 "RO999",
		RegistrationNumber:  "J12/3/2001",
		LegalRepresentative: "Andrei Stan",
	}
	if err := repo.SetCompany(company); err != nil {
		t.Fatalf("SetCompany() error = %v", err)
	}

	got, err = repo.GetCompany()
	if err != nil {
		t.Fatalf("GetCompany() error = %v", err)
	}
	if got == nil || *got != *company {
		t.Errorf("GetCompany() = %+v, want %+v", got, company)
	}

	// unrelated settings do not leak in
	repo.SetSetting("other", "x")
	got, _ = repo.GetCompany()
	if *got != *company {
		t.Errorf("GetCompany() = %+v", got)
	}
}

func TestSettingsRepository_AuditLog(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSettingsRepository(db)

	entries := []*models.AuditLogEntry{
		{Action: "send", EntityType: "contract", EntityID: "c-1", IPAddress: "127.0.0.1"},
		{Action: "sign", EntityType: "contract", EntityID: "c-1", Details: `{"token":"abc"}`},
		{Action: "send", EntityType: "contract", EntityID: "c-2"},
	}
	for _, e := range entries {
		if err := repo.AddAuditLog(e); err != nil {
			t.Fatalf("AddAuditLog() error = %v", err)
		}
		if e.ID == 0 {
			t.Error("AddAuditLog() did not set ID")
		}
	}

	got, err := repo.ListAuditLog("contract", "c-1")
	if err != nil {
		t.Fatalf("ListAuditLog() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListAuditLog() returned %d entries, want 2", len(got))
	}
	if got[0].Action != "send" || got[1].Action != "sign" {
		t.Errorf("ListAuditLog() order = %s, %s", got[0].Action, got[1].Action)
	}
	if got[1].Details != `{"token":"abc"}` {
		t.Errorf("Details = %q", got[1].Details)
	}
}

func TestSettingsRepository_PruneAuditLog(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSettingsRepository(db)

	old := time.Now().AddDate(0, 0, -200)
	for _, action := range []string{"send", "sign"} {
		if _, err := db.Exec("INSERT INTO audit_log (action, entity_type, entity_id, created_at) VALUES (?, 'contract', 'c-1', ?)", action, old); err != nil {
			t.Fatal(err)
		}
	}
	if err := repo.AddAuditLog(&models.AuditLogEntry{Action: "archive", EntityType: "contract", EntityID: "c-1"}); err != nil {
		t.Fatal(err)
	}

	cutoff := time.Now().AddDate(0, 0, -180)
	n, err := repo.PruneAuditLog(cutoff, true)
	if err != nil || n != 2 {
		t.Fatalf("PruneAuditLog(dry run) = %d, %v; want 2, nil", n, err)
	}
	if got, _ := repo.ListAuditLog("contract", "c-1"); len(got) != 3 {
		t.Fatalf("dry run deleted entries, %d left", len(got))
	}

	n, err = repo.PruneAuditLog(cutoff, false)
	if err != nil || n != 2 {
		t.Fatalf("PruneAuditLog() = %d, %v; want 2, nil", n, err)
	}
	got, _ := repo.ListAuditLog("contract", "c-1")
	if len(got) != 1 || got[0].Action != "archive" {
		t.Errorf("remaining entries = %+v", got)
	}
}
