package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/foxzi/contracte/internal/web/models"
)

func TestContractRepository_OrderNumbers(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContractRepository(db)

	first, err := repo.Reserve()
	if err != nil {
		t.Fatalf("Reserve() error = %v", err)
	}
	if first.OrderNumber != 1 || first.Status != models.ContractReserved {
		t.Errorf("Reserve() = %+v, want order 1 reserved", first)
	}

	second := &models.Contract{}
	if err := repo.Create(second); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if second.OrderNumber != 2 {
		t.Errorf("Create() OrderNumber = %d, want 2", second.OrderNumber)
	}
	if second.Status != models.ContractDraft || second.Currency != "RON" {
		t.Errorf("Create() defaults = %s/%s", second.Status, second.Currency)
	}

	dup := &models.Contract{OrderNumber: 2}
	if err := repo.Create(dup); err == nil {
		t.Error("Create() with a taken order number should fail")
	}
}

func TestContractRepository_GetWithRelations(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContractRepository(db)

	tmpl := createTestTemplate(t, db, "Standard")
	partner := createTestPartner(t, db, "Acme", true)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	c := &models.Contract{
		TemplateID: tmpl.ID,
		PartnerID:  partner.ID,
		StartDate:  &start,
		Value:      1500.5,
		Currency:   "EUR",
		Notes:      "plată lunară",
	}
	if err := repo.Create(c); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetWithRelations(c.ID)
	if err != nil {
		t.Fatalf("GetWithRelations() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetWithRelations() returned nil")
	}
	if got.Template == nil || got.Template.ID != tmpl.ID {
		t.Errorf("Template = %+v", got.Template)
	}
	if got.Partner == nil || got.Partner.ID != partner.ID {
		t.Errorf("Partner = %+v", got.Partner)
	}
	if got.StartDate == nil || !got.StartDate.Equal(start) {
		t.Errorf("StartDate = %v, want %v", got.StartDate, start)
	}
	if got.EndDate != nil {
		t.Errorf("EndDate = %v, want nil", got.EndDate)
	}
	if got.Value != 1500.5 || got.Notes != "plată lunară" {
		t.Errorf("contract = %+v", got.Contract)
	}

	// a contract without relations
	bare, _ := repo.Reserve()
	rel, err := repo.GetWithRelations(bare.ID)
	if err != nil {
		t.Fatalf("GetWithRelations() error = %v", err)
	}
	if rel.Template != nil || rel.Partner != nil {
		t.Errorf("expected no relations, got %+v", rel)
	}

	missing, err := repo.GetWithRelations("missing")
	if err != nil || missing != nil {
		t.Errorf("GetWithRelations(missing) = %v, %v", missing, err)
	}
}

func TestContractRepository_Transitions(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContractRepository(db)

	c := &models.Contract{}
	if err := repo.Create(c); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.TransitionStatus(c.ID, models.ContractDraft, models.ContractSent); err != nil {
		t.Fatalf("TransitionStatus() error = %v", err)
	}
	if err := repo.TransitionStatus(c.ID, models.ContractDraft, models.ContractSent); !errors.Is(err, ErrStatusConflict) {
		t.Errorf("TransitionStatus() from stale status error = %v, want ErrStatusConflict", err)
	}

	at := time.Now().UTC().Truncate(time.Second)
	if err := repo.MarkSigned(c.ID, "tok123", at); err != nil {
		t.Fatalf("MarkSigned() error = %v", err)
	}
	if err := repo.MarkSigned(c.ID, "tok456", at); !errors.Is(err, ErrStatusConflict) {
		t.Errorf("MarkSigned() twice error = %v, want ErrStatusConflict", err)
	}

	got, _ := repo.GetByID(c.ID)
	if got.Status != models.ContractSigned || got.SignedToken != "tok123" {
		t.Errorf("contract = %+v", got)
	}
	if got.SignedAt == nil || !got.SignedAt.Equal(at) {
		t.Errorf("SignedAt = %v, want %v", got.SignedAt, at)
	}
}

func TestContractRepository_ListUpdate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContractRepository(db)
	partner := createTestPartner(t, db, "Ion", false)

	for i := 0; i < 3; i++ {
		if err := repo.Create(&models.Contract{PartnerID: partner.ID}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	reserved, _ := repo.Reserve()

	drafts, total, err := repo.List(models.ContractListFilter{Status: models.ContractDraft})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 3 || len(drafts) != 3 {
		t.Errorf("List(draft) = %d, total %d", len(drafts), total)
	}
	if drafts[0].OrderNumber < drafts[1].OrderNumber {
		t.Error("List() should order by order number descending")
	}

	byPartner, _, _ := repo.List(models.ContractListFilter{PartnerID: partner.ID, Limit: 2})
	if len(byPartner) != 2 {
		t.Errorf("List(partner, limit 2) = %d", len(byPartner))
	}

	reserved.Status = models.ContractDraft
	reserved.PartnerID = partner.ID
	reserved.Value = 99
	if err := repo.Update(reserved); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	got, _ := repo.GetByID(reserved.ID)
	if got.Status != models.ContractDraft || got.Value != 99 || got.PartnerID != partner.ID {
		t.Errorf("after Update() = %+v", got)
	}

	if err := repo.Update(&models.Contract{ID: "missing"}); err == nil {
		t.Error("Update() of missing contract should fail")
	}
}
