package archive

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	bolt "go.etcd.io/bbolt"
)

func setupTestStorage(t *testing.T) *Storage {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStorage_PutGet(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	pdf := []byte("%PDF-1.3 test")
	doc := &Document{
		ContractID:  "c-1",
		OrderNumber: 42,
		Filename:    "CTR_42_abc.pdf",
		SignedToken: "abc",
		Pages:       2,
	}

	if err := s.Put(ctx, doc, pdf); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if doc.ID == "" || doc.Checksum == "" || doc.ArchivedAt.IsZero() {
		t.Errorf("Put() did not fill generated fields: %+v", doc)
	}
	if doc.Size != len(pdf) {
		t.Errorf("Size = %d, want %d", doc.Size, len(pdf))
	}

	got, data, err := s.Get(ctx, "c-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(data) != string(pdf) {
		t.Errorf("Get() data = %q, want %q", data, pdf)
	}
	if got.Filename != doc.Filename || got.OrderNumber != 42 || got.Pages != 2 {
		t.Errorf("Get() doc = %+v", got)
	}

	byOrder, _, err := s.GetByOrderNumber(ctx, 42)
	if err != nil {
		t.Fatalf("GetByOrderNumber() error = %v", err)
	}
	if byOrder.ContractID != "c-1" {
		t.Errorf("GetByOrderNumber() ContractID = %s", byOrder.ContractID)
	}
}

func TestStorage_PutTwice(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	if err := s.Put(ctx, &Document{ContractID: "c-1", OrderNumber: 1}, []byte("a")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	err := s.Put(ctx, &Document{ContractID: "c-1", OrderNumber: 1}, []byte("b"))
	if !errors.Is(err, ErrExists) {
		t.Errorf("second Put() error = %v, want ErrExists", err)
	}

	_, data, _ := s.Get(ctx, "c-1")
	if string(data) != "a" {
		t.Errorf("archived bytes changed to %q", data)
	}
}

func TestStorage_Validation(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	if err := s.Put(ctx, &Document{}, []byte("x")); err == nil {
		t.Error("Put() without contract id should fail")
	}
	if err := s.Put(ctx, &Document{ContractID: "c"}, nil); err == nil {
		t.Error("Put() with empty pdf should fail")
	}
}

func TestStorage_NotFound(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	if _, _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	if _, _, err := s.GetByOrderNumber(ctx, 7); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByOrderNumber() error = %v, want ErrNotFound", err)
	}
}

func TestStorage_Checksum(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	if err := s.Put(ctx, &Document{ContractID: "c-1", OrderNumber: 1}, []byte("original")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPDFs).Put([]byte("c-1"), []byte("tampered"))
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, _, err := s.Get(ctx, "c-1"); !errors.Is(err, ErrChecksum) {
		t.Errorf("Get() error = %v, want ErrChecksum", err)
	}
}

func TestStorage_ListStats(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	for _, n := range []int{3, 1, 2} {
		doc := &Document{ContractID: "c-" + string(rune('0'+n)), OrderNumber: n}
		if err := s.Put(ctx, doc, []byte("pdf")); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}

	docs, err := s.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("List() returned %d documents, want 3", len(docs))
	}
	for i, doc := range docs {
		if doc.OrderNumber != i+1 {
			t.Errorf("List()[%d].OrderNumber = %d, want %d", i, doc.OrderNumber, i+1)
		}
	}

	page, _ := s.List(ctx, ListFilter{Offset: 1, Limit: 1})
	if len(page) != 1 || page[0].OrderNumber != 2 {
		t.Errorf("List(offset 1, limit 1) = %+v", page)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Documents != 3 || stats.Bytes != 9 {
		t.Errorf("Stats() = %+v, want 3 documents, 9 bytes", stats)
	}
}

func TestStorage_Delete(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	if err := s.Put(ctx, &Document{ContractID: "c-1", OrderNumber: 5}, []byte("pdf")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Delete(ctx, "c-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, _, err := s.GetByOrderNumber(ctx, 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByOrderNumber() after delete error = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "c-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}

	// the contract can be archived again once the failed attempt is undone
	if err := s.Put(ctx, &Document{ContractID: "c-1", OrderNumber: 5}, []byte("pdf")); err != nil {
		t.Errorf("Put() after delete error = %v", err)
	}
}
