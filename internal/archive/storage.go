// Package archive keeps signed contract PDFs in a bbolt file. Stored
// documents are immutable.
package archive

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
	"golang.org/x/crypto/blake2b"
)

var (
	bucketDocuments = []byte("documents")
	bucketPDFs      = []byte("pdfs")
	bucketOrders    = []byte("order_numbers")
)

var (
	// ErrNotFound is returned when no document is archived for a contract
	ErrNotFound = errors.New("archived document not found")
	// ErrExists is returned when a contract already has an archived document
	ErrExists = errors.New("contract already archived")
	// ErrChecksum is returned when stored bytes no longer match their checksum
	ErrChecksum = errors.New("archived document checksum mismatch")
)

// Document describes an archived PDF
type Document struct {
	ID          string    `json:"id"`
	ContractID  string    `json:"contract_id"`
	OrderNumber int       `json:"order_number"`
	Filename    string    `json:"filename"`
	SignedToken string    `json:"signed_token"`
	Pages       int       `json:"pages"`
	Size        int       `json:"size"`
	Checksum    string    `json:"checksum"`
	ArchivedAt  time.Time `json:"archived_at"`
}

// ListFilter limits List output
type ListFilter struct {
	Limit  int
	Offset int
}

// Stats contains archive statistics
type Stats struct {
	Documents int   `json:"documents"`
	Bytes     int64 `json:"bytes"`
}

// Storage provides archive operations
type Storage struct {
	db *bolt.DB
}

// Open opens or creates the archive file
func Open(path string) (*Storage, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	s, err := NewStorage(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStorage creates archive storage on an open bbolt database
func NewStorage(db *bolt.DB) (*Storage, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketDocuments, bucketPDFs, bucketOrders} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create archive buckets: %w", err)
	}
	return &Storage{db: db}, nil
}

// DB returns the underlying database for callers keeping their own buckets
// in the same file
func (s *Storage) DB() *bolt.DB {
	return s.db
}

// Close closes the underlying database
func (s *Storage) Close() error {
	return s.db.Close()
}

// Checksum returns the hex blake2b-256 digest of data
func Checksum(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func orderKey(n int) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(n))
	return key
}

// Put archives pdf for doc.ContractID and fills in the generated fields
func (s *Storage) Put(ctx context.Context, doc *Document, pdf []byte) error {
	if doc.ContractID == "" {
		return fmt.Errorf("contract id is required")
	}
	if len(pdf) == 0 {
		return fmt.Errorf("empty document")
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		docs := tx.Bucket(bucketDocuments)
		if docs.Get([]byte(doc.ContractID)) != nil {
			return ErrExists
		}

		doc.ID = uuid.New().String()
		doc.Size = len(pdf)
		doc.Checksum = Checksum(pdf)
		doc.ArchivedAt = time.Now()

		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to marshal document: %w", err)
		}

		if err := docs.Put([]byte(doc.ContractID), data); err != nil {
			return err
		}
		if err := tx.Bucket(bucketPDFs).Put([]byte(doc.ContractID), pdf); err != nil {
			return err
		}
		return tx.Bucket(bucketOrders).Put(orderKey(doc.OrderNumber), []byte(doc.ContractID))
	})
}

// Get returns the document and PDF bytes archived for a contract
func (s *Storage) Get(ctx context.Context, contractID string) (*Document, []byte, error) {
	var doc *Document
	var pdf []byte

	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketDocuments).Get([]byte(contractID))
		if data == nil {
			return ErrNotFound
		}

		doc = &Document{}
		if err := json.Unmarshal(data, doc); err != nil {
			return err
		}

		// bbolt memory is only valid inside the transaction
		pdf = append([]byte(nil), tx.Bucket(bucketPDFs).Get([]byte(contractID))...)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if Checksum(pdf) != doc.Checksum {
		return nil, nil, ErrChecksum
	}
	return doc, pdf, nil
}

// GetByOrderNumber returns the document archived for an order number
func (s *Storage) GetByOrderNumber(ctx context.Context, n int) (*Document, []byte, error) {
	var contractID string

	err := s.db.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(bucketOrders).Get(orderKey(n))
		if id == nil {
			return ErrNotFound
		}
		contractID = string(id)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return s.Get(ctx, contractID)
}

// List returns document metadata ordered by order number
func (s *Storage) List(ctx context.Context, filter ListFilter) ([]*Document, error) {
	var docs []*Document

	err := s.db.View(func(tx *bolt.Tx) error {
		documents := tx.Bucket(bucketDocuments)
		c := tx.Bucket(bucketOrders).Cursor()

		skipped := 0
		for k, id := c.First(); k != nil; k, id = c.Next() {
			if skipped < filter.Offset {
				skipped++
				continue
			}

			data := documents.Get(id)
			if data == nil {
				continue
			}
			var doc Document
			if err := json.Unmarshal(data, &doc); err != nil {
				return fmt.Errorf("failed to decode document %s: %w", id, err)
			}
			docs = append(docs, &doc)

			if filter.Limit > 0 && len(docs) >= filter.Limit {
				break
			}
		}
		return nil
	})

	return docs, err
}

// Delete removes the document archived for a contract. It is only used to
// undo a Put whose surrounding operation failed.
func (s *Storage) Delete(ctx context.Context, contractID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		docs := tx.Bucket(bucketDocuments)
		data := docs.Get([]byte(contractID))
		if data == nil {
			return ErrNotFound
		}

		var doc Document
		if err := json.Unmarshal(data, &doc); err != nil {
			return err
		}

		if err := docs.Delete([]byte(contractID)); err != nil {
			return err
		}
		if err := tx.Bucket(bucketPDFs).Delete([]byte(contractID)); err != nil {
			return err
		}
		return tx.Bucket(bucketOrders).Delete(orderKey(doc.OrderNumber))
	})
}

// Stats returns archive statistics
func (s *Storage) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPDFs).ForEach(func(k, v []byte) error {
			stats.Documents++
			stats.Bytes += int64(len(v))
			return nil
		})
	})

	return stats, err
}
