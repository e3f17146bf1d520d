package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/dhc-order-crawler/internal/crawler"
)

// CaseStore is an append-only in-memory crawler.CaseStore.
type CaseStore struct {
	mu      sync.RWMutex
	records []crawler.CaseRecord
	err     error
}

// NewCaseStore constructs an empty CaseStore.
func NewCaseStore() *CaseStore {
	return &CaseStore{}
}

// FailWith makes subsequent inserts return err. Pass nil to clear it.
func (s *CaseStore) FailWith(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Insert appends record.
func (s *CaseStore) Insert(_ context.Context, record crawler.CaseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	record.Orders = append([]crawler.OrderRecord(nil), record.Orders...)
	s.records = append(s.records, record)
	return nil
}

// Records returns a copy of everything inserted, in insertion order.
func (s *CaseStore) Records() []crawler.CaseRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]crawler.CaseRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Close is a no-op.
func (s *CaseStore) Close() error {
	return nil
}
