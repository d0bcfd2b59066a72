package dispatch

import (
	"sync"

	"github.com/0xkanth/slot-monitor/pkg/models"
)

// StoredTransaction is one record appended to a Store collection.
type StoredTransaction struct {
	Transaction models.CanonicalTransaction
	FilterID    string
}

// Store holds matched transactions in memory, grouped by collection name,
// per spec.md Non-goal (b): no persistent transactional storage beyond the
// checkpoint, only in-process buffering forwarded to external sinks.
// Grounded on the teacher's syncer.go currentBlock/isHealthy pattern of a
// single RWMutex guarding small shared state — here a writer lock per the
// spec's "Storage collections: writer lock on the per-collection map;
// writes are appends" (spec.md §5).
type Store struct {
	mu          sync.Mutex
	collections map[string][]StoredTransaction
}

// NewStore builds an empty Store.
func NewStore() *Store {
	return &Store{collections: make(map[string][]StoredTransaction)}
}

// Append adds record to the named collection.
func (s *Store) Append(collection string, record StoredTransaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[collection] = append(s.collections[collection], record)
}

// Collection returns a copy of the named collection's current contents.
func (s *Store) Collection(collection string) []StoredTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.collections[collection]
	out := make([]StoredTransaction, len(src))
	copy(out, src)
	return out
}
