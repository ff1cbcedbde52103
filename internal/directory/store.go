package directory

import (
	"sync"

	"github.com/austrobank/interswitch/internal/domain"
)

// Store persists directory mutations so the registry survives restarts.
// The Directory keeps the authoritative in-memory copy; the store only
// replays it at boot.
type Store interface {
	Load() ([]domain.BankNode, error)
	Append(node domain.BankNode) error
	UpdateStatus(code, status string) error
}

// MemoryStore keeps nodes in process memory. Used by tests and the
// memory storage backend.
type MemoryStore struct {
	mu    sync.Mutex
	nodes []domain.BankNode
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load() ([]domain.BankNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.BankNode, len(s.nodes))
	copy(out, s.nodes)
	return out, nil
}

func (s *MemoryStore) Append(node domain.BankNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = append(s.nodes, node)
	return nil
}

func (s *MemoryStore) UpdateStatus(code, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.nodes {
		if s.nodes[i].Code == code {
			s.nodes[i].Status = status
			return nil
		}
	}
	return ErrNotFound
}
