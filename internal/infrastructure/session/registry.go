package session

import (
	"sync"

	domain "github.com/pingtools/usersync/internal/domain/bulk"
)

// Registry is the process-wide session table. Entries are removed only by
// explicit Delete; a crashed run leaks its entry until process restart.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*domain.Session)}
}

func (r *Registry) Create(s *domain.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
}

func (r *Registry) Get(id string) (*domain.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Delete is idempotent; deleting an absent session is not an error.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
