package engine

import (
	"fmt"
	"sync"

	"github.com/duelhall/duelhall-server/internal/game"
)

// Registry indexes live executions by id and by room. A room has at most one.
type Registry struct {
	mu     sync.RWMutex
	byID   map[string]*Execution
	byRoom map[string]string
}

// NewRegistry creates an empty execution registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[string]*Execution),
		byRoom: make(map[string]string),
	}
}

// Add registers an execution, refusing a second one for the same room.
func (r *Registry) Add(x *Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byRoom[x.RoomID]; ok {
		return fmt.Errorf("room %s already has execution %s: %w", x.RoomID, existing, game.ErrExecutionEngine)
	}
	if _, ok := r.byID[x.ID]; ok {
		return fmt.Errorf("duplicate execution id %s: %w", x.ID, game.ErrExecutionEngine)
	}
	r.byID[x.ID] = x
	r.byRoom[x.RoomID] = x.ID
	return nil
}

// Get looks an execution up by id.
func (r *Registry) Get(executionID string) (*Execution, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	x, ok := r.byID[executionID]
	return x, ok
}

// ForRoom returns the room's active execution.
func (r *Registry) ForRoom(roomID string) (*Execution, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byRoom[roomID]
	if !ok {
		return nil, false
	}
	x, ok := r.byID[id]
	return x, ok
}

// Remove drops an execution. It reports whether anything was removed.
func (r *Registry) Remove(executionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	x, ok := r.byID[executionID]
	if !ok {
		return false
	}
	delete(r.byID, executionID)
	if r.byRoom[x.RoomID] == executionID {
		delete(r.byRoom, x.RoomID)
	}
	return true
}

// Len returns the number of live executions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
