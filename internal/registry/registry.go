package registry

import (
	"fmt"
	"sync"

	"agentforge/internal/apperr"
)

// Registry holds the current set of agents behind a single RWMutex. Every
// mutation replaces the id map with a fresh copy; Save and Delete edit the
// webhook map in place under the write lock, while LoadAll builds both maps
// before swapping them in. Readers (the hot path — every webhook and worker
// job looks an agent up) share the read lock, so they never block each
// other, but they wait while a writer holds the lock.
type Registry struct {
	mu        sync.RWMutex
	byID      map[string]*Agent
	byWebhook map[string]string // webhook_name -> id
}

func New() *Registry {
	return &Registry{
		byID:      make(map[string]*Agent),
		byWebhook: make(map[string]string),
	}
}

// Get returns the agent by id.
func (r *Registry) Get(id string) (*Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	return a, ok
}

// GetByWebhookName returns the agent whose webhook_name matches name.
func (r *Registry) GetByWebhookName(name string) (*Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byWebhook[name]
	if !ok {
		return nil, false
	}
	a, ok := r.byID[id]
	return a, ok
}

// IDs returns every currently loaded agent id.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byID))
	for id := range r.byID {
		out = append(out, id)
	}
	return out
}

// All returns a snapshot slice of every loaded agent.
func (r *Registry) All() []*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Agent, 0, len(r.byID))
	for _, a := range r.byID {
		out = append(out, a)
	}
	return out
}

// LoadAll atomically replaces the registry contents with agents, rejecting
// the whole batch if any id or webhook_name is invalid or duplicated.
func (r *Registry) LoadAll(agents []*Agent) error {
	byID := make(map[string]*Agent, len(agents))
	byWebhook := make(map[string]string, len(agents))
	for _, a := range agents {
		if !ValidateID(a.ID) {
			return apperr.Validation(fmt.Sprintf("registry: invalid agent id %q", a.ID))
		}
		if _, dup := byID[a.ID]; dup {
			return apperr.Validation(fmt.Sprintf("registry: duplicate agent id %q", a.ID))
		}
		if a.WebhookName != "" {
			if !ValidateID(a.WebhookName) {
				return apperr.Validation(fmt.Sprintf("registry: invalid webhook_name %q", a.WebhookName))
			}
			if _, dup := byWebhook[a.WebhookName]; dup {
				return apperr.Validation(fmt.Sprintf("registry: duplicate webhook_name %q", a.WebhookName))
			}
			byWebhook[a.WebhookName] = a.ID
		}
		byID[a.ID] = a
	}

	r.mu.Lock()
	r.byID = byID
	r.byWebhook = byWebhook
	r.mu.Unlock()
	return nil
}

// Save inserts or replaces one agent, preserving every other currently
// loaded agent (unlike LoadAll, which replaces the whole set).
func (r *Registry) Save(a *Agent) error {
	if !ValidateID(a.ID) {
		return apperr.Validation(fmt.Sprintf("registry: invalid agent id %q", a.ID))
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byID[a.ID]; ok && existing.WebhookName != "" && existing.WebhookName != a.WebhookName {
		delete(r.byWebhook, existing.WebhookName)
	}
	if a.WebhookName != "" {
		if !ValidateID(a.WebhookName) {
			return apperr.Validation(fmt.Sprintf("registry: invalid webhook_name %q", a.WebhookName))
		}
		if ownerID, dup := r.byWebhook[a.WebhookName]; dup && ownerID != a.ID {
			return apperr.Validation(fmt.Sprintf("registry: webhook_name %q already used by agent %q", a.WebhookName, ownerID))
		}
		r.byWebhook[a.WebhookName] = a.ID
	}

	byID := make(map[string]*Agent, len(r.byID)+1)
	for id, existing := range r.byID {
		byID[id] = existing
	}
	byID[a.ID] = a
	r.byID = byID
	return nil
}

// Delete removes an agent by id.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byID[id]; ok && existing.WebhookName != "" {
		delete(r.byWebhook, existing.WebhookName)
	}
	byID := make(map[string]*Agent, len(r.byID))
	for existingID, a := range r.byID {
		if existingID != id {
			byID[existingID] = a
		}
	}
	r.byID = byID
}
