package registry

import (
	"context"
	"fmt"

	"agentforge/internal/apperr"
)

// Manager orchestrates the Registry against its two sources — the agents
// directory and (optionally) Postgres — per spec §4.6: "on load_all: clear
// in-memory maps; first load from the agents directory; then load from the
// DB table". Save/Delete apply to both sources to keep them consistent.
type Manager struct {
	Registry *Registry
	Dir      string
	DB       *DBStore // nil when no database is configured
}

func NewManager(reg *Registry, dir string, db *DBStore) *Manager {
	return &Manager{Registry: reg, Dir: dir, DB: db}
}

// LoadAll re-reads both sources and atomically replaces the registry's
// contents. DB rows are appended after file agents and win ties on id,
// since Postgres is the source of truth once an agent has been edited
// through the API.
func (m *Manager) LoadAll(ctx context.Context) error {
	fileAgents, err := LoadFromDir(m.Dir)
	if err != nil {
		return err
	}

	merged := make(map[string]*Agent, len(fileAgents))
	order := make([]string, 0, len(fileAgents))
	for _, a := range fileAgents {
		if _, dup := merged[a.ID]; !dup {
			order = append(order, a.ID)
		}
		merged[a.ID] = a
	}

	if m.DB != nil {
		dbAgents, err := m.DB.LoadAll(ctx)
		if err != nil {
			return err
		}
		for _, a := range dbAgents {
			if _, dup := merged[a.ID]; !dup {
				order = append(order, a.ID)
			}
			merged[a.ID] = a
		}
	}

	agents := make([]*Agent, 0, len(order))
	for _, id := range order {
		agents = append(agents, merged[id])
	}
	return m.Registry.LoadAll(agents)
}

// ReloadOne re-reads the entire store, per spec §9 Open Question 3: file/DB
// reconciliation is non-trivial to do per-id, so a single-agent reload is
// just a full reload.
func (m *Manager) ReloadOne(ctx context.Context, id string) error {
	return m.LoadAll(ctx)
}

// Save validates and persists an agent to whichever sources are configured,
// then updates the in-memory registry.
func (m *Manager) Save(ctx context.Context, a *Agent) error {
	if !ValidateID(a.ID) {
		return apperr.Validation(fmt.Sprintf("registry: invalid agent id %q", a.ID))
	}
	if a.WebhookName != "" && !ValidateID(a.WebhookName) {
		return apperr.Validation(fmt.Sprintf("registry: invalid webhook_name %q", a.WebhookName))
	}
	if err := m.Registry.Save(a); err != nil {
		return err
	}
	if err := SaveToFile(m.Dir, a); err != nil {
		return err
	}
	if m.DB != nil {
		if err := m.DB.Save(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes an agent from both sources and the in-memory registry.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.Registry.Delete(id)
	if err := DeleteFile(m.Dir, id); err != nil {
		return err
	}
	if m.DB != nil {
		if err := m.DB.Delete(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
