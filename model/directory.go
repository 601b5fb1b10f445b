package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/sahilm/fuzzy"

	"agentdesk/backend"
	"agentdesk/config"
)

// ErrAuthExpired is any 401 from the proxy. Callers hand it to the
// Navigator's sign-out path.
var ErrAuthExpired = backend.ErrUnauthorized

type AgentLister interface {
	ListAgents(ctx context.Context, token string) ([]backend.Agent, error)
}

// CatalogState is what the dashboard should show after a load.
type CatalogState int

const (
	CatalogLoading CatalogState = iota
	CatalogReady
	CatalogEmpty
	CatalogFailed
	CatalogSignedOut
)

const (
	catalogEmptyText  = "No agents assigned to your account."
	catalogFailedText = "Unable to load agents. Please try again."
)

func (s CatalogState) Notice() string {
	switch s {
	case CatalogEmpty:
		return catalogEmptyText
	case CatalogFailed:
		return catalogFailedText
	default:
		return ""
	}
}

// ClassifyCatalog maps a Load result onto a dashboard state. An empty
// catalog is not a failure.
func ClassifyCatalog(agents []Agent, err error) CatalogState {
	switch {
	case backend.IsUnauthorized(err):
		return CatalogSignedOut
	case err != nil:
		return CatalogFailed
	case len(agents) == 0:
		return CatalogEmpty
	default:
		return CatalogReady
	}
}

// AgentDirectory fetches and caches the agents available to the signed-in
// user.
type AgentDirectory struct {
	mu     sync.RWMutex
	lister AgentLister
	agents []Agent
}

func NewAgentDirectory(lister AgentLister) *AgentDirectory {
	return &AgentDirectory{lister: lister}
}

// Load performs one authenticated fetch. Success replaces the cache; any
// failure empties it. A 401 is returned as ErrAuthExpired, every other
// failure as a retry-eligible error alongside an empty slice.
func (d *AgentDirectory) Load(ctx context.Context, session Session) ([]Agent, error) {
	wire, err := d.lister.ListAgents(ctx, session.Token)
	if err != nil {
		d.mu.Lock()
		d.agents = nil
		d.mu.Unlock()

		if config.DebugLog != nil {
			config.DebugLog.Printf("[AgentDirectory] Load failed: %v", err)
		}
		if backend.IsUnauthorized(err) {
			return []Agent{}, fmt.Errorf("failed to load agents: %w", ErrAuthExpired)
		}
		return []Agent{}, fmt.Errorf("failed to load agents: %w", err)
	}

	agents := AgentsFromWire(wire)
	d.mu.Lock()
	d.agents = agents
	d.mu.Unlock()

	if config.DebugLog != nil {
		config.DebugLog.Printf("[AgentDirectory] Loaded %d agents", len(agents))
	}
	return d.Cached(), nil
}

// Cached returns a copy of the last successful catalog.
func (d *AgentDirectory) Cached() []Agent {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Agent, len(d.agents))
	copy(out, d.agents)
	return out
}

// Lookup finds a cached agent by id.
func (d *AgentDirectory) Lookup(id string) (Agent, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, a := range d.agents {
		if a.ID == id {
			return a, true
		}
	}
	return Agent{}, false
}

type agentSource []Agent

func (s agentSource) String(i int) string {
	return s[i].Name + " " + s[i].Description
}

func (s agentSource) Len() int {
	return len(s)
}

// Filter fuzzy-matches query against each cached agent's name and
// description, best matches first. An empty query returns the whole catalog.
func (d *AgentDirectory) Filter(query string) []Agent {
	agents := d.Cached()
	if query == "" {
		return agents
	}

	matches := fuzzy.FindFrom(query, agentSource(agents))
	out := make([]Agent, 0, len(matches))
	for _, match := range matches {
		out = append(out, agents[match.Index])
	}
	return out
}
