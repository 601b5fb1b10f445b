package model

import (
	"agentdesk/backend"
	"agentdesk/config"
	"agentdesk/identity"
)

// Model holds the core application objects. Views read them; only the
// bubbletea Update loop mutates them.
type Model struct {
	// Core dependencies
	Config   *config.Config
	Client   *backend.Client
	Identity identity.Provider

	// Application state
	Sessions  *SessionStore
	Directory *AgentDirectory
	Navigator *Navigator
	Auth      *Authenticator

	// Application metadata
	Version string
	License string
}

// NewModel wires the state machine around client and the durable token
// store. Options apply to every conversation the navigator opens.
func NewModel(cfg *config.Config, client *backend.Client, store TokenStorage, provider identity.Provider, version, license string, opts ...ConversationOption) *Model {
	sessions := NewSessionStore(store, client)
	navigator := NewNavigator(sessions, client, opts...)

	return &Model{
		Config:    cfg,
		Client:    client,
		Identity:  provider,
		Sessions:  sessions,
		Directory: NewAgentDirectory(client),
		Navigator: navigator,
		Auth:      NewAuthenticator(client, sessions, navigator),
		Version:   version,
		License:   license,
	}
}
