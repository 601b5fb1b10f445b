package model

import (
	"context"
	"errors"
	"sync"

	"agentdesk/config"
)

type View int

const (
	ViewLogin View = iota
	ViewDashboard
	ViewConversation
)

func (v View) String() string {
	switch v {
	case ViewDashboard:
		return "dashboard"
	case ViewConversation:
		return "conversation"
	default:
		return "login"
	}
}

var ErrNoAgent = errors.New("conversation view requires an agent")

type NavParams struct {
	Agent *Agent
}

// Navigator owns the single active view. Every transition discards the state
// of the view being left and bumps the generation, so results that belong to
// an abandoned view can be recognised and dropped.
type Navigator struct {
	mu        sync.Mutex
	sessions  *SessionStore
	transport Transport
	convOpts  []ConversationOption

	view         View
	conversation *Conversation
	generation   uint64
	observers    []func(View)
}

func NewNavigator(sessions *SessionStore, transport Transport, opts ...ConversationOption) *Navigator {
	return &Navigator{
		sessions:  sessions,
		transport: transport,
		convOpts:  opts,
	}
}

// OnChange registers fn to run after every transition.
func (n *Navigator) OnChange(fn func(View)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.observers = append(n.observers, fn)
}

// Start restores a persisted session and selects the initial view. It blocks
// on session verification.
func (n *Navigator) Start(ctx context.Context) View {
	if _, ok := n.sessions.Restore(ctx); ok {
		_ = n.Navigate(ViewDashboard, NavParams{})
	} else {
		_ = n.Navigate(ViewLogin, NavParams{})
	}
	return n.View()
}

// Navigate switches to view. Entering login always clears the session first;
// dashboard and conversation without a session land on login instead.
func (n *Navigator) Navigate(view View, params NavParams) error {
	if view != ViewLogin && !n.sessions.Authenticated() {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Navigator] %s requested without a session, redirecting to login", view)
		}
		view = ViewLogin
	}
	if view == ViewConversation && params.Agent == nil {
		return ErrNoAgent
	}

	var clearErr error
	if view == ViewLogin {
		clearErr = n.sessions.Clear()
	}

	n.mu.Lock()
	if n.conversation != nil {
		n.conversation.Close()
		n.conversation = nil
	}
	n.generation++
	n.view = view
	if view == ViewConversation {
		opts := append([]ConversationOption{WithAuthFailureHandler(n.HandleAuthFailure)}, n.convOpts...)
		n.conversation = NewConversation(*params.Agent, n.sessions, n.transport, opts...)
	}
	observers := append([]func(View){}, n.observers...)
	gen := n.generation
	n.mu.Unlock()

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Navigator] now at %s (generation %d)", view, gen)
	}
	for _, fn := range observers {
		fn(view)
	}
	return clearErr
}

// SignOut is the single funnel for leaving an authenticated view.
func (n *Navigator) SignOut() error {
	return n.Navigate(ViewLogin, NavParams{})
}

// HandleAuthFailure is the escalation for a 401 seen by any component.
func (n *Navigator) HandleAuthFailure() {
	if config.DebugLog != nil {
		config.DebugLog.Printf("[Navigator] session rejected by proxy, signing out")
	}
	if err := n.SignOut(); err != nil && config.DebugLog != nil {
		config.DebugLog.Printf("[Navigator] sign-out: %v", err)
	}
}

// RejectToken signs out when the proxy rejected token and it is still the
// live session token. A 401 for a token that has since been replaced is
// ignored.
func (n *Navigator) RejectToken(token string) bool {
	if token == "" || n.sessions.Token() != token {
		return false
	}
	n.HandleAuthFailure()
	return true
}

func (n *Navigator) View() View {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.view
}

func (n *Navigator) Generation() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.generation
}

// Current reports whether gen still names the active view.
func (n *Navigator) Current(gen uint64) bool {
	return n.Generation() == gen
}

// Conversation is the active conversation, or nil outside the conversation
// view.
func (n *Navigator) Conversation() *Conversation {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.conversation
}

func (n *Navigator) Session() Session {
	return n.sessions.Get()
}
