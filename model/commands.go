package model

import (
	"context"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"agentdesk/identity"
)

// AwaitIdentity waits for the identity provider's single readiness signal.
func (m *Model) AwaitIdentity() tea.Cmd {
	if m.Identity == nil {
		return nil
	}
	ready := m.Identity.Ready()
	gen := m.Navigator.Generation()
	return func() tea.Msg {
		return IdentityReadyMsg{Gen: gen, Err: ready.Wait(context.Background())}
	}
}

// Login obtains an artifact from the provider and exchanges it with the
// proxy. The session is not established until CompleteLogin runs on the UI
// thread.
func (m *Model) Login(in identity.Input) tea.Cmd {
	provider := m.Identity
	auth := m.Auth
	gen := m.Navigator.Generation()
	return func() tea.Msg {
		ctx := context.Background()
		artifact, err := provider.Artifact(ctx, in)
		if err != nil {
			return LoginDoneMsg{Gen: gen, Err: err}
		}
		result, err := auth.Exchange(ctx, artifact)
		return LoginDoneMsg{Gen: gen, Result: result, Err: err}
	}
}

// CompleteLogin applies a successful LoginDoneMsg.
func (m *Model) CompleteLogin(msg LoginDoneMsg) error {
	return m.Auth.Complete(msg.Result)
}

// LoadAgents fetches the catalog for the current session.
func (m *Model) LoadAgents() tea.Cmd {
	directory := m.Directory
	session := m.Sessions.Get()
	gen := m.Navigator.Generation()
	return func() tea.Msg {
		agents, err := directory.Load(context.Background(), session)
		return AgentsLoadedMsg{
			Gen:    gen,
			Token:  session.Token,
			Agents: agents,
			State:  ClassifyCatalog(agents, err),
			Err:    err,
		}
	}
}

// RunExchange performs ex off the UI thread. Requests are not cancellable
// once issued.
func (m *Model) RunExchange(ex *Exchange) tea.Cmd {
	if ex == nil {
		return nil
	}
	gen := m.Navigator.Generation()
	return func() tea.Msg {
		return ExchangeDoneMsg{Gen: gen, Result: ex.Do(context.Background())}
	}
}

// OpenUpload reads the picked file off the UI thread.
func (m *Model) OpenUpload(path string) tea.Cmd {
	gen := m.Navigator.Generation()
	return func() tea.Msg {
		file, err := OpenUpload(path)
		return UploadOpenedMsg{Gen: gen, File: file, Err: err}
	}
}

// HandleLateRejection applies a 401 carried by msg after the view that
// issued it has closed. It reports whether the session was ended.
func (m *Model) HandleLateRejection(msg tea.Msg) bool {
	switch msg := msg.(type) {
	case ExchangeDoneMsg:
		if token, ok := msg.Result.Unauthorized(); ok {
			return m.Navigator.RejectToken(token)
		}
	case AgentsLoadedMsg:
		if msg.State == CatalogSignedOut {
			return m.Navigator.RejectToken(msg.Token)
		}
	}
	return false
}

// SignOut clears the session and returns to login.
func (m *Model) SignOut() tea.Cmd {
	err := m.Navigator.SignOut()
	return func() tea.Msg {
		return SignedOutMsg{Err: err}
	}
}

// CopyToClipboard copies text to the system clipboard.
func CopyToClipboard(text string) tea.Cmd {
	return func() tea.Msg {
		return ClipboardCopiedMsg{Err: clipboard.WriteAll(text)}
	}
}
