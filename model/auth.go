package model

import (
	"context"
	"errors"
	"fmt"

	"agentdesk/backend"
	"agentdesk/config"
)

const connectionErrorText = "Connection error. Please try again."

type LoginExchanger interface {
	Login(ctx context.Context, artifact backend.Artifact) (backend.LoginResult, error)
}

// Authenticator trades an identity-provider artifact for a session.
type Authenticator struct {
	exchanger LoginExchanger
	sessions  *SessionStore
	navigator *Navigator
}

func NewAuthenticator(exchanger LoginExchanger, sessions *SessionStore, navigator *Navigator) *Authenticator {
	return &Authenticator{
		exchanger: exchanger,
		sessions:  sessions,
		navigator: navigator,
	}
}

// Exchange performs the login request only. It is safe off the UI thread.
func (a *Authenticator) Exchange(ctx context.Context, artifact backend.Artifact) (backend.LoginResult, error) {
	if artifact.Credential == "" && artifact.Code == "" {
		return backend.LoginResult{}, fmt.Errorf("login requires a credential or code")
	}
	return a.exchanger.Login(ctx, artifact)
}

// Complete establishes the session from a successful exchange and moves to
// the dashboard. A response missing the token or the user leaves the user
// signed out on the login view.
func (a *Authenticator) Complete(result backend.LoginResult) error {
	if err := a.sessions.Set(result.SessionToken, result.User); err != nil {
		if errors.Is(err, ErrPartialSession) {
			return fmt.Errorf("login response incomplete: %w", err)
		}
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Authenticator] %v", err)
		}
	}
	return a.navigator.Navigate(ViewDashboard, NavParams{})
}

// Login is Exchange followed by Complete.
func (a *Authenticator) Login(ctx context.Context, artifact backend.Artifact) error {
	result, err := a.Exchange(ctx, artifact)
	if err != nil {
		return err
	}
	return a.Complete(result)
}

// LoginNotice turns a login failure into the text shown on the login view.
// The proxy's detail is shown verbatim.
func LoginNotice(err error) string {
	if err == nil {
		return ""
	}
	var loginErr *backend.LoginError
	if errors.As(err, &loginErr) {
		return loginErr.Error()
	}
	var transportErr *backend.TransportError
	if errors.As(err, &transportErr) {
		return connectionErrorText
	}
	return err.Error()
}
