// Package identity adapts identity providers to the login exchange. A
// provider produces an opaque artifact (an ID-token credential or an
// authorization code) that the proxy verifies.
package identity

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"agentdesk/backend"
	"agentdesk/config"
)

var (
	ErrNoCredential    = errors.New("no credential available")
	ErrUnknownProvider = errors.New("unknown identity provider")
)

type ArtifactKind int

const (
	KindCredential ArtifactKind = iota
	KindCode
)

func (k ArtifactKind) String() string {
	if k == KindCode {
		return "code"
	}
	return "credential"
}

// Input is what the user typed on the login view.
type Input struct {
	Kind  ArtifactKind
	Value string
}

// Provider is the identity-provider integration. Ready resolves once when the
// provider can produce artifacts; callers await it instead of polling.
type Provider interface {
	Name() string
	Ready() *Future
	// Interactive reports whether the login view must collect Input.
	Interactive() bool
	Artifact(ctx context.Context, in Input) (backend.Artifact, error)
}

// New selects the provider named by cfg.
func New(cfg *config.Config) (Provider, error) {
	switch cfg.IdentityProvider {
	case config.IdentityEnv:
		return NewEnvProvider(os.Getenv(config.EnvCredential)), nil
	case config.IdentityPrompt, "":
		return NewPromptProvider(cfg.ClientID), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.IdentityProvider)
	}
}

func artifactFor(kind ArtifactKind, value string) backend.Artifact {
	if kind == KindCode {
		return backend.Artifact{Code: value}
	}
	return backend.Artifact{Credential: value}
}

// PromptProvider takes the artifact pasted into the login view.
type PromptProvider struct {
	clientID string
	ready    *Future
}

func NewPromptProvider(clientID string) *PromptProvider {
	return &PromptProvider{
		clientID: clientID,
		ready:    Resolved(nil),
	}
}

func (p *PromptProvider) Name() string      { return config.IdentityPrompt }
func (p *PromptProvider) Ready() *Future    { return p.ready }
func (p *PromptProvider) Interactive() bool { return true }

// ClientID is the identity-provider client the pasted artifact must be
// issued for. It is informational.
func (p *PromptProvider) ClientID() string {
	return p.clientID
}

func (p *PromptProvider) Artifact(ctx context.Context, in Input) (backend.Artifact, error) {
	if err := p.ready.Wait(ctx); err != nil {
		return backend.Artifact{}, err
	}
	value := strings.TrimSpace(in.Value)
	if value == "" {
		return backend.Artifact{}, fmt.Errorf("%s: %w", in.Kind, ErrNoCredential)
	}
	return artifactFor(in.Kind, value), nil
}

// EnvProvider reads a credential handed over through the environment, for
// scripted sign-in.
type EnvProvider struct {
	credential string
	ready      *Future
}

func NewEnvProvider(credential string) *EnvProvider {
	credential = strings.TrimSpace(credential)
	var err error
	if credential == "" {
		err = fmt.Errorf("%s is not set: %w", config.EnvCredential, ErrNoCredential)
	}
	return &EnvProvider{
		credential: credential,
		ready:      Resolved(err),
	}
}

func (p *EnvProvider) Name() string      { return config.IdentityEnv }
func (p *EnvProvider) Ready() *Future    { return p.ready }
func (p *EnvProvider) Interactive() bool { return false }

// Artifact ignores in; the credential comes from the environment.
func (p *EnvProvider) Artifact(ctx context.Context, _ Input) (backend.Artifact, error) {
	if err := p.ready.Wait(ctx); err != nil {
		return backend.Artifact{}, err
	}
	return artifactFor(KindCredential, p.credential), nil
}
