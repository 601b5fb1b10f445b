package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentdesk/backend"
	"agentdesk/config"
)

func TestFutureResolvesOnce(t *testing.T) {
	f := NewFuture()
	first := errors.New("first")
	f.Resolve(first)
	f.Resolve(nil)

	assert.ErrorIs(t, f.Wait(context.Background()), first)
	select {
	case <-f.Done():
	default:
		t.Fatal("Done channel should be closed")
	}
}

func TestFutureWaitHonoursContext(t *testing.T) {
	f := NewFuture()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, f.Wait(ctx), context.DeadlineExceeded)
}

func TestFutureWaitUnblocksOnResolve(t *testing.T) {
	f := NewFuture()
	go func() {
		time.Sleep(5 * time.Millisecond)
		f.Resolve(nil)
	}()
	assert.NoError(t, f.Wait(context.Background()))
}

func TestPromptProvider(t *testing.T) {
	p := NewPromptProvider("client-1")
	assert.True(t, p.Interactive())
	assert.Equal(t, "client-1", p.ClientID())

	tests := []struct {
		name    string
		in      Input
		want    backend.Artifact
		wantErr bool
	}{
		{name: "credential", in: Input{Kind: KindCredential, Value: " id-token "}, want: backend.Artifact{Credential: "id-token"}},
		{name: "code", in: Input{Kind: KindCode, Value: "4/abc"}, want: backend.Artifact{Code: "4/abc"}},
		{name: "blank", in: Input{Kind: KindCredential, Value: "   "}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Artifact(context.Background(), tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoCredential)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnvProvider(t *testing.T) {
	p := NewEnvProvider("from-env")
	assert.False(t, p.Interactive())
	require.NoError(t, p.Ready().Wait(context.Background()))

	got, err := p.Artifact(context.Background(), Input{Value: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, backend.Artifact{Credential: "from-env"}, got)

	missing := NewEnvProvider("")
	assert.ErrorIs(t, missing.Ready().Wait(context.Background()), ErrNoCredential)
	_, err = missing.Artifact(context.Background(), Input{})
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestNew(t *testing.T) {
	t.Setenv(config.EnvCredential, "env-cred")

	p, err := New(&config.Config{IdentityProvider: config.IdentityEnv})
	require.NoError(t, err)
	assert.Equal(t, config.IdentityEnv, p.Name())

	p, err = New(&config.Config{IdentityProvider: config.IdentityPrompt})
	require.NoError(t, err)
	assert.Equal(t, config.IdentityPrompt, p.Name())

	_, err = New(&config.Config{IdentityProvider: "saml"})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}
