package model

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentdesk/backend"
	"agentdesk/backend/testutil"
)

var catalog = []backend.Agent{
	{ID: "helper", Name: "Helper", Description: "General questions"},
	{ID: "grader", Name: "Essay Grader", Description: "Scores essays", Mode: "evaluate-only"},
	{ID: "lawyer", Name: "Contract Reviewer", Description: "Reads contracts"},
}

func TestDirectoryLoad(t *testing.T) {
	proxy := testutil.NewFakeProxy(t)
	proxy.AgentsFunc = func(string) testutil.Reply {
		return testutil.Reply{Status: http.StatusOK, Body: catalog}
	}
	dir := NewAgentDirectory(proxy.Client(t))

	agents, err := dir.Load(context.Background(), Session{Token: testutil.GoodToken})
	require.NoError(t, err)
	require.Len(t, agents, 3)
	assert.Equal(t, ModeEvaluateOnly, agents[1].Mode)
	assert.Equal(t, CatalogReady, ClassifyCatalog(agents, err))
	assert.Len(t, dir.Cached(), 3)

	agent, ok := dir.Lookup("grader")
	require.True(t, ok)
	assert.Equal(t, "Essay Grader", agent.Name)

	reqs := proxy.Requests()
	assert.Equal(t, testutil.GoodToken, reqs[0].Token)
}

func TestDirectoryEmptyCatalogIsNotAnError(t *testing.T) {
	proxy := testutil.NewFakeProxy(t)
	dir := NewAgentDirectory(proxy.Client(t))

	agents, err := dir.Load(context.Background(), Session{Token: testutil.GoodToken})
	require.NoError(t, err)
	assert.Empty(t, agents)

	state := ClassifyCatalog(agents, err)
	assert.Equal(t, CatalogEmpty, state)
	assert.Equal(t, "No agents assigned to your account.", state.Notice())
}

func TestDirectoryServerErrorIsRetryable(t *testing.T) {
	proxy := testutil.NewFakeProxy(t)
	proxy.AgentsFunc = func(string) testutil.Reply {
		return testutil.Reply{Status: http.StatusOK, Body: catalog}
	}
	dir := NewAgentDirectory(proxy.Client(t))
	_, err := dir.Load(context.Background(), Session{Token: testutil.GoodToken})
	require.NoError(t, err)

	proxy.AgentsFunc = func(string) testutil.Reply {
		return testutil.Reply{Status: http.StatusInternalServerError, Body: map[string]string{"detail": "boom"}}
	}
	agents, err := dir.Load(context.Background(), Session{Token: testutil.GoodToken})
	require.Error(t, err)
	assert.NotNil(t, agents)
	assert.Empty(t, agents)
	assert.Empty(t, dir.Cached(), "a failed load empties the catalog")
	assert.False(t, errors.Is(err, ErrAuthExpired))

	state := ClassifyCatalog(agents, err)
	assert.Equal(t, CatalogFailed, state)
	assert.Equal(t, "Unable to load agents. Please try again.", state.Notice())
}

func TestDirectoryUnauthorized(t *testing.T) {
	proxy := testutil.NewFakeProxy(t)
	dir := NewAgentDirectory(proxy.Client(t))

	agents, err := dir.Load(context.Background(), Session{Token: "expired"})
	assert.ErrorIs(t, err, ErrAuthExpired)
	assert.Empty(t, agents)
	assert.Equal(t, CatalogSignedOut, ClassifyCatalog(agents, err))
}

func TestDirectoryFilter(t *testing.T) {
	proxy := testutil.NewFakeProxy(t)
	proxy.AgentsFunc = func(string) testutil.Reply {
		return testutil.Reply{Status: http.StatusOK, Body: catalog}
	}
	dir := NewAgentDirectory(proxy.Client(t))
	_, err := dir.Load(context.Background(), Session{Token: testutil.GoodToken})
	require.NoError(t, err)

	assert.Len(t, dir.Filter(""), 3)

	got := dir.Filter("grader")
	require.NotEmpty(t, got)
	assert.Equal(t, "grader", got[0].ID)

	assert.Empty(t, dir.Filter("zzzz"))
}
