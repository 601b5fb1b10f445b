package ui

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentdesk/backend"
	"agentdesk/backend/testutil"
	"agentdesk/config"
	"agentdesk/identity"
	appmodel "agentdesk/model"
	"agentdesk/storage"
)

func newTestApp(t *testing.T, proxy *testutil.FakeProxy) AppView {
	t.Helper()

	store, err := storage.OpenLocalStore(filepath.Join(t.TempDir(), "localstorage.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	m := appmodel.NewModel(&config.Config{}, proxy.Client(t), store, identity.NewPromptProvider(""), "test", "MIT")
	require.NoError(t, m.Sessions.Set(testutil.GoodToken, testutil.DefaultUser))
	require.Equal(t, appmodel.ViewDashboard, m.Navigator.Start(context.Background()))

	a := NewAppView(m, nil)
	return update(t, a, tea.WindowSizeMsg{Width: 100, Height: 40})
}

func update(t *testing.T, a AppView, msg tea.Msg) AppView {
	t.Helper()
	next, _ := a.Update(msg)
	return next.(AppView)
}

// collect runs cmd and every command it batches, returning the messages
// of type T.
func collect[T any](cmd tea.Cmd) []T {
	if cmd == nil {
		return nil
	}
	var out []T
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			out = append(out, collect[T](c)...)
		}
	case T:
		out = append(out, msg)
	}
	return out
}

func openConversation(t *testing.T, a AppView, agent appmodel.Agent) AppView {
	t.Helper()
	require.NoError(t, a.dataModel.Navigator.Navigate(appmodel.ViewConversation, appmodel.NavParams{Agent: &agent}))
	next, _ := a.Update(resyncMsg{})
	a = next.(AppView)
	require.Equal(t, appmodel.ViewConversation, a.view)
	return a
}

// resyncMsg is ignored by every view; it only lets Update resync.
type resyncMsg struct{}

func TestDashboardShowsEmptyCatalogNotice(t *testing.T) {
	proxy := testutil.NewFakeProxy(t)
	a := newTestApp(t, proxy)

	loaded := collect[agentsLoadedMsg](a.dataModel.LoadAgents())
	require.Len(t, loaded, 1)
	a = update(t, a, loaded[0])

	assert.Equal(t, appmodel.CatalogEmpty, a.dashboard.state)
	assert.Contains(t, a.View(), "No agents assigned to your account.")
}

func TestDashboardListsAgents(t *testing.T) {
	proxy := testutil.NewFakeProxy(t)
	proxy.AgentsFunc = func(string) testutil.Reply {
		return testutil.Reply{Status: http.StatusOK, Body: []backend.Agent{
			{ID: "helper", Name: "Helper", Icon: "🤖", Description: "General help"},
			{ID: "grader", Name: "Grader", Description: "Scores essays", Mode: "evaluate-only"},
		}}
	}
	a := newTestApp(t, proxy)

	a = update(t, a, collect[agentsLoadedMsg](a.dataModel.LoadAgents())[0])

	require.Equal(t, appmodel.CatalogReady, a.dashboard.state)
	view := a.View()
	assert.Contains(t, view, "Helper")
	assert.Contains(t, view, "[evaluate]")

	a = update(t, a, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	a = update(t, a, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, appmodel.ViewConversation, a.view)
	assert.Equal(t, "grader", a.conversation.conv.Agent().ID)
}

func TestStaleCatalogResultIsDropped(t *testing.T) {
	proxy := testutil.NewFakeProxy(t)
	a := newTestApp(t, proxy)

	old := agentsLoadedMsg{Gen: a.dataModel.Navigator.Generation(), Token: "tok-old", State: appmodel.CatalogSignedOut}
	a = openConversation(t, a, helperAgent())

	assert.True(t, stale(a.dataModel.Navigator, old))
	a = update(t, a, old)

	assert.Equal(t, appmodel.ViewConversation, a.view)
	assert.True(t, a.dataModel.Sessions.Authenticated())
}

func TestStaleUnauthorizedCatalogSignsOut(t *testing.T) {
	proxy := testutil.NewFakeProxy(t)
	a := newTestApp(t, proxy)

	load := a.dataModel.LoadAgents()
	a = openConversation(t, a, helperAgent())
	delete(proxy.Users, testutil.GoodToken)

	loaded := collect[agentsLoadedMsg](load)
	require.Len(t, loaded, 1)
	require.Equal(t, appmodel.CatalogSignedOut, loaded[0].State)
	a = update(t, a, loaded[0])

	assert.Equal(t, appmodel.ViewLogin, a.view)
	assert.False(t, a.dataModel.Sessions.Authenticated())
}

func TestLateUnauthorizedReplySignsOut(t *testing.T) {
	proxy := testutil.NewFakeProxy(t)
	a := newTestApp(t, proxy)
	a = openConversation(t, a, helperAgent())

	a.conversation.textarea.SetValue("hello")
	next, cmd := a.Update(tea.KeyMsg{Type: tea.KeyEnter})
	a = next.(AppView)

	a = update(t, a, tea.KeyMsg{Type: tea.KeyEsc})
	require.Equal(t, appmodel.ViewDashboard, a.view)
	delete(proxy.Users, testutil.GoodToken)

	done := collect[exchangeDoneMsg](cmd)
	require.Len(t, done, 1)
	a = update(t, a, done[0])

	assert.Equal(t, appmodel.ViewLogin, a.view)
	assert.False(t, a.dataModel.Sessions.Authenticated())
}

func TestSendTextRoundTrip(t *testing.T) {
	proxy := testutil.NewFakeProxy(t)
	a := newTestApp(t, proxy)
	a = openConversation(t, a, helperAgent())

	a.conversation.textarea.SetValue("hello")
	next, cmd := a.Update(tea.KeyMsg{Type: tea.KeyEnter})
	a = next.(AppView)

	conv := a.conversation.conv
	assert.Equal(t, appmodel.StateAwaitingResponse, conv.State())
	assert.Empty(t, a.conversation.textarea.Value())
	assert.False(t, conv.Controls().Input)

	done := collect[exchangeDoneMsg](cmd)
	require.Len(t, done, 1)
	a = update(t, a, done[0])

	msgs := conv.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, appmodel.RoleUser, msgs[0].Role)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, appmodel.RoleAgent, msgs[1].Role)
	assert.Equal(t, "echo: hello", msgs[1].Content)
	assert.Equal(t, appmodel.StateIdle, conv.State())
	assert.True(t, conv.Controls().Input)
}

func TestUnauthorizedReplyReturnsToLogin(t *testing.T) {
	proxy := testutil.NewFakeProxy(t)
	proxy.ChatFunc = func(_, _, _ string) testutil.Reply {
		return testutil.Reply{Status: http.StatusUnauthorized, Body: map[string]string{"detail": "expired"}}
	}
	a := newTestApp(t, proxy)
	a = openConversation(t, a, helperAgent())

	a.conversation.textarea.SetValue("hello")
	next, cmd := a.Update(tea.KeyMsg{Type: tea.KeyEnter})
	a = next.(AppView)

	a = update(t, a, collect[exchangeDoneMsg](cmd)[0])

	assert.Equal(t, appmodel.ViewLogin, a.view)
	assert.False(t, a.dataModel.Sessions.Authenticated())
}

func TestEvaluateOnlyHidesTextInput(t *testing.T) {
	proxy := testutil.NewFakeProxy(t)
	a := newTestApp(t, proxy)

	grader := appmodel.AgentFromWire(backend.Agent{ID: "grader", Name: "Grader", Mode: "evaluate-only"})
	a = openConversation(t, a, grader)

	view := a.View()
	assert.Contains(t, view, grader.Upload.ButtonLabel)
	assert.NotContains(t, view, "Type your message here...")

	a.conversation.textarea.SetValue("ignored")
	a = update(t, a, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, a.conversation.conv.Messages())
	assert.Zero(t, proxy.Count("/api/chat"))
}

func TestAttachRefusedWhenUploadsDisabled(t *testing.T) {
	proxy := testutil.NewFakeProxy(t)
	a := newTestApp(t, proxy)

	agent := helperAgent()
	agent.Upload = appmodel.UploadPolicy{}
	a = openConversation(t, a, agent)

	a = update(t, a, tea.KeyMsg{Type: tea.KeyCtrlO})

	assert.False(t, a.conversation.picker.Active)
	assert.Equal(t, "File upload not supported for this agent.", a.conversation.notice)
}

func TestEscapeReturnsToDashboard(t *testing.T) {
	proxy := testutil.NewFakeProxy(t)
	a := newTestApp(t, proxy)
	a = openConversation(t, a, helperAgent())
	first := a.conversation.conv

	a = update(t, a, tea.KeyMsg{Type: tea.KeyEsc})

	assert.Equal(t, appmodel.ViewDashboard, a.view)
	assert.Nil(t, a.dataModel.Navigator.Conversation())
	_, err := first.BeginText("late")
	assert.ErrorIs(t, err, appmodel.ErrClosed)
}

func TestSignOutKey(t *testing.T) {
	proxy := testutil.NewFakeProxy(t)
	a := newTestApp(t, proxy)

	a = update(t, a, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("l"), Alt: true})

	assert.Equal(t, appmodel.ViewLogin, a.view)
	assert.False(t, a.dataModel.Sessions.Authenticated())
	assert.Contains(t, a.View(), "Sign in")
}

func TestExtensionsFor(t *testing.T) {
	assert.Contains(t, extensionsFor([]string{"application/pdf"}), ".pdf")
	assert.Nil(t, extensionsFor(nil))
	assert.Nil(t, extensionsFor([]string{"application/x-agentdesk-unknown"}))
}

func helperAgent() appmodel.Agent {
	return appmodel.Agent{
		ID:   "helper",
		Name: "Helper",
		Mode: appmodel.ModeConversational,
		Upload: appmodel.UploadPolicy{
			Enabled:       true,
			AcceptedTypes: []string{"application/pdf"},
			Endpoint:      "upload",
			ButtonLabel:   "📎 Upload File",
		},
	}
}
