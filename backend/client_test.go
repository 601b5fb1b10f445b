package backend_test

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

func TestNewClient(t *testing.T) {
	tests := []struct {
		name        string
		baseURL     string
		want        string
		expectError bool
	}{
		{name: "http url", baseURL: "http://localhost:8000", want: "http://localhost:8000"},
		{name: "trailing slash", baseURL: "https://proxy.example.com/", want: "https://proxy.example.com"},
		{name: "empty", baseURL: "", expectError: true},
		{name: "no scheme", baseURL: "proxy.example.com", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := backend.NewClient(tt.baseURL, 0)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, client.BaseURL())
		})
	}
}

func TestVerify(t *testing.T) {
	proxy := testutil.NewFakeProxy(t)
	client := proxy.Client(t)

	user, err := client.Verify(context.Background(), testutil.GoodToken)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, "Ada", user.Name)

	_, err = client.Verify(context.Background(), "stale")
	assert.Error(t, err)

	reqs := proxy.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, testutil.GoodToken, reqs[0].JSON["token"])
	assert.Empty(t, reqs[0].Token, "verify carries the token in the body, not a bearer header")
}

func TestLogin(t *testing.T) {
	proxy := testutil.NewFakeProxy(t)
	client := proxy.Client(t)

	t.Run("credential accepted", func(t *testing.T) {
		result, err := client.Login(context.Background(), backend.Artifact{Credential: testutil.GoodCredential})
		require.NoError(t, err)
		assert.Equal(t, testutil.GoodToken, result.SessionToken)
		assert.Equal(t, "ada@example.com", result.User.Email)
	})

	t.Run("code accepted", func(t *testing.T) {
		result, err := client.Login(context.Background(), backend.Artifact{Code: testutil.GoodCredential})
		require.NoError(t, err)
		assert.Equal(t, testutil.GoodToken, result.SessionToken)
	})

	t.Run("detail shown verbatim", func(t *testing.T) {
		_, err := client.Login(context.Background(), backend.Artifact{Credential: "nope"})
		var loginErr *backend.LoginError
		require.ErrorAs(t, err, &loginErr)
		assert.Equal(t, http.StatusForbidden, loginErr.StatusCode)
		assert.Equal(t, "Email not authorized", loginErr.Error())
	})

	t.Run("missing detail", func(t *testing.T) {
		proxy.LoginFunc = func(backend.Artifact) testutil.Reply {
			return testutil.Reply{Status: http.StatusUnauthorized, Body: "not json"}
		}
		_, err := client.Login(context.Background(), backend.Artifact{Credential: "x"})
		var loginErr *backend.LoginError
		require.ErrorAs(t, err, &loginErr)
		assert.Equal(t, "Unauthorized", loginErr.Error())
	})
}

func TestListAgents(t *testing.T) {
	proxy := testutil.NewFakeProxy(t)
	client := proxy.Client(t)

	proxy.AgentsFunc = func(string) testutil.Reply {
		return testutil.Reply{Status: http.StatusOK, Body: `[{"id":"a1","name":"Reviewer","icon":"📝","description":"Reviews PDFs","mode":"evaluate-only","features":{"fileUpload":{"enabled":true,"acceptedTypes":["application/pdf"],"endpoint":"evaluate"}}}]`}
	}

	agents, err := client.ListAgents(context.Background(), testutil.GoodToken)
	require.NoError(t, err)
	require.Len(t, agents, 1)
	assert.Equal(t, "a1", agents[0].ID)
	assert.Equal(t, "evaluate-only", agents[0].Mode)
	require.NotNil(t, agents[0].Features.FileUpload)
	assert.Equal(t, []string{"application/pdf"}, agents[0].Features.FileUpload.AcceptedTypes)

	_, err = client.ListAgents(context.Background(), "stale")
	assert.True(t, backend.IsUnauthorized(err))

	proxy.AgentsFunc = func(string) testutil.Reply {
		return testutil.Reply{Status: http.StatusInternalServerError, Body: map[string]string{"detail": "boom"}}
	}
	_, err = client.ListAgents(context.Background(), testutil.GoodToken)
	var statusErr *backend.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.False(t, backend.IsUnauthorized(err))
}

func TestChat(t *testing.T) {
	proxy := testutil.NewFakeProxy(t)
	client := proxy.Client(t)

	reply, err := client.Chat(context.Background(), testutil.GoodToken, "a1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", reply)

	reqs := proxy.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, testutil.GoodToken, reqs[0].Token)
	assert.Equal(t, map[string]any{"message": "hello", "agentId": "a1"}, reqs[0].JSON)

	proxy.ChatFunc = func(_, _, _ string) testutil.Reply {
		return testutil.Reply{Status: http.StatusOK, Body: "<html>gateway</html>"}
	}
	_, err = client.Chat(context.Background(), testutil.GoodToken, "a1", "hello")
	var transportErr *backend.TransportError
	assert.ErrorAs(t, err, &transportErr)
}

func TestChatUnreachable(t *testing.T) {
	proxy := testutil.NewFakeProxy(t)
	client := proxy.Client(t)
	proxy.Server.Close()

	_, err := client.Chat(context.Background(), testutil.GoodToken, "a1", "hello")
	var transportErr *backend.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.False(t, errors.Is(err, backend.ErrUnauthorized))
}

func TestUpload(t *testing.T) {
	proxy := testutil.NewFakeProxy(t)
	client := proxy.Client(t)

	reply, err := client.Upload(context.Background(), testutil.GoodToken, backend.UploadRequest{
		AgentID:     "a1",
		Endpoint:    "evaluate",
		FileName:    `report "q3".pdf`,
		ContentType: "application/pdf",
		Content:     []byte("%PDF-1.4"),
	})
	require.NoError(t, err)
	assert.Equal(t, `received report "q3".pdf`, reply)

	reqs := proxy.Requests()
	require.Len(t, reqs, 1)
	upload := reqs[0].Upload
	require.NotNil(t, upload)
	assert.Equal(t, "a1", upload.AgentID)
	assert.Equal(t, "evaluate", upload.Endpoint)
	assert.Equal(t, "application/pdf", upload.ContentType)
	assert.Equal(t, []byte("%PDF-1.4"), upload.Content)

	_, err = client.Upload(context.Background(), "stale", backend.UploadRequest{FileName: "a.pdf"})
	assert.True(t, backend.IsUnauthorized(err))
}

func TestUserRoundTripKeepsAttributes(t *testing.T) {
	user := backend.User{}
	require.NoError(t, user.UnmarshalJSON([]byte(`{"email":"a@b.c","hd":"example.com"}`)))
	assert.Equal(t, "a@b.c", user.Email)
	assert.Equal(t, "example.com", user.Attributes["hd"])
}
