// Package testutil provides an in-process fake of the agent proxy for tests.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"agentdesk/backend"
)

// Reply is a canned HTTP response. Body is JSON-encoded unless it is a string,
// which is written raw.
type Reply struct {
	Status int
	Body   any
}

type RecordedUpload struct {
	AgentID     string
	Endpoint    string
	FileName    string
	ContentType string
	Content     []byte
}

type RecordedRequest struct {
	Method string
	Path   string
	Token  string
	JSON   map[string]any
	Upload *RecordedUpload
}

// FakeProxy implements the proxy contract over httptest. Handlers default to
// a well-behaved proxy and can be swapped per test.
type FakeProxy struct {
	Server *httptest.Server

	// Users maps valid session tokens to their identity.
	Users map[string]backend.User

	LoginFunc  func(artifact backend.Artifact) Reply
	AgentsFunc func(token string) Reply
	ChatFunc   func(token, agentID, message string) Reply
	UploadFunc func(token string, upload RecordedUpload) Reply

	mu       sync.Mutex
	requests []RecordedRequest
}

const (
	GoodCredential = "good-credential"
	GoodToken      = "tok-good"
)

var DefaultUser = backend.User{
	Email: "ada@example.com",
	Name:  "Ada",
	Attributes: map[string]any{
		"email": "ada@example.com",
		"name":  "Ada",
	},
}

func NewFakeProxy(t testing.TB) *FakeProxy {
	t.Helper()

	f := &FakeProxy{
		Users: map[string]backend.User{GoodToken: DefaultUser},
	}
	f.LoginFunc = f.defaultLogin
	f.AgentsFunc = func(string) Reply { return Reply{Status: http.StatusOK, Body: []backend.Agent{}} }
	f.ChatFunc = func(_, _, message string) Reply {
		return Reply{Status: http.StatusOK, Body: map[string]string{"response": "echo: " + message}}
	}
	f.UploadFunc = func(_ string, upload RecordedUpload) Reply {
		return Reply{Status: http.StatusOK, Body: map[string]string{"response": "received " + upload.FileName}}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/verify", f.handleVerify)
	mux.HandleFunc("POST /auth/login", f.handleLogin)
	mux.HandleFunc("GET /api/agents", f.handleAgents)
	mux.HandleFunc("POST /api/chat", f.handleChat)
	mux.HandleFunc("POST /api/upload", f.handleUpload)

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

func (f *FakeProxy) URL() string {
	return f.Server.URL
}

// Client returns a backend client pointed at the fake.
func (f *FakeProxy) Client(t testing.TB) *backend.Client {
	t.Helper()
	client, err := backend.NewClient(f.URL(), 0)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

// Requests returns a copy of every request seen so far.
func (f *FakeProxy) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]RecordedRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// Count returns how many requests hit path.
func (f *FakeProxy) Count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r.Path == path {
			n++
		}
	}
	return n
}

func (f *FakeProxy) record(r RecordedRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r)
}

func (f *FakeProxy) defaultLogin(artifact backend.Artifact) Reply {
	if artifact.Credential == GoodCredential || artifact.Code == GoodCredential {
		return Reply{Status: http.StatusOK, Body: map[string]any{
			"session_token": GoodToken,
			"user":          DefaultUser,
		}}
	}
	return Reply{Status: http.StatusForbidden, Body: map[string]string{"detail": "Email not authorized"}}
}

func (f *FakeProxy) authorized(token string) bool {
	_, ok := f.Users[token]
	return ok
}

func bearer(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func decodeJSON(r *http.Request) map[string]any {
	var body map[string]any
	data, _ := io.ReadAll(r.Body)
	_ = json.Unmarshal(data, &body)
	return body
}

func (f *FakeProxy) handleVerify(w http.ResponseWriter, r *http.Request) {
	body := decodeJSON(r)
	f.record(RecordedRequest{Method: r.Method, Path: r.URL.Path, JSON: body})

	token, _ := body["token"].(string)
	user, ok := f.Users[token]
	if !ok {
		write(w, Reply{Status: http.StatusUnauthorized, Body: map[string]string{"detail": "Invalid session"}})
		return
	}
	write(w, Reply{Status: http.StatusOK, Body: map[string]any{"user": user}})
}

func (f *FakeProxy) handleLogin(w http.ResponseWriter, r *http.Request) {
	body := decodeJSON(r)
	f.record(RecordedRequest{Method: r.Method, Path: r.URL.Path, JSON: body})

	var artifact backend.Artifact
	artifact.Credential, _ = body["credential"].(string)
	artifact.Code, _ = body["code"].(string)
	write(w, f.LoginFunc(artifact))
}

func (f *FakeProxy) handleAgents(w http.ResponseWriter, r *http.Request) {
	token := bearer(r)
	f.record(RecordedRequest{Method: r.Method, Path: r.URL.Path, Token: token})

	if !f.authorized(token) {
		write(w, Reply{Status: http.StatusUnauthorized, Body: map[string]string{"detail": "Invalid session"}})
		return
	}
	write(w, f.AgentsFunc(token))
}

func (f *FakeProxy) handleChat(w http.ResponseWriter, r *http.Request) {
	token := bearer(r)
	body := decodeJSON(r)
	f.record(RecordedRequest{Method: r.Method, Path: r.URL.Path, Token: token, JSON: body})

	if !f.authorized(token) {
		write(w, Reply{Status: http.StatusUnauthorized, Body: map[string]string{"detail": "Invalid session"}})
		return
	}
	message, _ := body["message"].(string)
	agentID, _ := body["agentId"].(string)
	write(w, f.ChatFunc(token, agentID, message))
}

func (f *FakeProxy) handleUpload(w http.ResponseWriter, r *http.Request) {
	token := bearer(r)
	upload := RecordedUpload{}
	if err := r.ParseMultipartForm(32 << 20); err == nil {
		upload.AgentID = r.FormValue("agentId")
		upload.Endpoint = r.FormValue("endpoint")
		if file, header, err := r.FormFile("file"); err == nil {
			upload.FileName = header.Filename
			upload.ContentType = header.Header.Get("Content-Type")
			upload.Content, _ = io.ReadAll(file)
			file.Close()
		}
	}
	f.record(RecordedRequest{Method: r.Method, Path: r.URL.Path, Token: token, Upload: &upload})

	if !f.authorized(token) {
		write(w, Reply{Status: http.StatusUnauthorized, Body: map[string]string{"detail": "Invalid session"}})
		return
	}
	write(w, f.UploadFunc(token, upload))
}

func write(w http.ResponseWriter, reply Reply) {
	status := reply.Status
	if status == 0 {
		status = http.StatusOK
	}
	if raw, ok := reply.Body.(string); ok {
		w.WriteHeader(status)
		io.WriteString(w, raw)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(reply.Body)
}
