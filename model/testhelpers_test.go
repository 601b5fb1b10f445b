package model

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"agentdesk/backend/testutil"
	"agentdesk/storage"
)

// memStorage is an in-memory TokenStorage.
type memStorage struct {
	mu      sync.Mutex
	items   map[string]string
	failSet bool
}

func newMemStorage() *memStorage {
	return &memStorage{items: map[string]string{}}
}

func (m *memStorage) GetItem(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *memStorage) SetItem(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet {
		return errors.New("disk full")
	}
	m.items[key] = value
	return nil
}

func (m *memStorage) RemoveItem(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func openStore(t *testing.T) *storage.LocalStore {
	t.Helper()
	store, err := storage.OpenLocalStore(filepath.Join(t.TempDir(), "localstorage.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// signedIn returns a navigator already on the dashboard with a live session
// issued by proxy.
func signedIn(t *testing.T, proxy *testutil.FakeProxy, opts ...ConversationOption) (*Navigator, *SessionStore, *storage.LocalStore) {
	t.Helper()
	client := proxy.Client(t)
	store := openStore(t)
	sessions := NewSessionStore(store, client)
	require.NoError(t, sessions.Set(testutil.GoodToken, testutil.DefaultUser))

	nav := NewNavigator(sessions, client, opts...)
	require.NoError(t, nav.Navigate(ViewDashboard, NavParams{}))
	return nav, sessions, store
}

func chatAgent() Agent {
	return Agent{
		ID:   "helper",
		Name: "Helper",
		Mode: ModeConversational,
		Upload: UploadPolicy{
			Enabled:       true,
			AcceptedTypes: []string{"application/pdf"},
			Endpoint:      "upload",
		},
	}
}

func evalAgent() Agent {
	return Agent{
		ID:   "grader",
		Name: "Grader",
		Mode: ModeEvaluateOnly,
		Upload: UploadPolicy{
			Enabled:  true,
			Endpoint: "evaluate",
		},
	}
}

func pdf(name string) File {
	content := []byte("%PDF-1.4 test")
	return File{Name: name, Type: "application/pdf", Size: int64(len(content)), Content: content}
}

type roleContent struct {
	Role    string
	Content string
}

func history(msgs []Message) []roleContent {
	out := make([]roleContent, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, roleContent{Role: m.Role, Content: m.Content})
	}
	return out
}
