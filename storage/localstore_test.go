package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, cipher Cipher) (*LocalStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "localstorage.db")
	store, err := OpenLocalStore(path, cipher)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

func TestLocalStoreSetGetRemove(t *testing.T) {
	store, _ := openTestStore(t, nil)

	_, ok, err := store.GetItem("session_token")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SetItem("session_token", "abc"))
	value, ok, err := store.GetItem("session_token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", value)

	require.NoError(t, store.SetItem("session_token", "def"))
	value, _, err = store.GetItem("session_token")
	require.NoError(t, err)
	assert.Equal(t, "def", value)

	require.NoError(t, store.RemoveItem("session_token"))
	_, ok, err = store.GetItem("session_token")
	require.NoError(t, err)
	assert.False(t, ok)

	// removing twice is fine
	require.NoError(t, store.RemoveItem("session_token"))
}

func TestLocalStoreSurvivesReopen(t *testing.T) {
	store, path := openTestStore(t, nil)
	require.NoError(t, store.SetItem("session_token", "persisted"))
	require.NoError(t, store.Close())

	reopened, err := OpenLocalStore(path, nil)
	require.NoError(t, err)
	defer reopened.Close()

	value, ok, err := reopened.GetItem("session_token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "persisted", value)
}

func TestLocalStoreFilePermissions(t *testing.T) {
	_, path := openTestStore(t, nil)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

// xorCipher is reversible and makes ciphertext observable in tests.
type xorCipher struct{ fail bool }

func (c xorCipher) Encrypt(p []byte) ([]byte, error) { return xor(p), nil }

func (c xorCipher) Decrypt(p []byte) ([]byte, error) {
	if c.fail {
		return nil, errors.New("bad key")
	}
	return xor(p), nil
}

func xor(p []byte) []byte {
	out := make([]byte, len(p))
	for i, b := range p {
		out[i] = b ^ 0x5a
	}
	return out
}

func TestLocalStoreCipher(t *testing.T) {
	store, _ := openTestStore(t, xorCipher{})
	require.NoError(t, store.SetItem("session_token", "secret"))

	var raw []byte
	require.NoError(t, store.db.QueryRow(`SELECT value FROM local_storage WHERE key = ?`, "session_token").Scan(&raw))
	assert.False(t, bytes.Equal(raw, []byte("secret")), "value must not be stored in clear")

	value, ok, err := store.GetItem("session_token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "secret", value)

	store.cipher = xorCipher{fail: true}
	_, _, err = store.GetItem("session_token")
	assert.Error(t, err)
}
