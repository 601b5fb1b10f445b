package config

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvProxyURL, "")
	t.Setenv(EnvDataDir, "")
	t.Setenv(EnvCredential, "")
	t.Setenv(EnvDebug, "")
	return home
}

func TestLoadCreatesDefaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.ProxyURL)
	assert.Equal(t, IdentityPrompt, cfg.IdentityProvider)
	assert.Equal(t, SecurityPlainText, cfg.Security)
	assert.Equal(t, filepath.Join(home, ".local", "share", "agentdesk"), cfg.DataDir())
	assert.FileExists(t, GetSettingsFilePath())
	assert.FileExists(t, GetUserConfigPath(cfg.DataDir()))
	require.NoError(t, cfg.Validate())

	info, err := os.Stat(cfg.DataDir())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
}

func TestLoadReadsUserConfigAndEnv(t *testing.T) {
	isolate(t)
	dataDir := t.TempDir()
	t.Setenv(EnvDataDir, dataDir)

	userCfg := DefaultUserConfig()
	userCfg.Proxy.URL = "https://agents.example.com/"
	userCfg.Proxy.RequestTimeout = "90s"
	userCfg.Identity.Provider = IdentityEnv
	require.NoError(t, SaveUserConfig(userCfg, dataDir))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, dataDir, cfg.DataDir())
	assert.Equal(t, "https://agents.example.com", cfg.ProxyURL)
	assert.Equal(t, 90*time.Second, cfg.RequestTimeout)
	assert.Equal(t, IdentityEnv, cfg.IdentityProvider)

	t.Setenv(EnvProxyURL, "http://127.0.0.1:9000")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9000", cfg.ProxyURL)
}

func TestLoadRejectsBadTimeout(t *testing.T) {
	isolate(t)
	dataDir := t.TempDir()
	t.Setenv(EnvDataDir, dataDir)

	userCfg := DefaultUserConfig()
	userCfg.Proxy.RequestTimeout = "soon"
	require.NoError(t, SaveUserConfig(userCfg, dataDir))

	_, err := Load()
	assert.ErrorContains(t, err, "invalid request_timeout")
}

func TestUpdateUserConfig(t *testing.T) {
	isolate(t)
	dataDir := t.TempDir()
	t.Setenv(EnvDataDir, dataDir)

	require.NoError(t, UpdateUserConfig(dataDir, func(u *UserConfig) {
		u.Proxy.URL = "https://agents.example.com"
		u.Identity.ClientID = "client-123"
	}))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://agents.example.com", cfg.ProxyURL)
	assert.Equal(t, "client-123", cfg.ClientID)

	err = UpdateUserConfig(dataDir, func(u *UserConfig) { u.Proxy.URL = "ftp://nowhere" })
	assert.ErrorContains(t, err, "scheme must be http or https")

	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "https://agents.example.com", cfg.ProxyURL)
}

func TestValidate(t *testing.T) {
	valid := Config{ProxyURL: "https://proxy.example.com", Security: SecurityPlainText, IdentityProvider: IdentityPrompt}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing url", func(c *Config) { c.ProxyURL = "" }, "not configured"},
		{"bad scheme", func(c *Config) { c.ProxyURL = "ftp://proxy" }, "scheme must be http or https"},
		{"bad security", func(c *Config) { c.Security = "rot13" }, "unknown security method"},
		{"bad identity", func(c *Config) { c.IdentityProvider = "carrier-pigeon" }, "unknown identity provider"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func writeEd25519Key(t *testing.T) string {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	block, err := ssh.MarshalPrivateKey(priv, "test key")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id_ed25519")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0600))
	return path
}

func TestSSHKeyEncryptionRoundTrip(t *testing.T) {
	keyPath := writeEd25519Key(t)

	em := NewEncryptionManager(SecuritySSHKey, keyPath)
	require.NoError(t, em.Initialize())

	ciphertext, err := em.Encrypt([]byte("tok-secret"))
	require.NoError(t, err)
	assert.NotContains(t, string(ciphertext), "tok-secret")

	// A second manager over the same key derives the same AES key
	again := NewEncryptionManager(SecuritySSHKey, keyPath)
	require.NoError(t, again.Initialize())
	plaintext, err := again.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "tok-secret", string(plaintext))
}

func TestEncryptionRequiresInitialize(t *testing.T) {
	em := NewEncryptionManager(SecuritySSHKey, writeEd25519Key(t))
	_, err := em.Encrypt([]byte("x"))
	assert.ErrorContains(t, err, "not initialized")

	plain := NewEncryptionManager(SecurityPlainText, "")
	require.NoError(t, plain.Initialize())
	out, err := plain.Encrypt([]byte("x"))
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), out)
}

func TestExpandPath(t *testing.T) {
	home := isolate(t)
	assert.Equal(t, filepath.Join(home, "data"), ExpandPath("~/data"))
	assert.Equal(t, "", ExpandPath(""))
}
