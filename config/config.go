package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type SystemConfig struct {
	DataDirectory string `toml:"data_directory"`
}

type ProxyConfig struct {
	URL            string `toml:"url"`
	RequestTimeout string `toml:"request_timeout,omitempty"`
}

type IdentityConfig struct {
	Provider string `toml:"provider"`
	ClientID string `toml:"client_id,omitempty"`
}

type SecurityConfig struct {
	Method     SecurityMethod `toml:"method"`
	SSHKeyPath string         `toml:"ssh_key_path,omitempty"`
}

type UserConfig struct {
	Proxy    ProxyConfig    `toml:"proxy"`
	Identity IdentityConfig `toml:"identity"`
	Security SecurityConfig `toml:"security"`
}

type Config struct {
	DataDirectory    string
	ProxyURL         string
	RequestTimeout   time.Duration
	IdentityProvider string
	ClientID         string
	Security         SecurityMethod
	SSHKeyPath       string
}

const (
	EnvProxyURL   = "AGENTDESK_PROXY_URL"
	EnvDataDir    = "AGENTDESK_DATA_DIR"
	EnvCredential = "AGENTDESK_CREDENTIAL"
	EnvDebug      = "AGENTDESK_DEBUG"
	EnvPassphrase = "AGENTDESK_SSH_PASSPHRASE"
)

var Debug = false
var DebugLog *zerolog.Logger

func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

func (c *Config) applyEnvOverrides() {
	if proxyURL := os.Getenv(EnvProxyURL); proxyURL != "" {
		c.ProxyURL = proxyURL
	}
	if dataDir := os.Getenv(EnvDataDir); dataDir != "" {
		c.DataDirectory = dataDir
	}
}

// Validate checks the fields the client cannot start without.
func (c *Config) Validate() error {
	if c.ProxyURL == "" {
		return fmt.Errorf("proxy url is not configured (set [proxy] url or %s)", EnvProxyURL)
	}
	u, err := url.Parse(c.ProxyURL)
	if err != nil {
		return fmt.Errorf("invalid proxy url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid proxy url %q: scheme must be http or https", c.ProxyURL)
	}
	switch c.Security {
	case SecurityPlainText, SecuritySSHKey:
	default:
		return fmt.Errorf("unknown security method: %s", c.Security)
	}
	switch c.IdentityProvider {
	case IdentityEnv, IdentityPrompt:
	default:
		return fmt.Errorf("unknown identity provider: %s", c.IdentityProvider)
	}
	return nil
}

func CheckDebug() bool {
	debug := os.Getenv(EnvDebug)
	return debug == "true" || debug == "1"
}

// InitDebugLog opens <dataDir>/debug.log when debugging is requested through
// the environment or the force flag. DebugLog stays nil otherwise.
func InitDebugLog(dataDir string, force bool) {
	if !force && !CheckDebug() {
		return
	}

	Debug = true
	logPath := filepath.Join(dataDir, "debug.log")

	// 0600: request logs name agents and users
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not open debug log at %s: %v\n", logPath, err)
		return
	}

	logger := zerolog.New(f).With().Timestamp().Caller().Logger()
	DebugLog = &logger
	DebugLog.Printf("=== Debug logging started (%s=%s) ===", EnvDebug, os.Getenv(EnvDebug))
	DebugLog.Printf("Log path: %s", logPath)
}

// ResolveDataDir picks the data directory from settings.toml and
// AGENTDESK_DATA_DIR, creating it with 0700 permissions.
func ResolveDataDir() (string, error) {
	systemCfg, err := LoadSystemConfig()
	if err != nil {
		return "", fmt.Errorf("failed to load system config: %w", err)
	}
	dataDir := GetDefaultDataDir()
	if systemCfg.DataDirectory != "" {
		dataDir = systemCfg.DataDirectory
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		dataDir = env
	}
	dataDir = ExpandPath(dataDir)

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := EnsureDataDirPermissions(dataDir); err != nil {
		return "", fmt.Errorf("failed to set data directory permissions: %w", err)
	}
	return dataDir, nil
}

func Load() (*Config, error) {
	defaults := DefaultUserConfig()
	cfg := &Config{
		DataDirectory:    GetDefaultDataDir(),
		ProxyURL:         defaults.Proxy.URL,
		IdentityProvider: defaults.Identity.Provider,
		Security:         defaults.Security.Method,
	}

	dataDir, err := ResolveDataDir()
	if err != nil {
		return nil, err
	}
	cfg.DataDirectory = dataDir

	userCfg, err := LoadUserConfig(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	if err := cfg.applyUserConfig(userCfg); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyUserConfig(userCfg *UserConfig) error {
	if userCfg.Proxy.URL != "" {
		c.ProxyURL = strings.TrimRight(userCfg.Proxy.URL, "/")
	}
	if userCfg.Proxy.RequestTimeout != "" {
		timeout, err := time.ParseDuration(userCfg.Proxy.RequestTimeout)
		if err != nil {
			return fmt.Errorf("invalid request_timeout %q: %w", userCfg.Proxy.RequestTimeout, err)
		}
		c.RequestTimeout = timeout
	}
	if userCfg.Identity.Provider != "" {
		c.IdentityProvider = userCfg.Identity.Provider
	}
	c.ClientID = userCfg.Identity.ClientID
	if userCfg.Security.Method != "" {
		c.Security = userCfg.Security.Method
	}
	c.SSHKeyPath = ExpandPath(userCfg.Security.SSHKeyPath)
	if c.Security == SecuritySSHKey && c.SSHKeyPath == "" {
		keys, err := FindSSHKeys()
		if err != nil || len(keys) == 0 {
			return fmt.Errorf("security method %s requires ssh_key_path and no key was found in ~/.ssh", SecuritySSHKey)
		}
		c.SSHKeyPath = keys[0]
	}
	return nil
}
