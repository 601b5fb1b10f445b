package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"agentdesk/backend"
	"agentdesk/config"
	"agentdesk/identity"
	"agentdesk/model"
	"agentdesk/storage"
	"agentdesk/ui"
)

const (
	Version = "v0.01.00"
	License = "Apache-2.0"
)

type flags struct {
	proxyURL string
	dataDir  string
	debug    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags

	root := &cobra.Command{
		Use:           "agentdesk",
		Short:         "Terminal client for the agent proxy",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(f)
		},
	}
	root.PersistentFlags().StringVar(&f.proxyURL, "proxy-url", "", "agent proxy base URL (overrides config and "+config.EnvProxyURL+")")
	root.PersistentFlags().StringVar(&f.dataDir, "data-dir", "", "data directory (overrides "+config.EnvDataDir+")")
	root.PersistentFlags().BoolVar(&f.debug, "debug", false, "write debug.log to the data directory")

	root.AddCommand(
		&cobra.Command{
			Use:   "logout",
			Short: "Forget the stored session",
			RunE: func(cmd *cobra.Command, args []string) error {
				return logout(cmd, f)
			},
		},
		newConfigureCmd(&f),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "agentdesk %s (%s)\n", Version, License)
			},
		},
	)
	return root
}

// loadConfig applies flag overrides on top of config files and environment.
func loadConfig(f flags) (*config.Config, error) {
	if f.dataDir != "" {
		if err := os.Setenv(config.EnvDataDir, f.dataDir); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if f.proxyURL != "" {
		cfg.ProxyURL = strings.TrimRight(f.proxyURL, "/")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openStore(cfg *config.Config) (*storage.LocalStore, error) {
	encryption := config.NewEncryptionManager(cfg.Security, cfg.SSHKeyPath)
	if passphrase := os.Getenv(config.EnvPassphrase); passphrase != "" {
		encryption.SetPassphrase(passphrase)
	}
	if err := encryption.Initialize(); err != nil {
		if errors.Is(err, config.ErrPassphraseRequired) {
			return nil, fmt.Errorf("%w\n\nSet %s or configure an unencrypted key with ssh_key_path", err, config.EnvPassphrase)
		}
		return nil, fmt.Errorf("failed to initialize encryption: %w", err)
	}

	var cipher storage.Cipher
	if cfg.Security == config.SecuritySSHKey {
		cipher = encryption
	}
	return storage.OpenLocalStore(config.GetLocalStorePath(cfg.DataDir()), cipher)
}

func showError(title string, err error) {
	p := tea.NewProgram(ui.NewErrorModal(title, err.Error()), tea.WithAltScreen())
	if _, runErr := p.Run(); runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
}

func run(f flags) error {
	cfg, err := loadConfig(f)
	if err != nil {
		showError("Configuration Error", err)
		return err
	}

	config.InitDebugLog(cfg.DataDir(), f.debug)

	store, err := openStore(cfg)
	if err != nil {
		showError("Storage Error", err)
		return err
	}
	defer func() {
		if err := store.Close(); err != nil && config.DebugLog != nil {
			config.DebugLog.Printf("Warning: failed to close local store: %v", err)
		}
	}()

	client, err := backend.NewClient(cfg.ProxyURL, cfg.RequestTimeout)
	if err != nil {
		showError("Configuration Error", err)
		return err
	}

	provider, err := identity.New(cfg)
	if err != nil {
		showError("Configuration Error", err)
		return err
	}

	renderer := ui.NewMarkdownRenderer(80)
	dataModel := model.NewModel(cfg, client, store, provider, Version, License, model.WithRenderer(renderer.Render))

	// Restore verifies the stored token before the first frame
	view := dataModel.Navigator.Start(context.Background())
	if config.DebugLog != nil {
		config.DebugLog.Printf("Starting at %s view, proxy %s", view, cfg.ProxyURL)
	}

	p := tea.NewProgram(
		ui.NewAppView(dataModel, renderer),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err = p.Run()
	return err
}

type configureFlags struct {
	identity       string
	clientID       string
	security       string
	sshKeyPath     string
	requestTimeout string
}

func newConfigureCmd(f *flags) *cobra.Command {
	var c configureFlags

	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Write settings to the user config file",
		Long: "Persists the given settings to <data-dir>/config.toml. Only flags that are\n" +
			"passed are changed; --proxy-url is saved instead of applied for one run.",
		Example: "  agentdesk configure --proxy-url https://agents.example.com\n" +
			"  agentdesk configure --security ssh_key --ssh-key-path ~/.ssh/id_ed25519",
		RunE: func(cmd *cobra.Command, args []string) error {
			return configure(cmd, *f, c)
		},
	}
	cmd.Flags().StringVar(&c.identity, "identity", "", "identity provider: "+config.IdentityPrompt+" or "+config.IdentityEnv)
	cmd.Flags().StringVar(&c.clientID, "client-id", "", "identity provider client ID")
	cmd.Flags().StringVar(&c.security, "security", "", "token storage: "+string(config.SecurityPlainText)+" or "+string(config.SecuritySSHKey))
	cmd.Flags().StringVar(&c.sshKeyPath, "ssh-key-path", "", "SSH key used to encrypt the stored session token")
	cmd.Flags().StringVar(&c.requestTimeout, "request-timeout", "", "proxy request timeout, e.g. 90s")
	return cmd
}

func configure(cmd *cobra.Command, f flags, c configureFlags) error {
	if f.dataDir != "" {
		if err := os.Setenv(config.EnvDataDir, f.dataDir); err != nil {
			return err
		}
	}
	dataDir, err := config.ResolveDataDir()
	if err != nil {
		return err
	}

	changed := func(name string) bool { return cmd.Flags().Changed(name) }
	err = config.UpdateUserConfig(dataDir, func(u *config.UserConfig) {
		if changed("proxy-url") {
			u.Proxy.URL = strings.TrimRight(f.proxyURL, "/")
		}
		if changed("request-timeout") {
			u.Proxy.RequestTimeout = c.requestTimeout
		}
		if changed("identity") {
			u.Identity.Provider = c.identity
		}
		if changed("client-id") {
			u.Identity.ClientID = c.clientID
		}
		if changed("security") {
			u.Security.Method = config.SecurityMethod(c.security)
		}
		if changed("ssh-key-path") {
			u.Security.SSHKeyPath = c.sshKeyPath
		}
	})
	if err != nil {
		return fmt.Errorf("config not saved: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", config.GetUserConfigPath(dataDir))
	return nil
}

func logout(cmd *cobra.Command, f flags) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := model.NewSessionStore(store, nil).Clear(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
	return nil
}
