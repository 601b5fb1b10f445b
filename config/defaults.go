package config

const (
	IdentityEnv    = "env"
	IdentityPrompt = "prompt"
)

func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		DataDirectory: "~/.local/share/agentdesk",
	}
}

func DefaultUserConfig() *UserConfig {
	return &UserConfig{
		Proxy: ProxyConfig{
			URL: "http://localhost:8000",
		},
		Identity: IdentityConfig{
			Provider: IdentityPrompt,
		},
		Security: SecurityConfig{
			Method: SecurityPlainText,
		},
	}
}

func GenerateSystemConfigTemplate() string {
	return `# agentdesk System Configuration
# Location: ~/.config/agentdesk/settings.toml
# This file uses TOML format: https://toml.io

# Directory where the session token store and user config are kept
data_directory = "~/.local/share/agentdesk"
`
}

func GenerateUserConfigTemplate() string {
	return `# agentdesk User Configuration
# Location: <data_directory>/config.toml
# This file uses TOML format: https://toml.io

[proxy]
# Base URL of the agent proxy
url = "http://localhost:8000"

# Optional transport timeout (Go duration, e.g. "90s"). Empty means no timeout.
request_timeout = ""

[identity]
# "prompt": paste the identity-provider credential or code on the login screen
# "env":    read it from AGENTDESK_CREDENTIAL
provider = "prompt"
client_id = ""

[security]
# How the session token is stored at rest: "plaintext" or "ssh_key"
method = "plaintext"
ssh_key_path = ""
`
}
