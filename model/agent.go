package model

import (
	"strings"

	"agentdesk/backend"
)

// Mode selects how a conversation behaves. It is fixed when the conversation
// is entered.
type Mode int

const (
	ModeConversational Mode = iota
	ModeEvaluateOnly
)

func (m Mode) String() string {
	switch m {
	case ModeEvaluateOnly:
		return "evaluate-only"
	default:
		return "conversational"
	}
}

// ParseMode maps the wire mode string. Anything other than "evaluate-only"
// is conversational.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), "evaluate-only") {
		return ModeEvaluateOnly
	}
	return ModeConversational
}

const (
	defaultUploadEndpoint   = "upload"
	defaultEvaluateEndpoint = "evaluate"
	defaultUploadButton     = "📎 Upload File"
)

// UploadPolicy governs whether and what files may be sent to an agent.
// An empty AcceptedTypes means any type; a zero SizeLimit means no limit.
type UploadPolicy struct {
	Enabled       bool
	AcceptedTypes []string
	SizeLimit     int64
	Endpoint      string
	ButtonLabel   string
}

// Agent is immutable for the lifetime of a conversation.
type Agent struct {
	ID          string
	Name        string
	Icon        string
	Description string
	Mode        Mode
	Upload      UploadPolicy
}

func (a Agent) Title() string {
	if a.Icon == "" {
		return a.Name
	}
	return a.Icon + " " + a.Name
}

// AgentFromWire converts a catalog entry. Evaluate-only agents exist to take
// documents, so their upload policy is always enabled.
func AgentFromWire(w backend.Agent) Agent {
	agent := Agent{
		ID:          w.ID,
		Name:        w.Name,
		Icon:        w.Icon,
		Description: w.Description,
		Mode:        ParseMode(w.Mode),
	}

	if fu := w.Features.FileUpload; fu != nil {
		agent.Upload = UploadPolicy{
			Enabled:       fu.Enabled,
			AcceptedTypes: append([]string(nil), fu.AcceptedTypes...),
			SizeLimit:     fu.MaxSize,
			Endpoint:      fu.Endpoint,
			ButtonLabel:   fu.ButtonLabel,
		}
	}

	if agent.Mode == ModeEvaluateOnly {
		agent.Upload.Enabled = true
		if agent.Upload.Endpoint == "" {
			agent.Upload.Endpoint = defaultEvaluateEndpoint
		}
	}
	if agent.Upload.Endpoint == "" {
		agent.Upload.Endpoint = defaultUploadEndpoint
	}
	if agent.Upload.ButtonLabel == "" {
		agent.Upload.ButtonLabel = defaultUploadButton
	}

	return agent
}

func AgentsFromWire(ws []backend.Agent) []Agent {
	agents := make([]Agent, 0, len(ws))
	for _, w := range ws {
		agents = append(agents, AgentFromWire(w))
	}
	return agents
}
