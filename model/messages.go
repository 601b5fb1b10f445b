package model

import (
	"agentdesk/backend"
)

// Every message produced by a command carries the navigator generation it was
// issued under. Update drops messages whose generation is no longer current.

type IdentityReadyMsg struct {
	Gen uint64
	Err error
}

type LoginDoneMsg struct {
	Gen    uint64
	Result backend.LoginResult
	Err    error
}

type AgentsLoadedMsg struct {
	Gen    uint64
	Token  string // session token the catalog was requested with
	Agents []Agent
	State  CatalogState
	Err    error
}

type ExchangeDoneMsg struct {
	Gen    uint64
	Result Result
}

type UploadOpenedMsg struct {
	Gen  uint64
	File File
	Err  error
}

type SignedOutMsg struct {
	Err error
}

type ClipboardCopiedMsg struct {
	Err error
}

type FlashTickMsg struct{}
