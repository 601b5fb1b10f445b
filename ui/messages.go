package ui

import (
	"agentdesk/model"
)

type Message = model.Message

type identityReadyMsg = model.IdentityReadyMsg
type loginDoneMsg = model.LoginDoneMsg
type agentsLoadedMsg = model.AgentsLoadedMsg
type exchangeDoneMsg = model.ExchangeDoneMsg
type uploadOpenedMsg = model.UploadOpenedMsg
type signedOutMsg = model.SignedOutMsg
type clipboardCopiedMsg = model.ClipboardCopiedMsg
type flashTickMsg = model.FlashTickMsg
