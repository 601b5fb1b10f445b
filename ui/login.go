package ui

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"agentdesk/identity"
	appmodel "agentdesk/model"
)

type loginState struct {
	provider identity.Provider
	input    textinput.Model
	kind     identity.ArtifactKind
	spinner  spinner.Model

	ready   bool
	busy    bool
	attempt bool // non-interactive providers sign in once, automatically
	notice  string
}

func newLoginState(provider identity.Provider) loginState {
	ti := textinput.New()
	ti.Placeholder = "Paste the ID token from your identity provider"
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	ti.CharLimit = 0
	ti.Width = 50
	ti.Focus()

	return loginState{
		provider: provider,
		input:    ti,
		spinner:  newSpinner(),
	}
}

func (l loginState) init() tea.Cmd {
	return tea.Batch(textinput.Blink, l.spinner.Tick)
}

func (l *loginState) toggleKind() {
	if l.kind == identity.KindCredential {
		l.kind = identity.KindCode
		l.input.Placeholder = "Paste the authorization code"
	} else {
		l.kind = identity.KindCredential
		l.input.Placeholder = "Paste the ID token from your identity provider"
	}
}

func (a *AppView) updateLogin(msg tea.Msg) tea.Cmd {
	l := &a.login

	switch msg := msg.(type) {
	case identityReadyMsg:
		if msg.Err != nil {
			l.notice = msg.Err.Error()
			return nil
		}
		l.ready = true
		if l.provider != nil && !l.provider.Interactive() && !l.attempt {
			l.attempt = true
			l.busy = true
			return a.dataModel.Login(identity.Input{})
		}
		return nil

	case loginDoneMsg:
		l.busy = false
		if msg.Err != nil {
			l.notice = appmodel.LoginNotice(msg.Err)
			return nil
		}
		if err := a.dataModel.CompleteLogin(msg); err != nil {
			l.notice = err.Error()
		}
		return nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		l.spinner, cmd = l.spinner.Update(msg)
		return cmd

	case tea.KeyMsg:
		if l.busy {
			return nil
		}
		switch msg.String() {
		case "tab":
			l.toggleKind()
			return nil
		case "enter":
			if !l.ready || l.provider == nil || !l.provider.Interactive() {
				return nil
			}
			l.busy = true
			l.notice = ""
			in := identity.Input{Kind: l.kind, Value: l.input.Value()}
			l.input.Reset()
			return a.dataModel.Login(in)
		}
	}

	var cmd tea.Cmd
	l.input, cmd = l.input.Update(msg)
	return cmd
}

func (a AppView) renderLogin() string {
	l := a.login
	modalWidth := modalWidthFor(64, a.width)
	line := lipgloss.NewStyle().Width(modalWidth)

	var lines []string
	switch {
	case !l.ready && l.notice == "":
		lines = append(lines, line.Render(l.spinner.View()+" Waiting for identity provider..."))
	case l.busy:
		lines = append(lines, line.Render(l.spinner.View()+" Signing in..."))
	case l.provider != nil && !l.provider.Interactive():
		lines = append(lines, line.Render("Signing in with the credential from the environment."))
	default:
		lines = append(lines,
			line.Render(DimStyle.Render("Sign in with your "+l.kind.String()+":")),
			line.Render(inputStyle.Width(modalWidth-4).Render(l.input.View())),
		)
	}

	if l.notice != "" {
		lines = append(lines, line.Render(""))
		for _, wrapped := range centeredLines(l.notice, modalWidth) {
			lines = append(lines, ErrorStyle.Render(wrapped))
		}
	}

	footer := FormatFooter("Enter", "Sign in", "Tab", "Token/Code", "Ctrl+C", "Quit")
	if l.provider != nil && !l.provider.Interactive() {
		footer = FormatFooter("Ctrl+C", "Quit")
	}
	return RenderThreeSectionModal("🔐 agentdesk", lines, footer, ModalTypeInfo, modalWidth, a.width, a.height)
}
