package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"agentdesk/config"
	appmodel "agentdesk/model"
)

// title (1) + blank (1) + textarea (3) + status (1)
const conversationChrome = 6

type conversationState struct {
	conv     *appmodel.Conversation
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model
	picker   FilePickerState

	notice string
}

func newConversationState(conv *appmodel.Conversation, width, height int) conversationState {
	ta := textarea.New()
	ta.Placeholder = "Type your message here..."
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.SetWidth(80)

	// Enter sends; Alt+Enter inserts a newline
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter"))
	ta.SetPromptFunc(2, func(lineIdx int) string {
		if lineIdx == 0 {
			return "> "
		}
		return "| "
	})

	var accepted []string
	title := "Attach File"
	if conv != nil {
		agent := conv.Agent()
		accepted = extensionsFor(agent.Upload.AcceptedTypes)
		title = agent.Upload.ButtonLabel
		if conv.Mode() == appmodel.ModeConversational {
			ta.Focus()
		}
	}

	c := conversationState{
		conv:     conv,
		viewport: viewport.New(0, 0),
		textarea: ta,
		spinner:  newSpinner(),
		picker: NewFilePickerState(FilePickerConfig{
			Title:        title,
			AllowedTypes: accepted,
		}),
	}
	c.resize(width, height)
	return c
}

func (c conversationState) init() tea.Cmd {
	return tea.Batch(textarea.Blink, c.spinner.Tick)
}

func (c *conversationState) resize(width, height int) {
	viewportHeight := height - conversationChrome
	if viewportHeight < 1 {
		viewportHeight = 1
	}
	c.viewport.Width = width
	c.viewport.Height = viewportHeight
	c.textarea.SetWidth(width)
	c.picker.Picker.Height = height - 12
	c.refresh(false)
}

// refresh re-renders the history into the viewport.
func (c *conversationState) refresh(gotoBottom bool) {
	if c.conv == nil {
		return
	}

	messages := c.conv.Messages()
	if len(messages) == 0 {
		if c.conv.Mode() == appmodel.ModeEvaluateOnly {
			c.viewport.SetContent(DimStyle.Render("Upload a document to have it evaluated."))
		} else {
			c.viewport.SetContent(DimStyle.Render("No messages yet. Say hello!"))
		}
		return
	}

	agentName := c.conv.Agent().Name
	if agentName == "" {
		agentName = "Agent"
	}

	var content strings.Builder
	for _, msg := range messages {
		timestamp := DimStyle.Render(msg.Timestamp.Format("[15:04]"))

		switch msg.Role {
		case appmodel.RoleUser:
			content.WriteString(formatUserMessage(timestamp, UserStyle.Render("You"), msg.Content))
		case appmodel.RoleAgent:
			body := msg.Rendered
			if body == "" {
				body = msg.Content
			}
			content.WriteString(fmt.Sprintf("%s %s\n%s\n\n", timestamp, AgentStyle.Render(agentName), body))
		case appmodel.RolePending:
			content.WriteString(fmt.Sprintf("%s %s\n%s %s\n\n", timestamp, AgentStyle.Render(agentName), c.spinner.View(), DimStyle.Render(msg.Content)))
		default:
			content.WriteString(fmt.Sprintf("%s %s\n%s\n\n", timestamp, DimStyle.Render("System"), WarningStyle.Render(msg.Content)))
		}
	}

	c.viewport.SetContent(content.String())
	if gotoBottom {
		c.viewport.GotoBottom()
	}
}

func (a *AppView) updateConversation(msg tea.Msg) tea.Cmd {
	c := &a.conversation
	if c.conv == nil {
		return nil
	}

	switch msg := msg.(type) {
	case exchangeDoneMsg:
		outcome := c.conv.Resolve(msg.Result)
		if config.DebugLog != nil {
			config.DebugLog.Printf("[UI] exchange resolved: %s", outcome)
		}
		c.refresh(true)
		a.focusInput()
		return nil

	case uploadOpenedMsg:
		c.picker.Reset()
		if msg.Err != nil {
			c.notice = "Could not read file: " + msg.Err.Error()
			return nil
		}
		ex, err := c.conv.BeginUpload(msg.File)
		c.refresh(true)
		if err != nil {
			var rejection *appmodel.RejectionError
			if !errors.As(err, &rejection) && config.DebugLog != nil {
				config.DebugLog.Printf("[UI] upload not started: %v", err)
			}
			return nil
		}
		c.textarea.Blur()
		return tea.Batch(a.dataModel.RunExchange(ex), c.spinner.Tick)

	case spinner.TickMsg:
		var cmds []tea.Cmd
		var cmd tea.Cmd
		c.spinner, cmd = c.spinner.Update(msg)
		cmds = append(cmds, cmd)
		c.picker.Spinner, cmd = c.picker.Spinner.Update(msg)
		cmds = append(cmds, cmd)
		if c.conv.InFlight() {
			c.refresh(false)
		}
		return tea.Batch(cmds...)

	case tea.KeyMsg:
		if c.picker.Active {
			return a.updateFilePicker(msg)
		}
		c.notice = ""

		switch msg.String() {
		case "esc":
			if err := a.dataModel.Navigator.Navigate(appmodel.ViewDashboard, appmodel.NavParams{}); err != nil {
				a.flash = err.Error()
			}
			return nil

		case "enter":
			ex, err := c.conv.BeginText(c.textarea.Value())
			if err != nil {
				// busy, empty or wrong mode: nothing to send
				return nil
			}
			c.textarea.Reset()
			c.textarea.Blur()
			c.refresh(true)
			return tea.Batch(a.dataModel.RunExchange(ex), c.spinner.Tick)

		case "ctrl+o":
			if !c.conv.Controls().Attach {
				if !c.conv.Agent().Upload.Enabled {
					c.notice = "File upload not supported for this agent."
				}
				return nil
			}
			c.picker.Activate()
			return c.picker.Picker.Init()

		case "ctrl+y":
			reply, ok := c.conv.LastReply()
			if !ok {
				return nil
			}
			return appmodel.CopyToClipboard(reply.Content)

		case "pgup", "pgdown", "ctrl+u", "ctrl+d":
			var cmd tea.Cmd
			c.viewport, cmd = c.viewport.Update(msg)
			return cmd
		}

		if !c.conv.Controls().Input {
			return nil
		}
		var cmd tea.Cmd
		c.textarea, cmd = c.textarea.Update(msg)
		return cmd

	case tea.MouseMsg:
		var cmd tea.Cmd
		c.viewport, cmd = c.viewport.Update(msg)
		return cmd
	}

	// filepicker reads directories through its own messages
	if c.picker.Active {
		var cmd tea.Cmd
		c.picker.Picker, cmd = c.picker.Picker.Update(msg)
		return cmd
	}
	return nil
}

func (a *AppView) updateFilePicker(msg tea.KeyMsg) tea.Cmd {
	c := &a.conversation
	if c.picker.Processing {
		return nil
	}
	if msg.String() == "esc" {
		c.picker.Reset()
		return nil
	}

	var cmd tea.Cmd
	c.picker.Picker, cmd = c.picker.Picker.Update(msg)

	if didSelect, path := c.picker.Picker.DidSelectFile(msg); didSelect {
		c.picker.Processing = true
		return tea.Batch(a.dataModel.OpenUpload(path), c.picker.Spinner.Tick)
	}
	if didSelect, path := c.picker.Picker.DidSelectDisabledFile(msg); didSelect {
		c.notice = "Not an accepted file type: " + path
		c.picker.Reset()
		return nil
	}
	return cmd
}

func (a *AppView) focusInput() {
	c := &a.conversation
	if c.conv != nil && c.conv.Controls().Input {
		c.textarea.Focus()
	}
}

func (a AppView) renderConversation() string {
	c := a.conversation
	if c.conv == nil {
		return ""
	}
	if c.picker.Active {
		return RenderFilePickerModal(c.picker, a.width, a.height)
	}

	agent := c.conv.Agent()
	title := a.renderTitle(agent.Title())

	controls := c.conv.Controls()
	var input string
	switch {
	case c.conv.Mode() == appmodel.ModeEvaluateOnly && controls.Attach:
		input = lipgloss.JoinVertical(lipgloss.Left,
			"",
			SelectedStyle.Render(agent.Upload.ButtonLabel)+DimStyle.Render("  Ctrl+O to choose a document"),
			"",
		)
	case c.conv.Mode() == appmodel.ModeEvaluateOnly:
		input = lipgloss.JoinVertical(lipgloss.Left, "", DimStyle.Render(c.spinner.View()+" Evaluating..."), "")
	case !controls.Input:
		input = lipgloss.JoinVertical(lipgloss.Left, "", DimStyle.Render(c.spinner.View()+" Waiting for response..."), "")
	default:
		input = c.textarea.View()
	}

	var footer string
	switch {
	case c.notice != "":
		footer = ErrorStyle.Render(c.notice)
	case c.conv.Mode() == appmodel.ModeEvaluateOnly:
		footer = FormatFooter("Ctrl+O", "Upload", "Ctrl+Y", "Copy result", "Esc", "Agents", "Alt+H", "Help")
	case agent.Upload.Enabled:
		footer = FormatFooter("Enter", "Send", "Ctrl+O", "Attach", "Ctrl+Y", "Copy reply", "Esc", "Agents", "Alt+H", "Help")
	default:
		footer = FormatFooter("Enter", "Send", "Ctrl+Y", "Copy reply", "Esc", "Agents", "Alt+H", "Help")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		c.viewport.View(),
		input,
		a.renderStatus(footer),
	)
}
