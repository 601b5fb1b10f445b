package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"agentdesk/config"
	appmodel "agentdesk/model"
)

const flashDuration = 2 * time.Second

// AppView is the root bubbletea model. It renders whichever view the
// navigator has active and rebuilds that view's state whenever the
// navigator's generation moves on.
type AppView struct {
	// Reference to core data model
	dataModel *appmodel.Model
	renderer  *MarkdownRenderer

	// Window state
	width  int
	height int
	ready  bool

	// Generation of the navigator the current view state was built for
	gen  uint64
	view appmodel.View

	login        loginState
	dashboard    dashboardState
	conversation conversationState

	showHelp bool
	flash    string

	initCmd tea.Cmd
}

func NewAppView(dataModel *appmodel.Model, renderer *MarkdownRenderer) AppView {
	if renderer == nil {
		renderer = NewMarkdownRenderer(80)
	}
	a := AppView{
		dataModel: dataModel,
		renderer:  renderer,
	}
	a.initCmd = a.syncView()
	return a
}

func (a AppView) Init() tea.Cmd {
	return a.initCmd
}

// syncView rebuilds view state when the navigator moved since the last
// update. It returns the new view's startup command.
func (a *AppView) syncView() tea.Cmd {
	nav := a.dataModel.Navigator
	gen := nav.Generation()
	if gen == a.gen && a.gen != 0 {
		return nil
	}
	a.gen = gen
	a.view = nav.View()

	if config.DebugLog != nil {
		config.DebugLog.Printf("[UI] entering %s view (generation %d)", a.view, gen)
	}

	switch a.view {
	case appmodel.ViewDashboard:
		a.dashboard = newDashboardState()
		return tea.Batch(a.dashboard.spinner.Tick, a.dataModel.LoadAgents())
	case appmodel.ViewConversation:
		a.conversation = newConversationState(nav.Conversation(), a.width, a.height)
		a.conversation.refresh(true)
		return a.conversation.init()
	default:
		a.login = newLoginState(a.dataModel.Identity)
		return tea.Batch(a.login.init(), a.dataModel.AwaitIdentity())
	}
}

func (a AppView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.renderer.SetWidth(msg.Width)
		a.conversation.resize(msg.Width, msg.Height)
		a.ready = true
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit
		case "alt+h":
			a.showHelp = !a.showHelp
			return a, nil
		case "esc":
			if a.showHelp {
				a.showHelp = false
				return a, nil
			}
		case "alt+l":
			if a.view != appmodel.ViewLogin {
				cmds = append(cmds, a.dataModel.SignOut())
				cmds = append(cmds, a.syncView())
				return a, tea.Batch(cmds...)
			}
		}
		if a.showHelp {
			return a, nil
		}

	case signedOutMsg:
		if msg.Err != nil && config.DebugLog != nil {
			config.DebugLog.Printf("[UI] sign-out: %v", msg.Err)
		}
		return a, a.syncView()

	case clipboardCopiedMsg:
		if msg.Err != nil {
			a.flash = "Copy failed: " + msg.Err.Error()
		} else {
			a.flash = "Copied last reply to clipboard"
		}
		return a, tea.Tick(flashDuration, func(time.Time) tea.Msg { return flashTickMsg{} })

	case flashTickMsg:
		a.flash = ""
		return a, nil
	}

	if stale(a.dataModel.Navigator, msg) {
		if a.dataModel.HandleLateRejection(msg) {
			return a, a.syncView()
		}
		if config.DebugLog != nil {
			config.DebugLog.Printf("[UI] dropping %T from an abandoned view", msg)
		}
		return a, nil
	}

	switch a.view {
	case appmodel.ViewDashboard:
		cmds = append(cmds, a.updateDashboard(msg))
	case appmodel.ViewConversation:
		cmds = append(cmds, a.updateConversation(msg))
	default:
		cmds = append(cmds, a.updateLogin(msg))
	}

	// Any of the handlers may have moved the navigator
	cmds = append(cmds, a.syncView())
	return a, tea.Batch(cmds...)
}

// stale reports whether msg was issued for a view that has since been left.
func stale(nav *appmodel.Navigator, msg tea.Msg) bool {
	var gen uint64
	switch msg := msg.(type) {
	case identityReadyMsg:
		gen = msg.Gen
	case loginDoneMsg:
		gen = msg.Gen
	case agentsLoadedMsg:
		gen = msg.Gen
	case exchangeDoneMsg:
		gen = msg.Gen
	case uploadOpenedMsg:
		gen = msg.Gen
	default:
		return false
	}
	return !nav.Current(gen)
}

func (a AppView) View() string {
	if !a.ready {
		return "Loading agentdesk..."
	}
	if a.width < 20 || a.height < 10 {
		return "Terminal too small"
	}

	if a.showHelp {
		return a.renderHelpModal(a.width, a.height)
	}

	switch a.view {
	case appmodel.ViewDashboard:
		return a.renderDashboard()
	case appmodel.ViewConversation:
		return a.renderConversation()
	default:
		return a.renderLogin()
	}
}

// renderTitle is the one-line header shared by the signed-in views.
func (a AppView) renderTitle(section string) string {
	title := AgentStyle.Bold(true).Render("agentdesk")
	if section != "" {
		title += TitleStyle.Render(" - " + section)
	}
	if user := a.dataModel.Sessions.Get().User; user != nil {
		title += DimStyle.Render(" | " + user.Email)
	}
	return lipgloss.NewStyle().MaxWidth(a.width).Render(title)
}

func (a AppView) renderStatus(footer string) string {
	if a.flash != "" {
		return SelectedStyle.Render(a.flash)
	}
	return lipgloss.NewStyle().Width(a.width).Render(footer)
}

func newSpinner() spinner.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(accentColor)
	return sp
}
