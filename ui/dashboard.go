package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	appmodel "agentdesk/model"
)

type dashboardState struct {
	state    appmodel.CatalogState
	agents   []appmodel.Agent // filtered view of the catalog
	total    int
	selected int

	filterMode  bool
	filterInput textinput.Model
	spinner     spinner.Model
}

func newDashboardState() dashboardState {
	fi := textinput.New()
	fi.Prompt = "Filter: "
	fi.CharLimit = 64

	return dashboardState{
		state:       appmodel.CatalogLoading,
		filterInput: fi,
		spinner:     newSpinner(),
	}
}

func (d *dashboardState) applyFilter(directory *appmodel.AgentDirectory) {
	d.agents = directory.Filter(d.filterInput.Value())
	if d.selected >= len(d.agents) {
		d.selected = len(d.agents) - 1
	}
	if d.selected < 0 {
		d.selected = 0
	}
}

func (a *AppView) updateDashboard(msg tea.Msg) tea.Cmd {
	d := &a.dashboard

	switch msg := msg.(type) {
	case agentsLoadedMsg:
		if msg.State == appmodel.CatalogSignedOut {
			a.dataModel.Navigator.HandleAuthFailure()
			return nil
		}
		d.state = msg.State
		d.total = len(msg.Agents)
		d.applyFilter(a.dataModel.Directory)
		return nil

	case spinner.TickMsg:
		if d.state != appmodel.CatalogLoading {
			return nil
		}
		var cmd tea.Cmd
		d.spinner, cmd = d.spinner.Update(msg)
		return cmd

	case tea.KeyMsg:
		if d.filterMode {
			return a.updateDashboardFilter(msg)
		}

		switch msg.String() {
		case "j", "down":
			if d.selected < len(d.agents)-1 {
				d.selected++
			}
		case "k", "up":
			if d.selected > 0 {
				d.selected--
			}
		case "/":
			if d.state == appmodel.CatalogReady {
				d.filterMode = true
				return d.filterInput.Focus()
			}
		case "r":
			if d.state != appmodel.CatalogLoading {
				d.state = appmodel.CatalogLoading
				return tea.Batch(d.spinner.Tick, a.dataModel.LoadAgents())
			}
		case "enter":
			if d.state == appmodel.CatalogReady && d.selected < len(d.agents) {
				agent := d.agents[d.selected]
				if err := a.dataModel.Navigator.Navigate(appmodel.ViewConversation, appmodel.NavParams{Agent: &agent}); err != nil {
					a.flash = err.Error()
				}
			}
		case "q":
			return tea.Quit
		}
	}

	return nil
}

func (a *AppView) updateDashboardFilter(msg tea.KeyMsg) tea.Cmd {
	d := &a.dashboard

	switch msg.String() {
	case "esc":
		d.filterMode = false
		d.filterInput.Reset()
		d.filterInput.Blur()
		d.applyFilter(a.dataModel.Directory)
		return nil
	case "enter":
		d.filterMode = false
		d.filterInput.Blur()
		return nil
	case "alt+j", "down":
		if d.selected < len(d.agents)-1 {
			d.selected++
		}
		return nil
	case "alt+k", "up":
		if d.selected > 0 {
			d.selected--
		}
		return nil
	}

	var cmd tea.Cmd
	d.filterInput, cmd = d.filterInput.Update(msg)
	d.selected = 0
	d.applyFilter(a.dataModel.Directory)
	return cmd
}

func (a AppView) renderDashboard() string {
	d := a.dashboard
	modalWidth := a.width - 10
	if modalWidth > 90 {
		modalWidth = 90
	}
	if modalWidth < 10 {
		modalWidth = 10
	}

	var header string
	switch {
	case d.filterMode:
		header = d.filterInput.View()
	case d.state == appmodel.CatalogReady && len(d.agents) != d.total:
		header = fmt.Sprintf("%d of %d agents", len(d.agents), d.total)
	case d.state == appmodel.CatalogReady:
		header = fmt.Sprintf("%d agents", d.total)
	default:
		header = "Your agents"
	}

	headerSection := lipgloss.NewStyle().
		Foreground(dimColor).
		Align(lipgloss.Center).
		Width(modalWidth).
		BorderTop(true).
		BorderBottom(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimColor).
		Render(header)

	body := a.renderAgentList(modalWidth)

	var footer string
	switch {
	case d.filterMode:
		footer = FormatFooter("Type", "to filter", "Alt+J/K", "Navigate", "Enter", "Done", "Esc", "Clear")
	case d.state == appmodel.CatalogFailed:
		footer = FormatFooter("r", "Retry", "Alt+L", "Sign out", "Alt+H", "Help")
	default:
		footer = FormatFooter("/", "Filter", "j/k", "Navigate", "Enter", "Open", "r", "Reload", "Alt+L", "Sign out")
	}
	footerSection := lipgloss.NewStyle().
		Align(lipgloss.Center).
		Width(modalWidth).
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimColor).
		Render(footer)

	content := strings.Join([]string{
		lipgloss.NewStyle().Width(modalWidth).Align(lipgloss.Center).Render(a.renderTitle("Agents")),
		headerSection,
		body,
		footerSection,
	}, "\n")

	view := lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, content)
	if a.flash != "" {
		view = lipgloss.JoinVertical(lipgloss.Left, view, a.renderStatus(""))
	}
	return view
}

func (a AppView) renderAgentList(modalWidth int) string {
	d := a.dashboard
	centered := lipgloss.NewStyle().Width(modalWidth).Align(lipgloss.Center)
	emptyLine := strings.Repeat(" ", modalWidth)

	switch d.state {
	case appmodel.CatalogLoading:
		return strings.Join([]string{emptyLine, centered.Render(d.spinner.View() + " Loading agents..."), emptyLine}, "\n")
	case appmodel.CatalogEmpty:
		return strings.Join([]string{emptyLine, centered.Render(DimStyle.Italic(true).Render(d.state.Notice())), emptyLine}, "\n")
	case appmodel.CatalogFailed:
		return strings.Join([]string{emptyLine, centered.Render(ErrorStyle.Render(d.state.Notice())), emptyLine}, "\n")
	}

	if len(d.agents) == 0 {
		return strings.Join([]string{emptyLine, centered.Render(DimStyle.Italic(true).Render("No matches found")), emptyLine}, "\n")
	}

	// Each agent takes two lines: title and description
	maxItems := (a.height - 12) / 2
	if maxItems < 1 {
		maxItems = 1
	}
	startIdx, endIdx := 0, len(d.agents)
	if len(d.agents) > maxItems {
		startIdx = d.selected - maxItems/2
		if startIdx < 0 {
			startIdx = 0
		}
		endIdx = startIdx + maxItems
		if endIdx > len(d.agents) {
			endIdx = len(d.agents)
			startIdx = endIdx - maxItems
		}
	}

	lines := []string{emptyLine}
	for i := startIdx; i < endIdx; i++ {
		agent := d.agents[i]

		indicator := "  "
		titleStyle := lipgloss.NewStyle().Bold(true)
		if i == d.selected {
			indicator = "▶ "
			titleStyle = SelectedStyle
		}

		badge := ""
		if agent.Mode == appmodel.ModeEvaluateOnly {
			badge = " [evaluate]"
		} else if agent.Upload.Enabled {
			badge = " [📎]"
		}

		title := truncate(agent.Title(), modalWidth-len(indicator)-len(badge)-2)
		desc := truncate(agent.Description, modalWidth-6)

		lines = append(lines,
			lipgloss.NewStyle().Width(modalWidth).Render(indicator+titleStyle.Render(title)+DimStyle.Render(badge)),
			lipgloss.NewStyle().Width(modalWidth).Render("    "+DimStyle.Render(desc)),
		)
	}
	lines = append(lines, emptyLine)
	return strings.Join(lines, "\n")
}
