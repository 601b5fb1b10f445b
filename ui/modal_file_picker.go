package ui

import (
	"mime"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"

	"agentdesk/config"
)

type FilePickerConfig struct {
	Title          string
	AllowedTypes   []string // file extensions, empty = any
	StartDirectory string
	ShowHidden     bool
}

type FilePickerState struct {
	Active     bool
	Picker     filepicker.Model
	Config     FilePickerConfig
	Processing bool
	Spinner    spinner.Model
}

func NewFilePickerState(cfg FilePickerConfig) FilePickerState {
	fp := filepicker.New()
	fp.AllowedTypes = cfg.AllowedTypes
	fp.Height = 10
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.ShowPermissions = false
	fp.ShowSize = true
	fp.ShowHidden = cfg.ShowHidden

	startDir := cfg.StartDirectory
	if startDir == "" {
		startDir = config.GetHomeDir()
	}
	fp.CurrentDirectory = startDir

	fp.Styles.Directory = lipgloss.NewStyle().
		Foreground(accentColor).
		Bold(true)
	fp.Styles.File = lipgloss.NewStyle().
		Foreground(lipgloss.Color("15"))
	fp.Styles.Selected = lipgloss.NewStyle().
		Foreground(successColor).
		Bold(true)
	fp.Styles.Cursor = lipgloss.NewStyle().
		Foreground(successColor)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return FilePickerState{
		Picker:  fp,
		Config:  cfg,
		Spinner: sp,
	}
}

func (fps *FilePickerState) Activate() {
	fps.Active = true
	fps.Processing = false
}

func (fps *FilePickerState) Reset() {
	fps.Active = false
	fps.Processing = false
}

// extensionsFor maps accepted MIME types to the extensions the picker
// filters on. An empty result lets the picker show every file.
func extensionsFor(mimeTypes []string) []string {
	var exts []string
	seen := map[string]bool{}
	for _, t := range mimeTypes {
		found, err := mime.ExtensionsByType(t)
		if err != nil || len(found) == 0 {
			// an unknown type would hide everything; fall back to no filter
			return nil
		}
		for _, ext := range found {
			if !seen[ext] {
				seen[ext] = true
				exts = append(exts, ext)
			}
		}
	}
	return exts
}

func RenderFilePickerModal(state FilePickerState, width, height int) string {
	if width < 20 || height < 10 {
		return "Terminal too small"
	}

	modalWidth := width - 10
	if modalWidth > 80 {
		modalWidth = 80
	}

	if state.Processing {
		return renderSpinner("Reading file...", state.Spinner.View(), width, height)
	}

	contentStyle := lipgloss.NewStyle().
		Width(modalWidth).
		Align(lipgloss.Left)

	var messageLines []string
	for _, line := range strings.Split(state.Picker.View(), "\n") {
		messageLines = append(messageLines, contentStyle.Render("  "+strings.TrimRight(line, " ")))
	}

	if len(state.Config.AllowedTypes) > 0 {
		messageLines = append(messageLines, contentStyle.Render(""),
			contentStyle.Render(DimStyle.Render("  Accepts: "+strings.Join(state.Config.AllowedTypes, " "))))
	}

	footer := FormatFooter("j/k", "Navigate", "h/l", "Back/Forward", "Enter", "Attach", "Esc", "Cancel")
	return RenderThreeSectionModal(state.Config.Title, messageLines, footer, ModalTypeInfo, modalWidth, width, height)
}
