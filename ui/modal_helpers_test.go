package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestWordWrap(t *testing.T) {
	assert.Equal(t, "one two\nthree", wordWrap("one two three", 8))
	assert.Equal(t, "a\n\nb", wordWrap("a\n\nb", 10))
	assert.Equal(t, "unchanged", wordWrap("unchanged", 0))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "Contract…", truncate("Contract Reviewer", 9))
	assert.Equal(t, "", truncate("anything", 0))
}

func TestModalWidthFor(t *testing.T) {
	assert.Equal(t, 60, modalWidthFor(60, 120))
	assert.Equal(t, 40, modalWidthFor(60, 50))
	assert.Equal(t, 10, modalWidthFor(60, 12))
}

func TestErrorModal(t *testing.T) {
	m := NewErrorModal("Configuration Error", "proxy url is not configured")
	assert.Equal(t, "Terminal too small", m.View())

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	view := updated.View()
	assert.Contains(t, view, "Configuration Error")
	assert.Contains(t, view, "proxy url is not configured")
	assert.Contains(t, view, "Press Enter to quit")

	_, cmd := updated.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.NotNil(t, cmd)
}

func TestRenderAcknowledgeModal(t *testing.T) {
	view := RenderAcknowledgeModal("Session Expired", "Sign in again to continue", "", ModalTypeWarning, 100, 30)
	assert.Contains(t, view, "Session Expired")
	assert.Contains(t, view, "Sign in again to continue")
	assert.Contains(t, view, "Press Enter to acknowledge")

	view = RenderAcknowledgeModal("Storage Error", "locked", "Press Enter to quit", ModalTypeError, 100, 30)
	assert.Contains(t, view, "Press Enter to quit")
	assert.NotContains(t, view, "acknowledge")
}
