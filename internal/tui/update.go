package tui

import (
	"strings"

	"ltpgen/internal/model"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// MsgResultReady indicates that generation has completed.
type MsgResultReady model.GenerationResult

// MsgError indicates generation failed.
type MsgError error

// Update handles events.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.WindowSize = msg
		_, rightWidth, interiorHeight := layout(msg.Width, msg.Height)
		m.DetailsViewport.Width = rightWidth
		m.DetailsViewport.Height = interiorHeight
		return m, nil

	case MsgResultReady:
		m.Loading = false
		m.Result = model.GenerationResult(msg)
		m.performSearch()
		return m, nil

	case MsgError:
		m.Err = msg
		m.Loading = false
		return m, tea.Quit

	case tea.KeyMsg:
		if m.InputMode {
			switch msg.Type {
			case tea.KeyEnter:
				m.InputMode = false
				m.InputBuffer.Blur()
				m.performSearch()
				return m, nil
			case tea.KeyEsc:
				m.clearSearch()
				return m, nil
			}
			m.InputBuffer, cmd = m.InputBuffer.Update(msg)
			m.performSearch()
			return m, cmd
		}

		if m.ShowHelp {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "?", "esc":
				m.ShowHelp = false
			}
			return m, nil
		}

		if m.ShowDiagnostics {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "d", "esc":
				m.ShowDiagnostics = false
			case "up", "k":
				if m.DiagnosticsScrollY > 0 {
					m.DiagnosticsScrollY--
				}
			case "down", "j":
				if m.DiagnosticsScrollY < maxPopupScroll(DiagnosticsReport(m.Result), m.WindowSize.Height) {
					m.DiagnosticsScrollY++
				}
			}
			return m, nil
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "esc":
			if m.SearchActive {
				m.clearSearch()
			}
			return m, nil
		case "tab":
			m.DetailsFocus = !m.DetailsFocus
			return m, nil
		case "d":
			m.ShowDiagnostics = true
			m.DiagnosticsScrollY = 0
			return m, nil
		case "?":
			m.ShowHelp = true
			return m, nil
		case "w", "/":
			m.InputMode = true
			m.InputBuffer.Focus()
			m.InputBuffer.SetValue("")
			return m, textinput.Blink
		}

		if m.DetailsFocus {
			m.DetailsViewport, cmd = m.DetailsViewport.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "up", "k":
			if m.SelectedIdx > 0 {
				m.SelectedIdx--
				m.syncDetails()
			}
		case "down", "j":
			if m.SelectedIdx < len(m.FilteredIndices)-1 {
				m.SelectedIdx++
				m.syncDetails()
			}
		case "home", "g":
			m.SelectedIdx = 0
			m.syncDetails()
		case "end", "G":
			if len(m.FilteredIndices) > 0 {
				m.SelectedIdx = len(m.FilteredIndices) - 1
				m.syncDetails()
			}
		}
	}

	return m, cmd
}

func (m *AppModel) clearSearch() {
	m.InputMode = false
	m.InputBuffer.Blur()
	m.InputBuffer.SetValue("")
	m.performSearch()
}

// performSearch filters the module list by a case-insensitive substring of
// the module name or of one of its sources.
func (m *AppModel) performSearch() {
	term := strings.ToLower(m.InputBuffer.Value())
	m.SearchActive = term != ""

	filtered := []int{}
	for i, mod := range m.Result.Modules {
		if term == "" || moduleMatches(mod, term) {
			filtered = append(filtered, i)
		}
	}
	m.FilteredIndices = filtered

	// Bounds check
	if m.SelectedIdx >= len(m.FilteredIndices) {
		m.SelectedIdx = len(m.FilteredIndices) - 1
	}
	if m.SelectedIdx < 0 {
		m.SelectedIdx = 0
	}
	m.syncDetails()
}

func moduleMatches(mod model.Module, term string) bool {
	if strings.Contains(strings.ToLower(mod.Name), term) {
		return true
	}
	for _, src := range mod.SrcFiles {
		if strings.Contains(strings.ToLower(src), term) {
			return true
		}
	}
	return false
}

// Selected returns the highlighted module.
func (m AppModel) Selected() (model.Module, bool) {
	if m.SelectedIdx >= len(m.FilteredIndices) {
		return model.Module{}, false
	}
	return m.Result.Modules[m.FilteredIndices[m.SelectedIdx]], true
}

func (m *AppModel) syncDetails() {
	mod, ok := m.Selected()
	if !ok {
		m.DetailsViewport.SetContent("No modules found.")
		return
	}
	m.DetailsViewport.SetContent(moduleDetails(mod))
	m.DetailsViewport.GotoTop()
}

// LoadCmd runs load in the background.
func LoadCmd(load LoadFunc) tea.Cmd {
	return func() tea.Msg {
		res, err := load()
		if err != nil {
			return MsgError(err)
		}
		return MsgResultReady(res)
	}
}
