package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ltpgen/internal/androidmk"
	"ltpgen/internal/model"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	listTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	selectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	normalStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	adviceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("208")) // Orange

	borderColor = lipgloss.Color("63")
	activeColor = lipgloss.Color("205")
)

const helpText = `ltpgen browse

Lists the Android.ltp.mk modules generated from the LTP build traces.

  ↑/↓ j/k   Select a module (or scroll the stanza when it has focus)
  g/G       First/last module
  Tab       Switch focus between the list and the stanza
  w or /    Search module names and source files
  Esc       Clear the search
  d         Diagnostics: skipped targets and suggested disabled tests
  ?         This help
  q         Quit

Icons: ` + model.IconTest + ` test  ` + model.IconLibrary + ` library  ` + model.IconPrebuilt + ` prebuilt  ` + model.IconSkipped + ` skipped`

// layout splits the window into the two panels. The returned heights exclude
// the borders.
func layout(width, height int) (leftWidth, rightWidth, interiorHeight int) {
	// Subtracting 6 for horizontal margin (borders x2 + buffer)
	netWidth := width - 6
	if netWidth < 20 {
		netWidth = 20
	}
	leftWidth = netWidth * 2 / 5
	rightWidth = netWidth - leftWidth

	// Title, footer and borders
	interiorHeight = height - 8
	if interiorHeight < 2 {
		interiorHeight = 2
	}
	return leftWidth, rightWidth, interiorHeight
}

func (m AppModel) View() string {
	if m.Loading {
		return "\n  Parsing LTP build traces... please wait.\n"
	}
	if m.Err != nil {
		return fmt.Sprintf("\n  Error: %v\n", m.Err)
	}
	if m.ShowHelp {
		return m.renderPopup("Help", helpText, 0, borderColor)
	}
	if m.ShowDiagnostics {
		return m.renderPopup("Diagnostics", DiagnosticsReport(m.Result), m.DiagnosticsScrollY, lipgloss.Color("208"))
	}

	leftWidth, rightWidth, interiorHeight := layout(m.WindowSize.Width, m.WindowSize.Height)

	// LEFT PANEL: module list
	var leftView strings.Builder
	leftView.WriteString(listTitleStyle.Render(fmt.Sprintf("Modules (%d/%d)", len(m.FilteredIndices), len(m.Result.Modules))))
	leftView.WriteString("\n\n")

	// Header is 2 lines (Title + 1 blank line)
	visibleItems := interiorHeight - 2
	if visibleItems < 1 {
		visibleItems = 1
	}
	startIdx, endIdx := window(m.SelectedIdx, len(m.FilteredIndices), visibleItems)
	for i := startIdx; i < endIdx; i++ {
		idx := m.FilteredIndices[i]
		mod := m.Result.Modules[idx]
		line := truncate(fmt.Sprintf("%3d. %s %s", idx+1, model.IconFor(mod.Kind), mod.Name), leftWidth-2)

		style := normalStyle
		if i == m.SelectedIdx {
			style = selectedStyle
		}
		leftView.WriteString(style.Render(line))
		leftView.WriteString("\n")
	}
	if len(m.FilteredIndices) == 0 {
		leftView.WriteString(dimStyle.Render("No matches."))
	}

	lBorder, rBorder := activeColor, borderColor
	if m.DetailsFocus {
		lBorder, rBorder = borderColor, activeColor
	}
	left := lipgloss.NewStyle().
		Width(leftWidth).
		Height(interiorHeight).
		Border(lipgloss.NormalBorder()).
		BorderForeground(lBorder).
		Render(strings.TrimSuffix(leftView.String(), "\n"))

	// RIGHT PANEL: stanza of the selected module
	right := lipgloss.NewStyle().
		Width(rightWidth).
		Height(interiorHeight).
		Border(lipgloss.NormalBorder()).
		BorderForeground(rBorder).
		Render(m.DetailsViewport.View())

	title := titleStyle.Render("ltpgen " + model.Version)
	if n := len(m.Result.Skipped); n > 0 {
		title += adviceStyle.Render(fmt.Sprintf("  %s %d targets skipped (press 'd')", model.IconSkipped, n))
	}

	help := "↑/↓: Navigate • Tab: Switch Panel • w: Search • d: Diagnostics • ?: Help • q: Quit"
	if m.DetailsFocus {
		help = "Stanza: ↑/↓/PgUp/PgDn: Scroll • Tab: Return to Modules • q: Quit"
	}
	footer := "\n" + help
	if m.InputMode {
		footer = fmt.Sprintf("\nSearch: %s", m.InputBuffer.View())
	} else if m.SearchActive {
		footer = fmt.Sprintf("\nFilter: %q (Esc to clear) • %s", m.InputBuffer.Value(), help)
	}

	return title + "\n" + lipgloss.JoinHorizontal(lipgloss.Top, left, right) + footer
}

// window returns the range of list rows to draw so that selected stays
// roughly centered.
func window(selected, total, visible int) (start, end int) {
	if total <= visible {
		return 0, total
	}
	if selected >= visible/2 {
		start = selected - visible/2
	}
	if start+visible > total {
		start = total - visible
	}
	return start, start + visible
}

func truncate(s string, width int) string {
	r := []rune(s)
	if width < 4 || len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}

// moduleDetails is the right panel text of mod.
func moduleDetails(mod model.Module) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s (%s)\n", model.IconFor(mod.Kind), mod.Name, mod.Kind)
	if mod.Target != "" && mod.Target != mod.Name {
		fmt.Fprintf(&b, "Target:  %s\n", mod.Target)
	}
	fmt.Fprintf(&b, "Sources: %d\n\n", len(mod.SrcFiles))

	stanza, err := androidmk.FormatModule(mod)
	if err != nil {
		fmt.Fprintf(&b, "Error: %v\n", err)
		return b.String()
	}
	b.WriteString(stanza)
	return b.String()
}

// DiagnosticsReport describes what generation left out.
func DiagnosticsReport(res model.GenerationResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d modules generated, %d targets skipped.\n", len(res.Modules), len(res.Skipped))

	if len(res.Skipped) > 0 {
		b.WriteString("\n--- Skipped Targets ---\n")
		for _, s := range res.Skipped {
			fmt.Fprintf(&b, "%s %s [%s]: %s\n", model.IconSkipped, s.Target, s.Kind, s.Reason)
		}
	}

	for _, section := range []struct {
		title string
		names []string
	}{
		{"Tests requiring a disabled library", res.Suggestions.DisabledLibTests},
		{"Tests requiring a disabled cflag", res.Suggestions.DisabledCflagTests},
	} {
		if len(section.names) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n--- %s ---\n", section.title)
		b.WriteString("Suggested for disabled_tests.txt:\n")
		for _, name := range section.names {
			fmt.Fprintf(&b, "  %s\n", name)
		}
	}

	if len(res.Skipped) == 0 && res.Suggestions.Empty() {
		b.WriteString("\n" + model.IconOK + " No issues detected.\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func popupHeightFor(windowHeight int) int {
	if h := windowHeight - 6; h > 5 {
		return h
	}
	return 5
}

// maxPopupScroll is the scroll offset that shows the last line of text.
func maxPopupScroll(text string, windowHeight int) int {
	n := strings.Count(text, "\n") + 1 - (popupHeightFor(windowHeight) - 4)
	if n < 0 {
		return 0
	}
	return n
}

func (m AppModel) renderPopup(title, text string, scrollY int, border lipgloss.TerminalColor) string {
	w, h := m.WindowSize.Width, m.WindowSize.Height
	if w < 20 || h < 10 {
		return "Window too small"
	}

	popupWidth := w * 90 / 100
	if popupWidth < 40 {
		popupWidth = 40
	}
	if popupWidth > w-4 {
		popupWidth = w - 4
	}
	popupHeight := popupHeightFor(h)

	lines := strings.Split(text, "\n")
	contentHeight := popupHeight - 4 // minus title and footer

	startY := scrollY
	if startY > len(lines)-contentHeight {
		startY = len(lines) - contentHeight
	}
	if startY < 0 {
		startY = 0
	}
	endY := startY + contentHeight
	if endY > len(lines) {
		endY = len(lines)
	}

	footer := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render(
		"\n↑/↓: Scroll • Esc to close")

	dialog := lipgloss.NewStyle().
		Width(popupWidth).
		Height(popupHeight).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		Render(titleStyle.Render(title) + "\n\n" + strings.Join(lines[startY:endY], "\n") + footer)

	return lipgloss.Place(w, h,
		lipgloss.Center, lipgloss.Center,
		dialog,
	)
}

func (m AppModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, LoadCmd(m.load))
}
