package tui

import (
	"ltpgen/internal/model"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// LoadFunc computes the modules to browse.
type LoadFunc func() (model.GenerationResult, error)

// AppModel holds the TUI state.
type AppModel struct {
	// Data
	Result  model.GenerationResult
	Loading bool
	Err     error

	// UI State
	SelectedIdx  int
	WindowSize   tea.WindowSizeMsg
	DetailsFocus bool // arrows scroll the stanza instead of the list

	// View Modes
	ShowDiagnostics    bool
	DiagnosticsScrollY int
	ShowHelp           bool

	// Search State
	InputMode       bool
	InputBuffer     textinput.Model
	FilteredIndices []int // Indices of Result.Modules to show
	SearchActive    bool

	// Components
	DetailsViewport viewport.Model

	load LoadFunc
}

// InitialModel returns the initial state. load runs in the background once
// the program starts.
func InitialModel(load LoadFunc) AppModel {
	ti := textinput.New()
	ti.Placeholder = "Module or source..."
	ti.CharLimit = 80
	ti.Width = 30

	return AppModel{
		Loading:         true,
		InputBuffer:     ti,
		DetailsViewport: viewport.New(40, 10),
		load:            load,
	}
}
