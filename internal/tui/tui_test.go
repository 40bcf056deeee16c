package tui

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"ltpgen/internal/model"
)

var testResult = model.GenerationResult{
	Modules: []model.Module{
		{Kind: model.KindTest, Name: "testcases/kernel/syscalls/read/read01", SrcFiles: []string{"testcases/kernel/syscalls/read/read01.c"}},
		{Kind: model.KindTest, Name: "testcases/kernel/syscalls/write/write01", SrcFiles: []string{"testcases/kernel/syscalls/write/write01.c"}},
		{Kind: model.KindLibrary, Name: "ltp", SrcFiles: []string{"lib/tst_res.c"}},
		{Kind: model.KindPrebuilt, Name: "testcases/bin/ltp_run.sh", SrcFiles: []string{"testcases/lib/ltp_run.sh"}},
	},
	Skipped: []model.SkippedTarget{
		{Target: "testcases/kernel/mem/ksm01", Kind: "cc_link", Reason: "links a disabled library"},
	},
	Suggestions: model.Suggestions{DisabledLibTests: []string{"ksm01"}},
}

func loaded(t *testing.T) AppModel {
	t.Helper()
	m := InitialModel(func() (model.GenerationResult, error) { return testResult, nil })
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	next, _ = next.Update(MsgResultReady(testResult))
	return next.(AppModel)
}

func key(m AppModel, k string) AppModel {
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	next, _ := m.Update(msg)
	return next.(AppModel)
}

func TestLoadAndNavigate(t *testing.T) {
	m := loaded(t)
	if m.Loading {
		t.Fatal("still loading after the result arrived")
	}
	if want := []int{0, 1, 2, 3}; !reflect.DeepEqual(m.FilteredIndices, want) {
		t.Fatalf("expected indices %v, got %v", want, m.FilteredIndices)
	}

	m = key(m, "j")
	m = key(m, "j")
	if sel, _ := m.Selected(); sel.Name != "ltp" {
		t.Errorf("expected ltp selected, got %q", sel.Name)
	}
	m = key(m, "G")
	m = key(m, "j")
	if m.SelectedIdx != 3 {
		t.Errorf("selection moved past the end: %d", m.SelectedIdx)
	}
	m = key(m, "k")
	if m.SelectedIdx != 2 {
		t.Errorf("expected index 2, got %d", m.SelectedIdx)
	}
	if !strings.Contains(m.DetailsViewport.View(), "module_libname := ltp") {
		t.Errorf("stanza of the selected module not shown:\n%s", m.DetailsViewport.View())
	}
}

func TestSearch(t *testing.T) {
	m := loaded(t)
	m = key(m, "j")
	m = key(m, "j")
	m = key(m, "j")

	m = key(m, "/")
	if !m.InputMode {
		t.Fatal("expected input mode")
	}
	for _, r := range "Syscalls" {
		m = key(m, string(r))
	}
	m = key(m, "enter")
	if m.InputMode || !m.SearchActive {
		t.Fatalf("expected an active search, got input=%v active=%v", m.InputMode, m.SearchActive)
	}
	if want := []int{0, 1}; !reflect.DeepEqual(m.FilteredIndices, want) {
		t.Errorf("expected indices %v, got %v", want, m.FilteredIndices)
	}
	if m.SelectedIdx != 1 {
		t.Errorf("selection not clamped: %d", m.SelectedIdx)
	}

	m = key(m, "esc")
	if m.SearchActive || len(m.FilteredIndices) != 4 {
		t.Errorf("esc should clear the search, got %v", m.FilteredIndices)
	}
}

func TestSearchSources(t *testing.T) {
	m := loaded(t)
	m = key(m, "w")
	for _, r := range "tst_res" {
		m = key(m, string(r))
	}
	if want := []int{2}; !reflect.DeepEqual(m.FilteredIndices, want) {
		t.Errorf("expected indices %v, got %v", want, m.FilteredIndices)
	}
}

func TestDiagnostics(t *testing.T) {
	m := loaded(t)
	m = key(m, "d")
	if !m.ShowDiagnostics {
		t.Fatal("expected the diagnostics popup")
	}
	if !strings.Contains(m.View(), "Diagnostics") {
		t.Error("diagnostics popup not rendered")
	}
	m = key(m, "d")
	if m.ShowDiagnostics {
		t.Error("d should close the diagnostics popup")
	}

	report := DiagnosticsReport(testResult)
	for _, want := range []string{
		"4 modules generated, 1 targets skipped.",
		"testcases/kernel/mem/ksm01 [cc_link]: links a disabled library",
		"Tests requiring a disabled library",
		"  ksm01",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report is missing %q:\n%s", want, report)
		}
	}
	if strings.Contains(report, "disabled cflag") {
		t.Errorf("empty cflag section rendered:\n%s", report)
	}

	clean := DiagnosticsReport(model.GenerationResult{})
	if !strings.Contains(clean, "No issues detected.") {
		t.Errorf("expected no issues, got:\n%s", clean)
	}
}

func TestDiagnosticsScrollStopsAtEnd(t *testing.T) {
	m := loaded(t)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 14})
	m = key(next.(AppModel), "d")

	limit := maxPopupScroll(DiagnosticsReport(testResult), 14)
	if limit == 0 {
		t.Fatal("expected the report to overflow a 14 line window")
	}
	for i := 0; i < 50; i++ {
		m = key(m, "j")
	}
	if m.DiagnosticsScrollY != limit {
		t.Errorf("expected scroll %d, got %d", limit, m.DiagnosticsScrollY)
	}
	m = key(m, "k")
	if m.DiagnosticsScrollY != limit-1 {
		t.Errorf("expected scroll %d after k, got %d", limit-1, m.DiagnosticsScrollY)
	}

	if got := maxPopupScroll("one\ntwo", 40); got != 0 {
		t.Errorf("expected no scrolling for a short text, got %d", got)
	}
}

func TestLoadError(t *testing.T) {
	loadErr := errors.New("no such file")
	msg := LoadCmd(func() (model.GenerationResult, error) { return model.GenerationResult{}, loadErr })()
	m := InitialModel(nil)
	next, cmd := m.Update(msg)
	if got := next.(AppModel).Err; got != loadErr {
		t.Errorf("expected %v, got %v", loadErr, got)
	}
	if cmd == nil {
		t.Error("expected the program to quit")
	}
}

func TestWindow(t *testing.T) {
	testCases := []struct {
		selected, total, visible int
		start, end               int
	}{
		{selected: 0, total: 3, visible: 10, start: 0, end: 3},
		{selected: 0, total: 30, visible: 10, start: 0, end: 10},
		{selected: 15, total: 30, visible: 10, start: 10, end: 20},
		{selected: 29, total: 30, visible: 10, start: 20, end: 30},
	}
	for _, tc := range testCases {
		start, end := window(tc.selected, tc.total, tc.visible)
		if start != tc.start || end != tc.end {
			t.Errorf("window(%d, %d, %d): expected [%d, %d), got [%d, %d)",
				tc.selected, tc.total, tc.visible, tc.start, tc.end, start, end)
		}
	}
}
