package model

// Centralized icons for the UI components
// Using simple single-width characters for consistent terminal rendering
const (
	IconTest     = "▸" // test executable
	IconLibrary  = "◆" // static library
	IconPrebuilt = "□" // prebuilt file
	IconSkipped  = "✗" // target with no stanza
	IconOK       = "✓"
)

// IconFor returns the list icon of a module kind.
func IconFor(k ModuleKind) string {
	switch k {
	case KindTest:
		return IconTest
	case KindLibrary:
		return IconLibrary
	case KindPrebuilt:
		return IconPrebuilt
	}
	return IconOK
}
