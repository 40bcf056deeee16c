package model

// ModuleKind distinguishes the three stanza flavours of Android.ltp.mk.
type ModuleKind string

const (
	KindTest     ModuleKind = "test"
	KindLibrary  ModuleKind = "library"
	KindPrebuilt ModuleKind = "prebuilt"
)

// Module is one generated build-descriptor stanza.
type Module struct {
	Kind            ModuleKind `json:"Kind" yaml:"kind"`
	Name            string     `json:"Name" yaml:"name"`     // module_testname, module_libname or module_prebuilt
	Target          string     `json:"Target" yaml:"target"` // rule target the module was derived from
	SrcFiles        []string   `json:"SrcFiles" yaml:"src_files"`
	Cflags          []string   `json:"Cflags,omitempty" yaml:"cflags,omitempty"`
	CIncludes       []string   `json:"CIncludes,omitempty" yaml:"c_includes,omitempty"`
	StaticLibraries []string   `json:"StaticLibraries,omitempty" yaml:"static_libraries,omitempty"`
	SharedLibraries []string   `json:"SharedLibraries,omitempty" yaml:"shared_libraries,omitempty"`
}

// SkippedTarget records a rule target that produced no stanza and why.
type SkippedTarget struct {
	Target string `json:"Target"`
	Kind   string `json:"Kind"`
	Reason string `json:"Reason"`
}

// Suggestions lists tests that should probably be added to disabled_tests.txt.
type Suggestions struct {
	// Tests linking against a disabled library.
	DisabledLibTests []string `json:"DisabledLibTests"`
	// Tests built with a disabled cflag, cut at the first '_'.
	DisabledCflagTests []string `json:"DisabledCflagTests"`
}

// Empty reports whether there is nothing to suggest.
func (s Suggestions) Empty() bool {
	return len(s.DisabledLibTests) == 0 && len(s.DisabledCflagTests) == 0
}

// GenerationResult is everything one generator run produced.
type GenerationResult struct {
	Modules     []Module        `json:"Modules"`
	Skipped     []SkippedTarget `json:"Skipped"`
	Suggestions Suggestions     `json:"Suggestions"`
}

// Append merges another run's output after r, keeping order.
func (r *GenerationResult) Append(o GenerationResult) {
	r.Modules = append(r.Modules, o.Modules...)
	r.Skipped = append(r.Skipped, o.Skipped...)
	r.Suggestions.DisabledLibTests = append(r.Suggestions.DisabledLibTests, o.Suggestions.DisabledLibTests...)
	r.Suggestions.DisabledCflagTests = append(r.Suggestions.DisabledCflagTests, o.Suggestions.DisabledCflagTests...)
}
