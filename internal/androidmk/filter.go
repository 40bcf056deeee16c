package androidmk

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"ltpgen/internal/model"
)

const filteredMarker = "# filtered for success build only"

// BuildChecker reports whether the artifact of a module was built.
type BuildChecker interface {
	TestBuilt(name string) bool
	PrebuiltBuilt(name string) bool
}

// OutputDirChecker looks for artifacts in a product's LTP output directory.
type OutputDirChecker struct {
	Dir string
}

// LTPOutputDir is where a product build installs LTP.
func LTPOutputDir(androidBuildTop, targetProduct string) string {
	return filepath.Join(androidBuildTop, "out", "target", "product", targetProduct, "data", "nativetest", "ltp")
}

func (c OutputDirChecker) TestBuilt(name string) bool {
	return model.IsRegularFile(filepath.Join(c.Dir, "testcases", "bin", path.Base(name)))
}

func (c OutputDirChecker) PrebuiltBuilt(name string) bool {
	return model.IsRegularFile(filepath.Join(c.Dir, name))
}

// FilterStats counts the blocks seen by FilterModules.
type FilterStats struct {
	Blocks int // including the header and empty blocks
	Kept   int
}

type block struct {
	text  string
	key   string
	value string
}

func parseBlock(text string) (block, bool) {
	lines := strings.Split(strings.Trim(text, "\n"), "\n")
	if len(lines) < 2 {
		return block{}, false
	}
	key, value, ok := strings.Cut(lines[0], " := ")
	if !ok {
		return block{}, false
	}
	return block{text: text, key: key, value: strings.TrimSpace(value)}, true
}

func (b block) staticLibraries() []string {
	for _, line := range strings.Split(b.text, "\n") {
		if v, ok := strings.CutPrefix(line, keyStaticLibraries+" := "); ok {
			return strings.Fields(v)
		}
	}
	return nil
}

// FilterModules keeps the module blocks of an Android.ltp.mk whose artifacts
// were built. A leading comment block is the header and is always kept. Libraries
// are kept when a kept test links them statically.
func FilterModules(content string, checker BuildChecker) (string, FilterStats, error) {
	blocks := strings.Split(content, "\n\n")
	stats := FilterStats{Blocks: len(blocks)}

	var header string
	modules := blocks
	if strings.HasPrefix(blocks[0], "#") {
		header, modules = blocks[0], blocks[1:]
	}
	var kept []block
	usedLibs := model.StringSet{}
	for _, text := range modules {
		b, ok := parseBlock(text)
		if !ok {
			continue
		}
		switch b.key {
		case keyTestname:
			if !checker.TestBuilt(b.value) {
				continue
			}
			for _, lib := range b.staticLibraries() {
				usedLibs[lib] = true
			}
		case keyPrebuilt:
			if !checker.PrebuiltBuilt(b.value) {
				continue
			}
		case keyLibname:
			// decided once every test is known
		default:
			return "", stats, fmt.Errorf("unknown module type %q", b.key)
		}
		kept = append(kept, b)
	}

	var out []string
	for _, b := range kept {
		if b.key == keyLibname && !usedLibs.Has(b.value) {
			continue
		}
		out = append(out, strings.Trim(b.text, "\n"))
	}
	stats.Kept = len(out)

	var sb strings.Builder
	if header != "" {
		sb.WriteString(strings.TrimRight(header, "\n"))
		sb.WriteString("\n")
	}
	if !strings.Contains(header, "filtered") {
		sb.WriteString(filteredMarker)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(strings.Join(out, "\n\n"))
	if len(out) > 0 {
		sb.WriteString("\n")
	}
	return sb.String(), stats, nil
}

// FilterFile rewrites mkPath in place, keeping only built modules.
func FilterFile(mkPath string, checker BuildChecker) (FilterStats, error) {
	content, err := os.ReadFile(mkPath)
	if err != nil {
		return FilterStats{}, err
	}
	filtered, stats, err := FilterModules(string(content), checker)
	if err != nil {
		return stats, fmt.Errorf("%s: %w", mkPath, err)
	}
	if err := os.WriteFile(mkPath, []byte(filtered), 0644); err != nil {
		return stats, err
	}
	return stats, nil
}
