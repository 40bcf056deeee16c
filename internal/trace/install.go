package trace

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"ltpgen/internal/model"
	"ltpgen/internal/rules"
)

// DefaultInstallPrefix is where LTP's make install puts the test suite.
const DefaultInstallPrefix = "/opt/ltp"

// InstallParser parses the output of `make install --dry-run` into
//
//	install['target'] = ['srcfile']
//
// rules. Only files present in the source tree are prebuilts; installed build
// outputs are skipped.
type InstallParser struct {
	root string
	re   *regexp.Regexp
}

// NewInstallParser creates an InstallParser for the LTP tree at ltpRoot.
func NewInstallParser(ltpRoot, installPrefix string) (*InstallParser, error) {
	resolver, err := NewResolver(ltpRoot)
	if err != nil {
		return nil, err
	}
	if installPrefix == "" {
		installPrefix = DefaultInstallPrefix
	}
	root := resolver.Root()
	// make prints the real path of the tree; the given root may be a symlink.
	prefixes := []string{regexp.QuoteMeta(withSeparator(root))}
	if real, err := filepath.EvalSymlinks(root); err == nil && real != root {
		prefixes = append(prefixes, regexp.QuoteMeta(withSeparator(real)))
	}
	pattern := fmt.Sprintf(`^install -m \d+ "(?:%s)(.*)" "%s/(.*)"`,
		strings.Join(prefixes, "|"),
		regexp.QuoteMeta(strings.TrimSuffix(filepath.Clean(installPrefix), "/")))
	return &InstallParser{
		root: root,
		re:   regexp.MustCompile(pattern),
	}, nil
}

func withSeparator(dir string) string {
	return strings.TrimSuffix(dir, string(filepath.Separator)) + string(filepath.Separator)
}

// Parse reads a whole install trace and writes its rules to out.
func (p *InstallParser) Parse(r io.Reader, out *rules.Writer) error {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		matches := p.re.FindStringSubmatch(strings.TrimSpace(scanner.Text()))
		if matches == nil {
			continue
		}
		src, target := matches[1], matches[2]
		// If the file isn't in the source tree, it's not a prebuilt
		if !model.IsRegularFile(filepath.Join(p.root, src)) {
			continue
		}
		if err := out.Write(rules.Rule{Kind: rules.Install, Target: target, Values: []string{src}}); err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
	}
	return scanner.Err()
}
