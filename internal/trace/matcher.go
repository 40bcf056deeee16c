package trace

import (
	"path"
	"regexp"
	"strings"
)

// LineKind classifies one dry-run trace line.
type LineKind int

const (
	LineIgnored LineKind = iota
	LineEnterDir
	LineLeaveDir
	LineArchive
	LineCompile
)

func (k LineKind) String() string {
	switch k {
	case LineEnterDir:
		return "enter-dir"
	case LineLeaveDir:
		return "leave-dir"
	case LineArchive:
		return "archive"
	case LineCompile:
		return "compile"
	}
	return "ignored"
}

// Match is the result of classifying a line.
type Match struct {
	Kind LineKind
	Dir  string   // LineEnterDir only
	Args []string // command arguments, without the command itself
}

// Matcher recognizes the trace lines the make parser cares about.
type Matcher struct {
	enterRe  *regexp.Regexp
	leaveRe  *regexp.Regexp
	archiver string
	compiler string
}

// NewMatcher creates a Matcher for the given archiver and compiler names.
func NewMatcher(archiver, compiler string) *Matcher {
	// Old GNU make quotes the directory as `dir', newer releases as 'dir'.
	return &Matcher{
		enterRe:  regexp.MustCompile("^make.*: Entering directory [`'](.*)'"),
		leaveRe:  regexp.MustCompile("^make.*: Leaving directory [`'](.*)'"),
		archiver: archiver,
		compiler: compiler,
	}
}

// Match classifies a trimmed line. Directory markers win over commands.
func (m *Matcher) Match(line string) Match {
	if matches := m.enterRe.FindStringSubmatch(line); matches != nil {
		return Match{Kind: LineEnterDir, Dir: matches[1]}
	}
	if m.leaveRe.MatchString(line) {
		return Match{Kind: LineLeaveDir}
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Match{}
	}
	switch {
	case isCommand(fields[0], m.archiver):
		return Match{Kind: LineArchive, Args: fields[1:]}
	case isCommand(fields[0], m.compiler):
		return Match{Kind: LineCompile, Args: fields[1:]}
	}
	return Match{}
}

// isCommand accepts the bare name, a path to it, or a cross-toolchain
// prefixed name such as aarch64-linux-gnu-gcc.
func isCommand(word, name string) bool {
	base := path.Base(word)
	return base == name || strings.HasSuffix(base, "-"+name)
}
