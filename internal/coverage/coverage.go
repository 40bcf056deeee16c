// Package coverage reports which kernel system calls are exercised by LTP
// tests and which of those tests are disabled on Android.
package coverage

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"ltpgen/internal/model"
	"ltpgen/internal/rules"
)

// BetaWarning is printed before every report.
const BetaWarning = "*** WARNING: This script is still in development and may\n" +
	"*** report both false positives and negatives."

var ltpDisabledRe = regexp.MustCompile(`^(\w+)`)

// Coverage matches a list of syscalls against the LTP syscall tests.
type Coverage struct {
	arch string

	ltpTests      []string
	disabledInLTP model.StringSet
	disabledInVTS model.StringSet
	stableInVTS   model.StringSet

	syscalls []string
	tests    map[string][]string
	disabled map[string][]string
}

// New creates a Coverage for arch. An empty arch covers every architecture.
func New(arch string) *Coverage {
	return &Coverage{
		arch:          arch,
		disabledInLTP: model.StringSet{},
		disabledInVTS: model.StringSet{},
		stableInVTS:   model.StringSet{},
		tests:         make(map[string][]string),
		disabled:      make(map[string][]string),
	}
}

// LoadLTPTests collects the base names of the C sources under the LTP
// syscall tests directory.
func (c *Coverage) LoadLTPTests(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(d.Name()) == ".c" {
			c.ltpTests = append(c.ltpTests, strings.TrimSuffix(d.Name(), ".c"))
		}
		return nil
	})
}

// AddLTPTests adds test names directly.
func (c *Coverage) AddLTPTests(names ...string) {
	c.ltpTests = append(c.ltpTests, names...)
}

// LoadLTPDisabled reads LTP's disabled_tests.txt. The first word of each line
// names a test.
func (c *Coverage) LoadLTPDisabled(path string) error {
	lines, err := model.ReadLines(path)
	if err != nil {
		return err
	}
	for _, line := range lines {
		if m := ltpDisabledRe.FindStringSubmatch(line); m != nil {
			c.disabledInLTP[m[1]] = true
		}
	}
	return nil
}

// SetVTSLists sets the VTS disabled and stable test names, in the
// "syscalls.<test>[_32bit|_64bit]" form.
func (c *Coverage) SetVTSLists(disabled, stable model.StringSet) {
	if disabled != nil {
		c.disabledInVTS = disabled
	}
	if stable != nil {
		c.stableInVTS = stable
	}
}

var specialTests = map[string]*regexp.Regexp{
	"fadvise":           regexp.MustCompile(`^posix_fadvise`),
	"futex":             regexp.MustCompile(`^futex_`),
	"inotify_add_watch": regexp.MustCompile(`^inotify\d+$`),
	"inotify_rm_watch":  regexp.MustCompile(`^inotify\d+$`),
	"newfstatat":        regexp.MustCompile(`^fstatat\d+$`),
}

func testMatches(syscall string, numbered *regexp.Regexp, test string) bool {
	if syscall == "clock_nanosleep" && test == "clock_nanosleep2_01" {
		return true
	}
	if re, ok := specialTests[syscall]; ok && re.MatchString(test) {
		return true
	}
	return numbered.MatchString(test)
}

// Match finds the tests of every syscall of list relevant to the arch.
func (c *Coverage) Match(list *SyscallList) {
	for _, name := range list.Names(c.arch) {
		if _, ok := c.tests[name]; ok {
			continue
		}
		c.syscalls = append(c.syscalls, name)
		tests := []string{}

		ltpName := strings.TrimSuffix(name, "64")
		numbered := regexp.MustCompile("^" + regexp.QuoteMeta(ltpName) + `_?0?\d\d?$`)
		for _, test := range c.ltpTests {
			if !testMatches(ltpName, numbered, test) {
				continue
			}
			if ltpName == "ioctl" {
				test = "ioctl01_02"
			}
			tests = append(tests, test)
		}
		c.tests[name] = rules.UniqueKeepOrder(tests)
	}
	sort.Strings(c.syscalls)
	c.updateStatus()
}

func (c *Coverage) testDisabled(test string) bool {
	return c.disabledInLTP.Has(test) ||
		c.disabledInVTS.Has("syscalls."+test) ||
		(!c.stableInVTS.Has("syscalls."+test+"_32bit") && !c.stableInVTS.Has("syscalls."+test+"_64bit"))
}

func (c *Coverage) updateStatus() {
	for _, name := range c.syscalls {
		disabled := []string{}
		for _, test := range c.tests[name] {
			if c.testDisabled(test) {
				disabled = append(disabled, test)
			}
		}
		c.disabled[name] = disabled
	}
}

// Syscalls returns the matched syscall names, sorted.
func (c *Coverage) Syscalls() []string {
	return c.syscalls
}

// Tests returns the tests matched for syscall.
func (c *Coverage) Tests(syscall string) []string {
	return c.tests[syscall]
}

// Disabled returns the disabled tests of syscall.
func (c *Coverage) Disabled(syscall string) []string {
	return c.disabled[syscall]
}

// Covered reports whether syscall has at least one enabled test.
func (c *Coverage) Covered(syscall string) bool {
	return len(c.tests[syscall]) > len(c.disabled[syscall])
}

// Totals returns the counts of the summary line.
func (c *Coverage) Totals() (total, uncoveredDisabled, uncoveredNoTests int) {
	for _, name := range c.syscalls {
		if c.Covered(name) {
			continue
		}
		if len(c.tests[name]) > 0 {
			uncoveredDisabled++
		} else {
			uncoveredNoTests++
		}
	}
	return len(c.syscalls), uncoveredDisabled, uncoveredNoTests
}

func writeTableHeader(w io.Writer) {
	fmt.Fprintf(w, "%25s   Disabled Enabled -------------\n", "-------------")
}

func (c *Coverage) writeSection(w io.Writer, title string, covered bool) {
	fmt.Fprintf(w, "%s\n", title)
	count := 0
	for _, name := range c.syscalls {
		if c.Covered(name) != covered {
			continue
		}
		if count%20 == 0 {
			writeTableHeader(w)
		}
		disabled := len(c.disabled[name])
		fmt.Fprintf(w, "%25s   %d        %d\n", name, disabled, len(c.tests[name])-disabled)
		count++
	}
}

// WriteResults prints the covered and uncovered tables.
func (c *Coverage) WriteResults(w io.Writer) {
	fmt.Fprintln(w)
	c.writeSection(w, "         Covered Syscalls", true)
	fmt.Fprint(w, "\n\n")
	c.writeSection(w, "       Uncovered Syscalls", false)
	fmt.Fprintln(w)
	total, disabled, noTests := c.Totals()
	fmt.Fprintf(w, "Total uncovered syscalls: %d out of %d\n", disabled+noTests, total)
}

// WriteSummaryHeader prints the column names of WriteSummary.
func WriteSummaryHeader(w io.Writer) {
	fmt.Fprintln(w, "arch, cki syscalls, uncovered with disabled test(s), uncovered with no tests, total uncovered")
}

// WriteSummary prints one CSV line of totals.
func (c *Coverage) WriteSummary(w io.Writer) {
	arch := c.arch
	if arch == "" {
		arch = "all"
	}
	total, disabled, noTests := c.Totals()
	fmt.Fprintf(w, "%s, %d, %d, %d, %d\n", arch, total, disabled, noTests, disabled+noTests)
}

// SyscallReport is the coverage of one syscall.
type SyscallReport struct {
	Name     string   `yaml:"name"`
	Covered  bool     `yaml:"covered"`
	Tests    []string `yaml:"tests,omitempty"`
	Disabled []string `yaml:"disabled,omitempty"`
}

// Report is the machine readable form of WriteResults.
type Report struct {
	Arch              string          `yaml:"arch"`
	Total             int             `yaml:"total"`
	UncoveredDisabled int             `yaml:"uncovered_with_disabled_tests"`
	UncoveredNoTests  int             `yaml:"uncovered_with_no_tests"`
	Syscalls          []SyscallReport `yaml:"syscalls"`
}

func (c *Coverage) Report() Report {
	r := Report{Arch: c.arch}
	if r.Arch == "" {
		r.Arch = "all"
	}
	r.Total, r.UncoveredDisabled, r.UncoveredNoTests = c.Totals()
	for _, name := range c.syscalls {
		r.Syscalls = append(r.Syscalls, SyscallReport{
			Name:     name,
			Covered:  c.Covered(name),
			Tests:    c.tests[name],
			Disabled: c.disabled[name],
		})
	}
	return r
}

// WriteYAML encodes reports as a YAML sequence.
func WriteYAML(w io.Writer, reports []Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(reports); err != nil {
		return err
	}
	return enc.Close()
}

// quoted matches a quoted name optionally followed by a dict value.
var quotedRe = regexp.MustCompile(`['"]([^'"]+)['"]\s*(?::\s*(\w+))?`)

// ParseVTSList extracts test names from a VTS python config. Entries of a
// dict are kept only when their value is True.
func ParseVTSList(r io.Reader) (model.StringSet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	set := model.StringSet{}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		for _, m := range quotedRe.FindAllStringSubmatch(line, -1) {
			if m[2] != "" && m[2] != "True" {
				continue
			}
			set[m[1]] = true
		}
	}
	return set, nil
}

// ReadVTSList is ParseVTSList over a file.
func ReadVTSList(path string) (model.StringSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	set, err := ParseVTSList(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return set, nil
}
