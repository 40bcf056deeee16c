// Package testcases generates the flat LTP test-case table from a scenario
// group and the runtest files it names.
package testcases

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"ltpgen/internal/model"
)

const disabledPrefix = "DISABLED_"

// TestCase is one line of a runtest file.
type TestCase struct {
	Suite string // runtest file name, '-' replaced by '_'
	Name  string // test name, '-' replaced by '_', DISABLED_ prefixed if disabled
	Args  string // command line following the test name
}

func (tc TestCase) String() string {
	return strings.Join([]string{tc.Suite, tc.Name, tc.Args}, "\t")
}

// Generator reads runtest files from an LTP tree.
type Generator struct {
	ltpRoot  string
	disabled model.StringSet
}

// NewGenerator creates a Generator. disabled may be nil.
func NewGenerator(ltpRoot string, disabled model.StringSet) *Generator {
	return &Generator{ltpRoot: ltpRoot, disabled: disabled}
}

// ReadScenarioGroup returns the suite names of a scenario group, skipping
// blank lines.
func ReadScenarioGroup(r io.Reader) ([]string, error) {
	var suites []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if s := strings.TrimSpace(scanner.Text()); s != "" {
			suites = append(suites, s)
		}
	}
	return suites, scanner.Err()
}

// Suite returns the test cases of runtest/<suite>.
func (g *Generator) Suite(suite string) ([]TestCase, error) {
	lines, err := model.ReadLines(filepath.Join(g.ltpRoot, "runtest", suite))
	if err != nil {
		return nil, err
	}
	suiteName := strings.ReplaceAll(suite, "-", "_")

	var ret []TestCase
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		testname := strings.Fields(line)[0]
		name := strings.ReplaceAll(testname, "-", "_")
		if g.disabled.Has(testname) {
			name = disabledPrefix + name
		}
		ret = append(ret, TestCase{
			Suite: suiteName,
			Name:  name,
			Args:  strings.TrimSpace(line[len(testname):]),
		})
	}
	return ret, nil
}

// Write prints the test cases of every suite of a scenario group, one
// tab-separated line each.
func (g *Generator) Write(w io.Writer, scenarioGroup io.Reader) error {
	suites, err := ReadScenarioGroup(scenarioGroup)
	if err != nil {
		return err
	}
	for _, suite := range suites {
		cases, err := g.Suite(suite)
		if err != nil {
			return fmt.Errorf("suite %s: %w", suite, err)
		}
		for _, tc := range cases {
			if _, err := fmt.Fprintln(w, tc); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReadDisabled loads the disabled tests list, or an empty set when path is "".
func ReadDisabled(path string) (model.StringSet, error) {
	if path == "" {
		return model.StringSet{}, nil
	}
	return model.ReadCommentedText(path)
}
