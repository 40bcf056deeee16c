package rules

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var ruleRe = regexp.MustCompile(`^(.*)\['(.*)'\] = \[(.*)\]$`)

// ParseLine parses one trimmed intermediate-format line.
func ParseLine(line string) (Rule, error) {
	matches := ruleRe.FindStringSubmatch(line)
	if matches == nil {
		return Rule{}, fmt.Errorf("malformed rule %q", line)
	}
	kind, ok := ParseKind(matches[1])
	if !ok {
		return Rule{}, fmt.Errorf("unknown rule kind %q", matches[1])
	}

	values := []string{}
	if matches[3] != "" {
		for _, item := range strings.Split(matches[3], ",") {
			item = strings.TrimSpace(item)
			if len(item) < 2 || item[0] != '\'' || item[len(item)-1] != '\'' {
				return Rule{}, fmt.Errorf("malformed value %q in rule %q", item, line)
			}
			values = append(values, item[1:len(item)-1])
		}
	}

	return Rule{Kind: kind, Target: matches[2], Values: values}, nil
}

// Parse aggregates every rule line of r into a new Table. Blank lines are
// skipped; anything else that is not a rule is an error.
func Parse(r io.Reader) (*Table, error) {
	table := NewTable()
	if err := ParseInto(table, r); err != nil {
		return nil, err
	}
	return table, nil
}

// ParseInto aggregates the rules of r into an existing table.
func ParseInto(table *Table, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rule, err := ParseLine(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
		table.Add(rule)
	}
	return scanner.Err()
}
