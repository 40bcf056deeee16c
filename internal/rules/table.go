// Package rules holds the intermediate representation shared by the trace
// parsers and the Android.ltp.mk generator.
//
// The parsers write one assignment per line,
//
//	ar['target.a'] = ['srcfile1.o', 'srcfile2.o']
//	cc_link['target'] = ['srcfile1.o', 'srcfile2.o']
//	cc_compile['target.o'] = ['srcfile1.c']
//	cc_compilelink['target'] = ['srcfile1.c']
//	cc_flags['target'] = ['-flag1', '-flag2']
//	cc_includes['target'] = ['includepath1']
//	cc_libraries['target'] = ['library1']
//	install['target'] = ['srcfile']
//
// and the generator reads them back into a Table.
package rules

import "fmt"

// Kind names one rule sub-mapping.
type Kind string

const (
	// .a target -> .o files
	Archive Kind = "ar"
	// executable target -> .o files
	Link Kind = "cc_link"
	// .o target -> .c file
	Compile Kind = "cc_compile"
	// executable target -> .c files
	CompileLink Kind = "cc_compilelink"
	// target -> CFLAGS passed to gcc
	Flags Kind = "cc_flags"
	// target -> -I paths passed to gcc
	Includes Kind = "cc_includes"
	// target -> -l libraries passed to gcc
	Libraries Kind = "cc_libraries"
	// target -> prebuilt source
	Install Kind = "install"
)

// Kinds lists every rule kind.
var Kinds = []Kind{Archive, Link, Compile, CompileLink, Flags, Includes, Libraries, Install}

// ParseKind maps a rule name to its Kind.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Rule is one assignment of the intermediate format.
type Rule struct {
	Kind   Kind
	Target string
	Values []string
}

func (r Rule) String() string {
	s, err := FormatRule(r)
	if err != nil {
		return fmt.Sprintf("%s[%q] = %q", r.Kind, r.Target, r.Values)
	}
	return s
}

// Targets maps targets to value lists, iterating in first-insertion order.
type Targets struct {
	order  []string
	values map[string][]string
}

func newTargets() *Targets {
	return &Targets{values: make(map[string][]string)}
}

// Set stores values for target. Re-setting a target replaces its values but
// keeps its original position.
func (t *Targets) Set(target string, values []string) {
	if _, ok := t.values[target]; !ok {
		t.order = append(t.order, target)
	}
	t.values[target] = values
}

// Get returns the values of target.
func (t *Targets) Get(target string) ([]string, bool) {
	v, ok := t.values[target]
	return v, ok
}

// Keys returns the targets in insertion order.
func (t *Targets) Keys() []string {
	return t.order
}

func (t *Targets) Len() int {
	return len(t.order)
}

// Table is the aggregated rule set of one trace.
type Table struct {
	kinds map[Kind]*Targets
}

func NewTable() *Table {
	return &Table{kinds: make(map[Kind]*Targets)}
}

// Add stores r, with its values de-duplicated.
func (t *Table) Add(r Rule) {
	targets, ok := t.kinds[r.Kind]
	if !ok {
		targets = newTargets()
		t.kinds[r.Kind] = targets
	}
	targets.Set(r.Target, UniqueKeepOrder(r.Values))
}

// Targets returns the sub-mapping of kind k. It is never nil.
func (t *Table) Targets(k Kind) *Targets {
	if targets, ok := t.kinds[k]; ok {
		return targets
	}
	return newTargets()
}

// Lookup returns the values of k[target], failing when the rule is missing.
func (t *Table) Lookup(k Kind, target string) ([]string, error) {
	v, ok := t.Targets(k).Get(target)
	if !ok {
		return nil, fmt.Errorf("no %s rule for target %q", k, target)
	}
	return v, nil
}

// Rules flattens the table back into rules, kind by kind.
func (t *Table) Rules() []Rule {
	var ret []Rule
	for _, k := range Kinds {
		targets := t.Targets(k)
		for _, target := range targets.Keys() {
			v, _ := targets.Get(target)
			ret = append(ret, Rule{Kind: k, Target: target, Values: v})
		}
	}
	return ret
}

// UniqueKeepOrder returns a copy of values where items are unique and the
// first occurrence of each keeps its position.
func UniqueKeepOrder(values []string) []string {
	seen := make(map[string]bool, len(values))
	ret := make([]string, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		ret = append(ret, v)
	}
	return ret
}

// OrderedSet accumulates strings as a first-seen ordered union.
type OrderedSet struct {
	seen  map[string]bool
	items []string
}

// Add appends the values not seen yet.
func (s *OrderedSet) Add(values ...string) {
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	for _, v := range values {
		if s.seen[v] {
			continue
		}
		s.seen[v] = true
		s.items = append(s.items, v)
	}
}

// Items returns the accumulated values. The result is non-nil.
func (s *OrderedSet) Items() []string {
	if s.items == nil {
		return []string{}
	}
	return s.items
}
