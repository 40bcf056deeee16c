package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"ltpgen/internal/rules"
)

// Default tool names looked for in a make trace.
const (
	DefaultArchiver = "ar"
	DefaultCompiler = "gcc"
)

// MakeParser parses the output of `make --dry-run` into rules:
//
//	ar['target.a'] = ['srcfile1.o', 'srcfile2.o']
//	cc_link['target'] = ['srcfile1.o', 'srcfile2.o']
//	cc_compile['target.o'] = ['srcfile1.c']
//	cc_compilelink['target'] = ['srcfile1.c']
//
// along with cc_flags, cc_includes and cc_libraries for the same targets.
type MakeParser struct {
	matcher  *Matcher
	resolver *Resolver
}

// NewMakeParser creates a parser for a trace of the LTP tree at ltpRoot.
func NewMakeParser(ltpRoot string) (*MakeParser, error) {
	return NewMakeParserWithTools(ltpRoot, DefaultArchiver, DefaultCompiler)
}

// NewMakeParserWithTools is NewMakeParser with explicit archiver and compiler
// command names.
func NewMakeParserWithTools(ltpRoot, archiver, compiler string) (*MakeParser, error) {
	resolver, err := NewResolver(ltpRoot)
	if err != nil {
		return nil, err
	}
	return &MakeParser{
		matcher:  NewMatcher(archiver, compiler),
		resolver: resolver,
	}, nil
}

// makeRun is the state of one Parse call.
type makeRun struct {
	*MakeParser
	dirs DirStack
	out  *rules.Writer
}

// Parse reads a whole trace and writes its rules to out in trace order.
func (p *MakeParser) Parse(r io.Reader, out *rules.Writer) error {
	run := &makeRun{MakeParser: p, out: out}

	scanner := bufio.NewScanner(r)
	// Link lines of big test directories get long
	buf := make([]byte, 0, 1024*1024)
	scanner.Buffer(buf, 10*1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if err := run.handleLine(line); err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
	}
	return scanner.Err()
}

func (run *makeRun) handleLine(line string) error {
	m := run.matcher.Match(line)
	switch m.Kind {
	case LineEnterDir:
		run.dirs.Push(run.resolver.Resolve(m.Dir, run.dirs.Top()))
	case LineLeaveDir:
		return run.dirs.Pop()
	case LineArchive:
		return run.handleArchive(m.Args)
	case LineCompile:
		return run.handleCompile(m.Args)
	}
	return nil
}

func (run *makeRun) resolve(p string) string {
	return run.resolver.Resolve(p, run.dirs.Top())
}

// write emits r. A value the rule format cannot hold is reported with the
// trace argument it came from.
func (run *makeRun) write(r rules.Rule, args []string) error {
	err := run.out.Write(r)
	var ve *rules.ValueError
	if !errors.As(err, &ve) {
		return err
	}
	for _, a := range args {
		if a != "" && (strings.HasSuffix(ve.Value, a) || strings.HasSuffix(a, ve.Value)) {
			return fmt.Errorf("argument %q: %w", a, err)
		}
	}
	return err
}

func (run *makeRun) handleArchive(args []string) error {
	ar, err := parseArchiveArgs(args)
	if err != nil {
		return err
	}

	sources := run.resolver.ResolveAll(ar.positionals, []string{objectExt}, run.dirs.Top())
	if len(sources) == 0 {
		return fmt.Errorf("archiver invocation for %q has no object files", ar.target)
	}

	return run.write(rules.Rule{Kind: rules.Archive, Target: run.resolve(ar.target), Values: sources}, args)
}

func (run *makeRun) handleCompile(args []string) error {
	cc, err := parseCompilerArgs(args)
	if err != nil {
		return err
	}

	sources := run.resolver.ResolveAll(cc.positionals, []string{sourceExt, objectExt}, run.dirs.Top())
	if len(sources) == 0 {
		return fmt.Errorf("compiler invocation has no source or object files")
	}
	if cc.target == "" {
		return fmt.Errorf("compiler invocation without -o target")
	}
	target := run.resolve(cc.target)

	includes := []string{}
	for _, inc := range cc.includes {
		includes = append(includes, run.resolve(inc))
	}
	libraries := cc.libraries
	if libraries == nil {
		libraries = []string{}
	}

	var emit []rules.Rule
	switch {
	case cc.compileOnly:
		emit = append(emit, rules.Rule{Kind: rules.Compile, Target: target, Values: sources})
	case strings.HasSuffix(sources[0], objectExt):
		emit = append(emit,
			rules.Rule{Kind: rules.Link, Target: target, Values: sources},
			rules.Rule{Kind: rules.Libraries, Target: target, Values: libraries})
	default:
		emit = append(emit,
			rules.Rule{Kind: rules.CompileLink, Target: target, Values: sources},
			rules.Rule{Kind: rules.Libraries, Target: target, Values: libraries})
	}
	emit = append(emit,
		rules.Rule{Kind: rules.Flags, Target: target, Values: cc.flags()},
		rules.Rule{Kind: rules.Includes, Target: target, Values: includes})

	for _, r := range emit {
		if err := run.write(r, args); err != nil {
			return err
		}
	}
	return nil
}
