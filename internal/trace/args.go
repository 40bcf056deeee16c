package trace

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
)

const (
	objectExt = ".o"
	sourceExt = ".c"

	// Residual compiler flags carried into cc_flags.
	warningSuppressPrefix = "-Wno"
)

// archiveArgs is an archiver invocation: `ar -rc "libfoo.a" a.o b.o`.
type archiveArgs struct {
	target      string
	positionals []string
}

// parseArchiveArgs hands only the -r/-c bundle and the target to pflag.
// Other options are dropped without consuming the next argument, and every
// other argument is a candidate source.
func parseArchiveArgs(args []string) (archiveArgs, error) {
	var known, positionals []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case isArchiveBundle(a):
			known = append(known, a)
			if strings.HasSuffix(a, "c") && i+1 < len(args) {
				i++
				known = append(known, args[i])
			}
		case strings.HasPrefix(a, "-") && a != "-":
		default:
			positionals = append(positionals, a)
		}
	}

	fs := pflag.NewFlagSet("ar", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.BoolP("replace", "r", false, "insert files into the archive")
	target := fs.StringP("create", "c", "", "archive to create")

	if err := fs.Parse(known); err != nil {
		return archiveArgs{}, fmt.Errorf("parsing archiver arguments: %w", err)
	}
	if !fs.Changed("create") {
		return archiveArgs{}, fmt.Errorf("archiver invocation without -c target")
	}
	return archiveArgs{
		target:      strings.ReplaceAll(*target, `"`, ""),
		positionals: append(positionals, fs.Args()...),
	}, nil
}

// isArchiveBundle reports whether a is a short option bundle of -r and -c.
func isArchiveBundle(a string) bool {
	if len(a) < 2 || a[0] != '-' {
		return false
	}
	return strings.Trim(a[1:], "rc") == ""
}

// compilerArgs is a gcc invocation split into the options the parser models.
type compilerArgs struct {
	defines     []string
	includes    []string
	libraries   []string
	compileOnly bool
	target      string
	positionals []string
	residual    []string
}

// parseCompilerArgs splits a gcc command line. gcc's single-dash long options
// (-fPIC, -Wall, -std=c99) do not fit a getopt-style parser, so only the
// options used to build rules are recognized and everything else is kept as
// residual flags.
func parseCompilerArgs(args []string) (compilerArgs, error) {
	var ret compilerArgs
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "-c" {
			ret.compileOnly = true
			continue
		}
		if !strings.HasPrefix(a, "-") || a == "-" {
			ret.positionals = append(ret.positionals, a)
			continue
		}

		var dst *[]string
		switch a[:2] {
		case "-D":
			dst = &ret.defines
		case "-I":
			dst = &ret.includes
		case "-l":
			dst = &ret.libraries
		case "-o":
		default:
			ret.residual = append(ret.residual, a)
			continue
		}

		value := a[2:]
		if value == "" {
			if i+1 >= len(args) {
				return compilerArgs{}, fmt.Errorf("option %s requires a value", a)
			}
			i++
			value = args[i]
		}
		if dst == nil {
			ret.target = value
		} else {
			*dst = append(*dst, value)
		}
	}
	return ret, nil
}

// flags returns the cc_flags values: -D defines, then warning suppressions.
func (c compilerArgs) flags() []string {
	flags := []string{}
	for _, d := range c.defines {
		flags = append(flags, "-D"+d)
	}
	for _, r := range c.residual {
		if strings.HasPrefix(r, warningSuppressPrefix) {
			flags = append(flags, r)
		}
	}
	return flags
}
