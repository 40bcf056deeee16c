package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/pflag"

	"ltpgen/internal/model"
)

type command struct {
	usage string
	help  string
	run   func(args []string) error
}

// commands is filled in init: the run functions refer back to it for usage.
var commands map[string]command

func init() {
	commands = map[string]command{
		"parse-make": {
			usage: "parse-make --ltp-root DIR [--run] [infile]",
			help:  "Translate a `make --dry-run` trace into rule lines",
			run:   runParseMake,
		},
		"parse-install": {
			usage: "parse-install --ltp-root DIR [--install-prefix P] [--run] [infile]",
			help:  "Translate a `make install --dry-run` trace into install rules",
			run:   runParseInstall,
		},
		"gen-mk": {
			usage: "gen-mk --disabled-tests F [options] [infile...]",
			help:  "Generate Android.mk stanzas from rule files",
			run:   runGenMk,
		},
		"androidmk": {
			usage: "androidmk --ltp-root DIR -o OUT [options]",
			help:  "Parse both dry-run dumps and append the stanzas to OUT",
			run:   runAndroidMk,
		},
		"filter": {
			usage: "filter --android-build-top DIR --ltp-dir DIR --target-product P",
			help:  "Keep only the Android.ltp.mk modules that were built",
			run:   runFilter,
		},
		"testcases": {
			usage: "testcases --ltp-root DIR [--disabled-tests F] [infile]",
			help:  "Print the LTP test case table of a scenario group",
			run:   runTestcases,
		},
		"coverage": {
			usage: "coverage [-a ARCH] [-l] [-s] [-f] [--yaml] [--android-build-top DIR]",
			help:  "Report the LTP coverage of the kernel syscall interface",
			run:   runCoverage,
		},
		"browse": {
			usage: "browse --ltp-root DIR [options]",
			help:  "Browse the generated modules in a terminal UI",
			run:   runBrowse,
		},
		"serve": {
			usage: "serve --ltp-root DIR [--port N] [options]",
			help:  "Serve the generated modules over HTTP",
			run:   runServe,
		},
		"upstream": {
			usage: "upstream --ltp-root DIR",
			help:  "Check the LTP snapshot against the latest upstream release",
			run:   runUpstream,
		},
		"version": {
			usage: "version",
			help:  "Print version information",
			run: func([]string) error {
				fmt.Printf("ltpgen version %s\n", model.Version)
				return nil
			},
		},
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: ltpgen <command> [options]\n\n")
	fmt.Fprintf(os.Stderr, "ltpgen turns the build logs of the Linux Test Project into Android\n")
	fmt.Fprintf(os.Stderr, "build files and reports on the resulting test coverage.\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-14s %s\n", name, commands[name].help)
	}
	fmt.Fprintf(os.Stderr, "\nRun 'ltpgen <command> --help' for the options of a command.\n")
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  ltpgen parse-make --ltp-root ~/ltp make_dry_run.dump > rules.txt\n")
	fmt.Fprintf(os.Stderr, "  ltpgen gen-mk --disabled-tests disabled_tests.txt rules.txt\n")
	fmt.Fprintf(os.Stderr, "  ltpgen androidmk --ltp-root ~/ltp -o Android.ltp.mk\n")
	fmt.Fprintf(os.Stderr, "  ltpgen coverage -a arm64 -s\n")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	name := os.Args[1]
	switch name {
	case "-h", "--help", "help":
		usage()
		return
	case "-V", "--version":
		name = "version"
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "ltpgen: unknown command %q\n\n", name)
		usage()
		os.Exit(2)
	}
	if err := cmd.run(os.Args[2:]); err != nil {
		if err == pflag.ErrHelp {
			return
		}
		fmt.Fprintf(os.Stderr, "ltpgen %s: %v\n", name, err)
		os.Exit(1)
	}
}

// newFlagSet creates the flag set of a command. Parse errors are returned
// instead of exiting so they reach main's error reporting.
func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ltpgen %s\n\n%s.\n\nOptions:\n", commands[name].usage, commands[name].help)
		fs.PrintDefaults()
	}
	return fs
}
