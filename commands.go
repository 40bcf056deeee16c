package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"github.com/tcnksm/go-latest"

	"ltpgen/internal/androidmk"
	"ltpgen/internal/coverage"
	"ltpgen/internal/model"
	"ltpgen/internal/pipeline"
	"ltpgen/internal/rules"
	"ltpgen/internal/testcases"
	"ltpgen/internal/trace"
	"ltpgen/internal/tui"
	"ltpgen/internal/web"
)

var logger = log.New(os.Stderr, "ltpgen: ", 0)

// openInput opens path for reading, "-" or "" being stdin.
func openInput(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func singleInput(fs *pflag.FlagSet) (string, error) {
	switch fs.NArg() {
	case 0:
		return "-", nil
	case 1:
		return fs.Arg(0), nil
	}
	return "", fmt.Errorf("expected at most one input file, got %d", fs.NArg())
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// traceInput returns the trace to parse: the input file, or the output of a
// fresh dry run in the LTP root when run is set.
func traceInput(fs *pflag.FlagSet, ltpRoot string, run bool, makeArgs ...string) (io.ReadCloser, error) {
	if !run {
		in, err := singleInput(fs)
		if err != nil {
			return nil, err
		}
		return openInput(in)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("--run takes no input file")
	}
	ctx, cancel := signalContext()
	defer cancel()
	out, err := trace.DryRun(ctx, ltpRoot, makeArgs...)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(out)), nil
}

func requireFlag(name, value string) error {
	if value == "" {
		return fmt.Errorf("--%s is required", name)
	}
	return nil
}

func runParseMake(args []string) error {
	fs := newFlagSet("parse-make")
	ltpRoot := fs.String("ltp-root", "", "LTP root dir")
	archiver := fs.String("archiver", trace.DefaultArchiver, "Archiver command to recognize")
	compiler := fs.String("compiler", trace.DefaultCompiler, "Compiler command to recognize")
	run := fs.Bool("run", false, "Run make --dry-run in the LTP root instead of reading a trace")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlag("ltp-root", *ltpRoot); err != nil {
		return err
	}

	p, err := trace.NewMakeParserWithTools(*ltpRoot, *archiver, *compiler)
	if err != nil {
		return err
	}
	in, err := traceInput(fs, *ltpRoot, *run)
	if err != nil {
		return err
	}
	defer in.Close()
	return p.Parse(in, rules.NewWriter(os.Stdout))
}

func runParseInstall(args []string) error {
	fs := newFlagSet("parse-install")
	ltpRoot := fs.String("ltp-root", "", "LTP root dir")
	prefix := fs.String("install-prefix", trace.DefaultInstallPrefix, "Directory LTP installs to")
	run := fs.Bool("run", false, "Run make install --dry-run in the LTP root instead of reading a trace")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlag("ltp-root", *ltpRoot); err != nil {
		return err
	}

	p, err := trace.NewInstallParser(*ltpRoot, *prefix)
	if err != nil {
		return err
	}
	in, err := traceInput(fs, *ltpRoot, *run, "install")
	if err != nil {
		return err
	}
	defer in.Close()
	return p.Parse(in, rules.NewWriter(os.Stdout))
}

// genFlags are the generator options shared by gen-mk, androidmk, browse
// and serve.
type genFlags struct {
	fs *pflag.FlagSet

	configFile     string
	disabledTests  string
	disabledLibs   string
	disabledCflags string
	onDuplicate    string
	builtinLibs    []string
	header         string
}

func addGenFlags(fs *pflag.FlagSet) *genFlags {
	g := &genFlags{fs: fs}
	fs.StringVar(&g.configFile, "config", "", "YAML generator configuration")
	fs.StringVar(&g.disabledTests, "disabled-tests", "", "File with a list of disabled tests")
	fs.StringVar(&g.disabledLibs, "disabled-libs", "", "File with a list of disabled libraries")
	fs.StringVar(&g.disabledCflags, "disabled-cflags", "", "File with a list of disabled cflags")
	fs.StringVar(&g.onDuplicate, "on-duplicate", string(androidmk.DuplicateSkip), "What to do with duplicate test basenames: skip or fail")
	fs.StringSliceVar(&g.builtinLibs, "builtin-libs", androidmk.DefaultBuiltinLibs, "Libraries that are never shared library dependencies")
	fs.StringVar(&g.header, "header", androidmk.DefaultHeader, "Comment block written before the stanzas")
	return g
}

// apply merges the config file under the flags that were not set explicitly.
func (g *genFlags) apply() error {
	if g.configFile == "" {
		return nil
	}
	fc, err := androidmk.LoadFileConfig(g.configFile)
	if err != nil {
		return err
	}
	for _, v := range []struct {
		flag  string
		value string
		dst   *string
	}{
		{"disabled-tests", fc.Path(fc.DisabledTests), &g.disabledTests},
		{"disabled-libs", fc.Path(fc.DisabledLibs), &g.disabledLibs},
		{"disabled-cflags", fc.Path(fc.DisabledCflags), &g.disabledCflags},
		{"on-duplicate", fc.OnDuplicate, &g.onDuplicate},
		{"header", fc.Header, &g.header},
	} {
		if v.value != "" && !g.fs.Changed(v.flag) {
			*v.dst = v.value
		}
	}
	if fc.BuiltinLibs != nil && !g.fs.Changed("builtin-libs") {
		g.builtinLibs = fc.BuiltinLibs
	}
	return nil
}

func (g *genFlags) config() (androidmk.Config, error) {
	if err := g.apply(); err != nil {
		return androidmk.Config{}, err
	}
	policy, err := androidmk.ParseDuplicatePolicy(g.onDuplicate)
	if err != nil {
		return androidmk.Config{}, err
	}
	cfg := androidmk.Config{
		BuiltinLibs: model.NewStringSet(g.builtinLibs...),
		OnDuplicate: policy,
		Logger:      logger,
	}
	files := androidmk.ExclusionFiles{
		DisabledTests:  g.disabledTests,
		DisabledLibs:   g.disabledLibs,
		DisabledCflags: g.disabledCflags,
	}
	if err := files.Load(&cfg); err != nil {
		return androidmk.Config{}, err
	}
	return cfg, nil
}

// pipelineFlags name the inputs of a full generation run.
type pipelineFlags struct {
	*genFlags
	in pipeline.Inputs
}

func addPipelineFlags(fs *pflag.FlagSet) *pipelineFlags {
	p := &pipelineFlags{genFlags: addGenFlags(fs)}
	fs.StringVar(&p.in.LTPRoot, "ltp-root", "", "LTP root dir")
	fs.StringVar(&p.in.MakeDump, "make-dump", pipeline.MakeDryRunFileName, "Trace of make --dry-run")
	fs.StringVar(&p.in.InstallDump, "install-dump", pipeline.MakeInstallDryRunFileName, "Trace of make install --dry-run")
	fs.StringVar(&p.in.InstallPrefix, "install-prefix", trace.DefaultInstallPrefix, "Directory LTP installs to")
	return p
}

func (p *pipelineFlags) run() (model.GenerationResult, error) {
	if err := requireFlag("ltp-root", p.in.LTPRoot); err != nil {
		return model.GenerationResult{}, err
	}
	cfg, err := p.config()
	if err != nil {
		return model.GenerationResult{}, err
	}
	return pipeline.Run(p.in, cfg)
}

func printSuggestions(w io.Writer, s model.Suggestions) {
	fmt.Fprintf(w, "Disabled lib tests: Test cases listed here are suggested to be disabled since they require a disabled library. Please copy and paste them into disabled_tests.txt\n\n")
	for _, name := range s.DisabledLibTests {
		fmt.Fprintln(w, name)
	}
	fmt.Fprintf(w, "Disabled_cflag tests: Test cases listed here are suggested to be disabled since they require a disabled cflag. Please copy and paste them into disabled_tests.txt\n\n")
	for _, name := range s.DisabledCflagTests {
		fmt.Fprintln(w, name)
	}
}

func runGenMk(args []string) error {
	fs := newFlagSet("gen-mk")
	g := addGenFlags(fs)
	output := fs.StringP("output", "o", "", "Write the stanzas to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := g.config()
	if err != nil {
		return err
	}
	if err := requireFlag("disabled-tests", g.disabledTests); err != nil {
		return err
	}

	inputs := fs.Args()
	if len(inputs) == 0 {
		inputs = []string{"-"}
	}
	table := rules.NewTable()
	for _, path := range inputs {
		in, err := openInput(path)
		if err != nil {
			return err
		}
		err = rules.ParseInto(table, in)
		in.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	result, err := androidmk.NewGenerator(cfg).Generate(table)
	if err != nil {
		return err
	}
	printSuggestions(os.Stderr, result.Suggestions)

	text, err := androidmk.Render(g.header, result.Modules)
	if err != nil {
		return err
	}
	if *output == "" {
		_, err = io.WriteString(os.Stdout, text)
		return err
	}
	return os.WriteFile(*output, []byte(text), 0644)
}

func runAndroidMk(args []string) error {
	fs := newFlagSet("androidmk")
	p := addPipelineFlags(fs)
	output := fs.StringP("output", "o", "", "Android.ltp.mk to append the stanzas to")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlag("output", *output); err != nil {
		return err
	}
	result, err := p.run()
	if err != nil {
		return err
	}
	printSuggestions(os.Stdout, result.Suggestions)

	// The header only starts a new file; appending to an existing one adds
	// a blank line and the stanzas.
	header := p.header
	appending := false
	if info, err := os.Stat(*output); err == nil && info.Size() > 0 {
		header, appending = "", true
	}
	f, err := os.OpenFile(*output, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	if appending && len(result.Modules) > 0 {
		_, err = io.WriteString(f, "\n")
	}
	var w *androidmk.Writer
	if err == nil {
		w, err = androidmk.NewWriter(f, header)
	}
	if err == nil {
		err = w.Write(result.Modules...)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	fmt.Println("Finished!")
	return nil
}

func runFilter(args []string) error {
	fs := newFlagSet("filter")
	top := fs.String("android-build-top", os.Getenv("ANDROID_BUILD_TOP"), "Android build top dir")
	ltpDir := fs.String("ltp-dir", "", "LTP dir holding Android.ltp.mk")
	product := fs.String("target-product", os.Getenv("TARGET_PRODUCT"), "Target product name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	for _, f := range []struct{ name, value string }{
		{"android-build-top", *top},
		{"ltp-dir", *ltpDir},
		{"target-product", *product},
	} {
		if err := requireFlag(f.name, f.value); err != nil {
			return err
		}
	}

	checker := androidmk.OutputDirChecker{Dir: androidmk.LTPOutputDir(*top, *product)}
	stats, err := androidmk.FilterFile(filepath.Join(*ltpDir, "Android.ltp.mk"), checker)
	if err != nil {
		return err
	}
	fmt.Printf("%d blocks loaded (including comments and empty blocks).\n", stats.Blocks)
	fmt.Printf("%d modules were successfully built.\n", stats.Kept)
	fmt.Println("--Filtering complete. Android.ltp.mk file modified.")
	return nil
}

func runTestcases(args []string) error {
	fs := newFlagSet("testcases")
	ltpRoot := fs.String("ltp-root", "", "LTP root dir")
	disabledTests := fs.String("disabled-tests", "", "File with a list of disabled tests")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlag("ltp-root", *ltpRoot); err != nil {
		return err
	}
	path, err := singleInput(fs)
	if err != nil {
		return err
	}

	disabled, err := testcases.ReadDisabled(*disabledTests)
	if err != nil {
		return err
	}
	in, err := openInput(path)
	if err != nil {
		return err
	}
	defer in.Close()
	return testcases.NewGenerator(*ltpRoot, disabled).Write(os.Stdout, in)
}

func runCoverage(args []string) error {
	fs := newFlagSet("coverage")
	arch := fs.StringP("arch", "a", "", "Only show syscall CKI for a specific arch")
	list := fs.BoolP("list", "l", false, "List CKI syscalls only, without coverage")
	summary := fs.BoolP("summary", "s", false, "Print one line summary of CKI coverage for arch")
	androidOnly := fs.BoolP("android", "f", false, "Only check syscalls with known Android use")
	asYAML := fs.Bool("yaml", false, "Print the coverage as YAML")
	top := fs.String("android-build-top", os.Getenv("ANDROID_BUILD_TOP"), "Android build top dir")
	timeout := fs.Duration("timeout", coverage.DefaultFetchTimeout, "Timeout of each kernel syscall table download")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *arch != "" && !coverage.IsArch(*arch) {
		return fmt.Errorf("arch must be one of the following: %s", strings.Join(coverage.Arches, ", "))
	}
	if err := requireFlag("android-build-top", *top); err != nil {
		return err
	}
	tree := coverage.Tree{Top: *top}

	var syscalls *coverage.SyscallList
	if *androidOnly {
		var err error
		if syscalls, err = tree.BionicSyscalls(); err != nil {
			return err
		}
	} else {
		ctx, cancel := signalContext()
		defer cancel()
		syscalls = coverage.NewSyscallList()
		if err := coverage.NewFetcher(*timeout).KernelSyscalls(ctx, syscalls); err != nil {
			return err
		}
	}

	if *list {
		for _, name := range syscalls.Names(*arch) {
			fmt.Println(name)
		}
		return nil
	}

	c, err := tree.Load(*arch)
	if err != nil {
		return err
	}
	c.Match(syscalls)

	switch {
	case *asYAML:
		return coverage.WriteYAML(os.Stdout, []coverage.Report{c.Report()})
	case *summary:
		coverage.WriteSummaryHeader(os.Stdout)
		c.WriteSummary(os.Stdout)
	default:
		fmt.Println(coverage.BetaWarning)
		c.WriteResults(os.Stdout)
	}
	return nil
}

func runBrowse(args []string) error {
	fs := newFlagSet("browse")
	p := addPipelineFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	// Warnings would draw over the UI; the diagnostics pane lists skips.
	logger.SetOutput(io.Discard)

	prog := tea.NewProgram(tui.InitialModel(p.run), tea.WithAltScreen())
	final, err := prog.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(tui.AppModel); ok {
		return m.Err
	}
	return nil
}

func runServe(args []string) error {
	fs := newFlagSet("serve")
	p := addPipelineFlags(fs)
	port := fs.IntP("port", "p", web.DefaultPort, "Port to listen on")
	if err := fs.Parse(args); err != nil {
		return err
	}
	result, err := p.run()
	if err != nil {
		return err
	}
	return web.NewServer(result, p.header).ListenAndServe(fmt.Sprintf(":%d", *port))
}

// ltpVersion reads the snapshot version from the VERSION file of the LTP
// tree.
func ltpVersion(ltpRoot string) (string, error) {
	data, err := os.ReadFile(filepath.Join(ltpRoot, "VERSION"))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func runUpstream(args []string) error {
	fs := newFlagSet("upstream")
	ltpRoot := fs.String("ltp-root", "", "LTP root dir")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlag("ltp-root", *ltpRoot); err != nil {
		return err
	}
	current, err := ltpVersion(*ltpRoot)
	if err != nil {
		return err
	}

	githubTag := &latest.GithubTag{
		Owner:      "linux-test-project",
		Repository: "ltp",
	}
	start := time.Now()
	res, err := latest.Check(githubTag, current)
	if err != nil {
		return fmt.Errorf("checking the latest LTP release: %w", err)
	}
	logger.Printf("checked github.com/%s/%s in %s", githubTag.Owner, githubTag.Repository, time.Since(start).Round(time.Millisecond))

	if res.Outdated {
		fmt.Printf("A new LTP release is available: %s (the snapshot is %s)\n", res.Current, current)
		fmt.Println("See https://github.com/linux-test-project/ltp/releases")
	} else {
		fmt.Printf("The LTP snapshot is the latest release: %s\n", current)
	}
	return nil
}
