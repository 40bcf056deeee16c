package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ltpgen/internal/androidmk"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

const linkRules = `cc_compile['foo.o'] = ['foo.c']
cc_flags['foo.o'] = []
cc_includes['foo.o'] = []
cc_link['foo'] = ['foo.o']
cc_libraries['foo'] = ['m', 'pthread']
cc_flags['foo'] = []
cc_includes['foo'] = []
`

const fooStanza = `module_testname := foo
module_src_files := foo.c
module_cflags := 
module_c_includes := 
module_static_libraries := 
module_shared_libraries := m
include $(ltp_build_test)
`

func TestGenMk(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, filepath.Join(dir, "rules.txt"), linkRules)
	disabled := writeFile(t, filepath.Join(dir, "disabled_tests.txt"), "# none\n")
	out := filepath.Join(dir, "Android.mk")

	if err := runGenMk([]string{"--disabled-tests", disabled, "-o", out, in}); err != nil {
		t.Fatal(err)
	}
	want := androidmk.DefaultHeader + "\n\n" + fooStanza
	if got := readFile(t, out); got != want {
		t.Errorf("expected:\n%s\ngot:\n%s", want, got)
	}
}

func TestGenMkErrors(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, filepath.Join(dir, "rules.txt"), "cc_link['foo'] = ['foo.o']\nbogus\n")
	disabled := writeFile(t, filepath.Join(dir, "disabled_tests.txt"), "")

	testCases := []struct {
		args []string
		err  string
	}{
		{args: []string{in}, err: "--disabled-tests is required"},
		{args: []string{"--disabled-tests", disabled, in}, err: in + ": line 2"},
		{args: []string{"--disabled-tests", disabled, "--on-duplicate", "maybe", in}, err: `unknown duplicate policy "maybe"`},
		{args: []string{"--no-such-flag"}, err: "unknown flag: --no-such-flag"},
	}
	for _, tc := range testCases {
		err := runGenMk(tc.args)
		if err == nil || !strings.Contains(err.Error(), tc.err) {
			t.Errorf("%v: expected error containing %q, got %v", tc.args, tc.err, err)
		}
	}
}

func TestGenMkConfigFile(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, filepath.Join(dir, "rules.txt"), linkRules)
	writeFile(t, filepath.Join(dir, "conf", "disabled_tests.txt"), "foo\n")
	writeFile(t, filepath.Join(dir, "conf", "none.txt"), "")
	cfg := writeFile(t, filepath.Join(dir, "conf", "ltpgen.yaml"), `disabled_tests: disabled_tests.txt
builtin_libs: [m, pthread]
header: "# from the config"
`)

	// The config disables foo.
	out := filepath.Join(dir, "a.mk")
	if err := runGenMk([]string{"--config", cfg, "-o", out, in}); err != nil {
		t.Fatal(err)
	}
	if got, want := readFile(t, out), "# from the config\n"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	// Flags win over the config file.
	out = filepath.Join(dir, "b.mk")
	args := []string{"--config", cfg, "--disabled-tests", filepath.Join(dir, "conf", "none.txt"), "--builtin-libs", "pthread", "-o", out, in}
	if err := runGenMk(args); err != nil {
		t.Fatal(err)
	}
	want := "# from the config\n\n" + fooStanza
	if got := readFile(t, out); got != want {
		t.Errorf("expected:\n%s\ngot:\n%s", want, got)
	}
}

func TestAndroidMkAppends(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "ltp")
	makeDump := writeFile(t, filepath.Join(dir, "make.dump"), "make: Entering directory '"+root+"'\n"+
		"gcc -c -o foo.o foo.c\n"+
		"gcc -o foo foo.o -lm\n"+
		"make: Leaving directory '"+root+"'\n")
	installDump := writeFile(t, filepath.Join(dir, "install.dump"), "")
	out := filepath.Join(dir, "Android.ltp.mk")

	args := []string{"--ltp-root", root, "--make-dump", makeDump, "--install-dump", installDump, "-o", out}
	for i := 0; i < 2; i++ {
		if err := runAndroidMk(args); err != nil {
			t.Fatal(err)
		}
	}
	want := androidmk.DefaultHeader + "\n\n" + fooStanza + "\n" + fooStanza
	if got := readFile(t, out); got != want {
		t.Errorf("expected:\n%s\ngot:\n%s", want, got)
	}
}

func TestFilterCommand(t *testing.T) {
	dir := t.TempDir()
	top := filepath.Join(dir, "top")
	ltpDir := filepath.Join(top, "external", "ltp")
	mk := writeFile(t, filepath.Join(ltpDir, "Android.ltp.mk"), "# header\n\n"+fooStanza+"\nmodule_testname := bar\nmodule_src_files := bar.c\ninclude $(ltp_build_test)\n")
	writeFile(t, filepath.Join(androidmk.LTPOutputDir(top, "sdk"), "testcases", "bin", "foo"), "")

	if err := runFilter([]string{"--android-build-top", top, "--ltp-dir", ltpDir, "--target-product", "sdk"}); err != nil {
		t.Fatal(err)
	}
	got := readFile(t, mk)
	if !strings.Contains(got, "module_testname := foo") || strings.Contains(got, "module_testname := bar") {
		t.Errorf("unexpected filtered file:\n%s", got)
	}
}

func TestLTPVersion(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "VERSION"), "20240129\n")
	got, err := ltpVersion(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got != "20240129" {
		t.Errorf("expected 20240129, got %q", got)
	}
	if _, err := ltpVersion(t.TempDir()); err == nil {
		t.Error("expected an error without a VERSION file")
	}
}
