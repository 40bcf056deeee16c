package coverage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"ltpgen/internal/model"
)

const syscallsTxt = `# return_type func_name[|alias_list][:syscall_name[:socketcall_id]]([parameter_list]) arch_list
int     read(int, void*, size_t)  all
int     __openat:openat(int, const char*, int, mode_t) all
int     setuid:setuid32(uid_t)    lp32
int     setuid(uid_t)    lp64
int     __socket:socketcall:1(int, int, int) x86
off_t   lseek|lseek64(int, off_t, int) arm64,x86_64

int     fadvise64(int, off_t, off_t, int) x86_64
`

func TestParseSyscallsTxt(t *testing.T) {
	list := NewSyscallList()
	if err := list.ParseSyscallsTxt(strings.NewReader(syscallsTxt)); err != nil {
		t.Fatal(err)
	}
	testCases := []struct {
		arch string
		want []string
	}{
		{arch: "", want: []string{"read", "openat", "setuid32", "setuid", "socketcall", "lseek", "fadvise64"}},
		{arch: "arm", want: []string{"read", "openat", "setuid32"}},
		{arch: "x86", want: []string{"read", "openat", "setuid32", "socketcall"}},
		{arch: "x86_64", want: []string{"read", "openat", "setuid", "lseek", "fadvise64"}},
	}
	for _, tc := range testCases {
		if got := list.Names(tc.arch); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("arch %q: expected %v, got %v", tc.arch, tc.want, got)
		}
	}
}

func TestParseSyscallsTxtErrors(t *testing.T) {
	testCases := []struct {
		in, err string
	}{
		{in: "int read int all\n", err: "line 1: missing parameter list"},
		{in: "\nread(int) all\n", err: "line 2: missing return type"},
		{in: "int :read(int) all\n", err: "empty function name"},
		{in: "int read(int)\n", err: "missing architecture list"},
		{in: "int read(int) mips\n", err: `unknown architecture "mips"`},
	}
	for _, tc := range testCases {
		err := NewSyscallList().ParseSyscallsTxt(strings.NewReader(tc.in))
		if err == nil || !strings.Contains(err.Error(), tc.err) {
			t.Errorf("%q: expected error containing %q, got %v", tc.in, tc.err, err)
		}
	}
}

func newTestCoverage(arch string) *Coverage {
	c := New(arch)
	c.AddLTPTests(
		"read01", "read02", "readahead01",
		"clock_nanosleep01", "clock_nanosleep2_01",
		"posix_fadvise01", "futex_wait01", "inotify01", "fstatat01",
		"ioctl01", "ioctl02",
	)
	c.SetVTSLists(
		model.NewStringSet("syscalls.read02"),
		model.NewStringSet(
			"syscalls.read01_64bit", "syscalls.read02_32bit", "syscalls.clock_nanosleep2_01_64bit",
			"syscalls.posix_fadvise01_32bit", "syscalls.ioctl01_02_32bit",
		),
	)
	return c
}

func syscallList(names ...string) *SyscallList {
	list := NewSyscallList()
	for _, n := range names {
		list.Add(n, "arm64")
	}
	return list
}

func TestMatch(t *testing.T) {
	c := newTestCoverage("")
	c.Match(syscallList("read", "clock_nanosleep", "fadvise64", "futex", "inotify_add_watch", "newfstatat", "ioctl", "pivot_root"))

	wantSyscalls := []string{"clock_nanosleep", "fadvise64", "futex", "inotify_add_watch", "ioctl", "newfstatat", "pivot_root", "read"}
	if got := c.Syscalls(); !reflect.DeepEqual(got, wantSyscalls) {
		t.Fatalf("expected syscalls %v, got %v", wantSyscalls, got)
	}
	testCases := []struct {
		syscall  string
		tests    []string
		disabled []string
		covered  bool
	}{
		{syscall: "read", tests: []string{"read01", "read02"}, disabled: []string{"read02"}, covered: true},
		{syscall: "clock_nanosleep", tests: []string{"clock_nanosleep01", "clock_nanosleep2_01"}, disabled: []string{"clock_nanosleep01"}, covered: true},
		{syscall: "fadvise64", tests: []string{"posix_fadvise01"}, disabled: []string{}, covered: true},
		{syscall: "futex", tests: []string{"futex_wait01"}, disabled: []string{"futex_wait01"}},
		{syscall: "inotify_add_watch", tests: []string{"inotify01"}, disabled: []string{"inotify01"}},
		{syscall: "newfstatat", tests: []string{"fstatat01"}, disabled: []string{"fstatat01"}},
		{syscall: "ioctl", tests: []string{"ioctl01_02"}, disabled: []string{}, covered: true},
		{syscall: "pivot_root", tests: []string{}, disabled: []string{}},
	}
	for _, tc := range testCases {
		if got := c.Tests(tc.syscall); !reflect.DeepEqual(got, tc.tests) {
			t.Errorf("%s: expected tests %v, got %v", tc.syscall, tc.tests, got)
		}
		if got := c.Disabled(tc.syscall); !reflect.DeepEqual(got, tc.disabled) {
			t.Errorf("%s: expected disabled %v, got %v", tc.syscall, tc.disabled, got)
		}
		if got := c.Covered(tc.syscall); got != tc.covered {
			t.Errorf("%s: expected covered %v, got %v", tc.syscall, tc.covered, got)
		}
	}

	total, disabled, noTests := c.Totals()
	if total != 8 || disabled != 3 || noTests != 1 {
		t.Errorf("expected totals 8/3/1, got %d/%d/%d", total, disabled, noTests)
	}
}

func TestMatchArch(t *testing.T) {
	list := NewSyscallList()
	list.Add("read", "arm")
	list.Add("read", "x86")
	list.Add("pivot_root", "x86")

	c := newTestCoverage("arm")
	c.Match(list)
	if got, want := c.Syscalls(), []string{"read"}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestLTPDisabled(t *testing.T) {
	c := newTestCoverage("")
	c.disabledInLTP = model.NewStringSet("read01")
	c.Match(syscallList("read"))
	if got, want := c.Disabled("read"), []string{"read01", "read02"}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if c.Covered("read") {
		t.Error("read should be uncovered once every test is disabled")
	}
}

func TestWriteResults(t *testing.T) {
	c := newTestCoverage("arm64")
	c.Match(syscallList("read", "pivot_root"))

	var buf bytes.Buffer
	c.WriteResults(&buf)
	header := fmt.Sprintf("%25s   Disabled Enabled -------------\n", "-------------")
	want := "\n" +
		"         Covered Syscalls\n" +
		header +
		fmt.Sprintf("%25s   1        1\n", "read") +
		"\n\n" +
		"       Uncovered Syscalls\n" +
		header +
		fmt.Sprintf("%25s   0        0\n", "pivot_root") +
		"\n" +
		"Total uncovered syscalls: 1 out of 2\n"
	if got := buf.String(); got != want {
		t.Errorf("expected:\n%s\ngot:\n%s", want, got)
	}

	buf.Reset()
	WriteSummaryHeader(&buf)
	c.WriteSummary(&buf)
	wantSummary := "arch, cki syscalls, uncovered with disabled test(s), uncovered with no tests, total uncovered\n" +
		"arm64, 2, 0, 1, 1\n"
	if got := buf.String(); got != wantSummary {
		t.Errorf("expected:\n%s\ngot:\n%s", wantSummary, got)
	}
}

func TestWriteYAML(t *testing.T) {
	c := newTestCoverage("arm64")
	c.Match(syscallList("read"))

	var buf bytes.Buffer
	if err := WriteYAML(&buf, []Report{c.Report()}); err != nil {
		t.Fatal(err)
	}
	var got []Report
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	want := []Report{{
		Arch:              "arm64",
		Total:             1,
		UncoveredDisabled: 0,
		UncoveredNoTests:  0,
		Syscalls: []SyscallReport{
			{Name: "read", Covered: true, Tests: []string{"read01", "read02"}, Disabled: []string{"read02"}},
		},
	}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestParseVTSList(t *testing.T) {
	in := `# Stable tests
STABLE_TESTS = {
    'syscalls.read01_32bit': True,
    'syscalls.read01_64bit': False,
    "syscalls.read02_64bit": True,
}

DISABLED_TESTS = [
    'syscalls.futex_wait01',  # flaky
]
`
	got, err := ParseVTSList(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	want := model.NewStringSet("syscalls.read01_32bit", "syscalls.read02_64bit", "syscalls.futex_wait01")
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestKernelSyscalls(t *testing.T) {
	tables := map[string]string{
		"/include/uapi/asm-generic/unistd.h": "#define __NR_io_setup 0\n" +
			"#define __NR3264_fcntl 25\n" +
			"#define __NR_sync_file_range2 84\n" +
			"#define __NR_syscalls 451\n",
		"/arch/arm64/include/asm/unistd32.h": "#define __NR_restart_syscall 0\n",
		"/arch/arm/tools/syscall.tbl":        "0\tcommon\trestart_syscall\tsys_restart_syscall\n1\tcommon\texit\tsys_exit\n",
		"/arch/x86/entry/syscalls/syscall_32.tbl": "# comment\n" +
			"1\ti386\texit\tsys_exit\n",
		"/arch/x86/entry/syscalls/syscall_64.tbl": "0\tcommon\tread\tsys_read\n" +
			"1\tcommon\twrite\t__x64_sys_write\n" +
			"512\tx32\trt_sigaction\tcompat_sys_rt_sigaction\n",
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := tables[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	f := NewFetcher(0)
	f.BaseURL = srv.URL + "/"
	list := NewSyscallList()
	if err := f.KernelSyscalls(context.Background(), list); err != nil {
		t.Fatal(err)
	}
	testCases := []struct {
		arch string
		want []string
	}{
		{arch: "", want: []string{"io_setup", "fcntl", "restart_syscall", "exit", "read", "write"}},
		{arch: "arm64", want: []string{"io_setup", "fcntl", "restart_syscall"}},
		{arch: "x86", want: []string{"exit"}},
		{arch: "x86_64", want: []string{"read", "write"}},
	}
	for _, tc := range testCases {
		if got := list.Names(tc.arch); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("arch %q: expected %v, got %v", tc.arch, tc.want, got)
		}
	}
}

func TestKernelSyscallsError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	f := NewFetcher(0)
	f.BaseURL = srv.URL + "/"
	err := f.KernelSyscalls(context.Background(), NewSyscallList())
	if err == nil || !strings.Contains(err.Error(), srv.URL+"/include/uapi/asm-generic/unistd.h") {
		t.Errorf("expected an error naming the URL, got %v", err)
	}
}

func TestLoadTree(t *testing.T) {
	top := t.TempDir()
	tree := Tree{Top: top}
	writeFile(t, filepath.Join(tree.LTPSyscallTests(), "read", "read01.c"), "")
	writeFile(t, filepath.Join(tree.LTPSyscallTests(), "read", "read02.c"), "")
	writeFile(t, filepath.Join(tree.LTPSyscallTests(), "read", "Makefile"), "")
	writeFile(t, tree.LTPDisabledTests(), "# disabled\nread02 # needs root\n")
	writeFile(t, tree.VTSDisabledTests(), "DISABLED_TESTS = []\n")
	writeFile(t, tree.VTSStableTests(), "STABLE_TESTS = {\n  'syscalls.read01_64bit': True,\n  'syscalls.read02_64bit': True,\n}\n")

	c, err := tree.Load("arm64")
	if err != nil {
		t.Fatal(err)
	}
	c.Match(syscallList("read"))
	if got, want := c.Tests("read"), []string{"read01", "read02"}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected tests %v, got %v", want, got)
	}
	if got, want := c.Disabled("read"), []string{"read02"}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected disabled %v, got %v", want, got)
	}
}

func TestBionicSyscalls(t *testing.T) {
	top := t.TempDir()
	tree := Tree{Top: top}
	writeFile(t, tree.bionicLibc("SYSCALLS.TXT"), "int read(int, void*, size_t) all\n")
	writeFile(t, tree.bionicLibc("SECCOMP_WHITELIST_APP.TXT"), "int pivot_root(const char*, const char*) lp64\n")
	writeFile(t, tree.bionicLibc("SECCOMP_ALLOWLIST_COMMON.TXT"), "")
	writeFile(t, tree.bionicLibc("SECCOMP_ALLOWLIST_SYSTEM.TXT"), "")

	if _, err := tree.BionicSyscalls(); err == nil || !strings.Contains(err.Error(), "SECCOMP_WHITELIST_GLOBAL.TXT") {
		t.Fatalf("expected an error naming the missing list, got %v", err)
	}

	writeFile(t, tree.bionicLibc("SECCOMP_WHITELIST_GLOBAL.TXT"), "")
	list, err := tree.BionicSyscalls()
	if err != nil {
		t.Fatal(err)
	}
	if got, want := list.Names("arm"), []string{"read"}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if got, want := list.Names("arm64"), []string{"read", "pivot_root"}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}
