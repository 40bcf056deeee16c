package coverage

import (
	"fmt"
	"path/filepath"

	"ltpgen/internal/model"
)

// Tree locates coverage inputs inside an Android source tree.
type Tree struct {
	Top string // ANDROID_BUILD_TOP
}

func (t Tree) LTPSyscallTests() string {
	return filepath.Join(t.Top, "external", "ltp", "testcases", "kernel", "syscalls")
}

func (t Tree) LTPDisabledTests() string {
	return filepath.Join(t.Top, "external", "ltp", "android", "tools", "disabled_tests.txt")
}

func (t Tree) VTSDisabledTests() string {
	return filepath.Join(t.Top, "test", "vts-testcase", "kernel", "ltp", "configs", "disabled_tests.py")
}

func (t Tree) VTSStableTests() string {
	return filepath.Join(t.Top, "test", "vts-testcase", "kernel", "ltp", "configs", "stable_tests.py")
}

func (t Tree) bionicLibc(name string) string {
	return filepath.Join(t.Top, "bionic", "libc", name)
}

// seccompLists are the bionic seccomp lists, each known under its older and
// newer name.
var seccompLists = [][2]string{
	{"SECCOMP_WHITELIST_APP.TXT", "SECCOMP_ALLOWLIST_APP.TXT"},
	{"SECCOMP_WHITELIST_COMMON.TXT", "SECCOMP_ALLOWLIST_COMMON.TXT"},
	{"SECCOMP_WHITELIST_SYSTEM.TXT", "SECCOMP_ALLOWLIST_SYSTEM.TXT"},
	{"SECCOMP_WHITELIST_GLOBAL.TXT", "SECCOMP_ALLOWLIST_GLOBAL.TXT"},
}

// BionicSyscalls reads SYSCALLS.TXT and the seccomp lists of bionic.
func (t Tree) BionicSyscalls() (*SyscallList, error) {
	list := NewSyscallList()
	if err := list.ParseSyscallsTxtFile(t.bionicLibc("SYSCALLS.TXT")); err != nil {
		return nil, err
	}
	for _, names := range seccompLists {
		path := t.bionicLibc(names[0])
		if !model.IsRegularFile(path) {
			path = t.bionicLibc(names[1])
		}
		if !model.IsRegularFile(path) {
			return nil, fmt.Errorf("neither %s nor %s found in %s", names[0], names[1], t.bionicLibc(""))
		}
		if err := list.ParseSyscallsTxtFile(path); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// Load creates a Coverage for arch from the LTP and VTS files of the tree.
func (t Tree) Load(arch string) (*Coverage, error) {
	c := New(arch)
	if err := c.LoadLTPTests(t.LTPSyscallTests()); err != nil {
		return nil, err
	}
	if err := c.LoadLTPDisabled(t.LTPDisabledTests()); err != nil {
		return nil, err
	}
	disabled, err := ReadVTSList(t.VTSDisabledTests())
	if err != nil {
		return nil, err
	}
	stable, err := ReadVTSList(t.VTSStableTests())
	if err != nil {
		return nil, err
	}
	c.SetVTSLists(disabled, stable)
	return c, nil
}
