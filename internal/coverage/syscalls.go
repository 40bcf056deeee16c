package coverage

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Arches are the architectures a syscall can be declared for.
var Arches = []string{"arm", "arm64", "riscv64", "x86", "x86_64"}

// IsArch reports whether arch is one of Arches.
func IsArch(arch string) bool {
	for _, a := range Arches {
		if a == arch {
			return true
		}
	}
	return false
}

// Syscall is a system call and the architectures it exists on.
type Syscall struct {
	Name   string
	Arches map[string]bool
}

// SyscallList keeps syscalls in first-seen order.
type SyscallList struct {
	syscalls []*Syscall
	index    map[string]*Syscall
}

func NewSyscallList() *SyscallList {
	return &SyscallList{index: make(map[string]*Syscall)}
}

// Add notes that syscall has been seen for arch.
func (l *SyscallList) Add(name, arch string) {
	s, ok := l.index[name]
	if !ok {
		s = &Syscall{Name: name, Arches: make(map[string]bool)}
		l.index[name] = s
		l.syscalls = append(l.syscalls, s)
	}
	s.Arches[arch] = true
}

func (l *SyscallList) Syscalls() []*Syscall {
	return l.syscalls
}

// Names returns the syscalls available on arch, or every syscall when arch
// is empty.
func (l *SyscallList) Names(arch string) []string {
	var ret []string
	for _, s := range l.syscalls {
		if arch == "" || s.Arches[arch] {
			ret = append(ret, s.Name)
		}
	}
	return ret
}

// ParseSyscallsTxtFile is ParseSyscallsTxt over a file.
func (l *SyscallList) ParseSyscallsTxtFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := l.ParseSyscallsTxt(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// ParseSyscallsTxt reads bionic's SYSCALLS.TXT format:
//
//	return_type func_name[|alias_list][:syscall_name[:socketcall_id]]([parameter_list]) arch_list
//
// where arch_list is "all" or a comma separated list of architectures, lp32
// or lp64.
func (l *SyscallList) ParseSyscallsTxt(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := l.parseSyscallsTxtLine(line); err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
	}
	return scanner.Err()
}

func (l *SyscallList) parseSyscallsTxtLine(line string) error {
	lparen := strings.Index(line, "(")
	rparen := strings.LastIndex(line, ")")
	if lparen < 0 || rparen < lparen {
		return fmt.Errorf("missing parameter list in %q", line)
	}
	words := strings.Fields(line[:lparen])
	if len(words) < 2 {
		return fmt.Errorf("missing return type or name in %q", line)
	}

	name := words[len(words)-1]
	if i := strings.Index(name, ":"); i == 0 {
		return fmt.Errorf("empty function name in %q", line)
	} else if i > 0 {
		name = name[i+1:]
		if j := strings.Index(name, ":"); j >= 0 {
			name = name[:j]
		}
	} else if j := strings.Index(name, "|"); j >= 0 {
		name = name[:j]
	}

	archList := strings.TrimSpace(line[rparen+1:])
	var arches []string
	switch archList {
	case "all":
		arches = Arches
	case "":
		return fmt.Errorf("missing architecture list in %q", line)
	default:
		for _, a := range strings.Split(archList, ",") {
			switch a = strings.TrimSpace(a); a {
			case "lp32":
				arches = append(arches, "arm", "x86")
			case "lp64":
				arches = append(arches, "arm64", "riscv64", "x86_64")
			default:
				if !IsArch(a) {
					return fmt.Errorf("unknown architecture %q in %q", a, line)
				}
				arches = append(arches, a)
			}
		}
	}
	for _, a := range arches {
		l.Add(name, a)
	}
	return nil
}
