package coverage

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"regexp"
	"time"
)

// KernelGitBase is where the upstream syscall tables are fetched from.
const KernelGitBase = "https://git.kernel.org/pub/scm/linux/kernel/git/torvalds/linux.git/plain/"

// DefaultFetchTimeout bounds each syscall table download.
const DefaultFetchTimeout = 30 * time.Second

// kernelTable is one syscall table of the upstream kernel tree.
type kernelTable struct {
	arch  string
	path  string
	re    *regexp.Regexp
	group int
	skip  map[string]bool
}

var unistdDefineRe = regexp.MustCompile(`^#define __NR(3264)?_(\w+)\s+(\d+)$`)

// kernelTables are fetched in this order, which is the order syscalls are
// first seen in.
var kernelTables = []kernelTable{
	{
		arch:  "arm64",
		path:  "include/uapi/asm-generic/unistd.h",
		re:    unistdDefineRe,
		group: 2,
		skip:  map[string]bool{"sync_file_range2": true, "arch_specific_syscall": true, "syscalls": true},
	},
	{
		// AArch32 compat syscalls
		arch:  "arm64",
		path:  "arch/arm64/include/asm/unistd32.h",
		re:    unistdDefineRe,
		group: 2,
	},
	{
		arch:  "arm",
		path:  "arch/arm/tools/syscall.tbl",
		re:    regexp.MustCompile(`^\d+\s+\w+\s+(\w+)\s+sys_`),
		group: 1,
	},
	{
		arch:  "x86",
		path:  "arch/x86/entry/syscalls/syscall_32.tbl",
		re:    regexp.MustCompile(`^\d+\s+i386\s+(\w+)\s+sys_`),
		group: 1,
	},
	{
		// Older tables name entry points __x64_sys_*, current ones sys_*.
		arch:  "x86_64",
		path:  "arch/x86/entry/syscalls/syscall_64.tbl",
		re:    regexp.MustCompile(`^\d+\s+\w+\s+(\w+)\s+(?:sys_|__x64_sys|__x32_compat_sys)`),
		group: 1,
	},
}

// Fetcher downloads kernel syscall tables.
type Fetcher struct {
	Client  *http.Client
	BaseURL string
}

// NewFetcher creates a Fetcher whose requests time out after timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Fetcher{Client: &http.Client{Timeout: timeout}, BaseURL: KernelGitBase}
}

// KernelSyscalls adds the syscalls of every upstream table to list. The
// first failing download aborts with an error naming its URL.
func (f *Fetcher) KernelSyscalls(ctx context.Context, list *SyscallList) error {
	for _, table := range kernelTables {
		url := f.BaseURL + table.path
		if err := f.fetch(ctx, url, table, list); err != nil {
			return fmt.Errorf("fetching %s syscalls from %s: %w", table.arch, url, err)
		}
	}
	return nil
}

func (f *Fetcher) fetch(ctx context.Context, url string, table kernelTable, list *SyscallList) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		matches := table.re.FindStringSubmatch(scanner.Text())
		if matches == nil {
			continue
		}
		name := matches[table.group]
		if table.skip[name] {
			continue
		}
		list.Add(name, table.arch)
	}
	return scanner.Err()
}
