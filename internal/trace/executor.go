package trace

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// DryRun runs `make --dry-run` in dir with the extra make arguments (for
// example "install") and returns its standard output.
//
// The trace is only meaningful after LTP has been configured; make prints
// "Entering directory" markers because of -w, which the parser relies on to
// resolve relative paths.
func DryRun(ctx context.Context, dir string, makeArgs ...string) ([]byte, error) {
	args := append([]string{"--dry-run", "-w", "-C", dir}, makeArgs...)
	cmd := exec.CommandContext(ctx, "make", args...)

	// Force the C locale so the directory markers are not translated.
	var env []string
	for _, e := range os.Environ() {
		if strings.HasPrefix(e, "LC_ALL=") || strings.HasPrefix(e, "LANG=") {
			continue
		}
		env = append(env, e)
	}
	cmd.Env = append(env, "LC_ALL=C", "LANG=C")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("make %v: %w: %s", makeArgs, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return stdout.Bytes(), nil
}
