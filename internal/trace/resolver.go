package trace

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Resolver turns trace paths into paths relative to the LTP root. Paths are
// canonicalized textually; symlinks are not evaluated.
type Resolver struct {
	root   string
	prefix string
}

// NewResolver creates a Resolver for the given root directory.
func NewResolver(root string) (*Resolver, error) {
	if root == "" {
		return nil, fmt.Errorf("empty root directory")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("canonicalizing %q: %w", root, err)
	}
	prefix := abs
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return &Resolver{root: abs, prefix: prefix}, nil
}

// Root is the absolute, cleaned root directory.
func (r *Resolver) Root() string {
	return r.root
}

// Resolve resolves p against base, a root-relative directory ("" or "." for
// the root itself). The result is root-relative when it lies under the root,
// "." for the root, and absolute otherwise.
func (r *Resolver) Resolve(p, base string) string {
	var abs string
	if filepath.IsAbs(p) {
		abs = filepath.Clean(p)
	} else if filepath.IsAbs(base) {
		abs = filepath.Join(base, p)
	} else {
		abs = filepath.Join(r.root, base, p)
	}

	if abs == r.root {
		return "."
	}
	if strings.HasPrefix(abs, r.prefix) {
		return abs[len(r.prefix):]
	}
	return abs
}

// ResolveAll resolves every path in paths that has one of the suffixes.
func (r *Resolver) ResolveAll(paths []string, suffixes []string, base string) []string {
	var ret []string
	for _, p := range paths {
		for _, s := range suffixes {
			if strings.HasSuffix(p, s) {
				ret = append(ret, r.Resolve(p, base))
				break
			}
		}
	}
	return ret
}
