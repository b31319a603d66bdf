// Package resolver maps request paths onto the filesystem below a served root.
package resolver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned when a request path resolves above the root.
var ErrOutsideRoot = errors.New("path resolves outside root")

// Resolver joins request paths with a canonical root directory.
type Resolver struct {
	root string
}

// New canonicalizes root (absolute, symlinks evaluated) and returns a Resolver for it.
func New(root string) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", root, err)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", root, err)
	}
	return &Resolver{root: canonical}, nil
}

// Root returns the canonical root directory.
func (r *Resolver) Root() string {
	return r.root
}

// Resolve joins requestPath with the root. The joined path is cleaned, and a
// result that is not the root or below it yields ErrOutsideRoot. Symlinks
// below the root are followed by later lookups without further checks.
func (r *Resolver) Resolve(requestPath string) (string, error) {
	if strings.IndexByte(requestPath, 0) >= 0 {
		return "", fmt.Errorf("%q: %w", requestPath, os.ErrInvalid)
	}

	p := filepath.Join(r.root, filepath.FromSlash(requestPath))

	rel, err := filepath.Rel(r.root, p)
	if err != nil {
		return "", fmt.Errorf("%q: %w", requestPath, ErrOutsideRoot)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%q: %w", requestPath, ErrOutsideRoot)
	}
	return p, nil
}
