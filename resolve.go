package puizcloud

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"

	securejoin "github.com/cyphar/filepath-securejoin"
)

// ErrForbiddenPath is returned for absolute requests and for requests that
// would resolve outside the served root.
var ErrForbiddenPath = errors.New("forbidden path")

type Kind int

const (
	Missing Kind = iota
	Directory
	File
)

func (k Kind) String() string {
	switch k {
	case Directory:
		return "directory"
	case File:
		return "file"
	}
	return "missing"
}

// Resolved is a request path after it has been anchored at the served root
// and classified. It lives for one request.
type Resolved struct {
	// Rel is the cleaned slash-separated path below the root, "" for the root.
	Rel  string
	Path string
	Kind Kind
}

type Resolver struct {
	root   *ServedRoot
	policy SymlinkPolicy
}

func NewResolver(root *ServedRoot, policy SymlinkPolicy) *Resolver {
	if !policy.valid() {
		policy = SymlinksContain
	}
	return &Resolver{root: root, policy: policy}
}

func forbidden(requested string) error {
	return fmt.Errorf("%w: %q", ErrForbiddenPath, requested)
}

// cleanRequested turns an untrusted URL tail into a slash-separated relative
// path. Absolute paths and lexical escapes are rejected.
func cleanRequested(requested string) (string, error) {
	if strings.ContainsRune(requested, 0) {
		return "", forbidden(requested)
	}
	p := filepath.ToSlash(requested)
	if strings.HasPrefix(p, "/") || filepath.IsAbs(requested) || filepath.VolumeName(requested) != "" {
		return "", forbidden(requested)
	}
	p = path.Clean(p)
	if p == "." {
		return "", nil
	}
	if p == ".." || strings.HasPrefix(p, "../") {
		return "", forbidden(requested)
	}
	return p, nil
}

func isMissing(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

// maxLinkHops bounds how many dangling symlinks canonicalize follows.
const maxLinkHops = 255

// canonicalize is filepath.EvalSymlinks for paths that may not exist. The
// longest existing prefix is resolved and the missing remainder appended.
// When the first missing component is a dangling symlink its target is
// followed, so the result says where the path would land once created.
func canonicalize(p string) (string, error) {
	for hops := 0; hops < maxLinkHops; hops++ {
		c, err := filepath.EvalSymlinks(p)
		if err == nil {
			return c, nil
		}
		if !isMissing(err) {
			return "", err
		}

		dir, rest := p, ""
		for {
			parent := filepath.Dir(dir)
			if parent == dir {
				return p, nil
			}
			rest = filepath.Join(filepath.Base(dir), rest)
			dir = parent
			c, err = filepath.EvalSymlinks(dir)
			if err == nil {
				break
			}
			if !isMissing(err) {
				return "", err
			}
		}

		first, tail, _ := strings.Cut(rest, string(filepath.Separator))
		target, err := os.Readlink(filepath.Join(c, first))
		if err != nil {
			return filepath.Join(c, rest), nil
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(c, target)
		}
		p = filepath.Join(target, tail)
	}
	return "", fmt.Errorf("canonicalize %q: too many links", p)
}

// Resolve maps requested onto the served root and classifies the result.
// Paths that do not exist, or exist as something other than a directory or
// regular file, come back as Missing. Containment is judged on where a path
// would land, so a missing path behind an escaping link is still forbidden.
func (r *Resolver) Resolve(requested string) (*Resolved, error) {
	rel, err := cleanRequested(requested)
	if err != nil {
		return nil, err
	}

	var target string
	switch r.policy {
	case SymlinksChroot:
		target, err = securejoin.SecureJoin(r.root.path, filepath.FromSlash(rel))
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", requested, err)
		}
	default:
		lexical := filepath.Join(r.root.canonical, filepath.FromSlash(rel))
		target, err = canonicalize(lexical)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", requested, err)
		}
		if !r.root.contains(target) {
			return nil, forbidden(requested)
		}
		if r.policy == SymlinksDeny && target != lexical {
			return nil, forbidden(requested)
		}
	}

	info, err := os.Stat(target)
	if err != nil {
		if isMissing(err) {
			return &Resolved{Rel: rel, Path: target, Kind: Missing}, nil
		}
		return nil, fmt.Errorf("resolve %q: %w", requested, err)
	}

	res := &Resolved{Rel: rel, Path: target}
	switch {
	case info.IsDir():
		res.Kind = Directory
	case info.Mode().IsRegular():
		res.Kind = File
	default:
		res.Kind = Missing
	}
	return res, nil
}
