package puizcloud

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

type Subfolder struct {
	// Rel is the slash-separated path from the served root.
	Rel string
}

func (s Subfolder) Name() string {
	return path.Base(s.Rel)
}

type FileEntry struct {
	Rel  string
	Size int64
}

func (f FileEntry) Name() string {
	return path.Base(f.Rel)
}

type Listing struct {
	Subfolders []Subfolder
	Files      []FileEntry
}

// Lister reads directories below a served root. Symlinked entries are held to
// the same policy the resolver applies, so a listing never shows an entry
// that browsing to would refuse.
type Lister struct {
	root   *ServedRoot
	policy SymlinkPolicy
}

func NewLister(root *ServedRoot, policy SymlinkPolicy) *Lister {
	if !policy.valid() {
		policy = SymlinksContain
	}
	return &Lister{root: root, policy: policy}
}

// followLink returns where the symlinked entry rel would be served from, or
// false when the policy hides it.
func (l *Lister) followLink(rel, abs string) (string, bool) {
	switch l.policy {
	case SymlinksChroot:
		target, err := securejoin.SecureJoin(l.root.path, filepath.FromSlash(rel))
		if err != nil {
			return "", false
		}
		return target, true
	case SymlinksContain:
		target, err := filepath.EvalSymlinks(abs)
		if err != nil || !l.root.contains(target) {
			return "", false
		}
		return target, true
	}
	return "", false
}

// List reads the immediate children of abs, whose path below the root is rel.
// Only the directory read itself can fail; entries that vanish or cannot be
// classified are skipped, and unreadable file sizes are reported as 0.
func (l *Lister) List(rel, abs string) (*Listing, error) {
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, err
	}

	listing := &Listing{
		Subfolders: []Subfolder{},
		Files:      []FileEntry{},
	}
	for _, e := range entries {
		entryRel := path.Join(rel, e.Name())
		entryAbs := filepath.Join(abs, e.Name())
		mode := e.Type()

		if mode&fs.ModeSymlink != 0 {
			target, ok := l.followLink(entryRel, entryAbs)
			if !ok {
				continue
			}
			info, err := os.Stat(target)
			if err != nil {
				continue
			}
			entryAbs = target
			mode = info.Mode().Type()
		}

		switch {
		case mode.IsDir():
			listing.Subfolders = append(listing.Subfolders, Subfolder{Rel: entryRel})
		case mode.IsRegular():
			var size int64
			if info, err := os.Stat(entryAbs); err == nil {
				size = info.Size()
			}
			listing.Files = append(listing.Files, FileEntry{Rel: entryRel, Size: size})
		}
	}

	sort.Slice(listing.Subfolders, func(i, j int) bool {
		return listing.Subfolders[i].Rel < listing.Subfolders[j].Rel
	})
	sort.Slice(listing.Files, func(i, j int) bool {
		return listing.Files[i].Rel < listing.Files[j].Rel
	})
	return listing, nil
}

// Filter keeps the entries whose name fuzzily matches query, ignoring case.
// Order is preserved.
func (l *Listing) Filter(query string) *Listing {
	if query == "" {
		return l
	}
	out := &Listing{
		Subfolders: []Subfolder{},
		Files:      []FileEntry{},
	}
	for _, s := range l.Subfolders {
		if fuzzy.MatchFold(query, s.Name()) {
			out.Subfolders = append(out.Subfolders, s)
		}
	}
	for _, f := range l.Files {
		if fuzzy.MatchFold(query, f.Name()) {
			out.Files = append(out.Files, f)
		}
	}
	return out
}
