package puizcloud

import (
	"net"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"
)

func TestListOrdering(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.txt"), "bb")
	writeFile(t, filepath.Join(dir, "A.txt"), "a")
	writeFile(t, filepath.Join(dir, "a", "inner.txt"), "")
	writeFile(t, filepath.Join(dir, "Z", "inner.txt"), "")
	writeFile(t, filepath.Join(dir, "a b", "inner.txt"), "")

	lister := NewLister(mustServedRoot(t, dir), SymlinksContain)
	first, err := lister.List("x/y", dir)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	wantFolders := []Subfolder{{Rel: "x/y/Z"}, {Rel: "x/y/a"}, {Rel: "x/y/a b"}}
	wantFiles := []FileEntry{{Rel: "x/y/A.txt", Size: 1}, {Rel: "x/y/b.txt", Size: 2}}
	if !reflect.DeepEqual(first.Subfolders, wantFolders) {
		t.Errorf("Subfolders = %v, want %v", first.Subfolders, wantFolders)
	}
	if !reflect.DeepEqual(first.Files, wantFiles) {
		t.Errorf("Files = %v, want %v", first.Files, wantFiles)
	}

	for i := 0; i < 5; i++ {
		again, err := lister.List("x/y", dir)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if !reflect.DeepEqual(again, first) {
			t.Fatalf("listing changed between calls: %v vs %v", again, first)
		}
	}
}

func TestListEmptyAndRoot(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "top.txt"), "")

	got, err := NewLister(mustServedRoot(t, dir), SymlinksContain).List("", dir)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got.Subfolders) != 0 || len(got.Files) != 1 || got.Files[0].Rel != "top.txt" {
		t.Errorf("List() = %+v", got)
	}
	if got.Files[0].Name() != "top.txt" {
		t.Errorf("Name() = %q", got.Files[0].Name())
	}
}

func TestListMissingDirectory(t *testing.T) {
	dir := t.TempDir()
	_, err := NewLister(mustServedRoot(t, dir), SymlinksContain).List("gone", filepath.Join(dir, "gone"))
	if err == nil {
		t.Error("List() of a missing directory should fail")
	}
}

func TestListSymlinks(t *testing.T) {
	skipWithoutSymlinks(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "real", "f.txt"), "12345")
	mustSymlink(t, "real", filepath.Join(dir, "linkdir"))
	mustSymlink(t, "real/f.txt", filepath.Join(dir, "linkfile"))
	mustSymlink(t, "nowhere", filepath.Join(dir, "dangling"))

	root := mustServedRoot(t, dir)
	got, err := NewLister(root, SymlinksContain).List("", dir)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	wantFolders := []Subfolder{{Rel: "linkdir"}, {Rel: "real"}}
	wantFiles := []FileEntry{{Rel: "linkfile", Size: 5}}
	if !reflect.DeepEqual(got.Subfolders, wantFolders) || !reflect.DeepEqual(got.Files, wantFiles) {
		t.Errorf("contain: List() = %+v", got)
	}

	got, err = NewLister(root, SymlinksDeny).List("", dir)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if !reflect.DeepEqual(got.Subfolders, []Subfolder{{Rel: "real"}}) || len(got.Files) != 0 {
		t.Errorf("deny: List() = %+v", got)
	}
}

func TestListSkipsEscapingSymlinks(t *testing.T) {
	skipWithoutSymlinks(t)
	base, root := newTestTree(t)
	mustSymlink(t, "../outside/secret.txt", filepath.Join(root.Path(), "leak.txt"))
	mustSymlink(t, "../outside", filepath.Join(root.Path(), "leakdir"))
	mustSymlink(t, filepath.Join(base, "outside", "secret.txt"), filepath.Join(root.Path(), "abs.txt"))
	mustSymlink(t, "a/b", filepath.Join(root.Path(), "inner"))
	mustSymlink(t, "b.txt", filepath.Join(root.Path(), "same.txt"))

	tests := []struct {
		policy      SymlinkPolicy
		wantFolders []Subfolder
		wantFiles   []FileEntry
	}{
		{
			policy:      SymlinksDeny,
			wantFolders: []Subfolder{{Rel: "a"}},
			wantFiles:   []FileEntry{{Rel: "A.txt", Size: 1}, {Rel: "b.txt", Size: 3}},
		},
		{
			policy:      SymlinksContain,
			wantFolders: []Subfolder{{Rel: "a"}, {Rel: "inner"}},
			wantFiles:   []FileEntry{{Rel: "A.txt", Size: 1}, {Rel: "b.txt", Size: 3}, {Rel: "same.txt", Size: 3}},
		},
		{
			// links are re-rooted, so the escaping ones point at nothing
			policy:      SymlinksChroot,
			wantFolders: []Subfolder{{Rel: "a"}, {Rel: "inner"}},
			wantFiles:   []FileEntry{{Rel: "A.txt", Size: 1}, {Rel: "b.txt", Size: 3}, {Rel: "same.txt", Size: 3}},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			got, err := NewLister(root, tt.policy).List("", root.Path())
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if !reflect.DeepEqual(got.Subfolders, tt.wantFolders) {
				t.Errorf("Subfolders = %v, want %v", got.Subfolders, tt.wantFolders)
			}
			if !reflect.DeepEqual(got.Files, tt.wantFiles) {
				t.Errorf("Files = %v, want %v", got.Files, tt.wantFiles)
			}
		})
	}
}

func TestListSkipsSpecialFiles(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("no unix sockets")
	}
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "f.txt"), "")
	l, err := net.Listen("unix", filepath.Join(dir, "sock"))
	if err != nil {
		t.Skipf("unix socket: %v", err)
	}
	defer l.Close()

	got, err := NewLister(mustServedRoot(t, dir), SymlinksContain).List("", dir)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got.Files) != 1 || got.Files[0].Rel != "f.txt" || len(got.Subfolders) != 0 {
		t.Errorf("List() = %+v", got)
	}
}

func TestListingFilter(t *testing.T) {
	listing := &Listing{
		Subfolders: []Subfolder{{Rel: "music"}, {Rel: "Photos"}},
		Files:      []FileEntry{{Rel: "holiday-photo.jpg"}, {Rel: "notes.txt"}, {Rel: "PHT.bin"}},
	}

	tests := []struct {
		query       string
		wantFolders []Subfolder
		wantFiles   []FileEntry
	}{
		{"", listing.Subfolders, listing.Files},
		{"pht", []Subfolder{{Rel: "Photos"}}, []FileEntry{{Rel: "holiday-photo.jpg"}, {Rel: "PHT.bin"}}},
		{"notes", []Subfolder{}, []FileEntry{{Rel: "notes.txt"}}},
		{"zzz", []Subfolder{}, []FileEntry{}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := listing.Filter(tt.query)
			if !reflect.DeepEqual(got.Subfolders, tt.wantFolders) {
				t.Errorf("Subfolders = %v, want %v", got.Subfolders, tt.wantFolders)
			}
			if !reflect.DeepEqual(got.Files, tt.wantFiles) {
				t.Errorf("Files = %v, want %v", got.Files, tt.wantFiles)
			}
		})
	}
}

func mustServedRoot(t *testing.T, dir string) *ServedRoot {
	t.Helper()
	root, err := NewServedRoot(dir)
	if err != nil {
		t.Fatalf("NewServedRoot() error = %v", err)
	}
	return root
}

func mustSymlink(t *testing.T, target, link string) {
	t.Helper()
	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("symlink: %v", err)
	}
}
