package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func tempProject(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempProject(t)
	content := []byte("# Hello\nWorld\n")
	if err := s.Write("note.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("note.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempProject(t)
	if err := s.Write("a/b/c.md", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !s.Exists("a/b/c.md") {
		t.Error("expected file to exist")
	}
	if s.Exists("a/b") {
		t.Error("directories are not files")
	}
}

func TestDelete(t *testing.T) {
	s := tempProject(t)
	_ = s.Write("del.md", []byte("bye"))
	if err := s.Delete("del.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.md"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestList_ExtensionsAndIgnoredEntries(t *testing.T) {
	s := tempProject(t)
	_ = s.Write("a.md", []byte("a"))
	_ = s.Write("sub/b.qmd", []byte("b"))
	_ = s.Write("readme.txt", []byte("text"))
	_ = s.Write("_site/index.md", []byte("output"))
	_ = s.Write(".folio/x.md", []byte("scratch"))
	_ = s.Write("_draft.md", []byte("draft"))

	items, err := s.List("", ".md", ".qmd")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2 (%v)", len(items), items)
	}
	for _, it := range items {
		if it.Checksum == "" {
			t.Errorf("missing checksum for %s", it.Path)
		}
	}

	all, err := s.List("")
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("len(all) = %d, want 3", len(all))
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempProject(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteNoLeftovers(t *testing.T) {
	s := tempProject(t)
	_ = s.Write("atomic.md", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write("atomic.md", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.md")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.root, ".folio-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestWriteIfChanged(t *testing.T) {
	s := tempProject(t)
	wrote, err := WriteIfChanged(s, "feed.xml", []byte("<rss/>"))
	if err != nil || !wrote {
		t.Fatalf("first write: wrote=%v err=%v", wrote, err)
	}
	wrote, err = WriteIfChanged(s, "feed.xml", []byte("<rss/>"))
	if err != nil || wrote {
		t.Fatalf("identical write: wrote=%v err=%v", wrote, err)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/folio-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "folio-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
