package project

import (
	"path/filepath"
	"testing"

	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/storage"
)

func testProject(t *testing.T) *Context {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return New(store, nil, models.OutputFormat{Name: "html"})
}

func TestPagesAndFiles(t *testing.T) {
	p := testProject(t)
	_ = p.Store.Write("index.qmd", []byte("x"))
	_ = p.Store.Write("posts/a.md", []byte("x"))
	_ = p.Store.Write("posts/img.png", []byte("x"))

	pages, err := p.Pages()
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 2 || pages[0] != "index.qmd" || pages[1] != "posts/a.md" {
		t.Errorf("pages = %v", pages)
	}
	files, _ := p.Files()
	if len(files) != 3 {
		t.Errorf("files = %v", files)
	}
}

func TestRel(t *testing.T) {
	p := testProject(t)
	if rel, ok := p.Rel(filepath.Join(p.Dir(), "posts", "a.md")); !ok || rel != "posts/a.md" {
		t.Errorf("Rel(abs) = %q, %v", rel, ok)
	}
	if rel, ok := p.Rel("./posts/a.md"); !ok || rel != "posts/a.md" {
		t.Errorf("Rel(rel) = %q, %v", rel, ok)
	}
	if _, ok := p.Rel("../elsewhere.md"); ok {
		t.Error("paths outside the project must be rejected")
	}
}

func TestOutputPathAndHref(t *testing.T) {
	p := testProject(t)
	if got := p.OutputPath("blog/index.qmd"); got != "_site/blog/index.html" {
		t.Errorf("OutputPath = %q", got)
	}
	if got := p.Href("posts/a.md"); got != "/posts/a.html" {
		t.Errorf("Href = %q", got)
	}
	if !p.IsPage("x.QMD") || p.IsPage("x.png") {
		t.Error("IsPage misclassified")
	}
}
