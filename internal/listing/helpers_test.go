package listing

import (
	"testing"

	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/project"
	"github.com/starford/folio/internal/storage"
)

func testProject(t *testing.T, files map[string]string) *project.Context {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for p, content := range files {
		if err := store.Write(p, []byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	return project.New(store, nil, models.OutputFormat{Name: "html", Sidebar: true, SiteURL: "https://example.com"})
}

func blogFiles() map[string]string {
	return map[string]string{
		"blog/index.qmd": "---\ntitle: Blog\nlisting:\n  id: posts\n  contents: ../posts/*.md\n  categories: true\n  feed:\n    type: full\n    categories: [go]\n---\n\n<div id=\"posts\"></div>\n",
		"posts/a.md":     "---\ntitle: First\ndate: 2024-01-01\ncategories: [go]\ndescription: The *first* post.\n---\nA\n",
		"posts/b.md":     "---\ntitle: Second\ndate: 2024-02-01\ncategories: [go, web]\nimage: cover.png\n---\nB\n",
		"posts/c.md":     "---\ntitle: Draft\ndraft: true\n---\nC\n",
		"readme.md":      "# Readme\n",
	}
}
