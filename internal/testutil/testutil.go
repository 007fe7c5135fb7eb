// Package testutil provides shared test helpers for setting up projects and cache databases.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/folio/internal/listingcache"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/project"
	"github.com/starford/folio/internal/storage"
)

// TestStore creates a temporary listing cache database that is automatically cleaned up.
func TestStore(t *testing.T) *listingcache.SQLiteStore {
	t.Helper()
	dbFile, err := os.CreateTemp("", "folio-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	store, err := listingcache.OpenSQLite(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// TestFS creates a temporary project directory populated with files.
func TestFS(t *testing.T, files map[string]string) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	for p, content := range files {
		if err := store.Write(p, []byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	return dir, store
}

// TestProject creates a project over files whose listing cache lives in
// cacheStore (a fresh database when nil).
func TestProject(t *testing.T, files map[string]string, cacheStore listingcache.Store) *project.Context {
	t.Helper()
	if cacheStore == nil {
		cacheStore = TestStore(t)
	}
	dir, fs := TestFS(t, files)
	cache := listingcache.New(dir, cacheStore, nil)
	return project.New(fs, cache, models.OutputFormat{Name: "html", Sidebar: true, SiteURL: "https://example.com"})
}

// BlogFiles is a small project with one listing page over two posts.
func BlogFiles() map[string]string {
	return map[string]string{
		"index.md":       "---\ntitle: Home\n---\n# Home\n",
		"blog/index.qmd": "---\ntitle: Blog\nlisting:\n  id: posts\n  contents: ../posts/*.md\n  categories: true\n  feed: true\n---\n\n<div id=\"posts\"></div>\n",
		"posts/a.md":     "---\ntitle: First\ndate: 2024-01-01\ncategories: [go]\ndescription: The *first* post.\n---\nA\n",
		"posts/b.md":     "---\ntitle: Second\ndate: 2024-02-01\ncategories: [web]\n---\nB\n",
		"readme.md":      "# Readme\n",
	}
}
