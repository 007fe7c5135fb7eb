package listingcache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	f, err := os.CreateTemp("", "folio-cache-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	s, err := OpenSQLite(f.Name())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func descriptor(source string, contents ...string) models.Descriptor {
	return models.Descriptor{
		Source:  source,
		Listing: models.Listing{ID: "listing", Contents: contents},
	}
}

func TestBlogScenario(t *testing.T) {
	ctx := context.Background()
	c := New("/proj", testStore(t), nil)

	if err := c.RecordListing(ctx, "blog/index.qmd", []models.Descriptor{descriptor("blog/index.qmd", "../posts/*.md")}); err != nil {
		t.Fatalf("RecordListing: %v", err)
	}

	got, err := c.AffectedListings(ctx, []string{"posts/a.md"})
	if err != nil {
		t.Fatalf("AffectedListings: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"blog/index.qmd"}) {
		t.Errorf("affected = %v, want [blog/index.qmd]", got)
	}

	got, err = c.AffectedListings(ctx, []string{"readme.md"})
	if err != nil {
		t.Fatalf("AffectedListings: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("affected = %v, want none", got)
	}
}

func TestAffectedListings_RemovedDirectory(t *testing.T) {
	ctx := context.Background()
	c := New("/proj", testStore(t), nil)
	_ = c.RecordListing(ctx, "blog/index.qmd", []models.Descriptor{descriptor("blog/index.qmd", "../posts/*.md")})
	_ = c.RecordListing(ctx, "notes/index.md", []models.Descriptor{descriptor("notes/index.md", "*.md")})

	got, err := c.AffectedListings(ctx, []string{"posts"})
	if err != nil {
		t.Fatalf("AffectedListings: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"blog/index.qmd"}) {
		t.Errorf("affected = %v, want [blog/index.qmd]", got)
	}

	got, _ = c.AffectedListings(ctx, []string{"posts/archive"})
	if len(got) != 0 {
		t.Errorf("nested directory cannot hold posts/*.md matches: %v", got)
	}
}

type matcherFunc func(patterns []string, changed string) bool

func (f matcherFunc) Match(patterns []string, changed string) bool { return f(patterns, changed) }

func TestWithMatcher(t *testing.T) {
	ctx := context.Background()
	var calls int
	c := New("/proj", testStore(t), nil, WithMatcher(matcherFunc(func(patterns []string, changed string) bool {
		calls++
		return changed == "anything"
	})))
	_ = c.RecordListing(ctx, "index.md", []models.Descriptor{descriptor("index.md", "posts/*.md")})

	got, _ := c.AffectedListings(ctx, []string{"posts/a.md", "anything"})
	if !reflect.DeepEqual(got, []string{"index.md"}) {
		t.Errorf("affected = %v, want [index.md]", got)
	}
	if calls != 2 {
		t.Errorf("matcher calls = %d, want 2", calls)
	}
}

func TestRecordListing_RoundTripThroughStore(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	c := New("/proj", store, nil)

	descs := []models.Descriptor{
		descriptor("index.md", "posts/*.md", "!posts/draft-*.md"),
		descriptor("index.md", "notes/**", "posts/*.md"),
	}
	if err := c.RecordListing(ctx, "index.md", descs); err != nil {
		t.Fatalf("RecordListing: %v", err)
	}
	want := []string{"posts/*.md", "!posts/draft-*.md", "notes/**"}

	got, ok, err := c.Patterns(ctx, "index.md")
	if err != nil || !ok {
		t.Fatalf("Patterns: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("patterns = %v, want %v", got, want)
	}

	// A fresh cache over the same store sees the same mapping.
	reloaded := New("/proj", store, nil)
	entries, err := reloaded.Entries(ctx)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if !reflect.DeepEqual(entries, map[string][]string{"index.md": want}) {
		t.Errorf("reloaded entries = %v", entries)
	}
}

func TestRecordListing_LastWriteWins(t *testing.T) {
	ctx := context.Background()
	c := New("/proj", testStore(t), nil)
	_ = c.RecordListing(ctx, "index.md", []models.Descriptor{descriptor("index.md", "a/*")})
	_ = c.RecordListing(ctx, "index.md", []models.Descriptor{descriptor("index.md", "b/*")})

	got, _, _ := c.Patterns(ctx, "index.md")
	if !reflect.DeepEqual(got, []string{"b/*"}) {
		t.Errorf("patterns = %v, want [b/*]", got)
	}
}

func TestExcludeNarrowsMatch(t *testing.T) {
	ctx := context.Background()
	c := New("/proj", testStore(t), nil)
	_ = c.RecordListing(ctx, "index.md", []models.Descriptor{descriptor("index.md", "posts/*", "!posts/private.md")})

	got, _ := c.AffectedListings(ctx, []string{"posts/private.md"})
	if len(got) != 0 {
		t.Errorf("excluded file should not affect listing: %v", got)
	}
	got, _ = c.AffectedListings(ctx, []string{"posts/private.md", "posts/public.md"})
	if len(got) != 1 {
		t.Errorf("public post should affect listing: %v", got)
	}
}

func TestClearAll_ResetsEverything(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	c := New("/proj", store, nil)
	_ = c.RecordListing(ctx, "a.md", []models.Descriptor{descriptor("a.md", "**")})
	_ = c.RecordListing(ctx, "b/index.md", []models.Descriptor{descriptor("b/index.md", "*.md")})

	if err := c.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	for _, changed := range [][]string{{"x.md"}, {"b/y.md"}, {"a.md", "z/q.md"}} {
		got, err := c.AffectedListings(ctx, changed)
		if err != nil || len(got) != 0 {
			t.Errorf("after clear AffectedListings(%v) = %v, %v", changed, got, err)
		}
	}
	loaded, _ := store.Load(ctx, "/proj")
	if len(loaded) != 0 {
		t.Errorf("store still holds %v", loaded)
	}
}

func TestAffectedListings_Soundness(t *testing.T) {
	ctx := context.Background()
	c := New("/proj", testStore(t), nil)
	pages := map[string][]string{
		"index.md":         {"**/*.md"},
		"blog/index.md":    {"*.md"},
		"gallery/index.md": {"images/*.png", "*.md"},
		"docs/index.md":    {"/docs/**"},
	}
	for page, contents := range pages {
		_ = c.RecordListing(ctx, page, []models.Descriptor{descriptor(page, contents...)})
	}
	entries, _ := c.Entries(ctx)

	files := []string{"blog/post.md", "gallery/images/x.png", "docs/guide/intro.md", "top.md", "other.txt"}
	for _, f := range files {
		got, err := c.AffectedListings(ctx, []string{f})
		if err != nil {
			t.Fatalf("AffectedListings: %v", err)
		}
		for page, patterns := range entries {
			if matchesAny(patterns, f) && !contains(got, page) {
				t.Errorf("file %s matches %s (%v) but was not reported: %v", f, page, patterns, got)
			}
		}
	}
}

func matchesAny(patterns []string, f string) bool {
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, f); ok {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestCorruptRecord_FailsOpenWithError(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	if _, err := store.conn.Exec(`INSERT INTO listing_cache (project, page, patterns) VALUES ('/proj', 'index.md', '{not json')`); err != nil {
		t.Fatal(err)
	}

	c := New("/proj", store, nil)
	got, err := c.AffectedListings(ctx, []string{"posts/a.md"})
	if !errors.Is(err, apperr.ErrCacheUnavailable) {
		t.Fatalf("err = %v, want ErrCacheUnavailable", err)
	}
	if len(got) != 0 {
		t.Errorf("affected = %v, want none", got)
	}

	// A full render clears the record and restores normal operation.
	if err := c.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	if _, err := c.AffectedListings(ctx, []string{"posts/a.md"}); err != nil {
		t.Errorf("after clear err = %v", err)
	}
}

func TestMissingRecordIsEmpty(t *testing.T) {
	c := New("/never-rendered", testStore(t), nil)
	got, err := c.AffectedListings(context.Background(), []string{"a.md"})
	if err != nil || len(got) != 0 {
		t.Errorf("AffectedListings = %v, %v", got, err)
	}
}

func TestProjectsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	a := New("/a", store, nil)
	b := New("/b", store, nil)
	_ = a.RecordListing(ctx, "index.md", []models.Descriptor{descriptor("index.md", "*.md")})

	got, _ := b.AffectedListings(ctx, []string{"x.md"})
	if len(got) != 0 {
		t.Errorf("project b sees project a's listings: %v", got)
	}
}

func TestConcurrentRecordsOfDisjointPages(t *testing.T) {
	ctx := context.Background()
	c := New("/proj", testStore(t), nil)

	pages := []string{"a.md", "b.md", "c.md", "d.md", "e.md", "f.md"}
	var wg sync.WaitGroup
	for _, p := range pages {
		wg.Add(1)
		go func(page string) {
			defer wg.Done()
			if err := c.RecordListing(ctx, page, []models.Descriptor{descriptor(page, "posts/*")}); err != nil {
				t.Errorf("RecordListing(%s): %v", page, err)
			}
		}(p)
	}
	wg.Wait()

	got, _ := c.AffectedListings(ctx, []string{"posts/x.md"})
	if !reflect.DeepEqual(got, pages) {
		t.Errorf("affected = %v, want %v", got, pages)
	}
}

func TestRegistry_SameCachePerProject(t *testing.T) {
	r, err := NewRegistry(testStore(t), 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	if r.For(dir) != r.For(dir+"/.") {
		t.Error("expected one cache per project root")
	}
	if r.For(dir) == r.For(t.TempDir()) {
		t.Error("different projects must not share a cache")
	}
}

func TestRegistry_EvictionKeepsOneCachePerProject(t *testing.T) {
	ctx := context.Background()
	r, err := NewRegistry(testStore(t), 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	dirA, dirB := t.TempDir(), t.TempDir()

	a := r.For(dirA)
	if err := a.RecordListing(ctx, "index.md", []models.Descriptor{descriptor("index.md", "posts/*.md")}); err != nil {
		t.Fatal(err)
	}
	b := r.For(dirB) // evicts dirA

	a.mu.Lock()
	loaded := a.loaded
	a.mu.Unlock()
	if loaded {
		t.Error("evicted cache kept its map")
	}
	if got := r.For(dirA); got != a {
		t.Fatal("eviction produced a second cache for the same project")
	}

	// The reloaded map keeps earlier records and accepts new ones.
	_ = b.RecordListing(ctx, "b.md", []models.Descriptor{descriptor("b.md", "*.md")})
	if err := a.RecordListing(ctx, "notes.md", []models.Descriptor{descriptor("notes.md", "notes/*.md")}); err != nil {
		t.Fatal(err)
	}
	got, err := r.For(dirA).AffectedListings(ctx, []string{"posts/a.md", "notes/x.md"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"index.md", "notes.md"}) {
		t.Errorf("affected = %v", got)
	}
}
