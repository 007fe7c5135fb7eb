package internal

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/folio/internal/render"
	"github.com/starford/folio/internal/testutil"
)

func TestRenderOnce(t *testing.T) {
	root, _ := testutil.TestFS(t, testutil.BlogFiles())
	cfg := NewDefaultConfig()
	cfg.Project.Root = root
	cfg.Format.SiteURL = "https://example.com"
	var logs bytes.Buffer

	res, err := RenderOnce(context.Background(), render.Request{}, WithConfig(cfg), WithLogOutput(&logs))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if err := res.Err(); err != nil {
		t.Fatalf("page errors: %v", err)
	}
	if !res.FullRender || len(res.Pages) != 5 {
		t.Errorf("result = %+v", res)
	}
	for _, f := range []string{"_site/blog/index.html", "_site/blog/index.xml", ".folio/cache.db"} {
		if _, err := os.Stat(filepath.Join(root, f)); err != nil {
			t.Errorf("%s: %v", f, err)
		}
	}
	if !bytes.Contains(logs.Bytes(), []byte(`"msg":"render: done"`)) {
		t.Errorf("logs = %s", logs.String())
	}

	// The cache persists across runs: an incremental render finds the listing.
	res, err = RenderOnce(context.Background(),
		render.Request{Incremental: true, Files: []string{"posts/a.md"}},
		WithConfig(cfg), WithLogOutput(&logs))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Supplemental) != 1 || res.Supplemental[0] != "blog/index.qmd" {
		t.Errorf("supplemental = %v", res.Supplemental)
	}
}

func TestRenderOnce_RequiresConfig(t *testing.T) {
	if _, err := RenderOnce(context.Background(), render.Request{}); err == nil {
		t.Fatal("expected error without config")
	}
}
