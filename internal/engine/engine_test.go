package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/folio/internal/dom"
	"github.com/starford/folio/internal/models"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "page.md")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestConvert_TitleBodyAndSidebar(t *testing.T) {
	p := writeTemp(t, "---\ntitle: Blog & News\n---\n# Hello\n\nSome *text*.\n")
	doc, err := NewGoldmark(Options{}).Convert(context.Background(), p, models.OutputFormat{Sidebar: true})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	out, _ := doc.Render()
	if !strings.Contains(out, "<title>Blog &amp; News</title>") {
		t.Errorf("missing title: %s", out)
	}
	if !strings.Contains(out, "<em>text</em>") {
		t.Errorf("markdown not converted: %s", out)
	}
	if doc.FindByID(dom.SidebarID) == nil {
		t.Error("sidebar container missing")
	}
	if doc.FindByID(dom.ContentID) == nil {
		t.Error("content container missing")
	}
}

func TestConvert_NoSidebar(t *testing.T) {
	p := writeTemp(t, "plain\n")
	doc, err := NewGoldmark(Options{}).Convert(context.Background(), p, models.OutputFormat{})
	if err != nil {
		t.Fatal(err)
	}
	if doc.FindByID(dom.SidebarID) != nil {
		t.Error("sidebar should be absent when the format disables it")
	}
}

func TestConvert_RawHTMLEnvelopeSurvives(t *testing.T) {
	p := writeTemp(t, "Body.\n\n<div id=\"env\" class=\"pipeline-envelope\" hidden>\n\nInner **bold**.\n\n</div>\n")
	doc, err := NewGoldmark(Options{}).Convert(context.Background(), p, models.OutputFormat{})
	if err != nil {
		t.Fatal(err)
	}
	env := doc.FindByID("env")
	if env == nil {
		t.Fatal("envelope stripped by conversion")
	}
	html, _ := env.HTML()
	if !strings.Contains(html, "<strong>bold</strong>") {
		t.Errorf("inner markdown not converted: %s", html)
	}
}

func TestConvert_SafeModeDropsRawHTML(t *testing.T) {
	p := writeTemp(t, "<div id=\"env\"></div>\n")
	doc, err := NewGoldmark(Options{SafeMode: true}).Convert(context.Background(), p, models.OutputFormat{})
	if err != nil {
		t.Fatal(err)
	}
	if doc.FindByID("env") != nil {
		t.Error("safe mode should omit raw HTML")
	}
}

func TestConvert_MissingFile(t *testing.T) {
	_, err := NewGoldmark(Options{}).Convert(context.Background(), filepath.Join(t.TempDir(), "nope.md"), models.OutputFormat{})
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestConvert_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewGoldmark(Options{}).Convert(ctx, writeTemp(t, "x"), models.OutputFormat{}); err == nil {
		t.Error("expected context error")
	}
}
