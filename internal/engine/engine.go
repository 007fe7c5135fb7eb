// Package engine converts markdown source files into mutable HTML documents.
package engine

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"os"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/starford/folio/internal/dom"
	"github.com/starford/folio/internal/models"
)

// Converter turns a markdown file into a document tree.
type Converter interface {
	Convert(ctx context.Context, markdownPath string, format models.OutputFormat) (dom.Document, error)
}

// Options tunes the goldmark engine.
type Options struct {
	Extensions []string
	HardWraps  bool
	SafeMode   bool
}

// Goldmark implements Converter with the goldmark engine. It is stateless
// and safe for concurrent use.
type Goldmark struct {
	md goldmark.Markdown
}

var _ Converter = (*Goldmark)(nil)

// NewGoldmark builds a converter. Raw HTML is passed through unless SafeMode
// is set; listing fragments rely on it.
func NewGoldmark(opts Options) *Goldmark {
	parserOptions := []parser.Option{
		parser.WithAutoHeadingID(),
	}

	rendererOptions := []renderer.Option{}
	if opts.HardWraps {
		rendererOptions = append(rendererOptions, gmhtml.WithHardWraps())
	}
	if !opts.SafeMode {
		rendererOptions = append(rendererOptions, gmhtml.WithUnsafe())
	}

	engineOptions := []goldmark.Option{
		goldmark.WithParserOptions(parserOptions...),
		goldmark.WithExtensions(collectExtensions(opts.Extensions)...),
	}
	if len(rendererOptions) > 0 {
		engineOptions = append(engineOptions, goldmark.WithRendererOptions(rendererOptions...))
	}
	return &Goldmark{md: goldmark.New(engineOptions...)}
}

var extensionRegistry = map[string]goldmark.Extender{
	"gfm":           extension.GFM,
	"table":         extension.Table,
	"strikethrough": extension.Strikethrough,
	"linkify":       extension.Linkify,
	"tasklist":      extension.TaskList,
	"definition":    extension.DefinitionList,
	"footnote":      extension.Footnote,
}

func collectExtensions(names []string) []goldmark.Extender {
	if len(names) == 0 {
		return []goldmark.Extender{extension.GFM, extension.Footnote}
	}
	var out []goldmark.Extender
	seen := map[string]struct{}{}
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		ext, ok := extensionRegistry[key]
		if !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, ext)
	}
	return out
}

type pageMeta struct {
	Title string `yaml:"title"`
}

// Convert implements Converter.
func (g *Goldmark) Convert(ctx context.Context, markdownPath string, format models.OutputFormat) (dom.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src, err := os.ReadFile(markdownPath)
	if err != nil {
		return nil, fmt.Errorf("engine: read %s: %w", markdownPath, err)
	}

	var meta pageMeta
	body, err := frontmatter.Parse(bytes.NewReader(src), &meta)
	if err != nil {
		// Unparseable front matter is rendered as body text.
		body = src
	}

	var buf bytes.Buffer
	if err := g.md.Convert(body, &buf); err != nil {
		return nil, fmt.Errorf("engine: convert %s: %w", markdownPath, err)
	}

	doc, err := dom.ParseString(shell(meta.Title, buf.String(), format))
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	return doc, nil
}

func shell(title, body string, format models.OutputFormat) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(title))
	b.WriteString("</head>\n<body>\n<div class=\"page-columns\">\n")
	fmt.Fprintf(&b, "<main id=\"%s\" class=\"content\">\n", dom.ContentID)
	b.WriteString(body)
	b.WriteString("</main>\n")
	if format.Sidebar {
		fmt.Fprintf(&b, "<div id=\"%s\" class=\"sidebar\"></div>\n", dom.SidebarID)
	}
	b.WriteString("</div>\n</body>\n</html>\n")
	return b.String()
}
