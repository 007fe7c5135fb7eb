package listing

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/starford/folio/internal/dom"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/pipeline"
	"github.com/starford/folio/internal/project"
	"github.com/starford/folio/internal/storage"
)

//go:embed resources/listing.js resources/listing.css
var resourceFS embed.FS

// LibDir is where bundled listing resources live inside the output directory.
const LibDir = "site_libs/listing"

// Dependency is a script or style a listing page loads.
type Dependency struct {
	Name string `json:"name"`
	// Path is the site-absolute href.
	Path string `json:"path"`
	// Resource is the bundled file the dependency is copied from.
	Resource string `json:"-"`
}

// StyleBundle is a named style layer keyed by its source path.
type StyleBundle struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// PostProcessor runs against the converted document and returns supporting
// files written alongside the page.
type PostProcessor func(ctx context.Context, doc dom.Document) ([]string, error)

// FormatExtras is everything a listing page adds to the surrounding render.
type FormatExtras struct {
	// HeadScripts are script hrefs to include in the head.
	HeadScripts []string
	// HeadHTML are inline head elements, one client init script per listing.
	HeadHTML []string
	// PostBodyMarkdown is appended to the page source before conversion.
	PostBodyMarkdown string
	Pipeline         *pipeline.Pipeline
	PostProcessor    PostProcessor
	Dependencies     []Dependency
	StyleBundle      StyleBundle
	Rendered         []*Rendered
}

// ExtrasInput collects what BuildExtras needs for one page.
type ExtrasInput struct {
	Project     *project.Context
	Source      string
	Descriptors []models.Descriptor
	Dispatcher  *Dispatcher
	Keys        *pipeline.Keys
	Logger      *slog.Logger
}

// Dependencies returns the bundled script and style of listing pages.
func Dependencies() []Dependency {
	return []Dependency{
		{Name: "listing-js", Path: "/" + LibDir + "/listing.js", Resource: "resources/listing.js"},
		{Name: "listing-css", Path: "/" + LibDir + "/listing.css", Resource: "resources/listing.css"},
	}
}

// BuildExtras dispatches every listing of the page and assembles the
// pipeline and post-processing steps. A dispatch failure is returned before
// anything is converted.
func BuildExtras(ctx context.Context, in ExtrasInput) (*FormatExtras, error) {
	logger := in.Logger
	if logger == nil {
		logger = slog.Default()
	}
	keys := in.Keys
	if keys == nil {
		keys = pipeline.NewKeys()
	}

	ex := &FormatExtras{
		Dependencies: Dependencies(),
		StyleBundle:  StyleBundle{Name: "listing", Path: "listing.css"},
	}
	var handlers []pipeline.Handler
	for _, d := range in.Descriptors {
		r, err := in.Dispatcher.Render(ctx, d, in.Project.Format)
		if err != nil {
			return nil, err
		}
		ex.Rendered = append(ex.Rendered, r)
		ex.HeadHTML = append(ex.HeadHTML, r.Script)
		handlers = append(handlers, Handlers(keys, r)...)
	}

	pipe, err := pipeline.New("listing", handlers...)
	if err != nil {
		return nil, fmt.Errorf("listing: %s: %w", in.Source, err)
	}
	ex.Pipeline = pipe.WithLogger(logger)
	ex.PostBodyMarkdown = pipe.PreBodyFragment()
	for _, dep := range ex.Dependencies {
		if strings.HasSuffix(dep.Path, ".js") {
			ex.HeadScripts = append(ex.HeadScripts, dep.Path)
		}
	}

	descs := in.Descriptors
	ex.PostProcessor = func(ctx context.Context, doc dom.Document) ([]string, error) {
		if AddCategorySidebar(doc, descs) {
			logger.Debug("listing: category sidebar added", slog.String("page", in.Source))
		}
		feeds, err := GenerateFeeds(ctx, FeedInput{
			Doc:         doc,
			Source:      in.Source,
			Project:     in.Project,
			Descriptors: descs,
			Format:      in.Project.Format,
		}, logger)
		if err != nil {
			return nil, err
		}
		paths := make([]string, 0, len(feeds))
		for _, f := range feeds {
			paths = append(paths, f.Path)
		}
		return paths, nil
	}
	return ex, nil
}

// InjectHead adds the stylesheet, script includes, and client init scripts
// to the document head.
func InjectHead(doc dom.Document, ex *FormatExtras) {
	head := doc.Head()
	for _, dep := range ex.Dependencies {
		if !strings.HasSuffix(dep.Path, ".css") {
			continue
		}
		link := doc.CreateElement("link")
		link.SetAttr("rel", "stylesheet")
		link.SetAttr("href", dep.Path)
		link.SetAttr("data-folio-dependency", dep.Name)
		head.AppendChild(link)
	}
	for _, src := range ex.HeadScripts {
		script := doc.CreateElement("script")
		script.SetAttr("src", src)
		script.SetAttr("defer", "")
		head.AppendChild(script)
	}
	for _, h := range ex.HeadHTML {
		head.AppendHTML(h)
	}
}

// CopyResources writes the bundled dependencies into the output directory
// and returns the project-relative paths written or already current.
func CopyResources(store storage.Provider, outputDir string) ([]string, error) {
	var out []string
	for _, dep := range Dependencies() {
		data, err := resourceFS.ReadFile(dep.Resource)
		if err != nil {
			return nil, fmt.Errorf("listing: resource %s: %w", dep.Resource, err)
		}
		rel := path.Join(outputDir, strings.TrimPrefix(dep.Path, "/"))
		if _, err := storage.WriteIfChanged(store, rel, data); err != nil {
			return nil, fmt.Errorf("listing: copy %s: %w", dep.Name, err)
		}
		out = append(out, rel)
	}
	return out, nil
}
