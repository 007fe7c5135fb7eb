// Package render orchestrates full and incremental renders of a project.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/automation"
	"github.com/starford/folio/internal/checksum"
	"github.com/starford/folio/internal/engine"
	"github.com/starford/folio/internal/listing"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/pipeline"
	"github.com/starford/folio/internal/project"
	"github.com/starford/folio/internal/storage"
	"github.com/starford/folio/internal/tempfile"
)

// PreviewDir is where captured listing previews are written inside the
// output directory.
const PreviewDir = "listing-previews"

// Page event kinds passed to a Notifier.
const (
	EventRendered     = "rendered"
	EventFailed       = "failed"
	EventSupplemented = "supplemented"
)

// Notifier receives page-level render events.
type Notifier interface {
	PublishPageEvent(kind, path string)
}

// Request selects what to render.
type Request struct {
	// Files are the changed project files of an incremental render. A full
	// render ignores them and renders every page.
	Files       []string `json:"files,omitempty"`
	Incremental bool     `json:"incremental"`
}

// PageResult is the outcome of rendering one page.
type PageResult struct {
	Source     string   `json:"source"`
	Output     string   `json:"output,omitempty"`
	Listings   int      `json:"listings"`
	Written    bool     `json:"written"`
	Supporting []string `json:"supporting,omitempty"`
	Err        error    `json:"-"`
	Error      string   `json:"error,omitempty"`
}

// Result summarises a render.
type Result struct {
	Pages []PageResult `json:"pages"`
	// Supplemental are listing pages added because their dependencies changed.
	Supplemental []string `json:"supplemental"`
	// FullRender is true for full renders, including incremental requests
	// escalated because the listing cache was unavailable.
	FullRender bool `json:"full_render"`
	// Removed are outputs deleted because their source page is gone.
	Removed   []string      `json:"removed,omitempty"`
	Resources []string      `json:"resources,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Err joins the errors of every failed page.
func (r *Result) Err() error {
	var errs []error
	for _, p := range r.Pages {
		if p.Err != nil {
			errs = append(errs, p.Err)
		}
	}
	return errors.Join(errs...)
}

// Service renders the pages of one project. Renders are serialised.
type Service struct {
	project    *project.Context
	reader     listing.Reader
	dispatcher *listing.Dispatcher
	converter  engine.Converter
	capturer   automation.Capturer
	notifier   Notifier
	logger     *slog.Logger
	scratchDir string

	mu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCapturer enables preview capture for grid items without an image.
func WithCapturer(c automation.Capturer) Option {
	return func(s *Service) { s.capturer = c }
}

// WithNotifier sets the receiver of page events.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithScratchDir overrides where per-render temporary files are created.
func WithScratchDir(dir string) Option {
	return func(s *Service) { s.scratchDir = dir }
}

// NewService creates a render service.
func NewService(p *project.Context, reader listing.Reader, dispatcher *listing.Dispatcher, converter engine.Converter, opts ...Option) *Service {
	s := &Service{
		project:    p,
		reader:     reader,
		dispatcher: dispatcher,
		converter:  converter,
		logger:     slog.Default(),
		scratchDir: filepath.Join(p.Dir(), project.DefaultScratchDir, "tmp"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Project returns the project the service renders.
func (s *Service) Project() *project.Context { return s.project }

// Render runs a full or incremental render. Page failures are reported in
// the result; the returned error covers failures of the render as a whole.
func (s *Service) Render(ctx context.Context, req Request) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()

	scope, err := tempfile.NewScope(s.scratchDir)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	defer func() {
		if err := scope.Cleanup(); err != nil {
			s.logger.Warn("render: temp cleanup failed", slog.String("error", err.Error()))
		}
	}()

	res := &Result{Supplemental: []string{}}
	targets, err := s.plan(ctx, req, res)
	if err != nil {
		return nil, err
	}

	listingPages := 0
	for _, page := range targets {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		pr := s.renderPage(ctx, scope, page)
		if pr.Err != nil {
			pr.Error = pr.Err.Error()
			s.logger.Error("render: page failed",
				slog.String("path", page),
				slog.String("error", pr.Err.Error()))
			s.notify(EventFailed, page)
		} else {
			s.notify(EventRendered, page)
		}
		if pr.Listings > 0 {
			listingPages++
		}
		res.Pages = append(res.Pages, pr)
	}

	if listingPages > 0 {
		resources, err := listing.CopyResources(s.project.Store, s.project.OutputDir)
		if err != nil {
			return res, fmt.Errorf("render: %w", err)
		}
		res.Resources = resources
	}
	res.Duration = time.Since(start)

	s.logger.Info("render: done",
		slog.Bool("full", res.FullRender),
		slog.Int("pages", len(res.Pages)),
		slog.Int("supplemental", len(res.Supplemental)),
		slog.Duration("duration", res.Duration))
	return res, nil
}

// plan returns the pages to render. An incremental request whose listing
// cache cannot be read is escalated to a full render.
func (s *Service) plan(ctx context.Context, req Request, res *Result) ([]string, error) {
	cache := s.project.Cache
	if !req.Incremental {
		return s.planFull(ctx, res)
	}

	var changed []string
	for _, f := range req.Files {
		rel, ok := s.project.Rel(f)
		if !ok {
			s.logger.Warn("render: ignoring file outside project", slog.String("path", f))
			continue
		}
		changed = append(changed, rel)
	}

	affected, err := cache.AffectedListings(ctx, changed)
	if err != nil {
		if errors.Is(err, apperr.ErrCacheUnavailable) {
			s.logger.Warn("render: listing cache unavailable, running full render",
				slog.String("error", err.Error()))
			return s.planFull(ctx, res)
		}
		return nil, fmt.Errorf("render: affected listings: %w", err)
	}

	seen := make(map[string]struct{})
	var targets []string
	for _, f := range changed {
		if _, dup := seen[f]; dup || !s.project.IsPage(f) {
			continue
		}
		seen[f] = struct{}{}
		if !s.project.Store.Exists(f) {
			s.removeOutput(f, res)
			continue
		}
		targets = append(targets, f)
	}
	sort.Strings(targets)
	for _, page := range affected {
		if _, dup := seen[page]; dup {
			continue
		}
		if !s.project.Store.Exists(page) {
			s.logger.Debug("render: affected listing page no longer exists", slog.String("path", page))
			continue
		}
		seen[page] = struct{}{}
		targets = append(targets, page)
		res.Supplemental = append(res.Supplemental, page)
		s.notify(EventSupplemented, page)
	}
	return targets, nil
}

// removeOutput deletes the output of a page whose source no longer exists.
func (s *Service) removeOutput(page string, res *Result) {
	out := s.project.OutputPath(page)
	if !s.project.Store.Exists(out) {
		return
	}
	if err := s.project.Store.Delete(out); err != nil {
		s.logger.Warn("render: remove stale output failed",
			slog.String("path", out),
			slog.String("error", err.Error()))
		return
	}
	res.Removed = append(res.Removed, out)
	s.logger.Info("render: removed stale output", slog.String("path", out))
}

func (s *Service) planFull(ctx context.Context, res *Result) ([]string, error) {
	res.FullRender = true
	if err := s.project.Cache.ClearAll(ctx); err != nil {
		return nil, fmt.Errorf("render: clear listing cache: %w", err)
	}
	pages, err := s.project.Pages()
	if err != nil {
		return nil, fmt.Errorf("render: enumerate pages: %w", err)
	}
	return pages, nil
}

// renderPage runs the per-page flow. The listing cache entry is recorded
// before conversion and is left in place when conversion fails.
func (s *Service) renderPage(ctx context.Context, scope *tempfile.Scope, page string) PageResult {
	pr := PageResult{Source: page}
	fail := func(err error) PageResult {
		pr.Err = err
		return pr
	}

	descs, err := s.reader.Read(ctx, page)
	if err != nil {
		return fail(err)
	}
	pr.Listings = len(descs)

	_, hadEntry, _ := s.project.Cache.Patterns(ctx, page)
	if len(descs) > 0 || hadEntry {
		if err := s.project.Cache.RecordListing(ctx, page, descs); err != nil {
			return fail(fmt.Errorf("render: record listing %s: %w", page, err))
		}
	}

	if err := s.capturePreviews(ctx, descs); err != nil {
		return fail(fmt.Errorf("render: %s: %w", page, err))
	}

	var extras *listing.FormatExtras
	if len(descs) > 0 {
		extras, err = listing.BuildExtras(ctx, listing.ExtrasInput{
			Project:     s.project,
			Source:      page,
			Descriptors: descs,
			Dispatcher:  s.dispatcher,
			Keys:        pipeline.NewKeys(),
			Logger:      s.logger,
		})
		if err != nil {
			return fail(err)
		}
	}

	src, err := s.project.Store.Read(page)
	if err != nil {
		return fail(err)
	}
	if extras != nil {
		src = append(append(src, '\n'), extras.PostBodyMarkdown...)
	}
	tmp, err := scope.Create("page-*"+path.Ext(page), src)
	if err != nil {
		return fail(err)
	}

	doc, err := s.converter.Convert(ctx, tmp, s.project.Format)
	if err != nil {
		return fail(fmt.Errorf("render: convert %s: %w", page, err))
	}

	if extras != nil {
		applied := extras.Pipeline.Apply(doc)
		s.logger.Debug("render: pipeline applied",
			slog.String("path", page),
			slog.Int("handlers", extras.Pipeline.Len()),
			slog.Int("applied", applied))
		supporting, err := extras.PostProcessor(ctx, doc)
		if err != nil {
			return fail(fmt.Errorf("render: post-process %s: %w", page, err))
		}
		pr.Supporting = supporting
		listing.InjectHead(doc, extras)
	}

	html, err := doc.Render()
	if err != nil {
		return fail(fmt.Errorf("render: serialise %s: %w", page, err))
	}
	pr.Output = s.project.OutputPath(page)
	written, err := storage.WriteIfChanged(s.project.Store, pr.Output, []byte(html))
	if err != nil {
		return fail(fmt.Errorf("render: write %s: %w", pr.Output, err))
	}
	pr.Written = written
	return pr
}

// capturePreviews screenshots grid items that have no image. Exhausted or
// fatal capture failures abort the page.
func (s *Service) capturePreviews(ctx context.Context, descs []models.Descriptor) error {
	if s.capturer == nil {
		return nil
	}
	c := automation.Retrying{Capturer: s.capturer, Logger: s.logger}
	for i := range descs {
		if descs[i].Listing.Type != models.TypeGrid {
			continue
		}
		for j := range descs[i].Items {
			item := &descs[i].Items[j]
			if item.Image != "" {
				continue
			}
			name := path.Join(PreviewDir, checksum.Short(12, item.Path)+".png")
			dest := path.Join(s.project.OutputDir, name)
			if !s.project.Store.Exists(dest) {
				if err := c.Capture(ctx, item.Href, dest); err != nil {
					return fmt.Errorf("capture preview of %s: %w", item.Path, err)
				}
			}
			item.Image = "/" + name
		}
	}
	return nil
}

func (s *Service) notify(kind, page string) {
	if s.notifier != nil {
		s.notifier.PublishPageEvent(kind, page)
	}
}
