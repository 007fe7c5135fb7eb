package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/render"
)

// Service answers API queries against one project's render service and
// listing cache.
type Service struct {
	renderer *render.Service
	logger   *slog.Logger
}

// NewService creates a new API service.
func NewService(renderer *render.Service, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{renderer: renderer, logger: logger}
}

// Listings returns every cached listing page sorted by path.
func (s *Service) Listings(ctx context.Context) (*ListingsResponse, error) {
	p := s.renderer.Project()
	entries, err := p.Cache.Entries(ctx)
	if err != nil {
		return nil, err
	}
	out := &ListingsResponse{Project: p.Dir(), Listings: make([]ListingEntry, 0, len(entries))}
	for page, patterns := range entries {
		out.Listings = append(out.Listings, ListingEntry{Page: page, Patterns: patterns})
	}
	sort.Slice(out.Listings, func(i, j int) bool { return out.Listings[i].Page < out.Listings[j].Page })
	out.Total = len(out.Listings)
	return out, nil
}

// Listing returns the cached patterns of one page.
func (s *Service) Listing(ctx context.Context, page string) (*ListingEntry, error) {
	patterns, ok, err := s.renderer.Project().Cache.Patterns(ctx, page)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("listing %s: %w", page, apperr.ErrNotFound)
	}
	return &ListingEntry{Page: page, Patterns: patterns}, nil
}

// Affected reports the listing pages a change to files would re-render.
// An unreadable cache is reported in the response rather than as an error.
func (s *Service) Affected(ctx context.Context, files []string) (*AffectedResponse, error) {
	p := s.renderer.Project()
	out := &AffectedResponse{Changed: []string{}, Pages: []string{}, CacheAvailable: true}
	for _, f := range files {
		if rel, ok := p.Rel(f); ok {
			out.Changed = append(out.Changed, rel)
		}
	}
	pages, err := p.Cache.AffectedListings(ctx, out.Changed)
	if err != nil {
		if !errors.Is(err, apperr.ErrCacheUnavailable) {
			return nil, err
		}
		s.logger.Warn("api: listing cache unavailable", slog.String("error", err.Error()))
		out.CacheAvailable = false
	}
	out.Pages = append(out.Pages, pages...)
	return out, nil
}

// Render runs a render and counts the pages that failed.
func (s *Service) Render(ctx context.Context, req render.Request) (*RenderResponse, error) {
	res, err := s.renderer.Render(ctx, req)
	if err != nil {
		return nil, err
	}
	failed := 0
	for _, p := range res.Pages {
		if p.Err != nil {
			failed++
		}
	}
	return &RenderResponse{Result: res, Failed: failed}, nil
}
