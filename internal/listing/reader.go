// Package listing resolves listing configuration from page front matter and
// turns it into the fragments, scripts, and side artifacts a listing page
// needs.
package listing

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/starford/folio/internal/glob"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/parser"
	"github.com/starford/folio/internal/project"
)

// DefaultContents is used when a listing names no contents.
var DefaultContents = []string{"*"}

// Reader resolves the listings a page declares.
type Reader interface {
	// Read returns the descriptors of page in declaration order. A page
	// without listings yields no descriptors and no error.
	Read(ctx context.Context, page string) ([]models.Descriptor, error)
}

// FrontMatterReader reads listings from the "listing" front matter key and
// resolves items against the project's pages.
type FrontMatterReader struct {
	project *project.Context
	logger  *slog.Logger
}

var _ Reader = (*FrontMatterReader)(nil)

// NewReader creates a FrontMatterReader.
func NewReader(p *project.Context, logger *slog.Logger) *FrontMatterReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &FrontMatterReader{project: p, logger: logger}
}

type pageFrontMatter struct {
	Listing any `yaml:"listing"`
}

// Read implements Reader.
func (r *FrontMatterReader) Read(ctx context.Context, page string) ([]models.Descriptor, error) {
	page = glob.Normalize(page)
	data, err := r.project.Store.Read(page)
	if err != nil {
		return nil, fmt.Errorf("listing: read %s: %w", page, err)
	}
	var fm pageFrontMatter
	if _, err := parser.Decode(data, &fm); err != nil {
		return nil, fmt.Errorf("listing: %s: %w", page, err)
	}

	listings, err := resolveListings(fm.Listing)
	if err != nil {
		return nil, fmt.Errorf("listing: %s: %w", page, err)
	}
	if len(listings) == 0 {
		return nil, nil
	}

	pages, err := r.project.Pages()
	if err != nil {
		return nil, fmt.Errorf("listing: enumerate pages: %w", err)
	}

	out := make([]models.Descriptor, 0, len(listings))
	for _, l := range listings {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		items := r.items(page, l, pages)
		out = append(out, models.Descriptor{Listing: l, Items: items, Source: page})
	}
	return out, nil
}

// items resolves the pages a listing matches, in presentation order.
func (r *FrontMatterReader) items(page string, l models.Listing, pages []string) []models.ListingItem {
	dir := path.Dir(page)
	rebased := make([]string, 0, len(l.Contents))
	for _, c := range l.Contents {
		rebased = append(rebased, glob.Rebase(dir, c))
	}
	set := glob.Compile(rebased)

	var items []models.ListingItem
	for _, p := range set.Filter(pages) {
		if p == page {
			continue
		}
		data, err := r.project.Store.Read(p)
		if err != nil {
			r.logger.Warn("listing: skipping unreadable item",
				slog.String("path", p),
				slog.String("error", err.Error()))
			continue
		}
		res, _ := parser.Parse(data)
		if res.Draft {
			continue
		}
		items = append(items, r.item(p, res))
	}

	sortItems(items, l.Sort)
	if l.MaxItems > 0 && len(items) > l.MaxItems {
		items = items[:l.MaxItems]
	}
	return items
}

func (r *FrontMatterReader) item(p string, res *parser.Result) models.ListingItem {
	title := res.Title
	if title == "" {
		title = strings.TrimSuffix(path.Base(p), path.Ext(p))
	}
	return models.ListingItem{
		Title:       title,
		Path:        p,
		Href:        r.project.Href(p),
		Date:        res.Date,
		Author:      res.Author,
		Description: res.Description,
		Categories:  res.Categories,
		Image:       imageHref(path.Dir(p), res.Image),
		Fields:      res.Frontmatter,
	}
}

// imageHref makes a relative image site-absolute. URLs and absolute paths
// are kept.
func imageHref(dir, image string) string {
	if image == "" || strings.Contains(image, "://") || strings.HasPrefix(image, "/") {
		return image
	}
	return "/" + glob.Rebase(dir, image)
}

// resolveListings normalises the raw "listing" value. It accepts true, a
// type name, a single map, or a sequence of maps and type names.
func resolveListings(raw any) ([]models.Listing, error) {
	var entries []any
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case bool:
		if !v {
			return nil, nil
		}
		entries = []any{map[string]any{}}
	case string, map[string]any:
		entries = []any{v}
	case []any:
		entries = v
	default:
		return nil, fmt.Errorf("unsupported listing value %T", raw)
	}

	out := make([]models.Listing, 0, len(entries))
	seen := make(map[string]struct{})
	for i, e := range entries {
		l, err := resolveListing(e, defaultID(i))
		if err != nil {
			return nil, err
		}
		if _, dup := seen[l.ID]; dup {
			return nil, fmt.Errorf("duplicate listing id %q", l.ID)
		}
		seen[l.ID] = struct{}{}
		if err := l.Validate(); err != nil {
			return nil, fmt.Errorf("listing %q: %w", l.ID, err)
		}
		out = append(out, l)
	}
	return out, nil
}

func defaultID(i int) string {
	if i == 0 {
		return "listing"
	}
	return "listing-" + strconv.Itoa(i+1)
}

func resolveListing(raw any, id string) (models.Listing, error) {
	l := models.Listing{ID: id}
	var m map[string]any
	switch v := raw.(type) {
	case string:
		m = map[string]any{"type": v}
	case map[string]any:
		m = v
	default:
		return l, fmt.Errorf("unsupported listing entry %T", raw)
	}

	if s := stringValue(m["id"]); s != "" {
		l.ID = s
	}
	l.Template = stringValue(m["template"])
	typ, hasType := m["type"]
	switch {
	case hasType:
		l.Type = models.ParseListingType(stringValue(typ))
	case l.Template != "":
		l.Type = models.TypeCustom
	}
	l.Contents = parser.StringList(m["contents"])
	if len(l.Contents) == 0 {
		l.Contents = append([]string(nil), DefaultContents...)
	}
	l.Sort = parser.StringList(m["sort"])
	l.MaxItems = intValue(m["max-items"])
	l.PageSize = intValue(m["page-size"])
	l.Filter = boolValue(m["filter-ui"], false)
	l.Fields.Categories = boolValue(m["categories"], false)
	l.Fields.Display = parser.StringList(m["fields"])

	feed, err := resolveFeed(m["feed"])
	if err != nil {
		return l, err
	}
	l.Feed = feed
	return l, nil
}

func resolveFeed(raw any) (*models.FeedOptions, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case bool:
		if !v {
			return nil, nil
		}
		return &models.FeedOptions{}, nil
	case map[string]any:
		return &models.FeedOptions{
			Type:        models.FeedType(strings.ToLower(stringValue(v["type"]))),
			Title:       stringValue(v["title"]),
			Description: stringValue(v["description"]),
			Items:       intValue(v["items"]),
			Categories:  parser.StringList(v["categories"]),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported feed value %T", raw)
	}
}

// sortItems orders items by the listing sort keys ("date desc", "title").
// Without keys items are sorted newest first.
func sortItems(items []models.ListingItem, keys []string) {
	if len(keys) == 0 {
		keys = []string{"date desc"}
	}
	sort.SliceStable(items, func(i, j int) bool {
		for _, k := range keys {
			field, desc := parseSortKey(k)
			c := compareField(items[i], items[j], field)
			if c == 0 {
				continue
			}
			if desc {
				return c > 0
			}
			return c < 0
		}
		return items[i].Path < items[j].Path
	})
}

func parseSortKey(k string) (string, bool) {
	parts := strings.Fields(strings.ToLower(k))
	if len(parts) == 0 {
		return "", false
	}
	return parts[0], len(parts) > 1 && parts[1] == "desc"
}

func compareField(a, b models.ListingItem, field string) int {
	switch field {
	case "date":
		return a.Date.Compare(b.Date)
	case "title":
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	case "author":
		return strings.Compare(a.Author, b.Author)
	case "path", "filename":
		return strings.Compare(a.Path, b.Path)
	default:
		return strings.Compare(fmt.Sprint(a.Fields[field]), fmt.Sprint(b.Fields[field]))
	}
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func intValue(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(t))
		return n
	}
	return 0
}

func boolValue(v any, def bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}
