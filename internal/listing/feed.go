package listing

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/starford/folio/internal/dom"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/project"
	"github.com/starford/folio/internal/storage"
)

// DefaultFeedItems caps a feed when its options set no item count.
const DefaultFeedItems = 20

// FeedArtifact is one written feed file.
type FeedArtifact struct {
	// Path is project-relative.
	Path      string
	Href      string
	ListingID string
	Category  string
	Type      models.FeedType
	Items     int
}

// FeedInput is what the feed generator needs from a finished page render.
type FeedInput struct {
	Doc         dom.Document
	Source      string
	Project     *project.Context
	Descriptors []models.Descriptor
	Format      models.OutputFormat
}

// GenerateFeeds writes one RSS feed per feed-enabled listing plus one per
// configured category, and links them from the document head. Every feed is
// partial regardless of the requested type: items carry their description,
// never full content.
func GenerateFeeds(ctx context.Context, in FeedInput, logger *slog.Logger) ([]FeedArtifact, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var enabled []models.Descriptor
	for _, d := range in.Descriptors {
		if d.Listing.Feed != nil {
			enabled = append(enabled, d)
		}
	}
	if len(enabled) == 0 {
		return nil, nil
	}

	stem := strings.TrimSuffix(in.Source, path.Ext(in.Source))
	var out []FeedArtifact
	for _, d := range enabled {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		opts := *d.Listing.Feed
		if opts.Type != "" && opts.Type != models.FeedPartial {
			logger.Debug("listing: feed type coerced to partial",
				slog.String("listing", d.Listing.ID),
				slog.String("requested", string(opts.Type)))
		}
		opts.Type = models.FeedPartial

		base := stem
		if len(enabled) > 1 {
			base = stem + "-" + slug(d.Listing.ID)
		}

		a, err := writeFeed(in, d, opts, base+".xml", "", d.Items)
		if err != nil {
			return out, err
		}
		out = append(out, a)

		for _, cat := range opts.Categories {
			var items []models.ListingItem
			for _, item := range d.Items {
				if hasCategory(item, cat) {
					items = append(items, item)
				}
			}
			a, err := writeFeed(in, d, opts, base+"-"+slug(cat)+".xml", cat, items)
			if err != nil {
				return out, err
			}
			out = append(out, a)
		}
	}
	return out, nil
}

func writeFeed(in FeedInput, d models.Descriptor, opts models.FeedOptions, name, category string, items []models.ListingItem) (FeedArtifact, error) {
	limit := opts.Items
	if limit <= 0 {
		limit = DefaultFeedItems
	}
	if len(items) > limit {
		items = items[:limit]
	}

	title := opts.Title
	if title == "" {
		title = in.Doc.Title()
	}
	if title == "" {
		title = d.Listing.ID
	}
	if category != "" {
		title = title + " - " + category
	}

	ch := rssChannel{
		Title:       title,
		Link:        absoluteURL(in.Format.SiteURL, in.Project.Href(in.Source)),
		Description: opts.Description,
		Generator:   "folio",
	}
	if ch.Description == "" {
		ch.Description = title
	}
	var newest time.Time
	for _, item := range items {
		link := absoluteURL(in.Format.SiteURL, item.Href)
		ri := rssItem{
			Title:       item.Title,
			Link:        link,
			GUID:        rssGUID{Value: link, IsPermaLink: "true"},
			Description: item.Description,
			Author:      item.Author,
			Categories:  item.Categories,
		}
		if !item.Date.IsZero() {
			ri.PubDate = item.Date.UTC().Format(time.RFC1123Z)
			if item.Date.After(newest) {
				newest = item.Date
			}
		}
		ch.Items = append(ch.Items, ri)
	}
	if !newest.IsZero() {
		ch.LastBuildDate = newest.UTC().Format(time.RFC1123Z)
	}

	body, err := xml.MarshalIndent(rssDocument{Version: "2.0", Channel: ch}, "", "  ")
	if err != nil {
		return FeedArtifact{}, fmt.Errorf("listing: feed %s: %w", name, err)
	}
	content := append([]byte(xml.Header), body...)
	content = append(content, '\n')

	rel := path.Join(in.Project.OutputDir, name)
	if _, err := storage.WriteIfChanged(in.Project.Store, rel, content); err != nil {
		return FeedArtifact{}, fmt.Errorf("listing: write feed %s: %w", rel, err)
	}

	href := "/" + name
	link := in.Doc.CreateElement("link")
	link.SetAttr("rel", "alternate")
	link.SetAttr("type", "application/rss+xml")
	link.SetAttr("title", title)
	link.SetAttr("href", href)
	in.Doc.Head().AppendChild(link)

	return FeedArtifact{
		Path:      rel,
		Href:      href,
		ListingID: d.Listing.ID,
		Category:  category,
		Type:      opts.Type,
		Items:     len(items),
	}, nil
}

type rssDocument struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	Generator     string    `xml:"generator,omitempty"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	GUID        rssGUID  `xml:"guid"`
	Description string   `xml:"description,omitempty"`
	Author      string   `xml:"author,omitempty"`
	Categories  []string `xml:"category"`
	PubDate     string   `xml:"pubDate,omitempty"`
}

type rssGUID struct {
	Value       string `xml:",chardata"`
	IsPermaLink string `xml:"isPermaLink,attr,omitempty"`
}

func absoluteURL(base, href string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" || strings.Contains(href, "://") {
		return href
	}
	return base + "/" + strings.TrimLeft(href, "/")
}

func hasCategory(item models.ListingItem, cat string) bool {
	for _, c := range item.Categories {
		if strings.EqualFold(c, cat) {
			return true
		}
	}
	return false
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

func slug(s string) string {
	s = strings.Trim(slugRe.ReplaceAllString(strings.ToLower(s), "-"), "-")
	if s == "" {
		return "feed"
	}
	return s
}
