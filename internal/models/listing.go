// Package models defines the domain types for folio listings.
package models

import (
	"strings"
	"time"
)

// ListingType selects the template used to render a listing.
type ListingType int

// Listing types. The zero value is the default listing.
const (
	TypeDefault ListingType = iota
	TypeGrid
	TypeTable
	TypeCustom
)

// String returns the front matter spelling of the type.
func (t ListingType) String() string {
	switch t {
	case TypeGrid:
		return "grid"
	case TypeTable:
		return "table"
	case TypeCustom:
		return "custom"
	default:
		return "default"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t ListingType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ListingType) UnmarshalText(b []byte) error {
	*t = ParseListingType(string(b))
	return nil
}

// ParseListingType maps a front matter value onto a ListingType.
// Unknown and empty values normalise to TypeDefault.
func ParseListingType(s string) ListingType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "grid":
		return TypeGrid
	case "table":
		return TypeTable
	case "custom":
		return TypeCustom
	default:
		return TypeDefault
	}
}

// FeedType is the requested feed mode.
type FeedType string

// Feed modes.
const (
	FeedFull     FeedType = "full"
	FeedPartial  FeedType = "partial"
	FeedMetadata FeedType = "metadata"
)

// FeedOptions configures feed generation for a listing.
type FeedOptions struct {
	Type        FeedType `json:"type"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Items       int      `json:"items,omitempty"`
	Categories  []string `json:"categories,omitempty"`
}

// FieldConfig controls which item fields a listing displays.
type FieldConfig struct {
	Display    []string `json:"display,omitempty"`
	Categories bool     `json:"categories"`
}

// Listing is the resolved configuration of one auto-generated index.
type Listing struct {
	ID       string       `json:"id"`
	Type     ListingType  `json:"type"`
	Template string       `json:"template,omitempty"`
	Contents []string     `json:"contents"`
	Sort     []string     `json:"sort,omitempty"`
	MaxItems int          `json:"max_items,omitempty"`
	PageSize int          `json:"page_size,omitempty"`
	Filter   bool         `json:"filter"`
	Fields   FieldConfig  `json:"fields"`
	Feed     *FeedOptions `json:"feed,omitempty"`
}

// ListingItem describes one indexed document.
type ListingItem struct {
	Title       string         `json:"title"`
	Path        string         `json:"path"`
	Href        string         `json:"href"`
	Date        time.Time      `json:"date,omitempty"`
	Author      string         `json:"author,omitempty"`
	Description string         `json:"description,omitempty"`
	Categories  []string       `json:"categories,omitempty"`
	Image       string         `json:"image,omitempty"`
	Fields      map[string]any `json:"fields,omitempty"`
}

// Descriptor pairs a listing with its items and the page declaring it.
type Descriptor struct {
	Listing Listing       `json:"listing"`
	Items   []ListingItem `json:"items"`
	Source  string        `json:"source"`
}

// OutputFormat describes the active output format.
type OutputFormat struct {
	Name      string `json:"name" yaml:"name"`
	Extension string `json:"extension" yaml:"extension"`
	Sidebar   bool   `json:"sidebar" yaml:"sidebar"`
	SiteURL   string `json:"site_url" yaml:"site_url"`
}

// IsHTML reports whether the format produces HTML output.
func (f OutputFormat) IsHTML() bool {
	return f.Name == "" || strings.EqualFold(f.Name, "html")
}
