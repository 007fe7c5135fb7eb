// Package parser extracts front matter and listing metadata from document sources.
package parser

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"
)

// yamlFormat decodes "---" delimited front matter with yaml.v3 so nested
// maps come back as map[string]any.
var yamlFormat = frontmatter.NewFormat("---", "---", yaml.Unmarshal)

// Result holds the output of parsing a document.
type Result struct {
	Frontmatter map[string]any
	Body        string
	Title       string
	Date        time.Time
	Author      string
	Description string
	Categories  []string
	Image       string
	Draft       bool
}

// Decode unmarshals the front matter of data into v and returns the body.
// Documents without front matter leave v untouched.
func Decode(data []byte, v any) ([]byte, error) {
	body, err := frontmatter.Parse(bytes.NewReader(data), v, yamlFormat)
	if err != nil {
		return nil, fmt.Errorf("parser: front matter: %w", err)
	}
	return body, nil
}

// Parse extracts front matter and the metadata a listing item needs.
// Invalid YAML falls back to treating the whole document as body.
func Parse(data []byte) (*Result, error) {
	var fm map[string]any
	body, err := Decode(data, &fm)
	if err != nil {
		fm = nil
		body = data
	}

	r := &Result{
		Frontmatter: fm,
		Body:        string(body),
		Author:      authorOf(fm["author"]),
		Description: stringOf(fm["description"]),
		Categories:  extractCategories(fm),
		Image:       stringOf(fm["image"]),
		Draft:       boolOf(fm["draft"]),
	}
	r.Title = deriveTitle(fm, r.Body)
	r.Date = ParseDate(fm["date"])
	return r, nil
}

// extractCategories collects "categories" and "tags" front matter values,
// de-duplicated in first-seen order.
func extractCategories(fm map[string]any) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, key := range []string{"categories", "tags"} {
		for _, s := range StringList(fm[key]) {
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// StringList accepts a scalar or a sequence and returns trimmed, non-empty strings.
func StringList(v any) []string {
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
	case []any:
		var out []string
		for _, item := range t {
			if s := strings.TrimSpace(fmt.Sprint(item)); s != "" && item != nil {
				out = append(out, s)
			}
		}
		return out
	case []string:
		var out []string
		for _, s := range t {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// deriveTitle returns the front matter "title" if present, otherwise the
// first H1 heading, otherwise empty string.
func deriveTitle(fm map[string]any, body string) string {
	if s := stringOf(fm["title"]); s != "" {
		return s
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// ParseDate accepts a time value or one of the common date spellings.
func ParseDate(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range dateLayouts {
			if d, err := time.Parse(layout, s); err == nil {
				return d
			}
		}
	}
	return time.Time{}
}

func stringOf(v any) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func boolOf(v any) bool {
	b, _ := v.(bool)
	return b
}

// authorOf accepts a name, a list of names, or maps with a "name" key.
func authorOf(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		return stringOf(t["name"])
	case []any:
		var names []string
		for _, item := range t {
			if n := authorOf(item); n != "" {
				names = append(names, n)
			}
		}
		return strings.Join(names, ", ")
	}
	return ""
}
