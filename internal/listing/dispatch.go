package listing

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"path"
	"strings"
	"text/template"
	"time"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/glob"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/storage"
)

//go:embed templates/*.md.tmpl
var bundledFS embed.FS

// DateLayout is how item dates are shown by the bundled templates.
const DateLayout = "Jan 2, 2006"

// DefaultColumns are the table columns used when a listing names no fields.
var DefaultColumns = []string{"date", "title", "author"}

// Template renders a listing into a markdown fragment.
type Template interface {
	Name() string
	// Bundled reports whether the template ships with folio.
	Bundled() bool
	Execute(w io.Writer, data TemplateData) error
}

// ItemView is an item as seen by a template.
type ItemView struct {
	models.ListingItem
	Index         int
	DescriptionID string
	DateText      string
}

// TemplateData is passed to every listing template.
type TemplateData struct {
	Listing models.Listing
	Items   []ItemView
	Columns []string
	Format  models.OutputFormat
	Bundled bool
}

// ClientInit is the payload the browser script reads to wire up a listing.
type ClientInit struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Config    map[string]any `json:"config"`
	ItemCount int            `json:"itemCount"`
}

// Rendered is the output of dispatching one listing.
type Rendered struct {
	Listing  models.Listing
	Template string
	Markdown string
	// Descriptions maps description target ids to item description markdown.
	Descriptions map[string]string
	// DescriptionOrder lists the keys of Descriptions in item order.
	DescriptionOrder []string
	Init             ClientInit
	// Script is the inline script carrying Init, for injection into the head.
	Script string
}

// Dispatcher selects and executes listing templates.
type Dispatcher struct {
	store   storage.Provider
	bundled map[models.ListingType]*textTemplate
}

// NewDispatcher parses the bundled templates. Custom templates are read from
// store on each use.
func NewDispatcher(store storage.Provider) (*Dispatcher, error) {
	d := &Dispatcher{store: store, bundled: make(map[models.ListingType]*textTemplate)}
	for typ, file := range map[models.ListingType]string{
		models.TypeDefault: "templates/default.md.tmpl",
		models.TypeGrid:    "templates/grid.md.tmpl",
		models.TypeTable:   "templates/table.md.tmpl",
	} {
		src, err := bundledFS.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("listing: bundled template %s: %w", file, err)
		}
		t, err := template.New(path.Base(file)).Funcs(bundledFuncs()).Parse(string(src))
		if err != nil {
			return nil, fmt.Errorf("listing: parse %s: %w", file, err)
		}
		d.bundled[typ] = &textTemplate{name: file, bundled: true, tmpl: t}
	}
	return d, nil
}

// Resolve picks the template of l, declared on page source. Default, Grid,
// and Table always map to their bundled template. Custom reads l.Template
// relative to the page directory and fails with *apperr.ConfigError when it
// is unset or missing.
func (d *Dispatcher) Resolve(source string, l models.Listing) (Template, error) {
	switch l.Type {
	case models.TypeDefault, models.TypeGrid, models.TypeTable:
		return d.bundled[l.Type], nil
	case models.TypeCustom:
		return d.custom(source, l)
	}
	return nil, fmt.Errorf("listing %q: unhandled type %v", l.ID, l.Type)
}

func (d *Dispatcher) custom(source string, l models.Listing) (Template, error) {
	if strings.TrimSpace(l.Template) == "" {
		return nil, &apperr.ConfigError{ListingID: l.ID, Reason: "custom listing has no template"}
	}
	p := glob.Rebase(path.Dir(glob.Normalize(source)), l.Template)
	if !d.store.Exists(p) {
		return nil, &apperr.ConfigError{ListingID: l.ID, Path: p}
	}
	src, err := d.store.Read(p)
	if err != nil {
		return nil, &apperr.ConfigError{ListingID: l.ID, Path: p, Reason: err.Error()}
	}
	t, err := template.New(path.Base(p)).Funcs(userFuncs()).Parse(string(src))
	if err != nil {
		return nil, &apperr.ConfigError{ListingID: l.ID, Path: p, Reason: "invalid template: " + err.Error()}
	}
	return &textTemplate{name: p, tmpl: t}, nil
}

// Render resolves and executes the template of desc.
func (d *Dispatcher) Render(ctx context.Context, desc models.Descriptor, format models.OutputFormat) (*Rendered, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := d.Resolve(desc.Source, desc.Listing)
	if err != nil {
		return nil, err
	}

	r := &Rendered{Listing: desc.Listing, Template: t.Name(), Descriptions: make(map[string]string)}
	data := TemplateData{
		Listing: desc.Listing,
		Items:   make([]ItemView, 0, len(desc.Items)),
		Columns: columns(desc.Listing),
		Format:  format,
		Bundled: t.Bundled(),
	}
	for i, item := range desc.Items {
		v := ItemView{ListingItem: item, Index: i}
		if !item.Date.IsZero() {
			v.DateText = item.Date.Format(DateLayout)
		}
		if strings.TrimSpace(item.Description) != "" {
			v.DescriptionID = fmt.Sprintf("%s-desc-%d", desc.Listing.ID, i)
			r.Descriptions[v.DescriptionID] = item.Description
			r.DescriptionOrder = append(r.DescriptionOrder, v.DescriptionID)
		}
		data.Items = append(data.Items, v)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("listing %q: execute %s: %w", desc.Listing.ID, t.Name(), err)
	}
	r.Markdown = buf.String()

	r.Init = ClientInit{
		ID:        desc.Listing.ID,
		Type:      desc.Listing.Type.String(),
		Config:    clientConfig(desc.Listing),
		ItemCount: len(desc.Items),
	}
	script, err := initScript(r.Init)
	if err != nil {
		return nil, fmt.Errorf("listing %q: %w", desc.Listing.ID, err)
	}
	r.Script = script
	return r, nil
}

func columns(l models.Listing) []string {
	if len(l.Fields.Display) > 0 {
		return l.Fields.Display
	}
	return DefaultColumns
}

func clientConfig(l models.Listing) map[string]any {
	cfg := map[string]any{
		"filter":     l.Filter,
		"categories": l.Fields.Categories,
		"pageSize":   l.PageSize,
	}
	if len(l.Sort) > 0 {
		cfg["sort"] = l.Sort
	}
	return cfg
}

// initScript serialises init into an inline script. json.Marshal escapes
// '<' and '>', so the payload cannot close the script element.
func initScript(init ClientInit) (string, error) {
	payload, err := json.Marshal(init)
	if err != nil {
		return "", fmt.Errorf("marshal client init: %w", err)
	}
	idJSON, _ := json.Marshal(init.ID)
	return fmt.Sprintf("<script type=\"text/javascript\" data-folio-listing=\"%s\">\n"+
		"window.folioListings = window.folioListings || {};\n"+
		"window.folioListings[%s] = %s;\n"+
		"</script>", html.EscapeString(init.ID), idJSON, payload), nil
}

type textTemplate struct {
	name    string
	bundled bool
	tmpl    *template.Template
}

func (t *textTemplate) Name() string  { return t.name }
func (t *textTemplate) Bundled() bool { return t.bundled }

func (t *textTemplate) Execute(w io.Writer, data TemplateData) error {
	return t.tmpl.Execute(w, data)
}

// userFuncs are available to every template.
func userFuncs() template.FuncMap {
	return template.FuncMap{
		"join": strings.Join,
		"date": func(layout string, t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format(layout)
		},
		"escape": html.EscapeString,
	}
}

// bundledFuncs add the filter and category helpers of the bundled UI.
func bundledFuncs() template.FuncMap {
	fm := userFuncs()
	fm["categoryAttr"] = func(cats []string) string {
		if len(cats) == 0 {
			return ""
		}
		return fmt.Sprintf(" data-categories=\"%s\"", html.EscapeString(strings.Join(cats, ",")))
	}
	fm["categoryBadges"] = func(cats []string) string {
		var b strings.Builder
		for _, c := range cats {
			fmt.Fprintf(&b, "<span class=\"listing-category\" data-category=\"%s\">%s</span>",
				html.EscapeString(c), html.EscapeString(c))
		}
		return b.String()
	}
	fm["filterUI"] = func(l models.Listing) string {
		return fmt.Sprintf("<div class=\"listing-filter\"><input type=\"search\" class=\"search\" placeholder=\"Filter\" aria-label=\"Filter listing\" data-listing=\"%s\"></div>",
			html.EscapeString(l.ID))
	}
	fm["columnTitle"] = columnTitle
	fm["cell"] = cell
	return fm
}

func columnTitle(col string) string {
	if col == "" {
		return ""
	}
	return html.EscapeString(strings.ToUpper(col[:1]) + col[1:])
}

func cell(item ItemView, col string) string {
	switch col {
	case "title":
		return fmt.Sprintf("<a href=\"%s\">%s</a>", html.EscapeString(item.Href), html.EscapeString(item.Title))
	case "date":
		return item.DateText
	case "author":
		return html.EscapeString(item.Author)
	case "description":
		return html.EscapeString(flatten(item.Description))
	case "categories":
		return html.EscapeString(strings.Join(item.Categories, ", "))
	default:
		if v, ok := item.Fields[col]; ok && v != nil {
			return html.EscapeString(flatten(fmt.Sprint(v)))
		}
		return ""
	}
}

// flatten keeps table cells on one line so the HTML block stays intact.
func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
