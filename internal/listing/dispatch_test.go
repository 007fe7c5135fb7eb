package listing

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
)

func testDispatcher(t *testing.T, files map[string]string) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(testProject(t, files).Store)
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	return d
}

func sampleDescriptor(typ models.ListingType) models.Descriptor {
	return models.Descriptor{
		Source: "blog/index.qmd",
		Listing: models.Listing{
			ID:       "posts",
			Type:     typ,
			Contents: []string{"*.md"},
			PageSize: 10,
			Filter:   true,
			Fields:   models.FieldConfig{Categories: true},
		},
		Items: []models.ListingItem{
			{Title: "Tom & <Jerry>", Href: "/blog/a.html", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Description: "Some *markdown*.", Categories: []string{"go"}},
			{Title: "Plain", Href: "/blog/b.html", Author: "Ada"},
		},
	}
}

func TestResolve_BundledIsDeterministic(t *testing.T) {
	d := testDispatcher(t, nil)
	for typ, want := range map[models.ListingType]string{
		models.TypeDefault: "templates/default.md.tmpl",
		models.TypeGrid:    "templates/grid.md.tmpl",
		models.TypeTable:   "templates/table.md.tmpl",
	} {
		for _, l := range []models.Listing{
			{ID: "a", Type: typ},
			{ID: "b", Type: typ, Template: "does-not-exist.tmpl", Contents: []string{"**"}},
		} {
			tmpl, err := d.Resolve("index.md", l)
			if err != nil {
				t.Fatalf("%v: %v", typ, err)
			}
			if tmpl.Name() != want || !tmpl.Bundled() {
				t.Errorf("%v resolved to %s (bundled=%v)", typ, tmpl.Name(), tmpl.Bundled())
			}
		}
	}
}

func TestResolve_CustomMissingIsConfigError(t *testing.T) {
	d := testDispatcher(t, nil)
	_, err := d.Resolve("blog/index.qmd", models.Listing{ID: "posts", Type: models.TypeCustom, Template: "missing.tmpl"})
	if !errors.Is(err, apperr.ErrConfig) {
		t.Fatalf("err = %v, want config error", err)
	}
	var ce *apperr.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("err is %T", err)
	}
	if ce.Path != "blog/missing.tmpl" || ce.ListingID != "posts" {
		t.Errorf("config error = %+v", ce)
	}
	if !strings.Contains(err.Error(), "blog/missing.tmpl") || !strings.Contains(err.Error(), "posts") {
		t.Errorf("message should name listing and path: %v", err)
	}
}

func TestResolve_CustomWithoutTemplate(t *testing.T) {
	d := testDispatcher(t, nil)
	_, err := d.Resolve("index.md", models.Listing{ID: "x", Type: models.TypeCustom})
	if !errors.Is(err, apperr.ErrConfig) {
		t.Errorf("err = %v, want config error", err)
	}
}

func TestRender_CustomTemplateGetsReducedData(t *testing.T) {
	d := testDispatcher(t, map[string]string{
		"blog/list.tmpl": "{{if .Bundled}}bundled{{else}}user{{end}}:{{range .Items}} [{{.Title}}]({{.Href}}){{end}}",
	})
	desc := sampleDescriptor(models.TypeCustom)
	desc.Listing.Template = "list.tmpl"
	r, err := d.Render(context.Background(), desc, models.OutputFormat{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "user: [Tom & <Jerry>](/blog/a.html) [Plain](/blog/b.html)"
	if r.Markdown != want {
		t.Errorf("markdown = %q, want %q", r.Markdown, want)
	}
}

func TestRender_CustomTemplateCannotUseBundledHelpers(t *testing.T) {
	d := testDispatcher(t, map[string]string{"t.tmpl": "{{filterUI .Listing}}"})
	_, err := d.Render(context.Background(), models.Descriptor{
		Source:  "index.md",
		Listing: models.Listing{ID: "x", Type: models.TypeCustom, Template: "t.tmpl"},
	}, models.OutputFormat{})
	if !errors.Is(err, apperr.ErrConfig) {
		t.Errorf("err = %v, want config error", err)
	}
}

func TestRender_BundledOutput(t *testing.T) {
	d := testDispatcher(t, nil)
	for _, typ := range []models.ListingType{models.TypeDefault, models.TypeGrid, models.TypeTable} {
		r, err := d.Render(context.Background(), sampleDescriptor(typ), models.OutputFormat{})
		if err != nil {
			t.Fatalf("%v: %v", typ, err)
		}
		if strings.Contains(r.Markdown, "\n\n") {
			t.Errorf("%v: fragment must be a single HTML block:\n%s", typ, r.Markdown)
		}
		if strings.Contains(r.Markdown, "<Jerry>") || !strings.Contains(r.Markdown, "Tom &amp; &lt;Jerry&gt;") {
			t.Errorf("%v: title not escaped:\n%s", typ, r.Markdown)
		}
		if !strings.Contains(r.Markdown, `data-listing="posts"`) {
			t.Errorf("%v: missing listing marker", typ)
		}
		if !strings.Contains(r.Markdown, "listing-filter") {
			t.Errorf("%v: bundled template should render the filter UI", typ)
		}
	}
}

func TestRender_DescriptionsAndInit(t *testing.T) {
	d := testDispatcher(t, nil)
	r, err := d.Render(context.Background(), sampleDescriptor(models.TypeDefault), models.OutputFormat{})
	if err != nil {
		t.Fatal(err)
	}
	if len(r.DescriptionOrder) != 1 || r.Descriptions["posts-desc-0"] != "Some *markdown*." {
		t.Errorf("descriptions = %v", r.Descriptions)
	}
	if !strings.Contains(r.Markdown, `id="posts-desc-0"`) {
		t.Error("description slot missing")
	}
	if r.Init.ID != "posts" || r.Init.Type != "default" || r.Init.ItemCount != 2 {
		t.Errorf("init = %+v", r.Init)
	}
	if !strings.Contains(r.Script, `window.folioListings["posts"] = {"id":"posts"`) {
		t.Errorf("script = %s", r.Script)
	}
	if !strings.Contains(r.Script, `"itemCount":2`) {
		t.Errorf("script lacks item count: %s", r.Script)
	}
}

func TestInitScript_EscapesClosingTag(t *testing.T) {
	s, err := initScript(ClientInit{ID: "x", Config: map[string]any{"evil": "</script>"}})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(s, "</script>") != 1 {
		t.Errorf("payload closes the script element: %s", s)
	}
}

func TestRender_TableColumnsFromFields(t *testing.T) {
	d := testDispatcher(t, nil)
	desc := sampleDescriptor(models.TypeTable)
	desc.Listing.Fields.Display = []string{"title", "reading-time"}
	desc.Items[1].Fields = map[string]any{"reading-time": "5 min"}
	r, err := d.Render(context.Background(), desc, models.OutputFormat{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(r.Markdown, "<th class=\"listing-reading-time\">Reading-time</th>") {
		t.Errorf("missing column header:\n%s", r.Markdown)
	}
	if !strings.Contains(r.Markdown, "<td class=\"listing-reading-time\">5 min</td>") {
		t.Errorf("missing cell:\n%s", r.Markdown)
	}
}
