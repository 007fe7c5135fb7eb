package listing

import (
	"sort"
	"strconv"

	"github.com/starford/folio/internal/dom"
	"github.com/starford/folio/internal/models"
)

// CategoryCount is one aggregated category label.
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// AggregateCategories counts categories across the items of every
// descriptor with category display enabled, sorted by name.
func AggregateCategories(descs []models.Descriptor) []CategoryCount {
	counts := make(map[string]int)
	for _, d := range descs {
		if !d.Listing.Fields.Categories {
			continue
		}
		for _, item := range d.Items {
			for _, c := range item.Categories {
				counts[c]++
			}
		}
	}
	out := make([]CategoryCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, CategoryCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AddCategorySidebar appends a category heading and list to the sidebar
// container. It reports whether anything was added; a document without the
// container or a page without categories is left untouched.
func AddCategorySidebar(doc dom.Document, descs []models.Descriptor) bool {
	cats := AggregateCategories(descs)
	if len(cats) == 0 {
		return false
	}
	sidebar := doc.FindByID(dom.SidebarID)
	if sidebar == nil {
		return false
	}

	heading := doc.CreateElement("h5")
	heading.SetAttr("class", "folio-listing-category-title")
	heading.SetText("Categories")

	list := doc.CreateElement("div")
	list.SetAttr("class", "folio-listing-categories")
	for _, c := range cats {
		entry := doc.CreateElement("div")
		entry.SetAttr("class", "category")
		entry.SetAttr("data-category", c.Name)
		entry.SetText(c.Name + " ")

		count := doc.CreateElement("span")
		count.SetAttr("class", "category-count")
		count.SetText("(" + strconv.Itoa(c.Count) + ")")
		entry.AppendChild(count)

		list.AppendChild(entry)
	}

	sidebar.AppendChild(heading)
	sidebar.AppendChild(list)
	return true
}
