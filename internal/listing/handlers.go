package listing

import (
	"fmt"
	"html"
	"strings"

	"github.com/starford/folio/internal/dom"
	"github.com/starford/folio/internal/pipeline"
)

// TargetAttr names the element a description block moves into.
const TargetAttr = "data-target"

// Handlers returns the pipeline handlers that place r into the document:
// one for the listing markup and, when items carry descriptions, one that
// fills each description slot with its converted markdown.
func Handlers(keys *pipeline.Keys, r *Rendered) []pipeline.Handler {
	hs := []pipeline.Handler{
		pipeline.NewHandler(keys.Next("listing-"+r.Listing.ID), r.Markdown, placeListing(r.Listing.ID)),
	}
	if len(r.DescriptionOrder) > 0 {
		hs = append(hs, pipeline.NewHandler(keys.Next("descriptions-"+r.Listing.ID), descriptionsMarkdown(r), fillDescriptions))
	}
	return hs
}

// ContainerAttr marks an arbitrary element as a listing container.
const ContainerAttr = "data-listing-container"

// placeListing moves the listing markup into the author's container for
// the listing id, or to the end of the main content when the page has none.
func placeListing(id string) pipeline.TransformFunc {
	return func(doc dom.Document, envelope dom.Node) error {
		target := listingContainer(doc, id)
		if target == nil {
			target = doc.FindByID(dom.ContentID)
		}
		if target == nil {
			return fmt.Errorf("listing %q: no container", id)
		}
		pipeline.MoveChildren(envelope, target)
		return nil
	}
}

// listingContainer returns the first element with the listing id that is a
// div or section, or carries ContainerAttr. Elements inside any pipeline
// envelope never qualify, so template output cannot become its own target
// and auto-generated heading ids are ignored.
func listingContainer(doc dom.Document, id string) dom.Node {
	envelopes := doc.FindByClass(pipeline.EnvelopeClass)
outer:
	for _, n := range doc.FindAllByID(id) {
		for _, env := range envelopes {
			if env.Contains(n) {
				continue outer
			}
		}
		if _, ok := n.Attr(ContainerAttr); ok {
			return n
		}
		switch n.Tag() {
		case "div", "section":
			return n
		}
	}
	return nil
}

func descriptionsMarkdown(r *Rendered) string {
	var b strings.Builder
	for _, id := range r.DescriptionOrder {
		fmt.Fprintf(&b, "<div %s=\"%s\">\n\n%s\n\n</div>\n\n", TargetAttr, html.EscapeString(id), strings.TrimSpace(r.Descriptions[id]))
	}
	return b.String()
}

// fillDescriptions moves each converted description into its slot. Slots a
// custom template did not emit are skipped.
func fillDescriptions(doc dom.Document, envelope dom.Node) error {
	for _, block := range envelope.Children() {
		id, ok := block.Attr(TargetAttr)
		if !ok {
			continue
		}
		target := doc.FindByID(id)
		if target == nil {
			continue
		}
		pipeline.MoveChildren(block, target)
	}
	return nil
}
