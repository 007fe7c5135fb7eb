package dom

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLDocument implements Document over a goquery document.
type HTMLDocument struct {
	doc *goquery.Document
}

var _ Document = (*HTMLDocument)(nil)

// Parse reads an HTML document.
func Parse(r io.Reader) (*HTMLDocument, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	return &HTMLDocument{doc: doc}, nil
}

// ParseString reads an HTML document from a string.
func ParseString(s string) (*HTMLDocument, error) {
	return Parse(strings.NewReader(s))
}

// FindByID implements Document.
func (d *HTMLDocument) FindByID(id string) Node {
	if id == "" {
		return nil
	}
	var found *goquery.Selection
	// Attribute comparison avoids escaping ids for a CSS selector.
	d.doc.Find("[id]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if v, _ := s.Attr("id"); v == id {
			found = s
			return false
		}
		return true
	})
	if found == nil {
		return nil
	}
	return &element{sel: found}
}

// FindAllByID implements Document.
func (d *HTMLDocument) FindAllByID(id string) []Node {
	if id == "" {
		return nil
	}
	var out []Node
	d.doc.Find("[id]").Each(func(_ int, s *goquery.Selection) {
		if v, _ := s.Attr("id"); v == id {
			out = append(out, &element{sel: s})
		}
	})
	return out
}

// FindByClass implements Document.
func (d *HTMLDocument) FindByClass(class string) []Node {
	var out []Node
	d.doc.Find("[class]").Each(func(_ int, s *goquery.Selection) {
		if s.HasClass(class) {
			out = append(out, &element{sel: s})
		}
	})
	return out
}

// CreateElement implements Document.
func (d *HTMLDocument) CreateElement(tag string) Node {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	return &element{sel: goquery.NewDocumentFromNode(n).Selection}
}

// Head implements Document.
func (d *HTMLDocument) Head() Node {
	return &element{sel: d.doc.Find("head").First()}
}

// Body implements Document.
func (d *HTMLDocument) Body() Node {
	return &element{sel: d.doc.Find("body").First()}
}

// Title implements Document.
func (d *HTMLDocument) Title() string {
	return strings.TrimSpace(d.doc.Find("head title").First().Text())
}

// Render implements Document.
func (d *HTMLDocument) Render() (string, error) {
	return goquery.OuterHtml(d.doc.Selection)
}

// Selection exposes the underlying goquery document for tests and adapters.
func (d *HTMLDocument) Selection() *goquery.Selection {
	return d.doc.Selection
}

type element struct {
	sel *goquery.Selection
}

func (e *element) ID() string {
	v, _ := e.sel.Attr("id")
	return v
}

func (e *element) Tag() string {
	return strings.ToLower(goquery.NodeName(e.sel))
}

func (e *element) Attr(name string) (string, bool) {
	return e.sel.Attr(name)
}

func (e *element) SetAttr(name, value string) {
	e.sel.SetAttr(name, value)
}

func (e *element) HasClass(class string) bool {
	return e.sel.HasClass(class)
}

func (e *element) Children() []Node {
	var out []Node
	e.sel.Children().Each(func(_ int, s *goquery.Selection) {
		out = append(out, &element{sel: s})
	})
	return out
}

func (e *element) AppendChild(child Node) {
	c, ok := child.(*element)
	if !ok {
		return
	}
	e.sel.AppendSelection(c.sel)
}

func (e *element) AppendHTML(markup string) {
	e.sel.AppendHtml(markup)
}

func (e *element) SetText(text string) {
	e.sel.SetText(text)
}

func (e *element) Text() string {
	return e.sel.Text()
}

func (e *element) HTML() (string, error) {
	return goquery.OuterHtml(e.sel)
}

func (e *element) Remove() {
	e.sel.Remove()
}

func (e *element) Contains(other Node) bool {
	o, ok := other.(*element)
	if !ok || len(e.sel.Nodes) == 0 || len(o.sel.Nodes) == 0 {
		return false
	}
	root := e.sel.Nodes[0]
	for n := o.sel.Nodes[0]; n != nil; n = n.Parent {
		if n == root {
			return true
		}
	}
	return false
}
