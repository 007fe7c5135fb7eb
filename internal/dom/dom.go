// Package dom is the minimal document-tree capability the listing core
// relies on after markdown conversion. The core only talks to these
// interfaces; HTMLDocument backs them with goquery.
package dom

// Well-known element ids of the page shell produced by the engine.
const (
	ContentID = "content"
	SidebarID = "margin-sidebar"
)

// Node is one element of a document.
type Node interface {
	// ID returns the element id, or "".
	ID() string
	// Tag returns the lower-case element name.
	Tag() string
	Attr(name string) (string, bool)
	SetAttr(name, value string)
	HasClass(class string) bool
	// Children returns the element children in document order.
	Children() []Node
	// AppendChild moves child to the end of this node's children.
	AppendChild(child Node)
	// AppendHTML parses markup and appends the resulting nodes.
	AppendHTML(markup string)
	SetText(text string)
	Text() string
	HTML() (string, error)
	// Remove detaches the node from its document.
	Remove()
	// Contains reports whether other is this node or one of its descendants.
	Contains(other Node) bool
}

// Document is a mutable tree produced by the conversion engine.
type Document interface {
	// FindByID returns the element with the given id, or nil.
	FindByID(id string) Node
	// FindAllByID returns every element with the given id, in document
	// order. Author markup may repeat ids.
	FindAllByID(id string) []Node
	// FindByClass returns every element carrying class, in document order.
	FindByClass(class string) []Node
	// CreateElement returns a detached element.
	CreateElement(tag string) Node
	Head() Node
	Body() Node
	// Title returns the text of the document title element.
	Title() string
	// Render serialises the whole document.
	Render() (string, error)
}
