// Package pipeline carries pre-rendered fragments through markdown conversion.
//
// Each handler contributes a markdown block wrapped in an inert envelope
// element whose id is the handler's placeholder key. After conversion the
// pipeline finds every envelope in the document, hands it to its handler,
// and removes it. Envelopes the converter dropped are skipped.
package pipeline

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/starford/folio/internal/dom"
)

// EnvelopeClass marks the element wrapping a handler's converted markdown.
const EnvelopeClass = "pipeline-envelope"

var keyRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// Handler is one placeholder-producing unit bound to a single render.
type Handler interface {
	// Key is the placeholder id, unique within the document.
	Key() string
	// Markdown is converted together with the document.
	Markdown() string
	// Transform receives the envelope holding the converted markdown.
	// The envelope is removed after Transform returns.
	Transform(doc dom.Document, envelope dom.Node) error
}

// TransformFunc adapts a function to the Transform step of a Handler.
type TransformFunc func(doc dom.Document, envelope dom.Node) error

type funcHandler struct {
	key      string
	markdown string
	fn       TransformFunc
}

// NewHandler builds a Handler from its parts. A nil fn discards the envelope.
func NewHandler(key, markdown string, fn TransformFunc) Handler {
	return &funcHandler{key: key, markdown: markdown, fn: fn}
}

func (h *funcHandler) Key() string      { return h.key }
func (h *funcHandler) Markdown() string { return h.markdown }

func (h *funcHandler) Transform(doc dom.Document, envelope dom.Node) error {
	if h.fn == nil {
		return nil
	}
	return h.fn(doc, envelope)
}

// Pipeline groups the handlers of one page.
type Pipeline struct {
	name     string
	handlers []Handler
	logger   *slog.Logger
}

// New creates a pipeline. Keys must be valid element ids and unique.
func New(name string, handlers ...Handler) (*Pipeline, error) {
	seen := make(map[string]struct{}, len(handlers))
	for _, h := range handlers {
		key := h.Key()
		if !keyRe.MatchString(key) {
			return nil, fmt.Errorf("pipeline %s: invalid placeholder key %q", name, key)
		}
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("pipeline %s: duplicate placeholder key %q", name, key)
		}
		seen[key] = struct{}{}
	}
	return &Pipeline{name: name, handlers: handlers, logger: slog.Default()}, nil
}

// WithLogger sets the logger used for skipped handlers.
func (p *Pipeline) WithLogger(logger *slog.Logger) *Pipeline {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// Name returns the pipeline name.
func (p *Pipeline) Name() string { return p.name }

// Len returns the number of handlers.
func (p *Pipeline) Len() int { return len(p.handlers) }

// PreBodyFragment returns the markdown to append to the document before
// conversion: one envelope per handler, in registration order.
func (p *Pipeline) PreBodyFragment() string {
	var b strings.Builder
	for _, h := range p.handlers {
		fmt.Fprintf(&b, "\n<div id=\"%s\" class=\"%s\" data-pipeline=\"%s\" hidden>\n\n", h.Key(), EnvelopeClass, attrEscape(p.name))
		md := strings.TrimRight(h.Markdown(), "\n")
		if md != "" {
			b.WriteString(md)
			b.WriteString("\n\n")
		}
		b.WriteString("</div>\n")
	}
	return b.String()
}

// Apply runs every handler against its envelope in registration order and
// returns how many envelopes were found. Missing envelopes and failing
// transforms are logged and skipped.
func (p *Pipeline) Apply(doc dom.Document) int {
	applied := 0
	for _, h := range p.handlers {
		node := doc.FindByID(h.Key())
		if node == nil || !node.HasClass(EnvelopeClass) {
			p.logger.Debug("pipeline: placeholder not found",
				slog.String("pipeline", p.name),
				slog.String("key", h.Key()))
			continue
		}
		if err := h.Transform(doc, node); err != nil {
			p.logger.Warn("pipeline: transform failed",
				slog.String("pipeline", p.name),
				slog.String("key", h.Key()),
				slog.String("error", err.Error()))
		}
		node.Remove()
		applied++
	}
	return applied
}

// MoveChildren moves every child of envelope to the end of target.
func MoveChildren(envelope, target dom.Node) {
	for _, c := range envelope.Children() {
		target.AppendChild(c)
	}
}

func attrEscape(s string) string {
	r := strings.NewReplacer(`&`, "&amp;", `"`, "&quot;", `<`, "&lt;", `>`, "&gt;")
	return r.Replace(s)
}
