// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes folio's listing cache and renderer for LLM integration via
// stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/folio/internal/listing"
	"github.com/starford/folio/internal/render"
)

const contractURI = "folio://listing-format"

// Server wraps the MCP server with folio tools.
type Server struct {
	mcp      *server.MCPServer
	renderer *render.Service
	reader   listing.Reader
	logger   *slog.Logger
}

// New creates a new MCP server with all folio tools registered.
func New(renderer *render.Service, reader listing.Reader, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{renderer: renderer, reader: reader, logger: logger}

	s.mcp = server.NewMCPServer(
		"Folio",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_listings",
		mcp.WithDescription("List every cached listing page with the project-relative globs it depends on."),
	), s.listListings)

	s.mcp.AddTool(mcp.NewTool("affected_listings",
		mcp.WithDescription("Return the listing pages that must re-render when the given files change."),
		mcp.WithArray("files", mcp.Required(), mcp.WithStringItems(),
			mcp.Description("Changed files, project-relative (e.g. posts/a.md)")),
	), s.affectedListings)

	s.mcp.AddTool(mcp.NewTool("read_listing",
		mcp.WithDescription("Resolve the listings of a page: options and matched items in presentation order."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the page (e.g. blog/index.qmd)")),
	), s.readListing)

	s.mcp.AddTool(mcp.NewTool("render",
		mcp.WithDescription("Render the project. Without files a full render runs; with files only "+
			"those pages and the listing pages depending on them are rendered."),
		mcp.WithArray("files", mcp.WithStringItems(), mcp.Description("Changed files for an incremental render")),
	), s.render)

	s.mcp.AddTool(mcp.NewTool("get_listing_contract",
		mcp.WithDescription("Returns the listing front matter format. "+
			"Call this before creating or editing listing pages."),
	), s.getListingContract)

	s.mcp.AddTool(mcp.NewTool("upload_asset",
		mcp.WithDescription("Save an image next to a page so it can be used as a listing item image. "+
			"Accepts an http(s) URL or a base64 data URI."),
		mcp.WithString("page", mcp.Required(), mcp.Description("Page the image belongs to (e.g. posts/a.md)")),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data URI of the image")),
		mcp.WithString("filename", mcp.Description("Optional file name; derived from the URL when empty")),
	), s.uploadAsset)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Listing Format",
			mcp.WithResourceDescription("Front matter that declares listings on a page."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio serves MCP on stdin/stdout until ctx is done or stdin closes.
func (s *Server) ServeStdio(ctx context.Context) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listListings(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := s.renderer.Project().Cache.Entries(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(entries)
}

func (s *Server) affectedListings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	files := req.GetStringSlice("files", nil)
	if len(files) == 0 {
		return mcp.NewToolResultError("files is required"), nil
	}
	p := s.renderer.Project()
	changed := make([]string, 0, len(files))
	for _, f := range files {
		if rel, ok := p.Rel(f); ok {
			changed = append(changed, rel)
		}
	}
	pages, err := p.Cache.AffectedListings(ctx, changed)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if pages == nil {
		pages = []string{}
	}
	return jsonResult(pages)
}

func (s *Server) readListing(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !s.renderer.Project().Store.Exists(page) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", page)), nil
	}
	descs, err := s.reader.Read(ctx, page)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(descs) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("%s declares no listings", page)), nil
	}
	return jsonResult(descs)
}

func (s *Server) render(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	files := req.GetStringSlice("files", nil)
	res, err := s.renderer.Render(ctx, render.Request{Files: files, Incremental: len(files) > 0})
	if err != nil {
		s.logger.Error("mcp: render failed", slog.String("error", err.Error()))
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := jsonResult(res)
	if err != nil || res.Err() == nil {
		return out, err
	}
	out.IsError = true
	return out, nil
}

func (s *Server) getListingContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ListingFormatContract), nil
}

func (s *Server) readContractResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     ListingFormatContract,
		},
	}, nil
}
