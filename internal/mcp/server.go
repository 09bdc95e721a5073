// Package mcp exposes photo browsing as Model Context Protocol tools.
package mcp

import (
	"context"
	"io"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wesm/photogrid/internal/feed"
	"github.com/wesm/photogrid/internal/photo"
)

// Tool name constants.
const (
	ToolListPhotos   = "list_photos"
	ToolSearchPhotos = "search_photos"
	ToolGetPhoto     = "get_photo"
	ToolGridRows     = "grid_rows"
)

// Source is the photo backend the tools query.
type Source interface {
	feed.Repository
	GetPhoto(ctx context.Context, id string) (*photo.Detail, error)
}

// Options configures the tool handlers.
type Options struct {
	PerPage int // page size for grid_rows, defaults to feed.DefaultPerPage
}

func withPage() mcp.ToolOption {
	return mcp.WithNumber("page",
		mcp.Description("1-based page number (default 1)"),
	)
}

func withPerPage() mcp.ToolOption {
	return mcp.WithNumber("per_page",
		mcp.Description("Photos per page (default 30, max 100)"),
	)
}

// NewServer creates an MCP server with the photo tools registered.
func NewServer(src Source, opts Options) *server.MCPServer {
	s := server.NewMCPServer(
		"photogrid",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	h := &handlers{src: src, perPage: opts.PerPage}

	s.AddTool(listPhotosTool(), h.listPhotos)
	s.AddTool(searchPhotosTool(), h.searchPhotos)
	s.AddTool(getPhotoTool(), h.getPhoto)
	s.AddTool(gridRowsTool(), h.gridRows)
	return s
}

// Serve serves the photo tools over stdio. It blocks until stdin is closed
// or the context is cancelled.
func Serve(ctx context.Context, src Source, opts Options) error {
	return ServeIO(ctx, src, opts, os.Stdin, os.Stdout)
}

// ServeIO is Serve with explicit streams.
func ServeIO(ctx context.Context, src Source, opts Options, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(NewServer(src, opts))
	return stdio.Listen(ctx, in, out)
}

func listPhotosTool() mcp.Tool {
	return mcp.NewTool(ToolListPhotos,
		mcp.WithDescription("List one page of the Unsplash editorial feed, newest first."),
		mcp.WithReadOnlyHintAnnotation(true),
		withPage(),
		withPerPage(),
	)
}

func searchPhotosTool() mcp.Tool {
	return mcp.NewTool(ToolSearchPhotos,
		mcp.WithDescription("Search Unsplash photos by keyword. Returns one page of results."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search terms (e.g. 'red cats')"),
		),
		withPage(),
		withPerPage(),
	)
}

func getPhotoTool() mcp.Tool {
	return mcp.NewTool(ToolGetPhoto,
		mcp.WithDescription("Get photo details: description, author, creation date and full image URL."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Photo ID"),
		),
	)
}

func gridRowsTool() mcp.Tool {
	return mcp.NewTool(ToolGridRows,
		mcp.WithDescription("Lay out the first pages of the feed (or a search) as a grid and return the photo IDs row by row."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("query",
			mcp.Description("Search terms; empty lists the editorial feed"),
		),
		mcp.WithNumber("columns",
			mcp.Required(),
			mcp.Description("Number of columns"),
		),
		mcp.WithNumber("pages",
			mcp.Description("Pages to load before laying out (default 1, max 10)"),
		),
	)
}
