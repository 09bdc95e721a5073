package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wesm/photogrid/internal/feed"
	"github.com/wesm/photogrid/internal/layout"
	"github.com/wesm/photogrid/internal/photo"
)

const (
	maxLimit       = 100
	defaultPerPage = 30
	maxGridPages   = 10
)

type handlers struct {
	src     Source
	perPage int
}

// pageArg extracts an optional 1-based page number.
func pageArg(args map[string]any) (int, error) {
	v, ok := args["page"].(float64)
	if !ok {
		return 1, nil
	}
	if v != math.Trunc(v) || v < 1 || v > math.MaxInt32 {
		return 0, fmt.Errorf("page must be a positive integer")
	}
	return int(v), nil
}

func (h *handlers) listPhotos(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	page, err := pageArg(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	perPage := max(limitArg(args, "per_page", defaultPerPage), 1)

	photos, err := h.src.ListPhotos(ctx, page, perPage)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}
	return jsonResult(nonNil(photos))
}

func (h *handlers) searchPhotos(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	queryStr, _ := args["query"].(string)
	queryStr = feed.NormalizeQuery(queryStr)
	if queryStr == "" {
		return mcp.NewToolResultError("query parameter is required"), nil
	}
	page, err := pageArg(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	perPage := max(limitArg(args, "per_page", defaultPerPage), 1)

	photos, err := h.src.SearchPhotos(ctx, queryStr, page, perPage)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	return jsonResult(nonNil(photos))
}

func (h *handlers) getPhoto(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	id, _ := args["id"].(string)
	if id == "" {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	d, err := h.src.GetPhoto(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get photo failed: %v", err)), nil
	}
	if d == nil {
		return mcp.NewToolResultError("photo not found"), nil
	}
	return jsonResult(d)
}

// gridRowsResponse is the result of grid_rows.
type gridRowsResponse struct {
	Query   string     `json:"query"`
	Columns int        `json:"columns"`
	Photos  int        `json:"photos"`
	HasMore bool       `json:"has_more"`
	Error   string     `json:"error,omitempty"`
	Rows    [][]string `json:"rows"`
}

// gridRows drives a feed through the requested number of pages, exactly as
// a scrolling grid would, and returns the resulting layout.
func (h *handlers) gridRows(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	cols := limitArg(args, "columns", 0)
	if cols < 1 {
		return mcp.NewToolResultError("columns must be a positive integer"), nil
	}
	pages := min(max(limitArg(args, "pages", 1), 1), maxGridPages)
	queryStr, _ := args["query"].(string)
	queryStr = feed.NormalizeQuery(queryStr)

	f := feed.New(h.src, feed.Options{PerPage: h.perPage})
	for i := 0; i < pages; i++ {
		if !f.Load(ctx, queryStr, i == 0) {
			break
		}
		if s := f.Snapshot(); s.HasError() || s.IsExhausted() {
			break
		}
	}

	s := f.Snapshot()
	resp := gridRowsResponse{
		Query:   s.Query,
		Columns: cols,
		Photos:  len(s.Photos),
		HasMore: s.HasMore,
		Error:   s.Err,
		Rows:    make([][]string, 0, layout.RowCount(len(s.Photos), cols)),
	}
	for row := range layout.RowCount(len(s.Photos), cols) {
		cells := layout.RowSlice(s.Photos, row, cols)
		ids := make([]string, len(cells))
		for i, p := range cells {
			ids[i] = p.ID
		}
		resp.Rows = append(resp.Rows, ids)
	}
	return jsonResult(resp)
}

func nonNil(photos []photo.Photo) []photo.Photo {
	if photos == nil {
		return []photo.Photo{}
	}
	return photos
}

// limitArg extracts a non-negative integer limit from a map, with a default.
// JSON numbers arrive as float64. Clamps to maxLimit.
func limitArg(args map[string]any, key string, def int) int {
	v, ok := args[key].(float64)
	if !ok {
		return def
	}
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if math.IsInf(v, 1) || v > float64(maxLimit) {
		return maxLimit
	}
	return int(v)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal error: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
