package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wesm/photogrid/internal/feed/feedtest"
	"github.com/wesm/photogrid/internal/photo"
)

// toolHandler is the function signature for MCP tool handler methods.
type toolHandler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// callToolDirect invokes a handler directly with the given arguments and returns the raw result.
func callToolDirect(t *testing.T, name string, fn toolHandler, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	result, err := fn(context.Background(), req)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return result
}

func resultText(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	if len(r.Content) == 0 {
		t.Fatal("empty content")
	}
	tc, ok := r.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", r.Content[0])
	}
	return tc.Text
}

// runTool invokes a handler, asserts no error, and unmarshals the JSON result into T.
func runTool[T any](t *testing.T, name string, fn toolHandler, args map[string]any) T {
	t.Helper()
	r := callToolDirect(t, name, fn, args)
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(t, r))
	}
	var out T
	if err := json.Unmarshal([]byte(resultText(t, r)), &out); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	return out
}

// runToolExpectError invokes a handler and asserts it returns an error result.
func runToolExpectError(t *testing.T, name string, fn toolHandler, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	r := callToolDirect(t, name, fn, args)
	if !r.IsError {
		t.Fatal("expected error result")
	}
	return r
}

func ids(photos []photo.Photo) string {
	out := make([]string, len(photos))
	for i, p := range photos {
		out[i] = p.ID
	}
	return strings.Join(out, ",")
}

func TestListPhotos(t *testing.T) {
	repo := &feedtest.MockRepository{ListPages: [][]photo.Photo{
		feedtest.Photos("a", 2), feedtest.Photos("b", 2),
	}}
	h := &handlers{src: repo}

	t.Run("default page", func(t *testing.T) {
		got := runTool[[]photo.Photo](t, ToolListPhotos, h.listPhotos, map[string]any{})
		if ids(got) != "a-1,a-2" {
			t.Errorf("photos = %s, want a-1,a-2", ids(got))
		}
	})

	t.Run("second page", func(t *testing.T) {
		got := runTool[[]photo.Photo](t, ToolListPhotos, h.listPhotos, map[string]any{"page": float64(2), "per_page": float64(500)})
		if ids(got) != "b-1,b-2" {
			t.Errorf("photos = %s, want b-1,b-2", ids(got))
		}
		calls := repo.Calls()
		if last := calls[len(calls)-1]; last.PerPage != maxLimit {
			t.Errorf("per_page = %d, want clamped to %d", last.PerPage, maxLimit)
		}
	})

	t.Run("past the end is an empty list", func(t *testing.T) {
		r := callToolDirect(t, ToolListPhotos, h.listPhotos, map[string]any{"page": float64(9)})
		if r.IsError || resultText(t, r) != "[]" {
			t.Errorf("result = %s, want []", resultText(t, r))
		}
	})

	t.Run("invalid page", func(t *testing.T) {
		runToolExpectError(t, ToolListPhotos, h.listPhotos, map[string]any{"page": float64(0)})
		runToolExpectError(t, ToolListPhotos, h.listPhotos, map[string]any{"page": 1.5})
	})
}

func TestListPhotosError(t *testing.T) {
	repo := &feedtest.MockRepository{
		ListPhotosFunc: func(ctx context.Context, page, perPage int) ([]photo.Photo, error) {
			return nil, errors.New("rate limited")
		},
	}
	h := &handlers{src: repo}

	r := runToolExpectError(t, ToolListPhotos, h.listPhotos, map[string]any{})
	if !strings.Contains(resultText(t, r), "rate limited") {
		t.Errorf("error text = %q", resultText(t, r))
	}
}

func TestSearchPhotos(t *testing.T) {
	repo := &feedtest.MockRepository{SearchPages: map[string][][]photo.Photo{
		"cats": {feedtest.Photos("cat", 3)},
	}}
	h := &handlers{src: repo}

	t.Run("valid query", func(t *testing.T) {
		got := runTool[[]photo.Photo](t, ToolSearchPhotos, h.searchPhotos, map[string]any{"query": " cats "})
		if ids(got) != "cat-1,cat-2,cat-3" {
			t.Errorf("photos = %s", ids(got))
		}
	})

	t.Run("missing query", func(t *testing.T) {
		runToolExpectError(t, ToolSearchPhotos, h.searchPhotos, map[string]any{})
		runToolExpectError(t, ToolSearchPhotos, h.searchPhotos, map[string]any{"query": "   "})
	})
}

func TestGetPhoto(t *testing.T) {
	repo := &feedtest.MockRepository{Details: map[string]*photo.Detail{
		"abc": {Photo: photo.Photo{ID: "abc"}, User: photo.User{Name: "Jane Doe"}},
	}}
	h := &handlers{src: repo}

	t.Run("found", func(t *testing.T) {
		d := runTool[photo.Detail](t, ToolGetPhoto, h.getPhoto, map[string]any{"id": "abc"})
		if d.ID != "abc" || d.User.Name != "Jane Doe" {
			t.Errorf("detail = %+v", d)
		}
	})

	t.Run("not found", func(t *testing.T) {
		r := runToolExpectError(t, ToolGetPhoto, h.getPhoto, map[string]any{"id": "nope"})
		if resultText(t, r) != "photo not found" {
			t.Errorf("error text = %q", resultText(t, r))
		}
	})

	t.Run("missing id", func(t *testing.T) {
		runToolExpectError(t, ToolGetPhoto, h.getPhoto, map[string]any{})
	})
}

func TestGridRows(t *testing.T) {
	repo := &feedtest.MockRepository{ListPages: [][]photo.Photo{
		feedtest.Photos("a", 4), feedtest.Photos("b", 3),
	}}
	h := &handlers{src: repo, perPage: 4}

	got := runTool[gridRowsResponse](t, ToolGridRows, h.gridRows, map[string]any{
		"columns": float64(3),
		"pages":   float64(5),
	})

	want := [][]string{{"a-1", "a-2", "a-3"}, {"a-4", "b-1", "b-2"}, {"b-3"}}
	if len(got.Rows) != len(want) {
		t.Fatalf("rows = %v, want %v", got.Rows, want)
	}
	for i := range want {
		if strings.Join(got.Rows[i], ",") != strings.Join(want[i], ",") {
			t.Errorf("row %d = %v, want %v", i, got.Rows[i], want[i])
		}
	}
	if got.Photos != 7 || got.HasMore {
		t.Errorf("photos = %d has_more = %v, want 7 and exhausted", got.Photos, got.HasMore)
	}
	// Two pages of photos plus the empty page that exhausted the feed.
	if n := len(repo.Calls()); n != 3 {
		t.Errorf("repository called %d times, want 3", n)
	}
}

func TestGridRowsStopsOnError(t *testing.T) {
	repo := &feedtest.MockRepository{
		SearchPhotosFunc: func(ctx context.Context, query string, page, perPage int) ([]photo.Photo, error) {
			if page == 1 {
				return feedtest.Photos("cat", 2), nil
			}
			return nil, errors.New("timeout")
		},
	}
	h := &handlers{src: repo}

	got := runTool[gridRowsResponse](t, ToolGridRows, h.gridRows, map[string]any{
		"query":   "cats",
		"columns": float64(2),
		"pages":   float64(4),
	})
	if got.Error != "Error fetching photos: timeout" {
		t.Errorf("error = %q", got.Error)
	}
	if got.Query != "cats" || len(got.Rows) != 1 {
		t.Errorf("response = %+v, want one row of cats", got)
	}
	if n := len(repo.Calls()); n != 2 {
		t.Errorf("repository called %d times, want 2", n)
	}
}

func TestGridRowsRequiresColumns(t *testing.T) {
	h := &handlers{src: &feedtest.MockRepository{}}
	runToolExpectError(t, ToolGridRows, h.gridRows, map[string]any{})
	runToolExpectError(t, ToolGridRows, h.gridRows, map[string]any{"columns": float64(0)})
}

func TestLimitArg(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
		want int
	}{
		{"missing", map[string]any{}, 7},
		{"normal", map[string]any{"n": float64(12)}, 12},
		{"negative", map[string]any{"n": float64(-3)}, 0},
		{"too large", map[string]any{"n": float64(5000)}, maxLimit},
		{"nan", map[string]any{"n": math.NaN()}, 0},
		{"inf", map[string]any{"n": math.Inf(1)}, maxLimit},
		{"wrong type", map[string]any{"n": "12"}, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := limitArg(tt.args, "n", 7); got != tt.want {
				t.Errorf("limitArg = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestServeListsTools(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	errc := make(chan error, 1)
	go func() {
		errc <- ServeIO(ctx, &feedtest.MockRepository{}, Options{}, inR, outW)
		outW.Close()
	}()

	requests := []string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"0"}}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
	}
	go func() {
		for _, r := range requests {
			if _, err := io.WriteString(inW, r+"\n"); err != nil {
				return
			}
		}
	}()

	var listed struct {
		ID     int `json:"id"`
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	scanner := bufio.NewScanner(outR)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		if err := json.Unmarshal(scanner.Bytes(), &listed); err != nil {
			t.Fatalf("bad response line %q: %v", scanner.Text(), err)
		}
		if listed.ID == 2 {
			break
		}
	}
	if listed.ID != 2 {
		t.Fatal("no tools/list response")
	}

	got := make(map[string]bool)
	for _, tool := range listed.Result.Tools {
		got[tool.Name] = true
	}
	for _, name := range []string{ToolListPhotos, ToolSearchPhotos, ToolGetPhoto, ToolGridRows} {
		if !got[name] {
			t.Errorf("tool %s not listed", name)
		}
	}

	cancel()
	inW.Close()
	go func() {
		for scanner.Scan() {
		}
	}()
	<-errc
}
