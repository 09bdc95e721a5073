// Package feedtest provides test doubles for feed.Repository.
package feedtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/wesm/photogrid/internal/feed"
	"github.com/wesm/photogrid/internal/photo"
)

// Call records one repository invocation.
type Call struct {
	Query   string
	Page    int
	PerPage int
}

// MockRepository implements feed.Repository for testing. Pages are served
// from ListPages/SearchPages (1-based page index, missing pages are empty)
// unless the corresponding function field is set.
type MockRepository struct {
	ListPages   [][]photo.Photo
	SearchPages map[string][][]photo.Photo

	// Optional overrides, set per test.
	ListPhotosFunc   func(ctx context.Context, page, perPage int) ([]photo.Photo, error)
	SearchPhotosFunc func(ctx context.Context, query string, page, perPage int) ([]photo.Photo, error)
	GetPhotoFunc     func(ctx context.Context, id string) (*photo.Detail, error)

	// Details backs GetPhoto when GetPhotoFunc is nil.
	Details map[string]*photo.Detail

	mu    sync.Mutex
	calls []Call
}

// Compile-time check.
var _ feed.Repository = (*MockRepository)(nil)

func (m *MockRepository) record(query string, page, perPage int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Query: query, Page: page, PerPage: perPage})
}

// Calls returns the invocations seen so far.
func (m *MockRepository) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

func (m *MockRepository) ListPhotos(ctx context.Context, page, perPage int) ([]photo.Photo, error) {
	m.record("", page, perPage)
	if m.ListPhotosFunc != nil {
		return m.ListPhotosFunc(ctx, page, perPage)
	}
	return pageOf(m.ListPages, page), nil
}

func (m *MockRepository) SearchPhotos(ctx context.Context, query string, page, perPage int) ([]photo.Photo, error) {
	m.record(query, page, perPage)
	if m.SearchPhotosFunc != nil {
		return m.SearchPhotosFunc(ctx, query, page, perPage)
	}
	return pageOf(m.SearchPages[query], page), nil
}

// GetPhoto returns Details[id], or nil when absent.
func (m *MockRepository) GetPhoto(ctx context.Context, id string) (*photo.Detail, error) {
	if m.GetPhotoFunc != nil {
		return m.GetPhotoFunc(ctx, id)
	}
	return m.Details[id], nil
}

func pageOf(pages [][]photo.Photo, page int) []photo.Photo {
	if page < 1 || page > len(pages) {
		return nil
	}
	return pages[page-1]
}

// Photos returns n photos with IDs prefix-1 .. prefix-n.
func Photos(prefix string, n int) []photo.Photo {
	out := make([]photo.Photo, n)
	for i := range out {
		id := fmt.Sprintf("%s-%d", prefix, i+1)
		out[i] = photo.Photo{
			ID:             id,
			URLs:           photo.URLs{Thumb: "https://images.example/" + id + "?w=200", Regular: "https://images.example/" + id},
			AltDescription: "photo " + id,
		}
	}
	return out
}
