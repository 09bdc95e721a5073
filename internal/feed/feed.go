// Package feed implements the paginated photo feed behind the grid: an
// append-only photo list, a page cursor, and the loading/error/exhausted
// state machine that decides when a page may be fetched.
//
// A load is split into Begin (claim the next page and mark the feed as
// loading), Fetch (call the repository, touching no state) and Complete
// (apply the result). Owners with an event loop run Fetch elsewhere and feed
// the Result back; everyone else can call Load. Every reset bumps a generation
// counter that is stamped on the Request, so a page that resolves after a
// newer search has started is discarded instead of being appended.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/wesm/photogrid/internal/photo"
)

// DefaultPerPage is the page size requested from the repository.
const DefaultPerPage = 100

// errorPrefix is prepended to the cause of a failed fetch in State.Err.
const errorPrefix = "Error fetching photos: "

// Repository fetches pages of photos. An empty result means there are no
// more pages.
type Repository interface {
	ListPhotos(ctx context.Context, page, perPage int) ([]photo.Photo, error)
	SearchPhotos(ctx context.Context, query string, page, perPage int) ([]photo.Photo, error)
}

// Options configures a Feed.
type Options struct {
	PerPage      int           // defaults to DefaultPerPage
	FetchTimeout time.Duration // 0 means a fetch may hang forever
	Logger       *slog.Logger
}

// Request describes one page fetch issued by Begin.
type Request struct {
	Query      string
	Page       int
	PerPage    int
	Reset      bool
	Generation uint64
}

// Result is the outcome of fetching a Request.
type Result struct {
	Request
	Photos []photo.Photo
	Err    error
}

// Feed owns the grid state for one mount. It is safe for concurrent use;
// the lock is never held while the repository is called.
type Feed struct {
	repo    Repository
	perPage int
	timeout time.Duration
	logger  *slog.Logger

	mu         sync.Mutex
	state      State
	generation uint64
	// needsReset is set when a reset fetch failed: the photos still belong
	// to the previous query, so the next page request must start over.
	needsReset bool

	// Each mutation takes a ticket under mu; snapshots are delivered in
	// ticket order.
	ticket     uint64
	notifyMu   sync.Mutex
	notifyCond *sync.Cond
	delivered  uint64

	listenerMu   sync.Mutex
	listeners    map[int]func(State)
	nextListener int
}

// New creates a feed that fetches pages from repo.
func New(repo Repository, opts Options) *Feed {
	if opts.PerPage <= 0 {
		opts.PerPage = DefaultPerPage
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	f := &Feed{
		repo:      repo,
		perPage:   opts.PerPage,
		timeout:   opts.FetchTimeout,
		logger:    opts.Logger,
		state:     State{NextPage: 1, HasMore: true},
		listeners: make(map[int]func(State)),
	}
	f.notifyCond = sync.NewCond(&f.notifyMu)
	return f
}

// Snapshot returns a copy of the current state. The returned Photos slice
// must not be modified.
func (f *Feed) Snapshot() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *Feed) snapshotLocked() State {
	s := f.state
	n := len(s.Photos)
	s.Photos = s.Photos[:n:n]
	return s
}

// Generation returns the number of resets issued so far.
func (f *Feed) Generation() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.generation
}

// Begin claims the next page for query and marks the feed as loading.
//
// A non-reset request is refused while the feed is exhausted or already
// loading. A non-reset request for a query other than the active one, or
// one that follows a failed reset, is turned into a reset. A reset is never
// refused.
func (f *Feed) Begin(query string, reset bool) (Request, bool) {
	f.mu.Lock()
	if !reset && (query != f.state.Query || f.needsReset) {
		reset = true
	}
	if !reset && (!f.state.HasMore || f.state.Loading) {
		f.mu.Unlock()
		return Request{}, false
	}

	if reset {
		f.generation++
		f.state.HasMore = true
		f.state.NextPage = 1
		f.state.Query = query
	}
	f.state.Loading = true
	f.state.Err = ""

	req := Request{
		Query:      f.state.Query,
		Page:       f.state.NextPage,
		PerPage:    f.perPage,
		Reset:      reset,
		Generation: f.generation,
	}
	f.unlockAndNotify(f.snapshotLocked())

	f.logger.Debug("feed: fetch started",
		"query", req.Query, "page", req.Page, "reset", req.Reset, "generation", req.Generation)
	return req, true
}

// Fetch runs req against the repository. It does not touch the feed state.
func (f *Feed) Fetch(ctx context.Context, req Request) Result {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	var photos []photo.Photo
	var err error
	if req.Query == "" {
		photos, err = f.repo.ListPhotos(ctx, req.Page, req.PerPage)
	} else {
		photos, err = f.repo.SearchPhotos(ctx, req.Query, req.Page, req.PerPage)
	}
	return Result{Request: req, Photos: photos, Err: err}
}

// Complete applies a fetch result. It returns false when the result belongs
// to a generation that a later reset has superseded; such results change
// nothing.
func (f *Feed) Complete(res Result) bool {
	f.mu.Lock()
	if res.Generation != f.generation {
		current := f.generation
		f.mu.Unlock()
		f.logger.Debug("feed: discarding stale page",
			"query", res.Query, "page", res.Page, "generation", res.Generation, "current", current)
		return false
	}

	f.state.Loading = false
	switch {
	case res.Err != nil:
		f.state.Err = errorPrefix + failureCause(res.Err)
		if res.Reset {
			f.needsReset = true
		}
	case len(res.Photos) == 0:
		f.state.HasMore = false
		if res.Reset {
			f.state.Photos = nil
			f.needsReset = false
		}
	default:
		if res.Reset {
			f.state.Photos = append([]photo.Photo(nil), res.Photos...)
			f.needsReset = false
		} else {
			f.state.Photos = append(f.state.Photos, res.Photos...)
		}
		f.state.HasMore = true
		f.state.NextPage = res.Page + 1
	}
	snap := f.snapshotLocked()
	f.unlockAndNotify(snap)

	if res.Err != nil {
		f.logger.Warn("feed: fetch failed", "query", res.Query, "page", res.Page, "error", res.Err)
	} else {
		f.logger.Debug("feed: page applied",
			"query", res.Query, "page", res.Page, "photos", len(res.Photos), "total", len(snap.Photos))
	}
	return true
}

// Run fetches req and applies the result.
func (f *Feed) Run(ctx context.Context, req Request) bool {
	return f.Complete(f.Fetch(ctx, req))
}

// Load begins, fetches and completes a page synchronously. It reports
// whether a result was applied.
func (f *Feed) Load(ctx context.Context, query string, reset bool) bool {
	req, ok := f.Begin(query, reset)
	if !ok {
		return false
	}
	return f.Run(ctx, req)
}

// Subscribe registers fn to be called with a snapshot after every state
// change. Calls are serialized and follow the order of the changes, so fn
// may read the feed but must not call Begin or Complete. The returned
// function removes the subscription.
func (f *Feed) Subscribe(fn func(State)) (unsubscribe func()) {
	f.listenerMu.Lock()
	id := f.nextListener
	f.nextListener++
	f.listeners[id] = fn
	f.listenerMu.Unlock()

	return func() {
		f.listenerMu.Lock()
		delete(f.listeners, id)
		f.listenerMu.Unlock()
	}
}

// unlockAndNotify releases mu and delivers s to the listeners once every
// earlier snapshot has been delivered. The caller must hold mu.
func (f *Feed) unlockAndNotify(s State) {
	f.ticket++
	ticket := f.ticket
	f.mu.Unlock()

	f.notifyMu.Lock()
	for f.delivered+1 != ticket {
		f.notifyCond.Wait()
	}
	f.notifyMu.Unlock()

	f.notify(s)

	f.notifyMu.Lock()
	f.delivered = ticket
	f.notifyCond.Broadcast()
	f.notifyMu.Unlock()
}

func (f *Feed) notify(s State) {
	f.listenerMu.Lock()
	fns := make([]func(State), 0, len(f.listeners))
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.listenerMu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

// failureCause renders a repository error for the error banner.
func failureCause(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return err.Error()
}
