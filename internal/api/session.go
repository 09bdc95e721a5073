package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/wesm/photogrid/internal/feed"
	"github.com/wesm/photogrid/internal/grid"
)

// ErrStoreClosed fails fetches started after the store shut down.
var ErrStoreClosed = errors.New("server shutting down")

// Session is one mounted grid: a feed plus the window a remote renderer
// scrolls through.
type Session struct {
	ID      string
	Feed    *feed.Feed
	Window  *grid.Window
	Created time.Time

	revision    atomic.Uint64
	lastSeen    atomic.Int64 // unix nanoseconds
	unsubscribe func()
}

// Revision counts state changes, so renderers can poll cheaply.
func (s *Session) Revision() uint64 {
	return s.revision.Load()
}

// LastSeen returns the time of the last request that touched the session.
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

// SessionStoreOptions configures a SessionStore.
type SessionStoreOptions struct {
	Feed   feed.Options
	Grid   grid.Config
	Logger *slog.Logger
	Now    func() time.Time // for tests
}

// SessionStore owns the live grid sessions and runs their page fetches.
// It is safe for concurrent use.
type SessionStore struct {
	repo   feed.Repository
	opts   SessionStoreOptions
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool // guarded by mu; no fetch starts once set

	ctx    context.Context // cancelled on Close
	cancel context.CancelFunc
	wg     sync.WaitGroup // in-flight fetches
}

// NewSessionStore creates an empty store whose sessions fetch from repo.
func NewSessionStore(repo feed.Repository, opts SessionStoreOptions) *SessionStore {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Feed.Logger == nil {
		opts.Feed.Logger = opts.Logger
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &SessionStore{
		repo:     repo,
		opts:     opts,
		logger:   opts.Logger,
		sessions: make(map[string]*Session),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Create mounts a new session with the given viewport size. The first page
// is not requested; callers start it with Start.
func (st *SessionStore) Create(width, height int) *Session {
	f := feed.New(st.repo, st.opts.Feed)
	w := grid.NewWindow(f, st.opts.Grid)
	w.Resize(width, height)

	sess := &Session{
		ID:      uuid.NewString(),
		Feed:    f,
		Window:  w,
		Created: st.opts.Now(),
	}
	sess.lastSeen.Store(sess.Created.UnixNano())
	sess.unsubscribe = f.Subscribe(func(s feed.State) {
		rev := sess.revision.Add(1)
		st.logger.Debug("session state changed",
			"session", sess.ID, "revision", rev, "status", s.Status(), "photos", len(s.Photos))
	})

	st.mu.Lock()
	st.sessions[sess.ID] = sess
	n := len(st.sessions)
	st.mu.Unlock()

	st.logger.Info("session created", "session", sess.ID, "width", width, "height", height, "sessions", n)
	return sess
}

// Get returns the session with id and marks it as seen.
func (st *SessionStore) Get(id string) (*Session, bool) {
	st.mu.RLock()
	sess, ok := st.sessions[id]
	st.mu.RUnlock()
	if ok {
		sess.lastSeen.Store(st.opts.Now().UnixNano())
	}
	return sess, ok
}

// Delete unmounts the session. In-flight fetches for it complete into a
// feed nobody reads. It reports whether the session existed.
func (st *SessionStore) Delete(id string) bool {
	st.mu.Lock()
	sess, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()
	if !ok {
		return false
	}
	sess.unsubscribe()
	st.logger.Info("session deleted", "session", id)
	return true
}

// Len returns the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep deletes sessions idle for longer than ttl and returns how many were
// removed.
func (st *SessionStore) Sweep(ttl time.Duration) int {
	cutoff := st.opts.Now().Add(-ttl)

	st.mu.RLock()
	var idle []string
	for id, sess := range st.sessions {
		if sess.LastSeen().Before(cutoff) {
			idle = append(idle, id)
		}
	}
	st.mu.RUnlock()

	removed := 0
	for _, id := range idle {
		if st.Delete(id) {
			removed++
		}
	}
	if removed > 0 {
		st.logger.Info("swept idle sessions", "removed", removed, "ttl", ttl)
	}
	return removed
}

// Start runs req for sess in the background. The returned channel is closed
// once the result has been applied (or discarded as stale).
func (st *SessionStore) Start(sess *Session, req feed.Request) <-chan struct{} {
	done := make(chan struct{})
	st.mu.Lock()
	if st.closed {
		st.mu.Unlock()
		// The feed already claimed req; release it.
		sess.Feed.Complete(feed.Result{Request: req, Err: ErrStoreClosed})
		close(done)
		return done
	}
	st.wg.Add(1)
	st.mu.Unlock()

	go func() {
		defer st.wg.Done()
		defer close(done)
		res := st.fetch(sess, req)
		sess.Feed.Complete(res)
	}()
	return done
}

// fetch runs the repository call, turning a panic into a failed result.
func (st *SessionStore) fetch(sess *Session, req feed.Request) (res feed.Result) {
	defer func() {
		if r := recover(); r != nil {
			st.logger.Error("fetch panic recovered", "session", sess.ID, "panic", r)
			res = feed.Result{Request: req, Err: fmt.Errorf("internal error: %v", r)}
		}
	}()
	return sess.Feed.Fetch(st.ctx, req)
}

// Close cancels in-flight fetches and waits for them to return.
func (st *SessionStore) Close() {
	st.mu.Lock()
	st.closed = true
	st.mu.Unlock()
	st.cancel()
	st.wg.Wait()
}
