package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wesm/photogrid/internal/feed"
	"github.com/wesm/photogrid/internal/grid"
	"github.com/wesm/photogrid/internal/photo"
)

// maxBodyBytes bounds request bodies; every body here is a tiny JSON object.
const maxBodyBytes = 64 << 10

// ViewportRequest sets a session's viewport size.
type ViewportRequest struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// SearchRequest submits a search term.
type SearchRequest struct {
	Query string `json:"query"`
}

// StateResponse is the externally visible part of a feed state.
type StateResponse struct {
	Status     string `json:"status"`
	PhotoCount int    `json:"photo_count"`
	Loading    bool   `json:"loading"`
	Error      string `json:"error,omitempty"`
	HasMore    bool   `json:"has_more"`
	NextPage   int    `json:"next_page"`
	Query      string `json:"query"`
}

// SessionResponse describes a mounted grid.
type SessionResponse struct {
	ID       string        `json:"id"`
	Revision uint64        `json:"revision"`
	Width    int           `json:"width"`
	Height   int           `json:"height"`
	Surface  grid.Surface  `json:"surface"`
	State    StateResponse `json:"state"`
}

// RowResponse carries the photos of one row.
type RowResponse struct {
	Row    int           `json:"row"`
	Photos []photo.Photo `json:"photos"`
}

// FetchResponse reports whether a request started a page fetch.
type FetchResponse struct {
	Requested bool            `json:"requested"`
	Page      int             `json:"page,omitempty"`
	Session   SessionResponse `json:"session"`
}

// SchedulerStatusResponse represents scheduler status.
type SchedulerStatusResponse struct {
	Running bool        `json:"running"`
	Jobs    []JobStatus `json:"jobs"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, err string, message string) {
	writeJSON(w, status, ErrorResponse{Error: err, Message: message})
}

// readJSON decodes a bounded request body into v.
func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", "Request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid_body", "Request body must be valid JSON")
		return false
	}
	return true
}

func stateResponse(s feed.State) StateResponse {
	return StateResponse{
		Status:     s.Status().String(),
		PhotoCount: len(s.Photos),
		Loading:    s.Loading,
		Error:      s.Err,
		HasMore:    s.HasMore,
		NextPage:   s.NextPage,
		Query:      s.Query,
	}
}

func sessionResponse(sess *Session) SessionResponse {
	width, height := sess.Window.Size()
	return SessionResponse{
		ID:       sess.ID,
		Revision: sess.Revision(),
		Width:    width,
		Height:   height,
		Surface:  sess.Window.Surface(),
		State:    stateResponse(sess.Feed.Snapshot()),
	}
}

// session resolves the {id} URL parameter, writing a 404 when unknown.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	id := chi.URLParam(r, "id")
	sess, ok := s.sessions.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "Session not found")
		return nil, false
	}
	return sess, true
}

// startFetch runs req in the background. With ?wait=true the handler blocks
// until the result has been applied or the client goes away.
func (s *Server) startFetch(r *http.Request, sess *Session, req feed.Request) {
	done := s.sessions.Start(sess, req)
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		select {
		case <-done:
		case <-r.Context().Done():
		}
	}
}

// respondFetch writes the outcome of a Begin call.
func (s *Server) respondFetch(w http.ResponseWriter, r *http.Request, sess *Session, req feed.Request, ok bool) {
	resp := FetchResponse{Requested: ok}
	if ok {
		resp.Page = req.Page
		s.startFetch(r, sess, req)
	}
	resp.Session = sessionResponse(sess)
	status := http.StatusOK
	if ok {
		status = http.StatusAccepted
	}
	writeJSON(w, status, resp)
}

func validViewport(v ViewportRequest) bool {
	return v.Width >= 0 && v.Height >= 0
}

// handleCreateSession mounts a grid and requests its first page.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var body ViewportRequest
	if !readJSON(w, r, &body) {
		return
	}
	if !validViewport(body) {
		writeError(w, http.StatusBadRequest, "invalid_viewport", "width and height must not be negative")
		return
	}

	sess := s.sessions.Create(body.Width, body.Height)
	if req, ok := sess.Feed.Begin("", false); ok {
		s.startFetch(r, sess, req)
	}
	writeJSON(w, http.StatusCreated, sessionResponse(sess))
}

// handleGetSession returns the surface and state of a session.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(sess))
}

// handleDeleteSession unmounts a session.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Delete(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "not_found", "Session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleResize updates the viewport; rows and columns are recomputed.
func (s *Server) handleResize(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var body ViewportRequest
	if !readJSON(w, r, &body) {
		return
	}
	if !validViewport(body) {
		writeError(w, http.StatusBadRequest, "invalid_viewport", "width and height must not be negative")
		return
	}
	sess.Window.Resize(body.Width, body.Height)
	writeJSON(w, http.StatusOK, sessionResponse(sess))
}

// handleRow returns the photos of one row. Rows outside the loaded range
// are empty, not an error.
func (s *Server) handleRow(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	row, err := strconv.Atoi(chi.URLParam(r, "row"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_row", "Row must be an integer")
		return
	}
	writeJSON(w, http.StatusOK, RowResponse{Row: row, Photos: sess.Window.RowData(row)})
}

// handleVisibleRange reports the rows a renderer shows and requests the next
// page when the last row is among them.
func (s *Server) handleVisibleRange(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var body grid.Range
	if !readJSON(w, r, &body) {
		return
	}
	if body.First < 0 || body.Last < body.First {
		writeError(w, http.StatusBadRequest, "invalid_range", "Range must satisfy 0 <= first <= last")
		return
	}
	req, started := sess.Window.OnVisibleRangeChange(body)
	s.respondFetch(w, r, sess, req, started)
}

// handleSearch replaces the feed with the first page for a new query.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var body SearchRequest
	if !readJSON(w, r, &body) {
		return
	}
	req, started := sess.Feed.Begin(feed.NormalizeQuery(body.Query), true)
	s.respondFetch(w, r, sess, req, started)
}

// handleRetry re-requests the page that failed. A failed search starts over.
func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	req, started := sess.Feed.Begin(sess.Feed.Snapshot().Query, false)
	s.respondFetch(w, r, sess, req, started)
}

// handleGetPhoto returns the details of one photo.
func (s *Server) handleGetPhoto(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, err := s.photos.GetPhoto(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to get photo", "id", id, "error", err)
		writeError(w, http.StatusBadGateway, "upstream_error", "Failed to fetch photo")
		return
	}
	if d == nil {
		writeError(w, http.StatusNotFound, "not_found", "Photo not found")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleSchedulerStatus returns the state of the maintenance jobs.
func (s *Server) handleSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "scheduler_unavailable", "Scheduler is not configured")
		return
	}
	writeJSON(w, http.StatusOK, SchedulerStatusResponse{
		Running: s.scheduler.IsRunning(),
		Jobs:    s.scheduler.Status(),
	})
}
