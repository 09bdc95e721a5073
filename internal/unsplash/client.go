// Package unsplash is an HTTP client for the Unsplash photo API. It
// implements feed.Repository and the single-photo lookup used by the detail
// views.
package unsplash

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/wesm/photogrid/internal/photo"
)

// DefaultBaseURL is the public Unsplash API endpoint.
const DefaultBaseURL = "https://api.unsplash.com"

// ErrRateLimited is matched by errors.Is when Unsplash refused a request
// because the hourly quota is used up.
var ErrRateLimited = errors.New("unsplash rate limit exceeded")

// APIError is a non-2xx response from Unsplash.
type APIError struct {
	StatusCode int
	Message    string
	// RateLimited is set for 429 responses and for 403 responses that
	// report an exhausted quota.
	RateLimited bool
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unsplash API error (%d)", e.StatusCode)
	}
	return fmt.Sprintf("unsplash API error (%d): %s", e.StatusCode, e.Message)
}

// Is reports whether target is ErrRateLimited and e is a rate-limit response.
func (e *APIError) Is(target error) bool {
	return target == ErrRateLimited && e.RateLimited
}

// Config holds configuration for creating a Client.
type Config struct {
	AccessKey string
	BaseURL   string        // defaults to DefaultBaseURL
	Timeout   time.Duration // per request, defaults to 30s
	// RateLimit caps outgoing requests per second. Zero or negative means
	// unlimited.
	RateLimit float64
	Logger    *slog.Logger
}

// Client talks to the Unsplash API. It is safe for concurrent use.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	details singleflight.Group
	logger  *slog.Logger
}

// New creates a Unsplash client.
func New(cfg Config) (*Client, error) {
	if cfg.AccessKey == "" {
		return nil, fmt.Errorf("unsplash access key is required (set [unsplash] access_key or UNSPLASH_ACCESS_KEY)")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("base URL scheme must be http or https, got: %q", parsed.Scheme)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	hc := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(timeout).
		SetLogger(restyLogger{logger}).
		SetHeader("Authorization", "Client-ID "+cfg.AccessKey).
		SetHeader("Accept-Version", "v1").
		SetHeader("Accept", "application/json")

	return &Client{
		http:    hc,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}, nil
}

// errorBody is the Unsplash error envelope.
type errorBody struct {
	Errors []string `json:"errors"`
}

// searchResponse is the body of GET /search/photos.
type searchResponse struct {
	Total      int           `json:"total"`
	TotalPages int           `json:"total_pages"`
	Results    []photo.Photo `json:"results"`
}

// get performs a rate-limited GET and decodes a 2xx body into result.
func (c *Client) get(ctx context.Context, path string, params map[string]string, result any) (*resty.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	var apiErr errorBody
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		ForceContentType("application/json").
		SetResult(result).
		SetError(&apiErr).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	c.logger.Debug("unsplash request",
		"path", path, "status", resp.StatusCode(), "duration", resp.Time(),
		"remaining", resp.Header().Get("X-Ratelimit-Remaining"))

	if resp.IsError() {
		e := &APIError{StatusCode: resp.StatusCode()}
		if len(apiErr.Errors) > 0 {
			e.Message = apiErr.Errors[0]
		}
		switch resp.StatusCode() {
		case http.StatusTooManyRequests:
			e.RateLimited = true
		case http.StatusForbidden:
			e.RateLimited = resp.Header().Get("X-Ratelimit-Remaining") == "0" ||
				strings.Contains(strings.ToLower(e.Message), "rate limit")
		}
		return resp, e
	}
	return resp, nil
}

func pageParams(page, perPage int) map[string]string {
	return map[string]string{
		"page":     strconv.Itoa(page),
		"per_page": strconv.Itoa(perPage),
	}
}

// ListPhotos returns one page of the editorial feed.
func (c *Client) ListPhotos(ctx context.Context, page, perPage int) ([]photo.Photo, error) {
	var photos []photo.Photo
	if _, err := c.get(ctx, "/photos", pageParams(page, perPage), &photos); err != nil {
		return nil, fmt.Errorf("list photos page %d: %w", page, err)
	}
	return photos, nil
}

// SearchPhotos returns one page of photos matching query.
func (c *Client) SearchPhotos(ctx context.Context, query string, page, perPage int) ([]photo.Photo, error) {
	params := pageParams(page, perPage)
	params["query"] = query

	var sr searchResponse
	if _, err := c.get(ctx, "/search/photos", params, &sr); err != nil {
		return nil, fmt.Errorf("search photos %q page %d: %w", query, page, err)
	}
	return sr.Results, nil
}

// GetPhoto returns the details of one photo, or nil when Unsplash does not
// know the ID. Concurrent lookups of the same ID share one request, which
// outlives any single caller's cancellation.
func (c *Client) GetPhoto(ctx context.Context, id string) (*photo.Detail, error) {
	if id == "" {
		return nil, nil
	}
	shared := context.WithoutCancel(ctx)
	ch := c.details.DoChan(id, func() (any, error) {
		var d photo.Detail
		_, err := c.get(shared, "/photos/"+url.PathEscape(id), nil, &d)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
				return (*photo.Detail)(nil), nil
			}
			return nil, fmt.Errorf("get photo %s: %w", id, err)
		}
		return &d, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*photo.Detail), nil
	}
}

// restyLogger routes resty's internal warnings into slog.
type restyLogger struct{ l *slog.Logger }

func (r restyLogger) Errorf(format string, v ...any) { r.l.Error(fmt.Sprintf(format, v...)) }
func (r restyLogger) Warnf(format string, v ...any)  { r.l.Warn(fmt.Sprintf(format, v...)) }
func (r restyLogger) Debugf(format string, v ...any) { r.l.Debug(fmt.Sprintf(format, v...)) }
