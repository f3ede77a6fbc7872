// Package twitter implements the rate-governed client for the Twitter v2
// recent-search API.
package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/LadyR00t/rrss-mcp/query"
	"github.com/LadyR00t/rrss-mcp/ratelimit"
)

const (
	defaultBaseURL = "https://api.twitter.com"

	// Provider-accepted bounds for max_results on the recent-search endpoint.
	minResults = 10
	maxResults = 100

	// Reset hint used when the provider reports 429 without a reset header.
	defaultResetSeconds = 900
)

// Post is the normalized form of one fetched tweet. The ID is kept in the
// provider's wire form; the ingestion pipeline owns canonicalization.
type Post struct {
	ID        string
	Text      string
	Author    string
	CreatedAt time.Time
	Language  string
	Metadata  map[string]any
}

// RateLimitError signals that a fetch may not proceed yet, either because
// the local budget is exhausted or because the provider answered 429.
type RateLimitError struct {
	WaitSeconds int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry in %d seconds", e.WaitSeconds)
}

// FetchError wraps any non-rate-limit failure of a fetch cycle. A fetch
// failure is all-or-nothing: no partial results are returned.
type FetchError struct {
	Cause error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed: %v", e.Cause)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// Client provides access to the recent-search endpoint. Fetch cycles are
// serialized: concurrent callers queue on one mutex so the budget gate, the
// provider call, and the quota record happen as a unit.
type Client struct {
	mu          sync.Mutex
	httpClient  *http.Client
	baseURL     string
	bearerToken string
	limiter     *ratelimit.Limiter
	now         func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithClock overrides the time source (for testing).
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a search client gated by the given rate limiter.
func NewClient(bearerToken string, limiter *ratelimit.Limiter, opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		baseURL:     defaultBaseURL,
		bearerToken: bearerToken,
		limiter:     limiter,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchResponse struct {
	Data     []tweet  `json:"data"`
	Includes includes `json:"includes"`
}

type tweet struct {
	ID            string         `json:"id"`
	Text          string         `json:"text"`
	AuthorID      string         `json:"author_id"`
	CreatedAt     time.Time      `json:"created_at"`
	Lang          string         `json:"lang"`
	PublicMetrics map[string]int `json:"public_metrics"`
}

type includes struct {
	Users []user `json:"users"`
}

type user struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Description string `json:"description"`
}

// FetchRecent executes one fetch cycle: gate on the rate budget, build the
// query, call the provider, record the reported remaining quota, and map the
// raw records into normalized posts.
func (c *Client) FetchRecent(ctx context.Context, keywords []string, limit int) ([]Post, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ok, wait := c.limiter.CanProceed()
	if !ok {
		return nil, &RateLimitError{WaitSeconds: wait}
	}

	q, err := query.Build(keywords)
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	params := url.Values{}
	params.Set("query", q)
	params.Set("max_results", strconv.Itoa(clampResults(limit)))
	params.Set("tweet.fields", "created_at,lang,author_id,public_metrics")
	params.Set("user.fields", "username,description")
	params.Set("expansions", "author_id")

	reqURL := c.baseURL + "/2/tweets/search/recent?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &FetchError{Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.bearerToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &RateLimitError{WaitSeconds: c.resetHint(resp)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Cause: fmt.Errorf("unexpected status: %d", resp.StatusCode)}
	}

	// The provider call happened, so the consumed request is recorded even
	// if the body turns out to be unreadable.
	remaining := headerInt(resp, "x-rate-limit-remaining", 0)
	c.limiter.RecordRequest(remaining)

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, &FetchError{Cause: fmt.Errorf("decode response: %w", err)}
	}

	return c.mapPosts(sr, remaining), nil
}

func (c *Client) mapPosts(sr searchResponse, remaining int) []Post {
	users := make(map[string]user, len(sr.Includes.Users))
	for _, u := range sr.Includes.Users {
		users[u.ID] = u
	}

	collectedAt := c.now().UTC().Format(time.RFC3339)

	posts := make([]Post, 0, len(sr.Data))
	for _, tw := range sr.Data {
		metadata := map[string]any{
			"author_id":            tw.AuthorID,
			"collected_at":         collectedAt,
			"rate_limit_remaining": remaining,
			"metrics":              tw.PublicMetrics,
		}

		author := "unknown"
		if u, found := users[tw.AuthorID]; found {
			author = u.Username
			metadata["author_description"] = u.Description
		}

		posts = append(posts, Post{
			ID:        tw.ID,
			Text:      tw.Text,
			Author:    author,
			CreatedAt: tw.CreatedAt,
			Language:  tw.Lang,
			Metadata:  metadata,
		})
	}
	return posts
}

// resetHint converts the provider's reset header (epoch seconds) into a
// wait duration, falling back to the documented window length.
func (c *Client) resetHint(resp *http.Response) int {
	reset := headerInt(resp, "x-rate-limit-reset", 0)
	if reset == 0 {
		return defaultResetSeconds
	}
	wait := reset - int(c.now().Unix())
	if wait <= 0 {
		return defaultResetSeconds
	}
	return wait
}

func headerInt(resp *http.Response, name string, fallback int) int {
	v, err := strconv.Atoi(resp.Header.Get(name))
	if err != nil {
		return fallback
	}
	return v
}

func clampResults(n int) int {
	if n > maxResults {
		return maxResults
	}
	if n < minResults {
		return minResults
	}
	return n
}
