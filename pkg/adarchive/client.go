// Package adarchive is a client for the cursor-paginated ad archive API.
// The client is stateless: all pagination state lives with the caller.
package adarchive

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/adintel-cli/internal/resilience"
)

const (
	defaultBaseURL  = "https://api.adarchive.io/v2"
	defaultPageSize = 50
)

// Client fetches one page of an advertiser's ad archive per call.
type Client interface {
	FetchPage(ctx context.Context, req PageRequest) (*FetchPage, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithPageSize overrides the default page-size hint.
func WithPageSize(n int) Option {
	return func(c *httpClient) {
		c.pageSize = n
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey   string
	baseURL  string
	pageSize int
	http     *http.Client
}

// NewClient creates an ad archive API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:   apiKey,
		baseURL:  defaultBaseURL,
		pageSize: defaultPageSize,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) FetchPage(ctx context.Context, req PageRequest) (*FetchPage, error) {
	if req.SourceID == "" {
		return nil, resilience.NewPermanentError(eris.New("adarchive: empty source id"), 0)
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = c.pageSize
	}

	q := url.Values{}
	q.Set("source_id", req.SourceID)
	q.Set("limit", strconv.Itoa(pageSize))
	if req.Cursor != "" {
		q.Set("cursor", req.Cursor)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ads?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "adarchive: create request")
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		// Network-level failures are handled as transient by the retry policy.
		return nil, eris.Wrap(err, "adarchive: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "adarchive: read response"), resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("adarchive: unexpected status %d: %s", resp.StatusCode, truncate(string(body), 256))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, resilience.NewPermanentError(err, resp.StatusCode)
	}

	var page FetchPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, resilience.NewPermanentError(eris.Wrap(err, "adarchive: decode response"), resp.StatusCode)
	}

	// Some deployments omit has_more and signal continuation only through
	// the cursor. Normalize so callers can rely on either.
	if page.NextCursor != "" {
		page.HasMore = true
	}

	return &page, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
