package steam

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

const (
	defaultBaseURL = "https://api.steampowered.com"

	historyPath = "/IDOTA2Match_570/GetMatchHistoryBySequenceNum/V001/"
	detailsPath = "/IDOTA2Match_570/GetMatchDetails/V001/"

	// Steam's published budget is 100k calls/day; staying under one call
	// per second keeps a long-running harvester well inside it.
	requestsPerMinute = 55
)

// ErrTransport marks the remote API as unreachable or its response as
// unparseable. Callers treat it as "no data this cycle", not as fatal.
var ErrTransport = errors.New("steam api transport error")

// Client is a rate-limited Steam Web API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client

	mu     sync.Mutex
	window []time.Time // requests in the last minute
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API host (useful for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithAPIKey sets the key directly instead of reading the environment.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithTimeout sets a custom timeout for API requests.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new Steam API client. The key is taken from the
// STEAM_API_KEY environment variable unless WithAPIKey is given.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		apiKey:  os.Getenv("STEAM_API_KEY"),
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		window: make([]time.Time, 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.apiKey == "" {
		return nil, fmt.Errorf("STEAM_API_KEY environment variable not set")
	}
	return c, nil
}

// waitForRateLimit blocks until another request fits in the window.
func (c *Client) waitForRateLimit() {
	for {
		c.mu.Lock()

		now := time.Now()
		cutoff := now.Add(-time.Minute)
		kept := c.window[:0]
		for _, t := range c.window {
			if t.After(cutoff) {
				kept = append(kept, t)
			}
		}
		c.window = kept

		if len(c.window) < requestsPerMinute {
			c.window = append(c.window, now)
			c.mu.Unlock()
			return
		}

		waitTime := c.window[0].Add(time.Minute).Sub(now) + 50*time.Millisecond
		c.mu.Unlock()
		time.Sleep(waitTime)
	}
}

// doRequest makes a rate-limited request and decodes the body into result.
func (c *Client) doRequest(ctx context.Context, url string, result interface{}) error {
	c.waitForRateLimit()

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := resp.Header.Get("Retry-After")
		waitTime := 10 // seconds
		if retryAfter != "" {
			fmt.Sscanf(retryAfter, "%d", &waitTime)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(waitTime) * time.Second):
		}
		return c.doRequest(ctx, url, result)
	}

	if resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: 403 Forbidden - check that your API key is valid", ErrTransport)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: API returned status %d", ErrTransport, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: unparseable response: %v", ErrTransport, err)
	}
	return nil
}

// GetMatchHistoryBySequenceNum fetches one page of matches starting at the
// given sequence number, ordered by increasing sequence number. The page
// size is chosen by the API.
func (c *Client) GetMatchHistoryBySequenceNum(ctx context.Context, startSeq int64) ([]MatchPayload, error) {
	url := fmt.Sprintf("%s%s?key=%s&start_at_match_seq_num=%d",
		c.baseURL, historyPath, c.apiKey, startSeq)

	var resp historyResponse
	if err := c.doRequest(ctx, url, &resp); err != nil {
		return nil, err
	}
	if resp.Result.Status != statusOK {
		return nil, fmt.Errorf("%w: result status %d %s", ErrTransport, resp.Result.Status, resp.Result.StatusText)
	}
	return resp.Result.Matches, nil
}

// GetMatchDetails fetches a single match by its match ID.
func (c *Client) GetMatchDetails(ctx context.Context, matchID int64) (*MatchPayload, error) {
	url := fmt.Sprintf("%s%s?key=%s&match_id=%d",
		c.baseURL, detailsPath, c.apiKey, matchID)

	var resp detailsResponse
	if err := c.doRequest(ctx, url, &resp); err != nil {
		return nil, err
	}
	if resp.Result.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrTransport, resp.Result.Error)
	}
	if resp.Result.MatchID == 0 {
		return nil, fmt.Errorf("%w: empty match payload", ErrTransport)
	}
	return &resp.Result.MatchPayload, nil
}
