// Package toggl reads time entries from the Toggl Track API v9.
package toggl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Tiliavir/toggl-worklog-sync/internal/model"
	"github.com/Tiliavir/toggl-worklog-sync/internal/syncerr"
)

// DefaultBaseURL is the public Toggl Track API host.
const DefaultBaseURL = "https://api.track.toggl.com"

// Client is an authenticated Toggl Track API client.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	newBackOff func() backoff.BackOff
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API host.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithBackOff sets the retry policy for transient failures.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(c *Client) { c.newBackOff = newBackOff }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client authenticating with apiToken.
func NewClient(apiToken string, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiToken:   apiToken,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		newBackOff: defaultBackOff,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func defaultBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 10 * time.Second
	bo.MaxElapsedTime = time.Minute
	return bo
}

// timeEntry is the v9 wire shape of a time entry.
type timeEntry struct {
	ID          int64     `json:"id"`
	WorkspaceID int64     `json:"workspace_id"`
	Description string    `json:"description"`
	Duration    int64     `json:"duration"`
	Start       time.Time `json:"start"`
	Tags        []string  `json:"tags"`
}

// FetchEntries returns the entries that started in [from, to).
// Network errors, 429 and 5xx responses are retried; other failures are not.
func (c *Client) FetchEntries(ctx context.Context, from, to time.Time) ([]model.RawEntry, error) {
	if c.apiToken == "" {
		return nil, fmt.Errorf("%w: toggl api token is not configured", syncerr.ErrInvalidInput)
	}

	q := url.Values{}
	q.Set("start_date", from.UTC().Format(time.RFC3339))
	q.Set("end_date", to.UTC().Format(time.RFC3339))
	endpoint := c.baseURL + "/api/v9/me/time_entries?" + q.Encode()

	var body []byte
	attempt := 0
	op := func() error {
		attempt++
		b, err := c.get(ctx, endpoint)
		if err != nil {
			c.logger.Debug("toggl request failed", "attempt", attempt, "error", err)
			return err
		}
		body = b
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(c.newBackOff(), ctx)); err != nil {
		return nil, fmt.Errorf("%w: fetching toggl entries: %w", syncerr.ErrTransport, err)
	}

	var wire []timeEntry
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("%w: decoding toggl response: %v", syncerr.ErrTransport, err)
	}

	entries := make([]model.RawEntry, 0, len(wire))
	for _, te := range wire {
		entries = append(entries, model.RawEntry{
			ID:          strconv.FormatInt(te.ID, 10),
			Description: te.Description,
			Duration:    te.Duration,
			Start:       te.Start,
			Tags:        te.Tags,
		})
	}
	c.logger.Debug("fetched toggl entries", "count", len(entries), "attempts", attempt)
	return entries, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.apiToken, "api_token")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("toggl request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("toggl returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	default:
		return nil, backoff.Permanent(fmt.Errorf("toggl returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}
}
