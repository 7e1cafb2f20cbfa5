// Package jira talks to the Jira REST API v2: issue id lookup and work-log
// creation.
package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/Tiliavir/toggl-worklog-sync/internal/model"
	"github.com/Tiliavir/toggl-worklog-sync/internal/syncerr"
)

// SearchChunkSize is the number of keys sent per search request.
const SearchChunkSize = 50

// StartedLayout is the timestamp format Jira expects for work-log starts.
const StartedLayout = "2006-01-02T15:04:05.000-0700"

// Client is an authenticated Jira client.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a client sending token as a bearer token.
func NewClient(ctx context.Context, baseURL, token string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    oauth2.NewClient(ctx, ts),
		logger:  logger,
	}
}

type searchResponse struct {
	Issues []struct {
		ID  string `json:"id"`
		Key string `json:"key"`
	} `json:"issues"`
}

// ResolveIDs maps issue keys to issue ids, SearchChunkSize keys per request.
// A failed chunk does not stop the others; the ids found so far are returned
// together with the joined chunk errors.
func (c *Client) ResolveIDs(ctx context.Context, keys []string) (map[string]string, error) {
	ids := make(map[string]string, len(keys))
	var errs []error
	for start := 0; start < len(keys); start += SearchChunkSize {
		end := min(start+SearchChunkSize, len(keys))
		chunk := keys[start:end]
		found, err := c.search(ctx, chunk)
		if err != nil {
			c.logger.Warn("jira issue lookup failed", "keys", strings.Join(chunk, ","), "error", err)
			errs = append(errs, err)
			continue
		}
		for k, id := range found {
			ids[k] = id
		}
	}
	if len(errs) > 0 {
		return ids, fmt.Errorf("%w: %w", syncerr.ErrTransport, errors.Join(errs...))
	}
	return ids, nil
}

func (c *Client) search(ctx context.Context, keys []string) (map[string]string, error) {
	u, err := url.Parse(c.baseURL + "/rest/api/2/search")
	if err != nil {
		return nil, fmt.Errorf("parse URL: %w", err)
	}
	q := u.Query()
	q.Set("jql", "key in ("+strings.Join(keys, ",")+")")
	q.Set("fields", "key")
	q.Set("maxResults", fmt.Sprint(len(keys)))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jira request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("jira returned %d: %s", resp.StatusCode, string(body))
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	out := make(map[string]string, len(sr.Issues))
	for _, is := range sr.Issues {
		out[is.Key] = is.ID
	}
	return out, nil
}

type worklogPayload struct {
	Comment          string `json:"comment"`
	Started          string `json:"started"`
	TimeSpentSeconds int64  `json:"timeSpentSeconds"`
}

type worklogResponse struct {
	ID string `json:"id"`
}

// TimeSpent rounds seconds up to a whole minute, the smallest amount Jira
// records. Zero stays zero.
func TimeSpent(seconds int64) int64 {
	if seconds <= 0 {
		return 0
	}
	return (seconds + 59) / 60 * 60
}

// CreateWorkLog adds a work log to issueKey and returns its id.
func (c *Client) CreateWorkLog(ctx context.Context, issueKey string, p model.WorkLogPayload) (string, error) {
	if issueKey == "" {
		return "", fmt.Errorf("%w: work log without issue key", syncerr.ErrInvalidInput)
	}
	payload := worklogPayload{
		Comment:          p.Comment,
		Started:          p.Started.Format(StartedLayout),
		TimeSpentSeconds: TimeSpent(p.DurationSeconds),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	endpoint := c.baseURL + "/rest/api/2/issue/" + url.PathEscape(issueKey) + "/worklog"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: jira request: %w", syncerr.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: jira returned %d: %s", syncerr.ErrTransport, resp.StatusCode, string(respBody))
	}

	var wr worklogResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", syncerr.ErrTransport, err)
	}
	c.logger.Debug("created jira work log", "issue", issueKey, "id", wr.ID, "started", p.Started.Format(time.RFC3339))
	return wr.ID, nil
}

// Create implements submit.Creator.
func (c *Client) Create(ctx context.Context, p model.WorkLogPayload) (string, error) {
	return c.CreateWorkLog(ctx, p.IssueKey, p)
}
