// Package timesheet is a client for the tagged time-entry service.
package timesheet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/Tiliavir/toggl-worklog-sync/internal/model"
	"github.com/Tiliavir/toggl-worklog-sync/internal/syncerr"
)

// Credentials selects the authentication scheme. When ClientID and
// ClientSecret are set the OAuth2 client-credentials flow is used against
// TokenURL; otherwise Token is sent as a static bearer token.
type Credentials struct {
	Token        string
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

// Client is an authenticated timesheet client.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a client for baseURL.
func NewClient(ctx context.Context, baseURL string, creds Credentials, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	var hc *http.Client
	if creds.ClientID != "" && creds.ClientSecret != "" {
		cc := clientcredentials.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			TokenURL:     creds.TokenURL,
			Scopes:       creds.Scopes,
		}
		hc = cc.Client(ctx)
	} else {
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: creds.Token}))
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		logger:  logger,
	}
}

// ListTags returns every tag defined in the service.
func (c *Client) ListTags(ctx context.Context) ([]model.Tag, error) {
	var tags []model.Tag
	if err := c.do(ctx, http.MethodGet, "/api/v1/tags", nil, &tags); err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	return tags, nil
}

type entryRequest struct {
	Started         string   `json:"started"`
	DurationSeconds int64    `json:"duration_seconds"`
	Description     string   `json:"description"`
	IssueKey        string   `json:"issue_key,omitempty"`
	IssueID         *string  `json:"issue_id"`
	TagIDs          []string `json:"tag_ids"`
}

type entryResponse struct {
	ID string `json:"id"`
}

// CreateEntry records one time entry and returns its id.
func (c *Client) CreateEntry(ctx context.Context, p model.WorkLogPayload) (string, error) {
	tagIDs := p.TagIDs
	if tagIDs == nil {
		tagIDs = []string{}
	}
	req := entryRequest{
		Started:         p.Started.UTC().Format(time.RFC3339),
		DurationSeconds: p.DurationSeconds,
		Description:     p.Comment,
		IssueKey:        p.IssueKey,
		IssueID:         p.IssueID,
		TagIDs:          tagIDs,
	}
	var resp entryResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/time-entries", req, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("%w: timesheet returned no entry id", syncerr.ErrTransport)
	}
	c.logger.Debug("created timesheet entry", "id", resp.ID, "issue", p.IssueKey)
	return resp.ID, nil
}

// Create implements submit.Creator.
func (c *Client) Create(ctx context.Context, p model.WorkLogPayload) (string, error) {
	return c.CreateEntry(ctx, p)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: timesheet request: %w", syncerr.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: timesheet returned %d: %s", syncerr.ErrTransport, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", syncerr.ErrTransport, err)
	}
	return nil
}
