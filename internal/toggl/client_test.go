package toggl_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/toggl-worklog-sync/internal/syncerr"
	"github.com/Tiliavir/toggl-worklog-sync/internal/toggl"
)

func fastBackOff() backoff.BackOff {
	return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 3)
}

func TestFetchEntries(t *testing.T) {
	from := time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v9/me/time_entries", r.URL.Path)
		assert.Equal(t, "2026-02-23T00:00:00Z", r.URL.Query().Get("start_date"))
		assert.Equal(t, "2026-03-02T00:00:00Z", r.URL.Query().Get("end_date"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "secret", user)
		assert.Equal(t, "api_token", pass)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": 4001, "workspace_id": 9, "description": "AB-12: fix bug", "duration": 600, "start": "2026-02-27T09:00:00+00:00", "tags": ["dev"]},
			{"id": 4002, "workspace_id": 9, "description": "running", "duration": -1772182800, "start": "2026-02-27T10:00:00Z", "tags": null}
		]`))
	}))
	defer srv.Close()

	c := toggl.NewClient("secret", toggl.WithBaseURL(srv.URL+"/"), toggl.WithBackOff(fastBackOff))
	entries, err := c.FetchEntries(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "4001", entries[0].ID)
	assert.Equal(t, "AB-12: fix bug", entries[0].Description)
	assert.Equal(t, int64(600), entries[0].Duration)
	assert.True(t, entries[0].Start.Equal(time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)))
	assert.Equal(t, []string{"dev"}, entries[0].Tags)

	assert.Equal(t, "4002", entries[1].ID)
	assert.Negative(t, entries[1].Duration)
	assert.Empty(t, entries[1].Tags)
}

func TestFetchEntriesRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusBadGateway)
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	defer srv.Close()

	c := toggl.NewClient("secret", toggl.WithBaseURL(srv.URL), toggl.WithBackOff(fastBackOff))
	entries, err := c.FetchEntries(context.Background(), time.Now(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchEntriesDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad token", http.StatusForbidden)
	}))
	defer srv.Close()

	c := toggl.NewClient("secret", toggl.WithBaseURL(srv.URL), toggl.WithBackOff(fastBackOff))
	_, err := c.FetchEntries(context.Background(), time.Now(), time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, syncerr.ErrTransport)
	assert.Contains(t, err.Error(), "toggl returned 403")
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchEntriesGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := toggl.NewClient("secret", toggl.WithBaseURL(srv.URL), toggl.WithBackOff(fastBackOff))
	_, err := c.FetchEntries(context.Background(), time.Now(), time.Now())
	require.ErrorIs(t, err, syncerr.ErrTransport)
	assert.Equal(t, int32(4), calls.Load())
}

func TestFetchEntriesRequiresToken(t *testing.T) {
	_, err := toggl.NewClient("").FetchEntries(context.Background(), time.Now(), time.Now())
	assert.ErrorIs(t, err, syncerr.ErrInvalidInput)
}
