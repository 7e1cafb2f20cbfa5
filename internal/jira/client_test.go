package jira_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/toggl-worklog-sync/internal/jira"
	"github.com/Tiliavir/toggl-worklog-sync/internal/model"
	"github.com/Tiliavir/toggl-worklog-sync/internal/syncerr"
)

func TestTimeSpent(t *testing.T) {
	tests := []struct {
		in, want int64
	}{
		{0, 0},
		{-5, 0},
		{1, 60},
		{60, 60},
		{61, 120},
		{3300, 3300},
	}
	for _, tt := range tests {
		if got := jira.TimeSpent(tt.in); got != tt.want {
			t.Errorf("TimeSpent(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestCreateWorkLog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/api/2/issue/AB-12/worklog", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "AB-12: fix bug", body["comment"])
		assert.Equal(t, "2026-02-27T09:00:00.000+0000", body["started"])
		assert.EqualValues(t, 3360, body["timeSpentSeconds"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"50001","issueId":"10012"}`))
	}))
	defer srv.Close()

	c := jira.NewClient(context.Background(), srv.URL, "tok", nil)
	id, err := c.Create(context.Background(), model.WorkLogPayload{
		IssueKey:        "AB-12",
		Started:         time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC),
		DurationSeconds: 3301,
		Comment:         "AB-12: fix bug",
	})
	require.NoError(t, err)
	assert.Equal(t, "50001", id)
}

func TestCreateWorkLogError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errorMessages":["Issue does not exist"]}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := jira.NewClient(context.Background(), srv.URL, "tok", nil)
	_, err := c.CreateWorkLog(context.Background(), "AB-404", model.WorkLogPayload{DurationSeconds: 60})
	require.ErrorIs(t, err, syncerr.ErrTransport)
	assert.Contains(t, err.Error(), "jira returned 404")
}

func TestCreateWorkLogRequiresIssueKey(t *testing.T) {
	c := jira.NewClient(context.Background(), "http://127.0.0.1:1", "tok", nil)
	_, err := c.CreateWorkLog(context.Background(), "", model.WorkLogPayload{})
	assert.ErrorIs(t, err, syncerr.ErrInvalidInput)
}

func TestResolveIDsChunksAndKeepsPartialResults(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Equal(t, "/rest/api/2/search", r.URL.Path)
		jql := r.URL.Query().Get("jql")
		assert.True(t, strings.HasPrefix(jql, "key in ("))
		keys := strings.Split(strings.TrimSuffix(strings.TrimPrefix(jql, "key in ("), ")"), ",")
		assert.LessOrEqual(t, len(keys), jira.SearchChunkSize)

		if keys[0] == "P-50" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		var issues []string
		for _, k := range keys {
			issues = append(issues, fmt.Sprintf(`{"id":"id-%s","key":%q}`, k, k))
		}
		_, _ = w.Write([]byte(`{"issues":[` + strings.Join(issues, ",") + `]}`))
	}))
	defer srv.Close()

	keys := make([]string, 0, 120)
	for i := 0; i < 120; i++ {
		keys = append(keys, fmt.Sprintf("P-%d", i))
	}

	c := jira.NewClient(context.Background(), srv.URL, "tok", nil)
	ids, err := c.ResolveIDs(context.Background(), keys)
	require.ErrorIs(t, err, syncerr.ErrTransport)
	assert.Equal(t, 3, requests)
	assert.Len(t, ids, 70)
	assert.Equal(t, "id-P-0", ids["P-0"])
	assert.Equal(t, "id-P-119", ids["P-119"])
	assert.NotContains(t, ids, "P-50")
}

func TestResolveIDsEmpty(t *testing.T) {
	c := jira.NewClient(context.Background(), "http://127.0.0.1:1", "tok", nil)
	ids, err := c.ResolveIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
