package timesheet_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/toggl-worklog-sync/internal/model"
	"github.com/Tiliavir/toggl-worklog-sync/internal/syncerr"
	"github.com/Tiliavir/toggl-worklog-sync/internal/timesheet"
)

func TestListTagsWithStaticToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/tags", r.URL.Path)
		assert.Equal(t, "Bearer static", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"id":"t1","name":"dev"},{"id":"t2","name":"review"}]`))
	}))
	defer srv.Close()

	c := timesheet.NewClient(context.Background(), srv.URL, timesheet.Credentials{Token: "static"}, nil)
	tags, err := c.ListTags(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Tag{{ID: "t1", Name: "dev"}, {ID: "t2", Name: "review"}}, tags)
}

func TestCreateEntryWithClientCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"issued","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/api/v1/time-entries", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer issued", r.Header.Get("Authorization"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "2026-02-27T09:00:00Z", body["started"])
		assert.EqualValues(t, 1200, body["duration_seconds"])
		assert.Equal(t, "AB-1 pairing", body["description"])
		assert.Equal(t, "AB-1", body["issue_key"])
		assert.Nil(t, body["issue_id"])
		assert.Equal(t, []any{"t1"}, body["tag_ids"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"e-77"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := timesheet.NewClient(context.Background(), srv.URL, timesheet.Credentials{
		ClientID:     "cid",
		ClientSecret: "secret",
		TokenURL:     srv.URL + "/oauth/token",
	}, nil)

	id, err := c.Create(context.Background(), model.WorkLogPayload{
		Target:          model.TargetTimesheet,
		IssueKey:        "AB-1",
		Started:         time.Date(2026, 2, 27, 10, 0, 0, 0, time.FixedZone("CET", 3600)),
		DurationSeconds: 1200,
		Comment:         "AB-1 pairing",
		TagIDs:          []string{"t1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "e-77", id)
}

func TestCreateEntryFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid tag", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := timesheet.NewClient(context.Background(), srv.URL, timesheet.Credentials{Token: "x"}, nil)
	_, err := c.CreateEntry(context.Background(), model.WorkLogPayload{})
	require.ErrorIs(t, err, syncerr.ErrTransport)
	assert.Contains(t, err.Error(), "timesheet returned 422: invalid tag")
}

func TestCreateEntryWithoutID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := timesheet.NewClient(context.Background(), srv.URL, timesheet.Credentials{Token: "x"}, nil)
	_, err := c.CreateEntry(context.Background(), model.WorkLogPayload{})
	assert.ErrorIs(t, err, syncerr.ErrTransport)
}
