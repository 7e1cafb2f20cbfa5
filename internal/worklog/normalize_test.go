package worklog_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/toggl-worklog-sync/internal/model"
	"github.com/Tiliavir/toggl-worklog-sync/internal/worklog"
)

func TestNormalizeExtractsIssueKey(t *testing.T) {
	e := worklog.Normalize(model.RawEntry{ID: "1", Description: "AB-12: fix bug", Duration: 600})
	require.NotNil(t, e.IssueKey)
	assert.Equal(t, "AB-12", *e.IssueKey)
	assert.True(t, e.HasJiraIssue)
	assert.Equal(t, "AB-12", e.Issue())
}

func TestNormalizeWithoutIssueKey(t *testing.T) {
	e := worklog.Normalize(model.RawEntry{ID: "2", Description: "misc work", Duration: 600})
	assert.Nil(t, e.IssueKey)
	assert.False(t, e.HasJiraIssue)
	assert.Equal(t, "", e.Issue())
}

func TestExtractIssueKey(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"AB-12: fix bug", "AB-12"},
		{"review for PROJ2-7 and AB-1", "PROJ2-7"},
		{"[CORE-1042] deploy", "CORE-1042"},
		{"ab-12 lowercase", ""},
		{"A-12 single letter", ""},
		{"AB- 12", ""},
		{"", ""},
	}
	for _, tt := range tests {
		got := worklog.ExtractIssueKey(tt.input)
		gotStr := ""
		if got != nil {
			gotStr = *got
		}
		if gotStr != tt.want {
			t.Errorf("ExtractIssueKey(%q) = %q, want %q", tt.input, gotStr, tt.want)
		}
	}
}

func TestNormalizeClampsRunningTimer(t *testing.T) {
	e := worklog.Normalize(model.RawEntry{ID: "3", Description: "AB-1", Duration: -1})
	assert.Equal(t, int64(0), e.DurationSeconds)
	assert.True(t, e.Running)

	e = worklog.Normalize(model.RawEntry{ID: "4", Description: "AB-1", Duration: -1741000000})
	assert.Equal(t, int64(0), e.DurationSeconds)
	assert.True(t, e.Running)

	e = worklog.Normalize(model.RawEntry{ID: "5", Description: "AB-1", Duration: 0})
	assert.Equal(t, int64(0), e.DurationSeconds)
	assert.False(t, e.Running, "a stopped zero-length entry is not running")
}

func TestNormalizeTags(t *testing.T) {
	raw := model.RawEntry{ID: "5", Tags: []string{"dev", "review"}}
	e := worklog.Normalize(raw)
	assert.True(t, e.HasTags)
	assert.Equal(t, []string{"dev", "review"}, e.Tags)

	raw.Tags[0] = "changed"
	assert.Equal(t, "dev", e.Tags[0], "normalized tags must not alias the raw slice")

	assert.False(t, worklog.Normalize(model.RawEntry{ID: "6"}).HasTags)
	assert.False(t, worklog.Normalize(model.RawEntry{ID: "7", Tags: []string{}}).HasTags)
}

func TestNormalizeAllPreservesOrder(t *testing.T) {
	start := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)
	out := worklog.NormalizeAll([]model.RawEntry{
		{ID: "b", Start: start},
		{ID: "a", Start: start},
	})
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].ID)
	assert.Equal(t, "a", out[1].ID)
}
