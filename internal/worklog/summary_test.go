package worklog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Tiliavir/toggl-worklog-sync/internal/model"
	"github.com/Tiliavir/toggl-worklog-sync/internal/worklog"
)

func TestSummarize(t *testing.T) {
	synced := worklog.GroupByIssueAndDate([]model.NormalizedEntry{
		entry("1", "AB-1", at(27, 9, 0), 3600),
	})
	byIssue := worklog.GroupByIssueAndDate([]model.NormalizedEntry{
		entry("2", "AB-12", at(27, 9, 0), 600),
		entry("3", "AB-12", at(27, 10, 0), 900),
		entry("4", "AB-12", at(27, 11, 0), 1800),
	})
	withoutIssue := worklog.GroupByDescription([]model.NormalizedEntry{
		entry("5", "email", at(27, 12, 0), 300),
		entry("6", "", at(27, 13, 0), 0),
	})

	s := worklog.Summarize(worklog.SummaryInput{
		Synced:       synced,
		ByIssue:      byIssue,
		WithoutIssue: withoutIssue,
	})

	assert.Equal(t, worklog.CategoryTotal{Groups: 1, Entries: 1, Seconds: 3600, Formatted: "1h 0m"}, s.Synced)
	assert.Equal(t, worklog.CategoryTotal{Groups: 1, Entries: 3, Seconds: 3300, Formatted: "55m"}, s.ByIssue)
	assert.Equal(t, worklog.CategoryTotal{Groups: 2, Entries: 2, Seconds: 300, Formatted: "5m"}, s.WithoutIssue)
	assert.Equal(t, worklog.CategoryTotal{Formatted: "0m"}, s.WithoutTags)
	assert.Equal(t, int64(7200), s.TotalSeconds)
	assert.Equal(t, "2h 0m", s.Total)
}

func TestSummarizeIsRepeatable(t *testing.T) {
	in := worklog.SummaryInput{
		WithoutTags: worklog.GroupByDescription([]model.NormalizedEntry{entry("1", "x", at(27, 9, 0), 120)}),
	}
	first := worklog.Summarize(in)
	second := worklog.Summarize(in)
	assert.Equal(t, first, second)

	in.WithoutTags = nil
	in.ByIssue = worklog.GroupByIssueAndDate([]model.NormalizedEntry{entry("1", "AB-9 x", at(27, 9, 0), 120)})
	after := worklog.Summarize(in)
	assert.Equal(t, first.TotalSeconds, after.TotalSeconds)
	assert.Equal(t, 0, after.WithoutTags.Entries)
	assert.Equal(t, 1, after.ByIssue.Entries)
}
