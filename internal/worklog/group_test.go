package worklog_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/toggl-worklog-sync/internal/model"
	"github.com/Tiliavir/toggl-worklog-sync/internal/worklog"
)

func entry(id, desc string, start time.Time, dur int64, tags ...string) model.NormalizedEntry {
	return worklog.Normalize(model.RawEntry{ID: id, Description: desc, Start: start, Duration: dur, Tags: tags})
}

func at(day, hour, minute int) time.Time {
	return time.Date(2026, 2, day, hour, minute, 0, 0, time.UTC)
}

func TestGroupByIssueAndDateMergesSameDay(t *testing.T) {
	entries := []model.NormalizedEntry{
		entry("3", "AB-12 write tests", at(27, 14, 0), 1800),
		entry("1", "AB-12: fix bug", at(27, 9, 0), 600),
		entry("2", "AB-12 review", at(27, 11, 0), 900),
	}

	groups := worklog.GroupByIssueAndDate(entries)
	require.Len(t, groups, 1)

	g := groups[0]
	assert.Equal(t, "AB-12_2026-02-27", g.Key)
	assert.Equal(t, "AB-12", g.IssueKey)
	assert.Equal(t, "2026-02-27", g.Date)
	assert.Equal(t, int64(3300), g.TotalSeconds)
	require.Len(t, g.Entries, 3)
	assert.Equal(t, []string{"1", "2", "3"}, ids(g.Entries))
	assert.Equal(t, at(27, 9, 0), g.Start())
	assert.Equal(t, at(27, 14, 30), g.End())
}

func TestGroupByIssueAndDateSplitsDaysAndIssues(t *testing.T) {
	entries := []model.NormalizedEntry{
		entry("1", "AB-12", at(27, 9, 0), 600),
		entry("2", "AB-12", at(28, 9, 0), 600),
		entry("3", "CD-3", at(27, 10, 0), 1200),
		entry("4", "no issue here", at(27, 10, 0), 1200),
	}

	groups := worklog.GroupByIssueAndDate(entries)
	require.Len(t, groups, 3)
	assert.Equal(t, "AB-12_2026-02-27", groups[0].Key)
	assert.Equal(t, "AB-12_2026-02-28", groups[1].Key)
	assert.Equal(t, "CD-3_2026-02-27", groups[2].Key)
}

func TestGroupByIssueAndDateStableTies(t *testing.T) {
	entries := []model.NormalizedEntry{
		entry("x", "AB-1 first", at(27, 9, 0), 60),
		entry("y", "AB-1 second", at(27, 9, 0), 60),
	}
	groups := worklog.GroupByIssueAndDate(entries)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"x", "y"}, ids(groups[0].Entries))
}

func TestGroupByDescription(t *testing.T) {
	entries := []model.NormalizedEntry{
		entry("1", "standup", at(27, 9, 0), 900),
		entry("2", "", at(27, 10, 0), 300),
		entry("3", "standup", at(28, 9, 0), 900),
		entry("4", "", at(28, 10, 0), 120),
	}

	groups := worklog.GroupByDescription(entries)
	require.Len(t, groups, 2)
	assert.Equal(t, worklog.NoDescription, groups[0].Key)
	assert.Equal(t, int64(420), groups[0].TotalSeconds)
	assert.Equal(t, "standup", groups[1].Key)
	assert.Equal(t, int64(1800), groups[1].TotalSeconds)
	assert.Equal(t, "", groups[0].Date)
}

func TestPartitions(t *testing.T) {
	entries := []model.NormalizedEntry{
		entry("1", "AB-1", at(27, 9, 0), 60, "dev"),
		entry("2", "misc", at(27, 9, 0), 60),
		entry("3", "CD-2", at(27, 9, 0), 60),
	}

	withIssue, withoutIssue := worklog.PartitionByIssue(entries)
	assert.Equal(t, []string{"1", "3"}, ids(withIssue))
	assert.Equal(t, []string{"2"}, ids(withoutIssue))

	tagged, untagged := worklog.PartitionByTags(entries)
	assert.Equal(t, []string{"1"}, ids(tagged))
	assert.Equal(t, []string{"2", "3"}, ids(untagged))
}

func TestGroupingIsOrderIndependent(t *testing.T) {
	var entries []model.NormalizedEntry
	descs := []string{"AB-1 a", "AB-2 b", "misc", "", "AB-1 c", "meeting"}
	for i := 0; i < 60; i++ {
		start := at(20+i%5, 8+i%9, (i*7)%60)
		entries = append(entries, entry(string(rune('a'+i%26))+string(rune('0'+i/26)), descs[i%len(descs)], start, int64(60*(i+1))))
	}

	wantIssue := worklog.GroupByIssueAndDate(entries)
	wantDesc := worklog.GroupByDescription(entries)

	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 10; round++ {
		shuffled := append([]model.NormalizedEntry(nil), entries...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		assertSameGroups(t, wantIssue, worklog.GroupByIssueAndDate(shuffled))
		assertSameGroups(t, wantDesc, worklog.GroupByDescription(shuffled))
	}
}

func TestGroupTotalsMatchEntrySum(t *testing.T) {
	entries := []model.NormalizedEntry{
		entry("1", "AB-1", at(27, 9, 0), 61),
		entry("2", "AB-1", at(27, 10, 0), 0),
		entry("3", "AB-2", at(28, 9, 0), 3599),
		entry("4", "misc", at(28, 9, 0), 7),
		entry("5", "", at(28, 9, 0), 13),
	}
	withIssue, withoutIssue := worklog.PartitionByIssue(entries)

	var want int64
	for _, e := range entries {
		want += e.DurationSeconds
	}

	var got int64
	for _, g := range worklog.GroupByIssueAndDate(withIssue) {
		got += g.TotalSeconds
	}
	for _, g := range worklog.GroupByDescription(withoutIssue) {
		got += g.TotalSeconds
	}
	assert.Equal(t, want, got)

	var all int64
	for _, g := range worklog.GroupByDescription(entries) {
		all += g.TotalSeconds
	}
	assert.Equal(t, want, all)
}

func TestEntriesFlattensGroups(t *testing.T) {
	groups := worklog.GroupByDescription([]model.NormalizedEntry{
		entry("1", "b", at(27, 9, 0), 60),
		entry("2", "a", at(27, 9, 0), 60),
	})
	assert.Equal(t, []string{"2", "1"}, ids(worklog.Entries(groups)))
}

func ids(entries []model.NormalizedEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func assertSameGroups(t *testing.T, want, got []model.Group) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Key, got[i].Key)
		assert.Equal(t, want[i].TotalSeconds, got[i].TotalSeconds)
		assert.ElementsMatch(t, ids(want[i].Entries), ids(got[i].Entries))
	}
}
