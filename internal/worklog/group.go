package worklog

import (
	"sort"

	"github.com/Tiliavir/toggl-worklog-sync/internal/model"
	"github.com/Tiliavir/toggl-worklog-sync/internal/timecalc"
)

// NoDescription is the grouping key for entries with an empty description.
const NoDescription = "(no description)"

// PartitionByIssue splits entries into those with and without an issue key.
func PartitionByIssue(entries []model.NormalizedEntry) (withIssue, withoutIssue []model.NormalizedEntry) {
	for _, e := range entries {
		if e.HasJiraIssue {
			withIssue = append(withIssue, e)
		} else {
			withoutIssue = append(withoutIssue, e)
		}
	}
	return withIssue, withoutIssue
}

// PartitionByTags splits entries into those with and without tags.
func PartitionByTags(entries []model.NormalizedEntry) (tagged, untagged []model.NormalizedEntry) {
	for _, e := range entries {
		if e.HasTags {
			tagged = append(tagged, e)
		} else {
			untagged = append(untagged, e)
		}
	}
	return tagged, untagged
}

// GroupByIssueAndDate buckets entries by issue key and calendar day of StartedAt.
// Entries without an issue key are ignored. Entries inside each group are
// sorted by start time; groups are sorted by key.
func GroupByIssueAndDate(entries []model.NormalizedEntry) []model.Group {
	byKey := map[string]*model.Group{}
	for _, e := range entries {
		if e.IssueKey == nil {
			continue
		}
		date := timecalc.DateKey(e.StartedAt)
		key := *e.IssueKey + "_" + date
		g, ok := byKey[key]
		if !ok {
			g = &model.Group{Key: key, IssueKey: *e.IssueKey, Date: date}
			byKey[key] = g
		}
		g.Add(e)
	}

	groups := collect(byKey)
	for i := range groups {
		sortByStart(groups[i].Entries)
	}
	return groups
}

// GroupByDescription buckets entries by description. Entry order inside a
// group follows input order; groups are sorted by key.
func GroupByDescription(entries []model.NormalizedEntry) []model.Group {
	byKey := map[string]*model.Group{}
	for _, e := range entries {
		key := e.Description
		if key == "" {
			key = NoDescription
		}
		g, ok := byKey[key]
		if !ok {
			g = &model.Group{Key: key, Description: e.Description}
			byKey[key] = g
		}
		g.Add(e)
	}
	return collect(byKey)
}

// Entries flattens groups back into their entries.
func Entries(groups []model.Group) []model.NormalizedEntry {
	var out []model.NormalizedEntry
	for _, g := range groups {
		out = append(out, g.Entries...)
	}
	return out
}

func collect(byKey map[string]*model.Group) []model.Group {
	groups := make([]model.Group, 0, len(byKey))
	for _, g := range byKey {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	return groups
}

func sortByStart(entries []model.NormalizedEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].StartedAt.Before(entries[j].StartedAt)
	})
}
