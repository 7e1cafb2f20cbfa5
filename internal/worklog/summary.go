package worklog

import (
	"github.com/Tiliavir/toggl-worklog-sync/internal/model"
	"github.com/Tiliavir/toggl-worklog-sync/internal/timecalc"
)

// SummaryInput holds the grouped results of one run. Callers keep the
// categories disjoint so the grand total counts every entry once.
type SummaryInput struct {
	Synced       []model.Group
	ByIssue      []model.Group
	WithoutIssue []model.Group
	WithoutTags  []model.Group
}

// CategoryTotal is the aggregate of one summary category.
type CategoryTotal struct {
	Groups    int    `json:"groups"`
	Entries   int    `json:"entries"`
	Seconds   int64  `json:"seconds"`
	Formatted string `json:"formatted"`
}

// Summary is the report-ready fold of a run.
type Summary struct {
	Synced       CategoryTotal `json:"synced"`
	ByIssue      CategoryTotal `json:"by_issue"`
	WithoutIssue CategoryTotal `json:"without_issue"`
	WithoutTags  CategoryTotal `json:"without_tags"`
	TotalSeconds int64         `json:"total_seconds"`
	Total        string        `json:"total"`
}

// Summarize folds grouped results into per-category and grand totals.
func Summarize(in SummaryInput) Summary {
	s := Summary{
		Synced:       total(in.Synced),
		ByIssue:      total(in.ByIssue),
		WithoutIssue: total(in.WithoutIssue),
		WithoutTags:  total(in.WithoutTags),
	}
	s.TotalSeconds = s.Synced.Seconds + s.ByIssue.Seconds + s.WithoutIssue.Seconds + s.WithoutTags.Seconds
	s.Total = timecalc.FormatDuration(s.TotalSeconds)
	return s
}

func total(groups []model.Group) CategoryTotal {
	var c CategoryTotal
	for _, g := range groups {
		c.Groups++
		c.Entries += len(g.Entries)
		c.Seconds += g.TotalSeconds
	}
	c.Formatted = timecalc.FormatDuration(c.Seconds)
	return c
}
