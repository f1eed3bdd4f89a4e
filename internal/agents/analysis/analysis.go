// Package analysis implements the analysis-pass agents. They run in
// dependency-ordered parallel groups over the foundation outputs and each
// write their findings under a distinct state key.
package analysis

import (
	"sort"

	"github.com/syncport-ai/npsd/internal/state"
)

// TagCount is a tag with its occurrence count.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// SegmentFindings summarizes one respondent segment.
type SegmentFindings struct {
	Segment  string     `json:"segment"`
	Count    int        `json:"count"`
	SharePct float64    `json:"share_pct"`
	TopTags  []TagCount `json:"top_tags,omitempty"`
	Summary  string     `json:"summary,omitempty"`
}

// Theme is a recurring topic across tagged comments.
type Theme struct {
	Name       string          `json:"name"`
	Mentions   int             `json:"mentions"`
	Sentiment  state.Sentiment `json:"dominant_sentiment"`
	ExampleIDs []string        `json:"example_ids,omitempty"`
}

// Driver links a topic tag to its effect on the score split.
type Driver struct {
	Tag        string  `json:"tag"`
	Promoters  int     `json:"promoters"`
	Detractors int     `json:"detractors"`
	Impact     float64 `json:"impact"`
}

// DriverReport separates what pushes the score up from what drags it down.
type DriverReport struct {
	Positive []Driver `json:"positive"`
	Negative []Driver `json:"negative"`
}

// DimensionGroup is the score breakdown for one value of a dimension.
type DimensionGroup struct {
	Value   string          `json:"value"`
	Metrics state.NPSMetrics `json:"metrics"`
}

// DimensionBreakdown is the per-value breakdown along one record dimension.
type DimensionBreakdown struct {
	Dimension string           `json:"dimension"`
	Groups    []DimensionGroup `json:"groups"`
}

// TechnicalFindings collects reliability and product-defect signals.
type TechnicalFindings struct {
	IssueCount int             `json:"issue_count"`
	Issues     []TagCount      `json:"issues,omitempty"`
	Summary    string          `json:"summary,omitempty"`
	Examples   []string        `json:"example_ids,omitempty"`
	Insights   []state.Insight `json:"-"`
}

func metricsFrom(snap *state.Snapshot) (state.NPSMetrics, bool) {
	v, ok := snap.Get(state.KeyNPSMetrics)
	if !ok {
		return state.NPSMetrics{}, false
	}
	m, ok := v.(state.NPSMetrics)
	return m, ok
}

func taggedFrom(snap *state.Snapshot) []state.TaggedResponse {
	v, ok := snap.Get(state.KeyTaggedResponses)
	if !ok {
		return nil
	}
	tagged, _ := v.([]state.TaggedResponse)
	return tagged
}

func recordsFrom(snap *state.Snapshot) []state.SurveyResponse {
	if v, ok := snap.Get(state.KeyCleanedResponses); ok {
		if records, ok := v.([]state.SurveyResponse); ok {
			return records
		}
	}
	return snap.Responses()
}

// topTags counts tags over the tagged responses matching keep and returns
// the n most frequent, ties broken alphabetically.
func topTags(tagged []state.TaggedResponse, keep func(state.TaggedResponse) bool, n int) []TagCount {
	counts := make(map[string]int)
	for _, tr := range tagged {
		if keep != nil && !keep(tr) {
			continue
		}
		for _, tag := range tr.Tags {
			counts[tag]++
		}
	}
	out := make([]TagCount, 0, len(counts))
	for tag, count := range counts {
		out = append(out, TagCount{Tag: tag, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
