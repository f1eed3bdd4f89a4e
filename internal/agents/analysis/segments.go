package analysis

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/syncport-ai/npsd/internal/agent"
	"github.com/syncport-ai/npsd/internal/state"
)

// PassiveSegment (B2) profiles the passive respondents, the group most
// readily converted into promoters.
type PassiveSegment struct {
	desc   agent.Descriptor
	logger *zap.Logger
}

// NewPassiveSegment creates the passive-segment agent.
func NewPassiveSegment(desc agent.Descriptor, deps agent.Deps) agent.Agent {
	return &PassiveSegment{desc: desc, logger: deps.Logger}
}

func (a *PassiveSegment) Kind() agent.Kind { return agent.KindPassiveSegment }

func (a *PassiveSegment) Validate(snap *state.Snapshot) error {
	return agent.RequireFoundationOutput(snap)
}

func (a *PassiveSegment) Process(ctx context.Context, snap *state.Snapshot) (*agent.Result, error) {
	findings, confidence := segmentFindings(snap, "passives", func(score int) bool {
		return score >= 7 && score < 9
	})
	findings.Summary = fmt.Sprintf(
		"%d passives (%.1f%% of responses); lifting them one point converts them to promoters",
		findings.Count, findings.SharePct)

	return &agent.Result{
		Status:     agent.StatusCompleted,
		Data:       map[string]any{state.KeyPassiveAnalysis: findings},
		Confidence: confidence,
	}, nil
}

// DetractorSegment (B3) profiles the detractors and flags churn risk.
type DetractorSegment struct {
	desc   agent.Descriptor
	logger *zap.Logger
}

// NewDetractorSegment creates the detractor-segment agent.
func NewDetractorSegment(desc agent.Descriptor, deps agent.Deps) agent.Agent {
	return &DetractorSegment{desc: desc, logger: deps.Logger}
}

func (a *DetractorSegment) Kind() agent.Kind { return agent.KindDetractorSegment }

func (a *DetractorSegment) Validate(snap *state.Snapshot) error {
	return agent.RequireFoundationOutput(snap)
}

func (a *DetractorSegment) Process(ctx context.Context, snap *state.Snapshot) (*agent.Result, error) {
	findings, confidence := segmentFindings(snap, "detractors", func(score int) bool {
		return score < 7
	})
	findings.Summary = fmt.Sprintf(
		"%d detractors (%.1f%% of responses) at elevated churn risk", findings.Count, findings.SharePct)

	var insights []state.Insight
	if findings.SharePct > 30 {
		insights = append(insights, state.Insight{
			Title:    "Detractor share above 30%",
			Detail:   findings.Summary,
			Severity: "critical",
		})
	}

	return &agent.Result{
		Status:     agent.StatusCompleted,
		Data:       map[string]any{state.KeyDetractorAnalysis: findings},
		Insights:   insights,
		Confidence: confidence,
	}, nil
}

func segmentFindings(snap *state.Snapshot, name string, in func(int) bool) (SegmentFindings, float64) {
	records := recordsFrom(snap)

	count := 0
	for _, rec := range records {
		if in(rec.Score) {
			count++
		}
	}

	findings := SegmentFindings{Segment: name, Count: count}
	if len(records) > 0 {
		findings.SharePct = float64(count) / float64(len(records)) * 100
	}
	findings.TopTags = topTags(taggedFrom(snap), func(tr state.TaggedResponse) bool {
		return in(tr.Score)
	}, 5)

	confidence := 0.8
	if count < 5 {
		confidence = 0.4
	}
	return findings, confidence
}
