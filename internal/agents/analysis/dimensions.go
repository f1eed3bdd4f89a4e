package analysis

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/syncport-ai/npsd/internal/agent"
	"github.com/syncport-ai/npsd/internal/state"
)

// Dimension breaks the score down along one record attribute. The same
// implementation backs the product, geographic, and channel agents; only
// the extractor and output key differ.
type Dimension struct {
	desc    agent.Descriptor
	logger  *zap.Logger
	kind    agent.Kind
	name    string
	key     string
	extract func(state.SurveyResponse) string
}

// NewProductDimension creates the per-product breakdown agent.
func NewProductDimension(desc agent.Descriptor, deps agent.Deps) agent.Agent {
	return &Dimension{
		desc: desc, logger: deps.Logger,
		kind: agent.KindProductDimension, name: "product", key: state.KeyProductDimension,
		extract: func(r state.SurveyResponse) string { return r.Product },
	}
}

// NewGeographicDimension creates the per-region breakdown agent.
func NewGeographicDimension(desc agent.Descriptor, deps agent.Deps) agent.Agent {
	return &Dimension{
		desc: desc, logger: deps.Logger,
		kind: agent.KindGeographicDimension, name: "region", key: state.KeyGeographicDimension,
		extract: func(r state.SurveyResponse) string { return r.Region },
	}
}

// NewChannelDimension creates the per-channel breakdown agent.
func NewChannelDimension(desc agent.Descriptor, deps agent.Deps) agent.Agent {
	return &Dimension{
		desc: desc, logger: deps.Logger,
		kind: agent.KindChannelDimension, name: "channel", key: state.KeyChannelDimension,
		extract: func(r state.SurveyResponse) string { return r.Channel },
	}
}

func (a *Dimension) Kind() agent.Kind { return a.kind }

func (a *Dimension) Validate(snap *state.Snapshot) error {
	return agent.RequireFoundationOutput(snap)
}

func (a *Dimension) Process(ctx context.Context, snap *state.Snapshot) (*agent.Result, error) {
	records := recordsFrom(snap)

	grouped := make(map[string][]state.SurveyResponse)
	for _, rec := range records {
		if value := a.extract(rec); value != "" {
			grouped[value] = append(grouped[value], rec)
		}
	}

	breakdown := DimensionBreakdown{Dimension: a.name}
	for value, recs := range grouped {
		breakdown.Groups = append(breakdown.Groups, DimensionGroup{
			Value:   value,
			Metrics: state.ComputeNPS(recs),
		})
	}
	sort.Slice(breakdown.Groups, func(i, j int) bool {
		gi, gj := breakdown.Groups[i], breakdown.Groups[j]
		if gi.Metrics.SampleSize != gj.Metrics.SampleSize {
			return gi.Metrics.SampleSize > gj.Metrics.SampleSize
		}
		return gi.Value < gj.Value
	})

	var insights []state.Insight
	if worst, ok := worstGroup(breakdown.Groups); ok {
		insights = append(insights, state.Insight{
			Title:  fmt.Sprintf("Lowest-scoring %s: %s", a.name, worst.Value),
			Detail: fmt.Sprintf("NPS %.1f over %d responses", worst.Metrics.Score, worst.Metrics.SampleSize),
		})
	}

	confidence := 0.8
	var warnings []string
	if len(breakdown.Groups) == 0 {
		confidence = 0.3
		warnings = append(warnings, fmt.Sprintf("no records carry a %s attribute", a.name))
	}

	return &agent.Result{
		Status:     agent.StatusCompleted,
		Data:       map[string]any{a.key: breakdown},
		Insights:   insights,
		Warnings:   warnings,
		Confidence: confidence,
	}, nil
}

// worstGroup returns the lowest-scoring group with at least 5 responses.
func worstGroup(groups []DimensionGroup) (DimensionGroup, bool) {
	var worst DimensionGroup
	found := false
	for _, g := range groups {
		if g.Metrics.SampleSize < 5 {
			continue
		}
		if !found || g.Metrics.Score < worst.Metrics.Score {
			worst, found = g, true
		}
	}
	return worst, found
}
