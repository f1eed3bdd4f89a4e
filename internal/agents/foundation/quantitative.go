package foundation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/syncport-ai/npsd/internal/agent"
	"github.com/syncport-ai/npsd/internal/state"
)

// Quantitative (A1) computes the net promoter score and its statistical
// breakdown from the cleaned records.
type Quantitative struct {
	desc   agent.Descriptor
	logger *zap.Logger
}

// NewQuantitative creates the quantitative agent.
func NewQuantitative(desc agent.Descriptor, deps agent.Deps) agent.Agent {
	return &Quantitative{desc: desc, logger: deps.Logger}
}

func (a *Quantitative) Kind() agent.Kind { return agent.KindQuantitative }

func (a *Quantitative) Validate(snap *state.Snapshot) error {
	return agent.RequireSurveyInput(snap)
}

func (a *Quantitative) Process(ctx context.Context, snap *state.Snapshot) (*agent.Result, error) {
	records := cleanedOrRaw(snap)
	if len(records) == 0 {
		return nil, fmt.Errorf("no valid responses to score")
	}

	metrics := state.ComputeNPS(records)

	insights := []state.Insight{{
		Title:  fmt.Sprintf("NPS %.1f over %d responses", metrics.Score, metrics.SampleSize),
		Detail: fmt.Sprintf("%d promoters, %d passives, %d detractors", metrics.Promoters, metrics.Passives, metrics.Detractors),
	}}
	if metrics.Score < 0 {
		insights = append(insights, state.Insight{
			Title:    "Net negative promoter score",
			Detail:   "Detractors outnumber promoters; churn risk is elevated.",
			Severity: "critical",
		})
	}

	confidence := 0.5
	if metrics.Significant {
		confidence = 0.9
	} else if metrics.SampleSize >= 50 {
		confidence = 0.7
	}

	return &agent.Result{
		Status:     agent.StatusCompleted,
		Data:       map[string]any{state.KeyNPSMetrics: metrics},
		Insights:   insights,
		Confidence: confidence,
	}, nil
}

// cleanedOrRaw prefers the ingestion agent's output; within the sequential
// foundation chain it is normally present, but the scorer still works from
// raw records if ingestion failed.
func cleanedOrRaw(snap *state.Snapshot) []state.SurveyResponse {
	if v, ok := snap.Get(state.KeyCleanedResponses); ok {
		if records, ok := v.([]state.SurveyResponse); ok {
			return records
		}
	}
	return snap.Responses()
}
