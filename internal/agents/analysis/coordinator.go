package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/syncport-ai/npsd/internal/agent"
	"github.com/syncport-ai/npsd/internal/llm"
	"github.com/syncport-ai/npsd/internal/state"
)

// analysisKeys are the outputs the coordinator expects from its siblings.
// Missing entries lower the completeness factor but do not fail the agent.
var analysisKeys = []string{
	state.KeyTechnicalFindings,
	state.KeyPassiveAnalysis,
	state.KeyDetractorAnalysis,
	state.KeyThemes,
	state.KeyDrivers,
	state.KeyProductDimension,
	state.KeyGeographicDimension,
	state.KeyChannelDimension,
}

// Coordinator (B9) runs after the other analysis agents. It synthesizes
// their findings into a narrative and scores how much the consulting pass
// should trust the underlying data.
type Coordinator struct {
	desc   agent.Descriptor
	llm    llm.Client
	logger *zap.Logger
}

// NewCoordinator creates the coordinator agent.
func NewCoordinator(desc agent.Descriptor, deps agent.Deps) agent.Agent {
	return &Coordinator{desc: desc, llm: deps.LLM, logger: deps.Logger}
}

func (a *Coordinator) Kind() agent.Kind { return agent.KindCoordinator }

func (a *Coordinator) Validate(snap *state.Snapshot) error {
	return agent.RequireFoundationOutput(snap)
}

func (a *Coordinator) Process(ctx context.Context, snap *state.Snapshot) (*agent.Result, error) {
	metrics, _ := metricsFrom(snap)
	assessment := assessConfidence(snap, metrics)

	var warnings []string
	if missing := snap.Missing(analysisKeys...); len(missing) > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"synthesizing without %d of %d analysis outputs: %s",
			len(missing), len(analysisKeys), strings.Join(missing, ", ")))
	}

	resp, err := a.llm.Generate(ctx, a.buildSynthesisPrompt(snap, metrics), llm.DefaultGenerateOptions())
	if err != nil {
		return nil, err
	}

	return &agent.Result{
		Status: agent.StatusCompleted,
		Data: map[string]any{
			state.KeyAnalysisSynthesis:    strings.TrimSpace(resp.Content),
			state.KeyConfidenceAssessment: assessment,
		},
		Warnings:   warnings,
		Confidence: assessment.Score,
	}, nil
}

func (a *Coordinator) buildSynthesisPrompt(snap *state.Snapshot, metrics state.NPSMetrics) string {
	var b strings.Builder
	b.WriteString("Synthesize the survey analysis below into a concise narrative of the overall customer sentiment, the main drivers, and the most pressing risks.\n")
	if lang := snap.Language(); lang != "" {
		fmt.Fprintf(&b, "Write the narrative in locale %s.\n", lang)
	}
	fmt.Fprintf(&b, "\nNPS %.1f over %d responses (%d promoters, %d passives, %d detractors).\n",
		metrics.Score, metrics.SampleSize, metrics.Promoters, metrics.Passives, metrics.Detractors)

	for _, key := range analysisKeys {
		v, ok := snap.Get(key)
		if !ok {
			continue
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "\n%s: %s\n", key, encoded)
	}
	return b.String()
}

// assessConfidence combines sample size, respondent diversity, and
// analysis completeness into one score in [0, 1].
func assessConfidence(snap *state.Snapshot, metrics state.NPSMetrics) state.ConfidenceAssessment {
	sample := float64(metrics.SampleSize) / 100
	if sample > 1 {
		sample = 1
	}

	distinct := make(map[string]bool)
	for _, rec := range recordsFrom(snap) {
		if rec.Product != "" {
			distinct["p:"+rec.Product] = true
		}
		if rec.Region != "" {
			distinct["r:"+rec.Region] = true
		}
		if rec.Channel != "" {
			distinct["c:"+rec.Channel] = true
		}
	}
	diversity := float64(len(distinct)) / 6
	if diversity > 1 {
		diversity = 1
	}

	present := len(analysisKeys) - len(snap.Missing(analysisKeys...))
	completeness := float64(present) / float64(len(analysisKeys))

	return state.ConfidenceAssessment{
		Score:        0.4*sample + 0.3*diversity + 0.3*completeness,
		SampleSize:   sample,
		Diversity:    diversity,
		Completeness: completeness,
	}
}
