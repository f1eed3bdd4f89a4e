package consulting

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

// Executive (C5) writes the executive summary from everything the earlier
// passes produced. It runs last and always at full fidelity, summarizing
// degraded sibling output as readily as full output.
type Executive struct {
	desc   agent.Descriptor
	llm    llm.Client
	logger *zap.Logger
}

// NewExecutive creates the executive-summary agent.
func NewExecutive(desc agent.Descriptor, deps agent.Deps) agent.Agent {
	return &Executive{desc: desc, llm: deps.LLM, logger: deps.Logger}
}

func (a *Executive) Kind() agent.Kind { return agent.KindExecutiveSynthesizer }

func (a *Executive) Validate(snap *state.Snapshot) error {
	return agent.RequireAnalysisOutput(snap)
}

func (a *Executive) Process(ctx context.Context, snap *state.Snapshot) (*agent.Result, error) {
	metrics := metricsFrom(snap)

	var b strings.Builder
	b.WriteString("Write an executive summary of this customer survey analysis for company leadership.\n")
	b.WriteString("First line: a single-sentence headline. Then a short narrative of two or three paragraphs.\n")
	promptHeader(&b, snap)
	for _, key := range []string{
		state.KeyStrategicRecommendations, state.KeyProductRecommendations,
		state.KeyMarketingRecommendations, state.KeyRiskAssessment,
	} {
		v, ok := snap.Get(key)
		if !ok {
			continue
		}
		if encoded, err := json.Marshal(v); err == nil {
			fmt.Fprintf(&b, "%s: %s\n", key, encoded)
		}
	}

	resp, err := a.llm.Generate(ctx, b.String(), llm.DefaultGenerateOptions())
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return nil, fmt.Errorf("model returned an empty summary")
	}

	summary := ExecutiveSummary{NPSScore: metrics.Score, Narrative: content}
	if headline, rest, found := strings.Cut(content, "\n"); found {
		summary.Headline = strings.TrimSpace(headline)
		summary.Narrative = strings.TrimSpace(rest)
	} else {
		summary.Headline = content
	}

	return &agent.Result{
		Status:     agent.StatusCompleted,
		Data:       map[string]any{state.KeyExecutiveSummary: summary},
		Confidence: 0.8,
	}, nil
}
