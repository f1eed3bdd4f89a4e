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

// Strategic (C1) produces company-level strategic recommendations. It
// always runs at full fidelity; the confidence gate applies only to the
// advisory agents downstream of it.
type Strategic struct {
	desc   agent.Descriptor
	llm    llm.Client
	logger *zap.Logger
}

// NewStrategic creates the strategic-recommendations agent.
func NewStrategic(desc agent.Descriptor, deps agent.Deps) agent.Agent {
	return &Strategic{desc: desc, llm: deps.LLM, logger: deps.Logger}
}

func (a *Strategic) Kind() agent.Kind { return agent.KindStrategic }

func (a *Strategic) Validate(snap *state.Snapshot) error {
	return agent.RequireAnalysisOutput(snap)
}

func (a *Strategic) Process(ctx context.Context, snap *state.Snapshot) (*agent.Result, error) {
	var b strings.Builder
	b.WriteString("You are a strategy consultant reviewing customer survey results.\n")
	promptHeader(&b, snap)
	if v, ok := snap.Get(state.KeyDrivers); ok {
		if encoded, err := json.Marshal(v); err == nil {
			fmt.Fprintf(&b, "Score drivers: %s\n", encoded)
		}
	}
	recommendationFormat(&b, "three to five strategic recommendations")

	resp, err := a.llm.Generate(ctx, b.String(), llm.DefaultGenerateOptions())
	if err != nil {
		return nil, err
	}

	recs := parseRecommendations(resp.Content)
	var warnings []string
	confidence := 0.8
	if len(recs) == 0 {
		warnings = append(warnings, "model returned no parseable recommendations")
		confidence = 0.2
	}

	return &agent.Result{
		Status:     agent.StatusCompleted,
		Data:       map[string]any{state.KeyStrategicRecommendations: recs},
		Warnings:   warnings,
		Confidence: confidence,
	}, nil
}
