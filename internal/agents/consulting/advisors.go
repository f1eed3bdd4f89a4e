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

// advisor is the shared implementation behind the product (C2) and
// marketing (C3) agents. Both generate prioritized recommendations from a
// different slice of the analysis outputs and both degrade under low
// upstream confidence.
type advisor struct {
	desc      agent.Descriptor
	llm       llm.Client
	logger    *zap.Logger
	kind      agent.Kind
	key       string
	role      string
	inputKeys []string
}

// NewProductAdvisor creates the product-recommendations agent.
func NewProductAdvisor(desc agent.Descriptor, deps agent.Deps) agent.Agent {
	return &advisor{
		desc: desc, llm: deps.LLM, logger: deps.Logger,
		kind: agent.KindProductAdvisor,
		key:  state.KeyProductRecommendations,
		role: "a product manager prioritizing the roadmap",
		inputKeys: []string{
			state.KeyTechnicalFindings, state.KeyDrivers, state.KeyThemes, state.KeyProductDimension,
		},
	}
}

// NewMarketingAdvisor creates the marketing-recommendations agent.
func NewMarketingAdvisor(desc agent.Descriptor, deps agent.Deps) agent.Agent {
	return &advisor{
		desc: desc, llm: deps.LLM, logger: deps.Logger,
		kind: agent.KindMarketingAdvisor,
		key:  state.KeyMarketingRecommendations,
		role: "a marketing lead planning retention and advocacy campaigns",
		inputKeys: []string{
			state.KeyPassiveAnalysis, state.KeyDetractorAnalysis, state.KeyThemes, state.KeyChannelDimension,
		},
	}
}

func (a *advisor) Kind() agent.Kind { return a.kind }

func (a *advisor) Validate(snap *state.Snapshot) error {
	return agent.RequireAnalysisOutput(snap)
}

func (a *advisor) Process(ctx context.Context, snap *state.Snapshot) (*agent.Result, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s reviewing customer survey results.\n", a.role)
	promptHeader(&b, snap)
	for _, key := range a.inputKeys {
		v, ok := snap.Get(key)
		if !ok {
			continue
		}
		if encoded, err := json.Marshal(v); err == nil {
			fmt.Fprintf(&b, "%s: %s\n", key, encoded)
		}
	}
	recommendationFormat(&b, "three to five recommendations")

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
		Data:       map[string]any{a.key: recs},
		Warnings:   warnings,
		Confidence: confidence,
	}, nil
}

// Degraded keeps only high-priority advice when upstream confidence is
// too weak to support the full list.
func (a *advisor) Degraded(full *agent.Result) map[string]any {
	recs, _ := full.Data[a.key].([]Recommendation)
	return map[string]any{a.key: highPriorityOnly(recs)}
}
