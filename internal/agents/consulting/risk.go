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

// RiskManager (C4) identifies business risks implied by the survey
// findings. It degrades to high-likelihood risks only under low upstream
// confidence.
type RiskManager struct {
	desc   agent.Descriptor
	llm    llm.Client
	logger *zap.Logger
}

// NewRiskManager creates the risk-assessment agent.
func NewRiskManager(desc agent.Descriptor, deps agent.Deps) agent.Agent {
	return &RiskManager{desc: desc, llm: deps.LLM, logger: deps.Logger}
}

func (a *RiskManager) Kind() agent.Kind { return agent.KindRiskManager }

func (a *RiskManager) Validate(snap *state.Snapshot) error {
	return agent.RequireAnalysisOutput(snap)
}

func (a *RiskManager) Process(ctx context.Context, snap *state.Snapshot) (*agent.Result, error) {
	var b strings.Builder
	b.WriteString("You are a risk officer reviewing customer survey results.\n")
	promptHeader(&b, snap)
	for _, key := range []string{state.KeyDetractorAnalysis, state.KeyTechnicalFindings, state.KeyGeographicDimension} {
		v, ok := snap.Get(key)
		if !ok {
			continue
		}
		if encoded, err := json.Marshal(v); err == nil {
			fmt.Fprintf(&b, "%s: %s\n", key, encoded)
		}
	}
	b.WriteString("\nOutput up to five risks as lines in the exact form:\n")
	b.WriteString("<name>|<likelihood: high, medium, low>|<impact: high, medium, low>|<mitigation>\n")

	resp, err := a.llm.Generate(ctx, b.String(), llm.DefaultGenerateOptions())
	if err != nil {
		return nil, err
	}

	assessment := RiskAssessment{Risks: parseRisks(resp.Content)}
	var warnings []string
	confidence := 0.8
	if len(assessment.Risks) == 0 {
		warnings = append(warnings, "model returned no parseable risks")
		confidence = 0.2
	}

	var insights []state.Insight
	for _, risk := range assessment.Risks {
		if risk.Likelihood == PriorityHigh && risk.Impact == PriorityHigh {
			insights = append(insights, state.Insight{
				Title:    "High risk: " + risk.Name,
				Detail:   risk.Mitigation,
				Severity: "critical",
			})
		}
	}

	return &agent.Result{
		Status:     agent.StatusCompleted,
		Data:       map[string]any{state.KeyRiskAssessment: assessment},
		Insights:   insights,
		Warnings:   warnings,
		Confidence: confidence,
	}, nil
}

// Degraded keeps only high-likelihood risks.
func (a *RiskManager) Degraded(full *agent.Result) map[string]any {
	assessment, _ := full.Data[state.KeyRiskAssessment].(RiskAssessment)
	var kept []Risk
	for _, risk := range assessment.Risks {
		if risk.Likelihood == PriorityHigh {
			kept = append(kept, risk)
		}
	}
	return map[string]any{state.KeyRiskAssessment: RiskAssessment{Risks: kept}}
}

func parseRisks(content string) []Risk {
	var risks []Risk
	for _, line := range strings.Split(content, "\n") {
		parts := strings.SplitN(strings.TrimSpace(line), "|", 4)
		if len(parts) < 3 {
			continue
		}
		risk := Risk{
			Name:       strings.TrimSpace(parts[0]),
			Likelihood: strings.ToLower(strings.TrimSpace(parts[1])),
			Impact:     strings.ToLower(strings.TrimSpace(parts[2])),
		}
		if risk.Name == "" || !validLevel(risk.Likelihood) || !validLevel(risk.Impact) {
			continue
		}
		if len(parts) == 4 {
			risk.Mitigation = strings.TrimSpace(parts[3])
		}
		risks = append(risks, risk)
	}
	return risks
}

func validLevel(level string) bool {
	return level == PriorityHigh || level == PriorityMedium || level == PriorityLow
}
