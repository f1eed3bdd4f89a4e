// Package consulting implements the consulting-pass agents. They turn the
// analysis outputs into recommendations; the advisory agents degrade to
// reduced payloads when upstream confidence is too low for firm advice.
package consulting

import (
	"fmt"
	"strings"

	"github.com/syncport-ai/npsd/internal/state"
)

// Priority levels for recommendations, strongest first.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Recommendation is one piece of actionable advice.
type Recommendation struct {
	Priority string `json:"priority"`
	Title    string `json:"title"`
	Detail   string `json:"detail,omitempty"`
}

// Risk is one identified business risk with its mitigation.
type Risk struct {
	Name       string `json:"name"`
	Likelihood string `json:"likelihood"`
	Impact     string `json:"impact"`
	Mitigation string `json:"mitigation,omitempty"`
}

// RiskAssessment is the risk manager's output.
type RiskAssessment struct {
	Risks []Risk `json:"risks"`
}

// ExecutiveSummary is the final synthesized report section.
type ExecutiveSummary struct {
	Headline  string  `json:"headline"`
	Narrative string  `json:"narrative"`
	NPSScore  float64 `json:"nps_score"`
}

// parseRecommendations reads "priority|title|detail" lines, dropping
// anything malformed or with an unknown priority.
func parseRecommendations(content string) []Recommendation {
	var recs []Recommendation
	for _, line := range strings.Split(content, "\n") {
		parts := strings.SplitN(strings.TrimSpace(line), "|", 3)
		if len(parts) < 2 {
			continue
		}
		priority := strings.ToLower(strings.TrimSpace(parts[0]))
		switch priority {
		case PriorityHigh, PriorityMedium, PriorityLow:
		default:
			continue
		}
		rec := Recommendation{Priority: priority, Title: strings.TrimSpace(parts[1])}
		if rec.Title == "" {
			continue
		}
		if len(parts) == 3 {
			rec.Detail = strings.TrimSpace(parts[2])
		}
		recs = append(recs, rec)
	}
	return recs
}

// highPriorityOnly is the shared degraded payload shape: only the advice
// solid enough to stand on weak data survives.
func highPriorityOnly(recs []Recommendation) []Recommendation {
	var kept []Recommendation
	for _, rec := range recs {
		if rec.Priority == PriorityHigh {
			kept = append(kept, rec)
		}
	}
	return kept
}

func synthesisFrom(snap *state.Snapshot) string {
	if v, ok := snap.Get(state.KeyAnalysisSynthesis); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func metricsFrom(snap *state.Snapshot) state.NPSMetrics {
	if v, ok := snap.Get(state.KeyNPSMetrics); ok {
		if m, ok := v.(state.NPSMetrics); ok {
			return m
		}
	}
	return state.NPSMetrics{}
}

// promptHeader writes the shared context block every consulting prompt
// starts from.
func promptHeader(b *strings.Builder, snap *state.Snapshot) {
	m := metricsFrom(snap)
	fmt.Fprintf(b, "Context: NPS %.1f over %d responses (%d promoters, %d passives, %d detractors).\n",
		m.Score, m.SampleSize, m.Promoters, m.Passives, m.Detractors)
	if synthesis := synthesisFrom(snap); synthesis != "" {
		fmt.Fprintf(b, "Analysis synthesis: %s\n", synthesis)
	}
	if lang := snap.Language(); lang != "" {
		fmt.Fprintf(b, "Respond in locale %s.\n", lang)
	}
}

// recommendationFormat appends the output-format instruction block.
func recommendationFormat(b *strings.Builder, what string) {
	fmt.Fprintf(b, "\nOutput %s as lines in the exact form:\n", what)
	b.WriteString("<priority: high, medium, low>|<title>|<detail>\n")
}
