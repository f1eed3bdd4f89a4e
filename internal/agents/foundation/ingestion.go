// Package foundation implements the foundation-pass agents: ingestion,
// quantitative scoring, comment tagging, and semantic clustering. They run
// as a sequential chain, so later agents may read earlier outputs.
package foundation

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/syncport-ai/npsd/internal/agent"
	"github.com/syncport-ai/npsd/internal/state"
)

// Ingestion (A0) cleans and validates raw survey records.
type Ingestion struct {
	desc   agent.Descriptor
	logger *zap.Logger
}

// NewIngestion creates the ingestion agent.
func NewIngestion(desc agent.Descriptor, deps agent.Deps) agent.Agent {
	return &Ingestion{desc: desc, logger: deps.Logger}
}

func (a *Ingestion) Kind() agent.Kind { return agent.KindIngestion }

func (a *Ingestion) Validate(snap *state.Snapshot) error {
	return agent.RequireSurveyInput(snap)
}

func (a *Ingestion) Process(ctx context.Context, snap *state.Snapshot) (*agent.Result, error) {
	records := snap.Responses()

	seen := make(map[string]bool, len(records))
	cleaned := make([]state.SurveyResponse, 0, len(records))
	dropped := 0

	for _, rec := range records {
		if rec.Score < 0 || rec.Score > 10 {
			dropped++
			continue
		}
		if rec.ID != "" && seen[rec.ID] {
			dropped++
			continue
		}
		seen[rec.ID] = true
		rec.Comment = strings.TrimSpace(rec.Comment)
		cleaned = append(cleaned, rec)
	}

	quality := assessQuality(len(cleaned), len(records))

	var warnings []string
	if dropped > 0 {
		warnings = append(warnings, "dropped invalid or duplicate records")
	}

	return &agent.Result{
		Status: agent.StatusCompleted,
		Data: map[string]any{
			state.KeyCleanedResponses: cleaned,
			state.KeyDataQuality:      quality,
		},
		Warnings:   warnings,
		Confidence: qualityConfidence(quality),
	}, nil
}

func assessQuality(valid, total int) string {
	if valid < 10 {
		return "insufficient"
	}
	ratio := float64(valid) / float64(total)
	switch {
	case valid >= 100 && ratio >= 0.9:
		return "high"
	case valid >= 30 && ratio >= 0.7:
		return "medium"
	default:
		return "low"
	}
}

func qualityConfidence(quality string) float64 {
	switch quality {
	case "high":
		return 0.9
	case "medium":
		return 0.7
	case "low":
		return 0.4
	default:
		return 0.2
	}
}
