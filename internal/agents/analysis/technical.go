package analysis

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/syncport-ai/npsd/internal/agent"
	"github.com/syncport-ai/npsd/internal/llm"
	"github.com/syncport-ai/npsd/internal/state"
)

// technicalMarkers flag a comment as describing a defect or reliability
// problem rather than a preference.
var technicalMarkers = []string{
	"bug", "crash", "error", "slow", "broken", "freeze", "timeout",
	"fail", "glitch", "lag", "down", "outage", "disconnect",
}

// Technical (B1) isolates defect and reliability signals from negative
// comments and summarizes them with the model.
type Technical struct {
	desc   agent.Descriptor
	llm    llm.Client
	logger *zap.Logger
}

// NewTechnical creates the technical-findings agent.
func NewTechnical(desc agent.Descriptor, deps agent.Deps) agent.Agent {
	return &Technical{desc: desc, llm: deps.LLM, logger: deps.Logger}
}

func (a *Technical) Kind() agent.Kind { return agent.KindTechnical }

func (a *Technical) Validate(snap *state.Snapshot) error {
	return agent.RequireFoundationOutput(snap)
}

func (a *Technical) Process(ctx context.Context, snap *state.Snapshot) (*agent.Result, error) {
	tagged := taggedFrom(snap)

	var technical []state.TaggedResponse
	for _, tr := range tagged {
		if tr.Sentiment == state.SentimentPositive {
			continue
		}
		if hasTechnicalMarker(tr) {
			technical = append(technical, tr)
		}
	}

	findings := TechnicalFindings{
		IssueCount: len(technical),
		Issues:     topTags(technical, nil, 5),
	}
	for i, tr := range technical {
		if i == 5 {
			break
		}
		findings.Examples = append(findings.Examples, tr.ResponseID)
	}

	var insights []state.Insight
	if len(technical) > 0 {
		resp, err := a.llm.Generate(ctx, buildTechnicalPrompt(technical, snap.Language()), llm.DefaultGenerateOptions())
		if err != nil {
			return nil, err
		}
		findings.Summary = strings.TrimSpace(resp.Content)

		severity := ""
		if len(tagged) > 0 && float64(len(technical))/float64(len(tagged)) > 0.25 {
			severity = "critical"
		}
		insights = append(insights, state.Insight{
			Title:    fmt.Sprintf("%d responses report technical problems", len(technical)),
			Detail:   findings.Summary,
			Severity: severity,
		})
	}

	confidence := 0.8
	if len(tagged) == 0 {
		confidence = 0.3
	}

	return &agent.Result{
		Status:     agent.StatusCompleted,
		Data:       map[string]any{state.KeyTechnicalFindings: findings},
		Insights:   insights,
		Confidence: confidence,
	}, nil
}

func hasTechnicalMarker(tr state.TaggedResponse) bool {
	text := strings.ToLower(tr.Text + " " + strings.Join(tr.Tags, " "))
	for _, marker := range technicalMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

func buildTechnicalPrompt(technical []state.TaggedResponse, language string) string {
	var b strings.Builder
	b.WriteString("Summarize the technical problems reported in these survey comments in at most three sentences.\n")
	if language != "" {
		fmt.Fprintf(&b, "Write the summary in locale %s.\n", language)
	}
	b.WriteString("\nComments:\n")
	for _, tr := range technical {
		fmt.Fprintf(&b, "- %s\n", tr.Text)
	}
	return b.String()
}
