package report

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/syncport-ai/npsd/internal/agents/consulting"
	"github.com/syncport-ai/npsd/internal/state"
	"github.com/syncport-ai/npsd/internal/workflow"
)

// HTMLRenderer emits a minimal self-contained report page.
type HTMLRenderer struct{}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Survey Analysis {{.WorkflowID}}</title>
<style>
body { font-family: sans-serif; margin: 2rem auto; max-width: 48rem; }
.score { font-size: 3rem; font-weight: bold; }
.warnings { color: #8a6d3b; }
.failed { color: #a94442; }
</style>
</head>
<body>
<h1>{{.Headline}}</h1>
<p>Workflow <code>{{.WorkflowID}}</code> &mdash; status {{.Status}}</p>
<div class="score">NPS {{printf "%.1f" .Metrics.Score}}</div>
<p>{{.Metrics.SampleSize}} responses: {{.Metrics.Promoters}} promoters,
{{.Metrics.Passives}} passives, {{.Metrics.Detractors}} detractors</p>
{{if .Narrative}}<h2>Summary</h2><p>{{.Narrative}}</p>{{end}}
{{if .Recommendations}}<h2>Recommendations</h2>
<ul>{{range .Recommendations}}<li><strong>[{{.Priority}}]</strong> {{.Title}}{{if .Detail}} &mdash; {{.Detail}}{{end}}</li>{{end}}</ul>
{{end}}
{{if .FailedAgents}}<p class="failed">Failed agents: {{range .FailedAgents}}{{.}} {{end}}</p>{{end}}
{{if .Warnings}}<h2 class="warnings">Warnings</h2>
<ul class="warnings">{{range .Warnings}}<li>{{.}}</li>{{end}}</ul>
{{end}}
</body>
</html>
`))

type htmlData struct {
	WorkflowID      string
	Status          workflow.Status
	Headline        string
	Narrative       string
	Metrics         state.NPSMetrics
	Recommendations []consulting.Recommendation
	FailedAgents    []string
	Warnings        []string
}

func (r *HTMLRenderer) Render(result *workflow.Result) ([]byte, error) {
	if result == nil || result.State == nil {
		return nil, fmt.Errorf("nil result")
	}
	snap := result.State.Snapshot()

	data := htmlData{
		WorkflowID:   result.WorkflowID,
		Status:       result.Status,
		Headline:     "Customer Survey Analysis",
		FailedAgents: result.FailedAgents,
		Warnings:     result.Warnings,
	}
	if v, ok := snap.Get(state.KeyNPSMetrics); ok {
		if m, ok := v.(state.NPSMetrics); ok {
			data.Metrics = m
		}
	}
	if v, ok := snap.Get(state.KeyExecutiveSummary); ok {
		if summary, ok := v.(consulting.ExecutiveSummary); ok {
			if summary.Headline != "" {
				data.Headline = summary.Headline
			}
			data.Narrative = summary.Narrative
		}
	}
	if v, ok := snap.Get(state.KeyStrategicRecommendations); ok {
		if recs, ok := v.([]consulting.Recommendation); ok {
			data.Recommendations = recs
		}
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendering report: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *HTMLRenderer) ContentType() string { return "text/html; charset=utf-8" }
