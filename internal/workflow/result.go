package workflow

import (
	"encoding/json"
	"time"

	"github.com/syncport-ai/npsd/internal/state"
)

// Status is the overall outcome of a workflow run.
type Status string

const (
	// StatusCompleted means every agent completed.
	StatusCompleted Status = "completed"

	// StatusPartial means the workflow produced a report despite one or
	// more agent failures.
	StatusPartial Status = "partial"

	// StatusFailed means the workflow could not produce a usable report.
	StatusFailed Status = "failed"
)

// Result is the outcome of one workflow execution.
type Result struct {
	WorkflowID      string
	Status          Status
	State           *state.State
	CompletedAgents []string
	FailedAgents    []string
	Errors          []string
	Warnings        []string
	RemoteCalls     int64
	CacheHits       int64
	TokensUsed      int64
	Duration        time.Duration
}

// MarshalJSON serializes the result for reports and the HTTP API, with
// the duration in milliseconds.
func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		WorkflowID      string       `json:"workflow_id"`
		Status          Status       `json:"status"`
		State           *state.State `json:"state"`
		CompletedAgents []string     `json:"completed_agents"`
		FailedAgents    []string     `json:"failed_agents"`
		Errors          []string     `json:"errors"`
		Warnings        []string     `json:"warnings"`
		RemoteCalls     int64        `json:"remote_calls"`
		CacheHits       int64        `json:"cache_hits"`
		TokensUsed      int64        `json:"tokens_used"`
		DurationMS      int64        `json:"duration_ms"`
	}{
		WorkflowID:      r.WorkflowID,
		Status:          r.Status,
		State:           r.State,
		CompletedAgents: r.CompletedAgents,
		FailedAgents:    r.FailedAgents,
		Errors:          r.Errors,
		Warnings:        r.Warnings,
		RemoteCalls:     r.RemoteCalls,
		CacheHits:       r.CacheHits,
		TokensUsed:      r.TokensUsed,
		DurationMS:      r.Duration.Milliseconds(),
	})
}
