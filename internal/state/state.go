// Package state holds the shared workflow state threaded through the
// analysis pipeline.
//
// State is the single mutable aggregate. Agents never touch it directly:
// each pass hands agents a read-only Snapshot and collects per-agent
// patches, which the executor merges centrally after the agents settle.
// Keys are additive only; a key written by one agent is never overwritten
// by another.
package state

import (
	"encoding/json"
	"fmt"
	"time"
)

// KeySurveyResponses is the output key holding the raw survey records.
const KeySurveyResponses = "survey_responses"

// State is the workflow-wide aggregate. Not safe for concurrent use; the
// pass executor is the only writer.
type State struct {
	workflowID string
	language   string
	startedAt  time.Time

	outputs map[string]any
	owners  map[string]string

	completedAgents []string
	failedAgents    []string
	errors          []string
	warnings        []string
}

// New creates the initial state from raw survey records.
func New(workflowID, language string, records []SurveyResponse) *State {
	s := &State{
		workflowID: workflowID,
		language:   language,
		startedAt:  time.Now(),
		outputs:    make(map[string]any),
		owners:     make(map[string]string),
	}
	s.outputs[KeySurveyResponses] = records
	s.owners[KeySurveyResponses] = "workflow"
	return s
}

// WorkflowID returns the workflow identifier.
func (s *State) WorkflowID() string { return s.workflowID }

// Language returns the configured report language.
func (s *State) Language() string { return s.language }

// StartedAt returns the workflow start time.
func (s *State) StartedAt() time.Time { return s.startedAt }

// Get returns the value stored under key.
func (s *State) Get(key string) (any, bool) {
	v, ok := s.outputs[key]
	return v, ok
}

// Merge applies an agent's output patch. Keys are additive only: a key
// already written by a different agent is rejected and recorded as a
// warning, never overwritten. An agent may rewrite its own keys.
func (s *State) Merge(agentID string, patch map[string]any) {
	for key, value := range patch {
		owner, taken := s.owners[key]
		if taken && owner != agentID {
			s.warnings = append(s.warnings, fmt.Sprintf(
				"agent %s attempted to overwrite key %q owned by %s; rejected", agentID, key, owner))
			continue
		}
		s.outputs[key] = value
		s.owners[key] = agentID
	}
}

// RecordCompleted marks an agent as completed.
func (s *State) RecordCompleted(agentID string) {
	s.completedAgents = append(s.completedAgents, agentID)
}

// RecordFailed marks an agent as failed and records its errors.
func (s *State) RecordFailed(agentID string, errs ...string) {
	s.failedAgents = append(s.failedAgents, agentID)
	for _, e := range errs {
		s.errors = append(s.errors, fmt.Sprintf("%s: %s", agentID, e))
	}
}

// AddWarnings appends agent warnings.
func (s *State) AddWarnings(agentID string, warnings ...string) {
	for _, w := range warnings {
		s.warnings = append(s.warnings, fmt.Sprintf("%s: %s", agentID, w))
	}
}

// CompletedAgents returns a copy of the completed-agent list.
func (s *State) CompletedAgents() []string {
	return append([]string(nil), s.completedAgents...)
}

// FailedAgents returns a copy of the failed-agent list.
func (s *State) FailedAgents() []string {
	return append([]string(nil), s.failedAgents...)
}

// Errors returns a copy of the accumulated error list.
func (s *State) Errors() []string {
	return append([]string(nil), s.errors...)
}

// Warnings returns a copy of the accumulated warning list.
func (s *State) Warnings() []string {
	return append([]string(nil), s.warnings...)
}

// Snapshot returns a read-only view of the current state. The output map
// is copied, so later merges are invisible to holders of the snapshot.
func (s *State) Snapshot() *Snapshot {
	outputs := make(map[string]any, len(s.outputs))
	for k, v := range s.outputs {
		outputs[k] = v
	}
	return &Snapshot{
		workflowID: s.workflowID,
		language:   s.language,
		outputs:    outputs,
	}
}

// MarshalJSON serializes the state for checkpointing and reporting.
func (s *State) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		WorkflowID      string         `json:"workflow_id"`
		Language        string         `json:"language"`
		StartedAt       time.Time      `json:"started_at"`
		Outputs         map[string]any `json:"outputs"`
		CompletedAgents []string       `json:"completed_agents"`
		FailedAgents    []string       `json:"failed_agents"`
		Errors          []string       `json:"errors"`
		Warnings        []string       `json:"warnings"`
	}{
		WorkflowID:      s.workflowID,
		Language:        s.language,
		StartedAt:       s.startedAt,
		Outputs:         s.outputs,
		CompletedAgents: s.completedAgents,
		FailedAgents:    s.failedAgents,
		Errors:          s.errors,
		Warnings:        s.warnings,
	})
}

// Snapshot is an immutable read-only view of workflow state, handed to
// agents. Agents in the same parallel group all observe the identical
// snapshot; a sibling's writes are never visible.
type Snapshot struct {
	workflowID string
	language   string
	outputs    map[string]any
}

// WorkflowID returns the workflow identifier.
func (s *Snapshot) WorkflowID() string { return s.workflowID }

// Language returns the configured report language.
func (s *Snapshot) Language() string { return s.language }

// Get returns the value stored under key.
func (s *Snapshot) Get(key string) (any, bool) {
	v, ok := s.outputs[key]
	return v, ok
}

// Has reports whether key is present.
func (s *Snapshot) Has(key string) bool {
	_, ok := s.outputs[key]
	return ok
}

// Missing returns the subset of keys not present in the snapshot.
func (s *Snapshot) Missing(keys ...string) []string {
	var missing []string
	for _, key := range keys {
		if !s.Has(key) {
			missing = append(missing, key)
		}
	}
	return missing
}

// Responses returns the raw survey records, if present.
func (s *Snapshot) Responses() []SurveyResponse {
	v, ok := s.outputs[KeySurveyResponses]
	if !ok {
		return nil
	}
	records, _ := v.([]SurveyResponse)
	return records
}
