package state

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecords() []SurveyResponse {
	return []SurveyResponse{
		{ID: "r1", Score: 9, Comment: "love it"},
		{ID: "r2", Score: 3, Comment: "too expensive"},
	}
}

func TestNew_SeedsRawResponses(t *testing.T) {
	s := New("wf-1", "en", testRecords())

	assert.Equal(t, "wf-1", s.WorkflowID())
	assert.Equal(t, "en", s.Language())

	v, ok := s.Get(KeySurveyResponses)
	require.True(t, ok)
	assert.Len(t, v.([]SurveyResponse), 2)
}

func TestMerge_Additive(t *testing.T) {
	s := New("wf-1", "en", nil)

	s.Merge("A1", map[string]any{"nps_metrics": NPSMetrics{Score: 40}})
	v, ok := s.Get("nps_metrics")
	require.True(t, ok)
	assert.Equal(t, 40.0, v.(NPSMetrics).Score)
}

func TestMerge_RejectsForeignOverwrite(t *testing.T) {
	s := New("wf-1", "en", nil)

	s.Merge("A1", map[string]any{"nps_metrics": NPSMetrics{Score: 40}})
	s.Merge("B1", map[string]any{"nps_metrics": NPSMetrics{Score: -10}})

	v, _ := s.Get("nps_metrics")
	assert.Equal(t, 40.0, v.(NPSMetrics).Score, "foreign overwrite must be rejected")

	warnings := s.Warnings()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "nps_metrics")
	assert.Contains(t, warnings[0], "B1")
}

func TestMerge_OwnerMayRewriteOwnKey(t *testing.T) {
	s := New("wf-1", "en", nil)

	s.Merge("A1", map[string]any{"nps_metrics": NPSMetrics{Score: 40}})
	s.Merge("A1", map[string]any{"nps_metrics": NPSMetrics{Score: 42}})

	v, _ := s.Get("nps_metrics")
	assert.Equal(t, 42.0, v.(NPSMetrics).Score)
	assert.Empty(t, s.Warnings())
}

func TestSnapshot_IsolatedFromLaterMerges(t *testing.T) {
	s := New("wf-1", "en", testRecords())
	snap := s.Snapshot()

	s.Merge("A1", map[string]any{"nps_metrics": NPSMetrics{Score: 40}})

	assert.False(t, snap.Has("nps_metrics"), "snapshot must not see later merges")
	assert.True(t, s.Snapshot().Has("nps_metrics"))
}

func TestSnapshot_Missing(t *testing.T) {
	s := New("wf-1", "en", testRecords())
	s.Merge("A1", map[string]any{"nps_metrics": NPSMetrics{}})
	snap := s.Snapshot()

	missing := snap.Missing("nps_metrics", "tagged_responses", "clusters")
	assert.Equal(t, []string{"tagged_responses", "clusters"}, missing)
	assert.Nil(t, snap.Missing("nps_metrics"))
}

func TestSnapshot_Responses(t *testing.T) {
	s := New("wf-1", "en", testRecords())
	assert.Len(t, s.Snapshot().Responses(), 2)

	empty := New("wf-2", "en", nil)
	empty.Merge("x", map[string]any{})
	assert.Len(t, empty.Snapshot().Responses(), 0)
}

func TestRecordAccumulators(t *testing.T) {
	s := New("wf-1", "en", nil)

	s.RecordCompleted("A0")
	s.RecordFailed("A1", "no scores found")
	s.AddWarnings("A2", "sparse comments")

	assert.Equal(t, []string{"A0"}, s.CompletedAgents())
	assert.Equal(t, []string{"A1"}, s.FailedAgents())
	require.Len(t, s.Errors(), 1)
	assert.Contains(t, s.Errors()[0], "A1: no scores found")
	require.Len(t, s.Warnings(), 1)
	assert.Contains(t, s.Warnings()[0], "A2: sparse comments")
}

func TestMarshalJSON(t *testing.T) {
	s := New("wf-1", "en", testRecords())
	s.Merge("A1", map[string]any{"nps_metrics": NPSMetrics{Score: 40}})
	s.RecordCompleted("A1")

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "wf-1", decoded["workflow_id"])
	assert.Contains(t, decoded["outputs"], "nps_metrics")
	assert.Equal(t, []any{"A1"}, decoded["completed_agents"])
}
