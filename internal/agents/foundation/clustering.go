package foundation

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/syncport-ai/npsd/internal/agent"
	"github.com/syncport-ai/npsd/internal/llm"
	"github.com/syncport-ai/npsd/internal/state"
)

const (
	// clusterSimilarity is the cosine threshold for joining an existing
	// cluster; below it a comment seeds a new one.
	clusterSimilarity = 0.82

	maxClusteredComments = 200
	minClusterSize       = 2
)

// Clustering (A3) groups semantically similar comments using embedding
// vectors and a greedy centroid pass.
type Clustering struct {
	desc   agent.Descriptor
	llm    llm.Client
	logger *zap.Logger
}

// NewClustering creates the clustering agent.
func NewClustering(desc agent.Descriptor, deps agent.Deps) agent.Agent {
	return &Clustering{desc: desc, llm: deps.LLM, logger: deps.Logger}
}

func (a *Clustering) Kind() agent.Kind { return agent.KindClustering }

func (a *Clustering) Validate(snap *state.Snapshot) error {
	return agent.RequireSurveyInput(snap)
}

func (a *Clustering) Process(ctx context.Context, snap *state.Snapshot) (*agent.Result, error) {
	records := cleanedOrRaw(snap)

	commented := make([]state.SurveyResponse, 0, len(records))
	for _, rec := range records {
		if rec.Comment != "" {
			commented = append(commented, rec)
		}
	}
	if len(commented) > maxClusteredComments {
		commented = commented[:maxClusteredComments]
	}

	if len(commented) < minClusterSize {
		return &agent.Result{
			Status:     agent.StatusCompleted,
			Data:       map[string]any{state.KeyClusters: []state.Cluster{}},
			Warnings:   []string{"too few comments to cluster"},
			Confidence: 0.3,
		}, nil
	}

	var warnings []string
	type member struct {
		rec state.SurveyResponse
		vec []float32
	}
	members := make([]member, 0, len(commented))
	for _, rec := range commented {
		vec, err := a.llm.Embed(ctx, rec.Comment)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("embedding failed for %s: %v", rec.ID, err))
			continue
		}
		members = append(members, member{rec: rec, vec: vec})
	}
	if len(members) < minClusterSize {
		return nil, fmt.Errorf("embedding failed for %d of %d comments", len(commented)-len(members), len(commented))
	}

	type group struct {
		centroid []float64
		records  []state.SurveyResponse
	}
	var groups []*group
	for _, m := range members {
		var best *group
		bestSim := clusterSimilarity
		for _, g := range groups {
			if sim := cosine(g.centroid, m.vec); sim >= bestSim {
				best, bestSim = g, sim
			}
		}
		if best == nil {
			best = &group{centroid: make([]float64, len(m.vec))}
			groups = append(groups, best)
		}
		best.records = append(best.records, m.rec)
		updateCentroid(best.centroid, m.vec, len(best.records))
	}

	clusters := make([]state.Cluster, 0, len(groups))
	for _, g := range groups {
		if len(g.records) < minClusterSize {
			continue
		}
		ids := make([]string, len(g.records))
		for i, rec := range g.records {
			ids[i] = rec.ID
		}
		clusters = append(clusters, state.Cluster{
			Label:       clusterLabel(g.records),
			ResponseIDs: ids,
			Size:        len(g.records),
		})
	}
	sort.Slice(clusters, func(i, j int) bool { return clusters[i].Size > clusters[j].Size })

	confidence := 0.8
	if len(clusters) == 0 {
		confidence = 0.4
		warnings = append(warnings, "no cluster reached minimum size")
	}

	return &agent.Result{
		Status:     agent.StatusCompleted,
		Data:       map[string]any{state.KeyClusters: clusters},
		Warnings:   warnings,
		Confidence: confidence,
	}, nil
}

// clusterLabel derives a short label from the most frequent non-trivial
// word among the cluster's comments.
func clusterLabel(records []state.SurveyResponse) string {
	counts := make(map[string]int)
	for _, rec := range records {
		for _, word := range strings.Fields(strings.ToLower(rec.Comment)) {
			word = strings.Trim(word, ".,!?;:\"'()")
			if len(word) < 4 {
				continue
			}
			counts[word]++
		}
	}
	label, best := "misc", 0
	for word, n := range counts {
		if n > best || (n == best && word < label) {
			label, best = word, n
		}
	}
	return label
}

func cosine(centroid []float64, vec []float32) float64 {
	if len(centroid) != len(vec) {
		return 0
	}
	var dot, na, nb float64
	for i := range vec {
		v := float64(vec[i])
		dot += centroid[i] * v
		na += centroid[i] * centroid[i]
		nb += v * v
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// updateCentroid folds vec into the running mean, where n is the member
// count after adding vec.
func updateCentroid(centroid []float64, vec []float32, n int) {
	for i := range centroid {
		centroid[i] += (float64(vec[i]) - centroid[i]) / float64(n)
	}
}
