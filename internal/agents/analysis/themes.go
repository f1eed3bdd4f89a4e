package analysis

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/syncport-ai/npsd/internal/agent"
	"github.com/syncport-ai/npsd/internal/state"
)

const maxThemes = 10

// Themes (B4) distills recurring topics from tags and clusters, ranked by
// how often respondents raise them.
type Themes struct {
	desc   agent.Descriptor
	logger *zap.Logger
}

// NewThemes creates the theme-extraction agent.
func NewThemes(desc agent.Descriptor, deps agent.Deps) agent.Agent {
	return &Themes{desc: desc, logger: deps.Logger}
}

func (a *Themes) Kind() agent.Kind { return agent.KindThemes }

func (a *Themes) Validate(snap *state.Snapshot) error {
	return agent.RequireFoundationOutput(snap)
}

func (a *Themes) Process(ctx context.Context, snap *state.Snapshot) (*agent.Result, error) {
	tagged := taggedFrom(snap)

	type bucket struct {
		ids        []string
		sentiments map[state.Sentiment]int
	}
	buckets := make(map[string]*bucket)
	for _, tr := range tagged {
		for _, tag := range tr.Tags {
			b, ok := buckets[tag]
			if !ok {
				b = &bucket{sentiments: make(map[state.Sentiment]int)}
				buckets[tag] = b
			}
			b.ids = append(b.ids, tr.ResponseID)
			b.sentiments[tr.Sentiment]++
		}
	}

	// Clusters contribute themes the tagger may have missed.
	if v, ok := snap.Get(state.KeyClusters); ok {
		if clusters, ok := v.([]state.Cluster); ok {
			for _, c := range clusters {
				if _, taken := buckets[c.Label]; taken {
					continue
				}
				buckets[c.Label] = &bucket{
					ids:        c.ResponseIDs,
					sentiments: map[state.Sentiment]int{state.SentimentNeutral: c.Size},
				}
			}
		}
	}

	themes := make([]Theme, 0, len(buckets))
	for name, b := range buckets {
		theme := Theme{Name: name, Mentions: len(b.ids), Sentiment: dominantSentiment(b.sentiments)}
		if len(b.ids) > 3 {
			theme.ExampleIDs = b.ids[:3]
		} else {
			theme.ExampleIDs = b.ids
		}
		themes = append(themes, theme)
	}
	sort.Slice(themes, func(i, j int) bool {
		if themes[i].Mentions != themes[j].Mentions {
			return themes[i].Mentions > themes[j].Mentions
		}
		return themes[i].Name < themes[j].Name
	})
	if len(themes) > maxThemes {
		themes = themes[:maxThemes]
	}

	confidence := 0.8
	var warnings []string
	if len(themes) == 0 {
		confidence = 0.3
		warnings = append(warnings, "no recurring themes found")
	}

	return &agent.Result{
		Status:     agent.StatusCompleted,
		Data:       map[string]any{state.KeyThemes: themes},
		Warnings:   warnings,
		Confidence: confidence,
	}, nil
}

func dominantSentiment(counts map[state.Sentiment]int) state.Sentiment {
	dominant, best := state.SentimentNeutral, 0
	for _, s := range []state.Sentiment{
		state.SentimentNegative, state.SentimentPositive, state.SentimentMixed, state.SentimentNeutral,
	} {
		if counts[s] > best {
			dominant, best = s, counts[s]
		}
	}
	return dominant
}
