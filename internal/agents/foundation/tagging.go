package foundation

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/syncport-ai/npsd/internal/agent"
	"github.com/syncport-ai/npsd/internal/llm"
	"github.com/syncport-ai/npsd/internal/state"
)

// maxTaggedComments bounds the batch sent to the model in one call.
const maxTaggedComments = 50

// Tagging (A2) assigns sentiment and topic tags to survey comments using
// the language model, with a keyword fallback for lines the model skips.
type Tagging struct {
	desc   agent.Descriptor
	llm    llm.Client
	logger *zap.Logger
}

// NewTagging creates the tagging agent.
func NewTagging(desc agent.Descriptor, deps agent.Deps) agent.Agent {
	return &Tagging{desc: desc, llm: deps.LLM, logger: deps.Logger}
}

func (a *Tagging) Kind() agent.Kind { return agent.KindTextTagging }

func (a *Tagging) Validate(snap *state.Snapshot) error {
	return agent.RequireSurveyInput(snap)
}

func (a *Tagging) Process(ctx context.Context, snap *state.Snapshot) (*agent.Result, error) {
	records := cleanedOrRaw(snap)

	commented := make([]state.SurveyResponse, 0, len(records))
	for _, rec := range records {
		if rec.Comment != "" {
			commented = append(commented, rec)
		}
	}
	if len(commented) > maxTaggedComments {
		commented = commented[:maxTaggedComments]
	}

	var warnings []string
	tagged := make([]state.TaggedResponse, 0, len(commented))

	if len(commented) > 0 {
		resp, err := a.llm.Generate(ctx, buildTaggingPrompt(commented, snap.Language()), llm.DefaultGenerateOptions())
		if err != nil {
			return nil, err
		}

		parsed := parseTaggingResponse(resp.Content)
		for _, rec := range commented {
			tr := state.TaggedResponse{
				ResponseID: rec.ID,
				Text:       rec.Comment,
				Score:      rec.Score,
			}
			if p, ok := parsed[rec.ID]; ok {
				tr.Sentiment = p.Sentiment
				tr.Tags = p.Tags
			} else {
				tr.Sentiment = sentimentFromScore(rec.Score)
			}
			tagged = append(tagged, tr)
		}

		if len(parsed) < len(commented) {
			warnings = append(warnings, fmt.Sprintf(
				"model tagged %d of %d comments; remainder classified by score", len(parsed), len(commented)))
		}
	}

	confidence := 0.8
	if len(tagged) < 5 {
		confidence = 0.4
	}

	return &agent.Result{
		Status:     agent.StatusCompleted,
		Data:       map[string]any{state.KeyTaggedResponses: tagged},
		Warnings:   warnings,
		Confidence: confidence,
	}, nil
}

func buildTaggingPrompt(records []state.SurveyResponse, language string) string {
	var b strings.Builder
	b.WriteString("Classify each survey comment. For every line output exactly:\n")
	b.WriteString("<id>|<sentiment: positive, negative, neutral, mixed>|<comma-separated topic tags>\n")
	if language != "" {
		fmt.Fprintf(&b, "Comments are in locale %s; output tags in the same locale.\n", language)
	}
	b.WriteString("\nComments:\n")
	for _, rec := range records {
		fmt.Fprintf(&b, "%s: %s\n", rec.ID, rec.Comment)
	}
	return b.String()
}

// parseTaggingResponse reads "id|sentiment|tag1,tag2" lines, skipping
// anything malformed.
func parseTaggingResponse(content string) map[string]state.TaggedResponse {
	parsed := make(map[string]state.TaggedResponse)
	for _, line := range strings.Split(content, "\n") {
		parts := strings.SplitN(strings.TrimSpace(line), "|", 3)
		if len(parts) < 2 {
			continue
		}
		id := strings.TrimSpace(parts[0])
		if id == "" {
			continue
		}
		sentiment := state.Sentiment(strings.ToLower(strings.TrimSpace(parts[1])))
		switch sentiment {
		case state.SentimentPositive, state.SentimentNegative, state.SentimentNeutral, state.SentimentMixed:
		default:
			continue
		}
		tr := state.TaggedResponse{ResponseID: id, Sentiment: sentiment}
		if len(parts) == 3 {
			for _, tag := range strings.Split(parts[2], ",") {
				if tag = strings.TrimSpace(tag); tag != "" {
					tr.Tags = append(tr.Tags, tag)
				}
			}
		}
		parsed[id] = tr
	}
	return parsed
}

func sentimentFromScore(score int) state.Sentiment {
	switch {
	case score >= 9:
		return state.SentimentPositive
	case score >= 7:
		return state.SentimentNeutral
	default:
		return state.SentimentNegative
	}
}
