package state

import (
	"math"
	"time"
)

// SurveyResponse is one raw survey record.
type SurveyResponse struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp,omitempty"`
	Score     int               `json:"score"`
	Comment   string            `json:"comment,omitempty"`
	Product   string            `json:"product,omitempty"`
	Region    string            `json:"region,omitempty"`
	Channel   string            `json:"channel,omitempty"`
	Segment   string            `json:"segment,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Sentiment classifies a tagged comment.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentMixed    Sentiment = "mixed"
)

// TaggedResponse is a survey comment with semantic tags.
type TaggedResponse struct {
	ResponseID string    `json:"response_id"`
	Text       string    `json:"text"`
	Score      int       `json:"score"`
	Sentiment  Sentiment `json:"sentiment"`
	Tags       []string  `json:"tags,omitempty"`
}

// NPSMetrics holds the computed net promoter score and its breakdown.
type NPSMetrics struct {
	Score              float64 `json:"nps_score"`
	SampleSize         int     `json:"sample_size"`
	Promoters          int     `json:"promoters"`
	Passives           int     `json:"passives"`
	Detractors         int     `json:"detractors"`
	PromoterPct        float64 `json:"promoter_pct"`
	PassivePct         float64 `json:"passive_pct"`
	DetractorPct       float64 `json:"detractor_pct"`
	ConfidenceInterval [2]float64 `json:"confidence_interval"`
	Significant        bool    `json:"statistically_significant"`
}

// ComputeNPS derives the score breakdown for a record set. Promoters
// score 9 or 10, passives 7 or 8, detractors 6 and below. The interval is
// a 95% Wald interval over the promoter-detractor difference.
func ComputeNPS(records []SurveyResponse) NPSMetrics {
	m := NPSMetrics{SampleSize: len(records)}
	for _, rec := range records {
		switch {
		case rec.Score >= 9:
			m.Promoters++
		case rec.Score >= 7:
			m.Passives++
		default:
			m.Detractors++
		}
	}
	n := float64(m.SampleSize)
	if n == 0 {
		return m
	}
	p := float64(m.Promoters) / n
	d := float64(m.Detractors) / n
	m.PromoterPct = p * 100
	m.PassivePct = float64(m.Passives) / n * 100
	m.DetractorPct = d * 100
	m.Score = (p - d) * 100

	variance := p + d - (p-d)*(p-d)
	margin := 1.96 * math.Sqrt(variance/n) * 100
	m.ConfidenceInterval = [2]float64{m.Score - margin, m.Score + margin}
	m.Significant = m.SampleSize >= 100 && margin < 15
	return m
}

// Cluster groups semantically similar responses.
type Cluster struct {
	Label       string   `json:"label"`
	ResponseIDs []string `json:"response_ids"`
	Size        int      `json:"size"`
}

// ConfidenceAssessment summarizes upstream data confidence for the
// consulting pass.
type ConfidenceAssessment struct {
	Score        float64 `json:"score"`
	SampleSize   float64 `json:"sample_size_factor"`
	Diversity    float64 `json:"diversity_factor"`
	Completeness float64 `json:"completeness_factor"`
}

// Insight is a single finding produced by an agent.
type Insight struct {
	Title    string `json:"title"`
	Detail   string `json:"detail"`
	Severity string `json:"severity,omitempty"`
}
