package workflow

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/syncport-ai/npsd/internal/agent"
	"github.com/syncport-ai/npsd/internal/state"
)

// degradedConfidenceCap bounds the confidence a gated result may report
// when the upstream assessment falls below the threshold.
const degradedConfidenceCap = 0.5

// Gate downgrades consulting output when the analysis pass judged its own
// inputs too weak. The wrapped agent still runs; only its result shape
// changes.
type Gate struct {
	threshold float64
	logger    *zap.Logger
}

// NewGate creates a confidence gate.
func NewGate(threshold float64, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{threshold: threshold, logger: logger}
}

// Apply returns result untouched when upstream confidence meets the
// threshold. Below it, the result's confidence is capped, a warning names
// the reason, and agents that can degrade swap in their reduced payload.
// Failed results pass through unchanged.
func (g *Gate) Apply(snap *state.Snapshot, a agent.Agent, result *agent.Result) *agent.Result {
	if result == nil || !result.Completed() {
		return result
	}

	assessment := assessmentFrom(snap)
	if assessment.Score >= g.threshold {
		return result
	}

	if result.Confidence > degradedConfidenceCap {
		result.Confidence = degradedConfidenceCap
	}
	result.Warnings = append(result.Warnings, fmt.Sprintf(
		"upstream confidence %.2f below threshold %.2f; output degraded",
		assessment.Score, g.threshold))

	if deg, ok := a.(agent.Degradable); ok {
		result.Data = deg.Degraded(result)
	}

	g.logger.Info("confidence gate engaged",
		zap.Stringer("kind", result.Kind),
		zap.Float64("upstream_confidence", assessment.Score),
		zap.Float64("threshold", g.threshold),
	)
	return result
}

// assessmentFrom reads the coordinator's assessment. A missing assessment
// scores zero, which always engages the gate.
func assessmentFrom(snap *state.Snapshot) state.ConfidenceAssessment {
	if v, ok := snap.Get(state.KeyConfidenceAssessment); ok {
		if a, ok := v.(state.ConfidenceAssessment); ok {
			return a
		}
	}
	return state.ConfidenceAssessment{}
}
