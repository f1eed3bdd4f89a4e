package analysis

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/syncport-ai/npsd/internal/agent"
	"github.com/syncport-ai/npsd/internal/state"
)

const maxDrivers = 5

// Drivers (B5) correlates topic tags with the promoter and detractor
// populations to surface what moves the score in each direction.
type Drivers struct {
	desc   agent.Descriptor
	logger *zap.Logger
}

// NewDrivers creates the driver-analysis agent.
func NewDrivers(desc agent.Descriptor, deps agent.Deps) agent.Agent {
	return &Drivers{desc: desc, logger: deps.Logger}
}

func (a *Drivers) Kind() agent.Kind { return agent.KindDrivers }

func (a *Drivers) Validate(snap *state.Snapshot) error {
	return agent.RequireFoundationOutput(snap)
}

func (a *Drivers) Process(ctx context.Context, snap *state.Snapshot) (*agent.Result, error) {
	tagged := taggedFrom(snap)

	type split struct{ promoters, detractors int }
	splits := make(map[string]*split)
	for _, tr := range tagged {
		for _, tag := range tr.Tags {
			s, ok := splits[tag]
			if !ok {
				s = &split{}
				splits[tag] = s
			}
			switch {
			case tr.Score >= 9:
				s.promoters++
			case tr.Score < 7:
				s.detractors++
			}
		}
	}

	var report DriverReport
	for tag, s := range splits {
		total := s.promoters + s.detractors
		if total == 0 {
			continue
		}
		d := Driver{
			Tag:        tag,
			Promoters:  s.promoters,
			Detractors: s.detractors,
			Impact:     float64(s.promoters-s.detractors) / float64(total),
		}
		if d.Impact > 0 {
			report.Positive = append(report.Positive, d)
		} else if d.Impact < 0 {
			report.Negative = append(report.Negative, d)
		}
	}
	sortDrivers(report.Positive, false)
	sortDrivers(report.Negative, true)
	if len(report.Positive) > maxDrivers {
		report.Positive = report.Positive[:maxDrivers]
	}
	if len(report.Negative) > maxDrivers {
		report.Negative = report.Negative[:maxDrivers]
	}

	confidence := 0.8
	if len(report.Positive)+len(report.Negative) == 0 {
		confidence = 0.3
	}

	return &agent.Result{
		Status:     agent.StatusCompleted,
		Data:       map[string]any{state.KeyDrivers: report},
		Confidence: confidence,
	}, nil
}

// sortDrivers orders by impact magnitude, strongest first.
func sortDrivers(drivers []Driver, ascending bool) {
	sort.Slice(drivers, func(i, j int) bool {
		if drivers[i].Impact != drivers[j].Impact {
			if ascending {
				return drivers[i].Impact < drivers[j].Impact
			}
			return drivers[i].Impact > drivers[j].Impact
		}
		return drivers[i].Tag < drivers[j].Tag
	})
}
