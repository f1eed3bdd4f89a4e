// Package agents wires the built-in agent implementations into a registry.
package agents

import (
	"time"

	"github.com/syncport-ai/npsd/internal/agent"
	"github.com/syncport-ai/npsd/internal/agents/analysis"
	"github.com/syncport-ai/npsd/internal/agents/consulting"
	"github.com/syncport-ai/npsd/internal/agents/foundation"
)

const (
	computeTimeout = 30 * time.Second
	modelTimeout   = 2 * time.Minute
)

// RegisterDefaults registers every built-in agent with its default
// descriptor. Model-backed agents get a longer timeout and an extra retry.
func RegisterDefaults(r *agent.Registry) {
	register := func(ctor agent.Constructor, kind agent.Kind, name string, layer agent.Layer, usesModel bool) {
		desc := agent.Descriptor{
			Kind:       kind,
			Name:       name,
			Layer:      layer,
			MaxRetries: 2,
			Timeout:    computeTimeout,
		}
		if usesModel {
			desc.MaxRetries = 3
			desc.Timeout = modelTimeout
		}
		r.Register(ctor, desc)
	}

	register(foundation.NewIngestion, agent.KindIngestion, "Ingestion", agent.LayerFoundation, false)
	register(foundation.NewQuantitative, agent.KindQuantitative, "Quantitative", agent.LayerFoundation, false)
	register(foundation.NewTagging, agent.KindTextTagging, "TextTagging", agent.LayerFoundation, true)
	register(foundation.NewClustering, agent.KindClustering, "Clustering", agent.LayerFoundation, true)

	register(analysis.NewTechnical, agent.KindTechnical, "Technical", agent.LayerAnalysis, true)
	register(analysis.NewPassiveSegment, agent.KindPassiveSegment, "PassiveSegment", agent.LayerAnalysis, false)
	register(analysis.NewDetractorSegment, agent.KindDetractorSegment, "DetractorSegment", agent.LayerAnalysis, false)
	register(analysis.NewThemes, agent.KindThemes, "Themes", agent.LayerAnalysis, false)
	register(analysis.NewDrivers, agent.KindDrivers, "Drivers", agent.LayerAnalysis, false)
	register(analysis.NewProductDimension, agent.KindProductDimension, "ProductDimension", agent.LayerAnalysis, false)
	register(analysis.NewGeographicDimension, agent.KindGeographicDimension, "GeographicDimension", agent.LayerAnalysis, false)
	register(analysis.NewChannelDimension, agent.KindChannelDimension, "ChannelDimension", agent.LayerAnalysis, false)
	register(analysis.NewCoordinator, agent.KindCoordinator, "Coordinator", agent.LayerAnalysis, true)

	register(consulting.NewStrategic, agent.KindStrategic, "Strategic", agent.LayerConsulting, true)
	register(consulting.NewProductAdvisor, agent.KindProductAdvisor, "ProductAdvisor", agent.LayerConsulting, true)
	register(consulting.NewMarketingAdvisor, agent.KindMarketingAdvisor, "MarketingAdvisor", agent.LayerConsulting, true)
	register(consulting.NewRiskManager, agent.KindRiskManager, "RiskManager", agent.LayerConsulting, true)
	register(consulting.NewExecutive, agent.KindExecutiveSynthesizer, "ExecutiveSynthesizer", agent.LayerConsulting, true)
}
